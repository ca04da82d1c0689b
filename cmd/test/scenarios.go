package main

import (
	"context"
	"strings"
	"time"

	"github.com/lucasbarnes96/truenorth-index/src/analysis"
	"github.com/lucasbarnes96/truenorth-index/src/config"
	datasource "github.com/lucasbarnes96/truenorth-index/src/data_source"
	"github.com/lucasbarnes96/truenorth-index/src/gate"
	"github.com/lucasbarnes96/truenorth-index/src/interfaces"
	"github.com/lucasbarnes96/truenorth-index/src/logger"
	"github.com/lucasbarnes96/truenorth-index/src/models"
	"github.com/lucasbarnes96/truenorth-index/src/network"
	"github.com/lucasbarnes96/truenorth-index/src/storage"
	"github.com/lucasbarnes96/truenorth-index/src/utils"
)

// -----------------------------------------------------------------------------

// executePipeline is the collect/build/gate/persist sequence the daily binary
// runs, wired against the fixture workspace. Ages are computed against the
// workspace clock, and each audit row is stamped with its simulated day so
// row ordering matches the calendar instead of insert time.
func executePipeline(ctx context.Context, ws *workspace, conf *config.Config, releaseLog interfaces.IReleaseLog, appLogger *logger.Logger, asOfDate string) (*models.MNowcastSnapshot, error) {
	store := storage.NewRunStore(conf.DataDir, appLogger)
	if err := store.EnsureDirs(); err != nil {
		return nil, err
	}

	networkManager := network.NewAsyncNetworkManager(conf.MConfig, logger.NewLogger(conf.LogLevel, conf.LogFile, "NetworkManager"))
	feeds, err := datasource.NewFeedManager(conf.MConfig, networkManager, appLogger)
	if err != nil {
		return nil, err
	}
	collected, err := feeds.Collect(ctx, asOfDate)
	if err != nil {
		return nil, err
	}

	rawHealth := collected.Health
	var benchmark *models.MBenchmarkSummary
	var indexSeries []models.MIndexPoint
	if fetcher, err := datasource.NewBenchmarkFetcher(conf.MConfig, networkManager, appLogger); err != nil {
		appLogger.Warning("Benchmark fetcher unavailable: %v", err)
	} else if fetcher != nil {
		var benchHealth models.MSourceHealth
		benchmark, indexSeries, benchHealth = fetcher.Fetch(ctx, asOfDate)
		rawHealth = append(rawHealth, benchHealth)
	}

	prior, err := store.LoadPublishedLatest()
	if err != nil {
		return nil, err
	}
	history, err := store.LoadHistory()
	if err != nil {
		return nil, err
	}

	var priorHealth []models.MSourceHealth
	if prior != nil {
		priorHealth = prior.SourceHealth
	} else if latest, err := store.LoadLatest(); err == nil && latest != nil {
		priorHealth = latest.SourceHealth
	}
	health := datasource.RecomputeHealth(conf.MConfig, rawHealth, priorHealth, ws.Now)

	consensus, err := store.ReadConsensusFeed()
	if err != nil {
		appLogger.Warning("Could not read consensus feed: %v", err)
	}

	rc := &analysis.RunContext{
		RunID:         utils.NewRunID(),
		AsOfDate:      asOfDate,
		GeneratedAt:   ws.Now,
		Prior:         prior,
		PublishedRuns: len(history.LiveEntries()),
		Benchmark:     benchmark,
		IndexSeries:   indexSeries,
		Consensus:     consensus,
	}

	analyzer := analysis.NewAnalysisFacade(conf.MConfig, logger.NewLogger(conf.LogLevel, conf.LogFile, "Analysis"))
	snapshot := analyzer.BuildSnapshot(rc, collected.Observations, health)
	snapshot.GateResult = gate.Evaluate(conf.MConfig, snapshot)

	if err := store.SaveLatest(snapshot); err != nil {
		return nil, err
	}
	recordPath, err := store.SaveRunRecord(&models.MRunRecord{Snapshot: *snapshot})
	if err != nil {
		return nil, err
	}
	if snapshot.GateResult.Passed {
		if err := store.Publish(snapshot); err != nil {
			return nil, err
		}
	}

	runDay, err := time.Parse("2006-01-02", asOfDate)
	if err != nil {
		return nil, err
	}
	row := models.MReleaseRun{
		RunID:          snapshot.RunID,
		AsOfDate:       snapshot.AsOfDate,
		Published:      snapshot.GateResult.Passed,
		HeadlinePct:    snapshot.HeadlineChangePct,
		Confidence:     snapshot.Confidence,
		Score:          snapshot.SignalQualityScore,
		GateConditions: storage.EncodeGateConditions(snapshot.GateResult),
		SnapshotPath:   recordPath,
		CreatedAt:      runDay.Add(18 * time.Hour),
	}
	if err := releaseLog.SaveReleaseRun(row); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// -----------------------------------------------------------------------------
// Day 1: first run ever publishes off the official fallback headline.
// -----------------------------------------------------------------------------

func runDayOne(ws *workspace, conf *config.Config, releaseLog interfaces.IReleaseLog, appLogger *logger.Logger, r *report) {
	if err := ws.stageDayOne(); err != nil {
		r.check("day1/stage", false, "%v", err)
		return
	}
	snapshot, err := executePipeline(context.Background(), ws, conf, releaseLog, appLogger, ws.Days[0])
	if err != nil {
		r.check("day1/pipeline", false, "%v", err)
		return
	}

	r.check("day1/gate", snapshot.GateResult.Passed,
		"first run blocked: %s", strings.Join(snapshot.GateResult.Codes(), ", "))
	r.check("day1/headline-fallback", near(snapshot.HeadlineChangePct, 0.645, 0.002),
		"headline %v, want the official MoM 0.645", snapshot.HeadlineChangePct)
	r.check("day1/coverage", near(snapshot.CoverageRatio, 1.0, 1e-9),
		"coverage %v", snapshot.CoverageRatio)
	r.check("day1/lead-signal", snapshot.LeadSignal == models.SignalInsufficient,
		"lead signal %q without any prior run", snapshot.LeadSignal)

	food := snapshot.Category("food")
	if food == nil {
		r.check("day1/food", false, "food category missing from snapshot")
		return
	}
	r.check("day1/food-panel", food.PointCount == 4 && food.Freshness == models.FreshnessFresh,
		"points %d freshness %s", food.PointCount, food.Freshness)
	r.check("day1/food-proxy", near(floatOrNaN(food.ProxyValue), 4.725, 1e-6),
		"proxy %v, want the panel mean 4.725", floatOrNaN(food.ProxyValue))
	r.check("day1/food-no-baseline", food.ChangePct == nil,
		"change %v before any baseline exists", floatOrNaN(food.ChangePct))

	store := storage.NewRunStore(conf.DataDir, appLogger)
	published, err := store.LoadPublishedLatest()
	r.check("day1/published-pointer", err == nil && published != nil && published.RunID == snapshot.RunID,
		"published %v err %v", published, err)
	history, err := store.LoadHistory()
	r.check("day1/history", err == nil && len(history.LiveEntries()) == 1,
		"live entries %d err %v", len(history.LiveEntries()), err)
}

// -----------------------------------------------------------------------------
// Day 2: fallback chain, outlier rejection, carried health, consensus.
// -----------------------------------------------------------------------------

func runDayTwo(ws *workspace, conf *config.Config, releaseLog interfaces.IReleaseLog, appLogger *logger.Logger, r *report) {
	if err := ws.stageDayTwo(); err != nil {
		r.check("day2/stage", false, "%v", err)
		return
	}
	snapshot, err := executePipeline(context.Background(), ws, conf, releaseLog, appLogger, ws.Days[1])
	if err != nil {
		r.check("day2/pipeline", false, "%v", err)
		return
	}

	r.check("day2/gate", snapshot.GateResult.Passed,
		"degraded-but-healthy run blocked: %s", strings.Join(snapshot.GateResult.Codes(), ", "))

	food := snapshot.Category("food")
	if food == nil {
		r.check("day2/food", false, "food category missing from snapshot")
		return
	}
	r.check("day2/food-fallback",
		food.Freshness == models.FreshnessStale && len(food.Sources) == 1 && food.Sources[0] == "food_basket",
		"freshness %s sources %v, want the second chain member", food.Freshness, food.Sources)
	r.check("day2/food-outlier", food.Audit.RejectedOutlier == 1 && food.PointCount == 3,
		"audit %+v points %d, want the decimal slip dropped", food.Audit, food.PointCount)
	r.check("day2/food-change", near(floatOrNaN(food.ChangePct), 1.2339, 0.01),
		"change %v", floatOrNaN(food.ChangePct))

	r.check("day2/headline", near(snapshot.HeadlineChangePct, 1.286, 0.01),
		"headline %v", snapshot.HeadlineChangePct)
	r.check("day2/representativeness", near(snapshot.Representativeness, 0.5, 1e-9),
		"representativeness %v with food on a non-primary source", snapshot.Representativeness)
	r.check("day2/anomaly-count", snapshot.AnomalyCount == 1,
		"anomalies %d", snapshot.AnomalyCount)
	r.check("day2/lead-signal", snapshot.LeadSignal == models.SignalUp,
		"lead signal %q, headline %v vs prior 0.645", snapshot.LeadSignal, snapshot.HeadlineChangePct)

	var panel *models.MSourceHealth
	for i := range snapshot.SourceHealth {
		if snapshot.SourceHealth[i].Source == "grocery_panel" {
			panel = &snapshot.SourceHealth[i]
		}
	}
	carried := panel != nil && panel.Status == models.SourceOK && panel.AgeDays == 2 &&
		strings.Contains(panel.Detail, "Using last success from prior run.")
	r.check("day2/panel-carryforward", carried, "panel health %+v", panel)

	consensusOK := snapshot.Consensus != nil && snapshot.Consensus.Accepted &&
		near(floatOrNaN(snapshot.Consensus.Value), 2.0, 1e-9)
	r.check("day2/consensus", consensusOK, "consensus %+v", snapshot.Consensus)

	store := storage.NewRunStore(conf.DataDir, appLogger)
	history, err := store.LoadHistory()
	r.check("day2/history", err == nil && len(history.LiveEntries()) == 2,
		"live entries %d err %v", len(history.LiveEntries()), err)
}

// -----------------------------------------------------------------------------
// Day 3: thin food sample plus an empty benchmark table. Gate must block,
// published artifacts must not move.
// -----------------------------------------------------------------------------

func runDayThree(ws *workspace, conf *config.Config, releaseLog interfaces.IReleaseLog, appLogger *logger.Logger, r *report) {
	if err := ws.stageDayThree(); err != nil {
		r.check("day3/stage", false, "%v", err)
		return
	}
	snapshot, err := executePipeline(context.Background(), ws, conf, releaseLog, appLogger, ws.Days[2])
	if err != nil {
		r.check("day3/pipeline", false, "%v", err)
		return
	}

	codes := snapshot.GateResult.Codes()
	r.check("day3/gate-blocked", !snapshot.GateResult.Passed && len(codes) == 2,
		"passed=%v codes=%v", snapshot.GateResult.Passed, codes)
	r.check("day3/gate-min-points", hasCode(codes, models.GateCategoryMinPoints),
		"codes %v", codes)
	r.check("day3/gate-benchmark", hasCode(codes, models.GateBenchmarkMetadataMissing),
		"codes %v", codes)

	food := snapshot.Category("food")
	r.check("day3/food-thin", food != nil && food.PointCount == 1 && food.Freshness == models.FreshnessFresh,
		"food %+v, want the recovered panel with one point", food)

	store := storage.NewRunStore(conf.DataDir, appLogger)
	latest, err := store.LoadLatest()
	r.check("day3/latest-pointer", err == nil && latest != nil && latest.RunID == snapshot.RunID,
		"latest %v err %v", latest, err)

	published, err := store.LoadPublishedLatest()
	r.check("day3/publish-isolation", err == nil && published != nil && published.AsOfDate == ws.Days[1],
		"published as_of %v err %v, want the blocked run to leave day two in place",
		publishedAsOf(published), err)

	history, err := store.LoadHistory()
	r.check("day3/history-frozen", err == nil && len(history.LiveEntries()) == 2,
		"live entries %d err %v", len(history.LiveEntries()), err)

	row, err := releaseLog.LatestRun()
	auditOK := err == nil && row != nil && !row.Published && row.AsOfDate == ws.Days[2] &&
		strings.Contains(row.GateConditions, models.GateCategoryMinPoints)
	r.check("day3/audit-row", auditOK, "latest audit row %+v err %v", row, err)

	rows, err := releaseLog.RecentRuns(10)
	r.check("day3/audit-count", err == nil && len(rows) == 3,
		"rows %d err %v", len(rows), err)
}

func publishedAsOf(s *models.MNowcastSnapshot) string {
	if s == nil {
		return "<nil>"
	}
	return s.AsOfDate
}
