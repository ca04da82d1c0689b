package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lucasbarnes96/truenorth-index/src/analysis"
	"github.com/lucasbarnes96/truenorth-index/src/config"
	datasource "github.com/lucasbarnes96/truenorth-index/src/data_source"
	"github.com/lucasbarnes96/truenorth-index/src/gate"
	"github.com/lucasbarnes96/truenorth-index/src/helpers"
	"github.com/lucasbarnes96/truenorth-index/src/logger"
	"github.com/lucasbarnes96/truenorth-index/src/models"
	"github.com/lucasbarnes96/truenorth-index/src/network"
	"github.com/lucasbarnes96/truenorth-index/src/storage"
	"github.com/lucasbarnes96/truenorth-index/src/utils"

	"github.com/spf13/cobra"
)

// -----------------------------------------------------------------------------

func newRunCmd() *cobra.Command {
	var asOfDate string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Collect feeds, build the nowcast and publish when the gate passes",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, appLogger, err := loadConfig()
			if err != nil {
				return err
			}
			defer appLogger.Close()

			if asOfDate == "" {
				asOfDate = time.Now().UTC().Format("2006-01-02")
			}
			if _, err := time.Parse("2006-01-02", asOfDate); err != nil {
				return fmt.Errorf("invalid --date %q, want YYYY-MM-DD", asOfDate)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			snapshot, err := runPipeline(ctx, conf, appLogger, asOfDate)
			if err != nil {
				return err
			}
			if !snapshot.GateResult.Passed {
				return errGateBlocked
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&asOfDate, "date", "", "as-of date (YYYY-MM-DD), defaults to today UTC")
	return cmd
}

// -----------------------------------------------------------------------------
// The daily pipeline
// -----------------------------------------------------------------------------

func runPipeline(ctx context.Context, conf *config.Config, appLogger *logger.Logger, asOfDate string) (*models.MNowcastSnapshot, error) {
	now := time.Now().UTC()
	runID := utils.NewRunID()
	appLogger.Info("Starting run %s for %s", runID, asOfDate)

	store := storage.NewRunStore(conf.DataDir, appLogger)
	if err := store.EnsureDirs(); err != nil {
		return nil, err
	}

	releaseLog := openReleaseLog(conf.MConfig, appLogger)
	if releaseLog != nil {
		defer releaseLog.Close()
	}

	// 1. Collect category feeds down their fallback chains.
	networkManager := network.NewAsyncNetworkManager(conf.MConfig, logger.NewLogger(conf.LogLevel, conf.LogFile, "NetworkManager"))
	feeds, err := datasource.NewFeedManager(conf.MConfig, networkManager, appLogger)
	if err != nil {
		return nil, err
	}

	collectStart := time.Now()
	collected, err := feeds.Collect(ctx, asOfDate)
	if err != nil {
		return nil, err
	}
	collectSeconds := time.Since(collectStart).Seconds()
	appLogger.Info("Collected %d observations (%d rejected structurally) across %d sources",
		len(collected.Observations), len(collected.Rejections), len(collected.Health))

	// 2. Official benchmark context. Reporting-only; never feeds proxies.
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

	// 3. Baselines and health carry-forward come from prior artifacts only.
	prior, err := store.LoadPublishedLatest()
	if err != nil {
		appLogger.Warning("Could not read published baseline: %v", err)
	}
	history, err := store.LoadHistory()
	if err != nil {
		appLogger.Warning("Could not read published history: %v", err)
		history = models.MHistory{}
	}

	priorHealth := priorSourceHealth(store, prior, appLogger)
	health := datasource.RecomputeHealth(conf.MConfig, rawHealth, priorHealth, now)

	consensus, err := store.ReadConsensusFeed()
	if err != nil {
		appLogger.Warning("Could not read consensus feed: %v", err)
	}

	// 4. Build the snapshot, then evaluate the gate over the finished product.
	rc := &analysis.RunContext{
		RunID:         runID,
		AsOfDate:      asOfDate,
		GeneratedAt:   now,
		Prior:         prior,
		PublishedRuns: len(history.LiveEntries()),
		Benchmark:     benchmark,
		IndexSeries:   indexSeries,
		Consensus:     consensus,
	}

	analyzer := analysis.NewAnalysisFacade(conf.MConfig, logger.NewLogger(conf.LogLevel, conf.LogFile, "Analysis"))
	filterStart := time.Now()
	snapshot := analyzer.BuildSnapshot(rc, collected.Observations, health)
	snapshot.GateResult = gate.Evaluate(conf.MConfig, snapshot)
	filterSeconds := time.Since(filterStart).Seconds()

	// 5. Persist: latest pointer and run record always, publish on pass only.
	if err := store.SaveLatest(snapshot); err != nil {
		return nil, helpers.NewFatal("writing the latest pointer", err)
	}

	record := &models.MRunRecord{
		Snapshot: *snapshot,
		Metrics:  runMetrics(collected, snapshot, collectSeconds, filterSeconds),
	}
	recordPath, err := store.SaveRunRecord(record)
	if err != nil {
		return nil, helpers.NewFatal("writing the run record", err)
	}

	if snapshot.GateResult.Passed {
		if err := store.Publish(snapshot); err != nil {
			return nil, helpers.NewFatal("publishing the snapshot", err)
		}
		appLogger.Info("Run %s published for %s", runID, asOfDate)
	} else {
		appLogger.Warning("Run %s blocked by gate: %s", runID, strings.Join(snapshot.GateResult.Codes(), ", "))
	}

	writeSideArtifacts(store, snapshot, now, appLogger)

	// 6. Audit row. A broken audit DB demotes to warnings.
	if releaseLog != nil {
		row := models.MReleaseRun{
			RunID:          snapshot.RunID,
			AsOfDate:       snapshot.AsOfDate,
			Published:      snapshot.GateResult.Passed,
			HeadlinePct:    snapshot.HeadlineChangePct,
			Confidence:     snapshot.Confidence,
			Score:          snapshot.SignalQualityScore,
			GateConditions: storage.EncodeGateConditions(snapshot.GateResult),
			SnapshotPath:   recordPath,
			CreatedAt:      now,
		}
		if err := releaseLog.SaveReleaseRun(row); err != nil {
			appLogger.Warning("Could not record release run: %v", err)
		}
		if err := releaseLog.CleanupOldRuns(conf.Run.RetentionDays); err != nil {
			appLogger.Warning("Could not clean up release runs: %v", err)
		}
	}

	printRunSummary(snapshot, collectSeconds+filterSeconds)
	return snapshot, nil
}

// -----------------------------------------------------------------------------

// priorSourceHealth returns the health block carried into SLA aging: the
// published baseline when one exists, otherwise the most recent attempt.
func priorSourceHealth(store *storage.RunStore, prior *models.MNowcastSnapshot, appLogger *logger.Logger) []models.MSourceHealth {
	if prior != nil {
		return prior.SourceHealth
	}
	latest, err := store.LoadLatest()
	if err != nil {
		appLogger.Warning("Could not read prior run for health carry-forward: %v", err)
		return nil
	}
	if latest == nil {
		return nil
	}
	return latest.SourceHealth
}

// -----------------------------------------------------------------------------

func runMetrics(collected *datasource.CollectResult, snapshot *models.MNowcastSnapshot, collectSeconds, filterSeconds float64) models.MRunMetrics {
	duplicates, accepted := 0, 0
	for i := range snapshot.Categories {
		audit := &snapshot.Categories[i].Audit
		duplicates += audit.RejectedDuplicate
		accepted += audit.Accepted
	}
	return models.MRunMetrics{
		CollectSeconds: collectSeconds,
		FilterSeconds:  filterSeconds,
		RawCount:       len(collected.Observations) + len(collected.Rejections),
		DedupedCount:   len(collected.Observations) - duplicates,
		AcceptedCount:  accepted,
	}
}

// -----------------------------------------------------------------------------

// writeSideArtifacts refreshes the secondary artifacts after every run. None
// of them may fail the run; readers tolerate a stale copy.
func writeSideArtifacts(store *storage.RunStore, snapshot *models.MNowcastSnapshot, now time.Time, appLogger *logger.Logger) {
	if err := store.WriteConsensusSummary(snapshot.Consensus); err != nil {
		appLogger.Warning("Could not write consensus summary: %v", err)
	}

	events, err := store.ReadReleaseEvents()
	if err != nil {
		appLogger.Warning("Could not read release events: %v", err)
	}
	if events == nil {
		events = &models.MReleaseEvents{}
	}
	events.AsOf = now.Format(time.RFC3339)
	events.MethodVersion = utils.MethodVersion
	events.NextRelease = utils.NewReleaseCalendar().NextRelease(events, now)
	if err := store.WriteReleaseEvents(events); err != nil {
		appLogger.Warning("Could not write release events: %v", err)
	}

	// Re-read so a just-published run counts toward the evaluation metrics.
	history, err := store.LoadHistory()
	if err != nil {
		appLogger.Warning("Could not reload history for the performance summary: %v", err)
		return
	}
	performance, err := store.WritePerformanceSummary(history, now)
	if err != nil {
		appLogger.Warning("Could not write performance summary: %v", err)
	}
	if err := store.WriteModelCard(snapshot.AsOfDate, performance); err != nil {
		appLogger.Warning("Could not write model card: %v", err)
	}
}

// -----------------------------------------------------------------------------

func printRunSummary(snapshot *models.MNowcastSnapshot, elapsed float64) {
	fmt.Println()
	fmt.Println("=== TrueNorth Index run summary ===")
	fmt.Printf("run_id:     %s\n", snapshot.RunID)
	fmt.Printf("as_of:      %s\n", snapshot.AsOfDate)
	fmt.Printf("headline:   %+.4f%% MoM (projected annual %.2f%%)\n",
		snapshot.HeadlineChangePct, snapshot.ProjectedAnnualPct)
	fmt.Printf("coverage:   %.1f%%  score: %d  confidence: %s  lead: %s\n",
		snapshot.CoverageRatio*100, snapshot.SignalQualityScore, snapshot.Confidence, snapshot.LeadSignal)
	fmt.Printf("elapsed:    %.2fs\n", elapsed)

	if snapshot.GateResult.Passed {
		fmt.Println("gate:       PASSED, snapshot published")
	} else {
		fmt.Printf("gate:       BLOCKED (%d conditions)\n", len(snapshot.GateResult.FailedConditions))
		for _, condition := range snapshot.GateResult.FailedConditions {
			fmt.Printf("  - %s: %s\n", condition.Code, condition.Message)
		}
	}
	fmt.Println()
}
