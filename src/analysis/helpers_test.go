package analysis

import (
	"testing"
	"time"

	"github.com/lucasbarnes96/truenorth-index/src/logger"
	"github.com/lucasbarnes96/truenorth-index/src/models"
)

// testConfig returns a compact four-category registry with provider chains.
// Weights sum to 1.0; transport is a passthrough category.
func testConfig() *models.MConfig {
	return &models.MConfig{
		Name: "truenorth-index-test",
		Run: models.MRunConfig{
			OutlierDefaultPct: 50,
			CarryForwardDays:  2,
			LeadSignalEpsilon: 0.02,
		},
		Consensus: models.MConsensusConfig{MinPlausiblePct: 1, MaxPlausiblePct: 5, MaxSpreadPct: 1},
		Categories: []models.MCategorySpec{
			{
				Name: "food", Weight: 0.40, MinPrice: 0.1, MaxPrice: 500, OutlierPct: 60, MinPoints: 2,
				Providers: []models.MProviderSpec{
					{Name: "openfoodfacts_api", Type: "jsonfeed", Tier: models.TierAPI},
					{Name: "apify_grocery", Type: "filefeed", Tier: models.TierScrape},
				},
			},
			{
				Name: "housing", Weight: 0.30, MinPrice: 1, MaxPrice: 400, OutlierPct: 30, MinPoints: 1,
				Providers: []models.MProviderSpec{
					{Name: "statcan_housing", Type: "csvfeed", Tier: models.TierOfficial},
				},
			},
			{
				Name: "transport", Weight: 0.20, MinPrice: 50, MaxPrice: 300, OutlierPct: 40, MinPoints: 1,
				Passthrough: "statcan_transport",
				Providers: []models.MProviderSpec{
					{Name: "statcan_transport", Type: "csvfeed", Tier: models.TierOfficial},
					{Name: "household_panel", Type: "jsonfeed", Tier: models.TierPanel},
				},
			},
			{
				Name: "energy", Weight: 0.10, MinPrice: 0.1, MaxPrice: 100, OutlierPct: 50, MinPoints: 1,
				Providers: []models.MProviderSpec{
					{Name: "energy_board_scrape", Type: "filefeed", Tier: models.TierScrape},
				},
			},
		},
	}
}

func newTestFacade(t *testing.T) *AnalysisFacade {
	t.Helper()
	return NewAnalysisFacade(testConfig(), logger.NewLogger("ERROR", "", "analysis-test"))
}

// -----------------------------------------------------------------------------

func obs(source, category, item string, value float64, day, tier string) models.MObservation {
	return models.MObservation{
		Source:     source,
		Category:   category,
		ItemKey:    item,
		Value:      value,
		ObservedAt: day,
		Tier:       tier,
	}
}

// priorSnapshot builds a published snapshot with per-category [proxy, median]
// pairs, for use as a run's baseline.
func priorSnapshot(date string, headline float64, cats map[string][2]float64) *models.MNowcastSnapshot {
	snap := &models.MNowcastSnapshot{
		RunID:             "run_prior",
		AsOfDate:          date,
		HeadlineChangePct: headline,
		Confidence:        models.ConfidenceHigh,
		LeadSignal:        models.SignalFlat,
	}
	for name, values := range cats {
		snap.Categories = append(snap.Categories, models.MCategorySnapshot{
			Category:    name,
			ProxyValue:  models.Float(values[0]),
			MedianValue: models.Float(values[1]),
			Freshness:   models.FreshnessFresh,
		})
	}
	return snap
}

func testContext(asOf string, prior *models.MNowcastSnapshot, publishedRuns int) *RunContext {
	day, _ := time.Parse("2006-01-02", asOf)
	return &RunContext{
		RunID:         "run_test",
		AsOfDate:      asOf,
		GeneratedAt:   day.Add(18 * time.Hour),
		Prior:         prior,
		PublishedRuns: publishedRuns,
	}
}
