package analysis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucasbarnes96/truenorth-index/src/models"
)

// TestBuildSnapshotFullPipeline drives one realistic day end to end: four
// covered categories, a published baseline, a benchmark series and a
// consensus feed.
func TestBuildSnapshotFullPipeline(t *testing.T) {
	facade := newTestFacade(t)

	prior := priorSnapshot("2025-08-14", 0.1, map[string][2]float64{
		"food":      {100.0, 100.0},
		"housing":   {200.0, 200.0},
		"transport": {160.0, 160.0},
		"energy":    {50.0, 50.0},
	})
	rc := testContext("2025-08-15", prior, 2)
	rc.Benchmark = &models.MBenchmarkSummary{
		SeriesID:        "cpi_all_items",
		LatestRefPeriod: "2025-07",
		LatestIndex:     160.0,
		MoMPct:          models.Float(0.3),
	}
	rc.IndexSeries = []models.MIndexPoint{
		{RefPeriod: "2024-08", Index: 155.0},
		{RefPeriod: "2025-07", Index: 160.0},
	}
	rc.Consensus = &models.MConsensusFeed{
		AsOf: "2025-08-15",
		Sources: []models.MConsensusCandidate{
			candidate("bank_forecast", models.Float(2.9), models.ConfidenceHigh),
			candidate("econ_survey", models.Float(3.3), models.ConfidenceMedium),
		},
	}

	observations := []models.MObservation{
		obs("openfoodfacts_api", "food", "a", 103.0, "2025-08-15", models.TierAPI),
		obs("openfoodfacts_api", "food", "b", 103.0, "2025-08-15", models.TierAPI),
		obs("apify_grocery", "food", "c", 103.0, "2025-08-15", models.TierScrape),
		obs("statcan_housing", "housing", "rent_idx", 202.0, "2025-08-15", models.TierOfficial),
		obs("statcan_transport", "transport", "idx", 161.6, "2025-08-15", models.TierOfficial),
		obs("household_panel", "transport", "fuel", 150.0, "2025-08-15", models.TierPanel),
		obs("energy_board_scrape", "energy", "kwh", 50.5, "2025-08-15", models.TierScrape),
	}
	health := []models.MSourceHealth{
		{Source: "openfoodfacts_api", LastSuccess: "2025-08-15", AgeDays: 0, Status: models.SourceOK},
		{Source: "statcan_housing", LastSuccess: "2025-08-15", AgeDays: 0, Status: models.SourceOK},
	}

	snapshot := facade.BuildSnapshot(rc, observations, health)
	require.NotNil(t, snapshot)

	// Identity and immutability: the gate has not run yet.
	assert.Equal(t, "run_test", snapshot.RunID)
	assert.Equal(t, "2025-08-15", snapshot.AsOfDate)
	assert.Nil(t, snapshot.GateResult)
	assert.Equal(t, "2025-08-15T18:00:00Z", snapshot.GeneratedAt)

	// Every category moved +1% except food at +3%; full weight contributed.
	assert.InDelta(t, 1.8, snapshot.HeadlineChangePct, 1e-9)
	assert.InDelta(t, 1.0, snapshot.CoverageRatio, 1e-9)
	assert.InDelta(t, 1.0, snapshot.Representativeness, 1e-9)
	assert.Equal(t, models.ConfidenceHigh, snapshot.Confidence)
	assert.Equal(t, 4, snapshot.SourceDiversity)
	assert.Equal(t, models.SignalUp, snapshot.LeadSignal)
	assert.Zero(t, snapshot.AnomalyCount)

	// housing and energy are single-source: 100 - 2*4.
	assert.Equal(t, 92, snapshot.SignalQualityScore)

	// Benchmark base 2025-07 at 160, prorated 15/31 against 2024-08 at 155.
	assert.InDelta(t, 4.125, snapshot.ProjectedAnnualPct, 1e-9)
	require.NotNil(t, snapshot.Projection)
	assert.Equal(t, "2025-07", snapshot.Projection.BaseMonth)

	food := snapshot.Category("food")
	require.NotNil(t, food)
	require.NotNil(t, food.ChangePct)
	assert.InDelta(t, 3.0, *food.ChangePct, 1e-9)
	assert.Equal(t, models.FreshnessFresh, food.Freshness)

	transport := snapshot.Category("transport")
	require.NotNil(t, transport)
	require.NotNil(t, transport.ProxyValue)
	assert.InDelta(t, 161.6, *transport.ProxyValue, 1e-9, "passthrough source wins")

	require.NotNil(t, snapshot.TopDriver)
	assert.Equal(t, "food", snapshot.TopDriver.Category)
	assert.InDelta(t, 1.2, snapshot.TopDriver.ContributionPct, 1e-9)
	assert.InDelta(t, 1.2, snapshot.Contributions["food"], 1e-9)

	require.NotNil(t, snapshot.Consensus)
	require.True(t, snapshot.Consensus.Accepted)
	assert.InDelta(t, 3.1, *snapshot.Consensus.Value, 1e-9)
	require.NotNil(t, snapshot.Consensus.DeviationPct)
	assert.InDelta(t, 1.025, *snapshot.Consensus.DeviationPct, 1e-9)

	assert.Len(t, snapshot.SourceHealth, 2)
	require.NoError(t, ValidateSnapshot(snapshot))

	notes := strings.Join(snapshot.Notes, "\n")
	assert.Contains(t, notes, "not an official index release")
	assert.Contains(t, notes, "single-source categories today: energy, housing")
	assert.Contains(t, notes, "100.0%")
}

// TestBuildSnapshotFirstRun covers the cold start: no baseline, no history,
// nothing fetched.
func TestBuildSnapshotFirstRun(t *testing.T) {
	facade := newTestFacade(t)
	rc := testContext("2025-08-15", nil, 0)

	snapshot := facade.BuildSnapshot(rc, nil, nil)
	require.NotNil(t, snapshot)

	assert.Zero(t, snapshot.HeadlineChangePct)
	assert.Zero(t, snapshot.CoverageRatio)
	assert.Equal(t, models.ConfidenceLow, snapshot.Confidence)
	assert.Equal(t, models.SignalInsufficient, snapshot.LeadSignal)
	assert.Zero(t, snapshot.SignalQualityScore)
	assert.Len(t, snapshot.Categories, 4, "every registered category appears even when missing")

	require.NotNil(t, snapshot.Projection)
	assert.Equal(t, ProjectionNoHeadline, snapshot.Projection.Reason)
	assert.Nil(t, snapshot.Consensus)

	notes := strings.Join(snapshot.Notes, "\n")
	assert.Contains(t, notes, "Missing categories today")
	assert.Contains(t, notes, "Annual projection unavailable")
}

// TestBuildSnapshotBootstrapFallback: baselines exist for nothing, but the
// official monthly change substitutes for the headline.
func TestBuildSnapshotBootstrapFallback(t *testing.T) {
	facade := newTestFacade(t)
	rc := testContext("2025-08-15", nil, 0)
	rc.Benchmark = &models.MBenchmarkSummary{SeriesID: "cpi_all_items", MoMPct: models.Float(0.4)}

	observations := []models.MObservation{
		obs("openfoodfacts_api", "food", "a", 103.0, "2025-08-15", models.TierAPI),
	}

	snapshot := facade.BuildSnapshot(rc, observations, nil)

	assert.InDelta(t, 0.4, snapshot.HeadlineChangePct, 1e-9, "no category change yet, official MoM substitutes")
	notes := strings.Join(snapshot.Notes, "\n")
	assert.Contains(t, notes, "official monthly change")
}

// TestBuildSnapshotAnomalyDowngrades: a rejected category costs coverage,
// confidence and score in one move.
func TestBuildSnapshotAnomalyDowngrades(t *testing.T) {
	facade := newTestFacade(t)
	prior := priorSnapshot("2025-08-14", 0.1, map[string][2]float64{
		"food":      {5.0, 5.0},
		"housing":   {200.0, 200.0},
		"transport": {160.0, 160.0},
		"energy":    {50.0, 50.0},
	})
	rc := testContext("2025-08-15", prior, 2)

	observations := []models.MObservation{
		obs("openfoodfacts_api", "food", "a", 50.0, "2025-08-15", models.TierAPI), // tenfold shift
		obs("openfoodfacts_api", "food", "b", 51.0, "2025-08-15", models.TierAPI),
		obs("statcan_housing", "housing", "rent_idx", 202.0, "2025-08-15", models.TierOfficial),
		obs("statcan_transport", "transport", "idx", 161.6, "2025-08-15", models.TierOfficial),
		obs("energy_board_scrape", "energy", "kwh", 50.5, "2025-08-15", models.TierScrape),
	}

	snapshot := facade.BuildSnapshot(rc, observations, nil)

	assert.Equal(t, 2, snapshot.AnomalyCount)
	assert.InDelta(t, 0.6, snapshot.CoverageRatio, 1e-9, "food dropped, no carry-forward after rejection")
	assert.InDelta(t, 1.0, snapshot.HeadlineChangePct, 1e-9, "remaining categories all moved +1%")

	food := snapshot.Category("food")
	require.NotNil(t, food)
	assert.Equal(t, models.FreshnessMissing, food.Freshness)

	notes := strings.Join(snapshot.Notes, "\n")
	assert.Contains(t, notes, "day-over-day anomaly filter")
}
