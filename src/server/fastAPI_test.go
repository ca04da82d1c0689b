package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lucasbarnes96/truenorth-index/src/logger"
	"github.com/lucasbarnes96/truenorth-index/src/models"
	"github.com/lucasbarnes96/truenorth-index/src/storage"
	"github.com/lucasbarnes96/truenorth-index/src/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// Fixtures
// -----------------------------------------------------------------------------

func testLog() *logger.Logger {
	return logger.NewLogger("ERROR", "", "server-test")
}

func serverConfig() *models.MConfig {
	return &models.MConfig{
		Name:     "truenorth",
		Host:     "127.0.0.1",
		Port:     0,
		LogLevel: "ERROR",
		Gate: models.MGateConfig{
			CoverageFloor:     0.60,
			RequiredSources:   []string{"statcan_cpi", "statcan_gas"},
			AltDataSource:     "apify_grocery",
			AltDataMaxAgeDays: 14,
			RequireBenchmark:  true,
			SourceGroups: []models.MSourceGroup{
				{Name: "energy", Sources: []string{"statcan_gas", "energy_board_scrape"}},
			},
		},
		Categories: []models.MCategorySpec{
			{Name: "food", Weight: 0.165},
			{Name: "housing", Weight: 0.300},
		},
		Consensus: models.MConsensusConfig{
			MinPlausiblePct: 1.0,
			MaxPlausiblePct: 5.0,
			MaxSpreadPct:    1.0,
		},
	}
}

// newTestServer wires a server over an empty store in a temp dir. The release
// log defaults to nil; tests that need one swap in a fake.
func newTestServer(t *testing.T) (*FastAPIServer, *storage.RunStore) {
	t.Helper()

	store := storage.NewRunStore(t.TempDir(), testLog())
	require.NoError(t, store.EnsureDirs())

	srv := NewFastAPIServer(serverConfig(), store, nil, utils.NewReleaseCalendar(), testLog())
	return srv, store
}

func serverSnapshot(runID, asOf string, headline float64) *models.MNowcastSnapshot {
	return &models.MNowcastSnapshot{
		RunID:              runID,
		AsOfDate:           asOf,
		HeadlineChangePct:  headline,
		ProjectedAnnualPct: 2.4,
		CoverageRatio:      0.88,
		Confidence:         models.ConfidenceMedium,
		SignalQualityScore: 78,
		LeadSignal:         models.SignalUp,
		Categories: []models.MCategorySnapshot{
			{
				Category:   "food",
				ProxyValue: models.Float(5.37),
				PointCount: 12,
				Freshness:  models.FreshnessFresh,
				Audit:      models.MCategoryAudit{Accepted: 12},
			},
		},
		SourceHealth: []models.MSourceHealth{
			{Source: "apify_grocery", LastSuccess: asOf, AgeDays: 0, Status: models.SourceOK},
			{Source: "statcan_cpi", LastSuccess: "2025-07-15", AgeDays: 31, Status: models.SourceOK},
		},
		Method:      models.MMethod{Label: utils.MethodLabel, Version: utils.MethodVersion},
		GeneratedAt: "2025-08-15T18:00:00Z",
	}
}

func doGET(t *testing.T, srv *FastAPIServer, path string) (int, map[string]interface{}) {
	t.Helper()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	srv.engine.ServeHTTP(w, req)

	body := map[string]interface{}{}
	if len(w.Body.Bytes()) > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w.Code, body
}

// -----------------------------------------------------------------------------
// Liveness
// -----------------------------------------------------------------------------

func TestHealthRoute(t *testing.T) {
	srv, _ := newTestServer(t)

	code, body := doGET(t, srv, "/api/health")

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(0), body["connections"])
}

// -----------------------------------------------------------------------------
// Nowcast routes
// -----------------------------------------------------------------------------

func TestNowcastLatestNotPublished(t *testing.T) {
	srv, _ := newTestServer(t)

	code, body := doGET(t, srv, "/v1/nowcast/latest")

	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "No published nowcast yet.", body["detail"])
}

func TestNowcastLatestServesPublishedSnapshot(t *testing.T) {
	srv, store := newTestServer(t)
	require.NoError(t, store.Publish(serverSnapshot("run_aaa111bbb222", "2025-08-15", 0.21)))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/nowcast/latest", nil)
	srv.engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var snapshot models.MNowcastSnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snapshot))
	assert.Equal(t, "run_aaa111bbb222", snapshot.RunID)
	assert.Equal(t, "2025-08-15", snapshot.AsOfDate)
	assert.InDelta(t, 0.21, snapshot.HeadlineChangePct, 1e-9)
}

func TestNowcastHistoryRangeFilter(t *testing.T) {
	srv, store := newTestServer(t)
	require.NoError(t, store.Publish(serverSnapshot("run_a", "2025-08-13", 0.10)))
	require.NoError(t, store.Publish(serverSnapshot("run_b", "2025-08-14", 0.15)))
	require.NoError(t, store.Publish(serverSnapshot("run_c", "2025-08-15", 0.20)))

	code, body := doGET(t, srv, "/v1/nowcast/history?start=2025-08-14&end=2025-08-15")

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(2), body["count"])

	entries, ok := body["entries"].([]interface{})
	require.True(t, ok)
	require.Len(t, entries, 2)

	first := entries[0].(map[string]interface{})
	second := entries[1].(map[string]interface{})
	assert.Equal(t, "2025-08-14", first["as_of_date"])
	assert.Equal(t, "2025-08-15", second["as_of_date"])
}

func TestNowcastHistoryUnboundedReturnsAll(t *testing.T) {
	srv, store := newTestServer(t)
	require.NoError(t, store.Publish(serverSnapshot("run_a", "2025-08-14", 0.15)))
	require.NoError(t, store.Publish(serverSnapshot("run_b", "2025-08-15", 0.20)))

	code, body := doGET(t, srv, "/v1/nowcast/history")

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(2), body["count"])
}

// -----------------------------------------------------------------------------
// Source health
// -----------------------------------------------------------------------------

func TestSourcesHealthRoute(t *testing.T) {
	srv, store := newTestServer(t)

	code, body := doGET(t, srv, "/v1/sources/health")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "No runs recorded yet.", body["detail"])

	require.NoError(t, store.SaveLatest(serverSnapshot("run_x", "2025-08-15", 0.2)))

	code, body = doGET(t, srv, "/v1/sources/health")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "2025-08-15", body["as_of_date"])

	sources, ok := body["sources"].([]interface{})
	require.True(t, ok)
	assert.Len(t, sources, 2)
}

// -----------------------------------------------------------------------------
// Release routes
// -----------------------------------------------------------------------------

type fakeReleaseLog struct {
	run *models.MReleaseRun
}

func (f *fakeReleaseLog) Initialize() error { return nil }

func (f *fakeReleaseLog) SaveReleaseRun(run models.MReleaseRun) error {
	f.run = &run
	return nil
}

func (f *fakeReleaseLog) LatestRun() (*models.MReleaseRun, error) { return f.run, nil }

func (f *fakeReleaseLog) RecentRuns(limit int) ([]models.MReleaseRun, error) {
	if f.run == nil {
		return nil, nil
	}
	return []models.MReleaseRun{*f.run}, nil
}

func (f *fakeReleaseLog) CleanupOldRuns(retentionDays int) error { return nil }

func (f *fakeReleaseLog) Close() error { return nil }

func TestReleaseLatestRoute(t *testing.T) {
	srv, _ := newTestServer(t)

	code, body := doGET(t, srv, "/v1/releases/latest")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "Release log not configured.", body["detail"])

	log := &fakeReleaseLog{}
	srv.ReleaseLog = log

	code, body = doGET(t, srv, "/v1/releases/latest")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "No release runs logged yet.", body["detail"])

	require.NoError(t, log.SaveReleaseRun(models.MReleaseRun{
		RunID:          "run_abc123def456",
		AsOfDate:       "2025-08-15",
		Published:      true,
		HeadlinePct:    0.21,
		Confidence:     models.ConfidenceMedium,
		Score:          78,
		GateConditions: "[]",
		SnapshotPath:   "runs/run_abc123def456.json",
		CreatedAt:      time.Date(2025, 8, 15, 18, 0, 0, 0, time.UTC),
	}))

	code, body = doGET(t, srv, "/v1/releases/latest")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "run_abc123def456", body["run_id"])
	assert.Equal(t, true, body["published"])
}

func TestReleaseNextEstimatesWithoutFeed(t *testing.T) {
	srv, _ := newTestServer(t)

	code, body := doGET(t, srv, "/v1/releases/next")

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, utils.ReleaseEstimated, body["status"])
	assert.NotEmpty(t, body["release_at_utc"])
}

func TestReleaseNextPrefersStoredEvents(t *testing.T) {
	srv, store := newTestServer(t)

	future := time.Now().UTC().Add(72 * time.Hour).Truncate(time.Second)
	require.NoError(t, store.WriteReleaseEvents(&models.MReleaseEvents{
		Events: []models.MReleaseEvent{
			{Name: "cpi_release", RefPeriod: "2025-07", ReleaseAtUTC: future.Format(time.RFC3339)},
		},
	}))

	code, body := doGET(t, srv, "/v1/releases/next")

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, utils.ReleaseUpcoming, body["status"])
	assert.Equal(t, "2025-07", body["ref_period"])
}

// -----------------------------------------------------------------------------
// Methodology
// -----------------------------------------------------------------------------

func TestMethodologyRoute(t *testing.T) {
	srv, _ := newTestServer(t)

	code, body := doGET(t, srv, "/v1/methodology")
	require.Equal(t, http.StatusOK, code)

	method, ok := body["method"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, utils.MethodVersion, method["version"])

	weights, ok := body["category_weights"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 0.165, weights["food"])
	assert.Equal(t, 0.300, weights["housing"])

	gate, ok := body["gate"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 0.60, gate["coverage_floor"])
	assert.Equal(t, true, gate["require_benchmark"])

	groups, ok := gate["source_groups"].([]interface{})
	require.True(t, ok)
	require.Len(t, groups, 1)
	assert.Equal(t, "energy", groups[0].(map[string]interface{})["name"])
}
