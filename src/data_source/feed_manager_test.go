package datasource

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucasbarnes96/truenorth-index/src/helpers"
	"github.com/lucasbarnes96/truenorth-index/src/interfaces"
	"github.com/lucasbarnes96/truenorth-index/src/models"
)

// scriptedFeed is a canned IFeedProvider for chain tests.
type scriptedFeed struct {
	name    string
	tier    string
	records []map[string]interface{}
	err     error
	calls   int
}

func (f *scriptedFeed) Name() string { return f.name }
func (f *scriptedFeed) Tier() string { return f.tier }
func (f *scriptedFeed) Fetch(ctx context.Context) ([]map[string]interface{}, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func priceRecords(values ...float64) []map[string]interface{} {
	records := make([]map[string]interface{}, 0, len(values))
	for i, v := range values {
		records = append(records, map[string]interface{}{
			"name":  fmt.Sprintf("item_%d", i),
			"price": v,
		})
	}
	return records
}

func chainConfig() *models.MConfig {
	schema := models.MSchemaHints{ItemKeys: []string{"name"}, ValueKeys: []string{"price"}}
	return &models.MConfig{
		Network: models.MNetworkConfig{ConcurrentRequests: 2},
		Categories: []models.MCategorySpec{
			{
				Name:   "food",
				Weight: 0.6,
				Providers: []models.MProviderSpec{
					{Name: "openfoodfacts_api", Type: ProviderJSONFeed, Tier: models.TierAPI, Schema: schema},
					{Name: "apify_grocery", Type: ProviderJSONFeed, Tier: models.TierScrape, Schema: schema},
				},
			},
			{
				Name:   "energy",
				Weight: 0.4,
				Providers: []models.MProviderSpec{
					{Name: "energy_board_scrape", Type: ProviderJSONFeed, Tier: models.TierScrape, Schema: schema},
				},
			},
		},
	}
}

// newScriptedManager wires scripted feeds in place of the built providers.
func newScriptedManager(t *testing.T, cfg *models.MConfig, feeds ...*scriptedFeed) *FeedManager {
	t.Helper()
	manager := &FeedManager{
		Config:    cfg,
		Providers: make(map[string]interfaces.IFeedProvider, len(feeds)),
		Logger:    testLog(),
	}
	for _, feed := range feeds {
		manager.Providers[feed.name] = feed
	}
	return manager
}

// -----------------------------------------------------------------------------

func TestCollectPrimaryProviderWins(t *testing.T) {
	primary := &scriptedFeed{name: "openfoodfacts_api", tier: models.TierAPI, records: priceRecords(4.99, 3.49)}
	fallback := &scriptedFeed{name: "apify_grocery", tier: models.TierScrape, records: priceRecords(5.10)}
	energy := &scriptedFeed{name: "energy_board_scrape", tier: models.TierScrape, records: priceRecords(1.55)}

	manager := newScriptedManager(t, chainConfig(), primary, fallback, energy)
	result, err := manager.Collect(context.Background(), "2025-08-15")

	require.NoError(t, err)
	assert.Len(t, result.Observations, 3)
	assert.Equal(t, 0, fallback.calls, "the chain stops at the first producer")

	health := healthBySource(result.Health)
	assert.Equal(t, "2025-08-15", health["openfoodfacts_api"].LastSuccess)
	assert.Contains(t, health["openfoodfacts_api"].Detail, "chain position 1")
	assert.Contains(t, health["apify_grocery"].Detail, "Not attempted")
	assert.Empty(t, health["apify_grocery"].LastSuccess)
}

func TestCollectFallsBackPastFailure(t *testing.T) {
	primary := &scriptedFeed{name: "openfoodfacts_api", tier: models.TierAPI, err: fmt.Errorf("HTTP 503")}
	fallback := &scriptedFeed{name: "apify_grocery", tier: models.TierScrape, records: priceRecords(5.10, 4.80)}
	energy := &scriptedFeed{name: "energy_board_scrape", tier: models.TierScrape, records: priceRecords(1.55)}

	manager := newScriptedManager(t, chainConfig(), primary, fallback, energy)
	result, err := manager.Collect(context.Background(), "2025-08-15")

	require.NoError(t, err, "a chain failure never fails the run")
	assert.Len(t, result.Observations, 3)

	health := healthBySource(result.Health)
	assert.Contains(t, health["openfoodfacts_api"].Detail, "Fetch failed")
	assert.Empty(t, health["openfoodfacts_api"].LastSuccess)
	assert.Contains(t, health["apify_grocery"].Detail, "chain position 2")
	assert.Equal(t, "2025-08-15", health["apify_grocery"].LastSuccess)

	for _, observation := range result.Observations {
		if observation.Category == "food" {
			assert.Equal(t, "apify_grocery", observation.Source)
		}
	}
}

func TestCollectFallsBackPastEmptyProducer(t *testing.T) {
	// The primary responds but every record is malformed; the chain must
	// treat that the same as no data.
	primary := &scriptedFeed{name: "openfoodfacts_api", tier: models.TierAPI, records: []map[string]interface{}{
		{"name": "milk", "price": "call for price"},
	}}
	fallback := &scriptedFeed{name: "apify_grocery", tier: models.TierScrape, records: priceRecords(5.10)}
	energy := &scriptedFeed{name: "energy_board_scrape", tier: models.TierScrape, records: priceRecords(1.55)}

	manager := newScriptedManager(t, chainConfig(), primary, fallback, energy)
	result, err := manager.Collect(context.Background(), "2025-08-15")

	require.NoError(t, err)
	assert.Len(t, result.Observations, 2)
	require.Len(t, result.Rejections, 1)
	assert.Equal(t, models.RejectNonNumericValue, result.Rejections[0].Reason)

	health := healthBySource(result.Health)
	assert.Contains(t, health["openfoodfacts_api"].Detail, "no usable records")
	assert.Equal(t, "2025-08-15", health["apify_grocery"].LastSuccess)
}

func TestCollectExhaustedChainDegradesNotFails(t *testing.T) {
	primary := &scriptedFeed{name: "openfoodfacts_api", tier: models.TierAPI, err: fmt.Errorf("HTTP 503")}
	fallback := &scriptedFeed{name: "apify_grocery", tier: models.TierScrape, err: fmt.Errorf("actor quota exhausted")}
	energy := &scriptedFeed{name: "energy_board_scrape", tier: models.TierScrape, records: priceRecords(1.55)}

	manager := newScriptedManager(t, chainConfig(), primary, fallback, energy)
	result, err := manager.Collect(context.Background(), "2025-08-15")

	require.NoError(t, err)
	assert.Len(t, result.Observations, 1, "energy still collected")

	health := healthBySource(result.Health)
	assert.Empty(t, health["openfoodfacts_api"].LastSuccess)
	assert.Empty(t, health["apify_grocery"].LastSuccess)
}

func TestCollectFlattensInRegistryOrder(t *testing.T) {
	primary := &scriptedFeed{name: "openfoodfacts_api", tier: models.TierAPI, records: priceRecords(4.99)}
	fallback := &scriptedFeed{name: "apify_grocery", tier: models.TierScrape}
	energy := &scriptedFeed{name: "energy_board_scrape", tier: models.TierScrape, records: priceRecords(1.55)}

	manager := newScriptedManager(t, chainConfig(), primary, fallback, energy)
	result, err := manager.Collect(context.Background(), "2025-08-15")

	require.NoError(t, err)
	require.Len(t, result.Observations, 2)
	assert.Equal(t, "food", result.Observations[0].Category)
	assert.Equal(t, "energy", result.Observations[1].Category)

	require.Len(t, result.Health, 3)
	assert.Equal(t, "openfoodfacts_api", result.Health[0].Source)
	assert.Equal(t, "apify_grocery", result.Health[1].Source)
	assert.Equal(t, "energy_board_scrape", result.Health[2].Source)
}

func TestCollectCancelledContext(t *testing.T) {
	primary := &scriptedFeed{name: "openfoodfacts_api", tier: models.TierAPI, records: priceRecords(4.99)}
	fallback := &scriptedFeed{name: "apify_grocery", tier: models.TierScrape}
	energy := &scriptedFeed{name: "energy_board_scrape", tier: models.TierScrape, records: priceRecords(1.55)}

	manager := newScriptedManager(t, chainConfig(), primary, fallback, energy)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := manager.Collect(ctx, "2025-08-15")

	assert.ErrorIs(t, err, context.Canceled)
}

// -----------------------------------------------------------------------------

func TestNewFeedManagerBuildsRegistryProviders(t *testing.T) {
	manager, err := NewFeedManager(chainConfig(), &stubNetwork{}, testLog())

	require.NoError(t, err)
	assert.Len(t, manager.Providers, 3)

	provider, err := manager.Provider("openfoodfacts_api")
	require.NoError(t, err)
	assert.Equal(t, models.TierAPI, provider.Tier())

	_, err = manager.Provider("unknown_source")
	var unavailable *helpers.SourceUnavailableError
	assert.ErrorAs(t, err, &unavailable)
}

func TestNewFeedManagerRejectsUnknownProviderType(t *testing.T) {
	cfg := chainConfig()
	cfg.Categories[0].Providers[0].Type = "carrier_pigeon"

	_, err := NewFeedManager(cfg, &stubNetwork{}, testLog())

	assert.Error(t, err)
}

func TestAddProviderRefusesDuplicates(t *testing.T) {
	manager, err := NewFeedManager(chainConfig(), &stubNetwork{}, testLog())
	require.NoError(t, err)

	err = manager.AddProvider(&scriptedFeed{name: "openfoodfacts_api"})
	assert.Error(t, err)

	err = manager.AddProvider(&scriptedFeed{name: "household_panel", tier: models.TierPanel})
	assert.NoError(t, err)
}

// -----------------------------------------------------------------------------

func healthBySource(entries []models.MSourceHealth) map[string]models.MSourceHealth {
	m := make(map[string]models.MSourceHealth, len(entries))
	for _, entry := range entries {
		m[entry.Source] = entry
	}
	return m
}
