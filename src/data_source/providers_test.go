package datasource

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucasbarnes96/truenorth-index/src/logger"
	"github.com/lucasbarnes96/truenorth-index/src/models"
)

// stubNetwork serves canned payloads per URL.
type stubNetwork struct {
	payloads map[string][]byte
	requests []string
}

func (n *stubNetwork) Get(url string, params map[string]string) ([]byte, error) {
	n.requests = append(n.requests, url)
	if body, ok := n.payloads[url]; ok {
		return body, nil
	}
	return nil, fmt.Errorf("no payload for %s", url)
}

func testLog() *logger.Logger {
	return logger.NewLogger("ERROR", "", "datasource-test")
}

// -----------------------------------------------------------------------------

func TestJSONFeedDecodesArrayPayload(t *testing.T) {
	network := &stubNetwork{payloads: map[string][]byte{
		"https://feed.example/prices": []byte(`[{"name":"milk","price":4.99},{"name":"bread","price":3.49}]`),
	}}
	feed := &JSONFeed{
		Spec:    models.MProviderSpec{Name: "openfoodfacts_api", Tier: models.TierAPI, URL: "https://feed.example/prices"},
		Network: network,
		Logger:  testLog(),
	}

	records, err := feed.Fetch(context.Background())

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "milk", records[0]["name"])
}

func TestJSONFeedDecodesEnvelopePayload(t *testing.T) {
	network := &stubNetwork{payloads: map[string][]byte{
		"https://feed.example/prices": []byte(`{"total":2,"items":[{"name":"milk","price":4.99},{"name":"bread","price":3.49}]}`),
	}}
	feed := &JSONFeed{
		Spec:    models.MProviderSpec{Name: "openfoodfacts_api", Tier: models.TierAPI, URL: "https://feed.example/prices"},
		Network: network,
		Logger:  testLog(),
	}

	records, err := feed.Fetch(context.Background())

	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestJSONFeedRejectsMalformedPayload(t *testing.T) {
	network := &stubNetwork{payloads: map[string][]byte{
		"https://feed.example/prices": []byte(`<html>blocked</html>`),
	}}
	feed := &JSONFeed{
		Spec:    models.MProviderSpec{Name: "openfoodfacts_api", URL: "https://feed.example/prices"},
		Network: network,
		Logger:  testLog(),
	}

	_, err := feed.Fetch(context.Background())

	assert.Error(t, err)
}

func TestJSONFeedHonorsCancelledContext(t *testing.T) {
	network := &stubNetwork{payloads: map[string][]byte{}}
	feed := &JSONFeed{
		Spec:    models.MProviderSpec{Name: "openfoodfacts_api", URL: "https://feed.example/prices"},
		Network: network,
		Logger:  testLog(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := feed.Fetch(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, network.requests, "no request leaves after cancellation")
}

// -----------------------------------------------------------------------------

func TestCSVFeedMapsHeaderColumns(t *testing.T) {
	csvBody := "\uFEFFREF_DATE,GEO,VALUE\n2025-06,Canada,161.8\n2025-07,Canada,162.1\n"
	network := &stubNetwork{payloads: map[string][]byte{
		"https://tables.example/cpi.csv": []byte(csvBody),
	}}
	feed := &CSVFeed{
		Spec:    models.MProviderSpec{Name: "statcan_cpi", Tier: models.TierOfficial, URL: "https://tables.example/cpi.csv"},
		Network: network,
		Logger:  testLog(),
	}

	records, err := feed.Fetch(context.Background())

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "2025-06", records[0]["REF_DATE"], "BOM on the first header is stripped")
	assert.Equal(t, "161.8", records[0]["VALUE"])
}

func TestCSVFeedToleratesRaggedRows(t *testing.T) {
	csvBody := "name,price,unit\nmilk,4.99\nbread,3.49,loaf\n"
	network := &stubNetwork{payloads: map[string][]byte{
		"https://tables.example/prices.csv": []byte(csvBody),
	}}
	feed := &CSVFeed{
		Spec:    models.MProviderSpec{Name: "statcan_gas", URL: "https://tables.example/prices.csv"},
		Network: network,
		Logger:  testLog(),
	}

	records, err := feed.Fetch(context.Background())

	require.NoError(t, err)
	require.Len(t, records, 2)
	_, hasUnit := records[0]["unit"]
	assert.False(t, hasUnit, "short rows simply omit trailing columns")
	assert.Equal(t, "loaf", records[1]["unit"])
}

func TestCSVFeedRequiresDataRows(t *testing.T) {
	network := &stubNetwork{payloads: map[string][]byte{
		"https://tables.example/empty.csv": []byte("name,price\n"),
	}}
	feed := &CSVFeed{
		Spec:    models.MProviderSpec{Name: "statcan_gas", URL: "https://tables.example/empty.csv"},
		Network: network,
		Logger:  testLog(),
	}

	_, err := feed.Fetch(context.Background())

	assert.Error(t, err)
}

// -----------------------------------------------------------------------------

func TestFileFeedReadsLocalFixture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "panel.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"item":"basket","value":100.5}]`), 0o644))

	feed := &FileFeed{
		Spec:   models.MProviderSpec{Name: "household_panel", Tier: models.TierPanel, Path: path},
		Logger: testLog(),
	}

	records, err := feed.Fetch(context.Background())

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "basket", records[0]["item"])
}

func TestFileFeedMissingFileErrors(t *testing.T) {
	feed := &FileFeed{
		Spec:   models.MProviderSpec{Name: "household_panel", Path: filepath.Join(t.TempDir(), "absent.json")},
		Logger: testLog(),
	}

	_, err := feed.Fetch(context.Background())

	assert.Error(t, err)
}

// -----------------------------------------------------------------------------

func TestBuildProviderKnowsEveryRegistryType(t *testing.T) {
	network := &stubNetwork{}

	for _, providerType := range []string{ProviderJSONFeed, ProviderCSVFeed, ProviderFileFeed} {
		provider, err := BuildProvider(models.MProviderSpec{Name: "p", Type: providerType, Tier: models.TierAPI}, network, testLog())
		require.NoError(t, err)
		assert.Equal(t, "p", provider.Name())
		assert.Equal(t, models.TierAPI, provider.Tier())
	}

	_, err := BuildProvider(models.MProviderSpec{Name: "p", Type: "carrier_pigeon"}, network, testLog())
	assert.Error(t, err)
}
