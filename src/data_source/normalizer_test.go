package datasource

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucasbarnes96/truenorth-index/src/models"
)

func groceryProviderSpec() *models.MProviderSpec {
	return &models.MProviderSpec{
		Name: "openfoodfacts_api",
		Type: ProviderJSONFeed,
		Tier: models.TierAPI,
		Schema: models.MSchemaHints{
			ItemKeys:  []string{"product_name", "name", "title"},
			ValueKeys: []string{"price", "value", "amount"},
			DateKeys:  []string{"date", "observed_at"},
			UnitKeys:  []string{"unit"},
		},
	}
}

// -----------------------------------------------------------------------------

func TestNormalizeResolvesSynonymsInPriorityOrder(t *testing.T) {
	records := []map[string]interface{}{
		{"product_name": "Milk 2L", "price": 4.99, "date": "2025-08-15", "unit": "L"},
		{"name": "Bread", "value": "3.49"},
		{"title": "Eggs Dozen", "amount": "$5.25", "observed_at": "2025-08-14T09:30:00Z"},
	}

	observations, rejections := Normalize(groceryProviderSpec(), "food", "2025-08-15", records)

	require.Empty(t, rejections)
	require.Len(t, observations, 3)

	assert.Equal(t, "milk 2l", observations[0].ItemKey)
	assert.InDelta(t, 4.99, observations[0].Value, 1e-9)
	assert.Equal(t, "2025-08-15", observations[0].ObservedAt)
	assert.Equal(t, "L", observations[0].Unit)
	assert.Equal(t, "openfoodfacts_api", observations[0].Source)
	assert.Equal(t, models.TierAPI, observations[0].Tier)
	assert.Equal(t, "food", observations[0].Category)

	assert.Equal(t, "bread", observations[1].ItemKey)
	assert.InDelta(t, 3.49, observations[1].Value, 1e-9, "numeric strings parse")
	assert.Equal(t, "2025-08-15", observations[1].ObservedAt, "missing date stamps the run date")

	assert.InDelta(t, 5.25, observations[2].Value, 1e-9, "currency prefix is stripped")
	assert.Equal(t, "2025-08-14", observations[2].ObservedAt, "RFC3339 reduces to the calendar date")
}

func TestNormalizeAcceptsReferenceMonths(t *testing.T) {
	records := []map[string]interface{}{
		{"product_name": "Rented accommodation", "price": "168.3", "date": "2025-07"},
	}

	observations, rejections := Normalize(groceryProviderSpec(), "housing", "2025-08-15", records)

	require.Empty(t, rejections)
	require.Len(t, observations, 1)
	assert.Equal(t, "2025-07-01", observations[0].ObservedAt, "reference months map to their first day")
}

func TestNormalizePrefersEarlierSynonym(t *testing.T) {
	records := []map[string]interface{}{
		{"product_name": "Milk", "name": "ignored alias", "price": 4.0},
	}

	observations, _ := Normalize(groceryProviderSpec(), "food", "2025-08-15", records)

	require.Len(t, observations, 1)
	assert.Equal(t, "milk", observations[0].ItemKey)
}

func TestNormalizeParsesThousandsSeparators(t *testing.T) {
	records := []map[string]interface{}{
		{"product_name": "Monthly Rent", "price": "1,299"},
		{"product_name": "Deposit", "price": "$2,150.50"},
	}

	observations, rejections := Normalize(groceryProviderSpec(), "housing", "2025-08-15", records)

	require.Empty(t, rejections)
	require.Len(t, observations, 2)
	assert.InDelta(t, 1299.0, observations[0].Value, 1e-9)
	assert.InDelta(t, 2150.50, observations[1].Value, 1e-9)
}

// -----------------------------------------------------------------------------

func TestNormalizeRejectionReasons(t *testing.T) {
	tests := []struct {
		name   string
		record map[string]interface{}
		reason string
	}{
		{"no item key", map[string]interface{}{"price": 4.99}, models.RejectMissingField},
		{"blank item key", map[string]interface{}{"product_name": "   ", "price": 4.99}, models.RejectMissingField},
		{"no value key", map[string]interface{}{"product_name": "Milk"}, models.RejectMissingField},
		{"null value", map[string]interface{}{"product_name": "Milk", "price": nil}, models.RejectMissingField},
		{"non-numeric value", map[string]interface{}{"product_name": "Milk", "price": "ask in store"}, models.RejectNonNumericValue},
		{"boolean value", map[string]interface{}{"product_name": "Milk", "price": true}, models.RejectNonNumericValue},
		{"unparseable date", map[string]interface{}{"product_name": "Milk", "price": 4.99, "date": "last tuesday"}, models.RejectUnparseableDate},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			observations, rejections := Normalize(groceryProviderSpec(), "food", "2025-08-15", []map[string]interface{}{tc.record})

			assert.Empty(t, observations)
			require.Len(t, rejections, 1)
			assert.Equal(t, tc.reason, rejections[0].Reason)
			assert.Equal(t, "openfoodfacts_api", rejections[0].Source)
			assert.Equal(t, "food", rejections[0].Category)
		})
	}
}

func TestNormalizeRejectionsNeverAbortTheBatch(t *testing.T) {
	records := []map[string]interface{}{
		{"product_name": "Milk", "price": "free"},
		{"product_name": "Bread", "price": 3.49},
		{"price": 1.0},
	}

	observations, rejections := Normalize(groceryProviderSpec(), "food", "2025-08-15", records)

	require.Len(t, observations, 1)
	assert.Equal(t, "bread", observations[0].ItemKey)
	assert.Len(t, rejections, 2)
}

// -----------------------------------------------------------------------------

func TestNormalizeTruncatesRunawayItemKeys(t *testing.T) {
	records := []map[string]interface{}{
		{"product_name": strings.Repeat("organic ", 40), "price": 9.99},
	}

	observations, _ := Normalize(groceryProviderSpec(), "food", "2025-08-15", records)

	require.Len(t, observations, 1)
	assert.Len(t, observations[0].ItemKey, maxItemKeyLen)
}

func TestNormalizeRejectsNonFiniteValues(t *testing.T) {
	records := []map[string]interface{}{
		{"product_name": "Milk", "price": "NaN"},
		{"product_name": "Bread", "price": "+Inf"},
	}

	observations, rejections := Normalize(groceryProviderSpec(), "food", "2025-08-15", records)

	assert.Empty(t, observations)
	require.Len(t, rejections, 2)
	for _, rejection := range rejections {
		assert.Equal(t, models.RejectNonNumericValue, rejection.Reason)
	}
}
