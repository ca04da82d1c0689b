package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/lucasbarnes96/truenorth-index/src/models"
	"github.com/lucasbarnes96/truenorth-index/src/utils"
)

type record = map[string]interface{}

// -----------------------------------------------------------------------------

func writeJSONFile(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// -----------------------------------------------------------------------------
// Day 1: every feed fresh, first publish.
// -----------------------------------------------------------------------------

// stageDayOne seeds all feeds with clean prices. Food proxy is the mean of
// four panel items (4.725, median 4.80); those become day two's baseline and
// outlier reference.
func (ws *workspace) stageDayOne() error {
	day := ws.Days[0]
	fixtures := map[string][]record{
		"grocery_panel.json": {
			{"product": "milk 2l", "price": 4.60, "date": day},
			{"product": "bread white", "price": 3.50, "date": day},
			{"product": "eggs dozen", "price": 5.00, "date": day},
			{"product": "butter 454g", "price": 5.80, "date": day},
		},
		"food_basket.json": {
			{"product": "milk 2l", "price": 4.58, "date": day},
			{"product": "bread white", "price": 3.52, "date": day},
			{"product": "eggs dozen", "price": 4.98, "date": day},
		},
		"pump_prices.json": {
			{"product": "regular unleaded", "price": 161.9, "date": day},
			{"product": "diesel", "price": 158.4, "date": day},
		},
		"energy_board.json": {
			{"product": "regular unleaded", "price": 160.2, "date": day},
			{"product": "diesel", "price": 157.1, "date": day},
		},
		"rent_listings.json": {
			{"unit_type": "one_bedroom", "monthly_rent": 2100},
			{"unit_type": "two_bedroom", "monthly_rent": 2350},
			{"unit_type": "studio", "monthly_rent": 1895},
		},
	}

	for name, records := range fixtures {
		if err := writeJSONFile(ws.fixturePath(name), records); err != nil {
			return err
		}
	}
	// 156.0 over 155.0: the official MoM is 0.645, which day one's headline
	// falls back to before any category baseline exists.
	return writeJSONFile(ws.fixturePath("benchmark.json"), ws.benchmarkRows(156.0))
}

// -----------------------------------------------------------------------------
// Day 2: panel feed down, fallback chain carries food, one decimal slip.
// -----------------------------------------------------------------------------

// stageDayTwo breaks the food primary (invalid payload), moves food to the
// basket feed with one decimal-slip record (47.50 against a prior median of
// 4.80), nudges energy and shelter upward, and drops a consensus feed into
// the data directory.
func (ws *workspace) stageDayTwo() error {
	day := ws.Days[1]

	if err := os.WriteFile(ws.fixturePath("grocery_panel.json"), []byte("upstream export failed"), 0o644); err != nil {
		return err
	}

	fixtures := map[string][]record{
		"food_basket.json": {
			{"product": "milk 2l", "price": 4.78, "date": day},
			{"product": "bread white", "price": 4.62, "date": day},
			{"product": "eggs dozen", "price": 4.95, "date": day},
			{"product": "butter 454g", "price": 47.50, "date": day},
		},
		"pump_prices.json": {
			{"product": "regular unleaded", "price": 164.9, "date": day},
			{"product": "diesel", "price": 161.7, "date": day},
		},
		"rent_listings.json": {
			{"unit_type": "one_bedroom", "monthly_rent": 2110},
			{"unit_type": "two_bedroom", "monthly_rent": 2360},
			{"unit_type": "studio", "monthly_rent": 1900},
		},
	}
	for name, records := range fixtures {
		if err := writeJSONFile(ws.fixturePath(name), records); err != nil {
			return err
		}
	}

	consensus := models.MConsensusFeed{
		AsOf:        day + "T12:00:00Z",
		Confidence:  models.ConfidenceHigh,
		SourceCount: 3,
		Sources: []models.MConsensusCandidate{
			{Source: "bank_forecast_page", AnnualCandidate: models.Float(1.9), FieldConfidence: models.ConfidenceHigh},
			{Source: "economics_desk_api", AnnualCandidate: models.Float(2.1), FieldConfidence: models.ConfidenceMedium},
			{Source: "newswire_scrape", AnnualCandidate: models.Float(2.0), FieldConfidence: models.ConfidenceLow},
		},
	}
	return writeJSONFile(filepath.Join(ws.DataDir, utils.ConsensusFeedFile), &consensus)
}

// -----------------------------------------------------------------------------
// Day 3: panel back but thin, benchmark table empty. The gate must block.
// -----------------------------------------------------------------------------

// stageDayThree restores the food primary with a single record, below the
// category's three-point floor, and empties the benchmark table so the
// official metadata check fails alongside it.
func (ws *workspace) stageDayThree() error {
	day := ws.Days[2]

	fixtures := map[string][]record{
		"grocery_panel.json": {
			{"product": "milk 2l", "price": 4.80, "date": day},
		},
		"pump_prices.json": {
			{"product": "regular unleaded", "price": 165.4, "date": day},
			{"product": "diesel", "price": 162.0, "date": day},
		},
		"rent_listings.json": {
			{"unit_type": "one_bedroom", "monthly_rent": 2112},
			{"unit_type": "two_bedroom", "monthly_rent": 2355},
			{"unit_type": "studio", "monthly_rent": 1905},
		},
	}
	for name, records := range fixtures {
		if err := writeJSONFile(ws.fixturePath(name), records); err != nil {
			return err
		}
	}
	return writeJSONFile(ws.fixturePath("benchmark.json"), []record{})
}

// -----------------------------------------------------------------------------

// benchmarkRows builds a three-month official index table. The Ontario row
// must be filtered out by the geography check.
func (ws *workspace) benchmarkRows(latest float64) []record {
	row := func(month string, value float64, geo string) record {
		return record{"REF_DATE": month, "VALUE": value, "GEO": geo, "Products and product groups": "All-items"}
	}
	return []record{
		row(ws.Months[0], 154.0, "Canada"),
		row(ws.Months[1], 155.0, "Canada"),
		row(ws.Months[2], latest, "Canada"),
		row(ws.Months[2], 149.8, "Ontario"),
	}
}
