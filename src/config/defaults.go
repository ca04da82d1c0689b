package config

import "github.com/lucasbarnes96/truenorth-index/src/models"

// -----------------------------------------------------------------------------

// DefaultCategories returns the standing category registry: CPI-style basket
// weights, plausible price ranges, day-over-day outlier limits and minimum
// sample sizes. Weights sum to 1.000. Only the high-weight categories carry a
// point floor; the gate lets the rest degrade into coverage instead of
// blocking a release.
func DefaultCategories() []models.MCategorySpec {
	return []models.MCategorySpec{
		{Name: "food", Weight: 0.165, MinPrice: 0.1, MaxPrice: 500, OutlierPct: 60, MinPoints: 5},
		{Name: "housing", Weight: 0.300, MinPrice: 1, MaxPrice: 400, OutlierPct: 30, MinPoints: 2},
		{Name: "transport", Weight: 0.150, MinPrice: 50, MaxPrice: 300, OutlierPct: 40, MinPoints: 1},
		{Name: "energy", Weight: 0.080, MinPrice: 0.1, MaxPrice: 100, OutlierPct: 50},
		{Name: "communication", Weight: 0.045, MinPrice: 1, MaxPrice: 400, OutlierPct: 30},
		{Name: "health_personal", Weight: 0.050, MinPrice: 1, MaxPrice: 400, OutlierPct: 25},
		{Name: "recreation_education", Weight: 0.095, MinPrice: 1, MaxPrice: 400, OutlierPct: 30},
		{Name: "household_operations", Weight: 0.115, MinPrice: 1, MaxPrice: 400, OutlierPct: 30},
	}
}

// -----------------------------------------------------------------------------

// DefaultSLADays returns the per-source freshness SLAs in days.
func DefaultSLADays() map[string]int {
	return map[string]int{
		"apify_grocery":       14,
		"openfoodfacts_api":   2,
		"energy_board_scrape": 2,
		"statcan_energy":      45,
		"statcan_food":        45,
		"statcan_gas":         45,
		"statcan_housing":     45,
		"statcan_transport":   45,
		"ised_telecom":        60,
		"crtc_telecom":        400,
		"healthcanada":        90,
		"pmprb":               400,
		"parkscanada":         180,
		"statcan_education":   180,
		"statcan_cpi":         45,
		"household_panel":     30,
	}
}
