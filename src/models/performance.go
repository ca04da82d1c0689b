package models

// MPerformanceSummary aggregates the published history into the standing
// evaluation metrics. Seeded rows are counted separately and excluded from
// every statistic.
type MPerformanceSummary struct {
	GeneratedAt     string   `json:"generated_at"` // RFC3339
	PublishedDays   int      `json:"published_days"`
	SeededDays      int      `json:"seeded_days"`
	FirstDate       string   `json:"first_date,omitempty"`
	LastDate        string   `json:"last_date,omitempty"`
	MeanHeadlinePct *float64 `json:"mean_headline_pct,omitempty"`
	MeanAbsMovePct  *float64 `json:"mean_abs_day_move_pct,omitempty"` // mean |headline - prior headline|
	MeanScore       *float64 `json:"mean_score,omitempty"`
}

// -----------------------------------------------------------------------------

// MModelCard is the public methodology card, refreshed every run.
type MModelCard struct {
	AsOfDate      string               `json:"as_of_date"`
	MethodLabel   string               `json:"method_label"`
	MethodVersion string               `json:"method_version"`
	NorthStar     string               `json:"north_star"`
	Performance   *MPerformanceSummary `json:"performance,omitempty"`
	Notes         []string             `json:"notes"`
}
