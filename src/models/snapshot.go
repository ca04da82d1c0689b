package models

// Confidence levels assigned to a nowcast.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// Lead signal values relative to the prior published headline.
const (
	SignalUp           = "up"
	SignalDown         = "down"
	SignalFlat         = "flat"
	SignalInsufficient = "insufficient_data"
)

// Category freshness classifications.
const (
	FreshnessFresh   = "fresh"   // the category's primary source contributed this run
	FreshnessStale   = "stale"   // only a lower-tier source or a carried-forward value
	FreshnessMissing = "missing" // no usable data
)

// -----------------------------------------------------------------------------
// Category-level results
// -----------------------------------------------------------------------------

// MCategoryAudit counts what the quality filter did with a category's input.
type MCategoryAudit struct {
	Accepted          int `json:"accepted"`
	RejectedBounds    int `json:"rejected_bounds"`
	RejectedDuplicate int `json:"rejected_duplicate"`
	RejectedOutlier   int `json:"rejected_outlier"`
}

// MCategorySnapshot represents one category's daily proxy. ProxyValue and
// ChangePct are absent when freshness is missing; MedianValue is the day
// median of accepted observations, kept as the next run's outlier reference.
type MCategorySnapshot struct {
	Category      string         `json:"category"`
	ProxyValue    *float64       `json:"proxy_value,omitempty"`
	BaselineValue *float64       `json:"baseline_value,omitempty"`
	MedianValue   *float64       `json:"median_value,omitempty"`
	ChangePct     *float64       `json:"change_pct,omitempty"`
	PointCount    int            `json:"point_count"`
	Freshness     string         `json:"freshness"`
	AnomalyCount  int            `json:"anomaly_count"`
	Sources       []string       `json:"sources,omitempty"`
	Audit         MCategoryAudit `json:"audit"`
}

// -----------------------------------------------------------------------------
// Headline snapshot
// -----------------------------------------------------------------------------

// MMethod labels the methodology a snapshot was produced with.
type MMethod struct {
	Label   string `json:"label"`
	Version string `json:"version"`
}

// MIndexPoint is one month of the official benchmark index series.
type MIndexPoint struct {
	RefPeriod string  `json:"ref_period"` // YYYY-MM
	Index     float64 `json:"index"`
}

// MBenchmarkSummary carries official CPI context. It is reporting-only and
// never feeds proxies or the headline.
type MBenchmarkSummary struct {
	SeriesID        string   `json:"series_id"`
	LatestRefPeriod string   `json:"latest_ref_period"` // YYYY-MM
	LatestIndex     float64  `json:"latest_index"`
	MoMPct          *float64 `json:"mom_pct"`
	YoYPct          *float64 `json:"yoy_pct"`
}

// MProjectionDiag explains how (or why not) the annual projection was
// derived from the benchmark index series.
type MProjectionDiag struct {
	BaseMonth      string   `json:"base_month,omitempty"`
	ReferenceMonth string   `json:"reference_month,omitempty"`
	BaseIndex      *float64 `json:"base_index,omitempty"`
	ReferenceIndex *float64 `json:"reference_index,omitempty"`
	ProjectedIndex *float64 `json:"projected_index,omitempty"`
	ProrateFactor  *float64 `json:"prorate_factor,omitempty"`
	Reason         string   `json:"reason,omitempty"`
}

// MTopDriver names the category with the largest absolute weighted
// contribution to the headline.
type MTopDriver struct {
	Category        string  `json:"category"`
	ContributionPct float64 `json:"contribution_pct"`
}

// MNowcastSnapshot is the full output of one nowcast run. Created once per
// run and immutable after the gate result is attached.
type MNowcastSnapshot struct {
	RunID              string              `json:"run_id"`
	AsOfDate           string              `json:"as_of_date"` // YYYY-MM-DD
	HeadlineChangePct  float64             `json:"headline_change_pct"`
	ProjectedAnnualPct float64             `json:"projected_annual_pct"`
	CoverageRatio      float64             `json:"coverage_ratio"`
	Representativeness float64             `json:"representativeness"`
	Confidence         string              `json:"confidence"`
	SignalQualityScore int                 `json:"signal_quality_score"`
	LeadSignal         string              `json:"lead_signal"`
	AnomalyCount       int                 `json:"anomaly_count"`
	SourceDiversity    int                 `json:"source_diversity"`
	Categories         []MCategorySnapshot `json:"categories"`
	SourceHealth       []MSourceHealth     `json:"source_health"`
	GateResult         *MGateResult        `json:"gate_result,omitempty"`
	Benchmark          *MBenchmarkSummary  `json:"benchmark,omitempty"`
	Projection         *MProjectionDiag    `json:"projection,omitempty"`
	Contributions      map[string]float64  `json:"contributions,omitempty"`
	TopDriver          *MTopDriver         `json:"top_driver,omitempty"`
	Consensus          *MConsensusSummary  `json:"consensus,omitempty"`
	Method             MMethod             `json:"method"`
	Notes              []string            `json:"notes,omitempty"`
	GeneratedAt        string              `json:"generated_at"` // RFC3339
}

// -----------------------------------------------------------------------------

// Category returns the snapshot for the named category, or nil.
func (s *MNowcastSnapshot) Category(name string) *MCategorySnapshot {
	for i := range s.Categories {
		if s.Categories[i].Category == name {
			return &s.Categories[i]
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

// Float returns a pointer to v. Convenience for the optional snapshot fields.
func Float(v float64) *float64 {
	return &v
}
