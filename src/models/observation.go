package models

// Source tiers, highest authority first.
const (
	TierOfficial = "official"
	TierAPI      = "api"
	TierPanel    = "panel"
	TierScrape   = "scrape"
)

// MObservation represents one normalized price point from a feed.
type MObservation struct {
	Source     string  `json:"source_id"`
	Category   string  `json:"category"`
	ItemKey    string  `json:"item_key"`
	Value      float64 `json:"value"`
	Unit       string  `json:"unit,omitempty"`
	ObservedAt string  `json:"observed_at"` // YYYY-MM-DD
	Tier       string  `json:"tier"`
}

// -----------------------------------------------------------------------------

// DedupKey identifies an observation for duplicate screening. Later arrivals
// with the same key are dropped, never merged.
func (o MObservation) DedupKey() string {
	return o.Source + "|" + o.ItemKey + "|" + o.ObservedAt
}

// -----------------------------------------------------------------------------

// Normalizer rejection reasons.
const (
	RejectMissingField    = "missing_field"
	RejectNonNumericValue = "non_numeric_value"
	RejectUnparseableDate = "unparseable_date"
)

// MRejection records one raw feed record that could not be normalized. Kept
// for audit only; a rejection never fails a run.
type MRejection struct {
	Source   string `json:"source_id"`
	Category string `json:"category"`
	Reason   string `json:"reason"`
	Detail   string `json:"detail,omitempty"`
}
