package models

// Source health statuses.
const (
	SourceOK     = "ok"     // most recent success within SLA
	SourceStale  = "stale"  // a prior success exists but exceeds SLA
	SourceFailed = "failed" // no success on record
)

// MSourceHealth describes one configured source's freshness. Produced by the
// feed layer, consumed read-only by the gate.
type MSourceHealth struct {
	Source      string `json:"source_id"`
	LastSuccess string `json:"last_success_at,omitempty"` // YYYY-MM-DD
	AgeDays     int    `json:"age_days"`                  // -1 when no success known
	Status      string `json:"status"`
	Detail      string `json:"detail,omitempty"`
}
