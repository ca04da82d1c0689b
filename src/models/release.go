package models

import (
	"sort"
	"time"
)

// MReleaseRun is one row of the release_runs log.
type MReleaseRun struct {
	RunID          string    `json:"run_id"`
	AsOfDate       string    `json:"as_of_date"`
	Published      bool      `json:"published"`
	HeadlinePct    float64   `json:"headline_pct"`
	Confidence     string    `json:"confidence"`
	Score          int       `json:"score"`
	GateConditions string    `json:"gate_conditions"` // JSON-encoded condition list
	SnapshotPath   string    `json:"snapshot_path"`
	CreatedAt      time.Time `json:"created_at"`
}

// -----------------------------------------------------------------------------

// MHistoricalEntry is one day of historical.json, keyed by as-of date. Real
// published runs carry their category snapshots so the next run can read
// baselines; seeded rows carry only a headline bootstrapped from the official
// monthly series and never count as live history.
type MHistoricalEntry struct {
	RunID              string              `json:"run_id,omitempty"`
	AsOfDate           string              `json:"as_of_date"`
	HeadlinePct        float64             `json:"headline_pct"`
	ProjectedAnnualPct float64             `json:"projected_annual_pct,omitempty"`
	Confidence         string              `json:"confidence,omitempty"`
	Score              int                 `json:"score,omitempty"`
	LeadSignal         string              `json:"lead_signal,omitempty"`
	Categories         []MCategorySnapshot `json:"categories,omitempty"`
	Seeded             bool                `json:"seeded,omitempty"`
	SeedSource         string              `json:"seed_source,omitempty"`
	GeneratedAt        string              `json:"generated_at,omitempty"`
}

// MHistory is the append-only published series, date string to entry.
type MHistory map[string]MHistoricalEntry

// -----------------------------------------------------------------------------

// LiveEntries returns the non-seeded entries in ascending date order.
func (h MHistory) LiveEntries() []MHistoricalEntry {
	dates := make([]string, 0, len(h))
	for d, entry := range h {
		if entry.Seeded {
			continue
		}
		dates = append(dates, d)
	}
	sort.Strings(dates)

	entries := make([]MHistoricalEntry, 0, len(dates))
	for _, d := range dates {
		entries = append(entries, h[d])
	}
	return entries
}

// -----------------------------------------------------------------------------

// MRunMetrics represents timing and volume diagnostics for one run.
type MRunMetrics struct {
	CollectSeconds float64 `json:"collect_seconds"`
	FilterSeconds  float64 `json:"filter_seconds"`
	RawCount       int     `json:"raw_count"`
	DedupedCount   int     `json:"deduped_count"`
	AcceptedCount  int     `json:"accepted_count"`
}

// MRunRecord is the immutable per-run artifact written to runs/<run_id>.json.
type MRunRecord struct {
	Snapshot MNowcastSnapshot `json:"snapshot"`
	Metrics  MRunMetrics      `json:"metrics"`
}
