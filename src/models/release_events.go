package models

import "time"

// MReleaseEvent is one scheduled official release from the calendar feed.
type MReleaseEvent struct {
	Name             string `json:"name"`
	RefPeriod        string `json:"ref_period,omitempty"` // YYYY-MM the release covers
	ReleaseAtUTC     string `json:"release_at_utc"`       // RFC3339
	CountdownSeconds int64  `json:"countdown_seconds,omitempty"`
	Status           string `json:"status,omitempty"`
}

// MReleaseEvents is the calendar artifact: the externally collected event
// list, re-written each run with the computed next release attached.
type MReleaseEvents struct {
	AsOf          string          `json:"as_of,omitempty"`
	Events        []MReleaseEvent `json:"events"`
	NextRelease   *MReleaseEvent  `json:"next_release,omitempty"`
	MethodVersion string          `json:"method_version,omitempty"`
}

// -----------------------------------------------------------------------------

// ReleaseTime parses the event's release timestamp.
func (e *MReleaseEvent) ReleaseTime() (time.Time, error) {
	return time.Parse(time.RFC3339, e.ReleaseAtUTC)
}
