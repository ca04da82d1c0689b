package analysis

import (
	"time"

	"github.com/lucasbarnes96/truenorth-index/src/models"
)

// RunContext carries everything a build needs from outside the current run:
// the most recent published snapshot (sole baseline reference), the size of
// the live published history, the official benchmark series and the external
// consensus payload when one was collected.
type RunContext struct {
	RunID         string
	AsOfDate      string // YYYY-MM-DD
	GeneratedAt   time.Time
	Prior         *models.MNowcastSnapshot
	PublishedRuns int // live (non-seeded) published days preceding this run
	Benchmark     *models.MBenchmarkSummary
	IndexSeries   []models.MIndexPoint
	Consensus     *models.MConsensusFeed
}

// -----------------------------------------------------------------------------

// PriorCategory returns the baseline snapshot's entry for a category, or nil
// when no published history exists yet.
func (rc *RunContext) PriorCategory(name string) *models.MCategorySnapshot {
	if rc.Prior == nil {
		return nil
	}
	return rc.Prior.Category(name)
}

// -----------------------------------------------------------------------------

// Baseline returns the prior published proxy for a category. It is the only
// preceding-period reference: never same-run data, never an average of
// history.
func (rc *RunContext) Baseline(name string) *float64 {
	prior := rc.PriorCategory(name)
	if prior == nil {
		return nil
	}
	return prior.ProxyValue
}

// -----------------------------------------------------------------------------

// BaselineMedian returns the prior day median for a category, used by the
// outlier filter. Falls back to the prior proxy when no median was recorded.
func (rc *RunContext) BaselineMedian(name string) *float64 {
	prior := rc.PriorCategory(name)
	if prior == nil {
		return nil
	}
	if prior.MedianValue != nil {
		return prior.MedianValue
	}
	return prior.ProxyValue
}

// -----------------------------------------------------------------------------

// DaysSincePrior returns the whole days between the prior published run and
// this one, or -1 when there is no prior or a date fails to parse.
func (rc *RunContext) DaysSincePrior() int {
	if rc.Prior == nil {
		return -1
	}
	prev, err := time.Parse("2006-01-02", rc.Prior.AsOfDate)
	if err != nil {
		return -1
	}
	current, err := time.Parse("2006-01-02", rc.AsOfDate)
	if err != nil {
		return -1
	}
	days := int(current.Sub(prev).Hours() / 24)
	if days < 0 {
		return -1
	}
	return days
}
