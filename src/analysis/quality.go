package analysis

import (
	"fmt"
	"math"

	"github.com/lucasbarnes96/truenorth-index/src/models"
)

// FilterResult is the quality filter's output: surviving observations grouped
// by category plus the audit trail anomaly counting needs downstream.
type FilterResult struct {
	Accepted       map[string][]models.MObservation
	Audits         map[string]*models.MCategoryAudit
	AnomalyCount   int
	RejectedPoints int // bounds rejections across categories
	DedupedCount   int // observations surviving dedup
	Notes          []string
}

// -----------------------------------------------------------------------------

// Audit returns the bucket for a category, creating it on first use.
func (r *FilterResult) Audit(category string) *models.MCategoryAudit {
	if audit, ok := r.Audits[category]; ok {
		return audit
	}
	audit := &models.MCategoryAudit{}
	r.Audits[category] = audit
	return audit
}

// -----------------------------------------------------------------------------

// FilterObservations applies the quality pipeline in order: dedup (first
// occurrence wins), plausible-range check, then the day-over-day anomaly
// check. The anomaly check measures each value against the prior period's
// category median; a shift beyond the category's limit rejects that value,
// so a single decimal-slip scrape cannot swamp a small sample, and a
// systemic shift empties the whole category. Rejections are counted, never
// clamped or merged.
func (a *AnalysisFacade) FilterObservations(observations []models.MObservation, rc *RunContext) *FilterResult {
	result := &FilterResult{
		Accepted: make(map[string][]models.MObservation),
		Audits:   make(map[string]*models.MCategoryAudit),
	}
	for _, spec := range a.Config.Categories {
		result.Audits[spec.Name] = &models.MCategoryAudit{}
	}

	seen := make(map[string]bool, len(observations))
	survivors := make(map[string][]models.MObservation)

	for _, obs := range observations {
		audit := result.Audit(obs.Category)

		// 1. Dedup on (source, item, observed date).
		if seen[obs.DedupKey()] {
			audit.RejectedDuplicate++
			continue
		}
		seen[obs.DedupKey()] = true
		result.DedupedCount++

		// 2. Plausible range, endpoints inclusive.
		spec := a.Config.CategorySpec(obs.Category)
		if spec == nil {
			audit.RejectedBounds++
			result.RejectedPoints++
			result.Notes = append(result.Notes, fmt.Sprintf("Dropped observation for unregistered category %q from %s.", obs.Category, obs.Source))
			continue
		}
		if obs.Value <= 0 || obs.Value < spec.MinPrice || obs.Value > spec.MaxPrice {
			audit.RejectedBounds++
			result.RejectedPoints++
			continue
		}

		survivors[obs.Category] = append(survivors[obs.Category], obs)
	}

	// 3. Day-over-day anomaly check per category. Categories with no prior
	// reference skip the check.
	for category, obs := range survivors {
		audit := result.Audit(category)

		ref := rc.BaselineMedian(category)
		if ref == nil || *ref <= 0 {
			audit.Accepted = len(obs)
			result.Accepted[category] = obs
			continue
		}

		limit := a.Config.OutlierLimit(a.Config.CategorySpec(category))
		kept := make([]models.MObservation, 0, len(obs))
		for _, o := range obs {
			shiftPct := math.Abs(o.Value/(*ref)-1) * 100
			if shiftPct > limit {
				audit.RejectedOutlier++
				result.AnomalyCount++
				continue
			}
			kept = append(kept, o)
		}
		if dropped := len(obs) - len(kept); dropped > 0 {
			a.Logger.Warning("category %s: %d of %d points shifted beyond %.1f%% of the prior median, dropped as anomalies",
				category, dropped, len(obs), limit)
		}

		if len(kept) == 0 {
			continue
		}
		audit.Accepted = len(kept)
		result.Accepted[category] = kept
	}

	return result
}
