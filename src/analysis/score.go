package analysis

import (
	"math"

	"github.com/lucasbarnes96/truenorth-index/src/models"
)

// -----------------------------------------------------------------------------

// SignalQualityScore blends coverage and data quality into a 0-100 score.
// It rises with coverage and falls with anomalies, missing categories and
// single-source categories; 100 requires full coverage and a clean run.
func SignalQualityScore(coverage float64, anomalies int, categories []models.MCategorySnapshot) int {
	score := int(math.Floor(coverage*100 + 1e-9))

	if anomalies > 0 {
		penalty := anomalies
		if penalty > 20 {
			penalty = 20
		}
		score -= penalty
	}

	missing := false
	weak := 0
	for i := range categories {
		switch categories[i].Freshness {
		case models.FreshnessMissing:
			missing = true
		case models.FreshnessFresh, models.FreshnessStale:
			if len(categories[i].Sources) < 2 {
				weak++
			}
		}
	}
	if missing {
		score -= 10
	}
	if weak > 0 {
		penalty := weak * 4
		if penalty > 20 {
			penalty = 20
		}
		score -= penalty
	}

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// -----------------------------------------------------------------------------

// ConfidenceGrade maps coverage, anomalies and source-tier diversity to a
// grade. The thresholds are evaluated top-down; an anomaly or a single-tier
// run knocks the grade down one level.
func ConfidenceGrade(coverage float64, anomalies, diversity int) string {
	penalty := anomalies > 0 || diversity < 2

	switch {
	case coverage >= 0.90:
		if penalty {
			return models.ConfidenceMedium
		}
		return models.ConfidenceHigh
	case coverage >= 0.60:
		if penalty {
			return models.ConfidenceLow
		}
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

// -----------------------------------------------------------------------------

// SourceDiversity counts the distinct source tiers behind fresh categories.
func SourceDiversity(categories []models.MCategorySnapshot, accepted map[string][]models.MObservation) int {
	tiers := make(map[string]bool)
	for i := range categories {
		if categories[i].Freshness != models.FreshnessFresh {
			continue
		}
		for _, obs := range accepted[categories[i].Category] {
			if obs.Tier != "" {
				tiers[obs.Tier] = true
			}
		}
	}
	return len(tiers)
}

// -----------------------------------------------------------------------------

// LeadSignal compares the current headline against the prior published one.
// Two live published runs must exist before a direction is called.
func LeadSignal(current float64, rc *RunContext, epsilon float64) string {
	if rc.PublishedRuns < 2 || rc.Prior == nil {
		return models.SignalInsufficient
	}

	delta := current - rc.Prior.HeadlineChangePct
	switch {
	case math.Abs(delta) <= epsilon:
		return models.SignalFlat
	case delta > 0:
		return models.SignalUp
	default:
		return models.SignalDown
	}
}
