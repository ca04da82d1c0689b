package analysis

import (
	"fmt"
	"sort"

	"github.com/lucasbarnes96/truenorth-index/src/analysis/core"
	"github.com/lucasbarnes96/truenorth-index/src/models"
)

// SummarizeCategories reduces the filtered observations to one snapshot per
// registered category. The proxy is the arithmetic mean unless the category
// names a passthrough source, whose latest value is used directly. Freshness
// is decided by the provider chain: fresh only when the primary (first)
// provider contributed this run. A category with no data may carry its prior
// proxy forward for a bounded number of days, unless the gap was caused by
// the anomaly filter.
func (a *AnalysisFacade) SummarizeCategories(rc *RunContext, filtered *FilterResult) []models.MCategorySnapshot {
	categories := make([]models.MCategorySnapshot, 0, len(a.Config.Categories))

	for i := range a.Config.Categories {
		spec := &a.Config.Categories[i]
		obs := filtered.Accepted[spec.Name]
		audit := filtered.Audit(spec.Name)

		cat := models.MCategorySnapshot{
			Category:     spec.Name,
			PointCount:   len(obs),
			Freshness:    models.FreshnessMissing,
			AnomalyCount: audit.RejectedOutlier,
			Audit:        *audit,
		}

		if len(obs) > 0 {
			cat.Sources = distinctSources(obs)
			cat.ProxyValue = models.Float(a.categoryProxy(spec, obs))
			cat.MedianValue = models.Float(core.RoundHalfUp(core.Median(observationValues(obs)), 4))
			cat.Freshness = models.FreshnessStale
			if primary := spec.PrimaryProvider(); primary != nil && containsSource(cat.Sources, primary.Name) {
				cat.Freshness = models.FreshnessFresh
			}
			cat.BaselineValue = rc.Baseline(spec.Name)
		} else if prior := rc.PriorCategory(spec.Name); a.canCarryForward(rc, prior, audit) {
			// Reuse the prior published proxy as a stale placeholder. The
			// baseline is the same value, so the carried day contributes a
			// flat change rather than repeating the prior day's move.
			cat.ProxyValue = prior.ProxyValue
			cat.BaselineValue = prior.ProxyValue
			cat.MedianValue = prior.MedianValue
			cat.Freshness = models.FreshnessStale
			filtered.Notes = append(filtered.Notes, fmt.Sprintf("Category %s carried forward from %s.", spec.Name, rc.Prior.AsOfDate))
		}

		if cat.ProxyValue != nil && cat.BaselineValue != nil && *cat.BaselineValue > 0 {
			cat.ChangePct = models.Float(core.PercentChange(*cat.ProxyValue, *cat.BaselineValue))
		}

		categories = append(categories, cat)
	}

	return categories
}

// -----------------------------------------------------------------------------

// categoryProxy reduces accepted observations to a single level estimate.
func (a *AnalysisFacade) categoryProxy(spec *models.MCategorySpec, obs []models.MObservation) float64 {
	if spec.Passthrough != "" {
		if v, ok := latestFromSource(obs, spec.Passthrough); ok {
			return core.RoundHalfUp(v, 4)
		}
		a.Logger.Warning("category %s passthrough source %s reported nothing, falling back to mean", spec.Name, spec.Passthrough)
	}
	mean, _ := core.CalculateMeanStd(observationValues(obs))
	return core.RoundHalfUp(mean, 4)
}

// -----------------------------------------------------------------------------

// canCarryForward reports whether a data gap may reuse the prior proxy: the
// prior run must be recent enough and the gap must not have been created by
// the anomaly filter itself.
func (a *AnalysisFacade) canCarryForward(rc *RunContext, prior *models.MCategorySnapshot, audit *models.MCategoryAudit) bool {
	if prior == nil || prior.ProxyValue == nil {
		return false
	}
	if audit.RejectedOutlier > 0 {
		return false
	}
	days := rc.DaysSincePrior()
	return days >= 0 && days <= a.Config.Run.CarryForwardDays
}

// -----------------------------------------------------------------------------

func observationValues(obs []models.MObservation) []float64 {
	values := make([]float64, len(obs))
	for i, o := range obs {
		values[i] = o.Value
	}
	return values
}

func distinctSources(obs []models.MObservation) []string {
	seen := make(map[string]bool, len(obs))
	sources := make([]string, 0, len(obs))
	for _, o := range obs {
		if !seen[o.Source] {
			seen[o.Source] = true
			sources = append(sources, o.Source)
		}
	}
	sort.Strings(sources)
	return sources
}

func containsSource(sources []string, name string) bool {
	for _, s := range sources {
		if s == name {
			return true
		}
	}
	return false
}

// latestFromSource returns the most recently observed value from one source.
func latestFromSource(obs []models.MObservation, source string) (float64, bool) {
	var (
		value float64
		date  string
		found bool
	)
	for _, o := range obs {
		if o.Source != source {
			continue
		}
		if !found || o.ObservedAt > date {
			value = o.Value
			date = o.ObservedAt
			found = true
		}
	}
	return value, found
}
