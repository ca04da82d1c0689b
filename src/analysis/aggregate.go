package analysis

import (
	"math"

	"github.com/lucasbarnes96/truenorth-index/src/analysis/core"
	"github.com/lucasbarnes96/truenorth-index/src/models"
)

// Aggregate is the basket-level reduction of one run's category snapshots.
type Aggregate struct {
	HeadlinePct        float64
	HasHeadline        bool // false when no category contributed and no fallback was available
	FallbackUsed       bool // headline taken from the official MoM because no category had a usable change
	CoverageRatio      float64
	Representativeness float64
	Contributions      map[string]float64
	TopDriver          *models.MTopDriver
}

// -----------------------------------------------------------------------------

// ComputeNowcast blends per-category changes into the headline. Weights are
// renormalized over the categories that actually contributed a change, so a
// missing category widens the remaining weights instead of dragging the
// headline toward zero. Coverage is the weight share with any usable data;
// representativeness counts fresh weight only. Zero-weight categories are
// excluded from every term.
func (a *AnalysisFacade) ComputeNowcast(rc *RunContext, categories []models.MCategorySnapshot) *Aggregate {
	agg := &Aggregate{Contributions: make(map[string]float64)}

	total := a.Config.TotalWeight()
	if total == 0 {
		return agg
	}

	var (
		weightedChange  float64
		effectiveWeight float64
		covered         float64
		fresh           float64
	)

	for i := range categories {
		cat := &categories[i]
		spec := a.Config.CategorySpec(cat.Category)
		if spec == nil || spec.Weight == 0 {
			continue
		}

		if cat.ProxyValue != nil {
			switch cat.Freshness {
			case models.FreshnessFresh:
				fresh += spec.Weight
				covered += spec.Weight
			case models.FreshnessStale:
				covered += spec.Weight
			}
		}

		if cat.ChangePct == nil {
			continue
		}
		weightedChange += spec.Weight * (*cat.ChangePct)
		effectiveWeight += spec.Weight
		agg.Contributions[cat.Category] = core.RoundHalfUp(spec.Weight*(*cat.ChangePct), 4)
	}

	agg.CoverageRatio = core.RoundHalfUp(covered/total, 4)
	agg.Representativeness = core.RoundHalfUp(fresh/total, 4)

	if effectiveWeight > 0 {
		agg.HeadlinePct = core.RoundHalfUp(weightedChange/effectiveWeight, 3)
		agg.HasHeadline = true
	} else if rc.Benchmark != nil && rc.Benchmark.MoMPct != nil {
		// Bootstrap fallback: until category baselines exist, report the
		// official monthly change rather than a hollow zero.
		agg.HeadlinePct = core.RoundHalfUp(*rc.Benchmark.MoMPct, 3)
		agg.HasHeadline = true
		agg.FallbackUsed = true
	}

	agg.TopDriver = topDriver(agg.Contributions)
	return agg
}

// -----------------------------------------------------------------------------

// topDriver picks the category with the largest absolute weighted
// contribution, or nil when nothing contributed.
func topDriver(contributions map[string]float64) *models.MTopDriver {
	var driver *models.MTopDriver
	for category, contribution := range contributions {
		if driver == nil || math.Abs(contribution) > math.Abs(driver.ContributionPct) ||
			(math.Abs(contribution) == math.Abs(driver.ContributionPct) && category < driver.Category) {
			driver = &models.MTopDriver{Category: category, ContributionPct: contribution}
		}
	}
	return driver
}
