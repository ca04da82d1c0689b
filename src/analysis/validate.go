package analysis

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/lucasbarnes96/truenorth-index/src/helpers"
	"github.com/lucasbarnes96/truenorth-index/src/models"
)

// ValidateSnapshot checks a completed snapshot structurally: required fields
// present, enumerations legal, numeric fields finite, category invariants
// held. All problems are reported in one pass. A failure never panics a run;
// the gate turns it into a blocking condition.
func ValidateSnapshot(s *models.MNowcastSnapshot) error {
	var problems []string
	fail := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if s == nil {
		return helpers.NewValidation("snapshot is nil")
	}

	if s.RunID == "" {
		fail("run_id is empty")
	}
	if _, err := time.Parse("2006-01-02", s.AsOfDate); err != nil {
		fail("as_of_date %q is not a date", s.AsOfDate)
	}
	if _, err := time.Parse(time.RFC3339, s.GeneratedAt); err != nil {
		fail("generated_at %q is not a timestamp", s.GeneratedAt)
	}

	switch s.Confidence {
	case models.ConfidenceHigh, models.ConfidenceMedium, models.ConfidenceLow:
	default:
		fail("confidence %q is not a known grade", s.Confidence)
	}
	switch s.LeadSignal {
	case models.SignalUp, models.SignalDown, models.SignalFlat, models.SignalInsufficient:
	default:
		fail("lead_signal %q is not a known signal", s.LeadSignal)
	}

	checkFinite(fail, "headline_change_pct", s.HeadlineChangePct)
	checkFinite(fail, "projected_annual_pct", s.ProjectedAnnualPct)
	checkFinite(fail, "coverage_ratio", s.CoverageRatio)
	checkFinite(fail, "representativeness", s.Representativeness)
	if s.CoverageRatio < 0 || s.CoverageRatio > 1 {
		fail("coverage_ratio %v outside [0, 1]", s.CoverageRatio)
	}
	if s.Representativeness < 0 || s.Representativeness > 1 {
		fail("representativeness %v outside [0, 1]", s.Representativeness)
	}
	if s.SignalQualityScore < 0 || s.SignalQualityScore > 100 {
		fail("signal_quality_score %d outside [0, 100]", s.SignalQualityScore)
	}
	if s.AnomalyCount < 0 {
		fail("anomaly_count is negative")
	}

	if len(s.Categories) == 0 {
		fail("snapshot has no categories")
	}
	for i := range s.Categories {
		validateCategory(fail, &s.Categories[i])
	}

	for i := range s.SourceHealth {
		h := &s.SourceHealth[i]
		if h.Source == "" {
			fail("source_health entry %d has no source id", i)
		}
		switch h.Status {
		case models.SourceOK, models.SourceStale, models.SourceFailed:
		default:
			fail("source %q has unknown status %q", h.Source, h.Status)
		}
	}

	if len(problems) > 0 {
		return helpers.NewValidation("%s", strings.Join(problems, "; "))
	}
	return nil
}

// -----------------------------------------------------------------------------

func validateCategory(fail func(string, ...interface{}), cat *models.MCategorySnapshot) {
	if cat.Category == "" {
		fail("category entry has no name")
		return
	}
	switch cat.Freshness {
	case models.FreshnessFresh, models.FreshnessStale, models.FreshnessMissing:
	default:
		fail("category %s has unknown freshness %q", cat.Category, cat.Freshness)
	}
	if cat.Freshness == models.FreshnessMissing {
		if cat.ProxyValue != nil {
			fail("category %s is missing but carries a proxy value", cat.Category)
		}
		if cat.ChangePct != nil {
			fail("category %s is missing but carries a change", cat.Category)
		}
	}
	if cat.ProxyValue != nil {
		checkFinite(fail, "proxy_value of "+cat.Category, *cat.ProxyValue)
	}
	if cat.BaselineValue != nil {
		checkFinite(fail, "baseline_value of "+cat.Category, *cat.BaselineValue)
	}
	if cat.ChangePct != nil {
		checkFinite(fail, "change_pct of "+cat.Category, *cat.ChangePct)
	}
	if cat.PointCount < 0 {
		fail("category %s has a negative point count", cat.Category)
	}
	if cat.AnomalyCount < 0 {
		fail("category %s has a negative anomaly count", cat.Category)
	}
}

func checkFinite(fail func(string, ...interface{}), name string, v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		fail("%s is not finite", name)
	}
}
