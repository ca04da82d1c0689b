package analysis

import (
	"fmt"
	"sort"
	"time"

	"github.com/lucasbarnes96/truenorth-index/src/analysis/core"
	"github.com/lucasbarnes96/truenorth-index/src/models"
)

// Projection failure reasons.
const (
	ProjectionNoHeadline   = "missing_headline_change"
	ProjectionNoSeries     = "missing_benchmark_series"
	ProjectionMissingMonth = "missing_benchmark_month"
	ProjectionInvalidIndex = "invalid_benchmark_index"
)

// -----------------------------------------------------------------------------

// ProjectAnnual turns the month-to-date headline change into an annual rate
// by projecting the benchmark index one month past its base month and
// comparing against the same month a year earlier. When the projected month
// is still in progress, the headline change is prorated by elapsed days.
func ProjectAnnual(asOf time.Time, headlinePct *float64, series []models.MIndexPoint) (*float64, *models.MProjectionDiag) {
	diag := &models.MProjectionDiag{}

	if headlinePct == nil {
		diag.Reason = ProjectionNoHeadline
		return nil, diag
	}

	byMonth := make(map[string]float64, len(series))
	months := make([]string, 0, len(series))
	for _, point := range series {
		if point.RefPeriod == "" {
			continue
		}
		if _, ok := byMonth[point.RefPeriod]; !ok {
			months = append(months, point.RefPeriod)
		}
		byMonth[point.RefPeriod] = point.Index
	}
	if len(months) == 0 {
		diag.Reason = ProjectionNoSeries
		return nil, diag
	}
	sort.Strings(months)

	baseYear, baseMonth := prevMonth(asOf.Year(), int(asOf.Month()))
	baseKey := monthKey(baseYear, baseMonth)
	baseIndex, ok := byMonth[baseKey]
	if !ok {
		// The benchmark lags; fall back to its latest month.
		baseKey = months[len(months)-1]
		baseIndex = byMonth[baseKey]
		parsed, err := time.Parse("2006-01", baseKey)
		if err != nil {
			diag.Reason = ProjectionMissingMonth
			diag.BaseMonth = baseKey
			return nil, diag
		}
		baseYear, baseMonth = parsed.Year(), int(parsed.Month())
	}

	projYear, projMonth := nextMonth(baseYear, baseMonth)
	refKey := monthKey(projYear-1, projMonth)
	diag.BaseMonth = baseKey
	diag.ReferenceMonth = refKey

	refIndex, ok := byMonth[refKey]
	if !ok {
		diag.Reason = ProjectionMissingMonth
		return nil, diag
	}
	if baseIndex == 0 || refIndex == 0 {
		diag.Reason = ProjectionInvalidIndex
		return nil, diag
	}

	factor := 1.0
	if projYear == asOf.Year() && projMonth == int(asOf.Month()) {
		factor = float64(asOf.Day()) / float64(daysInMonth(asOf.Year(), int(asOf.Month())))
	}

	projected := baseIndex * (1 + (*headlinePct/100.0)*factor)
	annual := core.RoundHalfUp((projected/refIndex-1)*100, 3)

	diag.BaseIndex = models.Float(baseIndex)
	diag.ReferenceIndex = models.Float(refIndex)
	diag.ProjectedIndex = models.Float(core.RoundHalfUp(projected, 4))
	diag.ProrateFactor = models.Float(core.RoundHalfUp(factor, 4))
	return models.Float(annual), diag
}

// -----------------------------------------------------------------------------

func monthKey(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

func prevMonth(year, month int) (int, int) {
	if month == 1 {
		return year - 1, 12
	}
	return year, month - 1
}

func nextMonth(year, month int) (int, int) {
	if month == 12 {
		return year + 1, 1
	}
	return year, month + 1
}

func daysInMonth(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
