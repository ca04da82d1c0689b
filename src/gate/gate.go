package gate

import (
	"fmt"

	"github.com/lucasbarnes96/truenorth-index/src/analysis"
	"github.com/lucasbarnes96/truenorth-index/src/models"
)

// Evaluate runs every release check against a completed snapshot and returns
// the full outcome. The checks are independent: all of them run and every
// failure is listed, so an operator sees the whole problem set from one run.
// Evaluate never mutates the snapshot; the caller attaches the result.
func Evaluate(cfg *models.MConfig, snapshot *models.MNowcastSnapshot) *models.MGateResult {
	result := &models.MGateResult{}
	fail := func(code, format string, args ...interface{}) {
		result.FailedConditions = append(result.FailedConditions, models.MGateCondition{
			Code:    code,
			Message: fmt.Sprintf(format, args...),
		})
	}

	healthBySource := make(map[string]*models.MSourceHealth, len(snapshot.SourceHealth))
	for i := range snapshot.SourceHealth {
		healthBySource[snapshot.SourceHealth[i].Source] = &snapshot.SourceHealth[i]
	}

	// Mandatory alternative-data source must have succeeded recently enough.
	if alt := cfg.Gate.AltDataSource; alt != "" {
		health, ok := healthBySource[alt]
		if !ok || health.AgeDays < 0 || health.AgeDays > cfg.Gate.AltDataMaxAgeDays {
			fail(models.GateAltDataStale, "alternative data source %s missing or older than %d days", alt, cfg.Gate.AltDataMaxAgeDays)
		}
	}

	// Category-independent required sources must be ok this run.
	for _, required := range cfg.Gate.RequiredSources {
		health, ok := healthBySource[required]
		switch {
		case !ok:
			fail(models.GateRequiredSourceMissing, "required source %s reported no health record", required)
		case health.Status != models.SourceOK:
			fail(models.GateRequiredSourceMissing, "required source %s reported %s", required, health.Status)
		}
	}

	// Interchangeable source groups need one usable member each.
	for _, group := range cfg.Gate.SourceGroups {
		usable := false
		for _, member := range group.Sources {
			if health, ok := healthBySource[member]; ok &&
				(health.Status == models.SourceOK || health.Status == models.SourceStale) {
				usable = true
				break
			}
		}
		if !usable {
			fail(models.GateSourceGroupUnavailable, "no usable source in group %s", group.Name)
		}
	}

	if err := analysis.ValidateSnapshot(snapshot); err != nil {
		fail(models.GateSnapshotInvalid, "%s", err.Error())
	}

	// Every registered category is held to its point floor; most floors are
	// zero and the gap shows up in coverage instead.
	for i := range cfg.Categories {
		spec := &cfg.Categories[i]
		points := 0
		if cat := snapshot.Category(spec.Name); cat != nil {
			points = cat.PointCount
		}
		if points < spec.MinPoints {
			fail(models.GateCategoryMinPoints, "category %s has %d points, floor is %d", spec.Name, points, spec.MinPoints)
		}
	}

	if cfg.Gate.RequireBenchmark {
		if snapshot.Benchmark == nil || snapshot.Benchmark.LatestRefPeriod == "" {
			fail(models.GateBenchmarkMetadataMissing, "official benchmark metadata missing latest release month")
		}
	}

	if snapshot.CoverageRatio < cfg.Gate.CoverageFloor {
		fail(models.GateCoverageBelowFloor, "coverage %.4f below floor %.2f", snapshot.CoverageRatio, cfg.Gate.CoverageFloor)
	}

	result.Passed = len(result.FailedConditions) == 0
	return result
}
