package models

// Gate condition codes. Every failed check appends one entry; a passing gate
// has an empty condition list.
const (
	GateAltDataStale             = "alt_data_stale"
	GateRequiredSourceMissing    = "required_source_missing"
	GateSourceGroupUnavailable   = "source_group_unavailable"
	GateSnapshotInvalid          = "snapshot_invalid"
	GateCategoryMinPoints        = "category_min_points"
	GateBenchmarkMetadataMissing = "benchmark_metadata_missing"
	GateCoverageBelowFloor       = "coverage_below_floor"
)

// MGateCondition is one failed release check.
type MGateCondition struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MGateResult is the outcome of evaluating all release checks. Terminal: a
// run is either published or failed_gate, nothing in between.
type MGateResult struct {
	Passed           bool             `json:"passed"`
	FailedConditions []MGateCondition `json:"failed_conditions"`
}

// -----------------------------------------------------------------------------

// Codes returns the failed condition codes in order.
func (g MGateResult) Codes() []string {
	codes := make([]string, 0, len(g.FailedConditions))
	for _, c := range g.FailedConditions {
		codes = append(codes, c.Code)
	}
	return codes
}
