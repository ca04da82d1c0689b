package models

// Guardrail rejection reasons for the external consensus feed.
const (
	ConsensusMissingPayload   = "missing_payload"
	ConsensusMissingSources   = "missing_sources"
	ConsensusTooFewCandidates = "insufficient_high_conf_sources"
	ConsensusSpreadTooWide    = "candidate_spread_too_wide"
)

// MConsensusCandidate is one third-party annual-inflation estimate.
type MConsensusCandidate struct {
	Source          string   `json:"source"`
	URL             string   `json:"url,omitempty"`
	AnnualCandidate *float64 `json:"annual_candidate"`
	FieldConfidence string   `json:"field_confidence"` // high, medium or low
}

// MConsensusFeed is the externally collected consensus payload, read from the
// data directory when present.
type MConsensusFeed struct {
	AsOf        string                `json:"as_of"`
	Confidence  string                `json:"confidence"`
	SourceCount int                   `json:"source_count"`
	Sources     []MConsensusCandidate `json:"sources"`
	Errors      []string              `json:"errors,omitempty"`
}

// MConsensusSummary is the guardrailed consensus attached to a snapshot. Value
// is nil whenever the guardrails withheld the estimate.
type MConsensusSummary struct {
	Value          *float64 `json:"value,omitempty"`
	Accepted       bool     `json:"accepted"`
	Reason         string   `json:"reason,omitempty"`
	CandidateCount int      `json:"candidate_count"`
	UsableCount    int      `json:"usable_count"`
	Spread         *float64 `json:"spread,omitempty"`
	DeviationPct   *float64 `json:"deviation_pct,omitempty"` // projection minus consensus
}
