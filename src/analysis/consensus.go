package analysis

import (
	"github.com/lucasbarnes96/truenorth-index/src/analysis/core"
	"github.com/lucasbarnes96/truenorth-index/src/models"
)

// ApplyConsensusGuardrails reduces the external consensus feed to a single
// annual estimate, or withholds it: candidates need at least medium field
// confidence, must sit inside the plausible band, at least two must survive,
// and the survivors must agree within the spread limit.
func (a *AnalysisFacade) ApplyConsensusGuardrails(feed *models.MConsensusFeed) *models.MConsensusSummary {
	summary := &models.MConsensusSummary{}

	if feed == nil {
		summary.Reason = models.ConsensusMissingPayload
		return summary
	}
	if len(feed.Sources) == 0 {
		summary.Reason = models.ConsensusMissingSources
		return summary
	}

	guard := a.Config.Consensus
	var candidates []float64
	for _, source := range feed.Sources {
		if source.AnnualCandidate != nil {
			summary.CandidateCount++
		}
		if source.FieldConfidence != models.ConfidenceMedium && source.FieldConfidence != models.ConfidenceHigh {
			continue
		}
		if source.AnnualCandidate == nil {
			continue
		}
		v := *source.AnnualCandidate
		if v >= guard.MinPlausiblePct && v <= guard.MaxPlausiblePct {
			candidates = append(candidates, v)
		}
	}

	summary.UsableCount = len(candidates)
	if len(candidates) < 2 {
		summary.Reason = models.ConsensusTooFewCandidates
		return summary
	}

	lo, hi := candidates[0], candidates[0]
	sum := 0.0
	for _, v := range candidates {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
		sum += v
	}

	spread := core.RoundHalfUp(hi-lo, 3)
	summary.Spread = models.Float(spread)
	if spread > guard.MaxSpreadPct {
		summary.Reason = models.ConsensusSpreadTooWide
		return summary
	}

	summary.Accepted = true
	summary.Value = models.Float(core.RoundHalfUp(sum/float64(len(candidates)), 3))
	return summary
}
