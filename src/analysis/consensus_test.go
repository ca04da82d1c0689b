package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucasbarnes96/truenorth-index/src/models"
)

func candidate(source string, value *float64, confidence string) models.MConsensusCandidate {
	return models.MConsensusCandidate{Source: source, AnnualCandidate: value, FieldConfidence: confidence}
}

func TestConsensusGuardrailsAcceptAgreeingCandidates(t *testing.T) {
	facade := newTestFacade(t)

	feed := &models.MConsensusFeed{
		AsOf: "2025-08-15",
		Sources: []models.MConsensusCandidate{
			candidate("bank_forecast", models.Float(2.9), models.ConfidenceHigh),
			candidate("econ_survey", models.Float(3.3), models.ConfidenceMedium),
			candidate("blog_scrape", models.Float(7.0), models.ConfidenceHigh), // outside the plausible band
			candidate("newsletter", nil, models.ConfidenceHigh),
			candidate("panel_note", models.Float(3.05), models.ConfidenceLow), // confidence too weak
		},
	}

	summary := facade.ApplyConsensusGuardrails(feed)

	require.True(t, summary.Accepted)
	require.NotNil(t, summary.Value)
	assert.InDelta(t, 3.1, *summary.Value, 1e-9)
	assert.Equal(t, 4, summary.CandidateCount)
	assert.Equal(t, 2, summary.UsableCount)
	require.NotNil(t, summary.Spread)
	assert.InDelta(t, 0.4, *summary.Spread, 1e-9)
	assert.Empty(t, summary.Reason)
}

func TestConsensusGuardrailsMissingPayload(t *testing.T) {
	facade := newTestFacade(t)

	summary := facade.ApplyConsensusGuardrails(nil)

	assert.False(t, summary.Accepted)
	assert.Nil(t, summary.Value)
	assert.Equal(t, models.ConsensusMissingPayload, summary.Reason)
}

func TestConsensusGuardrailsMissingSources(t *testing.T) {
	facade := newTestFacade(t)

	summary := facade.ApplyConsensusGuardrails(&models.MConsensusFeed{AsOf: "2025-08-15"})

	assert.False(t, summary.Accepted)
	assert.Equal(t, models.ConsensusMissingSources, summary.Reason)
}

func TestConsensusGuardrailsNeedTwoUsableCandidates(t *testing.T) {
	facade := newTestFacade(t)

	feed := &models.MConsensusFeed{
		AsOf: "2025-08-15",
		Sources: []models.MConsensusCandidate{
			candidate("bank_forecast", models.Float(2.9), models.ConfidenceHigh),
			candidate("panel_note", models.Float(3.0), models.ConfidenceLow),
		},
	}

	summary := facade.ApplyConsensusGuardrails(feed)

	assert.False(t, summary.Accepted)
	assert.Nil(t, summary.Value)
	assert.Equal(t, models.ConsensusTooFewCandidates, summary.Reason)
	assert.Equal(t, 1, summary.UsableCount)
}

func TestConsensusGuardrailsRejectWideSpread(t *testing.T) {
	facade := newTestFacade(t)

	feed := &models.MConsensusFeed{
		AsOf: "2025-08-15",
		Sources: []models.MConsensusCandidate{
			candidate("bank_forecast", models.Float(2.0), models.ConfidenceHigh),
			candidate("econ_survey", models.Float(3.5), models.ConfidenceHigh),
		},
	}

	summary := facade.ApplyConsensusGuardrails(feed)

	assert.False(t, summary.Accepted)
	assert.Nil(t, summary.Value)
	assert.Equal(t, models.ConsensusSpreadTooWide, summary.Reason)
	require.NotNil(t, summary.Spread)
	assert.InDelta(t, 1.5, *summary.Spread, 1e-9)
}
