package analysis

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lucasbarnes96/truenorth-index/src/logger"
	"github.com/lucasbarnes96/truenorth-index/src/models"
	"github.com/lucasbarnes96/truenorth-index/src/utils"
)

type AnalysisFacade struct {
	Config *models.MConfig
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewAnalysisFacade(cfg *models.MConfig, log *logger.Logger) *AnalysisFacade {
	return &AnalysisFacade{Config: cfg, Logger: log}
}

// -----------------------------------------------------------------------------

// BuildSnapshot runs the full pipeline over one day's normalized
// observations: quality filter, category proxies, basket aggregation,
// projection and scoring. The returned snapshot carries no gate result yet;
// the caller evaluates the gate over the completed snapshot and attaches the
// outcome as the final step of creation.
func (a *AnalysisFacade) BuildSnapshot(rc *RunContext, observations []models.MObservation, health []models.MSourceHealth) *models.MNowcastSnapshot {
	filtered := a.FilterObservations(observations, rc)
	categories := a.SummarizeCategories(rc, filtered)
	agg := a.ComputeNowcast(rc, categories)

	diversity := SourceDiversity(categories, filtered.Accepted)
	confidence := ConfidenceGrade(agg.CoverageRatio, filtered.AnomalyCount, diversity)
	score := SignalQualityScore(agg.CoverageRatio, filtered.AnomalyCount, categories)

	lead := models.SignalInsufficient
	if agg.HasHeadline {
		lead = LeadSignal(agg.HeadlinePct, rc, a.Config.Run.LeadSignalEpsilon)
	}

	var headlinePtr *float64
	if agg.HasHeadline {
		headlinePtr = models.Float(agg.HeadlinePct)
	}
	annual, projection := ProjectAnnual(rc.GeneratedAt, headlinePtr, rc.IndexSeries)

	snapshot := &models.MNowcastSnapshot{
		RunID:              rc.RunID,
		AsOfDate:           rc.AsOfDate,
		HeadlineChangePct:  agg.HeadlinePct,
		CoverageRatio:      agg.CoverageRatio,
		Representativeness: agg.Representativeness,
		Confidence:         confidence,
		SignalQualityScore: score,
		LeadSignal:         lead,
		AnomalyCount:       filtered.AnomalyCount,
		SourceDiversity:    diversity,
		Categories:         categories,
		SourceHealth:       health,
		Benchmark:          rc.Benchmark,
		Projection:         projection,
		Contributions:      agg.Contributions,
		TopDriver:          agg.TopDriver,
		Method:             models.MMethod{Label: utils.MethodLabel, Version: utils.MethodVersion},
		GeneratedAt:        rc.GeneratedAt.UTC().Format(time.RFC3339),
	}
	if annual != nil {
		snapshot.ProjectedAnnualPct = *annual
	}

	if rc.Consensus != nil {
		consensus := a.ApplyConsensusGuardrails(rc.Consensus)
		if consensus.Value != nil && annual != nil {
			consensus.DeviationPct = models.Float(*annual - *consensus.Value)
		}
		snapshot.Consensus = consensus
	}

	snapshot.Notes = a.buildNotes(snapshot, agg, filtered)
	return snapshot
}

// -----------------------------------------------------------------------------

// buildNotes assembles the operator-facing notes in a stable order: standing
// disclaimers first, then per-category states, then data drops and fallbacks.
func (a *AnalysisFacade) buildNotes(s *models.MNowcastSnapshot, agg *Aggregate, filtered *FilterResult) []string {
	notes := []string{
		"Experimental nowcast estimate, not an official index release.",
		fmt.Sprintf("Methodology %s: weighted category proxies with month-to-date annual projection.", utils.MethodVersion),
		fmt.Sprintf("Representativeness (fresh-weight share): %.1f%%.", agg.Representativeness*100),
	}

	var missing, stale, singleSource []string
	for i := range s.Categories {
		cat := &s.Categories[i]
		switch cat.Freshness {
		case models.FreshnessMissing:
			missing = append(missing, cat.Category)
		case models.FreshnessStale:
			stale = append(stale, cat.Category)
		}
		if cat.Freshness != models.FreshnessMissing && len(cat.Sources) < 2 {
			singleSource = append(singleSource, cat.Category)
		}
	}
	sort.Strings(singleSource)

	if len(missing) > 0 {
		notes = append(notes, fmt.Sprintf("Missing categories today: %s. Confidence is downgraded.", strings.Join(missing, ", ")))
	}
	if len(stale) > 0 {
		notes = append(notes, fmt.Sprintf("Stale categories used: %s.", strings.Join(stale, ", ")))
	}
	if len(singleSource) > 0 {
		notes = append(notes, fmt.Sprintf("Source diversity warning: single-source categories today: %s.", strings.Join(singleSource, ", ")))
	}
	if filtered.RejectedPoints > 0 {
		notes = append(notes, fmt.Sprintf("Dropped %d points via range checks.", filtered.RejectedPoints))
	}
	if filtered.AnomalyCount > 0 {
		notes = append(notes, fmt.Sprintf("Dropped %d points via day-over-day anomaly filter.", filtered.AnomalyCount))
	}
	if agg.FallbackUsed {
		notes = append(notes, "Headline uses the official monthly change until category baselines are established.")
	}
	if s.Projection != nil && s.Projection.Reason != "" {
		notes = append(notes, fmt.Sprintf("Annual projection unavailable: %s.", s.Projection.Reason))
	}
	if s.Consensus != nil && !s.Consensus.Accepted {
		notes = append(notes, fmt.Sprintf("Consensus estimate withheld by quality guardrails: %s.", s.Consensus.Reason))
	}

	return append(notes, filtered.Notes...)
}
