package storage

import (
	"path/filepath"
	"time"

	"github.com/lucasbarnes96/truenorth-index/src/analysis/core"
	"github.com/lucasbarnes96/truenorth-index/src/models"
	"github.com/lucasbarnes96/truenorth-index/src/utils"
)

// ComputePerformanceSummary reduces the published history to the standing
// evaluation metrics: live day count, date range, mean headline level and the
// mean absolute day-over-day headline move.
func ComputePerformanceSummary(history models.MHistory, now time.Time) *models.MPerformanceSummary {
	summary := &models.MPerformanceSummary{
		GeneratedAt: now.UTC().Format(time.RFC3339),
		SeededDays:  len(history),
	}

	live := history.LiveEntries()
	summary.PublishedDays = len(live)
	summary.SeededDays -= len(live)
	if len(live) == 0 {
		return summary
	}

	summary.FirstDate = live[0].AsOfDate
	summary.LastDate = live[len(live)-1].AsOfDate

	var headlineSum, scoreSum, moveSum float64
	moves := 0
	for i, entry := range live {
		headlineSum += entry.HeadlinePct
		scoreSum += float64(entry.Score)
		if i > 0 {
			move := entry.HeadlinePct - live[i-1].HeadlinePct
			if move < 0 {
				move = -move
			}
			moveSum += move
			moves++
		}
	}

	n := float64(len(live))
	summary.MeanHeadlinePct = models.Float(core.RoundHalfUp(headlineSum/n, 4))
	summary.MeanScore = models.Float(core.RoundHalfUp(scoreSum/n, 1))
	if moves > 0 {
		summary.MeanAbsMovePct = models.Float(core.RoundHalfUp(moveSum/float64(moves), 4))
	}
	return summary
}

// -----------------------------------------------------------------------------

// WritePerformanceSummary refreshes performance_summary.json from the current
// history and returns what it wrote.
func (s *RunStore) WritePerformanceSummary(history models.MHistory, now time.Time) (*models.MPerformanceSummary, error) {
	summary := ComputePerformanceSummary(history, now)
	if err := s.writeJSON(filepath.Join(s.Dir, utils.PerformanceFile), summary); err != nil {
		return nil, err
	}
	return summary, nil
}

// -----------------------------------------------------------------------------

// WriteModelCard refreshes the public methodology card.
func (s *RunStore) WriteModelCard(asOfDate string, performance *models.MPerformanceSummary) error {
	card := &models.MModelCard{
		AsOfDate:      asOfDate,
		MethodLabel:   utils.MethodLabel,
		MethodVersion: utils.MethodVersion,
		NorthStar:     "lead_time_vs_official_release",
		Performance:   performance,
		Notes: []string{
			"Experimental nowcast model card.",
			"Metrics are computed from published historical snapshots.",
		},
	}
	return s.writeJSON(filepath.Join(s.Dir, utils.ModelCardFile), card)
}
