package datasource

import (
	"sort"
	"strings"
	"time"

	"github.com/lucasbarnes96/truenorth-index/src/models"
)

// -----------------------------------------------------------------------------

// RecomputeHealth turns raw collection outcomes into final source statuses.
// A source that produced nothing this run inherits its last-success date from
// the prior run's health block, so required sources stay ok while a fresher
// chain member covers for them, and expire to stale once their SLA lapses.
func RecomputeHealth(cfg *models.MConfig, raw []models.MSourceHealth, prior []models.MSourceHealth, now time.Time) []models.MSourceHealth {
	priorSuccess := make(map[string]string, len(prior))
	for _, entry := range prior {
		if entry.LastSuccess != "" {
			priorSuccess[entry.Source] = entry.LastSuccess
		}
	}

	computed := make([]models.MSourceHealth, 0, len(raw))
	for _, entry := range raw {
		if entry.LastSuccess == "" {
			if ts, ok := priorSuccess[entry.Source]; ok {
				entry.LastSuccess = ts
				entry.Detail = strings.TrimSpace(entry.Detail + " Using last success from prior run.")
			}
		}

		entry.AgeDays = ageDays(entry.LastSuccess, now)
		switch {
		case entry.AgeDays < 0:
			entry.Status = models.SourceFailed
		case entry.AgeDays <= cfg.SLAFor(entry.Source):
			entry.Status = models.SourceOK
		default:
			entry.Status = models.SourceStale
		}
		computed = append(computed, entry)
	}

	sort.SliceStable(computed, func(i, j int) bool {
		return computed[i].Source < computed[j].Source
	})
	return computed
}

// -----------------------------------------------------------------------------

// ageDays returns whole calendar days between a last-success date and now,
// or -1 when no success is known. A same-day success is age zero.
func ageDays(lastSuccess string, now time.Time) int {
	if lastSuccess == "" {
		return -1
	}
	t, err := time.Parse("2006-01-02", lastSuccess)
	if err != nil {
		return -1
	}

	nowDate := time.Date(now.UTC().Year(), now.UTC().Month(), now.UTC().Day(), 0, 0, 0, 0, time.UTC)
	days := int(nowDate.Sub(t).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
