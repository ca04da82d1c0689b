package datasource

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/lucasbarnes96/truenorth-index/src/analysis/core"
	"github.com/lucasbarnes96/truenorth-index/src/interfaces"
	"github.com/lucasbarnes96/truenorth-index/src/logger"
	"github.com/lucasbarnes96/truenorth-index/src/models"
)

// Official index tables ship one row per geography and product group; only
// the national all-items rows belong to the benchmark series.
const (
	benchmarkGeoColumn     = "GEO"
	benchmarkGeoValue      = "Canada"
	benchmarkProductColumn = "Products and product groups"
	benchmarkProductValue  = "All-items"
)

// Reference months per year in the YoY comparison.
const monthsPerYear = 12

// -----------------------------------------------------------------------------

// BenchmarkFetcher retrieves the official index series. Benchmark data is
// reporting context and a projection base only; it never enters proxies or
// the headline.
type BenchmarkFetcher struct {
	Config   *models.MConfig
	Provider interfaces.IFeedProvider
	Logger   *logger.Logger
}

// -----------------------------------------------------------------------------

// NewBenchmarkFetcher returns nil when the benchmark block is disabled.
func NewBenchmarkFetcher(cfg *models.MConfig, netMgr interfaces.INetworkManager, log *logger.Logger) (*BenchmarkFetcher, error) {
	if !cfg.Benchmark.Enabled || cfg.Benchmark.Provider.Name == "" {
		return nil, nil
	}

	provider, err := BuildProvider(cfg.Benchmark.Provider, netMgr, log)
	if err != nil {
		return nil, err
	}
	return &BenchmarkFetcher{Config: cfg, Provider: provider, Logger: log}, nil
}

// -----------------------------------------------------------------------------

// Fetch downloads the series and reduces it to a summary plus the month/index
// points the projection consumes. The returned health entry is raw; the
// caller folds it into RecomputeHealth with the category outcomes.
func (b *BenchmarkFetcher) Fetch(ctx context.Context, asOfDate string) (*models.MBenchmarkSummary, []models.MIndexPoint, models.MSourceHealth) {
	source := b.Provider.Name()

	records, err := b.Provider.Fetch(ctx)
	if err != nil {
		b.Logger.Warning("Benchmark fetch failed: %v", err)
		return nil, nil, models.MSourceHealth{
			Source: source,
			Detail: fmt.Sprintf("Fetch failed: %v", err),
		}
	}

	series := b.extractSeries(records)
	if len(series) == 0 {
		return nil, nil, models.MSourceHealth{
			Source: source,
			Detail: fmt.Sprintf("No benchmark rows matched (%d raw).", len(records)),
		}
	}

	summary := SummarizeIndexSeries(b.Config.Benchmark.SeriesID, series)
	health := models.MSourceHealth{
		Source:      source,
		LastSuccess: asOfDate,
		Detail:      fmt.Sprintf("Loaded %d benchmark months, latest %s.", len(series), summary.LatestRefPeriod),
	}
	return summary, series, health
}

// -----------------------------------------------------------------------------

// extractSeries filters raw rows to the national all-items series and sorts
// them by reference month.
func (b *BenchmarkFetcher) extractSeries(records []map[string]interface{}) []models.MIndexPoint {
	hints := b.Config.Benchmark.Provider.Schema
	dateKeys := hints.DateKeys
	if len(dateKeys) == 0 {
		dateKeys = []string{"REF_DATE"}
	}
	valueKeys := hints.ValueKeys
	if len(valueKeys) == 0 {
		valueKeys = []string{"VALUE"}
	}

	byMonth := make(map[string]float64)
	for _, record := range records {
		if geo, ok := record[benchmarkGeoColumn]; ok && strings.TrimSpace(fmt.Sprint(geo)) != benchmarkGeoValue {
			continue
		}
		if product, ok := record[benchmarkProductColumn]; ok && strings.TrimSpace(fmt.Sprint(product)) != benchmarkProductValue {
			continue
		}

		rawDate, ok := resolveKey(record, dateKeys)
		if !ok {
			continue
		}
		refPeriod := strings.TrimSpace(fmt.Sprint(rawDate))
		if len(refPeriod) > 7 {
			refPeriod = refPeriod[:7]
		}
		if len(refPeriod) != 7 {
			continue
		}

		rawValue, ok := resolveKey(record, valueKeys)
		if !ok {
			continue
		}
		index, err := parseNumeric(rawValue)
		if err != nil || index <= 0 {
			continue
		}
		byMonth[refPeriod] = index // later rows for a month win, table is append-ordered
	}

	series := make([]models.MIndexPoint, 0, len(byMonth))
	for month, index := range byMonth {
		series = append(series, models.MIndexPoint{RefPeriod: month, Index: index})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].RefPeriod < series[j].RefPeriod })
	return series
}

// -----------------------------------------------------------------------------

// SummarizeIndexSeries derives latest month, month-over-month and
// year-over-year changes from a sorted index series. MoM needs two months,
// YoY needs thirteen; each is nil when its reference row is absent.
func SummarizeIndexSeries(seriesID string, series []models.MIndexPoint) *models.MBenchmarkSummary {
	if len(series) == 0 {
		return nil
	}

	latest := series[len(series)-1]
	summary := &models.MBenchmarkSummary{
		SeriesID:        seriesID,
		LatestRefPeriod: latest.RefPeriod,
		LatestIndex:     latest.Index,
	}

	if len(series) >= 2 {
		prev := series[len(series)-2]
		if prev.Index > 0 {
			summary.MoMPct = models.Float(core.RoundHalfUp((latest.Index/prev.Index-1)*100, 3))
		}
	}
	if len(series) >= monthsPerYear+1 {
		prevYear := series[len(series)-monthsPerYear-1]
		if prevYear.Index > 0 {
			summary.YoYPct = models.Float(core.RoundHalfUp((latest.Index/prevYear.Index-1)*100, 3))
		}
	}
	return summary
}
