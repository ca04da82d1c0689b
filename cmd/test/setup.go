package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/lucasbarnes96/truenorth-index/src/config"
	"github.com/lucasbarnes96/truenorth-index/src/interfaces"
	"github.com/lucasbarnes96/truenorth-index/src/logger"
	"github.com/lucasbarnes96/truenorth-index/src/models"
	"github.com/lucasbarnes96/truenorth-index/src/storage"
)

const harnessPort = 8093

// -----------------------------------------------------------------------------

// workspace is the throwaway directory tree the scenarios run against. Days
// are backdated from one fixed clock so a harness run crossing midnight
// cannot shift source ages mid-scenario.
type workspace struct {
	Root        string
	DataDir     string
	FixturesDir string
	ConfigPath  string
	Now         time.Time
	Days        [3]string // as-of dates, oldest first
	Months      [3]string // benchmark reference months, oldest first
}

// -----------------------------------------------------------------------------

func newWorkspace(root string) (*workspace, error) {
	var err error
	if root == "" {
		root, err = os.MkdirTemp("", "truenorth-e2e-*")
		if err != nil {
			return nil, err
		}
	}

	ws := &workspace{
		Root:        root,
		DataDir:     filepath.Join(root, "data"),
		FixturesDir: filepath.Join(root, "fixtures"),
		ConfigPath:  filepath.Join(root, "config.yaml"),
		Now:         time.Now().UTC(),
	}

	for i := 0; i < 3; i++ {
		ws.Days[i] = ws.Now.AddDate(0, 0, i-2).Format("2006-01-02")
	}
	// The official table ends at the month before the current one.
	firstOfMonth := time.Date(ws.Now.Year(), ws.Now.Month(), 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		ws.Months[i] = firstOfMonth.AddDate(0, i-3, 0).Format("2006-01")
	}

	if err := os.MkdirAll(ws.DataDir, 0o755); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(ws.FixturesDir, 0o755); err != nil {
		return nil, err
	}
	return ws, nil
}

func (ws *workspace) fixturePath(name string) string {
	return filepath.Join(ws.FixturesDir, name)
}

// -----------------------------------------------------------------------------

// buildConfig assembles the harness registry, saves it and reloads it through
// config.NewConfig, so defaults and validation run exactly as in production.
func (ws *workspace) buildConfig() (*config.Config, *logger.Logger, error) {
	conf := config.NewDefault()
	conf.Name = "truenorth-e2e"
	conf.Host = "127.0.0.1"
	conf.Port = harnessPort
	conf.LogLevel = "WARNING"
	conf.DataDir = ws.DataDir
	conf.Storage.DBType = "sqlite"
	conf.Storage.DBPath = filepath.Join(ws.DataDir, "releases.db")

	conf.Categories = harnessCategories(ws)
	conf.Gate = models.MGateConfig{
		CoverageFloor:     0.60,
		RequiredSources:   []string{"rent_listings"},
		AltDataSource:     "grocery_panel",
		AltDataMaxAgeDays: 2,
		RequireBenchmark:  true,
		SourceGroups: []models.MSourceGroup{
			{Name: "energy_chain", Sources: []string{"pump_prices", "energy_board"}},
		},
	}
	conf.Benchmark = models.MBenchmarkConfig{
		Enabled:  true,
		SeriesID: "v41690973",
		Provider: models.MProviderSpec{
			Name: "statcan_cpi_table",
			Type: "filefeed",
			Path: ws.fixturePath("benchmark.json"),
			Tier: "official",
		},
	}
	conf.SLADays = map[string]int{
		"grocery_panel": 3,
		"pump_prices":   3,
	}

	if err := conf.Save(ws.ConfigPath); err != nil {
		return nil, nil, err
	}
	loaded, err := config.NewConfig(ws.ConfigPath)
	if err != nil {
		return nil, nil, err
	}

	appLogger := logger.NewLogger(loaded.LogLevel, loaded.LogFile, loaded.Name)
	return loaded, appLogger, nil
}

// -----------------------------------------------------------------------------

// harnessCategories is a three-category registry small enough to reason about
// by hand: food runs a two-provider fallback chain, energy backs a source
// group, shelter is a single feed whose records carry no date column.
func harnessCategories(ws *workspace) []models.MCategorySpec {
	prices := models.MSchemaHints{
		ItemKeys:  []string{"product"},
		ValueKeys: []string{"price"},
		DateKeys:  []string{"date"},
	}
	listings := models.MSchemaHints{
		ItemKeys:  []string{"unit_type"},
		ValueKeys: []string{"monthly_rent"},
	}

	return []models.MCategorySpec{
		{
			Name: "food", Weight: 0.5, MinPrice: 0.5, MaxPrice: 100, MinPoints: 3,
			Providers: []models.MProviderSpec{
				{Name: "grocery_panel", Type: "filefeed", Path: ws.fixturePath("grocery_panel.json"), Tier: "panel", Schema: prices},
				{Name: "food_basket", Type: "filefeed", Path: ws.fixturePath("food_basket.json"), Tier: "official", Schema: prices},
			},
		},
		{
			Name: "energy", Weight: 0.3, MinPrice: 50, MaxPrice: 500, MinPoints: 2,
			Providers: []models.MProviderSpec{
				{Name: "pump_prices", Type: "filefeed", Path: ws.fixturePath("pump_prices.json"), Tier: "scrape", Schema: prices},
				{Name: "energy_board", Type: "filefeed", Path: ws.fixturePath("energy_board.json"), Tier: "official", Schema: prices},
			},
		},
		{
			Name: "shelter", Weight: 0.2, MinPrice: 500, MaxPrice: 10000, MinPoints: 1,
			Providers: []models.MProviderSpec{
				{Name: "rent_listings", Type: "filefeed", Path: ws.fixturePath("rent_listings.json"), Tier: "api", Schema: listings},
			},
		},
	}
}

// -----------------------------------------------------------------------------

// setupReleaseLog opens the audit database for the configured backend.
func setupReleaseLog(config *models.MConfig, appLogger *logger.Logger) interfaces.IReleaseLog {
	var releaseLog interfaces.IReleaseLog
	var err error

	switch config.Storage.DBType {
	case "postgres":
		pgLogger := logger.NewLogger(config.LogLevel, config.LogFile, "PostgresReleaseLog")
		releaseLog, err = storage.NewPostgresReleaseLog(config, pgLogger)
	default:
		sqliteLogger := logger.NewLogger(config.LogLevel, config.LogFile, "SQLiteReleaseLog")
		releaseLog, err = storage.NewSQLiteReleaseLog(config, sqliteLogger)
	}

	if err != nil {
		appLogger.Critical("Failed to open release log: %v", err)
		return nil
	}
	if err := releaseLog.Initialize(); err != nil {
		appLogger.Critical("Failed to migrate release log: %v", err)
		return nil
	}
	return releaseLog
}
