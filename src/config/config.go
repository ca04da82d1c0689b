package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/lucasbarnes96/truenorth-index/src/models"

	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new MConfig instance from YAML file
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	// 2. Unmarshal data into the models struct. Flags that default to true
	// are seeded first; yaml leaves fields absent from the file untouched.
	modelConfig := models.MConfig{
		Gate:      models.MGateConfig{RequireBenchmark: true},
		Benchmark: models.MBenchmarkConfig{Enabled: true},
	}
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}
	config.applyDefaults()

	// 3. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// NewDefault returns a configuration carrying only the built-in defaults.
// Used by the test harness and by seed runs that do not ship a config file.
func NewDefault() *Config {
	config := &Config{MConfig: &models.MConfig{
		Name:      "truenorth-index",
		Gate:      models.MGateConfig{RequireBenchmark: true},
		Benchmark: models.MBenchmarkConfig{Enabled: true},
	}}
	config.applyDefaults()
	return config
}

// -----------------------------------------------------------------------------

// applyDefaults fills unset fields with the standing methodology defaults.
func (c *Config) applyDefaults() {
	if c.Name == "" {
		c.Name = "truenorth-index"
	}
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = 8090
	}
	if c.DataDir == "" {
		c.DataDir = "./data"
	}

	if c.Run.OutlierDefaultPct == 0 {
		c.Run.OutlierDefaultPct = 50
	}
	if c.Run.CarryForwardDays == 0 {
		c.Run.CarryForwardDays = 2
	}
	if c.Run.LeadSignalEpsilon == 0 {
		c.Run.LeadSignalEpsilon = 0.02
	}
	if c.Run.RetentionDays == 0 {
		c.Run.RetentionDays = 730
	}

	if c.Gate.CoverageFloor == 0 {
		c.Gate.CoverageFloor = 0.60
	}
	if c.Gate.AltDataMaxAgeDays == 0 {
		c.Gate.AltDataMaxAgeDays = 14
	}
	if c.Gate.AltDataSource == "" {
		c.Gate.AltDataSource = "apify_grocery"
	}
	if c.Gate.RequiredSources == nil {
		c.Gate.RequiredSources = []string{"statcan_cpi", "statcan_gas"}
	}
	if c.Gate.SourceGroups == nil {
		c.Gate.SourceGroups = []models.MSourceGroup{
			{Name: "energy", Sources: []string{"energy_board_scrape", "statcan_energy"}},
		}
	}

	if c.Storage.DBType == "" {
		c.Storage.DBType = "sqlite"
	}
	if c.Storage.DBType == "sqlite" && c.Storage.DBPath == "" {
		c.Storage.DBPath = filepath.Join(c.DataDir, "releases.db")
	}

	if c.Network.RequestTimeout == 0 {
		c.Network.RequestTimeout = 20
	}
	if c.Network.MaxRetries == 0 {
		c.Network.MaxRetries = 3
	}
	if c.Network.ConcurrentRequests == 0 {
		c.Network.ConcurrentRequests = 4
	}
	if c.Network.UserAgent == "" {
		c.Network.UserAgent = "TrueNorthIndexBot/1.0"
	}

	if len(c.Categories) == 0 {
		c.Categories = DefaultCategories()
	}
	if len(c.SLADays) == 0 {
		c.SLADays = DefaultSLADays()
	}
	if c.Benchmark.SeriesID == "" {
		c.Benchmark.SeriesID = "v41690973"
	}

	if c.Consensus.MinPlausiblePct == 0 {
		c.Consensus.MinPlausiblePct = 1.0
	}
	if c.Consensus.MaxPlausiblePct == 0 {
		c.Consensus.MaxPlausiblePct = 5.0
	}
	if c.Consensus.MaxSpreadPct == 0 {
		c.Consensus.MaxSpreadPct = 1.0
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	// Validate App configuration (Flattened)
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	// Validate Server configuration (Flattened)
	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}

	if c.DataDir == "" {
		return fmt.Errorf("data dir cannot be empty")
	}

	// Validate Storage configuration
	if c.Storage.DBType != "sqlite" && c.Storage.DBType != "postgres" {
		return fmt.Errorf("unsupported database type: %s", c.Storage.DBType)
	}
	if c.Storage.DBType == "sqlite" && c.Storage.DBPath == "" {
		return fmt.Errorf("database path cannot be empty for sqlite")
	}
	if c.Storage.DBType == "postgres" && c.Storage.DBConnectionString == "" {
		return fmt.Errorf("connection string cannot be empty for postgres")
	}

	// Validate Network configuration
	if c.Network.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be greater than 0")
	}
	if c.Network.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.Network.ConcurrentRequests <= 0 {
		return fmt.Errorf("concurrent requests must be greater than 0")
	}

	// Validate Run configuration
	if c.Run.OutlierDefaultPct <= 0 {
		return fmt.Errorf("default outlier threshold must be greater than 0 percent")
	}
	if c.Run.CarryForwardDays < 0 {
		return fmt.Errorf("carry forward days cannot be negative")
	}
	if c.Run.LeadSignalEpsilon < 0 {
		return fmt.Errorf("lead signal epsilon cannot be negative")
	}

	// Validate Gate configuration
	if c.Gate.CoverageFloor < 0 || c.Gate.CoverageFloor > 1 {
		return fmt.Errorf("coverage floor must be within [0, 1]")
	}
	if c.Gate.AltDataMaxAgeDays <= 0 {
		return fmt.Errorf("alt data max age days must be greater than 0")
	}
	for i, group := range c.Gate.SourceGroups {
		if group.Name == "" {
			return fmt.Errorf("source group %d must have a name", i)
		}
		if len(group.Sources) == 0 {
			return fmt.Errorf("source group '%s' must list at least one source", group.Name)
		}
	}

	// Validate the category registry. Weights must sum to 1.0 across the full
	// set; a zero-weight category is legal and excluded from aggregation.
	if len(c.Categories) == 0 {
		return fmt.Errorf("at least one category must be configured")
	}
	seen := make(map[string]bool, len(c.Categories))
	weightSum := 0.0
	for i, cat := range c.Categories {
		if cat.Name == "" {
			return fmt.Errorf("category %d must have a name", i)
		}
		if seen[cat.Name] {
			return fmt.Errorf("duplicate category '%s'", cat.Name)
		}
		seen[cat.Name] = true
		if cat.Weight < 0 {
			return fmt.Errorf("category '%s' weight cannot be negative", cat.Name)
		}
		if cat.MinPrice <= 0 || cat.MaxPrice <= cat.MinPrice {
			return fmt.Errorf("category '%s' has an invalid plausible range [%v, %v]", cat.Name, cat.MinPrice, cat.MaxPrice)
		}
		if cat.OutlierPct < 0 {
			return fmt.Errorf("category '%s' outlier threshold cannot be negative", cat.Name)
		}
		if cat.MinPoints < 0 {
			return fmt.Errorf("category '%s' min points cannot be negative", cat.Name)
		}
		weightSum += cat.Weight
		for j, p := range cat.Providers {
			if p.Name == "" {
				return fmt.Errorf("category '%s' provider %d must have a name", cat.Name, j)
			}
			switch p.Type {
			case "jsonfeed", "csvfeed", "filefeed":
			default:
				return fmt.Errorf("category '%s' provider '%s' has unknown type '%s'", cat.Name, p.Name, p.Type)
			}
		}
		if cat.Passthrough != "" {
			found := false
			for _, p := range cat.Providers {
				if p.Name == cat.Passthrough {
					found = true
					break
				}
			}
			if !found {
				return fmt.Errorf("category '%s' passthrough source '%s' is not one of its providers", cat.Name, cat.Passthrough)
			}
		}
	}
	if weightSum < 0.999999 || weightSum > 1.000001 {
		return fmt.Errorf("category weights must sum to 1.0, got %.6f", weightSum)
	}

	// Validate source SLAs
	for source, days := range c.SLADays {
		if days <= 0 {
			return fmt.Errorf("sla for source '%s' must be greater than 0 days", source)
		}
	}

	// Validate consensus guardrails
	if c.Consensus.MinPlausiblePct >= c.Consensus.MaxPlausiblePct {
		return fmt.Errorf("consensus plausible range is inverted: [%v, %v]", c.Consensus.MinPlausiblePct, c.Consensus.MaxPlausiblePct)
	}
	if c.Consensus.MaxSpreadPct <= 0 {
		return fmt.Errorf("consensus max spread must be greater than 0")
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
