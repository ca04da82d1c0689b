package models

// MConfig Structure
type MConfig struct {
	Name       string           `yaml:"name"`
	Host       string           `yaml:"host"`
	Port       int              `yaml:"port"`
	LogLevel   string           `yaml:"log_level"`
	LogFile    string           `yaml:"log_file"`
	DataDir    string           `yaml:"data_dir"`
	Run        MRunConfig       `yaml:"run"`
	Gate       MGateConfig      `yaml:"gate"`
	Storage    MStorageConfig   `yaml:"storage"`
	Network    MNetworkConfig   `yaml:"network"`
	Categories []MCategorySpec  `yaml:"categories"`
	Benchmark  MBenchmarkConfig `yaml:"benchmark"`
	Consensus  MConsensusConfig `yaml:"consensus"`
	SLADays    map[string]int   `yaml:"sla_days"`
}

type MRunConfig struct {
	OutlierDefaultPct float64 `yaml:"outlier_default_pct"` // fallback day-over-day median shift limit, percent
	CarryForwardDays  int     `yaml:"carry_forward_days"`
	LeadSignalEpsilon float64 `yaml:"lead_signal_epsilon"`
	RetentionDays     int     `yaml:"retention_days"`
}

type MGateConfig struct {
	CoverageFloor     float64        `yaml:"coverage_floor"`
	RequiredSources   []string       `yaml:"required_sources"`
	AltDataSource     string         `yaml:"alt_data_source"`
	AltDataMaxAgeDays int            `yaml:"alt_data_max_age_days"`
	RequireBenchmark  bool           `yaml:"require_benchmark"`
	SourceGroups      []MSourceGroup `yaml:"source_groups"`
}

// MSourceGroup lists interchangeable sources; the gate requires at least one
// member to be ok.
type MSourceGroup struct {
	Name    string   `yaml:"name"`
	Sources []string `yaml:"sources"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"`
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
}

type MNetworkConfig struct {
	Enabled            bool     `yaml:"enabled"`
	Proxies            []string `yaml:"proxies"`
	RequestTimeout     int      `yaml:"timeout"`
	MaxRetries         int      `yaml:"retries"`
	ConcurrentRequests int      `yaml:"concurrent_requests"`
	UserAgent          string   `yaml:"user_agent"`
}

type MCategorySpec struct {
	Name        string          `yaml:"name"`
	Weight      float64         `yaml:"weight"`
	MinPrice    float64         `yaml:"min_price"`
	MaxPrice    float64         `yaml:"max_price"`
	OutlierPct  float64         `yaml:"outlier_pct"` // day-over-day median shift limit, percent; 0 = use run default
	MinPoints   int             `yaml:"min_points"`
	Passthrough string          `yaml:"passthrough"` // source whose value is used directly instead of the mean
	Providers   []MProviderSpec `yaml:"providers"`
}

type MProviderSpec struct {
	Name   string       `yaml:"name"`
	Type   string       `yaml:"type"` // jsonfeed, csvfeed or filefeed
	URL    string       `yaml:"url"`
	Path   string       `yaml:"path"`
	Tier   string       `yaml:"tier"`    // official, api, panel or scrape
	APIKey string       `yaml:"api_key"` // Optional
	Schema MSchemaHints `yaml:"schema"`
}

// MSchemaHints lists, in priority order, which raw record keys hold each
// concept. First matching key wins.
type MSchemaHints struct {
	ItemKeys  []string `yaml:"item_keys"`
	ValueKeys []string `yaml:"value_keys"`
	DateKeys  []string `yaml:"date_keys"`
	UnitKeys  []string `yaml:"unit_keys"`
}

type MBenchmarkConfig struct {
	Enabled  bool          `yaml:"enabled"`
	SeriesID string        `yaml:"series_id"`
	Provider MProviderSpec `yaml:"provider"`
}

// MConsensusConfig sets the plausibility guardrails applied to externally
// collected annual-inflation estimates before one is attached to a snapshot.
type MConsensusConfig struct {
	MinPlausiblePct float64 `yaml:"min_plausible_pct"`
	MaxPlausiblePct float64 `yaml:"max_plausible_pct"`
	MaxSpreadPct    float64 `yaml:"max_spread_pct"`
}

// -----------------------------------------------------------------------------
// Registry lookups
// -----------------------------------------------------------------------------

// CategorySpec returns the registry entry for the named category, or nil.
func (c *MConfig) CategorySpec(name string) *MCategorySpec {
	for i := range c.Categories {
		if c.Categories[i].Name == name {
			return &c.Categories[i]
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

// TotalWeight returns the sum of all registry weights. Zero-weight categories
// contribute nothing and are excluded from aggregation entirely.
func (c *MConfig) TotalWeight() float64 {
	total := 0.0
	for _, cat := range c.Categories {
		total += cat.Weight
	}
	return total
}

// -----------------------------------------------------------------------------

// SLAFor returns the freshness SLA for a source, falling back to 45 days for
// sources that have no explicit entry.
func (c *MConfig) SLAFor(source string) int {
	if days, ok := c.SLADays[source]; ok {
		return days
	}
	return 45
}

// -----------------------------------------------------------------------------

// OutlierLimit returns the day-over-day median shift limit in percent for a
// category, falling back to the run-wide default.
func (c *MConfig) OutlierLimit(spec *MCategorySpec) float64 {
	if spec != nil && spec.OutlierPct > 0 {
		return spec.OutlierPct
	}
	if c.Run.OutlierDefaultPct > 0 {
		return c.Run.OutlierDefaultPct
	}
	return 50
}

// -----------------------------------------------------------------------------

// PrimaryProvider returns the category's tier-1 provider (first in the
// chain), or nil when the category has no providers configured.
func (c *MCategorySpec) PrimaryProvider() *MProviderSpec {
	if len(c.Providers) == 0 {
		return nil
	}
	return &c.Providers[0]
}
