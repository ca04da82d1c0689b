package utils

// Methodology identity stamped into every snapshot.
const (
	MethodLabel   = "YoY nowcast from public category proxies with month-to-date prorating"
	MethodVersion = "v1.2.0"
)

// -----------------------------------------------------------------------------

// Artifact names under the data directory.
const (
	LatestFile          = "latest.json"
	PublishedLatestFile = "published_latest.json"
	HistoricalFile      = "historical.json"
	RunsDir             = "runs"
	ConsensusFeedFile   = "consensus_feed.json"
	ConsensusFile       = "consensus_latest.json"
	ReleaseEventsFile   = "release_events.json"
	PerformanceFile     = "performance_summary.json"
	ModelCardFile       = "model_card_latest.json"
)
