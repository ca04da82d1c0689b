package interfaces

import "github.com/lucasbarnes96/truenorth-index/src/models"

// -----------------------------------------------------------------------------
// IReleaseLog defines the contract for the release_runs log.
// -----------------------------------------------------------------------------

type IReleaseLog interface {

	// -----------------------------------------------------------------------------

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// SaveReleaseRun records one run. Re-recording a run_id replaces the row.
	SaveReleaseRun(run models.MReleaseRun) error

	// -----------------------------------------------------------------------------

	// LatestRun returns the most recent row, or nil when the log is empty.
	LatestRun() (*models.MReleaseRun, error)

	// -----------------------------------------------------------------------------

	// RecentRuns returns up to limit rows, most recent first.
	RecentRuns(limit int) ([]models.MReleaseRun, error)

	// -----------------------------------------------------------------------------

	// CleanupOldRuns removes rows older than the retention policy.
	CleanupOldRuns(retentionDays int) error

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
