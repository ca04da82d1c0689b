package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lucasbarnes96/truenorth-index/src/helpers"
	"github.com/lucasbarnes96/truenorth-index/src/logger"
	"github.com/lucasbarnes96/truenorth-index/src/models"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

// SQLiteReleaseLog keeps the release_runs audit trail in a local database.
// The log is append-mostly: re-recording a run_id replaces the row, nothing
// else is ever updated.
type SQLiteReleaseLog struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewSQLiteReleaseLog(cfg *models.MConfig, log *logger.Logger) (*SQLiteReleaseLog, error) {
	return &SQLiteReleaseLog{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteReleaseLog) Initialize() error {
	dsn := d.Config.Storage.DBPath

	// Open DB
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return helpers.NewDatabase("opening sqlite release log", err)
	}

	if err := db.Ping(); err != nil {
		return helpers.NewDatabase("sqlite release log unreachable", err)
	}

	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	return d.createTables()
}

// -----------------------------------------------------------------------------

func (d *SQLiteReleaseLog) createTables() error {
	// The log survives restarts; unlike a cache it is never dropped.
	query := `
		CREATE TABLE IF NOT EXISTS release_runs (
			run_id TEXT PRIMARY KEY,
			as_of_date TEXT NOT NULL,
			published INTEGER NOT NULL,
			headline_pct REAL,
			confidence TEXT,
			score INTEGER,
			gate_conditions TEXT NOT NULL,
			snapshot_path TEXT NOT NULL,
			created_at TEXT NOT NULL
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create release_runs: %w", err)
	}

	if _, err := d.DB.Exec("CREATE INDEX IF NOT EXISTS idx_release_runs_created ON release_runs (created_at)"); err != nil {
		return fmt.Errorf("failed to index release_runs: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteReleaseLog) SaveReleaseRun(run models.MReleaseRun) error {
	query := `
		INSERT INTO release_runs (run_id, as_of_date, published, headline_pct, confidence, score, gate_conditions, snapshot_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (run_id) DO UPDATE SET
			as_of_date = excluded.as_of_date,
			published = excluded.published,
			headline_pct = excluded.headline_pct,
			confidence = excluded.confidence,
			score = excluded.score,
			gate_conditions = excluded.gate_conditions,
			snapshot_path = excluded.snapshot_path,
			created_at = excluded.created_at
	`
	_, err := d.DB.Exec(query,
		run.RunID, run.AsOfDate, boolToInt(run.Published), run.HeadlinePct,
		run.Confidence, run.Score, run.GateConditions, run.SnapshotPath,
		run.CreatedAt.UTC().Format(time.RFC3339))
	return err
}

// -----------------------------------------------------------------------------

func (d *SQLiteReleaseLog) LatestRun() (*models.MReleaseRun, error) {
	runs, err := d.RecentRuns(1)
	if err != nil || len(runs) == 0 {
		return nil, err
	}
	return &runs[0], nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteReleaseLog) RecentRuns(limit int) ([]models.MReleaseRun, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := d.DB.Query(`
		SELECT run_id, as_of_date, published, headline_pct, confidence, score, gate_conditions, snapshot_path, created_at
		FROM release_runs
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanReleaseRuns(rows)
}

// -----------------------------------------------------------------------------

func (d *SQLiteReleaseLog) CleanupOldRuns(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays).Format(time.RFC3339)

	result, err := d.DB.Exec("DELETE FROM release_runs WHERE created_at < ?", cutoff)
	if err != nil {
		d.Logger.Error("Cleanup release_runs error: %v", err)
		return err
	}
	if removed, err := result.RowsAffected(); err == nil && removed > 0 {
		d.Logger.Info("Removed %d release_runs rows older than %d days", removed, retentionDays)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteReleaseLog) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}

// -----------------------------------------------------------------------------
// Row helpers shared by both backends
// -----------------------------------------------------------------------------

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func scanReleaseRuns(rows *sql.Rows) ([]models.MReleaseRun, error) {
	var runs []models.MReleaseRun
	for rows.Next() {
		var (
			run       models.MReleaseRun
			published int
			createdAt string
		)
		if err := rows.Scan(&run.RunID, &run.AsOfDate, &published, &run.HeadlinePct,
			&run.Confidence, &run.Score, &run.GateConditions, &run.SnapshotPath, &createdAt); err != nil {
			return nil, err
		}
		run.Published = published != 0
		if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
			run.CreatedAt = ts
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// -----------------------------------------------------------------------------

// EncodeGateConditions serializes a gate outcome for the log row.
func EncodeGateConditions(result *models.MGateResult) string {
	if result == nil || len(result.FailedConditions) == 0 {
		return "[]"
	}
	data, err := json.Marshal(result.FailedConditions)
	if err != nil {
		return "[]"
	}
	return string(data)
}
