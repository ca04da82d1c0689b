package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lucasbarnes96/truenorth-index/src/helpers"
	"github.com/lucasbarnes96/truenorth-index/src/logger"
	"github.com/lucasbarnes96/truenorth-index/src/models"

	_ "github.com/lib/pq"
)

// -----------------------------------------------------------------------------

// PostgresReleaseLog is the shared-deployment variant of the release log.
// Each deployment writes into a schema named after its executable, so several
// indices can share one database server.
type PostgresReleaseLog struct {
	Config *models.MConfig
	DB     *sql.DB
	Schema string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewPostgresReleaseLog(cfg *models.MConfig, log *logger.Logger) (*PostgresReleaseLog, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable name: %w", err)
	}
	name := filepath.Base(exe)
	name = strings.TrimSuffix(name, filepath.Ext(name))

	return &PostgresReleaseLog{
		Config: cfg,
		Schema: name,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresReleaseLog) Initialize() error {
	dsn := d.Config.Storage.DBConnectionString
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return helpers.NewDatabase("opening postgres release log", err)
	}

	if err := db.Ping(); err != nil {
		return helpers.NewDatabase("postgres release log unreachable", err)
	}

	d.DB = db

	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", d.Schema, err)
	}

	if err := d.createTables(); err != nil {
		return err
	}

	d.Logger.Info("PostgresReleaseLog initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresReleaseLog) createTables() error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."release_runs" (
			run_id TEXT PRIMARY KEY,
			as_of_date TEXT NOT NULL,
			published BOOLEAN NOT NULL,
			headline_pct DOUBLE PRECISION,
			confidence TEXT,
			score INTEGER,
			gate_conditions TEXT NOT NULL,
			snapshot_path TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);
	`, d.Schema)
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create release_runs: %w", err)
	}

	query = fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_release_runs_created ON "%s"."release_runs" (created_at)`, d.Schema)
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to index release_runs: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresReleaseLog) SaveReleaseRun(run models.MReleaseRun) error {
	query := fmt.Sprintf(`
		INSERT INTO "%s"."release_runs" (run_id, as_of_date, published, headline_pct, confidence, score, gate_conditions, snapshot_path, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (run_id) DO UPDATE SET
			as_of_date = EXCLUDED.as_of_date,
			published = EXCLUDED.published,
			headline_pct = EXCLUDED.headline_pct,
			confidence = EXCLUDED.confidence,
			score = EXCLUDED.score,
			gate_conditions = EXCLUDED.gate_conditions,
			snapshot_path = EXCLUDED.snapshot_path,
			created_at = EXCLUDED.created_at
	`, d.Schema)
	_, err := d.DB.Exec(query,
		run.RunID, run.AsOfDate, run.Published, run.HeadlinePct,
		run.Confidence, run.Score, run.GateConditions, run.SnapshotPath,
		run.CreatedAt.UTC())
	return err
}

// -----------------------------------------------------------------------------

func (d *PostgresReleaseLog) LatestRun() (*models.MReleaseRun, error) {
	runs, err := d.RecentRuns(1)
	if err != nil || len(runs) == 0 {
		return nil, err
	}
	return &runs[0], nil
}

// -----------------------------------------------------------------------------

func (d *PostgresReleaseLog) RecentRuns(limit int) ([]models.MReleaseRun, error) {
	if limit <= 0 {
		limit = 20
	}

	query := fmt.Sprintf(`
		SELECT run_id, as_of_date, published, headline_pct, confidence, score, gate_conditions, snapshot_path, created_at
		FROM "%s"."release_runs"
		ORDER BY created_at DESC
		LIMIT $1
	`, d.Schema)
	rows, err := d.DB.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.MReleaseRun
	for rows.Next() {
		var run models.MReleaseRun
		if err := rows.Scan(&run.RunID, &run.AsOfDate, &run.Published, &run.HeadlinePct,
			&run.Confidence, &run.Score, &run.GateConditions, &run.SnapshotPath, &run.CreatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// -----------------------------------------------------------------------------

func (d *PostgresReleaseLog) CleanupOldRuns(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)

	query := fmt.Sprintf(`DELETE FROM "%s"."release_runs" WHERE created_at < $1`, d.Schema)
	result, err := d.DB.Exec(query, cutoff)
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

func (d *PostgresReleaseLog) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
