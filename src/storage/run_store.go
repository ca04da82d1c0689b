package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lucasbarnes96/truenorth-index/src/logger"
	"github.com/lucasbarnes96/truenorth-index/src/models"
	"github.com/lucasbarnes96/truenorth-index/src/utils"
)

// -----------------------------------------------------------------------------

// RunStore owns the file artifacts of the nowcast: the always-current latest
// pointer, the published pointer and history that move only on a gate pass,
// and the immutable per-run records. Every write goes through a temp file and
// rename, so a crash leaves either the old artifact or the new one, never a
// torn file.
type RunStore struct {
	Dir    string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewRunStore(dataDir string, log *logger.Logger) *RunStore {
	return &RunStore{Dir: dataDir, Logger: log}
}

// -----------------------------------------------------------------------------

// EnsureDirs creates the data and runs directories.
func (s *RunStore) EnsureDirs() error {
	if err := os.MkdirAll(filepath.Join(s.Dir, utils.RunsDir), 0o755); err != nil {
		return fmt.Errorf("failed to create data directories: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

// writeJSON atomically replaces path with the encoded value.
func (s *RunStore) writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to stage %s: %w", filepath.Base(path), err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to flush %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

// readJSON loads path into v. Returns false with no error when the artifact
// does not exist yet.
func (s *RunStore) readJSON(path string, v interface{}) (bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return true, nil
}

// -----------------------------------------------------------------------------
// Per-run records
// -----------------------------------------------------------------------------

// SaveRunRecord writes the immutable runs/<run_id>.json artifact and returns
// its path. Records are never rewritten; a correction is a new run.
func (s *RunStore) SaveRunRecord(record *models.MRunRecord) (string, error) {
	path := filepath.Join(s.Dir, utils.RunsDir, record.Snapshot.RunID+".json")
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("run record %s already exists", record.Snapshot.RunID)
	}
	if err := s.writeJSON(path, record); err != nil {
		return "", err
	}
	return path, nil
}

// LoadRunRecord reads one immutable run record by id.
func (s *RunStore) LoadRunRecord(runID string) (*models.MRunRecord, error) {
	var record models.MRunRecord
	found, err := s.readJSON(filepath.Join(s.Dir, utils.RunsDir, runID+".json"), &record)
	if err != nil || !found {
		return nil, err
	}
	return &record, nil
}

// -----------------------------------------------------------------------------
// Dual pointers
// -----------------------------------------------------------------------------

// SaveLatest overwrites the diagnostics pointer. Runs every time, pass or
// fail, so operators can always inspect the most recent attempt.
func (s *RunStore) SaveLatest(snapshot *models.MNowcastSnapshot) error {
	return s.writeJSON(filepath.Join(s.Dir, utils.LatestFile), snapshot)
}

// LoadLatest returns the most recent snapshot regardless of gate outcome, or
// nil when no run has happened yet.
func (s *RunStore) LoadLatest() (*models.MNowcastSnapshot, error) {
	var snapshot models.MNowcastSnapshot
	found, err := s.readJSON(filepath.Join(s.Dir, utils.LatestFile), &snapshot)
	if err != nil || !found {
		return nil, err
	}
	return &snapshot, nil
}

// -----------------------------------------------------------------------------

// Publish moves the trusted pointer and appends to published history. Only
// called after a gate pass; a same-date rerun replaces that date's entry
// rather than duplicating it.
func (s *RunStore) Publish(snapshot *models.MNowcastSnapshot) error {
	if err := s.writeJSON(filepath.Join(s.Dir, utils.PublishedLatestFile), snapshot); err != nil {
		return err
	}

	history, err := s.LoadHistory()
	if err != nil {
		return err
	}
	history[snapshot.AsOfDate] = historyEntry(snapshot)
	return s.SaveHistory(history)
}

// LoadPublishedLatest returns the last snapshot that passed the gate, or nil
// when nothing has been published.
func (s *RunStore) LoadPublishedLatest() (*models.MNowcastSnapshot, error) {
	var snapshot models.MNowcastSnapshot
	found, err := s.readJSON(filepath.Join(s.Dir, utils.PublishedLatestFile), &snapshot)
	if err != nil || !found {
		return nil, err
	}
	return &snapshot, nil
}

// -----------------------------------------------------------------------------

// LoadHistory returns the published series, empty when none exists.
func (s *RunStore) LoadHistory() (models.MHistory, error) {
	history := models.MHistory{}
	if _, err := s.readJSON(filepath.Join(s.Dir, utils.HistoricalFile), &history); err != nil {
		return nil, err
	}
	return history, nil
}

// SaveHistory atomically replaces the published series.
func (s *RunStore) SaveHistory(history models.MHistory) error {
	return s.writeJSON(filepath.Join(s.Dir, utils.HistoricalFile), history)
}

// -----------------------------------------------------------------------------

// historyEntry reduces a published snapshot to its history row. Category
// snapshots ride along so the next run can read its baselines from history
// even if the published pointer is lost.
func historyEntry(snapshot *models.MNowcastSnapshot) models.MHistoricalEntry {
	return models.MHistoricalEntry{
		RunID:              snapshot.RunID,
		AsOfDate:           snapshot.AsOfDate,
		HeadlinePct:        snapshot.HeadlineChangePct,
		ProjectedAnnualPct: snapshot.ProjectedAnnualPct,
		Confidence:         snapshot.Confidence,
		Score:              snapshot.SignalQualityScore,
		LeadSignal:         snapshot.LeadSignal,
		Categories:         snapshot.Categories,
		GeneratedAt:        snapshot.GeneratedAt,
	}
}

// -----------------------------------------------------------------------------
// External artifacts
// -----------------------------------------------------------------------------

// ReadConsensusFeed loads the externally collected consensus payload, when
// the collector has produced one.
func (s *RunStore) ReadConsensusFeed() (*models.MConsensusFeed, error) {
	var feed models.MConsensusFeed
	found, err := s.readJSON(filepath.Join(s.Dir, utils.ConsensusFeedFile), &feed)
	if err != nil || !found {
		return nil, err
	}
	return &feed, nil
}

// WriteConsensusSummary persists the guardrailed consensus next to the raw
// feed for the query surface.
func (s *RunStore) WriteConsensusSummary(summary *models.MConsensusSummary) error {
	if summary == nil {
		return nil
	}
	return s.writeJSON(filepath.Join(s.Dir, utils.ConsensusFile), summary)
}

// -----------------------------------------------------------------------------

// ReadReleaseEvents loads the official release calendar payload maintained by
// the external collector.
func (s *RunStore) ReadReleaseEvents() (*models.MReleaseEvents, error) {
	var events models.MReleaseEvents
	found, err := s.readJSON(filepath.Join(s.Dir, utils.ReleaseEventsFile), &events)
	if err != nil || !found {
		return nil, err
	}
	return &events, nil
}

// WriteReleaseEvents persists the calendar payload enriched with the computed
// next release.
func (s *RunStore) WriteReleaseEvents(events *models.MReleaseEvents) error {
	if events == nil {
		return nil
	}
	return s.writeJSON(filepath.Join(s.Dir, utils.ReleaseEventsFile), events)
}
