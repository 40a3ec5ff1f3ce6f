package stresstest

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/studiowebux/streamload/internal/migrations"
)

// Manager handles load test run persistence
type Manager struct {
	db *sql.DB
}

// NewManager opens (and migrates) the run history database
func NewManager(dbPath string) (*Manager, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Writes only happen at run start and end; one connection also keeps
	// ":memory:" databases consistent.
	db.SetMaxOpenConns(1)

	m := &Manager{db: db}

	if err := migrations.Run(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := m.failInterruptedRuns(); err != nil {
		db.Close()
		return nil, err
	}

	return m, nil
}

// failInterruptedRuns marks runs a crashed process never finalised.
// Runs on every open, so at most one run should use a database at a time.
func (m *Manager) failInterruptedRuns() error {
	_, err := m.db.Exec(`
		UPDATE load_runs SET status = ?, error_message = 'interrupted'
		WHERE status = ? AND completed_at IS NULL
	`, StatusFailed, StatusRunning)
	if err != nil {
		return fmt.Errorf("failed to mark interrupted runs: %w", err)
	}
	return nil
}

// Close closes the database connection
func (m *Manager) Close() error {
	return m.db.Close()
}

// CreateRun creates a new run record
func (m *Manager) CreateRun(run *Run) error {
	result, err := m.db.Exec(`
		INSERT INTO load_runs
		(run_id, host, evidence_id, file_id, batches, batch_size, ramp_up_sec, started_at, status, attempted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.RunID, run.Host, run.EvidenceID, run.FileID, run.Batches, run.BatchSize, run.RampUpSec,
		run.StartedAt, run.Status, run.Attempted)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	run.ID = id
	return nil
}

// UpdateRun updates a run record with its final counters
func (m *Manager) UpdateRun(run *Run) error {
	_, err := m.db.Exec(`
		UPDATE load_runs
		SET completed_at = ?, status = ?, attempted = ?, launched = ?, full_passes = ?,
		    segments_played = ?, token_errors = ?, manifest_errors = ?, segment_errors = ?,
		    faults = ?, heartbeats = ?, error_message = ?
		WHERE id = ?
	`, run.CompletedAt, run.Status, run.Attempted, run.Launched, run.FullPasses,
		run.SegmentsPlayed, run.TokenErrors, run.ManifestErrors, run.SegmentErrors,
		run.Faults, run.Heartbeats, run.ErrorMessage, run.ID)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	return nil
}

const runColumns = `
	id, run_id, host, COALESCE(evidence_id, ''), COALESCE(file_id, ''), batches, batch_size, ramp_up_sec,
	started_at, completed_at, status, attempted, launched, full_passes, segments_played,
	token_errors, manifest_errors, segment_errors, faults, heartbeats, COALESCE(error_message, '')`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	run := &Run{}
	var completedAt sql.NullTime

	err := row.Scan(&run.ID, &run.RunID, &run.Host, &run.EvidenceID, &run.FileID,
		&run.Batches, &run.BatchSize, &run.RampUpSec, &run.StartedAt, &completedAt, &run.Status,
		&run.Attempted, &run.Launched, &run.FullPasses, &run.SegmentsPlayed,
		&run.TokenErrors, &run.ManifestErrors, &run.SegmentErrors, &run.Faults, &run.Heartbeats,
		&run.ErrorMessage)
	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	return run, nil
}

// GetRun retrieves a run by ID
func (m *Manager) GetRun(id int64) (*Run, error) {
	return scanRun(m.db.QueryRow(`SELECT `+runColumns+` FROM load_runs WHERE id = ?`, id))
}

// GetRunByRunID retrieves a run by its uuid
func (m *Manager) GetRunByRunID(runID string) (*Run, error) {
	return scanRun(m.db.QueryRow(`SELECT `+runColumns+` FROM load_runs WHERE run_id = ?`, runID))
}

// ListRuns returns the most recent runs first
func (m *Manager) ListRuns(limit int) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM load_runs ORDER BY started_at DESC, id DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := m.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// DeleteRun deletes a run record
func (m *Manager) DeleteRun(id int64) error {
	_, err := m.db.Exec("DELETE FROM load_runs WHERE id = ?", id)
	return err
}
