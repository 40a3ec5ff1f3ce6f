package migrations

import (
	"database/sql"
	"fmt"
)

// Migration represents a single database migration
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

// AllMigrations contains all database migrations in order
var AllMigrations = []Migration{
	{
		Version: 1,
		Name:    "Add lookup indices for load runs",
		Up: `
			CREATE INDEX IF NOT EXISTS idx_load_runs_host ON load_runs(host);
			CREATE INDEX IF NOT EXISTS idx_load_runs_evidence ON load_runs(evidence_id, file_id);
		`,
		Down: `
			DROP INDEX IF EXISTS idx_load_runs_host;
			DROP INDEX IF EXISTS idx_load_runs_evidence;
		`,
	},
}

// InitSchema creates all tables required by the load test store.
// This must be called before running migrations to ensure all tables exist.
func InitSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS load_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL UNIQUE,
		host TEXT NOT NULL,
		evidence_id TEXT,
		file_id TEXT,
		batches INTEGER NOT NULL,
		batch_size INTEGER NOT NULL,
		ramp_up_sec INTEGER NOT NULL DEFAULT 0,
		started_at DATETIME NOT NULL,
		completed_at DATETIME,
		status TEXT NOT NULL,
		attempted INTEGER DEFAULT 0,
		launched INTEGER DEFAULT 0,
		full_passes INTEGER DEFAULT 0,
		segments_played INTEGER DEFAULT 0,
		token_errors INTEGER DEFAULT 0,
		manifest_errors INTEGER DEFAULT 0,
		segment_errors INTEGER DEFAULT 0,
		faults INTEGER DEFAULT 0,
		heartbeats INTEGER DEFAULT 0,
		error_message TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_load_runs_started_at ON load_runs(started_at DESC);
	CREATE INDEX IF NOT EXISTS idx_load_runs_status ON load_runs(status);
	`

	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

// Run executes all pending migrations on the database
func Run(db *sql.DB) error {
	if err := InitSchema(db); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	currentVersion, err := GetCurrentVersion(db)
	if err != nil {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}

	for _, migration := range AllMigrations {
		if migration.Version <= currentVersion {
			continue
		}

		if _, err := db.Exec(migration.Up); err != nil {
			return fmt.Errorf("failed to apply migration %d (%s): %w", migration.Version, migration.Name, err)
		}

		_, err = db.Exec(
			"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
			migration.Version,
			migration.Name,
		)
		if err != nil {
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

// GetCurrentVersion returns the current database schema version
func GetCurrentVersion(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow(`
		SELECT COALESCE(MAX(version), 0)
		FROM schema_migrations
	`).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return 0, err
	}
	return version, nil
}
