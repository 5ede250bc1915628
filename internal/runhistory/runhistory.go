// Package runhistory records one row per supervised run (start/end time,
// exit code, restart reason, update outcome) to a local SQLite file. This
// supplements spec.md's "no persisted state beyond the git working copy"
// with optional audit history; it never feeds back into supervisor
// semantics and is off by default (enabled only when --history-db names a
// path).
package runhistory

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Run is one row of run history.
type Run struct {
	RunID          string
	Name           string
	StartedAt      time.Time
	EndedAt        time.Time
	ExitCode       int
	RestartReason  string
	UpdateOutcome  string
}

// Store persists Run rows to a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the SQLite database at path and ensures
// the run_history table exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("runhistory: open sqlite database: %w", err)
	}
	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("runhistory: initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initialize() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS run_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		name TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		ended_at INTEGER NOT NULL,
		exit_code INTEGER NOT NULL,
		restart_reason TEXT,
		update_outcome TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_run_history_run_id ON run_history(run_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordRun inserts a completed run's row.
func (s *Store) RecordRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_history (run_id, name, started_at, ended_at, exit_code, restart_reason, update_outcome)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.Name, run.StartedAt.Unix(), run.EndedAt.Unix(), run.ExitCode, run.RestartReason, run.UpdateOutcome,
	)
	if err != nil {
		return fmt.Errorf("runhistory: insert run: %w", err)
	}
	return nil
}

// RunsByName returns every recorded run for a given config name, oldest first.
func (s *Store) RunsByName(ctx context.Context, name string) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, name, started_at, ended_at, exit_code, restart_reason, update_outcome
		 FROM run_history WHERE name = ? ORDER BY id`, name)
	if err != nil {
		return nil, fmt.Errorf("runhistory: query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, ended int64
		if err := rows.Scan(&r.RunID, &r.Name, &started, &ended, &r.ExitCode, &r.RestartReason, &r.UpdateOutcome); err != nil {
			return nil, fmt.Errorf("runhistory: scan run: %w", err)
		}
		r.StartedAt = time.Unix(started, 0)
		r.EndedAt = time.Unix(ended, 0)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("runhistory: iterate rows: %w", err)
	}
	return runs, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
