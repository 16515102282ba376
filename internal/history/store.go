// Package history records completed invocations in a SQLite database.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Run is one completed invocation.
type Run struct {
	ID         string
	Command    string
	Server     string
	Cores      string
	Outcome    string
	ExitCode   int
	StartedAt  time.Time
	FinishedAt time.Time
	Log        string
}

// Duration returns how long the run took.
func (r Run) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }

// Store persists runs.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewRunID returns a fresh run identifier.
func NewRunID() string { return uuid.NewString() }

// Open opens or creates the database at path. Use ":memory:" for a
// throwaway store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A private in-memory database exists per connection.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		command TEXT NOT NULL,
		server TEXT NOT NULL,
		cores TEXT NOT NULL,
		outcome TEXT NOT NULL,
		exit_code INTEGER NOT NULL,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL,
		log TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record stores r, assigning an ID when it has none.
func (s *Store) Record(ctx context.Context, r *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = NewRunID()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, command, server, cores, outcome, exit_code, started_at, finished_at, log)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Command, r.Server, r.Cores, r.Outcome, r.ExitCode,
		r.StartedAt.UnixMilli(), r.FinishedAt.UnixMilli(), r.Log,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, command, server, cores, outcome, exit_code, started_at, finished_at, log
		 FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                 Run
			started, finished int64
		)
		if err := rows.Scan(&r.ID, &r.Command, &r.Server, &r.Cores, &r.Outcome, &r.ExitCode, &started, &finished, &r.Log); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt = time.UnixMilli(started)
		r.FinishedAt = time.UnixMilli(finished)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return runs, nil
}

// Get returns the run with the given id.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		r                 Run
		started, finished int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, command, server, cores, outcome, exit_code, started_at, finished_at, log
		 FROM runs WHERE id = ?`, id).
		Scan(&r.ID, &r.Command, &r.Server, &r.Cores, &r.Outcome, &r.ExitCode, &started, &finished, &r.Log)
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	r.StartedAt = time.UnixMilli(started)
	r.FinishedAt = time.UnixMilli(finished)
	return &r, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
