// Package store provides SQLite-backed persistence for the audit log
// (C1) and dead-letter table (C2). Both tables share one connection so
// a single durable, single-writer-per-row SQL database backs the whole
// substrate (spec §5).
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/antigravity-dev/opsforge/internal/clock"
)

// Store wraps a shared *sql.DB and the clock used to timestamp rows.
// The connection factory is injectable via Open's dbPath or via
// NewWithDB for tests that want to share one in-memory connection.
type Store struct {
	db    *sql.DB
	clock clock.Source
}

const schema = `
CREATE TABLE IF NOT EXISTS audit_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	trigger_source TEXT NOT NULL,
	input_json TEXT NOT NULL,
	output_result TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS deadletter_tasks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	task_json TEXT NOT NULL,
	reason TEXT NOT NULL,
	deadlettered_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_audit_log_trigger ON audit_log(trigger_source);
CREATE INDEX IF NOT EXISTS idx_deadletter_tasks_id ON deadletter_tasks(id);
`

// Open creates or opens a SQLite database at dbPath and ensures the
// schema exists. dbPath may be ":memory:" for tests.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", dbPath, err)
	}
	s, err := NewWithDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB wraps an already-open *sql.DB, ensuring the schema exists.
// This is the seam tests use to share one connection (§4.1: "Connection
// factory is injectable so tests may share one connection").
func NewWithDB(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("store: create schema: %w", err)
	}
	return &Store{db: db, clock: clock.Now}, nil
}

// WithClock returns a copy of s that timestamps rows using clk instead
// of the system clock. Used by tests needing deterministic timestamps.
func (s *Store) WithClock(clk clock.Source) *Store {
	cp := *s
	cp.clock = clk
	return &cp
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for callers that need direct access
// (e.g. to share one connection across multiple Store-like wrappers).
func (s *Store) DB() *sql.DB {
	return s.db
}
