// Package changelog keeps a durable record of every DDL statement the
// orchestrator has sent to an executor.
package changelog

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const createTableSQL = `CREATE TABLE IF NOT EXISTS changelog (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	statement   TEXT NOT NULL,
	target      TEXT,
	kind        TEXT,
	executor    TEXT,
	applied_at  DATETIME DEFAULT CURRENT_TIMESTAMP,
	duration_ms INTEGER,
	is_error    BOOLEAN DEFAULT FALSE
)`

// Entry is one applied (or failed) DDL statement.
type Entry struct {
	ID         int64
	Statement  string
	Target     string // qualified object name the statement creates
	Kind       string // schema, table, enum
	Executor   string
	AppliedAt  time.Time
	DurationMS int64
	IsError    bool
}

// Log provides SQLite-backed changelog storage.
type Log struct {
	db *sql.DB
}

// Open opens (or creates) the changelog database at path and ensures the
// schema exists.
func Open(path string) (*Log, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("changelog: create dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("changelog: open db: %w", err)
	}
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("changelog: create table: %w", err)
	}
	return &Log{db: db}, nil
}

// Record inserts a new entry. Calling Record on a nil Log is a no-op, so
// callers can pass an unconfigured changelog through.
func (l *Log) Record(e Entry) error {
	if l == nil {
		return nil
	}
	at := e.AppliedAt
	if at.IsZero() {
		at = time.Now()
	}
	_, err := l.db.Exec(
		`INSERT INTO changelog (statement, target, kind, executor, applied_at, duration_ms, is_error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Statement, e.Target, e.Kind, e.Executor, at, e.DurationMS, e.IsError,
	)
	if err != nil {
		return fmt.Errorf("changelog record: %w", err)
	}
	return nil
}

// Recent returns the most recent entries, limited to limit rows.
func (l *Log) Recent(limit int) ([]Entry, error) {
	rows, err := l.db.Query(
		`SELECT id, statement, target, kind, executor, applied_at, duration_ms, is_error
		 FROM changelog
		 ORDER BY id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("changelog recent: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Search returns entries whose statement matches the given pattern using
// SQL LIKE, most recent first.
func (l *Log) Search(pattern string, limit int) ([]Entry, error) {
	rows, err := l.db.Query(
		`SELECT id, statement, target, kind, executor, applied_at, duration_ms, is_error
		 FROM changelog
		 WHERE statement LIKE ?
		 ORDER BY id DESC
		 LIMIT ?`,
		pattern, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("changelog search: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Clear deletes all entries.
func (l *Log) Clear() error {
	if _, err := l.db.Exec(`DELETE FROM changelog`); err != nil {
		return fmt.Errorf("changelog clear: %w", err)
	}
	return nil
}

// Close closes the underlying database. Calling Close on a nil Log is a
// no-op.
func (l *Log) Close() error {
	if l == nil {
		return nil
	}
	return l.db.Close()
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.ID,
			&e.Statement,
			&e.Target,
			&e.Kind,
			&e.Executor,
			&e.AppliedAt,
			&e.DurationMS,
			&e.IsError,
		); err != nil {
			return nil, fmt.Errorf("changelog scan: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("changelog rows: %w", err)
	}
	return entries, nil
}
