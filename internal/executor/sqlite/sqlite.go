// Package sqlite provides a file-backed executor used for local smoke runs
// and tests. Postgres-only DDL forms will fail here, as they would on any
// executor that does not understand them; the core reports that failure
// as-is.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/linga/declsql/internal/executor"
)

func init() {
	executor.Register(&sqliteOpener{})
}

type sqliteOpener struct{}

func (o *sqliteOpener) Name() string     { return "sqlite" }
func (o *sqliteOpener) DefaultPort() int { return 0 }

func (o *sqliteOpener) Open(ctx context.Context, dsn string) (executor.Executor, error) {
	dsn = normalizeDSN(dsn)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite enable foreign keys: %w", err)
	}
	return &sqliteExecutor{db: db}, nil
}

// normalizeDSN strips common SQLite URI prefixes.
func normalizeDSN(dsn string) string {
	if strings.HasPrefix(dsn, "sqlite://") {
		return strings.TrimPrefix(dsn, "sqlite://")
	}
	return dsn
}

type sqliteExecutor struct {
	db *sql.DB
}

func (e *sqliteExecutor) Name() string { return "sqlite" }

func (e *sqliteExecutor) Placeholder(int) string { return "?" }

func (e *sqliteExecutor) Ping(ctx context.Context) error {
	return e.db.PingContext(ctx)
}

func (e *sqliteExecutor) Close() error {
	return e.db.Close()
}

func (e *sqliteExecutor) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := e.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("sqlite exec: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		// DDL statements report no row count; treat it as zero.
		return 0, nil
	}
	return n, nil
}

func (e *sqliteExecutor) ExecMany(ctx context.Context, query string, argSets [][]any) (int64, error) {
	if len(argSets) == 0 {
		return 0, nil
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("sqlite prepare: %w", err)
	}
	defer stmt.Close()

	var affected int64
	for _, args := range argSets {
		res, err := stmt.ExecContext(ctx, args...)
		if err != nil {
			return 0, fmt.Errorf("sqlite exec: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			affected += n
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite commit: %w", err)
	}
	return affected, nil
}

func (e *sqliteExecutor) Query(ctx context.Context, query string, args ...any) (*executor.Rows, error) {
	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("sqlite query columns: %w", err)
	}

	out := &executor.Rows{Columns: cols}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("sqlite query scan: %w", err)
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		out.Values = append(out.Values, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite query rows: %w", err)
	}
	return out, nil
}
