// Package postgres provides the PostgreSQL executor, backed by a pgx
// connection pool.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linga/declsql/internal/executor"
)

func init() {
	executor.Register(&pgOpener{})
}

type pgOpener struct{}

func (o *pgOpener) Name() string     { return "postgres" }
func (o *pgOpener) DefaultPort() int { return 5432 }

func (o *pgOpener) Open(ctx context.Context, dsn string) (executor.Executor, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return &pgExecutor{pool: pool}, nil
}

// pgExecutor implements executor.Executor on a pgx pool.
type pgExecutor struct {
	pool *pgxpool.Pool
}

func (e *pgExecutor) Name() string { return "postgres" }

func (e *pgExecutor) Placeholder(i int) string { return fmt.Sprintf("$%d", i) }

func (e *pgExecutor) Ping(ctx context.Context) error {
	return e.pool.Ping(ctx)
}

func (e *pgExecutor) Close() error {
	e.pool.Close()
	return nil
}

func (e *pgExecutor) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := e.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("postgres exec: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ExecMany runs the statement once per argument set inside a single
// transaction, batched over one round trip.
func (e *pgExecutor) ExecMany(ctx context.Context, sql string, argSets [][]any) (int64, error) {
	if len(argSets) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, args := range argSets {
		batch.Queue(sql, args...)
	}

	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("postgres begin: %w", err)
	}
	defer tx.Rollback(ctx)

	results := tx.SendBatch(ctx, batch)
	var affected int64
	for range argSets {
		tag, err := results.Exec()
		if err != nil {
			results.Close()
			return 0, fmt.Errorf("postgres batch exec: %w", err)
		}
		affected += tag.RowsAffected()
	}
	if err := results.Close(); err != nil {
		return 0, fmt.Errorf("postgres batch close: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("postgres commit: %w", err)
	}
	return affected, nil
}

func (e *pgExecutor) Query(ctx context.Context, sql string, args ...any) (*executor.Rows, error) {
	rows, err := e.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres query: %w", err)
	}
	defer rows.Close()

	fds := rows.FieldDescriptions()
	cols := make([]string, len(fds))
	for i, fd := range fds {
		cols[i] = fd.Name
	}

	out := &executor.Rows{Columns: cols}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("postgres query values: %w", err)
		}
		row := make([]any, len(vals))
		copy(row, vals)
		out.Values = append(out.Values, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres query rows: %w", err)
	}
	return out, nil
}
