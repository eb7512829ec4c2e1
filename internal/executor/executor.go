// Package executor is the boundary to the database that actually runs
// statements. The core only produces SQL text and parameters; everything
// about connections, sessions, and transactions lives behind this
// interface.
package executor

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnknown marks a lookup of an executor name nothing has registered.
var ErrUnknown = errors.New("unknown executor")

// Opener creates executors from a DSN.
type Opener interface {
	Open(ctx context.Context, dsn string) (Executor, error)
	Name() string
	DefaultPort() int
}

// Executor runs statements against an open database handle. Implementations
// do not retry and do not interpret the SQL they are given.
type Executor interface {
	// Exec runs one statement and returns the affected-row count.
	Exec(ctx context.Context, sql string, args ...any) (int64, error)

	// ExecMany runs one parameterized statement once per argument set and
	// returns the total affected-row count.
	ExecMany(ctx context.Context, sql string, argSets [][]any) (int64, error)

	// Query runs one statement and returns its rows.
	Query(ctx context.Context, sql string, args ...any) (*Rows, error)

	// Placeholder returns the parameter marker for the i-th argument
	// (1-based), e.g. "$1" for PostgreSQL or "?" for SQLite.
	Placeholder(i int) string

	Ping(ctx context.Context) error
	Close() error
	Name() string
}

// Rows is a fully materialized query result.
type Rows struct {
	Columns []string
	Values  [][]any
}

// Registry holds registered openers by name.
var Registry = map[string]Opener{}

// Register adds an opener to the global registry.
func Register(o Opener) {
	Registry[o.Name()] = o
}

// Open looks up an opener by name and opens an executor with it.
func Open(ctx context.Context, name, dsn string) (Executor, error) {
	o, ok := Registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknown, name)
	}
	return o.Open(ctx, dsn)
}
