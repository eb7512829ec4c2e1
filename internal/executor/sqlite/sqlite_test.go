package sqlite

import (
	"context"
	"reflect"
	"testing"

	"github.com/linga/declsql/internal/executor"
)

func openMemory(t *testing.T) executor.Executor {
	t.Helper()
	exec, err := executor.Open(context.Background(), "sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) error = %v", err)
	}
	t.Cleanup(func() { exec.Close() })
	return exec
}

func TestRegistered(t *testing.T) {
	o, ok := executor.Registry["sqlite"]
	if !ok {
		t.Fatal("sqlite opener not registered")
	}
	if o.Name() != "sqlite" {
		t.Errorf("Name() = %q, want %q", o.Name(), "sqlite")
	}
}

func TestNormalizeDSN(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"sqlite:///tmp/x.db", "/tmp/x.db"},
		{":memory:", ":memory:"},
		{"data.db", "data.db"},
	}
	for _, tt := range tests {
		if got := normalizeDSN(tt.in); got != tt.want {
			t.Errorf("normalizeDSN(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExecAndQuery(t *testing.T) {
	ctx := context.Background()
	exec := openMemory(t)

	if _, err := exec.Exec(ctx, "CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT)"); err != nil {
		t.Fatalf("Exec(create) error = %v", err)
	}

	n, err := exec.Exec(ctx, "INSERT INTO t (id, name) VALUES (?, ?)", 1, "alpha")
	if err != nil {
		t.Fatalf("Exec(insert) error = %v", err)
	}
	if n != 1 {
		t.Errorf("affected = %d, want 1", n)
	}

	rows, err := exec.Query(ctx, "SELECT id, name FROM t ORDER BY id")
	if err != nil {
		t.Fatalf("Query error = %v", err)
	}
	if !reflect.DeepEqual(rows.Columns, []string{"id", "name"}) {
		t.Errorf("Columns = %v", rows.Columns)
	}
	if len(rows.Values) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows.Values))
	}
	if rows.Values[0][1] != "alpha" {
		t.Errorf("Values[0][1] = %v, want %q", rows.Values[0][1], "alpha")
	}
}

func TestExecMany(t *testing.T) {
	ctx := context.Background()
	exec := openMemory(t)

	if _, err := exec.Exec(ctx, "CREATE TABLE t (id INTEGER, name TEXT)"); err != nil {
		t.Fatalf("Exec(create) error = %v", err)
	}

	n, err := exec.ExecMany(ctx, "INSERT INTO t (id, name) VALUES (?, ?)", [][]any{
		{1, "a"},
		{2, "b"},
		{3, "c"},
	})
	if err != nil {
		t.Fatalf("ExecMany error = %v", err)
	}
	if n != 3 {
		t.Errorf("affected = %d, want 3", n)
	}

	rows, err := exec.Query(ctx, "SELECT COUNT(*) FROM t")
	if err != nil {
		t.Fatalf("Query error = %v", err)
	}
	if rows.Values[0][0] != int64(3) {
		t.Errorf("COUNT(*) = %v, want 3", rows.Values[0][0])
	}
}

func TestExecManyEmpty(t *testing.T) {
	exec := openMemory(t)
	n, err := exec.ExecMany(context.Background(), "INSERT INTO t VALUES (?)", nil)
	if err != nil {
		t.Fatalf("ExecMany(empty) error = %v", err)
	}
	if n != 0 {
		t.Errorf("affected = %d, want 0", n)
	}
}

func TestPlaceholder(t *testing.T) {
	exec := openMemory(t)
	if got := exec.Placeholder(3); got != "?" {
		t.Errorf("Placeholder(3) = %q, want %q", got, "?")
	}
}
