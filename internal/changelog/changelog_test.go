package changelog

import (
	"path/filepath"
	"testing"
)

func openTemp(t *testing.T) *Log {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "changelog.db"))
	if err != nil {
		t.Fatalf("Open error = %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestRecordAndRecent(t *testing.T) {
	l := openTemp(t)

	entries := []Entry{
		{Statement: "CREATE SCHEMA IF NOT EXISTS app;", Target: "app", Kind: "schema", Executor: "postgres", DurationMS: 3},
		{Statement: "CREATE TYPE public.status AS ENUM ('1', '2');", Target: "public.status", Kind: "enum", Executor: "postgres"},
		{Statement: "CREATE TABLE app.t (id SERIAL PRIMARY KEY);", Target: "app.t", Kind: "table", Executor: "postgres", IsError: true},
	}
	for _, e := range entries {
		if err := l.Record(e); err != nil {
			t.Fatalf("Record error = %v", err)
		}
	}

	got, err := l.Recent(10)
	if err != nil {
		t.Fatalf("Recent error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Recent returned %d entries, want 3", len(got))
	}
	// Most recent first.
	if got[0].Target != "app.t" || !got[0].IsError {
		t.Errorf("Recent[0] = %+v, want the failed table entry", got[0])
	}
	if got[2].Kind != "schema" || got[2].DurationMS != 3 {
		t.Errorf("Recent[2] = %+v, want the schema entry", got[2])
	}
	if got[0].AppliedAt.IsZero() {
		t.Error("AppliedAt not filled in")
	}
}

func TestSearch(t *testing.T) {
	l := openTemp(t)

	stmts := []string{
		"CREATE SCHEMA IF NOT EXISTS app;",
		"CREATE TYPE public.status AS ENUM ('1');",
		"CREATE TABLE app.t (id integer);",
	}
	for _, s := range stmts {
		if err := l.Record(Entry{Statement: s}); err != nil {
			t.Fatalf("Record error = %v", err)
		}
	}

	got, err := l.Search("%TYPE%", 10)
	if err != nil {
		t.Fatalf("Search error = %v", err)
	}
	if len(got) != 1 || got[0].Statement != stmts[1] {
		t.Errorf("Search(%%TYPE%%) = %+v, want the enum statement", got)
	}
}

func TestClear(t *testing.T) {
	l := openTemp(t)

	if err := l.Record(Entry{Statement: "CREATE TABLE t (x integer);"}); err != nil {
		t.Fatalf("Record error = %v", err)
	}
	if err := l.Clear(); err != nil {
		t.Fatalf("Clear error = %v", err)
	}

	got, err := l.Recent(10)
	if err != nil {
		t.Fatalf("Recent error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Recent after Clear returned %d entries, want 0", len(got))
	}
}

func TestNilLog(t *testing.T) {
	var l *Log
	if err := l.Record(Entry{Statement: "x"}); err != nil {
		t.Errorf("nil Record error = %v, want nil", err)
	}
	if err := l.Close(); err != nil {
		t.Errorf("nil Close error = %v, want nil", err)
	}
}
