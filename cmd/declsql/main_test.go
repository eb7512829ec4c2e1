package main

import (
	"strings"
	"testing"

	"github.com/linga/declsql/internal/config"
)

func TestResolveTargetFillsDefaultPort(t *testing.T) {
	cfg := &config.Config{Connections: []config.SavedConnection{
		{Name: "prod", Executor: "postgres", Host: "db.internal", User: "admin", Database: "app"},
	}}

	name, dsn, display, err := resolveTarget(cfg, "", "", "prod")
	if err != nil {
		t.Fatalf("resolveTarget error = %v", err)
	}
	if name != "postgres" {
		t.Errorf("name = %q, want postgres", name)
	}
	if dsn != "postgres://admin@db.internal:5432/app" {
		t.Errorf("dsn = %q, want the registered default port filled in", dsn)
	}
	if display != "postgres://db.internal:5432/app" {
		t.Errorf("display = %q", display)
	}
}

func TestResolveTargetSQLiteConnection(t *testing.T) {
	cfg := &config.Config{Connections: []config.SavedConnection{
		{Name: "local", Executor: "sqlite", File: "/tmp/app.db"},
	}}

	name, dsn, display, err := resolveTarget(cfg, "", "", "local")
	if err != nil {
		t.Fatalf("resolveTarget error = %v", err)
	}
	if name != "sqlite" || dsn != "/tmp/app.db" {
		t.Errorf("resolved %q %q", name, dsn)
	}
	if display != "sqlite:///tmp/app.db" {
		t.Errorf("display = %q", display)
	}
}

func TestResolveTargetFlagsWin(t *testing.T) {
	cfg := &config.Config{
		Executor: "postgres",
		DSN:      "postgres://config/db",
		Connections: []config.SavedConnection{
			{Name: "prod", Executor: "postgres", Host: "db.internal"},
		},
	}

	name, dsn, _, err := resolveTarget(cfg, "sqlite", "./flag.db", "prod")
	if err != nil {
		t.Fatalf("resolveTarget error = %v", err)
	}
	if name != "sqlite" || dsn != "./flag.db" {
		t.Errorf("resolved %q %q, want flag values", name, dsn)
	}
}

func TestResolveTargetErrors(t *testing.T) {
	cfg := config.DefaultConfig()

	if _, _, _, err := resolveTarget(cfg, "", "", "missing"); err == nil {
		t.Error("unknown connection accepted")
	}
	if _, _, _, err := resolveTarget(cfg, "", "", ""); err == nil {
		t.Error("empty target accepted")
	}
	if _, _, _, err := resolveTarget(cfg, "oracle", "dsn://x", ""); err == nil ||
		!strings.Contains(err.Error(), "unknown executor") {
		t.Errorf("err = %v, want unknown executor", err)
	}
}

func TestDetectExecutor(t *testing.T) {
	tests := []struct {
		dsn  string
		want string
	}{
		{"postgres://localhost/db", "postgres"},
		{"postgresql://localhost/db", "postgres"},
		{"sqlite:///tmp/app.db", "sqlite"},
		{"./data.sqlite3", "sqlite"},
		{"file:app.db", "sqlite"},
		{"user:pass@host/db", "postgres"},
		{"plain", ""},
	}
	for _, tt := range tests {
		if got := detectExecutor(tt.dsn); got != tt.want {
			t.Errorf("detectExecutor(%q) = %q, want %q", tt.dsn, got, tt.want)
		}
	}
}
