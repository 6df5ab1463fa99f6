package database

import (
	"strings"
	"testing"

	"fourall/internal/config"
)

func TestDialectSQLite(t *testing.T) {
	dialect := NewSQLiteDialect()

	t.Run("DriverName", func(t *testing.T) {
		if got := dialect.DriverName(); got != "sqlite3" {
			t.Errorf("DriverName() = %v, want sqlite3", got)
		}
	})

	t.Run("RewriteQuery", func(t *testing.T) {
		query := "SELECT * FROM kv_store WHERE store_key = ?"
		if got := dialect.RewriteQuery(query); got != query {
			t.Errorf("RewriteQuery() = %v, want unchanged", got)
		}
	})

	t.Run("GooseDialect", func(t *testing.T) {
		if got := dialect.GooseDialect(); got != "sqlite3" {
			t.Errorf("GooseDialect() = %v, want sqlite3", got)
		}
	})
}

func TestDialectPostgreSQL(t *testing.T) {
	dialect := NewPostgresDialect()

	t.Run("DriverName", func(t *testing.T) {
		if got := dialect.DriverName(); got != "postgres" {
			t.Errorf("DriverName() = %v, want postgres", got)
		}
	})

	t.Run("MigrationsSubdir", func(t *testing.T) {
		if got := dialect.MigrationsSubdir(); got != "postgres" {
			t.Errorf("MigrationsSubdir() = %v, want postgres", got)
		}
	})

	t.Run("UpsertKV placeholders", func(t *testing.T) {
		got := dialect.RewriteQuery(dialect.UpsertKV())
		for _, p := range []string{"$1", "$2", "$3"} {
			if !strings.Contains(got, p) {
				t.Errorf("rewritten upsert missing %s: %s", p, got)
			}
		}
	})
}

func TestDialectMySQL(t *testing.T) {
	dialect := NewMySQLDialect()

	if got := dialect.DriverName(); got != "mysql" {
		t.Errorf("DriverName() = %v, want mysql", got)
	}
	if !strings.Contains(dialect.UpsertKV(), "ON DUPLICATE KEY UPDATE") {
		t.Errorf("UpsertKV() = %v, want ON DUPLICATE KEY form", dialect.UpsertKV())
	}
}

func TestRewritePlaceholdersToNumbered(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"no placeholders", "SELECT * FROM kv_store", "SELECT * FROM kv_store"},
		{"single placeholder", "SELECT * FROM kv_store WHERE store_key = ?", "SELECT * FROM kv_store WHERE store_key = $1"},
		{
			"multiple placeholders",
			"UPDATE queued_actions SET status = ?, retry_count = ? WHERE id = ?",
			"UPDATE queued_actions SET status = $1, retry_count = $2 WHERE id = $3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rewritePlaceholdersToNumbered(tt.input); got != tt.expected {
				t.Errorf("rewritePlaceholdersToNumbered() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestDialectFor(t *testing.T) {
	tests := []struct {
		dbType  string
		driver  string
		wantErr bool
	}{
		{"", "sqlite3", false},
		{"sqlite", "sqlite3", false},
		{"PostgreSQL", "postgres", false},
		{"mysql", "mysql", false},
		{"oracle", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.dbType, func(t *testing.T) {
			d, _, err := DialectFor(config.Database{Type: tt.dbType})
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if d.DriverName() != tt.driver {
				t.Errorf("driver = %s, want %s", d.DriverName(), tt.driver)
			}
		})
	}
}
