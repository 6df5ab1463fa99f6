package database

import (
	"database/sql"

	_ "github.com/lib/pq"
)

// PostgresDialect implements Dialect for PostgreSQL
type PostgresDialect struct{}

// NewPostgresDialect creates a new PostgreSQL dialect
func NewPostgresDialect() *PostgresDialect {
	return &PostgresDialect{}
}

func (d *PostgresDialect) DriverName() string {
	return "postgres"
}

func (d *PostgresDialect) DSN(config DialectConfig) string {
	return config.URL
}

func (d *PostgresDialect) RewriteQuery(query string) string {
	// PostgreSQL uses $1, $2, etc. instead of ?
	return rewritePlaceholdersToNumbered(query)
}

func (d *PostgresDialect) ConfigureConnection(db *sql.DB) error {
	configurePool(db)
	return nil
}

func (d *PostgresDialect) GooseDialect() string {
	return "postgres"
}

func (d *PostgresDialect) MigrationsSubdir() string {
	return "postgres"
}

func (d *PostgresDialect) UpsertKV() string {
	return "INSERT INTO kv_store (store_key, store_value, updated_at) VALUES (?, ?, ?) " +
		"ON CONFLICT (store_key) DO UPDATE SET store_value = EXCLUDED.store_value, updated_at = EXCLUDED.updated_at"
}
