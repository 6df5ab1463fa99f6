package database

import (
	"database/sql"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLDialect implements Dialect for MySQL
type MySQLDialect struct{}

// NewMySQLDialect creates a new MySQL dialect
func NewMySQLDialect() *MySQLDialect {
	return &MySQLDialect{}
}

func (d *MySQLDialect) DriverName() string {
	return "mysql"
}

// DSN expects a go-sql-driver style URL; parseTime is required to scan DATETIME columns
func (d *MySQLDialect) DSN(config DialectConfig) string {
	return config.URL
}

func (d *MySQLDialect) RewriteQuery(query string) string {
	return query
}

func (d *MySQLDialect) ConfigureConnection(db *sql.DB) error {
	configurePool(db)
	return nil
}

func (d *MySQLDialect) GooseDialect() string {
	return "mysql"
}

func (d *MySQLDialect) MigrationsSubdir() string {
	return "mysql"
}

func (d *MySQLDialect) UpsertKV() string {
	return "INSERT INTO kv_store (store_key, store_value, updated_at) VALUES (?, ?, ?) " +
		"ON DUPLICATE KEY UPDATE store_value = VALUES(store_value), updated_at = VALUES(updated_at)"
}
