package database

import (
	"embed"
	"fmt"
	"path"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*/*.sql
var migrationsFS embed.FS

// RunMigrations applies every pending migration for the connection's dialect
func (db *DB) RunMigrations() error {
	goose.SetBaseFS(migrationsFS)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect(db.Dialect.GooseDialect()); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}

	dir := path.Join("migrations", db.Dialect.MigrationsSubdir())
	if err := goose.Up(db.DB, dir); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
