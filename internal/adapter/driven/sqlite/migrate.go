package sqlite

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// The credentials and scan_history tables ship inside the binary so a CI
// runner needs nothing but the scangate executable.
//
//go:embed migrations/*.sql
var schemaFS embed.FS

// Migrate brings the history database up to the latest embedded schema and
// returns the resulting schema version. Pipelines that share one history
// file across scangate releases only ever move forward.
func Migrate(db *sql.DB) (uint, error) {
	src, err := iofs.New(schemaFS, "migrations")
	if err != nil {
		return 0, fmt.Errorf("load schema migrations: %w", err)
	}

	target, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return 0, fmt.Errorf("prepare history database for migration: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", target)
	if err != nil {
		return 0, fmt.Errorf("init schema migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("migrate history schema: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("history schema version %d is dirty; delete the database file to rebuild it", version)
	}
	return version, nil
}
