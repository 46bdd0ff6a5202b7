package postgres

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // postgres:// driver
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// NewMigrator creates a migrator for the SQL files at the root of fsys.
func NewMigrator(databaseURL string, fsys fs.FS) (*migrate.Migrate, error) {
	source, err := iofs.New(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("create migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}

	return m, nil
}

// MigrateUp applies all pending migrations. It is a no-op when the schema is current.
func MigrateUp(databaseURL string, fsys fs.FS) error {
	return run(databaseURL, fsys, (*migrate.Migrate).Up)
}

// MigrateDown rolls back all migrations.
func MigrateDown(databaseURL string, fsys fs.FS) error {
	return run(databaseURL, fsys, (*migrate.Migrate).Down)
}

func run(databaseURL string, fsys fs.FS, step func(*migrate.Migrate) error) error {
	m, err := NewMigrator(databaseURL, fsys)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	if err := step(m); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}
