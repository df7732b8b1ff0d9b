package db

import (
	"embed"
	"errors"
	"fmt"

	"github.com/coaltrack/apiserver/config"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// NewMigrator builds a migrator over the embedded schema migrations.
// Callers must Close it.
func NewMigrator(cfg config.DatabaseConfig) (*migrate.Migrate, error) {
	if !cfg.Configured() {
		return nil, ErrUnavailable
	}

	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}
	migrator, err := migrate.NewWithSourceInstance("iofs", source, BuildPostgresURL(cfg))
	if err != nil {
		return nil, fmt.Errorf("init migrator failed: %w", err)
	}
	return migrator, nil
}

// MigrateUp applies every pending migration. An up-to-date schema is not an
// error.
func MigrateUp(cfg config.DatabaseConfig) error {
	migrator, err := NewMigrator(cfg)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = migrator.Close()
	}()

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up failed: %w", err)
	}
	return nil
}

// MigrateDown rolls back the given number of migrations, or all of them
// when steps is zero.
func MigrateDown(cfg config.DatabaseConfig, steps int) error {
	migrator, err := NewMigrator(cfg)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = migrator.Close()
	}()

	if steps > 0 {
		err = migrator.Steps(-steps)
	} else {
		err = migrator.Down()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate down failed: %w", err)
	}
	return nil
}
