package persistence

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // PostgreSQL driver
	_ "github.com/golang-migrate/migrate/v4/source/file"       // File source driver
)

// RunMigrations applies the wallet ledger schema from migrationsPath (e.g. migrations/postgres).
func RunMigrations(databaseURL string, migrationsPath string) error {
	sourceURL, err := migrationSource(databaseURL, migrationsPath)
	if err != nil {
		return err
	}

	m, err := migrate.New(sourceURL, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	sourceErr, dbErr := m.Close()
	if sourceErr != nil {
		return fmt.Errorf("migration source error: %w", sourceErr)
	}
	if dbErr != nil {
		return fmt.Errorf("migration database error: %w", dbErr)
	}

	return nil
}

func migrationSource(databaseURL, migrationsPath string) (string, error) {
	if migrationsPath == "" {
		return "", errors.New("migrations path cannot be empty")
	}
	if databaseURL == "" {
		return "", errors.New("database URL cannot be empty")
	}
	return fmt.Sprintf("file://%s", migrationsPath), nil
}
