package database

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"

	"github.com/voyagedesk/inventory-sync/internal/logger"
)

// MigrateUp applies numSteps pending migrations, or all of them when numSteps is 0
func MigrateUp(connString string, numSteps uint) error {
	return run(connString, func(m Migrator) error {
		if numSteps == 0 {
			return m.Up()
		}
		return m.Steps(int(numSteps))
	})
}

// MigrateDown reverts numSteps migrations, or all of them when numSteps is 0
func MigrateDown(connString string, numSteps uint) error {
	return run(connString, func(m Migrator) error {
		if numSteps == 0 {
			return m.Down()
		}
		return m.Steps(-int(numSteps))
	})
}

// GetVersion returns the current schema version and whether it is dirty
func GetVersion(connString string) (uint, bool, error) {
	m, err := NewFromConnectionString(connString)
	if err != nil {
		return 0, false, err
	}
	defer closeMigrator(m)

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func run(connString string, fn func(Migrator) error) error {
	m, err := NewFromConnectionString(connString)
	if err != nil {
		return err
	}
	defer closeMigrator(m)

	if err := fn(m); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

func closeMigrator(m Migrator) {
	srcErr, dbErr := m.Close()
	if srcErr != nil {
		logger.Warnf("Error closing migration source: %v", srcErr)
	}
	if dbErr != nil {
		logger.Warnf("Error closing migration database: %v", dbErr)
	}
}
