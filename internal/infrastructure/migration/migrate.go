// Package migration runs versioned SQL migrations with golang-migrate.
// SQL migrations target PostgreSQL; SQLite databases are provisioned
// through GORM AutoMigrate instead.
package migration

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

// Migrator wraps a migrate instance with logging.
type Migrator struct {
	migrate *migrate.Migrate
	logger  *zap.Logger
}

// New creates a Migrator over an open PostgreSQL connection.
func New(db *sql.DB, migrationsPath string, logger *zap.Logger) (*Migrator, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("create postgres driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrate instance: %w", err)
	}

	return &Migrator{migrate: m, logger: logger}, nil
}

// NewFromURL creates a Migrator that opens its own connection from a
// database URL.
func NewFromURL(databaseURL, migrationsPath string, logger *zap.Logger) (*Migrator, error) {
	m, err := migrate.New("file://"+migrationsPath, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create migrate instance: %w", err)
	}

	return &Migrator{migrate: m, logger: logger}, nil
}

// apply runs fn and absorbs ErrNoChange. The returned flag reports whether
// any migration actually ran.
func (m *Migrator) apply(action string, fn func() error) (bool, error) {
	err := fn()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, migrate.ErrNoChange):
		return false, nil
	default:
		return false, fmt.Errorf("%s failed: %w", action, err)
	}
}

// currentVersion reads the schema version, treating a pristine database as
// version zero.
func (m *Migrator) currentVersion() (uint, bool, error) {
	version, dirty, err := m.migrate.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read migration version: %w", err)
	}
	return version, dirty, nil
}

// Up runs all pending migrations.
func (m *Migrator) Up() error {
	m.logger.Info("Applying pending migrations")

	changed, err := m.apply("migration up", m.migrate.Up)
	if err != nil {
		return err
	}
	if !changed {
		m.logger.Info("Schema already up to date")
		return nil
	}

	version, dirty, err := m.currentVersion()
	if err != nil {
		return err
	}
	m.logger.Info("Migrations completed", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

// Down rolls back all migrations.
func (m *Migrator) Down() error {
	m.logger.Info("Rolling back all migrations")

	changed, err := m.apply("migration down", m.migrate.Down)
	if err != nil {
		return err
	}
	if !changed {
		m.logger.Info("No applied migrations to roll back")
		return nil
	}

	m.logger.Info("Schema rolled back to empty")
	return nil
}

// Steps applies n migrations (positive = up, negative = down).
func (m *Migrator) Steps(n int) error {
	m.logger.Info("Applying migration steps", zap.Int("steps", n))

	changed, err := m.apply("migration steps", func() error { return m.migrate.Steps(n) })
	if err != nil {
		return err
	}
	if !changed {
		m.logger.Info("Schema already up to date")
		return nil
	}

	version, dirty, err := m.currentVersion()
	if err != nil {
		return err
	}
	m.logger.Info("Migration steps completed", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

// Goto migrates up or down until the schema sits at exactly version.
func (m *Migrator) Goto(version uint) error {
	m.logger.Info("Migrating to target version", zap.Uint("target", version))

	changed, err := m.apply("migration goto", func() error { return m.migrate.Migrate(version) })
	if err != nil {
		return err
	}
	if !changed {
		m.logger.Info("Schema already at target version")
		return nil
	}

	m.logger.Info("Target version reached", zap.Uint("version", version))
	return nil
}

// Version returns the current migration version. A database with no applied
// migrations reports version zero.
func (m *Migrator) Version() (uint, bool, error) {
	return m.currentVersion()
}

// Force sets the migration version without running migrations.
// Only for recovering from a dirty database state.
func (m *Migrator) Force(version int) error {
	m.logger.Warn("Overriding schema version", zap.Int("version", version))

	if err := m.migrate.Force(version); err != nil {
		return fmt.Errorf("force version %d: %w", version, err)
	}

	m.logger.Info("Schema version overridden", zap.Int("version", version))
	return nil
}

// Drop drops every object in the database.
func (m *Migrator) Drop() error {
	m.logger.Warn("Dropping all database objects")

	if err := m.migrate.Drop(); err != nil {
		return fmt.Errorf("drop database: %w", err)
	}

	m.logger.Info("Database objects dropped")
	return nil
}

// Close closes the migrator and releases resources.
func (m *Migrator) Close() error {
	sourceErr, dbErr := m.migrate.Close()
	if sourceErr != nil {
		return fmt.Errorf("close migration source: %w", sourceErr)
	}
	if dbErr != nil {
		return fmt.Errorf("close migration database: %w", dbErr)
	}
	return nil
}
