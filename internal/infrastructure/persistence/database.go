package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/apibase/backend/internal/infrastructure/config"
	"github.com/apibase/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ErrDisabled is returned by database operations when no connection string
// was configured and the persistence layer runs in disabled mode.
var ErrDisabled = errors.New("persistence is disabled: no database url configured")

// Database wraps the GORM handle the layers above persist through.
// A Database opened without a connection string is disabled: the application
// still boots, but every operation reports ErrDisabled.
type Database struct {
	DB *gorm.DB
}

// Open creates a database handle from the configured connection string.
// The driver is selected from the URL scheme: postgres:// and postgresql://
// use the PostgreSQL driver, sqlite:// (as well as file: URLs, bare *.db
// paths and :memory:) use SQLite. An empty URL degrades to a disabled
// handle instead of failing startup.
func Open(cfg *config.DatabaseConfig, log *zap.Logger) (*Database, error) {
	if !cfg.Enabled() {
		return NewDisabled(), nil
	}

	dialector, isSQLite, err := dialectorFor(cfg.URL)
	if err != nil {
		return nil, err
	}

	logLevel := gormlogger.Warn
	if cfg.LogQueries {
		logLevel = gormlogger.Info
	}
	var opts []logger.GormLoggerOption
	if cfg.SlowQueryThreshold > 0 {
		opts = append(opts, logger.WithSlowThreshold(cfg.SlowQueryThreshold))
	}
	gormLog := logger.NewGormLogger(log, logLevel, opts...)

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gormLog,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		TranslateError:         true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	d := &Database{DB: db}
	sqlDB, err := d.sqlDB()
	if err != nil {
		return nil, err
	}

	if isSQLite {
		// A single shared connection: SQLite serializes writers anyway, and
		// an in-memory database exists per connection.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return d, nil
}

// NewDisabled returns a database handle in disabled mode.
func NewDisabled() *Database {
	return &Database{}
}

// dialectorFor picks the GORM dialector from the connection URL.
func dialectorFor(rawURL string) (gorm.Dialector, bool, error) {
	switch {
	case strings.HasPrefix(rawURL, "postgres://"), strings.HasPrefix(rawURL, "postgresql://"):
		return postgres.Open(rawURL), false, nil
	case strings.HasPrefix(rawURL, "sqlite://"):
		return sqlite.Open(strings.TrimPrefix(rawURL, "sqlite://")), true, nil
	case rawURL == ":memory:", strings.HasPrefix(rawURL, "file:"), strings.HasSuffix(rawURL, ".db"):
		return sqlite.Open(rawURL), true, nil
	default:
		return nil, false, fmt.Errorf("unsupported database url scheme: %q", schemeOf(rawURL))
	}
}

// schemeOf extracts the scheme portion of a URL for error messages without
// echoing credentials.
func schemeOf(rawURL string) string {
	if i := strings.Index(rawURL, "://"); i > 0 {
		return rawURL[:i]
	}
	return rawURL
}

// Enabled reports whether the handle is backed by a real connection.
func (d *Database) Enabled() bool {
	return d.DB != nil
}

// Session returns a context-scoped handle for a unit of work. Panics when
// persistence is disabled: routes that reach for the database without
// checking Enabled are a programming error in the filled-in application.
func (d *Database) Session(ctx context.Context) *gorm.DB {
	if d.DB == nil {
		panic(ErrDisabled)
	}
	return d.DB.WithContext(ctx)
}

// sqlDB unwraps the plain sql.DB underneath GORM.
func (d *Database) sqlDB() (*sql.DB, error) {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("unwrap sql.DB: %w", err)
	}
	return sqlDB, nil
}

// Close releases the connection pool. Closing a disabled handle is a no-op.
func (d *Database) Close() error {
	if d.DB == nil {
		return nil
	}
	sqlDB, err := d.sqlDB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping verifies the connection is still alive.
func (d *Database) Ping() error {
	if d.DB == nil {
		return ErrDisabled
	}
	sqlDB, err := d.sqlDB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Stats snapshots the connection pool counters.
func (d *Database) Stats() (ConnectionStats, error) {
	if d.DB == nil {
		return ConnectionStats{}, ErrDisabled
	}
	sqlDB, err := d.sqlDB()
	if err != nil {
		return ConnectionStats{}, err
	}
	stats := sqlDB.Stats()
	return ConnectionStats{
		MaxOpenConnections: stats.MaxOpenConnections,
		OpenConnections:    stats.OpenConnections,
		InUse:              stats.InUse,
		Idle:               stats.Idle,
		WaitCount:          stats.WaitCount,
		WaitDuration:       stats.WaitDuration,
		MaxIdleClosed:      stats.MaxIdleClosed,
		MaxIdleTimeClosed:  stats.MaxIdleTimeClosed,
		MaxLifetimeClosed:  stats.MaxLifetimeClosed,
	}, nil
}

// ConnectionStats mirrors the sql.DBStats pool counters.
type ConnectionStats struct {
	MaxOpenConnections int
	OpenConnections    int
	InUse              int
	Idle               int
	WaitCount          int64
	WaitDuration       time.Duration
	MaxIdleClosed      int64
	MaxIdleTimeClosed  int64
	MaxLifetimeClosed  int64
}

// Transaction runs fn inside a transaction, committing on nil and rolling
// back on error or panic.
func (d *Database) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if d.DB == nil {
		return ErrDisabled
	}
	return d.DB.WithContext(ctx).Transaction(fn)
}

// AutoMigrate creates or updates tables for the given models. With no
// arguments it migrates every registered model.
func (d *Database) AutoMigrate(models ...any) error {
	if d.DB == nil {
		return ErrDisabled
	}
	if len(models) == 0 {
		models = RegisteredModels()
	}
	if len(models) == 0 {
		return nil
	}
	return d.DB.AutoMigrate(models...)
}
