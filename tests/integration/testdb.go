//go:build integration

// Package integration exercises the persistence layer against a real
// PostgreSQL instance started with testcontainers. Run with:
//
//	go test -tags integration ./tests/integration/...
package integration

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"github.com/apibase/backend/internal/infrastructure/config"
	"github.com/apibase/backend/internal/infrastructure/persistence"
)

const (
	postgresImage  = "postgres:16-alpine"
	startupTimeout = 60 * time.Second
)

// TestDB wraps a database opened through the application's session
// factory against a throwaway PostgreSQL container.
type TestDB struct {
	*persistence.Database
	t *testing.T
}

// NewTestDB starts a container, opens a handle against it and migrates
// the given models. Everything is torn down when the test finishes.
func NewTestDB(t *testing.T, models ...any) *TestDB {
	t.Helper()

	db, err := persistence.Open(&config.DatabaseConfig{
		URL:             startPostgres(t),
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
	}, zaptest.NewLogger(t))
	require.NoError(t, err, "open database against container")
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("close database: %v", err)
		}
	})

	if len(models) > 0 {
		require.NoError(t, db.AutoMigrate(models...), "migrate test models")
	}

	return &TestDB{Database: db, t: t}
}

// startPostgres runs a disposable PostgreSQL container and returns its DSN.
func startPostgres(t *testing.T) string {
	t.Helper()

	ctx := context.Background()
	ready := wait.ForLog("database system is ready to accept connections").
		WithOccurrence(2).
		WithStartupTimeout(startupTimeout)

	container, err := tcpostgres.Run(ctx, postgresImage,
		tcpostgres.WithDatabase("apibase_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(ready),
	)
	require.NoError(t, err, "start PostgreSQL container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "resolve container DSN")
	return dsn
}

// CleanTables truncates every application table so subtests sharing a
// container start from an empty schema.
func (tdb *TestDB) CleanTables() {
	tdb.t.Helper()

	var tables []string
	err := tdb.DB.
		Table("pg_tables").
		Where("schemaname = ?", "public").
		Where("tablename <> ?", "schema_migrations").
		Pluck("tablename", &tables).Error
	require.NoError(tdb.t, err, "list tables")

	if len(tables) == 0 {
		return
	}
	// One statement so foreign keys between the tables cannot interfere.
	err = tdb.DB.Exec("TRUNCATE TABLE " + strings.Join(tables, ", ") + " RESTART IDENTITY CASCADE").Error
	require.NoError(tdb.t, err, "truncate tables")
}

// WithTransaction runs fn inside a transaction that is always rolled
// back, for tests that must not leave state behind.
func (tdb *TestDB) WithTransaction(fn func(tx *gorm.DB)) {
	tdb.t.Helper()

	tx := tdb.DB.Begin()
	require.NoError(tdb.t, tx.Error, "begin transaction")
	defer tx.Rollback()

	fn(tx)
}
