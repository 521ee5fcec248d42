package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/apibase/backend/internal/infrastructure/config"
	"github.com/apibase/backend/internal/infrastructure/logger"
	"github.com/apibase/backend/internal/infrastructure/migration"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const defaultMigrationsPath = "migrations"

func main() {
	pathFlag := flag.String("path", "", "Path to migrations directory (default: ./migrations)")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command, commandArgs := args[0], args[1:]

	log := mustLogger(*logLevel)
	defer func() {
		_ = log.Sync()
	}()

	migrationsPath, err := resolveMigrationsPath(*pathFlag)
	if err != nil {
		log.Fatal("Migrations path resolution failed", zap.Error(err))
	}

	log.Info("Migration CLI started",
		zap.String("command", command),
		zap.String("migrations_path", migrationsPath),
	)

	switch command {
	case "create":
		runCreate(log, migrationsPath, commandArgs)

	case "list":
		runList(log, migrationsPath)

	case "up", "down", "step", "goto", "version", "force", "drop":
		m, cleanup := mustMigrator(log, migrationsPath)
		defer cleanup()
		runDatabaseCommand(log, m, command, commandArgs)

	default:
		log.Error("Unknown command", zap.String("command", command))
		printUsage()
		os.Exit(1)
	}
}

// mustLogger builds the console logger for CLI output, exiting on failure.
func mustLogger(level string) *zap.Logger {
	log, err := logger.New(&logger.Config{
		Level:      level,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "migrate: logger setup: %v\n", err)
		os.Exit(1)
	}
	return log
}

// resolveMigrationsPath turns the -path flag into an absolute path, probing
// the default locations when the flag is empty.
func resolveMigrationsPath(flagValue string) (string, error) {
	path := flagValue
	if path == "" {
		path = findMigrationsPath()
	}
	return filepath.Abs(path)
}

// findMigrationsPath looks for the migrations directory in the working
// directory first, then next to the executable.
func findMigrationsPath() string {
	if _, err := os.Stat(defaultMigrationsPath); err == nil {
		return defaultMigrationsPath
	}

	if execPath, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(execPath), "..", "..", defaultMigrationsPath)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return defaultMigrationsPath
}

// mustMigrator loads the configuration, connects to PostgreSQL and builds a
// Migrator. The returned cleanup closes both the migrator and the connection.
// create and list never come through here, so file-only commands work without
// a configured database.
func mustMigrator(log *zap.Logger, migrationsPath string) (*migration.Migrator, func()) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Configuration load failed", zap.Error(err))
	}

	dbURL := cfg.Database.URL
	if dbURL == "" {
		log.Fatal("No database configured. Set APIBASE_DATABASE_URL to a postgres:// URL.")
	}
	if !strings.HasPrefix(dbURL, "postgres://") && !strings.HasPrefix(dbURL, "postgresql://") {
		log.Fatal("SQL migrations require a PostgreSQL database",
			zap.String("url", cfg.Database.RedactedURL()),
		)
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatal("Database connection failed", zap.Error(err))
	}
	if err := db.Ping(); err != nil {
		log.Fatal("Database is unreachable", zap.Error(err))
	}

	m, err := migration.New(db, migrationsPath, log)
	if err != nil {
		log.Fatal("Migrator setup failed", zap.Error(err))
	}

	return m, func() {
		_ = m.Close()
		_ = db.Close()
	}
}

func runCreate(log *zap.Logger, migrationsPath string, args []string) {
	if len(args) == 0 {
		log.Fatal("Migration name required. Usage: migrate create <name> [description]")
	}
	description := ""
	if len(args) > 1 {
		description = args[1]
	}

	mf, err := migration.Create(migrationsPath, args[0], description)
	if err != nil {
		log.Fatal("Writing migration files failed", zap.Error(err))
	}

	log.Info("Migration created",
		zap.String("version", mf.Version),
		zap.String("up_file", mf.UpPath),
		zap.String("down_file", mf.DownPath),
	)
}

func runList(log *zap.Logger, migrationsPath string) {
	migrations, err := migration.List(migrationsPath)
	if err != nil {
		log.Fatal("Listing migrations failed", zap.Error(err))
	}
	if len(migrations) == 0 {
		log.Info("No migrations found")
		return
	}

	log.Info("Available migrations", zap.Int("count", len(migrations)))
	for _, name := range migrations {
		fmt.Println("  -", name)
	}
}

func runDatabaseCommand(log *zap.Logger, m *migration.Migrator, command string, args []string) {
	switch command {
	case "up":
		if err := m.Up(); err != nil {
			log.Fatal("Apply failed", zap.Error(err))
		}

	case "down":
		if err := m.Down(); err != nil {
			log.Fatal("Rollback failed", zap.Error(err))
		}

	case "step":
		n := intArg(log, args, "Step count required. Usage: migrate step <n>")
		if err := m.Steps(n); err != nil {
			log.Fatal("Step failed", zap.Error(err))
		}

	case "goto":
		v := intArg(log, args, "Version required. Usage: migrate goto <version>")
		if v < 0 {
			log.Fatal("Version must not be negative", zap.Int("version", v))
		}
		if err := m.Goto(uint(v)); err != nil {
			log.Fatal("Goto failed", zap.Error(err))
		}

	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			log.Fatal("Version lookup failed", zap.Error(err))
		}
		if version == 0 {
			log.Info("Schema has no applied migrations")
			return
		}
		log.Info("Current schema version",
			zap.Uint("version", version),
			zap.Bool("dirty", dirty),
		)

	case "force":
		version := intArg(log, args, "Version required. Usage: migrate force <version>")
		log.Warn("Overriding the recorded version without running migrations")
		if err := m.Force(version); err != nil {
			log.Fatal("Version override failed", zap.Error(err))
		}

	case "drop":
		if !hasConfirmFlag(args) {
			log.Fatal("Refusing to drop. Re-run as 'migrate drop -confirm' to proceed.")
		}
		if err := m.Drop(); err != nil {
			log.Fatal("Dropping database objects failed", zap.Error(err))
		}
	}
}

func intArg(log *zap.Logger, args []string, usage string) int {
	if len(args) == 0 {
		log.Fatal(usage)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		log.Fatal("Invalid numeric argument", zap.String("value", args[0]))
	}
	return n
}

func hasConfirmFlag(args []string) bool {
	for _, arg := range args {
		if arg == "-confirm" || arg == "--confirm" {
			return true
		}
	}
	return false
}

func printUsage() {
	fmt.Println(`Schema migration tool for apibase.

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                    Apply every pending migration
  down                  Roll the schema back to empty
  step <n>              Apply n migrations, negative n rolls back
  goto <version>        Migrate up or down to an exact version
  version               Print the current schema version
  force <version>       Override the recorded version (repair tool)
  drop -confirm         Drop every object in the database (DANGEROUS)
  create <name> [desc]  Write a new up/down migration pair
  list                  Show the migration files on disk

Flags:
  -path string          Migrations directory (default: ./migrations)
  -log-level string     debug, info, warn or error (default: info)

Environment:
  APIBASE_DATABASE_URL  PostgreSQL connection URL

Examples:
  migrate up
  migrate step -1
  migrate create add_records_table "Create records table"
  migrate version`)
}
