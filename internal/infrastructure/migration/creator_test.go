package migration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writePair drops an up/down fixture pair into dir.
func writePair(t *testing.T, dir, base string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, base+".up.sql"), []byte("-- up"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, base+".down.sql"), []byte("-- down"), 0o644))
}

func TestSanitizeName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"add records table", "add_records_table"},
		{"Drop-Stale-Sessions", "drop_stale_sessions"},
		{"RENAME_OWNER_COLUMN", "rename_owner_column"},
		{"add__records__index", "add_records_index"},
		{"Phase 2 Cleanup", "phase_2_cleanup"},
		{"   spaces   ", "spaces"},
		{"cost!@#$model", "costmodel"},
		{"trailing_", "trailing"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, sanitizeName(tc.in))
		})
	}
}

func TestCreate(t *testing.T) {
	t.Run("writes a matching pair", func(t *testing.T) {
		dir := t.TempDir()

		mf, err := Create(dir, "add records table", "Create records table with base columns")
		require.NoError(t, err)
		require.NotNil(t, mf)

		// Version is a sortable YYYYMMDDHHMMSS stamp.
		assert.Len(t, mf.Version, 14)
		assert.True(t, strings.HasSuffix(mf.UpPath, ".up.sql"))
		assert.True(t, strings.HasSuffix(mf.DownPath, ".down.sql"))

		upBase := strings.TrimSuffix(filepath.Base(mf.UpPath), ".up.sql")
		downBase := strings.TrimSuffix(filepath.Base(mf.DownPath), ".down.sql")
		assert.Equal(t, upBase, downBase)
	})

	t.Run("seeds both files from the templates", func(t *testing.T) {
		mf, err := Create(t.TempDir(), "add records table", "Create records table with base columns")
		require.NoError(t, err)

		up, err := os.ReadFile(mf.UpPath)
		require.NoError(t, err)
		assert.Contains(t, string(up), "add records table")
		assert.Contains(t, string(up), "Create records table with base columns")
		assert.Contains(t, string(up), "Write your UP migration SQL here")

		down, err := os.ReadFile(mf.DownPath)
		require.NoError(t, err)
		assert.Contains(t, string(down), "Rollback")
		assert.Contains(t, string(down), "Write your DOWN migration SQL here")
	})

	t.Run("creates the directory on demand", func(t *testing.T) {
		nested := filepath.Join(t.TempDir(), "db", "migrations")

		_, err := Create(nested, "init", "initial schema")
		require.NoError(t, err)

		info, err := os.Stat(nested)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})
}

func TestList(t *testing.T) {
	t.Run("returns each pair once", func(t *testing.T) {
		dir := t.TempDir()
		writePair(t, dir, "000001_init_schema")
		writePair(t, dir, "000002_add_records")
		writePair(t, dir, "000003_add_indexes")

		names, err := List(dir)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{
			"000001_init_schema",
			"000002_add_records",
			"000003_add_indexes",
		}, names)
	})

	t.Run("empty directory lists nothing", func(t *testing.T) {
		names, err := List(t.TempDir())
		require.NoError(t, err)
		assert.Empty(t, names)
	})

	t.Run("missing directory lists nothing", func(t *testing.T) {
		names, err := List(filepath.Join(t.TempDir(), "never-created"))
		require.NoError(t, err)
		assert.Empty(t, names)
	})

	t.Run("skips files that are not migrations", func(t *testing.T) {
		dir := t.TempDir()
		writePair(t, dir, "000001_init")
		for _, f := range []string{"README.md", "schema.yaml", ".gitkeep"} {
			require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte("x"), 0o644))
		}

		names, err := List(dir)
		require.NoError(t, err)
		assert.Equal(t, []string{"000001_init"}, names)
	})

	t.Run("skips directories", func(t *testing.T) {
		dir := t.TempDir()
		writePair(t, dir, "000001_init")
		require.NoError(t, os.Mkdir(filepath.Join(dir, "archive.up.sql"), 0o755))

		names, err := List(dir)
		require.NoError(t, err)
		assert.Len(t, names, 1)
	})
}
