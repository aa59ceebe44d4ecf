package persistence

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadMigrationsOrdersSQLFilesByVersion(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"010_late.sql", "002_second.sql", "001_init.sql", "README.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "003_dir.sql"), 0o700))

	migrations, err := LoadMigrations(dir)
	require.NoError(t, err)

	versions := make([]string, 0, len(migrations))
	for _, m := range migrations {
		versions = append(versions, m.Version)
	}
	assert.Equal(t, []string{"001_init", "002_second", "010_late"}, versions)
	assert.Equal(t, filepath.Join(dir, "001_init.sql"), migrations[0].Path)
}

func TestLoadMigrationsMissingDir(t *testing.T) {
	_, err := LoadMigrations(filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}

func TestRunMigrationsWithoutPoolIsNoop(t *testing.T) {
	assert.NoError(t, RunMigrations(context.Background(), nil, "does-not-matter", zap.NewNop()))
}
