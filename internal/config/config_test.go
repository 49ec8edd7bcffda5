package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gmslots.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(PathEnv, "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeFile(t, `
module = "house-rules"
database = "/var/lib/gmslots.db"
user = "gm"
log_level = "debug"
`)
	t.Setenv("GMSLOTS_USER", "alice")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "house-rules", cfg.ModuleID)
	assert.Equal(t, "/var/lib/gmslots.db", cfg.Database)
	assert.Equal(t, "alice", cfg.UserID, "environment wins over the file")
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, ":8080", cfg.Listen, "unset keys keep their default")
}

func TestLoad_PathFromEnv(t *testing.T) {
	path := writeFile(t, `listen = ":9090"`)
	t.Setenv(PathEnv, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Listen)
}

func TestLoad_Errors(t *testing.T) {
	t.Setenv(PathEnv, "")

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, `colour = "blue"`))
	assert.ErrorContains(t, err, "unknown keys colour")

	_, err = Load(writeFile(t, `log_format = "xml"`))
	assert.ErrorContains(t, err, "log format")

	_, err = Load(writeFile(t, `module = "  "`))
	assert.ErrorContains(t, err, "module id")
}
