package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gmslots/internal/config"
)

// env is an isolated CLI environment: its own database and no config file.
type env struct {
	t  *testing.T
	db string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	t.Setenv(config.PathEnv, "")
	return &env{t: t, db: filepath.Join(t.TempDir(), "gmslots.db")}
}

type outcome struct {
	stdout string
	stderr string
	err    error
}

func (o outcome) code() int {
	return GetExitCode(o.err)
}

func (e *env) run(args ...string) outcome {
	e.t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--db", e.db, "--world", "testdata/world.yaml"}, args...))
	err := cmd.Execute()
	return outcome{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

// ok runs args and requires success.
func (e *env) ok(args ...string) string {
	e.t.Helper()
	out := e.run(args...)
	require.NoError(e.t, out.err, "stdout: %s\nstderr: %s", out.stdout, out.stderr)
	return out.stdout
}

// data decodes the data payload of a JSON response.
func data(t *testing.T, stdout string, v any) {
	t.Helper()
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp), stdout)
	require.Equal(t, "ok", resp.Status)
	require.NoError(t, json.Unmarshal(resp.Data, v))
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "gmslots", cmd.Use)

	for _, name := range []string{"slot", "policy", "check", "run", "hub", "serve", "request", "history", "test"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, "command %s should exist", name)
		assert.Equal(t, name, sub.Name())
	}
	for _, name := range []string{"list", "show", "add", "delete", "enable", "disable", "rename", "edit", "note", "players", "import", "export"} {
		sub, _, err := cmd.Find([]string{"slot", name})
		require.NoError(t, err, "slot %s should exist", name)
		assert.Equal(t, name, sub.Name())
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()
	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)
	assert.Equal(t, "text", cmd.PersistentFlags().Lookup("format").DefValue)
	for _, name := range []string{"config", "db", "module", "world"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
}

func TestInvalidFormat(t *testing.T) {
	e := newEnv(t)
	out := e.run("--format", "xml", "slot", "list")
	require.Error(t, out.err)
	assert.Equal(t, ExitCommandError, out.code())
}

func TestConfigFileAndFlags(t *testing.T) {
	e := newEnv(t)
	path := filepath.Join(t.TempDir(), "gmslots.toml")
	require.NoError(t, os.WriteFile(path, []byte(`module = "house-rules"`), 0o644))

	e.ok("--config", path, "slot", "add", "Heal")
	assert.Contains(t, e.ok("--config", path, "slot", "list"), "Heal")
	assert.Contains(t, e.ok("slot", "list"), "No slots.", "default module is a different namespace")
	assert.Contains(t, e.ok("--config", path, "--module", "gm-slots", "slot", "list"), "No slots.", "flag wins over file")
}

func TestExitError(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(os.ErrNotExist))
	err := WrapExitError(ExitCommandError, "failed to open database", os.ErrPermission)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.ErrorIs(t, err, os.ErrPermission)
	assert.Equal(t, "failed to open database: permission denied", err.Error())
}
