package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gmslots/internal/core"
)

func TestOutputFormatter_JSON(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &buf}

	require.NoError(t, f.Success("ignored in json", map[string]int{"slots": 2}))
	assert.JSONEq(t, `{"status":"ok","data":{"slots":2}}`, buf.String())

	buf.Reset()
	require.NoError(t, f.Error("NOT_FOUND", "no such slot", nil))
	assert.JSONEq(t, `{"status":"error","error":{"code":"NOT_FOUND","message":"no such slot"}}`, buf.String())
}

func TestOutputFormatter_Text(t *testing.T) {
	var out, diag bytes.Buffer
	f := &OutputFormatter{Format: "text", Writer: &out, ErrWriter: &diag, Verbose: true}

	require.NoError(t, f.Success("on Heal", nil))
	f.VerboseLog("opened %s", "gmslots.db")
	assert.Equal(t, "on Heal\n", out.String())
	assert.Equal(t, "opened gmslots.db\n", diag.String())

	out.Reset()
	require.NoError(t, f.Error("NOT_OWNER", "you do not own Hero", map[string]string{"actor": "hero"}))
	assert.Equal(t, "Error [NOT_OWNER]: you do not own Hero\nDetails: map[actor:hero]\n", out.String())
}

func TestReportCoded(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &buf}

	err := f.reportCoded("slot \"Heal\"", &core.Error{
		Code: core.CodeRuntimeError, Message: "boom",
		Details: map[string]string{"traceback": "stack traceback:"},
	})
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "RUNTIME_ERROR", resp.Error.Code)
	assert.Equal(t, `slot "Heal": boom`, resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)

	buf.Reset()
	err = f.reportCoded("cannot add slot", assert.AnError)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "E_COMMAND")
}
