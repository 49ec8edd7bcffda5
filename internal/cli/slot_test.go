package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gmslots/internal/core"
	"github.com/roach88/gmslots/internal/slots"
)

func TestSlotLifecycle(t *testing.T) {
	e := newEnv(t)

	assert.Contains(t, e.ok("slot", "list"), "No slots.")
	assert.Contains(t, e.ok("slot", "add", "Heal"), "on Heal (players: default)")
	e.ok("slot", "add", "aid")

	assert.Equal(t, "on   aid\non   Heal\n", e.ok("slot", "list"))

	dup := e.run("slot", "add", "HEAL")
	assert.Equal(t, ExitFailure, dup.code())
	assert.Contains(t, dup.stdout, "Error [DUPLICATE_NAME]")

	e.ok("slot", "edit", "Heal", "--file", "testdata/heal.lua")
	e.ok("slot", "note", "Heal", "restores", "hit", "points")
	assert.Contains(t, e.ok("slot", "players", "Heal", "deny"), "(players: deny)")
	assert.Contains(t, e.ok("slot", "disable", "aid"), "off aid")

	var sl core.Slot
	data(t, e.ok("--format", "json", "slot", "show", "heal"), &sl)
	assert.Equal(t, "Heal", sl.Name)
	assert.Equal(t, "restores hit points", sl.Note)
	require.NotNil(t, sl.PlayersCanRun)
	assert.False(t, *sl.PlayersCanRun)
	assert.Contains(t, sl.Code, "function run(ctx)")

	show := e.ok("slot", "show", "Heal")
	assert.Contains(t, show, "Form:    module")
	assert.Contains(t, show, "Note:    restores hit points")

	var list []slotSummary
	data(t, e.ok("--format", "json", "slot", "list"), &list)
	require.Len(t, list, 2)
	assert.Equal(t, "aid", list[0].Name)
	assert.False(t, list[0].Enabled)

	e.ok("slot", "rename", "aid", "First Aid")
	e.ok("slot", "delete", "Heal")
	assert.Equal(t, "off  First Aid\n", e.ok("slot", "list"))

	missing := e.run("slot", "delete", "Heal")
	assert.Equal(t, ExitFailure, missing.code())
	assert.Contains(t, missing.stdout, "NOT_FOUND")
}

func TestSlotEdit_Flags(t *testing.T) {
	e := newEnv(t)
	e.ok("slot", "add", "Ping")

	assert.Equal(t, ExitCommandError, e.run("slot", "edit", "Ping").code())
	assert.Equal(t, ExitCommandError, e.run("slot", "edit", "Ping", "--code", "x", "--file", "f.lua").code())

	out := e.run("slot", "edit", "Ping", "--code", "return (")
	require.NoError(t, out.err, "broken code is still saved")
	assert.Contains(t, out.stderr, "warning:")
	assert.Contains(t, out.stderr, "COMPILE_ERROR")
}

func TestSlotPlayers_InvalidSetting(t *testing.T) {
	e := newEnv(t)
	e.ok("slot", "add", "Ping")
	assert.Equal(t, ExitCommandError, e.run("slot", "players", "Ping", "sometimes").code())
	assert.Contains(t, e.ok("slot", "players", "Ping", "allow"), "(players: allow)")
	assert.Contains(t, e.ok("slot", "players", "Ping", "default"), "(players: default)")
}

func TestSlotExportImport(t *testing.T) {
	e := newEnv(t)
	e.ok("slot", "add", "Heal")
	e.ok("slot", "add", "Smite")
	e.ok("slot", "edit", "Smite", "--code", `ctx.notify("smite!")`)

	file := filepath.Join(t.TempDir(), "slots.json")
	assert.Contains(t, e.ok("slot", "export", "-o", file), "Exported 2 slot(s)")

	raw, err := os.ReadFile(file)
	require.NoError(t, err)
	records, err := slots.ParseImport(raw, slots.FormatJSON)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	e.ok("slot", "delete", "Heal")
	e.ok("slot", "delete", "Smite")
	e.ok("slot", "add", "Other")

	assert.Contains(t, e.ok("slot", "import", file), "Imported 2 slot(s)")
	assert.Equal(t, "on   Heal\non   Smite\n", e.ok("slot", "list"))

	yamlOut := e.ok("slot", "export", "--yaml")
	assert.Contains(t, yamlOut, "module: gm-slots")
	assert.Contains(t, yamlOut, "name: Smite")
}

func TestSlotImport_ReportsDrops(t *testing.T) {
	e := newEnv(t)
	file := filepath.Join(t.TempDir(), "slots.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
- {name: Heal, enabled: true, code: "return 1"}
- {name: heal, enabled: true, code: "return 2"}
- {name: "", code: "return 3"}
`), 0o644))

	out := e.ok("slot", "import", file)
	assert.Contains(t, out, "Imported 1 slot(s)")
	assert.Contains(t, out, "dropped [1] heal")
	assert.Contains(t, out, "dropped [2] (unnamed)")

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`"just a string"`), 0o644))
	res := e.run("slot", "import", bad)
	assert.Equal(t, ExitFailure, res.code())
	assert.Contains(t, res.stdout, "INVALID_IMPORT")
	assert.Equal(t, "on   Heal\n", e.ok("slot", "list"), "a rejected document changes nothing")
}
