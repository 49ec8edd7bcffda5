package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot is the golden form of a scenario run.
type Snapshot struct {
	Scenario string  `json:"scenario"`
	Trace    []Entry `json:"trace"`
	Chat     []chat  `json:"chat,omitempty"`
}

type chat struct {
	User string `json:"user"`
	Text string `json:"text"`
}

// SnapshotBytes renders the golden bytes for a run: indented JSON with a
// trailing newline.
func SnapshotBytes(sc *Scenario, res *Result) ([]byte, error) {
	snap := Snapshot{Scenario: sc.Name, Trace: res.Trace}
	for _, m := range res.Chat {
		snap.Chat = append(snap.Chat, chat{User: m.UserID, Text: m.Text})
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// GoldenPath returns golden/<file name>.golden next to the scenario file.
func GoldenPath(scenarioFile string) string {
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(scenarioFile), "golden", name+".golden")
}

// UpdateGolden writes the snapshot of res as the scenario's golden file.
func UpdateGolden(scenarioFile string, sc *Scenario, res *Result) error {
	data, err := SnapshotBytes(sc, res)
	if err != nil {
		return err
	}
	path := GoldenPath(scenarioFile)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create golden directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write golden file: %w", err)
	}
	return nil
}

// CompareGolden reports whether res matches the scenario's golden file.
// A missing golden file is reported as os.ErrNotExist.
func CompareGolden(scenarioFile string, sc *Scenario, res *Result) (bool, error) {
	want, err := os.ReadFile(GoldenPath(scenarioFile))
	if err != nil {
		return false, err
	}
	got, err := SnapshotBytes(sc, res)
	if err != nil {
		return false, err
	}
	return bytes.Equal(want, got), nil
}

// AssertGolden compares the run against the scenario's golden file.
// Regenerate with: go test ./internal/harness -update
func AssertGolden(t *testing.T, scenarioFile string, sc *Scenario, res *Result) {
	t.Helper()
	data, err := SnapshotBytes(sc, res)
	if err != nil {
		t.Fatal(err)
	}
	path := GoldenPath(scenarioFile)
	g := goldie.New(t,
		goldie.WithFixtureDir(filepath.Dir(path)),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, strings.TrimSuffix(filepath.Base(path), ".golden"), data)
}

// FindScenarios lists the .yaml/.yml files under dir whose base name
// matches the glob filter (all when filter is empty).
func FindScenarios(dir, filter string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "golden" {
				return filepath.SkipDir
			}
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			matched, err := filepath.Match(filter, strings.TrimSuffix(filepath.Base(path), ext))
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	return files, err
}
