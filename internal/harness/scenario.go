package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/gmslots/internal/core"
	"github.com/roach88/gmslots/internal/world"
)

// Scenario is one conformance scenario.
type Scenario struct {
	Name        string          `yaml:"name"`
	Description string          `yaml:"description"`
	Policy      *PolicyOverride     `yaml:"policy,omitempty"`
	World       *world.Document `yaml:"world,omitempty"`
	Slots       []core.Slot     `yaml:"slots"`
	Steps       []Step          `yaml:"steps"`
}

// PolicyOverride overrides the default policies. Nil fields keep the default.
type PolicyOverride struct {
	Ownership *bool `yaml:"ownership,omitempty"`
	Presence  *bool `yaml:"presence,omitempty"`
}

// Step runs one slot as one user.
type Step struct {
	Run    string         `yaml:"run"`
	As     string         `yaml:"as"`
	Actor  string         `yaml:"actor,omitempty"`
	Args   map[string]any `yaml:"args,omitempty"`
	Remote bool           `yaml:"remote,omitempty"`
	Expect *Expect        `yaml:"expect,omitempty"`
}

// Expect checks a step outcome. Code "" with a nil Result only requires
// success.
type Expect struct {
	Code   core.Code `yaml:"code,omitempty"`
	Result *any      `yaml:"result,omitempty"`
}

// LoadScenario reads a scenario file, rejecting unknown fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates a scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := validateScenario(&sc); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &sc, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	for i, sl := range s.Slots {
		if core.CleanName(sl.Name) == "" {
			return fmt.Errorf("slots[%d]: name is required", i)
		}
	}
	for i, st := range s.Steps {
		if st.Run == "" {
			return fmt.Errorf("steps[%d]: run is required", i)
		}
		if st.As == "" {
			return fmt.Errorf("steps[%d]: as is required", i)
		}
		if st.Expect != nil && st.Expect.Code != "" && st.Expect.Result != nil {
			return fmt.Errorf("steps[%d].expect: code and result are exclusive", i)
		}
	}
	return nil
}
