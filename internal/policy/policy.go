// Package policy reads and writes the world-level authorization policy.
//
// The policy is never cached: Read goes to the settings collaborator on
// every call so an operator's change applies to the very next request.
package policy

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/gmslots/internal/store"
)

// Settings keys under the module.
const (
	KeyRequireOwnership = "requireOwnership"
	KeyRequirePresence  = "requirePresence"
)

// Config is the world-scoped policy.
type Config struct {
	// RequireOwnership demands an owned target entity for non-GM requests.
	RequireOwnership bool `json:"requireOwnership"`
	// RequirePresence demands the target have a token on the active scene.
	RequirePresence bool `json:"requirePresence"`
}

// Default is the policy used for keys that were never written.
func Default() Config {
	return Config{RequireOwnership: true, RequirePresence: false}
}

// Source reads and writes the policy for one module.
type Source struct {
	settings store.Settings
	module   string
}

// NewSource creates a policy source.
func NewSource(settings store.Settings, module string) *Source {
	return &Source{settings: settings, module: module}
}

// Read returns the current policy.
func (s *Source) Read(ctx context.Context) (Config, error) {
	cfg := Default()
	var err error
	if cfg.RequireOwnership, err = s.readBool(ctx, KeyRequireOwnership, cfg.RequireOwnership); err != nil {
		return Config{}, err
	}
	if cfg.RequirePresence, err = s.readBool(ctx, KeyRequirePresence, cfg.RequirePresence); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Write stores both policy flags.
func (s *Source) Write(ctx context.Context, cfg Config) error {
	if err := s.SetOwnership(ctx, cfg.RequireOwnership); err != nil {
		return err
	}
	return s.SetPresence(ctx, cfg.RequirePresence)
}

// SetOwnership stores the ownership requirement.
func (s *Source) SetOwnership(ctx context.Context, v bool) error {
	return s.writeBool(ctx, KeyRequireOwnership, v)
}

// SetPresence stores the presence requirement.
func (s *Source) SetPresence(ctx context.Context, v bool) error {
	return s.writeBool(ctx, KeyRequirePresence, v)
}

func (s *Source) readBool(ctx context.Context, key string, def bool) (bool, error) {
	raw, ok, err := s.settings.Get(ctx, s.module, key)
	if err != nil {
		return false, fmt.Errorf("read policy %s: %w", key, err)
	}
	if !ok {
		return def, nil
	}
	var v bool
	if err := json.Unmarshal(raw, &v); err != nil {
		return false, fmt.Errorf("decode policy %s: %w", key, err)
	}
	return v, nil
}

func (s *Source) writeBool(ctx context.Context, key string, v bool) error {
	raw, _ := json.Marshal(v)
	if err := s.settings.Set(ctx, s.module, key, raw); err != nil {
		return fmt.Errorf("write policy %s: %w", key, err)
	}
	return nil
}
