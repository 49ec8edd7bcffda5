// Package config loads process settings: defaults, then an optional TOML
// file, then GMSLOTS_* environment variables. Command-line flags are
// applied last by the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "GMSLOTS_"

// PathEnv names the config file when --config is not given.
const PathEnv = EnvPrefix + "CONFIG"

// Config holds process-wide settings.
type Config struct {
	ModuleID  string `toml:"module" env:"MODULE"`
	Database  string `toml:"database" env:"DB"`
	Listen    string `toml:"listen" env:"LISTEN"`
	HubURL    string `toml:"hub" env:"HUB"`
	UserID    string `toml:"user" env:"USER"`
	WorldFile string `toml:"world" env:"WORLD"`
	LogLevel  string `toml:"log_level" env:"LOG_LEVEL"`
	LogFormat string `toml:"log_format" env:"LOG_FORMAT"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		ModuleID:  "gm-slots",
		Database:  "gmslots.db",
		Listen:    ":8080",
		HubURL:    "ws://localhost:8080/v1/ws",
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load builds a Config from defaults, the TOML file at path (or $GMSLOTS_CONFIG
// when path is empty), and the environment. A missing file is an error only
// when a path was named.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(PathEnv)
	}
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	var raw Config
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("load config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}

	set := func(key string, dst *string, v string) {
		if meta.IsDefined(key) {
			*dst = strings.TrimSpace(v)
		}
	}
	set("module", &cfg.ModuleID, raw.ModuleID)
	set("database", &cfg.Database, raw.Database)
	set("listen", &cfg.Listen, raw.Listen)
	set("hub", &cfg.HubURL, raw.HubURL)
	set("user", &cfg.UserID, raw.UserID)
	set("world", &cfg.WorldFile, raw.WorldFile)
	set("log_level", &cfg.LogLevel, raw.LogLevel)
	set("log_format", &cfg.LogFormat, raw.LogFormat)
	return nil
}

// Validate reports settings that cannot work.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.ModuleID) == "" {
		errs = append(errs, errors.New("module id must not be empty"))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log format %q: want text or json", c.LogFormat))
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log level %q: want debug, info, warn or error", c.LogLevel))
	}
	return errors.Join(errs...)
}
