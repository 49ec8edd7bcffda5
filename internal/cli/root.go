// Package cli implements the gmslots command line.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/gmslots/internal/config"
	"github.com/roach88/gmslots/internal/logging"
)

// RootOptions holds global flags and the resolved configuration.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string

	database string
	module   string
	world    string

	Config config.Config
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the gmslots CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "gmslots",
		Short: "gmslots - game master script slots",
		Long: `Manage and run game-master-authored Lua script slots.

Slots are stored per module in a SQLite settings database. The game master
runs them directly; players send run requests over the websocket hub and
the game master's process executes them after an authorization check.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	pf.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	pf.StringVar(&opts.ConfigPath, "config", "", "path to TOML config file (default $GMSLOTS_CONFIG)")
	pf.StringVar(&opts.database, "db", "", "path to SQLite database")
	pf.StringVar(&opts.module, "module", "", "module id (settings namespace and relay channel)")
	pf.StringVar(&opts.world, "world", "", "path to world YAML file")

	cmd.AddCommand(NewSlotCommand(opts))
	cmd.AddCommand(NewPolicyCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewHubCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewRequestCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// resolve validates flags, loads the configuration and applies explicit
// flags on top of it.
func (o *RootOptions) resolve(cmd *cobra.Command) error {
	if !isValidFormat(o.Format) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", o.Format, ValidFormats))
	}
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.Database = o.database
	}
	if flags.Changed("module") {
		cfg.ModuleID = o.module
	}
	if flags.Changed("world") {
		cfg.WorldFile = o.world
	}
	o.Config = cfg
	o.Logger = logging.New(logging.Options{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Verbose: o.Verbose,
		Output:  cmd.ErrOrStderr(),
	})
	return nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
