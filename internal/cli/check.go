package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/gmslots/internal/compiler"
)

// NewCheckCommand creates the check command: compile a Lua file without
// running it.
func NewCheckCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check <file.lua>",
		Short: "Compile slot code without running it",
		Long: `Compile a Lua file the way a slot would be compiled and report its
authoring form (body or module) or the compile error.

Exit codes:
  0 - Compiles
  1 - COMPILE_ERROR or MISSING_ENTRY_POINT
  2 - File cannot be read`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read file", err)
			}
			name := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			prog, err := compiler.Compile(name, string(src))
			if err != nil {
				return opts.formatter(cmd).reportCoded("compile failed", err)
			}
			return opts.formatter(cmd).Success(
				fmt.Sprintf("✓ %s compiles (%s form)", name, prog.Form()),
				map[string]string{"name": name, "form": prog.Form().String()},
			)
		},
	}
}
