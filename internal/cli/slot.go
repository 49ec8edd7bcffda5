package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/gmslots/internal/compiler"
	"github.com/roach88/gmslots/internal/core"
	"github.com/roach88/gmslots/internal/slots"
)

// NewSlotCommand creates the slot command group: the operator surface of
// the slot store.
func NewSlotCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slot",
		Short: "Manage script slots",
	}
	cmd.AddCommand(
		newSlotListCommand(opts),
		newSlotShowCommand(opts),
		newSlotAddCommand(opts),
		newSlotDeleteCommand(opts),
		newSlotToggleCommand(opts, "enable", true),
		newSlotToggleCommand(opts, "disable", false),
		newSlotRenameCommand(opts),
		newSlotEditCommand(opts),
		newSlotNoteCommand(opts),
		newSlotPlayersCommand(opts),
		newSlotImportCommand(opts),
		newSlotExportCommand(opts),
	)
	return cmd
}

// slotSummary is the list view of a slot.
type slotSummary struct {
	Name          string `json:"name"`
	Enabled       bool   `json:"enabled"`
	PlayersCanRun *bool  `json:"playersCanRun,omitempty"`
	Note          string `json:"note,omitempty"`
}

func newSlotListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List slots in display order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSlots(func(st *slots.Store) error {
				all, err := st.All(cmd.Context())
				if err != nil {
					return slotError("failed to list slots", err)
				}
				out := make([]slotSummary, len(all))
				var b strings.Builder
				for i, sl := range all {
					out[i] = slotSummary{Name: sl.Name, Enabled: sl.Enabled, PlayersCanRun: sl.PlayersCanRun, Note: sl.Note}
					fmt.Fprintf(&b, "%-4s %s", onOff(sl.Enabled), sl.Name)
					if sl.Note != "" {
						fmt.Fprintf(&b, "  # %s", sl.Note)
					}
					b.WriteByte('\n')
				}
				if len(all) == 0 {
					b.WriteString("No slots.\n")
				}
				return opts.formatter(cmd).Success(strings.TrimSuffix(b.String(), "\n"), out)
			})
		},
	}
}

func newSlotShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show a slot and its code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSlots(func(st *slots.Store) error {
				sl, err := st.Get(cmd.Context(), args[0])
				if err != nil {
					return opts.formatter(cmd).reportCoded("cannot show slot", err)
				}
				var b strings.Builder
				fmt.Fprintf(&b, "Name:    %s\n", sl.Name)
				fmt.Fprintf(&b, "Enabled: %t\n", sl.Enabled)
				fmt.Fprintf(&b, "Players: %s\n", playersLabel(sl.PlayersCanRun))
				fmt.Fprintf(&b, "Form:    %s\n", compiler.Detect(sl.Code))
				if sl.Note != "" {
					fmt.Fprintf(&b, "Note:    %s\n", sl.Note)
				}
				fmt.Fprintf(&b, "Digest:  %s\n\n", core.MustSlotDigest(sl))
				b.WriteString(sl.Code)
				return opts.formatter(cmd).Success(strings.TrimRight(b.String(), "\n"), sl)
			})
		},
	}
}

func newSlotAddCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <name>",
		Short: "Create an enabled slot with template code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutateSlot(cmd, opts, "cannot add slot", func(ctx context.Context, st *slots.Store) (core.Slot, error) {
				return st.Add(ctx, args[0])
			})
		},
	}
}

func newSlotDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a slot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSlots(func(st *slots.Store) error {
				if err := st.Delete(cmd.Context(), args[0]); err != nil {
					return opts.formatter(cmd).reportCoded("cannot delete slot", err)
				}
				return opts.formatter(cmd).Success(fmt.Sprintf("Deleted %s", args[0]), map[string]string{"deleted": args[0]})
			})
		},
	}
}

func newSlotToggleCommand(opts *RootOptions, verb string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <name>",
		Short: strings.ToUpper(verb[:1]) + verb[1:] + " a slot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutateSlot(cmd, opts, "cannot "+verb+" slot", func(ctx context.Context, st *slots.Store) (core.Slot, error) {
				return st.SetEnabled(ctx, args[0], enabled)
			})
		},
	}
}

func newSlotRenameCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <old> <new>",
		Short: "Rename a slot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutateSlot(cmd, opts, "cannot rename slot", func(ctx context.Context, st *slots.Store) (core.Slot, error) {
				return st.Rename(ctx, args[0], args[1])
			})
		},
	}
}

func newSlotEditCommand(opts *RootOptions) *cobra.Command {
	var file, code string
	cmd := &cobra.Command{
		Use:   "edit <name>",
		Short: "Replace a slot's code",
		Long: `Replace a slot's code from a file or the --code flag.

The code is saved even when it does not compile; a warning names the
problem so the slot can be fixed before anyone runs it.

Examples:
  gmslots slot edit Heal --file heal.lua
  gmslots slot edit Ping --code 'ctx.notify("pong")'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (file == "") == (code == "") {
				return NewExitError(ExitCommandError, "exactly one of --file or --code is required")
			}
			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to read code", err)
				}
				code = string(data)
			}
			return mutateSlot(cmd, opts, "cannot edit slot", func(ctx context.Context, st *slots.Store) (core.Slot, error) {
				sl, err := st.SetCode(ctx, args[0], code)
				if err == nil {
					if _, cerr := compiler.Compile(sl.Name, sl.Code); cerr != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", cerr)
					}
				}
				return sl, err
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "read code from file")
	cmd.Flags().StringVar(&code, "code", "", "code text")
	return cmd
}

func newSlotNoteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "note <name> [text...]",
		Short: "Set or clear a slot's note",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutateSlot(cmd, opts, "cannot set note", func(ctx context.Context, st *slots.Store) (core.Slot, error) {
				return st.SetNote(ctx, args[0], strings.Join(args[1:], " "))
			})
		},
	}
}

func newSlotPlayersCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "players <name> allow|deny|default",
		Short: "Set whether players may run a slot",
		Long: `Set the per-slot player override.

  allow    players may run it, subject to the ownership and presence policies
  deny     only the game master may run it
  default  no override; the policies decide`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var allowed *bool
			switch strings.ToLower(args[1]) {
			case "allow":
				allowed = core.Bool(true)
			case "deny":
				allowed = core.Bool(false)
			case "default":
			default:
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid setting %q: want allow, deny or default", args[1]))
			}
			return mutateSlot(cmd, opts, "cannot set players", func(ctx context.Context, st *slots.Store) (core.Slot, error) {
				return st.SetPlayersCanRun(ctx, args[0], allowed)
			})
		},
	}
}

func newSlotImportCommand(opts *RootOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace all slots with the contents of a file",
		Long: `Replace the whole slot collection with an export file, a list of
slot records, or a mapping of name to record (JSON or YAML).

Invalid records, blank names and repeated names are dropped and listed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read import file", err)
			}
			records, err := slots.ParseImport(data, slots.Format(format))
			if err != nil {
				return opts.formatter(cmd).reportCoded("cannot import", err)
			}
			return opts.withSlots(func(st *slots.Store) error {
				report, err := st.ReplaceAll(cmd.Context(), records)
				if err != nil {
					return slotError("import failed", err)
				}
				var b strings.Builder
				fmt.Fprintf(&b, "Imported %d slot(s)", len(report.Imported))
				for _, d := range report.Dropped {
					name := d.Name
					if name == "" {
						name = "(unnamed)"
					}
					fmt.Fprintf(&b, "\n  dropped %s %s: %s", d.Source, name, d.Reason)
				}
				return opts.formatter(cmd).Success(b.String(), report)
			})
		},
	}
	cmd.Flags().StringVar(&format, "input-format", "", "document format (json|yaml, default: detect)")
	return cmd
}

func newSlotExportCommand(opts *RootOptions) *cobra.Command {
	var output string
	var asYAML bool
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all slots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSlots(func(st *slots.Store) error {
				snap, err := st.Export(cmd.Context())
				if err != nil {
					return slotError("export failed", err)
				}
				format := slots.FormatJSON
				if asYAML {
					format = slots.FormatYAML
				}
				data, err := slots.EncodeSnapshot(snap, format)
				if err != nil {
					return WrapExitError(ExitCommandError, "encode export", err)
				}
				if output == "" {
					_, err := cmd.OutOrStdout().Write(data)
					return err
				}
				if err := os.WriteFile(output, data, 0o644); err != nil {
					return WrapExitError(ExitCommandError, "failed to write export", err)
				}
				return opts.formatter(cmd).Success(
					fmt.Sprintf("Exported %d slot(s) to %s", len(snap.Slots), output),
					map[string]any{"file": output, "slots": len(snap.Slots), "digest": snap.Digest},
				)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "export as YAML")
	return cmd
}

// mutateSlot runs one slot mutation and reports the resulting slot.
func mutateSlot(cmd *cobra.Command, opts *RootOptions, failure string, fn func(context.Context, *slots.Store) (core.Slot, error)) error {
	return opts.withSlots(func(st *slots.Store) error {
		sl, err := fn(cmd.Context(), st)
		if err != nil {
			return opts.formatter(cmd).reportCoded(failure, err)
		}
		return opts.formatter(cmd).Success(
			fmt.Sprintf("%s %s (players: %s)", onOff(sl.Enabled), sl.Name, playersLabel(sl.PlayersCanRun)), sl)
	})
}

func onOff(enabled bool) string {
	if enabled {
		return "on"
	}
	return "off"
}

func playersLabel(v *bool) string {
	switch {
	case v == nil:
		return "default"
	case *v:
		return "allow"
	default:
		return "deny"
	}
}
