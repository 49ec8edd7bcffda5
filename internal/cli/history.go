package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/gmslots/internal/store"
)

// NewHistoryCommand creates the history command: the execution audit log.
func NewHistoryCommand(opts *RootOptions) *cobra.Command {
	var filter store.ExecutionFilter
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent slot runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := opts.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			runs, err := st.ReadExecutions(cmd.Context(), filter)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read history", err)
			}
			var b strings.Builder
			for _, r := range runs {
				fmt.Fprintf(&b, "%s  #%-4d %-7s %-20s %-10s %-6s",
					r.StartedAt.UTC().Format(time.RFC3339), r.Seq, r.Status, r.Slot, r.UserID, r.Origin)
				if r.Code != "" {
					fmt.Fprintf(&b, " %s: %s", r.Code, r.Message)
				}
				b.WriteByte('\n')
			}
			if len(runs) == 0 {
				b.WriteString("No runs recorded.")
			}
			return opts.formatter(cmd).Success(strings.TrimSuffix(b.String(), "\n"), runs)
		},
	}
	cmd.Flags().StringVar(&filter.Slot, "slot", "", "only runs of this slot")
	cmd.Flags().StringVar(&filter.UserID, "user", "", "only runs requested by this user")
	cmd.Flags().IntVar(&filter.Limit, "limit", 20, "show at most this many runs (0 for all)")
	return cmd
}
