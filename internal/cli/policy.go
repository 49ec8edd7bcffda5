package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/gmslots/internal/policy"
)

// NewPolicyCommand creates the policy command group.
func NewPolicyCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Show or change the world authorization policies",
	}
	cmd.AddCommand(newPolicyShowCommand(opts), newPolicySetCommand(opts))
	return cmd
}

func newPolicyShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the current policies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := opts.openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			cfg, err := policy.NewSource(st, opts.Config.ModuleID).Read(cmd.Context())
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read policy", err)
			}
			return opts.formatter(cmd).Success(policyText(cfg), cfg)
		},
	}
}

func newPolicySetCommand(opts *RootOptions) *cobra.Command {
	var ownership, presence bool
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change policies",
		Long: `Change one or both policies. Unspecified policies keep their value.

Examples:
  gmslots policy set --ownership=false
  gmslots policy set --presence`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if !flags.Changed("ownership") && !flags.Changed("presence") {
				return NewExitError(ExitCommandError, "nothing to set: pass --ownership and/or --presence")
			}
			st, err := opts.openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			src := policy.NewSource(st, opts.Config.ModuleID)
			cfg, err := src.Read(cmd.Context())
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read policy", err)
			}
			if flags.Changed("ownership") {
				cfg.RequireOwnership = ownership
			}
			if flags.Changed("presence") {
				cfg.RequirePresence = presence
			}
			if err := src.Write(cmd.Context(), cfg); err != nil {
				return WrapExitError(ExitCommandError, "failed to write policy", err)
			}
			return opts.formatter(cmd).Success(policyText(cfg), cfg)
		},
	}
	cmd.Flags().BoolVar(&ownership, "ownership", true, "require the requester to own the target actor")
	cmd.Flags().BoolVar(&presence, "presence", false, "require the target to have a token on the active scene")
	return cmd
}

func policyText(cfg policy.Config) string {
	return fmt.Sprintf("require ownership: %t\nrequire presence:  %t", cfg.RequireOwnership, cfg.RequirePresence)
}
