package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/gmslots/internal/core"
	"github.com/roach88/gmslots/internal/notify"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	As    string
	Args  string
	Actor string
}

// runOutput is the JSON payload of a successful run.
type runOutput struct {
	Slot   string              `json:"slot"`
	User   string              `json:"user"`
	Result any                 `json:"result"`
	Chat   []map[string]string `json:"chat,omitempty"`
}

// NewRunCommand creates the run command: execute a slot in this process.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <slot>",
		Short: "Run a slot locally",
		Long: `Run a slot in this process against the world file, as the given user.

The request goes through the same authorization gate as a relayed one; the
game master bypasses it. World changes made by the script are not written
back to the world file.

Examples:
  gmslots run Heal --world table.yaml --as alice --actor hero
  gmslots run Heal --world table.yaml --as gm --args '{"amount": 5, "actorId": "goblin"}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSlot(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.As, "as", "", "requesting user id (default: configured user)")
	cmd.Flags().StringVar(&opts.Args, "args", "{}", "slot arguments as a JSON object")
	cmd.Flags().StringVar(&opts.Actor, "actor", "", "target actor id")

	return cmd
}

func runSlot(opts *RunOptions, name string, cmd *cobra.Command) error {
	user, err := opts.requireUser(opts.As)
	if err != nil {
		return err
	}
	args, err := parseArgs(opts.Args)
	if err != nil {
		return err
	}
	w, err := opts.loadWorld()
	if err != nil {
		return err
	}
	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	f := opts.formatter(cmd)
	eng, err := opts.newEngine(cmd.Context(), st, w, &printSink{w: f.GetErrWriter(), user: user})
	if err != nil {
		return err
	}
	result, err := eng.Run(cmd.Context(), core.Request{Slot: name, Args: args, UserID: user, ActorID: opts.Actor})
	if err != nil {
		return f.reportCoded(fmt.Sprintf("slot %q", name), err)
	}

	out := runOutput{Slot: name, User: user, Result: result}
	var b strings.Builder
	for _, m := range w.Chat() {
		out.Chat = append(out.Chat, map[string]string{"user": m.UserID, "text": m.Text})
		fmt.Fprintf(&b, "[chat] %s: %s\n", m.UserID, m.Text)
	}
	text, _ := json.Marshal(result)
	fmt.Fprintf(&b, "%s", text)
	return f.Success(b.String(), out)
}

// parseArgs decodes a JSON object flag. Numbers stay json.Number.
func parseArgs(s string) (map[string]any, error) {
	if strings.TrimSpace(s) == "" {
		return map[string]any{}, nil
	}
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var args map[string]any
	if err := dec.Decode(&args); err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid --args (want a JSON object)", err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

// printSink shows the requester's notifications on the terminal.
type printSink struct {
	w    io.Writer
	user string
}

func (p *printSink) Notify(_ context.Context, n notify.Notification) {
	if n.UserID != p.user {
		return
	}
	fmt.Fprintf(p.w, "[%s] %s\n", n.Level, n.Message)
}
