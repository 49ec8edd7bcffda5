package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/gmslots/internal/relay"
	"github.com/roach88/gmslots/internal/transport/ws"
	"github.com/roach88/gmslots/internal/world"
)

// signalContext returns a context cancelled on SIGINT/SIGTERM or when the
// command's own context ends.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// NewHubCommand creates the hub command: the websocket relay hub.
func NewHubCommand(opts *RootOptions) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "hub",
		Short: "Run the websocket relay hub",
		Long: fmt.Sprintf(`Serve the websocket hub that carries run requests from players to the
game master's process. Clients connect at %s.

Example:
  gmslots hub --listen :8080`, ws.Path),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("listen") {
				opts.Config.Listen = listen
			}
			ctx, stop := signalContext(cmd)
			defer stop()
			return serveHub(ctx, opts, cmd)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default from config, :8080)")
	return cmd
}

func serveHub(ctx context.Context, opts *RootOptions, cmd *cobra.Command) error {
	mux := http.NewServeMux()
	mux.Handle(ws.Path, ws.NewHub(opts.Logger))
	srv := &http.Server{
		Addr:              opts.Config.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	opts.Logger.Info("hub listening", "addr", opts.Config.Listen, "path", ws.Path)
	fmt.Fprintf(cmd.OutOrStdout(), "Hub listening on %s%s. Press Ctrl-C to stop.\n", opts.Config.Listen, ws.Path)

	select {
	case err := <-errc:
		return WrapExitError(ExitCommandError, "hub stopped", err)
	case <-ctx.Done():
	}
	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdown); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return WrapExitError(ExitFailure, "hub shutdown", err)
	}
	opts.Logger.Info("hub stopped gracefully")
	return nil
}

// NewServeCommand creates the serve command: the game master's process.
func NewServeCommand(opts *RootOptions) *cobra.Command {
	var as, hub string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Execute relayed run requests as the game master",
		Long: `Connect to the hub as the game master and execute run requests
published on the module channel. Only the primary game master (the first
active game master) acts on requests; other game master processes listen
and ignore them.

Example:
  gmslots serve --as gm --world table.yaml --db gmslots.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("hub") {
				opts.Config.HubURL = hub
			}
			user, err := opts.requireUser(as)
			if err != nil {
				return err
			}
			ctx, stop := signalContext(cmd)
			defer stop()
			return serveRelay(ctx, opts, user, cmd)
		},
	}
	cmd.Flags().StringVar(&as, "as", "", "game master user id (default: configured user)")
	cmd.Flags().StringVar(&hub, "hub", "", "hub websocket URL (default from config)")
	return cmd
}

func serveRelay(ctx context.Context, opts *RootOptions, user string, cmd *cobra.Command) error {
	w, err := opts.loadWorld()
	if err != nil {
		return err
	}
	if u, ok := w.User(user); !ok || !u.IsGM() {
		return NewExitError(ExitCommandError, fmt.Sprintf("%q is not a game master in the world", user))
	}
	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	eng, err := opts.newEngine(ctx, st, w)
	if err != nil {
		return err
	}
	defer eng.Wait()

	client, err := ws.Dial(ctx, opts.Config.HubURL, user, opts.Logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to connect to hub", err)
	}
	defer client.Close()

	auth := world.NewAuthority(w, user)
	server := relay.NewServer(client, opts.Config.ModuleID, eng, auth, opts.Logger)
	if err := server.Start(ctx); err != nil {
		return WrapExitError(ExitCommandError, "failed to subscribe", err)
	}
	defer server.Stop()

	if !auth.IsPrimary() {
		opts.Logger.Warn("another game master is primary; requests will be ignored", "user", user)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Serving %s as %s. Press Ctrl-C to stop.\n", relay.Channel(opts.Config.ModuleID), user)

	select {
	case <-ctx.Done():
	case <-client.Done():
		return WrapExitError(ExitFailure, "hub connection lost", client.Err())
	}
	stats := server.Stats()
	opts.Logger.Info("relay server stopped",
		"received", stats.Received, "dispatched", stats.Dispatched,
		"malformed", stats.Malformed, "spoofed", stats.Spoofed, "ignored", stats.Ignored)
	return nil
}

// NewRequestCommand creates the request command: a player's run request.
func NewRequestCommand(opts *RootOptions) *cobra.Command {
	var as, argsJSON, hub string
	cmd := &cobra.Command{
		Use:   "request <slot>",
		Short: "Ask the game master's process to run a slot",
		Long: `Publish a run request on the module channel. The request is
fire-and-forget: success means it was sent, not that the slot ran. Refusals
and failures are reported to the game master's process.

Example:
  gmslots request Heal --as alice --args '{"actorId": "hero"}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("hub") {
				opts.Config.HubURL = hub
			}
			user, err := opts.requireUser(as)
			if err != nil {
				return err
			}
			runArgs, err := parseArgs(argsJSON)
			if err != nil {
				return err
			}
			client, err := ws.Dial(cmd.Context(), opts.Config.HubURL, user, opts.Logger)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to connect to hub", err)
			}
			defer client.Close()

			rc := relay.NewClient(user, opts.Config.ModuleID, client, relay.WithClientLogger(opts.Logger))
			if _, err := rc.Run(cmd.Context(), args[0], runArgs); err != nil {
				return WrapExitError(ExitFailure, "request not sent", err)
			}
			return opts.formatter(cmd).Success(
				fmt.Sprintf("Requested %s as %s", args[0], user),
				map[string]string{"slot": args[0], "user": user, "status": "sent"},
			)
		},
	}
	cmd.Flags().StringVar(&as, "as", "", "requesting user id (default: configured user)")
	cmd.Flags().StringVar(&argsJSON, "args", "{}", "slot arguments as a JSON object")
	cmd.Flags().StringVar(&hub, "hub", "", "hub websocket URL (default from config)")
	return cmd
}
