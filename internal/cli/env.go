package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/roach88/gmslots/internal/engine"
	"github.com/roach88/gmslots/internal/notify"
	"github.com/roach88/gmslots/internal/policy"
	"github.com/roach88/gmslots/internal/slots"
	"github.com/roach88/gmslots/internal/store"
	"github.com/roach88/gmslots/internal/world"
)

// formatter returns an OutputFormatter bound to cmd's writers.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// openStore opens the configured database. The caller closes it.
func (o *RootOptions) openStore() (*store.Store, error) {
	st, err := store.Open(o.Config.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	o.Logger.Debug("database ready", "path", o.Config.Database)
	return st, nil
}

// withSlots opens the store and runs fn with the module's slot store.
func (o *RootOptions) withSlots(fn func(*slots.Store) error) error {
	st, err := o.openStore()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			o.Logger.Error("error closing database", "error", cerr)
		}
	}()
	return fn(slots.New(st, o.Config.ModuleID))
}

// loadWorld loads the configured world file.
func (o *RootOptions) loadWorld() (*world.State, error) {
	if o.Config.WorldFile == "" {
		return nil, NewExitError(ExitCommandError, "no world file: pass --world or set GMSLOTS_WORLD")
	}
	w, err := world.Load(o.Config.WorldFile)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load world", err)
	}
	return w, nil
}

// newEngine wires an engine over st and w. Notifications go to the log and
// to extra sinks. Sequence numbers continue from the execution log.
func (o *RootOptions) newEngine(ctx context.Context, st *store.Store, w *world.State, sinks ...notify.Sink) (*engine.Engine, error) {
	last, err := st.LastSeq(ctx)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read execution log", err)
	}
	sink := append(notify.Fanout{notify.NewLogSink(o.Logger)}, sinks...)
	return engine.New(
		slots.New(st, o.Config.ModuleID),
		policy.NewSource(st, o.Config.ModuleID),
		w, w,
		engine.WithRecorder(st),
		engine.WithSink(sink),
		engine.WithSequence(engine.NewClockAt(last)),
		engine.WithLogger(o.Logger),
	), nil
}

// requireUser returns the --as flag value or the configured user.
func (o *RootOptions) requireUser(as string) (string, error) {
	if as != "" {
		return as, nil
	}
	if o.Config.UserID != "" {
		return o.Config.UserID, nil
	}
	return "", NewExitError(ExitCommandError, "no user: pass --as or set GMSLOTS_USER")
}
