package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/roach88/gmslots/internal/compiler"
	"github.com/roach88/gmslots/internal/core"
	"github.com/roach88/gmslots/internal/gate"
	"github.com/roach88/gmslots/internal/notify"
	"github.com/roach88/gmslots/internal/policy"
	"github.com/roach88/gmslots/internal/runctx"
	"github.com/roach88/gmslots/internal/world"
)

// SlotSource looks slots up by name. Implemented by slots.Store.
type SlotSource interface {
	Get(ctx context.Context, name string) (core.Slot, error)
}

// PolicySource reads the current policy. Implemented by policy.Source.
type PolicySource interface {
	Read(ctx context.Context) (policy.Config, error)
}

// Recorder stores execution records. Implemented by store.Store and
// store.Memory.
type Recorder interface {
	RecordExecution(ctx context.Context, e core.Execution) error
}

// Engine executes slots on behalf of requesters.
//
// Each run looks the slot up, authorizes, compiles and invokes it, then
// records and reports the outcome. Runs share no script state: every
// invocation gets its own Lua state.
//
// Thread-safety model:
//   - Run(): safe from any goroutine; concurrent runs are independent
//   - Dispatch(): safe from any goroutine, returns immediately
//   - Wait(): blocks until dispatched runs finish
type Engine struct {
	slots    SlotSource
	policies PolicySource // Read on every run, never cached
	dir      world.Directory
	writer   world.Writer
	builder  *runctx.Builder
	gate     *gate.Gate

	sink       notify.Sink
	recorder   Recorder // Optional execution log
	seq        *Clock   // Orders runs within and across processes
	now        func() time.Time
	ids        IDGenerator
	logger     *slog.Logger
	privileged func(userID string) bool

	wg sync.WaitGroup // Tracks dispatched runs
}

// Option configures an Engine.
type Option func(*Engine)

// WithRecorder stores an execution record for every run.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithClock sets the wall clock used for StartedAt and durations.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithSequence sets the logical clock, e.g. to continue after the last
// recorded execution.
func WithSequence(c *Clock) Option {
	return func(e *Engine) { e.seq = c }
}

// WithIDGenerator sets the invocation id generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) { e.ids = g }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithSink sets where notifications go. The default logs them.
func WithSink(s notify.Sink) Option {
	return func(e *Engine) { e.sink = s }
}

// WithGate replaces the authorization gate.
func WithGate(g *gate.Gate) Option {
	return func(e *Engine) { e.gate = g }
}

// WithPrivileged decides which user ids are the privileged identity. The
// default treats every game master in the world as privileged.
func WithPrivileged(fn func(userID string) bool) Option {
	return func(e *Engine) { e.privileged = fn }
}

// New creates an Engine.
func New(slots SlotSource, policies PolicySource, dir world.Directory, writer world.Writer, opts ...Option) *Engine {
	e := &Engine{
		slots:    slots,
		policies: policies,
		dir:      dir,
		writer:   writer,
		builder:  runctx.NewBuilder(dir),
		gate:     gate.Default(),
		seq:      NewClock(),
		now:      time.Now,
		ids:      UUIDv7Generator{},
		logger:   slog.Default(),
	}
	// Apply options
	for _, opt := range opts {
		opt(e)
	}
	if e.sink == nil {
		e.sink = notify.NewLogSink(e.logger)
	}
	if e.privileged == nil {
		e.privileged = func(userID string) bool {
			u, ok := dir.User(userID)
			return ok && u.IsGM()
		}
	}
	return e
}

// IsPrivileged reports whether userID bypasses the gate.
func (e *Engine) IsPrivileged(userID string) bool {
	return e.privileged(userID)
}

// Run executes one request and returns the script's result.
//
// Every error is a *core.Error carrying a code. Panics inside the
// invocation are recovered and reported as RUNTIME_ERROR.
func (e *Engine) Run(ctx context.Context, req core.Request) (result any, err error) {
	if req.Origin == "" {
		req.Origin = core.OriginLocal
	}
	rec := core.Execution{
		ID:        e.ids.Generate(),
		Seq:       e.seq.Next(),
		Slot:      req.Slot,
		UserID:    req.UserID,
		Origin:    req.Origin,
		StartedAt: e.now(),
	}
	log := e.logger.With(
		"slot", req.Slot,
		"user", req.UserID,
		"invocation", rec.ID,
		"seq", rec.Seq,
		"origin", string(req.Origin),
	)

	defer func() {
		if r := recover(); r != nil {
			log.Error("slot run panicked", "panic", r, "stack", string(debug.Stack()))
			result = nil
			err = &core.Error{
				Code:    core.CodeRuntimeError,
				Message: fmt.Sprintf("panic: %v", r),
				Slot:    req.Slot,
				UserID:  req.UserID,
			}
		}
		e.finish(ctx, log, rec, err)
	}()

	return e.run(ctx, req, log)
}

func (e *Engine) run(ctx context.Context, req core.Request, log *slog.Logger) (any, error) {
	sl, err := e.slots.Get(ctx, req.Slot)
	if err != nil {
		if core.CodeOf(err) == core.CodeNotFound {
			return nil, coded(err, core.CodeNotFound, req, "slot not found")
		}
		return nil, coded(err, core.CodeRuntimeError, req, "cannot read slot")
	}
	// Report under the stored spelling of the name.
	req.Slot = sl.Name

	// The gate checks the same target the script will see.
	target := e.builder.Resolve(req)

	pol, err := e.policies.Read(ctx)
	if err != nil {
		return nil, coded(err, core.CodeRuntimeError, req, "cannot read policy")
	}

	d := e.gate.Authorize(gate.Input{
		Slot:        sl,
		UserID:      req.UserID,
		Privileged:  e.privileged(req.UserID),
		Target:      target,
		Policy:      pol,
		Permissions: e.dir,
	})
	if !d.Allowed {
		return nil, d.Err
	}

	// A denied caller never reaches the compiler, so never sees
	// COMPILE_ERROR.
	prog, err := compiler.Compile(sl.Name, sl.Code)
	if err != nil {
		return nil, coded(err, core.CodeCompileError, req, "")
	}
	log.Debug("slot compiled", "form", prog.Form().String(), "digest", core.MustSlotDigest(sl))

	c := e.builder.Build(req, target, e.sink, e.writer)
	c.Log = func(msg string) { log.Info("script log", "text", msg) }

	result, err := prog.Invoke(ctx, c.Bindings())
	if err != nil {
		return nil, coded(err, core.CodeRuntimeError, req, "")
	}
	return result, nil
}

// coded converts err to a *core.Error for req. An existing code in err's
// chain wins over fallback; msg overrides the message when set.
func coded(err error, fallback core.Code, req core.Request, msg string) *core.Error {
	out := &core.Error{Code: fallback, Slot: req.Slot, UserID: req.UserID, Cause: err}

	var ce *compiler.CompileError
	var se *compiler.ScriptError
	var inner *core.Error
	switch {
	case errors.As(err, &ce):
		out.Code = ce.Code
		out.Message = ce.Message
	case errors.As(err, &se):
		out.Code = core.CodeRuntimeError
		out.Message = se.Message
		if se.Traceback != "" {
			out.Details = map[string]string{"traceback": se.Traceback}
		}
	case errors.As(err, &inner):
		out.Code = inner.Code
		out.Message = inner.Message
		out.Cause = inner.Cause
	default:
		out.Message = err.Error()
		out.Cause = nil
	}
	if msg != "" {
		out.Message = msg
	}
	return out
}

// finish logs, records and notifies the outcome of a run.
func (e *Engine) finish(ctx context.Context, log *slog.Logger, rec core.Execution, err error) {
	rec.Status = core.StatusOf(err)
	rec.DurationMS = e.now().Sub(rec.StartedAt).Milliseconds()
	if err != nil {
		rec.Code = core.CodeOf(err)
		var ce *core.Error
		if errors.As(err, &ce) {
			rec.Message = ce.Message
		} else {
			rec.Message = err.Error()
		}
	}

	switch rec.Status {
	case core.StatusOK:
		log.Info("slot run completed", "duration_ms", rec.DurationMS)
	case core.StatusDenied:
		log.Info("slot run denied", "code", string(rec.Code), "reason", rec.Message)
	default:
		log.Error("slot run failed", "code", string(rec.Code), "error", err)
	}

	// The record is written even when the caller has gone away.
	if e.recorder != nil {
		if werr := e.recorder.RecordExecution(context.WithoutCancel(ctx), rec); werr != nil {
			log.Warn("execution record not written", "error", werr)
		}
	}

	if err != nil {
		e.sink.Notify(ctx, failureNotice(rec))
	}
}

// failureNotice words a failed or denied run for the requester. Runtime
// failures stay generic; the detail is in the log.
func failureNotice(rec core.Execution) notify.Notification {
	n := notify.Notification{Slot: rec.Slot, UserID: rec.UserID, Code: rec.Code}
	switch {
	case rec.Status == core.StatusDenied:
		n.Level = notify.LevelWarn
		n.Message = fmt.Sprintf("Slot %q was not run: %s", rec.Slot, rec.Message)
	case rec.Code == core.CodeRuntimeError:
		n.Level = notify.LevelError
		n.Message = fmt.Sprintf("Slot %q failed while running; see the log for details", rec.Slot)
	default:
		n.Level = notify.LevelError
		n.Message = fmt.Sprintf("Slot %q cannot be compiled: %s", rec.Slot, rec.Message)
	}
	return n
}

// Dispatch runs req on its own goroutine and returns immediately. The run
// is detached from ctx cancellation: once dispatched it completes.
func (e *Engine) Dispatch(ctx context.Context, req core.Request) {
	ctx = context.WithoutCancel(ctx)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		_, _ = e.Run(ctx, req)
	}()
}

// Wait blocks until every dispatched run has finished.
func (e *Engine) Wait() {
	e.wg.Wait()
}
