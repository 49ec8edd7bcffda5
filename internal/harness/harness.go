package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"time"

	"github.com/roach88/gmslots/internal/core"
	"github.com/roach88/gmslots/internal/engine"
	"github.com/roach88/gmslots/internal/notify"
	"github.com/roach88/gmslots/internal/policy"
	"github.com/roach88/gmslots/internal/slots"
	"github.com/roach88/gmslots/internal/store"
	"github.com/roach88/gmslots/internal/testutil"
	"github.com/roach88/gmslots/internal/world"
)

// ModuleID is the settings namespace scenarios run under.
const ModuleID = "gm-slots"

// Entry is one step of a trace.
type Entry struct {
	Step   int         `json:"step"`
	Slot   string      `json:"slot"`
	User   string      `json:"user"`
	Status core.Status `json:"status"`
	Code   core.Code   `json:"code,omitempty"`
	Result any         `json:"result,omitempty"`
}

// Result is the outcome of one scenario.
type Result struct {
	Pass   bool                  `json:"pass"`
	Trace  []Entry               `json:"trace"`
	Chat   []world.ChatMessage   `json:"chat,omitempty"`
	Notes  []notify.Notification `json:"notifications,omitempty"`
	Errors []string              `json:"errors,omitempty"`
}

func (r *Result) fail(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}

// Run executes a scenario against a fresh store, world and engine. An error
// means the scenario could not be set up; failed expectations are reported
// in the Result.
func Run(ctx context.Context, sc *Scenario) (*Result, error) {
	doc := testutil.TableDocument()
	if sc.World != nil {
		doc = *sc.World
	}
	state, err := world.New(doc)
	if err != nil {
		return nil, fmt.Errorf("build world: %w", err)
	}

	// Fresh store and clock per scenario so goldens do not depend on order
	mem := store.NewMemory()
	clock := testutil.NewStepClock(time.Millisecond)
	st := slots.New(mem, ModuleID, slots.WithClock(clock.Now))
	for _, sl := range sc.Slots {
		if _, err := st.Upsert(ctx, sl, ""); err != nil {
			return nil, fmt.Errorf("seed slot %q: %w", sl.Name, err)
		}
	}

	// Unset policy fields keep their defaults
	policies := policy.NewSource(mem, ModuleID)
	if sc.Policy != nil {
		cfg := policy.Default()
		if sc.Policy.Ownership != nil {
			cfg.RequireOwnership = *sc.Policy.Ownership
		}
		if sc.Policy.Presence != nil {
			cfg.RequirePresence = *sc.Policy.Presence
		}
		if err := policies.Write(ctx, cfg); err != nil {
			return nil, fmt.Errorf("seed policy: %w", err)
		}
	}

	sink := &notify.Recorder{}
	eng := engine.New(st, policies, state, state,
		engine.WithRecorder(mem),
		engine.WithSink(sink),
		engine.WithClock(clock.Now),
		engine.WithIDGenerator(testutil.NewSequentialIDs("run")),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	res := &Result{Pass: true, Trace: make([]Entry, 0, len(sc.Steps))}
	for i, step := range sc.Steps {
		req := core.Request{Slot: step.Run, UserID: step.As, ActorID: step.Actor, Args: step.Args, Origin: core.OriginLocal}
		if step.Remote {
			req.Origin = core.OriginRemote
		}
		// Steps run synchronously, one at a time, in file order
		out, runErr := eng.Run(ctx, req)

		entry := Entry{Step: i + 1, Slot: step.Run, User: step.As, Status: core.StatusOf(runErr), Code: core.CodeOf(runErr)}
		if runErr == nil {
			entry.Result = normalize(out)
		}
		res.Trace = append(res.Trace, entry)
		check(res, entry, step.Expect)
	}
	res.Chat = state.Chat()
	res.Notes = sink.All()
	return res, nil
}

func check(res *Result, got Entry, want *Expect) {
	if want == nil {
		return
	}
	switch {
	case want.Code != "":
		if got.Code != want.Code {
			res.fail("step %d (%s as %s): expected code %s, got %s", got.Step, got.Slot, got.User, want.Code, describe(got))
		}
	default:
		if got.Status != core.StatusOK {
			res.fail("step %d (%s as %s): expected success, got %s", got.Step, got.Slot, got.User, describe(got))
			return
		}
		if want.Result != nil && !reflect.DeepEqual(normalize(*want.Result), got.Result) {
			res.fail("step %d (%s as %s): expected result %v, got %v", got.Step, got.Slot, got.User, *want.Result, got.Result)
		}
	}
}

func describe(e Entry) string {
	if e.Code == "" {
		return string(e.Status)
	}
	return string(e.Code)
}

// normalize maps a value through JSON so script results and YAML
// expectations compare equal (all numbers become float64).
func normalize(v any) any {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return fmt.Sprint(v)
	}
	return out
}
