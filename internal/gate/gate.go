// Package gate decides whether a non-privileged requester may run a slot.
//
// Checks run in order and the first denial wins, so the cheapest and most
// specific reasons are reported first. Each check reads only the inputs it
// needs: toggling one policy never changes the outcome of another check.
package gate

import (
	"fmt"

	"github.com/roach88/gmslots/internal/core"
	"github.com/roach88/gmslots/internal/policy"
	"github.com/roach88/gmslots/internal/runctx"
	"github.com/roach88/gmslots/internal/world"
)

// Input is everything a check may look at.
type Input struct {
	Slot       core.Slot
	UserID     string
	Privileged bool
	Target     runctx.Target
	Policy     policy.Config
	// Permissions answers ownership questions; nil means nobody owns anything.
	Permissions Permissions
}

// Permissions is the slice of world.Directory the ownership check uses.
type Permissions interface {
	Permission(userID, actorID string) world.Level
}

// Decision is the gate's verdict. Err is a coded *core.Error when denied.
type Decision struct {
	Allowed bool
	Err     *core.Error
}

// Allow is the allowing decision.
var Allow = Decision{Allowed: true}

// Deny builds a denial for in.
func Deny(in Input, code core.Code, msg string) Decision {
	err := core.NewError(code, in.Slot.Name, msg)
	err.UserID = in.UserID
	return Decision{Err: err}
}

// Check inspects one aspect of a request. It returns ok=true to pass.
type Check func(in Input) (Decision, bool)

// Gate is an ordered list of checks.
type Gate struct {
	checks []Check
}

// New creates a gate running checks in the given order.
func New(checks ...Check) *Gate {
	return &Gate{checks: append([]Check(nil), checks...)}
}

// Default returns the standard gate: disabled, not permitted, ownership,
// presence.
func Default() *Gate {
	return New(SlotDisabled, NotPermitted, Ownership, Presence)
}

// With returns a copy of g with extra checks appended.
func (g *Gate) With(checks ...Check) *Gate {
	return New(append(append([]Check(nil), g.checks...), checks...)...)
}

// Authorize runs the checks. The privileged identity always passes.
func (g *Gate) Authorize(in Input) Decision {
	if in.Privileged {
		return Allow
	}
	for _, check := range g.checks {
		if d, ok := check(in); !ok {
			return d
		}
	}
	return Allow
}

// SlotDisabled denies disabled slots.
func SlotDisabled(in Input) (Decision, bool) {
	if !in.Slot.Enabled {
		return Deny(in, core.CodeSlotDisabled, "slot is disabled"), false
	}
	return Allow, true
}

// NotPermitted denies slots whose per-slot player flag is explicitly false.
// An unset flag defers to the world policies.
func NotPermitted(in Input) (Decision, bool) {
	if in.Slot.PlayersCanRun != nil && !*in.Slot.PlayersCanRun {
		return Deny(in, core.CodeNotPermitted, "players may not run this slot"), false
	}
	return Allow, true
}

// Ownership requires a resolved target the requester owns, when the
// ownership policy is on.
func Ownership(in Input) (Decision, bool) {
	if !in.Policy.RequireOwnership {
		return Allow, true
	}
	if in.Target.Actor == nil {
		msg := "no target actor in request"
		if in.Target.ActorID != "" {
			msg = fmt.Sprintf("target actor %q not found", in.Target.ActorID)
		}
		return Deny(in, core.CodeMissingTarget, msg), false
	}
	level := world.LevelNone
	if in.Permissions != nil {
		level = in.Permissions.Permission(in.UserID, in.Target.Actor.ID)
	}
	if level < world.LevelOwner {
		return Deny(in, core.CodeNotOwner,
			fmt.Sprintf("you do not own %s", in.Target.Actor.Name)), false
	}
	return Allow, true
}

// Presence requires the target to have a token on the active scene, when
// the presence policy is on.
func Presence(in Input) (Decision, bool) {
	if !in.Policy.RequirePresence {
		return Allow, true
	}
	if !in.Target.Present() {
		return Deny(in, core.CodeNotPresent, "target has no token on the active scene"), false
	}
	return Allow, true
}
