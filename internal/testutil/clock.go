// Package testutil holds deterministic helpers shared by package tests and
// the conformance harness.
package testutil

import (
	"sync"
	"time"
)

// Epoch is the start time of every StepClock.
var Epoch = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

// StepClock is a wall clock that advances by a fixed step on every call.
//
// Thread-safety: Now is safe for concurrent use via internal mutex.
type StepClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewStepClock creates a clock at Epoch advancing by step per call.
// A zero step freezes the clock.
func NewStepClock(step time.Duration) *StepClock {
	return &StepClock{now: Epoch, step: step}
}

// Now returns the current time and then advances the clock.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// Reset moves the clock back to Epoch.
func (c *StepClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = Epoch
}
