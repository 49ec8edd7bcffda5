// Package notify delivers user-visible messages about slot runs: script
// notifications, denials and failures.
package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/roach88/gmslots/internal/core"
)

// Level is the severity of a notification.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// ParseLevel maps a script-supplied level to a Level; unknown values are
// info.
func ParseLevel(s string) Level {
	switch Level(s) {
	case LevelWarn, "warning":
		return LevelWarn
	case LevelError:
		return LevelError
	default:
		return LevelInfo
	}
}

// Notification is one message for a user.
type Notification struct {
	Slot    string    `json:"slot"`
	UserID  string    `json:"user"`
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	Code    core.Code `json:"code,omitempty"`
}

// Sink receives notifications. Implementations must be safe for
// concurrent use.
type Sink interface {
	Notify(ctx context.Context, n Notification)
}

// LogSink writes notifications to a structured logger.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a sink over logger (slog.Default when nil).
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Notify(ctx context.Context, n Notification) {
	level := slog.LevelInfo
	switch n.Level {
	case LevelWarn:
		level = slog.LevelWarn
	case LevelError:
		level = slog.LevelError
	}
	attrs := []any{"slot", n.Slot, "user", n.UserID}
	if n.Code != "" {
		attrs = append(attrs, "code", string(n.Code))
	}
	s.logger.Log(ctx, level, n.Message, attrs...)
}

// Recorder keeps notifications in memory.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

func (r *Recorder) Notify(_ context.Context, n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

// All returns the recorded notifications in arrival order.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.items...)
}

// Reset forgets everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = nil
}

// Fanout delivers to several sinks in order.
type Fanout []Sink

func (f Fanout) Notify(ctx context.Context, n Notification) {
	for _, s := range f {
		s.Notify(ctx, n)
	}
}
