package relay

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roach88/gmslots/internal/core"
)

// Dispatcher starts a run without waiting for it. Implemented by
// engine.Engine.
type Dispatcher interface {
	Dispatch(ctx context.Context, req core.Request)
	IsPrivileged(userID string) bool
}

// Authority tells the server whether this process is the primary game
// master. Implemented by world.Authority.
type Authority interface {
	IsPrimary() bool
}

// Stats counts what the server did with deliveries.
type Stats struct {
	Received   int64
	Malformed  int64
	Ignored    int64
	Spoofed    int64
	Dispatched int64
}

// Server subscribes to the module channel and dispatches RUN requests.
type Server struct {
	bus       Bus
	module    string
	engine    Dispatcher
	authority Authority
	logger    *slog.Logger

	mu     sync.Mutex
	cancel func()

	received, malformed, ignored, spoofed, dispatched atomic.Int64
}

// NewServer creates a server. A nil logger means slog.Default.
func NewServer(bus Bus, moduleID string, engine Dispatcher, authority Authority, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		bus:       bus,
		module:    moduleID,
		engine:    engine,
		authority: authority,
		logger:    logger.With("channel", Channel(moduleID)),
	}
}

// Start subscribes to the channel. Runs are dispatched with ctx's values
// but never cancelled by it.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}
	cancel, err := s.bus.Subscribe(Channel(s.module), func(d Delivery) {
		s.Handle(ctx, d)
	})
	if err != nil {
		return err
	}
	s.cancel = cancel
	s.logger.Info("relay server listening")
	return nil
}

// Stop unsubscribes. In-flight runs continue.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Handle processes one delivery. Malformed messages and messages for other
// kinds are dropped silently; the sender gets no feedback.
func (s *Server) Handle(ctx context.Context, d Delivery) {
	s.received.Add(1)

	msg, err := Decode(d.Data)
	if err != nil {
		s.malformed.Add(1)
		s.logger.Debug("dropping malformed message", "sender", d.Sender, "error", err)
		return
	}
	if msg.Kind != KindRun {
		s.ignored.Add(1)
		s.logger.Debug("ignoring message", "kind", msg.Kind)
		return
	}
	if !s.authority.IsPrimary() {
		s.ignored.Add(1)
		s.logger.Debug("not the primary game master; ignoring run request", "slot", msg.SlotName)
		return
	}
	if d.Sender != "" && d.Sender != msg.RequestingIdentity {
		s.spoofed.Add(1)
		s.logger.Warn("dropping run request with mismatched identity",
			"sender", d.Sender, "claimed", msg.RequestingIdentity, "slot", msg.SlotName)
		return
	}
	// Privileged callers run locally and never publish, so a remote run in
	// their name is forged.
	if s.engine.IsPrivileged(msg.RequestingIdentity) {
		s.spoofed.Add(1)
		s.logger.Warn("dropping run request claiming a privileged identity",
			"sender", d.Sender, "claimed", msg.RequestingIdentity, "slot", msg.SlotName)
		return
	}

	s.dispatched.Add(1)
	s.engine.Dispatch(ctx, core.Request{
		Slot:   msg.SlotName,
		Args:   msg.Arguments,
		UserID: msg.RequestingIdentity,
		Origin: core.OriginRemote,
	})
}

// Stats returns counters since the server was created.
func (s *Server) Stats() Stats {
	return Stats{
		Received:   s.received.Load(),
		Malformed:  s.malformed.Load(),
		Ignored:    s.ignored.Load(),
		Spoofed:    s.spoofed.Load(),
		Dispatched: s.dispatched.Load(),
	}
}
