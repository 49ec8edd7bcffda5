package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/gmslots/internal/core"
)

// ErrNotPrivileged is returned by operations reserved to the game master.
var ErrNotPrivileged = errors.New("relay: only the game master can do that")

// Runner is the local engine as seen by a privileged client.
type Runner interface {
	Run(ctx context.Context, req core.Request) (any, error)
	IsPrivileged(userID string) bool
}

// Lister lists slot names. Implemented by slots.Store.
type Lister interface {
	List(ctx context.Context) ([]string, error)
}

// Client is the caller-facing API.
type Client struct {
	user   string
	module string
	bus    Bus
	runner Runner
	slots  Lister
	config func(ctx context.Context) error
	logger *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithRunner gives the client a local engine. Privileged users run through
// it directly instead of publishing.
func WithRunner(r Runner) ClientOption {
	return func(c *Client) { c.runner = r }
}

// WithSlots lets the client list slots.
func WithSlots(l Lister) ClientOption {
	return func(c *Client) { c.slots = l }
}

// WithConfigOpener sets what OpenConfig does for the game master.
func WithConfigOpener(fn func(ctx context.Context) error) ClientOption {
	return func(c *Client) { c.config = fn }
}

// WithClientLogger sets the logger.
func WithClientLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client acting as userID on module's channel.
func NewClient(userID, moduleID string, bus Bus, opts ...ClientOption) *Client {
	c := &Client{user: userID, module: moduleID, bus: bus, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Privileged reports whether this client runs slots locally.
func (c *Client) Privileged() bool {
	return c.runner != nil && c.runner.IsPrivileged(c.user)
}

// Run executes a slot. A privileged client runs it locally and returns the
// result. Anyone else publishes a RUN message and returns nil, nil as soon
// as the publish succeeds, whatever later happens to the request.
func (c *Client) Run(ctx context.Context, name string, args map[string]any) (any, error) {
	if c.Privileged() {
		return c.runner.Run(ctx, core.Request{Slot: name, Args: args, UserID: c.user, Origin: core.OriginLocal})
	}
	data, err := Encode(Message{
		Kind:               KindRun,
		SlotName:           name,
		Arguments:          args,
		RequestingIdentity: c.user,
	})
	if err != nil {
		return nil, fmt.Errorf("encode run request: %w", err)
	}
	if err := c.bus.Publish(ctx, Channel(c.module), data); err != nil {
		return nil, fmt.Errorf("publish run request: %w", err)
	}
	c.logger.Debug("run request published", "slot", name, "user", c.user)
	return nil, nil
}

// List returns slot names in display order.
func (c *Client) List(ctx context.Context) ([]string, error) {
	if c.slots == nil {
		return nil, errors.New("relay: slot listing is not available")
	}
	return c.slots.List(ctx)
}

// OpenConfig opens the slot editor. Non-privileged callers get a warning
// and ErrNotPrivileged.
func (c *Client) OpenConfig(ctx context.Context) error {
	if !c.Privileged() {
		c.logger.Warn("only the game master can configure slots", "user", c.user)
		return ErrNotPrivileged
	}
	if c.config == nil {
		return nil
	}
	return c.config(ctx)
}
