package relay

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned when publishing on a closed bus.
var ErrClosed = errors.New("relay: bus closed")

// Delivery is one message as received by a subscriber.
type Delivery struct {
	Channel string
	// Sender is the publisher identity attested by the transport, or ""
	// when the transport cannot attest it.
	Sender string
	Data   []byte
}

// Handler receives deliveries.
type Handler func(Delivery)

// Bus is the messaging collaborator: at-most-once, no ordering guarantee
// across publishers, and no echo to the publisher itself.
type Bus interface {
	Publish(ctx context.Context, channel string, data []byte) error
	Subscribe(channel string, h Handler) (cancel func(), err error)
}

// MemoryBus is an in-process Bus hub. Each participant gets its own
// endpoint from Endpoint; deliveries run on their own goroutines.
type MemoryBus struct {
	mu     sync.Mutex
	subs   map[string]map[int]subscription
	nextID int
	closed bool
	wg     sync.WaitGroup
}

type subscription struct {
	owner string
	h     Handler
}

// NewMemoryBus creates an empty in-process bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[string]map[int]subscription)}
}

// Endpoint returns the Bus view of participant userID. Messages it
// publishes carry userID as the attested sender.
func (b *MemoryBus) Endpoint(userID string) Bus {
	return &memoryEndpoint{bus: b, user: userID}
}

// Drain blocks until every delivery started so far has been handled.
func (b *MemoryBus) Drain() {
	b.wg.Wait()
}

// Close stops all further deliveries.
func (b *MemoryBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subs = make(map[string]map[int]subscription)
}

type memoryEndpoint struct {
	bus  *MemoryBus
	user string
}

func (e *memoryEndpoint) Publish(ctx context.Context, channel string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b := e.bus
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	var targets []Handler
	for _, s := range b.subs[channel] {
		if s.owner != e.user {
			targets = append(targets, s.h)
		}
	}
	b.wg.Add(len(targets))
	b.mu.Unlock()

	for _, h := range targets {
		d := Delivery{Channel: channel, Sender: e.user, Data: append([]byte(nil), data...)}
		go func(h Handler) {
			defer b.wg.Done()
			h(d)
		}(h)
	}
	return nil
}

func (e *memoryEndpoint) Subscribe(channel string, h Handler) (func(), error) {
	b := e.bus
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[int]subscription)
	}
	id := b.nextID
	b.nextID++
	b.subs[channel][id] = subscription{owner: e.user, h: h}

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[channel], id)
		})
	}, nil
}
