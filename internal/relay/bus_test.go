package relay

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collector struct {
	mu  sync.Mutex
	got []Delivery
}

func (c *collector) handle(d Delivery) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = append(c.got, d)
}

func (c *collector) all() []Delivery {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Delivery(nil), c.got...)
}

func TestMemoryBus_DeliversToOthersOnly(t *testing.T) {
	ctx := context.Background()
	bus := NewMemoryBus()
	gm, alice := bus.Endpoint("gm"), bus.Endpoint("alice")

	var gmGot, aliceGot collector
	_, err := gm.Subscribe("module.x", gmGot.handle)
	require.NoError(t, err)
	_, err = alice.Subscribe("module.x", aliceGot.handle)
	require.NoError(t, err)

	require.NoError(t, alice.Publish(ctx, "module.x", []byte("hi")))
	require.NoError(t, alice.Publish(ctx, "module.other", []byte("elsewhere")))
	bus.Drain()

	require.Len(t, gmGot.all(), 1)
	assert.Equal(t, Delivery{Channel: "module.x", Sender: "alice", Data: []byte("hi")}, gmGot.all()[0])
	assert.Empty(t, aliceGot.all(), "no echo to the publisher")
}

func TestMemoryBus_Cancel(t *testing.T) {
	ctx := context.Background()
	bus := NewMemoryBus()
	var got collector
	cancel, err := bus.Endpoint("gm").Subscribe("c", got.handle)
	require.NoError(t, err)

	cancel()
	cancel()
	require.NoError(t, bus.Endpoint("p").Publish(ctx, "c", []byte("x")))
	bus.Drain()
	assert.Empty(t, got.all())
}

func TestMemoryBus_Closed(t *testing.T) {
	bus := NewMemoryBus()
	bus.Close()
	assert.ErrorIs(t, bus.Endpoint("p").Publish(context.Background(), "c", nil), ErrClosed)
	_, err := bus.Endpoint("p").Subscribe("c", func(Delivery) {})
	assert.ErrorIs(t, err, ErrClosed)
}
