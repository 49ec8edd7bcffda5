package ws

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gmslots/internal/relay"
)

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := NewHub(quiet())
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url, user string) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := Dial(ctx, url, user, quiet())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

type inbox struct {
	mu  sync.Mutex
	got []relay.Delivery
}

func (b *inbox) handle(d relay.Delivery) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.got = append(b.got, d)
}

func (b *inbox) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.got)
}

func (b *inbox) first() relay.Delivery {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.got[0]
}

func TestHub_FanOutStampsSender(t *testing.T) {
	_, url := startHub(t)
	gm := dial(t, url, "gm")
	alice := dial(t, url, "alice")
	bob := dial(t, url, "bob")

	var gmBox, aliceBox, bobBox inbox
	_, err := gm.Subscribe("module.x", gmBox.handle)
	require.NoError(t, err)
	_, err = alice.Subscribe("module.x", aliceBox.handle)
	require.NoError(t, err)
	_, err = bob.Subscribe("module.other", bobBox.handle)
	require.NoError(t, err)

	require.NoError(t, alice.Publish(context.Background(), "module.x", []byte(`{"kind":"RUN"}`)))

	require.Eventually(t, func() bool { return gmBox.len() == 1 }, 2*time.Second, 10*time.Millisecond)
	d := gmBox.first()
	assert.Equal(t, "alice", d.Sender)
	assert.Equal(t, "module.x", d.Channel)
	assert.JSONEq(t, `{"kind":"RUN"}`, string(d.Data))

	// Give stray deliveries a moment to show up.
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, aliceBox.len(), "publisher gets no echo")
	assert.Zero(t, bobBox.len(), "other channels are not delivered")
}

func TestHub_Unsubscribe(t *testing.T) {
	_, url := startHub(t)
	gm := dial(t, url, "gm")
	alice := dial(t, url, "alice")

	var box inbox
	cancel, err := gm.Subscribe("c", box.handle)
	require.NoError(t, err)
	cancel()

	// A fresh subscription on another channel acts as a barrier: the hub
	// handles gm's frames in order, so the unsub is applied by now.
	_, err = gm.Subscribe("barrier", func(relay.Delivery) {})
	require.NoError(t, err)

	require.NoError(t, alice.Publish(context.Background(), "c", []byte(`1`)))
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, box.len())
}

func TestHub_RejectsMissingHello(t *testing.T) {
	hub, url := startHub(t)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"op":"pub","channel":"c"}`)))
	_, _, err = conn.ReadMessage()
	var ce *websocket.CloseError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, websocket.ClosePolicyViolation, ce.Code)
	assert.Zero(t, hub.Connections())
}

func TestHub_RejectsDuplicateIdentity(t *testing.T) {
	hub, url := startHub(t)
	dial(t, url, "gm")
	require.Eventually(t, func() bool { return hub.Connections() == 1 }, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := Dial(ctx, url, "gm", quiet())
	var ce *websocket.CloseError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, websocket.ClosePolicyViolation, ce.Code)
	assert.Equal(t, 1, hub.Connections())

	// Other identities are unaffected.
	dial(t, url, "alice")
	assert.Equal(t, 2, hub.Connections())
}

func TestClient_SubscribeAfterCloseLeavesNoHandler(t *testing.T) {
	_, url := startHub(t)
	c, err := Dial(context.Background(), url, "alice", quiet())
	require.NoError(t, err)
	require.NoError(t, c.Close())

	_, err = c.Subscribe("module.x", func(relay.Delivery) {})
	require.Error(t, err)
	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Empty(t, c.handlers["module.x"])
}

func TestClient_PublishRequiresJSON(t *testing.T) {
	_, url := startHub(t)
	c := dial(t, url, "alice")
	assert.ErrorIs(t, c.Publish(context.Background(), "c", []byte("not json")), ErrNotJSON)
}

func TestClient_Close(t *testing.T) {
	hub, url := startHub(t)
	c, err := Dial(context.Background(), url, "alice", quiet())
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.Connections() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, c.Close())
	<-c.Done()
	require.Eventually(t, func() bool { return hub.Connections() == 0 }, 2*time.Second, 10*time.Millisecond)
}
