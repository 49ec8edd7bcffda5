package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/roach88/gmslots/internal/relay"
)

// ErrNotJSON is returned when publishing a payload the hub cannot carry.
var ErrNotJSON = errors.New("ws: payload must be a JSON document")

// Client is a hub connection implementing relay.Bus.
type Client struct {
	conn   *websocket.Conn
	user   string
	logger *slog.Logger

	writeMu sync.Mutex

	mu       sync.Mutex
	handlers map[string]map[int]relay.Handler
	waiters  map[string][]chan struct{}
	nextID   int

	done chan struct{}
	err  error
}

var _ relay.Bus = (*Client)(nil)

// Dial connects to the hub at url as userID and waits for the welcome.
func Dial(ctx context.Context, url, userID string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial hub: %w", err)
	}
	c := &Client{
		conn:     conn,
		user:     userID,
		logger:   logger.With("hub", url, "user", userID),
		handlers: make(map[string]map[int]relay.Handler),
		waiters:  make(map[string][]chan struct{}),
		done:     make(chan struct{}),
	}
	if err := c.write(frame{Op: opHello, User: userID}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("hello: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("await welcome: %w", err)
	}
	var f frame
	if err := json.Unmarshal(msg, &f); err != nil || f.Op != opWelcome {
		conn.Close()
		return nil, fmt.Errorf("unexpected handshake reply %q", string(msg))
	}
	_ = conn.SetReadDeadline(time.Time{})

	go c.readLoop()
	return c, nil
}

// Done is closed when the connection ends.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err returns why the connection ended, once Done is closed.
func (c *Client) Err() error {
	<-c.done
	return c.err
}

// Close ends the connection.
func (c *Client) Close() error {
	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	c.writeMu.Unlock()
	err := c.conn.Close()
	<-c.done
	return err
}

// Publish sends data on channel. data must be JSON.
func (c *Client) Publish(ctx context.Context, channel string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !json.Valid(data) {
		return ErrNotJSON
	}
	return c.write(frame{Op: opPub, Channel: channel, Data: json.RawMessage(data)})
}

// Subscribe registers h for channel and waits until the hub confirms the
// first subscription to it.
func (c *Client) Subscribe(channel string, h relay.Handler) (func(), error) {
	c.mu.Lock()
	first := len(c.handlers[channel]) == 0
	if c.handlers[channel] == nil {
		c.handlers[channel] = make(map[int]relay.Handler)
	}
	id := c.nextID
	c.nextID++
	c.handlers[channel][id] = h
	var ack chan struct{}
	if first {
		ack = make(chan struct{})
		c.waiters[channel] = append(c.waiters[channel], ack)
	}
	c.mu.Unlock()

	cancel := c.canceler(channel, id)
	if first {
		if err := c.write(frame{Op: opSub, Channel: channel}); err != nil {
			cancel()
			return nil, err
		}
		select {
		case <-ack:
		case <-c.done:
			cancel()
			return nil, errors.New("ws: connection closed")
		case <-time.After(handshakeTimeout):
			cancel()
			return nil, errors.New("ws: subscription not confirmed")
		}
	}
	return cancel, nil
}

func (c *Client) canceler(channel string, id int) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.handlers[channel], id)
			last := len(c.handlers[channel]) == 0
			c.mu.Unlock()
			if last {
				_ = c.write(frame{Op: opUnsub, Channel: channel})
			}
		})
	}
}

func (c *Client) write(f frame) error {
	b, err := json.Marshal(f)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, b)
}

func (c *Client) readLoop() {
	defer close(c.done)
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			c.err = err
			return
		}
		var f frame
		if err := json.Unmarshal(msg, &f); err != nil {
			c.logger.Debug("dropping undecodable frame", "error", err)
			continue
		}
		switch f.Op {
		case opSubscribed:
			c.mu.Lock()
			for _, w := range c.waiters[f.Channel] {
				close(w)
			}
			delete(c.waiters, f.Channel)
			c.mu.Unlock()
		case opMsg:
			c.mu.Lock()
			hs := make([]relay.Handler, 0, len(c.handlers[f.Channel]))
			for _, h := range c.handlers[f.Channel] {
				hs = append(hs, h)
			}
			c.mu.Unlock()
			d := relay.Delivery{Channel: f.Channel, Sender: f.From, Data: []byte(f.Data)}
			for _, h := range hs {
				h(d)
			}
		}
	}
}
