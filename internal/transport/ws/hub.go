package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	handshakeTimeout = 5 * time.Second
	writeTimeout     = 5 * time.Second
	readTimeout      = 60 * time.Second
	pingInterval     = 25 * time.Second
	defaultQueueSize = 64
)

// Hub is the websocket pub/sub hub.
type Hub struct {
	upgrader  websocket.Upgrader
	logger    *slog.Logger
	queueSize int

	mu    sync.Mutex
	conns map[*hubConn]struct{}
}

type hubConn struct {
	user string          // Identity from hello; unique among live connections
	out  chan []byte     // Drained by writeLoop
	subs map[string]bool // guarded by Hub.mu
}

// NewHub creates a hub. A nil logger means slog.Default.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger:    logger,
		queueSize: defaultQueueSize,
		conns:     make(map[*hubConn]struct{}),
	}
}

// Connections returns the number of connected clients.
func (h *Hub) Connections() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	user := h.handshake(conn)
	if user == "" {
		return
	}

	c := &hubConn{user: user, out: make(chan []byte, h.queueSize), subs: make(map[string]bool)}
	log := h.logger.With("user", user)
	if !h.register(c) {
		// One connection per identity; a later hello cannot take over a
		// connected user's name.
		log.Warn("rejecting hello for an identity that is already connected")
		closeWith(conn, websocket.ClosePolicyViolation, "identity already connected")
		return
	}
	log.Info("hub client connected")

	done := make(chan struct{})
	go h.writeLoop(conn, c, done)

	c.out <- mustFrame(frame{Op: opWelcome, User: user})
	h.readLoop(conn, c, log)

	h.mu.Lock()
	delete(h.conns, c)
	h.mu.Unlock()
	close(done)
	log.Info("hub client disconnected")
}

func (h *Hub) handshake(conn *websocket.Conn) string {
	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return ""
	}
	var f frame
	if err := json.Unmarshal(msg, &f); err != nil || f.Op != opHello || strings.TrimSpace(f.User) == "" {
		closeWith(conn, websocket.ClosePolicyViolation, "expected hello")
		return ""
	}
	return strings.TrimSpace(f.User)
}

// register adds c unless another connection already holds its user id.
func (h *Hub) register(c *hubConn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for other := range h.conns {
		if other.user == c.user {
			return false
		}
	}
	h.conns[c] = struct{}{}
	return true
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), time.Now().Add(time.Second))
}

func (h *Hub) writeLoop(conn *websocket.Conn, c *hubConn, done <-chan struct{}) {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	for {
		select {
		case <-done:
			return
		case b := <-c.out:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				_ = conn.Close()
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				_ = conn.Close()
				return
			}
		}
	}
}

func (h *Hub) readLoop(conn *websocket.Conn, c *hubConn, log *slog.Logger) {
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})
	for {
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var f frame
		if err := json.Unmarshal(msg, &f); err != nil {
			log.Debug("dropping undecodable frame", "error", err)
			continue
		}
		switch f.Op {
		case opSub:
			h.mu.Lock()
			c.subs[f.Channel] = true
			h.mu.Unlock()
			h.send(c, frame{Op: opSubscribed, Channel: f.Channel})
		case opUnsub:
			h.mu.Lock()
			delete(c.subs, f.Channel)
			h.mu.Unlock()
		case opPub:
			h.publish(c, f)
		default:
			log.Debug("ignoring frame", "op", f.Op)
		}
	}
}

// publish fans f out to every other connection subscribed to its channel.
func (h *Hub) publish(from *hubConn, f frame) {
	b := mustFrame(frame{Op: opMsg, Channel: f.Channel, From: from.user, Data: f.Data})

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns {
		if c == from || !c.subs[f.Channel] {
			continue
		}
		select {
		case c.out <- b:
		default:
			h.logger.Warn("subscriber queue full; frame dropped", "user", c.user, "channel", f.Channel)
		}
	}
}

func (h *Hub) send(c *hubConn, f frame) {
	select {
	case c.out <- mustFrame(f):
	default:
	}
}

func mustFrame(f frame) []byte {
	b, err := json.Marshal(f)
	if err != nil {
		panic(err)
	}
	return b
}
