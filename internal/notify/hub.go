package notify

import (
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/liliang-cn/docuchat/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	clientBuffer   = 16
	maxInboundSize = 512
)

type client struct {
	conn      *websocket.Conn
	sessionID string
	send      chan domain.Event
}

// Hub pushes events to WebSocket subscribers. A subscriber with an empty
// session ID receives the events of every session.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*client]struct{}
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewHub creates a new hub. Handshakes are accepted from allowOrigins
// ("*" for any) and from clients that send no Origin header.
func NewHub(logger *zap.Logger, allowOrigins []string) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowOrigins),
		},
		logger: logger,
	}
}

// originChecker is needed because browsers do not apply CORS to
// WebSocket handshakes.
func originChecker(allowOrigins []string) func(r *http.Request) bool {
	anyOrigin := slices.Contains(allowOrigins, "*")
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || anyOrigin || slices.Contains(allowOrigins, origin)
	}
}

// Notify queues the event for every matching subscriber. Subscribers whose
// buffer is full miss the event.
func (h *Hub) Notify(event domain.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if c.sessionID != "" && c.sessionID != event.SessionID {
			continue
		}
		select {
		case c.send <- event:
		default:
			h.logger.Debug("dropping event for slow subscriber", zap.String("session_id", event.SessionID))
		}
	}
}

// Subscribers returns the number of connected subscribers
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Serve upgrades the request and streams events until the peer goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, sessionID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &client{
		conn:      conn,
		sessionID: sessionID,
		send:      make(chan domain.Event, clientBuffer),
	}
	h.register(c)
	h.logger.Debug("event subscriber connected", zap.String("session_id", sessionID))

	done := make(chan struct{})
	go h.writePump(c, done)
	h.readPump(c)

	h.unregister(c)
	close(done)
	h.logger.Debug("event subscriber disconnected", zap.String("session_id", sessionID))
	return nil
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// readPump discards inbound messages and returns when the connection closes.
func (h *Hub) readPump(c *client) {
	defer c.conn.Close()

	c.conn.SetReadLimit(maxInboundSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case event := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(event); err != nil {
				h.logger.Debug("failed to write event", zap.Error(err))
				c.conn.Close()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.conn.Close()
				return
			}
		}
	}
}
