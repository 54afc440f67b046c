// Package notify delivers purchase order notifications to connected users.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	tradeapp "github.com/Massea0/entrepriseOS-complete-sub002/internal/application/trade"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 16
)

type clientKey struct {
	tenantID uuid.UUID
	userID   string
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub tracks websocket connections by tenant and user.
// A user may hold several connections; each one receives every notification addressed to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[clientKey]map[*client]struct{}
	logger  *zap.Logger
}

// NewHub creates an empty hub
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[clientKey]map[*client]struct{}),
		logger:  logger.Named("ws-hub"),
	}
}

// Serve registers conn for the user and blocks until the connection closes
func (h *Hub) Serve(conn *websocket.Conn, tenantID uuid.UUID, userID string) {
	key := clientKey{tenantID: tenantID, userID: userID}
	c := &client{conn: conn, send: make(chan []byte, sendBufferSize)}
	h.register(key, c)

	done := make(chan struct{})
	go h.writePump(c, done)
	h.readPump(c)

	h.unregister(key, c)
	close(done)
}

func (h *Hub) register(key clientKey, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.clients[key]
	if !ok {
		conns = make(map[*client]struct{})
		h.clients[key] = conns
	}
	conns[c] = struct{}{}
	h.logger.Debug("websocket client registered", zap.String("user_id", key.userID), zap.Int("connections", len(conns)))
}

func (h *Hub) unregister(key clientKey, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.clients[key]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.clients, key)
		}
	}
	h.logger.Debug("websocket client unregistered", zap.String("user_id", key.userID))
}

// readPump drains client frames; only control frames matter
func (h *Hub) readPump(c *client) {
	defer c.conn.Close()
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("unexpected websocket close", zap.Error(err))
			}
			return
		}
	}
}

// writePump is the only writer of c.conn
func (h *Hub) writePump(c *client, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.conn.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.conn.Close()
				return
			}
		case <-done:
			return
		}
	}
}

// Notify implements tradeapp.Notifier. Offline recipients are skipped; a client whose
// buffer is full misses the message rather than blocking the event bus.
func (h *Hub) Notify(_ context.Context, n tradeapp.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, userID := range n.Recipients {
		for c := range h.clients[clientKey{tenantID: n.TenantID, userID: userID}] {
			select {
			case c.send <- payload:
			default:
				h.logger.Warn("websocket client too slow, dropping notification",
					zap.String("user_id", userID),
					zap.String("order_id", n.OrderID.String()),
				)
			}
		}
	}
	return nil
}

// Connections returns the number of open connections of a user
func (h *Hub) Connections(tenantID uuid.UUID, userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[clientKey{tenantID: tenantID, userID: userID}])
}

var _ tradeapp.Notifier = (*Hub)(nil)
