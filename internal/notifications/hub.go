// Package notifications delivers live board updates to connected clients.
package notifications

import (
	"context"
	"errors"
	"sync"

	"freebites/internal/middleware"

	"github.com/gofiber/websocket/v2"
)

const (
	// Max connections per NetID
	maxConnsPerUser = 8
	// Max total connections
	maxTotalConns = 5000
)

// Hub maps NetID -> set of Clients. Every board event goes to every client;
// the per-user index only exists to enforce connection caps and close cleanly.
type Hub struct {
	mu         sync.RWMutex
	conns      map[string]map[*Client]struct{}
	totalConns int
	shutdown   chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		conns:    make(map[string]map[*Client]struct{}),
		shutdown: make(chan struct{}),
	}
}

// Name returns a human-readable identifier for this hub.
func (h *Hub) Name() string { return "board hub" }

// Register adds a connection for a NetID. Returns an error if limits are
// exceeded; the handler should close the socket in that case.
func (h *Hub) Register(netID string, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	select {
	case <-h.shutdown:
		return nil, errors.New("server is shutting down")
	default:
	}

	if h.totalConns >= maxTotalConns {
		return nil, errors.New("server connection limit reached")
	}

	m, ok := h.conns[netID]
	if !ok {
		m = make(map[*Client]struct{})
		h.conns[netID] = m
	}
	if len(m) >= maxConnsPerUser {
		return nil, errors.New("user connection limit reached")
	}

	client := newClient(h, conn, netID)
	m[client] = struct{}{}
	h.totalConns++
	middleware.ActiveWebSockets.Inc()
	return client, nil
}

func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if m, ok := h.conns[client.NetID]; ok {
		if _, exists := m[client]; exists {
			delete(m, client)
			h.totalConns--
			middleware.ActiveWebSockets.Dec()
		}
		if len(m) == 0 {
			delete(h.conns, client.NetID)
		}
	}
}

// BroadcastAll sends the message to every connected client.
func (h *Hub) BroadcastAll(message string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	data := []byte(message)
	for _, clients := range h.conns {
		for c := range clients {
			c.TrySend(data)
		}
	}
}

// ConnectionCount reports the current number of open sockets.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.totalConns
}

// StartWiring connects the Notifier to this hub: board events published on
// any server instance reach the clients attached to this one.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartSubscriber(ctx, func(payload string) {
		h.BroadcastAll(payload)
	})
}

// Shutdown gracefully closes all websocket connections.
func (h *Hub) Shutdown(_ context.Context) error {
	close(h.shutdown)

	h.mu.Lock()
	defer h.mu.Unlock()
	for netID, clients := range h.conns {
		for client := range clients {
			if client.Conn == nil {
				continue
			}
			if err := client.Conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down")); err != nil {
				middleware.Logger.Warn("failed to write close message", "net_id", netID, "error", err)
			}
			if err := client.Conn.Close(); err != nil {
				middleware.Logger.Warn("failed to close websocket", "net_id", netID, "error", err)
			}
		}
	}
	h.conns = make(map[string]map[*Client]struct{})
	h.totalConns = 0

	return nil
}
