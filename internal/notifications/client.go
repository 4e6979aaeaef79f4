package notifications

import (
	"time"

	"freebites/internal/middleware"

	"github.com/gofiber/websocket/v2"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Board clients only listen, so
	// anything beyond a close frame is noise.
	maxMessageSize = 512
)

// Client is a middleman between one websocket connection and the hub.
type Client struct {
	Hub *Hub

	// The websocket connection.
	Conn *websocket.Conn

	// Buffered channel of outbound messages.
	Send chan []byte

	// NetID of the authenticated user behind this connection.
	NetID string
}

func newClient(hub *Hub, conn *websocket.Conn, netID string) *Client {
	return &Client{
		Hub:   hub,
		Conn:  conn,
		NetID: netID,
		Send:  make(chan []byte, 64),
	}
}

// ReadPump drains the connection so pong frames and close handshakes are
// processed. Incoming text frames are ignored.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.UnregisterClient(c)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { _ = c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				middleware.Logger.Warn("websocket read failed", "net_id", c.NetID, "error", err)
			}
			break
		}
	}
}

// WritePump pumps messages from the hub to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// TrySend queues a message without blocking the broadcaster. A client whose
// buffer is full gets a drop notice so it can re-fetch the board.
func (c *Client) TrySend(message []byte) {
	defer func() {
		if r := recover(); r != nil {
			middleware.WebSocketDrops.WithLabelValues(c.Hub.Name(), "closed").Inc()
		}
	}()

	select {
	case c.Send <- message:
	default:
		middleware.WebSocketDrops.WithLabelValues(c.Hub.Name(), "full").Inc()
		middleware.Logger.Warn("websocket buffer full, dropped message", "net_id", c.NetID)

		dropNotice := []byte(`{"type":"events_dropped","payload":{"reason":"buffer_full"}}`)
		select {
		case c.Send <- dropNotice:
		default:
		}
	}
}
