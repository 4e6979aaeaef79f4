package server

import (
	"freebites/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WebsocketHandler upgrades the connection and streams board events to the
// client until it disconnects.
func (s *Server) WebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		netIDVal := conn.Locals("netID")
		netID, ok := netIDVal.(string)
		if !ok || netID == "" {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(netID, conn)
		if err != nil {
			middleware.Logger.Warn("websocket registration rejected", "net_id", netID, "error", err)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		middleware.Logger.Info("websocket connected", "net_id", netID)

		client.TrySend([]byte(`{"type":"connected","payload":{}}`))

		// Write pump runs in its own goroutine; the read pump blocks here
		// until the peer goes away.
		go client.WritePump()
		client.ReadPump()

		middleware.Logger.Info("websocket disconnected", "net_id", netID)
	})
}
