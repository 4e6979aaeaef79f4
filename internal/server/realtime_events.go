package server

import (
	"context"

	"freebites/internal/middleware"

	"github.com/goccy/go-json"
)

// Event type constants prevent typos in event names.
const (
	EventCardCreated    = "card_created"
	EventCardEdited     = "card_edited"
	EventCardDeleted    = "card_deleted"
	EventCommentCreated = "comment_created"
)

// publishBroadcastEvent fans a board event out to every connected client.
// With Redis the event goes through pub/sub so all server instances see it;
// without it the local hub delivers directly.
func (s *Server) publishBroadcastEvent(eventType string, payload map[string]interface{}) {
	event := map[string]interface{}{
		"type":    eventType,
		"payload": payload,
	}
	eventJSON, err := json.Marshal(event)
	if err != nil {
		middleware.Logger.Error("failed to marshal event", "type", eventType, "error", err)
		return
	}
	message := string(eventJSON)

	middleware.BoardEvents.WithLabelValues(eventType).Inc()

	if s.notifier.Enabled() {
		if err := s.notifier.PublishBroadcast(context.Background(), message); err != nil {
			middleware.Logger.Error("failed to publish broadcast event", "type", eventType, "error", err)
			// Fall back to local delivery so this instance's clients still hear it.
			s.hub.BroadcastAll(message)
		}
		return
	}

	if s.hub != nil {
		s.hub.BroadcastAll(message)
	}
}
