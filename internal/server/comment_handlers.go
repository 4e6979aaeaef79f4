package server

import (
	"freebites/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetComments returns a card's comment thread, oldest first.
func (s *Server) GetComments(c *fiber.Ctx) error {
	cardID, err := s.parseID(c, "cardId", "card ID")
	if err != nil {
		return nil
	}

	comments, err := s.commentService.ListComments(c.Context(), cardID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(comments)
}

// CreateComment attaches a comment to a card.
func (s *Server) CreateComment(c *fiber.Ctx) error {
	cardID, err := s.parseID(c, "cardId", "card ID")
	if err != nil {
		return nil
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	comment, err := s.commentService.CreateComment(c.Context(), cardID, s.netID(c), req.Text)
	if err != nil {
		return respondServiceError(c, err)
	}

	s.publishBroadcastEvent(EventCommentCreated, map[string]interface{}{
		"card_id": cardID,
		"comment": comment,
	})

	return c.Status(fiber.StatusCreated).JSON(comment)
}
