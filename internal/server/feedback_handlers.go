package server

import (
	"freebites/internal/models"

	"github.com/gofiber/fiber/v2"
)

// SubmitFeedback stores a free-text bug report.
func (s *Server) SubmitFeedback(c *fiber.Ctx) error {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if _, err := s.feedbackService.SubmitFeedback(c.Context(), s.netID(c), req.Text); err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Feedback received"})
}
