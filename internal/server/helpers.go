package server

import (
	"errors"

	"freebites/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
func (s *Server) parseID(c *fiber.Ctx, param, label string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+label))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// netID returns the authenticated NetID placed in locals by AuthRequired.
func (s *Server) netID(c *fiber.Ctx) string {
	if v, ok := c.Locals("netID").(string); ok {
		return v
	}
	return ""
}

// statusForError maps the service error taxonomy onto HTTP status codes.
func statusForError(err error) int {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		return fiber.StatusInternalServerError
	}
	switch appErr.Code {
	case models.CodeNotFound:
		return fiber.StatusNotFound
	case models.CodeValidation:
		return fiber.StatusBadRequest
	case models.CodeForbidden:
		return fiber.StatusForbidden
	case models.CodeUnauthorized:
		return fiber.StatusUnauthorized
	case models.CodeUploadFailed:
		return fiber.StatusBadGateway
	case models.CodeStoreUnavailable:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// respondServiceError writes the JSON error response for a service error.
func respondServiceError(c *fiber.Ctx, err error) error {
	return models.RespondWithError(c, statusForError(err), err)
}
