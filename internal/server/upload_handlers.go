package server

import (
	"io"

	"freebites/internal/models"

	"github.com/gofiber/fiber/v2"
)

// UploadImage accepts a multipart photo, validates it and forwards it to the
// hosted image store. The response carries the URL to put on a card.
func (s *Server) UploadImage(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Image file is required"))
	}

	file, err := fileHeader.Open()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Image file could not be read"))
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Image file could not be read"))
	}

	url, err := s.uploadService.UploadImage(
		c.Context(), fileHeader.Filename, fileHeader.Header.Get("Content-Type"), data)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{"url": url})
}
