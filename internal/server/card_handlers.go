package server

import (
	"freebites/internal/board"
	"freebites/internal/models"
	"freebites/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetCards returns all live cards, newest first. Optional query parameters
// narrow the list: search, dietary (repeatable), allergens (repeatable).
func (s *Server) GetCards(c *fiber.Ctx) error {
	cards, err := s.cardService.ListCards(c.Context())
	if err != nil {
		return respondServiceError(c, err)
	}

	filter := filterFromQuery(c)
	if !filter.Empty() {
		cards = filter.Apply(cards)
	}

	return c.JSON(cards)
}

// GetMyCards returns the requester's cards; admins see the whole board.
func (s *Server) GetMyCards(c *fiber.Ctx) error {
	cards, err := s.cardService.ListCardsByOwner(c.Context(), s.netID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(cards)
}

// GetCard returns a single card by ID.
func (s *Server) GetCard(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id", "card ID")
	if err != nil {
		return nil
	}

	card, err := s.cardService.GetCard(c.Context(), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(card)
}

// CreateCard posts a new card to the board.
func (s *Server) CreateCard(c *fiber.Ctx) error {
	var input service.CardInput
	if err := c.BodyParser(&input); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	card, err := s.cardService.CreateCard(c.Context(), s.netID(c), input)
	if err != nil {
		return respondServiceError(c, err)
	}

	s.publishBroadcastEvent(EventCardCreated, map[string]interface{}{
		"card_id": card.ID,
		"card":    card,
	})

	return c.Status(fiber.StatusCreated).JSON(card)
}

// UpdateCard replaces a card's mutable fields. Owner or admin only.
func (s *Server) UpdateCard(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id", "card ID")
	if err != nil {
		return nil
	}

	var input service.CardInput
	if err := c.BodyParser(&input); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	card, err := s.cardService.UpdateCard(c.Context(), id, s.netID(c), input)
	if err != nil {
		return respondServiceError(c, err)
	}

	s.publishBroadcastEvent(EventCardEdited, map[string]interface{}{
		"card_id": card.ID,
		"card":    card,
	})

	return c.JSON(card)
}

// DeleteCard removes a card and its comments. Owner or admin only.
func (s *Server) DeleteCard(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id", "card ID")
	if err != nil {
		return nil
	}

	if err := s.cardService.DeleteCard(c.Context(), id, s.netID(c)); err != nil {
		return respondServiceError(c, err)
	}

	s.publishBroadcastEvent(EventCardDeleted, map[string]interface{}{
		"card_id": id,
	})

	return c.JSON(fiber.Map{"message": "Card deleted successfully"})
}

func filterFromQuery(c *fiber.Ctx) board.Filter {
	args := c.Context().QueryArgs()
	var dietary, allergens []string
	for _, v := range args.PeekMulti("dietary") {
		dietary = append(dietary, string(v))
	}
	for _, v := range args.PeekMulti("allergens") {
		allergens = append(allergens, string(v))
	}
	return board.Filter{
		Search:      c.Query("search"),
		DietaryTags: dietary,
		Allergens:   allergens,
	}
}
