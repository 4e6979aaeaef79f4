// Package service implements the board's business rules over the repositories.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"freebites/internal/models"
	"freebites/internal/repository"

	"gorm.io/gorm"
)

// DefaultCardLifetime is applied when a card is created without an explicit
// expiration, matching the board's three-hour listing window.
const DefaultCardLifetime = 3 * time.Hour

// AdminPredicate reports whether the given NetID carries the admin role.
type AdminPredicate func(ctx context.Context, netID string) (bool, error)

type CardService struct {
	cardRepo repository.CardRepository
	isAdmin  AdminPredicate
	now      func() time.Time
}

// CardInput carries the client-supplied card fields for create and update.
// Update overwrites every mutable field with these values.
type CardInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	PhotoURL    string     `json:"photo_url"`
	Location    string     `json:"location"`
	Latitude    *float64   `json:"latitude"`
	Longitude   *float64   `json:"longitude"`
	DietaryTags []string   `json:"dietary_tags"`
	Allergens   []string   `json:"allergens"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

func NewCardService(cardRepo repository.CardRepository, isAdmin AdminPredicate) *CardService {
	return &CardService{
		cardRepo: cardRepo,
		isAdmin:  isAdmin,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ListCards returns every card on the board, newest first.
func (s *CardService) ListCards(ctx context.Context) ([]*models.Card, error) {
	cards, err := s.cardRepo.List(ctx)
	if err != nil {
		return nil, models.NewStoreUnavailableError(err)
	}
	return cards, nil
}

// ListCardsByOwner returns the requester's view of an owner's cards: the
// owner's own rows, or the whole board when the requester is an admin.
func (s *CardService) ListCardsByOwner(ctx context.Context, netID string) ([]*models.Card, error) {
	admin, err := s.requesterIsAdmin(ctx, netID)
	if err != nil {
		return nil, err
	}
	if admin {
		return s.ListCards(ctx)
	}

	cards, err := s.cardRepo.ListByNetID(ctx, netID)
	if err != nil {
		return nil, models.NewStoreUnavailableError(err)
	}
	return cards, nil
}

func (s *CardService) GetCard(ctx context.Context, id uint) (*models.Card, error) {
	card, err := s.cardRepo.GetByID(ctx, id)
	if err != nil {
		return nil, cardStoreError(err, id)
	}
	return card, nil
}

func (s *CardService) CreateCard(ctx context.Context, netID string, in CardInput) (*models.Card, error) {
	if err := validateCardInput(in); err != nil {
		return nil, err
	}

	now := s.now()
	expiresAt := now.Add(DefaultCardLifetime)
	if in.ExpiresAt != nil {
		expiresAt = in.ExpiresAt.UTC()
	}

	card := &models.Card{
		NetID:       netID,
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		PhotoURL:    in.PhotoURL,
		Location:    strings.TrimSpace(in.Location),
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		DietaryTags: models.NewStringSet(in.DietaryTags),
		Allergens:   models.NewStringSet(in.Allergens),
		PostedAt:    now,
		ExpiresAt:   expiresAt,
	}

	if err := s.cardRepo.Create(ctx, card); err != nil {
		return nil, models.NewStoreUnavailableError(err)
	}
	return card, nil
}

// UpdateCard overwrites all mutable fields of the card and refreshes
// updated_at. Only the owner or an admin may edit.
func (s *CardService) UpdateCard(ctx context.Context, id uint, requester string, in CardInput) (*models.Card, error) {
	card, err := s.cardRepo.GetByID(ctx, id)
	if err != nil {
		return nil, cardStoreError(err, id)
	}

	if err := s.authorize(ctx, card, requester, "edit"); err != nil {
		return nil, err
	}

	if err := validateCardInput(in); err != nil {
		return nil, err
	}

	card.Title = strings.TrimSpace(in.Title)
	card.Description = strings.TrimSpace(in.Description)
	card.PhotoURL = in.PhotoURL
	card.Location = strings.TrimSpace(in.Location)
	card.Latitude = in.Latitude
	card.Longitude = in.Longitude
	card.DietaryTags = models.NewStringSet(in.DietaryTags)
	card.Allergens = models.NewStringSet(in.Allergens)
	if in.ExpiresAt != nil {
		card.ExpiresAt = in.ExpiresAt.UTC()
	}

	if err := s.cardRepo.Update(ctx, card); err != nil {
		return nil, models.NewStoreUnavailableError(err)
	}
	return card, nil
}

// DeleteCard removes the card and, through the repository transaction, every
// comment attached to it. Only the owner or an admin may delete.
func (s *CardService) DeleteCard(ctx context.Context, id uint, requester string) error {
	card, err := s.cardRepo.GetByID(ctx, id)
	if err != nil {
		return cardStoreError(err, id)
	}

	if err := s.authorize(ctx, card, requester, "delete"); err != nil {
		return err
	}

	if err := s.cardRepo.Delete(ctx, id); err != nil {
		return models.NewStoreUnavailableError(err)
	}
	return nil
}

// authorize applies the ownership rule uniformly: the card owner passes, any
// other requester must hold the admin role.
func (s *CardService) authorize(ctx context.Context, card *models.Card, requester, action string) error {
	if card.NetID == requester {
		return nil
	}
	admin, err := s.requesterIsAdmin(ctx, requester)
	if err != nil {
		return err
	}
	if !admin {
		return models.NewForbiddenError(fmt.Sprintf("You can only %s your own cards", action))
	}
	return nil
}

func (s *CardService) requesterIsAdmin(ctx context.Context, netID string) (bool, error) {
	if s.isAdmin == nil {
		return false, nil
	}
	admin, err := s.isAdmin(ctx, netID)
	if err != nil {
		return false, models.NewStoreUnavailableError(err)
	}
	return admin, nil
}

func validateCardInput(in CardInput) error {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return models.NewValidationError("Title is required")
	}
	// Limits are character counts, so multibyte text is measured in runes.
	if utf8.RuneCountInString(title) > models.MaxCardTitleLen {
		return models.NewValidationError(fmt.Sprintf("Title too long (max %d characters)", models.MaxCardTitleLen))
	}
	if utf8.RuneCountInString(strings.TrimSpace(in.Description)) > models.MaxCardDescriptionLen {
		return models.NewValidationError(fmt.Sprintf("Description too long (max %d characters)", models.MaxCardDescriptionLen))
	}
	if strings.TrimSpace(in.PhotoURL) == "" {
		return models.NewValidationError("photo_url is required")
	}
	// Coordinates come as a pair or not at all.
	if (in.Latitude == nil) != (in.Longitude == nil) {
		return models.NewValidationError("latitude and longitude must be provided together")
	}
	return nil
}

func cardStoreError(err error, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError("Card", id)
	}
	return models.NewStoreUnavailableError(err)
}
