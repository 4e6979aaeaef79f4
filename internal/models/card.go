// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// Validation bounds for card fields.
const (
	MaxCardTitleLen       = 100
	MaxCardDescriptionLen = 250
)

// Card represents a food-share posting on the board.
type Card struct {
	ID          uint      `gorm:"primaryKey" json:"card_id"`
	NetID       string    `gorm:"not null;index" json:"net_id"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `json:"description"`
	PhotoURL    string    `gorm:"not null" json:"photo_url"`
	Location    string    `json:"location"`
	Latitude    *float64  `json:"latitude"`
	Longitude   *float64  `json:"longitude"`
	DietaryTags StringSet `gorm:"type:text" json:"dietary_tags"`
	Allergens   StringSet `gorm:"type:text" json:"allergens"`
	PostedAt    time.Time `json:"posted_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	ExpiresAt   time.Time `gorm:"index" json:"expires_at"`
	Comments    []Comment `gorm:"foreignKey:CardID;constraint:OnDelete:CASCADE" json:"-"`
}

// HasCoordinates reports whether the card carries a complete coordinate pair.
// A card is never valid with only one of the pair; validation enforces this
// before persistence.
func (c *Card) HasCoordinates() bool {
	return c.Latitude != nil && c.Longitude != nil
}

// Expired reports whether the card is stale relative to now.
func (c *Card) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !c.ExpiresAt.After(now)
}
