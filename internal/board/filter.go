// Package board holds the pure filtering rules for the card list. Handlers
// and the watcher client both apply them to an in-memory slice, so the rules
// live apart from transport and storage.
package board

import (
	"strings"

	"freebites/internal/models"
)

// Filter narrows a card list. Zero value matches everything.
type Filter struct {
	// Search matches case-insensitively against title, location, dietary
	// tags and allergens.
	Search string

	// DietaryTags keeps only cards carrying every listed tag.
	DietaryTags []string

	// Allergens hides any card carrying at least one listed allergen.
	Allergens []string
}

// Empty reports whether the filter would pass every card through.
func (f Filter) Empty() bool {
	return strings.TrimSpace(f.Search) == "" && len(f.DietaryTags) == 0 && len(f.Allergens) == 0
}

// Match reports whether a single card survives the filter.
func (f Filter) Match(card *models.Card) bool {
	if card == nil {
		return false
	}
	if len(f.DietaryTags) > 0 && !card.DietaryTags.ContainsAll(f.DietaryTags) {
		return false
	}
	if len(f.Allergens) > 0 && card.Allergens.ContainsAny(f.Allergens) {
		return false
	}
	return f.matchSearch(card)
}

// Apply returns the cards that survive the filter, preserving order.
func (f Filter) Apply(cards []*models.Card) []*models.Card {
	if f.Empty() {
		return cards
	}
	out := make([]*models.Card, 0, len(cards))
	for _, card := range cards {
		if f.Match(card) {
			out = append(out, card)
		}
	}
	return out
}

func (f Filter) matchSearch(card *models.Card) bool {
	query := strings.ToLower(strings.TrimSpace(f.Search))
	if query == "" {
		return true
	}
	if strings.Contains(strings.ToLower(card.Title), query) {
		return true
	}
	if strings.Contains(strings.ToLower(card.Location), query) {
		return true
	}
	for _, tag := range card.DietaryTags {
		if strings.Contains(strings.ToLower(tag), query) {
			return true
		}
	}
	for _, allergen := range card.Allergens {
		if strings.Contains(strings.ToLower(allergen), query) {
			return true
		}
	}
	return false
}
