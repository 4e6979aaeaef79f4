// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"time"

	"freebites/internal/models"
	"freebites/internal/observability"

	"gorm.io/gorm"
)

// CardRepository defines the interface for card data operations
type CardRepository interface {
	Create(ctx context.Context, card *models.Card) error
	GetByID(ctx context.Context, id uint) (*models.Card, error)
	List(ctx context.Context) ([]*models.Card, error)
	ListByNetID(ctx context.Context, netID string) ([]*models.Card, error)
	Update(ctx context.Context, card *models.Card) error
	Delete(ctx context.Context, id uint) error
	DeleteExpired(ctx context.Context, now time.Time) ([]uint, error)
}

// cardRepository implements CardRepository
type cardRepository struct {
	db *gorm.DB
}

// NewCardRepository creates a new card repository
func NewCardRepository(db *gorm.DB) CardRepository {
	return &cardRepository{db: db}
}

func (r *cardRepository) Create(ctx context.Context, card *models.Card) error {
	ctx, span := observability.StartRepoSpan(ctx, "Create", "cards")
	err := r.db.WithContext(ctx).Create(card).Error
	observability.EndRepoSpan(span, err)
	return err
}

func (r *cardRepository) GetByID(ctx context.Context, id uint) (*models.Card, error) {
	ctx, span := observability.StartRepoSpan(ctx, "GetByID", "cards")
	var card models.Card
	err := r.db.WithContext(ctx).First(&card, id).Error
	observability.EndRepoSpan(span, err)
	if err != nil {
		return nil, err
	}
	return &card, nil
}

func (r *cardRepository) List(ctx context.Context) ([]*models.Card, error) {
	ctx, span := observability.StartRepoSpan(ctx, "List", "cards")
	// Non-nil even when empty, so the API serializes [] rather than null.
	cards := make([]*models.Card, 0)
	err := r.db.WithContext(ctx).
		Order("posted_at DESC").
		Find(&cards).Error
	observability.EndRepoSpan(span, err)
	return cards, err
}

func (r *cardRepository) ListByNetID(ctx context.Context, netID string) ([]*models.Card, error) {
	ctx, span := observability.StartRepoSpan(ctx, "ListByNetID", "cards")
	cards := make([]*models.Card, 0)
	err := r.db.WithContext(ctx).
		Where("net_id = ?", netID).
		Order("posted_at DESC").
		Find(&cards).Error
	observability.EndRepoSpan(span, err)
	return cards, err
}

func (r *cardRepository) Update(ctx context.Context, card *models.Card) error {
	ctx, span := observability.StartRepoSpan(ctx, "Update", "cards")
	err := r.db.WithContext(ctx).Save(card).Error
	observability.EndRepoSpan(span, err)
	return err
}

// Delete removes the card and all of its comments in one transaction, so no
// orphan comment can survive a partially applied delete.
func (r *cardRepository) Delete(ctx context.Context, id uint) error {
	ctx, span := observability.StartRepoSpan(ctx, "Delete", "cards")
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("card_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Card{}, id).Error
	})
	observability.EndRepoSpan(span, err)
	return err
}

// DeleteExpired removes every card whose expires_at has passed, cascading
// comments, and returns the removed card IDs.
func (r *cardRepository) DeleteExpired(ctx context.Context, now time.Time) ([]uint, error) {
	ctx, span := observability.StartRepoSpan(ctx, "DeleteExpired", "cards")
	var ids []uint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Card{}).
			Where("expires_at <= ?", now).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Where("card_id IN ?", ids).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Card{}, ids).Error
	})
	observability.EndRepoSpan(span, err)
	if err != nil {
		return nil, err
	}
	return ids, nil
}
