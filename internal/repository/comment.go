package repository

import (
	"context"

	"freebites/internal/models"
	"freebites/internal/observability"

	"gorm.io/gorm"
)

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	ListByCard(ctx context.Context, cardID uint) ([]*models.Comment, error)
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	ctx, span := observability.StartRepoSpan(ctx, "Create", "comments")
	err := r.db.WithContext(ctx).Create(comment).Error
	observability.EndRepoSpan(span, err)
	return err
}

// ListByCard returns a card's comments ordered oldest first.
func (r *commentRepository) ListByCard(ctx context.Context, cardID uint) ([]*models.Comment, error) {
	ctx, span := observability.StartRepoSpan(ctx, "ListByCard", "comments")
	comments := make([]*models.Comment, 0)
	err := r.db.WithContext(ctx).
		Where("card_id = ?", cardID).
		Order("posted_at ASC").
		Find(&comments).Error
	observability.EndRepoSpan(span, err)
	return comments, err
}
