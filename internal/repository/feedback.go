package repository

import (
	"context"

	"freebites/internal/models"
	"freebites/internal/observability"

	"gorm.io/gorm"
)

// FeedbackRepository persists bug reports.
type FeedbackRepository interface {
	Create(ctx context.Context, feedback *models.Feedback) error
}

type feedbackRepository struct {
	db *gorm.DB
}

// NewFeedbackRepository creates a new FeedbackRepository
func NewFeedbackRepository(db *gorm.DB) FeedbackRepository {
	return &feedbackRepository{db: db}
}

func (r *feedbackRepository) Create(ctx context.Context, feedback *models.Feedback) error {
	ctx, span := observability.StartRepoSpan(ctx, "Create", "feedback")
	err := r.db.WithContext(ctx).Create(feedback).Error
	observability.EndRepoSpan(span, err)
	return err
}
