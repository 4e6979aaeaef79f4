package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"freebites/internal/models"
	"freebites/internal/repository"

	"gorm.io/gorm"
)

type CommentService struct {
	commentRepo repository.CommentRepository
	cardRepo    repository.CardRepository
}

func NewCommentService(commentRepo repository.CommentRepository, cardRepo repository.CardRepository) *CommentService {
	return &CommentService{commentRepo: commentRepo, cardRepo: cardRepo}
}

// ListComments returns the card's comments oldest first. An unknown card has
// no comments, so reads never distinguish missing from empty.
func (s *CommentService) ListComments(ctx context.Context, cardID uint) ([]*models.Comment, error) {
	comments, err := s.commentRepo.ListByCard(ctx, cardID)
	if err != nil {
		return nil, models.NewStoreUnavailableError(err)
	}
	return comments, nil
}

// CreateComment attaches a comment to an existing card. Any authenticated
// user may comment, including on cards they do not own.
func (s *CommentService) CreateComment(ctx context.Context, cardID uint, netID, text string) (*models.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, models.NewValidationError("Comment text is required")
	}
	if utf8.RuneCountInString(text) > models.MaxCommentLen {
		return nil, models.NewValidationError(fmt.Sprintf("Comment too long (max %d characters)", models.MaxCommentLen))
	}

	if _, err := s.cardRepo.GetByID(ctx, cardID); err != nil {
		return nil, cardStoreError(err, cardID)
	}

	comment := &models.Comment{
		CardID: cardID,
		NetID:  netID,
		Text:   text,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return nil, models.NewNotFoundError("Card", cardID)
		}
		return nil, models.NewStoreUnavailableError(err)
	}
	return comment, nil
}
