package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"freebites/internal/models"
	"freebites/internal/repository"
)

type FeedbackService struct {
	feedbackRepo repository.FeedbackRepository
}

func NewFeedbackService(feedbackRepo repository.FeedbackRepository) *FeedbackService {
	return &FeedbackService{feedbackRepo: feedbackRepo}
}

func (s *FeedbackService) SubmitFeedback(ctx context.Context, netID, text string) (*models.Feedback, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, models.NewValidationError("Feedback text is required")
	}
	if utf8.RuneCountInString(text) > models.MaxFeedbackLen {
		return nil, models.NewValidationError(fmt.Sprintf("Feedback too long (max %d characters)", models.MaxFeedbackLen))
	}

	fb := &models.Feedback{NetID: netID, Text: text}
	if err := s.feedbackRepo.Create(ctx, fb); err != nil {
		return nil, models.NewStoreUnavailableError(err)
	}
	return fb, nil
}
