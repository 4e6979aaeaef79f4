package service

import (
	"context"
	"errors"

	"freebites/internal/models"
	"freebites/internal/repository"

	"gorm.io/gorm"
)

type UserService struct {
	userRepo   repository.UserRepository
	adminNetID string
}

func NewUserService(userRepo repository.UserRepository, adminNetID string) *UserService {
	return &UserService{userRepo: userRepo, adminNetID: adminNetID}
}

// EnsureUser records the NetID on first sight. The configured admin NetID is
// promoted on every login so the role survives a reseeded database.
func (s *UserService) EnsureUser(ctx context.Context, netID string) error {
	if netID == s.adminNetID && s.adminNetID != "" {
		if err := s.userRepo.EnsureAdmin(ctx, netID); err != nil {
			return models.NewStoreUnavailableError(err)
		}
		return nil
	}
	if err := s.userRepo.Upsert(ctx, netID); err != nil {
		return models.NewStoreUnavailableError(err)
	}
	return nil
}

// IsAdmin satisfies the AdminPredicate used by the card service. An unknown
// NetID is simply not an admin.
func (s *UserService) IsAdmin(ctx context.Context, netID string) (bool, error) {
	user, err := s.userRepo.GetByNetID(ctx, netID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return user.IsAdmin, nil
}
