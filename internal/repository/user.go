package repository

import (
	"context"

	"freebites/internal/models"
	"freebites/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository defines the interface for user identity operations
type UserRepository interface {
	Upsert(ctx context.Context, netID string) error
	GetByNetID(ctx context.Context, netID string) (*models.User, error)
	EnsureAdmin(ctx context.Context, netID string) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Upsert records a NetID the first time it is seen; repeat calls are no-ops.
func (r *userRepository) Upsert(ctx context.Context, netID string) error {
	ctx, span := observability.StartRepoSpan(ctx, "Upsert", "users")
	user := models.User{NetID: netID}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "net_id"}},
			DoNothing: true,
		}).
		Create(&user).Error
	observability.EndRepoSpan(span, err)
	return err
}

func (r *userRepository) GetByNetID(ctx context.Context, netID string) (*models.User, error) {
	ctx, span := observability.StartRepoSpan(ctx, "GetByNetID", "users")
	var user models.User
	err := r.db.WithContext(ctx).Where("net_id = ?", netID).First(&user).Error
	observability.EndRepoSpan(span, err)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// EnsureAdmin creates the identity if missing and grants it the admin role.
func (r *userRepository) EnsureAdmin(ctx context.Context, netID string) error {
	if err := r.Upsert(ctx, netID); err != nil {
		return err
	}
	ctx, span := observability.StartRepoSpan(ctx, "EnsureAdmin", "users")
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("net_id = ?", netID).
		Update("is_admin", true).Error
	observability.EndRepoSpan(span, err)
	return err
}
