package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"freebites/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// cardRepoStub is a stub for repository.CardRepository.
type cardRepoStub struct {
	createFn        func(context.Context, *models.Card) error
	getByIDFn       func(context.Context, uint) (*models.Card, error)
	listFn          func(context.Context) ([]*models.Card, error)
	listByNetIDFn   func(context.Context, string) ([]*models.Card, error)
	updateFn        func(context.Context, *models.Card) error
	deleteFn        func(context.Context, uint) error
	deleteExpiredFn func(context.Context, time.Time) ([]uint, error)
}

func (s *cardRepoStub) Create(ctx context.Context, card *models.Card) error {
	return s.createFn(ctx, card)
}
func (s *cardRepoStub) GetByID(ctx context.Context, id uint) (*models.Card, error) {
	return s.getByIDFn(ctx, id)
}
func (s *cardRepoStub) List(ctx context.Context) ([]*models.Card, error) {
	return s.listFn(ctx)
}
func (s *cardRepoStub) ListByNetID(ctx context.Context, netID string) ([]*models.Card, error) {
	return s.listByNetIDFn(ctx, netID)
}
func (s *cardRepoStub) Update(ctx context.Context, card *models.Card) error {
	return s.updateFn(ctx, card)
}
func (s *cardRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *cardRepoStub) DeleteExpired(ctx context.Context, now time.Time) ([]uint, error) {
	return s.deleteExpiredFn(ctx, now)
}

func noopCardRepo() *cardRepoStub {
	return &cardRepoStub{
		createFn:      func(_ context.Context, _ *models.Card) error { return nil },
		getByIDFn:     func(_ context.Context, _ uint) (*models.Card, error) { return nil, gorm.ErrRecordNotFound },
		listFn:        func(_ context.Context) ([]*models.Card, error) { return nil, nil },
		listByNetIDFn: func(_ context.Context, _ string) ([]*models.Card, error) { return nil, nil },
		updateFn:      func(_ context.Context, _ *models.Card) error { return nil },
		deleteFn:      func(_ context.Context, _ uint) error { return nil },
		deleteExpiredFn: func(_ context.Context, _ time.Time) ([]uint, error) {
			return nil, nil
		},
	}
}

func noAdmins(_ context.Context, _ string) (bool, error) { return false, nil }

func validInput() CardInput {
	return CardInput{
		Title:    "Free Pizza",
		PhotoURL: "https://img.example/pizza.jpg",
		Location: "Frist Campus Center",
	}
}

func TestCreateCard_Defaults(t *testing.T) {
	t.Parallel()

	var created *models.Card
	repo := noopCardRepo()
	repo.createFn = func(_ context.Context, card *models.Card) error {
		created = card
		return nil
	}
	svc := NewCardService(repo, noAdmins)
	posted := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return posted }

	in := validInput()
	in.DietaryTags = []string{"Vegetarian", " vegetarian ", "Halal"}

	card, err := svc.CreateCard(context.Background(), "aw1234", in)
	require.NoError(t, err)
	require.NotNil(t, created)

	assert.Equal(t, "aw1234", card.NetID)
	assert.Equal(t, posted, card.PostedAt)
	assert.Equal(t, posted.Add(3*time.Hour), card.ExpiresAt)
	// Duplicate tags collapse case-insensitively.
	assert.Equal(t, models.StringSet{"Vegetarian", "Halal"}, card.DietaryTags)
}

func TestCreateCard_Validation(t *testing.T) {
	t.Parallel()

	lat := 40.3467
	lng := -74.6555

	tests := []struct {
		name   string
		mutate func(*CardInput)
	}{
		{"missing title", func(in *CardInput) { in.Title = "   " }},
		{"title too long", func(in *CardInput) { in.Title = strings.Repeat("x", models.MaxCardTitleLen+1) }},
		{"multibyte title too long", func(in *CardInput) { in.Title = strings.Repeat("é", models.MaxCardTitleLen+1) }},
		{"description too long", func(in *CardInput) { in.Description = strings.Repeat("x", models.MaxCardDescriptionLen+1) }},
		{"missing photo", func(in *CardInput) { in.PhotoURL = "" }},
		{"latitude without longitude", func(in *CardInput) { in.Latitude = &lat }},
		{"longitude without latitude", func(in *CardInput) { in.Longitude = &lng }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			repo := noopCardRepo()
			repo.createFn = func(_ context.Context, _ *models.Card) error {
				t.Fatal("create should not be reached")
				return nil
			}
			svc := NewCardService(repo, noAdmins)

			in := validInput()
			tt.mutate(&in)

			_, err := svc.CreateCard(context.Background(), "aw1234", in)
			var appErr *models.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, models.CodeValidation, appErr.Code)
		})
	}
}

func TestCreateCard_MultibyteLengthsCountedInRunes(t *testing.T) {
	t.Parallel()

	repo := noopCardRepo()
	svc := NewCardService(repo, noAdmins)

	// Exactly at the character limits; far over them in bytes.
	in := validInput()
	in.Title = strings.Repeat("é", models.MaxCardTitleLen)
	in.Description = strings.Repeat("é", models.MaxCardDescriptionLen)

	_, err := svc.CreateCard(context.Background(), "aw1234", in)
	assert.NoError(t, err)
}

func TestCreateCard_CoordinatePairAccepted(t *testing.T) {
	t.Parallel()

	repo := noopCardRepo()
	svc := NewCardService(repo, noAdmins)

	lat := 40.3467
	lng := -74.6555
	in := validInput()
	in.Latitude = &lat
	in.Longitude = &lng

	card, err := svc.CreateCard(context.Background(), "aw1234", in)
	require.NoError(t, err)
	assert.True(t, card.HasCoordinates())
}

func TestUpdateCard_NonOwnerForbidden(t *testing.T) {
	t.Parallel()

	repo := noopCardRepo()
	repo.getByIDFn = func(_ context.Context, id uint) (*models.Card, error) {
		return &models.Card{ID: id, NetID: "owner1", Title: "Bagels"}, nil
	}
	repo.updateFn = func(_ context.Context, _ *models.Card) error {
		t.Fatal("update should not be reached")
		return nil
	}
	svc := NewCardService(repo, noAdmins)

	_, err := svc.UpdateCard(context.Background(), 1, "intruder", validInput())
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeForbidden, appErr.Code)
}

func TestUpdateCard_AdminAllowed(t *testing.T) {
	t.Parallel()

	updated := false
	repo := noopCardRepo()
	repo.getByIDFn = func(_ context.Context, id uint) (*models.Card, error) {
		return &models.Card{ID: id, NetID: "owner1", Title: "Bagels"}, nil
	}
	repo.updateFn = func(_ context.Context, _ *models.Card) error {
		updated = true
		return nil
	}
	admin := func(_ context.Context, netID string) (bool, error) {
		return netID == "cs-admin", nil
	}
	svc := NewCardService(repo, admin)

	card, err := svc.UpdateCard(context.Background(), 1, "cs-admin", validInput())
	require.NoError(t, err)
	assert.True(t, updated)
	assert.Equal(t, "Free Pizza", card.Title)
	// Ownership stays with the original poster.
	assert.Equal(t, "owner1", card.NetID)
}

func TestDeleteCard_OwnerAllowed(t *testing.T) {
	t.Parallel()

	deleted := false
	repo := noopCardRepo()
	repo.getByIDFn = func(_ context.Context, id uint) (*models.Card, error) {
		return &models.Card{ID: id, NetID: "owner1"}, nil
	}
	repo.deleteFn = func(_ context.Context, _ uint) error {
		deleted = true
		return nil
	}
	svc := NewCardService(repo, noAdmins)

	require.NoError(t, svc.DeleteCard(context.Background(), 1, "owner1"))
	assert.True(t, deleted)
}

func TestGetCard_NotFound(t *testing.T) {
	t.Parallel()

	svc := NewCardService(noopCardRepo(), noAdmins)

	_, err := svc.GetCard(context.Background(), 99)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeNotFound, appErr.Code)
}

func TestListCards_StoreUnavailable(t *testing.T) {
	t.Parallel()

	repo := noopCardRepo()
	repo.listFn = func(_ context.Context) ([]*models.Card, error) {
		return nil, errors.New("connection refused")
	}
	svc := NewCardService(repo, noAdmins)

	_, err := svc.ListCards(context.Background())
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeStoreUnavailable, appErr.Code)
}

func TestListCardsByOwner_AdminSeesAll(t *testing.T) {
	t.Parallel()

	repo := noopCardRepo()
	repo.listFn = func(_ context.Context) ([]*models.Card, error) {
		return []*models.Card{{ID: 1, NetID: "a"}, {ID: 2, NetID: "b"}}, nil
	}
	repo.listByNetIDFn = func(_ context.Context, _ string) ([]*models.Card, error) {
		t.Fatal("owner listing should not be reached for admins")
		return nil, nil
	}
	admin := func(_ context.Context, netID string) (bool, error) {
		return netID == "cs-admin", nil
	}
	svc := NewCardService(repo, admin)

	cards, err := svc.ListCardsByOwner(context.Background(), "cs-admin")
	require.NoError(t, err)
	assert.Len(t, cards, 2)
}
