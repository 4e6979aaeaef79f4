package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"freebites/internal/config"
	"freebites/internal/models"
	"freebites/internal/notifications"
	"freebites/internal/repository"
	"freebites/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupHandlerTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Card{},
		&models.Comment{},
		&models.Feedback{},
	); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}

	return db
}

// newTestServer wires a Server over an in-memory database without the
// Prometheus middleware, which cannot be registered twice per process.
func newTestServer(t *testing.T, db *gorm.DB) *Server {
	t.Helper()

	cfg := &config.Config{
		Port:       "0",
		JWTSecret:  "test-secret",
		AdminNetID: "cs-freebites",
	}

	s := &Server{
		config:       cfg,
		db:           db,
		cardRepo:     repository.NewCardRepository(db),
		commentRepo:  repository.NewCommentRepository(db),
		userRepo:     repository.NewUserRepository(db),
		feedbackRepo: repository.NewFeedbackRepository(db),
		hub:          notifications.NewHub(),
	}
	s.userService = service.NewUserService(s.userRepo, cfg.AdminNetID)
	s.cardService = service.NewCardService(s.cardRepo, s.userService.IsAdmin)
	s.commentService = service.NewCommentService(s.commentRepo, s.cardRepo)
	s.feedbackService = service.NewFeedbackService(s.feedbackRepo)
	return s
}

// newTestApp mounts the handlers with a stubbed identity in locals.
func newTestApp(s *Server, netID string) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("netID", netID)
		return c.Next()
	})

	app.Get("/api/cards", s.GetCards)
	app.Get("/api/cards/mine", s.GetMyCards)
	app.Post("/api/cards", s.CreateCard)
	app.Put("/api/cards/:id", s.UpdateCard)
	app.Delete("/api/cards/:id", s.DeleteCard)
	app.Get("/api/cards/:id", s.GetCard)
	app.Get("/api/comments/:cardId", s.GetComments)
	app.Post("/api/comments/:cardId", s.CreateComment)
	app.Post("/api/feedback", s.SubmitFeedback)
	app.Get("/get_user", s.GetUser)
	return app
}

func jsonRequest(t *testing.T, method, target string, body interface{}) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeCard(t *testing.T, resp *http.Response) models.Card {
	t.Helper()
	var card models.Card
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&card))
	return card
}

func TestGetCards_EmptyBoardIsArray(t *testing.T) {
	t.Parallel()

	db := setupHandlerTestDB(t)
	s := newTestServer(t, db)
	app := newTestApp(s, "aw1234")

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/cards", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(body))
}

func TestCardLifecycle(t *testing.T) {
	t.Parallel()

	db := setupHandlerTestDB(t)
	s := newTestServer(t, db)
	app := newTestApp(s, "aw1234")

	// Create
	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/cards", map[string]interface{}{
		"title":        "Free Pizza",
		"photo_url":    "https://img.example/p.jpg",
		"location":     "Frist Campus Center",
		"dietary_tags": []string{"Vegetarian"},
		"allergens":    []string{"Gluten"},
	}))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeCard(t, resp)
	assert.Equal(t, "aw1234", created.NetID)
	assert.Equal(t, created.PostedAt.Add(3*time.Hour), created.ExpiresAt)

	// Read back through the public list
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/cards", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cards []models.Card
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cards))
	require.Len(t, cards, 1)

	// Update
	resp, err = app.Test(jsonRequest(t, http.MethodPut, "/api/cards/1", map[string]interface{}{
		"title":     "Free Pizza (half left)",
		"photo_url": "https://img.example/p.jpg",
	}))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decodeCard(t, resp)
	assert.Equal(t, "Free Pizza (half left)", updated.Title)
	// Update overwrites unsent fields too.
	assert.Empty(t, updated.Location)

	// Delete
	resp, err = app.Test(jsonRequest(t, http.MethodDelete, "/api/cards/1", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/cards/1", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateCard_InvalidBodyRejected(t *testing.T) {
	t.Parallel()

	db := setupHandlerTestDB(t)
	s := newTestServer(t, db)
	app := newTestApp(s, "aw1234")

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/cards", map[string]interface{}{
		"title": "", "photo_url": "https://img.example/p.jpg",
	}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var errResp models.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errResp))
	assert.Equal(t, models.CodeValidation, errResp.Code)
}

func TestUpdateCard_ForbiddenForNonOwner(t *testing.T) {
	t.Parallel()

	db := setupHandlerTestDB(t)
	s := newTestServer(t, db)

	ownerApp := newTestApp(s, "owner1")
	resp, err := ownerApp.Test(jsonRequest(t, http.MethodPost, "/api/cards", map[string]interface{}{
		"title": "Bagels", "photo_url": "https://img.example/b.jpg",
	}))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	intruderApp := newTestApp(s, "intruder")
	resp, err = intruderApp.Test(jsonRequest(t, http.MethodPut, "/api/cards/1", map[string]interface{}{
		"title": "Hijacked", "photo_url": "https://img.example/b.jpg",
	}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// The row is unchanged.
	resp, err = ownerApp.Test(httptest.NewRequest(http.MethodGet, "/api/cards/1", nil))
	require.NoError(t, err)
	assert.Equal(t, "Bagels", decodeCard(t, resp).Title)
}

func TestDeleteCard_AdminOverride(t *testing.T) {
	t.Parallel()

	db := setupHandlerTestDB(t)
	s := newTestServer(t, db)
	require.NoError(t, s.userRepo.EnsureAdmin(context.Background(), "cs-freebites"))

	ownerApp := newTestApp(s, "owner1")
	resp, err := ownerApp.Test(jsonRequest(t, http.MethodPost, "/api/cards", map[string]interface{}{
		"title": "Bagels", "photo_url": "https://img.example/b.jpg",
	}))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	adminApp := newTestApp(s, "cs-freebites")
	resp, err = adminApp.Test(jsonRequest(t, http.MethodDelete, "/api/cards/1", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGetCards_QueryFilters(t *testing.T) {
	t.Parallel()

	db := setupHandlerTestDB(t)
	s := newTestServer(t, db)
	app := newTestApp(s, "aw1234")

	post := func(title string, tags, allergens []string) {
		resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/cards", map[string]interface{}{
			"title":        title,
			"photo_url":    "https://img.example/x.jpg",
			"dietary_tags": tags,
			"allergens":    allergens,
		}))
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}
	post("Free Pizza", []string{"Vegetarian"}, []string{"Gluten"})
	post("Falafel", []string{"Vegetarian", "Vegan"}, []string{"Sesame"})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet,
		"/api/cards?dietary=vegetarian&dietary=vegan", nil))
	require.NoError(t, err)
	var cards []models.Card
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cards))
	require.Len(t, cards, 1)
	assert.Equal(t, "Falafel", cards[0].Title)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/cards?allergens=gluten", nil))
	require.NoError(t, err)
	cards = nil
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cards))
	require.Len(t, cards, 1)
	assert.Equal(t, "Falafel", cards[0].Title)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/cards?search=pizza", nil))
	require.NoError(t, err)
	cards = nil
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cards))
	require.Len(t, cards, 1)
	assert.Equal(t, "Free Pizza", cards[0].Title)
}

func TestGetMyCards_OwnerScoped(t *testing.T) {
	t.Parallel()

	db := setupHandlerTestDB(t)
	s := newTestServer(t, db)

	for _, owner := range []string{"owner1", "owner2"} {
		app := newTestApp(s, owner)
		resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/cards", map[string]interface{}{
			"title": "Snacks from " + owner, "photo_url": "https://img.example/s.jpg",
		}))
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	app := newTestApp(s, "owner1")
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/cards/mine", nil))
	require.NoError(t, err)
	var cards []models.Card
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cards))
	require.Len(t, cards, 1)
	assert.Equal(t, "owner1", cards[0].NetID)
}

func TestCommentFlow(t *testing.T) {
	t.Parallel()

	db := setupHandlerTestDB(t)
	s := newTestServer(t, db)
	app := newTestApp(s, "aw1234")

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/cards", map[string]interface{}{
		"title": "Free Pizza", "photo_url": "https://img.example/p.jpg",
	}))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = app.Test(jsonRequest(t, http.MethodPost, "/api/comments/1", map[string]string{
		"text": "any left?",
	}))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/comments/1", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var comments []models.Comment
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&comments))
	require.Len(t, comments, 1)
	assert.Equal(t, "any left?", comments[0].Text)

	// Posting on a missing card 404s; reading its thread is just empty.
	resp, err = app.Test(jsonRequest(t, http.MethodPost, "/api/comments/99", map[string]string{
		"text": "hello?",
	}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/comments/99", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(body))
}

func TestSubmitFeedback(t *testing.T) {
	t.Parallel()

	db := setupHandlerTestDB(t)
	s := newTestServer(t, db)
	app := newTestApp(s, "aw1234")

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/feedback", map[string]string{
		"text": "the map pin is offset",
	}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var count int64
	require.NoError(t, db.Model(&models.Feedback{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestGetUser(t *testing.T) {
	t.Parallel()

	db := setupHandlerTestDB(t)
	s := newTestServer(t, db)
	app := newTestApp(s, "aw1234")

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/get_user", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "aw1234", body["net_id"])
}
