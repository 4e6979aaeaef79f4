package boardclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_ListCards(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/cards", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"card_id":1,"net_id":"aw1234","title":"Free Pizza"}]`))
	}))
	defer srv.Close()

	c := New(srv.URL, WithToken("test-token"))
	cards, err := c.ListCards(context.Background())
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, uint(1), cards[0].ID)
	assert.Equal(t, "Free Pizza", cards[0].Title)
}

func TestClient_APIErrorDecoding(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Card with ID 9 not found","code":"NOT_FOUND"}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.GetCard(context.Background(), 9)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "NOT_FOUND", apiErr.Code)
	assert.Equal(t, "Card with ID 9 not found", apiErr.Message)
}

func TestClient_CreateComment(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/comments/3", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":1,"card_id":3,"net_id":"aw1234","text":"any left?"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, WithToken("test-token"))
	comment, err := c.CreateComment(context.Background(), 3, "any left?")
	require.NoError(t, err)
	assert.Equal(t, uint(3), comment.CardID)
	assert.Equal(t, "any left?", comment.Text)
}

func TestClient_WebsocketURL(t *testing.T) {
	t.Parallel()

	c := New("https://board.example", WithToken("tok"))

	withTicket, err := c.websocketURL("abc")
	require.NoError(t, err)
	assert.Equal(t, "wss://board.example/api/ws?ticket=abc", withTicket)

	withToken, err := c.websocketURL("")
	require.NoError(t, err)
	assert.Equal(t, "wss://board.example/api/ws?token=tok", withToken)
}
