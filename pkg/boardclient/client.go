// Package boardclient is a Go client for the board API. It covers the REST
// surface and, through Watcher, keeps a live local copy of the card list.
package boardclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"freebites/internal/models"

	"github.com/goccy/go-json"
)

// Client talks to a board server. The zero value is not usable; use New.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken sets the bearer token used on authenticated calls.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"error"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("board api: %s (%s, HTTP %d)", e.Message, e.Code, e.StatusCode)
	}
	return fmt.Sprintf("board api: %s (HTTP %d)", e.Message, e.StatusCode)
}

// CardRequest carries the fields for creating or updating a card.
type CardRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	PhotoURL    string     `json:"photo_url"`
	Location    string     `json:"location,omitempty"`
	Latitude    *float64   `json:"latitude,omitempty"`
	Longitude   *float64   `json:"longitude,omitempty"`
	DietaryTags []string   `json:"dietary_tags,omitempty"`
	Allergens   []string   `json:"allergens,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// ListCards fetches every live card, newest first.
func (c *Client) ListCards(ctx context.Context) ([]models.Card, error) {
	var cards []models.Card
	if err := c.do(ctx, http.MethodGet, "/api/cards", nil, &cards); err != nil {
		return nil, err
	}
	return cards, nil
}

// ListMyCards fetches the authenticated user's cards.
func (c *Client) ListMyCards(ctx context.Context) ([]models.Card, error) {
	var cards []models.Card
	if err := c.do(ctx, http.MethodGet, "/api/cards/mine", nil, &cards); err != nil {
		return nil, err
	}
	return cards, nil
}

// GetCard fetches a single card.
func (c *Client) GetCard(ctx context.Context, id uint) (*models.Card, error) {
	var card models.Card
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/cards/%d", id), nil, &card); err != nil {
		return nil, err
	}
	return &card, nil
}

// CreateCard posts a new card.
func (c *Client) CreateCard(ctx context.Context, req CardRequest) (*models.Card, error) {
	var card models.Card
	if err := c.do(ctx, http.MethodPost, "/api/cards", req, &card); err != nil {
		return nil, err
	}
	return &card, nil
}

// UpdateCard replaces a card's fields.
func (c *Client) UpdateCard(ctx context.Context, id uint, req CardRequest) (*models.Card, error) {
	var card models.Card
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/cards/%d", id), req, &card); err != nil {
		return nil, err
	}
	return &card, nil
}

// DeleteCard removes a card.
func (c *Client) DeleteCard(ctx context.Context, id uint) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/cards/%d", id), nil, nil)
}

// ListComments fetches a card's comment thread, oldest first.
func (c *Client) ListComments(ctx context.Context, cardID uint) ([]models.Comment, error) {
	var comments []models.Comment
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/comments/%d", cardID), nil, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// CreateComment posts a comment on a card.
func (c *Client) CreateComment(ctx context.Context, cardID uint, text string) (*models.Comment, error) {
	var comment models.Comment
	body := map[string]string{"text": text}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/comments/%d", cardID), body, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

// SubmitFeedback sends a bug report.
func (c *Client) SubmitFeedback(ctx context.Context, text string) error {
	return c.do(ctx, http.MethodPost, "/api/feedback", map[string]string{"text": text}, nil)
}

// GetUser returns the NetID behind the current token.
func (c *Client) GetUser(ctx context.Context) (string, error) {
	var resp struct {
		NetID string `json:"net_id"`
	}
	if err := c.do(ctx, http.MethodGet, "/get_user", nil, &resp); err != nil {
		return "", err
	}
	return resp.NetID, nil
}

// IssueWSTicket requests a single-use websocket ticket.
func (c *Client) IssueWSTicket(ctx context.Context) (string, error) {
	var resp struct {
		Ticket string `json:"ticket"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/ws/ticket", nil, &resp); err != nil {
		return "", err
	}
	return resp.Ticket, nil
}

// websocketURL derives the ws:// endpoint, attaching either a ticket or, as a
// single-instance fallback, the bearer token.
func (c *Client) websocketURL(ticket string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/api/ws"

	q := u.Query()
	if ticket != "" {
		q.Set("ticket", ticket)
	} else if c.token != "" {
		q.Set("token", c.token)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		_ = json.Unmarshal(data, apiErr)
		return apiErr
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
