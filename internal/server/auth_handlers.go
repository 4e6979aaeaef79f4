package server

import (
	"fmt"
	"strings"
	"time"

	"freebites/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// wsTicketTTL bounds how long an issued websocket ticket stays redeemable.
const wsTicketTTL = 30 * time.Second

// CreateSession mints an API token for a NetID. In deployment the campus SSO
// callback sits in front of this; the handler trusts the identity it is given.
func (s *Server) CreateSession(c *fiber.Ctx) error {
	var req struct {
		NetID string `json:"net_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	netID := strings.ToLower(strings.TrimSpace(req.NetID))
	if netID == "" || len(netID) > 64 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("A valid net_id is required"))
	}

	if err := s.userService.EnsureUser(c.Context(), netID); err != nil {
		return respondServiceError(c, err)
	}

	token, err := s.generateToken(netID)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"token":  token,
		"net_id": netID,
	})
}

// GetUser returns the identity behind the current session.
func (s *Server) GetUser(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"net_id": s.netID(c)})
}

// IssueWSTicket hands out a short-lived single-use ticket for the websocket
// upgrade, since browsers cannot set an Authorization header on the upgrade
// request. Without Redis the client falls back to a token query parameter.
func (s *Server) IssueWSTicket(c *fiber.Ctx) error {
	if s.redis == nil {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewStoreUnavailableError(fmt.Errorf("ticket store unavailable")))
	}

	ticket := uuid.NewString()
	key := fmt.Sprintf("ws_ticket:%s", ticket)
	if err := s.redis.Set(c.Context(), key, s.netID(c), wsTicketTTL).Err(); err != nil {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewStoreUnavailableError(err))
	}

	return c.JSON(fiber.Map{
		"ticket":     ticket,
		"expires_in": int(wsTicketTTL.Seconds()),
	})
}

// generateToken creates a JWT for the given NetID.
func (s *Server) generateToken(netID string) (string, error) {
	if s.config.JWTSecret == "" {
		return "", fmt.Errorf("JWT secret not configured")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub": netID,
		"iss": "freebites-api",
		"aud": "freebites-client",
		"exp": now.Add(time.Hour * 24 * 7).Unix(),
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"jti": fmt.Sprintf("%d-%s", now.Unix(), uuid.New().String()[:8]),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}
