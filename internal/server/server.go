// Package server contains HTTP and WebSocket handlers for the board API.
package server

import (
	"context"
	"fmt"
	"strings"
	"time"

	"freebites/internal/cache"
	"freebites/internal/config"
	"freebites/internal/database"
	"freebites/internal/middleware"
	"freebites/internal/models"
	"freebites/internal/notifications"
	"freebites/internal/observability"
	"freebites/internal/repository"
	"freebites/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app             *fiber.App
	promMiddleware  *fiberprometheus.FiberPrometheus
	tracingShutdown func(context.Context) error
	shutdownCtx     context.Context
	shutdownFn      context.CancelFunc

	cardRepo     repository.CardRepository
	commentRepo  repository.CommentRepository
	userRepo     repository.UserRepository
	feedbackRepo repository.FeedbackRepository

	notifier *notifications.Notifier
	hub      *notifications.Hub

	cardService     *service.CardService
	commentService  *service.CommentService
	feedbackService *service.FeedbackService
	userService     *service.UserService
	uploadService   *service.UploadService
	sweeper         *service.Sweeper
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)

	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Tests use this with an in-memory database and miniredis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("freebites-api"),
		cardRepo:       repository.NewCardRepository(db),
		commentRepo:    repository.NewCommentRepository(db),
		userRepo:       repository.NewUserRepository(db),
		feedbackRepo:   repository.NewFeedbackRepository(db),
		hub:            notifications.NewHub(),
	}

	server.userService = service.NewUserService(server.userRepo, cfg.AdminNetID)
	server.cardService = service.NewCardService(server.cardRepo, server.userService.IsAdmin)
	server.commentService = service.NewCommentService(server.commentRepo, server.cardRepo)
	server.feedbackService = service.NewFeedbackService(server.feedbackRepo)
	server.uploadService = service.NewUploadService(cfg.UploadEndpoint, cfg.UploadPreset)
	server.sweeper = service.NewSweeper(server.cardRepo, func(cardID uint) {
		server.publishBroadcastEvent(EventCardDeleted, map[string]interface{}{"card_id": cardID})
	})

	if redisClient != nil {
		server.notifier = notifications.NewNotifier(redisClient)
	}

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Distributed tracing: one server span per request
	app.Use(middleware.TracingMiddleware())

	// Context middleware to propagate request ID and NetID
	app.Use(middleware.ContextMiddleware())

	// Prometheus metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400,
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "FreeBites Metrics Dashboard",
	}))

	// Session minting stands in for the campus SSO callback
	api.Post("/auth/session", s.CreateSession)

	// Card routes. Browsing is public; posting, editing and deleting need an
	// identity. /cards/mine must come before the generic /cards/:id.
	auth := s.AuthRequired()
	api.Get("/cards", s.GetCards)
	api.Get("/cards/mine", auth, s.GetMyCards)
	api.Get("/cards/:id", s.GetCard)
	api.Post("/cards", auth, s.CreateCard)
	api.Put("/cards/:id", auth, s.UpdateCard)
	api.Delete("/cards/:id", auth, s.DeleteCard)

	// Comment routes
	api.Get("/comments/:cardId", s.GetComments)
	api.Post("/comments/:cardId", auth, s.CreateComment)

	api.Post("/feedback", auth, s.SubmitFeedback)
	api.Post("/uploads", auth, s.UploadImage)

	app.Get("/get_user", auth, s.GetUser)

	// WebSocket ticket issuance, then the socket itself
	api.Post("/ws/ticket", auth, s.IssueWSTicket)
	api.Get("/ws", auth, s.WebsocketHandler())
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	// Redis is optional; without it the board runs single-instance.
	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// AuthRequired returns the authentication middleware
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()
		isWSPath := strings.HasPrefix(path, "/api/ws")

		// 1. Try WebSocket ticket first (short-lived, single-use)
		ticket := c.Query("ticket")
		if ticket != "" && s.redis != nil {
			key := fmt.Sprintf("ws_ticket:%s", ticket)
			netID, err := s.redis.Get(c.Context(), key).Result()
			if err == nil && netID != "" {
				// Delete ticket immediately (single-use)
				s.redis.Del(c.Context(), key)
				s.setIdentity(c, netID)
				return c.Next()
			}
			if isWSPath {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("Invalid or expired WebSocket ticket"))
			}
		}

		// 2. Fall back to JWT (Bearer token, or query param without Redis)
		authHeader := c.Get("Authorization")
		tokenString := ""
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}

		// WS routes must use tickets when Redis is up; token in the query
		// string is only a single-instance fallback.
		if tokenString == "" && (!isWSPath || s.redis == nil) {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
			}
			return []byte(s.config.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid token claims"))
		}

		if issuer, issuerOk := claims["iss"].(string); !issuerOk || issuer != "freebites-api" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid token issuer"))
		}
		if audience, audienceOk := claims["aud"].(string); !audienceOk || audience != "freebites-client" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid token audience"))
		}

		netID, ok := claims["sub"].(string)
		if !ok || netID == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid subject claim"))
		}

		s.setIdentity(c, netID)
		return c.Next()
	}
}

// setIdentity stores the authenticated NetID in locals and the user context
// so logging and downstream services can see it.
func (s *Server) setIdentity(c *fiber.Ctx, netID string) {
	c.Locals("netID", netID)
	ctx := context.WithValue(c.UserContext(), middleware.NetIDKey, netID)
	c.SetUserContext(ctx)
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	tracingShutdown, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:  "freebites-api",
		Environment:  s.config.Env,
		Enabled:      s.config.TracingEnabled,
		Exporter:     s.config.TracingExporter,
		OTLPEndpoint: s.config.TracingOTLPTarget,
		SamplerRatio: s.config.TracingSampleRatio,
	})
	if err != nil {
		return fmt.Errorf("tracing init failed: %w", err)
	}
	s.tracingShutdown = tracingShutdown

	app := fiber.New(fiber.Config{
		AppName:     "FreeBites API",
		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	// Wire the hub to the Redis subscriber if available
	if s.notifier.Enabled() {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				middleware.Logger.Error("failed to start hub wiring", "error", err)
			}
		}()
	}

	s.sweeper.Start(s.shutdownCtx)

	middleware.Logger.Info("server starting", "port", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}
	if s.sweeper != nil {
		s.sweeper.Stop()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", "error", err)
		}
	}

	if s.hub != nil {
		if err := s.hub.Shutdown(ctx); err != nil {
			middleware.Logger.Error("error shutting down hub", "error", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", "error", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", "error", rerr)
		}
	}

	if s.tracingShutdown != nil {
		if terr := s.tracingShutdown(ctx); terr != nil {
			middleware.Logger.Error("error shutting down tracing", "error", terr)
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
