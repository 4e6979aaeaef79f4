package middleware

import (
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveWebSockets is the gauge of currently connected websocket clients.
	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "freebites_websocket_connections",
		Help: "Number of active WebSocket connections",
	})

	// WebSocketDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "freebites_websocket_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})

	// BoardEvents counts published change-notification events by type.
	BoardEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "freebites_board_events_total",
		Help: "Total number of board change events published",
	}, []string{"type"})

	// RedisErrors counts Redis command errors by operation.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "freebites_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// ExpiredCardsSwept counts cards removed by the expiry sweeper.
	ExpiredCardsSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "freebites_expired_cards_swept_total",
		Help: "Total number of expired cards deleted by the sweeper",
	})
)

// InitMetrics creates the Prometheus HTTP middleware for the given service name.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	return fiberprometheus.New(serviceName)
}

// MetricsMiddleware returns the Fiber handler recording per-request metrics.
func MetricsMiddleware(p *fiberprometheus.FiberPrometheus) fiber.Handler {
	return p.Middleware
}
