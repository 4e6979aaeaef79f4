package middleware

import (
	"fmt"

	"freebites/internal/observability"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// TracingMiddleware adds OpenTelemetry tracing to requests
func TracingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Extract propagation context from headers
		ctx := otel.GetTextMapPropagator().Extract(c.UserContext(), propagation.HeaderCarrier(c.GetReqHeaders()))

		spanName := fmt.Sprintf("%s %s", c.Method(), c.Path())
		ctx, span := observability.Tracer.Start(ctx, spanName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Method()),
				attribute.String("http.path", c.Path()),
				attribute.String("http.url", c.OriginalURL()),
				attribute.String("http.ip", c.IP()),
			),
		)
		defer span.End()

		c.Locals("traceID", span.SpanContext().TraceID().String())
		c.Locals("spanID", span.SpanContext().SpanID().String())

		if requestID := c.Locals("requestid"); requestID != nil {
			span.SetAttributes(attribute.String("request.id", fmt.Sprintf("%v", requestID)))
		}

		// Expose the trace ID so users can quote it in bug reports
		c.Set("X-Trace-ID", span.SpanContext().TraceID().String())

		c.SetUserContext(ctx)

		err := c.Next()

		span.SetAttributes(attribute.Int("http.status_code", c.Response().StatusCode()))
		if err != nil {
			span.RecordError(err)
		}

		// Identity is only known after the auth middleware has run
		if netID := c.Locals("netID"); netID != nil {
			span.SetAttributes(attribute.String("user.net_id", fmt.Sprintf("%v", netID)))
		}

		return err
	}
}
