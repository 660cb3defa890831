package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/wanderplan/internal/pkg/metrics"
)

// OpenAPIPath is where the API document is served from.
const OpenAPIPath = "api/openapi.yaml"

func rateLimit(perMinute int) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        perMinute,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	})
}

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())

	// Request-scoped logger carrying the request ID
	app.Use(RequestIDLogMiddleware())

	app.Use(AccessLogMiddleware())

	// 120 requests per minute per IP
	app.Use(rateLimit(120))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")

	// Each plan costs model and routing calls: 10 per minute per IP. The
	// handler applies PlanTimeout itself so a late run still answers 504.
	v1.Post("/plans", rateLimit(10), CreatePlanHandler(deps))

	v1.Get("/runs", timeout.NewWithContext(ListRunsHandler(deps), 15*time.Second))
	v1.Get("/runs/:id", timeout.NewWithContext(GetRunHandler(deps), 15*time.Second))

	// GraphQL
	app.Post("/graphql", rateLimit(30), GraphQLHandler(deps))

	// API documentation (Swagger UI)
	SetupDocs(app, OpenAPIPath)

	// WebSocket
	if deps.Events != nil {
		app.Use("/ws", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		})
		app.Get("/ws", websocket.New(WebSocketHandler(deps.Events)))
	}
}
