package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/noah-isme/campus-admin-agent/internal/config"
	"github.com/noah-isme/campus-admin-agent/internal/handler"
	"github.com/noah-isme/campus-admin-agent/internal/middleware"
	"github.com/noah-isme/campus-admin-agent/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	DB              *gorm.DB
	ChatHandler     *handler.ChatHandler
	ToolHandler     *handler.ToolHandler
	ActivityHandler *handler.ActivityHandler
	JWTMiddleware   fiber.Handler
	// ChatRateLimit caps assistant requests per user per minute. Zero selects 30.
	ChatRateLimit int
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.DB))

	// Routes below require a bearer token when a secret is configured.
	authEnabled := deps.JWTMiddleware != nil
	protected := api.Group("", middleware.Optional(authEnabled, deps.JWTMiddleware))

	limit := deps.ChatRateLimit
	if limit <= 0 {
		limit = 30
	}

	if deps.ChatHandler != nil {
		deps.ChatHandler.Register(protected, middleware.RateLimit("chat", limit, time.Minute))

		ws := app.Group("/ws", middleware.Optional(authEnabled, deps.JWTMiddleware))
		deps.ChatHandler.RegisterWebsocket(ws)
	}

	if deps.ToolHandler != nil {
		deps.ToolHandler.Register(protected)
		protected.Post("/tools/:name", middleware.Optional(authEnabled, middleware.RequireRole(middleware.RoleAdmin)), deps.ToolHandler.Invoke)
	}

	// Campus staff may read the audit trail.
	if deps.ActivityHandler != nil {
		auditors := middleware.RequireRole(middleware.RoleAdmin, middleware.RoleRegistrar, middleware.RoleStaff)
		deps.ActivityHandler.Register(protected, middleware.Optional(authEnabled, auditors))
	}
}
