package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/peereval-api/internal/config"
	"github.com/noah-isme/peereval-api/internal/handler"
	"github.com/noah-isme/peereval-api/internal/middleware"
	"github.com/noah-isme/peereval-api/internal/models"
	"github.com/noah-isme/peereval-api/internal/observability"
)

const (
	writeRateLimit  = 30
	writeRateWindow = time.Minute
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	TAHandler            *handler.TAHandler
	TeacherTicketHandler *handler.TeacherTicketHandler
	ActivityHandler      *handler.ActivityHandler
	NotificationHandler  *handler.NotificationHandler
	HealthProbes         map[string]handler.Probe
	// JWTMiddleware resolves the caller identity. Tests substitute middleware.WithIdentity.
	JWTMiddleware fiber.Handler
	// WriteGuards wrap flag transitions; nil applies the default per-user rate limit.
	WriteGuards []fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes))
	app.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = middleware.JWTProtected(cfg.JWTSecret)
	}

	writeGuards := deps.WriteGuards
	if writeGuards == nil {
		writeGuards = []fiber.Handler{middleware.RateLimit("flag-transitions", writeRateLimit, writeRateWindow)}
	}

	if deps.TAHandler != nil {
		ta := app.Group("/api/v2/ta", jwtMiddleware, middleware.RequireRole(models.RoleTA, models.RoleTeacher, models.RoleAdmin))
		deps.TAHandler.Register(ta)
		deps.TAHandler.RegisterWrites(ta, writeGuards...)
	}

	if deps.TeacherTicketHandler != nil || deps.ActivityHandler != nil {
		teacher := app.Group("/api/v2/teacher", jwtMiddleware, middleware.RequireRole(models.RoleTeacher, models.RoleAdmin))
		if deps.TeacherTicketHandler != nil {
			deps.TeacherTicketHandler.Register(teacher)
		}
		if deps.ActivityHandler != nil {
			deps.ActivityHandler.Register(teacher)
		}
	}

	if deps.NotificationHandler != nil {
		notifications := app.Group("/api/v2/notifications", jwtMiddleware)
		deps.NotificationHandler.Register(notifications)
	}
}
