package routes

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/vidshare/api/internal/auth"
	"github.com/vidshare/api/internal/comments"
	"github.com/vidshare/api/internal/config"
	"github.com/vidshare/api/internal/logging"
	"github.com/vidshare/api/internal/metrics"
	"github.com/vidshare/api/internal/middleware"
	"github.com/vidshare/api/internal/store"
	apperrors "github.com/vidshare/api/pkg/errors"
)

const serviceName = "vidshare-api"

// Dependencies are the wired components the routes call into.
type Dependencies struct {
	Config        *config.Config
	Logger        *logrus.Logger
	Middleware    *middleware.Manager
	Stores        *store.Stores
	Authenticator *auth.Authenticator
	Comments      *comments.Service
}

// Setup configures all API routes
func Setup(app *fiber.App, deps Dependencies) {
	authHandler := NewAuthHandler(deps.Authenticator, deps.Logger)
	commentHandler := NewCommentHandler(deps.Comments, deps.Logger)
	mw := deps.Middleware

	// Health check endpoints (no auth required)
	app.Get("/healthz", healthCheck)
	app.Get("/readyz", readinessCheck(deps))
	app.Get("/version", versionHandler)

	// Metrics endpoint (no auth required)
	app.Get(deps.Config.Observability.MetricsPath, metrics.PrometheusHandler())

	api := app.Group("/api")
	api.Use(metrics.HTTPMetricsMiddleware())
	api.Use(mw.ErrorLogger.Handle())

	// Auth routes (public)
	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", authHandler.Register)
	authRoutes.Post("/login", authHandler.Login)

	// Listing is public; every mutation passes the access gate
	commentRoutes := api.Group("/comments")
	commentRoutes.Get("/:videoId", commentHandler.List)
	commentRoutes.Post("/:videoId", mw.Auth.Authenticate(), mw.IdempotencyHandler(), commentHandler.Create)
	commentRoutes.Put("/:id", mw.Auth.Authenticate(), commentHandler.Update)
	commentRoutes.Delete("/:id", mw.Auth.Authenticate(), commentHandler.Delete)

	// 404 handler
	app.Use(notFoundHandler)
}

// healthCheck returns the health status of the service
func healthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"service":   serviceName,
	})
}

// readinessCheck pings the store and, when enabled, Redis
func readinessCheck(deps Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
		defer cancel()

		checks := []struct {
			name string
			ping func(context.Context) error
		}{
			{"store", deps.Stores.Ping},
			{"redis", deps.Middleware.Ping},
		}

		for _, check := range checks {
			if err := check.ping(ctx); err != nil {
				deps.Logger.WithError(err).WithField("dependency", check.name).Warn("Readiness check failed")
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"status":    "not ready",
					"reason":    check.name + " unavailable",
					"timestamp": time.Now().UTC(),
				})
			}
		}

		resp := fiber.Map{
			"status":    "ready",
			"store":     deps.Stores.Driver,
			"timestamp": time.Now().UTC(),
			"service":   serviceName,
		}
		if stats := deps.Middleware.BreakerStats(); stats != nil {
			resp["redis_breaker"] = stats
		}
		return c.JSON(resp)
	}
}

// versionHandler returns version information
func versionHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service": serviceName,
		"version": logging.GetVersion(),
	})
}

// notFoundHandler handles 404 errors
func notFoundHandler(c *fiber.Ctx) error {
	return middleware.RespondError(c, apperrors.NewAppError(apperrors.CodeNotFound, "The requested resource was not found", nil))
}

// ErrorHandler renders errors returned from handlers, including Fiber's own
// (method not allowed, body too large), in the standard envelope.
func ErrorHandler(logger *logrus.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		fiberErr, ok := err.(*fiber.Error)
		if !ok {
			return respondError(c, logger, err)
		}

		code := apperrors.CodeBadRequest
		switch {
		case fiberErr.Code == fiber.StatusNotFound:
			code = apperrors.CodeNotFound
		case fiberErr.Code >= fiber.StatusInternalServerError:
			code = apperrors.CodeInternalError
		}

		appErr := apperrors.NewAppError(code, fiberErr.Message, err)
		return c.Status(fiberErr.Code).JSON(appErr.ToErrorResponse(middleware.TraceID(c)))
	}
}
