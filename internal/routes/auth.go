package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/vidshare/api/internal/auth"
	"github.com/vidshare/api/internal/metrics"
	"github.com/vidshare/api/internal/middleware"
	"github.com/vidshare/api/internal/models"
	apperrors "github.com/vidshare/api/pkg/errors"
)

const registeredMessage = "User registered successfully"

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authenticator *auth.Authenticator
	logger        *logrus.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authenticator *auth.Authenticator, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{
		authenticator: authenticator,
		logger:        logger,
	}
}

// Register creates an account. No token is issued.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	ctx, span := middleware.StartSpan(c.UserContext(), "auth.register")
	defer span.End()

	var req models.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		metrics.RecordAuthEvent("register", string(apperrors.CodeBadRequest))
		return middleware.RespondError(c, badBody(err))
	}

	user, err := h.authenticator.Register(ctx, req)
	if err != nil {
		appErr := toAppError(err)
		metrics.RecordAuthEvent("register", string(appErr.Code))
		if !appErr.IsClientError() {
			middleware.RecordError(span, err)
		}
		return respondError(c, h.logger, err)
	}

	metrics.RecordAuthEvent("register", "success")
	middleware.AddSpanAttributes(span, map[string]interface{}{"user.id": user.UserID})

	return c.Status(fiber.StatusCreated).JSON(models.RegisterResponse{Message: registeredMessage})
}

// Login exchanges a username or email and password for a 7-day token
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	ctx, span := middleware.StartSpan(c.UserContext(), "auth.login")
	defer span.End()

	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		metrics.RecordAuthEvent("login", string(apperrors.CodeBadRequest))
		return middleware.RespondError(c, badBody(err))
	}

	result, err := h.authenticator.Login(ctx, req)
	if err != nil {
		appErr := toAppError(err)
		metrics.RecordAuthEvent("login", string(appErr.Code))
		if !appErr.IsClientError() {
			middleware.RecordError(span, err)
		}
		return respondError(c, h.logger, err)
	}

	metrics.RecordAuthEvent("login", "success")
	middleware.AddSpanAttributes(span, map[string]interface{}{"user.id": result.UserID})

	return c.JSON(models.LoginResponse{
		Token:     result.Token,
		UserID:    result.UserID,
		Username:  result.Username,
		ExpiresAt: result.ExpiresAt,
	})
}
