package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/vidshare/api/internal/auth"
	"github.com/vidshare/api/internal/metrics"
	apperrors "github.com/vidshare/api/pkg/errors"
)

const (
	// TokenHeader is the dedicated token field, checked before Authorization.
	TokenHeader = "token"

	principalLocalsKey = "principal"
)

// AuthMiddleware adapts the access gate to Fiber.
type AuthMiddleware struct {
	gate   *auth.AccessGate
	logger *logrus.Logger
}

func NewAuthMiddleware(gate *auth.AccessGate, logger *logrus.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		gate:   gate,
		logger: logger,
	}
}

// Authenticate rejects requests without a valid token and attaches the
// principal otherwise. Missing tokens get 401, invalid ones 403.
func (a *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, err := a.gate.Authenticate(c.Get(TokenHeader), c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return a.reject(c, err)
		}

		metrics.RecordTokenVerification("ok")
		c.Locals(principalLocalsKey, principal)
		c.SetUserContext(auth.WithPrincipal(c.UserContext(), principal))

		return c.Next()
	}
}

func (a *AuthMiddleware) reject(c *fiber.Ctx, err error) error {
	fields := logrus.Fields{
		"path":   c.Path(),
		"method": c.Method(),
	}

	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		metrics.RecordTokenVerification("missing")
		return RespondError(c, apperrors.NewAppError(apperrors.CodeUnauthenticated, "You are not authenticated!", err))

	case errors.Is(err, auth.ErrTokenExpired):
		metrics.RecordTokenVerification("expired")
		a.logger.WithFields(fields).Debug("Expired token rejected")

	default:
		metrics.RecordTokenVerification("malformed")
		a.logger.WithFields(fields).WithError(err).Warn("Malformed token rejected")
	}

	return RespondError(c, apperrors.NewAppError(apperrors.CodeInvalidToken, "Token is not valid!", err))
}

// GetPrincipal returns the principal attached by Authenticate, or nil.
func GetPrincipal(c *fiber.Ctx) *auth.Principal {
	if p, ok := c.Locals(principalLocalsKey).(*auth.Principal); ok {
		return p
	}
	return nil
}

// GetUserID extracts user ID from context
func GetUserID(c *fiber.Ctx) string {
	if p := GetPrincipal(c); p != nil {
		return p.UserID
	}
	return ""
}
