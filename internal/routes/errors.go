package routes

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/vidshare/api/internal/auth"
	"github.com/vidshare/api/internal/middleware"
	"github.com/vidshare/api/internal/models"
	"github.com/vidshare/api/internal/store"
	apperrors "github.com/vidshare/api/pkg/errors"
)

// toAppError maps domain errors onto API error codes. Unknown errors become
// INTERNAL_ERROR with a generic message.
func toAppError(err error) *apperrors.AppError {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var validationErr *models.ValidationError
	if errors.As(err, &validationErr) {
		fields := make([]apperrors.FieldError, 0, len(validationErr.Violations))
		for _, v := range validationErr.Violations {
			fields = append(fields, apperrors.FieldError{Field: v.Field, Message: v.Message})
		}
		return apperrors.NewAppError(apperrors.CodeValidationFailed, "Validation failed", err).WithFields(fields...)
	}

	var policyErr *auth.PasswordPolicyError
	if errors.As(err, &policyErr) {
		return apperrors.NewAppError(apperrors.CodeValidationFailed, policyErr.Message(), err).
			WithFields(apperrors.FieldError{Field: "password", Message: policyErr.Message()})
	}

	switch {
	case errors.Is(err, auth.ErrDuplicateUser):
		return apperrors.NewAppError(apperrors.CodeDuplicateUser, "User already exists", err)
	case errors.Is(err, auth.ErrInvalidCredentials):
		return apperrors.NewAppError(apperrors.CodeInvalidCredentials, "Invalid credentials", err)
	case errors.Is(err, auth.ErrUnauthenticated):
		return apperrors.NewAppError(apperrors.CodeUnauthenticated, "You are not authenticated!", err)
	case errors.Is(err, auth.ErrInvalidToken):
		return apperrors.NewAppError(apperrors.CodeInvalidToken, "Token is not valid!", err)
	case errors.Is(err, auth.ErrForbidden):
		return apperrors.NewAppError(apperrors.CodeForbidden, "You can only modify your own comments", err)
	case errors.Is(err, store.ErrNotFound):
		return apperrors.NewAppError(apperrors.CodeNotFound, "Comment not found", err)
	}

	return apperrors.NewAppError(apperrors.CodeInternalError, "Internal server error", err)
}

// respondError writes err in the standard envelope. Server errors are logged
// with their cause, which never reaches the client.
func respondError(c *fiber.Ctx, logger *logrus.Logger, err error) error {
	appErr := toAppError(err)
	if !appErr.IsClientError() {
		logger.WithFields(logrus.Fields{
			"method":   c.Method(),
			"path":     c.Path(),
			"trace_id": middleware.TraceID(c),
		}).WithError(err).Error("Request failed")
	}
	return middleware.RespondError(c, appErr)
}

func badBody(err error) *apperrors.AppError {
	return apperrors.NewAppError(apperrors.CodeBadRequest, "Invalid request body", err)
}
