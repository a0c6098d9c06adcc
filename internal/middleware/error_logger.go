package middleware

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const maxLoggedBody = 500

type ErrorLoggerMiddleware struct {
	logger *logrus.Logger
	// bodies on these path prefixes carry credentials and are never logged
	redactPrefixes []string
}

func NewErrorLoggerMiddleware(logger *logrus.Logger, redactPrefixes ...string) *ErrorLoggerMiddleware {
	return &ErrorLoggerMiddleware{
		logger:         logger,
		redactPrefixes: redactPrefixes,
	}
}

// Handle logs 4xx and 5xx responses with request context
func (e *ErrorLoggerMiddleware) Handle() fiber.Handler {
	return func(c *fiber.Ctx) error {
		startTime := time.Now()

		err := c.Next()

		statusCode := c.Response().StatusCode()
		if statusCode < 400 {
			return err
		}

		logFields := logrus.Fields{
			"status_code":   statusCode,
			"method":        c.Method(),
			"path":          c.Path(),
			"ip":            c.IP(),
			"user_agent":    c.Get(fiber.HeaderUserAgent),
			"trace_id":      TraceID(c),
			"duration_ms":   time.Since(startTime).Milliseconds(),
			"response_size": len(c.Response().Body()),
		}

		if userID := GetUserID(c); userID != "" {
			logFields["user_id"] = userID
		}

		if idempotencyKey := c.Get(IdempotencyHeader); idempotencyKey != "" {
			logFields["idempotency_key"] = idempotencyKey
		}

		if !e.redacted(c.Path()) {
			if c.Method() == fiber.MethodPost || c.Method() == fiber.MethodPut {
				if body := truncate(string(c.Body())); body != "" {
					logFields["request_body"] = body
				}
			}
			if body := truncate(string(c.Response().Body())); body != "" {
				logFields["response_body"] = body
			}
		}

		logEntry := e.logger.WithFields(logFields)
		if statusCode >= 500 {
			if err != nil {
				logEntry = logEntry.WithError(err)
			}
			logEntry.Error("Server error response")
		} else {
			logEntry.Warn("Client error response")
		}

		return err
	}
}

func (e *ErrorLoggerMiddleware) redacted(path string) bool {
	for _, prefix := range e.redactPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func truncate(s string) string {
	if len(s) > maxLoggedBody {
		return s[:maxLoggedBody] + "...(truncated)"
	}
	return s
}
