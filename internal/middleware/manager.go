package middleware

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/vidshare/api/internal/auth"
	"github.com/vidshare/api/internal/config"
)

// Manager holds all middleware instances
type Manager struct {
	Auth        *AuthMiddleware
	Idempotency *IdempotencyMiddleware // nil when Redis is disabled
	ErrorLogger *ErrorLoggerMiddleware
	RedisClient redis.UniversalClient
	Breaker     *CircuitBreaker
	Config      *config.Config
	Logger      *logrus.Logger
}

// NewManager creates the middleware set. Redis is only dialled when enabled.
func NewManager(ctx context.Context, cfg *config.Config, gate *auth.AccessGate, secrets SecretGetter, logger *logrus.Logger) (*Manager, error) {
	m := &Manager{
		Auth:        NewAuthMiddleware(gate, logger),
		ErrorLogger: NewErrorLoggerMiddleware(logger, "/api/auth"),
		Config:      cfg,
		Logger:      logger,
	}

	if !cfg.Redis.Enabled {
		logger.Info("Redis disabled, Idempotency-Key headers are ignored")
		return m, nil
	}

	redisClient, err := NewRedisClient(ctx, &cfg.Redis, cfg.AWS.SecretName, secrets, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis client: %w", err)
	}

	m.RedisClient = redisClient
	m.Breaker = NewCircuitBreaker("redis", BreakerSettingsFromConfig(&cfg.Redis), logger)
	m.Idempotency = NewIdempotencyMiddleware(NewRedisIdempotencyStore(redisClient, m.Breaker), cfg.Redis.IdempotencyTTL, logger)

	return m, nil
}

// IdempotencyHandler returns the idempotency middleware or a pass-through.
func (m *Manager) IdempotencyHandler() fiber.Handler {
	if m.Idempotency == nil {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return m.Idempotency.Handle()
}

// Ping checks Redis when it is enabled.
func (m *Manager) Ping(ctx context.Context) error {
	if m.RedisClient == nil {
		return nil
	}
	return RedisHealthCheck(m.RedisClient, m.Logger)(ctx)
}

// BreakerStats reports the Redis breaker, or nil when Redis is disabled.
func (m *Manager) BreakerStats() *BreakerStats {
	if m.Breaker == nil {
		return nil
	}
	stats := m.Breaker.Stats()
	return &stats
}

// Close closes all middleware resources
func (m *Manager) Close() error {
	if m.RedisClient != nil {
		return m.RedisClient.Close()
	}
	return nil
}
