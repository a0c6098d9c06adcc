package middleware

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/vidshare/api/internal/config"
)

// SecretGetter resolves a named secret string.
type SecretGetter interface {
	GetString(ctx context.Context, name string) (string, error)
}

// NewRedisClient creates a universal client that works with both standalone
// and cluster endpoints. When PasswordFromSecrets is set the password is read
// from secretName.
func NewRedisClient(ctx context.Context, cfg *config.RedisConfig, secretName string, secrets SecretGetter, logger *logrus.Logger) (redis.UniversalClient, error) {
	password := cfg.Password
	if cfg.PasswordFromSecrets {
		if secrets == nil {
			return nil, fmt.Errorf("redis password from secrets requested but no secrets client configured")
		}
		pwd, err := secrets.GetString(ctx, secretName)
		if err != nil {
			return nil, fmt.Errorf("failed to get Redis password from secrets: %w", err)
		}
		password = pwd
		logger.Info("Redis password fetched from AWS Secrets Manager")
	}

	// Configure TLS for ElastiCache in-transit encryption
	var tlsConfig *tls.Config
	if cfg.TLSEnabled {
		tlsConfig = &tls.Config{
			ServerName: extractHostname(cfg.Address),
		}
		logger.WithField("address", cfg.Address).Info("Redis TLS encryption enabled")
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        []string{cfg.Address},
		Password:     password,
		DB:           cfg.Database, // Ignored in cluster mode
		MaxRetries:   cfg.MaxRetries,
		PoolSize:     cfg.PoolSize,
		PoolTimeout:  cfg.PoolTimeout,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		DialTimeout:  5 * time.Second,

		MinIdleConns:    2,
		ConnMaxIdleTime: 10 * time.Minute,

		MinRetryBackoff: 8 * time.Millisecond,
		MaxRetryBackoff: 512 * time.Millisecond,

		TLSConfig: tlsConfig,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"address": cfg.Address,
		"db":      cfg.Database,
	}).Info("Connected to Redis")

	return client, nil
}

// RedisHealthCheck returns a readiness probe for the client.
func RedisHealthCheck(client redis.UniversalClient, logger *logrus.Logger) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		if err := client.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Error("Redis health check failed")
			return fmt.Errorf("redis unavailable: %w", err)
		}
		return nil
	}
}

// extractHostname extracts hostname from address (host:port -> host)
func extractHostname(address string) string {
	if idx := strings.LastIndex(address, ":"); idx != -1 {
		return address[:idx]
	}
	return address
}
