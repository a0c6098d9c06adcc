package middleware

import (
	"context"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/vidshare/api/internal/metrics"
	"github.com/vidshare/api/internal/utils"
	apperrors "github.com/vidshare/api/pkg/errors"
)

// IdempotencyHeader carries the optional client-chosen key.
const IdempotencyHeader = "Idempotency-Key"

var cacheableHeaders = []string{fiber.HeaderContentType, fiber.HeaderLocation}

// IdempotencyRecord is a cached response together with the fingerprint of
// the request that produced it. Pending records mark a request still being
// served.
type IdempotencyRecord struct {
	Fingerprint string            `json:"fingerprint"`
	Pending     bool              `json:"pending,omitempty"`
	StatusCode  int               `json:"status_code,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	Body        string            `json:"body,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// IdempotencyStore persists records.
type IdempotencyStore interface {
	// Reserve atomically claims key with a pending record. It returns the
	// existing record when the key is taken and nil, nil after claiming it.
	Reserve(ctx context.Context, key, fingerprint string, ttl time.Duration) (*IdempotencyRecord, error)

	// Save replaces the reservation with the completed response.
	Save(ctx context.Context, key string, record *IdempotencyRecord, ttl time.Duration) error

	// Release drops a reservation that did not produce a cacheable response.
	Release(ctx context.Context, key, fingerprint string) error
}

//go:embed lua/idempotency_reserve.lua
var reserveScriptSource string

//go:embed lua/idempotency_release.lua
var releaseScriptSource string

// RedisIdempotencyStore keeps records in Redis behind a circuit breaker.
// Reserve and Release run as Lua scripts so the check and the write are atomic.
type RedisIdempotencyStore struct {
	client  redis.UniversalClient
	breaker *CircuitBreaker

	reserveScript *redis.Script
	releaseScript *redis.Script
}

func NewRedisIdempotencyStore(client redis.UniversalClient, breaker *CircuitBreaker) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{
		client:        client,
		breaker:       breaker,
		reserveScript: redis.NewScript(reserveScriptSource),
		releaseScript: redis.NewScript(releaseScriptSource),
	}
}

func pendingRecord(fingerprint string) ([]byte, error) {
	return json.Marshal(&IdempotencyRecord{Fingerprint: fingerprint, Pending: true})
}

func (s *RedisIdempotencyStore) Reserve(ctx context.Context, key, fingerprint string, ttl time.Duration) (*IdempotencyRecord, error) {
	pending, err := pendingRecord(fingerprint)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal pending record: %w", err)
	}

	var data string
	err = s.breaker.Execute(ctx, "idempotency_reserve", func() error {
		var err error
		data, err = s.reserveScript.Run(ctx, s.client, []string{key}, pending, ttl.Milliseconds()).Text()
		if errors.Is(err, redis.Nil) {
			data = ""
			return nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if data == "" {
		return nil, nil
	}

	var record IdempotencyRecord
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal idempotency record: %w", err)
	}
	return &record, nil
}

func (s *RedisIdempotencyStore) Save(ctx context.Context, key string, record *IdempotencyRecord, ttl time.Duration) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal idempotency record: %w", err)
	}
	return s.breaker.Execute(ctx, "idempotency_set", func() error {
		return s.client.Set(ctx, key, data, ttl).Err()
	})
}

func (s *RedisIdempotencyStore) Release(ctx context.Context, key, fingerprint string) error {
	pending, err := pendingRecord(fingerprint)
	if err != nil {
		return fmt.Errorf("failed to marshal pending record: %w", err)
	}
	return s.breaker.Execute(ctx, "idempotency_release", func() error {
		return s.releaseScript.Run(ctx, s.client, []string{key}, pending).Err()
	})
}

// IdempotencyMiddleware replays the first successful response for a repeated
// Idempotency-Key. Keys are scoped to the authenticated principal, so it must
// run after AuthMiddleware.
type IdempotencyMiddleware struct {
	store      IdempotencyStore
	logger     *logrus.Logger
	ttl        time.Duration
	pendingTTL time.Duration
}

// defaultPendingTTL bounds how long a crashed request can hold its key.
const defaultPendingTTL = 30 * time.Second

func NewIdempotencyMiddleware(store IdempotencyStore, ttl time.Duration, logger *logrus.Logger) *IdempotencyMiddleware {
	return &IdempotencyMiddleware{
		store:      store,
		logger:     logger,
		ttl:        ttl,
		pendingTTL: defaultPendingTTL,
	}
}

// Handle applies idempotency when the header is present and is a no-op otherwise.
func (i *IdempotencyMiddleware) Handle() fiber.Handler {
	return func(c *fiber.Ctx) error {
		idempotencyKey := c.Get(IdempotencyHeader)
		if idempotencyKey == "" {
			return c.Next()
		}

		if _, err := uuid.Parse(idempotencyKey); err != nil {
			return RespondError(c, apperrors.NewAppError(apperrors.CodeBadRequest, "Idempotency-Key must be a valid UUID", err))
		}

		ctx := c.UserContext()
		redisKey := fmt.Sprintf("idempotency:%s:%s", GetUserID(c), strings.ToLower(idempotencyKey))
		fingerprint := i.generateFingerprint(c)

		existing, err := i.store.Reserve(ctx, redisKey, fingerprint, i.pendingTTL)
		if err != nil {
			// Fail open: the request is served without replay protection
			i.logger.WithError(err).WithField("idempotency_key", idempotencyKey).Warn("Failed to reserve idempotency key")
			return c.Next()
		}

		if existing != nil {
			if existing.Fingerprint != fingerprint {
				return RespondError(c, apperrors.NewAppError(apperrors.CodeIdempotencyConflict,
					"Request body differs from original request with same Idempotency-Key", nil))
			}
			if existing.Pending {
				metrics.RecordIdempotencyHit("in_flight")
				return RespondError(c, apperrors.NewAppError(apperrors.CodeIdempotencyConflict,
					"A request with this Idempotency-Key is still being processed", nil))
			}
			metrics.RecordIdempotencyHit("hit")
			return i.returnCachedResponse(c, existing)
		}
		metrics.RecordIdempotencyHit("miss")

		if err := c.Next(); err != nil {
			i.release(ctx, redisKey, fingerprint)
			return err
		}

		statusCode := c.Response().StatusCode()
		if statusCode < 200 || statusCode >= 300 {
			// the client may retry with the same key
			i.release(ctx, redisKey, fingerprint)
			return nil
		}

		record := &IdempotencyRecord{
			Fingerprint: fingerprint,
			StatusCode:  statusCode,
			Headers:     make(map[string]string),
			Body:        string(c.Response().Body()),
			CreatedAt:   time.Now().UTC(),
		}
		c.Response().Header.VisitAll(func(key, value []byte) {
			if utils.ContainsFold(cacheableHeaders, string(key)) {
				record.Headers[string(key)] = string(value)
			}
		})

		if err := i.store.Save(ctx, redisKey, record, i.ttl); err != nil {
			i.logger.WithError(err).WithField("idempotency_key", idempotencyKey).Warn("Failed to store idempotency record")
		} else {
			i.logger.WithFields(logrus.Fields{
				"idempotency_key": idempotencyKey,
				"status_code":     statusCode,
			}).Debug("Stored idempotency record")
		}
		return nil
	}
}

func (i *IdempotencyMiddleware) release(ctx context.Context, key, fingerprint string) {
	if err := i.store.Release(ctx, key, fingerprint); err != nil {
		i.logger.WithError(err).WithField("key", key).Warn("Failed to release idempotency key")
	}
}

// generateFingerprint hashes method, path and body
func (i *IdempotencyMiddleware) generateFingerprint(c *fiber.Ctx) string {
	h := sha256.New()
	h.Write([]byte(c.Method()))
	h.Write([]byte(":"))
	h.Write([]byte(c.Path()))
	h.Write([]byte(":"))
	h.Write(c.Body())
	return hex.EncodeToString(h.Sum(nil))
}

func (i *IdempotencyMiddleware) returnCachedResponse(c *fiber.Ctx, record *IdempotencyRecord) error {
	for key, value := range record.Headers {
		c.Set(key, value)
	}
	c.Set("X-Idempotency-Cached", "true")
	return c.Status(record.StatusCode).SendString(record.Body)
}
