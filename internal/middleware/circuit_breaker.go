package middleware

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vidshare/api/internal/config"
	"github.com/vidshare/api/internal/metrics"
)

// ErrCircuitOpen is returned without calling the backend while the breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type BreakerState int

const (
	StateClosed BreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// BreakerSettings are the trip and recovery thresholds.
type BreakerSettings struct {
	MaxFailures       int           // consecutive failures that open the circuit
	ResetTimeout      time.Duration // open period before a trial call
	HalfOpenSuccesses int           // trial successes needed to close again
}

// BreakerSettingsFromConfig reads the thresholds from the Redis config.
func BreakerSettingsFromConfig(cfg *config.RedisConfig) BreakerSettings {
	return BreakerSettings{
		MaxFailures:       cfg.BreakerMaxFailures,
		ResetTimeout:      cfg.BreakerResetTimeout,
		HalfOpenSuccesses: cfg.BreakerHalfOpenSuccesses,
	}
}

// BreakerStats is a point-in-time view for the readiness endpoint.
type BreakerStats struct {
	Name        string    `json:"name"`
	State       string    `json:"state"`
	Failures    int       `json:"failures"`
	LastFailure time.Time `json:"last_failure,omitempty"`
}

// CircuitBreaker guards calls to an optional backend (Redis) so that an
// outage turns into fast failures the caller can fail open on.
type CircuitBreaker struct {
	name     string
	settings BreakerSettings
	logger   *logrus.Logger
	now      func() time.Time

	mu          sync.Mutex
	state       BreakerState
	failures    int
	trialOK     int
	lastFailure time.Time
}

func NewCircuitBreaker(name string, settings BreakerSettings, logger *logrus.Logger) *CircuitBreaker {
	if settings.MaxFailures <= 0 {
		settings.MaxFailures = 5
	}
	if settings.ResetTimeout <= 0 {
		settings.ResetTimeout = 10 * time.Second
	}
	if settings.HalfOpenSuccesses <= 0 {
		settings.HalfOpenSuccesses = 3
	}

	cb := &CircuitBreaker{
		name:     name,
		settings: settings,
		logger:   logger,
		now:      time.Now,
	}
	metrics.SetCircuitBreakerState(name, int(StateClosed))
	return cb
}

// Execute runs fn unless the circuit is open. operation labels the metric.
func (cb *CircuitBreaker) Execute(_ context.Context, operation string, fn func() error) error {
	if !cb.allow() {
		metrics.RecordRedisOperation(operation, "rejected")
		return ErrCircuitOpen
	}

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		metrics.RecordRedisOperation(operation, "error")
		cb.recordFailure(err)
		return err
	}

	metrics.RecordRedisOperation(operation, "success")
	cb.recordSuccess()
	return nil
}

func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != StateOpen {
		return true
	}
	if cb.now().Sub(cb.lastFailure) <= cb.settings.ResetTimeout {
		return false
	}
	cb.trialOK = 0
	cb.transition(StateHalfOpen, nil)
	return true
}

// recordFailure and recordSuccess expect cb.mu to be held.
func (cb *CircuitBreaker) recordFailure(err error) {
	cb.failures++
	cb.lastFailure = cb.now()

	switch cb.state {
	case StateClosed:
		if cb.failures >= cb.settings.MaxFailures {
			cb.transition(StateOpen, err)
		}
	case StateHalfOpen:
		cb.failures = 0
		cb.transition(StateOpen, err)
	}
}

func (cb *CircuitBreaker) recordSuccess() {
	switch cb.state {
	case StateClosed:
		cb.failures = 0
	case StateHalfOpen:
		cb.trialOK++
		if cb.trialOK >= cb.settings.HalfOpenSuccesses {
			cb.failures = 0
			cb.transition(StateClosed, nil)
		}
	}
}

func (cb *CircuitBreaker) transition(to BreakerState, cause error) {
	from := cb.state
	cb.state = to
	metrics.SetCircuitBreakerState(cb.name, int(to))

	entry := cb.logger.WithFields(logrus.Fields{
		"breaker":  cb.name,
		"from":     from.String(),
		"to":       to.String(),
		"failures": cb.failures,
	})
	if cause != nil {
		entry = entry.WithError(cause)
	}
	if to == StateOpen {
		entry.Error("Circuit breaker opened")
		return
	}
	entry.Info("Circuit breaker state changed")
}

// State returns the current state.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Stats returns a snapshot of the breaker.
func (cb *CircuitBreaker) Stats() BreakerStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return BreakerStats{
		Name:        cb.name,
		State:       cb.state.String(),
		Failures:    cb.failures,
		LastFailure: cb.lastFailure,
	}
}
