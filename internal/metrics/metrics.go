package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_server_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_server_requests_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status_code"},
	)

	// Auth metrics
	authEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_events_total",
			Help: "Registration and login attempts by outcome",
		},
		[]string{"operation", "outcome"}, // register/login, success/<error code>
	)

	tokenVerificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_token_verifications_total",
			Help: "Access gate decisions",
		},
		[]string{"outcome"}, // ok, missing, malformed, expired
	)

	// Comment metrics
	commentOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comment_operations_total",
			Help: "Total number of comment operations",
		},
		[]string{"operation", "status"},
	)

	// Idempotency metrics
	idempotencyHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "idempotency_hits_total",
			Help: "Total number of idempotency hits",
		},
		[]string{"type"}, // hit or miss
	)

	// Store metrics
	storeOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_operations_total",
			Help: "Total number of store operations",
		},
		[]string{"store", "operation", "status"},
	)

	storeOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_operation_duration_seconds",
			Help:    "Store operation duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		},
		[]string{"store", "operation"},
	)

	// Redis metrics
	redisOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_operations_total",
			Help: "Total number of Redis operations",
		},
		[]string{"operation", "status"},
	)

	circuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 open, 2 half-open)",
		},
		[]string{"name"},
	)
)

// Collectors returns every collector owned by this package
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		httpRequestsTotal,
		httpRequestDuration,
		authEventsTotal,
		tokenVerificationsTotal,
		commentOperationsTotal,
		idempotencyHitsTotal,
		storeOperationsTotal,
		storeOperationDuration,
		redisOperationsTotal,
		circuitBreakerState,
	}
}

// Init registers the metrics with the default registry
func Init() error {
	for _, c := range Collectors() {
		if err := prometheus.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// HTTPMetricsMiddleware records HTTP metrics
func HTTPMetricsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		// Process request
		err := c.Next()

		// Record metrics
		duration := time.Since(start).Seconds()
		method := c.Method()
		route := c.Route().Path
		if route == "" {
			route = c.Path()
		}
		statusCode := strconv.Itoa(c.Response().StatusCode())

		httpRequestsTotal.WithLabelValues(method, route, statusCode).Inc()
		httpRequestDuration.WithLabelValues(method, route, statusCode).Observe(duration)

		return err
	}
}

// RecordAuthEvent records a register/login outcome
func RecordAuthEvent(operation, outcome string) {
	authEventsTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordTokenVerification records an access gate decision
func RecordTokenVerification(outcome string) {
	tokenVerificationsTotal.WithLabelValues(outcome).Inc()
}

// RecordCommentOperation records comment operations
func RecordCommentOperation(operation, status string) {
	commentOperationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordIdempotencyHit records idempotency cache hits/misses
func RecordIdempotencyHit(hitType string) {
	idempotencyHitsTotal.WithLabelValues(hitType).Inc()
}

// RecordStoreOperation records a backend store call
func RecordStoreOperation(store, operation, status string, duration time.Duration) {
	storeOperationsTotal.WithLabelValues(store, operation, status).Inc()
	storeOperationDuration.WithLabelValues(store, operation).Observe(duration.Seconds())
}

// RecordRedisOperation records Redis operations
func RecordRedisOperation(operation, status string) {
	redisOperationsTotal.WithLabelValues(operation, status).Inc()
}

// SetCircuitBreakerState publishes a breaker's state
func SetCircuitBreakerState(name string, state int) {
	circuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// PrometheusHandler returns the Prometheus metrics handler
func PrometheusHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
