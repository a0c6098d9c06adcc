package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"golang.org/x/crypto/bcrypt"
)

// Store drivers
const (
	StoreDriverMemory   = "memory"
	StoreDriverDynamoDB = "dynamodb"
	StoreDriverPostgres = "postgres"
)

type Config struct {
	Server        ServerConfig        `envconfig:"SERVER"`
	JWT           JWTConfig           `envconfig:"JWT"`
	Auth          AuthConfig          `envconfig:"AUTH"`
	Store         StoreConfig         `envconfig:"STORE"`
	DynamoDB      DynamoDBConfig      `envconfig:"DYNAMODB"`
	Postgres      PostgresConfig      `envconfig:"POSTGRES"`
	Redis         RedisConfig         `envconfig:"REDIS"`
	Observability ObservabilityConfig `envconfig:"OBSERVABILITY"`
	CORS          CORSConfig          `envconfig:"CORS"`
	Log           LogConfig           `envconfig:"LOG"`
	AWS           AWSConfig           `envconfig:"AWS"`
}

type AWSConfig struct {
	Region     string `envconfig:"REGION" default:"ap-northeast-2"`
	Profile    string `envconfig:"PROFILE" default:""`
	SecretName string `envconfig:"SECRET_NAME" default:""`
}

type ServerConfig struct {
	Port         string        `envconfig:"PORT" default:"8000"`
	Environment  string        `envconfig:"ENVIRONMENT" default:"development"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"30s"`
	IdleTimeout  time.Duration `envconfig:"IDLE_TIMEOUT" default:"120s"`
}

// JWTConfig holds the process-wide signing secret. It is resolved once at
// start and handed to the token service; request code never reads it.
type JWTConfig struct {
	Secret            string `envconfig:"SECRET"`
	SecretFromSecrets bool   `envconfig:"SECRET_FROM_SECRETS" default:"false"`
	SecretName        string `envconfig:"SECRET_NAME" default:""`
	Issuer            string `envconfig:"ISSUER" default:"vidshare-api"`
}

type AuthConfig struct {
	BcryptCost int `envconfig:"BCRYPT_COST" default:"10"`
}

type StoreConfig struct {
	Driver string `envconfig:"DRIVER" default:"memory"`
}

type DynamoDBConfig struct {
	UsersTableName    string `envconfig:"USERS_TABLE_NAME" default:"vidshare-users"`
	CommentsTableName string `envconfig:"COMMENTS_TABLE_NAME" default:"vidshare-comments"`
	Region            string `envconfig:"REGION" default:"ap-northeast-2"`
	Endpoint          string `envconfig:"ENDPOINT" default:""` // dynamodb-local
}

type PostgresConfig struct {
	DSN            string `envconfig:"DSN" default:""`
	MaxConns       int32  `envconfig:"MAX_CONNS" default:"10"`
	MigrateOnStart bool   `envconfig:"MIGRATE_ON_START" default:"true"`
}

type RedisConfig struct {
	Enabled             bool          `envconfig:"ENABLED" default:"false"`
	Address             string        `envconfig:"ADDRESS" default:"localhost:6379"`
	Password            string        `envconfig:"PASSWORD" default:""`
	Database            int           `envconfig:"DATABASE" default:"0"`
	MaxRetries          int           `envconfig:"MAX_RETRIES" default:"3"`
	PoolSize            int           `envconfig:"POOL_SIZE" default:"100"`
	PoolTimeout         time.Duration `envconfig:"POOL_TIMEOUT" default:"4s"`
	TLSEnabled          bool          `envconfig:"TLS_ENABLED" default:"false"`
	PasswordFromSecrets bool          `envconfig:"PASSWORD_FROM_SECRETS" default:"false"`
	IdempotencyTTL      time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"5m"`

	BreakerMaxFailures       int           `envconfig:"BREAKER_MAX_FAILURES" default:"5"`
	BreakerResetTimeout      time.Duration `envconfig:"BREAKER_RESET_TIMEOUT" default:"10s"`
	BreakerHalfOpenSuccesses int           `envconfig:"BREAKER_HALF_OPEN_SUCCESSES" default:"3"`
}

type ObservabilityConfig struct {
	MetricsPath    string  `envconfig:"METRICS_PATH" default:"/metrics"`
	OTLPEndpoint   string  `envconfig:"OTLP_ENDPOINT" default:"http://localhost:4318"`
	TraceExporter  string  `envconfig:"TRACE_EXPORTER" default:"otlp"` // otlp or stdout
	TracingEnabled bool    `envconfig:"TRACING_ENABLED" default:"false"`
	SampleRate     float64 `envconfig:"SAMPLE_RATE" default:"0.1"`
}

type CORSConfig struct {
	AllowOrigins string `envconfig:"ALLOW_ORIGINS" default:"*"`
}

type LogConfig struct {
	Level  string `envconfig:"LEVEL" default:"info"`
	Format string `envconfig:"FORMAT" default:"json"`
}

func Load() (*Config, error) {
	var cfg Config

	// Load from environment variables
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	cfg.JWT.Secret = strings.TrimSpace(cfg.JWT.Secret)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func validateConfig(cfg *Config) error {
	// The secret may still arrive from Secrets Manager; main re-checks after resolution.
	if cfg.JWT.Secret == "" && !cfg.JWT.SecretFromSecrets {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.JWT.SecretFromSecrets && cfg.JWT.SecretName == "" && cfg.AWS.SecretName == "" {
		return fmt.Errorf("JWT_SECRET_NAME or AWS_SECRET_NAME is required when JWT_SECRET_FROM_SECRETS is set")
	}

	if cfg.Auth.BcryptCost < bcrypt.MinCost || cfg.Auth.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("invalid bcrypt cost: %d (allowed %d-%d)", cfg.Auth.BcryptCost, bcrypt.MinCost, bcrypt.MaxCost)
	}

	switch cfg.Store.Driver {
	case StoreDriverMemory, StoreDriverDynamoDB:
	case StoreDriverPostgres:
		if cfg.Postgres.DSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required for the postgres store driver")
		}
	default:
		return fmt.Errorf("unknown store driver: %s", cfg.Store.Driver)
	}

	// Validate port
	if port, err := strconv.Atoi(cfg.Server.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid server port: %s", cfg.Server.Port)
	}

	// Validate sample rate
	if cfg.Observability.SampleRate < 0 || cfg.Observability.SampleRate > 1 {
		return fmt.Errorf("invalid tracing sample rate: %f", cfg.Observability.SampleRate)
	}

	switch cfg.Observability.TraceExporter {
	case "otlp", "stdout":
	default:
		return fmt.Errorf("unknown trace exporter: %s", cfg.Observability.TraceExporter)
	}

	return nil
}

// JWTSecretName returns the Secrets Manager id holding the signing secret
func (c *Config) JWTSecretName() string {
	if c.JWT.SecretName != "" {
		return c.JWT.SecretName
	}
	return c.AWS.SecretName
}
