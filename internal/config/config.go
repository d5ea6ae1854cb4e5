// Package config defines the global configuration structure for the alertpipe
// services. Configuration is loaded once at process initialization and is
// immutable thereafter. It follows 12-Factor App principles by strictly
// separating code from configuration.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> Struct Defaults (Lowest)
//
// Any missing required value or invalid format fails the process immediately
// on startup.
package config

import (
	"time"

	"alertpipe/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type
// used throughout configuration to prevent accidental logging of sensitive
// values such as connection URLs with embedded credentials.
type SecretString = types.SecretString

// Config is the top-level configuration struct for the alertpipe services.
// It is populated once during process initialization and never modified.
// Sub-components receive only the specific config subsets they require.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"alertpipe"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Domain Configurations
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Worker   WorkerConfig
	Webhook  WebhookConfig

	// Build Metadata (Injected via ldflags, not Env)
	Build BuildInfo
}

// ServerConfig holds the HTTP health/readiness endpoint configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
}

// DatabaseConfig holds database connection and pool tuning parameters.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL" validate:"required,url"`

	// Tuning Parameters
	MaxConns          int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns          int           `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	AcquireTimeout    time.Duration `envconfig:"DB_ACQUIRE_TIMEOUT" default:"2s"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`
}

// RedisConfig holds the queue backend connection parameters.
type RedisConfig struct {
	URL SecretString `envconfig:"REDIS_URL" validate:"required" default:"redis://localhost:6379/0"`

	ConnectRetries int           `envconfig:"REDIS_CONNECT_RETRIES" default:"5"`
	RetryInterval  time.Duration `envconfig:"REDIS_RETRY_INTERVAL" default:"2s"`
	ConnectTimeout time.Duration `envconfig:"REDIS_CONNECT_TIMEOUT" default:"5s"`
	SuppressionTTL time.Duration `envconfig:"NOTIFY_SUPPRESSION_TTL" default:"0"`
}

// WorkerConfig holds the notification consumer tuning parameters.
type WorkerConfig struct {
	QueueName       string `envconfig:"NOTIFICATION_QUEUE" default:"notifications"`
	Consumers       int    `envconfig:"WORKER_CONSUMERS" default:"2" validate:"min=1"`
	DefaultTimezone string `envconfig:"DEFAULT_TIMEZONE" default:"UTC"`
}

// WebhookConfig holds settings for outbound webhook delivery.
type WebhookConfig struct {
	UserAgent      string        `envconfig:"WEBHOOK_USER_AGENT" default:"alertpipe-webhook/1.0"`
	DefaultTimeout time.Duration `envconfig:"WEBHOOK_TIMEOUT" default:"10s"`
	MaxRetries     int           `envconfig:"WEBHOOK_MAX_RETRIES" default:"3"`
}

// BuildInfo holds build-time metadata injected via ldflags.
// These values are NOT populated from environment variables.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
