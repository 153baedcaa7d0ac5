// Package config defines the configuration for the reviewloop service.
// Configuration is loaded once at process startup and is immutable
// thereafter, following 12-Factor App principles. Any missing required value
// or invalid format causes startup to fail immediately.
package config

import "time"

// Config is the top-level configuration struct. It is populated once during
// process initialization and never modified. Sub-components receive only the
// specific subsets they require.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	Server   ServerConfig
	Database DatabaseConfig
	AWS      AWSConfig
	Intercom IntercomConfig
	Mail     MailConfig
	Review   ReviewConfig
	Dispatch DispatchConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// DatabaseConfig holds database connection and pool tuning parameters.
type DatabaseConfig struct {
	URL             string        `envconfig:"DATABASE_URL" validate:"required,url"`
	MaxConns        int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
}

// AWSConfig holds identifiers for the optional audit queue and metrics
// namespace. Empty values disable the corresponding integration.
type AWSConfig struct {
	Region          string `envconfig:"AWS_REGION" default:"us-east-1"`
	AuditQueueURL   string `envconfig:"SQS_AUDIT_QUEUE" validate:"omitempty,url"`
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:""`

	// LocalStack support (empty in prod).
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`
}

// IntercomConfig holds inbound event recognition and the contact API client
// settings for optional enrichment lookups.
type IntercomConfig struct {
	// CloseTopics is the recognized set of conversation-closed event types.
	CloseTopics []string `envconfig:"INTERCOM_CLOSE_TOPICS" default:"conversation.admin.closed,conversation.closed"`
	APIBase     string   `envconfig:"INTERCOM_API_BASE" default:"https://api.intercom.io"`
	AccessToken string   `envconfig:"INTERCOM_ACCESS_TOKEN"`
}

// MailConfig holds the outbound mail provider credentials.
type MailConfig struct {
	APIBase     string        `envconfig:"MAIL_API_BASE" default:"https://api.postmarkapp.com"`
	APIKey      string        `envconfig:"MAIL_API_KEY" validate:"required"`
	FromAddress string        `envconfig:"MAIL_FROM_ADDRESS" default:"reviews@reviewloop.io"`
	FromName    string        `envconfig:"MAIL_FROM_NAME" default:"Review Requests"`
	Timeout     time.Duration `envconfig:"MAIL_TIMEOUT" default:"10s"`
}

// ReviewConfig holds the review-link templating inputs.
type ReviewConfig struct {
	BusinessName string `envconfig:"REVIEW_BUSINESS_NAME" validate:"required"`
	Domain       string `envconfig:"REVIEW_DOMAIN" validate:"required,hostname"`
}

// DispatchConfig holds the retry policy for notification dispatch.
// RetryDelays must contain exactly MaxRetries entries, one per retry
// attempt, indexed by the attempt number about to be scheduled.
type DispatchConfig struct {
	MaxRetries              int             `envconfig:"DISPATCH_MAX_RETRIES" default:"3" validate:"min=1"`
	RetryDelays             []time.Duration `envconfig:"DISPATCH_RETRY_DELAYS" default:"5s,10s,20s"`
	SendTimeout             time.Duration   `envconfig:"DISPATCH_SEND_TIMEOUT" default:"10s"`
	MaxConcurrentDispatches int64           `envconfig:"DISPATCH_MAX_CONCURRENT" default:"32" validate:"min=1"`
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrParsing indicates a failure parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
	// ErrValidation indicates the configuration failed struct validation.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
)
