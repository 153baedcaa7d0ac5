// loader.go implements the configuration loading lifecycle.
//
// The loading sequence is:
//  1. Enforce UTC timezone to prevent drift bugs.
//  2. Load .env file via godotenv (non-fatal if absent).
//  3. Use envconfig to process struct tags and populate the Config struct.
//  4. Validate the struct using go-playground/validator.
//  5. Cross-validate the dispatch retry policy (delay table length must
//     match the retry budget).
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ConfigError is a diagnostic error type returned by LoadConfig.
type ConfigError struct {
	Type    ConfigErrorType
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// LoadConfig loads and validates the service configuration from the
// environment, with an optional .env file for local development.
func LoadConfig() (*Config, error) {
	// Enforce UTC to prevent drift bugs. godotenv does NOT override
	// variables already present in the environment.
	time.Local = time.UTC
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrParsing,
			Message: "failed to process environment configuration",
			Err:     err,
		}
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the populated Config struct against its validation tags
// and the cross-field dispatch policy constraint. Exposed separately so
// tests can validate hand-built configs without touching the environment.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return &ConfigError{
			Type:    ErrValidation,
			Message: "configuration validation failed",
			Err:     err,
		}
	}

	// The delay table has exactly one entry per retry attempt.
	if len(cfg.Dispatch.RetryDelays) != cfg.Dispatch.MaxRetries {
		return &ConfigError{
			Type: ErrValidation,
			Message: fmt.Sprintf(
				"dispatch retry delay table has %d entries, want %d (one per retry)",
				len(cfg.Dispatch.RetryDelays), cfg.Dispatch.MaxRetries,
			),
		}
	}

	for i, d := range cfg.Dispatch.RetryDelays {
		if d <= 0 {
			return &ConfigError{
				Type:    ErrValidation,
				Message: fmt.Sprintf("dispatch retry delay %d must be positive, got %s", i, d),
			}
		}
	}

	return nil
}
