package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig returns a minimal Config that passes validation.
func validConfig() *Config {
	return &Config{
		Environment: "local",
		Database: DatabaseConfig{
			URL: "postgres://localhost:5432/reviewloop",
		},
		AWS: AWSConfig{Region: "us-east-1"},
		Mail: MailConfig{
			APIBase: "https://api.postmarkapp.com",
			APIKey:  "test-key",
			Timeout: 10 * time.Second,
		},
		Review: ReviewConfig{
			BusinessName: "Acme",
			Domain:       "acme.trustpilot.com",
		},
		Dispatch: DispatchConfig{
			MaxRetries:              3,
			RetryDelays:             []time.Duration{5 * time.Second, 10 * time.Second, 20 * time.Second},
			SendTimeout:             10 * time.Second,
			MaxConcurrentDispatches: 32,
		},
	}
}

func TestValidate_OK(t *testing.T) {
	require.NoError(t, Validate(validConfig()))
}

func TestValidate_MissingDatabaseURL(t *testing.T) {
	cfg := validConfig()
	cfg.Database.URL = ""

	err := Validate(cfg)
	require.Error(t, err)

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, ErrValidation, cfgErr.Type)
}

func TestValidate_DelayTableLengthMismatch(t *testing.T) {
	cfg := validConfig()
	cfg.Dispatch.RetryDelays = []time.Duration{5 * time.Second}

	err := Validate(cfg)
	require.Error(t, err)

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, ErrValidation, cfgErr.Type)
	assert.Contains(t, cfgErr.Message, "delay table")
}

func TestValidate_NonPositiveDelay(t *testing.T) {
	cfg := validConfig()
	cfg.Dispatch.RetryDelays = []time.Duration{5 * time.Second, 0, 20 * time.Second}

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be positive")
}

func TestValidate_BadEnvironment(t *testing.T) {
	cfg := validConfig()
	cfg.Environment = "production" // not in the oneof set

	err := Validate(cfg)
	require.Error(t, err)
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("APP_ENV", "local")
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/reviewloop")
	t.Setenv("MAIL_API_KEY", "test-key")
	t.Setenv("REVIEW_BUSINESS_NAME", "Acme")
	t.Setenv("REVIEW_DOMAIN", "acme.trustpilot.com")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Environment)
	assert.Equal(t, 3, cfg.Dispatch.MaxRetries)
	assert.Equal(t,
		[]time.Duration{5 * time.Second, 10 * time.Second, 20 * time.Second},
		cfg.Dispatch.RetryDelays,
	)
	assert.Equal(t, []string{"conversation.admin.closed", "conversation.closed"}, cfg.Intercom.CloseTopics)
	assert.Equal(t, "8080", cfg.Server.Port)
}

func TestLoadConfig_MissingRequired(t *testing.T) {
	t.Setenv("APP_ENV", "local")
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/reviewloop")
	t.Setenv("MAIL_API_KEY", "")
	t.Setenv("REVIEW_BUSINESS_NAME", "")
	t.Setenv("REVIEW_DOMAIN", "")

	_, err := LoadConfig()
	require.Error(t, err)
}
