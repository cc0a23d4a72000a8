// Package config loads process configuration from the environment.
package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"

	dErrors "telesession/pkg/domain-errors"
)

// Config holds everything the server needs at startup. Values come from
// environment variables; defaults are tuned for local development.
type Config struct {
	// HTTP server.
	Addr            string        `envconfig:"TELESESSION_ADDR" default:":8080"`
	RequestTimeout  time.Duration `envconfig:"TELESESSION_REQUEST_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"TELESESSION_SHUTDOWN_TIMEOUT" default:"15s"`

	// Logging.
	LogLevel  string `envconfig:"TELESESSION_LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"TELESESSION_LOG_FORMAT" default:"text"`

	// Default session policy, applied when a create request leaves the
	// corresponding field unset.
	MaxParticipants int           `envconfig:"TELESESSION_MAX_PARTICIPANTS" default:"8"`
	InvitationTTL   time.Duration `envconfig:"TELESESSION_INVITATION_TTL" default:"24h"`
	SessionTimeout  time.Duration `envconfig:"TELESESSION_SESSION_TIMEOUT" default:"4h"`

	// Invitation join tokens.
	JWTSigningKey string        `envconfig:"TELESESSION_JWT_SIGNING_KEY" default:"dev-secret-key-change-in-production"`
	JWTIssuer     string        `envconfig:"TELESESSION_JWT_ISSUER" default:"telesession"`
	JWTTokenTTL   time.Duration `envconfig:"TELESESSION_JWT_TOKEN_TTL" default:"24h"`

	// Metrics endpoint toggle.
	MetricsEnabled bool `envconfig:"TELESESSION_METRICS_ENABLED" default:"true"`
}

// Load reads configuration from the environment and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "failed to process environment")
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.MaxParticipants < 1 {
		return dErrors.New(dErrors.CodeInvalidInput, "TELESESSION_MAX_PARTICIPANTS must be at least 1")
	}
	if c.InvitationTTL <= 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "TELESESSION_INVITATION_TTL must be positive")
	}
	if c.JWTSigningKey == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "TELESESSION_JWT_SIGNING_KEY must not be empty")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return dErrors.Newf(dErrors.CodeInvalidInput, "unknown log level %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return dErrors.Newf(dErrors.CodeInvalidInput, "unknown log format %q", c.LogFormat)
	}
	return nil
}
