// Package config provides storefront configuration loaded from environment variables.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const logPrefix = "config:LoadConfig"

// Config holds storefront configuration.
type Config struct {
	// APIURL is the base URL every endpoint path is resolved against.
	APIURL      string `envconfig:"API_URL" default:"http://localhost:8080"`
	ServiceName string `envconfig:"SERVICE_NAME" default:"purely-goods-storefront"`

	// Endpoint table source (built-in table when both are unset)
	EndpointsFile   string `envconfig:"ENDPOINTS_FILE"`
	EndpointsFromDB bool   `envconfig:"ENDPOINTS_FROM_DB" default:"false"`

	// Database
	DatabaseURL   string `envconfig:"DATABASE_URL"`
	MigrationPath string `envconfig:"MIGRATION_PATH" default:"migrations"`

	// COMMS: outcome events are published to NATS at COMMSURL when set.
	COMMSURL            string `envconfig:"COMMS_URL"`
	OutcomeEventSubject string `envconfig:"OUTCOME_EVENT_SUBJECT" default:"storefront.outcome"`

	// Timeouts (0 = no request timeout)
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"0"`

	// HTTP health endpoint
	HTTPPort           int           `envconfig:"HTTP_PORT" default:"8090"`
	HealthCheckTimeout time.Duration `envconfig:"HEALTH_CHECK_TIMEOUT" default:"5s"`

	// Logging
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// ValidateForClient checks the config every command that dispatches requests needs.
func (c *Config) ValidateForClient() error {
	if strings.TrimSpace(c.APIURL) == "" {
		return fmt.Errorf("%s - API_URL is required", logPrefix)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("%s - REQUEST_TIMEOUT must not be negative", logPrefix)
	}
	if c.EndpointsFromDB && c.DatabaseURL == "" {
		return fmt.Errorf("%s - DATABASE_URL is required when ENDPOINTS_FROM_DB is set", logPrefix)
	}
	if c.EndpointsFromDB && c.EndpointsFile != "" {
		return fmt.Errorf("%s - ENDPOINTS_FILE and ENDPOINTS_FROM_DB are mutually exclusive", logPrefix)
	}
	return nil
}

// ValidateForServe checks required config when running the storefront server.
func (c *Config) ValidateForServe() error {
	if err := c.ValidateForClient(); err != nil {
		return err
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("%s - HTTP_PORT must be between 1 and 65535", logPrefix)
	}
	if c.HealthCheckTimeout <= 0 {
		return fmt.Errorf("%s - HEALTH_CHECK_TIMEOUT must be positive", logPrefix)
	}
	return nil
}

// ValidateForDB checks required config when running DB-dependent commands (migrate, clear, seed).
func (c *Config) ValidateForDB() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("%s - DATABASE_URL is required", logPrefix)
	}
	return nil
}

// SlogLevel maps LOG_LEVEL to a slog level. Unknown values fall back to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
