// Package config manages environment variables.
//
// It reads variables from the process environment (and an optional `.env`
// file), loads them into structured Go types and validates that required
// values are present so the sink fails fast on bad or missing config.
//
// Responsibilities:
//   - Load environment variables (optionally from a `.env` file).
//   - Map env vars into a structured Go config (structs).
//   - Honour the platform-provided PORT variable.
//   - Provide sane defaults for optional blocks (server, alerting, observability).
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	// Side-effect import: if a `.env` file exists it is loaded into the
	// process env before anything below reads it.
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

/*
	Env vars are read using the LOGSINK_ prefix. Keys are lowercased with the
	prefix removed, and nesting uses the "." delimiter:

	  LOGSINK_SERVER.PORT        -> server.port        -> Config.Server.Port
	  LOGSINK_ALERTING.RECIPIENTS=a@x.io,b@x.io -> Config.Alerting.Recipients

	The hosting platform contract variable PORT (no prefix) always wins over
	server.port.
*/

const (
	// EnvPrefix is the prefix every sink variable carries.
	EnvPrefix = "LOGSINK_"

	// PlatformPortEnv is set by the hosting platform (Cloud Run, etc.).
	PlatformPortEnv = "PORT"

	// ServiceName tags logs, traces and APM data.
	ServiceName = "nginx-log-sink"
)

// Config is the root configuration object for the application.
//
// Database, Redis and Auth are pointers because the sink runs fine without
// them: no storage, no alert throttling/queueing, no listing API.
type Config struct {
	Primary       Primary              `koanf:"primary" validate:"required"`
	Server        ServerConfig         `koanf:"server" validate:"required"`
	Database      *DatabaseConfig      `koanf:"database"`
	Redis         *RedisConfig         `koanf:"redis"`
	Auth          *AuthConfig          `koanf:"auth"`
	Alerting      AlertingConfig       `koanf:"alerting"`
	Integration   IntegrationConfig    `koanf:"integration"`
	Observability *ObservabilityConfig `koanf:"observability"`
}

// Primary holds top-level information about the runtime environment.
type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

// ServerConfig groups settings for the HTTP server runtime.
//
// Timeouts are seconds. A zero WriteTimeout leaves responses unbounded,
// which is what long Pub/Sub batches need.
type ServerConfig struct {
	Port               string   `koanf:"port" validate:"required"`
	ReadTimeout        int      `koanf:"read_timeout" validate:"min=0"`
	WriteTimeout       int      `koanf:"write_timeout" validate:"min=0"`
	IdleTimeout        int      `koanf:"idle_timeout" validate:"min=0"`
	MaxConcurrency     int64    `koanf:"max_concurrency" validate:"min=1"`
	BodyLimit          string   `koanf:"body_limit" validate:"required"`
	RateLimit          float64  `koanf:"rate_limit" validate:"min=0"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`
}

// DatabaseConfig contains PostgreSQL connection parameters and pool tuning.
type DatabaseConfig struct {
	Host            string `koanf:"host" validate:"required"`
	Port            int    `koanf:"port" validate:"required"`
	User            string `koanf:"user" validate:"required"`
	Password        string `koanf:"password" validate:"required"`
	Name            string `koanf:"name" validate:"required"`
	SSLMode         string `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns    int    `koanf:"max_open_conns" validate:"required"`
	MaxIdleConns    int    `koanf:"max_idle_conns" validate:"required"`
	ConnMaxLifetime int    `koanf:"conn_max_lifetime" validate:"required"`
	ConnMaxIdleTime int    `koanf:"conn_max_idle_time" validate:"required"`
}

// RedisConfig contains Redis connection details.
// Address is typically "host:port".
type RedisConfig struct {
	Address  string `koanf:"address" validate:"required"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// AuthConfig stores the Clerk secret used to protect the listing API.
type AuthConfig struct {
	SecretKey string `koanf:"secret_key" validate:"required"`
}

// AlertingConfig controls what happens when an nginx 5xx is seen.
type AlertingConfig struct {
	Enabled         bool          `koanf:"enabled"`
	StatusThreshold int           `koanf:"status_threshold" validate:"min=100,max=599"`
	ThrottleWindow  time.Duration `koanf:"throttle_window" validate:"min=0"`
	Recipients      []string      `koanf:"recipients" validate:"dive,email"`
	From            string        `koanf:"from"`
}

// IntegrationConfig holds third-party API credentials.
type IntegrationConfig struct {
	ResendAPIKey string `koanf:"resend_api_key"`
}

// DefaultConfig returns the values applied before the environment is read.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:               "8080",
			ReadTimeout:        30,
			WriteTimeout:       0,
			IdleTimeout:        120,
			MaxConcurrency:     8,
			BodyLimit:          "10M",
			RateLimit:          0,
			CORSAllowedOrigins: []string{"*"},
		},
		Alerting: AlertingConfig{
			Enabled:         true,
			StatusThreshold: 500,
			ThrottleWindow:  5 * time.Minute,
			From:            "Nginx Log Sink <alerts@resend.dev>",
		},
		Observability: DefaultObservabilityConfig(),
	}
}

// LoadConfig loads configuration from environment variables, unmarshals it
// over DefaultConfig, validates it, applies observability defaults and
// returns the resulting config.
func LoadConfig() (*Config, error) {
	k := koanf.New(".")

	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("could not load env variables: %w", err)
	}

	mainConfig := DefaultConfig()

	// Unmarshal leaves fields untouched when no key maps onto them, so the
	// defaults above survive. Comma-separated values decode into slices.
	err = k.UnmarshalWithConf("", mainConfig, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			WeaklyTypedInput: true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("could not unmarshal main config: %w", err)
	}

	if port := os.Getenv(PlatformPortEnv); port != "" {
		mainConfig.Server.Port = port
	}

	validate := validator.New()
	if err := validate.Struct(mainConfig); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	// alerts nobody can receive would only burn throttle windows
	if mainConfig.Alerting.Enabled && !mainConfig.AlertDeliveryConfigured() {
		mainConfig.Alerting.Enabled = false
	}

	if mainConfig.Observability == nil {
		mainConfig.Observability = DefaultObservabilityConfig()
	}

	// Service name and environment are not user-configurable.
	mainConfig.Observability.ServiceName = ServiceName
	mainConfig.Observability.Environment = mainConfig.Primary.Env

	if err := mainConfig.Observability.Validate(); err != nil {
		return nil, fmt.Errorf("invalid observability config: %w", err)
	}

	return mainConfig, nil
}

// IsLocal reports whether the sink runs on a developer machine.
func (c *Config) IsLocal() bool {
	return c.Primary.Env == "local"
}

// AlertDeliveryConfigured reports whether alert emails have a Resend key and
// at least one recipient.
func (c *Config) AlertDeliveryConfigured() bool {
	return c.Integration.ResendAPIKey != "" && len(c.Alerting.Recipients) > 0
}

// StorageEnabled reports whether records are persisted.
func (c *Config) StorageEnabled() bool {
	return c.Database != nil
}
