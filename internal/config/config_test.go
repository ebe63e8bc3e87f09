package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearSinkEnv removes LOGSINK_* and PORT so tests don't inherit the host env.
func clearSinkEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, EnvPrefix) || key == PlatformPortEnv {
			t.Setenv(key, "")
			require.NoError(t, os.Unsetenv(key))
		}
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearSinkEnv(t)
	t.Setenv("LOGSINK_PRIMARY.ENV", "production")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, int64(8), cfg.Server.MaxConcurrency)
	assert.Equal(t, 0, cfg.Server.WriteTimeout)
	assert.Nil(t, cfg.Database)
	assert.Nil(t, cfg.Redis)
	assert.False(t, cfg.StorageEnabled())
	// no Resend key or recipients
	assert.False(t, cfg.Alerting.Enabled)
	assert.Equal(t, 500, cfg.Alerting.StatusThreshold)

	require.NotNil(t, cfg.Observability)
	assert.Equal(t, ServiceName, cfg.Observability.ServiceName)
	assert.Equal(t, "production", cfg.Observability.Environment)
	assert.True(t, cfg.Observability.IsProduction())
	assert.False(t, cfg.Observability.NewRelicEnabled())
}

func TestLoadConfig_AlertingNeedsDelivery(t *testing.T) {
	cases := []struct {
		name       string
		key        string
		recipients string
		enabled    bool
	}{
		{"key and recipients", "re_123", "ops@example.com", true},
		{"no recipients", "re_123", "", false},
		{"no key", "", "ops@example.com", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearSinkEnv(t)
			t.Setenv("LOGSINK_PRIMARY.ENV", "production")
			t.Setenv("LOGSINK_ALERTING.ENABLED", "true")
			if tc.key != "" {
				t.Setenv("LOGSINK_INTEGRATION.RESEND_API_KEY", tc.key)
			}
			if tc.recipients != "" {
				t.Setenv("LOGSINK_ALERTING.RECIPIENTS", tc.recipients)
			}

			cfg, err := LoadConfig()
			require.NoError(t, err)
			assert.Equal(t, tc.enabled, cfg.Alerting.Enabled)
			assert.Equal(t, tc.enabled, cfg.AlertDeliveryConfigured())
		})
	}
}

func TestLoadConfig_PlatformPortWins(t *testing.T) {
	clearSinkEnv(t)
	t.Setenv("LOGSINK_PRIMARY.ENV", "production")
	t.Setenv("LOGSINK_SERVER.PORT", "9000")
	t.Setenv("PORT", "7777")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "7777", cfg.Server.Port)
}

func TestLoadConfig_NestedOverrides(t *testing.T) {
	clearSinkEnv(t)
	t.Setenv("LOGSINK_PRIMARY.ENV", "staging")
	t.Setenv("LOGSINK_SERVER.MAX_CONCURRENCY", "16")
	t.Setenv("LOGSINK_ALERTING.THROTTLE_WINDOW", "90s")
	t.Setenv("LOGSINK_ALERTING.RECIPIENTS", "ops@example.com,sre@example.com")
	t.Setenv("LOGSINK_REDIS.ADDRESS", "localhost:6379")
	t.Setenv("LOGSINK_OBSERVABILITY.LOGGING.LEVEL", "warn")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, int64(16), cfg.Server.MaxConcurrency)
	assert.Equal(t, 90*time.Second, cfg.Alerting.ThrottleWindow)
	assert.Equal(t, []string{"ops@example.com", "sre@example.com"}, cfg.Alerting.Recipients)
	require.NotNil(t, cfg.Redis)
	assert.Equal(t, "localhost:6379", cfg.Redis.Address)
	assert.Equal(t, "warn", cfg.Observability.GetLogLevel())
	// untouched observability keys keep their defaults
	assert.Equal(t, "json", cfg.Observability.Logging.Format)
}

func TestLoadConfig_MissingEnv(t *testing.T) {
	clearSinkEnv(t)

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}

func TestLoadConfig_PartialDatabaseRejected(t *testing.T) {
	clearSinkEnv(t)
	t.Setenv("LOGSINK_PRIMARY.ENV", "production")
	t.Setenv("LOGSINK_DATABASE.HOST", "db")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfig_InvalidRecipient(t *testing.T) {
	clearSinkEnv(t)
	t.Setenv("LOGSINK_PRIMARY.ENV", "production")
	t.Setenv("LOGSINK_ALERTING.RECIPIENTS", "not-an-email")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestObservabilityConfig_Validate(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		require.NoError(t, DefaultObservabilityConfig().Validate())
	})

	t.Run("unknown level", func(t *testing.T) {
		c := DefaultObservabilityConfig()
		c.Logging.Level = "verbose"
		assert.Error(t, c.Validate())
	})

	t.Run("timeout longer than interval", func(t *testing.T) {
		c := DefaultObservabilityConfig()
		c.HealthChecks.Timeout = time.Minute
		assert.Error(t, c.Validate())
	})
}

func TestObservabilityConfig_GetLogLevel(t *testing.T) {
	c := DefaultObservabilityConfig()
	c.Logging.Level = ""

	c.Environment = "production"
	assert.Equal(t, "info", c.GetLogLevel())

	c.Environment = "development"
	assert.Equal(t, "debug", c.GetLogLevel())

	c.Environment = "staging"
	assert.Equal(t, "info", c.GetLogLevel())
}
