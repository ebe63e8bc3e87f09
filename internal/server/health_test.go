package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/deppfellow/nginx-log-sink/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeCheck(t *testing.T) {
	ok := timeCheck(func() error { return nil })
	assert.Equal(t, StatusHealthy, ok.Status)
	assert.Empty(t, ok.Error)

	bad := timeCheck(func() error { return errors.New("connection refused") })
	assert.Equal(t, StatusUnhealthy, bad.Status)
	assert.Equal(t, "connection refused", bad.Error)
}

func TestCheckDependencies_NothingConfigured(t *testing.T) {
	s := &Server{}
	assert.Empty(t, s.CheckDependencies(context.Background()))
}

func TestHealthMonitor_StartStop(t *testing.T) {
	logger := zerolog.Nop()
	s := &Server{Logger: &logger}

	m := NewHealthMonitor(s, config.HealthChecksConfig{
		Enabled:  true,
		Interval: time.Second,
		Timeout:  time.Second,
		Checks:   []string{CheckDatabase, CheckRedis},
	})
	require.NoError(t, m.Start())
	m.run()
	m.Stop()
}
