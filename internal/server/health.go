package server

import (
	"context"
	"time"

	"github.com/deppfellow/nginx-log-sink/internal/config"
	"github.com/robfig/cron/v3"
)

const (
	CheckDatabase = "database"
	CheckRedis    = "redis"

	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// CheckResult is the outcome of pinging one dependency.
type CheckResult struct {
	Status       string `json:"status"`
	ResponseTime string `json:"response_time"`
	Error        string `json:"error,omitempty"`
}

// CheckDependencies pings every configured dependency. Dependencies that are
// not configured are left out of the result.
func (s *Server) CheckDependencies(ctx context.Context) map[string]CheckResult {
	results := make(map[string]CheckResult)

	if s.DB != nil {
		results[CheckDatabase] = timeCheck(func() error { return s.DB.Pool.Ping(ctx) })
	}

	if s.Redis != nil {
		results[CheckRedis] = timeCheck(func() error { return s.Redis.Ping(ctx).Err() })
	}

	return results
}

func timeCheck(ping func() error) CheckResult {
	start := time.Now()
	err := ping()
	result := CheckResult{
		Status:       StatusHealthy,
		ResponseTime: time.Since(start).String(),
	}
	if err != nil {
		result.Status = StatusUnhealthy
		result.Error = err.Error()
	}
	return result
}

// HealthMonitor periodically runs CheckDependencies in the background.
type HealthMonitor struct {
	server *Server
	cfg    config.HealthChecksConfig
	cron   *cron.Cron
}

func NewHealthMonitor(s *Server, cfg config.HealthChecksConfig) *HealthMonitor {
	return &HealthMonitor{
		server: s,
		cfg:    cfg,
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
}

// Start schedules the checks at the configured interval.
func (m *HealthMonitor) Start() error {
	if _, err := m.cron.AddFunc("@every "+m.cfg.Interval.String(), m.run); err != nil {
		return err
	}
	m.cron.Start()
	return nil
}

// Stop waits for a running check to finish.
func (m *HealthMonitor) Stop() {
	<-m.cron.Stop().Done()
}

func (m *HealthMonitor) run() {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.Timeout)
	defer cancel()

	wanted := make(map[string]bool, len(m.cfg.Checks))
	for _, name := range m.cfg.Checks {
		wanted[name] = true
	}

	for name, result := range m.server.CheckDependencies(ctx) {
		if !wanted[name] {
			continue
		}

		if result.Status != StatusHealthy {
			m.server.Logger.Error().
				Str("check", name).
				Str("response_time", result.ResponseTime).
				Str("error", result.Error).
				Msg("dependency health check failed")
		} else {
			m.server.Logger.Debug().
				Str("check", name).
				Str("response_time", result.ResponseTime).
				Msg("dependency healthy")
		}

		m.server.LoggerService.RecordEvent("HealthCheck", map[string]interface{}{
			"check":         name,
			"status":        result.Status,
			"response_time": result.ResponseTime,
		})
	}
}
