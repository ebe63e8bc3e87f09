package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/deppfellow/nginx-log-sink/internal/middleware"
	"github.com/deppfellow/nginx-log-sink/internal/server"
	"github.com/labstack/echo/v4"
)

// StatusCheckTimeout bounds the dependency pings behind /status.
const StatusCheckTimeout = 5 * time.Second

type HealthHandler struct {
	Handler
}

func NewHealthHandler(s *server.Server) *HealthHandler {
	return &HealthHandler{
		Handler: NewHandler(s),
	}
}

// HealthzResponse is the liveness check body.
type HealthzResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// Healthz is the liveness check. It never touches dependencies.
func (h *HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthzResponse{
		Status:    server.StatusHealthy,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// StatusResponse is the readiness body.
type StatusResponse struct {
	Status      string                        `json:"status"`
	Timestamp   time.Time                     `json:"timestamp"`
	Environment string                        `json:"environment"`
	Storage     bool                          `json:"storage"`
	Alerting    bool                          `json:"alerting"`
	Checks      map[string]server.CheckResult `json:"checks"`
}

// CheckHealth pings the configured database and redis; any failure turns
// the response into a 503.
func (h *HealthHandler) CheckHealth(c echo.Context) error {
	start := time.Now()
	logger := middleware.GetLogger(c).With().
		Str("operation", "health_check").
		Logger()

	ctx, cancel := context.WithTimeout(c.Request().Context(), StatusCheckTimeout)
	defer cancel()

	response := StatusResponse{
		Status:      server.StatusHealthy,
		Timestamp:   time.Now().UTC(),
		Environment: h.server.Config.Primary.Env,
		Storage:     h.server.DB != nil,
		Alerting:    h.server.Job != nil && h.server.Config.Alerting.Enabled,
		Checks:      h.server.CheckDependencies(ctx),
	}

	for name, check := range response.Checks {
		if check.Status == server.StatusHealthy {
			continue
		}
		response.Status = server.StatusUnhealthy

		logger.Error().
			Str("check", name).
			Str("error", check.Error).
			Msg("health check failed")

		h.server.LoggerService.RecordEvent("HealthCheckError", map[string]interface{}{
			"check_type":    name,
			"operation":     "health_check",
			"error_message": check.Error,
		})
	}

	if response.Status != server.StatusHealthy {
		logger.Warn().Dur("total_duration", time.Since(start)).Msg("health check failed")
		return c.JSON(http.StatusServiceUnavailable, response)
	}

	logger.Debug().Dur("total_duration", time.Since(start)).Msg("health check passed")
	return c.JSON(http.StatusOK, response)
}
