package router

import (
	"github.com/deppfellow/nginx-log-sink/internal/handler"
	"github.com/labstack/echo/v4"
)

// registerSystemRoutes registers health checks and docs.
func registerSystemRoutes(r *echo.Echo, h *handler.Handlers) {
	r.GET("/healthz", h.Health.Healthz)
	r.GET("/status", h.Health.CheckHealth)

	r.Static("/static", handler.StaticDir)
	r.GET("/docs", h.OpenAPI.ServeOpenAPIUI)
}
