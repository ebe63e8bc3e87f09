package router

import (
	"github.com/deppfellow/nginx-log-sink/internal/handler"
	"github.com/deppfellow/nginx-log-sink/internal/middleware"
	"github.com/labstack/echo/v4"
)

// registerAPIRoutes mounts the Clerk-protected read API when it is enabled.
func registerAPIRoutes(r *echo.Echo, h *handler.Handlers, m *middleware.Middlewares) {
	if h.AccessLogs == nil {
		return
	}

	v1 := r.Group("/api/v1", m.Auth.RequireAuth, m.ContextEnhancer.EnhanceContext())

	v1.GET("/access-logs", h.AccessLogs.List())
	v1.GET("/access-logs/:id", h.AccessLogs.Get())
}
