package router

import (
	"github.com/deppfellow/nginx-log-sink/internal/handler"
	"github.com/deppfellow/nginx-log-sink/internal/middleware"
	"github.com/labstack/echo/v4"
)

// registerIngestRoutes mounts the push endpoint. Only this route is body
// and concurrency limited; health checks must answer while ingest is saturated.
func registerIngestRoutes(r *echo.Echo, h *handler.Handlers, m *middleware.Middlewares) {
	r.POST("/", h.Ingest.Receive,
		m.Global.BodyLimit(),
		m.Concurrency.Limit(),
	)
}
