// Package router builds the Echo instance: middleware order, the global
// error handler and every route.
package router

import (
	"github.com/deppfellow/nginx-log-sink/internal/handler"
	"github.com/deppfellow/nginx-log-sink/internal/middleware"
	"github.com/deppfellow/nginx-log-sink/internal/server"
	"github.com/labstack/echo/v4"
)

func NewRouter(s *server.Server, h *handler.Handlers) *echo.Echo {
	middlewares := middleware.NewMiddlewares(s)

	router := echo.New()
	router.HideBanner = true
	router.HidePort = true
	router.HTTPErrorHandler = middlewares.Global.GlobalErrorHandler

	router.Use(
		middlewares.RateLimit.Limit(),
		middlewares.Global.CORS(),
		middlewares.Global.Secure(),
		middleware.RequestID(),
		middlewares.Tracing.NewRelicMiddleware(),
		middlewares.Tracing.EnhanceTracing(),
		middlewares.ContextEnhancer.EnhanceContext(),
		middlewares.Global.RequestLogger(),
		middlewares.Global.Recover(),
	)

	registerSystemRoutes(router, h)
	registerIngestRoutes(router, h, middlewares)
	registerAPIRoutes(router, h, middlewares)

	return router
}
