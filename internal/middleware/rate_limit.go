package middleware

import (
	"math"
	"net/http"
	"time"

	"github.com/deppfellow/nginx-log-sink/internal/errs"
	"github.com/deppfellow/nginx-log-sink/internal/server"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// RateLimitMiddleware enforces server.rate_limit requests per second per
// client IP and reports hits to New Relic.
type RateLimitMiddleware struct {
	server *server.Server
}

func NewRateLimitMiddleware(s *server.Server) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		server: s,
	}
}

// Limit returns the limiter, or a pass-through when rate_limit is 0.
func (r *RateLimitMiddleware) Limit() echo.MiddlewareFunc {
	limit := r.server.Config.Server.RateLimit
	if limit <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return next
		}
	}

	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(limit),
		// a zero burst would deny every request for fractional rates
		Burst:     max(1, int(math.Ceil(limit*2))),
		ExpiresIn: 3 * time.Minute,
	})

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		// health checks must never be throttled
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/healthz"
		},
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return errs.NewForbiddenError("could not identify client", false)
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			r.RecordRateLimitHit(c.Path())

			GetLogger(c).Warn().
				Str("identifier", identifier).
				Msg("rate limit exceeded")

			return &errs.HTTPError{
				Code:     errs.MakeUpperCaseWithUnderscores(http.StatusText(http.StatusTooManyRequests)),
				Message:  "Rate limit exceeded",
				Status:   http.StatusTooManyRequests,
				Override: false,
			}
		},
	})
}

// RecordRateLimitHit records a RateLimitHit custom event when APM is on.
func (r *RateLimitMiddleware) RecordRateLimitHit(endpoint string) {
	r.server.LoggerService.RecordEvent("RateLimitHit", map[string]interface{}{
		"endpoint": endpoint,
	})
}
