package middleware

import (
	"github.com/deppfellow/nginx-log-sink/internal/errs"
	"github.com/labstack/echo/v4"
	"golang.org/x/sync/semaphore"
)

// ConcurrencyLimiter caps the number of requests handled at once. Waiting
// requests queue until a slot frees or their context ends.
type ConcurrencyLimiter struct {
	sem *semaphore.Weighted
	max int64
}

func NewConcurrencyLimiter(max int64) *ConcurrencyLimiter {
	if max < 1 {
		max = 1
	}
	return &ConcurrencyLimiter{
		sem: semaphore.NewWeighted(max),
		max: max,
	}
}

// Max is the number of requests allowed in flight.
func (l *ConcurrencyLimiter) Max() int64 {
	return l.max
}

// Limit returns the Echo middleware.
func (l *ConcurrencyLimiter) Limit() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := l.sem.Acquire(c.Request().Context(), 1); err != nil {
				GetLogger(c).Warn().
					Int64("max_concurrency", l.max).
					Msg("request gave up waiting for a free slot")
				return errs.NewServiceUnavailableError("Server is overloaded, retry later", errs.CodeOverloaded)
			}
			defer l.sem.Release(1)

			return next(c)
		}
	}
}
