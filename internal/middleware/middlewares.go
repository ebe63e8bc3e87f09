package middleware

import (
	"github.com/deppfellow/nginx-log-sink/internal/server"
	"github.com/newrelic/go-agent/v3/newrelic"
)

// Middlewares groups every middleware component so the router builds them
// once.
type Middlewares struct {
	Global          *GlobalMiddlewares
	Auth            *AuthMiddleware
	ContextEnhancer *ContextEnhancer
	Tracing         *TracingMiddleware
	RateLimit       *RateLimitMiddleware
	Concurrency     *ConcurrencyLimiter
}

// NewMiddlewares constructs all middleware components. Without a New Relic
// application the tracing middleware degrades into a no-op.
func NewMiddlewares(s *server.Server) *Middlewares {
	var nrApp *newrelic.Application
	if s.LoggerService != nil {
		nrApp = s.LoggerService.GetApplication()
	}

	return &Middlewares{
		Global:          NewGlobalMiddlewares(s),
		Auth:            NewAuthMiddleware(s),
		ContextEnhancer: NewContextEnhancer(s),
		Tracing:         NewTracingMiddleware(s, nrApp),
		RateLimit:       NewRateLimitMiddleware(s),
		Concurrency:     NewConcurrencyLimiter(s.Config.Server.MaxConcurrency),
	}
}
