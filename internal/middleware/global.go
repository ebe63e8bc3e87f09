package middleware

import (
	"net/http"

	"github.com/deppfellow/nginx-log-sink/internal/errs"
	"github.com/deppfellow/nginx-log-sink/internal/server"
	"github.com/deppfellow/nginx-log-sink/internal/sqlerr"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// GlobalMiddlewares groups the middleware applied to every route and the
// global error handler.
//
// It holds the *server.Server so each middleware can read config (CORS
// origins, body limit) and the logger service.
type GlobalMiddlewares struct {
	server *server.Server
}

func NewGlobalMiddlewares(s *server.Server) *GlobalMiddlewares {
	return &GlobalMiddlewares{
		server: s,
	}
}

// CORS allows browser clients from server.cors_allowed_origins. Pub/Sub and
// sidecars never send an Origin header, so this only matters for /docs and
// the read API.
func (global *GlobalMiddlewares) CORS() echo.MiddlewareFunc {
	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: global.server.Config.Server.CORSAllowedOrigins,
	})
}

// BodyLimit rejects bodies larger than server.body_limit with 413.
//
// Echo checks Content-Length up front and wraps the body reader for chunked
// requests, so an oversized stream fails inside io.ReadAll in the handler
// and the 413 comes back as that read error.
func (global *GlobalMiddlewares) BodyLimit() echo.MiddlewareFunc {
	return middleware.BodyLimit(global.server.Config.Server.BodyLimit)
}

// RequestLogger emits one "API" line per request, leveled by status.
//
// It runs after the handler and the error handler have both returned, and
// uses the request-scoped logger ContextEnhancer stored, so request_id and
// trace ids are already on every line.
func (global *GlobalMiddlewares) RequestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogError:   true,
		LogLatency: true,
		LogHost:    true,
		LogMethod:  true,
		LogURIPath: true,

		// called once the request is done; v carries latency, status and
		// the error the handler returned
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			// QUIRK: when a handler returns an error, echo has not written
			// the final status yet; GlobalErrorHandler does that later.
			// v.Status may therefore still read 200, so derive the status
			// from the error type instead.
			// https://github.com/labstack/echo/issues/2310#issuecomment-1288196898
			statusCode := v.Status
			if v.Error != nil {
				statusCode = statusFromError(v.Error, statusCode)
			}

			logger := GetLogger(c)

			// 5xx is our fault (Error), 4xx the client's (Warn).
			var e *zerolog.Event
			switch {
			case statusCode >= 500:
				e = logger.Error().Err(v.Error)
			case statusCode >= 400:
				e = logger.Warn()
			default:
				e = logger.Info()
			}

			e.
				Dur("latency", v.Latency).
				Int("status", statusCode).
				Str("method", v.Method).
				Str("uri", v.URI).
				Str("host", v.Host).
				Str("ip", c.RealIP()).
				Str("user_agent", c.Request().UserAgent()).
				Msg("API")

			return nil
		},
	})
}

// statusFromError reads the intended status off our HTTPError or echo's
// own HTTPError (which keeps it in Code).
func statusFromError(err error, fallback int) int {
	var httpErr *errs.HTTPError
	var echoErr *echo.HTTPError

	switch {
	case errors.As(err, &httpErr):
		return httpErr.Status
	case errors.As(err, &echoErr):
		return echoErr.Code
	default:
		return fallback
	}
}

// Recover turns a panicking handler into a 500 instead of killing the
// process. It sits innermost so the request logger still sees the request.
func (global *GlobalMiddlewares) Recover() echo.MiddlewareFunc {
	return middleware.Recover()
}

func (global *GlobalMiddlewares) Secure() echo.MiddlewareFunc {
	return middleware.Secure()
}

// GlobalErrorHandler is the final error funnel: every error a handler or
// middleware returns ends up here and leaves as the HTTPError JSON shape.
//
// Classification happens in two passes:
//  1. normalise: errors that are neither HTTPError nor echo.HTTPError are
//     run through sqlerr, since they most likely come from the database;
//     an echo 404 becomes our "Route not found".
//  2. map whichever error survived into status, code and message.
//
// Anything still unknown after both passes falls through to a plain 500
// that never leaks the cause to the client.
func (global *GlobalMiddlewares) GlobalErrorHandler(err error, c echo.Context) {
	// the client may get a sanitised error, logs keep the real one
	originalErr := err

	var httpErr *errs.HTTPError
	if !errors.As(err, &httpErr) {
		var echoErr *echo.HTTPError
		if errors.As(err, &echoErr) {
			// other echo errors (405, 413 from BodyLimit, 429) keep their
			// own status and are mapped in the second pass
			if echoErr.Code == http.StatusNotFound {
				err = errs.NewNotFoundError("Route not found", false, nil)
			}
		} else {
			err = sqlerr.HandleError(err)
		}
	}

	var echoErr *echo.HTTPError
	var status int
	var code string
	var message string
	var fieldErrors []errs.FieldError
	var action *errs.Action

	switch {
	case errors.As(err, &httpErr):
		status = httpErr.Status
		code = httpErr.Code
		message = httpErr.Message
		fieldErrors = httpErr.Errors
		action = httpErr.Action

	case errors.As(err, &echoErr):
		// echo messages are usually strings but can be any value
		status = echoErr.Code
		code = errs.MakeUpperCaseWithUnderscores(http.StatusText(status))
		if msg, ok := echoErr.Message.(string); ok {
			message = msg
		} else {
			message = http.StatusText(echoErr.Code)
		}

	default:
		// fallthrough for anything sqlerr could not classify either
		status = http.StatusInternalServerError
		code = errs.MakeUpperCaseWithUnderscores(http.StatusText(http.StatusInternalServerError))
		message = http.StatusText(http.StatusInternalServerError)
	}

	logger := GetLogger(c)

	event := logger.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Error().Stack()
	}
	event.
		Err(originalErr).
		Int("status", status).
		Str("error_code", code).
		Msg(message)

	// a handler that already streamed a response cannot be overwritten
	if !c.Response().Committed {
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, errs.HTTPError{
			Code:     code,
			Message:  message,
			Status:   status,
			Override: httpErr != nil && httpErr.Override,
			Errors:   fieldErrors,
			Action:   action,
		})
	}
}
