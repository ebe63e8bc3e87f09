package handler

import (
	"time"

	"github.com/deppfellow/nginx-log-sink/internal/middleware"
	"github.com/deppfellow/nginx-log-sink/internal/server"
	"github.com/deppfellow/nginx-log-sink/internal/validation"
	"github.com/labstack/echo/v4"
	"github.com/newrelic/go-agent/v3/integrations/nrpkgerrors"
	"github.com/newrelic/go-agent/v3/newrelic"
)

// Handler is the base type concrete handlers embed for access to the server.
type Handler struct {
	server *server.Server
}

func NewHandler(s *server.Server) Handler {
	return Handler{server: s}
}

// HandlerFunc is a typed endpoint: it receives a bound, validated request
// and returns a response or an error. Req is normally a pointer type.
type HandlerFunc[Req validation.Validatable, Res any] func(c echo.Context, req Req) (Res, error)

// Handle wraps a typed endpoint with binding, validation, logging, timing
// and New Relic attributes, then writes the result as JSON with status.
//
//	g.GET("/access-logs", handler.Handle(h.Handler, h.List, http.StatusOK, &model.AccessLogQuery{}))
//
// newReq is called per request so concurrent requests never share a value.
func Handle[Req validation.Validatable, Res any](
	h Handler,
	handler HandlerFunc[Req, Res],
	status int,
	newReq func() Req,
) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		req := newReq()

		// tag the New Relic transaction nrecho started so traces group by
		// route pattern (/access-logs/:id), not by concrete URL
		txn := newrelic.FromContext(c.Request().Context())
		if txn != nil {
			txn.AddAttribute("handler.name", c.Path())
		}

		// child of the request logger: request_id and trace ids carry over
		logger := middleware.GetLogger(c).With().
			Str("operation", "handler").
			Str("route", c.Path()).
			Logger()

		logger.Debug().Msg("handling request")

		// Step 1: bind path/query/body into req and run its Validate.
		// BindAndValidate already returns a 400 HTTPError with per-field
		// errors, so it is passed up untouched.
		validationStart := time.Now()
		if err := validation.BindAndValidate(c, req); err != nil {
			validationDuration := time.Since(validationStart)

			logger.Warn().
				Err(err).
				Dur("validation_duration", validationDuration).
				Msg("request validation failed")

			if txn != nil {
				txn.NoticeError(nrpkgerrors.Wrap(err))
				txn.AddAttribute("validation.status", "failed")
				txn.AddAttribute("validation.duration_ms", validationDuration.Milliseconds())
			}
			return err
		}

		validationDuration := time.Since(validationStart)
		if txn != nil {
			txn.AddAttribute("validation.status", "success")
			txn.AddAttribute("validation.duration_ms", validationDuration.Milliseconds())
		}

		// Step 2: run the endpoint. Its error goes to GlobalErrorHandler,
		// which picks the status; logging it here adds the timings.
		handlerStart := time.Now()
		result, err := handler(c, req)
		handlerDuration := time.Since(handlerStart)

		if err != nil {
			logger.Error().
				Err(err).
				Dur("handler_duration", handlerDuration).
				Dur("total_duration", time.Since(start)).
				Msg("handler execution failed")

			if txn != nil {
				txn.NoticeError(nrpkgerrors.Wrap(err))
				txn.AddAttribute("handler.status", "error")
				txn.AddAttribute("handler.duration_ms", handlerDuration.Milliseconds())
			}
			return err
		}

		if txn != nil {
			txn.AddAttribute("handler.status", "success")
			txn.AddAttribute("handler.duration_ms", handlerDuration.Milliseconds())
			txn.AddAttribute("total.duration_ms", time.Since(start).Milliseconds())
		}

		logger.Debug().
			Dur("handler_duration", handlerDuration).
			Dur("validation_duration", validationDuration).
			Dur("total_duration", time.Since(start)).
			Msg("request completed successfully")

		// Step 3: success. A nil pointer result encodes as JSON null.
		return c.JSON(status, result)
	}
}
