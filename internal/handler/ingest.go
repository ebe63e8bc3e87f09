package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/deppfellow/nginx-log-sink/internal/errs"
	"github.com/deppfellow/nginx-log-sink/internal/middleware"
	"github.com/deppfellow/nginx-log-sink/internal/model"
	"github.com/deppfellow/nginx-log-sink/internal/server"
	"github.com/deppfellow/nginx-log-sink/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/tidwall/gjson"
)

// IngestResponse acknowledges a processed log.
type IngestResponse struct {
	Status string       `json:"status"`
	Source model.Source `json:"source"`
}

// IngestHandler receives nginx logs from Pub/Sub push subscriptions and
// from sidecars.
type IngestHandler struct {
	Handler
	ingest *service.IngestService
	now    func() time.Time
}

func NewIngestHandler(s *server.Server, ingest *service.IngestService) *IngestHandler {
	return &IngestHandler{
		Handler: NewHandler(s),
		ingest:  ingest,
		now:     time.Now,
	}
}

// Receive classifies the body by the type of its "message" field: an object
// is a Pub/Sub push envelope, a string is a direct sidecar log.
func (h *IngestHandler) Receive(c echo.Context) error {
	logger := middleware.GetLogger(c)
	logger.Info().Str("remote_addr", c.RealIP()).Msg("received request")

	if !strings.Contains(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		return errs.NewBadRequestError("Unsupported Content-Type", true, errs.Code(errs.CodeUnsupportedContentType), nil, nil)
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		// BodyLimit surfaces here as a 413
		return err
	}

	if !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsObject() {
		logger.Warn().Int("body_bytes", len(body)).Msg("unrecognized JSON format")
		return unrecognizedFormat()
	}

	message := gjson.GetBytes(body, "message")
	switch {
	case message.IsObject():
		return h.receivePubSub(c, body)
	case message.Type == gjson.String:
		return h.receiveDirect(c, body)
	default:
		logger.Warn().Str("body", truncate(string(body), 512)).Msg("unrecognized JSON format")
		return unrecognizedFormat()
	}
}

func (h *IngestHandler) receivePubSub(c echo.Context, body []byte) error {
	logger := middleware.GetLogger(c)
	tagTransaction(c, model.SourcePubSub)

	var push model.PushRequest
	if err := json.Unmarshal(body, &push); err != nil || !push.Message.HasData() {
		logger.Warn().Msg("Pub/Sub message missing data field")
		return errs.NewBadRequestError("Invalid Pub/Sub message", true, errs.Code(errs.CodeInvalidPubSubMessage), nil, nil)
	}

	entry, err := push.Message.Decode()
	if err != nil {
		logger.Error().Err(err).Str("message_id", push.Message.MessageID).Msg("failed to decode Pub/Sub message")
		return errs.NewProcessingError(errs.CodePubSubProcessing, "Failed to process Pub/Sub message")
	}

	record, err := service.BuildPubSubRecord(entry, h.now())
	if err != nil {
		logger.Error().Err(err).Str("message_id", push.Message.MessageID).Msg("failed to decode Pub/Sub message")
		return errs.NewProcessingError(errs.CodePubSubProcessing, "Failed to process Pub/Sub message")
	}

	// decoding succeeded; what failed is storage, same as the direct path
	if err := h.ingest.Process(c.Request().Context(), record); err != nil {
		return errs.NewProcessingError(errs.CodeLogProcessing, "Failed to process log")
	}

	return c.JSON(http.StatusOK, IngestResponse{Status: "processed", Source: model.SourcePubSub})
}

func (h *IngestHandler) receiveDirect(c echo.Context, body []byte) error {
	tagTransaction(c, model.SourceDirect)

	var direct model.DirectLog
	if err := json.Unmarshal(body, &direct); err != nil {
		// pod or namespace with a non-string type
		middleware.GetLogger(c).Warn().Err(err).Msg("unrecognized JSON format")
		return unrecognizedFormat()
	}

	record := service.BuildDirectRecord(body, direct, h.now())

	if err := h.ingest.Process(c.Request().Context(), record); err != nil {
		return errs.NewProcessingError(errs.CodeLogProcessing, "Failed to process log")
	}

	return c.JSON(http.StatusOK, IngestResponse{Status: "processed", Source: model.SourceDirect})
}

func unrecognizedFormat() error {
	return errs.NewBadRequestError("Unrecognized JSON format", true, errs.Code(errs.CodeUnrecognizedFormat), nil, nil)
}

func tagTransaction(c echo.Context, source model.Source) {
	if txn := newrelic.FromContext(c.Request().Context()); txn != nil {
		txn.AddAttribute("ingest.source", source.String())
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
