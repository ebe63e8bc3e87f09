package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/deppfellow/nginx-log-sink/internal/config"
	"github.com/deppfellow/nginx-log-sink/internal/errs"
	"github.com/deppfellow/nginx-log-sink/internal/model"
	"github.com/deppfellow/nginx-log-sink/internal/server"
	"github.com/deppfellow/nginx-log-sink/internal/service"
	"github.com/deppfellow/nginx-log-sink/internal/sqlerr"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pgStore behaves like Postgres for the parts that matter here: it refuses
// NUL bytes in text and reports an outage when down is set.
type pgStore struct {
	down    bool
	records []*model.LogRecord
}

func (s *pgStore) Insert(_ context.Context, record *model.LogRecord) error {
	if s.down {
		return fmt.Errorf("insert access log: %w", sqlerr.ConvertPgError(&pgconn.PgError{Code: "08006"}))
	}
	if strings.ContainsRune(record.Message, 0) {
		return fmt.Errorf("insert access log: %w", sqlerr.ConvertPgError(&pgconn.PgError{Code: "22021"}))
	}
	s.records = append(s.records, record)
	return nil
}

func newIngestHandler(store service.RecordStore) *IngestHandler {
	logger := zerolog.Nop()
	s := &server.Server{Config: config.DefaultConfig(), Logger: &logger}
	return NewIngestHandler(s, service.NewIngestService(store, nil, &logger))
}

func receive(t *testing.T, h *IngestHandler, body string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return rec, h.Receive(echo.New().NewContext(req, rec))
}

func pushBody(t *testing.T, entry map[string]any) string {
	t.Helper()
	data, err := json.Marshal(entry)
	require.NoError(t, err)
	body, err := json.Marshal(map[string]any{
		"message": map[string]any{"data": base64.StdEncoding.EncodeToString(data), "messageId": "42"},
	})
	require.NoError(t, err)
	return string(body)
}

func TestReceive_StorageOutage(t *testing.T) {
	h := newIngestHandler(&pgStore{down: true})

	bodies := map[string]string{
		"pubsub": pushBody(t, map[string]any{"textPayload": "plain line"}),
		"direct": `{"pod":"web-0","message":"plain line"}`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			_, err := receive(t, h, body)

			var httpErr *errs.HTTPError
			require.True(t, errors.As(err, &httpErr))
			assert.Equal(t, http.StatusInternalServerError, httpErr.Status)
			assert.Equal(t, errs.CodeLogProcessing, httpErr.Code)
			assert.Equal(t, "Failed to process log", httpErr.Message)
			require.NotNil(t, httpErr.Action)
			assert.Equal(t, errs.ActionTypeRetry, httpErr.Action.Type)
		})
	}
}

func TestReceive_NulPayloadIsAcknowledged(t *testing.T) {
	store := &pgStore{}
	h := newIngestHandler(store)

	bodies := map[string]string{
		"pubsub": pushBody(t, map[string]any{"textPayload": "a\u0000b"}),
		"direct": `{"pod":"web-0","message":"a\u0000b"}`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			rec, err := receive(t, h, body)

			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}
	assert.Empty(t, store.records)
}
