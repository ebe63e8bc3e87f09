package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/deppfellow/nginx-log-sink/internal/config"
	"github.com/deppfellow/nginx-log-sink/internal/lib/job"
	"github.com/deppfellow/nginx-log-sink/internal/model"
	"github.com/deppfellow/nginx-log-sink/internal/sqlerr"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	records []*model.LogRecord
	err     error
}

func (f *fakeStore) Insert(_ context.Context, record *model.LogRecord) error {
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, record)
	return nil
}

type fakeEnqueuer struct {
	payloads []job.ServerErrorAlertPayload
	err      error
}

func (f *fakeEnqueuer) EnqueueServerErrorAlert(_ context.Context, p job.ServerErrorAlertPayload) error {
	if f.err != nil {
		return f.err
	}
	f.payloads = append(f.payloads, p)
	return nil
}

type fakeThrottle struct {
	seen map[string]int64
	err  error
}

func (f *fakeThrottle) Allow(_ context.Context, key string, _ time.Duration) (bool, int64, error) {
	if f.err != nil {
		return false, 0, f.err
	}
	if f.seen == nil {
		f.seen = map[string]int64{}
	}
	f.seen[key]++
	return f.seen[key] == 1, 1, nil
}

type fakeEvents struct {
	events []string
}

func (f *fakeEvents) RecordEvent(eventType string, _ map[string]interface{}) {
	f.events = append(f.events, eventType)
}

func testAlerting() config.AlertingConfig {
	return config.DefaultConfig().Alerting
}

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func recordWithStatus(status int) *model.LogRecord {
	return &model.LogRecord{
		Source:    model.SourceDirect,
		Namespace: "shop",
		Timestamp: testNow,
		Nginx:     &model.AccessLog{Status: status, Method: "GET", Path: "/api/cart?id=1"},
	}
}

func TestIngestService_StoresRecord(t *testing.T) {
	store := &fakeStore{}
	svc := NewIngestService(store, nil, nopLogger())

	require.NoError(t, svc.Process(context.Background(), recordWithStatus(200)))
	assert.Len(t, store.records, 1)
}

func TestIngestService_WithoutStore(t *testing.T) {
	svc := NewIngestService(nil, nil, nopLogger())
	require.NoError(t, svc.Process(context.Background(), &model.LogRecord{Source: model.SourceDirect}))
}

func TestIngestService_StoreFailure(t *testing.T) {
	svc := NewIngestService(&fakeStore{err: errors.New("db down")}, nil, nopLogger())
	assert.Error(t, svc.Process(context.Background(), recordWithStatus(200)))
}

func TestIngestService_DropsRecordsRejectedForContent(t *testing.T) {
	rejected := fmt.Errorf("insert access log: %w",
		sqlerr.ConvertPgError(&pgconn.PgError{Code: "22021", Message: "invalid byte sequence for encoding \"UTF8\": 0x00"}))
	svc := NewIngestService(&fakeStore{err: rejected}, nil, nopLogger())

	assert.NoError(t, svc.Process(context.Background(), recordWithStatus(200)))
}

func TestIngestService_ConnectionFailureIsRetried(t *testing.T) {
	down := fmt.Errorf("insert access log: %w", sqlerr.ConvertPgError(&pgconn.PgError{Code: "08006"}))
	svc := NewIngestService(&fakeStore{err: down}, nil, nopLogger())

	assert.Error(t, svc.Process(context.Background(), recordWithStatus(200)))
}

func TestIngestService_AlertsOnServerError(t *testing.T) {
	enqueuer := &fakeEnqueuer{}
	events := &fakeEvents{}
	alerts := NewAlertService(testAlerting(), &fakeThrottle{}, enqueuer, events, nopLogger())
	svc := NewIngestService(&fakeStore{}, alerts, nopLogger())

	require.NoError(t, svc.Process(context.Background(), recordWithStatus(404)))
	assert.Empty(t, enqueuer.payloads)

	require.NoError(t, svc.Process(context.Background(), recordWithStatus(502)))
	require.Len(t, enqueuer.payloads, 1)
	assert.Equal(t, 502, enqueuer.payloads[0].Status)
	assert.Equal(t, "shop", enqueuer.payloads[0].Namespace)
	assert.Equal(t, "direct", enqueuer.payloads[0].Source)
	assert.Equal(t, []string{EventNginxServerError}, events.events)

	// same endpoint within the window is throttled
	require.NoError(t, svc.Process(context.Background(), recordWithStatus(503)))
	assert.Len(t, enqueuer.payloads, 1)
}

func TestIngestService_CustomThreshold(t *testing.T) {
	cfg := testAlerting()
	cfg.StatusThreshold = 404
	enqueuer := &fakeEnqueuer{}
	svc := NewIngestService(nil, NewAlertService(cfg, nil, enqueuer, nil, nopLogger()), nopLogger())

	require.NoError(t, svc.Process(context.Background(), recordWithStatus(404)))
	assert.Len(t, enqueuer.payloads, 1)
}

func TestAlertService_Notify(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		cfg := testAlerting()
		cfg.Enabled = false
		enqueuer := &fakeEnqueuer{}
		NewAlertService(cfg, nil, enqueuer, nil, nopLogger()).Notify(context.Background(), recordWithStatus(500))
		assert.Empty(t, enqueuer.payloads)
	})

	t.Run("no enqueuer", func(t *testing.T) {
		a := NewAlertService(testAlerting(), &fakeThrottle{}, nil, nil, nopLogger())
		assert.NotPanics(t, func() { a.Notify(context.Background(), recordWithStatus(500)) })
	})

	t.Run("throttle failure fails open", func(t *testing.T) {
		enqueuer := &fakeEnqueuer{}
		a := NewAlertService(testAlerting(), &fakeThrottle{err: errors.New("redis down")}, enqueuer, nil, nopLogger())
		a.Notify(context.Background(), recordWithStatus(500))
		assert.Len(t, enqueuer.payloads, 1)
	})

	t.Run("enqueue failure is swallowed", func(t *testing.T) {
		events := &fakeEvents{}
		a := NewAlertService(testAlerting(), nil, &fakeEnqueuer{err: errors.New("boom")}, events, nopLogger())
		a.Notify(context.Background(), recordWithStatus(500))
		assert.Empty(t, events.events)
	})
}

func TestAlertKey(t *testing.T) {
	assert.Equal(t, "shop:GET:/api/cart", AlertKey("shop", "GET", "/api/cart?id=1"))
	assert.Equal(t, "-:POST:/", AlertKey("", "POST", "/"))
}
