package service

import (
	"context"
	"time"

	"github.com/deppfellow/nginx-log-sink/internal/config"
	"github.com/deppfellow/nginx-log-sink/internal/lib/job"
	"github.com/deppfellow/nginx-log-sink/internal/logger"
	"github.com/deppfellow/nginx-log-sink/internal/model"
	"github.com/rs/zerolog"
)

// EventNginxServerError is the New Relic custom event raised per alert.
const EventNginxServerError = "NginxServerError"

// AlertEnqueuer queues alert delivery.
type AlertEnqueuer interface {
	EnqueueServerErrorAlert(ctx context.Context, p job.ServerErrorAlertPayload) error
}

// EventRecorder records APM custom events.
type EventRecorder interface {
	RecordEvent(eventType string, params map[string]interface{})
}

// AlertService turns detected server errors into throttled alert tasks.
// With a nil throttle every detection passes; with a nil enqueuer nothing
// is queued and the detection is only logged by the caller.
type AlertService struct {
	cfg      config.AlertingConfig
	throttle AlertThrottle
	enqueuer AlertEnqueuer
	events   EventRecorder
	logger   *zerolog.Logger
}

func NewAlertService(cfg config.AlertingConfig, throttle AlertThrottle, enqueuer AlertEnqueuer, events EventRecorder, logger *zerolog.Logger) *AlertService {
	return &AlertService{
		cfg:      cfg,
		throttle: throttle,
		enqueuer: enqueuer,
		events:   events,
		logger:   logger,
	}
}

// Threshold is the lowest status that counts as a server error.
func (a *AlertService) Threshold() int {
	return a.cfg.StatusThreshold
}

// Notify raises an alert for record. Failures are logged and never
// returned: alerting must not fail ingestion.
func (a *AlertService) Notify(ctx context.Context, record *model.LogRecord) {
	if !a.cfg.Enabled || a.enqueuer == nil || record.Nginx == nil {
		return
	}

	log := logger.FromContext(ctx, a.logger)
	key := AlertKey(record.Namespace, record.Nginx.Method, record.Nginx.Path)

	occurrences := int64(1)
	if a.throttle != nil {
		allowed, n, err := a.throttle.Allow(ctx, key, a.cfg.ThrottleWindow)
		if err != nil {
			// fail open: a missing alert is worse than a duplicate
			log.Warn().Err(err).Str("alert_key", key).Msg("alert throttle unavailable")
		} else if !allowed {
			log.Debug().Str("alert_key", key).Msg("alert suppressed by throttle")
			return
		} else {
			occurrences = n
		}
	}

	payload := job.ServerErrorAlertPayload{
		Status:      record.Nginx.Status,
		Method:      record.Nginx.Method,
		Path:        record.Nginx.Path,
		Cluster:     record.Cluster,
		Namespace:   record.Namespace,
		Pod:         record.Pod,
		RemoteAddr:  record.Nginx.RemoteAddr,
		UserAgent:   record.Nginx.UserAgent,
		Source:      record.Source.String(),
		Message:     record.Message,
		DetectedAt:  record.Timestamp,
		Occurrences: occurrences,
	}
	if payload.DetectedAt.IsZero() {
		payload.DetectedAt = time.Now().UTC()
	}

	if err := a.enqueuer.EnqueueServerErrorAlert(ctx, payload); err != nil {
		log.Error().Err(err).Str("alert_key", key).Msg("failed to enqueue server error alert")
		return
	}

	if a.events != nil {
		a.events.RecordEvent(EventNginxServerError, map[string]interface{}{
			"status":      payload.Status,
			"method":      payload.Method,
			"path":        payload.Path,
			"namespace":   payload.Namespace,
			"pod":         payload.Pod,
			"occurrences": occurrences,
		})
	}
}
