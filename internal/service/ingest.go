package service

import (
	"context"
	"net/http"

	"github.com/deppfellow/nginx-log-sink/internal/logger"
	"github.com/deppfellow/nginx-log-sink/internal/model"
	"github.com/deppfellow/nginx-log-sink/internal/sqlerr"
	"github.com/rs/zerolog"
)

// RecordStore persists normalised records.
type RecordStore interface {
	Insert(ctx context.Context, record *model.LogRecord) error
}

// IngestService runs a built record through logging, alerting and storage.
type IngestService struct {
	store  RecordStore
	alerts *AlertService
	logger *zerolog.Logger
}

// NewIngestService wires the pipeline. store may be nil, in which case
// records are only logged.
func NewIngestService(store RecordStore, alerts *AlertService, logger *zerolog.Logger) *IngestService {
	return &IngestService{
		store:  store,
		alerts: alerts,
		logger: logger,
	}
}

// Process logs the record, flags server errors and stores it. Only a
// storage failure a redelivery could fix is returned; records the database
// rejects for their content are logged and dropped.
func (s *IngestService) Process(ctx context.Context, record *model.LogRecord) error {
	log := logger.FromContext(ctx, s.logger)

	log.Info().
		Str("record_id", record.ID.String()).
		Str("source", record.Source.String()).
		Str("cluster", record.Cluster).
		Str("namespace", record.Namespace).
		Str("pod", record.Pod).
		Str("container", record.Container).
		Interface("parsed_nginx", record.Nginx).
		Msg("processed nginx log")

	if record.Nginx.IsServerError(s.threshold()) {
		log.Error().
			Str("record_id", record.ID.String()).
			Int("status", record.Nginx.Status).
			Str("http_method", record.Nginx.Method).
			Str("http_path", record.Nginx.Path).
			Str("namespace", record.Namespace).
			Str("pod", record.Pod).
			Str("nginx_line", record.Message).
			Msg("detected server error")

		if s.alerts != nil {
			s.alerts.Notify(ctx, record)
		}
	}

	if s.store == nil {
		return nil
	}

	if err := s.store.Insert(ctx, record); err != nil {
		if sqlerr.IsDataError(err) {
			log.Error().
				Err(err).
				Str("record_id", record.ID.String()).
				Str("sql_code", string(sqlerr.ErrCode(err))).
				Msg("storage rejected record, dropping")
			return nil
		}
		log.Error().Err(err).Str("record_id", record.ID.String()).Msg("failed to store record")
		return err
	}

	return nil
}

func (s *IngestService) threshold() int {
	if s.alerts == nil || s.alerts.Threshold() <= 0 {
		return http.StatusInternalServerError
	}
	return s.alerts.Threshold()
}
