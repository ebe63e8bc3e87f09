package service

import (
	"github.com/deppfellow/nginx-log-sink/internal/lib/job"
	"github.com/deppfellow/nginx-log-sink/internal/repository"
	"github.com/deppfellow/nginx-log-sink/internal/server"
)

// Services holds every service. Auth and AccessLogs are nil unless both a
// database and Clerk are configured.
type Services struct {
	Ingest     *IngestService
	Alerts     *AlertService
	AccessLogs *AccessLogService
	Auth       *AuthService
	Job        *job.JobService
}

func NewService(s *server.Server, repos *repository.Repositories) (*Services, error) {
	var (
		throttle AlertThrottle
		enqueuer AlertEnqueuer
	)
	if s.Redis != nil {
		throttle = NewRedisThrottle(s.Redis)
	}
	if s.Job != nil {
		enqueuer = s.Job
	}

	alerts := NewAlertService(s.Config.Alerting, throttle, enqueuer, s.LoggerService, s.Logger)

	var store RecordStore
	if repos.AccessLogs != nil {
		store = repos.AccessLogs
	}

	services := &Services{
		Ingest: NewIngestService(store, alerts, s.Logger),
		Alerts: alerts,
		Job:    s.Job,
	}

	if repos.AccessLogs != nil && s.Config.Auth != nil {
		services.Auth = NewAuthService(s)
		services.AccessLogs = NewAccessLogService(repos.AccessLogs)
	}

	return services, nil
}
