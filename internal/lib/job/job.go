// Package job provides background job processing using Asynq.
//
// Asynq is a Redis-backed job queue:
//   - The ingest path enqueues tasks (producer) using asynq.Client.
//   - A server runs workers that process those tasks (consumer) using asynq.Server.
package job

import (
	"context"
	"fmt"

	"github.com/deppfellow/nginx-log-sink/internal/config"
	"github.com/deppfellow/nginx-log-sink/internal/lib/email"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

// AlertSender delivers a rendered server error alert.
type AlertSender interface {
	SendServerErrorAlert(ctx context.Context, to []string, alert email.ServerErrorAlert) error
}

// JobService holds the Asynq client (enqueue) and server (worker execution).
type JobService struct {
	// Client is used to enqueue tasks into Redis.
	Client *asynq.Client

	server     *asynq.Server
	sender     AlertSender
	recipients []string
	logger     *zerolog.Logger
}

// NewJobService creates a JobService configured to use Redis from cfg.
//
// Queue weights give "critical" tasks (alerts) the larger worker share:
// out of 10 workers roughly 6 serve critical, 3 default and 1 low.
func NewJobService(logger *zerolog.Logger, cfg *config.Config) *JobService {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	client := asynq.NewClient(redisOpt)

	j := &JobService{
		Client:     client,
		sender:     email.NewClient(cfg, logger),
		recipients: cfg.Alerting.Recipients,
		logger:     logger,
	}

	j.server = asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				QueueCritical: 6,
				QueueDefault:  3,
				QueueLow:      1,
			},
			Logger:       newAsynqLogger(logger),
			ErrorHandler: asynq.ErrorHandlerFunc(j.handleTaskError),
		},
	)

	return j
}

// Start registers task handlers and starts the worker server in the
// background.
func (j *JobService) Start() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskServerErrorAlert, j.handleServerErrorAlertTask)

	j.logger.Info().Msg("Starting background job server")

	if err := j.server.Start(mux); err != nil {
		return fmt.Errorf("failed to start job server: %w", err)
	}

	return nil
}

// Stop waits for in-flight tasks, then closes the enqueue client.
func (j *JobService) Stop() {
	j.logger.Info().Msg("Stopping background job server")
	j.server.Shutdown()
	if err := j.Client.Close(); err != nil {
		j.logger.Error().Err(err).Msg("failed to close job client")
	}
}

func (j *JobService) handleTaskError(ctx context.Context, task *asynq.Task, err error) {
	retried, _ := asynq.GetRetryCount(ctx)
	j.logger.Error().
		Err(err).
		Str("task_type", task.Type()).
		Int("retried", retried).
		Msg("background task failed")
}
