package job

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/deppfellow/nginx-log-sink/internal/lib/email"
	"github.com/hibiken/asynq"
)

// TaskServerErrorAlert is the task type for nginx 5xx alert emails.
const TaskServerErrorAlert = "alert:server_error"

// ServerErrorAlertPayload is the JSON stored in Redis for an alert task.
type ServerErrorAlertPayload struct {
	Status      int       `json:"status"`
	Method      string    `json:"method"`
	Path        string    `json:"path"`
	Cluster     string    `json:"cluster,omitempty"`
	Namespace   string    `json:"namespace,omitempty"`
	Pod         string    `json:"pod,omitempty"`
	RemoteAddr  string    `json:"remote_addr,omitempty"`
	UserAgent   string    `json:"user_agent,omitempty"`
	Source      string    `json:"source"`
	Message     string    `json:"message"`
	DetectedAt  time.Time `json:"detected_at"`
	Occurrences int64     `json:"occurrences"`
}

func (p ServerErrorAlertPayload) alert() email.ServerErrorAlert {
	return email.ServerErrorAlert{
		Status:      p.Status,
		Method:      p.Method,
		Path:        p.Path,
		Cluster:     p.Cluster,
		Namespace:   p.Namespace,
		Pod:         p.Pod,
		RemoteAddr:  p.RemoteAddr,
		UserAgent:   p.UserAgent,
		Source:      p.Source,
		Message:     p.Message,
		DetectedAt:  p.DetectedAt,
		Occurrences: p.Occurrences,
	}
}

// NewServerErrorAlertTask builds an alert task on the critical queue.
// It is retried up to 3 times and killed after 30 seconds.
func NewServerErrorAlertTask(p ServerErrorAlertPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskServerErrorAlert,
		payload,
		asynq.MaxRetry(3),
		asynq.Queue(QueueCritical),
		asynq.Timeout(30*time.Second),
	), nil
}

// EnqueueServerErrorAlert pushes an alert task into Redis.
func (j *JobService) EnqueueServerErrorAlert(ctx context.Context, p ServerErrorAlertPayload) error {
	task, err := NewServerErrorAlertTask(p)
	if err != nil {
		return fmt.Errorf("failed to build alert task: %w", err)
	}

	info, err := j.Client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to enqueue alert task: %w", err)
	}

	j.logger.Debug().
		Str("task_id", info.ID).
		Str("queue", info.Queue).
		Msg("alert task enqueued")

	return nil
}

func (j *JobService) handleServerErrorAlertTask(ctx context.Context, t *asynq.Task) error {
	var p ServerErrorAlertPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		// a malformed payload will never succeed
		return fmt.Errorf("failed to unmarshal alert payload: %v: %w", err, asynq.SkipRetry)
	}

	log := j.logger.With().
		Str("type", TaskServerErrorAlert).
		Int("status", p.Status).
		Str("path", p.Path).
		Str("namespace", p.Namespace).
		Logger()

	if len(j.recipients) == 0 {
		log.Warn().Msg("no alert recipients configured, dropping alert")
		return nil
	}

	log.Info().Msg("Processing server error alert")

	if err := j.sender.SendServerErrorAlert(ctx, j.recipients, p.alert()); err != nil {
		log.Error().Err(err).Msg("Failed to send server error alert")
		return err
	}

	log.Info().Int("recipients", len(j.recipients)).Msg("Successfully sent server error alert")
	return nil
}
