package job

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/deppfellow/nginx-log-sink/internal/lib/email"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	to     []string
	alerts []email.ServerErrorAlert
	err    error
}

func (f *fakeSender) SendServerErrorAlert(_ context.Context, to []string, alert email.ServerErrorAlert) error {
	if f.err != nil {
		return f.err
	}
	f.to = to
	f.alerts = append(f.alerts, alert)
	return nil
}

func newTestJobService(sender AlertSender, recipients []string) *JobService {
	logger := zerolog.Nop()
	return &JobService{sender: sender, recipients: recipients, logger: &logger}
}

func samplePayload() ServerErrorAlertPayload {
	return ServerErrorAlertPayload{
		Status:      503,
		Method:      "POST",
		Path:        "/checkout",
		Namespace:   "shop",
		Pod:         "web-1",
		Source:      "direct",
		Message:     "upstream timed out",
		DetectedAt:  time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Occurrences: 1,
	}
}

func TestNewServerErrorAlertTask(t *testing.T) {
	task, err := NewServerErrorAlertTask(samplePayload())
	require.NoError(t, err)

	assert.Equal(t, TaskServerErrorAlert, task.Type())

	var decoded ServerErrorAlertPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &decoded))
	assert.Equal(t, samplePayload(), decoded)
}

func TestHandleServerErrorAlertTask(t *testing.T) {
	task, err := NewServerErrorAlertTask(samplePayload())
	require.NoError(t, err)

	t.Run("sends to recipients", func(t *testing.T) {
		sender := &fakeSender{}
		j := newTestJobService(sender, []string{"ops@example.com"})

		require.NoError(t, j.handleServerErrorAlertTask(context.Background(), task))
		require.Len(t, sender.alerts, 1)
		assert.Equal(t, []string{"ops@example.com"}, sender.to)
		assert.Equal(t, 503, sender.alerts[0].Status)
		assert.Equal(t, "/checkout", sender.alerts[0].Path)
	})

	t.Run("no recipients is a no-op", func(t *testing.T) {
		sender := &fakeSender{}
		j := newTestJobService(sender, nil)

		require.NoError(t, j.handleServerErrorAlertTask(context.Background(), task))
		assert.Empty(t, sender.alerts)
	})

	t.Run("send failure is retried", func(t *testing.T) {
		j := newTestJobService(&fakeSender{err: errors.New("boom")}, []string{"ops@example.com"})

		err := j.handleServerErrorAlertTask(context.Background(), task)
		require.Error(t, err)
		assert.False(t, errors.Is(err, asynq.SkipRetry))
	})

	t.Run("malformed payload skips retry", func(t *testing.T) {
		j := newTestJobService(&fakeSender{}, []string{"ops@example.com"})

		err := j.handleServerErrorAlertTask(context.Background(), asynq.NewTask(TaskServerErrorAlert, []byte("{")))
		require.Error(t, err)
		assert.True(t, errors.Is(err, asynq.SkipRetry))
	})
}
