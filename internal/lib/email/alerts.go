package email

import (
	"context"
	"fmt"
	"time"
)

// ServerErrorAlert is the data the server_error template renders.
type ServerErrorAlert struct {
	Status      int
	Method      string
	Path        string
	Cluster     string
	Namespace   string
	Pod         string
	RemoteAddr  string
	UserAgent   string
	Source      string
	Message     string
	DetectedAt  time.Time
	Occurrences int64
}

// Subject is the alert email subject line.
func (a ServerErrorAlert) Subject() string {
	target := a.Namespace
	if a.Pod != "" {
		target = a.Namespace + "/" + a.Pod
	}
	if target == "" {
		target = "unknown workload"
	}
	return fmt.Sprintf("[nginx %d] %s %s on %s", a.Status, a.Method, a.Path, target)
}

// SendServerErrorAlert emails an nginx 5xx alert.
func (c *Client) SendServerErrorAlert(ctx context.Context, to []string, alert ServerErrorAlert) error {
	return c.SendEmail(ctx, to, alert.Subject(), TemplateServerError, alert)
}
