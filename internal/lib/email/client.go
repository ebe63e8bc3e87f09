// Package email sends alert emails through Resend.
//
// Templates are embedded in the binary and rendered with html/template plus
// the sprig function library.
package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/deppfellow/nginx-log-sink/internal/config"
	"github.com/pkg/errors"
	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(
	template.New("emails").Funcs(sprig.FuncMap()).ParseFS(templateFS, "templates/*.html"),
)

// Sender is the subset of the Resend API the client needs.
type Sender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// Client renders templates and hands them to Resend.
type Client struct {
	sender Sender
	from   string
	logger *zerolog.Logger
}

// NewClient creates a Client backed by the Resend API.
func NewClient(cfg *config.Config, logger *zerolog.Logger) *Client {
	return NewClientWithSender(resend.NewClient(cfg.Integration.ResendAPIKey).Emails, cfg.Alerting.From, logger)
}

// NewClientWithSender lets tests swap the transport.
func NewClientWithSender(sender Sender, from string, logger *zerolog.Logger) *Client {
	return &Client{
		sender: sender,
		from:   from,
		logger: logger,
	}
}

// Render executes a named template into HTML.
func Render(templateName Template, data any) (string, error) {
	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, templateName.File(), data); err != nil {
		return "", errors.Wrapf(err, "failed to execute email template %s", templateName)
	}
	return body.String(), nil
}

// SendEmail renders templateName with data and sends it to every recipient.
func (c *Client) SendEmail(ctx context.Context, to []string, subject string, templateName Template, data any) error {
	if len(to) == 0 {
		return fmt.Errorf("no recipients for %s email", templateName)
	}

	html, err := Render(templateName, data)
	if err != nil {
		return err
	}

	resp, err := c.sender.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    c.from,
		To:      to,
		Subject: subject,
		Html:    html,
	})
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	c.logger.Debug().
		Str("template", string(templateName)).
		Str("email_id", resp.Id).
		Int("recipients", len(to)).
		Msg("email sent")

	return nil
}
