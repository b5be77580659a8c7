package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/sellerfunnel/api/internal/config"
)

// SendGridSender implements EmailSender for SendGrid
type SendGridSender struct {
	client   *sendgrid.Client
	from     string
	fromName string
}

func NewSendGridSender(cfg *config.EmailConfig) (*SendGridSender, error) {
	if cfg.SendGrid.APIKey == "" || cfg.From == "" {
		return nil, fmt.Errorf("sendgrid: %w", ErrEmailNotConfigured)
	}
	return &SendGridSender{
		client:   sendgrid.NewSendClient(cfg.SendGrid.APIKey),
		from:     cfg.From,
		fromName: cfg.FromName,
	}, nil
}

func (s *SendGridSender) Name() string { return "sendgrid" }

func (s *SendGridSender) Send(ctx context.Context, msg EmailMessage) (string, error) {
	from := mail.NewEmail(s.fromName, s.from)
	to := mail.NewEmail(msg.ToName, msg.To)
	message := mail.NewSingleEmail(from, msg.Subject, to, msg.Text, msg.HTML)

	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return "", fmt.Errorf("sendgrid: %w", err)
	}
	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("sendgrid: status %d: %s", resp.StatusCode, resp.Body)
	}
	if ids := resp.Headers["X-Message-Id"]; len(ids) > 0 {
		return ids[0], nil
	}
	return "", nil
}
