package client

import (
	"context"
	"fmt"

	"github.com/mailgun/mailgun-go/v4"

	"github.com/sellerfunnel/api/internal/config"
)

// MailgunSender implements EmailSender for Mailgun
type MailgunSender struct {
	mg   *mailgun.MailgunImpl
	from string
}

func NewMailgunSender(cfg *config.EmailConfig) (*MailgunSender, error) {
	if cfg.Mailgun.Domain == "" || cfg.Mailgun.APIKey == "" || cfg.From == "" {
		return nil, fmt.Errorf("mailgun: %w", ErrEmailNotConfigured)
	}
	mg := mailgun.NewMailgun(cfg.Mailgun.Domain, cfg.Mailgun.APIKey)
	if cfg.Mailgun.BaseURL != "" {
		mg.SetAPIBase(cfg.Mailgun.BaseURL)
	}
	return &MailgunSender{mg: mg, from: formatAddress(cfg.FromName, cfg.From)}, nil
}

func (s *MailgunSender) Name() string { return "mailgun" }

func (s *MailgunSender) Send(ctx context.Context, msg EmailMessage) (string, error) {
	message := s.mg.NewMessage(s.from, msg.Subject, msg.Text)
	if msg.HTML != "" {
		message.SetHtml(msg.HTML)
	}
	if err := message.AddRecipient(formatAddress(msg.ToName, msg.To)); err != nil {
		return "", fmt.Errorf("mailgun: add recipient: %w", err)
	}

	_, id, err := s.mg.Send(ctx, message)
	if err != nil {
		return "", fmt.Errorf("mailgun: %w", err)
	}
	return id, nil
}

func formatAddress(name, addr string) string {
	if name == "" {
		return addr
	}
	return fmt.Sprintf("%s <%s>", name, addr)
}
