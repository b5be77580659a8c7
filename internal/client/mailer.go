package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/sellerfunnel/api/internal/config"
)

// EmailMessage is one outgoing email to a single recipient.
type EmailMessage struct {
	To      string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

// EmailSender delivers email through a provider and returns the provider's
// message id when it reports one.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) (string, error)
	Name() string
}

var ErrEmailNotConfigured = errors.New("email provider configuration incomplete")

// NewEmailSender returns the sender selected by cfg.Provider. An empty
// provider yields a LogSender so local runs never reach a real inbox.
func NewEmailSender(cfg *config.EmailConfig) (EmailSender, error) {
	switch cfg.Provider {
	case "mailgun":
		return NewMailgunSender(cfg)
	case "sendgrid":
		return NewSendGridSender(cfg)
	case "smtp":
		return NewSMTPSender(cfg)
	case "", "log":
		log.Warn().Str("component", "email").Msg("No email provider configured, emails will only be logged")
		return LogSender{}, nil
	}
	return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
}

// LogSender logs messages instead of delivering them.
type LogSender struct{}

func (LogSender) Name() string { return "log" }

func (LogSender) Send(_ context.Context, msg EmailMessage) (string, error) {
	log.Info().
		Str("component", "email").
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Msg("Email not sent, no provider configured")
	return "", nil
}
