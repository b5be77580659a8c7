package client

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellerfunnel/api/internal/config"
)

func TestNewEmailSender_SelectsProvider(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.EmailConfig
		want string
	}{
		{name: "empty provider logs", cfg: config.EmailConfig{}, want: "log"},
		{name: "mailgun", want: "mailgun", cfg: config.EmailConfig{
			Provider: "mailgun", From: "team@example.com",
			Mailgun: config.MailgunConfig{Domain: "mg.example.com", APIKey: "key"},
		}},
		{name: "sendgrid", want: "sendgrid", cfg: config.EmailConfig{
			Provider: "sendgrid", From: "team@example.com",
			SendGrid: config.SendGridConfig{APIKey: "key"},
		}},
		{name: "smtp", want: "smtp", cfg: config.EmailConfig{
			Provider: "smtp", From: "team@example.com",
			SMTP: config.SMTPConfig{Host: "localhost", Port: "1025"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewEmailSender(&tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.Name())
		})
	}
}

func TestNewEmailSender_IncompleteConfig(t *testing.T) {
	for _, provider := range []string{"mailgun", "sendgrid", "smtp"} {
		_, err := NewEmailSender(&config.EmailConfig{Provider: provider})
		assert.ErrorIs(t, err, ErrEmailNotConfigured, provider)
	}

	_, err := NewEmailSender(&config.EmailConfig{Provider: "pigeon"})
	assert.Error(t, err)
}

func TestSMTPSender_Send(t *testing.T) {
	s, err := NewSMTPSender(&config.EmailConfig{
		From:     "team@example.com",
		FromName: "Seller Funnel",
		SMTP:     config.SMTPConfig{Host: "mail.example.com", Port: "587", Username: "u", Password: "p"},
	})
	require.NoError(t, err)

	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
	)
	s.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		return nil
	}

	_, err = s.Send(context.Background(), EmailMessage{
		To: "ada@example.com", ToName: "Ada Lovelace", Subject: "Hello", HTML: "<p>Hi Ada</p>",
	})
	require.NoError(t, err)

	assert.Equal(t, "mail.example.com:587", gotAddr)
	assert.Equal(t, []string{"ada@example.com"}, gotTo)
	assert.Contains(t, gotMsg, "From: Seller Funnel <team@example.com>\r\n")
	assert.Contains(t, gotMsg, "To: Ada Lovelace <ada@example.com>\r\n")
	assert.Contains(t, gotMsg, "Content-Type: text/html")
	assert.Contains(t, gotMsg, "<p>Hi Ada</p>")

	s.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("connection refused") }
	_, err = s.Send(context.Background(), EmailMessage{To: "ada@example.com"})
	assert.ErrorContains(t, err, "connection refused")
}

func TestArchiveKey(t *testing.T) {
	assert.Equal(t, "imports/job-1/leads.xlsx", ArchiveKey("job-1", "../../leads.xlsx"))
}
