package client

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"github.com/sellerfunnel/api/internal/config"
)

// SMTPSender implements EmailSender over plain SMTP with PLAIN auth.
type SMTPSender struct {
	addr string
	auth smtp.Auth
	from string
	name string

	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(cfg *config.EmailConfig) (*SMTPSender, error) {
	if cfg.SMTP.Host == "" || cfg.SMTP.Port == "" || cfg.From == "" {
		return nil, fmt.Errorf("smtp: %w", ErrEmailNotConfigured)
	}
	var auth smtp.Auth
	if cfg.SMTP.Username != "" {
		auth = smtp.PlainAuth("", cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.Host)
	}
	return &SMTPSender{
		addr: net.JoinHostPort(cfg.SMTP.Host, cfg.SMTP.Port),
		auth: auth,
		from: cfg.From,
		name: cfg.FromName,
		send: smtp.SendMail,
	}, nil
}

func (s *SMTPSender) Name() string { return "smtp" }

// Send ignores ctx once the SMTP exchange has started; net/smtp has no
// context support.
func (s *SMTPSender) Send(ctx context.Context, msg EmailMessage) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := s.send(s.addr, s.auth, s.from, []string{msg.To}, s.build(msg)); err != nil {
		return "", fmt.Errorf("smtp: %w", err)
	}
	return "", nil
}

func (s *SMTPSender) build(msg EmailMessage) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", formatAddress(s.name, s.from))
	fmt.Fprintf(&b, "To: %s\r\n", formatAddress(msg.ToName, msg.To))
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	body := msg.Text
	if msg.HTML != "" {
		b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
		body = msg.HTML
	} else {
		b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	}
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
