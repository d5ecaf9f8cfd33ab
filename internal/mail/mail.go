// Package mail is the outbound email boundary. The auth flows only need a
// send capability; delivery failures are the caller's concern to log and
// swallow.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
	"time"

	"github.com/my-app/apiserver/config"
)

const sendTimeout = 10 * time.Second

// Mailer sends email to a single recipient.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPMailer delivers mail through a plain SMTP relay.
type SMTPMailer struct {
	addr string
	auth smtp.Auth
	from string
}

// NewSMTPMailer constructs an SMTPMailer from config.
func NewSMTPMailer(cfg config.SMTPConfig) (*SMTPMailer, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, fmt.Errorf("smtp host is required")
	}

	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	return &SMTPMailer{
		addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		auth: auth,
		from: cfg.From,
	}, nil
}

// Send delivers a plain-text message. The context bounds only this
// delivery attempt.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	msg := buildMessage(m.from, to, subject, body)

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(m.addr, m.auth, m.from, []string{to}, msg)
	}()

	timer := time.NewTimer(sendTimeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("smtp: delivery timeout")
	}
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

// LogMailer logs messages instead of delivering them. Used when no SMTP
// relay is configured (local development).
type LogMailer struct {
	log *slog.Logger
}

func NewLogMailer(log *slog.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(ctx context.Context, to, subject, body string) error {
	m.log.InfoContext(ctx, "mail not configured, dropping message", "to", to, "subject", subject)
	return nil
}
