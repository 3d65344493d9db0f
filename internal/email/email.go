// Package email delivers transactional mail: OTP codes, password-reset
// links, and course-brochure follow-ups.
//
// Delivery failures never corrupt stored state — the auth service rolls back
// any pending secret it wrote before surfacing the failure.
package email

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wneessen/go-mail"
)

// Message is a single outbound email.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string // optional; Text is the fallback body
}

// Notifier sends transactional email. The SMTP sender implements it;
// tests substitute a fake.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// Config holds SMTP settings.
type Config struct {
	Host        string
	Port        int
	Username    string
	Password    string
	FromName    string
	FromAddress string
}

// SMTPSender delivers mail over SMTP with STARTTLS.
type SMTPSender struct {
	cfg Config
}

// NewSMTPSender creates an SMTPSender. Host is required; everything else
// has workable defaults for a local relay.
func NewSMTPSender(cfg Config) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("email: SMTP host is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.FromAddress == "" {
		cfg.FromAddress = "noreply@riskinn.com"
	}
	return &SMTPSender{cfg: cfg}, nil
}

// Send delivers one message. The client is created per send — SMTP
// connections are short-lived and the volume here is a handful of mails a
// minute at most.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m := mail.NewMsg()
	if err := m.FromFormat(s.cfg.FromName, s.cfg.FromAddress); err != nil {
		return fmt.Errorf("email: setting sender: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return fmt.Errorf("email: setting recipient: %w", err)
	}
	m.Subject(msg.Subject)
	if msg.HTML != "" {
		m.SetBodyString(mail.TypeTextHTML, msg.HTML)
		if msg.Text != "" {
			m.AddAlternativeString(mail.TypeTextPlain, msg.Text)
		}
	} else {
		m.SetBodyString(mail.TypeTextPlain, msg.Text)
	}

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}

	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("email: creating SMTP client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("email: sending to %s: %w", msg.To, err)
	}
	return nil
}

// LogSender is the Notifier used when no SMTP host is configured: it logs
// the message instead of delivering it. Meant for local development, where
// reading the OTP out of the server log beats running a mail relay.
type LogSender struct {
	Logger *slog.Logger
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.Logger.Info("email delivery skipped (no SMTP host configured)",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("body", msg.Text),
	)
	return nil
}
