// Package mailer delivers transactional HTML email.
package mailer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	mail "github.com/wneessen/go-mail"

	"booknook/internal/config"
	"booknook/internal/domain"
)

// Mailer sends one HTML message. Callers decide whether a failure matters.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

type SMTPMailer struct {
	cfg     config.MailConfig
	timeout time.Duration
}

func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, timeout: 15 * time.Second}
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	if !m.cfg.Configured() {
		return domain.E(domain.ErrConfigurationMissing, "Email delivery is not configured.")
	}

	msg := mail.NewMsg()
	if err := msg.FromFormat(m.cfg.SenderName, m.cfg.SenderEmail); err != nil {
		return domain.Wrap(domain.ErrConfigurationMissing, "Invalid sender address.", err)
	}
	if err := msg.To(to); err != nil {
		return domain.Wrap(domain.ErrValidationFailed, "Invalid recipient address.", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(m.timeout),
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password))
	}
	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return domain.Wrap(domain.ErrConfigurationMissing, "Invalid SMTP settings.", err)
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return domain.Wrap(domain.ErrDependencyFailure, "Email could not be sent.", fmt.Errorf("smtp send: %w", err))
	}
	return nil
}

// LogMailer writes messages to a logger instead of sending them. Used when SMTP is not configured in
// development, and in tests, where Sent records every message.
type LogMailer struct {
	Log zerolog.Logger
	// Err, when set, is returned from every Send.
	Err error

	mu   sync.Mutex
	Sent []Message
}

type Message struct {
	To, Subject, Body string
}

func (m *LogMailer) Send(_ context.Context, to, subject, htmlBody string) error {
	m.mu.Lock()
	m.Sent = append(m.Sent, Message{To: to, Subject: subject, Body: htmlBody})
	m.mu.Unlock()
	m.Log.Info().Str("to", to).Str("subject", subject).Int("bytes", len(htmlBody)).Msg("mail.logged")
	return m.Err
}

// Messages returns a copy of everything sent so far.
func (m *LogMailer) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.Sent...)
}
