// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netserver Contributors

package notify

import (
	"context"

	"github.com/samber/oops"
	"github.com/wneessen/go-mail"
)

// DefaultFromName is the sender display name when none is configured.
const DefaultFromName = "Accounts"

// EmailConfig holds SMTP settings.
type EmailConfig struct {
	From     string `koanf:"from"`
	FromName string `koanf:"from_name"`
	SMTPHost string `koanf:"smtp_host"`
	SMTPPort int    `koanf:"smtp_port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	// SSL selects implicit TLS; otherwise STARTTLS is required.
	SSL bool `koanf:"ssl"`
}

type smtpSender interface {
	DialAndSendWithContext(ctx context.Context, msgs ...*mail.Msg) error
}

// Mailer sends HTML email over SMTP.
type Mailer struct {
	client   smtpSender
	from     string
	fromName string
}

// NewMailer creates a Mailer. The SMTP connection is opened per message.
func NewMailer(cfg EmailConfig) (*Mailer, error) {
	if cfg.From == "" {
		return nil, oops.Code("NOTIFY_CONFIG_INVALID").Errorf("email sender address is required")
	}

	opts := []mail.Option{
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
	}
	if cfg.SMTPPort > 0 {
		opts = append(opts, mail.WithPort(cfg.SMTPPort))
	}
	if cfg.SSL {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}

	client, err := mail.NewClient(cfg.SMTPHost, opts...)
	if err != nil {
		return nil, oops.Code("NOTIFY_CONFIG_INVALID").With("smtp_host", cfg.SMTPHost).Wrap(err)
	}

	fromName := cfg.FromName
	if fromName == "" {
		fromName = DefaultFromName
	}
	return &Mailer{client: client, from: cfg.From, fromName: fromName}, nil
}

// SendEmail sends one HTML message to to.
func (m *Mailer) SendEmail(ctx context.Context, to, subject, htmlBody string) error {
	msg, err := m.message(to, subject, htmlBody)
	if err != nil {
		return err
	}
	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return oops.Code("NOTIFY_EMAIL_FAILED").With("channel", "email").Wrap(err)
	}
	return nil
}

func (m *Mailer) message(to, subject, htmlBody string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.FromFormat(m.fromName, m.from); err != nil {
		return nil, oops.Code("NOTIFY_EMAIL_INVALID").With("from", m.from).Wrap(err)
	}
	if err := msg.To(to); err != nil {
		return nil, oops.Code("NOTIFY_EMAIL_INVALID").With("to", to).Wrap(err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)
	return msg, nil
}

var _ EmailSender = (*Mailer)(nil)
