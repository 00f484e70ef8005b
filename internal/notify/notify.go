// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netserver Contributors

// Package notify delivers reset codes by email and SMS.
package notify

import (
	"context"
	"log/slog"

	"github.com/samber/oops"

	"github.com/netserver/accounts/internal/auth"
)

// Driver names accepted in Config.Driver.
const (
	DriverLog  = "log"
	DriverLive = "live"
)

// Config selects and configures the delivery driver.
type Config struct {
	Driver string      `koanf:"driver"`
	Email  EmailConfig `koanf:"email"`
	SMS    SMSConfig   `koanf:"sms"`
}

// EmailSender sends HTML email.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, htmlBody string) error
}

// SMSSender sends text messages.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// Gateway routes each channel to its sender.
type Gateway struct {
	Email EmailSender
	SMS   SMSSender
}

// SendEmail delivers through the email sender.
func (g *Gateway) SendEmail(ctx context.Context, to, subject, htmlBody string) error {
	if g.Email == nil {
		return oops.Code("NOTIFY_CHANNEL_DISABLED").With("channel", "email").Errorf("email delivery is not configured")
	}
	return g.Email.SendEmail(ctx, to, subject, htmlBody)
}

// SendSMS delivers through the SMS sender.
func (g *Gateway) SendSMS(ctx context.Context, to, body string) error {
	if g.SMS == nil {
		return oops.Code("NOTIFY_CHANNEL_DISABLED").With("channel", "sms").Errorf("sms delivery is not configured")
	}
	return g.SMS.SendSMS(ctx, to, body)
}

// New builds the notifier for cfg.Driver. The live driver enables each channel
// whose settings are present.
func New(cfg Config, logger *slog.Logger) (auth.Notifier, error) {
	switch cfg.Driver {
	case "", DriverLog:
		return NewLogNotifier(logger), nil
	case DriverLive:
		gw := &Gateway{}
		if cfg.Email.SMTPHost != "" {
			mailer, err := NewMailer(cfg.Email)
			if err != nil {
				return nil, err
			}
			gw.Email = mailer
		}
		if cfg.SMS.AccountSID != "" {
			texter, err := NewTexter(cfg.SMS)
			if err != nil {
				return nil, err
			}
			gw.SMS = texter
		}
		if gw.Email == nil && gw.SMS == nil {
			return nil, oops.Code("NOTIFY_CONFIG_INVALID").Errorf("live driver needs email or sms settings")
		}
		return gw, nil
	default:
		return nil, oops.Code("NOTIFY_CONFIG_INVALID").With("driver", cfg.Driver).Errorf("unknown notify driver %q", cfg.Driver)
	}
}

// LogNotifier writes messages to the log instead of sending them.
// It is meant for development, where the reset code is read from the log.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier. A nil logger uses slog.Default().
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// SendEmail logs the email.
func (n *LogNotifier) SendEmail(ctx context.Context, to, subject, htmlBody string) error {
	n.logger.InfoContext(ctx, "email", "to", to, "subject", subject, "body", htmlBody)
	return nil
}

// SendSMS logs the text message.
func (n *LogNotifier) SendSMS(ctx context.Context, to, body string) error {
	n.logger.InfoContext(ctx, "sms", "to", to, "body", body)
	return nil
}

var (
	_ auth.Notifier = (*Gateway)(nil)
	_ auth.Notifier = (*LogNotifier)(nil)
)
