// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netserver Contributors

package notify

import (
	"context"

	"github.com/samber/oops"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// SMSConfig holds Twilio credentials.
type SMSConfig struct {
	AccountSID string `koanf:"account_sid"`
	AuthToken  string `koanf:"auth_token"`
	FromNumber string `koanf:"from_number"`
}

type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// Texter sends SMS through the Twilio Messages API.
type Texter struct {
	api  messageCreator
	from string
}

// NewTexter creates a Texter.
func NewTexter(cfg SMSConfig) (*Texter, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, oops.Code("NOTIFY_CONFIG_INVALID").Errorf("twilio account sid and auth token are required")
	}
	if cfg.FromNumber == "" {
		return nil, oops.Code("NOTIFY_CONFIG_INVALID").Errorf("sms sender number is required")
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &Texter{api: client.Api, from: cfg.FromNumber}, nil
}

// SendSMS sends body to the phone number to. The Twilio client takes no context,
// so the call is abandoned, not cancelled, when ctx ends first.
func (t *Texter) SendSMS(ctx context.Context, to, body string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(t.from)
	params.SetBody(body)

	errCh := make(chan error, 1)
	go func() {
		_, err := t.api.CreateMessage(params)
		errCh <- err
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return oops.Code("NOTIFY_SMS_FAILED").With("channel", "sms").Wrap(err)
		}
		return nil
	case <-ctx.Done():
		return oops.Code("NOTIFY_SMS_FAILED").With("channel", "sms").Wrap(ctx.Err())
	}
}

var _ SMSSender = (*Texter)(nil)
