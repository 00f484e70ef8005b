// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netserver Contributors

package auth

import (
	"context"

	"github.com/oklog/ulid/v2"
)

// Claims is the identity carried by an issued bearer token.
type Claims struct {
	UserID    ulid.ULID
	Username  string
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Address   string
	Gender    string
	AvatarURL string
	Role      string
}

// TokenIssuer signs bearer tokens. The issuer, audience, secret and lifetime are
// fixed when the implementation is constructed.
type TokenIssuer interface {
	Issue(ctx context.Context, claims Claims) (string, error)
}

// Notifier delivers rendered messages to a user.
type Notifier interface {
	SendEmail(ctx context.Context, to, subject, htmlBody string) error
	SendSMS(ctx context.Context, to, body string) error
}

// Channel is the delivery path for a reset code.
type Channel string

// Delivery channels.
const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)
