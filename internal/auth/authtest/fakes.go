// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netserver Contributors

package authtest

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/netserver/accounts/internal/auth"
)

// Message is a notification captured by Outbox.
type Message struct {
	Channel auth.Channel
	To      string
	Subject string
	Body    string
}

var codePattern = regexp.MustCompile(`\b\d{6}\b`)

// Code extracts the 6-digit reset code from the message body.
func (m Message) Code() string {
	return codePattern.FindString(m.Body)
}

// Outbox is an auth.Notifier that records every message.
type Outbox struct {
	mu   sync.Mutex
	msgs []Message
	err  error
}

// FailWith makes subsequent sends fail with err. Pass nil to recover.
func (o *Outbox) FailWith(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.err = err
}

// SendEmail records an email.
func (o *Outbox) SendEmail(_ context.Context, to, subject, htmlBody string) error {
	return o.record(Message{Channel: auth.ChannelEmail, To: to, Subject: subject, Body: htmlBody})
}

// SendSMS records a text message.
func (o *Outbox) SendSMS(_ context.Context, to, body string) error {
	return o.record(Message{Channel: auth.ChannelSMS, To: to, Body: body})
}

func (o *Outbox) record(m Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.msgs = append(o.msgs, m)
	return nil
}

// Messages returns a copy of the recorded messages.
func (o *Outbox) Messages() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Message(nil), o.msgs...)
}

// Last returns the most recent message, or the zero Message.
func (o *Outbox) Last() Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.msgs) == 0 {
		return Message{}
	}
	return o.msgs[len(o.msgs)-1]
}

// BlockingNotifier never delivers; each send waits for its context to end.
type BlockingNotifier struct{}

// SendEmail blocks until ctx is done.
func (BlockingNotifier) SendEmail(ctx context.Context, _, _, _ string) error {
	<-ctx.Done()
	return ctx.Err()
}

// SendSMS blocks until ctx is done.
func (BlockingNotifier) SendSMS(ctx context.Context, _, _ string) error {
	<-ctx.Done()
	return ctx.Err()
}

// Issuer is an auth.TokenIssuer that records claims and returns opaque tokens.
type Issuer struct {
	mu     sync.Mutex
	claims []auth.Claims
}

// Issue records claims and returns a token naming the user.
func (i *Issuer) Issue(_ context.Context, claims auth.Claims) (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.claims = append(i.claims, claims)
	return fmt.Sprintf("token-%s-%d", claims.UserID, len(i.claims)), nil
}

// LastClaims returns the claims of the most recently issued token.
func (i *Issuer) LastClaims() auth.Claims {
	i.mu.Lock()
	defer i.mu.Unlock()
	if len(i.claims) == 0 {
		return auth.Claims{}
	}
	return i.claims[len(i.claims)-1]
}

// Clock is a manually advanced time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a Clock set to start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var (
	_ auth.Notifier    = (*Outbox)(nil)
	_ auth.Notifier    = BlockingNotifier{}
	_ auth.TokenIssuer = (*Issuer)(nil)
)
