// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netserver Contributors

package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel/attribute"
)

// codeRetryDelay is the pause before retrying after a code collision.
const codeRetryDelay = 10 * time.Millisecond

// ChannelFor returns the delivery channel implied by an identifier:
// email if it contains "@", SMS otherwise.
func ChannelFor(identifier string) Channel {
	if strings.Contains(identifier, "@") {
		return ChannelEmail
	}
	return ChannelSMS
}

func errInvalidOrExpiredCode() error {
	return oops.Code(CodeInvalidOrExpiredCode).Errorf("invalid or expired code")
}

// RequestPasswordReset sends a reset code to the user whose email or phone equals
// identifier. A user with a live code gets the same code again with its expiry
// pushed out; otherwise a new code is issued. If delivery fails the code stays
// stored and usable, and RESET_DELIVERY_FAILED is returned.
func (s *Service) RequestPasswordReset(ctx context.Context, identifier string) (err error) {
	channel := ChannelFor(identifier)
	ctx, done := s.begin(ctx, "request_password_reset", attribute.String("channel", string(channel)))
	defer done(&err)

	if identifier == "" {
		return invalidInput("email address or phone number is required")
	}

	user, err := s.users.GetByContact(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code(CodeIdentifierNotFound).
				With("channel", string(channel)).
				Errorf("no account matches the identifier")
		}
		return s.fail(ctx, "get user by contact", err)
	}

	token, outcome, err := s.issueResetToken(ctx, user.ID)
	if err != nil {
		return s.fail(ctx, "issue reset code", err)
	}
	ResetCodes.WithLabelValues(outcome).Inc()

	destination := user.Phone
	if channel == ChannelEmail {
		destination = user.Email
	}
	if err := s.deliver(ctx, channel, destination, token.Code); err != nil {
		DeliveryFailures.WithLabelValues(string(channel)).Inc()
		s.logger.WarnContext(ctx, "reset code delivery failed",
			"user_id", user.ID.String(),
			"channel", string(channel),
			"error", err)
		return withCode(CodeDeliveryFailed, "deliver reset code", err)
	}

	s.logger.InfoContext(ctx, "reset code sent",
		"user_id", user.ID.String(),
		"channel", string(channel),
		"outcome", outcome)
	return nil
}

// issueResetToken refreshes the user's live token or stores a new one.
// The user row lock serializes concurrent requests for the same user so at most
// one live token exists. A new code that collides with a stored one restarts the
// transaction with a fresh code.
func (s *Service) issueResetToken(ctx context.Context, userID ulid.ULID) (*ResetPasswordToken, string, error) {
	var (
		token   *ResetPasswordToken
		outcome string
	)

	backoff := retry.WithMaxRetries(s.codeAttempts-1, retry.NewConstant(codeRetryDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		return s.tx.InTransaction(ctx, func(ctx context.Context) error {
			if err := s.users.Lock(ctx, userID); err != nil {
				if errors.Is(err, ErrNotFound) {
					return errUserNotFound(userID)
				}
				return err
			}

			now := s.now()
			expiresAt := now.Add(s.resetTTL)

			live, err := s.resets.GetLiveByUser(ctx, userID, now)
			switch {
			case err == nil:
				if err := s.resets.Extend(ctx, live.ID, expiresAt); err != nil {
					return err
				}
				live.ExpiresAt = expiresAt
				token, outcome = live, OutcomeRefreshed
				return nil
			case !errors.Is(err, ErrNotFound):
				return err
			}

			code, err := s.newCode()
			if err != nil {
				return err
			}
			fresh, err := NewResetPasswordToken(userID, code, now, expiresAt)
			if err != nil {
				return err
			}
			if err := s.resets.Create(ctx, fresh); err != nil {
				if errors.Is(err, ErrDuplicate) {
					s.logger.DebugContext(ctx, "reset code collision, regenerating", "user_id", userID.String())
					return retry.RetryableError(err)
				}
				return err
			}
			token, outcome = fresh, OutcomeIssued
			return nil
		})
	})
	if err != nil {
		return nil, "", err
	}
	return token, outcome, nil
}

// deliver sends code over channel, bounded by the delivery timeout even if the
// notifier ignores its context.
func (s *Service) deliver(ctx context.Context, channel Channel, to, code string) error {
	ctx, cancel := context.WithTimeout(ctx, s.deliveryTimeout)
	defer cancel()

	send := func() error {
		if channel == ChannelEmail {
			body, err := RenderResetEmail(code, s.resetTTL)
			if err != nil {
				return err
			}
			return s.notifier.SendEmail(ctx, to, ResetEmailSubject, body)
		}
		return s.notifier.SendSMS(ctx, to, RenderResetSMS(code, s.resetTTL))
	}

	errCh := make(chan error, 1)
	go func() { errCh <- send() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return oops.With("channel", string(channel)).Wrap(ctx.Err())
	}
}

// ResetPassword consumes a live reset code and sets newPassword on its user.
// The password change, the deletion of the consumed token, and the removal of the
// user's expired tokens commit together. Of several concurrent calls with the same
// code exactly one succeeds.
func (s *Service) ResetPassword(ctx context.Context, code, newPassword string) (err error) {
	ctx, done := s.begin(ctx, "reset_password")
	defer done(&err)

	if newPassword == "" {
		return invalidInput("new password cannot be empty")
	}
	if code == "" {
		return errInvalidOrExpiredCode()
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return s.fail(ctx, "hash password", err)
	}

	var userID ulid.ULID
	var swept int64
	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		now := s.now()

		candidate, err := s.resets.GetLiveByCode(ctx, code, now)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return errInvalidOrExpiredCode()
			}
			return err
		}
		userID = candidate.UserID

		// Lock order matches issueResetToken: user row first, then token row.
		if err := s.users.Lock(ctx, userID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return errUserNotFound(userID)
			}
			return err
		}

		token, err := s.resets.GetLiveByCodeForUpdate(ctx, code, now)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return errInvalidOrExpiredCode()
			}
			return err
		}

		if err := s.users.UpdatePassword(ctx, token.UserID, hash); err != nil {
			if errors.Is(err, ErrNotFound) {
				return errUserNotFound(token.UserID)
			}
			return err
		}
		if err := s.resets.Delete(ctx, token.ID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return errInvalidOrExpiredCode()
			}
			return err
		}
		swept, err = s.resets.DeleteExpiredByUser(ctx, token.UserID, now)
		return err
	})
	if err != nil {
		return s.fail(ctx, "reset password", err)
	}

	ResetCodes.WithLabelValues(OutcomeConsumed).Inc()
	TokensSwept.Add(float64(swept))
	s.logger.InfoContext(ctx, "password reset", "user_id", userID.String(), "expired_tokens_removed", swept)
	return nil
}
