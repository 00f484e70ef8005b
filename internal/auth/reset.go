// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netserver Contributors

package auth

import (
	"context"
	"crypto/rand"
	"math/big"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Reset code configuration.
const (
	ResetCodeMin = 100000
	ResetCodeMax = 999999

	// DefaultResetCodeTTL is how long an issued or refreshed code stays valid.
	DefaultResetCodeTTL = 5 * time.Minute
)

// ResetPasswordToken is an outstanding one-time reset code.
// At most one live token exists per user; expired rows linger until swept.
type ResetPasswordToken struct {
	ID        ulid.ULID
	UserID    ulid.ULID
	Code      string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsLive reports whether the token is still usable at now.
func (t *ResetPasswordToken) IsLive(now time.Time) bool {
	return t.ExpiresAt.After(now)
}

// NewResetPasswordToken creates a token for userID that expires at expiresAt.
func NewResetPasswordToken(userID ulid.ULID, code string, now, expiresAt time.Time) (*ResetPasswordToken, error) {
	if userID.IsZero() {
		return nil, oops.Code("RESET_INVALID_USER").Errorf("user id cannot be zero")
	}
	if len(code) != 6 {
		return nil, oops.Code("RESET_INVALID_CODE").Errorf("reset code must have 6 digits")
	}
	if !expiresAt.After(now) {
		return nil, oops.Code("RESET_INVALID_EXPIRY").Errorf("expiry must be in the future")
	}
	return &ResetPasswordToken{
		ID:        ulid.Make(),
		UserID:    userID,
		Code:      code,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}, nil
}

var resetCodeSpan = big.NewInt(ResetCodeMax - ResetCodeMin + 1)

// GenerateResetCode returns a uniformly random 6-digit code in [100000, 999999].
func GenerateResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, resetCodeSpan)
	if err != nil {
		return "", oops.Code("RESET_CODE_GENERATE_FAILED").Wrap(err)
	}
	return strconv.FormatInt(n.Int64()+ResetCodeMin, 10), nil
}

// ResetTokenRepository manages reset token persistence.
// Methods that read-then-write must run inside a Transactor.
type ResetTokenRepository interface {
	// Create stores a new token. Returns ErrDuplicate if another row holds the same code.
	Create(ctx context.Context, token *ResetPasswordToken) error

	// GetLiveByUser returns the user's token expiring after now, or ErrNotFound.
	GetLiveByUser(ctx context.Context, userID ulid.ULID, now time.Time) (*ResetPasswordToken, error)

	// GetLiveByCode returns the token with code expiring after now, or ErrNotFound.
	GetLiveByCode(ctx context.Context, code string, now time.Time) (*ResetPasswordToken, error)

	// GetLiveByCodeForUpdate is GetLiveByCode that also locks the row for the rest of
	// the enclosing transaction.
	GetLiveByCodeForUpdate(ctx context.Context, code string, now time.Time) (*ResetPasswordToken, error)

	// Extend moves a token's expiry.
	Extend(ctx context.Context, id ulid.ULID, expiresAt time.Time) error

	// Delete removes one token. Returns ErrNotFound if it does not exist.
	Delete(ctx context.Context, id ulid.ULID) error

	// DeleteExpiredByUser removes the user's tokens that expired at or before now.
	DeleteExpiredByUser(ctx context.Context, userID ulid.ULID, now time.Time) (int64, error)

	// DeleteExpired removes every token that expired at or before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
