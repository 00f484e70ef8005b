// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netserver Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/netserver/accounts/internal/auth"
)

const resetColumns = `id, user_id, code, expires_at, created_at`

// ResetTokenRepository implements auth.ResetTokenRepository using PostgreSQL.
// Codes carry a unique index, so a collision surfaces as auth.ErrDuplicate on Create.
type ResetTokenRepository struct {
	db DB
}

// NewResetTokenRepository creates a new ResetTokenRepository.
func NewResetTokenRepository(db DB) *ResetTokenRepository {
	return &ResetTokenRepository{db: db}
}

// Create stores a new reset token.
func (r *ResetTokenRepository) Create(ctx context.Context, token *auth.ResetPasswordToken) error {
	_, err := conn(ctx, r.db).Exec(ctx, `
		INSERT INTO reset_password_tokens (id, user_id, code, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, token.ID.String(), token.UserID.String(), token.Code, token.ExpiresAt, token.CreatedAt)
	if isUniqueViolation(err) {
		return oops.With("operation", "insert reset token").With("user_id", token.UserID.String()).Wrap(auth.ErrDuplicate)
	}
	if err != nil {
		return oops.With("operation", "insert reset token").With("user_id", token.UserID.String()).Wrap(err)
	}
	return nil
}

// GetLiveByUser retrieves the user's token with the latest expiry after now.
func (r *ResetTokenRepository) GetLiveByUser(ctx context.Context, userID ulid.ULID, now time.Time) (*auth.ResetPasswordToken, error) {
	row := conn(ctx, r.db).QueryRow(ctx, `
		SELECT `+resetColumns+`
		FROM reset_password_tokens
		WHERE user_id = $1 AND expires_at > $2
		ORDER BY expires_at DESC
		LIMIT 1
	`, userID.String(), now)
	return getToken(row, "get live reset token by user")
}

// GetLiveByCode retrieves the token holding code if it expires after now.
func (r *ResetTokenRepository) GetLiveByCode(ctx context.Context, code string, now time.Time) (*auth.ResetPasswordToken, error) {
	row := conn(ctx, r.db).QueryRow(ctx, `
		SELECT `+resetColumns+`
		FROM reset_password_tokens
		WHERE code = $1 AND expires_at > $2
	`, code, now)
	return getToken(row, "get live reset token by code")
}

// GetLiveByCodeForUpdate is GetLiveByCode that locks the row until the enclosing
// transaction ends. A concurrent consumer blocks here and then sees no row.
func (r *ResetTokenRepository) GetLiveByCodeForUpdate(ctx context.Context, code string, now time.Time) (*auth.ResetPasswordToken, error) {
	row := conn(ctx, r.db).QueryRow(ctx, `
		SELECT `+resetColumns+`
		FROM reset_password_tokens
		WHERE code = $1 AND expires_at > $2
		FOR UPDATE
	`, code, now)
	return getToken(row, "lock live reset token by code")
}

// Extend moves a token's expiry.
func (r *ResetTokenRepository) Extend(ctx context.Context, id ulid.ULID, expiresAt time.Time) error {
	result, err := conn(ctx, r.db).Exec(ctx, `
		UPDATE reset_password_tokens SET expires_at = $2 WHERE id = $1
	`, id.String(), expiresAt)
	if err != nil {
		return oops.With("operation", "extend reset token").With("id", id.String()).Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	return nil
}

// Delete removes a reset token.
func (r *ResetTokenRepository) Delete(ctx context.Context, id ulid.ULID) error {
	result, err := conn(ctx, r.db).Exec(ctx, `DELETE FROM reset_password_tokens WHERE id = $1`, id.String())
	if err != nil {
		return oops.With("operation", "delete reset token").With("id", id.String()).Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	return nil
}

// DeleteExpiredByUser removes the user's tokens that expired at or before now.
func (r *ResetTokenRepository) DeleteExpiredByUser(ctx context.Context, userID ulid.ULID, now time.Time) (int64, error) {
	result, err := conn(ctx, r.db).Exec(ctx, `
		DELETE FROM reset_password_tokens WHERE user_id = $1 AND expires_at <= $2
	`, userID.String(), now)
	if err != nil {
		return 0, oops.With("operation", "delete expired reset tokens by user").With("user_id", userID.String()).Wrap(err)
	}
	return result.RowsAffected(), nil
}

// DeleteExpired removes every token that expired at or before now.
func (r *ResetTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := conn(ctx, r.db).Exec(ctx, `
		DELETE FROM reset_password_tokens WHERE expires_at <= $1
	`, now)
	if err != nil {
		return 0, oops.With("operation", "delete expired reset tokens").Wrap(err)
	}
	return result.RowsAffected(), nil
}

func getToken(row pgx.Row, operation string) (*auth.ResetPasswordToken, error) {
	token, err := scanToken(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.With("operation", operation).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.With("operation", operation).Wrap(err)
	}
	return token, nil
}

// scanToken scans a single row into a ResetPasswordToken.
// Callers are responsible for handling pgx.ErrNoRows.
func scanToken(row pgx.Row) (*auth.ResetPasswordToken, error) {
	var (
		idStr     string
		userIDStr string
		token     auth.ResetPasswordToken
	)
	if err := row.Scan(&idStr, &userIDStr, &token.Code, &token.ExpiresAt, &token.CreatedAt); err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with context-specific info
	}

	id, err := parseID("id", idStr)
	if err != nil {
		return nil, err
	}
	userID, err := parseID("user_id", userIDStr)
	if err != nil {
		return nil, err
	}
	token.ID = id
	token.UserID = userID
	return &token, nil
}

var _ auth.ResetTokenRepository = (*ResetTokenRepository)(nil)
