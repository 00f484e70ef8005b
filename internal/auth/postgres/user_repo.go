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

const userColumns = `id, username, email, phone, password_hash, first_name, last_name,
		       address, gender, avatar_url, created_at, updated_at`

// UserRepository implements auth.UserRepository using PostgreSQL.
// All lookups compare stored values exactly.
type UserRepository struct {
	db DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create stores a new user.
func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	_, err := conn(ctx, r.db).Exec(ctx, `
		INSERT INTO users (
			id, username, email, phone, password_hash, first_name, last_name,
			address, gender, avatar_url, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		user.ID.String(),
		user.Username,
		user.Email,
		user.Phone,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.Address,
		user.Gender,
		user.AvatarURL,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return oops.With("operation", "insert user").With("username", user.Username).Wrap(auth.ErrDuplicate)
	}
	if err != nil {
		return oops.With("operation", "insert user").With("username", user.Username).Wrap(err)
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	row := conn(ctx, r.db).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id.String())
	return r.get(row, "get user by id")
}

// GetByLogin retrieves the user whose username or email equals identifier.
// A username match wins if one user's username equals another's email.
func (r *UserRepository) GetByLogin(ctx context.Context, identifier string) (*auth.User, error) {
	row := conn(ctx, r.db).QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE username = $1 OR email = $1
		ORDER BY (username = $1) DESC
		LIMIT 1
	`, identifier)
	return r.get(row, "get user by login")
}

// GetByContact retrieves the user whose email or phone equals identifier.
// Phone numbers are not unique; the oldest account wins.
func (r *UserRepository) GetByContact(ctx context.Context, identifier string) (*auth.User, error) {
	row := conn(ctx, r.db).QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE email = $1 OR (phone <> '' AND phone = $1)
		ORDER BY (email = $1) DESC, id
		LIMIT 1
	`, identifier)
	return r.get(row, "get user by contact")
}

// ExistsByUsernameOrEmail reports whether any user holds username or email.
func (r *UserRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	var exists bool
	err := conn(ctx, r.db).QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM users WHERE username = $1 OR email = $2)
	`, username, email).Scan(&exists)
	if err != nil {
		return false, oops.With("operation", "check user exists").Wrap(err)
	}
	return exists, nil
}

// Lock takes a row lock on the user until the enclosing transaction ends.
func (r *UserRepository) Lock(ctx context.Context, id ulid.ULID) error {
	var locked string
	err := conn(ctx, r.db).QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, id.String()).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return oops.With("user_id", id.String()).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return oops.With("operation", "lock user").With("user_id", id.String()).Wrap(err)
	}
	return nil
}

// UpdateProfile persists the editable profile fields.
func (r *UserRepository) UpdateProfile(ctx context.Context, user *auth.User) error {
	result, err := conn(ctx, r.db).Exec(ctx, `
		UPDATE users
		SET first_name = $2, last_name = $3, email = $4, phone = $5,
		    address = $6, gender = $7, avatar_url = $8, updated_at = $9
		WHERE id = $1
	`,
		user.ID.String(),
		user.FirstName,
		user.LastName,
		user.Email,
		user.Phone,
		user.Address,
		user.Gender,
		user.AvatarURL,
		user.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return oops.With("operation", "update user profile").With("user_id", user.ID.String()).Wrap(auth.ErrDuplicate)
	}
	if err != nil {
		return oops.With("operation", "update user profile").With("user_id", user.ID.String()).Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.With("user_id", user.ID.String()).Wrap(auth.ErrNotFound)
	}
	return nil
}

// UpdatePassword replaces the stored password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error {
	result, err := conn(ctx, r.db).Exec(ctx, `
		UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1
	`, id.String(), passwordHash)
	if err != nil {
		return oops.With("operation", "update user password").With("user_id", id.String()).Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.With("user_id", id.String()).Wrap(auth.ErrNotFound)
	}
	return nil
}

func (r *UserRepository) get(row pgx.Row, operation string) (*auth.User, error) {
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.With("operation", operation).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.With("operation", operation).Wrap(err)
	}
	return user, nil
}

// scanUser scans a single row into a User.
// Callers are responsible for handling pgx.ErrNoRows.
func scanUser(row pgx.Row) (*auth.User, error) {
	var (
		idStr     string
		user      auth.User
		createdAt time.Time
		updatedAt time.Time
	)
	err := row.Scan(
		&idStr,
		&user.Username,
		&user.Email,
		&user.Phone,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.Address,
		&user.Gender,
		&user.AvatarURL,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with context-specific info
	}

	id, err := parseID("user_id", idStr)
	if err != nil {
		return nil, err
	}
	user.ID = id
	user.CreatedAt = createdAt
	user.UpdatedAt = updatedAt
	return &user, nil
}

var _ auth.UserRepository = (*UserRepository)(nil)
