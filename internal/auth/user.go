// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netserver Contributors

package auth

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Username validation constraints.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 30
)

// DefaultAvatar is the avatar reference given to users who register without one.
const DefaultAvatar = "default-avatar.png"

var usernameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// Seeded role names.
const (
	RoleUser     = "User"
	RoleManager  = "Manager"
	RoleEmployee = "Employee"
)

// User is an account holder. Optional profile fields are empty strings when unset.
type User struct {
	ID           ulid.ULID
	Username     string
	Email        string
	Phone        string
	PasswordHash string
	FirstName    string
	LastName     string
	Address      string
	Gender       string
	AvatarURL    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Role is an immutable, seeded authorization role.
type Role struct {
	ID   ulid.ULID
	Name string
}

// ValidateUsername checks that a username meets the format requirements.
func ValidateUsername(username string) error {
	if username == "" {
		return invalidInput("username cannot be empty")
	}
	if len(username) < MinUsernameLength {
		return invalidInput("username must be at least %d characters", MinUsernameLength)
	}
	if len(username) > MaxUsernameLength {
		return invalidInput("username must be at most %d characters", MaxUsernameLength)
	}
	if !usernameRegex.MatchString(username) {
		return invalidInput("username must start with a letter and contain only letters, numbers, and underscores")
	}
	return nil
}

// ValidateEmail performs the minimal structural check the reset flow relies on:
// an address is an email iff it contains "@".
func ValidateEmail(email string) error {
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return invalidInput("email address %q is not valid", email)
	}
	return nil
}

// ValidatePhone accepts an empty phone. A phone must never contain "@", since
// reset identifiers with "@" are routed to email. Phones are not unique; a reset
// by phone reaches the oldest account holding it.
func ValidatePhone(phone string) error {
	if strings.Contains(phone, "@") {
		return invalidInput("phone number %q must not contain '@'", phone)
	}
	return nil
}

// UserRepository manages user persistence.
// Lookups match stored values exactly; they are case-sensitive.
type UserRepository interface {
	// Create persists a new user. Returns ErrDuplicate if the username or email is taken.
	Create(ctx context.Context, user *User) error

	// GetByID returns ErrNotFound if no user has the given id.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	// GetByLogin returns the user whose username or email equals identifier.
	GetByLogin(ctx context.Context, identifier string) (*User, error)

	// GetByContact returns the user whose email or phone equals identifier.
	GetByContact(ctx context.Context, identifier string) (*User, error)

	// ExistsByUsernameOrEmail reports whether any user holds the username or the email.
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)

	// Lock takes a row lock on the user for the rest of the enclosing transaction.
	// Returns ErrNotFound if the user does not exist.
	Lock(ctx context.Context, id ulid.ULID) error

	// UpdateProfile persists profile fields. Returns ErrDuplicate on an email collision.
	UpdateProfile(ctx context.Context, user *User) error

	// UpdatePassword replaces the stored password hash.
	UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error
}

// RoleRepository manages roles and the single role held by each user.
type RoleRepository interface {
	// GetByName returns ErrNotFound if no role has the given name.
	GetByName(ctx context.Context, name string) (*Role, error)

	// GetForUser returns the role currently assigned to the user, or ErrNotFound.
	GetForUser(ctx context.Context, userID ulid.ULID) (*Role, error)

	// Replace removes any role held by the user and assigns roleID.
	Replace(ctx context.Context, userID, roleID ulid.ULID) error

	// List returns all roles ordered by name.
	List(ctx context.Context) ([]*Role, error)
}

// Transactor runs fn inside a database transaction. Repository calls made with the
// context passed to fn join that transaction.
type Transactor interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
