// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netserver Contributors

package auth

import (
	"context"
	"errors"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// dummyPasswordHash is verified when no user matches so that unknown identifiers
// cost the same as wrong passwords. It never matches any password.
//
//nolint:gosec // G101: intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

func errInvalidCredentials() error {
	return oops.Code(CodeInvalidCredentials).Errorf("invalid username/email or password")
}

func errRoleNotFound(userID ulid.ULID) error {
	return oops.Code(CodeRoleNotFound).With("user_id", userID.String()).Errorf("user role not found")
}

// Login verifies a username-or-email and password and returns a signed bearer token.
// Unknown identifiers and wrong passwords fail identically with
// AUTH_INVALID_CREDENTIALS. Login never writes to the stores. Signing is bounded
// by the issue timeout; an issuer that overruns it fails with AUTH_UNAVAILABLE.
func (s *Service) Login(ctx context.Context, identifier, password string) (token string, err error) {
	ctx, done := s.begin(ctx, "login")
	defer done(&err)

	user, lookupErr := s.users.GetByLogin(ctx, identifier)

	targetHash := dummyPasswordHash
	exists := false
	switch {
	case lookupErr == nil:
		targetHash = user.PasswordHash
		exists = true
	case !errors.Is(lookupErr, ErrNotFound):
		return "", s.fail(ctx, "get user by login", lookupErr)
	}

	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if verifyErr != nil {
		if !exists {
			return "", errInvalidCredentials()
		}
		return "", s.fail(ctx, "verify password", verifyErr)
	}
	if !exists || !valid {
		return "", errInvalidCredentials()
	}

	role, err := s.roles.GetForUser(ctx, user.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", errRoleNotFound(user.ID)
		}
		return "", s.fail(ctx, "get user role", err)
	}

	issueCtx, cancel := context.WithTimeout(ctx, s.issueTimeout)
	defer cancel()
	token, err = s.issuer.Issue(issueCtx, ClaimsFor(user, role.Name))
	if err != nil {
		return "", s.fail(ctx, "issue token", err)
	}

	s.logger.DebugContext(ctx, "user logged in", "user_id", user.ID.String(), "role", role.Name)
	return token, nil
}

// ClaimsFor builds the token claims for user holding role.
func ClaimsFor(user *User, role string) Claims {
	return Claims{
		UserID:    user.ID,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		Phone:     user.Phone,
		Address:   user.Address,
		Gender:    user.Gender,
		AvatarURL: user.AvatarURL,
		Role:      role,
	}
}
