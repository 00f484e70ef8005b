// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netserver Contributors

package auth

import (
	"context"
	"errors"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// UpdatePassword replaces the password of an authenticated user.
// The stored hash is untouched unless currentPassword verifies and differs from
// newPassword. The check and the write run under the user row lock, so a
// concurrent ResetPassword is never overwritten by a change that verified the
// previous hash.
func (s *Service) UpdatePassword(ctx context.Context, userID ulid.ULID, currentPassword, newPassword string) (err error) {
	ctx, done := s.begin(ctx, "update_password")
	defer done(&err)

	if newPassword == "" {
		return invalidInput("new password cannot be empty")
	}

	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		if err := s.users.Lock(ctx, userID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return errUserNotFound(userID)
			}
			return err
		}
		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return errUserNotFound(userID)
			}
			return err
		}

		valid, err := s.hasher.Verify(currentPassword, user.PasswordHash)
		if err != nil {
			return err
		}
		if !valid {
			return oops.Code(CodeIncorrectPassword).With("user_id", userID.String()).Errorf("current password is incorrect")
		}
		if newPassword == currentPassword {
			return oops.Code(CodeSamePassword).Errorf("current password and new password must be different")
		}

		hash, err := s.hasher.Hash(newPassword)
		if err != nil {
			return err
		}
		if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
			if errors.Is(err, ErrNotFound) {
				return errUserNotFound(userID)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return s.fail(ctx, "update password", err)
	}

	s.logger.InfoContext(ctx, "password updated", "user_id", userID.String())
	return nil
}
