// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netserver Contributors

package auth

import (
	"context"
	"errors"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel/attribute"
)

func errUserNotFound(userID ulid.ULID) error {
	return oops.Code(CodeUserNotFound).With("user_id", userID.String()).Errorf("user not found")
}

func errUnknownRole(name string) error {
	return oops.Code(CodeRoleNotFound).With("role", name).Errorf("role %q not found", name)
}

// AssignRole makes roleName the only role held by userID.
// The user row is locked for the duration, so concurrent assignments for the same
// user apply one after the other and the last to commit wins.
func (s *Service) AssignRole(ctx context.Context, userID ulid.ULID, roleName string) (err error) {
	ctx, done := s.begin(ctx, "assign_role", attribute.String("role", roleName))
	defer done(&err)

	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		return s.assignRole(ctx, userID, roleName)
	})
	if err != nil {
		return s.fail(ctx, "assign role", err)
	}

	s.logger.InfoContext(ctx, "role assigned", "user_id", userID.String(), "role", roleName)
	return nil
}

// assignRole must run inside a transaction.
func (s *Service) assignRole(ctx context.Context, userID ulid.ULID, roleName string) error {
	role, err := s.roles.GetByName(ctx, roleName)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return errUnknownRole(roleName)
		}
		return err
	}

	if err := s.users.Lock(ctx, userID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return errUserNotFound(userID)
		}
		return err
	}

	return s.roles.Replace(ctx, userID, role.ID)
}

// GetUserRole returns the name of the role held by userID.
func (s *Service) GetUserRole(ctx context.Context, userID ulid.ULID) (name string, err error) {
	ctx, done := s.begin(ctx, "get_user_role")
	defer done(&err)

	role, err := s.roles.GetForUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", errRoleNotFound(userID)
		}
		return "", s.fail(ctx, "get user role", err)
	}
	return role.Name, nil
}

// ListRoles returns the seeded roles.
func (s *Service) ListRoles(ctx context.Context) (roles []*Role, err error) {
	ctx, done := s.begin(ctx, "list_roles")
	defer done(&err)

	roles, err = s.roles.List(ctx)
	if err != nil {
		return nil, s.fail(ctx, "list roles", err)
	}
	return roles, nil
}
