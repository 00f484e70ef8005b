// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netserver Contributors

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/netserver/accounts/internal/auth"
)

// RoleRepository implements auth.RoleRepository using PostgreSQL.
// Roles are seeded by migrations. user_roles carries a composite key and a
// unique user_id, so each user holds at most one role.
type RoleRepository struct {
	db DB
}

// NewRoleRepository creates a new RoleRepository.
func NewRoleRepository(db DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// GetByName retrieves a role by its exact name.
func (r *RoleRepository) GetByName(ctx context.Context, name string) (*auth.Role, error) {
	row := conn(ctx, r.db).QueryRow(ctx, `SELECT id, name FROM roles WHERE name = $1`, name)
	role, err := scanRole(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.With("role", name).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.With("operation", "get role by name").With("role", name).Wrap(err)
	}
	return role, nil
}

// GetForUser retrieves the role assigned to userID.
func (r *RoleRepository) GetForUser(ctx context.Context, userID ulid.ULID) (*auth.Role, error) {
	row := conn(ctx, r.db).QueryRow(ctx, `
		SELECT r.id, r.name
		FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id
		WHERE ur.user_id = $1
	`, userID.String())
	role, err := scanRole(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.With("user_id", userID.String()).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.With("operation", "get user role").With("user_id", userID.String()).Wrap(err)
	}
	return role, nil
}

// Replace assigns roleID to userID, discarding any previous role.
func (r *RoleRepository) Replace(ctx context.Context, userID, roleID ulid.ULID) error {
	_, err := conn(ctx, r.db).Exec(ctx, `
		INSERT INTO user_roles (user_id, role_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET role_id = EXCLUDED.role_id
	`, userID.String(), roleID.String())
	if err != nil {
		return oops.With("operation", "replace user role").
			With("user_id", userID.String()).
			With("role_id", roleID.String()).
			Wrap(err)
	}
	return nil
}

// List returns every role ordered by name.
func (r *RoleRepository) List(ctx context.Context) ([]*auth.Role, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `SELECT id, name FROM roles ORDER BY name`)
	if err != nil {
		return nil, oops.With("operation", "list roles").Wrap(err)
	}
	defer rows.Close()

	var roles []*auth.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, oops.With("operation", "scan role row").Wrap(err)
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.With("operation", "iterate roles").Wrap(err)
	}
	return roles, nil
}

func scanRole(row pgx.Row) (*auth.Role, error) {
	var idStr, name string
	if err := row.Scan(&idStr, &name); err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with context-specific info
	}
	id, err := parseID("role_id", idStr)
	if err != nil {
		return nil, err
	}
	return &auth.Role{ID: id, Name: name}, nil
}

var _ auth.RoleRepository = (*RoleRepository)(nil)
