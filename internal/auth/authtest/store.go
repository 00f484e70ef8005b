// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netserver Contributors

// Package authtest provides in-memory collaborators for exercising auth.Service
// without a database.
package authtest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/netserver/accounts/internal/auth"
)

type txKey struct{}

type state struct {
	users     map[ulid.ULID]auth.User
	roles     map[ulid.ULID]auth.Role
	userRoles map[ulid.ULID]ulid.ULID // user id -> role id
	tokens    map[ulid.ULID]auth.ResetPasswordToken
}

func (st *state) clone() *state {
	c := &state{
		users:     make(map[ulid.ULID]auth.User, len(st.users)),
		roles:     make(map[ulid.ULID]auth.Role, len(st.roles)),
		userRoles: make(map[ulid.ULID]ulid.ULID, len(st.userRoles)),
		tokens:    make(map[ulid.ULID]auth.ResetPasswordToken, len(st.tokens)),
	}
	for k, v := range st.users {
		c.users[k] = v
	}
	for k, v := range st.roles {
		c.roles[k] = v
	}
	for k, v := range st.userRoles {
		c.userRoles[k] = v
	}
	for k, v := range st.tokens {
		c.tokens[k] = v
	}
	return c
}

// Store is an in-memory implementation of the auth repositories and Transactor.
// Transactions are fully serialized and roll back on error.
type Store struct {
	mu    sync.Mutex
	state *state
}

// NewStore returns a Store seeded with the standard roles.
func NewStore() *Store {
	st := &state{
		users:     make(map[ulid.ULID]auth.User),
		roles:     make(map[ulid.ULID]auth.Role),
		userRoles: make(map[ulid.ULID]ulid.ULID),
		tokens:    make(map[ulid.ULID]auth.ResetPasswordToken),
	}
	for _, name := range []string{auth.RoleUser, auth.RoleManager, auth.RoleEmployee} {
		id := ulid.Make()
		st.roles[id] = auth.Role{ID: id, Name: name}
	}
	return &Store{state: st}
}

// Deps wires the store into auth.Deps alongside the given collaborators.
func (s *Store) Deps(hasher auth.PasswordHasher, issuer auth.TokenIssuer, notifier auth.Notifier) auth.Deps {
	return auth.Deps{
		Users:    s.Users(),
		Roles:    s.Roles(),
		Resets:   s.Resets(),
		Tx:       s,
		Hasher:   hasher,
		Issuer:   issuer,
		Notifier: notifier,
	}
}

// Users returns the store's auth.UserRepository.
func (s *Store) Users() auth.UserRepository { return &userRepo{s: s} }

// Roles returns the store's auth.RoleRepository.
func (s *Store) Roles() auth.RoleRepository { return &roleRepo{s: s} }

// Resets returns the store's auth.ResetTokenRepository.
func (s *Store) Resets() auth.ResetTokenRepository { return &resetRepo{s: s} }

// InTransaction runs fn with exclusive access to the store.
func (s *Store) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) == s {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

func (s *Store) do(ctx context.Context, fn func(st *state) error) error {
	if ctx.Value(txKey{}) == s {
		return fn(s.state)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.state)
}

// User returns a copy of the stored user.
func (s *Store) User(id ulid.ULID) (auth.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.state.users[id]
	return u, ok
}

// RoleOf returns the name of the role held by the user, or "".
func (s *Store) RoleOf(userID ulid.ULID) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	roleID, ok := s.state.userRoles[userID]
	if !ok {
		return ""
	}
	return s.state.roles[roleID].Name
}

// Tokens returns the reset tokens of a user ordered by creation.
func (s *Store) Tokens(userID ulid.ULID) []auth.ResetPasswordToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []auth.ResetPasswordToken
	for _, t := range s.state.tokens {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Compare(out[j].ID) < 0 })
	return out
}

// PutToken stores a token as-is, bypassing uniqueness checks.
func (s *Store) PutToken(t auth.ResetPasswordToken) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.tokens[t.ID] = t
}

// RemoveRole deletes the user's role assignment.
func (s *Store) RemoveRole(userID ulid.ULID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.state.userRoles, userID)
}

type userRepo struct{ s *Store }

func (r *userRepo) Create(ctx context.Context, user *auth.User) error {
	return r.s.do(ctx, func(st *state) error {
		for _, u := range st.users {
			if u.Username == user.Username || u.Email == user.Email {
				return oops.With("operation", "create user").Wrap(auth.ErrDuplicate)
			}
		}
		st.users[user.ID] = *user
		return nil
	})
}

func (r *userRepo) GetByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	var out *auth.User
	err := r.s.do(ctx, func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return oops.With("user_id", id.String()).Wrap(auth.ErrNotFound)
		}
		out = &u
		return nil
	})
	return out, err
}

func (r *userRepo) find(ctx context.Context, match func(u auth.User) bool) (*auth.User, error) {
	var out *auth.User
	err := r.s.do(ctx, func(st *state) error {
		for _, u := range st.users {
			if match(u) {
				found := u
				out = &found
				return nil
			}
		}
		return auth.ErrNotFound
	})
	return out, err
}

func (r *userRepo) GetByLogin(ctx context.Context, identifier string) (*auth.User, error) {
	return r.find(ctx, func(u auth.User) bool {
		return u.Username == identifier || u.Email == identifier
	})
}

// GetByContact prefers an email match, then the oldest account holding the phone.
func (r *userRepo) GetByContact(ctx context.Context, identifier string) (*auth.User, error) {
	var out *auth.User
	err := r.s.do(ctx, func(st *state) error {
		for _, u := range st.users {
			if u.Email == identifier {
				found := u
				out = &found
				return nil
			}
			if u.Phone != "" && u.Phone == identifier && (out == nil || u.ID.Compare(out.ID) < 0) {
				found := u
				out = &found
			}
		}
		if out == nil {
			return auth.ErrNotFound
		}
		return nil
	})
	return out, err
}

func (r *userRepo) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	_, err := r.find(ctx, func(u auth.User) bool {
		return u.Username == username || u.Email == email
	})
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (r *userRepo) Lock(ctx context.Context, id ulid.ULID) error {
	_, err := r.GetByID(ctx, id)
	return err
}

func (r *userRepo) UpdateProfile(ctx context.Context, user *auth.User) error {
	return r.s.do(ctx, func(st *state) error {
		stored, ok := st.users[user.ID]
		if !ok {
			return auth.ErrNotFound
		}
		for id, u := range st.users {
			if id != user.ID && u.Email == user.Email {
				return auth.ErrDuplicate
			}
		}
		stored.FirstName = user.FirstName
		stored.LastName = user.LastName
		stored.Email = user.Email
		stored.Phone = user.Phone
		stored.Address = user.Address
		stored.Gender = user.Gender
		stored.AvatarURL = user.AvatarURL
		stored.UpdatedAt = user.UpdatedAt
		st.users[user.ID] = stored
		return nil
	})
}

func (r *userRepo) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error {
	return r.s.do(ctx, func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return auth.ErrNotFound
		}
		u.PasswordHash = passwordHash
		u.UpdatedAt = time.Now()
		st.users[id] = u
		return nil
	})
}

type roleRepo struct{ s *Store }

func (r *roleRepo) GetByName(ctx context.Context, name string) (*auth.Role, error) {
	var out *auth.Role
	err := r.s.do(ctx, func(st *state) error {
		for _, role := range st.roles {
			if role.Name == name {
				found := role
				out = &found
				return nil
			}
		}
		return auth.ErrNotFound
	})
	return out, err
}

func (r *roleRepo) GetForUser(ctx context.Context, userID ulid.ULID) (*auth.Role, error) {
	var out *auth.Role
	err := r.s.do(ctx, func(st *state) error {
		roleID, ok := st.userRoles[userID]
		if !ok {
			return auth.ErrNotFound
		}
		role := st.roles[roleID]
		out = &role
		return nil
	})
	return out, err
}

func (r *roleRepo) Replace(ctx context.Context, userID, roleID ulid.ULID) error {
	return r.s.do(ctx, func(st *state) error {
		if _, ok := st.users[userID]; !ok {
			return oops.With("operation", "replace role").Errorf("user %s does not exist", userID)
		}
		st.userRoles[userID] = roleID
		return nil
	})
}

func (r *roleRepo) List(ctx context.Context) ([]*auth.Role, error) {
	var out []*auth.Role
	err := r.s.do(ctx, func(st *state) error {
		for _, role := range st.roles {
			found := role
			out = append(out, &found)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

type resetRepo struct{ s *Store }

func (r *resetRepo) Create(ctx context.Context, token *auth.ResetPasswordToken) error {
	return r.s.do(ctx, func(st *state) error {
		for _, t := range st.tokens {
			if t.Code == token.Code {
				return oops.With("operation", "create reset token").Wrap(auth.ErrDuplicate)
			}
		}
		st.tokens[token.ID] = *token
		return nil
	})
}

func (r *resetRepo) GetLiveByUser(ctx context.Context, userID ulid.ULID, now time.Time) (*auth.ResetPasswordToken, error) {
	var out *auth.ResetPasswordToken
	err := r.s.do(ctx, func(st *state) error {
		for _, t := range st.tokens {
			if t.UserID == userID && t.IsLive(now) && (out == nil || t.ExpiresAt.After(out.ExpiresAt)) {
				found := t
				out = &found
			}
		}
		if out == nil {
			return auth.ErrNotFound
		}
		return nil
	})
	return out, err
}

func (r *resetRepo) GetLiveByCode(ctx context.Context, code string, now time.Time) (*auth.ResetPasswordToken, error) {
	var out *auth.ResetPasswordToken
	err := r.s.do(ctx, func(st *state) error {
		for _, t := range st.tokens {
			if t.Code == code && t.IsLive(now) {
				found := t
				out = &found
				return nil
			}
		}
		return auth.ErrNotFound
	})
	return out, err
}

func (r *resetRepo) GetLiveByCodeForUpdate(ctx context.Context, code string, now time.Time) (*auth.ResetPasswordToken, error) {
	return r.GetLiveByCode(ctx, code, now)
}

func (r *resetRepo) Extend(ctx context.Context, id ulid.ULID, expiresAt time.Time) error {
	return r.s.do(ctx, func(st *state) error {
		t, ok := st.tokens[id]
		if !ok {
			return auth.ErrNotFound
		}
		t.ExpiresAt = expiresAt
		st.tokens[id] = t
		return nil
	})
}

func (r *resetRepo) Delete(ctx context.Context, id ulid.ULID) error {
	return r.s.do(ctx, func(st *state) error {
		if _, ok := st.tokens[id]; !ok {
			return auth.ErrNotFound
		}
		delete(st.tokens, id)
		return nil
	})
}

func (r *resetRepo) DeleteExpiredByUser(ctx context.Context, userID ulid.ULID, now time.Time) (int64, error) {
	var n int64
	err := r.s.do(ctx, func(st *state) error {
		for id, t := range st.tokens {
			if t.UserID == userID && !t.IsLive(now) {
				delete(st.tokens, id)
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *resetRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := r.s.do(ctx, func(st *state) error {
		for id, t := range st.tokens {
			if !t.IsLive(now) {
				delete(st.tokens, id)
				n++
			}
		}
		return nil
	})
	return n, err
}

var (
	_ auth.Transactor           = (*Store)(nil)
	_ auth.UserRepository       = (*userRepo)(nil)
	_ auth.RoleRepository       = (*roleRepo)(nil)
	_ auth.ResetTokenRepository = (*resetRepo)(nil)
)
