// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netserver Contributors

package auth_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/netserver/accounts/internal/auth"
	"github.com/netserver/accounts/internal/auth/mocks"
	"github.com/netserver/accounts/pkg/errutil"
)

type mockDeps struct {
	users    *mocks.MockUserRepository
	roles    *mocks.MockRoleRepository
	resets   *mocks.MockResetTokenRepository
	tx       *mocks.MockTransactor
	hasher   *mocks.MockPasswordHasher
	issuer   *mocks.MockTokenIssuer
	notifier *mocks.MockNotifier
}

func newMockDeps(t *testing.T) *mockDeps {
	return &mockDeps{
		users:    mocks.NewMockUserRepository(t),
		roles:    mocks.NewMockRoleRepository(t),
		resets:   mocks.NewMockResetTokenRepository(t),
		tx:       mocks.NewMockTransactor(t),
		hasher:   mocks.NewMockPasswordHasher(t),
		issuer:   mocks.NewMockTokenIssuer(t),
		notifier: mocks.NewMockNotifier(t),
	}
}

func (m *mockDeps) deps() auth.Deps {
	return auth.Deps{
		Users:    m.users,
		Roles:    m.roles,
		Resets:   m.resets,
		Tx:       m.tx,
		Hasher:   m.hasher,
		Issuer:   m.issuer,
		Notifier: m.notifier,
	}
}

func (m *mockDeps) service(t *testing.T) *auth.Service {
	t.Helper()
	svc, err := auth.NewService(m.deps())
	require.NoError(t, err)
	return svc
}

// passThrough makes the mock transactor run fn directly.
func (m *mockDeps) passThrough() {
	m.tx.On("InTransaction", mock.Anything, mock.Anything).
		Return(func(ctx context.Context, fn func(context.Context) error) error { return fn(ctx) })
}

func TestNewService_NilDependencies(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(d *auth.Deps)
		expectError string
	}{
		{"nil user repository", func(d *auth.Deps) { d.Users = nil }, "user repository is required"},
		{"nil role repository", func(d *auth.Deps) { d.Roles = nil }, "role repository is required"},
		{"nil reset repository", func(d *auth.Deps) { d.Resets = nil }, "reset token repository is required"},
		{"nil transactor", func(d *auth.Deps) { d.Tx = nil }, "transactor is required"},
		{"nil password hasher", func(d *auth.Deps) { d.Hasher = nil }, "password hasher is required"},
		{"nil token issuer", func(d *auth.Deps) { d.Issuer = nil }, "token issuer is required"},
		{"nil notifier", func(d *auth.Deps) { d.Notifier = nil }, "notifier is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := newMockDeps(t).deps()
			tt.mutate(&deps)
			svc, err := auth.NewService(deps)
			require.Error(t, err)
			assert.Nil(t, svc)
			assert.Contains(t, err.Error(), tt.expectError)
		})
	}
}

func TestService_Login_Failures(t *testing.T) {
	ctx := context.Background()
	user := &auth.User{ID: ulid.Make(), Username: "alice", Email: "a@x.com", PasswordHash: "stored"}

	t.Run("lookup fault is unavailable", func(t *testing.T) {
		m := newMockDeps(t)
		m.users.On("GetByLogin", mock.Anything, "alice").Return(nil, assert.AnError)

		_, err := m.service(t).Login(ctx, "alice", "pw")
		errutil.AssertErrorCode(t, err, auth.CodeUnavailable)
		assert.ErrorIs(t, err, assert.AnError)
	})

	t.Run("unknown user still verifies against dummy hash", func(t *testing.T) {
		m := newMockDeps(t)
		m.users.On("GetByLogin", mock.Anything, "ghost").Return(nil, auth.ErrNotFound)
		m.hasher.On("Verify", "pw", mock.MatchedBy(func(h string) bool { return h != "" })).Return(false, nil)

		_, err := m.service(t).Login(ctx, "ghost", "pw")
		errutil.AssertErrorCode(t, err, auth.CodeInvalidCredentials)
	})

	t.Run("wrong password matches unknown user error", func(t *testing.T) {
		m := newMockDeps(t)
		m.users.On("GetByLogin", mock.Anything, "alice").Return(user, nil)
		m.hasher.On("Verify", "bad", "stored").Return(false, nil)

		_, err := m.service(t).Login(ctx, "alice", "bad")
		errutil.AssertErrorCode(t, err, auth.CodeInvalidCredentials)
		assert.Equal(t, "invalid username/email or password", auth.Message(err))
	})

	t.Run("corrupt stored hash is unavailable", func(t *testing.T) {
		m := newMockDeps(t)
		m.users.On("GetByLogin", mock.Anything, "alice").Return(user, nil)
		m.hasher.On("Verify", "pw", "stored").Return(false, auth.ErrEmptyPassword)

		_, err := m.service(t).Login(ctx, "alice", "pw")
		errutil.AssertErrorCode(t, err, auth.CodeUnavailable)
	})

	t.Run("missing role", func(t *testing.T) {
		m := newMockDeps(t)
		m.users.On("GetByLogin", mock.Anything, "alice").Return(user, nil)
		m.hasher.On("Verify", "pw", "stored").Return(true, nil)
		m.roles.On("GetForUser", mock.Anything, user.ID).Return(nil, auth.ErrNotFound)

		_, err := m.service(t).Login(ctx, "alice", "pw")
		errutil.AssertErrorCode(t, err, auth.CodeRoleNotFound)
	})

	t.Run("signing failure is unavailable", func(t *testing.T) {
		m := newMockDeps(t)
		m.users.On("GetByLogin", mock.Anything, "alice").Return(user, nil)
		m.hasher.On("Verify", "pw", "stored").Return(true, nil)
		m.roles.On("GetForUser", mock.Anything, user.ID).Return(&auth.Role{ID: ulid.Make(), Name: auth.RoleUser}, nil)
		m.issuer.On("Issue", mock.Anything, mock.AnythingOfType("auth.Claims")).Return("", assert.AnError)

		_, err := m.service(t).Login(ctx, "alice", "pw")
		errutil.AssertErrorCode(t, err, auth.CodeUnavailable)
	})
}

func TestService_Login_SigningIsBounded(t *testing.T) {
	m := newMockDeps(t)
	user := &auth.User{ID: ulid.Make(), Username: "alice", PasswordHash: "stored"}
	m.users.On("GetByLogin", mock.Anything, "alice").Return(user, nil)
	m.hasher.On("Verify", "pw", "stored").Return(true, nil)
	m.roles.On("GetForUser", mock.Anything, user.ID).Return(&auth.Role{ID: ulid.Make(), Name: auth.RoleUser}, nil)
	m.issuer.On("Issue", mock.Anything, mock.AnythingOfType("auth.Claims")).
		Return(func(ctx context.Context, _ auth.Claims) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		})

	svc, err := auth.NewService(m.deps(), auth.WithIssueTimeout(20*time.Millisecond))
	require.NoError(t, err)

	start := time.Now()
	_, err = svc.Login(context.Background(), "alice", "pw")
	errutil.AssertErrorCode(t, err, auth.CodeUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestService_Login_Claims(t *testing.T) {
	ctx := context.Background()
	m := newMockDeps(t)
	user := &auth.User{
		ID:           ulid.Make(),
		Username:     "alice",
		Email:        "a@x.com",
		FirstName:    "Alice",
		PasswordHash: "stored",
		AvatarURL:    auth.DefaultAvatar,
	}
	m.users.On("GetByLogin", mock.Anything, "a@x.com").Return(user, nil)
	m.hasher.On("Verify", "pw", "stored").Return(true, nil)
	m.roles.On("GetForUser", mock.Anything, user.ID).Return(&auth.Role{ID: ulid.Make(), Name: auth.RoleManager}, nil)
	m.issuer.On("Issue", mock.Anything, auth.Claims{
		UserID:    user.ID,
		Username:  "alice",
		FirstName: "Alice",
		Email:     "a@x.com",
		AvatarURL: auth.DefaultAvatar,
		Role:      auth.RoleManager,
	}).Return("signed", nil)

	token, err := m.service(t).Login(ctx, "a@x.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "signed", token)
}

func TestService_AssignRole_Failures(t *testing.T) {
	ctx := context.Background()
	userID := ulid.Make()

	t.Run("unknown role is checked before user", func(t *testing.T) {
		m := newMockDeps(t)
		m.passThrough()
		m.roles.On("GetByName", mock.Anything, "Admin").Return(nil, auth.ErrNotFound)

		err := m.service(t).AssignRole(ctx, userID, "Admin")
		errutil.AssertErrorCode(t, err, auth.CodeRoleNotFound)
	})

	t.Run("unknown user", func(t *testing.T) {
		m := newMockDeps(t)
		m.passThrough()
		m.roles.On("GetByName", mock.Anything, auth.RoleManager).Return(&auth.Role{ID: ulid.Make(), Name: auth.RoleManager}, nil)
		m.users.On("Lock", mock.Anything, userID).Return(auth.ErrNotFound)

		err := m.service(t).AssignRole(ctx, userID, auth.RoleManager)
		errutil.AssertErrorCode(t, err, auth.CodeUserNotFound)
	})

	t.Run("commit failure is unavailable", func(t *testing.T) {
		m := newMockDeps(t)
		m.tx.On("InTransaction", mock.Anything, mock.Anything).Return(assert.AnError)

		err := m.service(t).AssignRole(ctx, userID, auth.RoleManager)
		errutil.AssertErrorCode(t, err, auth.CodeUnavailable)
	})
}

func TestService_RequestPasswordReset_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown identifier", func(t *testing.T) {
		m := newMockDeps(t)
		m.users.On("GetByContact", mock.Anything, "+15550100").Return(nil, auth.ErrNotFound)

		err := m.service(t).RequestPasswordReset(ctx, "+15550100")
		errutil.AssertErrorCode(t, err, auth.CodeIdentifierNotFound)
	})

	t.Run("empty identifier", func(t *testing.T) {
		m := newMockDeps(t)
		err := m.service(t).RequestPasswordReset(ctx, "")
		errutil.AssertErrorCode(t, err, auth.CodeInvalidInput)
	})

	t.Run("store fault while issuing", func(t *testing.T) {
		m := newMockDeps(t)
		user := &auth.User{ID: ulid.Make(), Email: "a@x.com"}
		m.users.On("GetByContact", mock.Anything, "a@x.com").Return(user, nil)
		m.passThrough()
		m.users.On("Lock", mock.Anything, user.ID).Return(nil)
		m.resets.On("GetLiveByUser", mock.Anything, user.ID, mock.AnythingOfType("time.Time")).Return(nil, assert.AnError)

		err := m.service(t).RequestPasswordReset(ctx, "a@x.com")
		errutil.AssertErrorCode(t, err, auth.CodeUnavailable)
	})
}

func TestService_ResetPassword_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("empty password is rejected before any lookup", func(t *testing.T) {
		m := newMockDeps(t)
		err := m.service(t).ResetPassword(ctx, "123456", "")
		errutil.AssertErrorCode(t, err, auth.CodeInvalidInput)
	})

	t.Run("empty code", func(t *testing.T) {
		m := newMockDeps(t)
		err := m.service(t).ResetPassword(ctx, "", "pw")
		errutil.AssertErrorCode(t, err, auth.CodeInvalidOrExpiredCode)
	})

	t.Run("unknown code leaves user untouched", func(t *testing.T) {
		m := newMockDeps(t)
		m.hasher.On("Hash", "pw").Return("hashed", nil)
		m.passThrough()
		m.resets.On("GetLiveByCode", mock.Anything, "123456", mock.AnythingOfType("time.Time")).Return(nil, auth.ErrNotFound)

		err := m.service(t).ResetPassword(ctx, "123456", "pw")
		errutil.AssertErrorCode(t, err, auth.CodeInvalidOrExpiredCode)
		m.users.AssertNotCalled(t, "UpdatePassword", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("code consumed by a concurrent reset", func(t *testing.T) {
		m := newMockDeps(t)
		userID := ulid.Make()
		token := &auth.ResetPasswordToken{ID: ulid.Make(), UserID: userID, Code: "123456"}
		m.hasher.On("Hash", "pw").Return("hashed", nil)
		m.passThrough()
		m.resets.On("GetLiveByCode", mock.Anything, "123456", mock.AnythingOfType("time.Time")).Return(token, nil)
		m.users.On("Lock", mock.Anything, userID).Return(nil)
		m.resets.On("GetLiveByCodeForUpdate", mock.Anything, "123456", mock.AnythingOfType("time.Time")).Return(nil, auth.ErrNotFound)

		err := m.service(t).ResetPassword(ctx, "123456", "pw")
		errutil.AssertErrorCode(t, err, auth.CodeInvalidOrExpiredCode)
	})
}

func TestService_UpdatePassword_Failures(t *testing.T) {
	ctx := context.Background()
	userID := ulid.Make()

	t.Run("unknown user", func(t *testing.T) {
		m := newMockDeps(t)
		m.passThrough()
		m.users.On("Lock", mock.Anything, userID).Return(auth.ErrNotFound)

		err := m.service(t).UpdatePassword(ctx, userID, "old", "new")
		errutil.AssertErrorCode(t, err, auth.CodeUserNotFound)
		m.users.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("incorrect password rolls back", func(t *testing.T) {
		m := newMockDeps(t)
		m.passThrough()
		m.users.On("Lock", mock.Anything, userID).Return(nil)
		m.users.On("GetByID", mock.Anything, userID).Return(&auth.User{ID: userID, PasswordHash: "stored"}, nil)
		m.hasher.On("Verify", "wrong", "stored").Return(false, nil)

		err := m.service(t).UpdatePassword(ctx, userID, "wrong", "new")
		errutil.AssertErrorCode(t, err, auth.CodeIncorrectPassword)
		m.users.AssertNotCalled(t, "UpdatePassword", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("persist failure", func(t *testing.T) {
		m := newMockDeps(t)
		m.passThrough()
		m.users.On("Lock", mock.Anything, userID).Return(nil)
		m.users.On("GetByID", mock.Anything, userID).Return(&auth.User{ID: userID, PasswordHash: "stored"}, nil)
		m.hasher.On("Verify", "old", "stored").Return(true, nil)
		m.hasher.On("Hash", "new").Return("hashed", nil)
		m.users.On("UpdatePassword", mock.Anything, userID, "hashed").Return(assert.AnError)

		err := m.service(t).UpdatePassword(ctx, userID, "old", "new")
		errutil.AssertErrorCode(t, err, auth.CodeUnavailable)
	})
}

func TestService_UpdatePassword_LocksUserBeforeReadingHash(t *testing.T) {
	ctx := context.Background()
	userID := ulid.Make()
	m := newMockDeps(t)

	var order []string
	m.tx.On("InTransaction", mock.Anything, mock.Anything).
		Return(func(ctx context.Context, fn func(context.Context) error) error {
			order = append(order, "begin")
			err := fn(ctx)
			order = append(order, "end")
			return err
		})
	m.users.On("Lock", mock.Anything, userID).
		Run(func(mock.Arguments) { order = append(order, "lock") }).Return(nil)
	m.users.On("GetByID", mock.Anything, userID).
		Run(func(mock.Arguments) { order = append(order, "read") }).
		Return(&auth.User{ID: userID, PasswordHash: "stored"}, nil)
	m.hasher.On("Verify", "old", "stored").Return(true, nil)
	m.hasher.On("Hash", "new").Return("hashed", nil)
	m.users.On("UpdatePassword", mock.Anything, userID, "hashed").
		Run(func(mock.Arguments) { order = append(order, "write") }).Return(nil)

	require.NoError(t, m.service(t).UpdatePassword(ctx, userID, "old", "new"))
	assert.Equal(t, []string{"begin", "lock", "read", "write", "end"}, order)
}

func TestService_RequestPasswordReset_DeliversThroughNotifier(t *testing.T) {
	ctx := context.Background()
	m := newMockDeps(t)
	user := &auth.User{ID: ulid.Make(), Email: "a@x.com", Phone: "+15550100"}

	m.users.On("GetByContact", mock.Anything, "+15550100").Return(user, nil)
	m.passThrough()
	m.users.On("Lock", mock.Anything, user.ID).Return(nil)
	m.resets.On("GetLiveByUser", mock.Anything, user.ID, mock.AnythingOfType("time.Time")).Return(nil, auth.ErrNotFound)
	m.resets.On("Create", mock.Anything, mock.AnythingOfType("*auth.ResetPasswordToken")).Return(nil)
	m.notifier.On("SendSMS", mock.Anything, "+15550100", mock.MatchedBy(func(body string) bool {
		return strings.Contains(body, "424242")
	})).Return(nil).Once()

	svc, err := auth.NewService(m.deps(), auth.WithCodeGenerator(func() (string, error) { return "424242", nil }))
	require.NoError(t, err)
	require.NoError(t, svc.RequestPasswordReset(ctx, "+15550100"))
	m.notifier.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
