// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netserver Contributors

package main

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/netserver/accounts/internal/auth"
	"github.com/netserver/accounts/internal/token"
)

func (h *harness) registerAlice(t *testing.T) ulid.ULID {
	t.Helper()
	out := h.mustRun(t, "user", "register",
		"--username", "alice",
		"--email", "alice@example.com",
		"--phone", "+15550100",
		"--password", "P1",
		"--first-name", "Alice",
	)
	id, err := ulid.Parse(out)
	require.NoError(t, err, "register prints the user id, got %q", out)
	return id
}

func TestUser_RegisterAndLogin(t *testing.T) {
	h := newHarness(t)
	id := h.registerAlice(t)

	user, ok := h.store.User(id)
	require.True(t, ok)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, auth.DefaultAvatar, user.AvatarURL)
	assert.Equal(t, auth.RoleUser, h.store.RoleOf(id))

	signed := h.mustRun(t, "user", "login", "--identifier", "alice@example.com", "--password", "P1")

	issuer, err := token.NewIssuer(token.Config{Secret: testJWTSecret, Issuer: "accounts", Audience: "accounts"})
	require.NoError(t, err)
	claims, err := issuer.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, id, claims.UserID)
	assert.Equal(t, auth.RoleUser, claims.Role)
	assert.Equal(t, "Alice", claims.FirstName)

	assert.Positive(t, h.closed.Load(), "store released after each command")
}

func TestUser_LoginFailures(t *testing.T) {
	h := newHarness(t)
	h.registerAlice(t)

	_, err := h.run(t, "user", "login", "--identifier", "alice", "--password", "wrong")
	assert.Equal(t, auth.CodeInvalidCredentials, auth.ErrorCode(err))
	assert.Equal(t, "invalid username/email or password [AUTH_INVALID_CREDENTIALS]", errorText(err))

	_, err = h.run(t, "user", "login", "--identifier", "+15550100", "--password", "P1")
	assert.Equal(t, auth.CodeInvalidCredentials, auth.ErrorCode(err), "phone is not a login identifier")
}

func TestUser_RegisterDuplicate(t *testing.T) {
	h := newHarness(t)
	h.registerAlice(t)

	_, err := h.run(t, "user", "register", "--username", "alice2", "--email", "alice@example.com", "--password", "P1")
	assert.Equal(t, auth.CodeDuplicateIdentity, auth.ErrorCode(err))
}

func TestUser_Roles(t *testing.T) {
	h := newHarness(t)
	id := h.registerAlice(t)

	assert.Equal(t, "Employee\nManager\nUser", h.mustRun(t, "user", "roles"))

	h.mustRun(t, "user", "assign-role", "--user-id", id.String(), "--role", auth.RoleManager)
	assert.Equal(t, auth.RoleManager, h.mustRun(t, "user", "role", "--user-id", id.String()))

	_, err := h.run(t, "user", "assign-role", "--user-id", id.String(), "--role", "Admin")
	assert.Equal(t, auth.CodeRoleNotFound, auth.ErrorCode(err))
	assert.Equal(t, auth.RoleManager, h.store.RoleOf(id), "failed assignment leaves the role unchanged")
}

func TestUser_InvalidUserID(t *testing.T) {
	h := newHarness(t)

	for _, args := range [][]string{
		{"user", "role"},
		{"user", "role", "--user-id", "not-a-ulid"},
		{"user", "assign-role", "--user-id", "nope", "--role", "User"},
		{"user", "password", "--current", "a", "--new", "b"},
	} {
		_, err := h.run(t, args...)
		assert.Equal(t, "INVALID_ARGUMENT", auth.ErrorCode(err), strings.Join(args, " "))
	}
}

func TestUser_Password(t *testing.T) {
	h := newHarness(t)
	id := h.registerAlice(t)

	_, err := h.run(t, "user", "password", "--user-id", id.String(), "--current", "nope", "--new", "P2")
	assert.Equal(t, auth.CodeIncorrectPassword, auth.ErrorCode(err))

	_, err = h.run(t, "user", "password", "--user-id", id.String(), "--current", "P1", "--new", "P1")
	assert.Equal(t, auth.CodeSamePassword, auth.ErrorCode(err))

	assert.Empty(t, h.mustRun(t, "user", "password", "--user-id", id.String(), "--current", "P1", "--new", "P2"))
	assert.Equal(t, "Password updated", h.stderr)
	h.mustRun(t, "user", "login", "--identifier", "alice", "--password", "P2")
}

func TestUser_Profile(t *testing.T) {
	h := newHarness(t)
	id := h.registerAlice(t)

	table := h.mustRun(t, "user", "profile", "--user-id", id.String())
	assert.Regexp(t, `USERNAME\s+alice`, table)
	assert.Regexp(t, `PHONE\s+\+15550100`, table)

	signed := h.mustRun(t, "user", "login", "--identifier", "alice", "--password", "P1")
	raw := h.mustRun(t, "user", "profile", "--token", signed, "--json")
	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(raw), &got))
	assert.Equal(t, id.String(), got["user_id"])
	assert.Equal(t, "alice@example.com", got["email"])

	raw = h.mustRun(t, "user", "profile", "--user-id", id.String(), "--yaml")
	var fromYAML map[string]string
	require.NoError(t, yaml.Unmarshal([]byte(raw), &fromYAML))
	assert.Equal(t, "alice", fromYAML["username"])
	assert.Equal(t, "+15550100", fromYAML["phone"])

	_, err := h.run(t, "user", "profile", "--user-id", id.String(), "--json", "--yaml")
	require.Error(t, err, "--json and --yaml are exclusive")

	_, err = h.run(t, "user", "profile", "--token", "garbage")
	assert.Equal(t, "TOKEN_INVALID", auth.ErrorCode(err))

	_, err = h.run(t, "user", "profile")
	assert.Equal(t, "INVALID_ARGUMENT", auth.ErrorCode(err))

	_, err = h.run(t, "user", "profile", "--user-id", ulid.Make().String())
	assert.Equal(t, auth.CodeUserNotFound, auth.ErrorCode(err))
}

func TestUser_UpdateProfileKeepsUnsetFields(t *testing.T) {
	h := newHarness(t)
	id := h.registerAlice(t)

	h.mustRun(t, "user", "update-profile", "--user-id", id.String(), "--last-name", "Liddell", "--phone", "")

	user, ok := h.store.User(id)
	require.True(t, ok)
	assert.Equal(t, "Alice", user.FirstName, "unset flag keeps the stored value")
	assert.Equal(t, "Liddell", user.LastName)
	assert.Empty(t, user.Phone, "explicitly empty flag clears the field")
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, auth.DefaultAvatar, user.AvatarURL)
}

func TestReset_RequestAndConfirm(t *testing.T) {
	h := newHarness(t)
	h.registerAlice(t)

	assert.Empty(t, h.mustRun(t, "reset", "request", "--identifier", "+15550100"))
	assert.Equal(t, "Reset code sent", h.stderr)
	msg := h.outbox.Last()
	assert.Equal(t, auth.ChannelSMS, msg.Channel)
	code := msg.Code()
	require.Len(t, code, 6)

	assert.Empty(t, h.mustRun(t, "reset", "confirm", "--code", code, "--password", "P9"))
	assert.Equal(t, "Password reset", h.stderr)
	h.mustRun(t, "user", "login", "--identifier", "alice", "--password", "P9")

	_, err := h.run(t, "reset", "confirm", "--code", code, "--password", "P10")
	assert.Equal(t, auth.CodeInvalidOrExpiredCode, auth.ErrorCode(err), "codes are single use")
}

func TestReset_UnknownIdentifier(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "reset", "request", "--identifier", "nobody@example.com")
	assert.Equal(t, auth.CodeIdentifierNotFound, auth.ErrorCode(err))
	assert.Empty(t, h.outbox.Messages())
}

func TestSweep_RemovesExpiredCodes(t *testing.T) {
	h := newHarness(t)
	id := h.registerAlice(t)

	now := time.Now()
	expired, err := auth.NewResetPasswordToken(id, "123456", now.Add(-time.Hour), now.Add(-time.Minute))
	require.NoError(t, err)
	h.store.PutToken(*expired)

	assert.Empty(t, h.mustRun(t, "sweep"), "stdout stays clean for scripts")
	assert.Equal(t, "Removed 1 expired reset codes", h.stderr)
	assert.Empty(t, h.store.Tokens(id))
}
