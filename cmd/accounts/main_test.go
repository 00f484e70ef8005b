// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netserver Contributors

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netserver/accounts/internal/auth"
	"github.com/netserver/accounts/internal/auth/authtest"
	"github.com/netserver/accounts/internal/config"
	"github.com/netserver/accounts/internal/notify"
	"github.com/netserver/accounts/internal/store"
)

const testJWTSecret = "cli-test-secret-that-is-32-bytes-long"

// harness runs the CLI against an in-memory store and fake servers.
type harness struct {
	store    *authtest.Store
	outbox   *authtest.Outbox
	migrator *fakeMigrator
	signals  chan os.Signal
	closed   atomic.Int32
	deps     *Deps
	stderr   string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("DATABASE_URL", "")
	t.Setenv("ACCOUNTS_DATABASE__URL", "postgres://test@localhost/accounts")
	t.Setenv("ACCOUNTS_JWT__SECRET", testJWTSecret)
	t.Setenv("ACCOUNTS_LOG__LEVEL", "error")
	t.Setenv("ACCOUNTS_PASSWORD__ARGON2__MEMORY_KIB", "1024")
	t.Setenv("ACCOUNTS_PASSWORD__ARGON2__THREADS", "1")

	original := slog.Default()
	t.Cleanup(func() { slog.SetDefault(original) })
	configFile = ""

	h := &harness{
		store:    authtest.NewStore(),
		outbox:   &authtest.Outbox{},
		migrator: &fakeMigrator{},
		signals:  make(chan os.Signal, 1),
	}
	h.deps = &Deps{
		BackendFactory: func(context.Context, config.DatabaseConfig) (*Backend, error) {
			return &Backend{
				Users:  h.store.Users(),
				Roles:  h.store.Roles(),
				Resets: h.store.Resets(),
				Tx:     h.store,
				Ready:  func(context.Context) error { return nil },
				Close:  func() { h.closed.Add(1) },
			}, nil
		},
		MigratorFactory: func(string) (Migrator, error) { return h.migrator, nil },
		NotifierFactory: func(notify.Config, *slog.Logger) (auth.Notifier, error) { return h.outbox, nil },
		SignalNotifier: func() (<-chan os.Signal, func()) {
			return h.signals, func() {}
		},
	}
	return h
}

// run executes the CLI and returns stdout. Status lines written to stderr are
// kept in h.stderr.
func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmdWithDeps(h.deps)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	h.stderr = strings.TrimSpace(errOut.String())
	return out.String(), err
}

// mustRun executes the CLI, fails the test on error, and returns trimmed stdout.
func (h *harness) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := h.run(t, args...)
	require.NoError(t, err, "accounts %s", strings.Join(args, " "))
	return strings.TrimSpace(out)
}

func TestRootCommand_HasExpectedSubcommands(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())

	for _, sub := range []string{"migrate", "serve", "user", "reset", "sweep"} {
		assert.Contains(t, buf.String(), sub, "help missing %q command", sub)
	}
}

func TestRootCommand_ConfigFlag(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantFlag string
	}{
		{"separate value", []string{"--config", "/path/to/config.yaml", "--help"}, "/path/to/config.yaml"},
		{"with equals", []string{"--config=/etc/accounts.yaml", "--help"}, "/etc/accounts.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configFile = ""
			cmd := NewRootCmd()
			cmd.SetOut(new(bytes.Buffer))
			cmd.SetArgs(tt.args)

			require.NoError(t, cmd.Execute())
			assert.Equal(t, tt.wantFlag, configFile)
		})
	}
}

func TestRootCommand_ConfigFileIsRead(t *testing.T) {
	h := newHarness(t)
	path := t.TempDir() + "/accounts.yaml"
	require.NoError(t, os.WriteFile(path, []byte("log:\n  format: xml\n"), 0o600))

	_, err := h.run(t, "--config", path, "sweep")
	assert.Equal(t, "CONFIG_INVALID", auth.ErrorCode(err))
}

func TestRootCommand_MissingDatabaseURL(t *testing.T) {
	h := newHarness(t)
	t.Setenv("ACCOUNTS_DATABASE__URL", "")

	_, err := h.run(t, "sweep")
	require.Error(t, err)
	assert.Equal(t, "CONFIG_INVALID", auth.ErrorCode(err))
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestRootCommand_DatabaseURLFlag(t *testing.T) {
	h := newHarness(t)
	t.Setenv("ACCOUNTS_DATABASE__URL", "")

	var gotURL string
	h.deps.MigratorFactory = func(url string) (Migrator, error) {
		gotURL = url
		return h.migrator, nil
	}
	h.mustRun(t, "--database-url", "postgres://flag@localhost/db", "migrate", "version")
	assert.Equal(t, "postgres://flag@localhost/db", gotURL)
}

func TestRootCommand_BackendFailure(t *testing.T) {
	h := newHarness(t)
	h.deps.BackendFactory = func(context.Context, config.DatabaseConfig) (*Backend, error) {
		return nil, errors.New("connection refused")
	}

	_, err := h.run(t, "user", "roles")
	assert.Equal(t, "DB_CONNECT_FAILED", auth.ErrorCode(err))
}

func TestErrorText(t *testing.T) {
	svcErr := oops.Code(auth.CodeInvalidCredentials).Errorf("user alice: bad hash")
	assert.Equal(t, "invalid username/email or password [AUTH_INVALID_CREDENTIALS]", errorText(svcErr))

	opErr := oops.Code("CONFIG_INVALID").Errorf("database.url is required")
	assert.Equal(t, "database.url is required", errorText(opErr))
}

// fakeMigrator records the calls made by the migrate commands.
type fakeMigrator struct {
	calls   []string
	version uint
	dirty   bool
	err     error
	closed  bool
}

func (m *fakeMigrator) record(call string) error {
	m.calls = append(m.calls, call)
	return m.err
}

func (m *fakeMigrator) Up() error   { return m.record("up") }
func (m *fakeMigrator) Down() error { return m.record("down") }

func (m *fakeMigrator) Steps(n int) error { return m.record(fmt.Sprintf("steps %d", n)) }

func (m *fakeMigrator) Version() (uint, bool, error) { return m.version, m.dirty, nil }

func (m *fakeMigrator) Force(v int) error {
	m.version = uint(v)
	m.dirty = false
	return m.record("force")
}

func (m *fakeMigrator) Status() (*store.Status, error) {
	return &store.Status{
		Version: m.version,
		Dirty:   m.dirty,
		Applied: []store.Migration{{Version: 1, Name: "000001_accounts"}},
		Pending: []store.Migration{{Version: 2, Name: "000002_reset_password_tokens"}},
	}, nil
}

func (m *fakeMigrator) Close() error {
	m.closed = true
	return nil
}
