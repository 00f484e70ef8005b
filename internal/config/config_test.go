// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netserver Contributors

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netserver/accounts/internal/auth"
	"github.com/netserver/accounts/internal/notify"
	"github.com/netserver/accounts/pkg/errutil"
)

// isolate points the default config path at an empty directory and clears
// database overrides from the environment.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv(DatabaseURLEnv, "")
	t.Setenv(EnvPrefix+"DATABASE__URL", "")
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "accounts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, uint64(5), cfg.Database.ConnectAttempts)
	assert.Equal(t, auth.DefaultResetCodeTTL, cfg.Reset.CodeTTL)
	assert.Equal(t, auth.DefaultDeliveryTimeout, cfg.Reset.DeliveryTimeout)
	assert.Equal(t, auth.DefaultSweepInterval, cfg.Reset.SweepInterval)
	assert.Equal(t, uint64(auth.DefaultCodeAttempts), cfg.Reset.CodeAttempts)
	assert.Equal(t, auth.DefaultArgon2Params, cfg.Password.Argon2)
	assert.Equal(t, notify.DriverLog, cfg.Notify.Driver)
	assert.Equal(t, notify.DefaultFromName, cfg.Notify.Email.FromName)
	assert.Equal(t, 587, cfg.Notify.Email.SMTPPort)
	assert.Equal(t, 30*time.Minute, cfg.JWT.TTL)
	assert.Equal(t, auth.DefaultIssueTimeout, cfg.JWT.IssueTimeout)
	assert.Empty(t, cfg.Database.URL)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	isolate(t)
	path := writeFile(t, `
database:
  url: postgres://file@localhost/accounts
reset:
  code_ttl: 10m
  code_attempts: 3
jwt:
  secret: file-secret-that-is-long-enough-xx
notify:
  driver: live
  email:
    from: no-reply@example.com
    smtp_host: smtp.example.com
  sms:
    account_sid: AC123
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "postgres://file@localhost/accounts", cfg.Database.URL)
	assert.Equal(t, 10*time.Minute, cfg.Reset.CodeTTL)
	assert.Equal(t, uint64(3), cfg.Reset.CodeAttempts)
	assert.Equal(t, "file-secret-that-is-long-enough-xx", cfg.JWT.Secret)
	assert.Equal(t, notify.DriverLive, cfg.Notify.Driver)
	assert.Equal(t, "smtp.example.com", cfg.Notify.Email.SMTPHost)
	assert.Equal(t, "AC123", cfg.Notify.SMS.AccountSID)
	assert.Equal(t, auth.DefaultDeliveryTimeout, cfg.Reset.DeliveryTimeout, "unset keys keep defaults")
}

func TestLoad_DefaultPathFromXDG(t *testing.T) {
	isolate(t)
	dir := filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "accounts")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log:\n  format: text\n"), 0o600))

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_ExplicitMissingFileFails(t *testing.T) {
	isolate(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	errutil.AssertErrorCode(t, err, "CONFIG_LOAD_FAILED")
}

func TestLoad_MalformedFileFails(t *testing.T) {
	isolate(t)
	_, err := Load(writeFile(t, "database: [unterminated"), nil)
	errutil.AssertErrorCode(t, err, "CONFIG_LOAD_FAILED")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	isolate(t)
	path := writeFile(t, "reset:\n  code_ttl: 10m\n")
	t.Setenv(EnvPrefix+"RESET__CODE_TTL", "2m")
	t.Setenv(EnvPrefix+"NOTIFY__EMAIL__SMTP_HOST", "mail.internal")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, cfg.Reset.CodeTTL)
	assert.Equal(t, "mail.internal", cfg.Notify.Email.SMTPHost)
}

func TestLoad_EmptyEnvDoesNotClearFile(t *testing.T) {
	isolate(t)
	path := writeFile(t, "log:\n  level: debug\ndatabase:\n  url: postgres://file@localhost/accounts\n")
	t.Setenv(EnvPrefix+"LOG__LEVEL", "")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "postgres://file@localhost/accounts", cfg.Database.URL)
}

func TestLoad_FlagClearsMetricsAddr(t *testing.T) {
	isolate(t)
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(flags)
	require.NoError(t, flags.Parse([]string{"--metrics-addr="}))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Empty(t, cfg.Metrics.Addr, "an explicit empty flag disables the listener")
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	isolate(t)
	t.Setenv(EnvPrefix+"LOG__FORMAT", "json")
	t.Setenv(EnvPrefix+"METRICS__ADDR", ":9200")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(flags)
	require.NoError(t, flags.Parse([]string{"--log-format=text", "--database-url=postgres://flag@localhost/db"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "postgres://flag@localhost/db", cfg.Database.URL)
	assert.Equal(t, ":9200", cfg.Metrics.Addr, "unchanged flags do not clobber env")
}

func TestLoad_DatabaseURLFallback(t *testing.T) {
	isolate(t)
	t.Setenv(DatabaseURLEnv, "postgres://fallback@localhost/db")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "postgres://fallback@localhost/db", cfg.Database.URL)

	t.Setenv(EnvPrefix+"DATABASE__URL", "postgres://prefixed@localhost/db")
	cfg, err = Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "postgres://prefixed@localhost/db", cfg.Database.URL, "prefixed variable wins")
}

func TestValidate(t *testing.T) {
	isolate(t)
	valid := func(t *testing.T) *Config {
		t.Helper()
		cfg, err := Load("", nil)
		require.NoError(t, err)
		cfg.Database.URL = "postgres://localhost/accounts"
		return cfg
	}
	require.NoError(t, valid(t).Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing database url", func(c *Config) { c.Database.URL = "" }},
		{"unknown log format", func(c *Config) { c.Log.Format = "xml" }},
		{"unknown log level", func(c *Config) { c.Log.Level = "loud" }},
		{"zero code ttl", func(c *Config) { c.Reset.CodeTTL = 0 }},
		{"zero delivery timeout", func(c *Config) { c.Reset.DeliveryTimeout = 0 }},
		{"zero issue timeout", func(c *Config) { c.JWT.IssueTimeout = 0 }},
		{"zero sweep interval", func(c *Config) { c.Reset.SweepInterval = 0 }},
		{"zero code attempts", func(c *Config) { c.Reset.CodeAttempts = 0 }},
		{"zero argon2 memory", func(c *Config) { c.Password.Argon2.MemoryKiB = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid(t)
			tt.mutate(cfg)
			errutil.AssertErrorCode(t, cfg.Validate(), "CONFIG_INVALID")
		})
	}
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "reset.code_ttl", envKey("ACCOUNTS_RESET__CODE_TTL"))
	assert.Equal(t, "notify.sms.account_sid", envKey("ACCOUNTS_NOTIFY__SMS__ACCOUNT_SID"))

	key, value := envValue("ACCOUNTS_LOG__LEVEL", "warn")
	assert.Equal(t, "log.level", key)
	assert.Equal(t, "warn", value)

	key, _ = envValue("ACCOUNTS_LOG__LEVEL", "")
	assert.Empty(t, key, "empty variables are skipped")
}
