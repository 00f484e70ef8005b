// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netserver Contributors

// Package config loads accounts settings from defaults, a YAML file, the
// environment and command-line flags, in that order of precedence.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/netserver/accounts/internal/auth"
	"github.com/netserver/accounts/internal/logging"
	"github.com/netserver/accounts/internal/notify"
	"github.com/netserver/accounts/internal/token"
	"github.com/netserver/accounts/internal/xdg"
)

// EnvPrefix is the prefix of environment overrides. Nested keys are separated
// by a double underscore: ACCOUNTS_RESET__CODE_TTL sets reset.code_ttl. Empty
// variables are ignored; clear a setting with the file or a flag instead.
const EnvPrefix = "ACCOUNTS_"

// DatabaseURLEnv is read when database.url is otherwise unset.
const DatabaseURLEnv = "DATABASE_URL"

// Config is the complete accounts configuration.
type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Log      LogConfig      `koanf:"log"`
	JWT      token.Config   `koanf:"jwt"`
	Reset    ResetConfig    `koanf:"reset"`
	Password PasswordConfig `koanf:"password"`
	Notify   notify.Config  `koanf:"notify"`
	Metrics  MetricsConfig  `koanf:"metrics"`
}

// DatabaseConfig locates PostgreSQL.
type DatabaseConfig struct {
	URL             string `koanf:"url"`
	ConnectAttempts uint64 `koanf:"connect_attempts"`
}

// LogConfig selects the log output format ("json" or "text") and level.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// ResetConfig tunes the reset code lifecycle.
type ResetConfig struct {
	CodeTTL         time.Duration `koanf:"code_ttl"`
	DeliveryTimeout time.Duration `koanf:"delivery_timeout"`
	SweepInterval   time.Duration `koanf:"sweep_interval"`
	CodeAttempts    uint64        `koanf:"code_attempts"`
}

// PasswordConfig holds the argon2id cost parameters for new hashes.
type PasswordConfig struct {
	Argon2 auth.Argon2Params `koanf:"argon2"`
}

// MetricsConfig holds the observability listener address. Empty disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

func defaults() map[string]any {
	return map[string]any{
		"database.url":               "",
		"database.connect_attempts":  5,
		"log.format":                 "json",
		"log.level":                  "info",
		"jwt.secret":                 "",
		"jwt.issuer":                 "accounts",
		"jwt.audience":               "accounts",
		"jwt.ttl":                    token.DefaultTTL.String(),
		"jwt.issue_timeout":          auth.DefaultIssueTimeout.String(),
		"reset.code_ttl":             auth.DefaultResetCodeTTL.String(),
		"reset.delivery_timeout":     auth.DefaultDeliveryTimeout.String(),
		"reset.sweep_interval":       auth.DefaultSweepInterval.String(),
		"reset.code_attempts":        auth.DefaultCodeAttempts,
		"password.argon2.time":       auth.DefaultArgon2Params.Time,
		"password.argon2.memory_kib": auth.DefaultArgon2Params.MemoryKiB,
		"password.argon2.threads":    auth.DefaultArgon2Params.Threads,
		"notify.driver":              notify.DriverLog,
		"notify.email.from_name":     notify.DefaultFromName,
		"notify.email.smtp_port":     587,
		"metrics.addr":               "127.0.0.1:9100",
	}
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"database-url":  "database.url",
	"log-format":    "log.format",
	"log-level":     "log.level",
	"metrics-addr":  "metrics.addr",
	"notify-driver": "notify.driver",
}

// BindFlags registers the flags that can override config keys.
func BindFlags(flags *pflag.FlagSet) {
	flags.String("database-url", "", "PostgreSQL connection URL")
	flags.String("log-format", "", "log format (json or text)")
	flags.String("log-level", "", "log level (debug, info, warn or error)")
	flags.String("metrics-addr", "", "metrics and health listen address")
	flags.String("notify-driver", "", "reset code delivery driver (log or live)")
}

// DefaultPath is the config file read when no path is given.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigDir(), "config.yaml")
}

// Load builds a Config. A missing file at the default path is not an error; a
// missing file at an explicit path is. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "defaults").Wrap(err)
	}

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "file").With("path", path).Wrap(err)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envValue), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	if k.String("database.url") == "" {
		if url := os.Getenv(DatabaseURLEnv); url != "" {
			if err := k.Set("database.url", url); err != nil {
				return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", DatabaseURLEnv).Wrap(err)
			}
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("operation", "decode config").Wrap(err)
	}
	return &cfg, nil
}

func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// envValue skips variables that are set but empty so they never clear a value
// from the file or the defaults.
func envValue(key, value string) (string, any) {
	if value == "" {
		return "", nil
	}
	return envKey(key), value
}

// Validate checks the settings every command needs. Token and notifier settings
// are checked by their constructors.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").
			Errorf("database.url is required (set %sDATABASE__URL or %s)", EnvPrefix, DatabaseURLEnv)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return oops.Code("CONFIG_INVALID").With("log.format", c.Log.Format).
			Errorf("log.format must be json or text")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return oops.Code("CONFIG_INVALID").With("log.level", c.Log.Level).
			Errorf("log.level must be debug, info, warn or error")
	}
	if c.Reset.CodeTTL <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("reset.code_ttl must be positive")
	}
	if c.Reset.DeliveryTimeout <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("reset.delivery_timeout must be positive")
	}
	if c.JWT.IssueTimeout <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("jwt.issue_timeout must be positive")
	}
	if c.Reset.SweepInterval <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("reset.sweep_interval must be positive")
	}
	if c.Reset.CodeAttempts == 0 {
		return oops.Code("CONFIG_INVALID").Errorf("reset.code_attempts must be at least 1")
	}
	if c.Password.Argon2.Time == 0 || c.Password.Argon2.MemoryKiB == 0 || c.Password.Argon2.Threads == 0 {
		return oops.Code("CONFIG_INVALID").Errorf("password.argon2 parameters must be positive")
	}
	return nil
}
