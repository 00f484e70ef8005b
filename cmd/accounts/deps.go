// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netserver Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"

	"github.com/netserver/accounts/internal/auth"
	"github.com/netserver/accounts/internal/auth/postgres"
	"github.com/netserver/accounts/internal/config"
	"github.com/netserver/accounts/internal/notify"
	"github.com/netserver/accounts/internal/observability"
	"github.com/netserver/accounts/internal/store"
)

// Deps contains injectable dependencies for every command.
// All fields with nil values will use their default implementations.
type Deps struct {
	// ConfigLoader reads configuration.
	// Default: config.Load
	ConfigLoader func(path string, flags *pflag.FlagSet) (*config.Config, error)

	// BackendFactory opens the account store.
	// Default: openPostgresBackend
	BackendFactory func(ctx context.Context, cfg config.DatabaseConfig) (*Backend, error)

	// MigratorFactory creates a schema migrator for a database URL.
	// Default: store.NewMigrator
	MigratorFactory func(databaseURL string) (Migrator, error)

	// NotifierFactory builds the reset code notifier.
	// Default: notify.New
	NotifierFactory func(cfg notify.Config, logger *slog.Logger) (auth.Notifier, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr, version string, ready observability.ReadinessChecker, register ...func(prometheus.Registerer)) ObservabilityServer

	// SignalNotifier delivers shutdown signals to serve.
	// Default: signal.Notify for SIGINT and SIGTERM
	SignalNotifier func() (<-chan os.Signal, func())
}

// Backend bundles the repositories over one store.
type Backend struct {
	Users  auth.UserRepository
	Roles  auth.RoleRepository
	Resets auth.ResetTokenRepository
	Tx     auth.Transactor

	// Ready reports whether the store is reachable.
	Ready observability.ReadinessChecker
	Close func()
}

func (b *Backend) close() {
	if b != nil && b.Close != nil {
		b.Close()
	}
}

// Migrator wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (version uint, dirty bool, err error)
	Force(version int) error
	Status() (*store.Status, error)
	Close() error
}

// ObservabilityServer wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}

// withDefaults returns a copy of deps with every nil factory filled in.
func withDefaults(deps *Deps) *Deps {
	d := Deps{}
	if deps != nil {
		d = *deps
	}
	if d.ConfigLoader == nil {
		d.ConfigLoader = config.Load
	}
	if d.BackendFactory == nil {
		d.BackendFactory = openPostgresBackend
	}
	if d.MigratorFactory == nil {
		d.MigratorFactory = func(databaseURL string) (Migrator, error) {
			return store.NewMigrator(databaseURL)
		}
	}
	if d.NotifierFactory == nil {
		d.NotifierFactory = notify.New
	}
	if d.ObservabilityServerFactory == nil {
		d.ObservabilityServerFactory = func(addr, version string, ready observability.ReadinessChecker, register ...func(prometheus.Registerer)) ObservabilityServer {
			return observability.NewServer(addr, version, ready, register...)
		}
	}
	if d.SignalNotifier == nil {
		d.SignalNotifier = func() (<-chan os.Signal, func()) {
			ch := make(chan os.Signal, 1)
			signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
			return ch, func() { signal.Stop(ch) }
		}
	}
	return &d
}

func openPostgresBackend(ctx context.Context, cfg config.DatabaseConfig) (*Backend, error) {
	pool, err := store.Connect(ctx, cfg.URL, cfg.ConnectAttempts)
	if err != nil {
		return nil, err
	}
	return &Backend{
		Users:  postgres.NewUserRepository(pool),
		Roles:  postgres.NewRoleRepository(pool),
		Resets: postgres.NewResetTokenRepository(pool),
		Tx:     postgres.NewTransactor(pool),
		Ready:  pool.Ping,
		Close:  pool.Close,
	}, nil
}
