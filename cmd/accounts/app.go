// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netserver Contributors

package main

import (
	"log/slog"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/netserver/accounts/internal/auth"
	"github.com/netserver/accounts/internal/config"
	"github.com/netserver/accounts/internal/logging"
	"github.com/netserver/accounts/internal/token"
)

// app is the wiring shared by the account commands.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	backend *Backend
	issuer  *token.Issuer
	svc     *auth.Service
}

// setup loads and validates configuration and installs the default logger.
func setup(cmd *cobra.Command, deps *Deps) (*config.Config, *slog.Logger, error) {
	cfg, err := deps.ConfigLoader(configFile, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	logger, err := logging.SetDefault(logging.Options{
		Version: version,
		Format:  cfg.Log.Format,
		Level:   cfg.Log.Level,
		Writer:  cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// openBackend runs setup and opens the store. Callers must call close.
func openBackend(cmd *cobra.Command, deps *Deps) (*config.Config, *slog.Logger, *Backend, error) {
	cfg, logger, err := setup(cmd, deps)
	if err != nil {
		return nil, nil, nil, err
	}
	backend, err := deps.BackendFactory(cmd.Context(), cfg.Database)
	if err != nil {
		return nil, nil, nil, oops.Code("DB_CONNECT_FAILED").With("operation", "open store").Wrap(err)
	}
	return cfg, logger, backend, nil
}

// newApp builds the auth service and its collaborators from configuration.
func newApp(cmd *cobra.Command, deps *Deps) (*app, error) {
	cfg, logger, backend, err := openBackend(cmd, deps)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, backend: backend}
	if err := a.wire(deps); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(deps *Deps) error {
	issuer, err := token.NewIssuer(a.cfg.JWT)
	if err != nil {
		return err
	}
	notifier, err := deps.NotifierFactory(a.cfg.Notify, a.logger)
	if err != nil {
		return err
	}

	svc, err := auth.NewService(auth.Deps{
		Users:    a.backend.Users,
		Roles:    a.backend.Roles,
		Resets:   a.backend.Resets,
		Tx:       a.backend.Tx,
		Hasher:   auth.NewArgon2idHasherWithParams(a.cfg.Password.Argon2),
		Issuer:   issuer,
		Notifier: notifier,
	},
		auth.WithLogger(a.logger),
		auth.WithResetCodeTTL(a.cfg.Reset.CodeTTL),
		auth.WithDeliveryTimeout(a.cfg.Reset.DeliveryTimeout),
		auth.WithIssueTimeout(a.cfg.JWT.IssueTimeout),
		auth.WithCodeAttempts(a.cfg.Reset.CodeAttempts),
	)
	if err != nil {
		return oops.Code("CONFIG_INVALID").With("operation", "build auth service").Wrap(err)
	}

	a.issuer = issuer
	a.svc = svc
	return nil
}

func (a *app) close() {
	a.backend.close()
}
