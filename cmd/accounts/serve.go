// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netserver Contributors

package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/netserver/accounts/internal/auth"
)

// shutdownTimeout bounds graceful shutdown of the observability server.
const shutdownTimeout = 5 * time.Second

func newServeCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the background service (token sweeper, metrics, health probes)",
		Long: `Run the long-lived accounts process. It removes expired reset codes on
an interval and serves Prometheus metrics and health probes on metrics.addr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServeWithDeps(cmd.Context(), cmd, deps)
		},
	}
}

// runServeWithDeps runs until a shutdown signal, context cancellation or an
// observability server failure.
func runServeWithDeps(ctx context.Context, cmd *cobra.Command, deps *Deps) error {
	cfg, logger, backend, err := openBackend(cmd, deps)
	if err != nil {
		return err
	}
	defer backend.close()

	logger.Info("connected to database")

	sweeper, err := auth.NewSweeper(backend.Resets, cfg.Reset.SweepInterval, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var obsServer ObservabilityServer
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, version, backend.Ready, auth.RegisterMetrics)
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return oops.Code("OBSERVABILITY_START_FAILED").With("addr", cfg.Metrics.Addr).Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
	}

	sigChan, stopSignals := deps.SignalNotifier()
	defer stopSignals()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sweeper.Run(ctx)
	}()

	fmt.Fprintln(cmd.ErrOrStderr(), "accounts service started")
	logger.Info("accounts service ready",
		"sweep_interval", cfg.Reset.SweepInterval,
		"metrics_addr", cfg.Metrics.Addr,
	)

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	cancel()
	wg.Wait()

	if obsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := obsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}

// monitorServerErrors cancels ctx when the server reports an error. It returns
// when the channel closes or ctx is done.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
