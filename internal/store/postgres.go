// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netserver Contributors

// Package store owns the PostgreSQL connection pool and the account schema.
package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// DefaultConnectAttempts is how many times Connect pings before giving up.
const DefaultConnectAttempts = 5

// connectBackoff is the base delay between connection attempts.
var connectBackoff = 500 * time.Millisecond

// Connect opens a pool for databaseURL and waits until the server answers a ping.
// The database is often still starting when the service comes up, so pings are
// retried with exponential backoff up to attempts times.
func Connect(ctx context.Context, databaseURL string, attempts uint64) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").With("operation", "parse database url").Wrap(err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}

	if attempts == 0 {
		attempts = DefaultConnectAttempts
	}
	backoff := retry.WithMaxRetries(attempts-1, retry.NewExponential(connectBackoff))

	try := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		try++
		if err := pool.Ping(ctx); err != nil {
			slog.WarnContext(ctx, "database not ready", "attempt", try, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").
			With("operation", "ping database").
			With("attempts", try).
			Wrap(err)
	}
	return pool, nil
}
