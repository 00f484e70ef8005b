// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netserver Contributors

package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/netserver/accounts/pkg/errutil"
)

// DefaultSweepInterval is how often the sweeper removes expired reset tokens.
const DefaultSweepInterval = time.Minute

// Sweeper periodically deletes expired reset tokens. ResetPassword already removes
// a user's stale rows on success; the sweeper covers users who never finish a reset.
type Sweeper struct {
	resets   ResetTokenRepository
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// NewSweeper creates a Sweeper. A non-positive interval uses DefaultSweepInterval.
func NewSweeper(resets ResetTokenRepository, interval time.Duration, logger *slog.Logger) (*Sweeper, error) {
	if resets == nil {
		return nil, oops.Errorf("reset token repository is required")
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{resets: resets, interval: interval, now: time.Now, logger: logger}, nil
}

// SweepOnce deletes every expired token and returns how many were removed.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	n, err := s.resets.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, oops.Code("RESET_SWEEP_FAILED").With("operation", "delete expired tokens").Wrap(err)
	}
	TokensSwept.Add(float64(n))
	if n > 0 {
		s.logger.InfoContext(ctx, "expired reset tokens removed", "count", n)
	}
	return n, nil
}

// Run sweeps every interval until ctx is cancelled. Sweep failures are logged and
// retried on the next tick.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil && ctx.Err() == nil {
				errutil.LogError(ctx, s.logger, "reset token sweep failed", err)
			}
		}
	}
}
