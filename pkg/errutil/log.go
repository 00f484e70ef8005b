// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netserver Contributors

// Package errutil logs and asserts oops errors.
package errutil

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
)

// LogError logs err at error level through logger, or slog.Default() when
// logger is nil. For oops errors the code and context are logged as separate
// attributes. ctx carries the trace used for log correlation.
func LogError(ctx context.Context, logger *slog.Logger, msg string, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		logger.ErrorContext(ctx, msg, "error", err)
		return
	}

	attrs := []any{"error", oopsErr.Error()}
	if code := oopsErr.Code(); code != nil {
		attrs = append(attrs, "code", code)
	}
	if errCtx := oopsErr.Context(); len(errCtx) > 0 {
		attrs = append(attrs, "context", errCtx)
	}
	logger.ErrorContext(ctx, msg, attrs...)
}
