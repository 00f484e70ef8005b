// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netserver Contributors

// Package postgres provides PostgreSQL implementations of auth repositories.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// DB is the subset of *pgxpool.Pool the repositories use.
type DB interface {
	querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

// querier abstracts query execution for both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txKey struct{}

// conn returns the transaction carried by ctx, or db when there is none.
func conn(ctx context.Context, db DB) querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return db
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func parseID(field, value string) (ulid.ULID, error) {
	id, err := ulid.Parse(value)
	if err != nil {
		return ulid.ULID{}, oops.With("operation", "parse "+field).With(field, value).Wrap(err)
	}
	return id, nil
}
