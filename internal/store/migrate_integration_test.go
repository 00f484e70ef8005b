// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netserver Contributors

//go:build integration

package store_test

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/netserver/accounts/internal/store"
)

var _ = Describe("Migrator", Ordered, func() {
	var (
		ctx       context.Context
		container *postgres.PostgresContainer
		connStr   string
		migrator  *store.Migrator
		pool      *pgxpool.Pool
	)

	BeforeAll(func() {
		ctx = context.Background()
		var err error
		container, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("accounts_test"),
			postgres.WithUsername("accounts"),
			postgres.WithPassword("accounts"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second),
			),
		)
		Expect(err).NotTo(HaveOccurred())

		connStr, err = container.ConnectionString(ctx, "sslmode=disable")
		Expect(err).NotTo(HaveOccurred())

		migrator, err = store.NewMigrator(connStr)
		Expect(err).NotTo(HaveOccurred())

		pool, err = store.Connect(ctx, connStr, 3)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterAll(func() {
		if pool != nil {
			pool.Close()
		}
		if migrator != nil {
			Expect(migrator.Close()).To(Succeed())
		}
		if container != nil {
			Expect(container.Terminate(ctx)).To(Succeed())
		}
	})

	It("starts empty", func() {
		version, dirty, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(BeZero())
		Expect(dirty).To(BeFalse())
	})

	It("applies every migration and seeds the roles", func() {
		Expect(migrator.Up()).To(Succeed())

		st, err := migrator.Status()
		Expect(err).NotTo(HaveOccurred())
		Expect(st.Pending).To(BeEmpty())
		Expect(st.Dirty).To(BeFalse())

		var names []string
		rows, err := pool.Query(ctx, `SELECT name FROM roles ORDER BY name`)
		Expect(err).NotTo(HaveOccurred())
		defer rows.Close()
		for rows.Next() {
			var name string
			Expect(rows.Scan(&name)).To(Succeed())
			names = append(names, name)
		}
		Expect(names).To(Equal([]string{"Employee", "Manager", "User"}))
	})

	It("rolls back and reapplies one step", func() {
		latest, _, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())

		Expect(migrator.Steps(-1)).To(Succeed())
		version, _, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal(latest - 1))

		Expect(migrator.Steps(1)).To(Succeed())
		version, _, err = migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal(latest))
	})

	It("rejects malformed reset codes at the schema level", func() {
		_, err := pool.Exec(ctx, `
			INSERT INTO users (id, username, email, password_hash)
			VALUES ('01JQ00000000000000000000AA', 'schema_check', 'schema@x.com', 'h')`)
		Expect(err).NotTo(HaveOccurred())

		_, err = pool.Exec(ctx, `
			INSERT INTO reset_password_tokens (id, user_id, code, expires_at)
			VALUES ('01JQ00000000000000000000AB', '01JQ00000000000000000000AA', '012345', now())`)
		Expect(err).To(HaveOccurred())
	})

	It("keys user_roles by user and role with one row per user", func() {
		var pkCols []string
		rows, err := pool.Query(ctx, `
			SELECT a.attname
			FROM pg_constraint c
			JOIN unnest(c.conkey) WITH ORDINALITY AS k(attnum, ord) ON true
			JOIN pg_attribute a ON a.attrelid = c.conrelid AND a.attnum = k.attnum
			WHERE c.conrelid = 'user_roles'::regclass AND c.contype = 'p'
			ORDER BY k.ord`)
		Expect(err).NotTo(HaveOccurred())
		defer rows.Close()
		for rows.Next() {
			var col string
			Expect(rows.Scan(&col)).To(Succeed())
			pkCols = append(pkCols, col)
		}
		Expect(pkCols).To(Equal([]string{"user_id", "role_id"}))

		_, err = pool.Exec(ctx, `
			INSERT INTO user_roles (user_id, role_id)
			VALUES ('01JQ00000000000000000000AA', '01JQ0000000000000000000001')`)
		Expect(err).NotTo(HaveOccurred())
		_, err = pool.Exec(ctx, `
			INSERT INTO user_roles (user_id, role_id)
			VALUES ('01JQ00000000000000000000AA', '01JQ0000000000000000000002')`)
		Expect(err).To(HaveOccurred(), "a second role for the same user violates user_roles_user_id_key")
	})

	It("drops everything on Down", func() {
		Expect(migrator.Down()).To(Succeed())
		version, _, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(BeZero())
	})
})
