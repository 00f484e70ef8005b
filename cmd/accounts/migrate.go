// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netserver Contributors

package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

// newMigrateCmd creates the migrate command and its subcommands.
func newMigrateCmd(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the account database schema",
		Long:  `Apply, roll back and inspect the embedded PostgreSQL schema migrations.`,
	}

	var upSteps int
	up := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if upSteps < 0 {
				return oops.Code("INVALID_ARGUMENT").With("steps", upSteps).Errorf("--steps must be positive")
			}
			return withMigrator(cmd, deps, func(m Migrator) error {
				fmt.Fprintln(cmd.ErrOrStderr(), "Running migrations...")
				var err error
				if upSteps > 0 {
					err = m.Steps(upSteps)
				} else {
					err = m.Up()
				}
				if err != nil {
					return err
				}
				return printVersion(cmd, m)
			})
		},
	}
	up.Flags().IntVar(&upSteps, "steps", 0, "apply at most this many migrations (default: all)")

	var (
		downSteps int
		downAll   bool
		confirmed bool
	)
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Long: `Roll back the last --steps migrations, or every migration with --all.
Rolling back everything drops all account data and requires --yes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch {
			case downAll && downSteps > 0:
				return oops.Code("INVALID_ARGUMENT").Errorf("--all and --steps are mutually exclusive")
			case downAll && !confirmed:
				return oops.Code("CONFIRMATION_REQUIRED").Errorf("migrate down --all drops all account data; pass --yes to confirm")
			case !downAll && downSteps <= 0:
				return oops.Code("INVALID_ARGUMENT").Errorf("pass --steps N or --all")
			}
			return withMigrator(cmd, deps, func(m Migrator) error {
				var err error
				if downAll {
					err = m.Down()
				} else {
					err = m.Steps(-downSteps)
				}
				if err != nil {
					return err
				}
				return printVersion(cmd, m)
			})
		},
	}
	down.Flags().IntVar(&downSteps, "steps", 0, "number of migrations to roll back")
	down.Flags().BoolVar(&downAll, "all", false, "roll back every migration")
	down.Flags().BoolVar(&confirmed, "yes", false, "confirm dropping all account data")

	cmd.AddCommand(
		up,
		down,
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrator(cmd, deps, func(m Migrator) error { return printVersion(cmd, m) })
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "List applied and pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrator(cmd, deps, func(m Migrator) error { return printStatus(cmd, m) })
			},
		},
		&cobra.Command{
			Use:   "force VERSION",
			Short: "Mark VERSION as applied and clear the dirty flag",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return oops.Code("INVALID_ARGUMENT").With("version", args[0]).Wrap(err)
				}
				return withMigrator(cmd, deps, func(m Migrator) error {
					if err := m.Force(v); err != nil {
						return err
					}
					return printVersion(cmd, m)
				})
			},
		},
	)
	return cmd
}

func withMigrator(cmd *cobra.Command, deps *Deps, fn func(Migrator) error) (err error) {
	cfg, _, err := setup(cmd, deps)
	if err != nil {
		return err
	}
	m, err := deps.MigratorFactory(cfg.Database.URL)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return fn(m)
}

func printVersion(cmd *cobra.Command, m Migrator) error {
	v, dirty, err := m.Version()
	if err != nil {
		return err
	}
	if dirty {
		fmt.Fprintf(cmd.OutOrStdout(), "Schema version: %d (dirty)\n", v)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Schema version: %d\n", v)
	return nil
}

func printStatus(cmd *cobra.Command, m Migrator) error {
	st, err := m.Status()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tNAME\tSTATE")
	for _, mig := range st.Applied {
		state := "applied"
		if st.Dirty && mig.Version == st.Version {
			state = "dirty"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\n", mig.Version, mig.Name, state)
	}
	for _, mig := range st.Pending {
		fmt.Fprintf(w, "%d\t%s\tpending\n", mig.Version, mig.Name)
	}
	return w.Flush()
}
