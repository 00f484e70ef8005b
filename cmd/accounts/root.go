// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netserver Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/netserver/accounts/internal/config"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the accounts CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmdWithDeps(nil)
}

func newRootCmdWithDeps(deps *Deps) *cobra.Command {
	deps = withDefaults(deps)

	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "accounts - credentials, roles and password reset codes",
		Long: `accounts manages user credentials, role assignment and the
password reset code lifecycle on PostgreSQL.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: $XDG_CONFIG_HOME/accounts/config.yaml)")
	config.BindFlags(cmd.PersistentFlags())

	cmd.AddCommand(newMigrateCmd(deps))
	cmd.AddCommand(newServeCmd(deps))
	cmd.AddCommand(newUserCmd(deps))
	cmd.AddCommand(newResetCmd(deps))
	cmd.AddCommand(newSweepCmd(deps))

	return cmd
}
