// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netserver Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/netserver/accounts/internal/auth"
)

func newSweepCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired reset codes once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, backend, err := openBackend(cmd, deps)
			if err != nil {
				return err
			}
			defer backend.close()

			sweeper, err := auth.NewSweeper(backend.Resets, cfg.Reset.SweepInterval, logger)
			if err != nil {
				return err
			}
			n, err := sweeper.SweepOnce(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Removed %d expired reset codes\n", n)
			return nil
		},
	}
}
