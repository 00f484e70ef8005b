// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netserver Contributors

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newResetCmd(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Request and redeem password reset codes",
	}

	var identifier string
	request := &cobra.Command{
		Use:   "request",
		Short: "Send a reset code to a registered email address or phone number",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, deps, func(ctx context.Context, a *app) error {
				if err := a.svc.RequestPasswordReset(ctx, identifier); err != nil {
					return err
				}
				fmt.Fprintln(cmd.ErrOrStderr(), "Reset code sent")
				return nil
			})
		},
	}
	request.Flags().StringVar(&identifier, "identifier", "", "email address or phone number")

	var code, password string
	confirm := &cobra.Command{
		Use:   "confirm",
		Short: "Set a new password using a reset code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, deps, func(ctx context.Context, a *app) error {
				if err := a.svc.ResetPassword(ctx, code, password); err != nil {
					return err
				}
				fmt.Fprintln(cmd.ErrOrStderr(), "Password reset")
				return nil
			})
		},
	}
	confirm.Flags().StringVar(&code, "code", "", "six-digit reset code")
	confirm.Flags().StringVar(&password, "password", "", "new password")

	cmd.AddCommand(request, confirm)
	return cmd
}
