// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netserver Contributors

// Package main is the entry point for the accounts service and its admin CLI.
package main

import (
	"fmt"
	"os"

	"github.com/netserver/accounts/internal/auth"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cmd := NewRootCmd()
	cmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", errorText(err))
		os.Exit(1)
	}
}

// errorText renders err for the terminal. Service errors show their
// user-facing message and code; everything else shows the full chain.
func errorText(err error) string {
	if auth.IsServiceError(err) {
		return fmt.Sprintf("%s [%s]", auth.Message(err), auth.ErrorCode(err))
	}
	return err.Error()
}
