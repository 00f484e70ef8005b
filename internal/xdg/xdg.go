// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netserver Contributors

// Package xdg provides XDG Base Directory paths for accounts.
package xdg

import (
	"os"
	"path/filepath"
)

const appName = "accounts"

// ConfigDir returns the XDG config directory for accounts.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func ConfigDir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(base, appName)
}
