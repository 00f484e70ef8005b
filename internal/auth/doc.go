// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netserver Contributors

// Package auth implements credential verification, role assignment, profiles, and
// the password reset code lifecycle.
//
// # Reset codes
//
// A reset code is a 6-digit number valid for five minutes. Each user has at most
// one live code: requesting again while it is live extends it and resends the same
// code. Codes are looked up by value alone, so stored codes are unique; a newly
// generated code that collides is replaced by another.
//
// # Errors
//
// Every error returned by Service carries an oops code (see errors.go). Storage
// and delivery faults surface as AUTH_UNAVAILABLE and RESET_DELIVERY_FAILED;
// Message maps any error to text that is safe to show to a user.
//
// # Concurrency
//
// Service holds no mutable state. Read-modify-write sequences run inside a
// Transactor and lock the affected user row, so per-user operations serialize in
// the database.
package auth
