// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netserver Contributors

package auth

import (
	"errors"

	"github.com/samber/oops"
)

// ErrNotFound is returned by repositories when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned by repositories when a write violates a uniqueness constraint.
var ErrDuplicate = errors.New("duplicate")

// Error codes attached to every error returned by Service.
const (
	CodeInvalidCredentials   = "AUTH_INVALID_CREDENTIALS"
	CodeRoleNotFound         = "AUTH_ROLE_NOT_FOUND"
	CodeUserNotFound         = "AUTH_USER_NOT_FOUND"
	CodeDuplicateIdentity    = "AUTH_DUPLICATE_IDENTITY"
	CodeIncorrectPassword    = "AUTH_INCORRECT_PASSWORD"
	CodeSamePassword         = "AUTH_SAME_PASSWORD"
	CodeInvalidInput         = "AUTH_INVALID_INPUT"
	CodeUnavailable          = "AUTH_UNAVAILABLE"
	CodeInvalidOrExpiredCode = "RESET_INVALID_OR_EXPIRED_CODE"
	CodeDeliveryFailed       = "RESET_DELIVERY_FAILED"
	CodeIdentifierNotFound   = "RESET_IDENTIFIER_NOT_FOUND"
)

// messages maps error codes to text that is safe to show to an end user.
var messages = map[string]string{
	CodeInvalidCredentials:   "invalid username/email or password",
	CodeRoleNotFound:         "user role not found",
	CodeUserNotFound:         "user not found",
	CodeDuplicateIdentity:    "username or email address already exists in another account",
	CodeIncorrectPassword:    "current password is incorrect",
	CodeSamePassword:         "current password and new password must be different",
	CodeInvalidOrExpiredCode: "invalid or expired code",
	CodeDeliveryFailed:       "the reset code could not be delivered, please try again",
	CodeIdentifierNotFound:   "no account is registered with that email address or phone number",
	CodeUnavailable:          "the service is temporarily unavailable, please try again later",
}

// ErrorCode returns the oops code carried by err, or "" if it has none.
func ErrorCode(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code, _ := oopsErr.Code().(string) //nolint:errcheck // type assertion, not an error
	return code
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code string) bool {
	return err != nil && ErrorCode(err) == code
}

// Message returns a user-facing message for err.
// Input validation errors expose their own text; everything else maps through the
// code table so storage details never reach the caller.
func Message(err error) string {
	if err == nil {
		return ""
	}
	code := ErrorCode(err)
	if code == CodeInvalidInput {
		if oopsErr, ok := oops.AsOops(err); ok {
			return oopsErr.Error()
		}
	}
	if msg, ok := messages[code]; ok {
		return msg
	}
	return messages[CodeUnavailable]
}

// IsServiceError reports whether err carries one of the codes Service returns,
// so Message has user-facing text for it.
func IsServiceError(err error) bool {
	return isDomainCode(ErrorCode(err))
}

// isDomainCode reports whether code is one of the kinds Service returns.
func isDomainCode(code string) bool {
	if code == CodeInvalidInput {
		return true
	}
	_, ok := messages[code]
	return ok
}

// unavailable classifies err. Errors that already carry a service code pass through
// untouched; anything else is an infrastructure fault.
func unavailable(operation string, err error) error {
	if isDomainCode(ErrorCode(err)) {
		return err
	}
	return withCode(CodeUnavailable, operation, err)
}

// withCode attaches code to err. oops reports the innermost code of a chain, so a
// cause that already carries a code is flattened instead of wrapped.
func withCode(code, operation string, err error) error {
	if cause := ErrorCode(err); cause != "" {
		return oops.Code(code).
			With("operation", operation).
			With("cause_code", cause).
			Errorf("%s: %v", operation, err)
	}
	return oops.Code(code).With("operation", operation).Wrap(err)
}

func invalidInput(format string, args ...any) error {
	return oops.Code(CodeInvalidInput).Errorf(format, args...)
}
