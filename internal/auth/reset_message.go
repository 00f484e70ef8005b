// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netserver Contributors

package auth

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/samber/oops"
)

// ResetEmailSubject is the subject line of reset code emails.
const ResetEmailSubject = "Reset password code"

var resetEmailTemplate = template.Must(template.New("reset").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
  <h2>Password reset</h2>
  <p>Use the following code to reset your password:</p>
  <p style="font-size: 24px; font-weight: bold; letter-spacing: 4px;">{{.Code}}</p>
  <p>This code is valid for {{.Minutes}} minutes. If you did not request a reset, you can ignore this message.</p>
</body>
</html>
`))

type resetMessageData struct {
	Code    string
	Minutes int
}

func ttlMinutes(ttl time.Duration) int {
	m := int(ttl.Round(time.Minute) / time.Minute)
	if m < 1 {
		return 1
	}
	return m
}

// RenderResetEmail renders the HTML body for a reset code email.
func RenderResetEmail(code string, ttl time.Duration) (string, error) {
	var buf bytes.Buffer
	if err := resetEmailTemplate.Execute(&buf, resetMessageData{Code: code, Minutes: ttlMinutes(ttl)}); err != nil {
		return "", oops.Code("RESET_RENDER_FAILED").Wrap(err)
	}
	return buf.String(), nil
}

// RenderResetSMS renders the plain-text body for a reset code SMS.
func RenderResetSMS(code string, ttl time.Duration) string {
	return fmt.Sprintf("Your password reset code is %s. It is valid for %d minutes.", code, ttlMinutes(ttl))
}
