// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package telegram

import (
	"errors"
	"fmt"
	"strings"
)

// APIError is an unsuccessful Bot API response. Callers can use
// errors.As to inspect it:
//
//	var apiErr *APIError
//	if errors.As(err, &apiErr) && apiErr.Code == 429 { ... }
type APIError struct {
	// Code is Telegram's error_code, which mirrors the HTTP status.
	Code int
	// Description is the human-readable error from Telegram.
	Description string
	// RetryAfter is the flood-control wait in seconds, when given.
	RetryAfter int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram: %d: %s", e.Code, e.Description)
}

// IsNotModified reports whether err is the error Telegram returns for
// an edit that leaves the message unchanged.
func IsNotModified(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == 400 && strings.Contains(apiErr.Description, "message is not modified")
	}
	return false
}

// IsUnauthorized reports whether err rejects the bot token.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == 401
	}
	return false
}
