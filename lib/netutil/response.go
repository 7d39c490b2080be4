// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil holds HTTP response helpers for JSON API clients.
//
// Every body read is bounded by [MaxResponseSize], so a misbehaving
// server cannot make a client allocate without limit. File downloads
// are not JSON responses and should be streamed with io.Copy instead.
package netutil

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// MaxResponseSize bounds JSON API response reads. Bot API replies are a
// few kilobytes; a batch of updates stays well under a megabyte.
const MaxResponseSize int64 = 16 << 20

// maxErrorBody bounds the body text quoted in error messages.
const maxErrorBody = 1024

// DecodeResponse reads body, up to MaxResponseSize, and decodes it as
// JSON into v.
func DecodeResponse(body io.Reader, v any) error {
	data, err := io.ReadAll(io.LimitReader(body, MaxResponseSize))
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding response body %q: %w", snippet(data), err)
	}
	return nil
}

// ErrorBody returns the start of an error response body for use in a
// diagnostic. Read errors are ignored; a partial body still helps.
func ErrorBody(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, maxErrorBody+1))
	return snippet(data)
}

func snippet(data []byte) string {
	text := strings.TrimSpace(string(data))
	if len(text) > maxErrorBody {
		return strings.ToValidUTF8(text[:maxErrorBody], "") + "..."
	}
	return text
}
