// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"errors"
	"strings"
	"testing"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestDecodeResponse(t *testing.T) {
	t.Parallel()

	var result struct {
		OK     bool  `json:"ok"`
		Result int64 `json:"result"`
	}
	if err := DecodeResponse(strings.NewReader(`{"ok":true,"result":42}`), &result); err != nil {
		t.Fatalf("DecodeResponse: %v", err)
	}
	if !result.OK || result.Result != 42 {
		t.Errorf("result = %+v", result)
	}

	err := DecodeResponse(strings.NewReader("<html>Bad Gateway</html>"), &result)
	if err == nil || !strings.Contains(err.Error(), "Bad Gateway") {
		t.Errorf("err = %v, want the body quoted", err)
	}

	if err := DecodeResponse(failingReader{}, &result); err == nil || !strings.Contains(err.Error(), "connection reset") {
		t.Errorf("err = %v, want the read error", err)
	}
}

func TestErrorBody(t *testing.T) {
	t.Parallel()

	if got := ErrorBody(strings.NewReader("  not found\n")); got != "not found" {
		t.Errorf("ErrorBody = %q", got)
	}
	long := ErrorBody(strings.NewReader(strings.Repeat("x", 5000)))
	if len(long) != maxErrorBody+len("...") || !strings.HasSuffix(long, "...") {
		t.Errorf("long body has %d bytes", len(long))
	}
	if got := ErrorBody(failingReader{}); got != "" {
		t.Errorf("ErrorBody on failure = %q", got)
	}
}
