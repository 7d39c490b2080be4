// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"strings"
	"testing"
)

func TestFormat(t *testing.T) {
	t.Parallel()

	got := format("1.2.0", "abc1234", "go1.25.6", "linux/amd64")
	if want := "handset 1.2.0 (abc1234, go1.25.6 linux/amd64)"; got != want {
		t.Errorf("format = %q, want %q", got, want)
	}
}

func TestInfoNamesVersion(t *testing.T) {
	t.Parallel()

	if info := Info(); !strings.HasPrefix(info, "handset "+Version+" (") {
		t.Errorf("Info = %q", info)
	}
}
