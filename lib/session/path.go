// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"path/filepath"
	"strings"
)

// ResolvePath resolves input against cwd: "~" and "~/..." expand to
// home, relative paths join cwd, and the result is lexically cleaned.
// The filesystem is not consulted. An empty input resolves to home,
// like a bare "cd".
func ResolvePath(cwd, home, input string) string {
	input = strings.TrimSpace(input)
	switch {
	case input == "" || input == "~":
		return filepath.Clean(home)
	case strings.HasPrefix(input, "~/"):
		return filepath.Join(home, input[2:])
	case filepath.IsAbs(input):
		return filepath.Clean(input)
	default:
		return filepath.Join(cwd, input)
	}
}
