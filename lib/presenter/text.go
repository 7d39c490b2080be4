// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package presenter

import (
	"regexp"
	"strings"
)

const (
	// OutputLimit bounds tool output shown in the output slot.
	OutputLimit = 1000

	// ResponseLimit bounds the response slot before it gains an
	// expansion button.
	ResponseLimit = 1500

	// TruncationMarker follows truncated tool output.
	TruncationMarker = "\n… (truncated)"
)

var thinkingPattern = regexp.MustCompile(`(?s)<thinking>.*?</thinking>`)

// StripThinking removes every <thinking>...</thinking> span and trims
// the remainder.
func StripThinking(text string) string {
	return strings.TrimSpace(thinkingPattern.ReplaceAllString(text, ""))
}

// Truncate returns the first limit characters of text, and whether
// anything was cut. Characters are runes, so multi-byte text is never
// split mid-character.
func Truncate(text string, limit int) (string, bool) {
	if len(text) <= limit {
		return text, false
	}
	count := 0
	for index := range text {
		if count == limit {
			return text[:index], true
		}
		count++
	}
	return text, false
}

// TruncateOutput applies OutputLimit and appends TruncationMarker when
// output was cut.
func TruncateOutput(output string) string {
	head, truncated := Truncate(output, OutputLimit)
	if truncated {
		return head + TruncationMarker
	}
	return head
}
