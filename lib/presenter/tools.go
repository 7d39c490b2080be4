// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package presenter

import (
	"encoding/json"
	"strings"
)

// maxCommandLength bounds a shell command shown in the status slot.
const maxCommandLength = 50

// FormatToolUse renders a tool invocation as a one-line markdown status.
// Unknown tools, and known tools missing the field they are described
// by, render as the bare tool name.
func FormatToolUse(tool string, input json.RawMessage) string {
	var fields map[string]any
	if len(input) > 0 {
		_ = json.Unmarshal(input, &fields)
	}
	field := func(name string) string {
		value, _ := fields[name].(string)
		return singleLine(value)
	}

	describe := func(verb, value string) string {
		if value == "" {
			return tool
		}
		return verb + " " + codeSpan(value)
	}

	switch tool {
	case "Bash":
		command := field("command")
		if command == "" {
			return tool
		}
		if head, truncated := Truncate(command, maxCommandLength); truncated {
			command = head + "..."
		}
		return codeSpan(command)
	case "Read":
		return describe("Reading", field("file_path"))
	case "Write":
		return describe("Writing", field("file_path"))
	case "Edit", "MultiEdit":
		return describe("Editing", field("file_path"))
	case "NotebookEdit":
		return describe("Editing", field("notebook_path"))
	case "LS":
		return describe("Listing", field("path"))
	case "Glob", "Grep":
		return describe("Searching", field("pattern"))
	case "WebFetch":
		return describe("Fetching", field("url"))
	case "WebSearch":
		return describe("Searching the web for", field("query"))
	case "Task":
		if description := field("description"); description != "" {
			return "Task: " + description
		}
		return tool
	case "TodoWrite":
		return "Updating todos"
	default:
		return tool
	}
}

// singleLine joins the lines of text with single spaces. Whitespace
// inside a line is kept, since it can be significant in a command.
func singleLine(text string) string {
	var lines []string
	for line := range strings.Lines(text) {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, " ")
}

// codeSpan wraps text in a markdown code span whose fence is longer than
// any backtick run inside it. Text containing backticks is padded with a
// space on each side, which the markdown parser strips.
func codeSpan(text string) string {
	fence := "`"
	for strings.Contains(text, fence) {
		fence += "`"
	}
	if fence == "`" {
		return fence + text + fence
	}
	return fence + " " + text + " " + fence
}
