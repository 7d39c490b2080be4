// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package opencode

import (
	"encoding/json"
	"strings"
	"time"
	"unicode"

	"github.com/bureau-foundation/handset/lib/agentdriver"
)

// streamEvent is one line of "opencode run --format json" output.
type streamEvent struct {
	Type      string       `json:"type"`
	SessionID string       `json:"sessionID"`
	Part      *streamPart  `json:"part"`
	Error     *streamError `json:"error"`
}

type streamPart struct {
	Type  string     `json:"type"`
	Text  string     `json:"text"`
	Tool  string     `json:"tool"`
	State *toolState `json:"state"`
}

type toolState struct {
	Status string                     `json:"status"`
	Input  map[string]json.RawMessage `json:"input"`
	Output string                     `json:"output"`
	Error  string                     `json:"error"`
}

type streamError struct {
	Name string `json:"name"`
	Data struct {
		Message string `json:"message"`
	} `json:"data"`
}

// toolNames maps OpenCode's lowercase tool identifiers onto the names
// the presenter formats.
var toolNames = map[string]string{
	"bash":      "Bash",
	"read":      "Read",
	"write":     "Write",
	"edit":      "Edit",
	"multiedit": "MultiEdit",
	"glob":      "Glob",
	"grep":      "Grep",
	"list":      "LS",
	"webfetch":  "WebFetch",
	"websearch": "WebSearch",
	"task":      "Task",
	"todowrite": "TodoWrite",
	"todoread":  "TodoRead",
}

// CanonicalToolName returns the canonical spelling of an OpenCode tool
// name. Unknown names are returned unchanged.
func CanonicalToolName(name string) string {
	if canonical, ok := toolNames[strings.ToLower(name)]; ok {
		return canonical
	}
	return name
}

// snakeCase converts a camelCase key to snake_case ("filePath" becomes
// "file_path", "sessionID" becomes "session_id").
func snakeCase(key string) string {
	var builder strings.Builder
	var previous rune
	for _, r := range key {
		if unicode.IsUpper(r) {
			if previous != 0 && !unicode.IsUpper(previous) && previous != '_' {
				builder.WriteByte('_')
			}
			builder.WriteRune(unicode.ToLower(r))
		} else {
			builder.WriteRune(r)
		}
		previous = r
	}
	return builder.String()
}

// canonicalInput re-encodes tool input with snake_case keys.
func canonicalInput(input map[string]json.RawMessage) json.RawMessage {
	if len(input) == 0 {
		return json.RawMessage("{}")
	}
	canonical := make(map[string]json.RawMessage, len(input))
	for key, value := range input {
		canonical[snakeCase(key)] = value
	}
	encoded, err := json.Marshal(canonical)
	if err != nil {
		return json.RawMessage("{}")
	}
	return encoded
}

// Normalizer maps a sequence of OpenCode events onto normalized events.
// It is stateful across the turns of one task: the first event carrying
// a session ID produces the task's init event, and the session ID is
// kept for resuming subsequent turns. Not safe for concurrent use.
type Normalizer struct {
	sessionID string
	sawError  bool
}

// SessionID returns the OpenCode session ID seen so far, if any.
func (normalizer *Normalizer) SessionID() string { return normalizer.sessionID }

// SawError reports whether an error event has been normalized.
func (normalizer *Normalizer) SawError() bool { return normalizer.sawError }

// Normalize maps one event. step_start/step_finish and unknown types
// produce nothing beyond the synthesized init.
func (normalizer *Normalizer) Normalize(now time.Time, event streamEvent) []agentdriver.Event {
	var events []agentdriver.Event
	if normalizer.sessionID == "" && event.SessionID != "" {
		normalizer.sessionID = event.SessionID
		events = append(events, agentdriver.NewInit(now, event.SessionID, "", ""))
	}
	sessionID := normalizer.sessionID

	switch event.Type {
	case "text":
		if event.Part != nil && strings.TrimSpace(event.Part.Text) != "" {
			events = append(events, agentdriver.NewText(now, sessionID, event.Part.Text))
		}

	case "tool_use":
		if event.Part == nil {
			break
		}
		var input map[string]json.RawMessage
		if event.Part.State != nil {
			input = event.Part.State.Input
		}
		events = append(events, agentdriver.NewToolUse(now, sessionID, CanonicalToolName(event.Part.Tool), canonicalInput(input)))
		if state := event.Part.State; state != nil {
			isError := state.Status == "error"
			output := state.Output
			if isError && output == "" {
				output = state.Error
			}
			if output = strings.TrimSpace(output); output != "" {
				events = append(events, agentdriver.NewToolOutput(now, sessionID, output, isError))
			}
		}

	case "error":
		normalizer.sawError = true
		message := "OpenCode error"
		if event.Error != nil {
			switch {
			case event.Error.Data.Message != "":
				message = event.Error.Data.Message
			case event.Error.Name != "":
				message = event.Error.Name
			}
		}
		events = append(events, agentdriver.NewError(now, sessionID, message))
	}
	return events
}
