// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agentdriver

import (
	"encoding/json"
	"time"
)

// EventType classifies normalized agent events.
type EventType string

const (
	// EventTypeInit is the first event of a task. It carries the
	// backend session identifier used to resume the conversation.
	EventTypeInit EventType = "init"

	// EventTypeToolUse is a tool invocation by the agent.
	EventTypeToolUse EventType = "tool_use"

	// EventTypeToolOutput is the visible output of a tool invocation.
	EventTypeToolOutput EventType = "tool_output"

	// EventTypeText is a text segment from the agent.
	EventTypeText EventType = "text"

	// EventTypeError is an error reported by the backend mid-task.
	EventTypeError EventType = "error"

	// EventTypeDone is the terminal event of a task.
	EventTypeDone EventType = "done"
)

// Event is a normalized agent event. Exactly one payload pointer is set,
// matching Type. Events are serialized as JSONL in transcripts.
type Event struct {
	// Timestamp is when the event was normalized.
	Timestamp time.Time `json:"timestamp"`

	// Type classifies the event.
	Type EventType `json:"type"`

	Init       *InitEvent       `json:"init,omitempty"`
	ToolUse    *ToolUseEvent    `json:"tool_use,omitempty"`
	ToolOutput *ToolOutputEvent `json:"tool_output,omitempty"`
	Text       *TextEvent       `json:"text,omitempty"`
	Error      *ErrorEvent      `json:"error,omitempty"`
	Done       *DoneEvent       `json:"done,omitempty"`
}

// InitEvent records the start of a backend session.
type InitEvent struct {
	SessionID string `json:"session_id"`

	// Model is the model name when the backend reports one.
	Model string `json:"model,omitempty"`

	// Cwd is the working directory the backend reports.
	Cwd string `json:"cwd,omitempty"`
}

// ToolUseEvent records a tool invocation.
type ToolUseEvent struct {
	SessionID string `json:"session_id"`

	// Tool is the canonical tool name (e.g., "Bash", "Read", "Edit").
	// Backends with different naming conventions map onto these names.
	Tool string `json:"tool"`

	// Input is the tool input object, preserved as raw JSON. Keys follow
	// the canonical naming ("command", "file_path", "pattern", ...).
	Input json.RawMessage `json:"input,omitempty"`
}

// ToolOutputEvent records visible tool output.
type ToolOutputEvent struct {
	SessionID string `json:"session_id"`

	// Output is the trimmed combined output.
	Output string `json:"output"`

	// IsError is set when the tool wrote to stderr or reported failure.
	IsError bool `json:"is_error,omitempty"`
}

// TextEvent records a text segment from the agent.
type TextEvent struct {
	SessionID string `json:"session_id"`
	Content   string `json:"content"`
}

// ErrorEvent records a backend-reported error that does not end the task.
type ErrorEvent struct {
	SessionID string `json:"session_id,omitempty"`
	Content   string `json:"content"`
}

// DoneEvent records the end of a task.
type DoneEvent struct {
	SessionID string `json:"session_id,omitempty"`

	// DurationMS is the task duration in milliseconds. Zero when the
	// backend did not report one.
	DurationMS int64 `json:"duration_ms,omitempty"`

	IsError bool `json:"is_error,omitempty"`

	// Content is the backend's error text when IsError is set.
	Content string `json:"content,omitempty"`
}

// SessionID returns the backend session identifier carried by the
// event's payload, or "" when there is none.
func (event Event) SessionID() string {
	switch event.Type {
	case EventTypeInit:
		if event.Init != nil {
			return event.Init.SessionID
		}
	case EventTypeToolUse:
		if event.ToolUse != nil {
			return event.ToolUse.SessionID
		}
	case EventTypeToolOutput:
		if event.ToolOutput != nil {
			return event.ToolOutput.SessionID
		}
	case EventTypeText:
		if event.Text != nil {
			return event.Text.SessionID
		}
	case EventTypeError:
		if event.Error != nil {
			return event.Error.SessionID
		}
	case EventTypeDone:
		if event.Done != nil {
			return event.Done.SessionID
		}
	}
	return ""
}

// NewInit, NewToolUse, NewToolOutput, NewText, NewError, and NewDone
// construct events with the payload pointer set and the timestamp taken
// from now.

func NewInit(now time.Time, sessionID, model, cwd string) Event {
	return Event{Timestamp: now, Type: EventTypeInit, Init: &InitEvent{SessionID: sessionID, Model: model, Cwd: cwd}}
}

func NewToolUse(now time.Time, sessionID, tool string, input json.RawMessage) Event {
	return Event{Timestamp: now, Type: EventTypeToolUse, ToolUse: &ToolUseEvent{SessionID: sessionID, Tool: tool, Input: input}}
}

func NewToolOutput(now time.Time, sessionID, output string, isError bool) Event {
	return Event{Timestamp: now, Type: EventTypeToolOutput, ToolOutput: &ToolOutputEvent{SessionID: sessionID, Output: output, IsError: isError}}
}

func NewText(now time.Time, sessionID, content string) Event {
	return Event{Timestamp: now, Type: EventTypeText, Text: &TextEvent{SessionID: sessionID, Content: content}}
}

func NewError(now time.Time, sessionID, content string) Event {
	return Event{Timestamp: now, Type: EventTypeError, Error: &ErrorEvent{SessionID: sessionID, Content: content}}
}

func NewDone(now time.Time, sessionID string, durationMS int64, isError bool, content string) Event {
	return Event{Timestamp: now, Type: EventTypeDone, Done: &DoneEvent{SessionID: sessionID, DurationMS: durationMS, IsError: isError, Content: content}}
}
