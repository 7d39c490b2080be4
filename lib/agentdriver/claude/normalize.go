// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package claude

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/bureau-foundation/handset/lib/agentdriver"
)

// streamEvent is the union of the Claude Code stream-json event shapes
// handset consumes. Fields irrelevant to a given type are zero.
type streamEvent struct {
	Type      string `json:"type"`
	Subtype   string `json:"subtype"`
	SessionID string `json:"session_id"`

	// system/init
	Model string `json:"model"`
	Cwd   string `json:"cwd"`

	// assistant and user
	Message *streamMessage `json:"message"`

	// user: structured result of the tool call the message answers.
	// An object with stdout/stderr for shell-like tools, a bare string
	// or absent for others.
	ToolUseResult json.RawMessage `json:"tool_use_result"`

	// result
	IsError    bool   `json:"is_error"`
	DurationMS int64  `json:"duration_ms"`
	Result     string `json:"result"`
}

type streamMessage struct {
	// Content is either a string or an array of content blocks.
	Content json.RawMessage `json:"content"`
}

type contentBlock struct {
	Type  string          `json:"type"`
	Text  string          `json:"text"`
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

type shellResult struct {
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
}

// blocks returns the message content blocks, or nil when the content
// is a plain string or missing.
func (message *streamMessage) blocks() []contentBlock {
	if message == nil || len(message.Content) == 0 || message.Content[0] != '[' {
		return nil
	}
	var blocks []contentBlock
	if err := json.Unmarshal(message.Content, &blocks); err != nil {
		return nil
	}
	return blocks
}

// Normalize maps one Claude Code stream-json event onto normalized
// events. Events without user-visible content (thinking blocks, empty
// text, hook and status system messages, tool results without shell
// output) produce nothing. An assistant message normally carries a
// single content block; one carrying several produces one event per
// visible block, in order.
func Normalize(now time.Time, event streamEvent) []agentdriver.Event {
	switch event.Type {
	case "system":
		if event.Subtype != "init" {
			return nil
		}
		return []agentdriver.Event{agentdriver.NewInit(now, event.SessionID, event.Model, event.Cwd)}

	case "assistant":
		var events []agentdriver.Event
		for _, block := range event.Message.blocks() {
			switch block.Type {
			case "text":
				if strings.TrimSpace(block.Text) == "" {
					continue
				}
				events = append(events, agentdriver.NewText(now, event.SessionID, block.Text))
			case "tool_use":
				events = append(events, agentdriver.NewToolUse(now, event.SessionID, block.Name, block.Input))
			}
		}
		return events

	case "user":
		output, isError, ok := shellOutput(event.ToolUseResult)
		if !ok {
			return nil
		}
		return []agentdriver.Event{agentdriver.NewToolOutput(now, event.SessionID, output, isError)}

	case "result":
		isError := event.IsError || strings.HasPrefix(event.Subtype, "error")
		var content string
		if isError {
			content = event.Result
			if content == "" {
				content = event.Subtype
			}
		}
		return []agentdriver.Event{agentdriver.NewDone(now, event.SessionID, event.DurationMS, isError, content)}

	default:
		return nil
	}
}

// shellOutput extracts trimmed stdout/stderr from a tool_use_result.
// ok is false when the result carries no shell output.
func shellOutput(raw json.RawMessage) (output string, isError bool, ok bool) {
	if len(raw) == 0 || raw[0] != '{' {
		return "", false, false
	}
	var result shellResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", false, false
	}
	stdout := strings.TrimSpace(result.Stdout)
	stderr := strings.TrimSpace(result.Stderr)
	switch {
	case stdout != "" && stderr != "":
		return stdout + "\n" + stderr, true, true
	case stderr != "":
		return stderr, true, true
	case stdout != "":
		return stdout, false, true
	default:
		return "", false, false
	}
}
