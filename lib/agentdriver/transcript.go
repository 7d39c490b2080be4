// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agentdriver

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// TranscriptWriter writes normalized events as JSONL (one JSON object
// per line) to a transcript file. It is safe for concurrent use.
type TranscriptWriter struct {
	file    *os.File
	encoder *json.Encoder
	mutex   sync.Mutex
	closed  bool

	// Aggregated summary counters, protected by mutex.
	startTime       time.Time
	eventCount      int64
	toolUseCount    int64
	toolOutputCount int64
	textCount       int64
	errorCount      int64
	failed          bool
	sessionID       string
}

// NewTranscriptWriter creates (or truncates) a transcript file at path,
// creating parent directories as needed. startTime anchors the summary
// duration.
func NewTranscriptWriter(path string, startTime time.Time) (*TranscriptWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating transcript directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("creating transcript %q: %w", path, err)
	}
	encoder := json.NewEncoder(file)
	encoder.SetEscapeHTML(false)
	return &TranscriptWriter{
		file:      file,
		encoder:   encoder,
		startTime: startTime,
	}, nil
}

// Write appends a single event and updates summary counters.
func (writer *TranscriptWriter) Write(event Event) error {
	writer.mutex.Lock()
	defer writer.mutex.Unlock()

	if writer.closed {
		return fmt.Errorf("transcript closed")
	}
	if err := writer.encoder.Encode(event); err != nil {
		return fmt.Errorf("encoding transcript event: %w", err)
	}

	writer.eventCount++
	if id := event.SessionID(); id != "" {
		writer.sessionID = id
	}

	switch event.Type {
	case EventTypeToolUse:
		writer.toolUseCount++
	case EventTypeToolOutput:
		writer.toolOutputCount++
	case EventTypeText:
		writer.textCount++
	case EventTypeError:
		writer.errorCount++
	case EventTypeDone:
		if event.Done != nil && event.Done.IsError {
			writer.failed = true
		}
	}
	return nil
}

// Close flushes and closes the file. Idempotent.
func (writer *TranscriptWriter) Close() error {
	writer.mutex.Lock()
	defer writer.mutex.Unlock()
	if writer.closed {
		return nil
	}
	writer.closed = true
	return writer.file.Close()
}

// TranscriptSummary aggregates the events written to a transcript.
type TranscriptSummary struct {
	SessionID       string        `json:"session_id,omitempty"`
	EventCount      int64         `json:"event_count"`
	ToolUseCount    int64         `json:"tool_use_count"`
	ToolOutputCount int64         `json:"tool_output_count"`
	TextCount       int64         `json:"text_count"`
	ErrorCount      int64         `json:"error_count"`
	Failed          bool          `json:"failed,omitempty"`
	Duration        time.Duration `json:"duration"`
}

// Summary returns the aggregate of all events written so far, with the
// duration measured up to now.
func (writer *TranscriptWriter) Summary(now time.Time) TranscriptSummary {
	writer.mutex.Lock()
	defer writer.mutex.Unlock()
	return TranscriptSummary{
		SessionID:       writer.sessionID,
		EventCount:      writer.eventCount,
		ToolUseCount:    writer.toolUseCount,
		ToolOutputCount: writer.toolOutputCount,
		TextCount:       writer.textCount,
		ErrorCount:      writer.errorCount,
		Failed:          writer.failed,
		Duration:        now.Sub(writer.startTime),
	}
}
