// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package claude

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/bureau-foundation/handset/lib/agentdriver"
)

// DefaultBinary is used when Options.Binary is empty.
const DefaultBinary = "claude"

// DefaultPermissionMode is used when Options.PermissionMode is empty.
const DefaultPermissionMode = "acceptEdits"

// inputQueueDepth bounds envelopes waiting for the stdin writer.
const inputQueueDepth = 16

var errStopped = errors.New("claude: agent stopped")

// Agent drives one interactive Claude Code process.
type Agent struct {
	options agentdriver.Options
	sink    *agentdriver.Sink

	mutex   sync.Mutex
	process *agentdriver.Process
	inputs  chan []byte
	onClose func(exitCode int, stderr string)
	stopped bool

	// pending counts envelopes not yet answered by a result. Only the
	// result that brings it to zero becomes the task's done event.
	pending  int
	finished bool
	elapsed  int64
}

var _ agentdriver.Agent = (*Agent)(nil)

// New returns an Agent configured by options. No process is started
// until Start.
func New(options agentdriver.Options) *Agent {
	options = options.WithDefaults()
	if options.Binary == "" {
		options.Binary = DefaultBinary
	}
	if options.PermissionMode == "" {
		options.PermissionMode = DefaultPermissionMode
	}
	return &Agent{
		options: options,
		sink:    agentdriver.NewSink(options.Events),
	}
}

// Args returns the command-line arguments for a process using options.
func Args(options agentdriver.Options) []string {
	args := []string{
		"-p",
		"--input-format", "stream-json",
		"--output-format", "stream-json",
		"--verbose",
		"--permission-mode", options.PermissionMode,
	}
	switch options.Resume.Mode {
	case agentdriver.ResumeSession:
		args = append(args, "--resume", options.Resume.SessionID)
	case agentdriver.ResumeContinue:
		args = append(args, "--continue")
	}
	return args
}

// Start spawns the process and writes prompt as its first user envelope.
func (agent *Agent) Start(prompt, imagePath string) error {
	agent.mutex.Lock()
	defer agent.mutex.Unlock()

	if agent.stopped {
		return errStopped
	}
	if agent.process != nil && !agent.process.Exited() {
		return fmt.Errorf("claude: agent already running")
	}

	logger := agent.options.Logger
	process, err := agentdriver.Spawn(agentdriver.CommandSpec{
		Binary:   agent.options.Binary,
		Args:     Args(agent.options),
		Dir:      agent.options.WorkingDirectory,
		ExtraEnv: agent.options.ExtraEnv,
		Stdin:    true,
	}, agent.handleLine, func(exitCode int, stderr string) {
		agent.mutex.Lock()
		callback := agent.onClose
		agent.mutex.Unlock()
		logger.Info("claude process exited", "exit_code", exitCode)
		if callback != nil {
			callback(exitCode, stderr)
		}
	})
	if err != nil {
		return err
	}
	agent.process = process
	agent.inputs = make(chan []byte, inputQueueDepth)
	go agent.writeInputs(process, agent.inputs)
	logger.Info("claude process started",
		"binary", agent.options.Binary,
		"directory", agent.options.WorkingDirectory,
		"resume", agent.options.Resume.String(),
	)

	if err := agent.enqueueLocked(prompt, imagePath); err != nil {
		return fmt.Errorf("writing initial prompt: %w", err)
	}
	return nil
}

// writeInputs feeds queued envelopes to the process until it exits.
// Writes happen off the caller's goroutine: a stdin write can block for
// as long as the process is itself blocked writing stdout, which in
// turn waits on the caller consuming events.
func (agent *Agent) writeInputs(process *agentdriver.Process, inputs <-chan []byte) {
	for {
		select {
		case envelope := <-inputs:
			if _, err := process.Write(envelope); err != nil {
				agent.options.Logger.Warn("writing to claude stdin failed", "error", err)
			}
		case <-process.Done():
			return
		}
	}
}

// SendMessage writes a follow-up user envelope to the running process.
func (agent *Agent) SendMessage(text, imagePath string) error {
	agent.mutex.Lock()
	defer agent.mutex.Unlock()

	if agent.stopped || agent.finished || agent.process == nil || agent.process.Exited() {
		return agentdriver.ErrNotStarted
	}
	return agent.enqueueLocked(text, imagePath)
}

// enqueueLocked hands an envelope to the stdin writer, waiting while the
// queue is full unless the process exits first.
func (agent *Agent) enqueueLocked(text, imagePath string) error {
	envelope, err := agent.envelope(text, imagePath)
	if err != nil {
		return err
	}
	select {
	case agent.inputs <- envelope:
		agent.pending++
		return nil
	case <-agent.process.Done():
		return agentdriver.ErrNotStarted
	}
}

// Stop kills the process and stops event delivery. Idempotent.
func (agent *Agent) Stop() error {
	agent.mutex.Lock()
	defer agent.mutex.Unlock()

	agent.stopped = true
	agent.sink.Close()
	if agent.process == nil {
		return nil
	}
	process := agent.process
	agent.process = nil
	return process.Kill()
}

// IsRunning reports whether the process exists and has not exited.
func (agent *Agent) IsRunning() bool {
	agent.mutex.Lock()
	defer agent.mutex.Unlock()
	return agent.process != nil && !agent.process.Exited()
}

// SetOnClose registers the exit observer.
func (agent *Agent) SetOnClose(callback func(exitCode int, stderr string)) {
	agent.mutex.Lock()
	defer agent.mutex.Unlock()
	agent.onClose = callback
}

func (agent *Agent) handleLine(line []byte) {
	var event streamEvent
	if err := json.Unmarshal(line, &event); err != nil {
		agent.options.Logger.Warn("skipping malformed claude output line", "error", err)
		return
	}
	for _, normalized := range Normalize(agent.options.Clock.Now(), event) {
		if normalized.Type == agentdriver.EventTypeDone {
			var ok bool
			if normalized, ok = agent.settle(normalized); !ok {
				continue
			}
		}
		if !agent.sink.Send(normalized) {
			return
		}
	}
}

// settle accounts for one result. Claude Code answers every envelope
// with its own result, so a result that leaves envelopes unanswered is
// dropped, or reported as an error when it failed. The last one becomes
// done with the durations of every answer summed. Once done is decided
// SendMessage refuses input.
func (agent *Agent) settle(event agentdriver.Event) (agentdriver.Event, bool) {
	agent.mutex.Lock()
	defer agent.mutex.Unlock()

	if agent.finished {
		return agentdriver.Event{}, false
	}
	agent.elapsed += event.Done.DurationMS
	if agent.pending > 0 {
		agent.pending--
	}
	if agent.pending > 0 {
		if event.Done.IsError && event.Done.Content != "" {
			return agentdriver.NewError(event.Timestamp, event.Done.SessionID, event.Done.Content), true
		}
		return agentdriver.Event{}, false
	}
	agent.finished = true
	event.Done.DurationMS = agent.elapsed
	return event, true
}

type userEnvelope struct {
	Type    string      `json:"type"`
	Message userMessage `json:"message"`
}

type userMessage struct {
	Role    string       `json:"role"`
	Content []inputBlock `json:"content"`
}

type inputBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// envelope builds one newline-terminated stdin record. An unreadable
// image is logged and dropped so the text still reaches the agent.
func (agent *Agent) envelope(text, imagePath string) ([]byte, error) {
	var content []inputBlock
	if imagePath != "" {
		mediaType, data, err := agentdriver.EncodeImage(imagePath)
		if err != nil {
			agent.options.Logger.Warn("dropping image attachment", "path", imagePath, "error", err)
		} else {
			content = append(content, inputBlock{
				Type:   "image",
				Source: &imageSource{Type: "base64", MediaType: mediaType, Data: data},
			})
		}
	}
	content = append(content, inputBlock{Type: "text", Text: text})

	encoded, err := json.Marshal(userEnvelope{
		Type:    "user",
		Message: userMessage{Role: "user", Content: content},
	})
	if err != nil {
		return nil, fmt.Errorf("encoding user message: %w", err)
	}
	return append(encoded, '\n'), nil
}
