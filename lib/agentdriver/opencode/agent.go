// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package opencode

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bureau-foundation/handset/lib/agentdriver"
)

// DefaultBinary is used when Options.Binary is empty.
const DefaultBinary = "opencode"

// maxErrorContent bounds the stderr tail carried in a failed done event.
const maxErrorContent = 1000

var errStopped = errors.New("opencode: agent stopped")

type turn struct {
	prompt    string
	imagePath string
}

// Agent drives a task as a sequence of OpenCode processes.
type Agent struct {
	options agentdriver.Options
	sink    *agentdriver.Sink

	mutex      sync.Mutex
	normalizer Normalizer
	current    *agentdriver.Process
	turnID     uint64
	turnStart  time.Time
	pending    []turn
	watching   bool
	active     bool
	stopped    bool
	onClose    func(exitCode int, stderr string)
}

var _ agentdriver.Agent = (*Agent)(nil)

// New returns an Agent configured by options.
func New(options agentdriver.Options) *Agent {
	options = options.WithDefaults()
	if options.Binary == "" {
		options.Binary = DefaultBinary
	}
	return &Agent{
		options: options,
		sink:    agentdriver.NewSink(options.Events),
	}
}

// Args returns the argv for one turn. sessionID, when known, pins the
// turn to an existing OpenCode session; otherwise resume decides.
func Args(resume agentdriver.ResumeToken, sessionID, prompt, imagePath string) []string {
	args := []string{"run", "--format", "json"}
	switch {
	case sessionID != "":
		args = append(args, "--session", sessionID)
	case resume.Mode == agentdriver.ResumeSession:
		args = append(args, "--session", resume.SessionID)
	case resume.Mode == agentdriver.ResumeContinue:
		args = append(args, "--continue")
	}
	if imagePath != "" {
		args = append(args, "--file", imagePath)
	}
	return append(args, prompt)
}

// Start spawns the first turn of the task.
func (agent *Agent) Start(prompt, imagePath string) error {
	agent.mutex.Lock()
	defer agent.mutex.Unlock()

	if agent.stopped {
		return errStopped
	}
	if agent.active {
		return fmt.Errorf("opencode: agent already running")
	}
	if err := agent.spawnLocked(turn{prompt: prompt, imagePath: imagePath}, agent.options.Resume); err != nil {
		return err
	}
	agent.active = true
	return nil
}

// SendMessage queues a follow-up turn. It returns immediately; the turn
// is spawned once the running turn's process exits.
func (agent *Agent) SendMessage(text, imagePath string) error {
	agent.mutex.Lock()
	defer agent.mutex.Unlock()

	if agent.stopped || !agent.active {
		return agentdriver.ErrNotStarted
	}
	agent.pending = append(agent.pending, turn{prompt: text, imagePath: imagePath})
	agent.watchLocked()
	return nil
}

// watchLocked arms the turn timeout for the running process, once per
// process.
func (agent *Agent) watchLocked() {
	timeout := agent.options.TurnTimeout
	if timeout <= 0 || agent.watching || agent.current == nil {
		return
	}
	agent.watching = true
	process := agent.current
	expired := agent.options.Clock.After(timeout)
	go func() {
		select {
		case <-process.Done():
		case <-expired:
			agent.options.Logger.Warn("opencode turn exceeded timeout with follow-up queued, killing it",
				"timeout", timeout,
			)
			if err := process.Kill(); err != nil {
				agent.options.Logger.Error("killing stalled opencode turn", "error", err)
			}
		}
	}()
}

func (agent *Agent) spawnLocked(next turn, resume agentdriver.ResumeToken) error {
	args := Args(resume, agent.normalizer.SessionID(), next.prompt, next.imagePath)
	agent.turnID++
	id := agent.turnID
	process, err := agentdriver.Spawn(agentdriver.CommandSpec{
		Binary:   agent.options.Binary,
		Args:     args,
		Dir:      agent.options.WorkingDirectory,
		ExtraEnv: agent.options.ExtraEnv,
	}, agent.handleLine, func(exitCode int, stderr string) {
		agent.handleExit(id, exitCode, stderr)
	})
	if err != nil {
		return err
	}
	agent.current = process
	agent.turnStart = agent.options.Clock.Now()
	agent.watching = false
	agent.options.Logger.Info("opencode turn started",
		"binary", agent.options.Binary,
		"directory", agent.options.WorkingDirectory,
		"session_id", agent.normalizer.SessionID(),
	)
	if len(agent.pending) > 0 {
		agent.watchLocked()
	}
	return nil
}

func (agent *Agent) handleLine(line []byte) {
	var event streamEvent
	if err := json.Unmarshal(line, &event); err != nil {
		agent.options.Logger.Warn("skipping malformed opencode output line", "error", err)
		return
	}
	agent.mutex.Lock()
	events := agent.normalizer.Normalize(agent.options.Clock.Now(), event)
	agent.mutex.Unlock()
	for _, normalized := range events {
		if !agent.sink.Send(normalized) {
			return
		}
	}
}

// handleExit runs on the exited process's supervising goroutine, after
// its last line was handled. It either spawns the next queued turn or
// ends the task.
func (agent *Agent) handleExit(id uint64, exitCode int, stderr string) {
	agent.mutex.Lock()
	if agent.turnID == id {
		agent.current = nil
	}
	now := agent.options.Clock.Now()
	duration := now.Sub(agent.turnStart)
	sessionID := agent.normalizer.SessionID()

	for !agent.stopped && len(agent.pending) > 0 {
		next := agent.pending[0]
		agent.pending = agent.pending[1:]
		err := agent.spawnLocked(next, agent.followUpResume())
		if err == nil {
			agent.mutex.Unlock()
			return
		}
		agent.options.Logger.Error("spawning queued opencode turn", "error", err)
		exitCode, stderr = -1, err.Error()
	}

	agent.active = false
	stopped := agent.stopped
	isError := exitCode != 0 || agent.normalizer.SawError()
	callback := agent.onClose
	agent.mutex.Unlock()

	agent.options.Logger.Info("opencode turn exited", "exit_code", exitCode, "duration", duration)
	if !stopped {
		var content string
		if isError {
			content = errorContent(exitCode, stderr)
		}
		agent.sink.Send(agentdriver.NewDone(now, sessionID, duration.Milliseconds(), isError, content))
	}
	if callback != nil {
		callback(exitCode, stderr)
	}
}

// followUpResume is the resume mode for queued turns when the first
// turn produced no session ID.
func (agent *Agent) followUpResume() agentdriver.ResumeToken {
	if agent.options.Resume.Mode == agentdriver.ResumeNone {
		return agentdriver.ContinueMostRecent
	}
	return agent.options.Resume
}

func errorContent(exitCode int, stderr string) string {
	stderr = strings.TrimSpace(stderr)
	if stderr == "" {
		return fmt.Sprintf("opencode exited with code %d", exitCode)
	}
	if len(stderr) > maxErrorContent {
		stderr = "..." + strings.ToValidUTF8(stderr[len(stderr)-maxErrorContent:], "")
	}
	return stderr
}

// Stop kills the running turn, discards queued turns and stops event
// delivery. Idempotent.
func (agent *Agent) Stop() error {
	agent.mutex.Lock()
	defer agent.mutex.Unlock()

	agent.stopped = true
	agent.pending = nil
	agent.sink.Close()
	if agent.current == nil {
		return nil
	}
	return agent.current.Kill()
}

// IsRunning reports whether a turn is running or queued.
func (agent *Agent) IsRunning() bool {
	agent.mutex.Lock()
	defer agent.mutex.Unlock()
	return agent.active && !agent.stopped
}

// SetOnClose registers the observer called when the task's last turn
// exits.
func (agent *Agent) SetOnClose(callback func(exitCode int, stderr string)) {
	agent.mutex.Lock()
	defer agent.mutex.Unlock()
	agent.onClose = callback
}
