// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agentdriver

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bureau-foundation/handset/lib/clock"
)

// Agent is the capability set every agent backend implements. An Agent
// owns at most one live process at a time and is owned exclusively by
// one session.
//
// Events produced by the backend are delivered on [Options.Events] in
// the order the process emitted them. The close callback for a process
// is invoked after the last event from that process has been delivered.
type Agent interface {
	// Start spawns the backend process for the first turn of a task.
	// imagePath is optional. Returns a *SpawnError when the executable
	// cannot be launched.
	Start(prompt, imagePath string) error

	// SendMessage delivers follow-up input to a running task. Returns
	// ErrNotStarted when the backend has no live process to receive it.
	SendMessage(text, imagePath string) error

	// Stop forcibly terminates the owned process, if any. Stop is
	// idempotent and safe to call on an exited process. After Stop the
	// Agent delivers no further events.
	Stop() error

	// IsRunning reports whether an owned process exists and has not
	// exited.
	IsRunning() bool

	// SetOnClose registers the observer invoked exactly once per
	// process when it terminates, with its exit code (-1 when killed
	// by a signal) and accumulated standard error.
	SetOnClose(callback func(exitCode int, stderr string))
}

// Options configures a backend Agent.
type Options struct {
	// Binary is the executable to run. Backends apply their own default
	// ("claude", "opencode") when empty.
	Binary string

	// WorkingDirectory is the directory the process starts in.
	WorkingDirectory string

	// PermissionMode is passed to backends that support it (Claude
	// Code's --permission-mode).
	PermissionMode string

	// Resume selects fresh, specific-session, or continue-most-recent.
	Resume ResumeToken

	// ExtraEnv is appended to the parent environment, in "KEY=VALUE"
	// form. The dispatch layer adds the message-origin marker here.
	ExtraEnv []string

	// Events receives normalized events. Required. Sends block until
	// received or until Stop is called.
	Events chan<- Event

	// TurnTimeout bounds how long a spawn-per-turn backend waits for
	// the previous turn's process before killing it and starting the
	// queued turn. Zero waits forever.
	TurnTimeout time.Duration

	// Clock is used for timestamps, durations and timeouts. Nil means
	// clock.Real().
	Clock clock.Clock

	// Logger receives wrapper-level diagnostics. Nil means
	// slog.Default().
	Logger *slog.Logger
}

// WithDefaults returns a copy of options with Clock and Logger filled in.
func (options Options) WithDefaults() Options {
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	return options
}

// ResumeMode selects how a backend continues a conversation.
type ResumeMode int

const (
	// ResumeNone starts a fresh conversation.
	ResumeNone ResumeMode = iota

	// ResumeSession resumes the conversation with a specific backend
	// session ID.
	ResumeSession

	// ResumeContinue continues the most recent conversation in the
	// working directory.
	ResumeContinue
)

// ResumeToken is the resumability state of a session. The zero value
// starts fresh.
type ResumeToken struct {
	Mode      ResumeMode
	SessionID string
}

// ResumeFrom returns a token resuming the given backend session.
func ResumeFrom(sessionID string) ResumeToken {
	return ResumeToken{Mode: ResumeSession, SessionID: sessionID}
}

// ContinueMostRecent is the sentinel token for "continue the most
// recent conversation".
var ContinueMostRecent = ResumeToken{Mode: ResumeContinue}

func (token ResumeToken) String() string {
	switch token.Mode {
	case ResumeSession:
		return "session " + token.SessionID
	case ResumeContinue:
		return "most recent"
	default:
		return "none"
	}
}

// ErrNotStarted is returned by SendMessage when no process is alive to
// receive the input.
var ErrNotStarted = errors.New("agentdriver: agent not started")

// SpawnError reports that the backend executable could not be launched.
type SpawnError struct {
	Binary string
	Err    error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("starting %s: %v", e.Binary, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// Sink delivers events to a consumer channel until closed. Backends use
// one Sink per Agent so that Stop releases any goroutine blocked on a
// send.
type Sink struct {
	events    chan<- Event
	stopped   chan struct{}
	closeOnce sync.Once
}

// NewSink wraps events.
func NewSink(events chan<- Event) *Sink {
	return &Sink{events: events, stopped: make(chan struct{})}
}

// Send delivers event, blocking until it is received or the Sink is
// closed. Returns false if the event was dropped because of Close.
func (sink *Sink) Send(event Event) bool {
	select {
	case <-sink.stopped:
		return false
	default:
	}
	select {
	case sink.events <- event:
		return true
	case <-sink.stopped:
		return false
	}
}

// Close stops delivery. Idempotent.
func (sink *Sink) Close() {
	sink.closeOnce.Do(func() { close(sink.stopped) })
}

// Closed reports whether Close has been called.
func (sink *Sink) Closed() bool {
	select {
	case <-sink.stopped:
		return true
	default:
		return false
	}
}
