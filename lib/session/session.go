// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"sync"

	"github.com/bureau-foundation/handset/lib/agentdriver"
	"github.com/bureau-foundation/handset/lib/presenter"
)

// Session is the state of one user's conversation.
type Session struct {
	UserID int64
	ChatID int64

	// Agent is the adapter for the running task, nil when idle.
	Agent agentdriver.Agent

	// Resume is applied to the next agent started.
	Resume agentdriver.ResumeToken

	// Cwd is absolute and lexically clean.
	Cwd string

	// Slots references the current task's chat messages.
	Slots presenter.Slots

	// Busy is true from task start until the task's done event, an
	// unexpected exit, or a forced stop.
	Busy bool

	// Generation identifies the current task. Events and close notices
	// tagged with an older generation belong to a discarded agent.
	Generation uint64

	// Attachments are temporary files (downloaded photos) used by the
	// current task, removed when it ends.
	Attachments []string
}

// StartTask records agent as the running task's adapter, resets the
// slots and returns the new generation.
func (session *Session) StartTask(agent agentdriver.Agent) uint64 {
	session.Generation++
	session.Agent = agent
	session.Busy = true
	session.Slots = presenter.Slots{}
	return session.Generation
}

// EndTask returns the session to idle and hands back the adapter it
// owned, for the caller to stop. Busy is cleared before the adapter
// reference so no input can be routed to it afterwards.
func (session *Session) EndTask() agentdriver.Agent {
	session.Busy = false
	agent := session.Agent
	session.Agent = nil
	return agent
}

// Current reports whether generation is the running task's.
func (session *Session) Current(generation uint64) bool {
	return session.Busy && session.Generation == generation
}

// ChangeDirectory sets the working directory and drops the resume
// token; a conversation does not carry across directories.
func (session *Session) ChangeDirectory(path string) {
	session.Cwd = path
	session.Resume = agentdriver.ResumeToken{}
}

// Registry maps user IDs to sessions. Sessions live for the lifetime of
// the process.
type Registry struct {
	mutex      sync.Mutex
	sessions   map[int64]*Session
	initialCwd string
}

// NewRegistry returns a Registry seeding new sessions with projectRoot,
// or home when projectRoot is empty. projectRoot may use "~".
func NewRegistry(projectRoot, home string) *Registry {
	initialCwd := home
	if projectRoot != "" {
		initialCwd = ResolvePath(home, home, projectRoot)
	}
	return &Registry{
		sessions:   make(map[int64]*Session),
		initialCwd: initialCwd,
	}
}

// GetOrCreate returns the session for userID, creating it on first
// contact. chatID is refreshed on every call so replies follow the user.
func (registry *Registry) GetOrCreate(userID, chatID int64) *Session {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()

	session, ok := registry.sessions[userID]
	if !ok {
		session = &Session{UserID: userID, Cwd: registry.initialCwd}
		registry.sessions[userID] = session
	}
	session.ChatID = chatID
	return session
}

// Len returns the number of sessions.
func (registry *Registry) Len() int {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()
	return len(registry.sessions)
}
