// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package dispatch routes chat input to per-user sessions and drives the
// Idle/Busy task lifecycle.
//
// Every session has a lane: one goroutine that handles, one at a time,
// the session's inbound messages, its agent's events and its agent's
// close notice. A lane never shares session state with another lane, so
// nothing in a [session.Session] is locked. Lanes of different users
// run concurrently, and a slow chat API call in one lane never delays
// another.
//
// A task starts when input arrives for an idle session. Input arriving
// while the session is busy is forwarded to the running agent. The task
// ends on the agent's done event, on an unexpected process exit (shown
// as a crash status), or on a forced stop by /stop, /new, /resume or a
// directory change.
//
// Lines starting with '!' are shell escapes: they run with sh -c in the
// session's working directory on their own goroutine and never touch
// the agent.
package dispatch
