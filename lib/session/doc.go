// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package session holds per-user conversational state: the working
// directory, the resume token, the owned agent, and the message slots of
// the current task.
//
// A [Session] carries no lock. Its fields are read and written only by
// the goroutine that serializes work for that session (the dispatch
// lane). The [Registry] that maps users to sessions is safe for
// concurrent use.
package session
