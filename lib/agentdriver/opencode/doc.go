// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package opencode implements [agentdriver.Agent] for OpenCode, which
// runs one process per turn ("opencode run --format json <prompt>").
//
// A task is a sequence of turns sharing an OpenCode session. The first
// turn is spawned by Start; follow-ups sent while a turn runs are queued
// and spawned with --session once the running turn exits. When the last
// queued turn exits the adapter synthesizes the done event, since
// OpenCode's own stream has no end-of-task marker, and then reports the
// close.
package opencode
