// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package agentdriver defines the boundary between handset's session
// orchestration and the coding-agent processes it drives.
//
// Each agent runtime (Claude Code, OpenCode) lives in its own
// subpackage and implements [Agent] for its specific process model and
// output schema:
//
//   - [Agent]: the five-operation capability set (Start, SendMessage,
//     Stop, IsRunning, SetOnClose) shared by every backend.
//
//   - [Event]: the normalized event union (init, tool_use, tool_output,
//     text, error, done). Backends translate their native stream into
//     Events; nothing above this package sees a backend-specific schema.
//
//   - [Spawn] and [Process]: subprocess supervision shared by the
//     backends. A Process runs in its own process group, accumulates a
//     bounded stderr tail, frames stdout into lines with [ReadLines],
//     and reports its exit exactly once.
//
//   - [TranscriptWriter]: optional JSONL log of normalized events for a
//     task, with an aggregated summary.
//
// Adding a backend means writing one Agent implementation and one
// normalization mapping. The dispatch and presenter layers never change.
package agentdriver
