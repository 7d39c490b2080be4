// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package claude implements [agentdriver.Agent] for Claude Code in
// interactive stream-json mode.
//
// One long-lived process serves a whole task: the first prompt and
// every follow-up are written to its standard input as newline-delimited
// JSON user envelopes, and its standard output is a stream of JSON
// events (system/init, assistant content blocks, user tool results,
// result) which [Normalize] maps onto the shared event model.
//
// [LastSummary] reads Claude Code's own on-disk session logs to recover
// the summary of the most recent conversation in a directory.
package claude
