// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package presenter renders agent activity into chat messages using a
// three-slot protocol per task:
//
//   - the status slot, one message edited in place as the task starts,
//     calls tools, and finishes;
//   - the output slot, created on the first tool output and edited with
//     each later one, truncated to [OutputLimit];
//   - the response slot, created on the first assistant text and edited
//     with each later segment. Text longer than [ResponseLimit] is cut
//     and gets a "Show full message" button backed by an [ExpandTable].
//
// Display failures never propagate. Each slot has a fallback (plain
// text, a fresh message, or silently dropping a status edit) and the
// caller only sees the updated [Slots].
//
// The Presenter holds no per-session state of its own; the caller
// passes the session's Slots to every call and must not call it
// concurrently for the same Slots.
package presenter
