// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for handset packages.
//
// [RequireReceive], [RequireSend], and [RequireClosed] encapsulate the
// timeout safety valve pattern (select with time.After fallback) so that
// tests exercising goroutines, subprocesses, and session lanes do not
// hang when an expected value never arrives.
//
// [WriteScript] writes an executable shell script used as a stand-in
// agent binary in process adapter tests.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
package testutil
