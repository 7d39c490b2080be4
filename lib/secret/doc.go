// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret keeps credentials such as the bot token out of the Go
// heap.
//
// A [Buffer] is an anonymous mmap region locked into RAM and excluded
// from core dumps. Close zeroes and unmaps it; any read after Close
// panics. [NewFromBytes] and [ReadFromPath] zero the heap bytes they
// copy from, so a caller that moves a token into a Buffer right after
// loading it leaves no readable copy behind.
package secret
