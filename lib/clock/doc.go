// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock lets time-dependent code run against a fake clock in
// tests.
//
// A test that drives a timeout registers the timer indirectly (by
// starting the code under test), waits for it, then advances:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	// start the code that calls fake.After(time.Minute)
//	fake.WaitForTimers(1)
//	fake.Advance(time.Minute)
package clock
