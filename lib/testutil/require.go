// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"time"
)

// TB is the subset of testing.TB the helpers need.
type TB interface {
	Helper()
	Fatalf(format string, args ...any)
}

// RequireReceive returns the next value from ch, failing the test if
// none arrives within timeout or ch is closed.
//
//	agent := testutil.RequireReceive(t, agents, 5*time.Second, "waiting for agent")
func RequireReceive[T any](t TB, ch <-chan T, timeout time.Duration, context ...any) T {
	t.Helper()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case value, ok := <-ch:
		if !ok {
			t.Fatalf("%s: channel closed", describe(context))
		}
		return value
	case <-timer.C:
		t.Fatalf("%s: nothing received within %v", describe(context), timeout)
	}
	panic("unreachable")
}

// RequireSend sends value on ch, failing the test if no receiver takes
// it within timeout.
func RequireSend[T any](t TB, ch chan<- T, value T, timeout time.Duration, context ...any) {
	t.Helper()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case ch <- value:
	case <-timer.C:
		t.Fatalf("%s: send not taken within %v", describe(context), timeout)
	}
}

// RequireClosed waits for ch to close or deliver, failing the test
// after timeout.
func RequireClosed(t TB, ch <-chan struct{}, timeout time.Duration, context ...any) {
	t.Helper()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-ch:
	case <-timer.C:
		t.Fatalf("%s: channel not closed within %v", describe(context), timeout)
	}
}

// describe renders optional context: nothing, a string, or a format
// string with arguments.
func describe(context []any) string {
	if len(context) == 0 {
		return "waiting"
	}
	if format, ok := context[0].(string); ok {
		if len(context) == 1 {
			return format
		}
		return fmt.Sprintf(format, context[1:]...)
	}
	return fmt.Sprint(context...)
}
