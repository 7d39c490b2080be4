// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock is the time source for event timestamps, transcript durations
// and turn timeouts.
type Clock interface {
	Now() time.Time

	// After delivers the time once d has elapsed; immediately when
	// d <= 0. The channel is buffered, so an abandoned timer never
	// blocks the clock.
	After(d time.Duration) <-chan time.Time
}

// Real returns the wall clock.
func Real() Clock { return wallClock{} }

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

func (wallClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
