// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"slices"
	"sync"
	"time"
)

// FakeClock is a Clock that moves only when Advance is called. It is
// safe for concurrent use.
type FakeClock struct {
	mutex  sync.Mutex
	now    time.Time
	timers []timer

	// registered is closed and replaced whenever a timer is added.
	registered chan struct{}
}

type timer struct {
	deadline time.Time
	fire     chan time.Time
}

// Fake returns a FakeClock reading start.
func Fake(start time.Time) *FakeClock {
	return &FakeClock{now: start, registered: make(chan struct{})}
}

func (fake *FakeClock) Now() time.Time {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()
	return fake.now
}

func (fake *FakeClock) After(d time.Duration) <-chan time.Time {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()

	fire := make(chan time.Time, 1)
	if d <= 0 {
		fire <- fake.now
		return fire
	}

	added := timer{deadline: fake.now.Add(d), fire: fire}
	// Keep timers ordered by deadline, registration order among equals.
	index, _ := slices.BinarySearchFunc(fake.timers, added, func(existing, target timer) int {
		if existing.deadline.After(target.deadline) {
			return 1
		}
		return -1
	})
	fake.timers = slices.Insert(fake.timers, index, added)

	close(fake.registered)
	fake.registered = make(chan struct{})
	return fire
}

// Advance moves the clock forward by d, firing due timers in deadline
// order.
func (fake *FakeClock) Advance(d time.Duration) {
	fake.mutex.Lock()
	fake.now = fake.now.Add(d)
	now := fake.now
	due := 0
	for due < len(fake.timers) && !fake.timers[due].deadline.After(now) {
		due++
	}
	fired := slices.Clone(fake.timers[:due])
	fake.timers = slices.Delete(fake.timers, 0, due)
	fake.mutex.Unlock()

	for _, expired := range fired {
		expired.fire <- now
	}
}

// WaitForTimers blocks until at least n timers are pending.
func (fake *FakeClock) WaitForTimers(n int) {
	for {
		fake.mutex.Lock()
		pending := len(fake.timers)
		registered := fake.registered
		fake.mutex.Unlock()
		if pending >= n {
			return
		}
		<-registered
	}
}

// PendingCount returns the number of timers not yet fired.
func (fake *FakeClock) PendingCount() int {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()
	return len(fake.timers)
}
