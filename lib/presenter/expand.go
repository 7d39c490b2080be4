// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package presenter

import (
	"sync"

	"github.com/google/uuid"
)

// ExpandCapacity is the number of full texts kept for expansion.
const ExpandCapacity = 20

// ExpandTable maps generated keys to full message texts with a fixed
// capacity and oldest-inserted-first eviction. It is shared by every
// session and safe for concurrent use.
type ExpandTable struct {
	mutex    sync.Mutex
	capacity int
	entries  map[string]string
	order    []string
}

// NewExpandTable returns an empty table holding at most capacity
// entries. A capacity below one means ExpandCapacity.
func NewExpandTable(capacity int) *ExpandTable {
	if capacity < 1 {
		capacity = ExpandCapacity
	}
	return &ExpandTable{
		capacity: capacity,
		entries:  make(map[string]string, capacity),
	}
}

// Put stores text under a fresh key, evicting the oldest surviving
// entry when the table is full.
func (table *ExpandTable) Put(text string) string {
	key := uuid.NewString()

	table.mutex.Lock()
	defer table.mutex.Unlock()

	for len(table.order) >= table.capacity {
		oldest := table.order[0]
		table.order = table.order[1:]
		delete(table.entries, oldest)
	}
	table.entries[key] = text
	table.order = append(table.order, key)
	return key
}

// Take returns and removes the text stored under key.
func (table *ExpandTable) Take(key string) (string, bool) {
	table.mutex.Lock()
	defer table.mutex.Unlock()

	text, ok := table.entries[key]
	if !ok {
		return "", false
	}
	delete(table.entries, key)
	for index, candidate := range table.order {
		if candidate == key {
			table.order = append(table.order[:index], table.order[index+1:]...)
			break
		}
	}
	return text, true
}

// Len returns the number of stored entries.
func (table *ExpandTable) Len() int {
	table.mutex.Lock()
	defer table.mutex.Unlock()
	return len(table.entries)
}
