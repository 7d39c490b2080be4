// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// Buffer holds secret bytes in locked, non-dumpable memory. A Buffer
// must not be copied.
type Buffer struct {
	mutex  sync.Mutex
	data   []byte
	closed bool
}

// New allocates a zero-filled Buffer of size bytes.
func New(size int) (*Buffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("secret: buffer size must be positive, got %d", size)
	}

	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("secret: mmap: %w", err)
	}
	if err := unix.Mlock(data); err != nil {
		unix.Munmap(data)
		return nil, fmt.Errorf("secret: mlock: %w", err)
	}
	if err := unix.Madvise(data, unix.MADV_DONTDUMP); err != nil {
		unix.Munlock(data)
		unix.Munmap(data)
		return nil, fmt.Errorf("secret: madvise: %w", err)
	}
	return &Buffer{data: data}, nil
}

// NewFromBytes copies source into a new Buffer and zeroes source.
func NewFromBytes(source []byte) (*Buffer, error) {
	if len(source) == 0 {
		return nil, errors.New("secret: empty source")
	}
	buffer, err := New(len(source))
	if err != nil {
		return nil, err
	}
	copy(buffer.data, source)
	Zero(source)
	return buffer, nil
}

// Bytes returns the secret in place. The slice is invalid after Close.
func (buffer *Buffer) Bytes() []byte {
	buffer.mutex.Lock()
	defer buffer.mutex.Unlock()
	buffer.requireOpen()
	return buffer.data
}

// String returns a heap copy of the secret, for APIs that only take
// strings (URL paths, headers).
func (buffer *Buffer) String() string {
	buffer.mutex.Lock()
	defer buffer.mutex.Unlock()
	buffer.requireOpen()
	return string(buffer.data)
}

// Len returns the secret's length, or 0 after Close.
func (buffer *Buffer) Len() int {
	buffer.mutex.Lock()
	defer buffer.mutex.Unlock()
	return len(buffer.data)
}

// Close zeroes and releases the memory. Idempotent.
func (buffer *Buffer) Close() error {
	buffer.mutex.Lock()
	defer buffer.mutex.Unlock()
	if buffer.closed {
		return nil
	}
	buffer.closed = true
	Zero(buffer.data)

	err := errors.Join(unix.Munlock(buffer.data), unix.Munmap(buffer.data))
	buffer.data = nil
	if err != nil {
		return fmt.Errorf("secret: releasing buffer: %w", err)
	}
	return nil
}

func (buffer *Buffer) requireOpen() {
	if buffer.closed {
		panic("secret: read from closed buffer")
	}
}

// Zero overwrites data with zeroes.
func Zero(data []byte) {
	clear(data)
}
