// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package chattest provides an in-memory [chat.Transport] that records
// every call, for tests of code that talks to a chat service.
package chattest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bureau-foundation/handset/lib/chat"
)

// Kind names a transport operation.
type Kind string

const (
	KindSend   Kind = "send"
	KindEdit   Kind = "edit"
	KindAnswer Kind = "answer"
)

// Call is one recorded transport call. For sends, MessageID is the ID
// the Recorder assigned.
type Call struct {
	Kind       Kind
	ChatID     int64
	MessageID  int64
	Text       string
	Format     chat.Format
	Buttons    []chat.Button
	CallbackID string
}

// Recorder is a chat.Transport recording calls in order. Message IDs
// are assigned sequentially from 1. SendError and EditError, when set,
// are consulted before a call is recorded; a non-nil result fails the
// call, which is then still recorded.
type Recorder struct {
	SendError func(Call) error
	EditError func(Call) error

	mutex   sync.Mutex
	calls   []Call
	nextID  int64
	changed chan struct{}
}

var _ chat.Transport = (*Recorder)(nil)

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{changed: make(chan struct{}, 1)}
}

func (recorder *Recorder) record(call Call) {
	recorder.calls = append(recorder.calls, call)
	select {
	case recorder.changed <- struct{}{}:
	default:
	}
}

func (recorder *Recorder) Send(_ context.Context, chatID int64, text string, format chat.Format, buttons []chat.Button) (int64, error) {
	recorder.mutex.Lock()
	defer recorder.mutex.Unlock()

	call := Call{Kind: KindSend, ChatID: chatID, Text: text, Format: format, Buttons: buttons}
	if recorder.SendError != nil {
		if err := recorder.SendError(call); err != nil {
			recorder.record(call)
			return 0, err
		}
	}
	recorder.nextID++
	call.MessageID = recorder.nextID
	recorder.record(call)
	return call.MessageID, nil
}

func (recorder *Recorder) Edit(_ context.Context, chatID, messageID int64, text string, format chat.Format, buttons []chat.Button) error {
	recorder.mutex.Lock()
	defer recorder.mutex.Unlock()

	call := Call{Kind: KindEdit, ChatID: chatID, MessageID: messageID, Text: text, Format: format, Buttons: buttons}
	if messageID <= 0 || messageID > recorder.nextID {
		recorder.record(call)
		return fmt.Errorf("chattest: message %d does not exist", messageID)
	}
	var err error
	if recorder.EditError != nil {
		err = recorder.EditError(call)
	}
	recorder.record(call)
	return err
}

func (recorder *Recorder) AnswerCallback(_ context.Context, callbackID, text string) error {
	recorder.mutex.Lock()
	defer recorder.mutex.Unlock()
	recorder.record(Call{Kind: KindAnswer, CallbackID: callbackID, Text: text})
	return nil
}

// Calls returns a copy of every recorded call.
func (recorder *Recorder) Calls() []Call {
	recorder.mutex.Lock()
	defer recorder.mutex.Unlock()
	return append([]Call(nil), recorder.calls...)
}

// Count returns how many recorded calls satisfy match.
func (recorder *Recorder) Count(match func(Call) bool) int {
	count := 0
	for _, call := range recorder.Calls() {
		if match(call) {
			count++
		}
	}
	return count
}

// Last returns the most recent call satisfying match.
func (recorder *Recorder) Last(match func(Call) bool) (Call, bool) {
	calls := recorder.Calls()
	for index := len(calls) - 1; index >= 0; index-- {
		if match(calls[index]) {
			return calls[index], true
		}
	}
	return Call{}, false
}

// WaitFor blocks until a recorded call satisfies match or timeout
// elapses, returning the earliest such call.
func (recorder *Recorder) WaitFor(timeout time.Duration, match func(Call) bool) (Call, bool) {
	deadline := time.After(timeout)
	for {
		for _, call := range recorder.Calls() {
			if match(call) {
				return call, true
			}
		}
		select {
		case <-recorder.changed:
		case <-deadline:
			return Call{}, false
		}
	}
}

// IsSend matches sends.
func IsSend(call Call) bool { return call.Kind == KindSend }

// IsEdit matches edits.
func IsEdit(call Call) bool { return call.Kind == KindEdit }

// IsAnswer matches callback answers.
func IsAnswer(call Call) bool { return call.Kind == KindAnswer }

// EditOf matches edits of messageID.
func EditOf(messageID int64) func(Call) bool {
	return func(call Call) bool { return call.Kind == KindEdit && call.MessageID == messageID }
}
