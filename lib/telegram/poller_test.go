// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bureau-foundation/handset/lib/chat"
	"github.com/bureau-foundation/handset/lib/testutil"
)

type recordingHandler struct {
	messages  chan chat.Message
	callbacks chan chat.Callback
}

func (handler *recordingHandler) HandleMessage(_ context.Context, message chat.Message) {
	handler.messages <- message
}

func (handler *recordingHandler) HandleCallback(_ context.Context, callback chat.Callback) {
	handler.callbacks <- callback
}

const firstBatch = `{"ok":true,"result":[
	{"update_id":10,"message":{"message_id":1,"from":{"id":5},"chat":{"id":50},"text":"hello"}},
	{"update_id":11,"message":{"message_id":2,"from":{"id":5},"chat":{"id":50},"caption":"what is this",
		"photo":[{"file_id":"small","width":90,"height":90},{"file_id":"large","width":800,"height":600}]}},
	{"update_id":12,"message":{"message_id":3,"from":{"id":5},"chat":{"id":50}}},
	{"update_id":13,"callback_query":{"id":"cb-1","from":{"id":5},"data":"expand:abc",
		"message":{"message_id":4,"chat":{"id":50}}}}
]}`

func TestPollerDispatchesUpdates(t *testing.T) {
	t.Parallel()

	var polls atomic.Int32
	secondOffset := make(chan float64, 1)
	client := newTestClient(t, func(writer http.ResponseWriter, request *http.Request) {
		switch {
		case strings.HasSuffix(request.URL.Path, "/getUpdates"):
			var body map[string]any
			_ = json.NewDecoder(request.Body).Decode(&body)
			if polls.Add(1) == 1 {
				writeJSON(t, writer, http.StatusOK, firstBatch)
				return
			}
			select {
			case secondOffset <- body["offset"].(float64):
			default:
			}
			<-request.Context().Done()
		default:
			// Photos are left for the handler to fetch, so getFile
			// and downloads never happen here.
			t.Errorf("unexpected request %s", request.URL.Path)
			http.NotFound(writer, request)
		}
	})

	handler := &recordingHandler{
		messages:  make(chan chat.Message, 4),
		callbacks: make(chan chat.Callback, 4),
	}
	poller := NewPoller(PollerConfig{
		Client:      client,
		Handler:     handler,
		PollTimeout: time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- poller.Run(ctx) }()

	text := testutil.RequireReceive(t, handler.messages, 5*time.Second, "waiting for text message")
	if text.Text != "hello" || text.UserID != 5 || text.ChatID != 50 || text.ImagePath != "" {
		t.Errorf("text message = %+v", text)
	}

	photo := testutil.RequireReceive(t, handler.messages, 5*time.Second, "waiting for photo message")
	if photo.Text != "what is this" || photo.ImageID != "large" || photo.ImagePath != "" {
		t.Errorf("photo message = %+v, want caption and the largest size's ID", photo)
	}

	callback := testutil.RequireReceive(t, handler.callbacks, 5*time.Second, "waiting for callback")
	want := chat.Callback{ID: "cb-1", UserID: 5, ChatID: 50, MessageID: 4, Data: "expand:abc"}
	if callback != want {
		t.Errorf("callback = %+v, want %+v", callback, want)
	}

	if offset := testutil.RequireReceive(t, secondOffset, 5*time.Second, "waiting for second poll"); offset != 14 {
		t.Errorf("second poll offset = %v, want 14", offset)
	}
	select {
	case message := <-handler.messages:
		t.Errorf("empty message was dispatched: %+v", message)
	default:
	}

	cancel()
	if err := testutil.RequireReceive(t, done, 5*time.Second, "waiting for Run to return"); !errors.Is(err, context.Canceled) {
		t.Errorf("Run = %v, want context.Canceled", err)
	}
}

func TestPollerStopsOnUnauthorized(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(writer http.ResponseWriter, request *http.Request) {
		writeJSON(t, writer, http.StatusUnauthorized, `{"ok":false,"error_code":401,"description":"Unauthorized"}`)
	})
	poller := NewPoller(PollerConfig{Client: client, Handler: &recordingHandler{}})

	err := poller.Run(context.Background())
	if !IsUnauthorized(err) {
		t.Errorf("Run = %v, want unauthorized", err)
	}
}
