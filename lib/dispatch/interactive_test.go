// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/handset/lib/agentdriver"
	"github.com/bureau-foundation/handset/lib/agentdriver/claude"
	"github.com/bureau-foundation/handset/lib/chat/chattest"
	"github.com/bureau-foundation/handset/lib/session"
	"github.com/bureau-foundation/handset/lib/testutil"
)

// answersAfterFollowUp holds its answers until the follow-up envelope
// arrives, then answers each envelope with its own result.
const answersAfterFollowUp = `read -r first
echo '{"type":"system","subtype":"init","session_id":"s1","model":"m","cwd":"/w"}'
read -r second
echo '{"type":"assistant","session_id":"s1","message":{"content":[{"type":"text","text":"answer one"}]}}'
echo '{"type":"result","subtype":"success","session_id":"s1","duration_ms":1000}'
echo '{"type":"assistant","session_id":"s1","message":{"content":[{"type":"text","text":"answer two"}]}}'
echo '{"type":"result","subtype":"success","session_id":"s1","duration_ms":500}'
sleep 30
`

func TestFollowUpAnswerIsShown(t *testing.T) {
	t.Parallel()

	directory := t.TempDir()
	binary := testutil.WriteScript(t, "claude", answersAfterFollowUp)
	h := newHarness(t, func(config *Config) {
		config.Registry = session.NewRegistry(directory, directory)
		config.Home = directory
		config.AgentOptions = agentdriver.Options{Binary: binary}
		config.NewAgent = func(options agentdriver.Options) agentdriver.Agent {
			return claude.New(options)
		}
	})

	h.send("one")
	if _, ok := h.recorder.WaitFor(10*time.Second, func(call chattest.Call) bool {
		return chattest.IsEdit(call) && strings.HasPrefix(call.Text, "Working")
	}); !ok {
		t.Fatal("init status never shown")
	}
	h.send("two")

	if _, ok := h.recorder.WaitFor(10*time.Second, func(call chattest.Call) bool {
		return strings.Contains(call.Text, "answer two")
	}); !ok {
		t.Fatalf("follow-up answer never shown; calls: %+v", h.recorder.Calls())
	}
	if _, ok := h.recorder.WaitFor(10*time.Second, func(call chattest.Call) bool {
		return chattest.IsEdit(call) && call.Text == "Done in 1.5s"
	}); !ok {
		t.Fatalf("final status never shown; calls: %+v", h.recorder.Calls())
	}
	h.bot.barrier(testUser)

	done := h.recorder.Count(func(call chattest.Call) bool { return strings.HasPrefix(call.Text, "Done") })
	if done != 1 {
		t.Errorf("done statuses = %d, want 1", done)
	}
	current := h.session(t)
	if current.Busy || current.Agent != nil {
		t.Errorf("session busy=%v agent=%v after done, want idle", current.Busy, current.Agent)
	}
}
