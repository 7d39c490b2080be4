// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"sync"

	"github.com/bureau-foundation/handset/lib/agentdriver"
	"github.com/bureau-foundation/handset/lib/session"
)

// closeNotice reports that a task's process terminated.
type closeNotice struct {
	generation uint64
	exitCode   int
	stderr     string
}

// lane serializes everything that touches one session. Only the lane's
// goroutine reads or writes the session and the task fields below.
type lane struct {
	bot     *Bot
	session *session.Session

	queueMutex sync.Mutex
	queue      []func()
	notify     chan struct{}

	// Channels of the running task, nil when idle. A receive from a nil
	// channel blocks forever, which keeps an idle lane out of those
	// select cases.
	events <-chan agentdriver.Event
	closes <-chan closeNotice

	transcript *agentdriver.TranscriptWriter
}

func newLane(bot *Bot, session *session.Session) *lane {
	return &lane{
		bot:     bot,
		session: session,
		notify:  make(chan struct{}, 1),
	}
}

// enqueue appends work to the inbox. It never blocks.
func (lane *lane) enqueue(work func()) {
	lane.queueMutex.Lock()
	lane.queue = append(lane.queue, work)
	lane.queueMutex.Unlock()
	select {
	case lane.notify <- struct{}{}:
	default:
	}
}

// dequeue pops the oldest item, re-arming notify when more remain.
func (lane *lane) dequeue() func() {
	lane.queueMutex.Lock()
	defer lane.queueMutex.Unlock()
	if len(lane.queue) == 0 {
		return nil
	}
	work := lane.queue[0]
	lane.queue[0] = nil
	lane.queue = lane.queue[1:]
	if len(lane.queue) > 0 {
		select {
		case lane.notify <- struct{}{}:
		default:
		}
	}
	return work
}

func (lane *lane) run() {
	defer lane.shutdown()
	for {
		// A close notice outranks queued input so that input sent after
		// a process died is never routed to the dead adapter.
		select {
		case notice := <-lane.closes:
			lane.handleClose(notice)
			continue
		default:
		}

		select {
		case <-lane.bot.ctx.Done():
			return
		case event := <-lane.events:
			lane.handleEvent(event)
		case notice := <-lane.closes:
			lane.handleClose(notice)
		case <-lane.notify:
			if work := lane.dequeue(); work != nil {
				work()
			}
		}
	}
}

// shutdown stops the running agent and drops queued input.
func (lane *lane) shutdown() {
	if agent := lane.session.EndTask(); agent != nil {
		if err := agent.Stop(); err != nil {
			lane.bot.logger.Warn("stopping agent at shutdown failed", "user_id", lane.session.UserID, "error", err)
		}
	}
	lane.releaseTask()

	lane.queueMutex.Lock()
	lane.queue = nil
	lane.queueMutex.Unlock()
}
