// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/bureau-foundation/handset/lib/agentdriver"
)

// MaxCrashStderr is the longest stderr shown in a crash status, in
// characters. Longer output is replaced by a generic message.
const MaxCrashStderr = 500

// startTask moves an idle session to busy with a fresh adapter.
func (lane *lane) startTask(text, imagePath string) {
	bot := lane.bot
	current := lane.session

	events := make(chan agentdriver.Event)
	closes := make(chan closeNotice, 1)

	options := bot.agentOptions
	options.WorkingDirectory = current.Cwd
	options.Resume = current.Resume
	options.Events = events
	options.ExtraEnv = append([]string(nil), bot.agentOptions.ExtraEnv...)
	if options.Clock == nil {
		options.Clock = bot.clock
	}
	if options.Logger == nil {
		options.Logger = bot.logger.With("user_id", current.UserID)
	}

	agent := bot.newAgent(options)
	generation := current.StartTask(agent)
	agent.SetOnClose(func(exitCode int, stderr string) {
		select {
		case closes <- closeNotice{generation: generation, exitCode: exitCode, stderr: stderr}:
		default:
		}
	})
	lane.events = events
	lane.closes = closes
	if imagePath != "" {
		current.Attachments = append(current.Attachments, imagePath)
	}
	lane.openTranscript(generation)

	bot.presenter.StartTask(bot.ctx, current.ChatID, &current.Slots)
	bot.logger.Info("task started",
		"user_id", current.UserID,
		"generation", generation,
		"directory", current.Cwd,
		"resume", current.Resume.String(),
	)

	if err := agent.Start(text, imagePath); err != nil {
		bot.logger.Error("starting agent failed", "user_id", current.UserID, "error", err)
		lane.endTask()
		bot.presenter.SetStatus(bot.ctx, current.ChatID, &current.Slots, "Failed to start")
		bot.presenter.Notice(bot.ctx, current.ChatID, "Could not start the agent: "+err.Error())
	}
}

// forward delivers input to the running task.
func (lane *lane) forward(text, imagePath string) {
	current := lane.session
	err := current.Agent.SendMessage(text, imagePath)
	if err == nil {
		if imagePath != "" {
			current.Attachments = append(current.Attachments, imagePath)
		}
		return
	}
	removeAttachment(lane.bot.logger, imagePath)
	if errors.Is(err, agentdriver.ErrNotStarted) {
		lane.bot.presenter.Notice(lane.bot.ctx, current.ChatID, "The agent is no longer running. Send the message again to start a new task.")
		return
	}
	lane.bot.logger.Warn("forwarding input failed", "user_id", current.UserID, "error", err)
	lane.bot.presenter.Notice(lane.bot.ctx, current.ChatID, "Could not send to the agent: "+err.Error())
}

func (lane *lane) handleEvent(event agentdriver.Event) {
	bot := lane.bot
	current := lane.session
	if !current.Busy {
		return
	}
	if lane.transcript != nil {
		if err := lane.transcript.Write(event); err != nil {
			bot.logger.Warn("writing transcript failed", "user_id", current.UserID, "error", err)
		}
	}

	if id := event.SessionID(); id != "" {
		current.Resume = agentdriver.ResumeFrom(id)
	}

	switch event.Type {
	case agentdriver.EventTypeInit, agentdriver.EventTypeToolUse:
		bot.presenter.ShowEvent(bot.ctx, current.ChatID, &current.Slots, event)
	case agentdriver.EventTypeToolOutput:
		bot.presenter.ShowToolOutput(bot.ctx, current.ChatID, &current.Slots, event.ToolOutput.Output)
	case agentdriver.EventTypeText:
		bot.presenter.ShowResponse(bot.ctx, current.ChatID, &current.Slots, event.Text.Content)
	case agentdriver.EventTypeError:
		bot.presenter.Notice(bot.ctx, current.ChatID, "Error: "+event.Error.Content)
	case agentdriver.EventTypeDone:
		bot.presenter.ShowEvent(bot.ctx, current.ChatID, &current.Slots, event)
		bot.logger.Info("task finished",
			"user_id", current.UserID,
			"generation", current.Generation,
			"failed", event.Done.IsError,
			"duration_ms", event.Done.DurationMS,
		)
		lane.endTask()
	}
}

func (lane *lane) handleClose(notice closeNotice) {
	bot := lane.bot
	current := lane.session
	if !current.Current(notice.generation) {
		bot.logger.Debug("ignoring close of a finished task",
			"user_id", current.UserID,
			"generation", notice.generation,
		)
		return
	}

	// The close callback runs after the last event was received, but an
	// adapter may still have one queued on the channel.
	for drained := false; !drained; {
		select {
		case event := <-lane.events:
			lane.handleEvent(event)
			if !current.Busy {
				return
			}
		default:
			drained = true
		}
	}

	bot.logger.Warn("agent exited unexpectedly",
		"user_id", current.UserID,
		"exit_code", notice.exitCode,
		"stderr_bytes", len(notice.stderr),
	)
	lane.endTask()
	bot.presenter.SetStatus(bot.ctx, current.ChatID, &current.Slots, CrashStatus(notice.exitCode, notice.stderr))
}

// CrashStatus describes an unexpected exit: the stderr when it is short
// enough to show, a generic line otherwise.
func CrashStatus(exitCode int, stderr string) string {
	stderr = strings.TrimSpace(stderr)
	switch {
	case stderr == "":
		return fmt.Sprintf("Agent exited unexpectedly (exit code %d)", exitCode)
	case utf8.RuneCountInString(stderr) <= MaxCrashStderr:
		return fmt.Sprintf("Agent crashed (exit code %d):\n\n```\n%s\n```", exitCode, stderr)
	default:
		return fmt.Sprintf("Agent crashed (exit code %d). Its error output was too long to show.", exitCode)
	}
}

// stopTask forcibly ends the running task. Reports whether one was
// running.
func (lane *lane) stopTask() bool {
	current := lane.session
	if !current.Busy && current.Agent == nil {
		return false
	}
	lane.endTask()
	lane.bot.presenter.SetStatus(lane.bot.ctx, current.ChatID, &current.Slots, "Stopped")
	lane.bot.logger.Info("task stopped", "user_id", current.UserID, "generation", current.Generation)
	return true
}

// endTask returns the session to idle, then stops the adapter. Busy is
// cleared first so nothing handled later can reach the adapter.
func (lane *lane) endTask() {
	if agent := lane.session.EndTask(); agent != nil {
		if err := agent.Stop(); err != nil {
			lane.bot.logger.Warn("stopping agent failed", "user_id", lane.session.UserID, "error", err)
		}
	}
	lane.releaseTask()
}

// releaseTask drops the task's channels, closes its transcript and
// removes its attachments.
func (lane *lane) releaseTask() {
	lane.events = nil
	lane.closes = nil
	if lane.transcript != nil {
		summary := lane.transcript.Summary(lane.bot.clock.Now())
		if err := lane.transcript.Close(); err != nil {
			lane.bot.logger.Warn("closing transcript failed", "error", err)
		}
		lane.bot.logger.Debug("transcript closed",
			"user_id", lane.session.UserID,
			"events", summary.EventCount,
			"tool_calls", summary.ToolUseCount,
			"errors", summary.ErrorCount,
			"duration", summary.Duration,
		)
		lane.transcript = nil
	}
	for _, path := range lane.session.Attachments {
		removeAttachment(lane.bot.logger, path)
	}
	lane.session.Attachments = nil
}

func (lane *lane) openTranscript(generation uint64) {
	if lane.bot.transcripts == "" {
		return
	}
	now := lane.bot.clock.Now()
	name := fmt.Sprintf("%d-%s-%d.jsonl", lane.session.UserID, now.UTC().Format("20060102T150405Z"), generation)
	writer, err := agentdriver.NewTranscriptWriter(filepath.Join(lane.bot.transcripts, name), now)
	if err != nil {
		lane.bot.logger.Warn("opening transcript failed", "user_id", lane.session.UserID, "error", err)
		return
	}
	lane.transcript = writer
}
