// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package presenter

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/bureau-foundation/handset/lib/agentdriver"
	"github.com/bureau-foundation/handset/lib/chat"
)

// ExpandPrefix prefixes the callback data of expansion buttons.
const ExpandPrefix = "expand:"

// StartingStatus is the status slot's initial text.
const StartingStatus = "Starting…"

// ExpiredNotice answers an expansion whose text is gone.
const ExpiredNotice = "This message has expired"

// expandButtonText labels the expansion button.
const expandButtonText = "Show full message"

// Slots references the chat messages of the current task. A zero ID
// means the slot has not been created.
type Slots struct {
	Status   int64
	Output   int64
	Response int64

	// LastStatus is the text last written to the status slot.
	LastStatus string
}

// Config configures a Presenter.
type Config struct {
	Transport chat.Transport

	// Expand stores full texts for expansion. Nil allocates a table of
	// ExpandCapacity.
	Expand *ExpandTable

	// Logger receives display failures at Debug. Nil means
	// slog.Default().
	Logger *slog.Logger
}

// Presenter maps task activity onto the three message slots.
type Presenter struct {
	transport chat.Transport
	expand    *ExpandTable
	logger    *slog.Logger
}

// New returns a Presenter.
func New(config Config) *Presenter {
	if config.Expand == nil {
		config.Expand = NewExpandTable(ExpandCapacity)
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Presenter{
		transport: config.Transport,
		expand:    config.Expand,
		logger:    config.Logger,
	}
}

// Expand returns the table backing expansion buttons.
func (presenter *Presenter) Expand() *ExpandTable { return presenter.expand }

// StartTask resets slots and sends the status message.
func (presenter *Presenter) StartTask(ctx context.Context, chatID int64, slots *Slots) {
	*slots = Slots{}
	presenter.SetStatus(ctx, chatID, slots, StartingStatus)
}

// SetStatus shows status (markdown) in the status slot. The slot is
// sent if missing and edited otherwise; an unchanged status is not
// re-sent, and edit failures are dropped.
func (presenter *Presenter) SetStatus(ctx context.Context, chatID int64, slots *Slots, status string) {
	if slots.Status != 0 && status == slots.LastStatus {
		return
	}
	rendered := RenderHTML(status)
	if slots.Status == 0 {
		messageID, err := presenter.send(ctx, chatID, rendered, status, nil)
		if err != nil {
			presenter.logger.Warn("sending status message failed", "chat_id", chatID, "error", err)
			return
		}
		slots.Status = messageID
		slots.LastStatus = status
		return
	}
	if err := presenter.transport.Edit(ctx, chatID, slots.Status, rendered, chat.HTML, nil); err != nil {
		presenter.logger.Debug("status edit dropped", "chat_id", chatID, "error", err)
		return
	}
	slots.LastStatus = status
}

// ShowEvent updates the status slot for status-relevant events: init,
// tool_use and done. Other events are ignored.
func (presenter *Presenter) ShowEvent(ctx context.Context, chatID int64, slots *Slots, event agentdriver.Event) {
	if status, ok := StatusFor(event); ok {
		presenter.SetStatus(ctx, chatID, slots, status)
	}
}

// StatusFor returns the status line for event, if it has one.
func StatusFor(event agentdriver.Event) (string, bool) {
	switch event.Type {
	case agentdriver.EventTypeInit:
		if event.Init.Model != "" {
			return "Working (" + event.Init.Model + ")", true
		}
		return "Working…", true
	case agentdriver.EventTypeToolUse:
		return FormatToolUse(event.ToolUse.Tool, event.ToolUse.Input), true
	case agentdriver.EventTypeDone:
		done := event.Done
		if done.IsError {
			if done.Content != "" {
				return "Failed: " + done.Content, true
			}
			return "Failed", true
		}
		if done.DurationMS > 0 {
			return fmt.Sprintf("Done in %.1fs", float64(done.DurationMS)/1000), true
		}
		return "Done", true
	default:
		return "", false
	}
}

// ShowToolOutput shows output in the output slot as preformatted text.
// A failed edit is replaced by a new message the slot rebinds to.
func (presenter *Presenter) ShowToolOutput(ctx context.Context, chatID int64, slots *Slots, output string) {
	display := TruncateOutput(output)
	rendered := "<pre>" + html.EscapeString(display) + "</pre>"

	if slots.Output != 0 {
		err := presenter.transport.Edit(ctx, chatID, slots.Output, rendered, chat.HTML, nil)
		if err == nil {
			return
		}
		presenter.logger.Debug("output edit failed, sending new message", "chat_id", chatID, "error", err)
	}
	messageID, err := presenter.send(ctx, chatID, rendered, display, nil)
	if err != nil {
		presenter.logger.Warn("sending tool output failed", "chat_id", chatID, "error", err)
		return
	}
	slots.Output = messageID
}

// ShowResponse shows an assistant text segment in the response slot,
// replacing the previous segment. Thinking spans are removed; text over
// ResponseLimit is cut and gains an expansion button.
func (presenter *Presenter) ShowResponse(ctx context.Context, chatID int64, slots *Slots, content string) {
	visible := StripThinking(content)
	if visible == "" {
		return
	}

	display := visible
	var buttons []chat.Button
	if head, truncated := Truncate(visible, ResponseLimit); truncated {
		display = head + "..."
		key := presenter.expand.Put(visible)
		buttons = []chat.Button{{Text: expandButtonText, Data: ExpandPrefix + key}}
	}
	rendered := RenderHTML(display)

	if slots.Response != 0 {
		if presenter.edit(ctx, chatID, slots.Response, rendered, display, buttons) {
			return
		}
		presenter.logger.Debug("response edit failed, sending new message", "chat_id", chatID)
	}
	messageID, err := presenter.send(ctx, chatID, rendered, display, buttons)
	if err != nil {
		presenter.logger.Warn("sending response failed", "chat_id", chatID, "error", err)
		return
	}
	slots.Response = messageID
}

// HandleExpand answers an expansion button press: the message is
// replaced by the full text, or the press is answered as expired.
func (presenter *Presenter) HandleExpand(ctx context.Context, callback chat.Callback) {
	key := strings.TrimPrefix(callback.Data, ExpandPrefix)
	full, ok := presenter.expand.Take(key)
	if !ok {
		presenter.answer(ctx, callback.ID, ExpiredNotice)
		return
	}
	presenter.answer(ctx, callback.ID, "")

	rendered := RenderHTML(full)
	if presenter.edit(ctx, callback.ChatID, callback.MessageID, rendered, full, nil) {
		return
	}
	if _, err := presenter.send(ctx, callback.ChatID, rendered, full, nil); err != nil {
		presenter.logger.Warn("sending expanded message failed", "chat_id", callback.ChatID, "error", err)
	}
}

// Notice sends a standalone plain-text message outside the slots.
func (presenter *Presenter) Notice(ctx context.Context, chatID int64, text string) {
	if _, err := presenter.transport.Send(ctx, chatID, text, chat.Plain, nil); err != nil {
		presenter.logger.Warn("sending notice failed", "chat_id", chatID, "error", err)
	}
}

// Preformatted sends text as a standalone preformatted block.
func (presenter *Presenter) Preformatted(ctx context.Context, chatID int64, text string) {
	rendered := "<pre>" + html.EscapeString(text) + "</pre>"
	if _, err := presenter.send(ctx, chatID, rendered, text, nil); err != nil {
		presenter.logger.Warn("sending preformatted message failed", "chat_id", chatID, "error", err)
	}
}

// send tries rendered HTML, then plain.
func (presenter *Presenter) send(ctx context.Context, chatID int64, rendered, plain string, buttons []chat.Button) (int64, error) {
	messageID, err := presenter.transport.Send(ctx, chatID, rendered, chat.HTML, buttons)
	if err == nil {
		return messageID, nil
	}
	presenter.logger.Debug("HTML send failed, retrying as plain text", "chat_id", chatID, "error", err)
	return presenter.transport.Send(ctx, chatID, plain, chat.Plain, buttons)
}

// edit tries rendered HTML, then plain, reporting success.
func (presenter *Presenter) edit(ctx context.Context, chatID, messageID int64, rendered, plain string, buttons []chat.Button) bool {
	if err := presenter.transport.Edit(ctx, chatID, messageID, rendered, chat.HTML, buttons); err == nil {
		return true
	}
	return presenter.transport.Edit(ctx, chatID, messageID, plain, chat.Plain, buttons) == nil
}

func (presenter *Presenter) answer(ctx context.Context, callbackID, text string) {
	if err := presenter.transport.AnswerCallback(ctx, callbackID, text); err != nil {
		presenter.logger.Debug("answering callback failed", "error", err)
	}
}
