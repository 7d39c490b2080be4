// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bureau-foundation/handset/lib/chat"
	"github.com/bureau-foundation/handset/lib/clock"
)

const (
	// DefaultPollTimeout is the server-side getUpdates wait.
	DefaultPollTimeout = 30 * time.Second

	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// Handler receives inbound chat input. Implementations must return
// promptly; the poller does not fetch more updates until they do.
type Handler interface {
	HandleMessage(ctx context.Context, message chat.Message)
	HandleCallback(ctx context.Context, callback chat.Callback)
}

// PollerConfig configures a Poller.
type PollerConfig struct {
	Client  *Client
	Handler Handler

	// PollTimeout is the getUpdates wait. Zero means DefaultPollTimeout.
	PollTimeout time.Duration

	// Clock times retry backoff. Nil means clock.Real().
	Clock clock.Clock

	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Poller long-polls getUpdates and dispatches each update.
type Poller struct {
	client      *Client
	handler     Handler
	pollTimeout time.Duration
	clock       clock.Clock
	logger      *slog.Logger
	offset      int64
}

// NewPoller creates a Poller.
func NewPoller(config PollerConfig) *Poller {
	if config.PollTimeout <= 0 {
		config.PollTimeout = DefaultPollTimeout
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Poller{
		client:      config.Client,
		handler:     config.Handler,
		pollTimeout: config.PollTimeout,
		clock:       config.Clock,
		logger:      config.Logger,
	}
}

// Run polls until ctx is cancelled, then returns ctx.Err(). Poll
// failures are logged and retried with exponential backoff; a rejected
// token ends the loop with an error.
func (p *Poller) Run(ctx context.Context) error {
	backoff := initialBackoff
	for {
		updates, err := p.client.GetUpdates(ctx, p.offset, p.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if IsUnauthorized(err) {
				return fmt.Errorf("polling updates: %w", err)
			}
			wait := backoff
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
				wait = time.Duration(apiErr.RetryAfter) * time.Second
			}
			p.logger.Warn("polling updates failed, retrying", "error", err, "backoff", wait)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-p.clock.After(wait):
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}
		backoff = initialBackoff

		for _, update := range updates {
			if update.UpdateID >= p.offset {
				p.offset = update.UpdateID + 1
			}
			p.dispatch(ctx, update)
		}
	}
}

func (p *Poller) dispatch(ctx context.Context, update Update) {
	switch {
	case update.Message != nil:
		message, ok := convertMessage(update.Message)
		if ok {
			p.handler.HandleMessage(ctx, message)
		}
	case update.CallbackQuery != nil:
		query := update.CallbackQuery
		callback := chat.Callback{
			ID:     query.ID,
			UserID: query.From.ID,
			Data:   query.Data,
		}
		if query.Message != nil {
			callback.ChatID = query.Message.Chat.ID
			callback.MessageID = query.Message.MessageID
		}
		p.handler.HandleCallback(ctx, callback)
	}
}

// convertMessage maps a Telegram message to chat input. A photo is
// passed by the file ID of its largest size; the handler downloads it
// only after authorizing the sender. Messages with neither text,
// caption nor photo (stickers, joins) are skipped.
func convertMessage(source *Message) (chat.Message, bool) {
	if source.From == nil {
		return chat.Message{}, false
	}
	message := chat.Message{
		UserID:    source.From.ID,
		ChatID:    source.Chat.ID,
		MessageID: source.MessageID,
		Text:      source.Text,
	}
	if message.Text == "" {
		message.Text = source.Caption
	}
	if len(source.Photo) > 0 {
		message.ImageID = largestPhoto(source.Photo).FileID
	}
	if message.Text == "" && message.ImageID == "" {
		return chat.Message{}, false
	}
	return message, true
}

func largestPhoto(sizes []PhotoSize) PhotoSize {
	largest := sizes[0]
	for _, size := range sizes[1:] {
		if size.Width*size.Height > largest.Width*largest.Height {
			largest = size
		}
	}
	return largest
}
