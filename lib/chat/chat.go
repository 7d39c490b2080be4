// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package chat defines the boundary between handset and a chat service:
// the outbound [Transport] the presenter and dispatcher talk to, and the
// inbound [Message] and [Callback] values a transport delivers.
package chat

import "context"

// Format selects how message text is interpreted by the chat service.
type Format int

const (
	// Plain text, no markup.
	Plain Format = iota

	// HTML restricted to the tags Telegram accepts.
	HTML
)

func (format Format) String() string {
	if format == HTML {
		return "html"
	}
	return "plain"
}

// Button is an inline control attached under a message. Pressing it
// delivers a [Callback] carrying Data.
type Button struct {
	Text string
	Data string
}

// Transport sends and edits chat messages.
type Transport interface {
	// Send posts a new message and returns its ID.
	Send(ctx context.Context, chatID int64, text string, format Format, buttons []Button) (int64, error)

	// Edit replaces the text and controls of an existing message. A nil
	// buttons slice removes any controls.
	Edit(ctx context.Context, chatID, messageID int64, text string, format Format, buttons []Button) error

	// AnswerCallback acknowledges a button press, optionally showing text
	// to the user.
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

// Message is an inbound user message.
type Message struct {
	UserID    int64
	ChatID    int64
	MessageID int64
	Text      string

	// ImagePath is a local temporary copy of an attached photo, empty
	// when there is none. The receiver owns the file.
	ImagePath string

	// ImageID identifies a photo not yet downloaded. The receiver
	// fetches it with an [ImageFetcher] once it decides to act on the
	// message.
	ImageID string
}

// ImageFetcher downloads attached photos.
type ImageFetcher interface {
	// FetchImage writes the photo identified by imageID to a new local
	// file and returns its path. The caller owns the file.
	FetchImage(ctx context.Context, imageID string) (string, error)
}

// Callback is an inbound button press.
type Callback struct {
	ID        string
	UserID    int64
	ChatID    int64
	MessageID int64
	Data      string
}
