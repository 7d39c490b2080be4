// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package telegram is a minimal Telegram Bot API client covering what
// handset needs: token validation (getMe), long polling (getUpdates),
// sending and editing messages with inline keyboards, answering
// callback queries, and downloading photos.
//
// [Client] implements [chat.Transport] and [chat.ImageFetcher]. [Poller]
// turns updates into [chat.Message] and [chat.Callback] values for a
// [Handler]; photos travel as file IDs and are downloaded only when the
// handler asks.
//
// API failures are returned as *[APIError] carrying Telegram's error
// code and description. Use [IsNotModified] to recognize the error
// Telegram returns when an edit would not change a message.
//
// The bot token lives in a [secret.Buffer] and is only converted to a
// string while building a request URL.
package telegram
