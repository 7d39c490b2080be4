// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bureau-foundation/handset/lib/chat"
	"github.com/bureau-foundation/handset/lib/secret"
)

const testToken = "123456:test-token"

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	token, err := secret.NewFromBytes([]byte(testToken))
	if err != nil {
		t.Fatalf("creating token buffer: %v", err)
	}
	t.Cleanup(func() { token.Close() })

	client, err := NewClient(ClientConfig{APIURL: server.URL, Token: token})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func writeJSON(t *testing.T, writer http.ResponseWriter, status int, body string) {
	t.Helper()
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	if _, err := io.WriteString(writer, body); err != nil {
		t.Errorf("writing response: %v", err)
	}
}

func TestSendHTMLWithButtons(t *testing.T) {
	t.Parallel()

	var gotPath string
	var gotBody map[string]any
	client := newTestClient(t, func(writer http.ResponseWriter, request *http.Request) {
		gotPath = request.URL.Path
		if err := json.NewDecoder(request.Body).Decode(&gotBody); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		writeJSON(t, writer, http.StatusOK, `{"ok":true,"result":{"message_id":42,"chat":{"id":7}}}`)
	})

	messageID, err := client.Send(context.Background(), 7, "<b>hi</b>", chat.HTML,
		[]chat.Button{{Text: "Show full message", Data: "expand:k"}})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if messageID != 42 {
		t.Errorf("message ID = %d, want 42", messageID)
	}
	if gotPath != "/bot"+testToken+"/sendMessage" {
		t.Errorf("path = %q", gotPath)
	}
	if gotBody["parse_mode"] != "HTML" || gotBody["text"] != "<b>hi</b>" || gotBody["chat_id"] != float64(7) {
		t.Errorf("body = %v", gotBody)
	}
	markup, _ := gotBody["reply_markup"].(map[string]any)
	rows, _ := markup["inline_keyboard"].([]any)
	if len(rows) != 1 {
		t.Fatalf("reply_markup = %v, want one row", gotBody["reply_markup"])
	}
	button := rows[0].([]any)[0].(map[string]any)
	if button["callback_data"] != "expand:k" || button["text"] != "Show full message" {
		t.Errorf("button = %v", button)
	}
}

func TestSendPlainOmitsParseMode(t *testing.T) {
	t.Parallel()

	var gotBody map[string]any
	client := newTestClient(t, func(writer http.ResponseWriter, request *http.Request) {
		_ = json.NewDecoder(request.Body).Decode(&gotBody)
		writeJSON(t, writer, http.StatusOK, `{"ok":true,"result":{"message_id":1,"chat":{"id":7}}}`)
	})
	if _, err := client.Send(context.Background(), 7, "a < b", chat.Plain, nil); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if _, ok := gotBody["parse_mode"]; ok {
		t.Errorf("plain send carried parse_mode: %v", gotBody)
	}
	if _, ok := gotBody["reply_markup"]; ok {
		t.Errorf("send without buttons carried reply_markup: %v", gotBody)
	}
}

func TestEditNotModifiedIsSuccess(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(writer http.ResponseWriter, request *http.Request) {
		writeJSON(t, writer, http.StatusBadRequest,
			`{"ok":false,"error_code":400,"description":"Bad Request: message is not modified: specified new message content and reply markup are exactly the same"}`)
	})

	err := client.EditMessageText(context.Background(), 7, 3, "same", "", nil)
	if !IsNotModified(err) {
		t.Fatalf("EditMessageText = %v, want not-modified APIError", err)
	}
	if err := client.Edit(context.Background(), 7, 3, "same", chat.Plain, nil); err != nil {
		t.Errorf("Edit = %v, want nil for an unchanged message", err)
	}
}

func TestAPIError(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(writer http.ResponseWriter, request *http.Request) {
		writeJSON(t, writer, http.StatusTooManyRequests,
			`{"ok":false,"error_code":429,"description":"Too Many Requests: retry after 7","parameters":{"retry_after":7}}`)
	})

	err := client.Edit(context.Background(), 7, 3, "x", chat.HTML, nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Edit = %v, want *APIError", err)
	}
	if apiErr.Code != 429 || apiErr.RetryAfter != 7 {
		t.Errorf("APIError = %+v", apiErr)
	}
	if IsNotModified(err) || IsUnauthorized(err) {
		t.Error("429 misclassified")
	}
}

func TestGetMe(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(writer http.ResponseWriter, request *http.Request) {
		if !strings.HasSuffix(request.URL.Path, "/getMe") {
			t.Errorf("path = %q", request.URL.Path)
		}
		writeJSON(t, writer, http.StatusOK, `{"ok":true,"result":{"id":99,"is_bot":true,"username":"handset_bot"}}`)
	})

	user, err := client.GetMe(context.Background())
	if err != nil {
		t.Fatalf("GetMe: %v", err)
	}
	if user.ID != 99 || user.Username != "handset_bot" || !user.IsBot {
		t.Errorf("user = %+v", user)
	}
}

func TestUnauthorized(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(writer http.ResponseWriter, request *http.Request) {
		writeJSON(t, writer, http.StatusUnauthorized, `{"ok":false,"error_code":401,"description":"Unauthorized"}`)
	})
	if _, err := client.GetMe(context.Background()); !IsUnauthorized(err) {
		t.Errorf("GetMe = %v, want unauthorized", err)
	}
}

func TestTransportErrorsHideToken(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	token, err := secret.NewFromBytes([]byte(testToken))
	if err != nil {
		t.Fatal(err)
	}
	defer token.Close()
	client, err := NewClient(ClientConfig{APIURL: server.URL, Token: token})
	if err != nil {
		t.Fatal(err)
	}

	_, err = client.GetMe(context.Background())
	if err == nil {
		t.Fatal("GetMe against a closed server succeeded")
	}
	if strings.Contains(err.Error(), testToken) {
		t.Errorf("error leaks the token: %v", err)
	}
}

func TestNewClientRequiresToken(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(ClientConfig{}); err == nil {
		t.Error("NewClient without a token succeeded")
	}
}

func TestFetchImage(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(writer http.ResponseWriter, request *http.Request) {
		switch request.URL.Path {
		case "/bot" + testToken + "/getFile":
			var body map[string]any
			_ = json.NewDecoder(request.Body).Decode(&body)
			if body["file_id"] != "large" {
				t.Errorf("getFile for %v, want large", body["file_id"])
			}
			writeJSON(t, writer, http.StatusOK, `{"ok":true,"result":{"file_id":"large","file_path":"photos/file_1.png"}}`)
		case "/file/bot" + testToken + "/photos/file_1.png":
			_, _ = io.WriteString(writer, "PNGDATA")
		default:
			t.Errorf("unexpected request %s", request.URL.Path)
			http.NotFound(writer, request)
		}
	})
	client.imageDir = t.TempDir()

	path, err := client.FetchImage(context.Background(), "large")
	if err != nil {
		t.Fatalf("FetchImage: %v", err)
	}
	if filepath.Dir(path) != client.imageDir || filepath.Ext(path) != ".png" {
		t.Errorf("path = %q, want a .png in %s", path, client.imageDir)
	}
	if data, err := os.ReadFile(path); err != nil || string(data) != "PNGDATA" {
		t.Errorf("downloaded photo = %q, %v", data, err)
	}
}

func TestFetchImageFailedDownloadLeavesNoFile(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(writer http.ResponseWriter, request *http.Request) {
		if strings.HasSuffix(request.URL.Path, "/getFile") {
			writeJSON(t, writer, http.StatusOK, `{"ok":true,"result":{"file_id":"x","file_path":"photos/x.jpg"}}`)
			return
		}
		http.Error(writer, "gone", http.StatusNotFound)
	})
	client.imageDir = t.TempDir()

	if _, err := client.FetchImage(context.Background(), "x"); err == nil {
		t.Fatal("FetchImage succeeded against a failing download")
	}
	entries, err := os.ReadDir(client.imageDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("image directory has %d entries after a failed download", len(entries))
	}
}
