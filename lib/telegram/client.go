// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/bureau-foundation/handset/lib/chat"
	"github.com/bureau-foundation/handset/lib/netutil"
	"github.com/bureau-foundation/handset/lib/secret"
)

// DefaultAPIURL is the public Bot API endpoint.
const DefaultAPIURL = "https://api.telegram.org"

// tokenCheckTimeout bounds the getMe call made to validate the token.
const tokenCheckTimeout = 10 * time.Second

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	// APIURL is the Bot API base URL. Empty means DefaultAPIURL.
	APIURL string
	// Token is the bot token. Required. The Client does not take
	// ownership; the caller closes it after the Client is done.
	Token *secret.Buffer
	// ImageDir receives photos fetched by FetchImage. Empty means
	// os.TempDir().
	ImageDir string
	// HTTPClient is used for all requests. If nil, a client without an
	// overall timeout is used; long polls bound themselves.
	HTTPClient *http.Client
	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Client talks to the Bot API.
type Client struct {
	baseURL    string
	token      *secret.Buffer
	imageDir   string
	httpClient *http.Client
	logger     *slog.Logger
}

var (
	_ chat.Transport    = (*Client)(nil)
	_ chat.ImageFetcher = (*Client)(nil)
)

// NewClient creates a Client.
func NewClient(config ClientConfig) (*Client, error) {
	if config.Token == nil || config.Token.Len() == 0 {
		return nil, fmt.Errorf("telegram: token is required")
	}
	apiURL := config.APIURL
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if _, err := url.Parse(apiURL); err != nil {
		return nil, fmt.Errorf("telegram: invalid API URL %q: %w", apiURL, err)
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	imageDir := config.ImageDir
	if imageDir == "" {
		imageDir = os.TempDir()
	}
	return &Client{
		baseURL:    strings.TrimRight(apiURL, "/"),
		token:      config.Token,
		imageDir:   imageDir,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// GetMe returns the bot's own user, validating the token. The call is
// bounded by a 10 second timeout.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, tokenCheckTimeout)
	defer cancel()

	var user User
	if err := c.call(ctx, "getMe", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUpdates long-polls for updates with IDs at or above offset,
// waiting up to timeout for one to arrive.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	// The HTTP request outlives the server-side wait by a margin so a
	// slow response is not cut off.
	ctx, cancel := context.WithTimeout(ctx, timeout+10*time.Second)
	defer cancel()

	params := map[string]any{
		"offset":          offset,
		"timeout":         int(timeout / time.Second),
		"allowed_updates": []string{"message", "callback_query"},
	}
	var updates []Update
	if err := c.call(ctx, "getUpdates", params, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// SendMessage sends text to chatID. parseMode is "" or "HTML".
func (c *Client) SendMessage(ctx context.Context, chatID int64, text, parseMode string, buttons []chat.Button) (*Message, error) {
	params := map[string]any{
		"chat_id":                  chatID,
		"text":                     text,
		"disable_web_page_preview": true,
	}
	if parseMode != "" {
		params["parse_mode"] = parseMode
	}
	if markup := keyboard(buttons); markup != nil {
		params["reply_markup"] = markup
	}
	var message Message
	if err := c.call(ctx, "sendMessage", params, &message); err != nil {
		return nil, err
	}
	return &message, nil
}

// EditMessageText replaces a message's text. Omitting buttons removes
// the inline keyboard.
func (c *Client) EditMessageText(ctx context.Context, chatID, messageID int64, text, parseMode string, buttons []chat.Button) error {
	params := map[string]any{
		"chat_id":                  chatID,
		"message_id":               messageID,
		"text":                     text,
		"disable_web_page_preview": true,
	}
	if parseMode != "" {
		params["parse_mode"] = parseMode
	}
	if markup := keyboard(buttons); markup != nil {
		params["reply_markup"] = markup
	}
	return c.call(ctx, "editMessageText", params, nil)
}

// AnswerCallbackQuery acknowledges a button press.
func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackID, text string) error {
	params := map[string]any{"callback_query_id": callbackID}
	if text != "" {
		params["text"] = text
	}
	return c.call(ctx, "answerCallbackQuery", params, nil)
}

// GetFile resolves a file ID to a downloadable path.
func (c *Client) GetFile(ctx context.Context, fileID string) (*File, error) {
	var file File
	if err := c.call(ctx, "getFile", map[string]any{"file_id": fileID}, &file); err != nil {
		return nil, err
	}
	if file.FilePath == "" {
		return nil, fmt.Errorf("telegram: getFile %s returned no file path", fileID)
	}
	return &file, nil
}

// DownloadFile streams the file at filePath (from GetFile) to
// destination.
func (c *Client) DownloadFile(ctx context.Context, filePath string, destination io.Writer) error {
	requestURL := c.baseURL + "/file/bot" + c.token.String() + "/" + filePath
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("telegram: failed to create download request: %w", err)
	}
	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("telegram: download of %s failed: %w", filePath, redact(err, c.token.String()))
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram: download of %s returned %d: %s",
			filePath, response.StatusCode, netutil.ErrorBody(response.Body))
	}
	if _, err := io.Copy(destination, response.Body); err != nil {
		return fmt.Errorf("telegram: reading download of %s: %w", filePath, err)
	}
	return nil
}

// FetchImage implements chat.ImageFetcher: it resolves fileID and
// downloads the file into the client's image directory.
func (c *Client) FetchImage(ctx context.Context, fileID string) (string, error) {
	file, err := c.GetFile(ctx, fileID)
	if err != nil {
		return "", err
	}
	extension := path.Ext(file.FilePath)
	if extension == "" {
		extension = ".jpg"
	}
	destination, err := os.CreateTemp(c.imageDir, "handset-photo-*"+extension)
	if err != nil {
		return "", fmt.Errorf("telegram: creating photo file: %w", err)
	}
	if err := c.DownloadFile(ctx, file.FilePath, destination); err != nil {
		destination.Close()
		os.Remove(destination.Name())
		return "", err
	}
	if err := destination.Close(); err != nil {
		os.Remove(destination.Name())
		return "", fmt.Errorf("telegram: writing photo file: %w", err)
	}
	return destination.Name(), nil
}

// Send implements chat.Transport.
func (c *Client) Send(ctx context.Context, chatID int64, text string, format chat.Format, buttons []chat.Button) (int64, error) {
	message, err := c.SendMessage(ctx, chatID, text, parseMode(format), buttons)
	if err != nil {
		return 0, err
	}
	return message.MessageID, nil
}

// Edit implements chat.Transport. An edit that would not change the
// message is reported as success.
func (c *Client) Edit(ctx context.Context, chatID, messageID int64, text string, format chat.Format, buttons []chat.Button) error {
	err := c.EditMessageText(ctx, chatID, messageID, text, parseMode(format), buttons)
	if IsNotModified(err) {
		return nil
	}
	return err
}

// AnswerCallback implements chat.Transport.
func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string) error {
	return c.AnswerCallbackQuery(ctx, callbackID, text)
}

func parseMode(format chat.Format) string {
	if format == chat.HTML {
		return "HTML"
	}
	return ""
}

// keyboard lays buttons out one per row.
func keyboard(buttons []chat.Button) *inlineKeyboardMarkup {
	if len(buttons) == 0 {
		return nil
	}
	markup := &inlineKeyboardMarkup{}
	for _, button := range buttons {
		markup.InlineKeyboard = append(markup.InlineKeyboard, []inlineKeyboardButton{
			{Text: button.Text, CallbackData: button.Data},
		})
	}
	return markup
}

// call POSTs params as JSON to method and decodes the result into
// result (which may be nil). A response with ok=false becomes an
// *APIError.
func (c *Client) call(ctx context.Context, method string, params any, result any) error {
	var body io.Reader
	if params != nil {
		encoded, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("telegram: failed to encode %s request: %w", method, err)
		}
		body = bytes.NewReader(encoded)
	}

	token := c.token.String()
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/bot"+token+"/"+method, body)
	if err != nil {
		return fmt.Errorf("telegram: failed to create %s request: %w", method, redact(err, token))
	}
	if params != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	httpResponse, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("telegram: %s request failed: %w", method, redact(err, token))
	}
	defer httpResponse.Body.Close()

	var envelope response
	if err := netutil.DecodeResponse(httpResponse.Body, &envelope); err != nil {
		return fmt.Errorf("telegram: unexpected %d response to %s: %w", httpResponse.StatusCode, method, err)
	}
	if !envelope.OK {
		apiErr := &APIError{Code: envelope.ErrorCode, Description: envelope.Description}
		if apiErr.Code == 0 {
			apiErr.Code = httpResponse.StatusCode
		}
		if envelope.Parameters != nil {
			apiErr.RetryAfter = envelope.Parameters.RetryAfter
		}
		return apiErr
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, result); err != nil {
		return fmt.Errorf("telegram: failed to parse %s result: %w", method, err)
	}
	return nil
}

// redactedError hides the bot token, which net/http embeds in URL
// errors.
type redactedError struct {
	message string
	err     error
}

func (e *redactedError) Error() string { return e.message }
func (e *redactedError) Unwrap() error { return e.err }

func redact(err error, token string) error {
	if err == nil || token == "" || !strings.Contains(err.Error(), token) {
		return err
	}
	return &redactedError{message: strings.ReplaceAll(err.Error(), token, "<token>"), err: err}
}
