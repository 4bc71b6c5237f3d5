// Package telegram is a small Bot API client covering the calls the bridge
// needs: sending replies, receiving updates by long poll or webhook, and getMe.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

const (
	DefaultAPIBase     = "https://api.telegram.org"
	DefaultWebhookPath = "/telegram/webhook"

	pollWorkers    = 8
	maxLongPollSec = 50
)

var allowedUpdates = []string{"message"}

type API struct {
	botToken        string
	apiBase         string
	client          *http.Client
	pollingInterval time.Duration
}

type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

type Message struct {
	MessageID int64  `json:"message_id"`
	From      User   `json:"from"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text"`
}

type User struct {
	ID       int64  `json:"id"`
	IsBot    bool   `json:"is_bot"`
	Username string `json:"username"`
}

type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// APIError is a Bot API reply with "ok": false, or a non-JSON error status.
type APIError struct {
	Method      string
	Code        int
	Description string
}

func (e *APIError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("telegram %s: status %d", e.Method, e.Code)
	}
	return fmt.Sprintf("telegram %s: %s (%d)", e.Method, e.Description, e.Code)
}

// envelope is the wrapper every Bot API method answers with.
type envelope struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
}

func NewAPI(botToken string, timeout time.Duration, pollingInterval time.Duration) *API {
	if pollingInterval <= 0 {
		pollingInterval = 2 * time.Second
	}
	return &API{
		botToken:        botToken,
		apiBase:         DefaultAPIBase,
		client:          &http.Client{Timeout: timeout},
		pollingInterval: pollingInterval,
	}
}

// WithAPIBase points the client at another Bot API server.
func (a *API) WithAPIBase(base string) *API {
	a.apiBase = strings.TrimRight(base, "/")
	return a
}

func (a *API) SendMessage(ctx context.Context, chatID int64, text string) error {
	return a.call(ctx, "sendMessage", map[string]any{"chat_id": chatID, "text": text}, nil)
}

// GetMe returns the bot's own account.
func (a *API) GetMe(ctx context.Context) (User, error) {
	var me User
	err := a.call(ctx, "getMe", nil, &me)
	return me, err
}

func (a *API) CheckConnectivity(ctx context.Context) error {
	_, err := a.GetMe(ctx)
	return err
}

func (a *API) SetupWebhook(ctx context.Context, webhookURL string) error {
	return a.call(ctx, "setWebhook", map[string]any{"url": webhookURL, "allowed_updates": allowedUpdates}, nil)
}

func (a *API) DeleteWebhook(ctx context.Context) error {
	return a.call(ctx, "deleteWebhook", map[string]any{"drop_pending_updates": false}, nil)
}

// PollUpdates long-polls getUpdates and runs handler for each update on at
// most pollWorkers goroutines. Offsets are confirmed on the next call. It
// returns nil once ctx is done.
func (a *API) PollUpdates(ctx context.Context, handler func(context.Context, Update)) error {
	timeout := int(a.pollingInterval / time.Second)
	timeout = max(1, min(timeout, maxLongPollSec))

	params := map[string]any{"offset": int64(0), "timeout": timeout, "allowed_updates": allowedUpdates}
	workers := make(chan struct{}, pollWorkers)
	for ctx.Err() == nil {
		var updates []Update
		if err := a.call(ctx, "getUpdates", params, &updates); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		for _, u := range updates {
			u := u
			if next := u.UpdateID + 1; next > params["offset"].(int64) {
				params["offset"] = next
			}
			workers <- struct{}{}
			go func() {
				defer func() { <-workers }()
				handler(ctx, u)
			}()
		}

		if len(updates) == 0 {
			select {
			case <-ctx.Done():
			case <-time.After(a.pollingInterval):
			}
		}
	}
	return nil
}

// WebhookPath is the local route for webhookURL's path.
func (a *API) WebhookPath(webhookURL string) string {
	parsed, err := url.Parse(webhookURL)
	if err != nil || strings.TrimSpace(parsed.Path) == "" {
		return DefaultWebhookPath
	}
	return path.Clean("/" + strings.TrimSpace(parsed.Path))
}

// ParseUpdate decodes one update as Telegram posts it to a webhook.
func ParseUpdate(body []byte) (Update, error) {
	var update Update
	if err := json.Unmarshal(body, &update); err != nil {
		return Update{}, fmt.Errorf("telegram update: %w", err)
	}
	return update, nil
}

// call invokes a Bot API method and decodes "result" into out when out is
// non-nil. Errors never contain the request URL, which embeds the token.
func (a *API) call(ctx context.Context, method string, params any, out any) error {
	httpMethod, body := http.MethodGet, io.Reader(nil)
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("telegram %s: %w", method, err)
		}
		httpMethod, body = http.MethodPost, bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, httpMethod, a.apiBase+"/bot"+a.botToken+"/"+method, body)
	if err != nil {
		return fmt.Errorf("telegram %s: build request failed", method)
	}
	req.Header.Set("Accept", "application/json")
	if params != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := a.client.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	defer res.Body.Close()

	var env envelope
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		if res.StatusCode >= http.StatusBadRequest {
			return &APIError{Method: method, Code: res.StatusCode}
		}
		return fmt.Errorf("telegram %s: decode response: %w", method, err)
	}
	if !env.OK {
		code := env.ErrorCode
		if code == 0 {
			code = res.StatusCode
		}
		return &APIError{Method: method, Code: code, Description: env.Description}
	}
	if out == nil || len(env.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("telegram %s: decode result: %w", method, err)
	}
	return nil
}
