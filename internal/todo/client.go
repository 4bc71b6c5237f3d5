package todo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hanamilabs/openclaw-todo-bridge/go-bridge/internal/gateway"
)

// Replies shown to chat users. None of them carry upstream detail.
const (
	NoResponseText  = "No response from TODO server."
	ServerErrorText = "⚠️ TODO server returned an error. Please try again later."
	UnreachableText = "⚠️ Could not reach the TODO server. Is it running?"
)

// StatusError is a non-2xx answer from the TODO server.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("todo server status %d", e.Code)
}

type Client struct {
	baseURL string
	http    *http.Client
	logger  gateway.Logger
}

type messageRequest struct {
	Text     string `json:"text"`
	SenderID string `json:"sender_id"`
}

type messageResponse struct {
	Response *string `json:"response"`
}

// NewClient builds a forwarder for baseURL. The HTTP client has no timeout
// of its own; cancellation comes from the caller's context. logger may be nil.
func NewClient(baseURL string, logger gateway.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{},
		logger:  logger,
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Forward posts one message to the TODO server and returns the text to show
// the user. It never fails: errors become a generic reply plus a log line.
func (c *Client) Forward(ctx context.Context, text string, senderID string) string {
	reply, err := c.postMessage(ctx, messageRequest{Text: text, SenderID: senderID})
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			c.logError("todo server returned error status", "status", statusErr.Code, "sender_id", senderID)
			return ServerErrorText
		}
		c.logError("todo server request failed", "error", err.Error(), "sender_id", senderID)
		return UnreachableText
	}
	if reply.Response == nil || *reply.Response == "" {
		return NoResponseText
	}
	return *reply.Response
}

// CheckHealth calls GET /health on the TODO server.
func (c *Client) CheckHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return &StatusError{Code: res.StatusCode}
	}
	return nil
}

func (c *Client) postMessage(ctx context.Context, body messageRequest) (messageResponse, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return messageResponse{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/message", bytes.NewReader(raw))
	if err != nil {
		return messageResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return messageResponse{}, err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		// Drain so the connection can be reused; the body is never surfaced.
		_, _ = io.Copy(io.Discard, res.Body)
		return messageResponse{}, &StatusError{Code: res.StatusCode}
	}

	var payload messageResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return messageResponse{}, fmt.Errorf("decode todo server response: %w", err)
	}
	return payload, nil
}

func (c *Client) logError(msg string, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Error(msg, args...)
}
