package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hanamilabs/openclaw-todo-bridge/go-bridge/internal/gateway"
)

func newTestServer(opts Options) *HealthServer {
	return NewHealthServer(opts, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func echoHost() *gateway.Host {
	host := gateway.NewHost(nil, nil)
	host.RegisterCommand(gateway.Command{
		Name:        "todo",
		AcceptsArgs: true,
		Handler: func(_ context.Context, cmd gateway.CommandContext) gateway.Reply {
			return gateway.Reply{Text: cmd.SenderID + ":" + cmd.Args}
		},
	})
	return host
}

func TestCommandHandlerDispatchesThroughHost(t *testing.T) {
	server := newTestServer(Options{Host: echoHost()})
	req := httptest.NewRequest(http.MethodPost, "/command", strings.NewReader(`{"text":"/todo add Buy milk","senderId":"u1"}`))
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var res commandResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if res.Text != "u1:add Buy milk" {
		t.Fatalf("unexpected reply %q", res.Text)
	}
}

func TestCommandHandlerRejectsBadRequests(t *testing.T) {
	tests := []struct {
		name   string
		method string
		body   string
		want   int
	}{
		{name: "wrong method", method: http.MethodGet, body: "", want: http.StatusMethodNotAllowed},
		{name: "invalid json", method: http.MethodPost, body: "{", want: http.StatusBadRequest},
		{name: "missing text", method: http.MethodPost, body: `{"senderId":"u1"}`, want: http.StatusBadRequest},
		{name: "unclaimed", method: http.MethodPost, body: `{"text":"hello"}`, want: http.StatusNotFound},
	}
	server := newTestServer(Options{Host: echoHost()})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/command", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			server.Handler().ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestHealthHandlerReportsChecksAndPlugin(t *testing.T) {
	server := newTestServer(Options{
		Host:          echoHost(),
		TodoURL:       "http://127.0.0.1:8200",
		TodoURLSource: "default",
		TodoCheck:     func(context.Context) error { return errors.New("connection refused") },
	})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var res healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if res.TodoServer.OK || res.TodoServer.Error != "connection refused" {
		t.Fatalf("unexpected todo check %+v", res.TodoServer)
	}
	if !res.Telegram.Skipped {
		t.Fatalf("expected telegram check skipped, got %+v", res.Telegram)
	}
	if res.Plugin.ServerURL != "http://127.0.0.1:8200" || res.Plugin.Source != "default" {
		t.Fatalf("unexpected plugin info %+v", res.Plugin)
	}
	if len(res.Plugin.Commands) != 1 || res.Plugin.Commands[0] != "/todo" {
		t.Fatalf("unexpected commands %v", res.Plugin.Commands)
	}
}

func TestLocalAddr(t *testing.T) {
	if got := LocalAddr(4098); got != "127.0.0.1:4098" {
		t.Fatalf("unexpected addr %q", got)
	}
}
