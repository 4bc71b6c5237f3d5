package service

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hanamilabs/openclaw-todo-bridge/go-bridge/internal/gateway"
)

func TestWebhookHandlerDeliversReply(t *testing.T) {
	telegramClient := &testTelegram{}
	var seen []gateway.CommandContext
	handler := newTestService(telegramClient, &seen).WebhookHandler()

	body := `{"update_id":3,"message":{"message_id":1,"from":{"id":42},"chat":{"id":-100,"type":"group"},"text":"/todo list"}}`
	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if len(telegramClient.sent) != 1 || telegramClient.sent[0].chatID != -100 {
		t.Fatalf("unexpected sent messages %+v", telegramClient.sent)
	}
	if len(seen) != 1 || seen[0].Args != "list" {
		t.Fatalf("unexpected command context %+v", seen)
	}
}

func TestWebhookHandlerRejectsBadRequests(t *testing.T) {
	tests := []struct {
		name   string
		method string
		body   string
		want   int
	}{
		{name: "wrong method", method: http.MethodGet, want: http.StatusMethodNotAllowed},
		{name: "malformed update", method: http.MethodPost, body: `{"update_id":`, want: http.StatusBadRequest},
		{name: "oversized body", method: http.MethodPost, body: `{"pad":"` + strings.Repeat("x", MaxWebhookBody) + `"}`, want: http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			telegramClient := &testTelegram{}
			var seen []gateway.CommandContext
			handler := newTestService(telegramClient, &seen).WebhookHandler()

			rec := httptest.NewRecorder()
			handler(rec, httptest.NewRequest(tt.method, "/telegram/webhook", strings.NewReader(tt.body)))

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if len(telegramClient.sent) != 0 || len(seen) != 0 {
				t.Fatalf("rejected request reached the gateway: sent=%+v seen=%+v", telegramClient.sent, seen)
			}
		})
	}
}
