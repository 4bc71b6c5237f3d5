package service

import (
	"errors"
	"io"
	"net/http"

	"github.com/hanamilabs/openclaw-todo-bridge/go-bridge/internal/telegram"
)

// MaxWebhookBody caps a single webhook request. Telegram updates are a few KiB.
const MaxWebhookBody = 1 << 20

// WebhookHandler accepts Telegram webhook posts and handles each update
// before answering, so Telegram retries when the handler is cut short.
func (s *BridgeService) WebhookHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxWebhookBody))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
				return
			}
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
		update, err := telegram.ParseUpdate(body)
		if err != nil {
			s.logger.Warn("webhook update rejected", "error", err)
			http.Error(w, "invalid update", http.StatusBadRequest)
			return
		}
		s.HandleUpdate(r.Context(), update)
		w.WriteHeader(http.StatusOK)
	}
}
