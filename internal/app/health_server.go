package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hanamilabs/openclaw-todo-bridge/go-bridge/internal/gateway"
)

var ErrServerClosed = http.ErrServerClosed

// Checker tests one upstream dependency.
type Checker func(ctx context.Context) error

// Options configures the local control server. Nil checkers are reported as
// skipped.
type Options struct {
	Addr          string
	Host          *gateway.Host
	TodoURL       string
	TodoURLSource string
	TodoCheck     Checker
	TelegramCheck Checker
}

type HealthServer struct {
	opts       Options
	logger     *slog.Logger
	httpServer *http.Server
	startedAt  time.Time
}

type serviceCheck struct {
	OK      bool   `json:"ok"`
	Skipped bool   `json:"skipped,omitempty"`
	Error   string `json:"error,omitempty"`
}

type healthResponse struct {
	UptimeSeconds int64        `json:"uptimeSeconds"`
	TodoServer    serviceCheck `json:"todoServer"`
	Telegram      serviceCheck `json:"telegram"`
	Plugin        struct {
		ServerURL string   `json:"serverUrl"`
		Source    string   `json:"source"`
		Commands  []string `json:"commands"`
	} `json:"plugin"`
}

type commandRequest struct {
	Text     string `json:"text"`
	SenderID string `json:"senderId"`
	From     string `json:"from"`
}

type commandResponse struct {
	Text string `json:"text"`
}

func NewHealthServer(opts Options, logger *slog.Logger) *HealthServer {
	server := &HealthServer{opts: opts, logger: logger, startedAt: time.Now()}
	server.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return server
}

func (s *HealthServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/command", s.commandHandler)
	return mux
}

func (s *HealthServer) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

func (s *HealthServer) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// commandHandler runs a message through the gateway the same way a chat
// transport would.
func (s *HealthServer) commandHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.opts.Host == nil {
		http.Error(w, "gateway unavailable", http.StatusServiceUnavailable)
		return
	}

	var payload commandRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(payload.Text) == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}

	reply, ok := s.opts.Host.Dispatch(r.Context(), gateway.Inbound{
		Text:     payload.Text,
		SenderID: payload.SenderID,
		From:     payload.From,
		Channel:  "http",
	})
	if !ok {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "no handler for message"})
		return
	}
	s.writeJSON(w, http.StatusOK, commandResponse{Text: reply.Text})
}

func (s *HealthServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	res := healthResponse{UptimeSeconds: int64(time.Since(s.startedAt).Seconds())}
	res.Plugin.ServerURL = s.opts.TodoURL
	res.Plugin.Source = s.opts.TodoURLSource
	res.Plugin.Commands = []string{}
	if s.opts.Host != nil {
		for _, cmd := range s.opts.Host.Commands() {
			res.Plugin.Commands = append(res.Plugin.Commands, "/"+cmd.Name)
		}
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		res.TodoServer = runCheck(ctx, s.opts.TodoCheck)
	}()
	go func() {
		defer wg.Done()
		res.Telegram = runCheck(ctx, s.opts.TelegramCheck)
	}()
	wg.Wait()

	s.writeJSON(w, http.StatusOK, res)
}

func (s *HealthServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("encode json response failed", "error", err)
	}
}

func runCheck(ctx context.Context, check Checker) serviceCheck {
	if check == nil {
		return serviceCheck{Skipped: true}
	}
	return checkFromErr(check(ctx))
}

func checkFromErr(err error) serviceCheck {
	if err == nil {
		return serviceCheck{OK: true}
	}
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		msg = "unknown error"
	}
	return serviceCheck{OK: false, Error: msg}
}

func IsServerClosed(err error) bool {
	return errors.Is(err, ErrServerClosed)
}

// LocalAddr binds the control server to loopback only.
func LocalAddr(port int) string {
	return fmt.Sprintf("127.0.0.1:%d", port)
}
