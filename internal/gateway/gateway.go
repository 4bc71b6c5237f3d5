// Package gateway is the host side of the plugin contract: plugins register
// commands and message handlers, transports hand inbound messages to
// Dispatch and deliver the returned reply.
package gateway

import (
	"context"
	"sort"
	"strings"
	"sync"
	"unicode"
)

// Logger is the optional operator log a plugin may write to.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// API is everything a plugin may touch while registering. Logger and
// PluginConfig may return nil.
type API interface {
	RegisterCommand(cmd Command)
	RegisterMessageHandler(handler MessageHandler)
	Logger() Logger
	PluginConfig() map[string]string
}

// CommandContext is what a command handler sees. Args has the command
// prefix already removed; CommandBody is the full normalized text.
type CommandContext struct {
	Args        string
	CommandBody string
	SenderID    string
	From        string
	Channel     string
}

type Reply struct {
	Text string
}

type Command struct {
	Name        string
	Description string
	AcceptsArgs bool
	Handler     func(ctx context.Context, cmd CommandContext) Reply
}

// MessageHandler is offered every message that is not a registered command.
// Returning false passes the message on.
type MessageHandler func(ctx context.Context, msg Inbound) (Reply, bool)

// Inbound is a chat message as the transport saw it.
type Inbound struct {
	Text     string
	SenderID string
	From     string
	Channel  string
}

type Host struct {
	logger Logger
	config map[string]string

	mu          sync.RWMutex
	botUsername string
	commands    map[string]Command
	handlers    []MessageHandler
}

func NewHost(logger Logger, pluginConfig map[string]string) *Host {
	return &Host{
		logger:   logger,
		config:   pluginConfig,
		commands: map[string]Command{},
	}
}

func (h *Host) RegisterCommand(cmd Command) {
	name := strings.ToLower(strings.TrimSpace(cmd.Name))
	if name == "" || cmd.Handler == nil {
		return
	}
	h.mu.Lock()
	h.commands[name] = cmd
	h.mu.Unlock()
}

func (h *Host) RegisterMessageHandler(handler MessageHandler) {
	if handler == nil {
		return
	}
	h.mu.Lock()
	h.handlers = append(h.handlers, handler)
	h.mu.Unlock()
}

// SetBotUsername makes the host ignore "/name@other" commands addressed to a
// different bot. Until it is set, any @suffix is accepted.
func (h *Host) SetBotUsername(username string) {
	h.mu.Lock()
	h.botUsername = strings.TrimPrefix(strings.TrimSpace(username), "@")
	h.mu.Unlock()
}

func (h *Host) Logger() Logger {
	return h.logger
}

func (h *Host) PluginConfig() map[string]string {
	return h.config
}

// Commands returns the registered commands sorted by name.
func (h *Host) Commands() []Command {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Command, 0, len(h.commands))
	for _, cmd := range h.commands {
		out = append(out, cmd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Dispatch routes msg to a command or message handler. The bool is false
// when nothing claimed the message.
func (h *Host) Dispatch(ctx context.Context, msg Inbound) (Reply, bool) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return Reply{}, false
	}

	if name, target, args, ok := splitCommand(text); ok {
		h.mu.RLock()
		cmd, found := h.commands[name]
		botUsername := h.botUsername
		h.mu.RUnlock()
		if target != "" && botUsername != "" && !strings.EqualFold(target, botUsername) {
			return Reply{}, false
		}
		if found {
			if args != "" && !cmd.AcceptsArgs {
				return Reply{Text: "Usage: /" + cmd.Name}, true
			}
			body := "/" + cmd.Name
			if args != "" {
				body += " " + args
			}
			return cmd.Handler(ctx, CommandContext{
				Args:        args,
				CommandBody: body,
				SenderID:    msg.SenderID,
				From:        msg.From,
				Channel:     msg.Channel,
			}), true
		}
	}

	h.mu.RLock()
	handlers := append([]MessageHandler(nil), h.handlers...)
	h.mu.RUnlock()
	msg.Text = text
	for _, handler := range handlers {
		if reply, ok := handler(ctx, msg); ok {
			return reply, true
		}
	}
	return Reply{}, false
}

// splitCommand parses "/name[@bot] [args]". Any whitespace ends the name.
func splitCommand(text string) (name string, target string, args string, ok bool) {
	if !strings.HasPrefix(text, "/") {
		return "", "", "", false
	}
	head, rest := text[1:], ""
	if i := strings.IndexFunc(head, unicode.IsSpace); i >= 0 {
		head, rest = head[:i], head[i:]
	}
	head, target, _ = strings.Cut(head, "@")
	if head == "" {
		return "", "", "", false
	}
	return strings.ToLower(head), target, strings.TrimSpace(rest), true
}
