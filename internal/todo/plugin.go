package todo

import (
	"context"
	"strings"

	"github.com/hanamilabs/openclaw-todo-bridge/go-bridge/internal/gateway"
)

const (
	PluginID   = "openclaw-todo"
	PluginName = "OpenClaw TODO"

	commandName     = "todo"
	canonicalPrefix = "/todo"
	messagePrefix   = "todo:"
	unknownSender   = "unknown"
)

// Plugin wires the forwarder into a gateway host.
type Plugin struct {
	envURL string

	client *Client
	source Source
}

// NewPlugin takes the OPENCLAW_TODO_URL value the host read at startup.
func NewPlugin(envURL string) *Plugin {
	return &Plugin{envURL: envURL}
}

// Register resolves the server URL and declares the /todo command and the
// todo: message handler.
func (p *Plugin) Register(api gateway.API) {
	logger := api.Logger()
	configURL := ""
	if cfg := api.PluginConfig(); cfg != nil {
		configURL = cfg[ConfigServerURL]
	}

	url, source := ResolveServerURL(configURL, p.envURL)
	p.client = NewClient(url, logger)
	p.source = source
	if logger != nil {
		logger.Info("todo server URL resolved", "url", url, "source", string(source))
	}

	api.RegisterCommand(gateway.Command{
		Name:        commandName,
		Description: "Manage tasks: add, list, board, move, done, drop, edit, project",
		AcceptsArgs: true,
		Handler: func(ctx context.Context, cmd gateway.CommandContext) gateway.Reply {
			return gateway.Reply{Text: p.client.Forward(ctx, canonicalText(cmd.Args), senderOf(cmd.SenderID, cmd.From))}
		},
	})
	api.RegisterMessageHandler(func(ctx context.Context, msg gateway.Inbound) (gateway.Reply, bool) {
		args, ok := stripMessagePrefix(msg.Text)
		if !ok {
			return gateway.Reply{}, false
		}
		return gateway.Reply{Text: p.client.Forward(ctx, canonicalText(args), senderOf(msg.SenderID, msg.From))}, true
	})
}

// Client is nil until Register has run.
func (p *Plugin) Client() *Client {
	return p.client
}

func (p *Plugin) Source() Source {
	return p.source
}

func canonicalText(args string) string {
	return strings.TrimSpace(canonicalPrefix + " " + strings.TrimSpace(args))
}

// senderOf never falls back to the channel: that is a surface name shared by
// every user on it.
func senderOf(senderID string, from string) string {
	if v := strings.TrimSpace(senderID); v != "" {
		return v
	}
	if v := strings.TrimSpace(from); v != "" {
		return v
	}
	return unknownSender
}

func stripMessagePrefix(text string) (string, bool) {
	stripped := strings.TrimSpace(text)
	if stripped == messagePrefix {
		return "", true
	}
	if !strings.HasPrefix(stripped, messagePrefix+" ") {
		return "", false
	}
	return strings.TrimSpace(stripped[len(messagePrefix):]), true
}
