package ports

import (
	"context"

	"github.com/hanamilabs/openclaw-todo-bridge/go-bridge/internal/gateway"
)

// ChatSender delivers a reply to a chat surface.
type ChatSender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Dispatcher routes an inbound message to a plugin. *gateway.Host satisfies it.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg gateway.Inbound) (gateway.Reply, bool)
}
