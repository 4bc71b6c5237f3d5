package service

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/hanamilabs/openclaw-todo-bridge/go-bridge/internal/gateway"
	"github.com/hanamilabs/openclaw-todo-bridge/go-bridge/internal/ports"
	"github.com/hanamilabs/openclaw-todo-bridge/go-bridge/internal/telegram"
)

const ChannelTelegram = "telegram"

// BridgeService turns Telegram updates into gateway dispatches and sends the
// replies back to the originating chat.
type BridgeService struct {
	logger      *slog.Logger
	dispatcher  ports.Dispatcher
	telegramAPI ports.ChatSender
	queue       *KeyedQueue
}

func NewBridgeService(logger *slog.Logger, dispatcher ports.Dispatcher, telegramClient ports.ChatSender) *BridgeService {
	return &BridgeService{
		logger:      logger,
		dispatcher:  dispatcher,
		telegramAPI: telegramClient,
		queue:       NewKeyedQueue(),
	}
}

func (s *BridgeService) HandleUpdate(ctx context.Context, update telegram.Update) {
	if update.Message == nil {
		return
	}
	message := update.Message
	if message.From.ID == 0 || message.Chat.ID == 0 {
		return
	}

	text := strings.TrimSpace(message.Text)
	if text == "" {
		return
	}

	inbound := InboundFromTelegram(*message)
	queueKey := strconv.FormatInt(message.Chat.ID, 10)
	err := s.queue.Run(ctx, queueKey, func(ctx context.Context) error {
		reply, ok := s.dispatcher.Dispatch(ctx, inbound)
		if !ok || strings.TrimSpace(reply.Text) == "" {
			return nil
		}
		return s.telegramAPI.SendMessage(ctx, message.Chat.ID, reply.Text)
	})
	if err != nil {
		s.logger.Error("deliver reply failed", "error", err, "chat_id", message.Chat.ID, "user_id", message.From.ID)
	}
}

// InboundFromTelegram maps a Telegram message to the gateway shape. The
// sender is the user, never the chat: group chats share one chat ID.
func InboundFromTelegram(message telegram.Message) gateway.Inbound {
	userID := strconv.FormatInt(message.From.ID, 10)
	return gateway.Inbound{
		Text:     strings.TrimSpace(message.Text),
		SenderID: userID,
		From:     ChannelTelegram + ":" + userID,
		Channel:  ChannelTelegram,
	}
}
