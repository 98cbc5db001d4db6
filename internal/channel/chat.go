package channel

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/telebot.v3"
)

// ChatAPI is the telebot seam; *telebot.Bot satisfies it.
type ChatAPI interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// ChatSender delivers reminders as direct chat messages through a
// Telegram bot.
type ChatSender struct {
	bot ChatAPI
}

func NewChatSender(token string) (*ChatSender, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("chat bot token is required")
	}

	bot, err := telebot.NewBot(telebot.Settings{Token: token})
	if err != nil {
		return nil, fmt.Errorf("failed to create chat bot: %w", err)
	}

	return &ChatSender{bot: bot}, nil
}

// NewChatSenderWithAPI wires a custom bot API, used in tests.
func NewChatSenderWithAPI(bot ChatAPI) (*ChatSender, error) {
	if bot == nil {
		return nil, fmt.Errorf("chat api is required")
	}
	return &ChatSender{bot: bot}, nil
}

func (s *ChatSender) Send(ctx context.Context, delivery Delivery) error {
	if s == nil || s.bot == nil {
		return permanentError("chat sender is not initialized")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	chatID, err := strconv.ParseInt(strings.TrimSpace(delivery.Reminder.Recipient), 10, 64)
	if err != nil {
		// A malformed chat id never heals on retry.
		return permanentError("invalid chat id %q", delivery.Reminder.Recipient)
	}

	text := composeChatMessage(delivery)
	if _, err := s.bot.Send(&telebot.User{ID: chatID}, text); err != nil {
		return transientError("chat send failed", err)
	}

	return nil
}

func composeChatMessage(delivery Delivery) string {
	return fmt.Sprintf("🎂 %s has a birthday coming up (%s before).",
		delivery.Birthday.Name, delivery.Reminder.LeadTime)
}
