package channel

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/remindly/birthday-engine/internal/domain"
	"gopkg.in/telebot.v3"
)

type fakeBot struct {
	sendFn func(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

func (f *fakeBot) Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error) {
	if f.sendFn == nil {
		return &telebot.Message{}, nil
	}
	return f.sendFn(to, what, opts...)
}

func TestChatSenderSend(t *testing.T) {
	t.Parallel()

	var sentTo telebot.Recipient
	var sentText string
	bot := &fakeBot{
		sendFn: func(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error) {
			sentTo = to
			text, _ := what.(string)
			sentText = text
			return &telebot.Message{}, nil
		},
	}

	sender, err := NewChatSenderWithAPI(bot)
	if err != nil {
		t.Fatalf("NewChatSenderWithAPI() error = %v", err)
	}

	err = sender.Send(context.Background(), testDelivery(domain.ChannelChat, "42"))
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if sentTo == nil || sentTo.Recipient() != "42" {
		t.Fatalf("recipient = %v, want chat id 42", sentTo)
	}
	if !strings.Contains(sentText, "Ada") {
		t.Fatalf("message %q should mention the birthday person", sentText)
	}
}

func TestChatSenderSendMalformedChatID(t *testing.T) {
	t.Parallel()

	called := false
	bot := &fakeBot{
		sendFn: func(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error) {
			called = true
			return &telebot.Message{}, nil
		},
	}

	sender, err := NewChatSenderWithAPI(bot)
	if err != nil {
		t.Fatalf("NewChatSenderWithAPI() error = %v", err)
	}

	err = sender.Send(context.Background(), testDelivery(domain.ChannelChat, "not-a-chat-id"))
	if err == nil {
		t.Fatal("expected Send() error for malformed chat id")
	}
	if IsTransient(err) {
		t.Fatal("a malformed chat id must be a permanent failure")
	}
	if called {
		t.Fatal("bot must not be invoked for a malformed chat id")
	}
}

func TestChatSenderSendAPIFailure(t *testing.T) {
	t.Parallel()

	bot := &fakeBot{
		sendFn: func(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error) {
			return nil, errors.New("telegram: bad gateway")
		},
	}

	sender, err := NewChatSenderWithAPI(bot)
	if err != nil {
		t.Fatalf("NewChatSenderWithAPI() error = %v", err)
	}

	err = sender.Send(context.Background(), testDelivery(domain.ChannelChat, "42"))
	if err == nil {
		t.Fatal("expected Send() error")
	}
	if !IsTransient(err) {
		t.Fatalf("api failure should be transient, got %v", err)
	}
}

func TestNewChatSenderValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewChatSender(""); err == nil {
		t.Fatal("expected error for empty token")
	}
	if _, err := NewChatSenderWithAPI(nil); err == nil {
		t.Fatal("expected error for nil api")
	}
}
