// Package channel holds the outbound delivery transports. The channel
// set is closed: a Senders value binds exactly one sender per
// domain.Channel variant, and resolution switches over the tagged enum
// instead of free-form strings.
package channel

import (
	"context"
	"fmt"

	"github.com/remindly/birthday-engine/internal/domain"
)

// Delivery is everything a transport needs for one send: the reminder
// being delivered and its source birthday for message composition.
type Delivery struct {
	Reminder domain.Reminder
	Birthday domain.Birthday
}

// Sender is the outbound delivery port for a single channel.
type Sender interface {
	Send(ctx context.Context, delivery Delivery) error
}

// Senders resolves the transport for each supported channel.
type Senders struct {
	email Sender
	chat  Sender
}

func NewSenders(email, chat Sender) (*Senders, error) {
	if email == nil {
		return nil, fmt.Errorf("email sender is required")
	}
	if chat == nil {
		return nil, fmt.Errorf("chat sender is required")
	}
	return &Senders{email: email, chat: chat}, nil
}

func (s *Senders) For(ch domain.Channel) (Sender, error) {
	switch ch {
	case domain.ChannelEmail:
		return s.email, nil
	case domain.ChannelChat:
		return s.chat, nil
	default:
		return nil, fmt.Errorf("%w: no sender for channel %q", domain.ErrValidation, ch)
	}
}
