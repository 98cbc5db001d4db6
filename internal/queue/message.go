package queue

import (
	"fmt"
	"strings"

	"github.com/remindly/birthday-engine/internal/domain"
)

// ReminderMessage is the broker payload handed from the due scanner to
// the dispatch workers.
type ReminderMessage struct {
	ReminderID string         `json:"reminderId"`
	BirthdayID string         `json:"birthdayId,omitempty"`
	Channel    domain.Channel `json:"channel"`
}

func (m ReminderMessage) Validate() error {
	if strings.TrimSpace(m.ReminderID) == "" {
		return fmt.Errorf("reminderId is required")
	}
	if !m.Channel.IsValid() {
		return fmt.Errorf("invalid channel %q", m.Channel)
	}
	return nil
}
