package channel

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/remindly/birthday-engine/internal/domain"
)

func TestSendersFor(t *testing.T) {
	t.Parallel()

	email := &EmailSender{}
	chat := &ChatSender{}
	senders, err := NewSenders(email, chat)
	if err != nil {
		t.Fatalf("NewSenders() error = %v", err)
	}

	got, err := senders.For(domain.ChannelEmail)
	if err != nil {
		t.Fatalf("For(EMAIL) error = %v", err)
	}
	if got != email {
		t.Fatal("For(EMAIL) returned the wrong sender")
	}

	got, err = senders.For(domain.ChannelChat)
	if err != nil {
		t.Fatalf("For(CHAT) error = %v", err)
	}
	if got != chat {
		t.Fatal("For(CHAT) returned the wrong sender")
	}

	if _, err := senders.For(domain.Channel("FAX")); err == nil {
		t.Fatal("expected error for unsupported channel")
	}
}

func TestNewSendersValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewSenders(nil, &ChatSender{}); err == nil {
		t.Fatal("expected error for nil email sender")
	}
	if _, err := NewSenders(&EmailSender{}, nil); err == nil {
		t.Fatal("expected error for nil chat sender")
	}
}

func TestIsTransient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "transient channel error", err: transientError("smtp send failed", errors.New("refused")), want: true},
		{name: "permanent channel error", err: permanentError("invalid chat id %q", "x"), want: false},
		{name: "wrapped transient", err: fmt.Errorf("dispatch: %w", transientError("boom", nil)), want: true},
		{name: "deadline exceeded", err: context.DeadlineExceeded, want: true},
		{name: "canceled", err: context.Canceled, want: false},
		{name: "plain error", err: errors.New("whatever"), want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsTransient(tt.err); got != tt.want {
				t.Fatalf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestChannelErrorMessage(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection reset")
	err := transientError("smtp send failed", cause)

	if !errors.Is(err, cause) {
		t.Fatal("cause must be reachable through Unwrap")
	}

	msg := err.Error()
	if msg != "channel error: smtp send failed: connection reset" {
		t.Fatalf("Error() = %q", msg)
	}
}
