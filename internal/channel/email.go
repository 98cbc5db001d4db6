package channel

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gopkg.in/gomail.v2"
)

// MailDialer is the gomail seam; *gomail.Dialer satisfies it.
type MailDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailSender delivers reminders over SMTP.
type EmailSender struct {
	dialer MailDialer
	from   string
}

func NewEmailSender(host string, port int, username, password, from string) (*EmailSender, error) {
	if strings.TrimSpace(host) == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if strings.TrimSpace(from) == "" {
		return nil, fmt.Errorf("smtp from address is required")
	}

	return &EmailSender{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}, nil
}

// NewEmailSenderWithDialer wires a custom dialer, used in tests.
func NewEmailSenderWithDialer(dialer MailDialer, from string) (*EmailSender, error) {
	if dialer == nil {
		return nil, fmt.Errorf("mail dialer is required")
	}
	if strings.TrimSpace(from) == "" {
		return nil, fmt.Errorf("smtp from address is required")
	}
	return &EmailSender{dialer: dialer, from: from}, nil
}

func (s *EmailSender) Send(ctx context.Context, delivery Delivery) error {
	if s == nil || s.dialer == nil {
		return permanentError("email sender is not initialized")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	subject, html := composeEmail(delivery)

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", delivery.Reminder.Recipient)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", html)

	if err := s.dialer.DialAndSend(m); err != nil {
		// SMTP failures are overwhelmingly connectivity or greylisting;
		// let the re-scheduling cycle try again.
		return transientError("smtp send failed", err)
	}

	return nil
}

func composeEmail(delivery Delivery) (subject, html string) {
	name := delivery.Birthday.Name
	when := delivery.Reminder.NotifyAt.UTC().Format(time.RFC1123)

	subject = fmt.Sprintf("Birthday reminder: %s", name)
	html = fmt.Sprintf(
		"<p>%s has a birthday coming up (%s before).</p><p>Reminder fired at %s.</p>",
		name, delivery.Reminder.LeadTime, when,
	)
	return subject, html
}
