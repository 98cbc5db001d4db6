package domain

import (
	"fmt"
	"strings"
	"time"
)

// DefaultMaxAttempts bounds the flip-back retry cycle. A failed send
// resets IsScheduled so the scanner re-queues the record; once the
// attempt count reaches this bound the record stays failed.
const DefaultMaxAttempts = 5

// Reminder is a derived pending-notification record. Lifecycle:
//
//	pending   IsScheduled=false IsSent=false
//	scheduled IsScheduled=true
//	sent      IsSent=true
//	failed    Error set, IsScheduled reset to false
//
// Exactly one record is intended per (BirthdayID, Channel, Recipient,
// LeadTime, TargetYear). That uniqueness is enforced by application-level
// dedup queries, not by a storage constraint. Records are created and
// destroyed only by the synchronizer and the yearly regenerator; the
// scanner flips pending to scheduled and the dispatch worker records the
// terminal outcome.
type Reminder struct {
	ID         string
	BirthdayID string
	Channel    Channel
	Recipient  string
	LeadTime   Formula
	TargetYear int
	NotifyAt   time.Time

	IsScheduled bool
	IsSent      bool
	SentAt      *time.Time
	Error       *string

	AttemptCount int
	MaxAttempts  int

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (r *Reminder) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: reminder is required", ErrValidation)
	}
	if strings.TrimSpace(r.BirthdayID) == "" {
		return fmt.Errorf("%w: birthday id is required", ErrValidation)
	}
	if !r.Channel.IsValid() {
		return fmt.Errorf("%w: invalid channel %q", ErrValidation, r.Channel)
	}
	if strings.TrimSpace(r.Recipient) == "" {
		return fmt.Errorf("%w: recipient is required", ErrValidation)
	}
	if err := r.LeadTime.Validate(); err != nil {
		return err
	}
	if r.NotifyAt.IsZero() {
		return fmt.Errorf("%w: notify time is required", ErrValidation)
	}
	return nil
}

// IsPending reports whether the scanner may still pick this record up.
func (r *Reminder) IsPending() bool {
	return !r.IsScheduled && !r.IsSent
}

// DedupKey identifies the application-level uniqueness tuple.
func (r *Reminder) DedupKey() string {
	return fmt.Sprintf("%s/%s/%s/%s/%d",
		r.BirthdayID, r.Channel, r.Recipient, r.LeadTime, r.TargetYear)
}
