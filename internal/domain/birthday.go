package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Channel represents a delivery channel. The set is closed: dispatch
// switches over exactly these variants, never on free-form strings.
type Channel string

const (
	ChannelEmail Channel = "EMAIL"
	ChannelChat  Channel = "CHAT"
)

func (c Channel) String() string { return string(c) }

func (c Channel) IsValid() bool {
	switch c {
	case ChannelEmail, ChannelChat:
		return true
	}
	return false
}

func ParseChannelFromString(s string) (Channel, error) {
	ch := Channel(strings.ToUpper(strings.TrimSpace(s)))
	if !ch.IsValid() {
		return "", fmt.Errorf("%w: invalid channel %q", ErrValidation, s)
	}
	return ch, nil
}

// ChannelRef binds a channel to a concrete recipient: an email address
// for EMAIL, a chat id for CHAT.
type ChannelRef struct {
	Channel   Channel `json:"channel"`
	Recipient string  `json:"recipient"`
}

func (r ChannelRef) Validate() error {
	if !r.Channel.IsValid() {
		return fmt.Errorf("%w: invalid channel %q", ErrValidation, r.Channel)
	}
	if strings.TrimSpace(r.Recipient) == "" {
		return fmt.Errorf("%w: channel recipient is required", ErrValidation)
	}
	return nil
}

// BirthDate is a plain calendar date. Month is 0-based (January = 0).
// Year is only used for age display; recurrence always targets a
// supplied year, never the birth year.
type BirthDate struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

func (d BirthDate) Validate() error {
	if d.Month < 0 || d.Month > 11 {
		return fmt.Errorf("%w: month must be in [0,11], got %d", ErrValidation, d.Month)
	}
	if d.Day < 1 || d.Day > 31 {
		return fmt.Errorf("%w: day must be in [1,31], got %d", ErrValidation, d.Day)
	}
	return nil
}

// NotificationSettings is the per-birthday reminder configuration.
// A nil settings block means "no reminders configured"; when present,
// both LeadTimes and Channels must be non-empty.
type NotificationSettings struct {
	TimeZone  string       `json:"timeZone"`
	LeadTimes []Formula    `json:"leadTimes"`
	Channels  []ChannelRef `json:"channels"`
}

func (s *NotificationSettings) Validate() error {
	if s == nil {
		return nil
	}
	if strings.TrimSpace(s.TimeZone) == "" {
		return fmt.Errorf("%w: time zone is required", ErrValidation)
	}
	if len(s.LeadTimes) == 0 {
		return fmt.Errorf("%w: at least one lead time is required", ErrValidation)
	}
	if len(s.Channels) == 0 {
		return fmt.Errorf("%w: at least one channel is required", ErrValidation)
	}
	for _, f := range s.LeadTimes {
		if err := f.Validate(); err != nil {
			return err
		}
	}
	for _, ref := range s.Channels {
		if err := ref.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Equal compares settings as unordered sets of lead times and channels.
func (s *NotificationSettings) Equal(other *NotificationSettings) bool {
	if s == nil || other == nil {
		return s == other
	}
	if s.TimeZone != other.TimeZone {
		return false
	}
	return equalFormulaSets(s.LeadTimes, other.LeadTimes) &&
		equalChannelSets(s.Channels, other.Channels)
}

func equalFormulaSets(a, b []Formula) bool {
	if len(a) != len(b) {
		return false
	}
	as := make([]string, len(a))
	bs := make([]string, len(b))
	for i := range a {
		as[i] = a[i].String()
	}
	for i := range b {
		bs[i] = b[i].String()
	}
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

func equalChannelSets(a, b []ChannelRef) bool {
	if len(a) != len(b) {
		return false
	}
	key := func(r ChannelRef) string { return r.Channel.String() + ":" + r.Recipient }
	as := make([]string, len(a))
	bs := make([]string, len(b))
	for i := range a {
		as[i] = key(a[i])
	}
	for i := range b {
		bs[i] = key(b[i])
	}
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

// Birthday is the source event owning reminder settings. The settings
// block is denormalized onto the record; the last-notified markers are
// upserted atomically with a reminder's sent transition.
type Birthday struct {
	ID        string
	Name      string
	BirthDate BirthDate
	Settings  *NotificationSettings

	LastEmailNotifiedAt *time.Time
	LastChatNotifiedAt  *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (b *Birthday) Validate() error {
	if b == nil {
		return fmt.Errorf("%w: birthday is required", ErrValidation)
	}
	if strings.TrimSpace(b.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if err := b.BirthDate.Validate(); err != nil {
		return err
	}
	return b.Settings.Validate()
}

// HasSettings reports whether reminders are configured at all.
func (b *Birthday) HasSettings() bool {
	return b != nil && b.Settings != nil
}
