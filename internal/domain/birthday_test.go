package domain

import (
	"errors"
	"testing"
)

func validSettings() *NotificationSettings {
	return &NotificationSettings{
		TimeZone:  "Europe/Kyiv",
		LeadTimes: []Formula{{Magnitude: 3, Unit: UnitDays}},
		Channels: []ChannelRef{
			{Channel: ChannelEmail, Recipient: "eva@example.com"},
		},
	}
}

func TestBirthdayValidate(t *testing.T) {
	t.Parallel()

	b := &Birthday{
		Name:      "Eva",
		BirthDate: BirthDate{Year: 1990, Month: 2, Day: 28},
		Settings:  validSettings(),
	}
	if err := b.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestBirthdayValidateNilSettingsIsAllowed(t *testing.T) {
	t.Parallel()

	b := &Birthday{
		Name:      "Eva",
		BirthDate: BirthDate{Month: 0, Day: 1},
	}
	if err := b.Validate(); err != nil {
		t.Fatalf("Validate() error = %v, want nil for absent settings", err)
	}
	if b.HasSettings() {
		t.Fatal("HasSettings() = true, want false")
	}
}

func TestBirthdayValidateRejectsEmptySets(t *testing.T) {
	t.Parallel()

	noLeads := validSettings()
	noLeads.LeadTimes = nil
	noChannels := validSettings()
	noChannels.Channels = nil

	for name, settings := range map[string]*NotificationSettings{
		"no lead times": noLeads,
		"no channels":   noChannels,
	} {
		b := &Birthday{Name: "Eva", BirthDate: BirthDate{Month: 0, Day: 1}, Settings: settings}
		if err := b.Validate(); !errors.Is(err, ErrValidation) {
			t.Fatalf("%s: Validate() error = %v, want ErrValidation", name, err)
		}
	}
}

func TestBirthDateValidateBounds(t *testing.T) {
	t.Parallel()

	for _, bad := range []BirthDate{
		{Month: -1, Day: 1},
		{Month: 12, Day: 1},
		{Month: 0, Day: 0},
		{Month: 0, Day: 32},
	} {
		if err := bad.Validate(); !errors.Is(err, ErrValidation) {
			t.Fatalf("Validate(%+v) error = %v, want ErrValidation", bad, err)
		}
	}
}

func TestSettingsEqualIgnoresOrder(t *testing.T) {
	t.Parallel()

	a := &NotificationSettings{
		TimeZone: "Asia/Shanghai",
		LeadTimes: []Formula{
			{Magnitude: 1, Unit: UnitDays},
			{Magnitude: 20, Unit: UnitHours},
		},
		Channels: []ChannelRef{
			{Channel: ChannelEmail, Recipient: "a@example.com"},
			{Channel: ChannelChat, Recipient: "42"},
		},
	}
	b := &NotificationSettings{
		TimeZone: "Asia/Shanghai",
		LeadTimes: []Formula{
			{Magnitude: 20, Unit: UnitHours},
			{Magnitude: 1, Unit: UnitDays},
		},
		Channels: []ChannelRef{
			{Channel: ChannelChat, Recipient: "42"},
			{Channel: ChannelEmail, Recipient: "a@example.com"},
		},
	}

	if !a.Equal(b) {
		t.Fatal("Equal() = false, want true for reordered sets")
	}
}

func TestSettingsEqualDetectsChanges(t *testing.T) {
	t.Parallel()

	base := validSettings()

	tzChanged := validSettings()
	tzChanged.TimeZone = "Asia/Shanghai"

	leadChanged := validSettings()
	leadChanged.LeadTimes = []Formula{{Magnitude: 1, Unit: UnitHours}}

	channelChanged := validSettings()
	channelChanged.Channels = []ChannelRef{{Channel: ChannelChat, Recipient: "42"}}

	for name, other := range map[string]*NotificationSettings{
		"time zone": tzChanged,
		"lead time": leadChanged,
		"channel":   channelChanged,
	} {
		if base.Equal(other) {
			t.Fatalf("%s: Equal() = true, want false", name)
		}
	}

	if base.Equal(nil) {
		t.Fatal("Equal(nil) = true, want false")
	}
	var nilSettings *NotificationSettings
	if !nilSettings.Equal(nil) {
		t.Fatal("nil.Equal(nil) = false, want true")
	}
}

func TestParseChannelFromString(t *testing.T) {
	t.Parallel()

	ch, err := ParseChannelFromString(" email ")
	if err != nil {
		t.Fatalf("ParseChannelFromString() error = %v", err)
	}
	if ch != ChannelEmail {
		t.Fatalf("channel = %s, want %s", ch, ChannelEmail)
	}

	if _, err := ParseChannelFromString("sms"); !errors.Is(err, ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
}

func TestReminderValidate(t *testing.T) {
	t.Parallel()

	r := &Reminder{
		BirthdayID: "b-1",
		Channel:    ChannelEmail,
		Recipient:  "eva@example.com",
		LeadTime:   Formula{Magnitude: 3, Unit: UnitDays},
		TargetYear: 2023,
		NotifyAt:   mustParseTime(t, "2023-03-24T22:00:00Z"),
	}
	if err := r.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !r.IsPending() {
		t.Fatal("IsPending() = false, want true for a fresh record")
	}

	r.IsScheduled = true
	if r.IsPending() {
		t.Fatal("IsPending() = true, want false once scheduled")
	}
}
