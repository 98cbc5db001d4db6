package repository

import (
	"time"

	"github.com/remindly/birthday-engine/internal/domain"
)

// BirthdayModel is the persistence model for the birthdays table. The
// notification settings block is denormalized as jsonb; the last-notified
// markers are plain columns so the sent transition can touch them in the
// same transaction as the reminder row.
type BirthdayModel struct {
	ID                  string                       `gorm:"type:uuid;primaryKey"`
	Name                string                       `gorm:"type:varchar(255);not null"`
	BirthYear           int                          `gorm:"not null;default:0"`
	BirthMonth          int                          `gorm:"not null"`
	BirthDay            int                          `gorm:"not null"`
	Settings            *domain.NotificationSettings `gorm:"type:jsonb;serializer:json"`
	LastEmailNotifiedAt *time.Time
	LastChatNotifiedAt  *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (BirthdayModel) TableName() string {
	return "birthdays"
}

// ReminderModel is the persistence model for the reminders table.
// The dedup tuple (birthday_id, channel, recipient, lead_time,
// target_year) is intentionally not backed by a unique index; dedup is
// an application concern.
type ReminderModel struct {
	ID           string         `gorm:"type:uuid;primaryKey"`
	BirthdayID   string         `gorm:"type:uuid;not null"`
	Channel      domain.Channel `gorm:"type:varchar(10);not null"`
	Recipient    string         `gorm:"type:varchar(255);not null"`
	LeadTime     string         `gorm:"type:varchar(10);not null"`
	TargetYear   int            `gorm:"not null"`
	NotifyAt     time.Time      `gorm:"type:timestamptz;not null"`
	IsScheduled  bool           `gorm:"not null;default:false"`
	IsSent       bool           `gorm:"not null;default:false"`
	SentAt       *time.Time     `gorm:"type:timestamptz"`
	Error        *string        `gorm:"type:text"`
	AttemptCount int            `gorm:"not null;default:0"`
	MaxAttempts  int            `gorm:"not null;default:5"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (ReminderModel) TableName() string {
	return "reminders"
}

func birthdayModelFromDomain(b *domain.Birthday) *BirthdayModel {
	if b == nil {
		return nil
	}

	return &BirthdayModel{
		ID:                  b.ID,
		Name:                b.Name,
		BirthYear:           b.BirthDate.Year,
		BirthMonth:          b.BirthDate.Month,
		BirthDay:            b.BirthDate.Day,
		Settings:            b.Settings,
		LastEmailNotifiedAt: b.LastEmailNotifiedAt,
		LastChatNotifiedAt:  b.LastChatNotifiedAt,
		CreatedAt:           b.CreatedAt,
		UpdatedAt:           b.UpdatedAt,
	}
}

func birthdayModelToDomain(m *BirthdayModel) *domain.Birthday {
	if m == nil {
		return nil
	}

	return &domain.Birthday{
		ID:   m.ID,
		Name: m.Name,
		BirthDate: domain.BirthDate{
			Year:  m.BirthYear,
			Month: m.BirthMonth,
			Day:   m.BirthDay,
		},
		Settings:            m.Settings,
		LastEmailNotifiedAt: m.LastEmailNotifiedAt,
		LastChatNotifiedAt:  m.LastChatNotifiedAt,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
}

func reminderModelFromDomain(r *domain.Reminder) *ReminderModel {
	if r == nil {
		return nil
	}

	return &ReminderModel{
		ID:           r.ID,
		BirthdayID:   r.BirthdayID,
		Channel:      r.Channel,
		Recipient:    r.Recipient,
		LeadTime:     r.LeadTime.String(),
		TargetYear:   r.TargetYear,
		NotifyAt:     r.NotifyAt,
		IsScheduled:  r.IsScheduled,
		IsSent:       r.IsSent,
		SentAt:       r.SentAt,
		Error:        r.Error,
		AttemptCount: r.AttemptCount,
		MaxAttempts:  r.MaxAttempts,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func reminderModelToDomain(m *ReminderModel) *domain.Reminder {
	if m == nil {
		return nil
	}

	leadTime, err := domain.ParseFormula(m.LeadTime)
	if err != nil {
		// Persisted lead times pass ParseFormula on the way in; a bad
		// value here means manual tampering. Surface it as-is.
		leadTime = domain.Formula{Unit: domain.Unit(m.LeadTime)}
	}

	return &domain.Reminder{
		ID:           m.ID,
		BirthdayID:   m.BirthdayID,
		Channel:      m.Channel,
		Recipient:    m.Recipient,
		LeadTime:     leadTime,
		TargetYear:   m.TargetYear,
		NotifyAt:     m.NotifyAt,
		IsScheduled:  m.IsScheduled,
		IsSent:       m.IsSent,
		SentAt:       m.SentAt,
		Error:        m.Error,
		AttemptCount: m.AttemptCount,
		MaxAttempts:  m.MaxAttempts,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}
