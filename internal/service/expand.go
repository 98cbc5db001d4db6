package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/remindly/birthday-engine/internal/domain"
	"github.com/remindly/birthday-engine/internal/recurrence"
	"go.uber.org/zap"
)

// expandReminders materializes one pending record per (leadTime x channel)
// pair of a birthday for the target year. Instants already in the past
// are skipped; an unresolvable time zone is fatal for this birthday's
// whole expansion (every pair would fail identically).
func expandReminders(
	b *domain.Birthday,
	targetYear int,
	now time.Time,
	logger *zap.Logger,
) ([]*domain.Reminder, error) {
	if !b.HasSettings() {
		return nil, nil
	}

	reminders := make([]*domain.Reminder, 0, len(b.Settings.LeadTimes)*len(b.Settings.Channels))
	for _, lead := range b.Settings.LeadTimes {
		notifyAt, err := recurrence.FireInstant(b.BirthDate, lead, targetYear, b.Settings.TimeZone)
		if err != nil {
			return nil, err
		}

		if !notifyAt.After(now) {
			logger.Debug("skipping reminder with past fire instant",
				zap.String("birthdayId", b.ID),
				zap.String("leadTime", lead.String()),
				zap.Time("notifyAt", notifyAt),
			)
			continue
		}

		for _, ref := range b.Settings.Channels {
			reminders = append(reminders, &domain.Reminder{
				ID:          uuid.NewString(),
				BirthdayID:  b.ID,
				Channel:     ref.Channel,
				Recipient:   ref.Recipient,
				LeadTime:    lead,
				TargetYear:  targetYear,
				NotifyAt:    notifyAt,
				MaxAttempts: domain.DefaultMaxAttempts,
			})
		}
	}

	return reminders, nil
}
