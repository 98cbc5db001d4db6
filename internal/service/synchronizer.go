package service

import (
	"context"
	"fmt"
	"time"

	"github.com/remindly/birthday-engine/internal/domain"
	"github.com/remindly/birthday-engine/internal/repository"
	"go.uber.org/zap"
)

// Synchronizer keeps the derived reminder set in sync with its source
// birthday across create, update, and delete. Each operation stages all
// of its record mutations as one atomic batch, so a partial write never
// leaves dangling records for one birthday; there is no isolation across
// different birthdays.
type Synchronizer struct {
	birthdays repository.BirthdayRepository
	reminders repository.ReminderRepository
	logger    *zap.Logger
	now       func() time.Time
}

func NewSynchronizer(
	birthdays repository.BirthdayRepository,
	reminders repository.ReminderRepository,
	logger *zap.Logger,
) (*Synchronizer, error) {
	if birthdays == nil {
		return nil, fmt.Errorf("birthday repository is required")
	}
	if reminders == nil {
		return nil, fmt.Errorf("reminder repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Synchronizer{
		birthdays: birthdays,
		reminders: reminders,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// OnCreate generates the current year's pending records for a freshly
// stored birthday. Absent settings generate nothing.
func (s *Synchronizer) OnCreate(ctx context.Context, b *domain.Birthday) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if !b.HasSettings() {
		return nil
	}

	now := s.now().UTC()
	reminders, err := expandReminders(b, now.Year(), now, s.logger)
	if err != nil {
		return fmt.Errorf("failed to expand reminders for birthday %s: %w", b.ID, err)
	}
	if len(reminders) == 0 {
		return nil
	}

	if err := s.reminders.CreateBatch(ctx, reminders); err != nil {
		return fmt.Errorf("failed to write reminder batch for birthday %s: %w", b.ID, err)
	}

	s.logger.Info("reminders generated",
		zap.String("birthdayId", b.ID),
		zap.Int("count", len(reminders)),
	)
	return nil
}

// OnUpdate diffs the recurrence-relevant configuration and regenerates
// the pending set when it changed. Already-scheduled and sent records of
// the current cycle stay untouched: deliveries in flight are never
// retracted.
func (s *Synchronizer) OnUpdate(ctx context.Context, old, updated *domain.Birthday) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if old == nil || updated == nil {
		return fmt.Errorf("%w: both birthday versions are required", domain.ErrValidation)
	}

	if old.BirthDate == updated.BirthDate && old.Settings.Equal(updated.Settings) {
		s.logger.Debug("notification configuration unchanged, skipping sync",
			zap.String("birthdayId", updated.ID),
		)
		return nil
	}

	var reminders []*domain.Reminder
	if updated.HasSettings() {
		now := s.now().UTC()
		var err error
		reminders, err = expandReminders(updated, now.Year(), now, s.logger)
		if err != nil {
			return fmt.Errorf("failed to expand reminders for birthday %s: %w", updated.ID, err)
		}
	}

	if err := s.reminders.ReplacePending(ctx, updated.ID, reminders); err != nil {
		return fmt.Errorf("failed to replace pending reminders for birthday %s: %w", updated.ID, err)
	}

	s.logger.Info("pending reminders regenerated",
		zap.String("birthdayId", updated.ID),
		zap.Int("count", len(reminders)),
	)
	return nil
}

// OnDelete retires the pending records of a removed birthday. Scheduled
// and sent records complete undisturbed.
func (s *Synchronizer) OnDelete(ctx context.Context, birthdayID string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	deleted, err := s.reminders.DeletePending(ctx, birthdayID)
	if err != nil {
		return fmt.Errorf("failed to delete pending reminders for birthday %s: %w", birthdayID, err)
	}

	s.logger.Info("pending reminders deleted",
		zap.String("birthdayId", birthdayID),
		zap.Int64("count", deleted),
	)
	return nil
}
