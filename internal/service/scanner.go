package service

import (
	"context"
	"fmt"
	"time"

	"github.com/remindly/birthday-engine/internal/observability"
	"github.com/remindly/birthday-engine/internal/queue"
	"github.com/remindly/birthday-engine/internal/repository"
	"go.uber.org/zap"
)

const (
	defaultScanInterval = 15 * time.Second
	defaultScanLimit    = 200
)

// Scanner periodically flips due pending reminders into the scheduled
// state and hands them to the dispatch queue. Each record transition is
// independent and idempotent; a failed flip or publish is logged and the
// record is retried on the next tick.
type Scanner struct {
	reminders repository.ReminderRepository
	publisher queue.Publisher
	logger    *zap.Logger
	metrics   *observability.Metrics
	interval  time.Duration
	limit     int
	now       func() time.Time
}

func NewScanner(
	reminders repository.ReminderRepository,
	publisher queue.Publisher,
	interval time.Duration,
	limit int,
	logger *zap.Logger,
) (*Scanner, error) {
	if reminders == nil {
		return nil, fmt.Errorf("reminder repository is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if interval <= 0 {
		interval = defaultScanInterval
	}
	if limit <= 0 {
		limit = defaultScanLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scanner{
		reminders: reminders,
		publisher: publisher,
		logger:    logger,
		interval:  interval,
		limit:     limit,
		now:       time.Now,
	}, nil
}

func (s *Scanner) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

func (s *Scanner) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// Run an initial scan so already-due reminders do not wait for the
	// first ticker edge.
	if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("scanner initial scan failed", zap.Error(err))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.Error("scanner pass failed", zap.Error(err))
			}
		}
	}
}

// RunOnce performs one full due sweep and returns the number of records
// flipped to scheduled. It is safe to invoke concurrently with the
// periodic loop: only the sweep that wins the flip publishes.
func (s *Scanner) RunOnce(ctx context.Context) (int, error) {
	due, err := s.reminders.GetDue(ctx, s.now().UTC(), s.limit)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch due reminders: %w", err)
	}

	flipped := 0
	for i := range due {
		reminder := due[i]

		// Flip before publishing so a worker receiving the message always
		// finds the row scheduled. Publishing first would let a fast
		// delivery race the flip: the worker skips the still-pending row,
		// the flip then lands, and the record is stranded outside every
		// due sweep.
		updated, err := s.reminders.MarkScheduled(ctx, reminder.ID)
		if err != nil {
			s.logger.Error("failed to mark reminder scheduled",
				zap.String("reminderId", reminder.ID),
				zap.Error(err),
			)
			continue
		}
		if !updated {
			s.logger.Info("reminder state changed before schedule mark",
				zap.String("reminderId", reminder.ID),
			)
			continue
		}

		msg := queue.ReminderMessage{
			ReminderID: reminder.ID,
			BirthdayID: reminder.BirthdayID,
			Channel:    reminder.Channel,
		}
		if err := s.publisher.Publish(ctx, queue.QueueName(reminder.Channel), msg); err != nil {
			// No message made it out, so put the record back into the
			// pending state without burning an attempt; the next tick
			// retries it.
			s.logger.Error("failed to enqueue due reminder",
				zap.String("reminderId", reminder.ID),
				zap.String("queue", queue.QueueName(reminder.Channel)),
				zap.Error(err),
			)
			if _, revertErr := s.reminders.RevertScheduled(ctx, reminder.ID); revertErr != nil {
				s.logger.Error("failed to revert schedule mark after enqueue failure",
					zap.String("reminderId", reminder.ID),
					zap.Error(revertErr),
				)
			}
			continue
		}

		flipped++
		if s.metrics != nil {
			s.metrics.IncReminderScheduled(queue.QueueName(reminder.Channel))
		}
	}

	return flipped, nil
}
