package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/remindly/birthday-engine/internal/channel"
	"github.com/remindly/birthday-engine/internal/domain"
	"github.com/remindly/birthday-engine/internal/observability"
	"github.com/remindly/birthday-engine/internal/queue"
	"github.com/remindly/birthday-engine/internal/ratelimit"
	"github.com/remindly/birthday-engine/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const minWorkerConcurrency = 1

// Worker consumes scheduled-reminder messages and performs the actual
// channel delivery. Success marks the record sent and stamps the
// birthday's last-notified marker in the same transaction; failure
// records the error and reverts the record to pending so the scanner
// re-queues it, up to the record's attempt budget.
type Worker struct {
	reminders   repository.ReminderRepository
	birthdays   repository.BirthdayRepository
	consumer    queue.Consumer
	senders     *channel.Senders
	rateLimiter ratelimit.RateLimiter
	logger      *zap.Logger
	metrics     *observability.Metrics
	concurrency int
	now         func() time.Time
}

func NewWorker(
	reminders repository.ReminderRepository,
	birthdays repository.BirthdayRepository,
	consumer queue.Consumer,
	senders *channel.Senders,
	rateLimiter ratelimit.RateLimiter,
	concurrency int,
	logger *zap.Logger,
) (*Worker, error) {
	if reminders == nil {
		return nil, fmt.Errorf("reminder repository is required")
	}
	if birthdays == nil {
		return nil, fmt.Errorf("birthday repository is required")
	}
	if consumer == nil {
		return nil, fmt.Errorf("consumer is required")
	}
	if senders == nil {
		return nil, fmt.Errorf("channel senders are required")
	}
	if concurrency < minWorkerConcurrency {
		concurrency = minWorkerConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Worker{
		reminders:   reminders,
		birthdays:   birthdays,
		consumer:    consumer,
		senders:     senders,
		rateLimiter: rateLimiter,
		logger:      logger,
		concurrency: concurrency,
		now:         time.Now,
	}, nil
}

func (w *Worker) SetMetrics(metrics *observability.Metrics) {
	if w == nil {
		return
	}
	w.metrics = metrics
}

// Start consumes the channel work queues until context cancellation.
func (w *Worker) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	queueNames := queue.WorkQueueNames()

	// Every channel queue gets at least one consumer even when the
	// configured concurrency is lower than the channel count.
	consumers := w.concurrency
	if consumers < len(queueNames) {
		consumers = len(queueNames)
	}

	g, groupCtx := errgroup.WithContext(ctx)

	for i := 0; i < consumers; i++ {
		queueName := queueNames[i%len(queueNames)]
		workerID := i + 1

		g.Go(func() error {
			w.logger.Info("dispatch worker started",
				zap.Int("workerId", workerID),
				zap.String("queue", queueName),
			)

			err := w.consumer.Consume(groupCtx, queueName, w.processMessage)
			if err != nil {
				w.logger.Error("dispatch worker stopped with error",
					zap.Int("workerId", workerID),
					zap.String("queue", queueName),
					zap.Error(err),
				)
				return err
			}

			w.logger.Info("dispatch worker stopped",
				zap.Int("workerId", workerID),
				zap.String("queue", queueName),
			)
			return nil
		})
	}

	return g.Wait()
}

func (w *Worker) processMessage(ctx context.Context, msg queue.ReminderMessage) error {
	reminder, err := w.reminders.LockForDispatch(ctx, msg.ReminderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			w.logger.Warn("reminder not found during lock, skipping",
				zap.String("reminderId", msg.ReminderID),
			)
			return nil
		}
		return fmt.Errorf("failed to lock reminder for dispatch: %w", err)
	}

	// Nil means the record is no longer scheduled-and-unsent: another
	// worker won the race or the state moved on. Ack and skip; the write
	// path is idempotent either way.
	if reminder == nil {
		return nil
	}

	channelName := queue.QueueName(reminder.Channel)
	if w.metrics != nil {
		w.metrics.IncWorkerInFlight(channelName)
		defer w.metrics.DecWorkerInFlight(channelName)
	}

	if w.rateLimiter != nil {
		if err := w.rateLimiter.Wait(ctx, channelName); err != nil {
			return fmt.Errorf("rate limiter wait failed: %w", err)
		}
	}

	birthday, err := w.birthdays.GetByID(ctx, reminder.BirthdayID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Source event vanished mid-flight; burn an attempt so the
			// record converges to failed instead of looping.
			return w.markFailure(ctx, reminder, channelName, "source birthday no longer exists")
		}
		return fmt.Errorf("failed to load birthday for dispatch: %w", err)
	}

	sender, err := w.senders.For(reminder.Channel)
	if err != nil {
		return w.markFailure(ctx, reminder, channelName, err.Error())
	}

	sendStart := w.now()
	sendErr := sender.Send(ctx, channel.Delivery{
		Reminder: *reminder,
		Birthday: *birthday,
	})
	if w.metrics != nil {
		w.metrics.ObserveSendDuration(channelName, w.now().Sub(sendStart))
	}

	if sendErr != nil {
		w.logger.Warn("channel delivery failed",
			zap.String("reminderId", reminder.ID),
			zap.String("channel", channelName),
			zap.Bool("transient", channel.IsTransient(sendErr)),
			zap.Error(sendErr),
		)
		return w.markFailure(ctx, reminder, channelName, sendErr.Error())
	}

	if err := w.reminders.MarkSent(ctx, reminder.ID, w.now().UTC()); err != nil {
		return fmt.Errorf("failed to mark reminder sent: %w", err)
	}
	if w.metrics != nil {
		w.metrics.IncReminderSent(channelName)
	}

	return nil
}

func (w *Worker) markFailure(ctx context.Context, reminder *domain.Reminder, channelName, message string) error {
	if err := w.reminders.MarkFailed(ctx, reminder.ID, message); err != nil {
		return fmt.Errorf("failed to mark reminder failed: %w", err)
	}

	if w.metrics != nil {
		reason := "retry_pending"
		if reminder.AttemptCount+1 >= reminder.MaxAttempts {
			reason = "retry_exhausted"
		}
		w.metrics.IncReminderFailed(channelName, reason)
	}

	return nil
}
