package service

import (
	"context"
	"fmt"
	"time"

	"github.com/remindly/birthday-engine/internal/domain"
	"github.com/remindly/birthday-engine/internal/observability"
	"github.com/remindly/birthday-engine/internal/repository"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultRegenerationCronSpec fires at UTC midnight on January 1st.
const DefaultRegenerationCronSpec = "0 0 1 1 *"

const regenerationChunkParallelism = 4

// Regenerator bulk-creates the coming year's reminders for every
// birthday with active settings. Candidate records already present are
// suppressed by a query-before-insert check, which also makes a double
// run for the same year a no-op. Writes are chunked at the store's batch
// cap; chunks commit independently and in parallel, so one failing chunk
// does not roll back the others. That trades strict atomicity for a
// bounded blast radius on large fleets.
type Regenerator struct {
	birthdays repository.BirthdayRepository
	reminders repository.ReminderRepository
	logger    *zap.Logger
	metrics   *observability.Metrics
	cronSpec  string
	cron      *cron.Cron
	now       func() time.Time
}

func NewRegenerator(
	birthdays repository.BirthdayRepository,
	reminders repository.ReminderRepository,
	cronSpec string,
	logger *zap.Logger,
) (*Regenerator, error) {
	if birthdays == nil {
		return nil, fmt.Errorf("birthday repository is required")
	}
	if reminders == nil {
		return nil, fmt.Errorf("reminder repository is required")
	}
	if cronSpec == "" {
		cronSpec = DefaultRegenerationCronSpec
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Regenerator{
		birthdays: birthdays,
		reminders: reminders,
		logger:    logger,
		cronSpec:  cronSpec,
		cron:      cron.New(cron.WithLocation(time.UTC)),
		now:       time.Now,
	}, nil
}

func (r *Regenerator) SetMetrics(metrics *observability.Metrics) {
	if r == nil {
		return
	}
	r.metrics = metrics
}

// Start registers the yearly cron entry and runs until the context is
// canceled.
func (r *Regenerator) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	_, err := r.cron.AddFunc(r.cronSpec, func() {
		year := r.now().UTC().Year()
		created, runErr := r.Run(ctx, year)
		if runErr != nil {
			r.logger.Error("yearly regeneration failed",
				zap.Int("targetYear", year),
				zap.Error(runErr),
			)
			return
		}
		r.logger.Info("yearly regeneration finished",
			zap.Int("targetYear", year),
			zap.Int("created", created),
		)
	})
	if err != nil {
		return fmt.Errorf("failed to register regeneration cron entry: %w", err)
	}

	r.cron.Start()
	<-ctx.Done()

	stopCtx := r.cron.Stop()
	<-stopCtx.Done()
	return nil
}

// Run regenerates reminders for the given target year and returns how
// many records were created. Safe to invoke concurrently with the cron
// entry: duplicate suppression holds for both.
func (r *Regenerator) Run(ctx context.Context, targetYear int) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	birthdays, err := r.birthdays.ListWithSettings(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list birthdays with settings: %w", err)
	}

	now := r.now().UTC()
	candidates := make([]*domain.Reminder, 0, len(birthdays))
	for i := range birthdays {
		b := &birthdays[i]

		expanded, err := expandReminders(b, targetYear, now, r.logger)
		if err != nil {
			// A broken zone on one birthday must not sink the fleet.
			r.logger.Error("skipping birthday during regeneration",
				zap.String("birthdayId", b.ID),
				zap.Error(err),
			)
			continue
		}

		for _, candidate := range expanded {
			exists, err := r.reminders.Exists(ctx,
				candidate.BirthdayID, candidate.Channel, candidate.Recipient, candidate.NotifyAt)
			if err != nil {
				r.logger.Error("dedup query failed, skipping candidate",
					zap.String("birthdayId", candidate.BirthdayID),
					zap.Error(err),
				)
				continue
			}
			if exists {
				continue
			}
			candidates = append(candidates, candidate)
		}
	}

	if len(candidates) == 0 {
		return 0, nil
	}

	chunks := chunkReminders(candidates, repository.BatchLimit)

	var created int64
	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(regenerationChunkParallelism)
	results := make([]int, len(chunks))

	for i := range chunks {
		chunk := chunks[i]
		idx := i
		g.Go(func() error {
			if err := r.reminders.CreateBatch(groupCtx, chunk); err != nil {
				// Chunk commits are independent: log, leave the other
				// chunks alone, surface nothing fatal.
				r.logger.Error("regeneration chunk commit failed",
					zap.Int("chunk", idx),
					zap.Int("size", len(chunk)),
					zap.Error(err),
				)
				return nil
			}
			results[idx] = len(chunk)
			return nil
		})
	}

	_ = g.Wait()

	for _, n := range results {
		created += int64(n)
	}
	if r.metrics != nil {
		r.metrics.AddRemindersRegenerated(int(created))
	}

	return int(created), nil
}

// chunkReminders splits candidates into runs of at most size records,
// preserving order. 1625 candidates at a cap of 500 yield four chunks of
// 500, 500, 500, and 125.
func chunkReminders(reminders []*domain.Reminder, size int) [][]*domain.Reminder {
	if size <= 0 || len(reminders) == 0 {
		return nil
	}

	chunks := make([][]*domain.Reminder, 0, (len(reminders)+size-1)/size)
	for start := 0; start < len(reminders); start += size {
		end := min(start+size, len(reminders))
		chunks = append(chunks, reminders[start:end])
	}
	return chunks
}
