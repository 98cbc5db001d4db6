package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/remindly/birthday-engine/internal/domain"
	"github.com/remindly/birthday-engine/internal/repository"
	"go.uber.org/zap"
)

// manyBirthdays builds enough configured birthdays to expand into exactly
// the given number of reminder candidates (one lead time, one channel each).
func manyBirthdays(count int) []domain.Birthday {
	birthdays := make([]domain.Birthday, 0, count)
	for i := 0; i < count; i++ {
		birthdays = append(birthdays, domain.Birthday{
			ID:   fmt.Sprintf("b-%d", i),
			Name: fmt.Sprintf("person %d", i),
			BirthDate: domain.BirthDate{
				Year:  1990,
				Month: 5,
				Day:   10,
			},
			Settings: &domain.NotificationSettings{
				TimeZone:  "UTC",
				LeadTimes: []domain.Formula{{Magnitude: 1, Unit: domain.UnitDays}},
				Channels: []domain.ChannelRef{
					{Channel: domain.ChannelEmail, Recipient: fmt.Sprintf("p%d@example.com", i)},
				},
			},
		})
	}
	return birthdays
}

func TestRegeneratorRunChunksLargeCandidateSets(t *testing.T) {
	t.Parallel()

	birthdays := &fakeBirthdayRepo{
		listWithSettingsFn: func(ctx context.Context) ([]domain.Birthday, error) {
			return manyBirthdays(1625), nil
		},
	}

	var mu sync.Mutex
	var chunkSizes []int
	reminders := &fakeReminderRepo{
		createBatchFn: func(ctx context.Context, rs []*domain.Reminder) error {
			if len(rs) > repository.BatchLimit {
				t.Errorf("chunk size %d exceeds batch limit %d", len(rs), repository.BatchLimit)
			}
			mu.Lock()
			chunkSizes = append(chunkSizes, len(rs))
			mu.Unlock()
			return nil
		},
	}

	regenerator, err := NewRegenerator(birthdays, reminders, "", zap.NewNop())
	if err != nil {
		t.Fatalf("NewRegenerator() error = %v", err)
	}
	regenerator.now = fixedNow(t, "2025-01-01T00:00:00Z")

	created, err := regenerator.Run(context.Background(), 2025)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if created != 1625 {
		t.Fatalf("created = %d, want 1625", created)
	}

	if len(chunkSizes) != 4 {
		t.Fatalf("chunk count = %d, want 4", len(chunkSizes))
	}
	total := 0
	tail := 0
	for _, size := range chunkSizes {
		total += size
		if size == 125 {
			tail++
		} else if size != repository.BatchLimit {
			t.Errorf("unexpected chunk size %d", size)
		}
	}
	if total != 1625 || tail != 1 {
		t.Fatalf("chunks = %v, want three of %d and one of 125", chunkSizes, repository.BatchLimit)
	}
}

func TestRegeneratorRunSkipsExistingRecords(t *testing.T) {
	t.Parallel()

	birthdays := &fakeBirthdayRepo{
		listWithSettingsFn: func(ctx context.Context) ([]domain.Birthday, error) {
			return manyBirthdays(3), nil
		},
	}

	reminders := &fakeReminderRepo{
		existsFn: func(ctx context.Context, birthdayID string, channel domain.Channel, recipient string, notifyAt time.Time) (bool, error) {
			return birthdayID == "b-1", nil
		},
		createBatchFn: func(ctx context.Context, rs []*domain.Reminder) error {
			for _, r := range rs {
				if r.BirthdayID == "b-1" {
					t.Errorf("existing record for %s was recreated", r.BirthdayID)
				}
			}
			return nil
		},
	}

	regenerator, err := NewRegenerator(birthdays, reminders, "", zap.NewNop())
	if err != nil {
		t.Fatalf("NewRegenerator() error = %v", err)
	}
	regenerator.now = fixedNow(t, "2025-01-01T00:00:00Z")

	created, err := regenerator.Run(context.Background(), 2025)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if created != 2 {
		t.Fatalf("created = %d, want 2", created)
	}
}

func TestRegeneratorRunIsIdempotent(t *testing.T) {
	t.Parallel()

	birthdays := &fakeBirthdayRepo{
		listWithSettingsFn: func(ctx context.Context) ([]domain.Birthday, error) {
			return manyBirthdays(5), nil
		},
	}

	var mu sync.Mutex
	stored := map[string]bool{}
	reminders := &fakeReminderRepo{
		existsFn: func(ctx context.Context, birthdayID string, channel domain.Channel, recipient string, notifyAt time.Time) (bool, error) {
			mu.Lock()
			defer mu.Unlock()
			return stored[birthdayID], nil
		},
		createBatchFn: func(ctx context.Context, rs []*domain.Reminder) error {
			mu.Lock()
			defer mu.Unlock()
			for _, r := range rs {
				stored[r.BirthdayID] = true
			}
			return nil
		},
	}

	regenerator, err := NewRegenerator(birthdays, reminders, "", zap.NewNop())
	if err != nil {
		t.Fatalf("NewRegenerator() error = %v", err)
	}
	regenerator.now = fixedNow(t, "2025-01-01T00:00:00Z")

	first, err := regenerator.Run(context.Background(), 2025)
	if err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	if first != 5 {
		t.Fatalf("first run created = %d, want 5", first)
	}

	second, err := regenerator.Run(context.Background(), 2025)
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if second != 0 {
		t.Fatalf("second run created = %d, want 0", second)
	}
}

func TestRegeneratorRunSkipsBrokenZones(t *testing.T) {
	t.Parallel()

	birthdays := &fakeBirthdayRepo{
		listWithSettingsFn: func(ctx context.Context) ([]domain.Birthday, error) {
			all := manyBirthdays(2)
			all[0].Settings.TimeZone = "Not/AZone"
			return all, nil
		},
	}

	reminders := &fakeReminderRepo{}

	regenerator, err := NewRegenerator(birthdays, reminders, "", zap.NewNop())
	if err != nil {
		t.Fatalf("NewRegenerator() error = %v", err)
	}
	regenerator.now = fixedNow(t, "2025-01-01T00:00:00Z")

	created, err := regenerator.Run(context.Background(), 2025)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if created != 1 {
		t.Fatalf("created = %d, want 1 (broken zone skipped, healthy one kept)", created)
	}
}

func TestRegeneratorRunListError(t *testing.T) {
	t.Parallel()

	birthdays := &fakeBirthdayRepo{
		listWithSettingsFn: func(ctx context.Context) ([]domain.Birthday, error) {
			return nil, errors.New("db unavailable")
		},
	}

	regenerator, err := NewRegenerator(birthdays, &fakeReminderRepo{}, "", zap.NewNop())
	if err != nil {
		t.Fatalf("NewRegenerator() error = %v", err)
	}

	if _, err := regenerator.Run(context.Background(), 2025); err == nil {
		t.Fatal("expected Run() error")
	}
}

func TestChunkReminders(t *testing.T) {
	t.Parallel()

	reminders := make([]*domain.Reminder, 1625)
	for i := range reminders {
		reminders[i] = &domain.Reminder{ID: fmt.Sprintf("r-%d", i)}
	}

	chunks := chunkReminders(reminders, 500)
	if len(chunks) != 4 {
		t.Fatalf("chunk count = %d, want 4", len(chunks))
	}
	want := []int{500, 500, 500, 125}
	for i, chunk := range chunks {
		if len(chunk) != want[i] {
			t.Fatalf("chunk %d size = %d, want %d", i, len(chunk), want[i])
		}
	}
	if chunks[0][0].ID != "r-0" || chunks[3][124].ID != "r-1624" {
		t.Fatal("chunking must preserve candidate order")
	}

	if got := chunkReminders(nil, 500); got != nil {
		t.Fatalf("chunkReminders(nil) = %v, want nil", got)
	}
}
