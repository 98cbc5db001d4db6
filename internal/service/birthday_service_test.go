package service

import (
	"context"
	"errors"
	"testing"

	"github.com/remindly/birthday-engine/internal/domain"
	"go.uber.org/zap"
)

func newTestBirthdayService(t *testing.T, birthdays *fakeBirthdayRepo, reminders *fakeReminderRepo) *BirthdayService {
	t.Helper()

	sync, err := NewSynchronizer(birthdays, reminders, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSynchronizer() error = %v", err)
	}
	sync.now = fixedNow(t, "2024-01-15T00:00:00Z")

	svc, err := NewBirthdayService(birthdays, sync, zap.NewNop())
	if err != nil {
		t.Fatalf("NewBirthdayService() error = %v", err)
	}
	return svc
}

func TestBirthdayServiceCreateAssignsIDAndSyncs(t *testing.T) {
	t.Parallel()

	var storedID string
	birthdays := &fakeBirthdayRepo{
		createFn: func(ctx context.Context, b *domain.Birthday) error {
			storedID = b.ID
			return nil
		},
	}

	var batchFor string
	reminders := &fakeReminderRepo{
		createBatchFn: func(ctx context.Context, rs []*domain.Reminder) error {
			if len(rs) > 0 {
				batchFor = rs[0].BirthdayID
			}
			return nil
		},
	}

	svc := newTestBirthdayService(t, birthdays, reminders)

	b := testBirthday("")
	created, err := svc.Create(context.Background(), b)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.ID == "" {
		t.Fatal("Create() must assign an id")
	}
	if storedID != created.ID {
		t.Fatalf("stored id = %s, want %s", storedID, created.ID)
	}
	if batchFor != created.ID {
		t.Fatalf("reminder batch birthday = %s, want %s", batchFor, created.ID)
	}
}

func TestBirthdayServiceCreateRejectsInvalid(t *testing.T) {
	t.Parallel()

	birthdays := &fakeBirthdayRepo{
		createFn: func(ctx context.Context, b *domain.Birthday) error {
			t.Fatal("repository must not be reached for invalid input")
			return nil
		},
	}

	svc := newTestBirthdayService(t, birthdays, &fakeReminderRepo{})

	b := testBirthday("")
	b.BirthDate.Month = 12

	_, err := svc.Create(context.Background(), b)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Create() error = %v, want ErrValidation", err)
	}
}

func TestBirthdayServiceUpdateDiffsAgainstStored(t *testing.T) {
	t.Parallel()

	stored := testBirthday("b-1")
	birthdays := &fakeBirthdayRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Birthday, error) {
			copied := *stored
			return &copied, nil
		},
	}

	replaceCalled := false
	reminders := &fakeReminderRepo{
		replacePendingFn: func(ctx context.Context, birthdayID string, rs []*domain.Reminder) error {
			replaceCalled = true
			return nil
		},
	}

	svc := newTestBirthdayService(t, birthdays, reminders)

	unchanged := testBirthday("b-1")
	if _, err := svc.Update(context.Background(), unchanged); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if replaceCalled {
		t.Fatal("unchanged configuration must not regenerate reminders")
	}

	changed := testBirthday("b-1")
	changed.BirthDate.Day = 20
	if _, err := svc.Update(context.Background(), changed); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if !replaceCalled {
		t.Fatal("changed birth date must regenerate reminders")
	}
}

func TestBirthdayServiceUpdateUnknownID(t *testing.T) {
	t.Parallel()

	birthdays := &fakeBirthdayRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Birthday, error) {
			return nil, domain.ErrNotFound
		},
	}

	svc := newTestBirthdayService(t, birthdays, &fakeReminderRepo{})

	_, err := svc.Update(context.Background(), testBirthday("missing"))
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Update() error = %v, want ErrNotFound", err)
	}
}

func TestBirthdayServiceDeleteCascades(t *testing.T) {
	t.Parallel()

	deleted := ""
	birthdays := &fakeBirthdayRepo{
		deleteFn: func(ctx context.Context, id string) error {
			deleted = id
			return nil
		},
	}

	pendingCleared := ""
	reminders := &fakeReminderRepo{
		deletePendingFn: func(ctx context.Context, birthdayID string) (int64, error) {
			pendingCleared = birthdayID
			return 2, nil
		},
	}

	svc := newTestBirthdayService(t, birthdays, reminders)

	if err := svc.Delete(context.Background(), "b-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if deleted != "b-1" || pendingCleared != "b-1" {
		t.Fatalf("deleted = %s, pending cleared = %s, want b-1/b-1", deleted, pendingCleared)
	}
}
