package service

import (
	"context"
	"time"

	"github.com/remindly/birthday-engine/internal/channel"
	"github.com/remindly/birthday-engine/internal/domain"
	"github.com/remindly/birthday-engine/internal/queue"
	"github.com/remindly/birthday-engine/internal/repository"
)

type fakeReminderRepo struct {
	createBatchFn     func(ctx context.Context, reminders []*domain.Reminder) error
	replacePendingFn  func(ctx context.Context, birthdayID string, reminders []*domain.Reminder) error
	deletePendingFn   func(ctx context.Context, birthdayID string) (int64, error)
	getByIDFn         func(ctx context.Context, id string) (*domain.Reminder, error)
	getDueFn          func(ctx context.Context, now time.Time, limit int) ([]domain.Reminder, error)
	markScheduledFn   func(ctx context.Context, id string) (bool, error)
	revertScheduledFn func(ctx context.Context, id string) (bool, error)
	lockForDispatchFn func(ctx context.Context, id string) (*domain.Reminder, error)
	markSentFn        func(ctx context.Context, id string, sentAt time.Time) error
	markFailedFn      func(ctx context.Context, id string, message string) error
	existsFn          func(ctx context.Context, birthdayID string, channel domain.Channel, recipient string, notifyAt time.Time) (bool, error)
	listFn            func(ctx context.Context, params repository.ListParams) ([]domain.Reminder, int64, error)
}

func (f *fakeReminderRepo) CreateBatch(ctx context.Context, reminders []*domain.Reminder) error {
	if f.createBatchFn == nil {
		return nil
	}
	return f.createBatchFn(ctx, reminders)
}

func (f *fakeReminderRepo) ReplacePending(ctx context.Context, birthdayID string, reminders []*domain.Reminder) error {
	if f.replacePendingFn == nil {
		return nil
	}
	return f.replacePendingFn(ctx, birthdayID, reminders)
}

func (f *fakeReminderRepo) DeletePending(ctx context.Context, birthdayID string) (int64, error) {
	if f.deletePendingFn == nil {
		return 0, nil
	}
	return f.deletePendingFn(ctx, birthdayID)
}

func (f *fakeReminderRepo) GetByID(ctx context.Context, id string) (*domain.Reminder, error) {
	if f.getByIDFn == nil {
		return nil, domain.ErrNotFound
	}
	return f.getByIDFn(ctx, id)
}

func (f *fakeReminderRepo) GetDue(ctx context.Context, now time.Time, limit int) ([]domain.Reminder, error) {
	if f.getDueFn == nil {
		return nil, nil
	}
	return f.getDueFn(ctx, now, limit)
}

func (f *fakeReminderRepo) MarkScheduled(ctx context.Context, id string) (bool, error) {
	if f.markScheduledFn == nil {
		return true, nil
	}
	return f.markScheduledFn(ctx, id)
}

func (f *fakeReminderRepo) RevertScheduled(ctx context.Context, id string) (bool, error) {
	if f.revertScheduledFn == nil {
		return true, nil
	}
	return f.revertScheduledFn(ctx, id)
}

func (f *fakeReminderRepo) LockForDispatch(ctx context.Context, id string) (*domain.Reminder, error) {
	if f.lockForDispatchFn == nil {
		return nil, nil
	}
	return f.lockForDispatchFn(ctx, id)
}

func (f *fakeReminderRepo) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	if f.markSentFn == nil {
		return nil
	}
	return f.markSentFn(ctx, id, sentAt)
}

func (f *fakeReminderRepo) MarkFailed(ctx context.Context, id string, message string) error {
	if f.markFailedFn == nil {
		return nil
	}
	return f.markFailedFn(ctx, id, message)
}

func (f *fakeReminderRepo) Exists(ctx context.Context, birthdayID string, channel domain.Channel, recipient string, notifyAt time.Time) (bool, error) {
	if f.existsFn == nil {
		return false, nil
	}
	return f.existsFn(ctx, birthdayID, channel, recipient, notifyAt)
}

func (f *fakeReminderRepo) List(ctx context.Context, params repository.ListParams) ([]domain.Reminder, int64, error) {
	if f.listFn == nil {
		return nil, 0, nil
	}
	return f.listFn(ctx, params)
}

type fakeBirthdayRepo struct {
	createFn           func(ctx context.Context, b *domain.Birthday) error
	getByIDFn          func(ctx context.Context, id string) (*domain.Birthday, error)
	updateFn           func(ctx context.Context, b *domain.Birthday) error
	deleteFn           func(ctx context.Context, id string) error
	listWithSettingsFn func(ctx context.Context) ([]domain.Birthday, error)
}

func (f *fakeBirthdayRepo) Create(ctx context.Context, b *domain.Birthday) error {
	if f.createFn == nil {
		return nil
	}
	return f.createFn(ctx, b)
}

func (f *fakeBirthdayRepo) GetByID(ctx context.Context, id string) (*domain.Birthday, error) {
	if f.getByIDFn == nil {
		return nil, domain.ErrNotFound
	}
	return f.getByIDFn(ctx, id)
}

func (f *fakeBirthdayRepo) Update(ctx context.Context, b *domain.Birthday) error {
	if f.updateFn == nil {
		return nil
	}
	return f.updateFn(ctx, b)
}

func (f *fakeBirthdayRepo) Delete(ctx context.Context, id string) error {
	if f.deleteFn == nil {
		return nil
	}
	return f.deleteFn(ctx, id)
}

func (f *fakeBirthdayRepo) ListWithSettings(ctx context.Context) ([]domain.Birthday, error) {
	if f.listWithSettingsFn == nil {
		return nil, nil
	}
	return f.listWithSettingsFn(ctx)
}

type fakePublisher struct {
	publishFn func(ctx context.Context, queueName string, msg queue.ReminderMessage) error
}

func (f *fakePublisher) Publish(ctx context.Context, queueName string, msg queue.ReminderMessage) error {
	if f.publishFn == nil {
		return nil
	}
	return f.publishFn(ctx, queueName, msg)
}

func (f *fakePublisher) Close() error { return nil }

type fakeConsumer struct {
	consumeFn func(ctx context.Context, queueName string, handler queue.MessageHandler) error
}

func (f *fakeConsumer) Consume(ctx context.Context, queueName string, handler queue.MessageHandler) error {
	if f.consumeFn == nil {
		<-ctx.Done()
		return nil
	}
	return f.consumeFn(ctx, queueName, handler)
}

func (f *fakeConsumer) Close() error { return nil }

type fakeSender struct {
	sendFn func(ctx context.Context, delivery channel.Delivery) error
}

func (f *fakeSender) Send(ctx context.Context, delivery channel.Delivery) error {
	if f.sendFn == nil {
		return nil
	}
	return f.sendFn(ctx, delivery)
}

type fakeRateLimiter struct {
	waitFn func(ctx context.Context, channel string) error
}

func (f *fakeRateLimiter) Allow(ctx context.Context, channel string) (bool, error) {
	return true, nil
}

func (f *fakeRateLimiter) Wait(ctx context.Context, channel string) error {
	if f.waitFn == nil {
		return nil
	}
	return f.waitFn(ctx, channel)
}
