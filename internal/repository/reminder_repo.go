package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/remindly/birthday-engine/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BatchLimit is the hard per-transaction mutation cap. Multi-record
// writes above it must be chunked by the caller; each chunk commits
// independently.
const BatchLimit = 500

// ErrBatchLimit is returned when a single atomic write would exceed
// BatchLimit operations.
var ErrBatchLimit = fmt.Errorf("%w: batch exceeds %d operations", domain.ErrValidation, BatchLimit)

type ListParams struct {
	BirthdayID *string
	Channel    *domain.Channel
	Sent       *bool
	Page       int
	PageSize   int
}

type ReminderRepository interface {
	CreateBatch(ctx context.Context, reminders []*domain.Reminder) error
	ReplacePending(ctx context.Context, birthdayID string, reminders []*domain.Reminder) error
	DeletePending(ctx context.Context, birthdayID string) (int64, error)
	GetByID(ctx context.Context, id string) (*domain.Reminder, error)
	GetDue(ctx context.Context, now time.Time, limit int) ([]domain.Reminder, error)
	MarkScheduled(ctx context.Context, id string) (bool, error)
	RevertScheduled(ctx context.Context, id string) (bool, error)
	LockForDispatch(ctx context.Context, id string) (*domain.Reminder, error)
	MarkSent(ctx context.Context, id string, sentAt time.Time) error
	MarkFailed(ctx context.Context, id string, message string) error
	Exists(ctx context.Context, birthdayID string, channel domain.Channel, recipient string, notifyAt time.Time) (bool, error)
	List(ctx context.Context, params ListParams) ([]domain.Reminder, int64, error)
}

type GormReminderRepo struct {
	db *gorm.DB
}

func NewGormReminderRepo(db *gorm.DB) *GormReminderRepo {
	return &GormReminderRepo{db: db}
}

// CreateBatch inserts all reminders in one transaction. The whole set
// either lands or nothing does; callers chunk above BatchLimit.
func (r *GormReminderRepo) CreateBatch(ctx context.Context, reminders []*domain.Reminder) error {
	if len(reminders) == 0 {
		return nil
	}
	if len(reminders) > BatchLimit {
		return ErrBatchLimit
	}

	models := make([]ReminderModel, 0, len(reminders))
	for _, reminder := range reminders {
		if model := reminderModelFromDomain(reminder); model != nil {
			models = append(models, *model)
		}
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&models).Error
	})
}

// ReplacePending atomically retires every not-yet-scheduled, not-yet-sent
// record of one birthday and installs the regenerated set. In-flight and
// sent records are untouched.
func (r *GormReminderRepo) ReplacePending(ctx context.Context, birthdayID string, reminders []*domain.Reminder) error {
	if len(reminders) > BatchLimit {
		return ErrBatchLimit
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.
			Where("birthday_id = ? AND is_scheduled = ? AND is_sent = ?", birthdayID, false, false).
			Delete(&ReminderModel{}).Error
		if err != nil {
			return err
		}

		if len(reminders) == 0 {
			return nil
		}

		models := make([]ReminderModel, 0, len(reminders))
		for _, reminder := range reminders {
			if model := reminderModelFromDomain(reminder); model != nil {
				models = append(models, *model)
			}
		}
		return tx.Create(&models).Error
	})
}

func (r *GormReminderRepo) DeletePending(ctx context.Context, birthdayID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("birthday_id = ? AND is_scheduled = ? AND is_sent = ?", birthdayID, false, false).
		Delete(&ReminderModel{})
	return result.RowsAffected, result.Error
}

func (r *GormReminderRepo) GetByID(ctx context.Context, id string) (*domain.Reminder, error) {
	var model ReminderModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return reminderModelToDomain(&model), nil
}

// GetDue returns pending records whose fire time has passed, excluding
// records whose retry budget is exhausted.
func (r *GormReminderRepo) GetDue(ctx context.Context, now time.Time, limit int) ([]domain.Reminder, error) {
	var models []ReminderModel
	err := r.db.WithContext(ctx).
		Where("is_scheduled = ? AND is_sent = ? AND notify_at <= ? AND attempt_count < max_attempts",
			false, false, now).
		Order("notify_at ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	reminders := make([]domain.Reminder, 0, len(models))
	for i := range models {
		reminders = append(reminders, *reminderModelToDomain(&models[i]))
	}
	return reminders, nil
}

// MarkScheduled flips pending to scheduled. The flip is the scanner's
// claim on the record: it only succeeds from the pending state, so a
// concurrent sweep over the same row loses and publishes nothing.
func (r *GormReminderRepo) MarkScheduled(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&ReminderModel{}).
		Where("id = ? AND is_scheduled = ? AND is_sent = ?", id, false, false).
		Update("is_scheduled", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// RevertScheduled puts a scheduled record back into the pending state
// without touching the attempt budget. The scanner calls it when the
// dispatch message could not be enqueued after the flip; the next sweep
// picks the record up again. Sent rows are never reverted.
func (r *GormReminderRepo) RevertScheduled(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&ReminderModel{}).
		Where("id = ? AND is_scheduled = ? AND is_sent = ?", id, true, false).
		Update("is_scheduled", false)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// LockForDispatch locks the row and returns it only when it is still in
// the scheduled, unsent state. Nil with no error means another worker
// got there first or the record moved on; the caller acks and skips.
func (r *GormReminderRepo) LockForDispatch(ctx context.Context, id string) (*domain.Reminder, error) {
	var model ReminderModel
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if !model.IsScheduled || model.IsSent {
		return nil, nil
	}

	return reminderModelToDomain(&model), nil
}

// MarkSent records the terminal success state and, in the same
// transaction, upserts the birthday's last-notified marker for the
// record's channel. The marker guards against re-sending on the same
// channel when settings change mid-flight.
func (r *GormReminderRepo) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model ReminderModel
		if err := tx.First(&model, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}

		err := tx.Model(&ReminderModel{}).
			Where("id = ?", id).
			Updates(map[string]any{
				"is_sent": true,
				"sent_at": sentAt,
				"error":   nil,
			}).Error
		if err != nil {
			return err
		}

		markerColumn := "last_email_notified_at"
		if model.Channel == domain.ChannelChat {
			markerColumn = "last_chat_notified_at"
		}

		return tx.Model(&BirthdayModel{}).
			Where("id = ?", model.BirthdayID).
			Update(markerColumn, sentAt).Error
	})
}

// MarkFailed records a delivery failure and reverts the scheduled flag so
// the next scanner pass re-queues the record, bounded by max_attempts.
func (r *GormReminderRepo) MarkFailed(ctx context.Context, id string, message string) error {
	result := r.db.WithContext(ctx).
		Model(&ReminderModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"is_scheduled":  false,
			"is_sent":       false,
			"error":         message,
			"attempt_count": gorm.Expr("attempt_count + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Exists answers the dedup suppression query used before inserting a
// regenerated record.
func (r *GormReminderRepo) Exists(ctx context.Context, birthdayID string, channel domain.Channel, recipient string, notifyAt time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&ReminderModel{}).
		Where("birthday_id = ? AND channel = ? AND recipient = ? AND notify_at = ?",
			birthdayID, channel, recipient, notifyAt).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormReminderRepo) List(ctx context.Context, params ListParams) ([]domain.Reminder, int64, error) {
	query := r.db.WithContext(ctx).Model(&ReminderModel{})

	if params.BirthdayID != nil {
		query = query.Where("birthday_id = ?", *params.BirthdayID)
	}
	if params.Channel != nil {
		query = query.Where("channel = ?", *params.Channel)
	}
	if params.Sent != nil {
		query = query.Where("is_sent = ?", *params.Sent)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := max(params.Page, 1)
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = 50
	}
	pageSize = min(pageSize, 100)

	var models []ReminderModel
	err := query.
		Order("notify_at ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	reminders := make([]domain.Reminder, 0, len(models))
	for i := range models {
		reminders = append(reminders, *reminderModelToDomain(&models[i]))
	}
	return reminders, total, nil
}
