package repository

import (
	"context"
	"errors"

	"github.com/remindly/birthday-engine/internal/domain"
	"gorm.io/gorm"
)

type BirthdayRepository interface {
	Create(ctx context.Context, b *domain.Birthday) error
	GetByID(ctx context.Context, id string) (*domain.Birthday, error)
	Update(ctx context.Context, b *domain.Birthday) error
	Delete(ctx context.Context, id string) error
	ListWithSettings(ctx context.Context) ([]domain.Birthday, error)
}

type GormBirthdayRepo struct {
	db *gorm.DB
}

func NewGormBirthdayRepo(db *gorm.DB) *GormBirthdayRepo {
	return &GormBirthdayRepo{db: db}
}

func (r *GormBirthdayRepo) Create(ctx context.Context, b *domain.Birthday) error {
	model := birthdayModelFromDomain(b)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if b != nil {
		*b = *birthdayModelToDomain(model)
	}
	return nil
}

func (r *GormBirthdayRepo) GetByID(ctx context.Context, id string) (*domain.Birthday, error) {
	var model BirthdayModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return birthdayModelToDomain(&model), nil
}

func (r *GormBirthdayRepo) Update(ctx context.Context, b *domain.Birthday) error {
	model := birthdayModelFromDomain(b)
	if model == nil {
		return domain.ErrValidation
	}

	// Select forces nil settings through, clearing the column when the
	// caller removed the configuration.
	result := r.db.WithContext(ctx).
		Model(&BirthdayModel{}).
		Where("id = ?", model.ID).
		Select("name", "birth_year", "birth_month", "birth_day", "settings").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormBirthdayRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&BirthdayModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListWithSettings returns every birthday with an active settings block,
// the regeneration job's working set.
func (r *GormBirthdayRepo) ListWithSettings(ctx context.Context) ([]domain.Birthday, error) {
	var models []BirthdayModel
	err := r.db.WithContext(ctx).
		Where("settings IS NOT NULL").
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	birthdays := make([]domain.Birthday, 0, len(models))
	for i := range models {
		birthdays = append(birthdays, *birthdayModelToDomain(&models[i]))
	}
	return birthdays, nil
}
