package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/remindly/birthday-engine/internal/domain"
	"github.com/remindly/birthday-engine/internal/repository"
)

// BirthdayService owns birthday CRUD and keeps the derived reminder set
// in step with every mutation via the synchronizer.
type BirthdayService struct {
	birthdays    repository.BirthdayRepository
	synchronizer *Synchronizer
	logger       *zap.Logger
}

func NewBirthdayService(
	birthdays repository.BirthdayRepository,
	synchronizer *Synchronizer,
	logger *zap.Logger,
) (*BirthdayService, error) {
	if birthdays == nil {
		return nil, fmt.Errorf("birthday repository is required")
	}
	if synchronizer == nil {
		return nil, fmt.Errorf("synchronizer is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &BirthdayService{
		birthdays:    birthdays,
		synchronizer: synchronizer,
		logger:       logger,
	}, nil
}

func (s *BirthdayService) Create(ctx context.Context, b *domain.Birthday) (*domain.Birthday, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}

	if err := s.birthdays.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to store birthday: %w", err)
	}
	if err := s.synchronizer.OnCreate(ctx, b); err != nil {
		return nil, err
	}

	return b, nil
}

func (s *BirthdayService) GetByID(ctx context.Context, id string) (*domain.Birthday, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: birthday id is required", domain.ErrValidation)
	}
	return s.birthdays.GetByID(ctx, id)
}

// Update stores the new version and regenerates the pending reminder set
// when the recurrence-relevant fields changed.
func (s *BirthdayService) Update(ctx context.Context, b *domain.Birthday) (*domain.Birthday, error) {
	if b == nil || b.ID == "" {
		return nil, fmt.Errorf("%w: birthday id is required", domain.ErrValidation)
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}

	old, err := s.birthdays.GetByID(ctx, b.ID)
	if err != nil {
		return nil, err
	}

	if err := s.birthdays.Update(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to update birthday %s: %w", b.ID, err)
	}
	if err := s.synchronizer.OnUpdate(ctx, old, b); err != nil {
		return nil, err
	}

	return s.birthdays.GetByID(ctx, b.ID)
}

func (s *BirthdayService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: birthday id is required", domain.ErrValidation)
	}

	if err := s.birthdays.Delete(ctx, id); err != nil {
		return err
	}
	return s.synchronizer.OnDelete(ctx, id)
}
