package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/remindly/birthday-engine/internal/domain"
	"github.com/remindly/birthday-engine/internal/repository"
)

const (
	defaultPage     = 1
	defaultPageSize = 50
	maxPageSize     = 100
)

type ReminderStore interface {
	List(ctx context.Context, params repository.ListParams) ([]domain.Reminder, int64, error)
	GetByID(ctx context.Context, id string) (*domain.Reminder, error)
}

type ReminderHandler struct {
	store ReminderStore
}

func NewReminderHandler(store ReminderStore) (*ReminderHandler, error) {
	if store == nil {
		return nil, fmt.Errorf("reminder store is required")
	}
	return &ReminderHandler{store: store}, nil
}

func RegisterReminderRoutes(router fiber.Router, store ReminderStore) error {
	h, err := NewReminderHandler(store)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Get("/reminders", h.ListReminders)
	v1.Get("/reminders/:id", h.GetReminder)

	return nil
}

type reminderResponse struct {
	ID           string     `json:"id"`
	BirthdayID   string     `json:"birthdayId"`
	Channel      string     `json:"channel"`
	Recipient    string     `json:"recipient"`
	LeadTime     string     `json:"leadTime"`
	TargetYear   int        `json:"targetYear"`
	NotifyAt     time.Time  `json:"notifyAt"`
	IsScheduled  bool       `json:"isScheduled"`
	IsSent       bool       `json:"isSent"`
	SentAt       *time.Time `json:"sentAt,omitempty"`
	Error        *string    `json:"error,omitempty"`
	AttemptCount int        `json:"attemptCount"`
	MaxAttempts  int        `json:"maxAttempts"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

type listRemindersResponse struct {
	Data []reminderResponse `json:"data"`
	Meta listMeta           `json:"meta"`
}

type listMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
}

func (h *ReminderHandler) ListReminders(c *fiber.Ctx) error {
	params, err := parseListParams(c)
	if err != nil {
		return err
	}

	reminders, total, err := h.store.List(c.Context(), params)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(listRemindersResponse{
		Data: toReminderResponses(reminders),
		Meta: listMeta{
			Page:     params.Page,
			PageSize: params.PageSize,
			Total:    total,
		},
	})
}

func (h *ReminderHandler) GetReminder(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	reminder, err := h.store.GetByID(c.Context(), id)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(toReminderResponse(reminder))
}

func parseListParams(c *fiber.Ctx) (repository.ListParams, error) {
	params := repository.ListParams{
		Page:     c.QueryInt("page", defaultPage),
		PageSize: c.QueryInt("pageSize", defaultPageSize),
	}

	if params.Page < 1 {
		return repository.ListParams{}, fmt.Errorf("%w: page must be >= 1", domain.ErrValidation)
	}
	if params.PageSize < 1 || params.PageSize > maxPageSize {
		return repository.ListParams{}, fmt.Errorf("%w: pageSize must be between 1 and %d", domain.ErrValidation, maxPageSize)
	}

	if rawBirthdayID := strings.TrimSpace(c.Query("birthdayId")); rawBirthdayID != "" {
		params.BirthdayID = &rawBirthdayID
	}

	if rawChannel := strings.TrimSpace(c.Query("channel")); rawChannel != "" {
		channel, err := domain.ParseChannelFromString(rawChannel)
		if err != nil {
			return repository.ListParams{}, err
		}
		params.Channel = &channel
	}

	if rawSent := strings.TrimSpace(c.Query("sent")); rawSent != "" {
		sent, err := strconv.ParseBool(rawSent)
		if err != nil {
			return repository.ListParams{}, fmt.Errorf("%w: sent must be a boolean", domain.ErrValidation)
		}
		params.Sent = &sent
	}

	return params, nil
}

func toReminderResponses(reminders []domain.Reminder) []reminderResponse {
	responses := make([]reminderResponse, 0, len(reminders))
	for _, reminder := range reminders {
		r := reminder
		responses = append(responses, toReminderResponse(&r))
	}
	return responses
}

func toReminderResponse(r *domain.Reminder) reminderResponse {
	if r == nil {
		return reminderResponse{}
	}

	return reminderResponse{
		ID:           r.ID,
		BirthdayID:   r.BirthdayID,
		Channel:      r.Channel.String(),
		Recipient:    r.Recipient,
		LeadTime:     r.LeadTime.String(),
		TargetYear:   r.TargetYear,
		NotifyAt:     r.NotifyAt,
		IsScheduled:  r.IsScheduled,
		IsSent:       r.IsSent,
		SentAt:       r.SentAt,
		Error:        r.Error,
		AttemptCount: r.AttemptCount,
		MaxAttempts:  r.MaxAttempts,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}
