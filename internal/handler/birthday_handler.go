package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/remindly/birthday-engine/internal/domain"
)

type BirthdayService interface {
	Create(ctx context.Context, b *domain.Birthday) (*domain.Birthday, error)
	GetByID(ctx context.Context, id string) (*domain.Birthday, error)
	Update(ctx context.Context, b *domain.Birthday) (*domain.Birthday, error)
	Delete(ctx context.Context, id string) error
}

type BirthdayHandler struct {
	service BirthdayService
}

func NewBirthdayHandler(service BirthdayService) (*BirthdayHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("birthday service is required")
	}
	return &BirthdayHandler{service: service}, nil
}

func RegisterBirthdayRoutes(router fiber.Router, service BirthdayService) error {
	h, err := NewBirthdayHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/birthdays", h.CreateBirthday)
	v1.Get("/birthdays/:id", h.GetBirthday)
	v1.Put("/birthdays/:id", h.UpdateBirthday)
	v1.Delete("/birthdays/:id", h.DeleteBirthday)

	return nil
}

type birthDateRequest struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

type channelRefRequest struct {
	Channel   string `json:"channel"`
	Recipient string `json:"recipient"`
}

type settingsRequest struct {
	TimeZone  string              `json:"timeZone"`
	LeadTimes []string            `json:"leadTimes"`
	Channels  []channelRefRequest `json:"channels"`
}

type birthdayRequest struct {
	Name      string           `json:"name"`
	BirthDate birthDateRequest `json:"birthDate"`
	Settings  *settingsRequest `json:"settings,omitempty"`
}

type channelRefResponse struct {
	Channel   string `json:"channel"`
	Recipient string `json:"recipient"`
}

type settingsResponse struct {
	TimeZone  string               `json:"timeZone"`
	LeadTimes []string             `json:"leadTimes"`
	Channels  []channelRefResponse `json:"channels"`
}

type birthdayResponse struct {
	ID                  string            `json:"id"`
	Name                string            `json:"name"`
	BirthDate           birthDateRequest  `json:"birthDate"`
	Settings            *settingsResponse `json:"settings,omitempty"`
	LastEmailNotifiedAt *time.Time        `json:"lastEmailNotifiedAt,omitempty"`
	LastChatNotifiedAt  *time.Time        `json:"lastChatNotifiedAt,omitempty"`
	CreatedAt           time.Time         `json:"createdAt"`
	UpdatedAt           time.Time         `json:"updatedAt"`
}

func (h *BirthdayHandler) CreateBirthday(c *fiber.Ctx) error {
	var req birthdayRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	birthday, err := requestToDomainBirthday(req)
	if err != nil {
		return err
	}

	created, err := h.service.Create(c.Context(), &birthday)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(toBirthdayResponse(created))
}

func (h *BirthdayHandler) GetBirthday(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	birthday, err := h.service.GetByID(c.Context(), id)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(toBirthdayResponse(birthday))
}

func (h *BirthdayHandler) UpdateBirthday(c *fiber.Ctx) error {
	var req birthdayRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	birthday, err := requestToDomainBirthday(req)
	if err != nil {
		return err
	}
	birthday.ID = strings.TrimSpace(c.Params("id"))

	updated, err := h.service.Update(c.Context(), &birthday)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(toBirthdayResponse(updated))
}

func (h *BirthdayHandler) DeleteBirthday(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if err := h.service.Delete(c.Context(), id); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func requestToDomainBirthday(req birthdayRequest) (domain.Birthday, error) {
	b := domain.Birthday{
		Name: strings.TrimSpace(req.Name),
		BirthDate: domain.BirthDate{
			Year:  req.BirthDate.Year,
			Month: req.BirthDate.Month,
			Day:   req.BirthDate.Day,
		},
	}

	if req.Settings != nil {
		settings, err := requestToDomainSettings(*req.Settings)
		if err != nil {
			return domain.Birthday{}, err
		}
		b.Settings = settings
	}

	if err := b.Validate(); err != nil {
		return domain.Birthday{}, err
	}
	return b, nil
}

func requestToDomainSettings(req settingsRequest) (*domain.NotificationSettings, error) {
	zone := strings.TrimSpace(req.TimeZone)
	if _, err := time.LoadLocation(zone); err != nil || zone == "" {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidTimeZone, req.TimeZone)
	}

	leadTimes := make([]domain.Formula, 0, len(req.LeadTimes))
	for _, raw := range req.LeadTimes {
		formula, err := domain.ParseFormula(raw)
		if err != nil {
			return nil, err
		}
		leadTimes = append(leadTimes, formula)
	}

	channels := make([]domain.ChannelRef, 0, len(req.Channels))
	for _, raw := range req.Channels {
		channel, err := domain.ParseChannelFromString(raw.Channel)
		if err != nil {
			return nil, err
		}
		channels = append(channels, domain.ChannelRef{
			Channel:   channel,
			Recipient: strings.TrimSpace(raw.Recipient),
		})
	}

	return &domain.NotificationSettings{
		TimeZone:  zone,
		LeadTimes: leadTimes,
		Channels:  channels,
	}, nil
}

func toBirthdayResponse(b *domain.Birthday) birthdayResponse {
	if b == nil {
		return birthdayResponse{}
	}

	resp := birthdayResponse{
		ID:   b.ID,
		Name: b.Name,
		BirthDate: birthDateRequest{
			Year:  b.BirthDate.Year,
			Month: b.BirthDate.Month,
			Day:   b.BirthDate.Day,
		},
		LastEmailNotifiedAt: b.LastEmailNotifiedAt,
		LastChatNotifiedAt:  b.LastChatNotifiedAt,
		CreatedAt:           b.CreatedAt,
		UpdatedAt:           b.UpdatedAt,
	}

	if b.Settings != nil {
		settings := settingsResponse{
			TimeZone:  b.Settings.TimeZone,
			LeadTimes: make([]string, 0, len(b.Settings.LeadTimes)),
			Channels:  make([]channelRefResponse, 0, len(b.Settings.Channels)),
		}
		for _, f := range b.Settings.LeadTimes {
			settings.LeadTimes = append(settings.LeadTimes, f.String())
		}
		for _, ref := range b.Settings.Channels {
			settings.Channels = append(settings.Channels, channelRefResponse{
				Channel:   ref.Channel.String(),
				Recipient: ref.Recipient,
			})
		}
		resp.Settings = &settings
	}

	return resp
}
