package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/remindly/birthday-engine/internal/domain"
)

type ScanRunner interface {
	RunOnce(ctx context.Context) (int, error)
}

type RegenerationRunner interface {
	Run(ctx context.Context, targetYear int) (int, error)
}

// DebugHandler exposes the background jobs as on-demand triggers for
// operators. Both endpoints run the job inline and report the number of
// records it touched.
type DebugHandler struct {
	scanner     ScanRunner
	regenerator RegenerationRunner
}

func NewDebugHandler(scanner ScanRunner, regenerator RegenerationRunner) (*DebugHandler, error) {
	if scanner == nil {
		return nil, fmt.Errorf("scan runner is required")
	}
	if regenerator == nil {
		return nil, fmt.Errorf("regeneration runner is required")
	}
	return &DebugHandler{scanner: scanner, regenerator: regenerator}, nil
}

func RegisterDebugRoutes(router fiber.Router, scanner ScanRunner, regenerator RegenerationRunner) error {
	h, err := NewDebugHandler(scanner, regenerator)
	if err != nil {
		return err
	}

	debug := router.Group("/debug")
	debug.Post("/scan", h.TriggerScan)
	debug.Post("/regenerate", h.TriggerRegeneration)

	return nil
}

func (h *DebugHandler) TriggerScan(c *fiber.Ctx) error {
	scheduled, err := h.scanner.RunOnce(c.Context())
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"scheduled": scheduled,
	})
}

func (h *DebugHandler) TriggerRegeneration(c *fiber.Ctx) error {
	year := c.QueryInt("year", time.Now().UTC().Year())
	if year < 1 {
		return fmt.Errorf("%w: year must be positive", domain.ErrValidation)
	}

	created, err := h.regenerator.Run(c.Context(), year)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"year":    year,
		"created": created,
	})
}
