package transport

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/remindly/birthday-engine/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

// NewErrorHandler maps domain sentinels onto HTTP statuses. Anything
// unrecognized is logged and reported as a 500 without leaking internals.
func NewErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		message := "internal server error"

		var fiberErr *fiber.Error
		switch {
		case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidTimeZone):
			status = fiber.StatusBadRequest
			message = err.Error()
		case errors.Is(err, domain.ErrNotFound):
			status = fiber.StatusNotFound
			message = err.Error()
		case errors.Is(err, domain.ErrConflict):
			status = fiber.StatusConflict
			message = err.Error()
		case errors.As(err, &fiberErr):
			status = fiberErr.Code
			message = fiberErr.Message
		default:
			logger.Error("unhandled error",
				zap.String("path", c.Path()),
				zap.String("method", c.Method()),
				zap.Error(err),
			)
		}

		return c.Status(status).JSON(errorResponse{Error: message})
	}
}
