package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"agentic-chat-be/internal/pkg/logger"
)

// NewErrorHandler builds the fiber error handler: fiber errors keep
// their status, everything else becomes a logged 500 without leaking
// internals to the client.
func NewErrorHandler(log logger.ILogger) fiber.ErrorHandler {
	return func(ctx *fiber.Ctx, err error) error {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(FailResponse(fiberErr.Message))
		}

		log.Error("Http", "Unhandled error", map[string]interface{}{
			"path":   ctx.Path(),
			"method": ctx.Method(),
			"error":  err.Error(),
		})
		return ctx.Status(fiber.StatusInternalServerError).JSON(FailResponse("internal server error"))
	}
}
