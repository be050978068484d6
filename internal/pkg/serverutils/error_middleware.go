package serverutils

import (
	"errors"

	"thrx-be/internal/pkg/logger"
	"thrx-be/pkg/ai/pipeline"
	"thrx-be/pkg/conversation"
	"thrx-be/pkg/llm/factory"
	"thrx-be/pkg/llm/ollama"
	"thrx-be/pkg/store"

	"github.com/gofiber/fiber/v2"
)

// StatusFor maps domain errors to HTTP status codes.
func StatusFor(err error) int {
	var fiberErr *fiber.Error
	var validationErr *ValidationError

	switch {
	case errors.As(err, &fiberErr):
		return fiberErr.Code
	case errors.As(err, &validationErr):
		return fiber.StatusBadRequest
	case errors.Is(err, pipeline.ErrEmptyInput):
		return fiber.StatusNoContent
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, conversation.ErrMessageNotFound),
		errors.Is(err, conversation.ErrBranchPointGone),
		errors.Is(err, logger.ErrLogNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, conversation.ErrTurnInProgress),
		errors.Is(err, ollama.ErrEngineBusy):
		return fiber.StatusConflict
	case errors.Is(err, conversation.ErrSiblingOutOfRange),
		errors.Is(err, conversation.ErrNoBranchDraft),
		errors.Is(err, conversation.ErrNoActiveChat),
		errors.Is(err, factory.ErrNotLocalModel):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, factory.ErrProviderNotConfigured):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandlerMiddleware turns errors returned by handlers into the standard
// error envelope. 204 carries no body.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code := StatusFor(err)
		if code == fiber.StatusNoContent {
			return ctx.SendStatus(code)
		}
		return ctx.Status(code).JSON(ErrorResponse(code, err.Error()))
	}
}
