package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/ethpandaops/clickguard/pkg/clarification"
	"github.com/ethpandaops/clickguard/pkg/conversation"
	"github.com/ethpandaops/clickguard/pkg/gateway"
	"github.com/ethpandaops/clickguard/pkg/observability"
)

var (
	// ErrChatDisabled is returned when no assistant is configured
	ErrChatDisabled = fiber.NewError(fiber.StatusServiceUnavailable, "chat is disabled: no assistant configured")
	// ErrInvalidBody is returned when the request body cannot be decoded
	ErrInvalidBody = fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	// ErrQuestionRequired is returned when the question parameter is missing
	ErrQuestionRequired = fiber.NewError(fiber.StatusBadRequest, "question query parameter is required")
)

// StatusFor maps an error to its HTTP status code
func StatusFor(err error) int {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code
	}

	if kind, ok := gateway.KindOf(err); ok {
		switch kind {
		case gateway.KindPermission:
			return fiber.StatusForbidden
		case gateway.KindQuery:
			return fiber.StatusBadRequest
		case gateway.KindTimeout:
			return fiber.StatusGatewayTimeout
		default:
			return fiber.StatusBadGateway
		}
	}

	switch {
	case errors.Is(err, gateway.ErrEmptySQL),
		errors.Is(err, gateway.ErrInvalidTable),
		errors.Is(err, conversation.ErrEmptyMessage),
		errors.Is(err, clarification.ErrEmptyBaseQuestion),
		errors.Is(err, clarification.ErrUnknownField):
		return fiber.StatusBadRequest
	}

	return fiber.StatusInternalServerError
}

// ErrorHandler provides consistent error responses
func ErrorHandler(c fiber.Ctx, err error) error {
	code := StatusFor(err)

	message := err.Error()
	if code == fiber.StatusInternalServerError {
		message = "Internal Server Error"
	}

	if code >= fiber.StatusInternalServerError {
		observability.RecordError("api", strconv.Itoa(code))
	}

	body := fiber.Map{
		"error": message,
		"code":  code,
	}

	if kind, ok := gateway.KindOf(err); ok {
		body["kind"] = kind
	}

	return c.Status(code).JSON(body)
}
