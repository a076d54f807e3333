package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"rag/internal/domain"
)

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"error"`
}

// Error implements the error interface
func (e Error) Error() string {
	return e.Message
}

func NewError(code int, err string) Error {
	return Error{
		Code:    code,
		Message: err,
	}
}

func ErrBadRequest() Error {
	return Error{
		Code:    fiber.StatusBadRequest,
		Message: "invalid JSON request",
	}
}

type ValidationError struct {
	Status int               `json:"status"`
	Errors map[string]string `json:"errors"`
}

func (e ValidationError) Error() string {
	return "validation failed"
}

func NewValidationError(errors map[string]string) ValidationError {
	return ValidationError{
		Status: fiber.StatusUnprocessableEntity,
		Errors: errors,
	}
}

// ErrorHandler maps pipeline error kinds to HTTP statuses. Failed exchanges
// report the step at which they failed so the client can decide between a
// degraded answer and a hard failure.
func ErrorHandler(c *fiber.Ctx, err error) error {
	if apiErr, ok := err.(Error); ok {
		return c.Status(apiErr.Code).JSON(apiErr)
	}
	if valErr, ok := err.(ValidationError); ok {
		return c.Status(valErr.Status).JSON(valErr)
	}

	var stepErr *domain.StepError
	step := ""
	if errors.As(err, &stepErr) {
		step = string(stepErr.Step)
	}

	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrInvalidConfig):
		status = fiber.StatusBadRequest
	case errors.Is(err, domain.ErrRateLimited):
		status = fiber.StatusTooManyRequests
	case errors.Is(err, domain.ErrTimeout):
		status = fiber.StatusGatewayTimeout
	case errors.Is(err, domain.ErrServiceUnavailable):
		status = fiber.StatusBadGateway
	case errors.Is(err, domain.ErrGenerationFailed):
		status = fiber.StatusBadGateway
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		status = fiberErr.Code
	}

	body := fiber.Map{"code": status, "error": err.Error()}
	if step != "" {
		body["step"] = step
	}
	return c.Status(status).JSON(body)
}
