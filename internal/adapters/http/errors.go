package http

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/wanderplan/internal/core/domain"
)

// APIError is a structured error response.
type APIError struct {
	Status    int      `json:"status"`
	Code      string   `json:"code"`    // validation_error, generation_failed, routing_failed, ...
	Message   string   `json:"message"` // Human-readable message
	Details   []string `json:"details,omitempty"`
	RequestID string   `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string, details ...string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		Details:   details,
		RequestID: reqID,
	})
}

// errValidation returns a 400 error listing every problem found.
func errValidation(c *fiber.Ctx, msg string, details ...string) error {
	return newError(c, fiber.StatusBadRequest, "validation_error", msg, details...)
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusBadRequest, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusNotFound, "not_found", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusInternalServerError, "internal_error", msg)
}

// errUnavailable returns a 503 error.
func errUnavailable(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusServiceUnavailable, "unavailable", msg)
}

// planErrorStatus maps a failed run onto an HTTP status and error code.
func planErrorStatus(err error) (int, string) {
	switch domain.KindOf(err) {
	case domain.KindInput:
		return fiber.StatusBadRequest, "validation_error"
	case domain.KindDraft:
		return fiber.StatusUnprocessableEntity, "generation_failed"
	case domain.KindRoute:
		return fiber.StatusBadGateway, "routing_failed"
	case domain.KindCanceled:
		return fiber.StatusGatewayTimeout, "canceled"
	default:
		return fiber.StatusInternalServerError, "internal_error"
	}
}

// errFromPlan renders a failed run. Input problems are split into details.
func errFromPlan(c *fiber.Ctx, err error) error {
	status, code := planErrorStatus(err)

	var pe *domain.PlanError
	if !errors.As(err, &pe) {
		return errInternal(c, "planning failed")
	}
	switch pe.Kind {
	case domain.KindInput:
		return errValidation(c, "invalid plan request", strings.Split(pe.Err.Error(), "; ")...)
	case domain.KindDraft:
		return newError(c, status, code, "could not draft a valid itinerary", pe.Err.Error())
	case domain.KindRoute:
		return newError(c, status, code, "could not route the itinerary", pe.Err.Error())
	case domain.KindCanceled:
		return newError(c, status, code, "planning did not finish in time", string(pe.Stage))
	}
	return newError(c, status, code, pe.Error())
}
