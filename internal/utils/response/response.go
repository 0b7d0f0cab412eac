// Package response renders the canonical API envelope:
// {success, message?, data?, count?, total?, page?, limit?, errors?}.
package response

import (
	"github.com/gofiber/fiber/v2"
)

// FieldError is one per-field validation failure.
type FieldError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

func Success(c *fiber.Ctx, message string, data interface{}) error {
	return c.JSON(fiber.Map{
		"success": true,
		"message": message,
		"data":    data,
	})
}

func Created(c *fiber.Ctx, message string, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": message,
		"data":    data,
	})
}

// Paginated renders a list page with its count metadata.
func Paginated(c *fiber.Ctx, data interface{}, count int, total int64, page, limit int) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
		"count":   count,
		"total":   total,
		"page":    page,
		"limit":   limit,
	})
}

func Error(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}

func BadRequest(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusBadRequest, message)
}

func Unauthorized(c *fiber.Ctx, message string) error {
	if message == "" {
		message = "Unauthorized"
	}
	return Error(c, fiber.StatusUnauthorized, message)
}

// Forbidden deliberately carries a generic message; the precise denial
// reason goes to the audit log only.
func Forbidden(c *fiber.Ctx) error {
	return Error(c, fiber.StatusForbidden, "Forbidden")
}

func NotFound(c *fiber.Ctx, message string) error {
	if message == "" {
		message = "Not found"
	}
	return Error(c, fiber.StatusNotFound, message)
}

func Conflict(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusConflict, message)
}

// UnprocessableEntity covers well-formed input rejected by a domain rule
// (illegal state transition, schedule overlap).
func UnprocessableEntity(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusUnprocessableEntity, message)
}

func ServerError(c *fiber.Ctx) error {
	return Error(c, fiber.StatusInternalServerError, "Internal server error")
}

// ValidationFailed renders per-field detail with a 400.
func ValidationFailed(c *fiber.Ctx, errs []FieldError) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"message": "Validation failed",
		"errors":  errs,
	})
}
