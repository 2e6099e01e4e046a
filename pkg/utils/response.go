package utils

import (
	"github.com/gofiber/fiber/v2"

	"photovault/pkg/errs"
)

// SuccessResponse sends a JSON success envelope
func SuccessResponse(c *fiber.Ctx, data interface{}) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

// PaginatedResponse sends a JSON success envelope with pagination metadata
func PaginatedResponse(c *fiber.Ctx, data interface{}, total int64, page, limit int) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
		"meta": fiber.Map{
			"total": total,
			"page":  page,
			"limit": limit,
		},
	})
}

// ErrorResponse sends a JSON error envelope with the given status
func ErrorResponse(c *fiber.Ctx, status int, code errs.ErrorCode, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error": fiber.Map{
			"code":    code,
			"message": message,
		},
	})
}

// StatusForCode maps an application error code to an HTTP status
func StatusForCode(code errs.ErrorCode) int {
	switch code {
	case errs.ErrNotFound:
		return fiber.StatusNotFound
	case errs.ErrInvalid:
		return fiber.StatusBadRequest
	case errs.ErrDedupConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}
