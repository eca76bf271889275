package server

import (
	"github.com/gofiber/fiber/v2"

	"github.com/atlantishq/dispatchd/pkg/models"
)

// SendSuccess writes the standard success envelope.
func SendSuccess(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(fiber.Map{
		"status": "success",
		"data":   data,
	})
}

// SendError writes the standard error envelope with the general error type.
func SendError(c *fiber.Ctx, status int, message string) error {
	return SendErrorWithType(c, status, message, models.GeneralErrorType)
}

// SendErrorWithType writes the standard error envelope.
func SendErrorWithType(c *fiber.Ctx, status int, message string, errorType models.ErrorType) error {
	return c.Status(status).JSON(fiber.Map{
		"status":     "error",
		"message":    message,
		"error_type": errorType,
	})
}
