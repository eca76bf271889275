package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/atlantishq/dispatchd/internal/core"
	"github.com/atlantishq/dispatchd/pkg/models"
)

// handleListWebhooks returns the path tokens held by a user.
//
// GET /webhooks?user=<username>
func (s *Server) handleListWebhooks(c *fiber.Ctx) error {
	username := c.Query("user")
	if username == "" {
		return SendErrorWithType(c, fiber.StatusBadRequest, "user parameter is required", models.ValidationErrorType)
	}

	bindings, err := core.ListWebhooks(c.Context(), s.sqlite, username)
	if err != nil {
		s.log.Error("failed to list webhook bindings", "username", username, "error", err)
		return SendError(c, fiber.StatusInternalServerError, "Failed to list webhooks")
	}
	if bindings == nil {
		bindings = []*models.WebhookBinding{}
	}
	return SendSuccess(c, fiber.StatusOK, bindings)
}

// handleCreateWebhook mints a new path token for a user.
//
// POST /webhooks?user=<username>
func (s *Server) handleCreateWebhook(c *fiber.Ctx) error {
	username := c.Query("user")
	if username == "" {
		return SendErrorWithType(c, fiber.StatusBadRequest, "user parameter is required", models.ValidationErrorType)
	}

	binding, err := core.CreateWebhook(c.Context(), s.sqlite, s.log, username)
	if err != nil {
		s.log.Error("failed to create webhook binding", "username", username, "error", err)
		return SendError(c, fiber.StatusInternalServerError, "Failed to create webhook")
	}
	return SendSuccess(c, fiber.StatusCreated, binding)
}

// handleDeleteWebhook removes a path token.
//
// DELETE /webhooks?path=<token>
func (s *Server) handleDeleteWebhook(c *fiber.Ctx) error {
	path := c.Query("path")
	if path == "" {
		return SendErrorWithType(c, fiber.StatusBadRequest, "path parameter is required", models.ValidationErrorType)
	}

	if err := core.DeleteWebhook(c.Context(), s.sqlite, s.log, path); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return SendErrorWithType(c, fiber.StatusNotFound, "Webhook not found", models.NotFoundErrorType)
		}
		s.log.Error("failed to delete webhook binding", "error", err)
		return SendError(c, fiber.StatusInternalServerError, "Failed to delete webhook")
	}
	return SendSuccess(c, fiber.StatusOK, fiber.Map{"deleted": path})
}
