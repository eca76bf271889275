package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/atlantishq/dispatchd/internal/core"
	"github.com/atlantishq/dispatchd/pkg/models"
)

// handleGetSettings returns a user's method weights, creating the defaults
// on first read.
//
// GET /settings?user=<username>
func (s *Server) handleGetSettings(c *fiber.Ctx) error {
	username := c.Query("user")
	if username == "" {
		return SendErrorWithType(c, fiber.StatusBadRequest, "user parameter is required", models.ValidationErrorType)
	}

	weights, isDefault, err := core.GetPreferences(c.Context(), s.sqlite, username)
	if err != nil {
		s.log.Error("failed to get preferences", "username", username, "error", err)
		return SendError(c, fiber.StatusInternalServerError, "Failed to retrieve settings")
	}

	return SendSuccess(c, fiber.StatusOK, models.PreferencesResponse{
		Username:  username,
		Weights:   weights,
		IsDefault: isDefault,
	})
}

// handleUpdateSettings applies a partial method-weight update.
//
// POST /settings?user=<username>  body: {"signal": 5, "email": 7}
func (s *Server) handleUpdateSettings(c *fiber.Ctx) error {
	username := c.Query("user")
	if username == "" {
		return SendErrorWithType(c, fiber.StatusBadRequest, "user parameter is required", models.ValidationErrorType)
	}

	var req models.UpdatePreferencesRequest
	if err := c.BodyParser(&req); err != nil {
		return SendErrorWithType(c, fiber.StatusBadRequest, "Invalid request body", models.ValidationErrorType)
	}

	weights, err := core.UpdatePreferences(c.Context(), s.sqlite, username, req)
	if err != nil {
		var verr *core.ValidationError
		if errors.As(err, &verr) {
			return SendErrorWithType(c, fiber.StatusBadRequest, verr.Error(), models.ValidationErrorType)
		}
		s.log.Error("failed to update preferences", "username", username, "error", err)
		return SendError(c, fiber.StatusInternalServerError, "Failed to update settings")
	}

	return SendSuccess(c, fiber.StatusOK, models.PreferencesResponse{
		Username: username,
		Weights:  weights,
	})
}
