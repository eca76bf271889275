package server

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/atlantishq/dispatchd/internal/core"
	"github.com/atlantishq/dispatchd/pkg/models"
)

// handleGetDowntime reports the current suppression window.
//
// GET /downtime
func (s *Server) handleGetDowntime(c *fiber.Ctx) error {
	until, active, err := core.DowntimeUntil(c.Context(), s.sqlite)
	if err != nil {
		s.log.Error("failed to read downtime window", "error", err)
		return SendError(c, fiber.StatusInternalServerError, "Failed to read downtime window")
	}

	resp := models.DowntimeResponse{Active: active}
	if active {
		resp.Until = until.Format(time.RFC3339)
	}
	return SendSuccess(c, fiber.StatusOK, resp)
}

// handleSetDowntime suppresses inbound alerts for the given number of minutes.
//
// POST /downtime?minutes=<n>
func (s *Server) handleSetDowntime(c *fiber.Ctx) error {
	minutes := c.QueryInt("minutes", 0)
	if minutes <= 0 {
		return SendErrorWithType(c, fiber.StatusBadRequest, "minutes parameter must be a positive integer", models.ValidationErrorType)
	}

	until, err := core.SetDowntime(c.Context(), s.sqlite, s.log, time.Duration(minutes)*time.Minute)
	if err != nil {
		s.log.Error("failed to set downtime window", "error", err)
		return SendError(c, fiber.StatusInternalServerError, "Failed to set downtime window")
	}

	return SendSuccess(c, fiber.StatusOK, models.DowntimeResponse{
		Active: true,
		Until:  until.Format(time.RFC3339),
	})
}

// handleClearDowntime lifts the suppression window.
//
// DELETE /downtime
func (s *Server) handleClearDowntime(c *fiber.Ctx) error {
	if err := core.ClearDowntime(c.Context(), s.sqlite, s.log); err != nil {
		s.log.Error("failed to clear downtime window", "error", err)
		return SendError(c, fiber.StatusInternalServerError, "Failed to clear downtime window")
	}
	return SendSuccess(c, fiber.StatusOK, models.DowntimeResponse{Active: false})
}
