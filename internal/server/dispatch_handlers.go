package server

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/atlantishq/dispatchd/internal/core"
	"github.com/atlantishq/dispatchd/pkg/models"
)

// handleGetDispatch is the worker pull endpoint. It is non-destructive:
// entries stay visible until confirmed or failed.
//
// GET /get-dispatch?method=<m>&timeout=<seconds>&view=combined&state=dead
func (s *Server) handleGetDispatch(c *fiber.Ctx) error {
	method := models.DeliveryMethod(c.Query("method"))
	if method == "" {
		return SendErrorWithType(c, fiber.StatusBadRequest,
			"Missing dispatch target (signal|email|ntfy|debug|debug-fail|all)", models.ValidationErrorType)
	}

	// Dead-letter inspection is an operator diagnostic, only meaningful
	// without a method filter.
	if c.Query("state") == "dead" {
		if method != models.MethodAll {
			return SendErrorWithType(c, fiber.StatusBadRequest, "state=dead requires method=all", models.ValidationErrorType)
		}
		return s.sendDeadDispatches(c)
	}

	settle := s.config.Queue.SettleWindow
	if timeout := c.QueryInt("timeout", -1); timeout >= 0 {
		settle = time.Duration(timeout) * time.Second
	}

	views, err := core.Pull(c.Context(), s.sqlite, s.log, core.PullOptions{
		Method:       method,
		SettleWindow: settle,
		Lease:        s.config.Queue.LeaseDuration,
	})
	if err != nil {
		if errors.Is(err, core.ErrInvalidMethod) {
			return SendErrorWithType(c, fiber.StatusBadRequest, err.Error(), models.ValidationErrorType)
		}
		s.log.Error("failed to pull dispatch queue", "method", method, "error", err)
		return SendError(c, fiber.StatusInternalServerError, "Failed to pull dispatch queue")
	}

	// The combined view is a compatibility shim for workers speaking the
	// one-message-per-person protocol; new workers use the individual view.
	if view := c.Query("view"); view == "combined" || view == "aggregated" {
		combined := core.Combine(views)
		if combined == nil {
			combined = []models.CombinedDispatch{}
		}
		return SendSuccess(c, fiber.StatusOK, combined)
	}

	if views == nil {
		views = []models.DispatchView{}
	}
	return SendSuccess(c, fiber.StatusOK, views)
}

func (s *Server) sendDeadDispatches(c *fiber.Ctx) error {
	entries, err := s.sqlite.ListDeadDispatches(c.Context())
	if err != nil {
		s.log.Error("failed to list dead dispatches", "error", err)
		return SendError(c, fiber.StatusInternalServerError, "Failed to list dead dispatches")
	}
	if entries == nil {
		entries = []*models.DispatchEntry{}
	}
	return SendSuccess(c, fiber.StatusOK, entries)
}

// handleConfirmDispatch deletes delivered entries. Unknown uuids are
// reported in the response but never fail the request: under at-least-once
// delivery a duplicate confirm is expected.
//
// POST /confirm-dispatch  body: [{"uuid": "..."}, ...]
func (s *Server) handleConfirmDispatch(c *fiber.Ctx) error {
	var confirms []models.ConfirmItem
	if err := c.BodyParser(&confirms); err != nil {
		return SendErrorWithType(c, fiber.StatusBadRequest, "Invalid request body", models.ValidationErrorType)
	}

	resp := models.ReconcileResponse{}
	for _, item := range confirms {
		err := core.Confirm(c.Context(), s.sqlite, s.log, item.UUID)
		switch {
		case err == nil:
			resp.Processed++
		case errors.Is(err, core.ErrNotFound):
			s.log.Warn("confirm for unknown dispatch", "uuid", item.UUID)
			resp.Missing = append(resp.Missing, item.UUID)
		default:
			s.log.Error("failed to confirm dispatch", "uuid", item.UUID, "error", err)
			return SendError(c, fiber.StatusInternalServerError, "Failed to confirm dispatch")
		}
	}

	return SendSuccess(c, fiber.StatusOK, resp)
}

// handleReportDispatchFailed records delivery failures. Failed entries stay
// queued and are retried on the next pull cycle (until the attempt cap
// dead-letters them, when one is configured).
//
// POST /report-dispatch-failed  body: [{"uuid": "...", "error": "..."}, ...]
func (s *Server) handleReportDispatchFailed(c *fiber.Ctx) error {
	var reports []models.FailureReport
	if err := c.BodyParser(&reports); err != nil {
		return SendErrorWithType(c, fiber.StatusBadRequest, "Invalid request body", models.ValidationErrorType)
	}

	resp := models.ReconcileResponse{}
	for _, report := range reports {
		err := core.Fail(c.Context(), s.sqlite, s.log, report.UUID, report.Error, s.config.Queue.MaxAttempts)
		switch {
		case err == nil:
			resp.Processed++
		case errors.Is(err, core.ErrNotFound):
			s.log.Warn("failure report for unknown dispatch", "uuid", report.UUID)
			resp.Missing = append(resp.Missing, report.UUID)
		default:
			s.log.Error("failed to record dispatch failure", "uuid", report.UUID, "error", err)
			return SendError(c, fiber.StatusInternalServerError, "Failed to record dispatch failure")
		}
	}

	return SendSuccess(c, fiber.StatusOK, resp)
}

// handleDispatchStatus lets submitters poll a previously enqueued entry.
//
// GET /get-dispatch-status?secret=<uuid>
func (s *Server) handleDispatchStatus(c *fiber.Ctx) error {
	secret := c.Query("secret")
	if secret == "" {
		return SendErrorWithType(c, fiber.StatusBadRequest, "secret parameter is required", models.ValidationErrorType)
	}

	status, err := core.Status(c.Context(), s.sqlite, secret)
	if err != nil {
		s.log.Error("failed to query dispatch status", "error", err)
		return SendError(c, fiber.StatusInternalServerError, "Failed to query dispatch status")
	}
	if status == models.DispatchStatusNotFound {
		return SendErrorWithType(c, fiber.StatusNotFound, "No pending dispatch for this uuid", models.NotFoundErrorType)
	}
	return SendSuccess(c, fiber.StatusOK, fiber.Map{"status": status})
}
