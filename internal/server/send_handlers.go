package server

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/atlantishq/dispatchd/internal/compose"
	"github.com/atlantishq/dispatchd/internal/core"
	"github.com/atlantishq/dispatchd/pkg/models"
)

// handleSmartSend resolves recipients through the directory and enqueues one
// dispatch entry per recipient.
//
// POST /smart-send             (shared access token)
// POST /smart-send/:webhook    (pre-authorized path token, targets its user)
func (s *Server) handleSmartSend(c *fiber.Ctx) error {
	var req models.SmartSendRequest
	if err := c.BodyParser(&req); err != nil {
		return SendErrorWithType(c, fiber.StatusBadRequest, "Invalid request body", models.ValidationErrorType)
	}

	// A webhook path authorizes the request for exactly its bound user;
	// everything else requires the shared access token.
	if webhookPath := c.Params("webhook"); webhookPath != "" {
		username, err := core.ResolveWebhook(c.Context(), s.sqlite, webhookPath)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return SendErrorWithType(c, fiber.StatusUnauthorized, "Unknown webhook path", models.AuthErrorType)
			}
			s.log.Error("failed to resolve webhook path", "error", err)
			return SendError(c, fiber.StatusInternalServerError, "Failed to resolve webhook")
		}
		req.Users = []string{username}
		req.Groups = nil
	} else if !tokenValid(c, s.config.Auth.AccessToken) {
		return SendErrorWithType(c, fiber.StatusUnauthorized, "invalid or missing token", models.AuthErrorType)
	}

	title, message, link := req.Title, req.Msg, req.Link
	if len(req.Data) > 0 {
		composed, err := compose.Compose(req.Data)
		if err != nil {
			s.log.Warn("rejected structured payload", "error", err)
			return SendErrorWithType(c, fiber.StatusBadRequest, err.Error(), models.ValidationErrorType)
		}
		message = composed.Body
		if composed.Title != "" {
			title = composed.Title
		}
		if composed.Link != "" {
			link = composed.Link
		}
	}
	if message == "" {
		return SendErrorWithType(c, fiber.StatusBadRequest, "Request must carry either msg or data", models.ValidationErrorType)
	}

	// During a downtime window alerts are accepted and dropped. The distinct
	// status code lets submitters tell suppression from an enqueue.
	if until, active, err := core.DowntimeUntil(c.Context(), s.sqlite); err != nil {
		s.log.Error("failed to check downtime window", "error", err)
		return SendError(c, fiber.StatusInternalServerError, "Failed to check downtime window")
	} else if active {
		s.log.Info("submission suppressed by downtime window", "until", until)
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"status": "suppressed",
			"until":  until.Format(time.RFC3339),
		})
	}

	recipients, err := s.resolver.Select(c.Context(), req.Users, req.Groups)
	if err != nil {
		s.log.Error("failed to resolve recipients", "error", err)
		return SendError(c, fiber.StatusInternalServerError, "Failed to resolve recipients")
	}
	if len(recipients) == 0 {
		s.log.Warn("submission resolved to no recipients", "users", req.Users, "groups", req.Groups)
	}

	uuids, err := core.Enqueue(c.Context(), s.sqlite, s.log, recipients, title, message, link, req.Method)
	if err != nil {
		if errors.Is(err, core.ErrInvalidMethod) || errors.Is(err, core.ErrEmptyMessage) {
			return SendErrorWithType(c, fiber.StatusBadRequest, err.Error(), models.ValidationErrorType)
		}
		s.log.Error("failed to enqueue dispatches", "error", err)
		return SendError(c, fiber.StatusInternalServerError, "Failed to enqueue dispatches")
	}

	if uuids == nil {
		uuids = []string{}
	}
	return SendSuccess(c, fiber.StatusOK, models.SmartSendResponse{UUIDs: uuids})
}
