package server

import (
	"crypto/subtle"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/atlantishq/dispatchd/pkg/models"
)

// requestID tags every request with an id for log correlation.
func (s *Server) requestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Locals("request_id", id)
		c.Set("X-Request-ID", id)
		return c.Next()
	}
}

// requestLogger emits one line per request.
func (s *Server) requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		s.log.Info("request",
			"request_id", c.Locals("request_id"),
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return err
	}
}

// requireToken guards a route with a static token supplied either as the
// "token" query parameter or an Authorization bearer header. An empty
// configured token locks the route rather than leaving it open.
func (s *Server) requireToken(expected string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if expected == "" {
			return SendErrorWithType(c, fiber.StatusServiceUnavailable, "access token not configured", models.AuthErrorType)
		}
		if !tokenValid(c, expected) {
			return SendErrorWithType(c, fiber.StatusUnauthorized, "invalid or missing token", models.AuthErrorType)
		}
		return c.Next()
	}
}

func tokenValid(c *fiber.Ctx, expected string) bool {
	if expected == "" {
		return false
	}
	supplied := c.Query("token")
	if supplied == "" {
		supplied = strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
	}
	return subtle.ConstantTimeCompare([]byte(supplied), []byte(expected)) == 1
}
