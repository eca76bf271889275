package server

import (
	"bytes"

	"github.com/VictoriaMetrics/metrics"
	"github.com/gofiber/fiber/v2"
)

// handleHealth is the liveness probe.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return SendSuccess(c, fiber.StatusOK, fiber.Map{"status": "ok"})
}

// handleMetrics serves queue counters in Prometheus text format.
func (s *Server) handleMetrics(c *fiber.Ctx) error {
	var buf bytes.Buffer
	metrics.WritePrometheus(&buf, true)
	c.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")
	return c.Send(buf.Bytes())
}
