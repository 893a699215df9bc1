package health

import (
	"github.com/gofiber/fiber/v2"
)

// Handlers serves the health endpoints.
type Handlers struct {
	DB    DBPinger
	Store StoragePinger
}

// JSON serves GET /health/json.
func (h *Handlers) JSON(c *fiber.Ctx) error {
	result := CollectHealth(c.Context(), h.DB, h.Store)
	status := fiber.StatusOK
	if result.Status != "ok" {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(result)
}

// Live serves GET /health, a bare liveness probe.
func (h *Handlers) Live(c *fiber.Ctx) error {
	return c.SendString("ok")
}
