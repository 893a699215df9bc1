package middleware

import (
	"bulkcert-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// ResponseFormatter exposes the envelope helpers through Locals for
// code that only sees the fiber context. Handlers normally call the
// response package directly.
func ResponseFormatter() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("response_success", func(msg string, data, meta any) error {
			return response.Success(c, msg, data, meta)
		})
		c.Locals("response_success_created", func(msg string, data, meta any) error {
			return response.SuccessCreated(c, msg, data, meta)
		})
		c.Locals("response_error", func(msg string, code int, details any) error {
			return response.Error(c, msg, code, details)
		})
		return c.Next()
	}
}
