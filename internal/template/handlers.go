package template

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"bulkcert-backend/internal/pkg/response"
)

// Handlers exposes template lookups over HTTP.
type Handlers struct {
	Service *Service
}

// List serves GET /api/v1/templates?course_id=.
func (h *Handlers) List(c *fiber.Ctx) error {
	courseID, _ := strconv.Atoi(c.Query("course_id"))
	list, err := h.Service.ListByCourse(c.Context(), uint(courseID))
	if err != nil {
		return response.Error(c, "The templates could not be listed", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Templates", list, nil)
}

// Get serves GET /api/v1/templates/:id. The payload includes whether
// the template's assets are ready for issuance.
func (h *Handlers) Get(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id <= 0 {
		return response.Error(c, "Invalid template id", fiber.StatusBadRequest, nil)
	}
	tpl, err := h.Service.Get(c.Context(), uint(id))
	if err == ErrTemplateNotFound {
		return response.Error(c, "Template not found", fiber.StatusNotFound, nil)
	}
	if err != nil {
		return response.Error(c, "The template could not be loaded", fiber.StatusInternalServerError, nil)
	}
	ready := h.Service.CheckAssets(c.Context(), tpl) == nil
	return response.Success(c, "Template", tpl, fiber.Map{"assets_ready": ready})
}
