package objectives

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"bulkcert-backend/internal/pkg/response"
)

// Handlers exposes objective management over HTTP.
type Handlers struct {
	Service *Service
	Groups  *GroupResolver
}

type addRequest struct {
	CourseID uint   `json:"course_id"`
	Name     string `json:"name"`
	Code     string `json:"code"`
	Hours    int    `json:"hours"`
	Type     string `json:"type"`
}

// Add serves POST /api/v1/objectives.
func (h *Handlers) Add(c *fiber.Ctx) error {
	var req addRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	objective, logs, err := h.Service.Add(c.Context(), req.CourseID, AddInput{
		Name:  req.Name,
		Code:  req.Code,
		Hours: req.Hours,
		Type:  req.Type,
	})
	if err != nil {
		return response.Error(c, "The objective could not be saved", fiber.StatusInternalServerError, nil)
	}
	if len(logs.Errors) > 0 {
		return response.Error(c, "The objective was rejected", fiber.StatusUnprocessableEntity, logs)
	}
	return response.SuccessCreated(c, "Objective created", objective, logs)
}

// List serves GET /api/v1/objectives?course_id=.
func (h *Handlers) List(c *fiber.Ctx) error {
	courseID, _ := strconv.Atoi(c.Query("course_id"))
	list, err := h.Service.List(c.Context(), uint(courseID))
	if err != nil {
		return response.Error(c, "The objectives could not be listed", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Objectives", list, nil)
}

// Delete serves DELETE /api/v1/objectives/:id.
func (h *Handlers) Delete(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id <= 0 {
		return response.Error(c, "Invalid objective id", fiber.StatusBadRequest, nil)
	}
	logs, err := h.Service.Delete(c.Context(), uint(id))
	if err != nil {
		return response.Error(c, "The objective could not be deleted", fiber.StatusInternalServerError, nil)
	}
	if len(logs.Errors) > 0 {
		return response.Error(c, "The objective could not be deleted", fiber.StatusNotFound, logs)
	}
	return response.Success(c, "Objective deleted", nil, logs)
}

type importRequest struct {
	CourseID  uint   `json:"course_id"`
	Text      string `json:"text"`
	Delimiter string `json:"delimiter"`
	Mode      string `json:"mode"`
}

// Import serves POST /api/v1/objectives/import.
func (h *Handlers) Import(c *fiber.Ctx) error {
	var req importRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if req.Mode == "" {
		req.Mode = ImportAppend
	}
	logs, err := h.Service.Import(c.Context(), req.CourseID, req.Text, req.Delimiter, req.Mode)
	if err != nil {
		return response.Error(c, "The objectives could not be imported", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Objectives imported", nil, logs)
}

// Group serves GET /api/v1/objectives/:id/group, previewing the roster
// an objective would issue against.
func (h *Handlers) Group(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id <= 0 {
		return response.Error(c, "Invalid objective id", fiber.StatusBadRequest, nil)
	}
	objective, err := h.Service.Get(c.Context(), uint(id))
	if err == ErrObjectiveNotFound {
		return response.Error(c, "Objective not found", fiber.StatusNotFound, nil)
	}
	if err != nil {
		return response.Error(c, "The objective could not be loaded", fiber.StatusInternalServerError, nil)
	}
	group, err := h.Groups.Resolve(c.Context(), objective)
	if err != nil {
		return groupError(c, err)
	}
	return response.Success(c, "Group", group, nil)
}

func groupError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrEndpointNotConfigured):
		return response.Error(c, "The external lookup endpoint is not configured", fiber.StatusServiceUnavailable, nil)
	case errors.Is(err, ErrGroupNotFound):
		return response.Error(c, "The external group was not found", fiber.StatusNotFound, nil)
	case errors.Is(err, ErrNoUsers):
		return response.Error(c, "The external group has no users", fiber.StatusUnprocessableEntity, nil)
	case errors.Is(err, ErrMalformedResponse):
		return response.Error(c, "The external source returned a malformed response", fiber.StatusBadGateway, nil)
	}
	return response.Error(c, "The group could not be resolved", fiber.StatusInternalServerError, nil)
}
