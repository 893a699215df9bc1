package bulk

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"bulkcert-backend/internal/issues"
	"bulkcert-backend/internal/models"
	"bulkcert-backend/internal/objectives"
	"bulkcert-backend/internal/pkg/response"
	"bulkcert-backend/internal/roster"
	"bulkcert-backend/internal/template"
	"bulkcert-backend/internal/users"
)

// Handlers exposes batch issuance, history and rebuilds over HTTP.
type Handlers struct {
	Orchestrator *Orchestrator
	Rebuilder    *Rebuilder
	Archiver     *Archiver
	Queries      *Queries
	Objectives   *objectives.Service
	Groups       *objectives.GroupResolver
	Users        *users.Service
}

type teacherEntry struct {
	Role string `json:"role"`
	Name string `json:"name"`
}

type issueRequest struct {
	TemplateID     uint           `json:"template_id"`
	ObjectiveID    uint           `json:"objective_id"`
	RosterText     string         `json:"roster_text"`
	Delimiter      string         `json:"delimiter"`
	ProfileFields  []string       `json:"profile_fields"`
	CustomParams   string         `json:"custom_params"`
	CustomDate     string         `json:"custom_date"` // YYYY-MM-DD
	SendMail       bool           `json:"send_mail"`
	IssuerUsername string         `json:"issuer_username"`
	Teachers       []teacherEntry `json:"teachers"`
}

// Issue serves POST /api/v1/bulk/issue.
func (h *Handlers) Issue(c *fiber.Ctx) error {
	var req issueRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if req.Delimiter == "" {
		req.Delimiter = "tab"
	}

	objective, err := h.Objectives.Get(c.Context(), req.ObjectiveID)
	if err == objectives.ErrObjectiveNotFound {
		return response.Error(c, "Objective not found", fiber.StatusNotFound, nil)
	}
	if err != nil {
		return response.Error(c, "The objective could not be loaded", fiber.StatusInternalServerError, nil)
	}

	group, err := h.Groups.Resolve(c.Context(), objective)
	if err != nil {
		return externalError(c, err)
	}

	// Local objectives take their roster from the pasted text.
	if len(group.Users) == 0 && req.RosterText != "" {
		parsed := roster.ParseLocal(req.RosterText, req.Delimiter, req.ProfileFields)
		group.Users = parsed.Users
		if len(parsed.Users) == 0 {
			return response.Error(c, "The roster has no usable rows", fiber.StatusUnprocessableEntity, parsed)
		}
	}

	var customTime time.Time
	if req.CustomDate != "" {
		customTime, err = time.Parse("2006-01-02", req.CustomDate)
		if err != nil {
			return response.Error(c, "Invalid custom date, expected YYYY-MM-DD", fiber.StatusBadRequest, nil)
		}
	}

	issuerUser := h.lookupIssuer(c, req.IssuerUsername)

	teachers := make([]template.Teacher, 0, len(req.Teachers))
	for _, t := range req.Teachers {
		teachers = append(teachers, template.Teacher{Role: t.Role, Name: t.Name})
	}

	result, err := h.Orchestrator.IssueBulk(c.Context(), IssueInput{
		TemplateID:   req.TemplateID,
		Objective:    objective,
		Group:        group,
		CustomParams: roster.ParseCustomParams(req.CustomParams),
		CustomTime:   customTime,
		Issuer:       issuerUser,
		SendMail:     req.SendMail,
		Teachers:     teachers,
	})
	if err != nil {
		switch {
		case err == template.ErrTemplateNotFound:
			return response.Error(c, "Certificate template not found", fiber.StatusNotFound, nil)
		case err == template.ErrAssetMissing:
			return response.Error(c, "The template background image is missing", fiber.StatusConflict, nil)
		case errors.Is(err, objectives.ErrNoUsers):
			return response.Error(c, "There are no users to certify", fiber.StatusUnprocessableEntity, nil)
		}
		return response.Error(c, "The bulk could not be issued", fiber.StatusInternalServerError, nil)
	}

	return response.SuccessCreated(c, "Bulk issued", result, nil)
}

// Search serves GET /api/v1/bulk?course_id=&q=&limit=.
func (h *Handlers) Search(c *fiber.Ctx) error {
	courseID, _ := strconv.Atoi(c.Query("course_id"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	list, err := h.Queries.Search(c.Context(), uint(courseID), c.Query("q"), limit)
	if err != nil {
		return response.Error(c, "The bulks could not be listed", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Bulks", list, nil)
}

// Get serves GET /api/v1/bulk/:id, the run detail view: the header with
// its local and remote hours side by side, plus the issue count.
func (h *Handlers) Get(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id <= 0 {
		return response.Error(c, "Invalid bulk id", fiber.StatusBadRequest, nil)
	}
	header, err := h.Queries.Get(c.Context(), uint(id))
	if errors.Is(err, ErrBulkNotFound) {
		return response.Error(c, "Bulk not found", fiber.StatusNotFound, nil)
	}
	if err != nil {
		return response.Error(c, "The bulk could not be loaded", fiber.StatusInternalServerError, nil)
	}
	certified, err := h.Queries.Certified(c.Context(), header.ID)
	if err != nil {
		return response.Error(c, "The bulk could not be loaded", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Bulk", header, fiber.Map{"issued": len(certified)})
}

// Certified serves GET /api/v1/bulk/:id/certified.
func (h *Handlers) Certified(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id <= 0 {
		return response.Error(c, "Invalid bulk id", fiber.StatusBadRequest, nil)
	}
	list, err := h.Queries.Certified(c.Context(), uint(id))
	if err == ErrBulkNotFound {
		return response.Error(c, "Bulk not found", fiber.StatusNotFound, nil)
	}
	if err != nil {
		return response.Error(c, "The certified users could not be listed", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Certified users", list, nil)
}

type rebuildRequest struct {
	BulkID  uint `json:"bulk_id"`
	IssueID uint `json:"issue_id"`
	Clone   bool `json:"clone"`
}

// Rebuild serves POST /api/v1/bulk/rebuild. Exactly one of bulk_id and
// issue_id selects the scope.
func (h *Handlers) Rebuild(c *fiber.Ctx) error {
	var req rebuildRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	switch {
	case req.IssueID > 0 && req.BulkID == 0:
		issue, err := h.Rebuilder.RebuildIssue(c.Context(), req.IssueID, req.Clone)
		if err == issues.ErrIssueNotFound {
			return response.Error(c, "Issue not found", fiber.StatusNotFound, nil)
		}
		if err != nil {
			return response.Error(c, "The issue could not be rebuilt", fiber.StatusInternalServerError, nil)
		}
		return response.Success(c, "Issue rebuilt", issue, nil)
	case req.BulkID > 0 && req.IssueID == 0:
		result, err := h.Rebuilder.RebuildBulk(c.Context(), req.BulkID, req.Clone)
		if err == ErrBulkNotFound {
			return response.Error(c, "Bulk not found", fiber.StatusNotFound, nil)
		}
		if err != nil {
			return response.Error(c, "The bulk could not be rebuilt", fiber.StatusInternalServerError, nil)
		}
		return response.Success(c, "Bulk rebuilt", result, nil)
	}
	return response.Error(c, "Provide exactly one of bulk_id and issue_id", fiber.StatusBadRequest, nil)
}

// Archive serves GET /api/v1/bulk/:id/archive.
func (h *Handlers) Archive(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id <= 0 {
		return response.Error(c, "Invalid bulk id", fiber.StatusBadRequest, nil)
	}
	name, content, err := h.Archiver.Archive(c.Context(), uint(id))
	if err == ErrBulkNotFound {
		return response.Error(c, "Bulk not found", fiber.StatusNotFound, nil)
	}
	if err == ErrEmptyArchive {
		return response.Error(c, "No documents are available for this bulk", fiber.StatusConflict, nil)
	}
	if err != nil {
		return response.Error(c, "The archive could not be built", fiber.StatusInternalServerError, nil)
	}
	c.Set(fiber.HeaderContentType, "application/zip")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return c.Send(content)
}

// DeleteIssue serves DELETE /api/v1/bulk/issues/:id.
func (h *Handlers) DeleteIssue(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id <= 0 {
		return response.Error(c, "Invalid issue id", fiber.StatusBadRequest, nil)
	}
	if err := h.Queries.DeleteIssue(c.Context(), uint(id)); err != nil {
		if err == issues.ErrIssueNotFound {
			return response.Error(c, "Issue not found", fiber.StatusNotFound, nil)
		}
		return response.Error(c, "The issue could not be deleted", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Issue deleted", nil, nil)
}

// Delete serves DELETE /api/v1/bulk/:id.
func (h *Handlers) Delete(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id <= 0 {
		return response.Error(c, "Invalid bulk id", fiber.StatusBadRequest, nil)
	}
	if err := h.Queries.DeleteBulk(c.Context(), uint(id)); err != nil {
		if err == ErrBulkNotFound {
			return response.Error(c, "Bulk not found", fiber.StatusNotFound, nil)
		}
		return response.Error(c, "The bulk could not be deleted", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Bulk deleted", nil, nil)
}

// UserHistory serves GET /api/v1/bulk/users/:username/issues.
func (h *Handlers) UserHistory(c *fiber.Ctx) error {
	username := c.Params("username")
	user, err := h.Users.GetByUsername(c.Context(), username)
	if err == users.ErrUserNotFound {
		return response.Error(c, "User not found", fiber.StatusNotFound, nil)
	}
	if err != nil {
		return response.Error(c, "The user could not be loaded", fiber.StatusInternalServerError, nil)
	}
	history, err := h.Queries.UserHistory(c.Context(), user.ID)
	if err != nil {
		return response.Error(c, "The issue history could not be listed", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Issue history", history, nil)
}

// lookupIssuer resolves the operator account; an unknown username just
// means no issuer context.
func (h *Handlers) lookupIssuer(c *fiber.Ctx, username string) *models.User {
	if username == "" {
		return nil
	}
	user, err := h.Users.GetByUsername(c.Context(), username)
	if err != nil {
		return nil
	}
	return user
}

func externalError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, objectives.ErrEndpointNotConfigured):
		return response.Error(c, "The external lookup endpoint is not configured", fiber.StatusServiceUnavailable, nil)
	case errors.Is(err, objectives.ErrGroupNotFound):
		return response.Error(c, "The external group was not found", fiber.StatusNotFound, nil)
	case errors.Is(err, objectives.ErrNoUsers):
		return response.Error(c, "The external group has no users", fiber.StatusUnprocessableEntity, nil)
	case errors.Is(err, objectives.ErrMalformedResponse):
		return response.Error(c, "The external source returned a malformed response", fiber.StatusBadGateway, nil)
	}
	return response.Error(c, "The group could not be resolved", fiber.StatusInternalServerError, nil)
}
