package issues

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"bulkcert-backend/internal/models"
	"bulkcert-backend/internal/pkg/response"
)

// Regenerator re-renders an issue's document from its persisted bulk
// header, in place (same issue, same code).
type Regenerator interface {
	RebuildIssue(ctx context.Context, issueID uint, clone bool) (*models.CertificateIssue, error)
}

// Handlers serves issue verification and document downloads.
type Handlers struct {
	Store   *Store
	DB      *gorm.DB
	Rebuild Regenerator
}

type verification struct {
	Code            string `json:"code"`
	Fullname        string `json:"fullname"`
	CourseName      string `json:"course_name"`
	CertificateName string `json:"certificate_name"`
	IssuedOn        string `json:"issued_on"`
}

// Verify serves GET /verify?code=, the public endpoint behind the QR
// payload. It confirms a code belongs to an active issue without
// exposing the document itself.
func (h *Handlers) Verify(c *fiber.Ctx) error {
	code := c.Query("code")
	if code == "" {
		return response.Error(c, "A verification code is required", fiber.StatusBadRequest, nil)
	}
	issue, err := h.Store.GetByCode(c.Context(), code)
	if err == ErrIssueNotFound {
		return response.Error(c, "No valid certificate matches this code", fiber.StatusNotFound, nil)
	}
	if err != nil {
		return response.Error(c, "The certificate could not be verified", fiber.StatusInternalServerError, nil)
	}

	var user models.User
	fullname := ""
	if err := h.DB.WithContext(c.Context()).First(&user, issue.UserID).Error; err == nil {
		fullname = user.Fullname()
	}

	return response.Success(c, "Certificate is valid", verification{
		Code:            issue.Code,
		Fullname:        fullname,
		CourseName:      issue.CourseName,
		CertificateName: issue.CertificateName,
		IssuedOn:        issue.TimeCreated.Format("2006-01-02"),
	}, nil)
}

// Download serves GET /api/v1/issues/:id/download.
func (h *Handlers) Download(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id <= 0 {
		return response.Error(c, "Invalid issue id", fiber.StatusBadRequest, nil)
	}
	issue, err := h.Store.Get(c.Context(), uint(id))
	if err == ErrIssueNotFound {
		return response.Error(c, "Issue not found", fiber.StatusNotFound, nil)
	}
	if err != nil {
		return response.Error(c, "The issue could not be loaded", fiber.StatusInternalServerError, nil)
	}
	if issue.TimeDeleted != nil {
		return response.Error(c, "This certificate has been withdrawn", fiber.StatusGone, nil)
	}

	blob, err := h.Store.Artifact(c.Context(), issue)
	if err == ErrArtifactMissing && h.Rebuild != nil {
		// Dirty or vanished documents are regenerated on the fly so a
		// pending rebuild never blocks the download.
		rebuilt, rerr := h.Rebuild.RebuildIssue(c.Context(), issue.ID, false)
		if rerr == nil {
			blob, err = h.Store.Artifact(c.Context(), rebuilt)
		}
	}
	if err == ErrArtifactMissing {
		return response.Error(c, "The document is not available; rebuild the issue first", fiber.StatusConflict, nil)
	}
	if err != nil {
		return response.Error(c, "The document could not be loaded", fiber.StatusInternalServerError, nil)
	}

	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", blob.Filename))
	return c.Send(blob.Content)
}
