package bulk

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"bulkcert-backend/internal/issues"
	"bulkcert-backend/internal/models"
	"bulkcert-backend/internal/pkg/textutil"
)

// Archiver packs one run's documents into a zip for download.
type Archiver struct {
	DB     *gorm.DB
	Log    zerolog.Logger
	Issues *issues.Store
}

// Archive collects every stored document of a bulk into a zip named
// after the course and certificate. Issues whose document is missing
// are skipped with a log; an archive with nothing in it is an error.
func (a *Archiver) Archive(ctx context.Context, bulkID uint) (string, []byte, error) {
	var header models.Bulk
	if err := a.DB.WithContext(ctx).First(&header, bulkID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", nil, ErrBulkNotFound
		}
		return "", nil, err
	}

	var links []models.BulkIssue
	if err := a.DB.WithContext(ctx).Where("bulk_id = ?", header.ID).Order("id").Find(&links).Error; err != nil {
		return "", nil, err
	}

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	packed := 0

	for _, link := range links {
		issue, err := a.Issues.Get(ctx, link.IssueID)
		if err != nil {
			a.Log.Warn().Uint("issue_id", link.IssueID).Msg("archive: issue missing")
			continue
		}
		blob, err := a.Issues.Artifact(ctx, issue)
		if err != nil {
			a.Log.Warn().Uint("issue_id", issue.ID).Msg("archive: document missing")
			continue
		}
		entry, err := w.Create(blob.Filename)
		if err != nil {
			return "", nil, err
		}
		if _, err := entry.Write(blob.Content); err != nil {
			return "", nil, err
		}
		packed++
	}

	if err := w.Close(); err != nil {
		return "", nil, err
	}
	if packed == 0 {
		return "", nil, ErrEmptyArchive
	}

	name := fmt.Sprintf("%s_%s_%d.zip",
		textutil.CleanFilename(header.CourseName),
		textutil.CleanFilename(header.CertificateName),
		header.ID)
	return name, buf.Bytes(), nil
}
