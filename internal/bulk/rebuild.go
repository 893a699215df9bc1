package bulk

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"bulkcert-backend/internal/issues"
	"bulkcert-backend/internal/models"
	"bulkcert-backend/internal/pdf"
	"bulkcert-backend/internal/template"
)

// Rebuilder regenerates stored certificate documents from their
// persisted bulk headers, either in place or as a clone that supersedes
// the original issue with a fresh verification code.
type Rebuilder struct {
	DB        *gorm.DB
	Log       zerolog.Logger
	Templates *template.Service
	Issues    *issues.Store
	Renderer  pdf.Renderer

	VerifyBase string
	DateFormat string
}

// RebuildIssue regenerates one issue's document. With clone set, a new
// issue (new code, new creation time) replaces the old one: the bulk
// link is repointed and the original is soft-deleted.
func (r *Rebuilder) RebuildIssue(ctx context.Context, issueID uint, clone bool) (*models.CertificateIssue, error) {
	issue, err := r.Issues.Get(ctx, issueID)
	if err != nil {
		return nil, err
	}

	var link models.BulkIssue
	if err := r.DB.WithContext(ctx).Where("issue_id = ?", issue.ID).First(&link).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrBulkNotFound
		}
		return nil, err
	}
	var header models.Bulk
	if err := r.DB.WithContext(ctx).First(&header, link.BulkID).Error; err != nil {
		return nil, err
	}

	return r.rebuild(ctx, issue, &link, &header, clone)
}

// RebuildBulk regenerates every document of one run. Row failures are
// isolated the same way issuance isolates them.
func (r *Rebuilder) RebuildBulk(ctx context.Context, bulkID uint, clone bool) (*Result, error) {
	var header models.Bulk
	if err := r.DB.WithContext(ctx).First(&header, bulkID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrBulkNotFound
		}
		return nil, err
	}

	var links []models.BulkIssue
	if err := r.DB.WithContext(ctx).Where("bulk_id = ?", header.ID).Order("id").Find(&links).Error; err != nil {
		return nil, err
	}

	res := &Result{Bulk: &header}
	for i := range links {
		link := &links[i]
		row := Row{}
		issue, err := r.Issues.Get(ctx, link.IssueID)
		if err != nil {
			row.Err = fmt.Sprintf("issue %d could not be loaded", link.IssueID)
			res.Rows = append(res.Rows, row)
			res.Errors = append(res.Errors, row.Err)
			continue
		}
		rebuilt, err := r.rebuild(ctx, issue, link, &header, clone)
		if err != nil {
			row.IssueID = issue.ID
			row.Err = fmt.Sprintf("issue %d could not be rebuilt", issue.ID)
			res.Rows = append(res.Rows, row)
			res.Errors = append(res.Errors, row.Err)
			continue
		}
		row.IssueID = rebuilt.ID
		row.Filename = issues.Filename(rebuilt.CourseName, rebuilt.CertificateName, rebuilt.TimeCreated, rebuilt.ID)
		res.Rows = append(res.Rows, row)
		res.Logs = append(res.Logs, fmt.Sprintf("issue %d rebuilt", rebuilt.ID))
	}

	r.Log.Info().Uint("bulk_id", header.ID).Int("rows", len(res.Rows)).
		Int("errors", len(res.Errors)).Bool("clone", clone).Msg("bulk rebuild finished")
	return res, nil
}

func (r *Rebuilder) rebuild(ctx context.Context, issue *models.CertificateIssue, link *models.BulkIssue, header *models.Bulk, clone bool) (*models.CertificateIssue, error) {
	tpl, err := r.Templates.Get(ctx, header.CertificateID)
	if err != nil {
		return nil, err
	}
	if err := r.Templates.CheckAssets(ctx, tpl); err != nil {
		return nil, err
	}

	var user models.User
	if err := r.DB.WithContext(ctx).First(&user, issue.UserID).Error; err != nil {
		return nil, err
	}

	if clone {
		replacement := &models.CertificateIssue{
			UserID:          issue.UserID,
			CertificateID:   issue.CertificateID,
			CourseName:      header.CourseName,
			CertificateName: header.CertificateName,
			Code:            uuid.NewString(),
			HasChange:       true,
			TimeCreated:     time.Now(),
		}
		// The original row is withdrawn in the same transaction so the
		// pair keeps a single active issue, but its stored document is
		// left in place: anyone holding the old file keeps a file that
		// still exists, it just no longer verifies.
		err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			now := time.Now()
			if err := tx.Model(issue).Update("time_deleted", &now).Error; err != nil {
				return err
			}
			if err := tx.Create(replacement).Error; err != nil {
				return err
			}
			link.IssueID = replacement.ID
			return tx.Save(link).Error
		})
		if err != nil {
			return nil, err
		}
		issue = replacement
	} else if err := r.Issues.MarkDirty(ctx, issue); err != nil {
		return nil, err
	}

	instance := &template.Instance{
		Template:     tpl,
		CourseName:   header.CourseName,
		CourseHours:  headerHours(header),
		CertDate:     header.CustomTime,
		DateFormat:   r.DateFormat,
		CustomParams: fromJSONMap(header.CustomParams),
		VerifyBase:   r.VerifyBase,
	}

	doc, err := instance.BuildDocument(ctx, r.Issues.Blobs, &user, issue.Code, nil)
	if err != nil {
		return nil, err
	}
	content, err := r.Renderer.Render(doc)
	if err != nil {
		return nil, err
	}
	if _, err := r.Issues.SaveArtifact(ctx, issue, content); err != nil {
		return nil, err
	}
	return issue, nil
}

func headerHours(header *models.Bulk) int {
	if header.RemoteHours > 0 {
		return header.RemoteHours
	}
	return header.LocalHours
}

func fromJSONMap(params map[string]any) map[string]string {
	if len(params) == 0 {
		return nil
	}
	out := map[string]string{}
	for key, value := range params {
		if s, ok := value.(string); ok {
			out[key] = s
		} else {
			out[key] = fmt.Sprintf("%v", value)
		}
	}
	return out
}
