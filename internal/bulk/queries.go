package bulk

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"bulkcert-backend/internal/issues"
	"bulkcert-backend/internal/models"
)

// Queries reads issuance history: past runs, their issued certificates
// and per-user issue lists.
type Queries struct {
	DB     *gorm.DB
	Issues *issues.Store
}

// CertifiedUser is one issued certificate joined with its recipient.
type CertifiedUser struct {
	Issue    *models.CertificateIssue `json:"issue"`
	User     *models.User             `json:"user"`
	Filename string                   `json:"filename"`
}

// Search lists past runs, newest first, optionally filtered by course
// and by a case-insensitive match on certificate name, course name,
// code or group code.
func (q *Queries) Search(ctx context.Context, courseID uint, text string, limit int) ([]models.Bulk, error) {
	query := q.DB.WithContext(ctx).Model(&models.Bulk{}).Order("id DESC")
	if courseID > 0 {
		query = query.Where("course_id = ?", courseID)
	}
	if text != "" {
		like := "%" + text + "%"
		query = query.Where(
			"certificate_name LIKE ? OR course_name LIKE ? OR code LIKE ? OR group_code LIKE ?",
			like, like, like, like)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	var list []models.Bulk
	err := query.Find(&list).Error
	return list, err
}

// Get returns one run header.
func (q *Queries) Get(ctx context.Context, bulkID uint) (*models.Bulk, error) {
	var header models.Bulk
	if err := q.DB.WithContext(ctx).First(&header, bulkID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrBulkNotFound
		}
		return nil, err
	}
	return &header, nil
}

// Certified lists the certificates a run issued, in link order, each
// joined with its recipient.
func (q *Queries) Certified(ctx context.Context, bulkID uint) ([]CertifiedUser, error) {
	if _, err := q.Get(ctx, bulkID); err != nil {
		return nil, err
	}

	var links []models.BulkIssue
	if err := q.DB.WithContext(ctx).Where("bulk_id = ?", bulkID).Order("id").Find(&links).Error; err != nil {
		return nil, err
	}

	out := make([]CertifiedUser, 0, len(links))
	for _, link := range links {
		issue, err := q.Issues.Get(ctx, link.IssueID)
		if err != nil {
			continue
		}
		var user models.User
		if err := q.DB.WithContext(ctx).First(&user, issue.UserID).Error; err != nil {
			continue
		}
		out = append(out, CertifiedUser{
			Issue:    issue,
			User:     &user,
			Filename: issues.Filename(issue.CourseName, issue.CertificateName, issue.TimeCreated, issue.ID),
		})
	}
	return out, nil
}

// UserHistory lists a user's issues, newest first, including deleted
// ones so the audit trail stays complete.
func (q *Queries) UserHistory(ctx context.Context, userID uint) ([]models.CertificateIssue, error) {
	var list []models.CertificateIssue
	err := q.DB.WithContext(ctx).Where("user_id = ?", userID).Order("id DESC").Find(&list).Error
	return list, err
}

// DeleteIssue soft-deletes one issued certificate and removes its bulk
// link. The parent run keeps its header.
func (q *Queries) DeleteIssue(ctx context.Context, issueID uint) error {
	issue, err := q.Issues.Get(ctx, issueID)
	if err != nil {
		return err
	}
	if err := q.Issues.Delete(ctx, issue); err != nil {
		return err
	}
	return q.DB.WithContext(ctx).Where("issue_id = ?", issueID).Delete(&models.BulkIssue{}).Error
}

// DeleteBulk removes one run: every linked issue is soft-deleted with
// its document, the links are dropped and finally the header itself.
func (q *Queries) DeleteBulk(ctx context.Context, bulkID uint) error {
	header, err := q.Get(ctx, bulkID)
	if err != nil {
		return err
	}

	var links []models.BulkIssue
	if err := q.DB.WithContext(ctx).Where("bulk_id = ?", header.ID).Find(&links).Error; err != nil {
		return err
	}
	for _, link := range links {
		issue, err := q.Issues.Get(ctx, link.IssueID)
		if err != nil {
			continue
		}
		if err := q.Issues.Delete(ctx, issue); err != nil {
			return fmt.Errorf("bulk: deleting issue %d: %w", issue.ID, err)
		}
	}

	if err := q.DB.WithContext(ctx).Where("bulk_id = ?", header.ID).Delete(&models.BulkIssue{}).Error; err != nil {
		return err
	}
	return q.DB.WithContext(ctx).Delete(&models.Bulk{}, header.ID).Error
}
