// Package issues persists certificate issues and their rendered
// documents. An issue is the durable record (code, snapshot names,
// path-hash of the stored PDF); the document itself lives in the blob
// store and is regenerated whenever the issue is dirty.
package issues

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"bulkcert-backend/internal/models"
	"bulkcert-backend/internal/pkg/textutil"
	"bulkcert-backend/internal/storage"
)

// Store manages certificate issues.
type Store struct {
	DB    *gorm.DB
	Blobs storage.Store
}

// Filename builds the user-facing document name:
// course_certificate_YYYYMMDD_issueID.pdf, transliterated and with
// spaces collapsed to underscores.
func Filename(courseName, certificateName string, created time.Time, id uint) string {
	return fmt.Sprintf("%s_%s_%s_%d.pdf",
		textutil.CleanFilename(courseName),
		textutil.CleanFilename(certificateName),
		created.Format("20060102"),
		id)
}

// GetOrCreate returns the active issue for a certificate/user pair,
// creating one when none exists. The cache is consulted first; a fresh
// issue is created dirty so its document gets rendered. When the stored
// snapshot names drift from the current ones the issue is re-marked
// dirty, since the names feed the printed document and its filename.
func (s *Store) GetOrCreate(ctx context.Context, cache *Cache, certificateID, userID uint, courseName, certificateName string) (*models.CertificateIssue, error) {
	if issue, ok := cache.Get(certificateID, userID); ok {
		return issue, nil
	}

	var issue models.CertificateIssue
	err := s.DB.WithContext(ctx).
		Where("certificate_id = ? AND user_id = ? AND time_deleted IS NULL", certificateID, userID).
		First(&issue).Error
	switch {
	case err == nil:
		if issue.CourseName != courseName || issue.CertificateName != certificateName {
			issue.CourseName = courseName
			issue.CertificateName = certificateName
			issue.HasChange = true
			if err := s.DB.WithContext(ctx).Save(&issue).Error; err != nil {
				return nil, err
			}
		}
		cache.Put(&issue)
		return &issue, nil
	case err != gorm.ErrRecordNotFound:
		return nil, err
	}

	issue = models.CertificateIssue{
		UserID:          userID,
		CertificateID:   certificateID,
		CourseName:      courseName,
		CertificateName: certificateName,
		Code:            uuid.NewString(),
		HasChange:       true,
		TimeCreated:     time.Now(),
	}

	// The uniqueness re-check and the insert share one transaction, so
	// two concurrent batches cannot both issue for the same pair.
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.CertificateIssue{}).
			Where("certificate_id = ? AND user_id = ? AND time_deleted IS NULL", certificateID, userID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicateIssue
		}
		return tx.Create(&issue).Error
	})
	if err == ErrDuplicateIssue {
		// Lost the race: fetch the winner.
		if ferr := s.DB.WithContext(ctx).
			Where("certificate_id = ? AND user_id = ? AND time_deleted IS NULL", certificateID, userID).
			First(&issue).Error; ferr != nil {
			return nil, ferr
		}
		cache.Put(&issue)
		return &issue, nil
	}
	if err != nil {
		return nil, err
	}

	cache.Put(&issue)
	return &issue, nil
}

// MarkDirty forces the next Artifact call to regenerate the document.
func (s *Store) MarkDirty(ctx context.Context, issue *models.CertificateIssue) error {
	if issue.HasChange {
		return nil
	}
	issue.HasChange = true
	return s.DB.WithContext(ctx).Model(issue).Update("has_change", true).Error
}

// Artifact returns the stored document for a clean issue. A dirty issue,
// or a clean one whose blob disappeared, returns ErrArtifactMissing so
// the caller renders a fresh document and saves it.
func (s *Store) Artifact(ctx context.Context, issue *models.CertificateIssue) (*storage.Blob, error) {
	if issue.HasChange || issue.PathHash == "" {
		return nil, ErrArtifactMissing
	}
	blob, err := s.Blobs.GetByHash(ctx, issue.PathHash)
	if err == storage.ErrBlobNotFound {
		return nil, ErrArtifactMissing
	}
	return blob, err
}

// SaveArtifact stores a freshly rendered document and clears the dirty
// flag. The storage path carries the revision timestamp, so saving
// after a change always yields a new path-hash; the superseded blob is
// removed.
func (s *Store) SaveArtifact(ctx context.Context, issue *models.CertificateIssue, content []byte) (*storage.Blob, error) {
	filename := Filename(issue.CourseName, issue.CertificateName, issue.TimeCreated, issue.ID)
	path := fmt.Sprintf("/certificates/%d/%d/", issue.ID, time.Now().UnixNano())

	if issue.PathHash != "" {
		if err := s.Blobs.Delete(ctx, issue.PathHash); err != nil && err != storage.ErrBlobNotFound {
			return nil, err
		}
	}

	blob, err := s.Blobs.Create(ctx, path, filename, content)
	if err != nil {
		return nil, err
	}

	issue.PathHash = blob.PathHash
	issue.HasChange = false
	if err := s.DB.WithContext(ctx).Save(issue).Error; err != nil {
		return nil, err
	}
	return blob, nil
}

// Get returns one issue by id, active or deleted.
func (s *Store) Get(ctx context.Context, id uint) (*models.CertificateIssue, error) {
	var issue models.CertificateIssue
	if err := s.DB.WithContext(ctx).First(&issue, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrIssueNotFound
		}
		return nil, err
	}
	return &issue, nil
}

// GetByCode returns the active issue carrying a verification code.
func (s *Store) GetByCode(ctx context.Context, code string) (*models.CertificateIssue, error) {
	var issue models.CertificateIssue
	err := s.DB.WithContext(ctx).
		Where("code = ? AND time_deleted IS NULL", code).
		First(&issue).Error
	if err == gorm.ErrRecordNotFound {
		return nil, ErrIssueNotFound
	}
	if err != nil {
		return nil, err
	}
	return &issue, nil
}

// Delete soft-deletes an issue and drops its stored document. A blob
// that is already gone does not fail the delete.
func (s *Store) Delete(ctx context.Context, issue *models.CertificateIssue) error {
	now := time.Now()
	issue.TimeDeleted = &now
	if err := s.DB.WithContext(ctx).Save(issue).Error; err != nil {
		return err
	}
	if issue.PathHash != "" {
		if err := s.Blobs.Delete(ctx, issue.PathHash); err != nil && err != storage.ErrBlobNotFound {
			return err
		}
	}
	return nil
}
