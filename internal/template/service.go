// Package template binds issuance data (user, course, dates, custom
// parameters) to a certificate template and assembles the printable
// document.
package template

import (
	"context"

	"gorm.io/gorm"

	"bulkcert-backend/internal/models"
	"bulkcert-backend/internal/storage"
)

// Service reads certificate templates and checks their assets.
type Service struct {
	DB    *gorm.DB
	Store storage.Store
}

// Get returns one template by id.
func (s *Service) Get(ctx context.Context, id uint) (*models.Template, error) {
	var tpl models.Template
	if err := s.DB.WithContext(ctx).First(&tpl, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	return &tpl, nil
}

// ListByCourse returns a course's templates in creation order.
func (s *Service) ListByCourse(ctx context.Context, courseID uint) ([]models.Template, error) {
	var list []models.Template
	err := s.DB.WithContext(ctx).Where("course_id = ?", courseID).Order("id").Find(&list).Error
	return list, err
}

// CheckAssets verifies every background image the template references
// exists in the blob store. Called before a batch starts so a broken
// template fails the whole run up front instead of per row.
func (s *Service) CheckAssets(ctx context.Context, tpl *models.Template) error {
	if tpl.CertificateImage != "" && !s.Store.Exists(ctx, tpl.CertificateImage) {
		return ErrAssetMissing
	}
	if tpl.EnableSecondPage && tpl.SecondImage != "" && !s.Store.Exists(ctx, tpl.SecondImage) {
		return ErrAssetMissing
	}
	return nil
}
