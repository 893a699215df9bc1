package models

import "time"

// CertificateIssue is the per-user certified-artifact record. PathHash is
// empty until the first render. TimeDeleted stays NULL until the issue is
// explicitly deleted; lookups filter on it to find the active issue.
type CertificateIssue struct {
	ID              uint       `gorm:"column:id;primaryKey" json:"id"`
	UserID          uint       `gorm:"column:user_id;index;not null" json:"user_id"`
	CertificateID   uint       `gorm:"column:certificate_id;index;not null" json:"certificate_id"`
	CourseName      string     `gorm:"column:course_name" json:"course_name"`
	CertificateName string     `gorm:"column:certificate_name" json:"certificate_name"`
	Code            string     `gorm:"column:code;uniqueIndex;not null" json:"code"`
	PathHash        string     `gorm:"column:path_hash" json:"path_hash"`
	HasChange       bool       `gorm:"column:has_change" json:"has_change"`
	TimeCreated     time.Time  `gorm:"column:time_created" json:"time_created"`
	TimeDeleted     *time.Time `gorm:"column:time_deleted" json:"time_deleted"`
}

func (CertificateIssue) TableName() string {
	return "certificate_issues"
}
