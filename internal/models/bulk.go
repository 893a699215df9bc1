package models

import (
	"time"

	"gorm.io/datatypes"
)

// Bulk is the persisted header of one issuance run. Local and remote
// hours/name/end-date are stored side by side so discrepancies between
// the local objective and the external source stay auditable.
type Bulk struct {
	ID              uint              `gorm:"column:id;primaryKey" json:"id"`
	IssuingID       uint              `gorm:"column:issuing_id;not null" json:"issuing_id"`
	CertificateID   uint              `gorm:"column:certificate_id;index;not null" json:"certificate_id"`
	CertificateName string            `gorm:"column:certificate_name" json:"certificate_name"`
	Code            string            `gorm:"column:code" json:"code"`
	GroupCode       string            `gorm:"column:group_code" json:"group_code"`
	BulkTime        time.Time         `gorm:"column:bulk_time" json:"bulk_time"`
	CustomTime      time.Time         `gorm:"column:custom_time" json:"custom_time"`
	RemoteTime      *time.Time        `gorm:"column:remote_time" json:"remote_time"`
	LocalHours      int               `gorm:"column:local_hours" json:"local_hours"`
	RemoteHours     int               `gorm:"column:remote_hours" json:"remote_hours"`
	CourseName      string            `gorm:"column:course_name" json:"course_name"`
	CourseID        uint              `gorm:"column:course_id;index" json:"course_id"`
	CustomParams    datatypes.JSONMap `gorm:"column:custom_params" json:"custom_params"`
	CreatedAt       time.Time         `json:"createdAt"`
}

func (Bulk) TableName() string {
	return "bulks"
}

// BulkIssue links a Bulk to one underlying CertificateIssue. One row per
// successfully generated certificate in the batch.
type BulkIssue struct {
	ID      uint `gorm:"column:id;primaryKey" json:"id"`
	IssueID uint `gorm:"column:issue_id;index;not null" json:"issue_id"`
	BulkID  uint `gorm:"column:bulk_id;index;not null" json:"bulk_id"`
}

func (BulkIssue) TableName() string {
	return "bulk_issues"
}
