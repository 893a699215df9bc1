package models

import "time"

// Objective source types.
const (
	ObjectiveTypeLocal  = "local"
	ObjectiveTypeRemote = "remote"
)

// Objective is a reusable issuance descriptor. The roster for a bulk run
// is resolved from it: pasted text for local objectives, a web-service
// group lookup for remote ones.
type Objective struct {
	ID        uint      `gorm:"column:id;primaryKey" json:"id"`
	CourseID  uint      `gorm:"column:course_id;index;not null" json:"course_id"`
	Name      string    `gorm:"column:name;size:255;not null" json:"name"`
	Code      string    `gorm:"column:code;size:31;not null" json:"code"`
	Hours     int       `gorm:"column:hours;not null" json:"hours"`
	Type      string    `gorm:"column:type;size:15;not null;default:local" json:"type"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Objective) TableName() string {
	return "objectives"
}
