package models

import "time"

// Template is a certificate template descriptor. Width/height are in
// millimeters; orientation is derived (landscape unless height > width).
type Template struct {
	ID               uint      `gorm:"column:id;primaryKey" json:"id"`
	CourseID         uint      `gorm:"column:course_id;index;not null" json:"course_id"`
	CourseName       string    `gorm:"column:course_name" json:"course_name"`
	Name             string    `gorm:"column:name;size:255;not null" json:"name"`
	Width            float64   `gorm:"column:width;default:297" json:"width"`
	Height           float64   `gorm:"column:height;default:210" json:"height"`
	CertificateText  string    `gorm:"column:certificate_text" json:"certificate_text"`
	CertificateTextX float64   `gorm:"column:certificate_text_x" json:"certificate_text_x"`
	CertificateTextY float64   `gorm:"column:certificate_text_y" json:"certificate_text_y"`
	CertificateImage string    `gorm:"column:certificate_image" json:"certificate_image"`
	EnableSecondPage bool      `gorm:"column:enable_second_page" json:"enable_second_page"`
	SecondImage      string    `gorm:"column:second_image" json:"second_image"`
	SecondPageText   string    `gorm:"column:second_page_text" json:"second_page_text"`
	SecondPageX      float64   `gorm:"column:second_page_x" json:"second_page_x"`
	SecondPageY      float64   `gorm:"column:second_page_y" json:"second_page_y"`
	PrintQRCode      bool      `gorm:"column:print_qr_code" json:"print_qr_code"`
	QRCodeFirstPage  bool      `gorm:"column:qr_code_first_page" json:"qr_code_first_page"`
	CodeX            float64   `gorm:"column:code_x" json:"code_x"`
	CodeY            float64   `gorm:"column:code_y" json:"code_y"`
	DateFormat       string    `gorm:"column:date_format" json:"date_format"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func (Template) TableName() string {
	return "certificate_templates"
}
