package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Orientation / layout values accepted in TemplateDesign.
const (
	OrientationLandscape = "landscape"
	OrientationPortrait  = "portrait"

	LayoutClassic = "classic"
	LayoutModern  = "modern"
	LayoutMinimal = "minimal"
)

// TemplateDesign visual settings handed to the renderer.
type TemplateDesign struct {
	BackgroundColor string `json:"background_color"`
	BorderColor     string `json:"border_color"`
	FontFamily      string `json:"font_family"`
	TitleFontSize   int    `json:"title_font_size"`
	BodyFontSize    int    `json:"body_font_size"`
	LogoURL         string `json:"logo_url,omitempty"`
	SignatureURL    string `json:"signature_url,omitempty"`
	Orientation     string `json:"orientation"`
	Layout          string `json:"layout"`
}

// TemplateContent header/body/footer text with {placeholder} tokens.
type TemplateContent struct {
	Header string `json:"header"`
	Body   string `json:"body"`
	Footer string `json:"footer"`
}

// CertificateTemplate certificate layout and wording (table certificate_templates)
type CertificateTemplate struct {
	TemplateID  string                                `gorm:"type:uuid;primaryKey"         json:"template_id"`
	Name        string                                `gorm:"type:varchar(200);not null"   json:"name"`
	Description string                                `gorm:"type:text"                    json:"description,omitempty"`
	CourseID    *string                               `gorm:"type:uuid;index"              json:"course_id,omitempty"` // nil = global
	IsActive    bool                                  `gorm:"not null"                     json:"is_active"`
	IsDefault   bool                                  `gorm:"not null"                     json:"is_default"`
	Design      datatypes.JSONType[TemplateDesign]    `gorm:"not null"                     json:"design"`
	Content     datatypes.JSONType[TemplateContent]   `gorm:"not null"                     json:"content"`
	Version     int                                   `gorm:"not null"                     json:"version"`
	SoftDeleteModel
}

// TableName table name
func (CertificateTemplate) TableName() string { return "certificate_templates" }

func (t *CertificateTemplate) BeforeCreate(*gorm.DB) error {
	newID(&t.TemplateID, &t.Version)
	return nil
}
