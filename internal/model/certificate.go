package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Certificate states. An ISSUED certificate whose expiry date has passed
// reads as EXPIRED; the state is only stored when a renewal for the same
// pair takes over the active slot.
const (
	StatusIssued  = "ISSUED"
	StatusRevoked = "REVOKED"
	StatusExpired = "EXPIRED"
)

// Certificate an issued credential (table certificates)
type Certificate struct {
	CertificateID     string                              `gorm:"type:uuid;primaryKey"                                                          json:"certificate_id"`
	CertificateNumber string                              `gorm:"type:varchar(40);not null;uniqueIndex"                                         json:"certificate_number"`
	CandidateID       string                              `gorm:"type:uuid;not null;uniqueIndex:uq_certificates_active_pair,where:status = 'ISSUED'" json:"candidate_id"`
	CandidateName     string                              `gorm:"type:varchar(200);not null"                                                    json:"candidate_name"`
	CandidateEmail    string                              `gorm:"type:varchar(320);not null"                                                    json:"candidate_email"`
	CourseID          string                              `gorm:"type:uuid;not null;uniqueIndex:uq_certificates_active_pair,where:status = 'ISSUED';index" json:"course_id"`
	CourseName        string                              `gorm:"type:varchar(200);not null"                                                    json:"course_name"`
	CourseCode        string                              `gorm:"type:varchar(50)"                                                              json:"course_code,omitempty"`
	TemplateID        string                              `gorm:"type:uuid;not null"                                                            json:"template_id"`
	TemplateVersion   int                                 `gorm:"not null"                                                                      json:"template_version"`
	TemplateContent   datatypes.JSONType[TemplateContent] `gorm:"not null"                                                                      json:"template_content"`
	TemplateDesign    datatypes.JSONType[TemplateDesign]  `gorm:"not null"                                                                      json:"template_design"`
	ResolvedContent   datatypes.JSONType[TemplateContent] `gorm:"not null"                                                                      json:"resolved_content"`
	IssueDate         time.Time                           `gorm:"not null"                                                                      json:"issue_date"`
	ExpiryDate        *time.Time                          `gorm:"index"                                                                         json:"expiry_date,omitempty"`
	Status            string                              `gorm:"type:varchar(20);not null;index"                                               json:"status"`
	Grade             string                              `gorm:"type:varchar(20)"                                                              json:"grade,omitempty"`
	Remarks           string                              `gorm:"type:varchar(1000)"                                                            json:"remarks,omitempty"`
	DigitalSignature  string                              `gorm:"type:varchar(255);not null"                                                    json:"digital_signature"`
	RevocationReason  string                              `gorm:"type:varchar(1000)"                                                            json:"revocation_reason,omitempty"`
	RevokedAt         *time.Time                          `json:"revoked_at,omitempty"`
	RevokedBy         *string                             `gorm:"type:uuid"                                                                     json:"revoked_by,omitempty"`
	Supersedes        *string                             `gorm:"type:uuid"                                                                     json:"supersedes,omitempty"`
	SupersededBy      *string                             `gorm:"type:uuid"                                                                     json:"superseded_by,omitempty"`
	ApprovalRequestID *string                             `gorm:"type:uuid"                                                                     json:"approval_request_id,omitempty"`
	ExpiryNotifiedAt  *time.Time                          `json:"expiry_notified_at,omitempty"`
	VersionedModel
}

// TableName table name
func (Certificate) TableName() string { return "certificates" }

func (c *Certificate) BeforeCreate(*gorm.DB) error {
	newID(&c.CertificateID, &c.Version)
	return nil
}

// EffectiveStatus derives EXPIRED for an ISSUED certificate once now is
// strictly after its expiry; the expiry instant itself is still valid.
func (c *Certificate) EffectiveStatus(now time.Time) string {
	if c.Status == StatusIssued && c.ExpiryDate != nil && now.After(*c.ExpiryDate) {
		return StatusExpired
	}
	return c.Status
}

// CertificateSequence per-year counter behind certificate numbers (table certificate_sequences)
type CertificateSequence struct {
	Year      int   `gorm:"primaryKey;autoIncrement:false" json:"year"`
	LastValue int64 `gorm:"not null"                       json:"last_value"`
}

// TableName table name
func (CertificateSequence) TableName() string { return "certificate_sequences" }
