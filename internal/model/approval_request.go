package model

import (
	"time"

	"gorm.io/gorm"
)

// Approval request states.
const (
	RequestStatusPending  = "PENDING"
	RequestStatusApproved = "APPROVED"
	RequestStatusRejected = "REJECTED"
)

// ApprovalRequest a candidate's certificate awaiting review (table approval_requests)
//
// Candidate and course names are snapshotted at intake so the queue can be
// searched without calling the directory service.
type ApprovalRequest struct {
	RequestID       string     `gorm:"type:uuid;primaryKey"                                                       json:"request_id"`
	CandidateID     string     `gorm:"type:uuid;not null;uniqueIndex:uq_approval_requests_pending,where:status = 'PENDING'" json:"candidate_id"`
	CandidateName   string     `gorm:"type:varchar(200);not null"                                                 json:"candidate_name"`
	CandidateEmail  string     `gorm:"type:varchar(320);not null"                                                 json:"candidate_email"`
	CourseID        string     `gorm:"type:uuid;not null;uniqueIndex:uq_approval_requests_pending,where:status = 'PENDING'" json:"course_id"`
	CourseName      string     `gorm:"type:varchar(200);not null"                                                 json:"course_name"`
	TrainerID       *string    `gorm:"type:uuid"                                                                  json:"trainer_id,omitempty"`
	AssessmentScore *float64   `gorm:"type:numeric(5,2)"                                                          json:"assessment_score,omitempty"`
	Status          string     `gorm:"type:varchar(20);not null;index"                                            json:"status"`
	RequestedAt     time.Time  `gorm:"not null;index"                                                             json:"requested_at"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`
	ReviewedBy      *string    `gorm:"type:uuid"                                                                  json:"reviewed_by,omitempty"`
	RejectionReason string     `gorm:"type:varchar(1000)"                                                         json:"rejection_reason,omitempty"`
	CertificateID   *string    `gorm:"type:uuid"                                                                  json:"certificate_id,omitempty"`
	VersionedModel
}

// TableName table name
func (ApprovalRequest) TableName() string { return "approval_requests" }

func (r *ApprovalRequest) BeforeCreate(*gorm.DB) error {
	newID(&r.RequestID, &r.Version)
	if r.Status == "" {
		r.Status = RequestStatusPending
	}
	if r.RequestedAt.IsZero() {
		r.RequestedAt = time.Now().UTC()
	}
	return nil
}
