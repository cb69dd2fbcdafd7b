package dto

// ── Approval queue DTOs ──

// CreateApprovalRequest POST /certificate-requests, sent when a candidate
// completes a course assessment.
type CreateApprovalRequest struct {
	CandidateID     string   `json:"candidate_id"     binding:"required,uuid"`
	CourseID        string   `json:"course_id"        binding:"required,uuid"`
	TrainerID       *string  `json:"trainer_id"       binding:"omitempty,uuid"`
	AssessmentScore *float64 `json:"assessment_score" binding:"omitempty,min=0,max=100"`
}

// ApprovalListRequest GET /certificate-requests
type ApprovalListRequest struct {
	PaginationRequest
	Status   string `form:"status"    binding:"omitempty,oneof=PENDING APPROVED REJECTED ALL"`
	CourseID string `form:"course_id" binding:"omitempty,uuid"`
	Search   string `form:"search"    binding:"max=100"`
}

// ProcessRequest POST /certificate-requests/:id/process
type ProcessRequest struct {
	Action     string  `json:"action"      binding:"required,oneof=approve reject"`
	TemplateID *string `json:"template_id" binding:"omitempty,uuid"`
	Grade      string  `json:"grade"       binding:"max=20"`
	Remarks    string  `json:"remarks"     binding:"max=1000"`
	Reason     string  `json:"reason"      binding:"max=1000"`
}

// ApproveInput options for approving a request.
type ApproveInput struct {
	TemplateID *string
	Grade      string
	Remarks    string
}

// ApprovalRequestResponse request as returned by the API.
type ApprovalRequestResponse struct {
	ID              string   `json:"id"`
	CandidateID     string   `json:"candidate_id"`
	CandidateName   string   `json:"candidate_name"`
	CandidateEmail  string   `json:"candidate_email"`
	CourseID        string   `json:"course_id"`
	CourseName      string   `json:"course_name"`
	TrainerID       *string  `json:"trainer_id,omitempty"`
	AssessmentScore *float64 `json:"assessment_score,omitempty"`
	Status          string   `json:"status"`
	RequestedAt     string   `json:"requested_at"`
	ReviewedAt      string   `json:"reviewed_at,omitempty"`
	ReviewedBy      *string  `json:"reviewed_by,omitempty"`
	RejectionReason string   `json:"rejection_reason,omitempty"`
	CertificateID   *string  `json:"certificate_id,omitempty"`
}

// ProcessResponse outcome of approve/reject.
type ProcessResponse struct {
	Request     *ApprovalRequestResponse `json:"request"`
	Certificate *CertificateResponse     `json:"certificate,omitempty"`
}
