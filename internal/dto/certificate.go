package dto

// ── Certificate DTOs ──

// GenerateRequest POST /certificates
type GenerateRequest struct {
	CandidateID string  `json:"candidate_id" binding:"required,uuid"`
	CourseID    string  `json:"course_id"    binding:"required,uuid"`
	TemplateID  *string `json:"template_id"  binding:"omitempty,uuid"`
	Grade       string  `json:"grade"        binding:"max=20"`
	Remarks     string  `json:"remarks"      binding:"max=1000"`
	IssueDate   string  `json:"issue_date"`  // "2026-09-01" or RFC3339, default now
	ExpiryDate  string  `json:"expiry_date"` // default issue date + configured validity
}

// GenerateOptions optional inputs of a single generation.
type GenerateOptions struct {
	Grade      string
	Remarks    string
	IssueDate  string
	ExpiryDate string
}

// BulkGenerateRequest POST /certificates/bulk
type BulkGenerateRequest struct {
	TemplateID   *string  `json:"template_id"   binding:"omitempty,uuid"`
	CourseID     string   `json:"course_id"     binding:"required,uuid"`
	CandidateIDs []string `json:"candidate_ids" binding:"required,min=1,dive,uuid"`
	IssueDate    string   `json:"issue_date"`
	Grade        string   `json:"grade"         binding:"max=20"`
}

// BulkImportForm multipart fields of POST /certificates/bulk/import
type BulkImportForm struct {
	TemplateID string `form:"template_id" binding:"omitempty,uuid"`
	CourseID   string `form:"course_id"   binding:"required,uuid"`
	IssueDate  string `form:"issue_date"`
}

// BulkItemResult outcome for one candidate.
type BulkItemResult struct {
	CandidateID       string `json:"candidate_id"`
	Row               int    `json:"row,omitempty"`
	CertificateID     string `json:"certificate_id,omitempty"`
	CertificateNumber string `json:"certificate_number,omitempty"`
	ErrorKind         string `json:"error_kind,omitempty"`
	Error             string `json:"error,omitempty"`
}

// BulkGenerateResponse per-candidate results in input order.
type BulkGenerateResponse struct {
	Total     int              `json:"total"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
	Results   []BulkItemResult `json:"results"`
}

// CertificateListRequest GET /certificates
type CertificateListRequest struct {
	PaginationRequest
	Status      string `form:"status"       binding:"omitempty,oneof=ISSUED REVOKED EXPIRED"`
	CourseID    string `form:"course_id"    binding:"omitempty,uuid"`
	CandidateID string `form:"candidate_id" binding:"omitempty,uuid"`
	Search      string `form:"search"       binding:"max=100"`
}

// RevokeRequest POST /certificates/:id/revoke
type RevokeRequest struct {
	Reason string `json:"reason" binding:"max=1000"`
}

// SendRequest POST /certificates/:id/send; email defaults to the candidate's.
type SendRequest struct {
	Email string `json:"email" binding:"omitempty,email,max=320"`
}

// CertificateContent resolved or template text.
type CertificateContent struct {
	Header string `json:"header"`
	Body   string `json:"body"`
	Footer string `json:"footer"`
}

// CertificateResponse certificate as returned by the API. Status is the
// effective status (EXPIRED derived from expiry_date).
type CertificateResponse struct {
	ID                string             `json:"id"`
	CertificateNumber string             `json:"certificate_number"`
	CandidateID       string             `json:"candidate_id"`
	CandidateName     string             `json:"candidate_name"`
	CandidateEmail    string             `json:"candidate_email"`
	CourseID          string             `json:"course_id"`
	CourseName        string             `json:"course_name"`
	CourseCode        string             `json:"course_code,omitempty"`
	TemplateID        string             `json:"template_id"`
	TemplateVersion   int                `json:"template_version"`
	Content           CertificateContent `json:"content"`
	IssueDate         string             `json:"issue_date"`
	ExpiryDate        string             `json:"expiry_date,omitempty"`
	Status            string             `json:"status"`
	Grade             string             `json:"grade,omitempty"`
	Remarks           string             `json:"remarks,omitempty"`
	DigitalSignature  string             `json:"digital_signature"`
	RevocationReason  string             `json:"revocation_reason,omitempty"`
	RevokedAt         string             `json:"revoked_at,omitempty"`
	Supersedes        *string            `json:"supersedes,omitempty"`
	SupersededBy      *string            `json:"superseded_by,omitempty"`
	ApprovalRequestID *string            `json:"approval_request_id,omitempty"`
	VerifyURL         string             `json:"verify_url"`
	CreatedAt         string             `json:"created_at"`
}

// VerifyResponse public verification result.
type VerifyResponse struct {
	CertificateNumber string `json:"certificate_number"`
	Valid             bool   `json:"valid"` // signature ok and status ISSUED
	Status            string `json:"status"`
	CandidateName     string `json:"candidate_name"`
	CourseName        string `json:"course_name"`
	CourseCode        string `json:"course_code,omitempty"`
	Grade             string `json:"grade,omitempty"`
	Remarks           string `json:"remarks,omitempty"`
	IssueDate         string `json:"issue_date"`
	ExpiryDate        string `json:"expiry_date,omitempty"`
	RevocationReason  string `json:"revocation_reason,omitempty"`
	RevokedAt         string `json:"revoked_at,omitempty"`
	SupersededBy      string `json:"superseded_by,omitempty"` // replacement certificate number
	SignatureKeyID    string `json:"signature_key_id"`
	VerifiedAt        string `json:"verified_at"`
}

// SendAck acknowledgement that a delivery was queued.
type SendAck struct {
	JobID         string `json:"job_id"`
	CertificateID string `json:"certificate_id"`
	Email         string `json:"email"`
	QueuedAt      string `json:"queued_at"`
}

// DownloadFile rendered certificate.
type DownloadFile struct {
	Filename    string
	ContentType string
	Data        []byte
}
