package service

import (
	pkgerrors "certhub/pkg/errors"
)

// ── Business errors ──

var (
	ErrTemplateNotFound     = pkgerrors.New(pkgerrors.KindTemplateNotFound, "certificate template not found")
	ErrTemplateInactive     = pkgerrors.New(pkgerrors.KindTemplateInactive, "certificate template is inactive")
	ErrNoActiveTemplate     = pkgerrors.New(pkgerrors.KindNoActiveTemplate, "no template given and no active default template for this course")
	ErrUnknownPlaceholder   = pkgerrors.New(pkgerrors.KindValidation, "template contains an unknown placeholder")
	ErrTemplateDesign       = pkgerrors.New(pkgerrors.KindValidation, "invalid template design")
	ErrTemplateVersionStale = pkgerrors.New(pkgerrors.KindConflict, "template was modified by another operation, reload and retry")

	ErrRequestNotFound         = pkgerrors.New(pkgerrors.KindNotFound, "certificate request not found")
	ErrRequestNotPending       = pkgerrors.New(pkgerrors.KindInvalidState, "certificate request is not pending")
	ErrDuplicatePendingRequest = pkgerrors.New(pkgerrors.KindDuplicatePendingRequest, "a pending certificate request already exists for this candidate and course")

	ErrCertificateNotFound       = pkgerrors.New(pkgerrors.KindNotFound, "certificate not found")
	ErrDuplicateActive           = pkgerrors.New(pkgerrors.KindDuplicateActiveCertificate, "an issued certificate already exists for this candidate and course")
	ErrAlreadyRevoked            = pkgerrors.New(pkgerrors.KindAlreadyRevoked, "certificate is already revoked")
	ErrCertificateExpired        = pkgerrors.New(pkgerrors.KindInvalidState, "certificate has expired")
	ErrNotRevoked                = pkgerrors.New(pkgerrors.KindInvalidState, "only a revoked certificate can be reissued")
	ErrAlreadyReissued           = pkgerrors.New(pkgerrors.KindInvalidState, "certificate has already been reissued")
	ErrCertificateNotDeliverable = pkgerrors.New(pkgerrors.KindInvalidState, "only an issued, unexpired certificate can be sent")
	ErrRevocationReasonRequired  = pkgerrors.New(pkgerrors.KindValidation, "revocation reason is required")
	ErrTamperDetected            = pkgerrors.New(pkgerrors.KindTamperDetected, "certificate signature does not match its contents")

	ErrCandidateNotFound = pkgerrors.New(pkgerrors.KindNotFound, "candidate not found")
	ErrCourseNotFound    = pkgerrors.New(pkgerrors.KindNotFound, "course not found")
	ErrInvalidDate       = pkgerrors.New(pkgerrors.KindValidation, "dates must be YYYY-MM-DD or RFC3339")
	ErrExpiryBeforeIssue = pkgerrors.New(pkgerrors.KindValidation, "expiry date must be after issue date")

	ErrBulkEmpty        = pkgerrors.New(pkgerrors.KindValidation, "no candidates given")
	ErrBulkTooLarge     = pkgerrors.New(pkgerrors.KindValidation, "too many candidates in one batch")
	ErrImportFileFormat = pkgerrors.New(pkgerrors.KindValidation, "import file must be .xlsx with a candidate_id column")

	ErrDeliveryQueueFull = pkgerrors.New(pkgerrors.KindUnavailable, "delivery queue is full, retry later")
)
