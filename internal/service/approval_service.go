package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"certhub/internal/dto"
	"certhub/internal/model"
	"certhub/internal/repository"
	"certhub/pkg/directory"
	pkgerrors "certhub/pkg/errors"
	"certhub/pkg/metrics"
)

// ApprovalService the reviewer queue in front of certificate issuance.
type ApprovalService interface {
	CreateRequest(ctx context.Context, req *dto.CreateApprovalRequest, callerID string) (*dto.ApprovalRequestResponse, error)
	List(ctx context.Context, req *dto.ApprovalListRequest) ([]dto.ApprovalRequestResponse, int64, error)
	GetByID(ctx context.Context, id string) (*dto.ApprovalRequestResponse, error)
	Approve(ctx context.Context, id string, in dto.ApproveInput, reviewerID string) (*dto.ProcessResponse, error)
	Reject(ctx context.Context, id string, reason string, reviewerID string) (*dto.ProcessResponse, error)
	Process(ctx context.Context, id string, req *dto.ProcessRequest, reviewerID string) (*dto.ProcessResponse, error)
}

type approvalService struct {
	repo       *repository.Repository
	issuer     *issuer
	dir        Directory
	metrics    *metrics.Metrics
	verifyBase string
	logger     *zap.Logger
}

// NewApprovalService creates an ApprovalService.
func NewApprovalService(repo *repository.Repository, iss *issuer, dir Directory, m *metrics.Metrics, verifyBase string, logger *zap.Logger) ApprovalService {
	return &approvalService{repo: repo, issuer: iss, dir: dir, metrics: m, verifyBase: verifyBase, logger: logger}
}

// ────────────────────── CreateRequest ──────────────────────

func (s *approvalService) CreateRequest(ctx context.Context, req *dto.CreateApprovalRequest, callerID string) (*dto.ApprovalRequestResponse, error) {
	cand, course, err := lookupParties(ctx, s.dir, req.CandidateID, req.CourseID)
	if err != nil {
		if pkgerrors.KindOf(err) == "" {
			s.logger.Error("directory lookup failed", zap.String("candidate_id", req.CandidateID), zap.Error(err))
		}
		return nil, err
	}

	ar := &model.ApprovalRequest{
		CandidateID:     cand.ID,
		CandidateName:   cand.Name,
		CandidateEmail:  cand.Email,
		CourseID:        course.ID,
		CourseName:      course.Name,
		TrainerID:       req.TrainerID,
		AssessmentScore: req.AssessmentScore,
		Status:          model.RequestStatusPending,
		RequestedAt:     s.issuer.now(),
	}
	ar.CreatedBy = strPtr(callerID)
	ar.UpdatedBy = strPtr(callerID)

	if err := s.repo.Request.Create(ctx, ar); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrDuplicatePendingRequest
		}
		s.logger.Error("create certificate request failed", zap.String("candidate_id", req.CandidateID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("certificate request queued",
		zap.String("approval_request_id", ar.RequestID),
		zap.String("candidate_id", ar.CandidateID),
		zap.String("course_id", ar.CourseID),
	)
	return toApprovalResponse(ar), nil
}

// ────────────────────── List / Get ──────────────────────

func (s *approvalService) List(ctx context.Context, req *dto.ApprovalListRequest) ([]dto.ApprovalRequestResponse, int64, error) {
	status := req.Status
	switch status {
	case "":
		status = model.RequestStatusPending
	case "ALL":
		status = ""
	}

	list, total, err := s.repo.Request.List(ctx, repository.ApprovalRequestFilter{
		Status:   status,
		CourseID: req.CourseID,
		Search:   req.Search,
	}, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("list certificate requests failed", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.ApprovalRequestResponse, 0, len(list))
	for i := range list {
		result = append(result, *toApprovalResponse(&list[i]))
	}
	return result, total, nil
}

func (s *approvalService) GetByID(ctx context.Context, id string) (*dto.ApprovalRequestResponse, error) {
	ar, err := s.repo.Request.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrRequestNotFound
		}
		s.logger.Error("get certificate request failed", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return toApprovalResponse(ar), nil
}

// ────────────────────── Process ──────────────────────

func (s *approvalService) Process(ctx context.Context, id string, req *dto.ProcessRequest, reviewerID string) (*dto.ProcessResponse, error) {
	switch req.Action {
	case "approve":
		return s.Approve(ctx, id, dto.ApproveInput{
			TemplateID: req.TemplateID,
			Grade:      req.Grade,
			Remarks:    req.Remarks,
		}, reviewerID)
	case "reject":
		return s.Reject(ctx, id, req.Reason, reviewerID)
	default:
		return nil, pkgerrors.Validation("action must be approve or reject")
	}
}

// ────────────────────── Approve ──────────────────────

// Approve marks the request APPROVED and issues its certificate in the same
// transaction, so either both happen or neither does.
func (s *approvalService) Approve(ctx context.Context, id string, in dto.ApproveInput, reviewerID string) (*dto.ProcessResponse, error) {
	pre, err := s.repo.Request.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrRequestNotFound
		}
		s.logger.Error("get certificate request failed", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	if pre.Status != model.RequestStatusPending {
		return nil, ErrRequestNotPending
	}

	// Directory calls stay outside the transaction.
	cand, course, err := lookupParties(ctx, s.dir, pre.CandidateID, pre.CourseID)
	if err != nil {
		if pkgerrors.KindOf(err) == "" {
			s.logger.Error("directory lookup failed", zap.String("approval_request_id", id), zap.Error(err))
		}
		return nil, err
	}

	issueDate, expiryDate, err := s.issuer.dates("", "")
	if err != nil {
		return nil, err
	}

	var (
		ar   *model.ApprovalRequest
		cert *model.Certificate
	)
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		ar, err = tx.Request.GetByIDForUpdate(ctx, id)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrRequestNotFound
			}
			return err
		}
		if ar.Status != model.RequestStatusPending {
			return ErrRequestNotPending
		}

		tmpl, err := resolveTemplate(ctx, tx, in.TemplateID, ar.CourseID)
		if err != nil {
			return err
		}

		cert, err = s.issuer.issue(ctx, tx, issueInput{
			Candidate:         directory.Candidate{ID: ar.CandidateID, Name: pick(cand.Name, ar.CandidateName), Email: pick(cand.Email, ar.CandidateEmail)},
			Course:            directory.Course{ID: ar.CourseID, Name: pick(course.Name, ar.CourseName), Code: course.Code},
			Template:          templateSnapshot(tmpl),
			Grade:             in.Grade,
			Remarks:           in.Remarks,
			IssueDate:         issueDate,
			ExpiryDate:        expiryDate,
			ApprovalRequestID: &ar.RequestID,
			CallerID:          reviewerID,
		})
		if err != nil {
			return err
		}

		now := s.issuer.now()
		ar.Status = model.RequestStatusApproved
		ar.ReviewedAt = &now
		ar.ReviewedBy = strPtr(reviewerID)
		ar.CertificateID = &cert.CertificateID
		ar.UpdatedBy = strPtr(reviewerID)
		return tx.Request.UpdateDecision(ctx, ar)
	})
	if err != nil {
		if pkgerrors.KindOf(err) == "" {
			s.logger.Error("approve certificate request failed", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}

	s.metrics.Decision("approved")
	s.metrics.CertificateEvent("issued")
	s.logger.Info("certificate request approved",
		zap.String("approval_request_id", id),
		zap.String("certificate_number", cert.CertificateNumber),
		zap.String("reviewer_id", reviewerID),
	)
	return &dto.ProcessResponse{
		Request:     toApprovalResponse(ar),
		Certificate: toCertificateResponse(cert, s.issuer.now(), s.verifyBase),
	}, nil
}

// ────────────────────── Reject ──────────────────────

func (s *approvalService) Reject(ctx context.Context, id string, reason string, reviewerID string) (*dto.ProcessResponse, error) {
	var ar *model.ApprovalRequest

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		ar, err = tx.Request.GetByIDForUpdate(ctx, id)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrRequestNotFound
			}
			return err
		}
		if ar.Status != model.RequestStatusPending {
			return ErrRequestNotPending
		}

		now := s.issuer.now()
		ar.Status = model.RequestStatusRejected
		ar.ReviewedAt = &now
		ar.ReviewedBy = strPtr(reviewerID)
		ar.RejectionReason = strings.TrimSpace(reason)
		ar.UpdatedBy = strPtr(reviewerID)
		return tx.Request.UpdateDecision(ctx, ar)
	})
	if err != nil {
		if pkgerrors.KindOf(err) == "" {
			s.logger.Error("reject certificate request failed", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}

	s.metrics.Decision("rejected")
	return &dto.ProcessResponse{Request: toApprovalResponse(ar)}, nil
}

// ── helpers ──

func pick(fresh, snapshot string) string {
	if fresh != "" {
		return fresh
	}
	return snapshot
}

func toApprovalResponse(ar *model.ApprovalRequest) *dto.ApprovalRequestResponse {
	return &dto.ApprovalRequestResponse{
		ID:              ar.RequestID,
		CandidateID:     ar.CandidateID,
		CandidateName:   ar.CandidateName,
		CandidateEmail:  ar.CandidateEmail,
		CourseID:        ar.CourseID,
		CourseName:      ar.CourseName,
		TrainerID:       ar.TrainerID,
		AssessmentScore: ar.AssessmentScore,
		Status:          ar.Status,
		RequestedAt:     ar.RequestedAt.UTC().Format(time.RFC3339),
		ReviewedAt:      formatTime(ar.ReviewedAt),
		ReviewedBy:      ar.ReviewedBy,
		RejectionReason: ar.RejectionReason,
		CertificateID:   ar.CertificateID,
	}
}
