package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"certhub/internal/dto"
	"certhub/internal/model"
	"certhub/internal/repository"
	"certhub/pkg/metrics"
	"certhub/pkg/signer"
)

// VerificationService answers public "is this certificate genuine" lookups.
// It only reads.
type VerificationService interface {
	Verify(ctx context.Context, number string) (*dto.VerifyResponse, error)
}

type verificationService struct {
	repo    *repository.Repository
	signer  *signer.Signer
	metrics *metrics.Metrics
	now     func() time.Time
	logger  *zap.Logger
}

// NewVerificationService creates a VerificationService.
func NewVerificationService(repo *repository.Repository, sg *signer.Signer, m *metrics.Metrics, now func() time.Time, logger *zap.Logger) VerificationService {
	return &verificationService{repo: repo, signer: sg, metrics: m, now: now, logger: logger}
}

func (s *verificationService) Verify(ctx context.Context, number string) (*dto.VerifyResponse, error) {
	number = strings.TrimSpace(number)

	c, err := s.repo.Certificate.GetByNumber(ctx, number)
	if err != nil {
		if repository.IsNotFound(err) {
			s.metrics.Verification("not_found")
			return nil, ErrCertificateNotFound
		}
		s.logger.Error("verify lookup failed", zap.String("certificate_number", number), zap.Error(err))
		return nil, err
	}

	if err := s.signer.Verify(signedPayload(c), c.DigitalSignature); err != nil {
		s.metrics.Verification("tampered")
		s.logger.Error("certificate signature check failed",
			zap.String("certificate_number", c.CertificateNumber),
			zap.String("certificate_id", c.CertificateID),
			zap.Error(err),
		)
		return nil, ErrTamperDetected
	}

	now := s.now()
	status := c.EffectiveStatus(now)

	resp := &dto.VerifyResponse{
		CertificateNumber: c.CertificateNumber,
		Valid:             status == model.StatusIssued,
		Status:            status,
		CandidateName:     c.CandidateName,
		CourseName:        c.CourseName,
		CourseCode:        c.CourseCode,
		Grade:             c.Grade,
		Remarks:           c.Remarks,
		IssueDate:         formatTime(&c.IssueDate),
		ExpiryDate:        formatTime(c.ExpiryDate),
		RevocationReason:  c.RevocationReason,
		RevokedAt:         formatTime(c.RevokedAt),
		SignatureKeyID:    keyIDOf(c.DigitalSignature),
		VerifiedAt:        formatTime(&now),
	}

	if c.SupersededBy != nil {
		next, err := s.repo.Certificate.GetByID(ctx, *c.SupersededBy)
		switch {
		case err == nil:
			resp.SupersededBy = next.CertificateNumber
		case repository.IsNotFound(err):
		default:
			s.logger.Warn("load replacement certificate failed",
				zap.String("certificate_number", c.CertificateNumber), zap.Error(err))
		}
	}

	switch status {
	case model.StatusIssued:
		s.metrics.Verification("valid")
	case model.StatusRevoked:
		s.metrics.Verification("revoked")
	default:
		s.metrics.Verification("expired")
	}
	return resp, nil
}

func keyIDOf(signature string) string {
	if i := strings.IndexByte(signature, ':'); i > 0 {
		return signature[:i]
	}
	return ""
}
