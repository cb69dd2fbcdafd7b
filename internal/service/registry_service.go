package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"certhub/internal/dto"
	"certhub/internal/model"
	"certhub/internal/repository"
	"certhub/pkg/directory"
	pkgerrors "certhub/pkg/errors"
	"certhub/pkg/metrics"
)

// RegistryService reads issued certificates and moves them through
// revocation and reissue.
type RegistryService interface {
	GetByID(ctx context.Context, id string) (*dto.CertificateResponse, error)
	List(ctx context.Context, req *dto.CertificateListRequest) ([]dto.CertificateResponse, int64, error)
	Revoke(ctx context.Context, id string, reason string, callerID string) (*dto.CertificateResponse, error)
	Reissue(ctx context.Context, id string, callerID string) (*dto.CertificateResponse, error)
}

type registryService struct {
	repo       *repository.Repository
	issuer     *issuer
	metrics    *metrics.Metrics
	verifyBase string
	logger     *zap.Logger
}

// NewRegistryService creates a RegistryService.
func NewRegistryService(repo *repository.Repository, iss *issuer, m *metrics.Metrics, verifyBase string, logger *zap.Logger) RegistryService {
	return &registryService{repo: repo, issuer: iss, metrics: m, verifyBase: verifyBase, logger: logger}
}

// ────────────────────── Get / List ──────────────────────

func (s *registryService) GetByID(ctx context.Context, id string) (*dto.CertificateResponse, error) {
	c, err := s.repo.Certificate.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrCertificateNotFound
		}
		s.logger.Error("get certificate failed", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return toCertificateResponse(c, s.issuer.now(), s.verifyBase), nil
}

func (s *registryService) List(ctx context.Context, req *dto.CertificateListRequest) ([]dto.CertificateResponse, int64, error) {
	now := s.issuer.now()
	list, total, err := s.repo.Certificate.List(ctx, repository.CertificateFilter{
		Status:      req.Status,
		CourseID:    req.CourseID,
		CandidateID: req.CandidateID,
		Search:      req.Search,
		Now:         now,
	}, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("list certificates failed", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.CertificateResponse, 0, len(list))
	for i := range list {
		result = append(result, *toCertificateResponse(&list[i], now, s.verifyBase))
	}
	return result, total, nil
}

// ────────────────────── Revoke ──────────────────────

func (s *registryService) Revoke(ctx context.Context, id string, reason string, callerID string) (*dto.CertificateResponse, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrRevocationReasonRequired
	}

	var cert *model.Certificate
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		cert, err = tx.Certificate.GetByIDForUpdate(ctx, id)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrCertificateNotFound
			}
			return err
		}

		now := s.issuer.now()
		switch cert.EffectiveStatus(now) {
		case model.StatusRevoked:
			return ErrAlreadyRevoked
		case model.StatusExpired:
			return ErrCertificateExpired
		}

		cert.Status = model.StatusRevoked
		cert.RevocationReason = reason
		cert.RevokedAt = &now
		cert.RevokedBy = strPtr(callerID)
		cert.UpdatedBy = strPtr(callerID)
		return tx.Certificate.UpdateState(ctx, cert)
	})
	if err != nil {
		if pkgerrors.KindOf(err) == "" {
			s.logger.Error("revoke certificate failed", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}

	s.metrics.CertificateEvent("revoked")
	s.logger.Info("certificate revoked",
		zap.String("certificate_number", cert.CertificateNumber),
		zap.String("revoked_by", callerID),
	)
	return toCertificateResponse(cert, s.issuer.now(), s.verifyBase), nil
}

// ────────────────────── Reissue ──────────────────────

// Reissue issues a replacement for a revoked certificate. The replacement
// reuses the original's parties, grade, remarks and template snapshot, gets
// a fresh number and keeps the original validity span. The original only
// gains superseded_by.
func (s *registryService) Reissue(ctx context.Context, id string, callerID string) (*dto.CertificateResponse, error) {
	var replacement *model.Certificate

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		orig, err := tx.Certificate.GetByIDForUpdate(ctx, id)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrCertificateNotFound
			}
			return err
		}
		if orig.Status != model.StatusRevoked {
			return ErrNotRevoked
		}
		if orig.SupersededBy != nil {
			return ErrAlreadyReissued
		}

		issueDate, expiryDate, err := s.issuer.dates("", "")
		if err != nil {
			return err
		}
		if orig.ExpiryDate != nil {
			e := issueDate.Add(orig.ExpiryDate.Sub(orig.IssueDate))
			expiryDate = &e
		} else {
			expiryDate = nil
		}

		replacement, err = s.issuer.issue(ctx, tx, issueInput{
			Candidate: directory.Candidate{ID: orig.CandidateID, Name: orig.CandidateName, Email: orig.CandidateEmail},
			Course:    directory.Course{ID: orig.CourseID, Name: orig.CourseName, Code: orig.CourseCode},
			Template: snapshot{
				TemplateID: orig.TemplateID,
				Version:    orig.TemplateVersion,
				Content:    orig.TemplateContent.Data(),
				Design:     orig.TemplateDesign.Data(),
			},
			Grade:      orig.Grade,
			Remarks:    orig.Remarks,
			IssueDate:  issueDate,
			ExpiryDate: expiryDate,
			Supersedes: &orig.CertificateID,
			CallerID:   callerID,
		})
		if err != nil {
			return err
		}

		orig.SupersededBy = &replacement.CertificateID
		orig.UpdatedBy = strPtr(callerID)
		return tx.Certificate.UpdateState(ctx, orig)
	})
	if err != nil {
		if pkgerrors.KindOf(err) == "" {
			s.logger.Error("reissue certificate failed", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}

	s.metrics.CertificateEvent("reissued")
	s.logger.Info("certificate reissued",
		zap.String("original_id", id),
		zap.String("certificate_number", replacement.CertificateNumber),
	)
	return toCertificateResponse(replacement, s.issuer.now(), s.verifyBase), nil
}
