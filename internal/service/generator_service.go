package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"certhub/config"
	"certhub/internal/dto"
	"certhub/internal/model"
	"certhub/internal/repository"
	"certhub/pkg/directory"
	pkgerrors "certhub/pkg/errors"
	"certhub/pkg/metrics"
	"certhub/pkg/signer"
)

var ErrTemplateCourseMismatch = pkgerrors.New(pkgerrors.KindValidation, "template belongs to a different course")

// GeneratorService issues single certificates.
type GeneratorService interface {
	Generate(ctx context.Context, candidateID, courseID string, templateID *string, opts dto.GenerateOptions, callerID string) (*dto.CertificateResponse, error)
}

type generatorService struct {
	repo       *repository.Repository
	issuer     *issuer
	dir        Directory
	metrics    *metrics.Metrics
	verifyBase string
	logger     *zap.Logger
}

// NewGeneratorService creates a GeneratorService.
func NewGeneratorService(repo *repository.Repository, iss *issuer, dir Directory, m *metrics.Metrics, verifyBase string, logger *zap.Logger) GeneratorService {
	return &generatorService{repo: repo, issuer: iss, dir: dir, metrics: m, verifyBase: verifyBase, logger: logger}
}

// ────────────────────── Generate ──────────────────────

func (s *generatorService) Generate(ctx context.Context, candidateID, courseID string, templateID *string, opts dto.GenerateOptions, callerID string) (*dto.CertificateResponse, error) {
	issueDate, expiryDate, err := s.issuer.dates(opts.IssueDate, opts.ExpiryDate)
	if err != nil {
		return nil, err
	}

	tmpl, err := resolveTemplate(ctx, s.repo, templateID, courseID)
	if err != nil {
		if pkgerrors.KindOf(err) == "" {
			s.logger.Error("resolve template failed", zap.String("course_id", courseID), zap.Error(err))
		}
		return nil, err
	}

	cand, course, err := lookupParties(ctx, s.dir, candidateID, courseID)
	if err != nil {
		if pkgerrors.KindOf(err) == "" {
			s.logger.Error("directory lookup failed", zap.String("candidate_id", candidateID), zap.Error(err))
		}
		return nil, err
	}

	var cert *model.Certificate
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var txErr error
		cert, txErr = s.issuer.issue(ctx, tx, issueInput{
			Candidate:  *cand,
			Course:     *course,
			Template:   templateSnapshot(tmpl),
			Grade:      opts.Grade,
			Remarks:    opts.Remarks,
			IssueDate:  issueDate,
			ExpiryDate: expiryDate,
			CallerID:   callerID,
		})
		return txErr
	})
	if err != nil {
		if pkgerrors.KindOf(err) == "" {
			s.logger.Error("issue certificate failed",
				zap.String("candidate_id", candidateID), zap.String("course_id", courseID), zap.Error(err))
		}
		return nil, err
	}

	s.metrics.CertificateEvent("issued")
	s.logger.Info("certificate issued",
		zap.String("certificate_number", cert.CertificateNumber),
		zap.String("candidate_id", candidateID),
		zap.String("course_id", courseID),
	)
	return toCertificateResponse(cert, s.issuer.now(), s.verifyBase), nil
}

// ── issuance core ──

// issuer performs the in-transaction part of issuing a certificate. It is
// shared by direct generation, approval, bulk and reissue.
type issuer struct {
	signer *signer.Signer
	cfg    *config.CertificateConfig
	now    func() time.Time
}

type snapshot struct {
	TemplateID string
	Version    int
	Content    model.TemplateContent
	Design     model.TemplateDesign
}

func templateSnapshot(t *model.CertificateTemplate) snapshot {
	return snapshot{
		TemplateID: t.TemplateID,
		Version:    t.Version,
		Content:    t.Content.Data(),
		Design:     t.Design.Data(),
	}
}

type issueInput struct {
	Candidate         directory.Candidate
	Course            directory.Course
	Template          snapshot
	Grade             string
	Remarks           string
	IssueDate         time.Time
	ExpiryDate        *time.Time
	Supersedes        *string
	ApprovalRequestID *string
	CallerID          string
}

// dates parses optional issue/expiry strings, applying defaults.
func (i *issuer) dates(issueStr, expiryStr string) (time.Time, *time.Time, error) {
	issue := i.now()
	parsed, err := parseDate(issueStr)
	if err != nil {
		return time.Time{}, nil, err
	}
	if parsed != nil {
		issue = *parsed
	}
	issue = issue.UTC().Truncate(time.Second)

	expiry, err := parseDate(expiryStr)
	if err != nil {
		return time.Time{}, nil, err
	}
	if expiry == nil && i.cfg.DefaultValidity > 0 {
		e := issue.Add(i.cfg.DefaultValidity)
		expiry = &e
	}
	if expiry != nil {
		e := expiry.UTC().Truncate(time.Second)
		if !e.After(issue) {
			return time.Time{}, nil, ErrExpiryBeforeIssue
		}
		expiry = &e
	}
	return issue, expiry, nil
}

// issue allocates a number, resolves and signs the content, and inserts the
// certificate. Must run inside a transaction.
func (i *issuer) issue(ctx context.Context, tx *repository.Repository, in issueInput) (*model.Certificate, error) {
	now := i.now()

	// An expired certificate still holds the pair's active slot in storage;
	// materialise its EXPIRED state so a renewal can take the slot.
	existing, err := tx.Certificate.GetIssuedForPair(ctx, in.Candidate.ID, in.Course.ID)
	switch {
	case err == nil:
		if existing.EffectiveStatus(now) != model.StatusExpired {
			return nil, ErrDuplicateActive
		}
		existing.Status = model.StatusExpired
		existing.UpdatedBy = strPtr(in.CallerID)
		if err := tx.Certificate.UpdateState(ctx, existing); err != nil {
			return nil, err
		}
	case !repository.IsNotFound(err):
		return nil, err
	}

	year := in.IssueDate.UTC().Year()
	seq, err := tx.Sequence.Next(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("allocate certificate number: %w", err)
	}
	number := fmt.Sprintf("%s-%d-%0*d", i.cfg.NumberPrefix, year, i.cfg.SequenceWidth, seq)

	expiryText := "No expiry"
	if in.ExpiryDate != nil {
		expiryText = in.ExpiryDate.UTC().Format(displayLayout)
	}
	resolved := resolvePlaceholders(in.Template.Content, map[string]string{
		PhCandidateName:     in.Candidate.Name,
		PhCandidateEmail:    in.Candidate.Email,
		PhCourseName:        in.Course.Name,
		PhCourseCode:        in.Course.Code,
		PhIssueDate:         in.IssueDate.UTC().Format(displayLayout),
		PhExpiryDate:        expiryText,
		PhCertificateNumber: number,
		PhGrade:             in.Grade,
		PhRemarks:           in.Remarks,
		PhOrganizationName:  i.cfg.OrganizationName,
	})

	cert := &model.Certificate{
		CertificateNumber: number,
		CandidateID:       in.Candidate.ID,
		CandidateName:     in.Candidate.Name,
		CandidateEmail:    in.Candidate.Email,
		CourseID:          in.Course.ID,
		CourseName:        in.Course.Name,
		CourseCode:        in.Course.Code,
		TemplateID:        in.Template.TemplateID,
		TemplateVersion:   in.Template.Version,
		TemplateContent:   datatypes.NewJSONType(in.Template.Content),
		TemplateDesign:    datatypes.NewJSONType(in.Template.Design),
		ResolvedContent:   datatypes.NewJSONType(resolved),
		IssueDate:         in.IssueDate.UTC(),
		ExpiryDate:        in.ExpiryDate,
		Status:            model.StatusIssued,
		Grade:             in.Grade,
		Remarks:           in.Remarks,
		Supersedes:        in.Supersedes,
		ApprovalRequestID: in.ApprovalRequestID,
	}
	cert.DigitalSignature, err = i.signer.Sign(signedPayload(cert))
	if err != nil {
		return nil, fmt.Errorf("sign certificate: %w", err)
	}
	cert.CreatedBy = strPtr(in.CallerID)
	cert.UpdatedBy = strPtr(in.CallerID)

	if err := tx.Certificate.Create(ctx, cert); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrDuplicateActive
		}
		return nil, err
	}
	return cert, nil
}

// signedPayload builds the canonical signed document of a certificate.
func signedPayload(c *model.Certificate) signer.Payload {
	content := c.ResolvedContent.Data()
	return signer.NewPayload(signer.Fields{
		Number:        c.CertificateNumber,
		CandidateID:   c.CandidateID,
		CandidateName: c.CandidateName,
		CourseID:      c.CourseID,
		CourseName:    c.CourseName,
		CourseCode:    c.CourseCode,
		IssueDate:     c.IssueDate,
		ExpiryDate:    c.ExpiryDate,
		Grade:         c.Grade,
		Remarks:       c.Remarks,
		Content:       signer.Content{Header: content.Header, Body: content.Body, Footer: content.Footer},
	})
}

// resolveTemplate picks the explicit template, else the course default,
// else the global default.
func resolveTemplate(ctx context.Context, repo *repository.Repository, templateID *string, courseID string) (*model.CertificateTemplate, error) {
	if templateID != nil && *templateID != "" {
		t, err := repo.Template.GetByID(ctx, *templateID)
		if err != nil {
			if repository.IsNotFound(err) {
				return nil, ErrTemplateNotFound
			}
			return nil, err
		}
		if !t.IsActive {
			return nil, ErrTemplateInactive
		}
		if t.CourseID != nil && *t.CourseID != courseID {
			return nil, ErrTemplateCourseMismatch
		}
		return t, nil
	}

	t, err := repo.Template.FindDefault(ctx, &courseID)
	if err == nil {
		return t, nil
	}
	if !repository.IsNotFound(err) {
		return nil, err
	}
	t, err = repo.Template.FindDefault(ctx, nil)
	if err == nil {
		return t, nil
	}
	if repository.IsNotFound(err) {
		return nil, ErrNoActiveTemplate
	}
	return nil, err
}

// ── response mapping ──

func toCertificateResponse(c *model.Certificate, now time.Time, verifyBase string) *dto.CertificateResponse {
	content := c.ResolvedContent.Data()
	return &dto.CertificateResponse{
		ID:                c.CertificateID,
		CertificateNumber: c.CertificateNumber,
		CandidateID:       c.CandidateID,
		CandidateName:     c.CandidateName,
		CandidateEmail:    c.CandidateEmail,
		CourseID:          c.CourseID,
		CourseName:        c.CourseName,
		CourseCode:        c.CourseCode,
		TemplateID:        c.TemplateID,
		TemplateVersion:   c.TemplateVersion,
		Content:           dto.CertificateContent{Header: content.Header, Body: content.Body, Footer: content.Footer},
		IssueDate:         formatTime(&c.IssueDate),
		ExpiryDate:        formatTime(c.ExpiryDate),
		Status:            c.EffectiveStatus(now),
		Grade:             c.Grade,
		Remarks:           c.Remarks,
		DigitalSignature:  c.DigitalSignature,
		RevocationReason:  c.RevocationReason,
		RevokedAt:         formatTime(c.RevokedAt),
		Supersedes:        c.Supersedes,
		SupersededBy:      c.SupersededBy,
		ApprovalRequestID: c.ApprovalRequestID,
		VerifyURL:         verifyBase + c.CertificateNumber,
		CreatedAt:         formatTime(&c.CreatedAt),
	}
}
