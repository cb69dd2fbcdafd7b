package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"certhub/internal/model"
	pkgerrors "certhub/pkg/errors"
)

// CertificateFilter list filters. EXPIRED matches stored EXPIRED rows and
// ISSUED rows past their expiry_date.
type CertificateFilter struct {
	Status      string
	CourseID    string
	CandidateID string
	Search      string // number, candidate name or email
	Now         time.Time
}

// CertificateRepository certificate registry data access.
type CertificateRepository interface {
	Create(ctx context.Context, c *model.Certificate) error
	GetByID(ctx context.Context, id string) (*model.Certificate, error)
	GetByIDForUpdate(ctx context.Context, id string) (*model.Certificate, error)
	GetByNumber(ctx context.Context, number string) (*model.Certificate, error)
	// GetIssuedForPair returns the stored-ISSUED certificate of a pair, if any.
	GetIssuedForPair(ctx context.Context, candidateID, courseID string) (*model.Certificate, error)
	List(ctx context.Context, filter CertificateFilter, offset, limit int) ([]model.Certificate, int64, error)
	// UpdateState persists status/revocation/supersession changes, guarded by version.
	UpdateState(ctx context.Context, c *model.Certificate) error
	// ListExpiring returns ISSUED certificates expiring in (from, until] that
	// have not had a reminder yet.
	ListExpiring(ctx context.Context, from, until time.Time, limit int) ([]model.Certificate, error)
	// MarkExpiryNotified stamps the reminder time; false if already stamped.
	MarkExpiryNotified(ctx context.Context, id string, at time.Time) (bool, error)
	// ClearExpiryNotified releases a reminder claim that could not be delivered.
	ClearExpiryNotified(ctx context.Context, id string) error
}

type certificateRepo struct {
	db *gorm.DB
}

func NewCertificateRepo(db *gorm.DB) CertificateRepository {
	return &certificateRepo{db: db}
}

func (r *certificateRepo) Create(ctx context.Context, c *model.Certificate) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *certificateRepo) GetByID(ctx context.Context, id string) (*model.Certificate, error) {
	var c model.Certificate
	if err := r.db.WithContext(ctx).Where("certificate_id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *certificateRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.Certificate, error) {
	var c model.Certificate
	if err := forUpdate(r.db.WithContext(ctx)).Where("certificate_id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *certificateRepo) GetByNumber(ctx context.Context, number string) (*model.Certificate, error) {
	var c model.Certificate
	if err := r.db.WithContext(ctx).Where("certificate_number = ?", number).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *certificateRepo) GetIssuedForPair(ctx context.Context, candidateID, courseID string) (*model.Certificate, error) {
	var c model.Certificate
	err := forUpdate(r.db.WithContext(ctx)).
		Where("candidate_id = ? AND course_id = ? AND status = ?", candidateID, courseID, model.StatusIssued).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *certificateRepo) List(ctx context.Context, filter CertificateFilter, offset, limit int) ([]model.Certificate, int64, error) {
	var (
		list  []model.Certificate
		total int64
	)

	now := filter.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	db := r.db.WithContext(ctx).Model(&model.Certificate{})
	switch filter.Status {
	case "":
	case model.StatusIssued:
		db = db.Where("status = ? AND (expiry_date IS NULL OR expiry_date >= ?)", model.StatusIssued, now)
	case model.StatusExpired:
		db = db.Where("(status = ? OR (status = ? AND expiry_date IS NOT NULL AND expiry_date < ?))",
			model.StatusExpired, model.StatusIssued, now)
	default:
		db = db.Where("status = ?", filter.Status)
	}
	if filter.CourseID != "" {
		db = db.Where("course_id = ?", filter.CourseID)
	}
	if filter.CandidateID != "" {
		db = db.Where("candidate_id = ?", filter.CandidateID)
	}
	if filter.Search != "" {
		p := likePattern(filter.Search)
		db = db.Where("(LOWER(certificate_number) LIKE ? ESCAPE '\\' OR LOWER(candidate_name) LIKE ? ESCAPE '\\' OR LOWER(candidate_email) LIKE ? ESCAPE '\\')", p, p, p)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := db.Order("issue_date DESC, certificate_number DESC").Offset(offset).Limit(limit).Find(&list).Error
	return list, total, err
}

func (r *certificateRepo) UpdateState(ctx context.Context, c *model.Certificate) error {
	oldVersion := c.Version
	result := r.db.WithContext(ctx).
		Model(&model.Certificate{}).
		Where("certificate_id = ? AND version = ?", c.CertificateID, oldVersion).
		Updates(map[string]interface{}{
			"status":            c.Status,
			"revocation_reason": c.RevocationReason,
			"revoked_at":        c.RevokedAt,
			"revoked_by":        c.RevokedBy,
			"superseded_by":     c.SupersededBy,
			"updated_by":        c.UpdatedBy,
			"version":           oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	c.Version = oldVersion + 1
	return nil
}

func (r *certificateRepo) ListExpiring(ctx context.Context, from, until time.Time, limit int) ([]model.Certificate, error) {
	var list []model.Certificate
	err := r.db.WithContext(ctx).
		Where("status = ? AND expiry_notified_at IS NULL AND expiry_date >= ? AND expiry_date <= ?",
			model.StatusIssued, from, until).
		Order("expiry_date ASC").
		Limit(limit).
		Find(&list).Error
	return list, err
}

func (r *certificateRepo) MarkExpiryNotified(ctx context.Context, id string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Certificate{}).
		Where("certificate_id = ? AND expiry_notified_at IS NULL", id).
		UpdateColumn("expiry_notified_at", at)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *certificateRepo) ClearExpiryNotified(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Model(&model.Certificate{}).
		Where("certificate_id = ?", id).
		UpdateColumn("expiry_notified_at", nil).Error
}
