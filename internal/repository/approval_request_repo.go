package repository

import (
	"context"

	"gorm.io/gorm"

	"certhub/internal/model"
	pkgerrors "certhub/pkg/errors"
)

// ApprovalRequestFilter list filters.
type ApprovalRequestFilter struct {
	Status   string // "" = any
	CourseID string
	Search   string // candidate name or email
}

// ApprovalRequestRepository approval queue data access.
type ApprovalRequestRepository interface {
	Create(ctx context.Context, req *model.ApprovalRequest) error
	GetByID(ctx context.Context, id string) (*model.ApprovalRequest, error)
	// GetByIDForUpdate locks the row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id string) (*model.ApprovalRequest, error)
	List(ctx context.Context, filter ApprovalRequestFilter, offset, limit int) ([]model.ApprovalRequest, int64, error)
	// UpdateDecision persists a review outcome, guarded by version.
	UpdateDecision(ctx context.Context, req *model.ApprovalRequest) error
}

type approvalRequestRepo struct {
	db *gorm.DB
}

func NewApprovalRequestRepo(db *gorm.DB) ApprovalRequestRepository {
	return &approvalRequestRepo{db: db}
}

func (r *approvalRequestRepo) Create(ctx context.Context, req *model.ApprovalRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *approvalRequestRepo) GetByID(ctx context.Context, id string) (*model.ApprovalRequest, error) {
	var req model.ApprovalRequest
	if err := r.db.WithContext(ctx).Where("request_id = ?", id).First(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *approvalRequestRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.ApprovalRequest, error) {
	var req model.ApprovalRequest
	if err := forUpdate(r.db.WithContext(ctx)).Where("request_id = ?", id).First(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *approvalRequestRepo) List(ctx context.Context, filter ApprovalRequestFilter, offset, limit int) ([]model.ApprovalRequest, int64, error) {
	var (
		list  []model.ApprovalRequest
		total int64
	)

	db := r.db.WithContext(ctx).Model(&model.ApprovalRequest{})
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if filter.CourseID != "" {
		db = db.Where("course_id = ?", filter.CourseID)
	}
	if filter.Search != "" {
		p := likePattern(filter.Search)
		db = db.Where("(LOWER(candidate_name) LIKE ? ESCAPE '\\' OR LOWER(candidate_email) LIKE ? ESCAPE '\\')", p, p)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	// oldest first
	err := db.Order("requested_at ASC, request_id ASC").Offset(offset).Limit(limit).Find(&list).Error
	return list, total, err
}

func (r *approvalRequestRepo) UpdateDecision(ctx context.Context, req *model.ApprovalRequest) error {
	oldVersion := req.Version
	result := r.db.WithContext(ctx).
		Model(&model.ApprovalRequest{}).
		Where("request_id = ? AND version = ?", req.RequestID, oldVersion).
		Updates(map[string]interface{}{
			"status":           req.Status,
			"reviewed_at":      req.ReviewedAt,
			"reviewed_by":      req.ReviewedBy,
			"rejection_reason": req.RejectionReason,
			"certificate_id":   req.CertificateID,
			"updated_by":       req.UpdatedBy,
			"version":          oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	req.Version = oldVersion + 1
	return nil
}
