package repository

import (
	"context"

	"gorm.io/gorm"

	"certhub/internal/model"
	pkgerrors "certhub/pkg/errors"
)

// TemplateFilter list filters.
type TemplateFilter struct {
	CourseID *string // nil = any
	IsActive *bool
	Keyword  string
}

// TemplateRepository certificate template data access.
type TemplateRepository interface {
	Create(ctx context.Context, t *model.CertificateTemplate) error
	GetByID(ctx context.Context, id string) (*model.CertificateTemplate, error)
	List(ctx context.Context, filter TemplateFilter, offset, limit int) ([]model.CertificateTemplate, int64, error)
	Update(ctx context.Context, t *model.CertificateTemplate) error
	Delete(ctx context.Context, id, callerID string) error
	// FindDefault returns the active default for courseID, or the global
	// default when courseID is nil.
	FindDefault(ctx context.Context, courseID *string) (*model.CertificateTemplate, error)
	// ClearDefault unsets is_default on every template in the scope except exceptID.
	ClearDefault(ctx context.Context, courseID *string, exceptID string) error
}

type templateRepo struct {
	db *gorm.DB
}

func NewTemplateRepo(db *gorm.DB) TemplateRepository {
	return &templateRepo{db: db}
}

func (r *templateRepo) Create(ctx context.Context, t *model.CertificateTemplate) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *templateRepo) GetByID(ctx context.Context, id string) (*model.CertificateTemplate, error) {
	var t model.CertificateTemplate
	if err := r.db.WithContext(ctx).Where("template_id = ?", id).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *templateRepo) List(ctx context.Context, filter TemplateFilter, offset, limit int) ([]model.CertificateTemplate, int64, error) {
	var (
		list  []model.CertificateTemplate
		total int64
	)

	db := r.db.WithContext(ctx).Model(&model.CertificateTemplate{})
	if filter.CourseID != nil {
		db = db.Where("course_id = ?", *filter.CourseID)
	}
	if filter.IsActive != nil {
		db = db.Where("is_active = ?", *filter.IsActive)
	}
	if filter.Keyword != "" {
		db = db.Where("LOWER(name) LIKE ? ESCAPE '\\'", likePattern(filter.Keyword))
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&list).Error
	return list, total, err
}

func (r *templateRepo) Update(ctx context.Context, t *model.CertificateTemplate) error {
	oldVersion := t.Version
	result := r.db.WithContext(ctx).
		Model(&model.CertificateTemplate{}).
		Where("template_id = ? AND version = ?", t.TemplateID, oldVersion).
		Updates(map[string]interface{}{
			"name":        t.Name,
			"description": t.Description,
			"course_id":   t.CourseID,
			"is_active":   t.IsActive,
			"is_default":  t.IsDefault,
			"design":      t.Design,
			"content":     t.Content,
			"updated_by":  t.UpdatedBy,
			"version":     oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	t.Version = oldVersion + 1
	return nil
}

func (r *templateRepo) Delete(ctx context.Context, id, callerID string) error {
	var deletedBy *string
	if callerID != "" {
		deletedBy = &callerID
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.CertificateTemplate{}).
			Where("template_id = ?", id).
			Updates(map[string]interface{}{"deleted_by": deletedBy, "is_default": false}).Error; err != nil {
			return err
		}
		return tx.Where("template_id = ?", id).Delete(&model.CertificateTemplate{}).Error
	})
}

func (r *templateRepo) FindDefault(ctx context.Context, courseID *string) (*model.CertificateTemplate, error) {
	var t model.CertificateTemplate
	db := r.db.WithContext(ctx).Where("is_default = ? AND is_active = ?", true, true)
	if courseID != nil {
		db = db.Where("course_id = ?", *courseID)
	} else {
		db = db.Where("course_id IS NULL")
	}
	if err := db.Order("updated_at DESC").First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *templateRepo) ClearDefault(ctx context.Context, courseID *string, exceptID string) error {
	db := r.db.WithContext(ctx).Model(&model.CertificateTemplate{}).
		Where("is_default = ? AND template_id <> ?", true, exceptID)
	if courseID != nil {
		db = db.Where("course_id = ?", *courseID)
	} else {
		db = db.Where("course_id IS NULL")
	}
	return db.Updates(map[string]interface{}{
		"is_default": false,
		"version":    gorm.Expr("version + 1"),
	}).Error
}
