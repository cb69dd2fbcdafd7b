package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"certhub/internal/dto"
	"certhub/internal/model"
	"certhub/internal/repository"
	pkgerrors "certhub/pkg/errors"
)

// TemplateService certificate template management.
type TemplateService interface {
	Create(ctx context.Context, req *dto.CreateTemplateRequest, callerID string) (*dto.TemplateResponse, error)
	GetByID(ctx context.Context, id string) (*dto.TemplateResponse, error)
	List(ctx context.Context, req *dto.TemplateListRequest) ([]dto.TemplateResponse, int64, error)
	Update(ctx context.Context, id string, req *dto.UpdateTemplateRequest, callerID string) (*dto.TemplateResponse, error)
	Delete(ctx context.Context, id string, callerID string) error
}

type templateService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewTemplateService creates a TemplateService.
func NewTemplateService(repo *repository.Repository, logger *zap.Logger) TemplateService {
	return &templateService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *templateService) Create(ctx context.Context, req *dto.CreateTemplateRequest, callerID string) (*dto.TemplateResponse, error) {
	content := toTemplateContent(req.Content)
	if err := validatePlaceholders(content); err != nil {
		return nil, err
	}
	design := withDesignDefaults(toTemplateDesign(req.Design))
	if err := validateDesign(design); err != nil {
		return nil, err
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}
	if req.IsDefault && !isActive {
		return nil, pkgerrors.Validation("a default template must be active")
	}

	tmpl := &model.CertificateTemplate{
		Name:        req.Name,
		Description: req.Description,
		CourseID:    req.CourseID,
		IsActive:    isActive,
		IsDefault:   req.IsDefault,
		Design:      datatypes.NewJSONType(design),
		Content:     datatypes.NewJSONType(content),
	}
	tmpl.CreatedBy = strPtr(callerID)
	tmpl.UpdatedBy = strPtr(callerID)

	tmpl.TemplateID = uuid.NewString()

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		// the previous default steps down first, one default per scope
		if tmpl.IsDefault {
			if err := tx.Template.ClearDefault(ctx, tmpl.CourseID, tmpl.TemplateID); err != nil {
				return err
			}
		}
		return tx.Template.Create(ctx, tmpl)
	})
	if err != nil {
		s.logger.Error("create template failed", zap.String("name", req.Name), zap.Error(err))
		return nil, err
	}

	return toTemplateResponse(tmpl), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *templateService) GetByID(ctx context.Context, id string) (*dto.TemplateResponse, error) {
	tmpl, err := s.repo.Template.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrTemplateNotFound
		}
		s.logger.Error("get template failed", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return toTemplateResponse(tmpl), nil
}

// ────────────────────── List ──────────────────────

func (s *templateService) List(ctx context.Context, req *dto.TemplateListRequest) ([]dto.TemplateResponse, int64, error) {
	filter := repository.TemplateFilter{
		IsActive: req.IsActive,
		Keyword:  req.Keyword,
	}
	if req.CourseID != "" {
		filter.CourseID = &req.CourseID
	}

	list, total, err := s.repo.Template.List(ctx, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("list templates failed", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.TemplateResponse, 0, len(list))
	for i := range list {
		result = append(result, *toTemplateResponse(&list[i]))
	}
	return result, total, nil
}

// ────────────────────── Update ──────────────────────

func (s *templateService) Update(ctx context.Context, id string, req *dto.UpdateTemplateRequest, callerID string) (*dto.TemplateResponse, error) {
	var tmpl *model.CertificateTemplate

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		tmpl, err = tx.Template.GetByID(ctx, id)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrTemplateNotFound
			}
			return err
		}
		if tmpl.Version != req.Version {
			return ErrTemplateVersionStale
		}

		if req.Name != nil {
			tmpl.Name = *req.Name
		}
		if req.Description != nil {
			tmpl.Description = *req.Description
		}
		if req.ClearCourse {
			tmpl.CourseID = nil
		} else if req.CourseID != nil {
			tmpl.CourseID = req.CourseID
		}
		if req.IsActive != nil {
			tmpl.IsActive = *req.IsActive
		}
		if req.IsDefault != nil {
			tmpl.IsDefault = *req.IsDefault
		}
		if !tmpl.IsActive {
			// an inactive template cannot stay the default
			tmpl.IsDefault = false
		}
		if req.Design != nil {
			design := withDesignDefaults(toTemplateDesign(*req.Design))
			if err := validateDesign(design); err != nil {
				return err
			}
			tmpl.Design = datatypes.NewJSONType(design)
		}
		if req.Content != nil {
			content := toTemplateContent(*req.Content)
			if err := validatePlaceholders(content); err != nil {
				return err
			}
			tmpl.Content = datatypes.NewJSONType(content)
		}
		tmpl.UpdatedBy = strPtr(callerID)

		if tmpl.IsDefault {
			if err := tx.Template.ClearDefault(ctx, tmpl.CourseID, tmpl.TemplateID); err != nil {
				return err
			}
		}
		return tx.Template.Update(ctx, tmpl)
	})
	if err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, ErrTemplateVersionStale
		}
		if pkgerrors.KindOf(err) == "" {
			s.logger.Error("update template failed", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}

	return toTemplateResponse(tmpl), nil
}

// ────────────────────── Delete ──────────────────────

// Delete soft-deletes the template. Issued certificates keep their own
// content snapshot, so nothing else changes.
func (s *templateService) Delete(ctx context.Context, id string, callerID string) error {
	if _, err := s.repo.Template.GetByID(ctx, id); err != nil {
		if repository.IsNotFound(err) {
			return ErrTemplateNotFound
		}
		s.logger.Error("get template failed", zap.String("id", id), zap.Error(err))
		return err
	}

	if err := s.repo.Template.Delete(ctx, id, callerID); err != nil {
		s.logger.Error("delete template failed", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ── helpers ──

func toTemplateContent(p dto.TemplateContentPayload) model.TemplateContent {
	return model.TemplateContent{Header: p.Header, Body: p.Body, Footer: p.Footer}
}

func toTemplateDesign(p dto.TemplateDesignPayload) model.TemplateDesign {
	return model.TemplateDesign{
		BackgroundColor: p.BackgroundColor,
		BorderColor:     p.BorderColor,
		FontFamily:      p.FontFamily,
		TitleFontSize:   p.TitleFontSize,
		BodyFontSize:    p.BodyFontSize,
		LogoURL:         p.LogoURL,
		SignatureURL:    p.SignatureURL,
		Orientation:     p.Orientation,
		Layout:          p.Layout,
	}
}

func withDesignDefaults(d model.TemplateDesign) model.TemplateDesign {
	if d.BackgroundColor == "" {
		d.BackgroundColor = "#ffffff"
	}
	if d.BorderColor == "" {
		d.BorderColor = "#1f3a5f"
	}
	if d.FontFamily == "" {
		d.FontFamily = "Georgia"
	}
	if d.TitleFontSize == 0 {
		d.TitleFontSize = 32
	}
	if d.BodyFontSize == 0 {
		d.BodyFontSize = 14
	}
	if d.Orientation == "" {
		d.Orientation = model.OrientationLandscape
	}
	if d.Layout == "" {
		d.Layout = model.LayoutClassic
	}
	return d
}

func validateDesign(d model.TemplateDesign) error {
	switch d.Orientation {
	case model.OrientationLandscape, model.OrientationPortrait:
	default:
		return pkgerrors.Validation(ErrTemplateDesign.Message + ": orientation must be landscape or portrait")
	}
	switch d.Layout {
	case model.LayoutClassic, model.LayoutModern, model.LayoutMinimal:
	default:
		return pkgerrors.Validation(ErrTemplateDesign.Message + ": layout must be classic, modern or minimal")
	}
	if d.TitleFontSize < 8 || d.TitleFontSize > 96 || d.BodyFontSize < 6 || d.BodyFontSize > 48 {
		return pkgerrors.Validation(ErrTemplateDesign.Message + ": font size out of range")
	}
	return nil
}

func toTemplateResponse(t *model.CertificateTemplate) *dto.TemplateResponse {
	d := t.Design.Data()
	c := t.Content.Data()
	return &dto.TemplateResponse{
		ID:          t.TemplateID,
		Name:        t.Name,
		Description: t.Description,
		CourseID:    t.CourseID,
		IsActive:    t.IsActive,
		IsDefault:   t.IsDefault,
		Design: dto.TemplateDesignPayload{
			BackgroundColor: d.BackgroundColor,
			BorderColor:     d.BorderColor,
			FontFamily:      d.FontFamily,
			TitleFontSize:   d.TitleFontSize,
			BodyFontSize:    d.BodyFontSize,
			LogoURL:         d.LogoURL,
			SignatureURL:    d.SignatureURL,
			Orientation:     d.Orientation,
			Layout:          d.Layout,
		},
		Content:   dto.TemplateContentPayload{Header: c.Header, Body: c.Body, Footer: c.Footer},
		Version:   t.Version,
		CreatedAt: formatTime(&t.CreatedAt),
		UpdatedAt: formatTime(&t.UpdatedAt),
	}
}
