package handler

import (
	"github.com/gin-gonic/gin"

	"certhub/internal/dto"
	"certhub/internal/service"
	"certhub/pkg/response"
)

// TemplateHandler certificate template endpoints.
type TemplateHandler struct {
	templateSvc service.TemplateService
}

// NewTemplateHandler creates a TemplateHandler.
func NewTemplateHandler(templateSvc service.TemplateService) *TemplateHandler {
	return &TemplateHandler{templateSvc: templateSvc}
}

// ListTemplates GET /api/v1/certificate-templates
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	var req dto.TemplateListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	list, total, err := h.templateSvc.List(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// GetTemplate GET /api/v1/certificate-templates/:id
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	tmpl, err := h.templateSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, tmpl)
}

// CreateTemplate POST /api/v1/certificate-templates
func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	var req dto.CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	tmpl, err := h.templateSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Created(c, tmpl)
}

// UpdateTemplate PUT /api/v1/certificate-templates/:id
func (h *TemplateHandler) UpdateTemplate(c *gin.Context) {
	var req dto.UpdateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	tmpl, err := h.templateSvc.Update(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, tmpl)
}

// DeleteTemplate DELETE /api/v1/certificate-templates/:id
func (h *TemplateHandler) DeleteTemplate(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.templateSvc.Delete(c.Request.Context(), c.Param("id"), callerID); err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, nil)
}
