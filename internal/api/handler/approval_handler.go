package handler

import (
	"github.com/gin-gonic/gin"

	"certhub/internal/dto"
	"certhub/internal/service"
	"certhub/pkg/jwt"
	"certhub/pkg/response"
)

// ApprovalHandler certificate request queue endpoints.
type ApprovalHandler struct {
	approvalSvc service.ApprovalService
}

// NewApprovalHandler creates an ApprovalHandler.
func NewApprovalHandler(approvalSvc service.ApprovalService) *ApprovalHandler {
	return &ApprovalHandler{approvalSvc: approvalSvc}
}

// ListRequests GET /api/v1/certificate-requests
// Defaults to PENDING, oldest first.
func (h *ApprovalHandler) ListRequests(c *gin.Context) {
	var req dto.ApprovalListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	list, total, err := h.approvalSvc.List(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// GetRequest GET /api/v1/certificate-requests/:id
func (h *ApprovalHandler) GetRequest(c *gin.Context) {
	ar, err := h.approvalSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, ar)
}

// CreateRequest POST /api/v1/certificate-requests
func (h *ApprovalHandler) CreateRequest(c *gin.Context) {
	var req dto.CreateApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	role, ok := MustGetRole(c)
	if !ok {
		return
	}
	// Trainers file requests in their own name.
	if role == jwt.RoleTrainer {
		req.TrainerID = &callerID
	}

	ar, err := h.approvalSvc.CreateRequest(c.Request.Context(), &req, callerID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Created(c, ar)
}

// ProcessRequest POST /api/v1/certificate-requests/:id/process
func (h *ApprovalHandler) ProcessRequest(c *gin.Context) {
	var req dto.ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	reviewerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.approvalSvc.Process(c.Request.Context(), c.Param("id"), &req, reviewerID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, result)
}
