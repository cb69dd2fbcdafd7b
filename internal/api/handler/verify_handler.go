package handler

import (
	"github.com/gin-gonic/gin"

	"certhub/internal/service"
	"certhub/pkg/response"
)

// VerifyHandler public verification endpoint.
type VerifyHandler struct {
	verificationSvc service.VerificationService
}

// NewVerifyHandler creates a VerifyHandler.
func NewVerifyHandler(verificationSvc service.VerificationService) *VerifyHandler {
	return &VerifyHandler{verificationSvc: verificationSvc}
}

type verifyURI struct {
	Number string `uri:"number" binding:"required,certnumber"`
}

// Verify GET /api/v1/verify/:number
// A revoked or expired certificate is a successful lookup with valid=false.
func (h *VerifyHandler) Verify(c *gin.Context) {
	var uri verifyURI
	if err := c.ShouldBindUri(&uri); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.verificationSvc.Verify(c.Request.Context(), uri.Number)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, result)
}
