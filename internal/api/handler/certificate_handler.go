package handler

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"certhub/internal/dto"
	"certhub/internal/service"
	"certhub/pkg/response"
)

// MaxImportFileSize upper bound of an uploaded .xlsx sheet.
const MaxImportFileSize = 5 << 20

// ImportUploadLimit request body cap for the import route: the sheet plus
// room for the multipart envelope and form fields.
const ImportUploadLimit = MaxImportFileSize + 64<<10

// CertificateHandler certificate registry endpoints.
type CertificateHandler struct {
	generatorSvc service.GeneratorService
	bulkSvc      service.BulkService
	registrySvc  service.RegistryService
	deliverySvc  service.DeliveryService
}

// NewCertificateHandler creates a CertificateHandler.
func NewCertificateHandler(
	generatorSvc service.GeneratorService,
	bulkSvc service.BulkService,
	registrySvc service.RegistryService,
	deliverySvc service.DeliveryService,
) *CertificateHandler {
	return &CertificateHandler{
		generatorSvc: generatorSvc,
		bulkSvc:      bulkSvc,
		registrySvc:  registrySvc,
		deliverySvc:  deliverySvc,
	}
}

// Generate POST /api/v1/certificates
func (h *CertificateHandler) Generate(c *gin.Context) {
	var req dto.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	cert, err := h.generatorSvc.Generate(c.Request.Context(), req.CandidateID, req.CourseID, req.TemplateID, dto.GenerateOptions{
		Grade:      req.Grade,
		Remarks:    req.Remarks,
		IssueDate:  req.IssueDate,
		ExpiryDate: req.ExpiryDate,
	}, callerID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Created(c, cert)
}

// BulkGenerate POST /api/v1/certificates/bulk
// Per-candidate failures are reported in the body; the call itself succeeds.
func (h *CertificateHandler) BulkGenerate(c *gin.Context) {
	var req dto.BulkGenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.bulkSvc.BulkGenerate(c.Request.Context(), &req, callerID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, result)
}

// BulkImport POST /api/v1/certificates/bulk/import (multipart: file, course_id, template_id?, issue_date?)
func (h *CertificateHandler) BulkImport(c *gin.Context) {
	var form dto.BulkImportForm
	if err := c.ShouldBind(&form); err != nil {
		respondBindError(c, err)
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, 10001, "file is required")
		return
	}
	if strings.ToLower(filepath.Ext(fh.Filename)) != ".xlsx" {
		response.BadRequest(c, 10001, "only .xlsx files are accepted")
		return
	}
	if fh.Size > MaxImportFileSize {
		response.Error(c, http.StatusRequestEntityTooLarge, 10005, "file too large")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	f, err := fh.Open()
	if err != nil {
		response.BadRequest(c, 10001, "cannot read uploaded file")
		return
	}
	defer f.Close()

	result, err := h.bulkSvc.BulkImport(c.Request.Context(), &form, f, callerID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, result)
}

// ListCertificates GET /api/v1/certificates
func (h *CertificateHandler) ListCertificates(c *gin.Context) {
	var req dto.CertificateListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	list, total, err := h.registrySvc.List(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// GetCertificate GET /api/v1/certificates/:id
func (h *CertificateHandler) GetCertificate(c *gin.Context) {
	cert, err := h.registrySvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, cert)
}

// Download GET /api/v1/certificates/:id/download
func (h *CertificateHandler) Download(c *gin.Context) {
	file, err := h.deliverySvc.Download(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

// Send POST /api/v1/certificates/:id/send
func (h *CertificateHandler) Send(c *gin.Context) {
	var req dto.SendRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	ack, err := h.deliverySvc.Send(c.Request.Context(), c.Param("id"), req.Email, callerID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Accepted(c, ack)
}

// Revoke POST /api/v1/certificates/:id/revoke
func (h *CertificateHandler) Revoke(c *gin.Context) {
	var req dto.RevokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	cert, err := h.registrySvc.Revoke(c.Request.Context(), c.Param("id"), req.Reason, callerID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, cert)
}

// Reissue POST /api/v1/certificates/:id/reissue
func (h *CertificateHandler) Reissue(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	cert, err := h.registrySvc.Reissue(c.Request.Context(), c.Param("id"), callerID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Created(c, cert)
}
