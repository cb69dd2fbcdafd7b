package handler

import "certhub/internal/service"

// Handler aggregates every HTTP handler.
type Handler struct {
	Template    *TemplateHandler
	Approval    *ApprovalHandler
	Certificate *CertificateHandler
	Verify      *VerifyHandler
	Health      *HealthHandler
}

// NewHandler builds the aggregate.
func NewHandler(svc *service.Service, checks ...HealthCheck) *Handler {
	return &Handler{
		Template:    NewTemplateHandler(svc.Template),
		Approval:    NewApprovalHandler(svc.Approval),
		Certificate: NewCertificateHandler(svc.Generator, svc.Bulk, svc.Registry, svc.Delivery),
		Verify:      NewVerifyHandler(svc.Verification),
		Health:      NewHealthHandler(checks...),
	}
}
