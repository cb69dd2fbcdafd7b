package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"certhub/internal/api/middleware"
	"certhub/internal/dto"
	"certhub/internal/service"
	"certhub/internal/worker/delivery"
	"certhub/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.RegisterValidators()
}

const (
	testCandidateID = "0b6f6a2e-7c4e-4d0f-9a51-1d7f3c0a0001"
	testCourseID    = "5e1c2d3b-8a9f-4b7e-b6c5-2f4e6a8c0001"
	testCertID      = "3c2b1a09-8f7e-4d6c-9b5a-4f3e2d1c0001"
)

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock TemplateService ──

type mockTemplateService struct {
	result    *dto.TemplateResponse
	list      []dto.TemplateResponse
	total     int64
	err       error
	deleteErr error
}

func (m *mockTemplateService) Create(_ context.Context, _ *dto.CreateTemplateRequest, _ string) (*dto.TemplateResponse, error) {
	return m.result, m.err
}
func (m *mockTemplateService) GetByID(_ context.Context, _ string) (*dto.TemplateResponse, error) {
	return m.result, m.err
}
func (m *mockTemplateService) List(_ context.Context, _ *dto.TemplateListRequest) ([]dto.TemplateResponse, int64, error) {
	return m.list, m.total, m.err
}
func (m *mockTemplateService) Update(_ context.Context, _ string, _ *dto.UpdateTemplateRequest, _ string) (*dto.TemplateResponse, error) {
	return m.result, m.err
}
func (m *mockTemplateService) Delete(_ context.Context, _ string, _ string) error {
	return m.deleteErr
}

// ── Mock ApprovalService ──

type mockApprovalService struct {
	request    *dto.ApprovalRequestResponse
	process    *dto.ProcessResponse
	list       []dto.ApprovalRequestResponse
	total      int64
	err        error
	lastAction string
	lastCreate *dto.CreateApprovalRequest
}

func (m *mockApprovalService) CreateRequest(_ context.Context, req *dto.CreateApprovalRequest, _ string) (*dto.ApprovalRequestResponse, error) {
	m.lastCreate = req
	return m.request, m.err
}
func (m *mockApprovalService) List(_ context.Context, _ *dto.ApprovalListRequest) ([]dto.ApprovalRequestResponse, int64, error) {
	return m.list, m.total, m.err
}
func (m *mockApprovalService) GetByID(_ context.Context, _ string) (*dto.ApprovalRequestResponse, error) {
	return m.request, m.err
}
func (m *mockApprovalService) Approve(_ context.Context, _ string, _ dto.ApproveInput, _ string) (*dto.ProcessResponse, error) {
	return m.process, m.err
}
func (m *mockApprovalService) Reject(_ context.Context, _ string, _ string, _ string) (*dto.ProcessResponse, error) {
	return m.process, m.err
}
func (m *mockApprovalService) Process(_ context.Context, _ string, req *dto.ProcessRequest, _ string) (*dto.ProcessResponse, error) {
	m.lastAction = req.Action
	return m.process, m.err
}

// ── Mock certificate services ──

type mockGeneratorService struct {
	result *dto.CertificateResponse
	err    error
}

func (m *mockGeneratorService) Generate(_ context.Context, _, _ string, _ *string, _ dto.GenerateOptions, _ string) (*dto.CertificateResponse, error) {
	return m.result, m.err
}

type mockBulkService struct {
	result     *dto.BulkGenerateResponse
	err        error
	importBody []byte
}

func (m *mockBulkService) BulkGenerate(_ context.Context, _ *dto.BulkGenerateRequest, _ string) (*dto.BulkGenerateResponse, error) {
	return m.result, m.err
}
func (m *mockBulkService) BulkImport(_ context.Context, _ *dto.BulkImportForm, file io.Reader, _ string) (*dto.BulkGenerateResponse, error) {
	m.importBody, _ = io.ReadAll(file)
	return m.result, m.err
}

type mockRegistryService struct {
	result     *dto.CertificateResponse
	list       []dto.CertificateResponse
	total      int64
	err        error
	lastReason string
}

func (m *mockRegistryService) GetByID(_ context.Context, _ string) (*dto.CertificateResponse, error) {
	return m.result, m.err
}
func (m *mockRegistryService) List(_ context.Context, _ *dto.CertificateListRequest) ([]dto.CertificateResponse, int64, error) {
	return m.list, m.total, m.err
}
func (m *mockRegistryService) Revoke(_ context.Context, _ string, reason string, _ string) (*dto.CertificateResponse, error) {
	m.lastReason = reason
	return m.result, m.err
}
func (m *mockRegistryService) Reissue(_ context.Context, _ string, _ string) (*dto.CertificateResponse, error) {
	return m.result, m.err
}

type mockDeliveryService struct {
	file      *dto.DownloadFile
	ack       *dto.SendAck
	err       error
	lastEmail string
}

func (m *mockDeliveryService) Download(_ context.Context, _ string) (*dto.DownloadFile, error) {
	return m.file, m.err
}
func (m *mockDeliveryService) Send(_ context.Context, _ string, email string, _ string) (*dto.SendAck, error) {
	m.lastEmail = email
	return m.ack, m.err
}
func (m *mockDeliveryService) Process(_ context.Context, _ delivery.Job) error { return nil }
func (m *mockDeliveryService) SendExpiryReminders(_ context.Context) (int, error) {
	return 0, nil
}

type mockVerificationService struct {
	result *dto.VerifyResponse
	err    error
}

func (m *mockVerificationService) Verify(_ context.Context, _ string) (*dto.VerifyResponse, error) {
	return m.result, m.err
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

func setupGin() (*gin.Engine, *gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, r := gin.CreateTestContext(w)
	return r, c, w
}

func setAuth(c *gin.Context) {
	c.Set("user_id", "9d8c7b6a-5f4e-4d3c-8b2a-1f0e9d8c0001")
	c.Set("role", "admin")
	c.Set("token_jti", "test-jti")
}

func withAuth(h gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		setAuth(c)
		h(c)
	}
}

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

func newCertificateHandler(gen *mockGeneratorService, bulk *mockBulkService, reg *mockRegistryService, del *mockDeliveryService) *CertificateHandler {
	if gen == nil {
		gen = &mockGeneratorService{}
	}
	if bulk == nil {
		bulk = &mockBulkService{}
	}
	if reg == nil {
		reg = &mockRegistryService{}
	}
	if del == nil {
		del = &mockDeliveryService{}
	}
	return NewCertificateHandler(gen, bulk, reg, del)
}

// ═══════════════════════════════════════════════════════════
// Error mapping
// ═══════════════════════════════════════════════════════════

func TestRespondError_KindTable(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   int
	}{
		{service.ErrCertificateNotFound, http.StatusNotFound, 20001},
		{service.ErrTemplateNotFound, http.StatusNotFound, 20002},
		{service.ErrRequestNotPending, http.StatusConflict, 20003},
		{service.ErrAlreadyRevoked, http.StatusConflict, 20004},
		{service.ErrDuplicateActive, http.StatusConflict, 20005},
		{service.ErrDuplicatePendingRequest, http.StatusConflict, 20006},
		{service.ErrTemplateInactive, http.StatusUnprocessableEntity, 20007},
		{service.ErrNoActiveTemplate, http.StatusUnprocessableEntity, 20008},
		{service.ErrTamperDetected, http.StatusUnprocessableEntity, 20009},
		{service.ErrTemplateVersionStale, http.StatusConflict, 20010},
		{service.ErrDeliveryQueueFull, http.StatusServiceUnavailable, 20011},
		{service.ErrRevocationReasonRequired, http.StatusBadRequest, 10001},
		{errors.New("pq: connection refused"), http.StatusInternalServerError, 50000},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			_, _, w := setupGin()
			r := gin.New()
			r.GET("/x", func(c *gin.Context) { respondError(c, tc.err) })
			r.ServeHTTP(w, httptest.NewRequest("GET", "/x", nil))

			if w.Code != tc.status {
				t.Errorf("expected %d, got %d", tc.status, w.Code)
			}
			resp := parseResponse(w)
			if resp.Code != tc.code {
				t.Errorf("expected code %d, got %d", tc.code, resp.Code)
			}
			if tc.code == 50000 && resp.Message != "internal server error" {
				t.Errorf("internal error text leaked: %q", resp.Message)
			}
		})
	}
}

// ═══════════════════════════════════════════════════════════
// CertificateHandler Tests
// ═══════════════════════════════════════════════════════════

func TestCertificateHandler_Generate_Success(t *testing.T) {
	gen := &mockGeneratorService{result: &dto.CertificateResponse{ID: testCertID, CertificateNumber: "CERT-2026-000001"}}
	h := newCertificateHandler(gen, nil, nil, nil)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/certificates", jsonBody(dto.GenerateRequest{
		CandidateID: testCandidateID,
		CourseID:    testCourseID,
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/certificates", withAuth(h.Generate))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", w.Code)
	}
	resp := parseResponse(w)
	data, _ := resp.Data.(map[string]interface{})
	if data["certificate_number"] != "CERT-2026-000001" {
		t.Errorf("unexpected data %v", resp.Data)
	}
}

func TestCertificateHandler_Generate_BodyTooLarge(t *testing.T) {
	h := newCertificateHandler(&mockGeneratorService{}, nil, nil, nil)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/certificates", jsonBody(dto.GenerateRequest{
		CandidateID: testCandidateID,
		CourseID:    testCourseID,
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.Use(middleware.BodyLimit(16, nil))
	r.POST("/certificates", withAuth(h.Generate))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 10005 {
		t.Errorf("expected code 10005, got %d", resp.Code)
	}
}

func TestCertificateHandler_Generate_Validation(t *testing.T) {
	h := newCertificateHandler(nil, nil, nil, nil)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/certificates", jsonBody(map[string]string{
		"candidate_id": "nope",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/certificates", withAuth(h.Generate))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	resp := parseResponse(w)
	details, _ := resp.Details.([]interface{})
	if resp.Code != 10001 || len(details) != 2 {
		t.Errorf("expected two field errors, got %v", resp.Details)
	}
}

func TestCertificateHandler_Generate_DuplicateActive(t *testing.T) {
	gen := &mockGeneratorService{err: service.ErrDuplicateActive}
	h := newCertificateHandler(gen, nil, nil, nil)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/certificates", jsonBody(dto.GenerateRequest{
		CandidateID: testCandidateID,
		CourseID:    testCourseID,
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/certificates", withAuth(h.Generate))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
	resp := parseResponse(w)
	details, _ := resp.Details.(map[string]interface{})
	if details["kind"] != "DuplicateActiveCertificate" {
		t.Errorf("expected kind in details, got %v", resp.Details)
	}
}

func TestCertificateHandler_Generate_Unauthenticated(t *testing.T) {
	h := newCertificateHandler(nil, nil, nil, nil)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/certificates", jsonBody(dto.GenerateRequest{
		CandidateID: testCandidateID,
		CourseID:    testCourseID,
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/certificates", h.Generate)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestCertificateHandler_BulkGenerate_PartialFailureIs200(t *testing.T) {
	bulk := &mockBulkService{result: &dto.BulkGenerateResponse{Total: 2, Succeeded: 1, Failed: 1}}
	h := newCertificateHandler(nil, bulk, nil, nil)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/certificates/bulk", jsonBody(dto.BulkGenerateRequest{
		CourseID:     testCourseID,
		CandidateIDs: []string{testCandidateID, "0b6f6a2e-7c4e-4d0f-9a51-1d7f3c0a0002"},
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/certificates/bulk", withAuth(h.BulkGenerate))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestCertificateHandler_BulkGenerate_EmptyList(t *testing.T) {
	h := newCertificateHandler(nil, nil, nil, nil)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/certificates/bulk", jsonBody(dto.BulkGenerateRequest{
		CourseID:     testCourseID,
		CandidateIDs: []string{},
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/certificates/bulk", withAuth(h.BulkGenerate))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func multipartUpload(t *testing.T, filename string, content []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(content)
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestCertificateHandler_BulkImport(t *testing.T) {
	bulk := &mockBulkService{result: &dto.BulkGenerateResponse{Total: 1, Succeeded: 1}}
	h := newCertificateHandler(nil, bulk, nil, nil)

	body, ct := multipartUpload(t, "Cohort.XLSX", []byte("sheet-bytes"), map[string]string{"course_id": testCourseID})

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/certificates/bulk/import", body)
	req.Header.Set("Content-Type", ct)

	r := gin.New()
	r.POST("/certificates/bulk/import", withAuth(h.BulkImport))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if string(bulk.importBody) != "sheet-bytes" {
		t.Errorf("service received %q", bulk.importBody)
	}
}

func TestCertificateHandler_BulkImport_RejectsUpload(t *testing.T) {
	cases := []struct {
		name     string
		filename string
		fields   map[string]string
	}{
		{"missing file", "", map[string]string{"course_id": testCourseID}},
		{"csv", "cohort.csv", map[string]string{"course_id": testCourseID}},
		{"missing course", "cohort.xlsx", map[string]string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newCertificateHandler(nil, nil, nil, nil)
			body, ct := multipartUpload(t, tc.filename, []byte("x"), tc.fields)

			_, _, w := setupGin()
			req := httptest.NewRequest("POST", "/certificates/bulk/import", body)
			req.Header.Set("Content-Type", ct)

			r := gin.New()
			r.POST("/certificates/bulk/import", withAuth(h.BulkImport))
			r.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", w.Code)
			}
		})
	}
}

func TestCertificateHandler_ListCertificates(t *testing.T) {
	reg := &mockRegistryService{list: []dto.CertificateResponse{{ID: testCertID}}, total: 41}
	h := newCertificateHandler(nil, nil, reg, nil)

	_, _, w := setupGin()
	req := httptest.NewRequest("GET", "/certificates?status=REVOKED&page=2&page_size=20", nil)

	r := gin.New()
	r.GET("/certificates", withAuth(h.ListCertificates))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	resp := parseResponse(w)
	data, _ := resp.Data.(map[string]interface{})
	pagination, _ := data["pagination"].(map[string]interface{})
	if pagination["total_pages"] != float64(3) || pagination["page"] != float64(2) {
		t.Errorf("unexpected pagination %v", pagination)
	}
}

func TestCertificateHandler_ListCertificates_BadStatus(t *testing.T) {
	h := newCertificateHandler(nil, nil, nil, nil)

	_, _, w := setupGin()
	req := httptest.NewRequest("GET", "/certificates?status=DRAFT", nil)

	r := gin.New()
	r.GET("/certificates", withAuth(h.ListCertificates))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestCertificateHandler_Download(t *testing.T) {
	del := &mockDeliveryService{file: &dto.DownloadFile{
		Filename:    "CERT-2026-000001.pdf",
		ContentType: "application/pdf",
		Data:        []byte("%PDF-1.7"),
	}}
	h := newCertificateHandler(nil, nil, nil, del)

	_, _, w := setupGin()
	req := httptest.NewRequest("GET", "/certificates/"+testCertID+"/download", nil)

	r := gin.New()
	r.GET("/certificates/:id/download", withAuth(h.Download))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("content type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); cd != `attachment; filename="CERT-2026-000001.pdf"` {
		t.Errorf("content disposition = %q", cd)
	}
	if w.Body.String() != "%PDF-1.7" {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestCertificateHandler_Send(t *testing.T) {
	del := &mockDeliveryService{ack: &dto.SendAck{JobID: "job-1", CertificateID: testCertID}}
	h := newCertificateHandler(nil, nil, nil, del)

	r := gin.New()
	r.POST("/certificates/:id/send", withAuth(h.Send))

	// no body: candidate's own address
	_, _, w := setupGin()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/certificates/"+testCertID+"/send", nil))
	if w.Code != http.StatusAccepted {
		t.Errorf("expected 202, got %d", w.Code)
	}
	if del.lastEmail != "" {
		t.Errorf("email = %q, want empty", del.lastEmail)
	}

	_, _, w = setupGin()
	req := httptest.NewRequest("POST", "/certificates/"+testCertID+"/send", jsonBody(dto.SendRequest{Email: "hr@example.com"}))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusAccepted || del.lastEmail != "hr@example.com" {
		t.Errorf("expected 202 to hr@example.com, got %d %q", w.Code, del.lastEmail)
	}

	_, _, w = setupGin()
	req = httptest.NewRequest("POST", "/certificates/"+testCertID+"/send", jsonBody(dto.SendRequest{Email: "not-an-email"}))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad email, got %d", w.Code)
	}
}

func TestCertificateHandler_Send_NotDeliverable(t *testing.T) {
	del := &mockDeliveryService{err: service.ErrCertificateNotDeliverable}
	h := newCertificateHandler(nil, nil, nil, del)

	_, _, w := setupGin()
	r := gin.New()
	r.POST("/certificates/:id/send", withAuth(h.Send))
	r.ServeHTTP(w, httptest.NewRequest("POST", "/certificates/"+testCertID+"/send", nil))

	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
}

func TestCertificateHandler_Revoke(t *testing.T) {
	reg := &mockRegistryService{result: &dto.CertificateResponse{ID: testCertID, Status: "REVOKED"}}
	h := newCertificateHandler(nil, nil, reg, nil)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/certificates/"+testCertID+"/revoke", jsonBody(dto.RevokeRequest{Reason: "issued in error"}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/certificates/:id/revoke", withAuth(h.Revoke))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if reg.lastReason != "issued in error" {
		t.Errorf("reason = %q", reg.lastReason)
	}
}

func TestCertificateHandler_Revoke_AlreadyRevoked(t *testing.T) {
	reg := &mockRegistryService{err: service.ErrAlreadyRevoked}
	h := newCertificateHandler(nil, nil, reg, nil)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/certificates/"+testCertID+"/revoke", jsonBody(dto.RevokeRequest{Reason: "again"}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/certificates/:id/revoke", withAuth(h.Revoke))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 20004 {
		t.Errorf("expected code 20004, got %d", resp.Code)
	}
}

func TestCertificateHandler_Reissue(t *testing.T) {
	reg := &mockRegistryService{result: &dto.CertificateResponse{ID: "new-id"}}
	h := newCertificateHandler(nil, nil, reg, nil)

	_, _, w := setupGin()
	r := gin.New()
	r.POST("/certificates/:id/reissue", withAuth(h.Reissue))
	r.ServeHTTP(w, httptest.NewRequest("POST", "/certificates/"+testCertID+"/reissue", nil))

	if w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// ApprovalHandler Tests
// ═══════════════════════════════════════════════════════════

func TestApprovalHandler_CreateRequest_DuplicatePending(t *testing.T) {
	h := NewApprovalHandler(&mockApprovalService{err: service.ErrDuplicatePendingRequest})

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/certificate-requests", jsonBody(dto.CreateApprovalRequest{
		CandidateID: testCandidateID,
		CourseID:    testCourseID,
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/certificate-requests", withAuth(h.CreateRequest))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 20006 {
		t.Errorf("expected code 20006, got %d", resp.Code)
	}
}

func TestApprovalHandler_CreateRequest_TrainerFilesOwnRequest(t *testing.T) {
	const trainerID = "9d8c7b6a-5f4e-4d3c-8b2a-1f0e9d8c0002"
	other := "9d8c7b6a-5f4e-4d3c-8b2a-1f0e9d8c0003"
	mock := &mockApprovalService{request: &dto.ApprovalRequestResponse{ID: "req-1", Status: "PENDING"}}
	h := NewApprovalHandler(mock)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/certificate-requests", jsonBody(dto.CreateApprovalRequest{
		CandidateID: testCandidateID,
		CourseID:    testCourseID,
		TrainerID:   &other,
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/certificate-requests", func(c *gin.Context) {
		c.Set("user_id", trainerID)
		c.Set("role", "trainer")
		h.CreateRequest(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	if mock.lastCreate == nil || mock.lastCreate.TrainerID == nil || *mock.lastCreate.TrainerID != trainerID {
		t.Errorf("trainer id should be the caller, got %+v", mock.lastCreate)
	}
}

func TestApprovalHandler_CreateRequest_ScoreOutOfRange(t *testing.T) {
	h := NewApprovalHandler(&mockApprovalService{})

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/certificate-requests", jsonBody(map[string]interface{}{
		"candidate_id":     testCandidateID,
		"course_id":        testCourseID,
		"assessment_score": 140,
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/certificate-requests", withAuth(h.CreateRequest))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestApprovalHandler_ProcessRequest(t *testing.T) {
	mock := &mockApprovalService{process: &dto.ProcessResponse{
		Request:     &dto.ApprovalRequestResponse{ID: "req-1", Status: "APPROVED"},
		Certificate: &dto.CertificateResponse{ID: testCertID},
	}}
	h := NewApprovalHandler(mock)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/certificate-requests/req-1/process", jsonBody(dto.ProcessRequest{Action: "approve", Grade: "A"}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/certificate-requests/:id/process", withAuth(h.ProcessRequest))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if mock.lastAction != "approve" {
		t.Errorf("action = %q", mock.lastAction)
	}
}

func TestApprovalHandler_ProcessRequest_BadAction(t *testing.T) {
	h := NewApprovalHandler(&mockApprovalService{})

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/certificate-requests/req-1/process", jsonBody(dto.ProcessRequest{Action: "maybe"}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/certificate-requests/:id/process", withAuth(h.ProcessRequest))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestApprovalHandler_ProcessRequest_NotPending(t *testing.T) {
	h := NewApprovalHandler(&mockApprovalService{err: service.ErrRequestNotPending})

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/certificate-requests/req-1/process", jsonBody(dto.ProcessRequest{Action: "reject"}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/certificate-requests/:id/process", withAuth(h.ProcessRequest))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
}

func TestApprovalHandler_ListRequests(t *testing.T) {
	h := NewApprovalHandler(&mockApprovalService{list: []dto.ApprovalRequestResponse{{ID: "req-1"}}, total: 1})

	_, _, w := setupGin()
	r := gin.New()
	r.GET("/certificate-requests", withAuth(h.ListRequests))
	r.ServeHTTP(w, httptest.NewRequest("GET", "/certificate-requests?status=ALL", nil))

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	_, _, w = setupGin()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/certificate-requests?status=DONE", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown status, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// TemplateHandler Tests
// ═══════════════════════════════════════════════════════════

func TestTemplateHandler_CreateTemplate(t *testing.T) {
	h := NewTemplateHandler(&mockTemplateService{result: &dto.TemplateResponse{ID: "tmpl-1", Version: 1}})

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/certificate-templates", jsonBody(dto.CreateTemplateRequest{
		Name:    "Standard",
		Content: dto.TemplateContentPayload{Body: "Awarded to {candidateName}"},
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/certificate-templates", withAuth(h.CreateTemplate))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", w.Code)
	}
}

func TestTemplateHandler_CreateTemplate_BadDesign(t *testing.T) {
	h := NewTemplateHandler(&mockTemplateService{})

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/certificate-templates", jsonBody(dto.CreateTemplateRequest{
		Name:    "Standard",
		Design:  dto.TemplateDesignPayload{BorderColor: "navy", Orientation: "diagonal"},
		Content: dto.TemplateContentPayload{Body: "x"},
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/certificate-templates", withAuth(h.CreateTemplate))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestTemplateHandler_UpdateTemplate_Stale(t *testing.T) {
	h := NewTemplateHandler(&mockTemplateService{err: service.ErrTemplateVersionStale})

	_, _, w := setupGin()
	name := "Renamed"
	req := httptest.NewRequest("PUT", "/certificate-templates/tmpl-1", jsonBody(dto.UpdateTemplateRequest{Name: &name, Version: 1}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.PUT("/certificate-templates/:id", withAuth(h.UpdateTemplate))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
}

func TestTemplateHandler_DeleteTemplate_NotFound(t *testing.T) {
	h := NewTemplateHandler(&mockTemplateService{deleteErr: service.ErrTemplateNotFound})

	_, _, w := setupGin()
	r := gin.New()
	r.DELETE("/certificate-templates/:id", withAuth(h.DeleteTemplate))
	r.ServeHTTP(w, httptest.NewRequest("DELETE", "/certificate-templates/tmpl-1", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 20002 {
		t.Errorf("expected code 20002, got %d", resp.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// VerifyHandler Tests
// ═══════════════════════════════════════════════════════════

func TestVerifyHandler(t *testing.T) {
	cases := []struct {
		name   string
		number string
		mock   *mockVerificationService
		status int
		code   int
	}{
		{"valid", "CERT-2026-000001", &mockVerificationService{result: &dto.VerifyResponse{Valid: true, Status: "ISSUED"}}, http.StatusOK, 0},
		{"revoked is still 200", "CERT-2026-000002", &mockVerificationService{result: &dto.VerifyResponse{Status: "REVOKED"}}, http.StatusOK, 0},
		{"malformed number", "hello", &mockVerificationService{}, http.StatusBadRequest, 10001},
		{"not found", "CERT-2026-999999", &mockVerificationService{err: service.ErrCertificateNotFound}, http.StatusNotFound, 20001},
		{"tampered", "CERT-2026-000003", &mockVerificationService{err: service.ErrTamperDetected}, http.StatusUnprocessableEntity, 20009},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewVerifyHandler(tc.mock)

			_, _, w := setupGin()
			r := gin.New()
			r.GET("/verify/:number", h.Verify)
			r.ServeHTTP(w, httptest.NewRequest("GET", "/verify/"+tc.number, nil))

			if w.Code != tc.status {
				t.Errorf("expected %d, got %d", tc.status, w.Code)
			}
			if resp := parseResponse(w); resp.Code != tc.code {
				t.Errorf("expected code %d, got %d", tc.code, resp.Code)
			}
		})
	}
}

// ═══════════════════════════════════════════════════════════
// HealthHandler Tests
// ═══════════════════════════════════════════════════════════

func TestHealthHandler(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("down") }

	cases := []struct {
		name   string
		checks []HealthCheck
		status int
	}{
		{"all up", []HealthCheck{{Name: "database", Required: true, Check: ok}, {Name: "redis", Check: ok}}, http.StatusOK},
		{"optional down", []HealthCheck{{Name: "database", Required: true, Check: ok}, {Name: "redis", Check: down}}, http.StatusOK},
		{"required down", []HealthCheck{{Name: "database", Required: true, Check: down}}, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHealthHandler(tc.checks...)

			_, _, w := setupGin()
			r := gin.New()
			r.GET("/health", h.Health)
			r.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

			if w.Code != tc.status {
				t.Errorf("expected %d, got %d", tc.status, w.Code)
			}
		})
	}
}
