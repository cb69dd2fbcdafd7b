package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"certhub/internal/dto"
	pkgerrors "certhub/pkg/errors"
	"certhub/pkg/metrics"
)

// BulkService generates certificates for many candidates of one course.
// Every candidate is issued in its own transaction; one failure never
// affects the others.
type BulkService interface {
	BulkGenerate(ctx context.Context, req *dto.BulkGenerateRequest, callerID string) (*dto.BulkGenerateResponse, error)
	BulkImport(ctx context.Context, form *dto.BulkImportForm, file io.Reader, callerID string) (*dto.BulkGenerateResponse, error)
}

type bulkService struct {
	gen         GeneratorService
	concurrency int
	maxItems    int
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

// NewBulkService creates a BulkService. concurrency bounds the number of
// issuances in flight.
func NewBulkService(gen GeneratorService, concurrency, maxItems int, m *metrics.Metrics, logger *zap.Logger) BulkService {
	if concurrency < 1 {
		concurrency = 1
	}
	if maxItems < 1 {
		maxItems = 500
	}
	return &bulkService{gen: gen, concurrency: concurrency, maxItems: maxItems, metrics: m, logger: logger}
}

type bulkItem struct {
	candidateID string
	row         int
}

type bulkJob struct {
	templateID *string
	courseID   string
	opts       dto.GenerateOptions
	callerID   string
}

// ────────────────────── BulkGenerate ──────────────────────

func (s *bulkService) BulkGenerate(ctx context.Context, req *dto.BulkGenerateRequest, callerID string) (*dto.BulkGenerateResponse, error) {
	items := make([]bulkItem, 0, len(req.CandidateIDs))
	for _, id := range req.CandidateIDs {
		items = append(items, bulkItem{candidateID: strings.TrimSpace(id)})
	}
	return s.run(ctx, items, bulkJob{
		templateID: req.TemplateID,
		courseID:   req.CourseID,
		opts:       dto.GenerateOptions{Grade: req.Grade, IssueDate: req.IssueDate},
		callerID:   callerID,
	})
}

// ────────────────────── BulkImport ──────────────────────

func (s *bulkService) BulkImport(ctx context.Context, form *dto.BulkImportForm, file io.Reader, callerID string) (*dto.BulkGenerateResponse, error) {
	rows, err := ParseBulkImportFile(file, s.maxItems)
	if err != nil {
		return nil, err
	}
	items := make([]bulkItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, bulkItem{candidateID: r.CandidateID, row: r.Row})
	}
	return s.run(ctx, items, bulkJob{
		templateID: strPtr(form.TemplateID),
		courseID:   form.CourseID,
		opts:       dto.GenerateOptions{IssueDate: form.IssueDate},
		callerID:   callerID,
	})
}

// run fans items out over a bounded pool. Results keep input order.
func (s *bulkService) run(ctx context.Context, items []bulkItem, job bulkJob) (*dto.BulkGenerateResponse, error) {
	if len(items) == 0 {
		return nil, ErrBulkEmpty
	}
	if len(items) > s.maxItems {
		return nil, ErrBulkTooLarge
	}

	// Bad dates would fail every item the same way.
	if _, err := parseDate(job.opts.IssueDate); err != nil {
		return nil, err
	}

	results := make([]dto.BulkItemResult, len(items))
	seen := make(map[string]int, len(items))

	// Items never fail the group: each records its own outcome.
	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for i, it := range items {
		results[i] = dto.BulkItemResult{CandidateID: it.candidateID, Row: it.row}

		if _, err := uuid.Parse(it.candidateID); err != nil {
			results[i].ErrorKind = string(pkgerrors.KindValidation)
			results[i].Error = "candidate id is not a valid uuid"
			continue
		}
		if first, dup := seen[it.candidateID]; dup {
			results[i].ErrorKind = string(pkgerrors.KindValidation)
			results[i].Error = fmt.Sprintf("duplicate of item %d in this batch", first+1)
			continue
		}
		seen[it.candidateID] = i

		candidateID := it.candidateID
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].ErrorKind = string(pkgerrors.KindUnavailable)
				results[i].Error = err.Error()
				return nil
			}
			cert, err := s.gen.Generate(ctx, candidateID, job.courseID, job.templateID, job.opts, job.callerID)
			if err != nil {
				results[i].ErrorKind, results[i].Error = describeItemError(err)
				return nil
			}
			results[i].CertificateID = cert.ID
			results[i].CertificateNumber = cert.CertificateNumber
			return nil
		})
	}
	_ = g.Wait()

	resp := &dto.BulkGenerateResponse{Total: len(items), Results: results}
	for _, r := range results {
		if r.Error == "" {
			resp.Succeeded++
			s.metrics.BulkItem("succeeded")
		} else {
			resp.Failed++
			s.metrics.BulkItem("failed")
		}
	}

	s.logger.Info("bulk generation finished",
		zap.String("course_id", job.courseID),
		zap.Int("total", resp.Total),
		zap.Int("succeeded", resp.Succeeded),
		zap.Int("failed", resp.Failed),
	)
	return resp, nil
}

func describeItemError(err error) (string, string) {
	if kind := pkgerrors.KindOf(err); kind != "" {
		return string(kind), err.Error()
	}
	return "Internal", "internal error"
}

// ────────────────────── ParseBulkImportFile ──────────────────────

// BulkImportRow one data row of an import sheet. Row is 1-based as shown
// by spreadsheet programs.
type BulkImportRow struct {
	Row         int
	CandidateID string
}

// ParseBulkImportFile reads the first sheet of an .xlsx file. The header
// row must contain a candidate_id (or candidate / id) column; blank rows are
// skipped.
func ParseBulkImportFile(r io.Reader, maxRows int) ([]BulkImportRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, ErrImportFileFormat
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	excelRows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheetName, err)
	}
	if len(excelRows) < 2 {
		return nil, ErrBulkEmpty
	}

	col := candidateColumn(excelRows[0])
	if col < 0 {
		return nil, ErrImportFileFormat
	}

	var rows []BulkImportRow
	for i := 1; i < len(excelRows); i++ {
		row := excelRows[i]
		if col >= len(row) {
			continue
		}
		id := strings.TrimSpace(row[col])
		if id == "" {
			continue
		}
		rows = append(rows, BulkImportRow{Row: i + 1, CandidateID: id})
	}

	if len(rows) == 0 {
		return nil, ErrBulkEmpty
	}
	if maxRows > 0 && len(rows) > maxRows {
		return nil, ErrBulkTooLarge
	}
	return rows, nil
}

func candidateColumn(header []string) int {
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "candidate_id", "candidate", "id":
			return i
		}
	}
	return -1
}
