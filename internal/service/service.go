package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"certhub/config"
	"certhub/internal/repository"
	"certhub/internal/worker/delivery"
	"certhub/pkg/directory"
	"certhub/pkg/mailer"
	"certhub/pkg/metrics"
	"certhub/pkg/renderer"
	"certhub/pkg/signer"
)

// Directory resolves candidates and courses owned by the core platform.
// Implementations return directory.ErrNotFound for unknown ids.
type Directory interface {
	GetCandidate(ctx context.Context, id string) (*directory.Candidate, error)
	GetCourse(ctx context.Context, id string) (*directory.Course, error)
}

// Renderer produces the printable certificate.
type Renderer interface {
	Render(ctx context.Context, doc renderer.Document) ([]byte, error)
}

// Mailer sends one e-mail.
type Mailer interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// DeliveryQueue accepts e-mail jobs for asynchronous delivery.
type DeliveryQueue interface {
	Enqueue(job delivery.Job) error
}

// Service aggregates every service.
type Service struct {
	Template     TemplateService
	Approval     ApprovalService
	Generator    GeneratorService
	Bulk         BulkService
	Registry     RegistryService
	Verification VerificationService
	Delivery     DeliveryService
}

// Deps external collaborators shared by the services.
type Deps struct {
	Repo      *repository.Repository
	Signer    *signer.Signer
	Directory Directory
	Renderer  Renderer
	Mailer    Mailer
	Queue     DeliveryQueue
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
	Now       func() time.Time
}

// NewService builds the aggregate.
func NewService(cfg *config.Config, deps Deps) *Service {
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}
	iss := &issuer{
		signer: deps.Signer,
		cfg:    &cfg.Certificate,
		now:    deps.Now,
	}
	verifyBase := strings.TrimRight(cfg.Server.BaseURL, "/") + "/api/v1/verify/"

	gen := NewGeneratorService(deps.Repo, iss, deps.Directory, deps.Metrics, verifyBase, deps.Logger)
	return &Service{
		Template:     NewTemplateService(deps.Repo, deps.Logger),
		Approval:     NewApprovalService(deps.Repo, iss, deps.Directory, deps.Metrics, verifyBase, deps.Logger),
		Generator:    gen,
		Bulk:         NewBulkService(gen, cfg.Certificate.BulkConcurrency, cfg.Certificate.BulkMaxItems, deps.Metrics, deps.Logger),
		Registry:     NewRegistryService(deps.Repo, iss, deps.Metrics, verifyBase, deps.Logger),
		Verification: NewVerificationService(deps.Repo, deps.Signer, deps.Metrics, deps.Now, deps.Logger),
		Delivery: NewDeliveryService(deps.Repo, deps.Renderer, deps.Mailer, deps.Queue, deps.Metrics, DeliveryConfig{
			VerifyBaseURL:    verifyBase,
			OrganizationName: cfg.Certificate.OrganizationName,
			ReminderWindow:   cfg.Certificate.ReminderWindow,
		}, deps.Now, deps.Logger),
	}
}

// ── shared helpers ──

const (
	dateLayout     = "2006-01-02"
	displayLayout  = "January 2, 2006"
	responseLayout = time.RFC3339
)

// parseDate accepts YYYY-MM-DD (midnight UTC) or RFC3339. Empty gives nil.
func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, ErrInvalidDate
	}
	t = t.UTC()
	return &t, nil
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(responseLayout)
}

// lookupParties resolves candidate and course, mapping unknown ids.
func lookupParties(ctx context.Context, dir Directory, candidateID, courseID string) (*directory.Candidate, *directory.Course, error) {
	cand, err := dir.GetCandidate(ctx, candidateID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return nil, nil, ErrCandidateNotFound
		}
		return nil, nil, err
	}
	course, err := dir.GetCourse(ctx, courseID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return nil, nil, ErrCourseNotFound
		}
		return nil, nil, err
	}
	return cand, course, nil
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
