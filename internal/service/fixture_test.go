package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"certhub/config"
	"certhub/internal/dto"
	"certhub/internal/model"
	"certhub/internal/repository"
	"certhub/internal/worker/delivery"
	"certhub/pkg/database"
	"certhub/pkg/directory"
	"certhub/pkg/mailer"
	"certhub/pkg/renderer"
	"certhub/pkg/signer"
)

// ═══════════════════════════════════════════════════════════
// Fakes
// ═══════════════════════════════════════════════════════════

const (
	candAlice  = "0b6f6a2e-7c4e-4d0f-9a51-1d7f3c0a0001"
	candBob    = "0b6f6a2e-7c4e-4d0f-9a51-1d7f3c0a0002"
	candCarol  = "0b6f6a2e-7c4e-4d0f-9a51-1d7f3c0a0003"
	candNobody = "0b6f6a2e-7c4e-4d0f-9a51-1d7f3c0a0999"

	courseGo  = "5e1c2d3b-8a9f-4b7e-b6c5-2f4e6a8c0001"
	courseK8s = "5e1c2d3b-8a9f-4b7e-b6c5-2f4e6a8c0002"

	adminID    = "9d8c7b6a-5f4e-4d3c-8b2a-1f0e9d8c0001"
	reviewerID = "9d8c7b6a-5f4e-4d3c-8b2a-1f0e9d8c0002"
)

type fakeDirectory struct {
	candidates map[string]directory.Candidate
	courses    map[string]directory.Course
	err        error
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		candidates: map[string]directory.Candidate{
			candAlice: {ID: candAlice, Name: "Alice Smith", Email: "alice@example.com"},
			candBob:   {ID: candBob, Name: "Bob Jones", Email: "bob@example.com"},
			candCarol: {ID: candCarol, Name: "Carol White", Email: "carol@example.com"},
		},
		courses: map[string]directory.Course{
			courseGo:  {ID: courseGo, Name: "Go Fundamentals", Code: "GO-101"},
			courseK8s: {ID: courseK8s, Name: "Kubernetes Basics", Code: "K8S-101"},
		},
	}
}

func (d *fakeDirectory) GetCandidate(_ context.Context, id string) (*directory.Candidate, error) {
	if d.err != nil {
		return nil, d.err
	}
	c, ok := d.candidates[id]
	if !ok {
		return nil, directory.ErrNotFound
	}
	return &c, nil
}

func (d *fakeDirectory) GetCourse(_ context.Context, id string) (*directory.Course, error) {
	if d.err != nil {
		return nil, d.err
	}
	c, ok := d.courses[id]
	if !ok {
		return nil, directory.ErrNotFound
	}
	return &c, nil
}

type fakeRenderer struct {
	mu   sync.Mutex
	docs []renderer.Document
	err  error
}

func (r *fakeRenderer) Render(_ context.Context, doc renderer.Document) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	r.docs = append(r.docs, doc)
	return []byte("%PDF-1.7 " + doc.CertificateNumber), nil
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (m *fakeMailer) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type fakeQueue struct {
	mu   sync.Mutex
	jobs []delivery.Job
	full bool
}

func (q *fakeQueue) Enqueue(job delivery.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.full {
		return delivery.ErrQueueFull
	}
	q.jobs = append(q.jobs, job)
	return nil
}

// ═══════════════════════════════════════════════════════════
// Fixture
// ═══════════════════════════════════════════════════════════

type fixture struct {
	db     *gorm.DB
	repo   *repository.Repository
	svc    *Service
	signer *signer.Signer
	dir    *fakeDirectory
	rend   *fakeRenderer
	mail   *fakeMailer
	queue  *fakeQueue

	mu  sync.Mutex
	now time.Time
}

func (f *fixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fixture) setClock(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
}

func (f *fixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 8080, BaseURL: "https://certs.example.com"},
		Certificate: config.CertificateConfig{
			NumberPrefix:     "CERT",
			SequenceWidth:    6,
			OrganizationName: "Acme Training",
			BulkConcurrency:  4,
			BulkMaxItems:     10,
			ReminderWindow:   30 * 24 * time.Hour,
		},
	}
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithConfig(t, testConfig())
}

func newFixtureWithConfig(t *testing.T, cfg *config.Config) *fixture {
	t.Helper()

	db, err := database.NewDB(&config.DatabaseConfig{Driver: "sqlite", SQLitePath: ":memory:"}, zap.NewNop())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := database.Migrate(db, zap.NewNop(), model.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	sg, err := signer.New(strings.Repeat("test-signing-secret-", 2), "k1")
	if err != nil {
		t.Fatalf("signer: %v", err)
	}

	f := &fixture{
		db:     db,
		repo:   repository.NewRepository(db),
		signer: sg,
		dir:    newFakeDirectory(),
		rend:   &fakeRenderer{},
		mail:   &fakeMailer{},
		queue:  &fakeQueue{},
		now:    time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(cfg, Deps{
		Repo:      f.repo,
		Signer:    sg,
		Directory: f.dir,
		Renderer:  f.rend,
		Mailer:    f.mail,
		Queue:     f.queue,
		Logger:    zap.NewNop(),
		Now:       f.clock,
	})
	return f
}

// ═══════════════════════════════════════════════════════════
// Helpers
// ═══════════════════════════════════════════════════════════

const defaultBody = "This certifies that {candidateName} completed {courseName} ({courseCode}) on {issueDate} with grade {grade}."

func (f *fixture) createTemplate(t *testing.T, courseID *string, isDefault bool) *dto.TemplateResponse {
	t.Helper()
	tmpl, err := f.svc.Template.Create(context.Background(), &dto.CreateTemplateRequest{
		Name:      "Standard",
		CourseID:  courseID,
		IsDefault: isDefault,
		Content: dto.TemplateContentPayload{
			Header: "Certificate of Completion",
			Body:   defaultBody,
			Footer: "{organizationName} · {certificateNumber}",
		},
	}, adminID)
	if err != nil {
		t.Fatalf("create template: %v", err)
	}
	return tmpl
}

func (f *fixture) generate(t *testing.T, candidateID, courseID string) *dto.CertificateResponse {
	t.Helper()
	cert, err := f.svc.Generator.Generate(context.Background(), candidateID, courseID, nil, dto.GenerateOptions{Grade: "A"}, adminID)
	if err != nil {
		t.Fatalf("generate %s/%s: %v", candidateID, courseID, err)
	}
	return cert
}

func assertKind(t *testing.T, err error, want error) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v, got nil", want)
	}
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
}

func strp(s string) *string { return &s }
