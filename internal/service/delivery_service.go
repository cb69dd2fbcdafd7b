package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"certhub/internal/dto"
	"certhub/internal/model"
	"certhub/internal/repository"
	"certhub/internal/worker/delivery"
	"certhub/pkg/logger"
	"certhub/pkg/mailer"
	"certhub/pkg/metrics"
	"certhub/pkg/renderer"
)

// DeliveryService renders certificates and e-mails them to candidates.
// Sending is asynchronous: Send queues a job that a delivery worker hands
// back to Process.
type DeliveryService interface {
	Download(ctx context.Context, id string) (*dto.DownloadFile, error)
	Send(ctx context.Context, id string, email string, callerID string) (*dto.SendAck, error)
	Process(ctx context.Context, job delivery.Job) error
	// SendExpiryReminders queues one reminder per certificate expiring within
	// the configured window and returns how many were queued.
	SendExpiryReminders(ctx context.Context) (int, error)
}

// DeliveryConfig delivery settings.
type DeliveryConfig struct {
	VerifyBaseURL    string
	OrganizationName string
	ReminderWindow   time.Duration
}

type deliveryService struct {
	repo     *repository.Repository
	renderer Renderer
	mailer   Mailer
	queue    DeliveryQueue
	metrics  *metrics.Metrics
	cfg      DeliveryConfig
	now      func() time.Time
	logger   *zap.Logger
}

const reminderBatchSize = 100

// NewDeliveryService creates a DeliveryService.
func NewDeliveryService(repo *repository.Repository, r Renderer, m Mailer, q DeliveryQueue, mt *metrics.Metrics, cfg DeliveryConfig, now func() time.Time, logger *zap.Logger) DeliveryService {
	return &deliveryService{repo: repo, renderer: r, mailer: m, queue: q, metrics: mt, cfg: cfg, now: now, logger: logger}
}

// ────────────────────── Download ──────────────────────

func (s *deliveryService) Download(ctx context.Context, id string) (*dto.DownloadFile, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	pdf, err := s.render(ctx, c)
	if err != nil {
		s.logger.Error("render certificate failed", zap.String("certificate_number", c.CertificateNumber), zap.Error(err))
		return nil, err
	}
	return &dto.DownloadFile{
		Filename:    c.CertificateNumber + ".pdf",
		ContentType: "application/pdf",
		Data:        pdf,
	}, nil
}

// ────────────────────── Send ──────────────────────

func (s *deliveryService) Send(ctx context.Context, id string, email string, callerID string) (*dto.SendAck, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.EffectiveStatus(s.now()) != model.StatusIssued {
		return nil, ErrCertificateNotDeliverable
	}

	to := strings.TrimSpace(email)
	if to == "" {
		to = c.CandidateEmail
	}

	job := delivery.Job{
		ID:            uuid.NewString(),
		Kind:          delivery.KindCertificate,
		CertificateID: c.CertificateID,
		Email:         to,
		QueuedAt:      s.now(),
		RequestID:     logger.RequestID(ctx),
	}
	if err := s.enqueue(job); err != nil {
		return nil, err
	}

	logger.FromContext(ctx, s.logger).Info("certificate delivery queued",
		zap.String("job_id", job.ID),
		zap.String("certificate_number", c.CertificateNumber),
		zap.String("requested_by", callerID),
	)
	return &dto.SendAck{
		JobID:         job.ID,
		CertificateID: c.CertificateID,
		Email:         to,
		QueuedAt:      formatTime(&job.QueuedAt),
	}, nil
}

// ────────────────────── Process ──────────────────────

func (s *deliveryService) Process(ctx context.Context, job delivery.Job) error {
	c, err := s.repo.Certificate.GetByID(ctx, job.CertificateID)
	if err != nil {
		s.metrics.Delivery(job.Kind, "failed")
		return fmt.Errorf("load certificate %s: %w", job.CertificateID, err)
	}

	// The certificate may have been revoked while the job waited.
	if c.EffectiveStatus(s.now()) != model.StatusIssued {
		s.metrics.Delivery(job.Kind, "skipped")
		s.logger.Warn("delivery skipped, certificate no longer issued",
			zap.String("job_id", job.ID),
			zap.String("certificate_number", c.CertificateNumber),
		)
		return nil
	}

	to := job.Email
	if to == "" {
		to = c.CandidateEmail
	}

	var msg mailer.Message
	switch job.Kind {
	case delivery.KindCertificate:
		pdf, err := s.render(ctx, c)
		if err != nil {
			s.metrics.Delivery(job.Kind, "failed")
			return err
		}
		msg = s.certificateMessage(c, to, pdf)
	case delivery.KindExpiryReminder:
		msg = s.reminderMessage(c, to)
	default:
		return fmt.Errorf("unknown delivery kind %q", job.Kind)
	}

	if err := s.mailer.Send(ctx, msg); err != nil {
		s.metrics.Delivery(job.Kind, "failed")
		return err
	}
	s.metrics.Delivery(job.Kind, "sent")
	logger.FromContext(ctx, s.logger).Info("certificate e-mail sent",
		zap.String("job_id", job.ID),
		zap.String("kind", job.Kind),
		zap.String("certificate_number", c.CertificateNumber),
	)
	return nil
}

// ────────────────────── SendExpiryReminders ──────────────────────

func (s *deliveryService) SendExpiryReminders(ctx context.Context) (int, error) {
	now := s.now()
	until := now.Add(s.cfg.ReminderWindow)
	queued := 0

	for {
		list, err := s.repo.Certificate.ListExpiring(ctx, now, until, reminderBatchSize)
		if err != nil {
			s.logger.Error("list expiring certificates failed", zap.Error(err))
			return queued, err
		}
		if len(list) == 0 {
			return queued, nil
		}

		for i := range list {
			c := &list[i]
			claimed, err := s.repo.Certificate.MarkExpiryNotified(ctx, c.CertificateID, now)
			if err != nil {
				return queued, err
			}
			if !claimed {
				continue
			}

			err = s.enqueue(delivery.Job{
				ID:            uuid.NewString(),
				Kind:          delivery.KindExpiryReminder,
				CertificateID: c.CertificateID,
				QueuedAt:      now,
			})
			if err != nil {
				// Release the claim so the next run picks it up.
				if cerr := s.repo.Certificate.ClearExpiryNotified(ctx, c.CertificateID); cerr != nil {
					s.logger.Error("release reminder claim failed", zap.String("certificate_id", c.CertificateID), zap.Error(cerr))
				}
				s.logger.Warn("expiry reminders interrupted", zap.Int("queued", queued), zap.Error(err))
				return queued, err
			}
			queued++
		}
	}
}

// ── helpers ──

func (s *deliveryService) load(ctx context.Context, id string) (*model.Certificate, error) {
	c, err := s.repo.Certificate.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrCertificateNotFound
		}
		s.logger.Error("get certificate failed", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return c, nil
}

func (s *deliveryService) enqueue(job delivery.Job) error {
	if err := s.queue.Enqueue(job); err != nil {
		if errors.Is(err, delivery.ErrQueueFull) || errors.Is(err, delivery.ErrStopped) {
			return ErrDeliveryQueueFull
		}
		return err
	}
	return nil
}

func (s *deliveryService) render(ctx context.Context, c *model.Certificate) ([]byte, error) {
	content := c.ResolvedContent.Data()
	return s.renderer.Render(ctx, renderer.Document{
		CertificateNumber: c.CertificateNumber,
		VerifyURL:         s.cfg.VerifyBaseURL + c.CertificateNumber,
		Status:            c.EffectiveStatus(s.now()),
		Design:            c.TemplateDesign.Data(),
		Header:            content.Header,
		Body:              content.Body,
		Footer:            content.Footer,
	})
}

func (s *deliveryService) certificateMessage(c *model.Certificate, to string, pdf []byte) mailer.Message {
	verifyURL := s.cfg.VerifyBaseURL + c.CertificateNumber
	return mailer.Message{
		ToName:  c.CandidateName,
		ToEmail: to,
		Subject: fmt.Sprintf("Your certificate for %s", c.CourseName),
		PlainText: fmt.Sprintf(
			"Dear %s,\n\nCongratulations on completing %s. Your certificate %s is attached.\n\nAnyone can verify it at %s\n\n%s\n",
			c.CandidateName, c.CourseName, c.CertificateNumber, verifyURL, s.cfg.OrganizationName,
		),
		Attachments: []mailer.Attachment{{
			Filename:    c.CertificateNumber + ".pdf",
			ContentType: "application/pdf",
			Data:        pdf,
		}},
	}
}

func (s *deliveryService) reminderMessage(c *model.Certificate, to string) mailer.Message {
	expiry := "soon"
	if c.ExpiryDate != nil {
		expiry = "on " + c.ExpiryDate.UTC().Format(displayLayout)
	}
	return mailer.Message{
		ToName:  c.CandidateName,
		ToEmail: to,
		Subject: fmt.Sprintf("Your %s certificate expires %s", c.CourseName, expiry),
		PlainText: fmt.Sprintf(
			"Dear %s,\n\nYour certificate %s for %s expires %s. Contact your training coordinator to renew it.\n\n%s\n",
			c.CandidateName, c.CertificateNumber, c.CourseName, expiry, s.cfg.OrganizationName,
		),
	}
}
