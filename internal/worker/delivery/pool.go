// Package delivery runs certificate e-mails off the request path.
package delivery

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"certhub/pkg/logger"
)

// Job kinds.
const (
	KindCertificate    = "certificate"
	KindExpiryReminder = "expiry_reminder"
)

var (
	ErrQueueFull = errors.New("delivery queue is full")
	ErrStopped   = errors.New("delivery pool is stopped")
)

// Job one e-mail to send.
type Job struct {
	ID            string
	Kind          string
	CertificateID string
	Email         string // empty = the candidate's address on the certificate
	QueuedAt      time.Time
	RequestID     string // of the HTTP request that queued it, if any
}

// Processor performs the delivery of a job.
type Processor interface {
	Process(ctx context.Context, job Job) error
}

// Pool is a fixed set of workers draining a bounded queue. Enqueue never
// blocks; a full queue is reported to the caller.
type Pool struct {
	processor  Processor
	workers    int
	jobTimeout time.Duration
	logger     *zap.Logger

	mu      sync.RWMutex
	jobs    chan Job
	stopped bool
	wg      sync.WaitGroup
	cancel  context.CancelFunc
}

// NewPool creates a pool. Call Start before Enqueue.
func NewPool(processor Processor, workers, queueSize int, logger *zap.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Pool{
		processor:  processor,
		workers:    workers,
		jobTimeout: time.Minute,
		logger:     logger,
		jobs:       make(chan Job, queueSize),
	}
}

// SetProcessor replaces the processor. It must be called before Start; it
// exists because the processor usually depends on the pool as its queue.
func (p *Pool) SetProcessor(processor Processor) {
	p.processor = processor
}

// Start launches the workers. They run until Stop.
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.work(ctx, i)
	}
	p.logger.Info("delivery workers started", zap.Int("workers", p.workers), zap.Int("queue_size", cap(p.jobs)))
}

// Enqueue adds a job without blocking.
func (p *Pool) Enqueue(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrStopped
	}
	select {
	case p.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop closes the queue and waits for queued jobs to drain, or for ctx to
// end, whichever comes first.
func (p *Pool) Stop(ctx context.Context) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.jobs)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		p.logger.Warn("delivery workers did not drain in time", zap.Int("pending", len(p.jobs)))
	}
	if p.cancel != nil {
		p.cancel()
	}
}

func (p *Pool) work(ctx context.Context, idx int) {
	defer p.wg.Done()
	for job := range p.jobs {
		jobCtx, cancel := context.WithTimeout(ctx, p.jobTimeout)
		if job.RequestID != "" {
			jobCtx = logger.WithRequestID(jobCtx, job.RequestID)
		}
		err := p.processor.Process(jobCtx, job)
		cancel()
		if err != nil {
			p.logger.Error("delivery job failed",
				zap.Int("worker", idx),
				zap.String("job_id", job.ID),
				zap.String("kind", job.Kind),
				zap.String("certificate_id", job.CertificateID),
				zap.String("request_id", job.RequestID),
				zap.Error(err),
			)
			continue
		}
		p.logger.Debug("delivery job done", zap.String("job_id", job.ID), zap.String("kind", job.Kind))
	}
}
