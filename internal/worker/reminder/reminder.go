// Package reminder schedules certificate expiry reminders.
package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sender queues reminders for certificates about to expire.
type Sender interface {
	SendExpiryReminders(ctx context.Context) (int, error)
}

// Scheduler runs Sender on a cron schedule (five fields, UTC).
type Scheduler struct {
	cron    *cron.Cron
	sender  Sender
	timeout time.Duration
	logger  *zap.Logger
}

// New parses spec and registers the job. Call Start to begin running.
func New(spec string, sender Sender, logger *zap.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow)),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		sender:  sender,
		timeout: 10 * time.Minute,
		logger:  logger,
	}
	if _, err := s.cron.AddFunc(spec, s.RunOnce); err != nil {
		return nil, fmt.Errorf("reminder schedule %q: %w", spec, err)
	}
	return s, nil
}

// RunOnce performs a single reminder pass.
func (s *Scheduler) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	n, err := s.sender.SendExpiryReminders(ctx)
	if err != nil {
		s.logger.Error("expiry reminder run failed", zap.Int("queued", n), zap.Error(err))
		return
	}
	s.logger.Info("expiry reminder run finished", zap.Int("queued", n), zap.Duration("elapsed", time.Since(start)))
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("expiry reminder scheduler started", zap.Int("entries", len(s.cron.Entries())))
}

// Stop stops scheduling and waits for a running pass, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("expiry reminder run still in progress at shutdown")
	}
}
