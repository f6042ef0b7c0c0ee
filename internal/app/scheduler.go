package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const expiryJobTimeout = 2 * time.Minute

// Scheduler runs the periodic maintenance jobs.
type Scheduler struct {
	cron           *cron.Cron
	service        *Service
	logger         *slog.Logger
	expirySchedule string
	expiryDays     int
}

// NewScheduler creates a scheduler for the wish expiry job.
func NewScheduler(service *Service, logger *slog.Logger, expirySchedule string, expiryDays int) *Scheduler {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger)))

	return &Scheduler{
		cron:           c,
		service:        service,
		logger:         logger,
		expirySchedule: expirySchedule,
		expiryDays:     expiryDays,
	}
}

// Start registers the jobs and starts the cron scheduler. The expiry job is
// skipped when expiry is disabled.
func (s *Scheduler) Start() error {
	if s.expiryDays > 0 {
		if _, err := s.cron.AddFunc(s.expirySchedule, s.ExpireWishes); err != nil {
			return err
		}
		s.logger.Info("scheduled wish expiry job", "component", "scheduler", "schedule", s.expirySchedule, "max_age_days", s.expiryDays)
	} else {
		s.logger.Info("wish expiry disabled", "component", "scheduler")
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler; the returned context is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// ExpireWishes is the cron entry for wish expiry.
func (s *Scheduler) ExpireWishes() {
	ctx, cancel := context.WithTimeout(context.Background(), expiryJobTimeout)
	defer cancel()

	expired, err := s.service.ExpireStaleWishes(ctx, s.expiryDays)
	if err != nil {
		s.logger.Error("wish expiry job failed", "component", "scheduler", "error", err)
		return
	}
	s.logger.Info("wish expiry job finished", "component", "scheduler", "expired", expired)
}
