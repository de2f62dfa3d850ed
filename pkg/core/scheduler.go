package core

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Scheduler runs a heartbeat and fires due jobs.
type Scheduler struct {
	interval time.Duration
	log      *slog.Logger
	jobs     []Job
	now      func() time.Time
	wg       sync.WaitGroup
}

// NewScheduler creates a Scheduler ticking every interval.
func NewScheduler(interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		interval: interval,
		log:      logger,
		now:      time.Now,
	}
}

// AddJob registers a job. Jobs must be added before Start.
func (s *Scheduler) AddJob(j Job) {
	s.jobs = append(s.jobs, j)
}

// Start runs the main loop. It blocks until ctx is cancelled and every
// running job has returned.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("Scheduler started", "interval", s.interval, "jobs", len(s.jobs))

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			s.log.Info("Scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	now := s.now()
	for _, job := range s.jobs {
		if !job.ShouldFire(now) {
			continue
		}
		s.wg.Add(1)
		go func(j Job) {
			defer s.wg.Done()
			j.Run(ctx, now)
		}(job)
	}
}
