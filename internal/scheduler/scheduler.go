// Package scheduler drives the periodic alert jobs on cron schedules.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dealradar/backend/internal/config"
	"github.com/dealradar/backend/internal/model"
)

// Jobs is the engine surface the scheduler drives. Each job takes its own
// advisory lock, so a slow tick on one instance makes the others skip.
type Jobs interface {
	RunRuleCheck(ctx context.Context) error
	RunPriceDropCheck(ctx context.Context) error
	RunDigestFlush(ctx context.Context, cadence model.Cadence) error
}

// Scheduler owns the cron runner for the four periodic jobs.
type Scheduler struct {
	cron    *cron.Cron
	jobs    Jobs
	config  config.EngineConfig
	logger  *slog.Logger
	entries map[string]cron.EntryID
}

// New creates a Scheduler around the engine's jobs.
func New(cfg config.EngineConfig, jobs Jobs, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DiscardLogger),
		)),
		jobs:    jobs,
		config:  cfg,
		logger:  logger,
		entries: make(map[string]cron.EntryID),
	}
}

// Start registers the four jobs and begins the cron loop.
func (s *Scheduler) Start() error {
	if !s.config.Enabled {
		s.logger.Info("scheduler disabled, skipping start")
		return nil
	}

	jobs := []struct {
		name     string
		schedule string
		run      func(ctx context.Context) error
	}{
		{"rule_check", s.config.RuleCheckSchedule, s.jobs.RunRuleCheck},
		{"price_drop_check", s.config.PriceDropSchedule, s.jobs.RunPriceDropCheck},
		{"daily_digest_flush", s.config.DailyDigestSchedule, func(ctx context.Context) error {
			return s.jobs.RunDigestFlush(ctx, model.CadenceDaily)
		}},
		{"weekly_digest_flush", s.config.WeeklyDigestSchedule, func(ctx context.Context) error {
			return s.jobs.RunDigestFlush(ctx, model.CadenceWeekly)
		}},
	}

	for _, job := range jobs {
		job := job
		id, err := s.cron.AddFunc(job.schedule, func() {
			s.runJob(job.name, job.run)
		})
		if err != nil {
			return err
		}
		s.entries[job.name] = id
		s.logger.Info("job scheduled",
			slog.String("job", job.name),
			slog.String("schedule", job.schedule),
		)
	}

	s.cron.Start()
	return nil
}

// Stop halts scheduling; the returned context is done once in-flight jobs
// finish.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("stopping scheduler")
	return s.cron.Stop()
}

// RunNow triggers one job immediately, for manual kicks via the admin API.
func (s *Scheduler) RunNow(name string, run func(ctx context.Context) error) {
	go s.runJob(name, run)
}

func (s *Scheduler) runJob(name string, run func(ctx context.Context) error) {
	start := time.Now()
	s.logger.Info("job starting", slog.String("job", name))

	// The engine applies its own tick timeout; this context only exists so
	// Stop can be tied in later without touching the jobs.
	if err := run(context.Background()); err != nil {
		s.logger.Error("job failed",
			slog.String("job", name),
			slog.String("error", err.Error()),
			slog.Duration("duration", time.Since(start)),
		)
		return
	}

	s.logger.Info("job finished",
		slog.String("job", name),
		slog.Duration("duration", time.Since(start)),
	)
}

// NextRun returns the next scheduled time for a job, or zero when the job is
// not registered.
func (s *Scheduler) NextRun(name string) time.Time {
	id, ok := s.entries[name]
	if !ok {
		return time.Time{}
	}
	return s.cron.Entry(id).Next
}

// IsRunning reports whether any jobs are registered and the loop started.
func (s *Scheduler) IsRunning() bool {
	return len(s.cron.Entries()) > 0
}
