// Package scheduler owns the durable queue of scan jobs: it serializes
// execution to at most one running job, preempts full scans in favor of
// higher-priority work, and enqueues the periodic and bootstrap full scans.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"photocat/pkg/config"
	"photocat/pkg/dbsvc"
	"photocat/pkg/dto"
	"photocat/pkg/scanner"
)

const (
	defaultPollInterval     = 2 * time.Second
	defaultWaitPollInterval = 500 * time.Millisecond
	// bootstrapFreshness is how recent the last completed full scan must be
	// for startup to skip enqueueing a new one.
	bootstrapFreshness = time.Hour
)

// Scheduler manages background scan jobs.
type Scheduler struct {
	catalog dbsvc.Catalog
	scanner *scanner.Service
	cron    *cron.Cron
	cfg     config.Config
	log     *slog.Logger

	pollInterval     time.Duration
	waitPollInterval time.Duration

	mu          sync.Mutex
	recentSyncs map[string]time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(cfg config.Config, catalog dbsvc.Catalog, scannerSvc *scanner.Service) *Scheduler {
	return &Scheduler{
		catalog:          catalog,
		scanner:          scannerSvc,
		cron:             cron.New(),
		cfg:              cfg,
		log:              slog.New(slog.DiscardHandler),
		pollInterval:     defaultPollInterval,
		waitPollInterval: defaultWaitPollInterval,
		recentSyncs:      make(map[string]time.Time),
	}
}

// SetLogger sets the logger for the scheduler.
func (s *Scheduler) SetLogger(log *slog.Logger) {
	s.log = log
}

// SetPollInterval overrides how often the queue is polled for pending jobs.
func (s *Scheduler) SetPollInterval(interval time.Duration) {
	s.pollInterval = interval
}

// SetWaitPollInterval overrides how often a blocked sync caller re-reads its
// job status.
func (s *Scheduler) SetWaitPollInterval(interval time.Duration) {
	s.waitPollInterval = interval
}

// Start recovers jobs left running by a previous process, applies the
// startup bootstrap rule, registers the cron schedule and launches the job
// loop.
func (s *Scheduler) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	recovered, err := s.catalog.RecoverStaleJobs(runCtx)
	if err != nil {
		return err
	}
	if recovered > 0 {
		s.log.Info("Recovered stale running jobs", slog.Int64("count", recovered))
	}

	if err := s.bootstrap(runCtx); err != nil {
		s.log.Error("Startup bootstrap failed", slog.String("error", err.Error()))
	}

	if s.cfg.Scan.EnableBackgroundScan && s.cfg.Scan.ScanCronSchedule != "" {
		_, err := s.cron.AddFunc(s.cfg.Scan.ScanCronSchedule, func() {
			if _, err := s.EnqueueFullScan(runCtx); err != nil {
				s.log.Error("Scheduled full scan enqueue failed", slog.String("error", err.Error()))
			}
		})
		if err != nil {
			return err
		}
		s.log.Info("Starting background scan schedule",
			slog.String("schedule", s.cfg.Scan.ScanCronSchedule))
		s.cron.Start()
	}

	s.done = make(chan struct{})
	go s.runLoop(runCtx)
	return nil
}

// Stop stops the cron schedule and the job loop, waiting for the loop to
// exit. A job mid-run finishes its current batch flush before the context
// cancellation is observed.
func (s *Scheduler) Stop() {
	s.log.Info("Stopping scheduler")
	s.cron.Stop()
	if s.cancel != nil {
		s.cancel()
	}
	if s.done != nil {
		<-s.done
	}
}

// bootstrap guarantees the catalog is never silently stale after a restart:
// if nothing is queued or running and no full scan completed within the last
// hour, a fresh full scan is enqueued.
func (s *Scheduler) bootstrap(ctx context.Context) error {
	active, err := s.catalog.ActiveJobExists(ctx)
	if err != nil {
		return err
	}
	if active {
		return nil
	}

	last, err := s.catalog.LatestCompletedFullScan(ctx)
	if err == nil && last.FinishedAt != nil && time.Since(*last.FinishedAt) < bootstrapFreshness {
		return nil
	}
	if err != nil && !errors.Is(err, dbsvc.ErrNotFound) {
		return err
	}

	job, err := s.catalog.CreateJob(ctx, dto.JobFullScan, "")
	if err != nil {
		return err
	}
	s.log.Info("Bootstrap full scan enqueued", slog.Int64("job_id", job.ID))
	return nil
}

// runLoop is the single long-lived loop owning job execution. It blocks
// while a job runs; only one job is ever running at a time.
func (s *Scheduler) runLoop(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		job, err := s.catalog.NextPendingJob(ctx)
		if errors.Is(err, dbsvc.ErrNotFound) {
			continue
		}
		if err != nil {
			s.log.Error("Failed to pick next job", slog.String("error", err.Error()))
			continue
		}
		s.runJob(ctx, job)
	}
}

// runJob drives one job through its lifecycle. A preempted full scan is
// demoted back to pending with its counters intact; everything else ends
// completed or failed.
func (s *Scheduler) runJob(ctx context.Context, job dto.ScanJob) {
	if err := s.catalog.MarkJobRunning(ctx, job.ID); err != nil {
		s.log.Error("Failed to mark job running",
			slog.Int64("job_id", job.ID),
			slog.String("error", err.Error()))
		return
	}

	err := s.scanner.RunJob(ctx, job)
	switch {
	case errors.Is(err, scanner.ErrPreempted):
		if err := s.catalog.DemoteJob(ctx, job.ID); err != nil {
			s.log.Error("Failed to demote preempted job",
				slog.Int64("job_id", job.ID),
				slog.String("error", err.Error()))
		}
	case err != nil:
		s.log.Error("Scan job failed",
			slog.Int64("job_id", job.ID),
			slog.String("type", string(job.Type)),
			slog.String("error", err.Error()))
		if err := s.catalog.MarkJobFailed(ctx, job.ID, err.Error()); err != nil {
			s.log.Error("Failed to mark job failed",
				slog.Int64("job_id", job.ID),
				slog.String("error", err.Error()))
		}
	default:
		if err := s.catalog.MarkJobCompleted(ctx, job.ID); err != nil {
			s.log.Error("Failed to mark job completed",
				slog.Int64("job_id", job.ID),
				slog.String("error", err.Error()))
		}
	}
}

// JobStatus returns the current state of a job.
func (s *Scheduler) JobStatus(ctx context.Context, id int64) (dto.ScanJob, error) {
	return s.catalog.GetJob(ctx, id)
}

// EnqueueFullScan enqueues a full-store scan unless one is already pending
// or running.
func (s *Scheduler) EnqueueFullScan(ctx context.Context) (dto.ScanJob, error) {
	if job, err := s.catalog.FindActiveJob(ctx, dto.JobFullScan, ""); err == nil {
		return job, nil
	} else if !errors.Is(err, dbsvc.ErrNotFound) {
		return dto.ScanJob{}, err
	}
	return s.catalog.CreateJob(ctx, dto.JobFullScan, "")
}

// EnqueueMetadataScan enqueues a metadata-only scan of one folder,
// de-duplicated against an already active one.
func (s *Scheduler) EnqueueMetadataScan(ctx context.Context, folderPath string) (dto.ScanJob, error) {
	folderPath = normalizePath(folderPath)
	if job, err := s.catalog.FindActiveJob(ctx, dto.JobMetadataScan, folderPath); err == nil {
		return job, nil
	} else if !errors.Is(err, dbsvc.ErrNotFound) {
		return dto.ScanJob{}, err
	}
	return s.catalog.CreateJob(ctx, dto.JobMetadataScan, folderPath)
}

// EnqueueCleanup enqueues a thumbnail retention cleanup.
func (s *Scheduler) EnqueueCleanup(ctx context.Context) (dto.ScanJob, error) {
	if job, err := s.catalog.FindActiveJob(ctx, dto.JobCleanup, ""); err == nil {
		return job, nil
	} else if !errors.Is(err, dbsvc.ErrNotFound) {
		return dto.ScanJob{}, err
	}
	return s.catalog.CreateJob(ctx, dto.JobCleanup, "")
}
