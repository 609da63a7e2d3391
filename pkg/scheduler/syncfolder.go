package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"photocat/pkg/dbsvc"
	"photocat/pkg/dto"
)

var (
	// ErrSyncTimeout is returned when an on-demand folder sync does not
	// reach a terminal state within the wait budget. The underlying job
	// keeps running.
	ErrSyncTimeout = errors.New("folder sync timed out")
	// ErrJobFailed is returned when the awaited job ended in failure.
	ErrJobFailed = errors.New("scan job failed")
)

// SyncFolder enqueues a folder scan and blocks until it reaches a terminal
// state or the wait budget elapses. Redundant requests inside the throttle
// window are suppressed: first against the in-memory recent-request map,
// then against the folder's persisted last-synced timestamp, which is the
// source of truth that survives process restarts.
func (s *Scheduler) SyncFolder(ctx context.Context, folderPath string) error {
	folderPath = normalizePath(folderPath)
	now := time.Now()
	window := s.cfg.Scan.SyncThrottleWindow()

	s.mu.Lock()
	last, requested := s.recentSyncs[folderPath]
	s.mu.Unlock()
	if requested && now.Sub(last) < window {
		s.log.Debug("Folder sync throttled by recent request",
			slog.String("folder", folderPath))
		return nil
	}

	if folderPath != "" {
		folder, err := s.catalog.GetFolderByPath(ctx, folderPath)
		if err != nil && !errors.Is(err, dbsvc.ErrNotFound) {
			return fmt.Errorf("failed to check folder sync state: %w", err)
		}
		if err == nil && folder.LastSyncedAt != nil && now.Sub(*folder.LastSyncedAt) < window {
			s.log.Debug("Folder sync throttled by persisted sync time",
				slog.String("folder", folderPath))
			s.mu.Lock()
			s.recentSyncs[folderPath] = *folder.LastSyncedAt
			s.mu.Unlock()
			return nil
		}
	}

	job, err := s.catalog.FindActiveJob(ctx, dto.JobFolderScan, folderPath)
	if errors.Is(err, dbsvc.ErrNotFound) {
		job, err = s.catalog.CreateJob(ctx, dto.JobFolderScan, folderPath)
	}
	if err != nil {
		return fmt.Errorf("failed to enqueue folder scan: %w", err)
	}

	s.mu.Lock()
	s.recentSyncs[folderPath] = now
	s.mu.Unlock()

	return s.waitForJob(ctx, job.ID)
}

// waitForJob polls job status until the job is terminal or the wait budget
// runs out. The caller and the scheduler stay decoupled: a timeout only
// abandons the wait, never the job.
func (s *Scheduler) waitForJob(ctx context.Context, jobID int64) error {
	deadline := time.Now().Add(s.cfg.Scan.SyncWaitTimeout())
	ticker := time.NewTicker(s.waitPollInterval)
	defer ticker.Stop()

	for {
		job, err := s.catalog.GetJob(ctx, jobID)
		if err != nil {
			return fmt.Errorf("failed to poll job status: %w", err)
		}
		switch job.Status {
		case dto.JobCompleted:
			return nil
		case dto.JobFailed:
			return fmt.Errorf("%w: %s", ErrJobFailed, job.ErrorMessage)
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("%w: job %d still %s", ErrSyncTimeout, jobID, job.Status)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func normalizePath(p string) string {
	return strings.Trim(p, "/")
}
