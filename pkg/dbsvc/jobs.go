package dbsvc

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"photocat/pkg/dto"
)

const jobColumns = `id, job_type, folder_path, status, processed_items, total_items,
	list_cursor, error_message, created_at, started_at, finished_at`

// jobPriorityOrder ranks pending jobs: folder and metadata scans first, then
// full scans, then cleanup; ties broken by age.
const jobPriorityOrder = `
	CASE job_type
		WHEN 'folder_scan' THEN 1
		WHEN 'metadata_scan' THEN 1
		WHEN 'full_scan' THEN 2
		ELSE 3
	END, created_at ASC`

func scanJob(row interface{ Scan(...any) error }) (dto.ScanJob, error) {
	var j dto.ScanJob
	var started, finished sql.NullTime
	err := row.Scan(&j.ID, &j.Type, &j.FolderPath, &j.Status, &j.ProcessedItems,
		&j.TotalItems, &j.Cursor, &j.ErrorMessage, &j.CreatedAt, &started, &finished)
	if err != nil {
		return j, err
	}
	j.StartedAt = timePtr(started)
	j.FinishedAt = timePtr(finished)
	return j, nil
}

// CreateJob enqueues a new pending scan job.
func (s *Service) CreateJob(ctx context.Context, jobType dto.JobType, folderPath string) (dto.ScanJob, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO scan_jobs (job_type, folder_path, status)
		VALUES ($1, $2, 'pending')
		RETURNING `+jobColumns,
		string(jobType), folderPath)
	j, err := scanJob(row)
	if err != nil {
		return j, fmt.Errorf("failed to create scan job: %w", err)
	}
	return j, nil
}

// GetJob returns the job with the given id.
func (s *Service) GetJob(ctx context.Context, id int64) (dto.ScanJob, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM scan_jobs WHERE id = $1`, id)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return j, ErrNotFound
	}
	if err != nil {
		return j, fmt.Errorf("failed to get scan job: %w", err)
	}
	return j, nil
}

// NextPendingJob returns the highest-priority pending job, or ErrNotFound.
func (s *Service) NextPendingJob(ctx context.Context) (dto.ScanJob, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+jobColumns+` FROM scan_jobs
		WHERE status = 'pending'
		ORDER BY `+jobPriorityOrder+`
		LIMIT 1`)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return j, ErrNotFound
	}
	if err != nil {
		return j, fmt.Errorf("failed to pick next pending job: %w", err)
	}
	return j, nil
}

// ActiveJobExists reports whether any job is pending or running.
func (s *Service) ActiveJobExists(ctx context.Context) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM scan_jobs WHERE status IN ('pending', 'running'))`).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check active jobs: %w", err)
	}
	return exists, nil
}

// HasPendingPriorityJobs reports whether a tier-1 job (folder or metadata
// scan) is waiting; a running full scan preempts itself when this turns true.
func (s *Service) HasPendingPriorityJobs(ctx context.Context) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM scan_jobs
			WHERE status = 'pending' AND job_type IN ('folder_scan', 'metadata_scan'))`).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check pending priority jobs: %w", err)
	}
	return exists, nil
}

// FindActiveJob returns a pending or running job of the given type and
// target folder, used to de-duplicate on-demand sync requests.
func (s *Service) FindActiveJob(ctx context.Context, jobType dto.JobType, folderPath string) (dto.ScanJob, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+jobColumns+` FROM scan_jobs
		WHERE job_type = $1 AND folder_path = $2 AND status IN ('pending', 'running')
		ORDER BY created_at ASC
		LIMIT 1`,
		string(jobType), folderPath)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return j, ErrNotFound
	}
	if err != nil {
		return j, fmt.Errorf("failed to find active job: %w", err)
	}
	return j, nil
}

// MarkJobRunning transitions a pending job to running. Progress counters are
// left untouched so a preempted full scan resumes where it stopped.
func (s *Service) MarkJobRunning(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE scan_jobs SET status = 'running', started_at = COALESCE(started_at, now())
		WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return fmt.Errorf("failed to mark job running: %w", err)
	}
	return requireRow(res)
}

// MarkJobCompleted moves a running job to its terminal success state.
func (s *Service) MarkJobCompleted(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE scan_jobs SET status = 'completed', finished_at = now()
		WHERE id = $1 AND status = 'running'`, id)
	if err != nil {
		return fmt.Errorf("failed to mark job completed: %w", err)
	}
	return requireRow(res)
}

// MarkJobFailed moves a running job to failed, recording the error message.
func (s *Service) MarkJobFailed(ctx context.Context, id int64, message string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE scan_jobs SET status = 'failed', error_message = $2, finished_at = now()
		WHERE id = $1 AND status = 'running'`, id, message)
	if err != nil {
		return fmt.Errorf("failed to mark job failed: %w", err)
	}
	return requireRow(res)
}

// DemoteJob re-marks a preempted running job as pending, preserving its
// progress counters and listing cursor.
func (s *Service) DemoteJob(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE scan_jobs SET status = 'pending'
		WHERE id = $1 AND status = 'running'`, id)
	if err != nil {
		return fmt.Errorf("failed to demote job: %w", err)
	}
	return requireRow(res)
}

// UpdateJobProgress checkpoints counters and the listing cursor.
func (s *Service) UpdateJobProgress(ctx context.Context, id int64, processed, total int64, cursor string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE scan_jobs SET processed_items = $2, total_items = $3, list_cursor = $4
		WHERE id = $1`, id, processed, total, cursor)
	if err != nil {
		return fmt.Errorf("failed to update job progress: %w", err)
	}
	return nil
}

// LatestCompletedFullScan returns the most recently finished successful full
// scan, or ErrNotFound if none ever completed.
func (s *Service) LatestCompletedFullScan(ctx context.Context) (dto.ScanJob, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+jobColumns+` FROM scan_jobs
		WHERE job_type = 'full_scan' AND status = 'completed'
		ORDER BY finished_at DESC
		LIMIT 1`)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return j, ErrNotFound
	}
	if err != nil {
		return j, fmt.Errorf("failed to get latest completed full scan: %w", err)
	}
	return j, nil
}

// RecoverStaleJobs demotes jobs left running by a previous process to
// pending. Upserts are idempotent, so re-running them is the documented
// recovery path.
func (s *Service) RecoverStaleJobs(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE scan_jobs SET status = 'pending' WHERE status = 'running'`)
	if err != nil {
		return 0, fmt.Errorf("failed to recover stale jobs: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected, nil
}
