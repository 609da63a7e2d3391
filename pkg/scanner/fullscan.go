package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"photocat/pkg/admission"
	"photocat/pkg/dto"
)

// runFullScan lists the entire store and mirrors it into the catalog. Listing
// is pipelined one page ahead of catalog writes; records are flushed in
// batches; progress and the continuation cursor are checkpointed together at
// page boundaries, so a preempted or crashed scan resumes from a page it has
// not yet counted. Full scans never extract metadata inline: that is deferred
// to metadata scans.
func (s *Service) runFullScan(ctx context.Context, job dto.ScanJob) error {
	start := time.Now()
	processed := job.ProcessedItems
	total := job.TotalItems
	cursor := job.Cursor
	if processed > 0 {
		s.log.Info("Resuming full scan",
			slog.Int64("job_id", job.ID),
			slog.Int64("processed", processed))
	} else {
		s.log.Info("Starting full scan", slog.Int64("job_id", job.ID))
	}

	resolver := newFolderResolver(s.catalog)
	batch := make([]dto.Photo, 0, s.cfg.Scan.BatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.catalog.BulkUpsertPhotos(ctx, batch); err != nil {
			return fmt.Errorf("full scan: %w", err)
		}
		batch = batch[:0]
		return nil
	}

	// checkpoint runs only once the cursor has advanced past every counted
	// object, so a resume never recounts a page it already processed.
	checkpoint := func() {
		if total < processed {
			total = processed
		}
		if err := s.catalog.UpdateJobProgress(ctx, job.ID, processed, total, cursor); err != nil {
			s.log.Error("Failed to update scan job progress", slog.String("error", err.Error()))
		}
	}

	pageCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	syncedAt := time.Now()
	for result := range s.streamPages(pageCtx, s.cfg.Prefix, cursor) {
		if result.err != nil {
			return fmt.Errorf("full scan: failed to list objects: %w", result.err)
		}

		for _, obj := range result.page.Objects {
			// The folder chain is ingested for every object; file-type
			// filtering only decides whether a file record is staged.
			folderID, err := resolver.Resolve(ctx, folderPathOf(obj.Key))
			if err != nil {
				return fmt.Errorf("full scan: failed to resolve folder for %q: %w", obj.Key, err)
			}
			processed++
			if !admission.IsMediaKey(obj.Key) {
				continue
			}
			batch = append(batch, s.stagePhoto(obj, folderID, syncedAt))
			if len(batch) >= s.cfg.Scan.BatchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}

		cursor = result.page.NextToken
		if err := flush(); err != nil {
			return err
		}
		checkpoint()
		if !result.page.IsTruncated {
			break
		}

		preempt, err := s.catalog.HasPendingPriorityJobs(ctx)
		if err != nil {
			s.log.Error("Failed to check for pending priority jobs", slog.String("error", err.Error()))
		} else if preempt {
			s.log.Info("Full scan preempted",
				slog.Int64("job_id", job.ID),
				slog.Int64("processed", processed))
			return ErrPreempted
		}
	}

	if err := s.catalog.UpdateJobProgress(ctx, job.ID, processed, processed, ""); err != nil {
		s.log.Error("Failed to update final scan job progress", slog.String("error", err.Error()))
	}

	touched := resolver.TouchedIDs()
	if err := s.catalog.RefreshFolderStats(ctx, touched, time.Now()); err != nil {
		return fmt.Errorf("full scan: failed to refresh folder stats: %w", err)
	}

	s.log.Info("Full scan completed",
		slog.Int64("job_id", job.ID),
		slog.Int64("objects_scanned", processed),
		slog.Int("folders_touched", len(touched)),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}
