package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"photocat/pkg/dto"
)

// runCleanup expires cached thumbnails older than the configured maximum
// age: the artifact is deleted from local storage and the catalog reference
// cleared. An artifact already missing from disk is logged and tolerated;
// the job completes even if individual deletions fail.
func (s *Service) runCleanup(ctx context.Context, job dto.ScanJob) error {
	cutoff := time.Now().Add(-s.cfg.Scan.ThumbnailMaxAge())
	s.log.Info("Starting thumbnail cleanup",
		slog.Int64("job_id", job.ID),
		slog.Time("cutoff", cutoff))

	photos, err := s.catalog.ListExpiredThumbnails(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("cleanup: failed to list expired thumbnails: %w", err)
	}

	total := int64(len(photos))
	if err := s.catalog.UpdateJobProgress(ctx, job.ID, 0, total, ""); err != nil {
		s.log.Error("Failed to update scan job progress", slog.String("error", err.Error()))
	}

	var processed, deleted int64
	for _, photo := range photos {
		processed++

		artifact := photo.ThumbnailPath
		if artifact == "" {
			artifact = s.thumbs.PathFor(photo.ObjectKey)
		}
		removed, err := s.thumbs.Remove(artifact)
		switch {
		case err != nil:
			s.log.Warn("Failed to delete thumbnail artifact",
				slog.String("key", photo.ObjectKey),
				slog.String("error", err.Error()))
		case !removed:
			s.log.Debug("Thumbnail artifact already missing",
				slog.String("key", photo.ObjectKey))
		default:
			deleted++
		}

		if err := s.catalog.ClearThumbnail(ctx, photo.ID); err != nil {
			s.log.Error("Failed to clear thumbnail reference",
				slog.String("key", photo.ObjectKey),
				slog.String("error", err.Error()))
		}

		if processed%checkpointEvery == 0 {
			if err := s.catalog.UpdateJobProgress(ctx, job.ID, processed, total, ""); err != nil {
				s.log.Error("Failed to update scan job progress", slog.String("error", err.Error()))
			}
		}
	}

	if err := s.catalog.UpdateJobProgress(ctx, job.ID, processed, total, ""); err != nil {
		s.log.Error("Failed to update final scan job progress", slog.String("error", err.Error()))
	}

	s.log.Info("Thumbnail cleanup completed",
		slog.Int64("job_id", job.ID),
		slog.Int64("expired", total),
		slog.Int64("deleted", deleted))
	return nil
}
