package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"photocat/pkg/dbsvc"
	"photocat/pkg/dto"
)

// runMetadataScan extracts metadata for the files of one folder that still
// need it, smallest first. Each candidate is marked pending, extracted, and
// advanced to extracted, or reverted to none on failure so the next scan
// retries it. Failures never fail the job; only a missing target folder or
// an unreachable catalog does.
func (s *Service) runMetadataScan(ctx context.Context, job dto.ScanJob) error {
	folderPath := normalizeFolderPath(job.FolderPath)
	s.log.Info("Starting metadata scan",
		slog.Int64("job_id", job.ID),
		slog.String("folder", folderPath))

	var folderID *int64
	if folderPath != "" {
		folder, err := s.catalog.GetFolderByPath(ctx, folderPath)
		if errors.Is(err, dbsvc.ErrNotFound) {
			return fmt.Errorf("metadata scan: target folder %q not in catalog: %w", folderPath, err)
		}
		if err != nil {
			return fmt.Errorf("metadata scan: %w", err)
		}
		folderID = &folder.ID
	}

	candidates, err := s.catalog.ListMetadataCandidates(ctx, folderID, s.gate.MetadataMaxBytes)
	if err != nil {
		return fmt.Errorf("metadata scan: failed to list candidates: %w", err)
	}

	total := int64(len(candidates))
	if err := s.catalog.UpdateJobProgress(ctx, job.ID, 0, total, ""); err != nil {
		s.log.Error("Failed to update scan job progress", slog.String("error", err.Error()))
	}

	var processed, extracted int64
	for _, photo := range candidates {
		processed++
		if err := s.extractOne(ctx, photo); err != nil {
			s.log.Warn("Metadata extraction failed, will retry on next scan",
				slog.String("key", photo.ObjectKey),
				slog.String("error", err.Error()))
		} else {
			extracted++
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

	s.log.Info("Metadata scan completed",
		slog.Int64("job_id", job.ID),
		slog.String("folder", folderPath),
		slog.Int64("candidates", total),
		slog.Int64("extracted", extracted))
	return nil
}

// extractOne runs the pending → extracted lifecycle for a single photo,
// reverting to none on any failure along the way.
func (s *Service) extractOne(ctx context.Context, photo dto.Photo) error {
	if err := s.catalog.MarkMetadataPending(ctx, photo.ID); err != nil {
		return fmt.Errorf("failed to mark pending: %w", err)
	}

	rc, err := s.store.OpenStream(ctx, photo.ObjectKey)
	if err != nil {
		s.revert(ctx, photo.ID)
		return fmt.Errorf("failed to open stream: %w", err)
	}

	meta, err := s.extractor.Extract(ctx, rc)
	if err != nil {
		s.revert(ctx, photo.ID)
		return fmt.Errorf("failed to read stream: %w", err)
	}

	// An empty blob still advances to extracted: nothing parseable is a
	// result, not an error.
	if err := s.catalog.SavePhotoMetadata(ctx, photo.ID, meta); err != nil {
		return fmt.Errorf("failed to save metadata: %w", err)
	}
	return nil
}

func (s *Service) revert(ctx context.Context, photoID int64) {
	if err := s.catalog.RevertMetadataPending(ctx, photoID); err != nil {
		s.log.Error("Failed to revert metadata status",
			slog.Int64("photo_id", photoID),
			slog.String("error", err.Error()))
	}
}
