package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"photocat/pkg/admission"
	"photocat/pkg/dbsvc"
	"photocat/pkg/dto"
)

// runFolderScan refreshes a single folder: its direct files and its
// immediate subfolders. Unlike the full scan the listing is buffered in full
// before processing, because subfolder discovery needs the complete object
// set under the prefix. Deeper descendants are not recursed into; navigating
// into a subfolder triggers its own scan later. The caller is waiting on a
// bounded folder, so metadata is extracted inline here.
func (s *Service) runFolderScan(ctx context.Context, job dto.ScanJob) error {
	folderPath := normalizeFolderPath(job.FolderPath)
	s.log.Info("Starting folder scan",
		slog.Int64("job_id", job.ID),
		slog.String("folder", folderPath))

	var folderID *int64
	if folderPath != "" {
		folder, err := s.catalog.GetFolderByPath(ctx, folderPath)
		if errors.Is(err, dbsvc.ErrNotFound) {
			return fmt.Errorf("folder scan: target folder %q not in catalog: %w", folderPath, err)
		}
		if err != nil {
			return fmt.Errorf("folder scan: %w", err)
		}
		folderID = &folder.ID
	}

	prefix := ""
	if folderPath != "" {
		prefix = folderPath + "/"
	}

	objects, err := s.listAll(ctx, prefix)
	if err != nil {
		return fmt.Errorf("folder scan: failed to list objects: %w", err)
	}

	total := int64(len(objects))
	if err := s.catalog.UpdateJobProgress(ctx, job.ID, 0, total, ""); err != nil {
		s.log.Error("Failed to update scan job progress", slog.String("error", err.Error()))
	}

	direct, subfolders := partitionByDepth(objects, prefix)

	resolver := newFolderResolver(s.catalog)
	for _, name := range subfolders {
		subPath := name
		if folderPath != "" {
			subPath = folderPath + "/" + name
		}
		if _, err := resolver.Resolve(ctx, subPath); err != nil {
			return fmt.Errorf("folder scan: failed to create subfolder %q: %w", subPath, err)
		}
	}

	// Objects in deeper subfolders count as processed: their records are
	// owned by that subfolder's own scan.
	processed := total - int64(len(direct))
	syncedAt := time.Now()

	for _, obj := range direct {
		processed++
		if !admission.IsMediaKey(obj.Key) {
			continue
		}
		photo := s.stagePhoto(obj, folderID, syncedAt)
		if photo.MetadataStatus == dto.MetadataNone {
			if meta, ok := s.extractInline(ctx, obj.Key); ok {
				photo.MetadataStatus = dto.MetadataExtracted
				photo.Meta = meta
			}
		}
		if err := s.catalog.UpsertPhoto(ctx, photo); err != nil {
			s.log.Error("Failed to upsert photo",
				slog.String("key", obj.Key),
				slog.String("error", err.Error()))
			continue
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

	// Root pseudo-scans have no folder record to aggregate.
	if folderID != nil {
		if err := s.catalog.RefreshFolderStats(ctx, []int64{*folderID}, syncedAt); err != nil {
			return fmt.Errorf("folder scan: failed to refresh folder stats: %w", err)
		}
	}

	s.log.Info("Folder scan completed",
		slog.Int64("job_id", job.ID),
		slog.String("folder", folderPath),
		slog.Int("direct_files", len(direct)),
		slog.Int("subfolders", len(subfolders)))
	return nil
}

// listAll fully paginates a prefix, buffering every page.
func (s *Service) listAll(ctx context.Context, prefix string) ([]dto.ObjectInfo, error) {
	var objects []dto.ObjectInfo
	token := ""
	for {
		page, err := s.store.ListPage(ctx, prefix, token, int32(s.cfg.Scan.PageSize))
		if err != nil {
			return nil, err
		}
		objects = append(objects, page.Objects...)
		if !page.IsTruncated {
			return objects, nil
		}
		token = page.NextToken
	}
}

// partitionByDepth splits a listing into objects directly under the prefix
// and the sorted names of the immediate subfolders holding the rest.
func partitionByDepth(objects []dto.ObjectInfo, prefix string) ([]dto.ObjectInfo, []string) {
	var direct []dto.ObjectInfo
	subfolderSet := make(map[string]struct{})

	for _, obj := range objects {
		rel := strings.TrimPrefix(obj.Key, prefix)
		if idx := strings.Index(rel, "/"); idx >= 0 {
			subfolderSet[rel[:idx]] = struct{}{}
			continue
		}
		direct = append(direct, obj)
	}

	subfolders := make([]string, 0, len(subfolderSet))
	for name := range subfolderSet {
		subfolders = append(subfolders, name)
	}
	sort.Strings(subfolders)
	return direct, subfolders
}

// extractInline extracts metadata for one object during a folder scan. A
// stream-open failure leaves the record at none so a metadata scan retries
// later; parse failures yield an empty-but-successful result.
func (s *Service) extractInline(ctx context.Context, key string) (dto.Metadata, bool) {
	rc, err := s.store.OpenStream(ctx, key)
	if err != nil {
		s.log.Warn("Failed to open object stream",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return dto.Metadata{}, false
	}
	meta, err := s.extractor.Extract(ctx, rc)
	if err != nil {
		s.log.Warn("Failed to read object stream",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return dto.Metadata{}, false
	}
	return meta, true
}
