// Package scanner implements the reconciliation engine: the four scan
// routines that mirror the object store into the catalog.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"photocat/pkg/admission"
	"photocat/pkg/config"
	"photocat/pkg/dbsvc"
	"photocat/pkg/dto"
	"photocat/pkg/metadata"
	"photocat/pkg/thumbcache"
)

// ErrPreempted is returned by a full scan that stopped early in favor of a
// higher-priority pending job. The job's counters and cursor are already
// checkpointed; the scheduler re-marks it pending so it resumes later.
var ErrPreempted = errors.New("scan preempted by higher-priority job")

// checkpointEvery bounds progress write amplification on per-item scans.
const checkpointEvery = 25

// ObjectStore is the object-store collaborator: paged listing plus byte
// streaming. s3svc.Service implements it.
type ObjectStore interface {
	ListPage(ctx context.Context, prefix, token string, pageSize int32) (dto.ListPage, error)
	OpenStream(ctx context.Context, key string) (io.ReadCloser, error)
}

// Service runs scan jobs against the store and the catalog.
type Service struct {
	store     ObjectStore
	catalog   dbsvc.Catalog
	extractor *metadata.Extractor
	thumbs    *thumbcache.Cache
	gate      admission.Gate
	cfg       config.Config
	log       *slog.Logger
}

// NewService creates a new scanner service.
func NewService(cfg config.Config, store ObjectStore, catalog dbsvc.Catalog,
	extractor *metadata.Extractor, thumbs *thumbcache.Cache) *Service {
	return &Service{
		store:     store,
		catalog:   catalog,
		extractor: extractor,
		thumbs:    thumbs,
		gate:      admission.NewGate(cfg.Scan.MetadataMaxBytes(), cfg.Scan.ThumbnailMaxBytes()),
		cfg:       cfg,
		log:       slog.New(slog.DiscardHandler),
	}
}

// SetLogger sets the logger for the scanner.
func (s *Service) SetLogger(log *slog.Logger) {
	s.log = log
}

// RunJob dispatches one scan job to its routine.
func (s *Service) RunJob(ctx context.Context, job dto.ScanJob) error {
	switch job.Type {
	case dto.JobFullScan:
		return s.runFullScan(ctx, job)
	case dto.JobFolderScan:
		return s.runFolderScan(ctx, job)
	case dto.JobMetadataScan:
		return s.runMetadataScan(ctx, job)
	case dto.JobCleanup:
		return s.runCleanup(ctx, job)
	default:
		return fmt.Errorf("unknown job type %q", job.Type)
	}
}

// stagePhoto builds the catalog record for one listed object, classifying
// metadata and thumbnail eligibility against the configured thresholds.
func (s *Service) stagePhoto(obj dto.ObjectInfo, folderID *int64, syncedAt time.Time) dto.Photo {
	return dto.Photo{
		ObjectKey:       obj.Key,
		FolderID:        folderID,
		Filename:        path.Base(obj.Key),
		SizeBytes:       obj.Size,
		ContentType:     admission.ContentTypeForKey(obj.Key),
		ETag:            obj.ETag,
		LastModified:    obj.LastModified,
		MetadataStatus:  s.gate.MetadataStatusFor(obj.Size),
		ThumbnailStatus: s.gate.ThumbnailStatusFor(obj.Size),
		LastSyncedAt:    syncedAt,
	}
}

type pageResult struct {
	page dto.ListPage
	err  error
}

// streamPages lists the store one page ahead of the consumer: the fetch of
// page N+1 overlaps the catalog writes for page N. The channel is
// unbuffered, so at most two pages are resident at once: the one the
// consumer holds and the one the producer is waiting to hand over.
func (s *Service) streamPages(ctx context.Context, prefix, token string) <-chan pageResult {
	ch := make(chan pageResult)
	go func() {
		defer close(ch)
		for {
			page, err := s.store.ListPage(ctx, prefix, token, int32(s.cfg.Scan.PageSize))
			select {
			case ch <- pageResult{page: page, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil || !page.IsTruncated {
				return
			}
			token = page.NextToken
		}
	}()
	return ch
}

// folderPathOf derives the owning folder path from an object key; objects at
// the store root map to the empty path.
func folderPathOf(key string) string {
	idx := strings.LastIndex(key, "/")
	if idx == -1 {
		return ""
	}
	return key[:idx]
}

// normalizeFolderPath strips surrounding slashes; the empty result denotes
// the store root.
func normalizeFolderPath(p string) string {
	return strings.Trim(p, "/")
}
