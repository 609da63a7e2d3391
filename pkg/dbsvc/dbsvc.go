// Package dbsvc provides the relational catalog of folders, photos and scan
// jobs derived from the object store.
package dbsvc

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"photocat/pkg/config"
	"photocat/pkg/dto"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrInvalidTransition indicates a status update that would move a
	// record backwards or out of a terminal state.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Catalog is the set of catalog operations the reconciliation engine
// consumes. Service is the Postgres implementation; tests substitute an
// in-memory one.
type Catalog interface {
	// Folders
	GetFolderByPath(ctx context.Context, path string) (dto.Folder, error)
	GetFoldersByPaths(ctx context.Context, paths []string) (map[string]dto.Folder, error)
	CreateFolder(ctx context.Context, path, name string, parentID *int64) (dto.Folder, error)
	RefreshFolderStats(ctx context.Context, folderIDs []int64, syncedAt time.Time) error

	// Photos
	BulkUpsertPhotos(ctx context.Context, photos []dto.Photo) error
	UpsertPhoto(ctx context.Context, photo dto.Photo) error
	MarkMetadataPending(ctx context.Context, photoID int64) error
	RevertMetadataPending(ctx context.Context, photoID int64) error
	SavePhotoMetadata(ctx context.Context, photoID int64, meta dto.Metadata) error
	ListMetadataCandidates(ctx context.Context, folderID *int64, maxSizeBytes int64) ([]dto.Photo, error)
	ListExpiredThumbnails(ctx context.Context, cutoff time.Time) ([]dto.Photo, error)
	ClearThumbnail(ctx context.Context, photoID int64) error

	// Jobs
	CreateJob(ctx context.Context, jobType dto.JobType, folderPath string) (dto.ScanJob, error)
	GetJob(ctx context.Context, id int64) (dto.ScanJob, error)
	NextPendingJob(ctx context.Context) (dto.ScanJob, error)
	ActiveJobExists(ctx context.Context) (bool, error)
	HasPendingPriorityJobs(ctx context.Context) (bool, error)
	FindActiveJob(ctx context.Context, jobType dto.JobType, folderPath string) (dto.ScanJob, error)
	MarkJobRunning(ctx context.Context, id int64) error
	MarkJobCompleted(ctx context.Context, id int64) error
	MarkJobFailed(ctx context.Context, id int64, message string) error
	DemoteJob(ctx context.Context, id int64) error
	UpdateJobProgress(ctx context.Context, id int64, processed, total int64, cursor string) error
	LatestCompletedFullScan(ctx context.Context) (dto.ScanJob, error)
	RecoverStaleJobs(ctx context.Context) (int64, error)
}

// Service provides catalog operations backed by PostgreSQL.
type Service struct {
	db  *sql.DB
	cfg config.Config
	log *slog.Logger
}

// compile-time check that Service satisfies Catalog
var _ Catalog = (*Service)(nil)

// NewService creates a new catalog service.
func NewService(cfg config.Config, db *sql.DB) *Service {
	return &Service{
		db:  db,
		cfg: cfg,
		log: slog.New(slog.DiscardHandler),
	}
}

// SetLogger sets the logger for the service.
func (s *Service) SetLogger(log *slog.Logger) {
	s.log = log
}

// nullTime converts an optional time to its SQL representation.
func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// nullInt64 converts an optional id to its SQL representation.
func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullFloat64(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullIntAsInt64(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}
