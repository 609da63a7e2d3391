package dbsvc

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"photocat/pkg/dto"
)

const photoColumns = `id, object_key, folder_id, filename, size_bytes, content_type, etag,
	last_modified, metadata_status, thumbnail_status, taken_at, latitude, longitude,
	width, height, thumbnail_path, thumbnail_generated_at, last_synced_at`

func scanPhoto(row interface{ Scan(...any) error }) (dto.Photo, error) {
	var p dto.Photo
	var folderID sql.NullInt64
	var lastModified, takenAt, thumbGeneratedAt, lastSynced sql.NullTime
	var lat, long sql.NullFloat64
	var width, height sql.NullInt64

	err := row.Scan(&p.ID, &p.ObjectKey, &folderID, &p.Filename, &p.SizeBytes, &p.ContentType,
		&p.ETag, &lastModified, &p.MetadataStatus, &p.ThumbnailStatus, &takenAt, &lat, &long,
		&width, &height, &p.ThumbnailPath, &thumbGeneratedAt, &lastSynced)
	if err != nil {
		return p, err
	}

	p.FolderID = int64Ptr(folderID)
	if lastModified.Valid {
		p.LastModified = lastModified.Time
	}
	p.Meta.TakenAt = timePtr(takenAt)
	if lat.Valid {
		p.Meta.Latitude = &lat.Float64
	}
	if long.Valid {
		p.Meta.Longitude = &long.Float64
	}
	if width.Valid {
		w := int(width.Int64)
		p.Meta.Width = &w
	}
	if height.Valid {
		h := int(height.Int64)
		p.Meta.Height = &h
	}
	p.ThumbnailGeneratedAt = timePtr(thumbGeneratedAt)
	if lastSynced.Valid {
		p.LastSyncedAt = lastSynced.Time
	}
	return p, nil
}

// BulkUpsertPhotos inserts or updates a batch of photo records in one
// statement, keyed by object key. On conflict every mutable column is
// overwritten with the incoming value, which makes replaying a scan
// idempotent.
func (s *Service) BulkUpsertPhotos(ctx context.Context, photos []dto.Photo) error {
	if len(photos) == 0 {
		return nil
	}

	n := len(photos)
	keys := make([]string, n)
	folderIDs := make([]sql.NullInt64, n)
	filenames := make([]string, n)
	sizes := make([]int64, n)
	contentTypes := make([]string, n)
	etags := make([]string, n)
	lastModified := make([]time.Time, n)
	metaStatuses := make([]string, n)
	thumbStatuses := make([]string, n)
	takenAt := make([]sql.NullTime, n)
	lats := make([]sql.NullFloat64, n)
	longs := make([]sql.NullFloat64, n)
	widths := make([]sql.NullInt64, n)
	heights := make([]sql.NullInt64, n)
	syncedAt := make([]time.Time, n)

	for i, p := range photos {
		keys[i] = p.ObjectKey
		folderIDs[i] = nullInt64(p.FolderID)
		filenames[i] = p.Filename
		sizes[i] = p.SizeBytes
		contentTypes[i] = p.ContentType
		etags[i] = p.ETag
		lastModified[i] = p.LastModified
		metaStatuses[i] = string(p.MetadataStatus)
		thumbStatuses[i] = string(p.ThumbnailStatus)
		takenAt[i] = nullTime(p.Meta.TakenAt)
		lats[i] = nullFloat64(p.Meta.Latitude)
		longs[i] = nullFloat64(p.Meta.Longitude)
		widths[i] = nullIntAsInt64(p.Meta.Width)
		heights[i] = nullIntAsInt64(p.Meta.Height)
		syncedAt[i] = p.LastSyncedAt
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO photos (object_key, folder_id, filename, size_bytes, content_type,
			etag, last_modified, metadata_status, thumbnail_status,
			taken_at, latitude, longitude, width, height, last_synced_at)
		SELECT * FROM unnest(
			$1::text[], $2::bigint[], $3::text[], $4::bigint[], $5::text[],
			$6::text[], $7::timestamptz[], $8::text[], $9::text[],
			$10::timestamptz[], $11::double precision[], $12::double precision[],
			$13::bigint[], $14::bigint[], $15::timestamptz[])
		ON CONFLICT (object_key) DO UPDATE SET
			folder_id = EXCLUDED.folder_id,
			filename = EXCLUDED.filename,
			size_bytes = EXCLUDED.size_bytes,
			content_type = EXCLUDED.content_type,
			etag = EXCLUDED.etag,
			last_modified = EXCLUDED.last_modified,
			metadata_status = EXCLUDED.metadata_status,
			thumbnail_status = EXCLUDED.thumbnail_status,
			taken_at = EXCLUDED.taken_at,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			width = EXCLUDED.width,
			height = EXCLUDED.height,
			last_synced_at = EXCLUDED.last_synced_at`,
		pq.Array(keys), pq.Array(folderIDs), pq.Array(filenames), pq.Array(sizes),
		pq.Array(contentTypes), pq.Array(etags), pq.Array(lastModified),
		pq.Array(metaStatuses), pq.Array(thumbStatuses), pq.Array(takenAt),
		pq.Array(lats), pq.Array(longs), pq.Array(widths), pq.Array(heights),
		pq.Array(syncedAt))
	if err != nil {
		return fmt.Errorf("failed to bulk upsert photos: %w", err)
	}
	return nil
}

// UpsertPhoto inserts or updates a single photo record keyed by object key,
// including its parsed metadata blob.
func (s *Service) UpsertPhoto(ctx context.Context, photo dto.Photo) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO photos (object_key, folder_id, filename, size_bytes, content_type,
			etag, last_modified, metadata_status, thumbnail_status,
			taken_at, latitude, longitude, width, height, last_synced_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (object_key) DO UPDATE SET
			folder_id = EXCLUDED.folder_id,
			filename = EXCLUDED.filename,
			size_bytes = EXCLUDED.size_bytes,
			content_type = EXCLUDED.content_type,
			etag = EXCLUDED.etag,
			last_modified = EXCLUDED.last_modified,
			metadata_status = EXCLUDED.metadata_status,
			thumbnail_status = EXCLUDED.thumbnail_status,
			taken_at = EXCLUDED.taken_at,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			width = EXCLUDED.width,
			height = EXCLUDED.height,
			last_synced_at = EXCLUDED.last_synced_at`,
		photo.ObjectKey, nullInt64(photo.FolderID), photo.Filename, photo.SizeBytes,
		photo.ContentType, photo.ETag, photo.LastModified, string(photo.MetadataStatus),
		string(photo.ThumbnailStatus), nullTime(photo.Meta.TakenAt),
		nullFloat64(photo.Meta.Latitude), nullFloat64(photo.Meta.Longitude),
		nullIntAsInt64(photo.Meta.Width), nullIntAsInt64(photo.Meta.Height),
		photo.LastSyncedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert photo %q: %w", photo.ObjectKey, err)
	}
	return nil
}

// MarkMetadataPending moves a photo's metadata status to pending. The WHERE
// clause enforces the forward-only transition rule: terminal records are
// never pulled back.
func (s *Service) MarkMetadataPending(ctx context.Context, photoID int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE photos SET metadata_status = 'pending'
		WHERE id = $1 AND metadata_status IN ('none', 'pending')`, photoID)
	if err != nil {
		return fmt.Errorf("failed to mark metadata pending: %w", err)
	}
	return requireRow(res)
}

// RevertMetadataPending is the explicit retry path: a pending record whose
// extraction failed goes back to none so the next scan picks it up again.
func (s *Service) RevertMetadataPending(ctx context.Context, photoID int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE photos SET metadata_status = 'none'
		WHERE id = $1 AND metadata_status = 'pending'`, photoID)
	if err != nil {
		return fmt.Errorf("failed to revert metadata status: %w", err)
	}
	return requireRow(res)
}

// SavePhotoMetadata records an extraction result and advances the status to
// extracted. An empty blob is a legitimate result, not an error.
func (s *Service) SavePhotoMetadata(ctx context.Context, photoID int64, meta dto.Metadata) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE photos SET
			metadata_status = 'extracted',
			taken_at = $2, latitude = $3, longitude = $4, width = $5, height = $6
		WHERE id = $1 AND metadata_status IN ('none', 'pending')`,
		photoID, nullTime(meta.TakenAt), nullFloat64(meta.Latitude),
		nullFloat64(meta.Longitude), nullIntAsInt64(meta.Width), nullIntAsInt64(meta.Height))
	if err != nil {
		return fmt.Errorf("failed to save photo metadata: %w", err)
	}
	return requireRow(res)
}

// ListMetadataCandidates returns the photos in a folder still needing
// metadata extraction and within the size threshold, smallest first so
// progress shows quickly and large outliers cannot stall the batch. A nil
// folderID selects photos at the store root.
func (s *Service) ListMetadataCandidates(ctx context.Context, folderID *int64, maxSizeBytes int64) ([]dto.Photo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+photoColumns+` FROM photos
		WHERE (($1::bigint IS NULL AND folder_id IS NULL) OR folder_id = $1)
			AND metadata_status IN ('none', 'pending')
			AND size_bytes <= $2
		ORDER BY size_bytes ASC`,
		nullInt64(folderID), maxSizeBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to list metadata candidates: %w", err)
	}
	defer rows.Close()
	return collectPhotos(rows)
}

// ListExpiredThumbnails returns photos whose generated thumbnail is older
// than the cutoff.
func (s *Service) ListExpiredThumbnails(ctx context.Context, cutoff time.Time) ([]dto.Photo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+photoColumns+` FROM photos
		WHERE thumbnail_status = 'generated' AND thumbnail_generated_at < $1
		ORDER BY thumbnail_generated_at ASC`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired thumbnails: %w", err)
	}
	defer rows.Close()
	return collectPhotos(rows)
}

// ClearThumbnail drops a photo's thumbnail reference after its cached
// artifact expired, making it eligible for regeneration.
func (s *Service) ClearThumbnail(ctx context.Context, photoID int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE photos SET
			thumbnail_status = 'none',
			thumbnail_path = '',
			thumbnail_generated_at = NULL
		WHERE id = $1`, photoID)
	if err != nil {
		return fmt.Errorf("failed to clear thumbnail: %w", err)
	}
	return nil
}

func collectPhotos(rows *sql.Rows) ([]dto.Photo, error) {
	var result []dto.Photo
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan photo: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate photos: %w", err)
	}
	return result, nil
}

func requireRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrInvalidTransition
	}
	return nil
}
