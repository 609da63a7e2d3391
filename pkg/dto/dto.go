// Package dto provides data transfer objects shared by the catalog services.
package dto

import "time"

// ObjectInfo is one object record as reported by the store listing.
type ObjectInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastmodified"`
	ETag         string    `json:"etag"`
}

// ListPage is one page of a store listing.
type ListPage struct {
	Objects     []ObjectInfo
	NextToken   string
	IsTruncated bool
}

// Folder is a catalog folder derived from slash-delimited key prefixes.
// The store root is not materialized as a folder row; its path is "".
type Folder struct {
	ID             int64      `json:"id"`
	Path           string     `json:"path"`
	Name           string     `json:"name"`
	ParentID       *int64     `json:"parent_id,omitempty"`
	FileCount      int64      `json:"file_count"`
	SubfolderCount int64      `json:"subfolder_count"`
	LastSyncedAt   *time.Time `json:"last_synced_at,omitempty"`
	LastVisitedAt  *time.Time `json:"last_visited_at,omitempty"`
}

// Metadata is the parsed embedded metadata of a photo. Every field is
// optional; a zero Metadata is a legitimate "nothing found" result.
type Metadata struct {
	TakenAt   *time.Time `json:"taken_at,omitempty"`
	Latitude  *float64   `json:"latitude,omitempty"`
	Longitude *float64   `json:"longitude,omitempty"`
	Width     *int       `json:"width,omitempty"`
	Height    *int       `json:"height,omitempty"`
}

// IsEmpty reports whether no metadata field was populated.
func (m Metadata) IsEmpty() bool {
	return m.TakenAt == nil && m.Latitude == nil && m.Longitude == nil &&
		m.Width == nil && m.Height == nil
}

// Photo is one catalog file record. ObjectKey is the natural key used for
// idempotent upserts; FolderID is nil for objects living at the store root.
type Photo struct {
	ID                   int64           `json:"id"`
	ObjectKey            string          `json:"object_key"`
	FolderID             *int64          `json:"folder_id,omitempty"`
	Filename             string          `json:"filename"`
	SizeBytes            int64           `json:"size_bytes"`
	ContentType          string          `json:"content_type"`
	ETag                 string          `json:"etag"`
	LastModified         time.Time       `json:"last_modified"`
	MetadataStatus       MetadataStatus  `json:"metadata_status"`
	ThumbnailStatus      ThumbnailStatus `json:"thumbnail_status"`
	Meta                 Metadata        `json:"metadata"`
	ThumbnailPath        string          `json:"thumbnail_path,omitempty"`
	ThumbnailGeneratedAt *time.Time      `json:"thumbnail_generated_at,omitempty"`
	LastSyncedAt         time.Time       `json:"last_synced_at"`
}

// ScanJob is one reconciliation job in the durable queue.
type ScanJob struct {
	ID             int64      `json:"id"`
	Type           JobType    `json:"type"`
	FolderPath     string     `json:"folder_path"`
	Status         JobStatus  `json:"status"`
	ProcessedItems int64      `json:"processed_items"`
	TotalItems     int64      `json:"total_items"`
	Cursor         string     `json:"-"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
}
