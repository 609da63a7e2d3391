// Package admission decides whether a store object is eligible for metadata
// extraction and thumbnail generation, based on file type and size thresholds.
package admission

import (
	"mime"
	"path"
	"strings"

	"photocat/pkg/dto"
)

// Gate holds the configured size thresholds, in bytes. A file whose size is
// exactly at a threshold is eligible; one byte over is skipped.
type Gate struct {
	MetadataMaxBytes  int64
	ThumbnailMaxBytes int64
}

// NewGate creates a gate from byte thresholds.
func NewGate(metadataMaxBytes, thumbnailMaxBytes int64) Gate {
	return Gate{
		MetadataMaxBytes:  metadataMaxBytes,
		ThumbnailMaxBytes: thumbnailMaxBytes,
	}
}

// mediaExtensions are the recognized media file extensions, lower case.
var mediaExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".webp": {},
	".bmp":  {},
	".tif":  {},
	".tiff": {},
	".heic": {},
	".heif": {},
	".mp4":  {},
	".mov":  {},
	".avi":  {},
	".mkv":  {},
	".webm": {},
}

// IsMediaKey reports whether the object key looks like a media file.
func IsMediaKey(key string) bool {
	ext := strings.ToLower(path.Ext(key))
	_, ok := mediaExtensions[ext]
	return ok
}

// ContentTypeForKey guesses the content type of an object from its extension.
func ContentTypeForKey(key string) string {
	ext := strings.ToLower(path.Ext(key))
	switch ext {
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	case ".mkv":
		return "video/x-matroska"
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// MetadataStatusFor classifies a file for metadata extraction by size.
func (g Gate) MetadataStatusFor(sizeBytes int64) dto.MetadataStatus {
	if sizeBytes > g.MetadataMaxBytes {
		return dto.MetadataSkippedSize
	}
	return dto.MetadataNone
}

// ThumbnailStatusFor classifies a file for thumbnail generation by size.
func (g Gate) ThumbnailStatusFor(sizeBytes int64) dto.ThumbnailStatus {
	if sizeBytes > g.ThumbnailMaxBytes {
		return dto.ThumbnailSkippedSize
	}
	return dto.ThumbnailNone
}
