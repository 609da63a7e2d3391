package dto_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"photocat/pkg/dto"
)

func TestMetadataStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name    string
		from    dto.MetadataStatus
		to      dto.MetadataStatus
		allowed bool
	}{
		{"none to pending", dto.MetadataNone, dto.MetadataPending, true},
		{"none to extracted", dto.MetadataNone, dto.MetadataExtracted, true},
		{"none to skipped", dto.MetadataNone, dto.MetadataSkippedSize, true},
		{"pending to extracted", dto.MetadataPending, dto.MetadataExtracted, true},
		{"pending to skipped", dto.MetadataPending, dto.MetadataSkippedSize, true},
		{"pending back to none", dto.MetadataPending, dto.MetadataNone, false},
		{"extracted back to none", dto.MetadataExtracted, dto.MetadataNone, false},
		{"extracted to pending", dto.MetadataExtracted, dto.MetadataPending, false},
		{"skipped to extracted", dto.MetadataSkippedSize, dto.MetadataExtracted, false},
		{"self transition allowed", dto.MetadataPending, dto.MetadataPending, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestMetadataStatus_IsTerminal(t *testing.T) {
	assert.False(t, dto.MetadataNone.IsTerminal())
	assert.False(t, dto.MetadataPending.IsTerminal())
	assert.True(t, dto.MetadataExtracted.IsTerminal())
	assert.True(t, dto.MetadataSkippedSize.IsTerminal())
}

func TestThumbnailStatus_IsTerminal(t *testing.T) {
	assert.False(t, dto.ThumbnailNone.IsTerminal())
	assert.False(t, dto.ThumbnailPending.IsTerminal())
	assert.True(t, dto.ThumbnailGenerated.IsTerminal())
	assert.True(t, dto.ThumbnailSkippedSize.IsTerminal())
}

func TestJobType_Priority(t *testing.T) {
	// User-facing folder and metadata scans outrank the full scan, which
	// outranks cleanup.
	assert.Equal(t, 1, dto.JobFolderScan.Priority())
	assert.Equal(t, 1, dto.JobMetadataScan.Priority())
	assert.Equal(t, 2, dto.JobFullScan.Priority())
	assert.Equal(t, 3, dto.JobCleanup.Priority())
}

func TestJobStatus_IsTerminal(t *testing.T) {
	assert.False(t, dto.JobPending.IsTerminal())
	assert.False(t, dto.JobRunning.IsTerminal())
	assert.True(t, dto.JobCompleted.IsTerminal())
	assert.True(t, dto.JobFailed.IsTerminal())
}

func TestMetadata_IsEmpty(t *testing.T) {
	assert.True(t, dto.Metadata{}.IsEmpty())

	w := 800
	assert.False(t, dto.Metadata{Width: &w}.IsEmpty())
}
