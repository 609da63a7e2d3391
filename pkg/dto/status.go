package dto

// MetadataStatus tracks whether embedded metadata has been extracted for a
// photo. Transitions only move forward; the single exception is the explicit
// retry path that reverts pending back to none after an extraction failure.
type MetadataStatus string

const (
	MetadataNone        MetadataStatus = "none"
	MetadataPending     MetadataStatus = "pending"
	MetadataExtracted   MetadataStatus = "extracted"
	MetadataSkippedSize MetadataStatus = "skipped_size"
)

// IsTerminal reports whether the status is a terminal success or policy skip.
func (s MetadataStatus) IsTerminal() bool {
	return s == MetadataExtracted || s == MetadataSkippedSize
}

// CanTransitionTo reports whether moving to next respects the forward-only
// rule. The pending→none revert is not covered here: it is an explicit retry
// operation, not a regular transition.
func (s MetadataStatus) CanTransitionTo(next MetadataStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case MetadataNone:
		return next == MetadataPending || next == MetadataExtracted || next == MetadataSkippedSize
	case MetadataPending:
		return next == MetadataExtracted || next == MetadataSkippedSize
	default:
		return false
	}
}

// ThumbnailStatus tracks whether a thumbnail has been generated for a photo.
type ThumbnailStatus string

const (
	ThumbnailNone        ThumbnailStatus = "none"
	ThumbnailPending     ThumbnailStatus = "pending"
	ThumbnailGenerated   ThumbnailStatus = "generated"
	ThumbnailSkippedSize ThumbnailStatus = "skipped_size"
)

// IsTerminal reports whether the status is a terminal success or policy skip.
func (s ThumbnailStatus) IsTerminal() bool {
	return s == ThumbnailGenerated || s == ThumbnailSkippedSize
}

// JobType identifies one of the four scan routines.
type JobType string

const (
	JobFullScan     JobType = "full_scan"
	JobFolderScan   JobType = "folder_scan"
	JobMetadataScan JobType = "metadata_scan"
	JobCleanup      JobType = "cleanup"
)

// Priority returns the scheduling tier of the job type; lower runs first.
func (t JobType) Priority() int {
	switch t {
	case JobFolderScan, JobMetadataScan:
		return 1
	case JobFullScan:
		return 2
	default:
		return 3
	}
}

// JobStatus is the lifecycle state of a scan job.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// IsTerminal reports whether the job reached a final state.
func (s JobStatus) IsTerminal() bool {
	return s == JobCompleted || s == JobFailed
}
