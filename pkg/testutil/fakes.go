// Package testutil provides in-memory doubles for the catalog and the object
// store so scan and scheduling logic can be tested without Postgres or S3.
package testutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"photocat/pkg/dbsvc"
	"photocat/pkg/dto"
)

// FakeCatalog is an in-memory dbsvc.Catalog. It mirrors the Postgres
// implementation's transition guards so callers exercise the same error
// paths.
type FakeCatalog struct {
	mu sync.Mutex

	folders map[string]*dto.Folder // by path
	photos  map[string]*dto.Photo  // by object key
	jobs    map[int64]*dto.ScanJob

	nextFolderID int64
	nextPhotoID  int64
	nextJobID    int64

	// BulkUpsertErr, when set, is returned by the next BulkUpsertPhotos
	// call and then cleared.
	BulkUpsertErr error

	// BulkUpsertCalls counts batch writes, batch sizes included.
	BulkUpsertCalls []int

	progressLog []JobProgress
}

// JobProgress is one recorded UpdateJobProgress call.
type JobProgress struct {
	JobID     int64
	Processed int64
	Total     int64
	Cursor    string
}

var _ dbsvc.Catalog = (*FakeCatalog)(nil)

// NewFakeCatalog returns an empty in-memory catalog.
func NewFakeCatalog() *FakeCatalog {
	return &FakeCatalog{
		folders: make(map[string]*dto.Folder),
		photos:  make(map[string]*dto.Photo),
		jobs:    make(map[int64]*dto.ScanJob),
	}
}

func (f *FakeCatalog) GetFolderByPath(_ context.Context, path string) (dto.Folder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fol, ok := f.folders[path]
	if !ok {
		return dto.Folder{}, dbsvc.ErrNotFound
	}
	return *fol, nil
}

func (f *FakeCatalog) GetFoldersByPaths(_ context.Context, paths []string) (map[string]dto.Folder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]dto.Folder, len(paths))
	for _, p := range paths {
		if fol, ok := f.folders[p]; ok {
			out[p] = *fol
		}
	}
	return out, nil
}

func (f *FakeCatalog) CreateFolder(_ context.Context, path, name string, parentID *int64) (dto.Folder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if fol, ok := f.folders[path]; ok {
		fol.Name = name
		return *fol, nil
	}
	f.nextFolderID++
	fol := &dto.Folder{ID: f.nextFolderID, Path: path, Name: name, ParentID: parentID}
	f.folders[path] = fol
	return *fol, nil
}

func (f *FakeCatalog) RefreshFolderStats(_ context.Context, folderIDs []int64, syncedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range folderIDs {
		for _, fol := range f.folders {
			if fol.ID != id {
				continue
			}
			var files, subs int64
			for _, p := range f.photos {
				if p.FolderID != nil && *p.FolderID == id {
					files++
				}
			}
			for _, child := range f.folders {
				if child.ParentID != nil && *child.ParentID == id {
					subs++
				}
			}
			fol.FileCount = files
			fol.SubfolderCount = subs
			t := syncedAt
			fol.LastSyncedAt = &t
		}
	}
	return nil
}

// SetFolderSyncedAt backdates or forwards a folder's last sync marker.
func (f *FakeCatalog) SetFolderSyncedAt(path string, t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if fol, ok := f.folders[path]; ok {
		ts := t
		fol.LastSyncedAt = &ts
	}
}

func (f *FakeCatalog) upsertLocked(photo dto.Photo) {
	existing, ok := f.photos[photo.ObjectKey]
	if !ok {
		f.nextPhotoID++
		photo.ID = f.nextPhotoID
		p := photo
		f.photos[photo.ObjectKey] = &p
		return
	}
	photo.ID = existing.ID
	*existing = photo
}

func (f *FakeCatalog) BulkUpsertPhotos(_ context.Context, photos []dto.Photo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.BulkUpsertErr; err != nil {
		f.BulkUpsertErr = nil
		return err
	}
	f.BulkUpsertCalls = append(f.BulkUpsertCalls, len(photos))
	for _, p := range photos {
		f.upsertLocked(p)
	}
	return nil
}

func (f *FakeCatalog) UpsertPhoto(_ context.Context, photo dto.Photo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upsertLocked(photo)
	return nil
}

func (f *FakeCatalog) photoByIDLocked(id int64) (*dto.Photo, bool) {
	for _, p := range f.photos {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

func (f *FakeCatalog) MarkMetadataPending(_ context.Context, photoID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.photoByIDLocked(photoID)
	if !ok {
		return dbsvc.ErrNotFound
	}
	if p.MetadataStatus.IsTerminal() || !p.MetadataStatus.CanTransitionTo(dto.MetadataPending) {
		return dbsvc.ErrInvalidTransition
	}
	p.MetadataStatus = dto.MetadataPending
	return nil
}

func (f *FakeCatalog) RevertMetadataPending(_ context.Context, photoID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.photoByIDLocked(photoID)
	if !ok {
		return dbsvc.ErrNotFound
	}
	if p.MetadataStatus != dto.MetadataPending {
		return dbsvc.ErrInvalidTransition
	}
	p.MetadataStatus = dto.MetadataNone
	return nil
}

func (f *FakeCatalog) SavePhotoMetadata(_ context.Context, photoID int64, meta dto.Metadata) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.photoByIDLocked(photoID)
	if !ok {
		return dbsvc.ErrNotFound
	}
	if p.MetadataStatus.IsTerminal() || !p.MetadataStatus.CanTransitionTo(dto.MetadataExtracted) {
		return dbsvc.ErrInvalidTransition
	}
	p.MetadataStatus = dto.MetadataExtracted
	p.Meta = meta
	return nil
}

func (f *FakeCatalog) ListMetadataCandidates(_ context.Context, folderID *int64, maxSizeBytes int64) ([]dto.Photo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []dto.Photo
	for _, p := range f.photos {
		sameFolder := (folderID == nil && p.FolderID == nil) ||
			(folderID != nil && p.FolderID != nil && *folderID == *p.FolderID)
		if !sameFolder {
			continue
		}
		if p.MetadataStatus != dto.MetadataNone && p.MetadataStatus != dto.MetadataPending {
			continue
		}
		if p.SizeBytes > maxSizeBytes {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SizeBytes < out[j].SizeBytes })
	return out, nil
}

func (f *FakeCatalog) ListExpiredThumbnails(_ context.Context, cutoff time.Time) ([]dto.Photo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []dto.Photo
	for _, p := range f.photos {
		if p.ThumbnailStatus != dto.ThumbnailGenerated {
			continue
		}
		if p.ThumbnailGeneratedAt == nil || p.ThumbnailGeneratedAt.After(cutoff) {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *FakeCatalog) ClearThumbnail(_ context.Context, photoID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.photoByIDLocked(photoID)
	if !ok {
		return dbsvc.ErrNotFound
	}
	p.ThumbnailStatus = dto.ThumbnailNone
	p.ThumbnailPath = ""
	p.ThumbnailGeneratedAt = nil
	return nil
}

func (f *FakeCatalog) CreateJob(_ context.Context, jobType dto.JobType, folderPath string) (dto.ScanJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextJobID++
	job := &dto.ScanJob{
		ID:         f.nextJobID,
		Type:       jobType,
		FolderPath: folderPath,
		Status:     dto.JobPending,
		CreatedAt:  time.Now(),
	}
	f.jobs[job.ID] = job
	return *job, nil
}

func (f *FakeCatalog) GetJob(_ context.Context, id int64) (dto.ScanJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return dto.ScanJob{}, dbsvc.ErrNotFound
	}
	return *job, nil
}

func (f *FakeCatalog) NextPendingJob(_ context.Context) (dto.ScanJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var best *dto.ScanJob
	for _, job := range f.jobs {
		if job.Status != dto.JobPending {
			continue
		}
		if best == nil ||
			job.Type.Priority() < best.Type.Priority() ||
			(job.Type.Priority() == best.Type.Priority() && job.ID < best.ID) {
			best = job
		}
	}
	if best == nil {
		return dto.ScanJob{}, dbsvc.ErrNotFound
	}
	return *best, nil
}

func (f *FakeCatalog) ActiveJobExists(_ context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, job := range f.jobs {
		if !job.Status.IsTerminal() {
			return true, nil
		}
	}
	return false, nil
}

func (f *FakeCatalog) HasPendingPriorityJobs(_ context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, job := range f.jobs {
		if job.Status == dto.JobPending && job.Type.Priority() == 1 {
			return true, nil
		}
	}
	return false, nil
}

func (f *FakeCatalog) FindActiveJob(_ context.Context, jobType dto.JobType, folderPath string) (dto.ScanJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, job := range f.jobs {
		if job.Type == jobType && job.FolderPath == folderPath && !job.Status.IsTerminal() {
			return *job, nil
		}
	}
	return dto.ScanJob{}, dbsvc.ErrNotFound
}

func (f *FakeCatalog) MarkJobRunning(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return dbsvc.ErrNotFound
	}
	if job.Status != dto.JobPending {
		return dbsvc.ErrInvalidTransition
	}
	job.Status = dto.JobRunning
	if job.StartedAt == nil {
		now := time.Now()
		job.StartedAt = &now
	}
	return nil
}

func (f *FakeCatalog) MarkJobCompleted(_ context.Context, id int64) error {
	return f.finishJob(id, dto.JobCompleted, "")
}

func (f *FakeCatalog) MarkJobFailed(_ context.Context, id int64, message string) error {
	return f.finishJob(id, dto.JobFailed, message)
}

func (f *FakeCatalog) finishJob(id int64, status dto.JobStatus, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return dbsvc.ErrNotFound
	}
	if job.Status != dto.JobRunning {
		return dbsvc.ErrInvalidTransition
	}
	job.Status = status
	job.ErrorMessage = message
	now := time.Now()
	job.FinishedAt = &now
	return nil
}

func (f *FakeCatalog) DemoteJob(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return dbsvc.ErrNotFound
	}
	if job.Status != dto.JobRunning {
		return dbsvc.ErrInvalidTransition
	}
	job.Status = dto.JobPending
	return nil
}

func (f *FakeCatalog) UpdateJobProgress(_ context.Context, id int64, processed, total int64, cursor string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return dbsvc.ErrNotFound
	}
	job.ProcessedItems = processed
	job.TotalItems = total
	job.Cursor = cursor
	f.progressLog = append(f.progressLog, JobProgress{JobID: id, Processed: processed, Total: total, Cursor: cursor})
	return nil
}

// ProgressLog returns every recorded progress checkpoint in call order.
func (f *FakeCatalog) ProgressLog() []JobProgress {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]JobProgress, len(f.progressLog))
	copy(out, f.progressLog)
	return out
}

func (f *FakeCatalog) LatestCompletedFullScan(_ context.Context) (dto.ScanJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var best *dto.ScanJob
	for _, job := range f.jobs {
		if job.Type != dto.JobFullScan || job.Status != dto.JobCompleted {
			continue
		}
		if best == nil || (job.FinishedAt != nil && best.FinishedAt != nil && job.FinishedAt.After(*best.FinishedAt)) {
			best = job
		}
	}
	if best == nil {
		return dto.ScanJob{}, dbsvc.ErrNotFound
	}
	return *best, nil
}

func (f *FakeCatalog) RecoverStaleJobs(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, job := range f.jobs {
		if job.Status == dto.JobRunning {
			job.Status = dto.JobPending
			n++
		}
	}
	return n, nil
}

// PhotoByKey returns a copy of the stored photo, if any.
func (f *FakeCatalog) PhotoByKey(key string) (dto.Photo, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.photos[key]
	if !ok {
		return dto.Photo{}, false
	}
	return *p, true
}

// Photos returns all stored photos sorted by object key.
func (f *FakeCatalog) Photos() []dto.Photo {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]dto.Photo, 0, len(f.photos))
	for _, p := range f.photos {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ObjectKey < out[j].ObjectKey })
	return out
}

// Folders returns all stored folders sorted by path.
func (f *FakeCatalog) Folders() []dto.Folder {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]dto.Folder, 0, len(f.folders))
	for _, fol := range f.folders {
		out = append(out, *fol)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Jobs returns all jobs sorted by id.
func (f *FakeCatalog) Jobs() []dto.ScanJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]dto.ScanJob, 0, len(f.jobs))
	for _, job := range f.jobs {
		out = append(out, *job)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SeedPhoto inserts a photo directly, assigning an id if absent.
func (f *FakeCatalog) SeedPhoto(photo dto.Photo) dto.Photo {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upsertLocked(photo)
	return *f.photos[photo.ObjectKey]
}

// SeedFolder inserts a folder directly.
func (f *FakeCatalog) SeedFolder(folder dto.Folder) dto.Folder {
	f.mu.Lock()
	defer f.mu.Unlock()
	if folder.ID == 0 {
		f.nextFolderID++
		folder.ID = f.nextFolderID
	}
	fol := folder
	f.folders[folder.Path] = &fol
	return fol
}

// FakeStore is an in-memory object store. Listing pages through the key set
// in lexical order using numeric continuation tokens; streams serve the
// configured byte payloads.
type FakeStore struct {
	mu      sync.Mutex
	objects map[string]storedObject

	listCalls int

	// StreamErr, when set, is returned by every OpenStream call.
	StreamErr error

	// OnList, when set, runs before each ListPage call. Tests use it to
	// enqueue competing jobs mid-scan.
	OnList func(page int)
}

type storedObject struct {
	info dto.ObjectInfo
	body []byte
}

// NewFakeStore returns an empty in-memory store.
func NewFakeStore() *FakeStore {
	return &FakeStore{objects: make(map[string]storedObject)}
}

// Put adds an object with the given body.
func (s *FakeStore) Put(key string, size int64, lastModified time.Time, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = storedObject{
		info: dto.ObjectInfo{
			Key:          key,
			Size:         size,
			LastModified: lastModified,
			ETag:         fmt.Sprintf("etag-%d", len(s.objects)+1),
		},
		body: body,
	}
}

func (s *FakeStore) sortedKeys(prefix string) []string {
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// ListPage pages through keys under prefix in lexical order.
func (s *FakeStore) ListPage(_ context.Context, prefix, token string, pageSize int32) (dto.ListPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	if s.OnList != nil {
		s.OnList(s.listCalls)
	}

	keys := s.sortedKeys(prefix)
	start := 0
	if token != "" {
		n, err := strconv.Atoi(token)
		if err != nil {
			return dto.ListPage{}, fmt.Errorf("bad continuation token %q: %w", token, err)
		}
		start = n
	}
	end := start + int(pageSize)
	if end >= len(keys) {
		end = len(keys)
	}

	page := dto.ListPage{}
	for _, k := range keys[start:end] {
		page.Objects = append(page.Objects, s.objects[k].info)
	}
	if end < len(keys) {
		page.IsTruncated = true
		page.NextToken = strconv.Itoa(end)
	}
	return page, nil
}

// ListCalls returns the number of ListPage invocations so far.
func (s *FakeStore) ListCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listCalls
}

// OpenStream returns the stored body for key.
func (s *FakeStore) OpenStream(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.StreamErr != nil {
		return nil, s.StreamErr
	}
	obj, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("no such key %q", key)
	}
	return io.NopCloser(bytes.NewReader(obj.body)), nil
}
