package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photocat/pkg/config"
	"photocat/pkg/dto"
	"photocat/pkg/health"
	"photocat/pkg/metadata"
	"photocat/pkg/scanner"
	"photocat/pkg/scheduler"
	"photocat/pkg/testutil"
	"photocat/pkg/thumbcache"
)

// newTestApp wires an App over the in-memory catalog and store, skipping the
// database and S3 client initialization done by NewApp.
func newTestApp(t *testing.T) (*App, *testutil.FakeCatalog) {
	t.Helper()

	cfg := config.Config{}
	cfg.ApplyDefaults()
	cfg.Scan.ThumbnailCacheDir = t.TempDir()
	cfg.Scan.SyncWaitSeconds = 1

	catalog := testutil.NewFakeCatalog()
	store := testutil.NewFakeStore()

	thumbs, err := thumbcache.NewCache(cfg.Scan.ThumbnailCacheDir)
	require.NoError(t, err)
	scannerSvc := scanner.NewService(cfg, store, catalog, metadata.NewExtractor(0, time.Second), thumbs)

	sched := scheduler.NewScheduler(cfg, catalog, scannerSvc)
	sched.SetWaitPollInterval(10 * time.Millisecond)

	a := &App{
		cfg:       cfg,
		scheduler: sched,
		dbHealth:  health.NewDatabaseHealth(nil),
		router:    mux.NewRouter().StrictSlash(true),
		log:       slog.New(slog.DiscardHandler),
	}
	a.initRouter()
	return a, catalog
}

func TestHealthCheckHandler_UnverifiedDatabase(t *testing.T) {
	a, _ := newTestApp(t)

	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var info health.Info
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&info))
	assert.Equal(t, health.StatusUnknown, info.Status)
	assert.False(t, info.IsConnected)
}

func TestJobStatusHandler(t *testing.T) {
	a, catalog := newTestApp(t)

	job, err := catalog.CreateJob(context.Background(), dto.JobFullScan, "")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got dto.ScanJob
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, dto.JobFullScan, got.Type)
	assert.Equal(t, dto.JobPending, got.Status)
}

func TestJobStatusHandler_UnknownJob(t *testing.T) {
	a, _ := newTestApp(t)

	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/999", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFullScanHandler_EnqueuesJob(t *testing.T) {
	a, catalog := newTestApp(t)

	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/scan", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)

	var job dto.ScanJob
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&job))
	assert.Equal(t, dto.JobFullScan, job.Type)
	assert.Len(t, catalog.Jobs(), 1)

	// A repeat request reuses the queued job.
	rec = httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/scan", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Len(t, catalog.Jobs(), 1)
}

func TestMetadataScanHandler_EnqueuesJob(t *testing.T) {
	a, catalog := newTestApp(t)

	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/metadata?folder=/f/", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)

	var job dto.ScanJob
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&job))
	assert.Equal(t, dto.JobMetadataScan, job.Type)
	assert.Equal(t, "f", job.FolderPath)
	assert.Len(t, catalog.Jobs(), 1)
}

func TestCleanupHandler_EnqueuesJob(t *testing.T) {
	a, catalog := newTestApp(t)

	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/cleanup", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)

	var job dto.ScanJob
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&job))
	assert.Equal(t, dto.JobCleanup, job.Type)
	assert.Len(t, catalog.Jobs(), 1)
}

func TestSyncFolderHandler_RecentlySyncedFolder(t *testing.T) {
	a, catalog := newTestApp(t)
	catalog.SeedFolder(dto.Folder{Path: "f", Name: "f"})
	catalog.SetFolderSyncedAt("f", time.Now())

	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sync?folder=f", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, catalog.Jobs(), "a fresh folder needs no new scan")
}

func TestSyncFolderHandler_TimeoutMapsToGatewayTimeout(t *testing.T) {
	a, catalog := newTestApp(t)
	catalog.SeedFolder(dto.Folder{Path: "f", Name: "f"})

	// No scheduler loop is running, so the queued job never advances.
	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sync?folder=f", nil))
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
}
