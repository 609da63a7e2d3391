package app

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"photocat/pkg/dbsvc"
	"photocat/pkg/scheduler"
)

// HealthCheckHandler reports catalog connectivity.
func (a *App) HealthCheckHandler(w http.ResponseWriter, _ *http.Request) {
	info := a.dbHealth.GetHealthInfo()
	status := http.StatusOK
	if !info.IsConnected {
		status = http.StatusServiceUnavailable
	}
	a.writeJSON(w, status, info)
}

// JobStatusHandler returns the current state of one scan job.
func (a *App) JobStatusHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "invalid job id", http.StatusBadRequest)
		return
	}

	job, err := a.scheduler.JobStatus(r.Context(), id)
	if errors.Is(err, dbsvc.ErrNotFound) {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}
	if err != nil {
		a.log.Error("job status lookup failed", slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	a.writeJSON(w, http.StatusOK, job)
}

// SyncFolderHandler blocks until the requested folder's data is fresh, the
// wait budget elapses, or the underlying job fails.
func (a *App) SyncFolderHandler(w http.ResponseWriter, r *http.Request) {
	folder := r.URL.Query().Get("folder")

	err := a.scheduler.SyncFolder(r.Context(), folder)
	switch {
	case errors.Is(err, scheduler.ErrSyncTimeout):
		http.Error(w, err.Error(), http.StatusGatewayTimeout)
	case errors.Is(err, scheduler.ErrJobFailed):
		http.Error(w, err.Error(), http.StatusBadGateway)
	case err != nil:
		a.log.Error("folder sync failed", slog.String("folder", folder), slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)
	default:
		a.writeJSON(w, http.StatusOK, map[string]string{"folder": folder, "status": "synced"})
	}
}

// FullScanHandler enqueues a full-store scan.
func (a *App) FullScanHandler(w http.ResponseWriter, r *http.Request) {
	job, err := a.scheduler.EnqueueFullScan(r.Context())
	if err != nil {
		a.log.Error("full scan enqueue failed", slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	a.writeJSON(w, http.StatusAccepted, job)
}

// MetadataScanHandler enqueues a metadata-only scan of one folder.
func (a *App) MetadataScanHandler(w http.ResponseWriter, r *http.Request) {
	folder := r.URL.Query().Get("folder")
	job, err := a.scheduler.EnqueueMetadataScan(r.Context(), folder)
	if err != nil {
		a.log.Error("metadata scan enqueue failed", slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	a.writeJSON(w, http.StatusAccepted, job)
}

// CleanupHandler enqueues a thumbnail retention cleanup.
func (a *App) CleanupHandler(w http.ResponseWriter, r *http.Request) {
	job, err := a.scheduler.EnqueueCleanup(r.Context())
	if err != nil {
		a.log.Error("cleanup enqueue failed", slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	a.writeJSON(w, http.StatusAccepted, job)
}

func (a *App) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.Error("failed to encode response", slog.String("error", err.Error()))
	}
}
