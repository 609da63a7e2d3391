// Package health provides database health monitoring for the status surface.
package health

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"time"
)

// Status represents the current health status.
type Status string

const (
	// StatusHealthy indicates the catalog database is reachable.
	StatusHealthy Status = "healthy"
	// StatusUnhealthy indicates the catalog database is not reachable.
	StatusUnhealthy Status = "unhealthy"
	// StatusUnknown indicates no check has run yet.
	StatusUnknown Status = "unknown"
)

const (
	defaultCheckInterval = 30 * time.Second
	pingTimeout          = 5 * time.Second
)

// DatabaseHealth tracks catalog database connectivity.
type DatabaseHealth struct {
	mu                  sync.RWMutex
	db                  *sql.DB
	status              Status
	lastCheck           time.Time
	lastError           error
	consecutiveFailures int
	log                 *slog.Logger
	checkInterval       time.Duration
	cancel              context.CancelFunc
}

// Info contains current health information.
type Info struct {
	Status              Status    `json:"status"`
	LastCheck           time.Time `json:"last_check"`
	LastError           string    `json:"last_error,omitempty"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	IsConnected         bool      `json:"is_connected"`
}

// NewDatabaseHealth creates a new database health monitor.
func NewDatabaseHealth(db *sql.DB) *DatabaseHealth {
	return &DatabaseHealth{
		db:            db,
		status:        StatusUnknown,
		log:           slog.New(slog.DiscardHandler),
		checkInterval: defaultCheckInterval,
	}
}

// SetLogger sets the logger for the monitor.
func (h *DatabaseHealth) SetLogger(log *slog.Logger) {
	h.log = log
}

// Start runs an initial check and begins periodic monitoring in the
// background.
func (h *DatabaseHealth) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	h.cancel = cancel

	h.check(ctx)
	go h.loop(ctx)
}

// Stop stops the monitoring loop.
func (h *DatabaseHealth) Stop() {
	if h.cancel != nil {
		h.cancel()
	}
}

// GetHealthInfo returns current health information.
func (h *DatabaseHealth) GetHealthInfo() Info {
	h.mu.RLock()
	defer h.mu.RUnlock()

	errorMsg := ""
	if h.lastError != nil {
		errorMsg = h.lastError.Error()
	}
	return Info{
		Status:              h.status,
		LastCheck:           h.lastCheck,
		LastError:           errorMsg,
		ConsecutiveFailures: h.consecutiveFailures,
		IsConnected:         h.status == StatusHealthy,
	}
}

// IsHealthy reports whether the database is currently reachable.
func (h *DatabaseHealth) IsHealthy() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status == StatusHealthy
}

func (h *DatabaseHealth) loop(ctx context.Context) {
	ticker := time.NewTicker(h.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.check(ctx)
		}
	}
}

func (h *DatabaseHealth) check(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastCheck = time.Now()

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := h.db.PingContext(pingCtx); err != nil {
		h.status = StatusUnhealthy
		h.lastError = err
		h.consecutiveFailures++
		h.log.Debug("Database health check failed",
			slog.String("error", err.Error()),
			slog.Int("consecutive_failures", h.consecutiveFailures))
		return
	}

	wasUnhealthy := h.status == StatusUnhealthy
	h.status = StatusHealthy
	h.lastError = nil
	h.consecutiveFailures = 0
	if wasUnhealthy {
		h.log.Info("Database health restored")
	}
}
