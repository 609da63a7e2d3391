package health_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"photocat/pkg/health"
)

func TestNewDatabaseHealth_StartsUnknown(t *testing.T) {
	h := health.NewDatabaseHealth(nil)

	info := h.GetHealthInfo()
	assert.Equal(t, health.StatusUnknown, info.Status)
	assert.False(t, info.IsConnected, "an unverified database is not reported as connected")
	assert.Zero(t, info.ConsecutiveFailures)
	assert.False(t, h.IsHealthy())
}

func TestSetLogger(t *testing.T) {
	h := health.NewDatabaseHealth(nil)
	h.SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	// If it doesn't panic, the test passes
}
