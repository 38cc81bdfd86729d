package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// mockPinger implements Pinger for testing
type mockPinger struct {
	mock.Mock
}

func (m *mockPinger) PingContext(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func TestHealthService(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "exports")

	t.Run("ready", func(t *testing.T) {
		db := new(mockPinger)
		db.On("PingContext", mock.Anything).Return(nil)
		hs := NewHealthService("1.2.3", "2024-03-01", dir, db, nil)

		assert.Equal(t, "ok", hs.HealthCheck(ctx).Status)

		status := hs.ReadinessCheck(ctx)
		assert.Equal(t, "ready", status.Status)
		assert.Equal(t, "ready", status.Services["database"].Status)
		assert.Equal(t, "ready", status.Services["exports"].Status)
		assert.DirExists(t, dir)
		db.AssertExpectations(t)
	})

	t.Run("database down", func(t *testing.T) {
		db := new(mockPinger)
		db.On("PingContext", mock.Anything).Return(errors.New("database is locked"))
		hs := NewHealthService("1.2.3", "", dir, db, nil)

		status := hs.ReadinessCheck(ctx)
		assert.Equal(t, "not_ready", status.Status)
		assert.Contains(t, status.Services["database"].Message, "database is locked")
	})

	t.Run("no database", func(t *testing.T) {
		hs := NewHealthService("1.2.3", "", dir, nil, nil)
		assert.Equal(t, "not_ready", hs.ReadinessCheck(ctx).Status)
	})

	t.Run("liveness and version", func(t *testing.T) {
		hs := NewHealthService("1.2.3", "2024-03-01", dir, nil, nil)
		live := hs.LivenessCheck(ctx)
		assert.Equal(t, "alive", live.Status)
		assert.Contains(t, live.Runtime, "goroutines")

		v := hs.Version()
		assert.Equal(t, "1.2.3", v["version"])
		assert.Equal(t, "2024-03-01", v["build_time"])
	})
}
