// Package downloads issues one-shot, time-bounded keys that stand in for an
// export file path until the file is downloaded.
package downloads

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"wexport/internal/config"
)

// ErrNotFound is returned for an unknown, expired or already redeemed key
var ErrNotFound = errors.New("download not found or expired")

// Handle is what a key resolves to
type Handle struct {
	Path      string
	OwnerID   int64
	ExpiresAt time.Time
}

// Registry maps download keys to export files. It is safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	entries map[string]Handle
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

// NewRegistry creates a registry whose keys expire after ttl
func NewRegistry(ttl time.Duration, logger *slog.Logger) *Registry {
	if ttl <= 0 {
		ttl = config.DefaultDownloadTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		entries: make(map[string]Handle),
		ttl:     ttl,
		now:     time.Now,
		logger:  logger.With(slog.String("component", "downloads")),
	}
}

// Issue registers path and returns its key
func (r *Registry) Issue(path string, ownerID int64) (string, time.Time) {
	key := config.DownloadKeyPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")

	r.mu.Lock()
	defer r.mu.Unlock()

	expires := r.now().Add(r.ttl)
	r.entries[key] = Handle{Path: path, OwnerID: ownerID, ExpiresAt: expires}
	return key, expires
}

// Redeem resolves key and consumes it; a key redeems at most once
func (r *Registry) Redeem(key string) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.entries[key]
	if !ok {
		return Handle{}, ErrNotFound
	}
	delete(r.entries, key)
	if !r.now().Before(h.ExpiresAt) {
		return Handle{}, ErrNotFound
	}
	return h, nil
}

// Len returns the number of outstanding keys
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep removes expired keys and returns how many were removed
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for key, h := range r.entries {
		if !now.Before(h.ExpiresAt) {
			delete(r.entries, key)
			removed++
		}
	}
	return removed
}

// RunJanitor sweeps every interval until ctx is done
func (r *Registry) RunJanitor(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.logger.Debug("expired download keys removed", slog.Int("count", n))
			}
		}
	}
}
