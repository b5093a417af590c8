package cache

import (
	"context"
	"log/slog"
	"time"
)

// Cache is the subset of LRUCache the services depend on.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	DeletePrefix(prefix string) int
	Size() int
}

// Cleaner interface for caches that support cleanup
type Cleaner interface {
	CleanExpired() int
}

// Manager periodically expires entries of every registered cache.
type Manager struct {
	caches      map[string]Cleaner
	started     bool
	stopCleanup chan struct{}
	cleanupDone chan struct{}
}

func NewManager() *Manager {
	return &Manager{
		caches:      make(map[string]Cleaner),
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// Register adds a named cache. Must be called before StartCleanup.
func (m *Manager) Register(name string, cache Cleaner) {
	m.caches[name] = cache
}

// StartCleanup begins periodic cleanup of all registered caches
func (m *Manager) StartCleanup(ctx context.Context, interval time.Duration) {
	m.started = true
	go m.cleanup(ctx, interval)
}

// CleanNow runs one cleanup pass and returns the number of dropped entries.
func (m *Manager) CleanNow(ctx context.Context) int {
	total := 0
	for name, c := range m.caches {
		if n := c.CleanExpired(); n > 0 {
			slog.DebugContext(ctx, "Cache entries expired", "cache", name, "removed", n)
			total += n
		}
	}
	return total
}

func (m *Manager) cleanup(ctx context.Context, interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.CleanNow(ctx)
		case <-ctx.Done():
			return
		case <-m.stopCleanup:
			return
		}
	}
}

// Stop ends the cleanup goroutine and waits for it to exit.
func (m *Manager) Stop() {
	select {
	case <-m.stopCleanup:
		return
	default:
		close(m.stopCleanup)
	}
	if m.started {
		<-m.cleanupDone
	}
}
