package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"minerva/internal/metrics"
	"minerva/pkg/errors"
	"minerva/pkg/logger"
)

// Manager memoizes tool results by a deterministic key derived from the tool
// name and its parameters. Expired entries are evicted lazily on read; there
// is no background sweep.
type Manager struct {
	backend Backend
	ttl     time.Duration
	log     *logger.Logger

	hits      int64
	misses    int64
	sets      int64
	evictions int64
}

// NewManager creates a cache manager. A zero ttl disables expiry checks.
func NewManager(backend Backend, ttl time.Duration, log *logger.Logger) *Manager {
	return &Manager{
		backend: backend,
		ttl:     ttl,
		log:     log.With("component", "cache_manager", "backend", backend.Name()),
	}
}

// Key derives the cache key for a tool call: parameters sorted by name,
// serialized pairwise, concatenated with the tool name and hashed. Two calls
// with the same parameter set produce the same key regardless of map order;
// any differing parameter set produces a different key.
func (m *Manager) Key(toolName string, args map[string]interface{}) string {
	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, fmt.Sprintf("%s=%v", name, args[name]))
	}

	keyData := toolName + ":" + strings.Join(pairs, "&")
	hash := sha256.Sum256([]byte(keyData))

	return fmt.Sprintf("%s:%x", toolName, hash)
}

// Get looks up a memoized result. Backend failures degrade to a miss. When a
// TTL is configured, checkTTL is true and the entry is stale, it is deleted
// from the backend and reported as a miss.
func (m *Manager) Get(ctx context.Context, toolName string, checkTTL bool, args map[string]interface{}) *Entry {
	key := m.Key(toolName, args)

	entry, err := m.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, errors.ErrCacheMiss) {
			m.log.Warnw("Cache lookup failed, treating as miss", "key", key, "error", err)
			metrics.RecordCacheOperation(m.backend.Name(), "get", "error")
		} else {
			metrics.RecordCacheOperation(m.backend.Name(), "get", "miss")
		}
		atomic.AddInt64(&m.misses, 1)
		return nil
	}

	if checkTTL && m.ttl > 0 && entry.Age() > m.ttl {
		if _, err := m.backend.Delete(ctx, key); err != nil {
			m.log.Warnw("Failed to evict expired entry", "key", key, "error", err)
		}
		atomic.AddInt64(&m.evictions, 1)
		atomic.AddInt64(&m.misses, 1)
		metrics.RecordCacheOperation(m.backend.Name(), "get", "expired")
		m.log.Debugw("Cache entry expired", "tool", toolName, "age", entry.Age())
		return nil
	}

	atomic.AddInt64(&m.hits, 1)
	metrics.RecordCacheOperation(m.backend.Name(), "get", "hit")

	return entry
}

// Set memoizes a tool result, unconditionally overwriting any previous entry
// for the same key. A backend write failure is logged and returned; callers
// treat it as non-fatal to the tool result being cached.
func (m *Manager) Set(ctx context.Context, toolName string, data interface{}, metadata map[string]interface{}, args map[string]interface{}) error {
	key := m.Key(toolName, args)

	entry := &Entry{
		Data:     data,
		CachedAt: time.Now().UTC(),
		ToolName: toolName,
		Key:      key,
		Metadata: metadata,
	}

	if err := m.backend.Set(ctx, key, entry); err != nil {
		m.log.Warnw("Cache write failed", "key", key, "error", err)
		metrics.RecordCacheOperation(m.backend.Name(), "set", "error")
		return errors.Wrapf(errors.ErrCacheBackend, "write entry for tool '%s'", toolName)
	}

	atomic.AddInt64(&m.sets, 1)
	metrics.RecordCacheOperation(m.backend.Name(), "set", "ok")

	return nil
}

// Delete removes the entry for a tool call
func (m *Manager) Delete(ctx context.Context, toolName string, args map[string]interface{}) (bool, error) {
	return m.backend.Delete(ctx, m.Key(toolName, args))
}

// Exists checks whether a non-expired lookup would hit. It goes through Get
// so that expired entries are evicted on the way.
func (m *Manager) Exists(ctx context.Context, toolName string, args map[string]interface{}) bool {
	return m.Get(ctx, toolName, true, args) != nil
}

// Clear removes all entries, or only the given tool's entries, returning the
// count removed.
func (m *Manager) Clear(ctx context.Context, toolName string) (int, error) {
	count, err := m.backend.Clear(ctx, toolName)
	if err != nil {
		metrics.RecordCacheOperation(m.backend.Name(), "clear", "error")
		return 0, errors.Wrap(err, "clear cache")
	}

	metrics.RecordCacheOperation(m.backend.Name(), "clear", "ok")
	m.log.Infow("Cache cleared", "tool", toolName, "removed", count)

	return count, nil
}

// TTL returns the configured entry lifetime
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Metrics returns hit/miss counters for diagnostics
func (m *Manager) Metrics() map[string]interface{} {
	hits := atomic.LoadInt64(&m.hits)
	misses := atomic.LoadInt64(&m.misses)

	total := hits + misses
	hitRate := 0.0
	if total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return map[string]interface{}{
		"backend":   m.backend.Name(),
		"hits":      hits,
		"misses":    misses,
		"sets":      atomic.LoadInt64(&m.sets),
		"evictions": atomic.LoadInt64(&m.evictions),
		"hit_rate":  hitRate,
	}
}
