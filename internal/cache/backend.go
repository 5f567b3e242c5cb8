package cache

import (
	"context"
	"time"
)

// Entry is the persisted form of one memoized tool result
type Entry struct {
	Data     interface{}            `json:"data"`
	CachedAt time.Time              `json:"cached_at"`
	ToolName string                 `json:"tool_name"`
	Key      string                 `json:"cache_key"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Age returns how long ago the entry was written
func (e *Entry) Age() time.Duration {
	return time.Since(e.CachedAt)
}

// Backend is the storage contract the cache manager runs against.
// Implementations must wrap errors.ErrCacheMiss when a key is absent so the
// manager can tell misses from real backend failures.
type Backend interface {
	// Get retrieves an entry by key
	Get(ctx context.Context, key string) (*Entry, error)

	// Set stores an entry under key, overwriting any previous value
	Set(ctx context.Context, key string, entry *Entry) error

	// Delete removes a key, reporting whether it existed
	Delete(ctx context.Context, key string) (bool, error)

	// Clear removes entries for the given tool, or all entries when toolName
	// is empty, returning the count removed
	Clear(ctx context.Context, toolName string) (int, error)

	// Exists checks whether a key is present
	Exists(ctx context.Context, key string) (bool, error)

	// Name identifies the backend for logs and metrics
	Name() string
}
