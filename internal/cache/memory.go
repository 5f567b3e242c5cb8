package cache

import (
	"context"
	"sync"

	"minerva/pkg/errors"
)

// MemoryBackend is a process-local cache store. Used in tests and when the
// engine runs without file or redis storage configured.
type MemoryBackend struct {
	entries map[string]*Entry
	mu      sync.RWMutex
}

// NewMemoryBackend creates an empty in-memory backend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		entries: make(map[string]*Entry),
	}
}

// Name identifies the backend
func (b *MemoryBackend) Name() string { return "memory" }

// Get retrieves an entry by key
func (b *MemoryBackend) Get(ctx context.Context, key string) (*Entry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	entry, ok := b.entries[key]
	if !ok {
		return nil, errors.Wrapf(errors.ErrCacheMiss, "key %s", key)
	}

	return entry, nil
}

// Set stores an entry under key
func (b *MemoryBackend) Set(ctx context.Context, key string, entry *Entry) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[key] = entry

	return nil
}

// Delete removes a key
func (b *MemoryBackend) Delete(ctx context.Context, key string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, ok := b.entries[key]
	delete(b.entries, key)

	return ok, nil
}

// Clear removes entries for one tool, or everything when toolName is empty
func (b *MemoryBackend) Clear(ctx context.Context, toolName string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if toolName == "" {
		count := len(b.entries)
		b.entries = make(map[string]*Entry)
		return count, nil
	}

	count := 0
	for key, entry := range b.entries {
		if entry.ToolName == toolName {
			delete(b.entries, key)
			count++
		}
	}

	return count, nil
}

// Exists checks whether a key is present
func (b *MemoryBackend) Exists(ctx context.Context, key string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	_, ok := b.entries[key]

	return ok, nil
}
