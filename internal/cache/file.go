package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"minerva/pkg/errors"
	"minerva/pkg/logger"
)

// FileBackend stores cache entries as JSON files in a directory. File names
// are hashed so keys never hit filesystem character limits.
type FileBackend struct {
	dir string
	log *logger.Logger
}

// NewFileBackend creates the cache directory if needed
func NewFileBackend(dir string, log *logger.Logger) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create cache dir %s", dir)
	}

	return &FileBackend{
		dir: dir,
		log: log.With("component", "file_cache", "dir", dir),
	}, nil
}

// Name identifies the backend
func (b *FileBackend) Name() string { return "file" }

func (b *FileBackend) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(b.dir, fmt.Sprintf("%x.json", sum))
}

// Get retrieves an entry by key. Unreadable or corrupt files degrade to a
// miss so a damaged cache never breaks tool execution.
func (b *FileBackend) Get(ctx context.Context, key string) (*Entry, error) {
	data, err := os.ReadFile(b.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(errors.ErrCacheMiss, "key %s", key)
		}
		return nil, errors.Wrap(err, "read cache file")
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		b.log.Warnw("Corrupt cache file, treating as miss", "key", key, "error", err)
		return nil, errors.Wrapf(errors.ErrCacheMiss, "corrupt entry for key %s", key)
	}

	return &entry, nil
}

// Set stores an entry under key
func (b *FileBackend) Set(ctx context.Context, key string, entry *Entry) error {
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal cache entry")
	}

	if err := os.WriteFile(b.path(key), data, 0o644); err != nil {
		return errors.Wrap(err, "write cache file")
	}

	return nil
}

// Delete removes a key
func (b *FileBackend) Delete(ctx context.Context, key string) (bool, error) {
	err := os.Remove(b.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrap(err, "remove cache file")
	}

	return true, nil
}

// Clear removes entries for one tool, or everything when toolName is empty.
// Tool membership is read from each entry since file names are hashes.
func (b *FileBackend) Clear(ctx context.Context, toolName string) (int, error) {
	pattern := filepath.Join(b.dir, "*.json")
	files, err := filepath.Glob(pattern)
	if err != nil {
		return 0, errors.Wrap(err, "scan cache dir")
	}

	count := 0
	for _, file := range files {
		if toolName != "" {
			data, err := os.ReadFile(file)
			if err != nil {
				continue
			}
			var entry Entry
			if err := json.Unmarshal(data, &entry); err != nil || entry.ToolName != toolName {
				continue
			}
		}

		if err := os.Remove(file); err == nil {
			count++
		}
	}

	return count, nil
}

// Exists checks whether a key is present
func (b *FileBackend) Exists(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(b.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}
