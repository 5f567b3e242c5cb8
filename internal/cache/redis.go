package cache

import (
	"context"

	redisadapter "minerva/internal/adapters/redis"
	"minerva/pkg/errors"
	"minerva/pkg/logger"
)

const redisKeyPrefix = "minerva:cache:"

// RedisBackend stores cache entries in redis as JSON values. Entries carry
// no redis-side TTL: expiry is the manager's lazy-eviction contract, applied
// uniformly across backends.
type RedisBackend struct {
	client *redisadapter.Client
	log    *logger.Logger
}

// NewRedisBackend wraps a connected redis client
func NewRedisBackend(client *redisadapter.Client, log *logger.Logger) *RedisBackend {
	return &RedisBackend{
		client: client,
		log:    log.With("component", "redis_cache"),
	}
}

// Name identifies the backend
func (b *RedisBackend) Name() string { return "redis" }

// Get retrieves an entry by key
func (b *RedisBackend) Get(ctx context.Context, key string) (*Entry, error) {
	var entry Entry
	if err := b.client.Get(ctx, redisKeyPrefix+key, &entry); err != nil {
		if redisadapter.IsNil(err) {
			return nil, errors.Wrapf(errors.ErrCacheMiss, "key %s", key)
		}
		return nil, errors.Wrap(err, "redis get")
	}

	return &entry, nil
}

// Set stores an entry under key
func (b *RedisBackend) Set(ctx context.Context, key string, entry *Entry) error {
	if err := b.client.Set(ctx, redisKeyPrefix+key, entry, 0); err != nil {
		return errors.Wrap(err, "redis set")
	}

	return nil
}

// Delete removes a key
func (b *RedisBackend) Delete(ctx context.Context, key string) (bool, error) {
	removed, err := b.client.Delete(ctx, redisKeyPrefix+key)
	if err != nil {
		return false, errors.Wrap(err, "redis del")
	}

	return removed > 0, nil
}

// Clear removes entries for one tool, or everything when toolName is empty.
// Keys embed the tool name as their first segment, so a pattern match is
// enough to scope the scan.
func (b *RedisBackend) Clear(ctx context.Context, toolName string) (int, error) {
	pattern := redisKeyPrefix + "*"
	if toolName != "" {
		pattern = redisKeyPrefix + toolName + ":*"
	}

	keys, err := b.client.Keys(ctx, pattern)
	if err != nil {
		return 0, errors.Wrap(err, "redis scan")
	}
	if len(keys) == 0 {
		return 0, nil
	}

	removed, err := b.client.Delete(ctx, keys...)
	if err != nil {
		return 0, errors.Wrap(err, "redis del")
	}

	return int(removed), nil
}

// Exists checks whether a key is present
func (b *RedisBackend) Exists(ctx context.Context, key string) (bool, error) {
	return b.client.Exists(ctx, redisKeyPrefix+key)
}
