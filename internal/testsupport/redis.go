package testsupport

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"

	"minerva/internal/adapters/config"
)

// NewTestRedis connects to the redis named by the REDIS_* env vars, flushes
// the selected database now and again on cleanup, and skips the test when no
// redis is configured. The config is returned alongside the client so tests
// can build their own clients against the same database.
func NewTestRedis(t *testing.T) (*redis.Client, config.RedisConfig) {
	t.Helper()

	cfg := LoadRedisConfigFromEnv(t)
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("flush redis before test: %v", err)
	}

	t.Cleanup(func() {
		_ = client.FlushDB(context.Background()).Err()
		_ = client.Close()
	})

	return client, cfg
}
