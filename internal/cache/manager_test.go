package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minerva/pkg/logger"
)

func newTestManager(ttl time.Duration) (*Manager, *MemoryBackend) {
	backend := NewMemoryBackend()
	return NewManager(backend, ttl, logger.Get()), backend
}

func TestKeyDerivation(t *testing.T) {
	m, _ := newTestManager(0)

	t.Run("independent of argument order", func(t *testing.T) {
		a := map[string]interface{}{"symbol": "AAPL", "interval": "1d", "limit": 30}
		b := map[string]interface{}{"limit": 30, "interval": "1d", "symbol": "AAPL"}

		assert.Equal(t, m.Key("get_historical_stock_data", a), m.Key("get_historical_stock_data", b))
	})

	t.Run("different parameters produce different keys", func(t *testing.T) {
		a := m.Key("get_stock_quote", map[string]interface{}{"symbol": "AAPL"})
		b := m.Key("get_stock_quote", map[string]interface{}{"symbol": "MSFT"})

		assert.NotEqual(t, a, b)
	})

	t.Run("different tools produce different keys", func(t *testing.T) {
		args := map[string]interface{}{"symbol": "AAPL"}

		assert.NotEqual(t, m.Key("get_stock_quote", args), m.Key("get_stock_info", args))
	})

	t.Run("key is prefixed with tool name", func(t *testing.T) {
		key := m.Key("get_stock_quote", map[string]interface{}{"symbol": "AAPL"})

		assert.Regexp(t, `^get_stock_quote:[0-9a-f]{64}$`, key)
	})
}

func TestManagerRoundTrip(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(time.Hour)

	args := map[string]interface{}{"symbol": "AAPL"}
	data := map[string]interface{}{"price": 150.0}
	meta := map[string]interface{}{"provider": "yahoo"}

	require.NoError(t, m.Set(ctx, "get_quote", data, meta, args))

	entry := m.Get(ctx, "get_quote", true, args)
	require.NotNil(t, entry)
	assert.Equal(t, data, entry.Data)
	assert.Equal(t, meta, entry.Metadata)
	assert.Equal(t, "get_quote", entry.ToolName)
}

func TestManagerTTL(t *testing.T) {
	ctx := context.Background()
	m, backend := newTestManager(10 * time.Minute)

	args := map[string]interface{}{"symbol": "AAPL"}
	key := m.Key("get_stock_quote", args)

	// Plant an already-stale entry directly in the backend
	require.NoError(t, backend.Set(ctx, key, &Entry{
		Data:     map[string]interface{}{"price": 180.0},
		CachedAt: time.Now().UTC().Add(-time.Hour),
		ToolName: "get_stock_quote",
		Key:      key,
	}))

	t.Run("stale entry is a miss and gets evicted", func(t *testing.T) {
		entry := m.Get(ctx, "get_stock_quote", true, args)
		assert.Nil(t, entry)

		exists, err := backend.Exists(ctx, key)
		require.NoError(t, err)
		assert.False(t, exists, "expired entry must be deleted on read")
	})

	t.Run("Exists after expiry is false", func(t *testing.T) {
		assert.False(t, m.Exists(ctx, "get_stock_quote", args))
	})

	t.Run("checkTTL false returns stale entries", func(t *testing.T) {
		require.NoError(t, backend.Set(ctx, key, &Entry{
			Data:     "stale",
			CachedAt: time.Now().UTC().Add(-time.Hour),
			ToolName: "get_stock_quote",
			Key:      key,
		}))

		entry := m.Get(ctx, "get_stock_quote", false, args)
		require.NotNil(t, entry)
		assert.Equal(t, "stale", entry.Data)
	})
}

func TestManagerOverwrite(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(time.Hour)

	args := map[string]interface{}{"symbol": "AAPL"}
	require.NoError(t, m.Set(ctx, "get_quote", map[string]interface{}{"price": 150.0}, nil, args))
	require.NoError(t, m.Set(ctx, "get_quote", map[string]interface{}{"price": 151.5}, nil, args))

	entry := m.Get(ctx, "get_quote", true, args)
	require.NotNil(t, entry)
	assert.Equal(t, map[string]interface{}{"price": 151.5}, entry.Data)
}

func TestManagerClear(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(time.Hour)

	require.NoError(t, m.Set(ctx, "get_quote", 1, nil, map[string]interface{}{"symbol": "AAPL"}))
	require.NoError(t, m.Set(ctx, "get_quote", 2, nil, map[string]interface{}{"symbol": "MSFT"}))
	require.NoError(t, m.Set(ctx, "search_stocks", 3, nil, map[string]interface{}{"query": "apple"}))

	t.Run("clear one tool", func(t *testing.T) {
		count, err := m.Clear(ctx, "get_quote")
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		assert.Nil(t, m.Get(ctx, "get_quote", true, map[string]interface{}{"symbol": "AAPL"}))
		assert.NotNil(t, m.Get(ctx, "search_stocks", true, map[string]interface{}{"query": "apple"}))
	})

	t.Run("clear everything", func(t *testing.T) {
		count, err := m.Clear(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})
}

func TestManagerBackendFailureDegradesToMiss(t *testing.T) {
	ctx := context.Background()
	m := NewManager(&failingBackend{}, time.Hour, logger.Get())

	entry := m.Get(ctx, "get_quote", true, map[string]interface{}{"symbol": "AAPL"})
	assert.Nil(t, entry)

	err := m.Set(ctx, "get_quote", "data", nil, map[string]interface{}{"symbol": "AAPL"})
	assert.Error(t, err, "write failures surface to the caller")
}

// failingBackend errors on every operation
type failingBackend struct{}

func (f *failingBackend) Name() string { return "failing" }
func (f *failingBackend) Get(ctx context.Context, key string) (*Entry, error) {
	return nil, assert.AnError
}
func (f *failingBackend) Set(ctx context.Context, key string, entry *Entry) error {
	return assert.AnError
}
func (f *failingBackend) Delete(ctx context.Context, key string) (bool, error) {
	return false, assert.AnError
}
func (f *failingBackend) Clear(ctx context.Context, toolName string) (int, error) {
	return 0, assert.AnError
}
func (f *failingBackend) Exists(ctx context.Context, key string) (bool, error) {
	return false, assert.AnError
}
