package tools

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minerva/internal/cache"
	"minerva/pkg/logger"
)

func newCachedQuoteTool(manager *cache.Manager, calls *int, fail bool) *Cached {
	schema := Schema{
		Name:        "get_stock_quote",
		Description: "Get current stock quote",
		Parameters: []Parameter{
			{Name: "symbol", Type: TypeString, Description: "Ticker symbol", Required: true},
		},
	}

	return NewCached(schema, manager, logger.Get(), func(ctx context.Context, args map[string]interface{}) Result {
		*calls++
		if fail {
			return Fail("provider unavailable", map[string]interface{}{"symbol": args["symbol"]})
		}
		return OK(
			map[string]interface{}{"symbol": args["symbol"], "price": 150.25},
			map[string]interface{}{"symbol": args["symbol"], "provider": "yahoo"},
		)
	})
}

func TestCachedTool(t *testing.T) {
	ctx := context.Background()

	t.Run("second call is served from cache", func(t *testing.T) {
		manager := cache.NewManager(cache.NewMemoryBackend(), time.Hour, logger.Get())
		calls := 0
		tool := newCachedQuoteTool(manager, &calls, false)

		first := tool.Execute(ctx, map[string]interface{}{"symbol": "AAPL"})
		require.True(t, first.Success)
		assert.Equal(t, 1, calls)
		assert.NotContains(t, first.Metadata, "cached")

		second := tool.Execute(ctx, map[string]interface{}{"symbol": "AAPL"})
		require.True(t, second.Success)
		assert.Equal(t, 1, calls, "cache hit must not re-execute the handler")
		assert.Equal(t, first.Data, second.Data)

		assert.Equal(t, true, second.Metadata["cached"])
		assert.NotEmpty(t, second.Metadata["cached_at"])
		assert.Contains(t, second.Metadata["cache_warning"], "force_refresh")
		assert.Equal(t, "yahoo", second.Metadata["provider"], "stored metadata survives the hit")
	})

	t.Run("different arguments miss", func(t *testing.T) {
		manager := cache.NewManager(cache.NewMemoryBackend(), time.Hour, logger.Get())
		calls := 0
		tool := newCachedQuoteTool(manager, &calls, false)

		tool.Execute(ctx, map[string]interface{}{"symbol": "AAPL"})
		tool.Execute(ctx, map[string]interface{}{"symbol": "MSFT"})

		assert.Equal(t, 2, calls)
	})

	t.Run("force_refresh bypasses the cache", func(t *testing.T) {
		manager := cache.NewManager(cache.NewMemoryBackend(), time.Hour, logger.Get())
		calls := 0
		tool := newCachedQuoteTool(manager, &calls, false)

		tool.Execute(ctx, map[string]interface{}{"symbol": "AAPL"})
		refreshed := tool.Execute(ctx, map[string]interface{}{"symbol": "AAPL", "force_refresh": true})

		require.True(t, refreshed.Success)
		assert.Equal(t, 2, calls)
		assert.NotContains(t, refreshed.Metadata, "cached")

		// The flag itself is not part of the cache key.
		again := tool.Execute(ctx, map[string]interface{}{"symbol": "AAPL", "force_refresh": false})
		assert.Equal(t, 2, calls)
		assert.Equal(t, true, again.Metadata["cached"])
	})

	t.Run("failed results are not memoized", func(t *testing.T) {
		manager := cache.NewManager(cache.NewMemoryBackend(), time.Hour, logger.Get())
		calls := 0
		tool := newCachedQuoteTool(manager, &calls, true)

		first := tool.Execute(ctx, map[string]interface{}{"symbol": "AAPL"})
		second := tool.Execute(ctx, map[string]interface{}{"symbol": "AAPL"})

		assert.False(t, first.Success)
		assert.False(t, second.Success)
		assert.Equal(t, 2, calls)
	})

	t.Run("unknown parameter is rejected", func(t *testing.T) {
		manager := cache.NewManager(cache.NewMemoryBackend(), time.Hour, logger.Get())
		calls := 0
		tool := newCachedQuoteTool(manager, &calls, false)

		result := tool.Execute(ctx, map[string]interface{}{"symbol": "AAPL", "ticker": "AAPL"})

		assert.False(t, result.Success)
		assert.Equal(t, true, result.Metadata["validation_error"])
		assert.Equal(t, 0, calls)
	})

	t.Run("schema declares force_refresh", func(t *testing.T) {
		manager := cache.NewManager(cache.NewMemoryBackend(), time.Hour, logger.Get())
		calls := 0
		tool := newCachedQuoteTool(manager, &calls, false)

		var names []string
		for _, p := range tool.Schema().Parameters {
			names = append(names, p.Name)
		}
		assert.Contains(t, names, ForceRefreshParam)
	})

	t.Run("nil manager executes every call", func(t *testing.T) {
		calls := 0
		tool := newCachedQuoteTool(nil, &calls, false)

		tool.Execute(ctx, map[string]interface{}{"symbol": "AAPL"})
		tool.Execute(ctx, map[string]interface{}{"symbol": "AAPL"})

		assert.Equal(t, 2, calls)
	})
}
