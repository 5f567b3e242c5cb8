package market

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minerva/internal/cache"
	"minerva/internal/domain/stock"
	"minerva/internal/tools"
	"minerva/pkg/errors"
	"minerva/pkg/logger"
)

type stubProvider struct {
	quote      func(symbol string) (*stock.Quote, error)
	historical func(symbol string, start, end time.Time, interval string) ([]stock.Bar, error)
	search     func(query string, limit int) ([]stock.Stock, error)
	info       func(symbol string) (*stock.Stock, error)
	calls      int
}

func (s *stubProvider) Name() string                     { return "stub" }
func (s *stubProvider) Available(_ context.Context) bool { return true }

func (s *stubProvider) Quote(_ context.Context, symbol string) (*stock.Quote, error) {
	s.calls++
	return s.quote(symbol)
}

func (s *stubProvider) HistoricalData(_ context.Context, symbol string, start, end time.Time, interval string) ([]stock.Bar, error) {
	s.calls++
	return s.historical(symbol, start, end, interval)
}

func (s *stubProvider) Intraday(_ context.Context, symbol, interval string) ([]stock.Bar, error) {
	return nil, errors.ErrNotImplemented
}

func (s *stubProvider) SearchStocks(_ context.Context, query string, limit int) ([]stock.Stock, error) {
	s.calls++
	return s.search(query, limit)
}

func (s *stubProvider) StockInfo(_ context.Context, symbol string) (*stock.Stock, error) {
	s.calls++
	return s.info(symbol)
}

func toolByName(t *testing.T, list []tools.Tool, name string) tools.Tool {
	t.Helper()
	for _, tool := range list {
		if tool.Name() == name {
			return tool
		}
	}
	t.Fatalf("tool %s not built", name)
	return nil
}

func TestQuoteTool(t *testing.T) {
	ctx := context.Background()
	provider := &stubProvider{
		quote: func(symbol string) (*stock.Quote, error) {
			return &stock.Quote{
				Symbol:    symbol,
				Price:     decimal.NewFromFloat(150.25),
				Volume:    1200000,
				Timestamp: time.Date(2026, 8, 21, 20, 0, 0, 0, time.UTC),
			}, nil
		},
	}

	tool := toolByName(t, Tools(provider, nil, logger.Get()), "get_stock_quote")
	result := tool.Execute(ctx, map[string]interface{}{"symbol": "aapl"})

	require.True(t, result.Success, result.Error)
	data, ok := result.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "AAPL", data["symbol"], "symbol is upcased before the provider call")
	assert.Equal(t, 150.25, data["price"])

	assert.Equal(t, "AAPL", result.Metadata["symbol"])
	assert.Equal(t, "stub", result.Metadata["provider"])
}

func TestQuoteToolProviderError(t *testing.T) {
	provider := &stubProvider{
		quote: func(string) (*stock.Quote, error) {
			return nil, errors.Wrap(errors.ErrExternal, "yahoo returned 502")
		},
	}

	tool := toolByName(t, Tools(provider, nil, logger.Get()), "get_stock_quote")
	result := tool.Execute(context.Background(), map[string]interface{}{"symbol": "AAPL"})

	require.False(t, result.Success)
	assert.Contains(t, result.Error, "yahoo returned 502")
	assert.Equal(t, "AAPL", result.Metadata["symbol"])
	assert.NotContains(t, result.Metadata, "provider", "failed results carry no provider stamp")
}

func TestHistoricalDataTool(t *testing.T) {
	ctx := context.Background()

	bar := func(day int, close float64) stock.Bar {
		return stock.Bar{
			Timestamp: time.Date(2026, 7, day, 0, 0, 0, 0, time.UTC),
			Open:      decimal.NewFromFloat(close - 1),
			High:      decimal.NewFromFloat(close + 1),
			Low:       decimal.NewFromFloat(close - 2),
			Close:     decimal.NewFromFloat(close),
			Volume:    1000,
		}
	}

	t.Run("returns bars with range metadata", func(t *testing.T) {
		var gotStart, gotEnd time.Time
		var gotInterval string
		provider := &stubProvider{
			historical: func(symbol string, start, end time.Time, interval string) ([]stock.Bar, error) {
				gotStart, gotEnd, gotInterval = start, end, interval
				return []stock.Bar{bar(1, 100), bar(2, 101), bar(3, 102)}, nil
			},
		}

		tool := toolByName(t, Tools(provider, nil, logger.Get()), "get_historical_stock_data")
		result := tool.Execute(ctx, map[string]interface{}{
			"symbol":     "AAPL",
			"start_date": "2026-07-01",
			"end_date":   "2026-07-31",
		})

		require.True(t, result.Success, result.Error)
		assert.Equal(t, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), gotStart)
		assert.Equal(t, time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC), gotEnd)
		assert.Equal(t, "1d", gotInterval, "interval defaults to daily")

		data, ok := result.Data.([]map[string]interface{})
		require.True(t, ok)
		assert.Len(t, data, 3)
		assert.Equal(t, 102.0, data[2]["close"])

		assert.Equal(t, 3, result.Metadata["data_points"])
		assert.Equal(t, "2026-07-01", result.Metadata["start_date"])
		assert.Equal(t, "2026-07-31", result.Metadata["end_date"])
	})

	t.Run("rejects malformed dates", func(t *testing.T) {
		provider := &stubProvider{}
		tool := toolByName(t, Tools(provider, nil, logger.Get()), "get_historical_stock_data")

		result := tool.Execute(ctx, map[string]interface{}{
			"symbol":     "AAPL",
			"start_date": "07/01/2026",
			"end_date":   "2026-07-31",
		})

		require.False(t, result.Success)
		assert.Contains(t, result.Error, "start_date")
		assert.Equal(t, 0, provider.calls)
	})

	t.Run("rejects inverted range", func(t *testing.T) {
		provider := &stubProvider{}
		tool := toolByName(t, Tools(provider, nil, logger.Get()), "get_historical_stock_data")

		result := tool.Execute(ctx, map[string]interface{}{
			"symbol":     "AAPL",
			"start_date": "2026-07-31",
			"end_date":   "2026-07-01",
		})

		require.False(t, result.Success)
		assert.Contains(t, result.Error, "before start_date")
		assert.Equal(t, 0, provider.calls)
	})

	t.Run("rejects unknown interval", func(t *testing.T) {
		provider := &stubProvider{}
		tool := toolByName(t, Tools(provider, nil, logger.Get()), "get_historical_stock_data")

		result := tool.Execute(ctx, map[string]interface{}{
			"symbol":     "AAPL",
			"start_date": "2026-07-01",
			"end_date":   "2026-07-31",
			"interval":   "2d",
		})

		require.False(t, result.Success)
		assert.Equal(t, true, result.Metadata["validation_error"])
	})
}

func TestSearchTool(t *testing.T) {
	provider := &stubProvider{
		search: func(query string, limit int) ([]stock.Stock, error) {
			assert.Equal(t, "apple", query)
			assert.Equal(t, 10, limit, "limit defaults to 10")
			return []stock.Stock{
				{Symbol: "AAPL", Name: "Apple Inc.", Exchange: "NMS"},
			}, nil
		},
	}

	tool := toolByName(t, Tools(provider, nil, logger.Get()), "search_stocks")
	result := tool.Execute(context.Background(), map[string]interface{}{"query": "apple"})

	require.True(t, result.Success, result.Error)
	data, ok := result.Data.([]map[string]interface{})
	require.True(t, ok)
	require.Len(t, data, 1)
	assert.Equal(t, "AAPL", data[0]["symbol"])
	assert.Equal(t, 1, result.Metadata["results_count"])
}

func TestStockInfoTool(t *testing.T) {
	provider := &stubProvider{
		info: func(symbol string) (*stock.Stock, error) {
			return &stock.Stock{Symbol: symbol, Name: "Apple Inc.", Sector: "Technology"}, nil
		},
	}

	tool := toolByName(t, Tools(provider, nil, logger.Get()), "get_stock_info")
	result := tool.Execute(context.Background(), map[string]interface{}{"symbol": "AAPL"})

	require.True(t, result.Success, result.Error)
	data, ok := result.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Technology", data["sector"])
}

func TestQuoteToolMemoizes(t *testing.T) {
	ctx := context.Background()
	provider := &stubProvider{
		quote: func(symbol string) (*stock.Quote, error) {
			return &stock.Quote{Symbol: symbol, Price: decimal.NewFromFloat(99.5)}, nil
		},
	}
	manager := cache.NewManager(cache.NewMemoryBackend(), time.Hour, logger.Get())

	tool := toolByName(t, Tools(provider, manager, logger.Get()), "get_stock_quote")

	first := tool.Execute(ctx, map[string]interface{}{"symbol": "AAPL"})
	second := tool.Execute(ctx, map[string]interface{}{"symbol": "AAPL"})

	require.True(t, first.Success)
	require.True(t, second.Success)
	assert.Equal(t, 1, provider.calls)
	assert.Equal(t, true, second.Metadata["cached"])

	refreshed := tool.Execute(ctx, map[string]interface{}{"symbol": "AAPL", "force_refresh": true})
	require.True(t, refreshed.Success)
	assert.Equal(t, 2, provider.calls)
}
