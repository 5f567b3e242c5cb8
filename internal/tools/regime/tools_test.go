package regime

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minerva/internal/domain/stock"
	"minerva/internal/tools"
	"minerva/pkg/errors"
	"minerva/pkg/logger"
)

// historyProvider serves a fixed bar series regardless of the requested range.
type historyProvider struct {
	bars []stock.Bar
	err  error
}

func (p *historyProvider) Name() string                     { return "stub" }
func (p *historyProvider) Available(_ context.Context) bool { return true }

func (p *historyProvider) HistoricalData(_ context.Context, _ string, _, _ time.Time, _ string) ([]stock.Bar, error) {
	return p.bars, p.err
}

func (p *historyProvider) Quote(_ context.Context, _ string) (*stock.Quote, error) {
	return nil, errors.ErrNotImplemented
}

func (p *historyProvider) Intraday(_ context.Context, _, _ string) ([]stock.Bar, error) {
	return nil, errors.ErrNotImplemented
}

func (p *historyProvider) SearchStocks(_ context.Context, _ string, _ int) ([]stock.Stock, error) {
	return nil, errors.ErrNotImplemented
}

func (p *historyProvider) StockInfo(_ context.Context, _ string) (*stock.Stock, error) {
	return nil, errors.ErrNotImplemented
}

func barsFromCloses(closes []float64, volumes []int64) []stock.Bar {
	start := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]stock.Bar, len(closes))
	for i, c := range closes {
		volume := int64(1000)
		if volumes != nil {
			volume = volumes[i]
		}
		bars[i] = stock.Bar{
			Timestamp: start.AddDate(0, 0, i),
			Close:     decimal.NewFromFloat(c),
			Volume:    volume,
		}
	}
	return bars
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

func TestDetectMarketTrend(t *testing.T) {
	ctx := context.Background()

	runTrend := func(t *testing.T, bars []stock.Bar, args map[string]interface{}) tools.Result {
		t.Helper()
		provider := &historyProvider{bars: bars}
		tool := toolByName(t, Tools(provider, logger.Get()), "detect_market_trend")
		return tool.Execute(ctx, args)
	}

	t.Run("steady uptrend is a high confidence bull", func(t *testing.T) {
		closes := make([]float64, 250)
		for i := range closes {
			closes[i] = 100 + 0.5*float64(i)
		}

		result := runTrend(t, barsFromCloses(closes, nil), map[string]interface{}{"symbol": "aapl"})

		require.True(t, result.Success, result.Error)
		data := result.Data.(map[string]interface{})
		assert.Equal(t, "AAPL", data["symbol"])
		assert.Equal(t, "bull", data["regime"])
		assert.Equal(t, "high", data["confidence"])
		assert.Equal(t, "bullish", data["ma_relationship"])
		assert.Equal(t, 250, data["data_points"])
		assert.Equal(t, false, data["parameters_adjusted"])
		assert.Equal(t, 50, data["short_ma_period_used"])
		assert.Equal(t, 200, data["long_ma_period_used"])
		assert.Greater(t, data["volatility_scaled_momentum"].(float64), 1.0)

		assert.Equal(t, "bull", result.Metadata["regime"])
		assert.Equal(t, "high", result.Metadata["confidence"])
	})

	t.Run("steady downtrend is a high confidence bear", func(t *testing.T) {
		closes := make([]float64, 250)
		for i := range closes {
			closes[i] = 400 - 0.5*float64(i)
		}

		result := runTrend(t, barsFromCloses(closes, nil), map[string]interface{}{"symbol": "AAPL"})

		require.True(t, result.Success, result.Error)
		data := result.Data.(map[string]interface{})
		assert.Equal(t, "bear", data["regime"])
		assert.Equal(t, "high", data["confidence"])
		assert.Equal(t, "bearish", data["ma_relationship"])
		assert.Less(t, data["volatility_scaled_momentum"].(float64), -1.0)
	})

	t.Run("flat series is neutral", func(t *testing.T) {
		closes := make([]float64, 250)
		for i := range closes {
			closes[i] = 100
		}

		result := runTrend(t, barsFromCloses(closes, nil), map[string]interface{}{"symbol": "AAPL"})

		require.True(t, result.Success, result.Error)
		data := result.Data.(map[string]interface{})
		assert.Equal(t, "neutral", data["regime"])
		assert.Equal(t, "medium", data["confidence"])
		assert.Equal(t, "neutral", data["ma_relationship"])
		assert.Equal(t, 0.0, data["log_return"])
	})

	t.Run("short history shrinks the windows", func(t *testing.T) {
		closes := make([]float64, 30)
		for i := range closes {
			closes[i] = 100 + float64(i)
		}

		result := runTrend(t, barsFromCloses(closes, nil), map[string]interface{}{"symbol": "AAPL"})

		require.True(t, result.Success, result.Error)
		data := result.Data.(map[string]interface{})
		assert.Equal(t, true, data["parameters_adjusted"])
		assert.Equal(t, 10, data["short_ma_period_used"])
		assert.Equal(t, 25, data["long_ma_period_used"])
		assert.Contains(t, data["note"], "adapted for limited data history")
		assert.Equal(t, "bull", data["regime"])
	})

	t.Run("fewer than ten points fails with guidance", func(t *testing.T) {
		result := runTrend(t, barsFromCloses([]float64{100, 101, 102, 103, 104}, nil),
			map[string]interface{}{"symbol": "NEWCO"})

		require.False(t, result.Success)
		assert.Contains(t, result.Error, "need at least 10 data points, got 5")
		assert.Equal(t, 5, result.Metadata["data_points"])
		assert.Contains(t, result.Metadata["suggestion"], "shorter lookback")
	})

	t.Run("no history fails", func(t *testing.T) {
		result := runTrend(t, nil, map[string]interface{}{"symbol": "NOPE"})

		require.False(t, result.Success)
		assert.Contains(t, result.Error, "No historical data available for NOPE")
	})

	t.Run("provider failure becomes a failed result", func(t *testing.T) {
		provider := &historyProvider{err: errors.Wrap(errors.ErrExternal, "yahoo returned 502")}
		tool := toolByName(t, Tools(provider, logger.Get()), "detect_market_trend")

		result := tool.Execute(ctx, map[string]interface{}{"symbol": "AAPL"})

		require.False(t, result.Success)
		assert.Contains(t, result.Error, "yahoo returned 502")
	})
}

func TestDetectVolatilityRegime(t *testing.T) {
	ctx := context.Background()

	runVol := func(t *testing.T, bars []stock.Bar, args map[string]interface{}) tools.Result {
		t.Helper()
		provider := &historyProvider{bars: bars}
		tool := toolByName(t, Tools(provider, logger.Get()), "detect_volatility_regime")
		return tool.Execute(ctx, args)
	}

	t.Run("flat series is normal with zero volatility", func(t *testing.T) {
		closes := make([]float64, 60)
		for i := range closes {
			closes[i] = 100
		}

		result := runVol(t, barsFromCloses(closes, nil), map[string]interface{}{"symbol": "AAPL"})

		require.True(t, result.Success, result.Error)
		data := result.Data.(map[string]interface{})
		assert.Equal(t, "normal", data["regime"])
		assert.Equal(t, 0.0, data["current_volatility"])
		assert.Equal(t, 100.0, data["volatility_percentile"])
		assert.Equal(t, 20, data["volatility_window"])
		assert.Equal(t, false, data["parameters_adjusted"])

		assert.Equal(t, "normal", result.Metadata["regime"])
		assert.Equal(t, 0.0, result.Metadata["current_volatility_pct"])
	})

	t.Run("recent swings classify high", func(t *testing.T) {
		closes := make([]float64, 120)
		for i := range closes {
			closes[i] = 100
			if i >= 100 && i%2 == 1 {
				closes[i] = 105
			}
		}

		result := runVol(t, barsFromCloses(closes, nil), map[string]interface{}{"symbol": "MSTR"})

		require.True(t, result.Success, result.Error)
		data := result.Data.(map[string]interface{})
		assert.Equal(t, "high", data["regime"])
		current := data["current_volatility"].(float64)
		mean := data["mean_volatility"].(float64)
		assert.Greater(t, current, mean)
		assert.Equal(t, 100.0, data["volatility_percentile"])
	})

	t.Run("short history shrinks the window", func(t *testing.T) {
		closes := make([]float64, 15)
		for i := range closes {
			closes[i] = 100
		}

		result := runVol(t, barsFromCloses(closes, nil), map[string]interface{}{"symbol": "NEWCO"})

		require.True(t, result.Success, result.Error)
		data := result.Data.(map[string]interface{})
		assert.Equal(t, true, data["parameters_adjusted"])
		assert.Equal(t, 10, data["volatility_window"])
		assert.Contains(t, data["note"], "volatility window")
	})

	t.Run("one bar more than the window cannot fill it", func(t *testing.T) {
		closes := make([]float64, 21)
		for i := range closes {
			closes[i] = 100 + float64(i)
		}

		result := runVol(t, barsFromCloses(closes, nil), map[string]interface{}{"symbol": "AAPL"})

		require.False(t, result.Success)
		assert.Contains(t, result.Error, "Could not calculate volatility")
	})

	t.Run("fewer than ten points fails with guidance", func(t *testing.T) {
		result := runVol(t, barsFromCloses([]float64{100, 101, 99}, nil),
			map[string]interface{}{"symbol": "NEWCO"})

		require.False(t, result.Success)
		assert.Contains(t, result.Error, "need at least 10 data points, got 3")
		assert.Contains(t, result.Metadata["suggestion"], "shorter lookback")
	})
}

func TestDetectMarketCycles(t *testing.T) {
	ctx := context.Background()

	runCycles := func(t *testing.T, bars []stock.Bar, args map[string]interface{}) tools.Result {
		t.Helper()
		provider := &historyProvider{bars: bars}
		tool := toolByName(t, Tools(provider, logger.Get()), "detect_market_cycles")
		return tool.Execute(ctx, args)
	}

	t.Run("uptrend with heavy volume is markup", func(t *testing.T) {
		closes := make([]float64, 250)
		volumes := make([]int64, 250)
		for i := range closes {
			closes[i] = 100 + 0.5*float64(i)
			volumes[i] = 1000
			if i >= 230 {
				volumes[i] = 2000
			}
		}

		result := runCycles(t, barsFromCloses(closes, volumes), map[string]interface{}{"symbol": "AAPL"})

		require.True(t, result.Success, result.Error)
		data := result.Data.(map[string]interface{})
		assert.Equal(t, "markup", data["current_phase"])
		assert.Contains(t, data["phase_description"], "Strong uptrend")
		assert.Equal(t, 100.0, data["price_position_pct"])
		assert.Equal(t, "up", data["recent_trend"])
		assert.Equal(t, "up", data["longer_trend"])
		assert.Equal(t, false, data["potential_regime_change"])
		assert.Equal(t, 20, data["ma_short_period_used"])
		assert.Equal(t, 50, data["ma_long_period_used"])

		assert.Equal(t, "markup", result.Metadata["phase"])
		assert.Equal(t, false, result.Metadata["regime_change_signal"])
	})

	t.Run("downtrend is markdown", func(t *testing.T) {
		closes := make([]float64, 250)
		for i := range closes {
			closes[i] = 400 - 0.5*float64(i)
		}

		result := runCycles(t, barsFromCloses(closes, nil), map[string]interface{}{"symbol": "AAPL"})

		require.True(t, result.Success, result.Error)
		data := result.Data.(map[string]interface{})
		assert.Equal(t, "markdown", data["current_phase"])
		assert.Contains(t, data["phase_description"], "Downtrend")
		assert.Equal(t, 0.0, data["price_position_pct"])
	})

	t.Run("quiet basing near the lows is accumulation", func(t *testing.T) {
		closes := make([]float64, 100)
		volumes := make([]int64, 100)
		for i := range closes {
			if i < 60 {
				closes[i] = 200 - 2*float64(i)
				volumes[i] = 5000
			} else {
				closes[i] = 80 + 0.05*float64(i-60)
				volumes[i] = 1000
			}
		}

		result := runCycles(t, barsFromCloses(closes, volumes), map[string]interface{}{"symbol": "AAPL"})

		require.True(t, result.Success, result.Error)
		data := result.Data.(map[string]interface{})
		assert.Equal(t, "accumulation", data["current_phase"])
		assert.Contains(t, data["phase_description"], "potential bottom")
		assert.Less(t, data["price_position_pct"].(float64), 30.0)
		assert.Less(t, data["volume_ratio"].(float64), 0.9)
		assert.Equal(t, "up", data["recent_trend"])
		assert.Equal(t, "down", data["longer_trend"])
		assert.Equal(t, true, data["potential_regime_change"])
	})

	t.Run("short history shrinks the averages", func(t *testing.T) {
		closes := make([]float64, 30)
		for i := range closes {
			closes[i] = 100 + float64(i)
		}

		result := runCycles(t, barsFromCloses(closes, nil), map[string]interface{}{"symbol": "NEWCO"})

		require.True(t, result.Success, result.Error)
		data := result.Data.(map[string]interface{})
		assert.Equal(t, true, data["parameters_adjusted"])
		assert.Equal(t, 7, data["ma_short_period_used"])
		assert.Equal(t, 25, data["ma_long_period_used"])
		assert.Contains(t, data["note"], "standard: 20/50")
	})

	t.Run("fewer than twenty points fails with guidance", func(t *testing.T) {
		closes := make([]float64, 10)
		for i := range closes {
			closes[i] = 100
		}

		result := runCycles(t, barsFromCloses(closes, nil), map[string]interface{}{"symbol": "NEWCO"})

		require.False(t, result.Success)
		assert.Contains(t, result.Error, "need at least 20 data points, got 10")
		assert.Contains(t, result.Metadata["suggestion"], "shorter lookback")
	})
}
