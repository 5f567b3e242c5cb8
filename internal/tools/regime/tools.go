// Package regime implements rule-based market regime detection: trend
// classification from moving-average alignment with volatility-scaled
// momentum thresholds, volatility regimes from rolling deviation of log
// returns, and Wyckoff-style cycle phases from price position and volume.
package regime

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"minerva/internal/domain/stock"
	"minerva/internal/providers"
	"minerva/internal/tools"
	"minerva/pkg/errors"
	"minerva/pkg/logger"
)

// Tools builds the regime detection tool set. These tools derive everything
// from fresh historical bars, so they are not memoized.
func Tools(provider providers.MarketDataProvider, log *logger.Logger) []tools.Tool {
	return []tools.Tool{
		newTrendTool(provider, log),
		newVolatilityTool(provider, log),
		newCyclesTool(provider, log),
	}
}

// newTrendTool classifies the trend regime (bull, bear, neutral) from
// moving-average alignment. Momentum thresholds are scaled by recent
// volatility so low-volatility stocks are not penalized: above one deviation
// is high confidence, above a quarter deviation is medium.
func newTrendTool(provider providers.MarketDataProvider, log *logger.Logger) tools.Tool {
	schema := tools.Schema{
		Name: "detect_market_trend",
		Description: "Detect market trend regime (bull, bear, or neutral) for a stock " +
			"using moving averages and price momentum analysis.",
		Parameters: []tools.Parameter{
			{Name: "symbol", Type: tools.TypeString, Description: "Stock ticker symbol (e.g., 'AAPL', 'MSFT')", Required: true},
			{Name: "lookback_days", Type: tools.TypeInteger, Description: "Number of days to analyze for trend detection", Default: 200},
			{Name: "short_ma_period", Type: tools.TypeInteger, Description: "Short-term moving average period (days)", Default: 50},
			{Name: "long_ma_period", Type: tools.TypeInteger, Description: "Long-term moving average period (days)", Default: 200},
		},
		Returns: "Trend detection results with regime classification and metrics",
	}

	return tools.New(schema, func(ctx context.Context, args map[string]interface{}) tools.Result {
		symbol := normalizeSymbol(args["symbol"])
		lookbackDays, _ := args["lookback_days"].(int)
		shortMA, _ := args["short_ma_period"].(int)
		longMA, _ := args["long_ma_period"].(int)
		requestedShort, requestedLong := shortMA, longMA

		prices, failed := fetchCloses(ctx, provider, symbol, lookbackDays, "detect_market_trend")
		if failed != nil {
			return *failed
		}
		n := len(prices)

		// Shrink the windows when history is shorter than the requested
		// averages; below ten points there is nothing to classify.
		if n < longMA {
			if n < shortMA {
				if n < 10 {
					return insufficientData("trend", 10, n, symbol)
				}
				shortMA = max(5, n/3)
				longMA = max(shortMA+5, n-5)
				log.Warnw("Adjusted moving average periods for limited history",
					"symbol", symbol, "data_points", n, "short_ma", shortMA, "long_ma", longMA)
			} else {
				longMA = max(shortMA+10, n-5)
				log.Warnw("Adjusted long moving average period for limited history",
					"symbol", symbol, "data_points", n, "long_ma", longMA)
			}
		}

		shortVal, shortOK := lastSMA(prices, shortMA)
		longVal, longOK := lastSMA(prices, longMA)
		currentPrice := prices[n-1]

		logReturn := 0.0
		if prices[0] > 0 {
			logReturn = math.Log(currentPrice / prices[0])
		}

		var recentVol float64
		haveRecentVol := false
		if n >= 21 {
			if v, ok := annualizedVolatility(prices[n-21:]); ok && v > 0 {
				recentVol, haveRecentVol = v, true
			}
		}

		// Volatility-scaled momentum; a flat 20% annual volatility stands in
		// when the recent estimate is unavailable.
		vsm := logReturn / 0.2
		if haveRecentVol {
			vsm = logReturn / recentVol
		}

		var regime, confidence string
		switch {
		case !shortOK || !longOK:
			regime, confidence = "neutral", "low"
		case currentPrice > shortVal && shortVal > longVal:
			switch {
			case vsm > 1.0:
				regime, confidence = "bull", "high"
			case vsm > 0.25:
				regime, confidence = "bull", "medium"
			default:
				regime, confidence = "neutral", "low"
			}
		case currentPrice < shortVal && shortVal < longVal:
			switch {
			case vsm < -1.0:
				regime, confidence = "bear", "high"
			case vsm < -0.25:
				regime, confidence = "bear", "medium"
			default:
				regime, confidence = "neutral", "low"
			}
		default:
			regime, confidence = "neutral", "medium"
		}

		momentum20 := 0.0
		if n >= 20 && prices[n-20] > 0 {
			momentum20 = math.Log(currentPrice/prices[n-20]) * 100
		}

		maRelationship := "neutral"
		if shortOK && longOK {
			if shortVal > longVal {
				maRelationship = "bullish"
			} else if shortVal < longVal {
				maRelationship = "bearish"
			}
		}

		var shortMAValue, longMAValue, recentVolValue interface{}
		if shortOK {
			shortMAValue = round2(shortVal)
		}
		if longOK {
			longMAValue = round2(longVal)
		}
		if haveRecentVol {
			recentVolValue = round2(recentVol * 100)
		}

		parametersAdjusted := shortMA != requestedShort || longMA != requestedLong

		result := map[string]interface{}{
			"symbol":                     symbol,
			"regime":                     regime,
			"confidence":                 confidence,
			"current_price":              currentPrice,
			"price_change_pct":           round2(logReturn * 100),
			"log_return":                 round4(logReturn),
			"volatility_scaled_momentum": round4(vsm),
			"recent_volatility":          recentVolValue,
			"momentum_20d_pct":           round2(momentum20),
			"short_ma":                   shortMAValue,
			"long_ma":                    longMAValue,
			"ma_relationship":            maRelationship,
			"analysis_period_days":       lookbackDays,
			"data_points":                n,
			"parameters_adjusted":        parametersAdjusted,
			"short_ma_period_used":       shortMA,
			"long_ma_period_used":        longMA,
			"methodology":                "log_returns_with_volatility_scaling",
		}
		if parametersAdjusted {
			result["note"] = fmt.Sprintf(
				"Analysis adapted for limited data history. Used MA periods: %d/%d (requested: %d/%d). Results may have lower confidence.",
				shortMA, longMA, requestedShort, requestedLong)
		}

		return tools.OK(result, map[string]interface{}{
			"symbol":     symbol,
			"regime":     regime,
			"confidence": confidence,
		})
	})
}

// newVolatilityTool classifies the volatility regime (high, normal, low) by
// comparing the latest rolling volatility against the lookback distribution.
func newVolatilityTool(provider providers.MarketDataProvider, log *logger.Logger) tools.Tool {
	schema := tools.Schema{
		Name: "detect_volatility_regime",
		Description: "Detect volatility regime (high, normal, or low) for a stock " +
			"using rolling volatility analysis.",
		Parameters: []tools.Parameter{
			{Name: "symbol", Type: tools.TypeString, Description: "Stock ticker symbol (e.g., 'AAPL', 'MSFT')", Required: true},
			{Name: "lookback_days", Type: tools.TypeInteger, Description: "Number of days to analyze for volatility detection", Default: 252},
			{Name: "volatility_window", Type: tools.TypeInteger, Description: "Window size for volatility calculation (days)", Default: 20},
		},
		Returns: "Volatility regime detection results with classification and metrics",
	}

	return tools.New(schema, func(ctx context.Context, args map[string]interface{}) tools.Result {
		symbol := normalizeSymbol(args["symbol"])
		lookbackDays, _ := args["lookback_days"].(int)
		volWindow, _ := args["volatility_window"].(int)
		requestedWindow := volWindow

		prices, failed := fetchCloses(ctx, provider, symbol, lookbackDays, "detect_volatility_regime")
		if failed != nil {
			return *failed
		}
		n := len(prices)

		if n < volWindow+1 {
			if n < 10 {
				return insufficientData("volatility", 10, n, symbol)
			}
			volWindow = max(5, n-5)
			log.Warnw("Adjusted volatility window for limited history",
				"symbol", symbol, "data_points", n, "volatility_window", volWindow)
		}

		vols := rollingVolatility(prices, volWindow)
		if len(vols) == 0 {
			return tools.Fail("Could not calculate volatility from available data",
				map[string]interface{}{"symbol": symbol})
		}

		current := vols[len(vols)-1]
		regime := classifyVolatility(current, vols)

		mean, maxVol, minVol := 0.0, vols[0], vols[0]
		below := 0
		for _, v := range vols {
			mean += v
			maxVol = math.Max(maxVol, v)
			minVol = math.Min(minVol, v)
			if v <= current {
				below++
			}
		}
		mean /= float64(len(vols))
		percentile := float64(below) / float64(len(vols)) * 100

		parametersAdjusted := volWindow != requestedWindow

		result := map[string]interface{}{
			"symbol":                symbol,
			"regime":                regime,
			"current_volatility":    round2(current * 100),
			"mean_volatility":       round2(mean * 100),
			"max_volatility":        round2(maxVol * 100),
			"min_volatility":        round2(minVol * 100),
			"volatility_percentile": round2(percentile),
			"analysis_period_days":  lookbackDays,
			"volatility_window":     volWindow,
			"data_points":           n,
			"parameters_adjusted":   parametersAdjusted,
		}
		if parametersAdjusted {
			result["note"] = fmt.Sprintf(
				"Analysis adapted for limited data history. Used volatility window: %d (requested: %d). Results may have lower confidence.",
				volWindow, requestedWindow)
		}

		return tools.OK(result, map[string]interface{}{
			"symbol":                 symbol,
			"regime":                 regime,
			"current_volatility_pct": round2(current * 100),
		})
	})
}

// newCyclesTool identifies the Wyckoff cycle phase (accumulation, markup,
// distribution, markdown) from moving-average alignment, the price position
// within the lookback range, and recent-versus-average volume.
func newCyclesTool(provider providers.MarketDataProvider, log *logger.Logger) tools.Tool {
	schema := tools.Schema{
		Name: "detect_market_cycles",
		Description: "Detect market cycles and regime transitions for a stock. " +
			"Identifies accumulation, markup, distribution, and markdown phases.",
		Parameters: []tools.Parameter{
			{Name: "symbol", Type: tools.TypeString, Description: "Stock ticker symbol (e.g., 'AAPL', 'MSFT')", Required: true},
			{Name: "lookback_days", Type: tools.TypeInteger, Description: "Number of days to analyze for cycle detection", Default: 252},
		},
		Returns: "Market cycle detection results with phase identification",
	}

	return tools.New(schema, func(ctx context.Context, args map[string]interface{}) tools.Result {
		symbol := normalizeSymbol(args["symbol"])
		lookbackDays, _ := args["lookback_days"].(int)

		bars, failed := fetchBars(ctx, provider, symbol, lookbackDays, "detect_market_cycles")
		if failed != nil {
			return *failed
		}

		prices := stock.Closes(bars)
		n := len(prices)

		var maShort, maLong int
		if n < 50 {
			if n < 20 {
				return insufficientData("cycle", 20, n, symbol)
			}
			maShort = max(5, n/4)
			maLong = max(maShort+5, n-5)
			log.Warnw("Adjusted cycle detection periods for limited history",
				"symbol", symbol, "data_points", n, "ma_short", maShort, "ma_long", maLong)
		} else {
			maShort, maLong = 20, 50
		}

		ma20Val, ma20OK := lastSMA(prices, maShort)
		ma50Val, ma50OK := lastSMA(prices, maLong)
		currentPrice := prices[n-1]

		minPrice, maxPrice := prices[0], prices[0]
		for _, p := range prices {
			minPrice = math.Min(minPrice, p)
			maxPrice = math.Max(maxPrice, p)
		}
		pricePosition := 50.0
		if maxPrice > minPrice {
			pricePosition = (currentPrice - minPrice) / (maxPrice - minPrice) * 100
		}

		volumeWindow := min(20, n/2)
		recentVolume := float64(bars[n-1].Volume)
		if volumeWindow > 0 && n >= volumeWindow {
			sum := 0.0
			for _, b := range bars[n-volumeWindow:] {
				sum += float64(b.Volume)
			}
			recentVolume = sum / float64(volumeWindow)
		}
		totalVolume := 0.0
		for _, b := range bars {
			totalVolume += float64(b.Volume)
		}
		avgVolume := totalVolume / float64(n)
		volumeRatio := 1.0
		if avgVolume > 0 {
			volumeRatio = recentVolume / avgVolume
		}

		var phase, phaseDescription string
		switch {
		case !ma20OK || !ma50OK:
			phase = "transition"
			phaseDescription = "Insufficient data for cycle detection"
		case currentPrice > ma20Val && ma20Val > ma50Val && pricePosition > 60:
			phase = "markup"
			if volumeRatio > 1.2 {
				phaseDescription = "Strong uptrend with high volume - bullish phase"
			} else {
				phaseDescription = "Uptrend with moderate volume - bullish phase"
			}
		case currentPrice < ma20Val && ma20Val < ma50Val && pricePosition < 40:
			phase = "markdown"
			if volumeRatio > 1.2 {
				phaseDescription = "Strong downtrend with high volume - bearish phase"
			} else {
				phaseDescription = "Downtrend with moderate volume - bearish phase"
			}
		case pricePosition > 70 && volumeRatio > 1.1:
			phase = "distribution"
			phaseDescription = "Price near highs with elevated volume - potential top"
		case pricePosition < 30 && volumeRatio < 0.9:
			phase = "accumulation"
			phaseDescription = "Price near lows with low volume - potential bottom"
		default:
			phase = "transition"
			phaseDescription = "Transition phase - unclear direction"
		}

		recentPeriod := min(maShort, n-1)
		longerPeriod := min(maLong, n-1)
		recentTrend := "down"
		if currentPrice > prices[n-recentPeriod] {
			recentTrend = "up"
		}
		longerTrend := "down"
		if currentPrice > prices[n-longerPeriod] {
			longerTrend = "up"
		}
		regimeChange := recentTrend != longerTrend

		var ma20Value, ma50Value interface{}
		if ma20OK {
			ma20Value = round2(ma20Val)
		}
		if ma50OK {
			ma50Value = round2(ma50Val)
		}

		parametersAdjusted := maShort != 20 || maLong != 50

		result := map[string]interface{}{
			"symbol":                  symbol,
			"current_phase":           phase,
			"phase_description":       phaseDescription,
			"price_position_pct":      round2(pricePosition),
			"volume_ratio":            round2(volumeRatio),
			"current_price":           round2(currentPrice),
			"ma_20":                   ma20Value,
			"ma_50":                   ma50Value,
			"recent_trend":            recentTrend,
			"longer_trend":            longerTrend,
			"potential_regime_change": regimeChange,
			"analysis_period_days":    lookbackDays,
			"data_points":             n,
			"parameters_adjusted":     parametersAdjusted,
			"ma_short_period_used":    maShort,
			"ma_long_period_used":     maLong,
		}
		if parametersAdjusted {
			result["note"] = fmt.Sprintf(
				"Analysis adapted for limited data history. Used MA periods: %d/%d (standard: 20/50). Results may have lower confidence.",
				maShort, maLong)
		}

		return tools.OK(result, map[string]interface{}{
			"symbol":               symbol,
			"phase":                phase,
			"regime_change_signal": regimeChange,
		})
	})
}

// fetchBars loads daily bars for the lookback window, folding provider
// failures and empty history into failed results.
func fetchBars(ctx context.Context, provider providers.MarketDataProvider, symbol string, lookbackDays int, toolName string) ([]stock.Bar, *tools.Result) {
	end := time.Now()
	start := end.AddDate(0, 0, -lookbackDays)

	bars, err := provider.HistoricalData(ctx, symbol, start, end, "1d")
	if err != nil {
		failed := tools.Fail(errors.Wrapf(err, "%s: fetch history for %s", toolName, symbol),
			map[string]interface{}{"symbol": symbol})
		return nil, &failed
	}
	if len(bars) == 0 {
		failed := tools.Fail(fmt.Sprintf("No historical data available for %s", symbol),
			map[string]interface{}{"symbol": symbol})
		return nil, &failed
	}
	return bars, nil
}

func fetchCloses(ctx context.Context, provider providers.MarketDataProvider, symbol string, lookbackDays int, toolName string) ([]float64, *tools.Result) {
	bars, failed := fetchBars(ctx, provider, symbol, lookbackDays, toolName)
	if failed != nil {
		return nil, failed
	}
	return stock.Closes(bars), nil
}

func insufficientData(analysis string, minimum, got int, symbol string) tools.Result {
	return tools.Fail(
		fmt.Sprintf("Insufficient data for %s analysis: need at least %d data points, got %d. "+
			"This stock may be newly listed or have limited trading history.", analysis, minimum, got),
		map[string]interface{}{
			"symbol":      symbol,
			"data_points": got,
			"suggestion":  "Try a stock with more trading history, or use a shorter lookback period.",
		})
}

func normalizeSymbol(raw interface{}) string {
	s, _ := raw.(string)
	return strings.ToUpper(strings.TrimSpace(s))
}
