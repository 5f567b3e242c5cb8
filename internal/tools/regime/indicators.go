package regime

import (
	"math"

	"github.com/markcheno/go-talib"
)

// annualization converts daily return deviation to annual volatility,
// assuming 252 trading days.
var annualization = math.Sqrt(252)

// safeLog treats non-positive prices as a zero log-price so a bad bar cannot
// poison the whole series.
func safeLog(p float64) float64 {
	if p > 0 {
		return math.Log(p)
	}
	return 0
}

// logReturns computes r_t = ln(P_t / P_{t-1}), one element shorter than the
// input series.
func logReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		out[i-1] = safeLog(prices[i]) - safeLog(prices[i-1])
	}
	return out
}

// lastSMA returns the most recent simple moving average value. The second
// return is false when the series is shorter than the window.
func lastSMA(prices []float64, window int) (float64, bool) {
	if window <= 0 || len(prices) < window {
		return 0, false
	}
	values := talib.Sma(prices, window)
	return values[len(values)-1], true
}

// rollingVolatility returns annualized rolling volatilities of the close
// series, oldest first. A value exists only where a full window of log
// returns precedes the bar, so the result is len(prices)-window-1 long (nil
// when no window fits).
func rollingVolatility(prices []float64, window int) []float64 {
	if window < 2 {
		return nil
	}
	returns := logReturns(prices)
	if len(returns) <= window {
		return nil
	}

	deviations := talib.StdDev(returns, window, 1.0)

	// TA-Lib reports the population deviation; scale to the sample estimator.
	factor := math.Sqrt(float64(window) / float64(window-1))

	out := make([]float64, 0, len(returns)-window)
	for i := window; i < len(deviations); i++ {
		out = append(out, deviations[i]*factor*annualization)
	}
	return out
}

// annualizedVolatility is the population deviation of the full series' log
// returns, annualized for daily bars.
func annualizedVolatility(prices []float64) (float64, bool) {
	returns := logReturns(prices)
	if len(returns) == 0 {
		return 0, false
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns))

	return math.Sqrt(variance) * annualization, true
}

// classifyVolatility buckets the current volatility against the historical
// distribution using mean-plus-or-minus-one-deviation thresholds.
func classifyVolatility(current float64, history []float64) string {
	if len(history) == 0 {
		return "normal"
	}

	mean := 0.0
	for _, v := range history {
		mean += v
	}
	mean /= float64(len(history))

	std := 0.0
	if len(history) > 1 {
		variance := 0.0
		for _, v := range history {
			d := v - mean
			variance += d * d
		}
		std = math.Sqrt(variance / float64(len(history)))
	}

	switch {
	case current > mean+std:
		return "high"
	case current < mean-std:
		return "low"
	default:
		return "normal"
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
