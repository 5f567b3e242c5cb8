package workflows

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/markcheno/go-talib"

	"minerva/internal/domain/research"
	"minerva/internal/domain/stock"
	"minerva/internal/providers"
	"minerva/pkg/logger"
)

// StaticExecutor runs a fixed analysis pipeline: stock info, current quote,
// historical price statistics, fundamentals, indicator analysis and a text
// summary. Every step degrades gracefully: a missing provider leaves a note,
// a failed call leaves the error, and the remaining steps still run.
type StaticExecutor struct {
	market       providers.MarketDataProvider
	fundamentals providers.FundamentalDataProvider
	log          *logger.Logger
}

// NewStatic constructs the static workflow executor. Either provider may be
// nil; the affected steps then report themselves as unavailable.
func NewStatic(market providers.MarketDataProvider, fundamentals providers.FundamentalDataProvider, log *logger.Logger) *StaticExecutor {
	return &StaticExecutor{
		market:       market,
		fundamentals: fundamentals,
		log:          log.With("workflow", "static"),
	}
}

// WorkflowType identifies this executor during selection.
func (e *StaticExecutor) WorkflowType() string { return "static" }

// Validate accepts any research with a symbol and a known timeframe.
func (e *StaticExecutor) Validate(res *research.Research) bool {
	return strings.TrimSpace(res.StockSymbol) != "" && res.Timeframe.Valid()
}

// Execute runs the pipeline. It never returns an error: each step folds its
// failure into the result map and the rest of the pipeline continues.
func (e *StaticExecutor) Execute(ctx context.Context, res *research.Research, wfCtx Context) (map[string]interface{}, error) {
	symbol := strings.ToUpper(res.StockSymbol)
	timeframe := res.Timeframe

	results := map[string]interface{}{
		"analysis_type": "comprehensive_static",
	}

	stockInfo := e.fetchStockInfo(ctx, symbol)
	results["stock_info"] = stockInfo

	quote := e.fetchQuote(ctx, symbol)
	results["current_quote"] = quote

	historical, closes := e.fetchHistory(ctx, symbol, timeframe)
	results["historical_data"] = historical

	fundamentals := e.fetchFundamentals(ctx, symbol, timeframe)
	results["fundamentals"] = fundamentals

	analysis := e.buildAnalysis(symbol, quote, historical, fundamentals, closes, timeframe)
	results["analysis"] = analysis

	results["summary"] = e.buildSummary(stockInfo, quote, analysis, timeframe, wfCtx.Literacy())

	return results, nil
}

func (e *StaticExecutor) fetchStockInfo(ctx context.Context, symbol string) map[string]interface{} {
	if e.market == nil {
		e.log.Warnw("Market data provider not configured, skipping stock info", "symbol", symbol)
		return map[string]interface{}{"symbol": symbol, "note": "Stock info not available"}
	}

	info, err := e.market.StockInfo(ctx, symbol)
	if err != nil {
		e.log.Warnw("Failed to get stock info", "symbol", symbol, "error", err)
		return map[string]interface{}{"symbol": symbol, "error": err.Error()}
	}

	return info.AsMap()
}

func (e *StaticExecutor) fetchQuote(ctx context.Context, symbol string) map[string]interface{} {
	if e.market == nil {
		e.log.Warnw("Market data provider not configured, skipping quote", "symbol", symbol)
		return map[string]interface{}{"symbol": symbol, "note": "Quote not available"}
	}

	quote, err := e.market.Quote(ctx, symbol)
	if err != nil {
		e.log.Warnw("Failed to get market quote", "symbol", symbol, "error", err)
		return map[string]interface{}{"symbol": symbol, "error": err.Error()}
	}

	return quote.AsMap()
}

// fetchHistory pulls price history for the timeframe's window and reduces it
// to summary statistics. The close series is returned alongside for the
// indicator analysis step.
func (e *StaticExecutor) fetchHistory(ctx context.Context, symbol string, timeframe research.Timeframe) (map[string]interface{}, []float64) {
	if e.market == nil {
		e.log.Warnw("Market data provider not configured, skipping historical data", "symbol", symbol)
		return map[string]interface{}{"symbol": symbol, "note": "Historical data not available"}, nil
	}

	days, interval := timeframe.HistoricalRange()
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -days)

	bars, err := e.market.HistoricalData(ctx, symbol, start, end, interval)
	if err != nil {
		e.log.Warnw("Failed to get historical data", "symbol", symbol, "error", err)
		return map[string]interface{}{"symbol": symbol, "error": err.Error()}, nil
	}
	if len(bars) == 0 {
		return map[string]interface{}{
			"symbol":      symbol,
			"data_points": 0,
			"note":        "No historical data available",
		}, nil
	}

	closes := stock.Closes(bars)
	first, last := closes[0], closes[len(closes)-1]
	high, low := closes[0], closes[0]
	for _, c := range closes {
		high = math.Max(high, c)
		low = math.Min(low, c)
	}
	changePct := 0.0
	if first > 0 {
		changePct = (last - first) / first * 100
	}

	var totalVolume, maxVolume, minVolume int64
	minVolume = bars[0].Volume
	for _, b := range bars {
		totalVolume += b.Volume
		if b.Volume > maxVolume {
			maxVolume = b.Volume
		}
		if b.Volume < minVolume {
			minVolume = b.Volume
		}
	}

	return map[string]interface{}{
		"symbol":      symbol,
		"data_points": len(bars),
		"start_date":  start.Format(time.RFC3339),
		"end_date":    end.Format(time.RFC3339),
		"interval":    interval,
		"price_statistics": map[string]interface{}{
			"current_price":      round2(last),
			"period_start_price": round2(first),
			"period_high":        round2(high),
			"period_low":         round2(low),
			"price_change":       round2(last - first),
			"price_change_pct":   round2(changePct),
		},
		"volume_statistics": map[string]interface{}{
			"average_volume": totalVolume / int64(len(bars)),
			"max_volume":     maxVolume,
			"min_volume":     minVolume,
		},
	}, closes
}

func (e *StaticExecutor) fetchFundamentals(ctx context.Context, symbol string, timeframe research.Timeframe) map[string]interface{} {
	if e.fundamentals == nil {
		e.log.Warnw("Fundamental data provider not configured, skipping fundamentals", "symbol", symbol)
		return map[string]interface{}{"symbol": symbol, "note": "Fundamentals not available"}
	}

	periods, periodType := timeframe.FundamentalPeriods()

	fundamentals, err := e.fundamentals.DetailedFundamentals(ctx, symbol, periods, periodType)
	if err != nil {
		e.log.Warnw("Failed to get fundamentals", "symbol", symbol, "error", err)
		return map[string]interface{}{"symbol": symbol, "error": err.Error()}
	}

	out := fundamentals.AsMap()
	out["periods"] = periods
	out["period_type"] = periodType

	return out
}

// buildAnalysis derives trends, valuation metrics, technical indicators and
// plain-text assessments from the fetched data. Sections whose inputs are
// missing are simply absent.
func (e *StaticExecutor) buildAnalysis(symbol string, quote, historical, fundamentals map[string]interface{}, closes []float64, timeframe research.Timeframe) map[string]interface{} {
	metrics := map[string]interface{}{}
	trends := map[string]interface{}{}
	var assessments []string

	priceStats, _ := historical["price_statistics"].(map[string]interface{})

	if changePct, ok := priceStats["price_change_pct"].(float64); ok {
		direction := "down"
		if changePct > 0 {
			direction = "up"
		}
		trends["price_trend"] = map[string]interface{}{
			"direction":  direction,
			"magnitude":  math.Abs(changePct),
			"change_pct": changePct,
		}
	}

	valuation := map[string]interface{}{}
	for _, key := range []string{"pe_ratio", "eps", "dividend_yield", "beta", "market_cap"} {
		if v, ok := fundamentals[key]; ok {
			valuation[key] = v
		}
	}
	if len(valuation) > 0 {
		metrics["valuation"] = valuation
	}

	var rsi float64
	haveRSI := false
	technical := map[string]interface{}{}
	if len(closes) >= 20 {
		sma := talib.Sma(closes, 20)
		technical["sma_20"] = round2(sma[len(sma)-1])
	}
	if len(closes) >= 15 {
		values := talib.Rsi(closes, 14)
		rsi = values[len(values)-1]
		haveRSI = true
		technical["rsi_14"] = round2(rsi)
	}
	if vol, ok := annualizedVolatility(closes); ok {
		technical["annualized_volatility_pct"] = round2(vol * 100)
	}
	if len(technical) > 0 {
		metrics["technical"] = technical
	}

	if price, ok := quote["price"].(float64); ok && price > 0 {
		high, _ := priceStats["period_high"].(float64)
		low, _ := priceStats["period_low"].(float64)
		if high > low {
			position := (price - low) / (high - low)
			if position > 0.8 {
				assessments = append(assessments, "Trading near period high")
			} else if position < 0.2 {
				assessments = append(assessments, "Trading near period low")
			}
		}
	}

	if haveRSI {
		if rsi > 70 {
			assessments = append(assessments, fmt.Sprintf("RSI at %.1f - overbought territory", rsi))
		} else if rsi < 30 {
			assessments = append(assessments, fmt.Sprintf("RSI at %.1f - oversold territory", rsi))
		}
	}

	return map[string]interface{}{
		"symbol":      symbol,
		"timeframe":   string(timeframe),
		"metrics":     metrics,
		"trends":      trends,
		"assessments": assessments,
	}
}

// buildSummary composes the human-readable digest. Readers below the
// advanced literacy level also get the methodology appendix explaining how
// each number was derived.
func (e *StaticExecutor) buildSummary(stockInfo, quote, analysis map[string]interface{}, timeframe research.Timeframe, literacy string) map[string]interface{} {
	var parts []string

	if name, ok := stockInfo["name"].(string); ok && name != "" {
		parts = append(parts, fmt.Sprintf("Company: %s", name))
	}
	if sector, ok := stockInfo["sector"].(string); ok && sector != "" {
		parts = append(parts, fmt.Sprintf("Sector: %s", sector))
	}

	if price, ok := quote["price"].(float64); ok && price > 0 {
		change := ""
		if prev, ok := quote["previous_close"].(float64); ok && prev > 0 {
			diff := price - prev
			change = fmt.Sprintf(" (%+.2f, %+.2f%%)", diff, diff/prev*100)
		}
		parts = append(parts, fmt.Sprintf("Current Price: %.2f%s", price, change))
	}

	trends, _ := analysis["trends"].(map[string]interface{})
	if trend, ok := trends["price_trend"].(map[string]interface{}); ok {
		direction, _ := trend["direction"].(string)
		magnitude, _ := trend["magnitude"].(float64)
		parts = append(parts, fmt.Sprintf("Price Trend (%s): %s %.2f%%", timeframe, direction, magnitude))
	}

	metrics, _ := analysis["metrics"].(map[string]interface{})
	if valuation, ok := metrics["valuation"].(map[string]interface{}); ok {
		if pe, ok := valuation["pe_ratio"].(float64); ok {
			parts = append(parts, fmt.Sprintf("P/E Ratio: %.2f", pe))
		}
	}
	if technical, ok := metrics["technical"].(map[string]interface{}); ok {
		if rsi, ok := technical["rsi_14"].(float64); ok {
			parts = append(parts, fmt.Sprintf("RSI (14d): %.1f", rsi))
		}
	}

	if assessments, ok := analysis["assessments"].([]string); ok && len(assessments) > 0 {
		parts = append(parts, "Key Observations:")
		for _, a := range assessments {
			parts = append(parts, "  - "+a)
		}
	}

	if literacy != "advanced" {
		parts = append(parts,
			"",
			"Analysis Methodology:",
			"  - Price Trend: (current_price - period_start_price) / period_start_price * 100",
			"  - SMA (20d): average closing price of the last 20 bars",
			"  - RSI (14d): momentum oscillator; above 70 suggests overbought, below 30 oversold",
			"  - Annualized Volatility: standard deviation of daily log returns scaled by sqrt(252)",
			"  - Price Position: (current_price - period_low) / (period_high - period_low)",
		)
	}

	return map[string]interface{}{
		"text":          strings.Join(parts, "\n"),
		"timeframe":     string(timeframe),
		"analysis_date": time.Now().UTC().Format(time.RFC3339),
	}
}

// annualizedVolatility is the population deviation of daily log returns
// scaled to a yearly horizon.
func annualizedVolatility(prices []float64) (float64, bool) {
	if len(prices) < 2 {
		return 0, false
	}

	var returns []float64
	for i := 1; i < len(prices); i++ {
		if prices[i-1] > 0 && prices[i] > 0 {
			returns = append(returns, math.Log(prices[i]/prices[i-1]))
		}
	}
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
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns))

	return math.Sqrt(variance) * math.Sqrt(252), true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
