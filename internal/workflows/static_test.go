package workflows

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minerva/internal/domain/research"
	"minerva/internal/domain/stock"
	"minerva/pkg/errors"
)

// stubMarket serves canned market data; unset fields turn into not-found
// errors so callers exercise their degradation paths.
type stubMarket struct {
	info     *stock.Stock
	infoErr  error
	quote    *stock.Quote
	quoteErr error
	bars     []stock.Bar
	barsErr  error
}

func (m *stubMarket) Name() string                     { return "stub-market" }
func (m *stubMarket) Available(_ context.Context) bool { return true }

func (m *stubMarket) StockInfo(_ context.Context, _ string) (*stock.Stock, error) {
	if m.infoErr != nil {
		return nil, m.infoErr
	}
	if m.info == nil {
		return nil, errors.ErrNotFound
	}
	return m.info, nil
}

func (m *stubMarket) Quote(_ context.Context, _ string) (*stock.Quote, error) {
	if m.quoteErr != nil {
		return nil, m.quoteErr
	}
	if m.quote == nil {
		return nil, errors.ErrNotFound
	}
	return m.quote, nil
}

func (m *stubMarket) HistoricalData(_ context.Context, _ string, _, _ time.Time, _ string) ([]stock.Bar, error) {
	if m.barsErr != nil {
		return nil, m.barsErr
	}
	return m.bars, nil
}

func (m *stubMarket) Intraday(_ context.Context, _, _ string) ([]stock.Bar, error) {
	return nil, errors.ErrNotImplemented
}

func (m *stubMarket) SearchStocks(_ context.Context, _ string, _ int) ([]stock.Stock, error) {
	return nil, errors.ErrNotImplemented
}

type stubFundamentals struct {
	fundamentals *stock.Fundamentals
	err          error
}

func (f *stubFundamentals) Name() string                     { return "stub-fundamentals" }
func (f *stubFundamentals) Available(_ context.Context) bool { return true }

func (f *stubFundamentals) DetailedFundamentals(_ context.Context, _ string, _ int, _ string) (*stock.Fundamentals, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.fundamentals == nil {
		return nil, errors.ErrNotFound
	}
	return f.fundamentals, nil
}

func (f *stubFundamentals) FinancialStatements(_ context.Context, _, _, _ string) ([]stock.FinancialStatement, error) {
	return nil, errors.ErrNotImplemented
}

func (f *stubFundamentals) Filings(_ context.Context, _ string, _ []string, _ int) ([]stock.Filing, error) {
	return nil, errors.ErrNotImplemented
}

func (f *stubFundamentals) FilingContent(_ context.Context, _ string) (string, error) {
	return "", errors.ErrNotImplemented
}

// risingBars builds n daily bars climbing half a point per day from 100.
func risingBars(n int) []stock.Bar {
	bars := make([]stock.Bar, n)
	start := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		price := 100 + 0.5*float64(i)
		bars[i] = stock.Bar{
			Timestamp: start.AddDate(0, 0, i),
			Open:      decimal.NewFromFloat(price),
			High:      decimal.NewFromFloat(price + 1),
			Low:       decimal.NewFromFloat(price - 1),
			Close:     decimal.NewFromFloat(price),
			Volume:    1000,
		}
	}
	return bars
}

func TestStaticExecutePipeline(t *testing.T) {
	pe := 24.5
	market := &stubMarket{
		info: &stock.Stock{Symbol: "AAPL", Name: "Apple Inc.", Exchange: "NASDAQ", Sector: "Technology"},
		quote: &stock.Quote{
			Symbol:        "AAPL",
			Price:         decimal.NewFromFloat(129.5),
			PreviousClose: decimal.NewFromFloat(128),
		},
		bars: risingBars(60),
	}
	fund := &stubFundamentals{
		fundamentals: &stock.Fundamentals{Symbol: "AAPL", PERatio: &pe},
	}

	exec := NewStatic(market, fund, testLogger())

	out, err := exec.Execute(context.Background(), newResearch(t, "static"), Context{})
	require.NoError(t, err)

	assert.Equal(t, "comprehensive_static", out["analysis_type"])

	info := out["stock_info"].(map[string]interface{})
	assert.Equal(t, "Apple Inc.", info["name"])

	quote := out["current_quote"].(map[string]interface{})
	assert.Equal(t, 129.5, quote["price"])

	historical := out["historical_data"].(map[string]interface{})
	assert.Equal(t, 60, historical["data_points"])
	assert.Equal(t, "1d", historical["interval"])
	stats := historical["price_statistics"].(map[string]interface{})
	assert.Equal(t, 129.5, stats["current_price"])
	assert.Equal(t, 100.0, stats["period_start_price"])
	assert.Equal(t, 129.5, stats["period_high"])
	assert.Equal(t, 100.0, stats["period_low"])
	assert.Equal(t, 29.5, stats["price_change"])
	assert.Equal(t, 29.5, stats["price_change_pct"])
	volumes := historical["volume_statistics"].(map[string]interface{})
	assert.Equal(t, int64(1000), volumes["average_volume"])
	assert.Equal(t, int64(1000), volumes["max_volume"])

	fundamentals := out["fundamentals"].(map[string]interface{})
	assert.Equal(t, 24.5, fundamentals["pe_ratio"])
	assert.Equal(t, 4, fundamentals["periods"])
	assert.Equal(t, "quarterly", fundamentals["period_type"])

	analysis := out["analysis"].(map[string]interface{})
	trends := analysis["trends"].(map[string]interface{})
	priceTrend := trends["price_trend"].(map[string]interface{})
	assert.Equal(t, "up", priceTrend["direction"])
	assert.Equal(t, 29.5, priceTrend["magnitude"])

	metrics := analysis["metrics"].(map[string]interface{})
	technical := metrics["technical"].(map[string]interface{})
	assert.Contains(t, technical, "sma_20")
	assert.Contains(t, technical, "rsi_14")
	assert.Contains(t, technical, "annualized_volatility_pct")
	valuation := metrics["valuation"].(map[string]interface{})
	assert.Equal(t, 24.5, valuation["pe_ratio"])

	// The quote sits exactly at the period high, and a monotone climb pins
	// RSI at the top of its range.
	assessments := analysis["assessments"].([]string)
	assert.Contains(t, assessments, "Trading near period high")

	summary := out["summary"].(map[string]interface{})
	text := summary["text"].(string)
	assert.Contains(t, text, "Company: Apple Inc.")
	assert.Contains(t, text, "Sector: Technology")
	assert.Contains(t, text, "Current Price: 129.50")
	assert.Contains(t, text, "Price Trend (short_term): up 29.50%")
	assert.Contains(t, text, "P/E Ratio: 24.50")
	assert.Contains(t, text, "Key Observations:")
	assert.Contains(t, text, "Analysis Methodology:")
	assert.NotEmpty(t, summary["analysis_date"])
}

func TestStaticExecuteWithoutProviders(t *testing.T) {
	exec := NewStatic(nil, nil, testLogger())

	out, err := exec.Execute(context.Background(), newResearch(t, "static"), Context{})
	require.NoError(t, err)

	assert.Equal(t, "Stock info not available", out["stock_info"].(map[string]interface{})["note"])
	assert.Equal(t, "Quote not available", out["current_quote"].(map[string]interface{})["note"])
	assert.Equal(t, "Historical data not available", out["historical_data"].(map[string]interface{})["note"])
	assert.Equal(t, "Fundamentals not available", out["fundamentals"].(map[string]interface{})["note"])

	analysis := out["analysis"].(map[string]interface{})
	trends := analysis["trends"].(map[string]interface{})
	assert.NotContains(t, trends, "price_trend")

	assert.NotEmpty(t, out["summary"].(map[string]interface{})["analysis_date"])
}

func TestStaticExecuteStepErrorsAreIsolated(t *testing.T) {
	market := &stubMarket{
		infoErr:  errors.Wrap(errors.ErrExternal, "yahoo 502"),
		quoteErr: errors.Wrap(errors.ErrExternal, "yahoo 503"),
		bars:     risingBars(25),
	}
	exec := NewStatic(market, nil, testLogger())

	out, err := exec.Execute(context.Background(), newResearch(t, "static"), Context{})
	require.NoError(t, err)

	assert.Contains(t, out["stock_info"].(map[string]interface{})["error"], "yahoo 502")
	assert.Contains(t, out["current_quote"].(map[string]interface{})["error"], "yahoo 503")

	// History still produced statistics despite the failures around it.
	historical := out["historical_data"].(map[string]interface{})
	assert.Equal(t, 25, historical["data_points"])
}

func TestStaticExecuteEmptyHistory(t *testing.T) {
	market := &stubMarket{
		info:  &stock.Stock{Symbol: "NEWCO", Name: "NewCo"},
		quote: &stock.Quote{Symbol: "NEWCO", Price: decimal.NewFromInt(10)},
	}
	exec := NewStatic(market, nil, testLogger())

	out, err := exec.Execute(context.Background(), newResearch(t, "static"), Context{})
	require.NoError(t, err)

	historical := out["historical_data"].(map[string]interface{})
	assert.Equal(t, 0, historical["data_points"])
	assert.Equal(t, "No historical data available", historical["note"])
}

func TestStaticSummaryMethodologyFollowsLiteracy(t *testing.T) {
	market := &stubMarket{bars: risingBars(30)}
	exec := NewStatic(market, nil, testLogger())

	out, err := exec.Execute(context.Background(), newResearch(t, "static"), Context{"financial_literacy": "advanced"})
	require.NoError(t, err)
	text := out["summary"].(map[string]interface{})["text"].(string)
	assert.NotContains(t, text, "Analysis Methodology:")

	out, err = exec.Execute(context.Background(), newResearch(t, "static"), Context{"financial_literacy": "beginner"})
	require.NoError(t, err)
	text = out["summary"].(map[string]interface{})["text"].(string)
	assert.Contains(t, text, "Analysis Methodology:")
}

func TestStaticValidate(t *testing.T) {
	exec := NewStatic(nil, nil, testLogger())
	assert.Equal(t, "static", exec.WorkflowType())

	res := newResearch(t, "static")
	assert.True(t, exec.Validate(res))

	res.Timeframe = research.Timeframe("fortnight")
	assert.False(t, exec.Validate(res))

	res = newResearch(t, "static")
	res.StockSymbol = "   "
	assert.False(t, exec.Validate(res))
}
