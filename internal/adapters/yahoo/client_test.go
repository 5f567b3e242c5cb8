package yahoo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minerva/pkg/errors"
)

const chartPayload = `{
  "chart": {
    "result": [{
      "meta": {
        "currency": "USD",
        "symbol": "AAPL",
        "exchangeName": "NMS",
        "regularMarketPrice": 150.0,
        "chartPreviousClose": 148.0,
        "regularMarketDayHigh": 151.0,
        "regularMarketDayLow": 147.5,
        "regularMarketVolume": 55000000,
        "regularMarketTime": 1700000000
      },
      "timestamp": [1699900000, 1699986400, 1700072800],
      "indicators": {
        "quote": [{
          "open":   [148.5, 149.0, null],
          "high":   [149.5, 150.5, null],
          "low":    [147.0, 148.0, null],
          "close":  [149.0, 150.0, null],
          "volume": [50000000, 55000000, null]
        }]
      }
    }],
    "error": null
  }
}`

const searchPayload = `{
  "quotes": [
    {"symbol": "AAPL", "longname": "Apple Inc.", "exchange": "NMS", "quoteType": "EQUITY", "sector": "Technology", "industry": "Consumer Electronics"},
    {"symbol": "APLE", "shortname": "Apple Hospitality REIT", "exchange": "NYQ", "quoteType": "EQUITY"},
    {"symbol": "AAPL240621C00100000", "shortname": "AAPL Call", "exchange": "OPR", "quoteType": "OPTION"}
  ]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(Config{
		BaseURL:    server.URL,
		RatePerMin: 6000,
	})
}

func TestQuote(t *testing.T) {
	var gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(chartPayload))
	})

	quote, err := client.Quote(context.Background(), "aapl")
	require.NoError(t, err)

	assert.Equal(t, "/v8/finance/chart/AAPL", gotPath)
	assert.Equal(t, "AAPL", quote.Symbol)
	assert.Equal(t, 150.0, quote.Price.InexactFloat64())
	assert.Equal(t, 148.0, quote.PreviousClose.InexactFloat64())
	assert.Equal(t, 2.0, quote.Change.InexactFloat64())
	assert.InDelta(t, 1.35, quote.ChangePercent.InexactFloat64(), 0.01)
	assert.Equal(t, int64(55000000), quote.Volume)
	assert.Equal(t, 148.5, quote.Open.InexactFloat64())
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), quote.Timestamp)
}

func TestHistoricalData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		assert.NotEmpty(t, r.URL.Query().Get("period1"))
		w.Write([]byte(chartPayload))
	})

	end := time.Now()
	start := end.AddDate(0, 0, -30)
	bars, err := client.HistoricalData(context.Background(), "AAPL", start, end, "1d")
	require.NoError(t, err)

	// The third slot is null and must be skipped.
	require.Len(t, bars, 2)
	assert.Equal(t, 149.0, bars[0].Close.InexactFloat64())
	assert.Equal(t, 150.0, bars[1].Close.InexactFloat64())
	assert.Equal(t, int64(50000000), bars[0].Volume)
}

func TestSearchStocks(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "apple", r.URL.Query().Get("q"))
		w.Write([]byte(searchPayload))
	})

	results, err := client.SearchStocks(context.Background(), "apple", 10)
	require.NoError(t, err)

	// Option contracts are filtered out.
	require.Len(t, results, 2)
	assert.Equal(t, "AAPL", results[0].Symbol)
	assert.Equal(t, "Apple Inc.", results[0].Name)
	assert.Equal(t, "Technology", results[0].Sector)
	assert.Equal(t, "Apple Hospitality REIT", results[1].Name)
}

func TestChartErrorEnvelope(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
	})

	_, err := client.Quote(context.Background(), "NOPE")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrProviderData))
	assert.Contains(t, err.Error(), "delisted")
}

func TestRateLimitStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`too many requests`))
	})

	_, err := client.Quote(context.Background(), "AAPL")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrRateLimitExceeded))
}

func TestDetailedFundamentals(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("modules") == "summaryDetail,defaultKeyStatistics" {
			w.Write([]byte(`{
  "quoteSummary": {
    "result": [{
      "summaryDetail": {
        "marketCap": {"raw": 2400000000000, "fmt": "2.4T"},
        "trailingPE": {"raw": 28.5, "fmt": "28.50"},
        "dividendYield": {"raw": 0.0055, "fmt": "0.55%"},
        "beta": {"raw": 1.25, "fmt": "1.25"},
        "fiftyTwoWeekHigh": {"raw": 182.5, "fmt": "182.50"},
        "fiftyTwoWeekLow": {"raw": 124.2, "fmt": "124.20"}
      },
      "defaultKeyStatistics": {
        "trailingEps": {"raw": 6.11, "fmt": "6.11"}
      }
    }]
  }
}`))
			return
		}
		w.Write([]byte(`{
  "quoteSummary": {
    "result": [{
      "incomeStatementHistoryQuarterly": {
        "incomeStatementHistory": [
          {"endDate": {"raw": 1688083200, "fmt": "2023-06-30"}, "totalRevenue": {"raw": 81797000000, "fmt": "81.8B"}, "netIncome": {"raw": 19881000000, "fmt": "19.88B"}},
          {"endDate": {"raw": 1680220800, "fmt": "2023-03-31"}, "totalRevenue": {"raw": 94836000000, "fmt": "94.84B"}, "netIncome": {"raw": 24160000000, "fmt": "24.16B"}}
        ],
        "maxAge": 86400
      }
    }]
  }
}`))
	})

	fundamentals, err := client.DetailedFundamentals(context.Background(), "AAPL", 4, "quarterly")
	require.NoError(t, err)

	assert.Equal(t, "AAPL", fundamentals.Symbol)
	require.NotNil(t, fundamentals.PERatio)
	assert.Equal(t, 28.5, *fundamentals.PERatio)
	require.NotNil(t, fundamentals.EPS)
	assert.Equal(t, 6.11, *fundamentals.EPS)

	require.Len(t, fundamentals.Statements, 2)
	assert.Equal(t, "2023-06-30", fundamentals.Statements[0].FiscalDate)
	assert.Equal(t, 81797000000.0, fundamentals.Statements[0].Items["totalRevenue"])
}

func TestFilingsNotServed(t *testing.T) {
	client := NewClient(Config{})

	_, err := client.Filings(context.Background(), "AAPL", []string{"10-K"}, 5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotImplemented))
}
