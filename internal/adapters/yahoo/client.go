package yahoo

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"minerva/internal/domain/stock"
	"minerva/internal/metrics"
	"minerva/internal/providers"
	"minerva/pkg/errors"
)

const (
	defaultBaseURL     = "https://query1.finance.yahoo.com"
	defaultHTTPTimeout = 15 * time.Second
	defaultRatePerMin  = 60
	defaultUserAgent   = "minerva/1.0"

	providerName = "yahoo"
)

// Config configures the Yahoo Finance client.
type Config struct {
	BaseURL    string
	UserAgent  string
	RatePerMin int

	HTTPClient *http.Client
}

// Client serves market data and basic fundamentals from the public Yahoo
// Finance endpoints. One client satisfies both provider ports.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

var (
	_ providers.MarketDataProvider      = (*Client)(nil)
	_ providers.FundamentalDataProvider = (*Client)(nil)
)

// NewClient creates a new Yahoo Finance adapter.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.RatePerMin <= 0 {
		cfg.RatePerMin = defaultRatePerMin
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:  cfg.UserAgent,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(float64(cfg.RatePerMin)/60.0), cfg.RatePerMin),
	}
}

func (c *Client) Name() string {
	return providerName
}

// Available probes the chart endpoint with a liquid symbol.
func (c *Client) Available(ctx context.Context) bool {
	params := url.Values{"range": []string{"1d"}, "interval": []string{"1d"}}
	_, err := c.get(ctx, "/v8/finance/chart/AAPL", params)
	return err == nil
}

// Quote returns the current price snapshot from the chart meta block.
func (c *Client) Quote(ctx context.Context, symbol string) (*stock.Quote, error) {
	res, err := c.chart(ctx, symbol, url.Values{
		"range":    []string{"1d"},
		"interval": []string{"1d"},
	})
	if err != nil {
		return nil, err
	}

	meta := res.Meta
	price := decimal.NewFromFloat(meta.RegularMarketPrice)
	prevClose := decimal.NewFromFloat(meta.ChartPreviousClose)

	change := decimal.Zero
	changePct := decimal.Zero
	if !prevClose.IsZero() {
		change = price.Sub(prevClose)
		changePct = change.Div(prevClose).Mul(decimal.NewFromInt(100))
	}

	quote := &stock.Quote{
		Symbol:        strings.ToUpper(symbol),
		Price:         price,
		Change:        change,
		ChangePercent: changePct,
		Volume:        meta.RegularMarketVolume,
		High:          decimal.NewFromFloat(meta.RegularMarketDayHigh),
		Low:           decimal.NewFromFloat(meta.RegularMarketDayLow),
		PreviousClose: prevClose,
		Timestamp:     time.Unix(meta.RegularMarketTime, 0).UTC(),
	}

	// The meta block carries no open; take it from the day's first bar.
	if len(res.Timestamp) > 0 && len(res.Indicators.Quote) > 0 {
		if opens := res.Indicators.Quote[0].Open; len(opens) > 0 && opens[0] != nil {
			quote.Open = decimal.NewFromFloat(*opens[0])
		}
	}

	return quote, nil
}

// HistoricalData returns OHLCV bars between start and end.
func (c *Client) HistoricalData(ctx context.Context, symbol string, start, end time.Time, interval string) ([]stock.Bar, error) {
	if interval == "" {
		interval = "1d"
	}

	res, err := c.chart(ctx, symbol, url.Values{
		"period1":  []string{strconv.FormatInt(start.Unix(), 10)},
		"period2":  []string{strconv.FormatInt(end.Unix(), 10)},
		"interval": []string{interval},
	})
	if err != nil {
		return nil, err
	}

	return res.bars(symbol), nil
}

// Intraday returns fine-grained bars for the last five trading days.
func (c *Client) Intraday(ctx context.Context, symbol, interval string) ([]stock.Bar, error) {
	if interval == "" {
		interval = "5m"
	}

	res, err := c.chart(ctx, symbol, url.Values{
		"range":    []string{"5d"},
		"interval": []string{interval},
	})
	if err != nil {
		return nil, err
	}

	return res.bars(symbol), nil
}

// SearchStocks finds symbols matching a free-text query. Only equity and ETF
// results are returned.
func (c *Client) SearchStocks(ctx context.Context, query string, limit int) ([]stock.Stock, error) {
	if limit <= 0 {
		limit = 10
	}

	params := url.Values{
		"q":           []string{query},
		"quotesCount": []string{strconv.Itoa(limit)},
		"newsCount":   []string{"0"},
	}

	data, err := c.get(ctx, "/v1/finance/search", params)
	if err != nil {
		return nil, err
	}

	var res struct {
		Quotes []struct {
			Symbol    string `json:"symbol"`
			ShortName string `json:"shortname"`
			LongName  string `json:"longname"`
			Exchange  string `json:"exchange"`
			QuoteType string `json:"quoteType"`
			Sector    string `json:"sector"`
			Industry  string `json:"industry"`
		} `json:"quotes"`
	}

	if err := json.Unmarshal(data, &res); err != nil {
		return nil, errors.Wrapf(errors.ErrProviderData, "yahoo search decode: %v", err)
	}

	results := make([]stock.Stock, 0, len(res.Quotes))
	for _, q := range res.Quotes {
		if q.QuoteType != "" && q.QuoteType != "EQUITY" && q.QuoteType != "ETF" {
			continue
		}
		name := q.LongName
		if name == "" {
			name = q.ShortName
		}
		results = append(results, stock.Stock{
			Symbol:   strings.ToUpper(q.Symbol),
			Name:     name,
			Exchange: q.Exchange,
			Sector:   q.Sector,
			Industry: q.Industry,
		})
		if len(results) >= limit {
			break
		}
	}

	return results, nil
}

// StockInfo returns descriptive data for a symbol from the chart meta block
// combined with search results for the company name and sector.
func (c *Client) StockInfo(ctx context.Context, symbol string) (*stock.Stock, error) {
	res, err := c.chart(ctx, symbol, url.Values{
		"range":    []string{"1d"},
		"interval": []string{"1d"},
	})
	if err != nil {
		return nil, err
	}

	info := &stock.Stock{
		Symbol:   strings.ToUpper(res.Meta.Symbol),
		Exchange: res.Meta.ExchangeName,
		Currency: res.Meta.Currency,
	}
	if info.Symbol == "" {
		info.Symbol = strings.ToUpper(symbol)
	}

	// Search fills the descriptive fields the chart meta lacks.
	if matches, err := c.SearchStocks(ctx, info.Symbol, 5); err == nil {
		for _, m := range matches {
			if m.Symbol == info.Symbol {
				info.Name = m.Name
				info.Sector = m.Sector
				info.Industry = m.Industry
				break
			}
		}
	}

	return info, nil
}

// FinancialStatements returns reported statements from the quoteSummary
// history modules.
func (c *Client) FinancialStatements(ctx context.Context, symbol, statementType, period string) ([]stock.FinancialStatement, error) {
	module, err := statementModule(statementType, period)
	if err != nil {
		return nil, err
	}

	data, err := c.quoteSummary(ctx, symbol, module)
	if err != nil {
		return nil, err
	}

	var res struct {
		QuoteSummary struct {
			Result []map[string]json.RawMessage `json:"result"`
		} `json:"quoteSummary"`
	}
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, errors.Wrapf(errors.ErrProviderData, "yahoo statements decode: %v", err)
	}
	if len(res.QuoteSummary.Result) == 0 {
		return nil, errors.Wrapf(errors.ErrProviderData, "no %s data for %s", statementType, symbol)
	}

	raw, ok := res.QuoteSummary.Result[0][module]
	if !ok {
		return nil, errors.Wrapf(errors.ErrProviderData, "module %s missing for %s", module, symbol)
	}

	return parseStatements(raw, strings.ToUpper(symbol), statementType, period)
}

// Filings is not served by Yahoo; route filings to the EDGAR provider.
func (c *Client) Filings(ctx context.Context, symbol string, filingTypes []string, limit int) ([]stock.Filing, error) {
	return nil, errors.Wrap(errors.ErrNotImplemented, "yahoo does not serve SEC filings")
}

// FilingContent is not served by Yahoo; route filings to the EDGAR provider.
func (c *Client) FilingContent(ctx context.Context, accessionNumber string) (string, error) {
	return "", errors.Wrap(errors.ErrNotImplemented, "yahoo does not serve SEC filing content")
}

// DetailedFundamentals aggregates valuation metrics with recent statements.
func (c *Client) DetailedFundamentals(ctx context.Context, symbol string, periods int, periodType string) (*stock.Fundamentals, error) {
	if periods <= 0 {
		periods = 4
	}
	if periodType == "" {
		periodType = "quarterly"
	}

	data, err := c.quoteSummary(ctx, symbol, "summaryDetail,defaultKeyStatistics")
	if err != nil {
		return nil, err
	}

	var res struct {
		QuoteSummary struct {
			Result []struct {
				SummaryDetail struct {
					MarketCap        rawValue `json:"marketCap"`
					TrailingPE       rawValue `json:"trailingPE"`
					DividendYield    rawValue `json:"dividendYield"`
					Beta             rawValue `json:"beta"`
					FiftyTwoWeekHigh rawValue `json:"fiftyTwoWeekHigh"`
					FiftyTwoWeekLow  rawValue `json:"fiftyTwoWeekLow"`
				} `json:"summaryDetail"`
				KeyStatistics struct {
					TrailingEPS rawValue `json:"trailingEps"`
				} `json:"defaultKeyStatistics"`
			} `json:"result"`
		} `json:"quoteSummary"`
	}
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, errors.Wrapf(errors.ErrProviderData, "yahoo fundamentals decode: %v", err)
	}
	if len(res.QuoteSummary.Result) == 0 {
		return nil, errors.Wrapf(errors.ErrProviderData, "no fundamentals data for %s", symbol)
	}

	r := res.QuoteSummary.Result[0]
	fundamentals := &stock.Fundamentals{
		Symbol:           strings.ToUpper(symbol),
		MarketCap:        decimal.NewFromFloat(r.SummaryDetail.MarketCap.Raw),
		PERatio:          r.SummaryDetail.TrailingPE.optional(),
		EPS:              r.KeyStatistics.TrailingEPS.optional(),
		DividendYield:    r.SummaryDetail.DividendYield.optional(),
		Beta:             r.SummaryDetail.Beta.optional(),
		FiftyTwoWeekHigh: decimal.NewFromFloat(r.SummaryDetail.FiftyTwoWeekHigh.Raw),
		FiftyTwoWeekLow:  decimal.NewFromFloat(r.SummaryDetail.FiftyTwoWeekLow.Raw),
	}

	// Statements are best effort; metrics alone are still a usable answer.
	if statements, err := c.FinancialStatements(ctx, symbol, "income", periodType); err == nil {
		if len(statements) > periods {
			statements = statements[:periods]
		}
		fundamentals.Statements = statements
	}

	return fundamentals, nil
}

type chartResult struct {
	Meta struct {
		Currency             string  `json:"currency"`
		Symbol               string  `json:"symbol"`
		ExchangeName         string  `json:"exchangeName"`
		RegularMarketPrice   float64 `json:"regularMarketPrice"`
		ChartPreviousClose   float64 `json:"chartPreviousClose"`
		RegularMarketDayHigh float64 `json:"regularMarketDayHigh"`
		RegularMarketDayLow  float64 `json:"regularMarketDayLow"`
		RegularMarketVolume  int64   `json:"regularMarketVolume"`
		RegularMarketTime    int64   `json:"regularMarketTime"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*int64   `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

// bars converts the parallel chart arrays into a bar series, skipping slots
// where Yahoo reports null prices (halts, holidays).
func (r *chartResult) bars(symbol string) []stock.Bar {
	if len(r.Indicators.Quote) == 0 {
		return nil
	}

	q := r.Indicators.Quote[0]
	bars := make([]stock.Bar, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		if i >= len(q.Close) || q.Close[i] == nil {
			continue
		}
		bar := stock.Bar{
			Timestamp: time.Unix(ts, 0).UTC(),
			Close:     decimal.NewFromFloat(*q.Close[i]),
		}
		if i < len(q.Open) && q.Open[i] != nil {
			bar.Open = decimal.NewFromFloat(*q.Open[i])
		}
		if i < len(q.High) && q.High[i] != nil {
			bar.High = decimal.NewFromFloat(*q.High[i])
		}
		if i < len(q.Low) && q.Low[i] != nil {
			bar.Low = decimal.NewFromFloat(*q.Low[i])
		}
		if i < len(q.Volume) && q.Volume[i] != nil {
			bar.Volume = *q.Volume[i]
		}
		bars = append(bars, bar)
	}

	return bars
}

func (c *Client) chart(ctx context.Context, symbol string, params url.Values) (*chartResult, error) {
	data, err := c.get(ctx, "/v8/finance/chart/"+url.PathEscape(strings.ToUpper(symbol)), params)
	if err != nil {
		return nil, err
	}

	var res struct {
		Chart struct {
			Result []chartResult `json:"result"`
			Error  *apiError     `json:"error"`
		} `json:"chart"`
	}
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, errors.Wrapf(errors.ErrProviderData, "yahoo chart decode: %v", err)
	}
	if res.Chart.Error != nil {
		return nil, errors.Wrapf(errors.ErrProviderData, "yahoo chart: %s", res.Chart.Error.Description)
	}
	if len(res.Chart.Result) == 0 {
		return nil, errors.Wrapf(errors.ErrProviderData, "no chart data for %s", symbol)
	}

	return &res.Chart.Result[0], nil
}

func (c *Client) quoteSummary(ctx context.Context, symbol, modules string) ([]byte, error) {
	params := url.Values{"modules": []string{modules}}
	return c.get(ctx, "/v10/finance/quoteSummary/"+url.PathEscape(strings.ToUpper(symbol)), params)
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL = reqURL + "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.RecordProviderAPICall(providerName, path, time.Since(start), err)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrProviderUnavailable, "yahoo request failed: %v", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrProviderUnavailable, "yahoo response read failed: %v", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, errors.Wrapf(errors.ErrRateLimitExceeded, "yahoo http 429: %s", strings.TrimSpace(string(payload)))
	}
	if resp.StatusCode >= 400 {
		return nil, parseAPIError(resp.StatusCode, payload)
	}

	return payload, nil
}

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func parseAPIError(status int, payload []byte) error {
	var res struct {
		Chart struct {
			Error *apiError `json:"error"`
		} `json:"chart"`
		Finance struct {
			Error *apiError `json:"error"`
		} `json:"finance"`
	}
	if err := json.Unmarshal(payload, &res); err == nil {
		if res.Chart.Error != nil {
			return errors.Wrapf(errors.ErrProviderData, "yahoo %s: %s", res.Chart.Error.Code, res.Chart.Error.Description)
		}
		if res.Finance.Error != nil {
			return errors.Wrapf(errors.ErrProviderData, "yahoo %s: %s", res.Finance.Error.Code, res.Finance.Error.Description)
		}
	}
	return errors.Wrapf(errors.ErrProviderUnavailable, "yahoo http %d: %s", status, strings.TrimSpace(string(payload)))
}

// rawValue is Yahoo's {raw, fmt} number wrapper.
type rawValue struct {
	Raw float64 `json:"raw"`
	Fmt string  `json:"fmt"`
}

func (v rawValue) optional() *float64 {
	if v.Raw == 0 && v.Fmt == "" {
		return nil
	}
	raw := v.Raw
	return &raw
}

func statementModule(statementType, period string) (string, error) {
	if period == "" {
		period = "annual"
	}

	var base string
	switch statementType {
	case "income", "income_statement":
		base = "incomeStatementHistory"
	case "balance", "balance_sheet":
		base = "balanceSheetHistory"
	case "cash", "cash_flow":
		base = "cashflowStatementHistory"
	default:
		return "", errors.Wrapf(errors.ErrInvalidInput, "unknown statement type '%s'", statementType)
	}

	if period == "quarterly" {
		return base + "Quarterly", nil
	}
	return base, nil
}

// parseStatements flattens one history module into statement periods. Items
// keep Yahoo's camelCase line names with raw numeric values.
func parseStatements(raw json.RawMessage, symbol, statementType, period string) ([]stock.FinancialStatement, error) {
	var module map[string]json.RawMessage
	if err := json.Unmarshal(raw, &module); err != nil {
		return nil, errors.Wrapf(errors.ErrProviderData, "yahoo statement module decode: %v", err)
	}

	var periodsRaw []map[string]json.RawMessage
	for key, value := range module {
		if key == "maxAge" {
			continue
		}
		if err := json.Unmarshal(value, &periodsRaw); err == nil && periodsRaw != nil {
			break
		}
	}

	statements := make([]stock.FinancialStatement, 0, len(periodsRaw))
	for _, p := range periodsRaw {
		statement := stock.FinancialStatement{
			Symbol:        symbol,
			StatementType: statementType,
			Period:        period,
			Items:         make(map[string]float64),
		}

		for name, value := range p {
			if name == "maxAge" {
				continue
			}
			if name == "endDate" {
				var end rawValue
				if err := json.Unmarshal(value, &end); err == nil {
					statement.FiscalDate = end.Fmt
				}
				continue
			}
			var item rawValue
			if err := json.Unmarshal(value, &item); err == nil && (item.Raw != 0 || item.Fmt != "") {
				statement.Items[name] = item.Raw
			}
		}

		statements = append(statements, statement)
	}

	return statements, nil
}
