package stock

import (
	"time"

	"github.com/shopspring/decimal"
)

// Stock describes a listed company as returned by market data providers
type Stock struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
	Sector   string `json:"sector,omitempty"`
	Industry string `json:"industry,omitempty"`
	Currency string `json:"currency,omitempty"`
}

// AsMap returns the stock as a tool-result map
func (s Stock) AsMap() map[string]interface{} {
	return map[string]interface{}{
		"symbol":   s.Symbol,
		"name":     s.Name,
		"exchange": s.Exchange,
		"sector":   s.Sector,
		"industry": s.Industry,
		"currency": s.Currency,
	}
}

// Quote is a point-in-time price snapshot
type Quote struct {
	Symbol        string          `json:"symbol"`
	Price         decimal.Decimal `json:"price"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"change_percent"`
	Volume        int64           `json:"volume"`
	MarketCap     decimal.Decimal `json:"market_cap"`
	High          decimal.Decimal `json:"high"`
	Low           decimal.Decimal `json:"low"`
	Open          decimal.Decimal `json:"open"`
	PreviousClose decimal.Decimal `json:"previous_close"`
	Timestamp     time.Time       `json:"timestamp"`
}

// AsMap returns the quote as a tool-result map
func (q Quote) AsMap() map[string]interface{} {
	return map[string]interface{}{
		"symbol":         q.Symbol,
		"price":          q.Price.InexactFloat64(),
		"change":         q.Change.InexactFloat64(),
		"change_percent": q.ChangePercent.InexactFloat64(),
		"volume":         q.Volume,
		"market_cap":     q.MarketCap.InexactFloat64(),
		"high":           q.High.InexactFloat64(),
		"low":            q.Low.InexactFloat64(),
		"open":           q.Open.InexactFloat64(),
		"previous_close": q.PreviousClose.InexactFloat64(),
		"timestamp":      q.Timestamp.UTC().Format(time.RFC3339),
	}
}

// Bar is one OHLCV candle of price history
type Bar struct {
	Timestamp time.Time       `json:"timestamp"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    int64           `json:"volume"`
}

// AsMap returns the bar as a tool-result map
func (b Bar) AsMap() map[string]interface{} {
	return map[string]interface{}{
		"timestamp": b.Timestamp.UTC().Format(time.RFC3339),
		"open":      b.Open.InexactFloat64(),
		"high":      b.High.InexactFloat64(),
		"low":       b.Low.InexactFloat64(),
		"close":     b.Close.InexactFloat64(),
		"volume":    b.Volume,
	}
}

// Closes extracts the close series from bars, oldest first
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close.InexactFloat64()
	}
	return out
}

// BarsAsMaps converts a bar series into tool-result maps
func BarsAsMaps(bars []Bar) []map[string]interface{} {
	out := make([]map[string]interface{}, len(bars))
	for i, b := range bars {
		out[i] = b.AsMap()
	}
	return out
}

// FinancialStatement is one reported statement period
type FinancialStatement struct {
	Symbol        string             `json:"symbol"`
	StatementType string             `json:"statement_type"` // income|balance|cash
	Period        string             `json:"period"`         // annual|quarterly
	FiscalDate    string             `json:"fiscal_date"`
	Items         map[string]float64 `json:"items"`
}

// AsMap returns the statement as a tool-result map
func (f FinancialStatement) AsMap() map[string]interface{} {
	items := make(map[string]interface{}, len(f.Items))
	for k, v := range f.Items {
		items[k] = v
	}
	return map[string]interface{}{
		"symbol":         f.Symbol,
		"statement_type": f.StatementType,
		"period":         f.Period,
		"fiscal_date":    f.FiscalDate,
		"items":          items,
	}
}

// Fundamentals aggregates valuation metrics with recent statements
type Fundamentals struct {
	Symbol           string               `json:"symbol"`
	MarketCap        decimal.Decimal      `json:"market_cap"`
	PERatio          *float64             `json:"pe_ratio,omitempty"`
	EPS              *float64             `json:"eps,omitempty"`
	DividendYield    *float64             `json:"dividend_yield,omitempty"`
	Beta             *float64             `json:"beta,omitempty"`
	FiftyTwoWeekHigh decimal.Decimal      `json:"fifty_two_week_high"`
	FiftyTwoWeekLow  decimal.Decimal      `json:"fifty_two_week_low"`
	Statements       []FinancialStatement `json:"statements,omitempty"`
}

// AsMap returns the fundamentals as a tool-result map
func (f Fundamentals) AsMap() map[string]interface{} {
	statements := make([]interface{}, len(f.Statements))
	for i, s := range f.Statements {
		statements[i] = s.AsMap()
	}
	m := map[string]interface{}{
		"symbol":              f.Symbol,
		"market_cap":          f.MarketCap.InexactFloat64(),
		"fifty_two_week_high": f.FiftyTwoWeekHigh.InexactFloat64(),
		"fifty_two_week_low":  f.FiftyTwoWeekLow.InexactFloat64(),
		"statements":          statements,
	}
	if f.PERatio != nil {
		m["pe_ratio"] = *f.PERatio
	}
	if f.EPS != nil {
		m["eps"] = *f.EPS
	}
	if f.DividendYield != nil {
		m["dividend_yield"] = *f.DividendYield
	}
	if f.Beta != nil {
		m["beta"] = *f.Beta
	}
	return m
}

// Filing is one regulatory filing reference
type Filing struct {
	Symbol          string    `json:"symbol"`
	FilingType      string    `json:"filing_type"` // 10-K, 10-Q, 8-K, ...
	FiledAt         time.Time `json:"filed_at"`
	Title           string    `json:"title"`
	URL             string    `json:"url"`
	AccessionNumber string    `json:"accession_number"`
}

// AsMap returns the filing as a tool-result map
func (f Filing) AsMap() map[string]interface{} {
	return map[string]interface{}{
		"symbol":           f.Symbol,
		"filing_type":      f.FilingType,
		"filed_at":         f.FiledAt.UTC().Format(time.RFC3339),
		"title":            f.Title,
		"url":              f.URL,
		"accession_number": f.AccessionNumber,
	}
}

// FilingsAsMaps converts filings into tool-result maps
func FilingsAsMaps(filings []Filing) []map[string]interface{} {
	out := make([]map[string]interface{}, len(filings))
	for i, f := range filings {
		out[i] = f.AsMap()
	}
	return out
}
