package providers

import (
	"context"
	"time"

	"minerva/internal/domain/stock"
)

// DataProvider is the base contract every external data source satisfies
type DataProvider interface {
	// Name identifies the provider for logs, metadata and routing
	Name() string

	// Available reports whether the provider can currently serve requests
	Available(ctx context.Context) bool
}

// MarketDataProvider serves prices, history and symbol search
type MarketDataProvider interface {
	DataProvider

	// StockInfo returns descriptive data for a symbol
	StockInfo(ctx context.Context, symbol string) (*stock.Stock, error)

	// Quote returns the current price snapshot for a symbol
	Quote(ctx context.Context, symbol string) (*stock.Quote, error)

	// HistoricalData returns OHLCV bars between start and end at the given
	// interval (1d, 1wk, 1mo)
	HistoricalData(ctx context.Context, symbol string, start, end time.Time, interval string) ([]stock.Bar, error)

	// Intraday returns fine-grained bars for the most recent trading days
	Intraday(ctx context.Context, symbol, interval string) ([]stock.Bar, error)

	// SearchStocks finds symbols matching a free-text query
	SearchStocks(ctx context.Context, query string, limit int) ([]stock.Stock, error)
}

// FundamentalDataProvider serves statements, filings and valuation metrics
type FundamentalDataProvider interface {
	DataProvider

	// FinancialStatements returns reported statements of one type
	FinancialStatements(ctx context.Context, symbol, statementType, period string) ([]stock.FinancialStatement, error)

	// Filings returns recent regulatory filings, optionally restricted to types
	Filings(ctx context.Context, symbol string, filingTypes []string, limit int) ([]stock.Filing, error)

	// FilingContent returns the text of one filing by accession number
	FilingContent(ctx context.Context, accessionNumber string) (string, error)

	// DetailedFundamentals aggregates valuation metrics with recent statements
	DetailedFundamentals(ctx context.Context, symbol string, periods int, periodType string) (*stock.Fundamentals, error)
}
