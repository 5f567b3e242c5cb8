package market

import (
	"context"
	"strings"
	"time"

	"minerva/internal/cache"
	"minerva/internal/domain/stock"
	"minerva/internal/providers"
	"minerva/internal/tools"
	"minerva/pkg/errors"
	"minerva/pkg/logger"
)

const dateLayout = "2006-01-02"

// Tools builds the market data tool set backed by one provider. Results are
// memoized through the cache manager; a nil manager disables memoization.
func Tools(provider providers.MarketDataProvider, manager *cache.Manager, log *logger.Logger) []tools.Tool {
	return []tools.Tool{
		newQuoteTool(provider, manager, log),
		newHistoricalDataTool(provider, manager, log),
		newSearchTool(provider, manager, log),
		newStockInfoTool(provider, manager, log),
	}
}

// newQuoteTool serves the current price snapshot for a symbol.
func newQuoteTool(provider providers.MarketDataProvider, manager *cache.Manager, log *logger.Logger) tools.Tool {
	schema := tools.Schema{
		Name:        "get_stock_quote",
		Description: "Get current stock quote including price, volume, and market data for a given stock symbol.",
		Parameters: []tools.Parameter{
			{Name: "symbol", Type: tools.TypeString, Description: "Stock ticker symbol (e.g., 'AAPL', 'MSFT')", Required: true},
		},
		Returns: "Stock quote with price, volume, and other market data",
	}

	return tools.NewCached(schema, manager, log, func(ctx context.Context, args map[string]interface{}) tools.Result {
		symbol := normalizeSymbol(args["symbol"])

		quote, err := provider.Quote(ctx, symbol)
		if err != nil {
			return tools.Fail(errors.Wrapf(err, "get_stock_quote: fetch quote for %s", symbol),
				map[string]interface{}{"symbol": symbol})
		}

		return tools.OK(quote.AsMap(), successMeta(provider, map[string]interface{}{
			"symbol": symbol,
		}))
	})
}

// newHistoricalDataTool serves OHLCV history for a symbol and date range.
func newHistoricalDataTool(provider providers.MarketDataProvider, manager *cache.Manager, log *logger.Logger) tools.Tool {
	schema := tools.Schema{
		Name:        "get_historical_stock_data",
		Description: "Get historical stock price data (OHLCV) for a given symbol and date range.",
		Parameters: []tools.Parameter{
			{Name: "symbol", Type: tools.TypeString, Description: "Stock ticker symbol (e.g., 'AAPL', 'MSFT')", Required: true},
			{Name: "start_date", Type: tools.TypeString, Description: "Start date in ISO format (YYYY-MM-DD)", Required: true},
			{Name: "end_date", Type: tools.TypeString, Description: "End date in ISO format (YYYY-MM-DD)", Required: true},
			{Name: "interval", Type: tools.TypeString, Description: "Data interval (1d, 1wk, 1mo, etc.)",
				Enum: []string{"1d", "1wk", "1mo", "1h", "5m", "15m", "30m", "60m"}, Default: "1d"},
		},
		Returns: "Array of historical stock data points",
	}

	return tools.NewCached(schema, manager, log, func(ctx context.Context, args map[string]interface{}) tools.Result {
		symbol := normalizeSymbol(args["symbol"])
		startRaw, _ := args["start_date"].(string)
		endRaw, _ := args["end_date"].(string)
		interval, _ := args["interval"].(string)

		start, err := time.Parse(dateLayout, startRaw)
		if err != nil {
			return tools.Fail(errors.Wrapf(errors.ErrToolValidation, "start_date must be YYYY-MM-DD, got '%s'", startRaw),
				map[string]interface{}{"symbol": symbol})
		}
		end, err := time.Parse(dateLayout, endRaw)
		if err != nil {
			return tools.Fail(errors.Wrapf(errors.ErrToolValidation, "end_date must be YYYY-MM-DD, got '%s'", endRaw),
				map[string]interface{}{"symbol": symbol})
		}
		if end.Before(start) {
			return tools.Fail(errors.Wrapf(errors.ErrToolValidation, "end_date %s is before start_date %s", endRaw, startRaw),
				map[string]interface{}{"symbol": symbol})
		}

		bars, err := provider.HistoricalData(ctx, symbol, start, end, interval)
		if err != nil {
			return tools.Fail(errors.Wrapf(err, "get_historical_stock_data: fetch history for %s", symbol),
				map[string]interface{}{"symbol": symbol})
		}

		return tools.OK(stock.BarsAsMaps(bars), successMeta(provider, map[string]interface{}{
			"symbol":      symbol,
			"start_date":  startRaw,
			"end_date":    endRaw,
			"interval":    interval,
			"data_points": len(bars),
		}))
	})
}

// newSearchTool finds symbols matching a free-text query.
func newSearchTool(provider providers.MarketDataProvider, manager *cache.Manager, log *logger.Logger) tools.Tool {
	schema := tools.Schema{
		Name:        "search_stocks",
		Description: "Search for stocks by symbol or company name.",
		Parameters: []tools.Parameter{
			{Name: "query", Type: tools.TypeString, Description: "Search query (symbol or company name)", Required: true},
			{Name: "limit", Type: tools.TypeInteger, Description: "Maximum number of results to return", Default: 10},
		},
		Returns: "List of matching stocks with symbol, name, exchange, etc.",
	}

	return tools.NewCached(schema, manager, log, func(ctx context.Context, args map[string]interface{}) tools.Result {
		query, _ := args["query"].(string)
		limit, _ := args["limit"].(int)

		results, err := provider.SearchStocks(ctx, query, limit)
		if err != nil {
			return tools.Fail(errors.Wrapf(err, "search_stocks: search for '%s'", query),
				map[string]interface{}{"query": query})
		}

		data := make([]map[string]interface{}, 0, len(results))
		for _, s := range results {
			data = append(data, s.AsMap())
		}

		return tools.OK(data, successMeta(provider, map[string]interface{}{
			"query":         query,
			"limit":         limit,
			"results_count": len(results),
		}))
	})
}

// newStockInfoTool serves descriptive company data for a symbol.
func newStockInfoTool(provider providers.MarketDataProvider, manager *cache.Manager, log *logger.Logger) tools.Tool {
	schema := tools.Schema{
		Name:        "get_stock_info",
		Description: "Get descriptive company information (name, exchange, sector, industry) for a stock symbol.",
		Parameters: []tools.Parameter{
			{Name: "symbol", Type: tools.TypeString, Description: "Stock ticker symbol (e.g., 'AAPL', 'MSFT')", Required: true},
		},
		Returns: "Company profile with name, exchange, sector and industry",
	}

	return tools.NewCached(schema, manager, log, func(ctx context.Context, args map[string]interface{}) tools.Result {
		symbol := normalizeSymbol(args["symbol"])

		info, err := provider.StockInfo(ctx, symbol)
		if err != nil {
			return tools.Fail(errors.Wrapf(err, "get_stock_info: fetch info for %s", symbol),
				map[string]interface{}{"symbol": symbol})
		}

		return tools.OK(info.AsMap(), successMeta(provider, map[string]interface{}{
			"symbol": symbol,
		}))
	})
}

// normalizeSymbol upcases a ticker argument the way providers expect it.
func normalizeSymbol(raw interface{}) string {
	s, _ := raw.(string)
	return strings.ToUpper(strings.TrimSpace(s))
}

// successMeta stamps the serving provider onto success metadata. Error
// results never carry the provider key.
func successMeta(provider providers.DataProvider, meta map[string]interface{}) map[string]interface{} {
	meta["provider"] = provider.Name()
	return meta
}
