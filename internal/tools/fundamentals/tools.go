package fundamentals

import (
	"context"
	"strings"
	"unicode/utf8"

	"minerva/internal/cache"
	"minerva/internal/domain/stock"
	"minerva/internal/providers"
	"minerva/internal/tools"
	"minerva/pkg/errors"
	"minerva/pkg/logger"
)

// maxFilingContentChars caps the text returned by get_sec_filing_content so a
// full 10-K cannot swallow the model context. The data map reports the real
// length alongside the truncation flag.
const maxFilingContentChars = 50000

// Tools builds the fundamental data tool set. Statements and valuation
// metrics come from the selector's default fundamentals provider; the two
// SEC filing tools use the filings route, which is fixed at construction.
func Tools(selector *providers.Selector, manager *cache.Manager, log *logger.Logger) []tools.Tool {
	return []tools.Tool{
		newFundamentalsTool(selector.Fundamentals(), manager, log),
		newStatementsTool(selector.Fundamentals(), manager, log),
		newFilingsTool(selector.ForFilings(), manager, log),
		newFilingContentTool(selector.ForFilings(), manager, log),
	}
}

// newFundamentalsTool serves aggregated valuation metrics with statements.
func newFundamentalsTool(provider providers.FundamentalDataProvider, manager *cache.Manager, log *logger.Logger) tools.Tool {
	schema := tools.Schema{
		Name:        "get_stock_fundamentals",
		Description: "Get comprehensive fundamental data for a stock including financial statements, ratios, and metrics.",
		Parameters: []tools.Parameter{
			{Name: "symbol", Type: tools.TypeString, Description: "Stock ticker symbol (e.g., 'AAPL', 'MSFT')", Required: true},
			{Name: "periods", Type: tools.TypeInteger, Description: "Number of periods to retrieve (e.g., 5 for 5 years)", Default: 5},
			{Name: "period_type", Type: tools.TypeString, Description: "Period type",
				Enum: []string{"annual", "quarterly"}, Default: "annual"},
		},
		Returns: "Comprehensive fundamental data including financial statements and ratios",
	}

	return tools.NewCached(schema, manager, log, func(ctx context.Context, args map[string]interface{}) tools.Result {
		symbol := normalizeSymbol(args["symbol"])
		periods, _ := args["periods"].(int)
		periodType, _ := args["period_type"].(string)

		fundamentals, err := provider.DetailedFundamentals(ctx, symbol, periods, periodType)
		if err != nil {
			return tools.Fail(errors.Wrapf(err, "get_stock_fundamentals: fetch fundamentals for %s", symbol),
				map[string]interface{}{"symbol": symbol})
		}

		return tools.OK(fundamentals.AsMap(), successMeta(provider, map[string]interface{}{
			"symbol":      symbol,
			"periods":     periods,
			"period_type": periodType,
		}))
	})
}

// newStatementsTool serves reported statements of one type.
func newStatementsTool(provider providers.FundamentalDataProvider, manager *cache.Manager, log *logger.Logger) tools.Tool {
	schema := tools.Schema{
		Name:        "get_financial_statements",
		Description: "Get financial statements (income statement, balance sheet, or cash flow) for a stock.",
		Parameters: []tools.Parameter{
			{Name: "symbol", Type: tools.TypeString, Description: "Stock ticker symbol (e.g., 'AAPL', 'MSFT')", Required: true},
			{Name: "statement_type", Type: tools.TypeString, Description: "Type of financial statement", Required: true,
				Enum: []string{"income_statement", "balance_sheet", "cash_flow"}},
			{Name: "period", Type: tools.TypeString, Description: "Period type",
				Enum: []string{"annual", "quarterly"}, Default: "annual"},
		},
		Returns: "Financial statement data",
	}

	return tools.NewCached(schema, manager, log, func(ctx context.Context, args map[string]interface{}) tools.Result {
		symbol := normalizeSymbol(args["symbol"])
		statementType, _ := args["statement_type"].(string)
		period, _ := args["period"].(string)

		statements, err := provider.FinancialStatements(ctx, symbol, statementType, period)
		if err != nil {
			return tools.Fail(errors.Wrapf(err, "get_financial_statements: fetch %s for %s", statementType, symbol),
				map[string]interface{}{"symbol": symbol})
		}

		data := make([]map[string]interface{}, 0, len(statements))
		for _, s := range statements {
			data = append(data, s.AsMap())
		}

		return tools.OK(data, successMeta(provider, map[string]interface{}{
			"symbol":         symbol,
			"statement_type": statementType,
			"period":         period,
		}))
	})
}

// newFilingsTool serves SEC filing references from the filings route.
func newFilingsTool(provider providers.FundamentalDataProvider, manager *cache.Manager, log *logger.Logger) tools.Tool {
	schema := tools.Schema{
		Name: "get_sec_filings",
		Description: "Get SEC filings (10-K, 10-Q, 8-K, etc.) for a stock from EDGAR database. " +
			"Returns filing metadata including filing dates, report dates, accession numbers, and URLs. " +
			"10-K filings are annual reports, 10-Q filings are quarterly reports.",
		Parameters: []tools.Parameter{
			{Name: "symbol", Type: tools.TypeString, Description: "Stock ticker symbol (e.g., 'AAPL', 'MSFT')", Required: true},
			{Name: "filing_types", Type: tools.TypeArray, Description: "List of filing types (e.g., ['10-K', '10-Q', '8-K'])",
				Default: []interface{}{"10-K", "10-Q"}},
			{Name: "limit", Type: tools.TypeInteger, Description: "Maximum number of filings to return", Default: 10},
		},
		Returns: "List of SEC filings with metadata",
	}

	return tools.NewCached(schema, manager, log, func(ctx context.Context, args map[string]interface{}) tools.Result {
		symbol := normalizeSymbol(args["symbol"])
		filingTypes := toStringSlice(args["filing_types"])
		limit, _ := args["limit"].(int)

		filings, err := provider.Filings(ctx, symbol, filingTypes, limit)
		if err != nil {
			return tools.Fail(errors.Wrapf(err, "get_sec_filings: fetch filings for %s", symbol),
				map[string]interface{}{"symbol": symbol})
		}

		meta := successMeta(provider, map[string]interface{}{
			"symbol":        symbol,
			"filing_types":  filingTypes,
			"limit":         limit,
			"filings_count": len(filings),
		})
		if len(filings) == 0 {
			meta["suggestion"] = "No filings found. Consider trying other filing types " +
				"(e.g., 10-Q, 8-K, S-1) or verifying the symbol is correct."
			meta["allow_retry"] = true
		}

		return tools.OK(stock.FilingsAsMaps(filings), meta)
	})
}

// newFilingContentTool downloads one filing's text from the filings route.
// The accession number alone identifies the filing; its prefix carries the
// filer CIK.
func newFilingContentTool(provider providers.FundamentalDataProvider, manager *cache.Manager, log *logger.Logger) tools.Tool {
	schema := tools.Schema{
		Name: "get_sec_filing_content",
		Description: "Download the full text of a specific SEC filing (10-K, 10-Q, etc.) by accession number. " +
			"Use this tool after getting filing metadata from get_sec_filings to read the actual report content.",
		Parameters: []tools.Parameter{
			{Name: "accession_number", Type: tools.TypeString, Description: "SEC accession number (e.g., '0000320193-23-000077')", Required: true},
		},
		Returns: "Filing text content with length metadata",
	}

	return tools.NewCached(schema, manager, log, func(ctx context.Context, args map[string]interface{}) tools.Result {
		accession, _ := args["accession_number"].(string)
		accession = strings.TrimSpace(accession)

		content, err := provider.FilingContent(ctx, accession)
		if err != nil {
			return tools.Fail(errors.Wrapf(err, "get_sec_filing_content: download filing %s", accession),
				map[string]interface{}{"accession_number": accession})
		}

		data := map[string]interface{}{
			"accession_number": accession,
			"content":          content,
			"content_length":   len(content),
		}
		if len(content) > maxFilingContentChars {
			end := maxFilingContentChars
			for end > 0 && !utf8.RuneStart(content[end]) {
				end--
			}
			data["content"] = content[:end]
			data["content_truncated"] = true
		}

		return tools.OK(data, successMeta(provider, map[string]interface{}{
			"accession_number": accession,
		}))
	})
}

func normalizeSymbol(raw interface{}) string {
	s, _ := raw.(string)
	return strings.ToUpper(strings.TrimSpace(s))
}

// toStringSlice flattens a validated array argument into strings.
func toStringSlice(raw interface{}) []string {
	items, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// successMeta stamps the serving provider onto success metadata. Error
// results never carry the provider key.
func successMeta(provider providers.DataProvider, meta map[string]interface{}) map[string]interface{} {
	meta["provider"] = provider.Name()
	return meta
}
