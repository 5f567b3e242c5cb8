package providers

// Selector pins each data concern to one provider. Routing is fixed at
// construction: callers never pick providers per request.
type Selector struct {
	market       MarketDataProvider
	fundamentals FundamentalDataProvider
	filings      FundamentalDataProvider
}

// NewSelector builds the routing table. filingsOverride may be nil, in which
// case filings are served by the default fundamentals provider.
func NewSelector(market MarketDataProvider, fundamentals FundamentalDataProvider, filingsOverride FundamentalDataProvider) *Selector {
	return &Selector{
		market:       market,
		fundamentals: fundamentals,
		filings:      filingsOverride,
	}
}

// Market returns the provider for quotes, history and search
func (s *Selector) Market() MarketDataProvider {
	return s.market
}

// Fundamentals returns the provider for statements and valuation metrics
func (s *Selector) Fundamentals() FundamentalDataProvider {
	return s.fundamentals
}

// ForFilings returns the provider that serves SEC filings. The override wins
// when configured; otherwise the default fundamentals provider serves them.
func (s *Selector) ForFilings() FundamentalDataProvider {
	if s.filings != nil {
		return s.filings
	}
	return s.fundamentals
}
