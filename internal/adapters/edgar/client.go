package edgar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"minerva/internal/domain/stock"
	"minerva/internal/metrics"
	"minerva/internal/providers"
	"minerva/pkg/errors"
)

const (
	defaultBaseURL     = "https://data.sec.gov"
	defaultArchivesURL = "https://www.sec.gov"
	defaultHTTPTimeout = 20 * time.Second
	defaultRatePerSec  = 8
	defaultUserAgent   = "minerva/1.0 research@minerva.local"

	providerName = "edgar"
)

// Config configures the SEC EDGAR client.
type Config struct {
	// BaseURL hosts the structured submissions API (data.sec.gov).
	BaseURL string

	// ArchivesURL hosts filing documents and the ticker mapping (www.sec.gov).
	ArchivesURL string

	// UserAgent identifies the caller per the SEC fair-access policy.
	UserAgent string

	// RatePerSec caps request rate; the SEC allows at most 10 req/s.
	RatePerSec int

	HTTPClient *http.Client
}

// Client serves SEC filings from the EDGAR full-text archives. It implements
// the fundamentals port but only the filing methods; parsed statements come
// from the market data side.
type Client struct {
	baseURL     string
	archivesURL string
	userAgent   string
	httpClient  *http.Client
	limiter     *rate.Limiter

	mu       sync.RWMutex
	cikCache map[string]string
}

var _ providers.FundamentalDataProvider = (*Client)(nil)

// NewClient creates a new EDGAR adapter.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.ArchivesURL == "" {
		cfg.ArchivesURL = defaultArchivesURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = defaultRatePerSec
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}

	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		archivesURL: strings.TrimRight(cfg.ArchivesURL, "/"),
		userAgent:   cfg.UserAgent,
		httpClient:  httpClient,
		limiter:     rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec),
		cikCache:    make(map[string]string),
	}
}

func (c *Client) Name() string {
	return providerName
}

// Available probes the submissions endpoint with a well-known CIK.
func (c *Client) Available(ctx context.Context) bool {
	_, err := c.get(ctx, c.baseURL+"/submissions/CIK0000320193.json")
	return err == nil
}

// Filings returns recent filings for a symbol, newest first. An empty
// filingTypes slice returns all form types.
func (c *Client) Filings(ctx context.Context, symbol string, filingTypes []string, limit int) ([]stock.Filing, error) {
	if limit <= 0 {
		limit = 10
	}

	cik, err := c.resolveCIK(ctx, symbol)
	if err != nil {
		return nil, err
	}

	data, err := c.get(ctx, c.baseURL+"/submissions/CIK"+cik+".json")
	if err != nil {
		return nil, err
	}

	var res struct {
		Filings struct {
			Recent struct {
				AccessionNumber []string `json:"accessionNumber"`
				FilingDate      []string `json:"filingDate"`
				Form            []string `json:"form"`
				PrimaryDocument []string `json:"primaryDocument"`
				PrimaryDocDesc  []string `json:"primaryDocDescription"`
			} `json:"recent"`
		} `json:"filings"`
	}
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, errors.Wrapf(errors.ErrProviderData, "edgar submissions decode: %v", err)
	}

	wanted := make(map[string]bool, len(filingTypes))
	for _, ft := range filingTypes {
		wanted[strings.ToUpper(ft)] = true
	}

	recent := res.Filings.Recent
	filings := make([]stock.Filing, 0, limit)
	for i, form := range recent.Form {
		if len(wanted) > 0 && !wanted[strings.ToUpper(form)] {
			continue
		}

		filing := stock.Filing{
			Symbol:     strings.ToUpper(symbol),
			FilingType: form,
		}
		if i < len(recent.AccessionNumber) {
			filing.AccessionNumber = recent.AccessionNumber[i]
		}
		if i < len(recent.FilingDate) {
			if filed, err := time.Parse("2006-01-02", recent.FilingDate[i]); err == nil {
				filing.FiledAt = filed.UTC()
			}
			filing.Title = form + " filed on " + recent.FilingDate[i]
		}
		if i < len(recent.PrimaryDocDesc) && recent.PrimaryDocDesc[i] != "" {
			filing.Title = recent.PrimaryDocDesc[i]
		}
		if i < len(recent.PrimaryDocument) && filing.AccessionNumber != "" {
			filing.URL = c.archiveURL(cik, filing.AccessionNumber, recent.PrimaryDocument[i])
		}

		filings = append(filings, filing)
		if len(filings) >= limit {
			break
		}
	}

	return filings, nil
}

// FilingContent returns the primary document of one filing as plain text.
// The accession prefix carries the filer CIK, so no symbol lookup is needed.
func (c *Client) FilingContent(ctx context.Context, accessionNumber string) (string, error) {
	cik, err := cikFromAccession(accessionNumber)
	if err != nil {
		return "", err
	}

	dirURL := c.archivesURL + "/Archives/edgar/data/" + strings.TrimLeft(cik, "0") + "/" + strings.ReplaceAll(accessionNumber, "-", "")

	data, err := c.get(ctx, dirURL+"/index.json")
	if err != nil {
		return "", err
	}

	var index struct {
		Directory struct {
			Item []struct {
				Name string `json:"name"`
				Type string `json:"type"`
			} `json:"item"`
		} `json:"directory"`
	}
	if err := json.Unmarshal(data, &index); err != nil {
		return "", errors.Wrapf(errors.ErrProviderData, "edgar filing index decode: %v", err)
	}

	// Prefer the HTML rendition; fall back to the raw text submission.
	var docName string
	for _, item := range index.Directory.Item {
		if strings.HasSuffix(item.Name, ".htm") || strings.HasSuffix(item.Name, ".html") {
			docName = item.Name
			break
		}
	}
	if docName == "" {
		for _, item := range index.Directory.Item {
			if strings.HasSuffix(item.Name, ".txt") {
				docName = item.Name
				break
			}
		}
	}
	if docName == "" {
		return "", errors.Wrapf(errors.ErrProviderData, "no readable document in filing %s", accessionNumber)
	}

	body, err := c.get(ctx, dirURL+"/"+docName)
	if err != nil {
		return "", err
	}

	if strings.HasSuffix(docName, ".txt") {
		return extractTextFromSubmission(string(body)), nil
	}
	return extractTextFromHTML(string(body)), nil
}

// FinancialStatements is not served by EDGAR; parsed statements come from the
// fundamentals provider.
func (c *Client) FinancialStatements(ctx context.Context, symbol, statementType, period string) ([]stock.FinancialStatement, error) {
	return nil, errors.Wrap(errors.ErrNotImplemented, "edgar does not serve parsed financial statements")
}

// DetailedFundamentals is not served by EDGAR.
func (c *Client) DetailedFundamentals(ctx context.Context, symbol string, periods int, periodType string) (*stock.Fundamentals, error) {
	return nil, errors.Wrap(errors.ErrNotImplemented, "edgar does not serve detailed fundamentals")
}

// resolveCIK maps a ticker to its zero-padded ten-digit CIK. The full mapping
// file is loaded once and cached for the life of the client.
func (c *Client) resolveCIK(ctx context.Context, symbol string) (string, error) {
	symbol = strings.ToUpper(symbol)

	c.mu.RLock()
	cik, ok := c.cikCache[symbol]
	loaded := len(c.cikCache) > 0
	c.mu.RUnlock()
	if ok {
		return cik, nil
	}
	if loaded {
		return "", errors.Wrapf(errors.ErrNotFound, "no CIK mapping for symbol '%s'", symbol)
	}

	data, err := c.get(ctx, c.archivesURL+"/files/company_tickers.json")
	if err != nil {
		return "", err
	}

	var tickers map[string]struct {
		CIK    int64  `json:"cik_str"`
		Ticker string `json:"ticker"`
		Title  string `json:"title"`
	}
	if err := json.Unmarshal(data, &tickers); err != nil {
		return "", errors.Wrapf(errors.ErrProviderData, "edgar tickers decode: %v", err)
	}

	c.mu.Lock()
	for _, entry := range tickers {
		c.cikCache[strings.ToUpper(entry.Ticker)] = padCIK(entry.CIK)
	}
	cik, ok = c.cikCache[symbol]
	c.mu.Unlock()

	if !ok {
		return "", errors.Wrapf(errors.ErrNotFound, "no CIK mapping for symbol '%s'", symbol)
	}
	return cik, nil
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json, text/html, */*")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.RecordProviderAPICall(providerName, req.URL.Path, time.Since(start), err)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrProviderUnavailable, "edgar request failed: %v", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrProviderUnavailable, "edgar response read failed: %v", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusForbidden:
		return nil, errors.Wrapf(errors.ErrRateLimitExceeded, "edgar http %d: request throttled", resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return nil, errors.Wrapf(errors.ErrNotFound, "edgar http 404: %s", req.URL.Path)
	case resp.StatusCode >= 400:
		return nil, errors.Wrapf(errors.ErrProviderUnavailable, "edgar http %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	return payload, nil
}

func padCIK(cik int64) string {
	return fmt.Sprintf("%010d", cik)
}

// cikFromAccession extracts the filer CIK from an accession number such as
// "0000320193-23-000077".
func cikFromAccession(accessionNumber string) (string, error) {
	clean := strings.ReplaceAll(accessionNumber, "-", "")
	if len(clean) != 18 {
		return "", errors.Wrapf(errors.ErrInvalidInput, "malformed accession number '%s'", accessionNumber)
	}
	return clean[:10], nil
}

func (c *Client) archiveURL(cik, accessionNumber, document string) string {
	return c.archivesURL + "/Archives/edgar/data/" + strings.TrimLeft(cik, "0") + "/" +
		strings.ReplaceAll(accessionNumber, "-", "") + "/" + document
}

var (
	scriptRe     = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	tagRe        = regexp.MustCompile(`(?s)<[^>]+>`)
	spacesRe     = regexp.MustCompile(`[ \t]+`)
	blankLinesRe = regexp.MustCompile(`\n{3,}`)
)

// extractTextFromHTML strips markup so the filing can be fed to an LLM.
func extractTextFromHTML(html string) string {
	text := scriptRe.ReplaceAllString(html, " ")
	text = tagRe.ReplaceAllString(text, " ")
	text = strings.NewReplacer(
		"&nbsp;", " ",
		"&#160;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#8220;", `"`,
		"&#8221;", `"`,
		"&#8217;", "'",
	).Replace(text)
	text = spacesRe.ReplaceAllString(text, " ")
	text = blankLinesRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// extractTextFromSubmission trims the XBRL tail off a raw .txt submission;
// readable text comes first, machine sections after.
func extractTextFromSubmission(body string) string {
	lower := strings.ToLower(body)
	cut := len(body)
	for _, marker := range []string{"<xml", "<xbrl", "<?xml"} {
		if idx := strings.Index(lower, marker); idx >= 0 && idx < cut {
			cut = idx
		}
	}
	return extractTextFromHTML(body[:cut])
}
