package edgar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minerva/pkg/errors"
)

const tickersPayload = `{
  "0": {"cik_str": 320193, "ticker": "AAPL", "title": "Apple Inc."},
  "1": {"cik_str": 789019, "ticker": "MSFT", "title": "MICROSOFT CORP"}
}`

const submissionsPayload = `{
  "cik": "320193",
  "name": "Apple Inc.",
  "filings": {
    "recent": {
      "accessionNumber": ["0000320193-23-000106", "0000320193-23-000077", "0000320193-23-000064"],
      "filingDate": ["2023-11-03", "2023-08-04", "2023-06-21"],
      "form": ["10-K", "10-Q", "8-K"],
      "primaryDocument": ["aapl-20230930.htm", "aapl-20230701.htm", "aapl-20230621.htm"],
      "primaryDocDescription": ["10-K", "10-Q", ""]
    }
  }
}`

const indexPayload = `{
  "directory": {
    "item": [
      {"name": "aapl-20230701.htm", "type": "text.gif"},
      {"name": "exhibit-311.htm", "type": "text.gif"},
      {"name": "0000320193-23-000077.txt", "type": "text.gif"}
    ]
  }
}`

const filingHTML = `<html><head><title>10-Q</title><style>p{margin:0}</style></head>
<body><h1>Apple Inc.</h1><p>Quarterly report for the period ended July&nbsp;1, 2023.</p>
<script>window.x=1;</script><p>Net sales were $81,797 million.</p></body></html>`

func newTestClient(t *testing.T) (*Client, *int) {
	t.Helper()

	requests := new(int)
	mux := http.NewServeMux()
	mux.HandleFunc("/files/company_tickers.json", func(w http.ResponseWriter, r *http.Request) {
		*requests++
		w.Write([]byte(tickersPayload))
	})
	mux.HandleFunc("/submissions/CIK0000320193.json", func(w http.ResponseWriter, r *http.Request) {
		require.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Write([]byte(submissionsPayload))
	})
	mux.HandleFunc("/Archives/edgar/data/320193/000032019323000077/index.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(indexPayload))
	})
	mux.HandleFunc("/Archives/edgar/data/320193/000032019323000077/aapl-20230701.htm", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(filingHTML))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := NewClient(Config{
		BaseURL:     server.URL,
		ArchivesURL: server.URL,
		UserAgent:   "minerva-test/1.0 dev@example.com",
		RatePerSec:  1000,
	})
	return client, requests
}

func TestFilings(t *testing.T) {
	client, _ := newTestClient(t)

	t.Run("filters by form type", func(t *testing.T) {
		filings, err := client.Filings(context.Background(), "aapl", []string{"10-q"}, 10)
		require.NoError(t, err)

		require.Len(t, filings, 1)
		assert.Equal(t, "AAPL", filings[0].Symbol)
		assert.Equal(t, "10-Q", filings[0].FilingType)
		assert.Equal(t, "0000320193-23-000077", filings[0].AccessionNumber)
		assert.Equal(t, "2023-08-04", filings[0].FiledAt.Format("2006-01-02"))
		assert.Contains(t, filings[0].URL, "/Archives/edgar/data/320193/000032019323000077/aapl-20230701.htm")
	})

	t.Run("empty types returns all forms", func(t *testing.T) {
		filings, err := client.Filings(context.Background(), "AAPL", nil, 10)
		require.NoError(t, err)
		require.Len(t, filings, 3)
		assert.Equal(t, "10-K", filings[0].FilingType)
	})

	t.Run("limit truncates", func(t *testing.T) {
		filings, err := client.Filings(context.Background(), "AAPL", nil, 2)
		require.NoError(t, err)
		assert.Len(t, filings, 2)
	})

	t.Run("unknown symbol", func(t *testing.T) {
		_, err := client.Filings(context.Background(), "ZZZZ", []string{"10-K"}, 5)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrNotFound))
	})
}

func TestCIKCache(t *testing.T) {
	client, requests := newTestClient(t)

	_, err := client.Filings(context.Background(), "AAPL", nil, 1)
	require.NoError(t, err)
	_, err = client.Filings(context.Background(), "AAPL", nil, 1)
	require.NoError(t, err)

	// The ticker mapping is fetched once and then served from memory.
	assert.Equal(t, 1, *requests)
}

func TestFilingContent(t *testing.T) {
	client, _ := newTestClient(t)

	content, err := client.FilingContent(context.Background(), "0000320193-23-000077")
	require.NoError(t, err)

	assert.Contains(t, content, "Apple Inc.")
	assert.Contains(t, content, "Net sales were $81,797 million.")
	assert.Contains(t, content, "period ended July 1, 2023")
	assert.NotContains(t, content, "<p>")
	assert.NotContains(t, content, "window.x")
	assert.NotContains(t, content, "margin:0")
}

func TestFilingContentMalformedAccession(t *testing.T) {
	client, _ := newTestClient(t)

	_, err := client.FilingContent(context.Background(), "not-an-accession")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestStatementsNotServed(t *testing.T) {
	client, _ := newTestClient(t)

	_, err := client.FinancialStatements(context.Background(), "AAPL", "income", "annual")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotImplemented))

	_, err = client.DetailedFundamentals(context.Background(), "AAPL", 4, "quarterly")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotImplemented))
}
