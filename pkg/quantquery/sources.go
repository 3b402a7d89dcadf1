package quantquery

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	stooqDailyURL       = "https://stooq.com/q/d/l/"
	defaultFetchTimeout = 20 * time.Second
	maxQuoteBodySize    = 4 << 20
)

// reBareUSSymbol matches plain US tickers that need the stooq ".us" suffix.
var reBareUSSymbol = regexp.MustCompile(`^[A-Z]{1,5}$`)

// HTTPDoer is an interface for making HTTP requests. It enables dependency
// injection for testing without network calls.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// marketDataFetcher retrieves daily close bars from stooq's CSV endpoint.
type marketDataFetcher struct {
	logger  *slog.Logger
	client  HTTPDoer
	baseURL string
}

func newMarketDataFetcher(logger *slog.Logger, timeout time.Duration) *marketDataFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &marketDataFetcher{
		logger:  logger,
		client:  &http.Client{Timeout: timeout},
		baseURL: stooqDailyURL,
	}
}

// stooqSymbol maps an exchange symbol to stooq's naming. Bare US tickers get
// the ".us" market suffix; anything already carrying a suffix passes through.
func stooqSymbol(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if reBareUSSymbol.MatchString(symbol) {
		return strings.ToLower(symbol) + ".us"
	}
	return strings.ToLower(symbol)
}

// Fetch downloads daily bars for each symbol over the window. An empty
// result is a valid, non-error outcome meaning no data was available; one
// failing symbol never fails the batch.
func (f *marketDataFetcher) Fetch(ctx context.Context, symbols []string, start, end time.Time) ([]RawRecord, error) {
	var records []RawRecord
	var lastErr error
	for _, symbol := range symbols {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if symbol == "" {
			continue
		}
		bars, err := f.fetchSymbol(ctx, symbol, start, end)
		if err != nil {
			f.logger.Warn("market data fetch failed", "symbol", symbol, "err", err)
			lastErr = err
			continue
		}
		records = append(records, bars...)
	}
	if len(records) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return records, nil
}

func (f *marketDataFetcher) fetchSymbol(ctx context.Context, symbol string, start, end time.Time) ([]RawRecord, error) {
	query := url.Values{}
	query.Set("s", stooqSymbol(symbol))
	query.Set("d1", start.Format("20060102"))
	query.Set("d2", end.Format("20060102"))
	query.Set("i", "d")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", symbol, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", symbol, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxQuoteBodySize))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", symbol, err)
	}
	return parseDailyBarsCSV(symbol, body), nil
}

// parseDailyBarsCSV converts a Date,Open,High,Low,Close,Volume payload into
// raw records. Non-CSV bodies ("No data" replies) and malformed rows yield
// nothing; the normalizer downstream does the strict validation.
func parseDailyBarsCSV(symbol string, body []byte) []RawRecord {
	reader := csv.NewReader(strings.NewReader(string(body)))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil || len(rows) < 2 {
		return nil
	}
	header := rows[0]
	dateIdx, closeIdx := -1, -1
	for i, label := range header {
		switch strings.ToLower(strings.TrimSpace(label)) {
		case "date":
			dateIdx = i
		case "close":
			closeIdx = i
		}
	}
	if dateIdx < 0 || closeIdx < 0 {
		return nil
	}

	records := make([]RawRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) <= dateIdx || len(row) <= closeIdx {
			continue
		}
		date := strings.TrimSpace(row[dateIdx])
		closePrice := strings.TrimSpace(row[closeIdx])
		if date == "" || closePrice == "" {
			continue
		}
		records = append(records, RawRecord{"Date": date, "Ticker": symbol, "Close": closePrice})
	}
	return records
}
