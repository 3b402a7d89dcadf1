package quantquery

import (
	"sort"
	"time"
)

// RawRecord is one unvalidated price observation as produced by upload
// parsing or market data retrieval. Keys are matched case-insensitively.
type RawRecord map[string]any

// PriceRecord is a normalized (date, symbol, price) observation.
type PriceRecord struct {
	Date   time.Time
	Ticker string
	Close  float64
}

// QueryPlan is the structured interpretation of a free-text query.
// A nil date or empty slice means "unspecified", never an error.
type QueryPlan struct {
	Tools     []string   `json:"tools"`
	Tickers   []string   `json:"tickers"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

// PriceMatrix is a date-aligned, gap-free price grid. Every series has
// exactly one value per date. Built once per request, read-only afterwards.
type PriceMatrix struct {
	Dates  []time.Time
	Series map[string][]float64
}

// Tickers returns the matrix symbols in ascending order.
func (m PriceMatrix) Tickers() []string {
	tickers := make([]string, 0, len(m.Series))
	for ticker := range m.Series {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)
	return tickers
}

// IsEmpty reports whether the matrix holds no usable data.
func (m PriceMatrix) IsEmpty() bool {
	return len(m.Dates) == 0 || len(m.Series) == 0
}

// ToolResult is the output of a single analytics tool invocation.
type ToolResult struct {
	Name    string   `json:"name"`
	Summary string   `json:"summary"`
	Images  []string `json:"images"`
}

// AgentResult aggregates tool outputs and the composed narrative.
type AgentResult struct {
	Summary       string              `json:"summary"`
	ToolSummaries map[string]string   `json:"tool_summaries"`
	ToolImages    map[string][]string `json:"tool_images"`
}

// AnalysisRecord is one persisted analysis run.
type AnalysisRecord struct {
	ID            int64             `json:"id"`
	Query         string            `json:"query"`
	Summary       string            `json:"summary"`
	ToolSummaries map[string]string `json:"tool_summaries"`
	CreatedAt     string            `json:"created_at"`
}

// Date constructs a UTC calendar date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// dateOnly truncates a timestamp to its UTC calendar date.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
