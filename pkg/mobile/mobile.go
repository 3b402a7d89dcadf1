package mobile

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"quantquery/pkg/quantquery"
)

// Core wraps the analysis core for gomobile bindings. The surface sticks to
// strings, ints, and errors, which is what gomobile can bridge.
type Core struct {
	core *quantquery.Core
}

// Open initializes the core with a database path. Charts are returned as
// inline data URLs since mobile hosts have no static file server.
func Open(dbPath string) (*Core, error) {
	core, err := quantquery.Open(dbPath)
	if err != nil {
		return nil, err
	}
	return &Core{core: core}, nil
}

// Close releases resources.
func (c *Core) Close() error {
	if c == nil || c.core == nil {
		return nil
	}
	return c.core.Close()
}

// analysisRequestPayload mirrors the JSON accepted by RunAnalysisJSON.
type analysisRequestPayload struct {
	Query     string   `json:"query"`
	Tickers   []string `json:"tickers"`
	StartDate string   `json:"start_date"`
	EndDate   string   `json:"end_date"`
}

// RunAnalysisJSON runs one analysis described by a JSON request and returns
// the result as JSON.
func (c *Core) RunAnalysisJSON(requestJSON string) (string, error) {
	var payload analysisRequestPayload
	if requestJSON != "" {
		if err := json.Unmarshal([]byte(requestJSON), &payload); err != nil {
			return "", fmt.Errorf("parse request: %w", err)
		}
	}

	req := quantquery.AnalysisRequest{
		Query:   payload.Query,
		Tickers: payload.Tickers,
	}
	var err error
	if req.StartDate, err = parseOptionalDate(payload.StartDate); err != nil {
		return "", err
	}
	if req.EndDate, err = parseOptionalDate(payload.EndDate); err != nil {
		return "", err
	}

	result, err := c.core.RunAnalysis(context.Background(), req)
	if err != nil {
		return "", err
	}
	return marshalJSON(result)
}

// GetAnalysisHistoryJSON returns recent analysis runs as JSON, newest first.
// A non-positive limit uses the default.
func (c *Core) GetAnalysisHistoryJSON(limit int) (string, error) {
	records, err := c.core.ListAnalysisHistory(limit)
	if err != nil {
		return "", err
	}
	return marshalJSON(records)
}

func parseOptionalDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", value)
	}
	parsed = parsed.UTC()
	return &parsed, nil
}

func marshalJSON(data any) (string, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
