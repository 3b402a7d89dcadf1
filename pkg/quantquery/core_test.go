package quantquery

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func openTestCore(t *testing.T, opts Options) *Core {
	t.Helper()
	if opts.DBPath == "" {
		opts.DBPath = filepath.Join(t.TempDir(), "test.db")
	}
	if opts.Logger == nil {
		opts.Logger = discardLogger()
	}
	core, err := OpenWithOptions(opts)
	if err != nil {
		t.Fatalf("open core: %v", err)
	}
	t.Cleanup(func() { core.Close() })
	return core
}

func TestOpenRequiresDBPath(t *testing.T) {
	if _, err := OpenWithOptions(Options{}); err == nil {
		t.Fatalf("expected error for missing db path")
	}
}

func TestOpenCreatesParentDirectories(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "deep", "test.db")
	core, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer core.Close()
}

func TestRunAnalysisNoUsableInput(t *testing.T) {
	core := openTestCore(t, Options{})

	_, err := core.RunAnalysis(context.Background(), AnalysisRequest{Query: "tell me something"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !IsErrorCode(err, ErrCodeNoInput) {
		t.Fatalf("expected NO_INPUT, got %v", err)
	}
}

func TestRunAnalysisUploadPipeline(t *testing.T) {
	core := openTestCore(t, Options{
		Now: func() time.Time { return Date(2024, time.July, 1) },
	})

	var upload strings.Builder
	upload.WriteString("Date,Close\n")
	for i := 0; i < 25; i++ {
		fmt.Fprintf(&upload, "2024-01-%02d,%d\n", i+1, 100+i)
	}

	result, err := core.RunAnalysis(context.Background(), AnalysisRequest{
		Query:          "sma and rsi for the upload",
		Upload:         []byte(upload.String()),
		UploadFilename: "AAPL.csv",
	})
	if err != nil {
		t.Fatalf("run analysis: %v", err)
	}

	if _, ok := result.ToolSummaries["sma"]; !ok {
		t.Fatalf("expected sma summary, got %v", result.ToolSummaries)
	}
	if _, ok := result.ToolSummaries["rsi"]; !ok {
		t.Fatalf("expected rsi summary, got %v", result.ToolSummaries)
	}
	if _, ok := result.ToolSummaries["zscore"]; ok {
		t.Fatalf("zscore was not requested, got %v", result.ToolSummaries)
	}
	// No assistant configured, so the fallback composition joins tool lines.
	if !strings.Contains(result.Summary, "SMA:") || !strings.Contains(result.Summary, "RSI:") {
		t.Fatalf("unexpected summary: %q", result.Summary)
	}
	if !strings.Contains(result.Summary, " \n") {
		t.Fatalf("expected fallback line join, got %q", result.Summary)
	}
}

func TestRunAnalysisUploadWinsOverTickers(t *testing.T) {
	fetchCalled := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetchCalled = true
		fmt.Fprint(w, "Date,Close\n2024-01-02,1\n")
	}))
	defer server.Close()

	core := openTestCore(t, Options{})
	core.fetcher.baseURL = server.URL

	_, err := core.RunAnalysis(context.Background(), AnalysisRequest{
		Query:          "sma",
		Tickers:        []string{"MSFT"},
		Upload:         []byte("Date,Close\n2024-01-02,100\n2024-01-03,101\n"),
		UploadFilename: "AAPL.csv",
	})
	if err != nil {
		t.Fatalf("run analysis: %v", err)
	}
	if fetchCalled {
		t.Fatalf("uploaded data must suppress market data retrieval")
	}
}

func TestRunAnalysisFetchesMarketData(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, "Date,Close\n2024-06-03,100\n2024-06-04,101\n2024-06-05,99\n")
	}))
	defer server.Close()

	core := openTestCore(t, Options{
		Now: func() time.Time { return Date(2024, time.July, 1) },
	})
	core.fetcher.baseURL = server.URL

	result, err := core.RunAnalysis(context.Background(), AnalysisRequest{
		Query: "rsi for AAPL over the past two weeks",
	})
	if err != nil {
		t.Fatalf("run analysis: %v", err)
	}
	if _, ok := result.ToolSummaries["rsi"]; !ok {
		t.Fatalf("expected rsi summary, got %v", result.ToolSummaries)
	}
	// Window comes from the heuristic plan.
	if !strings.Contains(gotQuery, "d1=20240617") || !strings.Contains(gotQuery, "d2=20240701") {
		t.Fatalf("unexpected fetch window: %q", gotQuery)
	}
	if !strings.Contains(gotQuery, "s=aapl.us") {
		t.Fatalf("expected plan-derived ticker, got %q", gotQuery)
	}
}

func TestRunAnalysisDefaultsLookbackWindow(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, "Date,Close\n2024-06-03,100\n2024-06-04,101\n")
	}))
	defer server.Close()

	core := openTestCore(t, Options{
		Now: func() time.Time { return Date(2024, time.July, 1) },
	})
	core.fetcher.baseURL = server.URL

	if _, err := core.RunAnalysis(context.Background(), AnalysisRequest{
		Query:   "sma",
		Tickers: []string{"MSFT"},
	}); err != nil {
		t.Fatalf("run analysis: %v", err)
	}
	if !strings.Contains(gotQuery, "d1=20230701") || !strings.Contains(gotQuery, "d2=20240701") {
		t.Fatalf("expected twelve-month default window, got %q", gotQuery)
	}
}

func TestRunAnalysisNoMarketData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "No data")
	}))
	defer server.Close()

	core := openTestCore(t, Options{})
	core.fetcher.baseURL = server.URL

	_, err := core.RunAnalysis(context.Background(), AnalysisRequest{
		Query:   "sma",
		Tickers: []string{"ZZZZ"},
	})
	if !IsErrorCode(err, ErrCodeNoData) {
		t.Fatalf("expected NO_DATA, got %v", err)
	}
}

func TestRunAnalysisUnusableUpload(t *testing.T) {
	core := openTestCore(t, Options{})

	_, err := core.RunAnalysis(context.Background(), AnalysisRequest{
		Query:          "sma",
		Upload:         []byte("Date,Ticker,Close\nnot-a-date,AAPL,abc\n"),
		UploadFilename: "AAPL.csv",
	})
	if !IsErrorCode(err, ErrCodeValidation) {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestRunAnalysisPersistsHistory(t *testing.T) {
	core := openTestCore(t, Options{})

	_, err := core.RunAnalysis(context.Background(), AnalysisRequest{
		Query:          "zscore of the pair",
		Upload:         []byte("Date,Ticker,Close\n2024-01-02,AAPL,100\n2024-01-02,MSFT,400\n2024-01-03,AAPL,105\n2024-01-03,MSFT,398\n"),
		UploadFilename: "pair.csv",
	})
	if err != nil {
		t.Fatalf("run analysis: %v", err)
	}

	records, err := core.ListAnalysisHistory(0)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Query != "zscore of the pair" {
		t.Fatalf("unexpected query: %q", records[0].Query)
	}
	if _, ok := records[0].ToolSummaries["zscore"]; !ok {
		t.Fatalf("expected zscore summary persisted, got %v", records[0].ToolSummaries)
	}
	if records[0].CreatedAt == "" {
		t.Fatalf("expected created_at timestamp")
	}
}

func TestListAnalysisHistoryOrderAndLimit(t *testing.T) {
	core := openTestCore(t, Options{})

	for i := 0; i < 3; i++ {
		if _, err := core.saveAnalysis(fmt.Sprintf("query %d", i), &AgentResult{
			Summary:       "s",
			ToolSummaries: map[string]string{"sma": "x"},
		}); err != nil {
			t.Fatalf("save analysis: %v", err)
		}
	}

	records, err := core.ListAnalysisHistory(2)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Query != "query 2" || records[1].Query != "query 1" {
		t.Fatalf("expected newest first, got %q then %q", records[0].Query, records[1].Query)
	}
}

func TestInterpretMergesAssistedPlan(t *testing.T) {
	core := openTestCore(t, Options{})
	core.assistant = planOnlyAssistant{plan: &QueryPlan{Tickers: []string{"NVDA"}}}

	plan := core.Interpret(context.Background(), "sma for AAPL")
	if len(plan.Tools) != 1 || plan.Tools[0] != "sma" {
		t.Fatalf("expected heuristic tools kept, got %v", plan.Tools)
	}
	if len(plan.Tickers) != 1 || plan.Tickers[0] != "NVDA" {
		t.Fatalf("expected assisted tickers to win, got %v", plan.Tickers)
	}
}

// planOnlyAssistant returns a fixed plan and no summary.
type planOnlyAssistant struct {
	plan *QueryPlan
}

func (a planOnlyAssistant) PlanQuery(context.Context, string) (*QueryPlan, bool) {
	return a.plan, true
}

func (a planOnlyAssistant) ComposeSummary(context.Context, string, map[string]string) (string, bool) {
	return "", false
}

func TestExecuteEmptySelectionRunsRegistry(t *testing.T) {
	core := openTestCore(t, Options{})

	data := testMatrix(map[string][]float64{
		"AAPL": {100, 101, 102, 103},
		"MSFT": {400, 398, 402, 401},
	})
	result := core.Execute(context.Background(), "anything", data, QueryPlan{})

	for _, name := range toolNames {
		if _, ok := result.ToolSummaries[name]; !ok {
			t.Fatalf("expected %s to run, got %v", name, result.ToolSummaries)
		}
	}
}

func TestExecuteUnknownToolSkipped(t *testing.T) {
	core := openTestCore(t, Options{})

	data := testMatrix(map[string][]float64{"AAPL": {100, 101}})
	result := core.Execute(context.Background(), "q", data, QueryPlan{Tools: []string{"sharpe"}})

	if result.Summary != noInsightsSummary {
		t.Fatalf("expected %q, got %q", noInsightsSummary, result.Summary)
	}
	if len(result.ToolSummaries) != 0 {
		t.Fatalf("expected no tool output, got %v", result.ToolSummaries)
	}
}

func TestExecuteAssistedSummaryWins(t *testing.T) {
	core := openTestCore(t, Options{})
	core.assistant = summaryAssistant{summary: "Composed narrative."}

	data := testMatrix(map[string][]float64{"AAPL": {100, 101, 102}})
	result := core.Execute(context.Background(), "q", data, QueryPlan{Tools: []string{"sma"}})

	if result.Summary != "Composed narrative." {
		t.Fatalf("expected assisted summary, got %q", result.Summary)
	}
}

type summaryAssistant struct {
	summary string
}

func (a summaryAssistant) PlanQuery(context.Context, string) (*QueryPlan, bool) {
	return nil, false
}

func (a summaryAssistant) ComposeSummary(context.Context, string, map[string]string) (string, bool) {
	return a.summary, true
}
