package quantquery

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// defaultLookbackMonths is the download window used when neither the caller
// nor the plan supplied a start date.
const defaultLookbackMonths = 12

// Options controls Core initialization.
type Options struct {
	DBPath        string
	Logger        *slog.Logger
	StaticDir     string
	StaticBaseURL string
	Assistant     Assistant
	HTTPTimeout   time.Duration
	Now           func() time.Time
}

// Core provides access to the analysis pipeline and storage.
type Core struct {
	db        *sql.DB
	logger    *slog.Logger
	assistant Assistant
	charts    *ChartRenderer
	fetcher   *marketDataFetcher
	now       func() time.Time
	dbPath    string
}

// Open initializes a Core using the provided database path.
func Open(dbPath string) (*Core, error) {
	return OpenWithOptions(Options{DBPath: dbPath})
}

// OpenWithOptions initializes a Core using the provided options.
func OpenWithOptions(opts Options) (*Core, error) {
	if opts.DBPath == "" {
		return nil, errors.New("db path is required")
	}
	cleanPath := filepath.Clean(opts.DBPath)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	assistant := opts.Assistant
	if assistant == nil {
		assistant = unavailableAssistant{}
	}

	db, err := sql.Open("sqlite", cleanPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite performs best with a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	c := &Core{
		db:        db,
		logger:    logger,
		assistant: assistant,
		charts:    NewChartRenderer(opts.StaticDir, opts.StaticBaseURL, logger),
		fetcher:   newMarketDataFetcher(logger, opts.HTTPTimeout),
		now:       now,
		dbPath:    cleanPath,
	}
	if err := c.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return c, nil
}

// Close releases the underlying database.
func (c *Core) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Logger returns the core logger.
func (c *Core) Logger() *slog.Logger {
	return c.logger
}

// AnalysisRequest carries one analysis invocation. Explicit fields override
// what the planner infers from the query text.
type AnalysisRequest struct {
	Query          string
	Tickers        []string
	StartDate      *time.Time
	EndDate        *time.Time
	Upload         []byte
	UploadFilename string
}

// RunAnalysis is the full pipeline for one request: interpret the query,
// gather raw records (uploaded data wins over market data retrieval), align
// them, run the selected analytics, and persist the outcome.
func (c *Core) RunAnalysis(ctx context.Context, req AnalysisRequest) (*AgentResult, error) {
	plan := c.Interpret(ctx, req.Query)
	c.logger.Info("query interpreted",
		"tools", plan.Tools,
		"tickers", plan.Tickers,
		"has_window", plan.StartDate != nil,
	)

	fallbackTickers := req.Tickers
	if len(fallbackTickers) == 0 {
		fallbackTickers = plan.Tickers
	}

	var rawRecords []RawRecord
	if len(req.Upload) > 0 {
		rawRecords = ParseUploadedPrices(req.Upload, req.UploadFilename, fallbackTickers)
		c.logger.Info("upload parsed", "filename", req.UploadFilename, "records", len(rawRecords))
	}

	derivedTickers := req.Tickers
	if len(derivedTickers) == 0 {
		derivedTickers = plan.Tickers
	}
	if len(rawRecords) == 0 && len(derivedTickers) > 0 {
		end := firstDate(req.EndDate, plan.EndDate)
		if end == nil {
			today := dateOnly(c.now())
			end = &today
		}
		start := firstDate(req.StartDate, plan.StartDate)
		if start == nil {
			defaulted := addMonthsClamped(*end, -defaultLookbackMonths)
			start = &defaulted
		}
		fetched, err := c.fetcher.Fetch(ctx, derivedTickers, *start, *end)
		if err != nil {
			c.logger.Warn("market data retrieval failed", "tickers", derivedTickers, "err", err)
		}
		rawRecords = fetched
		if len(rawRecords) == 0 {
			return nil, WrapError(ErrCodeNoData, "no market data available for the requested tickers", ErrNoData)
		}
	}
	if len(rawRecords) == 0 {
		return nil, WrapError(ErrCodeNoInput, "provide either tickers or an uploaded price file", ErrNoUsableInput)
	}

	matrix := AlignRecords(NormalizeRecords(rawRecords))
	if matrix.IsEmpty() {
		return nil, WrapError(ErrCodeValidation, "unable to clean the provided price data", ErrEmptyMatrix)
	}

	result := c.Execute(ctx, req.Query, matrix, plan)

	if _, err := c.saveAnalysis(req.Query, result); err != nil {
		c.logger.Warn("failed to save analysis history", "err", err)
	}
	return result, nil
}

func firstDate(dates ...*time.Time) *time.Time {
	for _, d := range dates {
		if d != nil {
			return d
		}
	}
	return nil
}
