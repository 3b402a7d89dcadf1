package quantquery

import (
	"testing"
)

func TestDeriveTickerFromFilename(t *testing.T) {
	cases := []struct {
		filename string
		want     string
	}{
		{"AAPL.csv", "AAPL"},
		{"data/msft-daily.csv", "MSFTDAILY"},
		{"tsla prices.json", "TSLAPRICES"},
		{".csv", ""},
	}
	for _, tc := range cases {
		if got := deriveTickerFromFilename(tc.filename); got != tc.want {
			t.Fatalf("deriveTickerFromFilename(%q) = %q, want %q", tc.filename, got, tc.want)
		}
	}
}

func TestSniffDelimiter(t *testing.T) {
	cases := []struct {
		text string
		want rune
	}{
		{"a,b,c\n1,2,3", ','},
		{"a;b;c\n1;2;3", ';'},
		{"a\tb\tc\n1\t2\t3", '\t'},
		{"a|b|c\n1|2|3", '|'},
		{"plain text", ','},
	}
	for _, tc := range cases {
		if got := sniffDelimiter(tc.text); got != tc.want {
			t.Fatalf("sniffDelimiter(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}

func TestParseUploadedPricesHeaderLayout(t *testing.T) {
	csv := "Date,Ticker,Close\n2024-01-02,aapl,185.5\n2024-01-03,aapl,186.2\n"
	records := ParseUploadedPrices([]byte(csv), "prices.csv", nil)

	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0]["Ticker"] != "AAPL" {
		t.Fatalf("expected upper-cased ticker, got %v", records[0]["Ticker"])
	}
	if records[0]["Date"] != "2024-01-02" || records[0]["Close"] != "185.5" {
		t.Fatalf("unexpected first record: %v", records[0])
	}
}

func TestParseUploadedPricesSymbolColumnAndSemicolons(t *testing.T) {
	csv := "Date;Symbol;Adj Close\n2024-01-02;MSFT;400.1\n"
	records := ParseUploadedPrices([]byte(csv), "export.csv", nil)

	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0]["Ticker"] != "MSFT" || records[0]["Close"] != "400.1" {
		t.Fatalf("unexpected record: %v", records[0])
	}
}

func TestParseUploadedPricesFallbackTickerPrecedence(t *testing.T) {
	csv := "Date,Close\n2024-01-02,100\n"

	// Explicit tickers beat the filename.
	records := ParseUploadedPrices([]byte(csv), "AAPL.csv", []string{" msft "})
	if len(records) != 1 || records[0]["Ticker"] != "MSFT" {
		t.Fatalf("expected MSFT from fallback tickers, got %v", records)
	}

	// Filename fills in when no tickers are given.
	records = ParseUploadedPrices([]byte(csv), "AAPL.csv", nil)
	if len(records) != 1 || records[0]["Ticker"] != "AAPL" {
		t.Fatalf("expected AAPL from filename, got %v", records)
	}
}

func TestParseUploadedPricesTransposedLayout(t *testing.T) {
	csv := "Price,Close,Volume\n" +
		"Ticker,NVDA,NVDA\n" +
		"Date,,\n" +
		"2024-01-02,495.2,40300000\n" +
		"2024-01-03,481.7,39800000\n"

	records := ParseUploadedPrices([]byte(csv), "", nil)
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d: %v", len(records), records)
	}
	if records[0]["Ticker"] != "NVDA" {
		t.Fatalf("expected ticker from metadata row, got %v", records[0]["Ticker"])
	}
	if records[0]["Date"] != "2024-01-02" || records[0]["Close"] != "495.2" {
		t.Fatalf("unexpected record: %v", records[0])
	}
}

func TestParseUploadedPricesJSON(t *testing.T) {
	payload := `[
		{"date": "2024-01-02", "close": 185.5, "symbol": "aapl"},
		{"date": "2024-01-03", "close": 186.2},
		{"close": 187.0}
	]`
	records := ParseUploadedPrices([]byte(payload), "prices.json", nil)

	if len(records) != 2 {
		t.Fatalf("expected 2 records (row without date dropped), got %d", len(records))
	}
	if records[0]["Ticker"] != "AAPL" {
		t.Fatalf("expected AAPL, got %v", records[0]["Ticker"])
	}
	// The second row has no symbol field and inherits from the filename.
	if records[1]["Ticker"] != "PRICES" {
		t.Fatalf("expected filename fallback, got %v", records[1]["Ticker"])
	}
}

func TestParseUploadedPricesBOMAndEmpty(t *testing.T) {
	if records := ParseUploadedPrices(nil, "x.csv", nil); records != nil {
		t.Fatalf("expected nil for empty content, got %v", records)
	}

	csv := "\uFEFFDate,Ticker,Close\n2024-01-02,GOOGL,141.2\n"
	records := ParseUploadedPrices([]byte(csv), "", nil)
	if len(records) != 1 || records[0]["Ticker"] != "GOOGL" {
		t.Fatalf("expected BOM to be stripped, got %v", records)
	}
}

func TestParseUploadedPricesGarbage(t *testing.T) {
	if records := ParseUploadedPrices([]byte("not a table at all"), "notes.txt", nil); len(records) != 0 {
		t.Fatalf("expected no records for unstructured text, got %v", records)
	}
	if records := ParseUploadedPrices([]byte("{broken json"), "x.json", nil); len(records) != 0 {
		t.Fatalf("expected no records for invalid json, got %v", records)
	}
}
