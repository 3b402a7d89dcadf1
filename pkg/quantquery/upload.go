package quantquery

import (
	"encoding/csv"
	"encoding/json"
	"path/filepath"
	"regexp"
	"strings"
)

// closeColumnLabels are column headings accepted as the close price in a
// transposed-layout table.
var closeColumnLabels = map[string]bool{
	"close":       true,
	"adj close":   true,
	"price":       true,
	"close price": true,
	"last":        true,
}

var reNonAlphanumeric = regexp.MustCompile(`[^A-Za-z0-9]+`)

// deriveTickerFromFilename extracts a symbol candidate from an upload name.
func deriveTickerFromFilename(filename string) string {
	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	return strings.ToUpper(reNonAlphanumeric.ReplaceAllString(stem, ""))
}

// sniffDelimiter picks the most frequent candidate separator in the first
// two lines, defaulting to comma.
func sniffDelimiter(text string) rune {
	lines := strings.SplitN(text, "\n", 3)
	if len(lines) > 2 {
		lines = lines[:2]
	}
	sample := strings.Join(lines, "\n")
	best, bestCount := ',', 0
	for _, candidate := range []rune{',', ';', '\t', '|'} {
		if count := strings.Count(sample, string(candidate)); count > bestCount {
			best, bestCount = candidate, count
		}
	}
	return best
}

// ParseUploadedPrices converts uploaded delimited text, a transposed-layout
// table, or a JSON list of objects into raw price records. Rows that cannot
// be interpreted are skipped; an empty result is a value, not an error.
func ParseUploadedPrices(content []byte, filename string, fallbackTickers []string) []RawRecord {
	if len(content) == 0 {
		return nil
	}
	text := strings.TrimPrefix(string(content), "\uFEFF")

	fallbackSymbol := ""
	for _, ticker := range fallbackTickers {
		if trimmed := strings.ToUpper(strings.TrimSpace(ticker)); trimmed != "" {
			fallbackSymbol = trimmed
			break
		}
	}
	if fallbackSymbol == "" && filename != "" {
		fallbackSymbol = deriveTickerFromFilename(filename)
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = sniffDelimiter(text)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil || len(rows) == 0 {
		rows = nil
	}

	if records := parseHeaderLayout(rows, fallbackSymbol); len(records) > 0 {
		return records
	}
	if records := parseTransposedLayout(rows, fallbackSymbol); len(records) > 0 {
		return records
	}
	if strings.HasSuffix(strings.ToLower(filename), ".json") {
		return parseJSONRecords(text, fallbackSymbol)
	}
	return nil
}

// parseHeaderLayout reads a conventional table whose first row names the
// columns (Date/Ticker/Close with Symbol and Adj Close variants).
func parseHeaderLayout(rows [][]string, fallbackSymbol string) []RawRecord {
	if len(rows) < 2 {
		return nil
	}
	header := rows[0]
	columns := make(map[string]int, len(header))
	for i, label := range header {
		key := strings.ToLower(strings.TrimSpace(label))
		if _, exists := columns[key]; !exists {
			columns[key] = i
		}
	}

	pick := func(row []string, names ...string) string {
		for _, name := range names {
			if idx, ok := columns[name]; ok && idx < len(row) {
				if value := strings.TrimSpace(row[idx]); value != "" {
					return value
				}
			}
		}
		return ""
	}

	var records []RawRecord
	for _, row := range rows[1:] {
		date := pick(row, "date")
		ticker := pick(row, "ticker", "symbol")
		if ticker == "" {
			ticker = fallbackSymbol
		}
		closePrice := pick(row, "close", "adj close")
		if date == "" || ticker == "" || closePrice == "" {
			continue
		}
		records = append(records, RawRecord{
			"Date":   date,
			"Ticker": strings.ToUpper(ticker),
			"Close":  closePrice,
		})
	}
	return records
}

// parseTransposedLayout reads exported tables where metadata rows precede a
// "Date" row that starts the actual observations, with each column holding
// one field of one instrument.
func parseTransposedLayout(rows [][]string, fallbackSymbol string) []RawRecord {
	var normalized [][]string
	for _, row := range rows {
		cleaned := make([]string, len(row))
		empty := true
		for i, cell := range row {
			cleaned[i] = strings.TrimSpace(cell)
			if cleaned[i] != "" {
				empty = false
			}
		}
		if !empty {
			normalized = append(normalized, cleaned)
		}
	}
	if len(normalized) == 0 {
		return nil
	}

	headerRow := normalized[0]
	var tickerRow []string
	if len(normalized) > 1 {
		tickerRow = normalized[1]
	}

	dateRowIndex := -1
	for i, row := range normalized {
		if len(row) > 0 && strings.EqualFold(row[0], "date") {
			dateRowIndex = i
			break
		}
	}
	if dateRowIndex < 0 || dateRowIndex+1 >= len(normalized) {
		return nil
	}

	closeIndex := -1
	for i := 1; i < len(headerRow); i++ {
		if closeColumnLabels[strings.ToLower(headerRow[i])] {
			closeIndex = i
			break
		}
	}
	if closeIndex < 0 && len(headerRow) > 1 {
		closeIndex = 1
	}

	ticker := fallbackSymbol
	if ticker == "" {
		if closeIndex >= 0 && closeIndex < len(tickerRow) && tickerRow[closeIndex] != "" {
			ticker = strings.ToUpper(tickerRow[closeIndex])
		} else {
			for i := 1; i < len(tickerRow); i++ {
				if tickerRow[i] != "" {
					ticker = strings.ToUpper(tickerRow[i])
					break
				}
			}
		}
	}
	if ticker == "" {
		return nil
	}

	var records []RawRecord
	for _, row := range normalized[dateRowIndex+1:] {
		if len(row) == 0 || row[0] == "" {
			continue
		}
		closePrice := ""
		if closeIndex >= 0 && closeIndex < len(row) && row[closeIndex] != "" {
			closePrice = row[closeIndex]
		} else {
			for i := 1; i < len(row); i++ {
				if row[i] != "" {
					closePrice = row[i]
					break
				}
			}
		}
		if closePrice == "" {
			continue
		}
		records = append(records, RawRecord{"Date": row[0], "Ticker": ticker, "Close": closePrice})
	}
	return records
}

// parseJSONRecords reads a JSON array of record objects.
func parseJSONRecords(text, fallbackSymbol string) []RawRecord {
	var items []map[string]any
	if err := json.Unmarshal([]byte(text), &items); err != nil {
		return nil
	}
	var records []RawRecord
	for _, item := range items {
		record := RawRecord(item)
		dateValue, hasDate := lookupField(record, "Date", "date")
		closeValue, hasClose := lookupField(record, "Close", "close")
		tickerValue, hasTicker := lookupField(record, "Ticker", "ticker", "Symbol", "symbol")
		ticker := ""
		if hasTicker {
			if s, ok := tickerValue.(string); ok {
				ticker = strings.ToUpper(strings.TrimSpace(s))
			}
		}
		if ticker == "" {
			ticker = fallbackSymbol
		}
		if !hasDate || !hasClose || ticker == "" {
			continue
		}
		records = append(records, RawRecord{"Date": dateValue, "Ticker": ticker, "Close": closeValue})
	}
	return records
}
