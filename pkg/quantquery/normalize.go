package quantquery

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// dateLayouts are accepted string forms for record dates, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006/01/02",
	"01/02/2006",
}

// lookupField returns the first value present under any of the given keys,
// matched case-insensitively.
func lookupField(record RawRecord, keys ...string) (any, bool) {
	for _, key := range keys {
		if value, ok := record[key]; ok && value != nil {
			return value, true
		}
	}
	for recordKey, value := range record {
		if value == nil {
			continue
		}
		for _, key := range keys {
			if strings.EqualFold(recordKey, key) {
				return value, true
			}
		}
	}
	return nil, false
}

// parseRecordDate accepts a time.Time or an ISO-format date/timestamp string.
func parseRecordDate(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return dateOnly(v), true
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return time.Time{}, false
		}
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, trimmed); err == nil {
				return dateOnly(parsed), true
			}
		}
	}
	return time.Time{}, false
}

// parseRecordPrice coerces a numeric or numeric-string close value.
// String prices go through decimal so "1,234.50" and exponent forms survive
// without float-parsing surprises.
func parseRecordPrice(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case decimal.Decimal:
		return v.InexactFloat64(), true
	case string:
		cleaned := strings.ReplaceAll(strings.TrimSpace(v), ",", "")
		if cleaned == "" {
			return 0, false
		}
		d, err := decimal.NewFromString(cleaned)
		if err != nil {
			return 0, false
		}
		return d.InexactFloat64(), true
	}
	return 0, false
}

// parseRecordSymbol accepts any non-empty string, normalized to upper case.
func parseRecordSymbol(value any) (string, bool) {
	s, ok := value.(string)
	if !ok {
		return "", false
	}
	s = strings.ToUpper(strings.TrimSpace(s))
	return s, s != ""
}

// NormalizeRecords converts raw per-observation mappings into (date, symbol,
// price) triples. Records with a missing or unparseable field are dropped
// silently; partial failure never aborts the batch.
func NormalizeRecords(records []RawRecord) []PriceRecord {
	normalized := make([]PriceRecord, 0, len(records))
	for _, record := range records {
		dateValue, ok := lookupField(record, "Date", "date")
		if !ok {
			continue
		}
		tickerValue, ok := lookupField(record, "Ticker", "ticker")
		if !ok {
			continue
		}
		closeValue, ok := lookupField(record, "Close", "close")
		if !ok {
			continue
		}
		date, ok := parseRecordDate(dateValue)
		if !ok {
			continue
		}
		ticker, ok := parseRecordSymbol(tickerValue)
		if !ok {
			continue
		}
		price, ok := parseRecordPrice(closeValue)
		if !ok {
			continue
		}
		normalized = append(normalized, PriceRecord{Date: date, Ticker: ticker, Close: price})
	}
	return normalized
}
