package quantquery

import (
	"sort"
	"time"
)

func unixDate(key int64) time.Time {
	return time.Unix(key, 0).UTC()
}

// AlignRecords builds the date-aligned price matrix from normalized triples.
//
// Records are sorted by (date, symbol); for each distinct date in ascending
// order every symbol takes its most recently observed price at or before that
// date. A date is retained only if every symbol has a carried-forward value
// by then, so all tools see rectangular, directly comparable series.
func AlignRecords(records []PriceRecord) PriceMatrix {
	if len(records) == 0 {
		return PriceMatrix{Series: map[string][]float64{}}
	}

	sorted := append([]PriceRecord(nil), records...)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.Before(sorted[j].Date)
		}
		return sorted[i].Ticker < sorted[j].Ticker
	})

	tickerSet := make(map[string]bool)
	byDate := make(map[int64]map[string]float64)
	var dateKeys []int64
	for _, record := range sorted {
		tickerSet[record.Ticker] = true
		key := record.Date.Unix()
		observations, ok := byDate[key]
		if !ok {
			observations = make(map[string]float64)
			byDate[key] = observations
			dateKeys = append(dateKeys, key)
		}
		// Duplicate (date, symbol) observations keep the last one seen.
		observations[record.Ticker] = record.Close
	}
	sort.Slice(dateKeys, func(i, j int) bool { return dateKeys[i] < dateKeys[j] })

	tickers := make([]string, 0, len(tickerSet))
	for ticker := range tickerSet {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)

	latest := make(map[string]float64, len(tickers))
	observed := make(map[string]bool, len(tickers))
	matrix := PriceMatrix{Series: make(map[string][]float64, len(tickers))}

	for _, key := range dateKeys {
		for ticker, price := range byDate[key] {
			latest[ticker] = price
			observed[ticker] = true
		}
		if len(observed) < len(tickers) {
			continue
		}
		matrix.Dates = append(matrix.Dates, unixDate(key))
		for _, ticker := range tickers {
			matrix.Series[ticker] = append(matrix.Series[ticker], latest[ticker])
		}
	}

	if len(matrix.Dates) == 0 {
		return PriceMatrix{Series: map[string][]float64{}}
	}
	return matrix
}
