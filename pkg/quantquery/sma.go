package quantquery

import (
	"fmt"
	"strings"
	"time"
)

const (
	smaShortWindow = 20
	smaLongWindow  = 50
)

// movingAverage computes a trailing mean of the given window at every index,
// using all available preceding points while fewer than window exist. The
// first output value therefore always equals the first input value.
func movingAverage(values []float64, window int) []float64 {
	averages := make([]float64, len(values))
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		count := i + 1
		if count > window {
			count = window
		}
		averages[i] = sum / float64(count)
	}
	return averages
}

// analyzeSMA reports short/long moving-average crossovers per symbol.
func analyzeSMA(data PriceMatrix, charts *ChartRenderer) ToolResult {
	if data.IsEmpty() {
		return ToolResult{Name: "sma", Summary: "No price data provided for moving averages.", Images: []string{}}
	}

	dates := isoDates(data.Dates)
	var summaries []string
	images := []string{}

	for _, ticker := range data.Tickers() {
		prices := data.Series[ticker]
		shortMA := movingAverage(prices, smaShortWindow)
		longMA := movingAverage(prices, smaLongWindow)

		images = append(images, charts.LineChart(dates, []chartSeries{
			{Label: ticker + " Close", Values: prices},
			{Label: fmt.Sprintf("SMA %d", smaShortWindow), Values: shortMA},
			{Label: fmt.Sprintf("SMA %d", smaLongWindow), Values: longMA},
		}, ticker+" Close with SMAs", "Price", nil))

		last := len(prices) - 1
		switch {
		case shortMA[last] > longMA[last]:
			summaries = append(summaries, fmt.Sprintf("%s: bullish crossover (%d>%d).", ticker, smaShortWindow, smaLongWindow))
		case shortMA[last] < longMA[last]:
			summaries = append(summaries, fmt.Sprintf("%s: bearish crossover (%d<%d).", ticker, smaShortWindow, smaLongWindow))
		default:
			summaries = append(summaries, fmt.Sprintf("%s: SMAs aligned.", ticker))
		}
	}

	return ToolResult{Name: "sma", Summary: strings.Join(summaries, " "), Images: images}
}

// isoDates formats matrix dates for chart axes.
func isoDates(dates []time.Time) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.Format("2006-01-02")
	}
	return out
}
