package quantquery

import (
	"fmt"
	"strings"
)

const rsiPeriod = 14

// computeRSI calculates the relative-strength index with exponential
// smoothing factor 1/period. The first averaged gain and loss equal the
// first single-period delta, and a zero smoothed average loss defines the
// index as 100 rather than dividing by zero.
func computeRSI(prices []float64, period int) []float64 {
	values := make([]float64, len(prices))
	for i := range values {
		values[i] = 50.0
	}
	if len(prices) < 2 {
		return values
	}

	deltas := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		deltas[i-1] = prices[i] - prices[i-1]
	}
	gain := func(delta float64) float64 {
		if delta > 0 {
			return delta
		}
		return 0
	}
	loss := func(delta float64) float64 {
		if delta < 0 {
			return -delta
		}
		return 0
	}

	avgGain := gain(deltas[0])
	avgLoss := loss(deltas[0])
	p := float64(period)

	for i := 1; i < len(prices); i++ {
		avgGain = ((p-1)*avgGain + gain(deltas[i-1])) / p
		avgLoss = ((p-1)*avgLoss + loss(deltas[i-1])) / p
		if avgLoss == 0 {
			values[i] = 100.0
			continue
		}
		rs := avgGain / avgLoss
		values[i] = 100 - 100/(1+rs)
	}
	return values
}

// analyzeRSI classifies each symbol as overbought, oversold, or neutral
// based on its final RSI value.
func analyzeRSI(data PriceMatrix, charts *ChartRenderer) ToolResult {
	if data.IsEmpty() {
		return ToolResult{Name: "rsi", Summary: "No price data provided for RSI.", Images: []string{}}
	}

	var summaries []string
	var series []chartSeries

	for _, ticker := range data.Tickers() {
		values := computeRSI(data.Series[ticker], rsiPeriod)
		latest := values[len(values)-1]
		state := "neutral"
		if latest > 70 {
			state = "overbought"
		} else if latest < 30 {
			state = "oversold"
		}
		summaries = append(summaries, fmt.Sprintf("%s: %s (RSI %.1f)", ticker, state, latest))
		series = append(series, chartSeries{Label: ticker, Values: values})
	}

	image := charts.LineChart(isoDates(data.Dates), series,
		fmt.Sprintf("%d-Period RSI", rsiPeriod), "RSI",
		[]refLine{{Value: 70, Color: "#d62728"}, {Value: 30, Color: "#2ca02c"}})

	return ToolResult{Name: "rsi", Summary: strings.Join(summaries, "; "), Images: []string{image}}
}
