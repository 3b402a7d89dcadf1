package quantquery

import (
	"fmt"
	"math"
)

// pairKey identifies an unordered symbol pair in first-seen order.
type pairKey struct {
	Left  string
	Right string
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// pstdev is the population standard deviation.
func pstdev(values []float64) float64 {
	m := mean(values)
	sum := 0.0
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

// analyzeZScore computes pairwise spread z-scores across all symbol pairs.
// The pair with the largest-magnitude final z-score drives the headline and
// the time-series chart; the full antisymmetric matrix drives the heatmap.
func analyzeZScore(data PriceMatrix, charts *ChartRenderer) ToolResult {
	tickers := data.Tickers()
	if len(tickers) < 2 || len(data.Dates) == 0 {
		return ToolResult{
			Name:    "zscore",
			Summary: "Z-score analysis requires at least two tickers.",
			Images:  []string{},
		}
	}

	latestScores := make(map[pairKey]float64)
	history := make(map[pairKey][]float64)
	var pairOrder []pairKey

	for i := 0; i < len(tickers); i++ {
		for j := i + 1; j < len(tickers); j++ {
			left, right := tickers[i], tickers[j]
			leftSeries := data.Series[left]
			rightSeries := data.Series[right]
			spread := make([]float64, len(leftSeries))
			for k := range spread {
				spread[k] = leftSeries[k] - rightSeries[k]
			}
			spreadStd := pstdev(spread)
			if spreadStd == 0 {
				// Undefined z-score; skip the pair.
				continue
			}
			spreadMean := mean(spread)
			zValues := make([]float64, len(spread))
			for k, v := range spread {
				zValues[k] = (v - spreadMean) / spreadStd
			}
			key := pairKey{Left: left, Right: right}
			latestScores[key] = zValues[len(zValues)-1]
			history[key] = zValues
			pairOrder = append(pairOrder, key)
		}
	}

	if len(latestScores) == 0 {
		return ToolResult{
			Name:    "zscore",
			Summary: "Unable to compute z-scores for the provided data.",
			Images:  []string{},
		}
	}

	matrix := make([][]float64, len(tickers))
	for i := range matrix {
		matrix[i] = make([]float64, len(tickers))
	}
	for i, left := range tickers {
		for j, right := range tickers {
			if left == right {
				continue
			}
			if z, ok := latestScores[pairKey{Left: left, Right: right}]; ok {
				matrix[i][j] = z
			} else if z, ok := latestScores[pairKey{Left: right, Right: left}]; ok {
				matrix[i][j] = -z
			}
		}
	}

	// Ties keep the earliest pair so the headline is deterministic.
	var extremePair pairKey
	extremeAbs := -1.0
	for _, key := range pairOrder {
		if abs := math.Abs(latestScores[key]); abs > extremeAbs {
			extremeAbs = abs
			extremePair = key
		}
	}

	heatmap := charts.Heatmap(matrix, tickers, "Latest Pairwise Z-Scores")
	lineChart := charts.LineChart(isoDates(data.Dates), []chartSeries{
		{Label: extremePair.Left + "-" + extremePair.Right, Values: history[extremePair]},
	}, "Spread Z-Score Over Time", "Z-Score",
		[]refLine{{Value: 0, Color: "#555555"}, {Value: 2, Color: "#d62728"}, {Value: -2, Color: "#2ca02c"}})

	summary := fmt.Sprintf("Largest divergence observed for %s vs %s (z-score %.2f).",
		extremePair.Left, extremePair.Right, latestScores[extremePair])

	return ToolResult{Name: "zscore", Summary: summary, Images: []string{heatmap, lineChart}}
}
