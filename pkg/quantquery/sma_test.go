package quantquery

import (
	"math"
	"strings"
	"testing"
	"time"
)

func testRenderer() *ChartRenderer {
	return NewChartRenderer("", "", nil)
}

func testMatrix(series map[string][]float64) PriceMatrix {
	length := 0
	for _, values := range series {
		length = len(values)
		break
	}
	dates := make([]time.Time, length)
	for i := range dates {
		dates[i] = Date(2024, time.January, 1).AddDate(0, 0, i)
	}
	return PriceMatrix{Dates: dates, Series: series}
}

func TestMovingAveragePartialWindows(t *testing.T) {
	values := []float64{10, 20, 30, 40}
	got := movingAverage(values, 3)

	want := []float64{10, 15, 20, 30}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Fatalf("index %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestMovingAverageFirstValueEqualsInput(t *testing.T) {
	values := []float64{42.5, 1, 2, 3}
	for _, window := range []int{1, 5, 20, 50} {
		got := movingAverage(values, window)
		if got[0] != values[0] {
			t.Fatalf("window %d: first average %v, want %v", window, got[0], values[0])
		}
	}
}

func TestMovingAverageFullWindow(t *testing.T) {
	values := make([]float64, 10)
	for i := range values {
		values[i] = float64(i + 1)
	}
	got := movingAverage(values, 4)
	// Last value averages 7,8,9,10.
	if math.Abs(got[9]-8.5) > 1e-9 {
		t.Fatalf("expected 8.5, got %v", got[9])
	}
}

func TestAnalyzeSMABullish(t *testing.T) {
	prices := make([]float64, 60)
	for i := range prices {
		prices[i] = 100 + float64(i)
	}
	data := testMatrix(map[string][]float64{"AAPL": prices})

	result := analyzeSMA(data, testRenderer())
	if result.Name != "sma" {
		t.Fatalf("unexpected tool name %q", result.Name)
	}
	if !strings.Contains(result.Summary, "AAPL: bullish crossover") {
		t.Fatalf("expected bullish summary, got %q", result.Summary)
	}
	if len(result.Images) != 1 {
		t.Fatalf("expected one chart per symbol, got %d", len(result.Images))
	}
	if !strings.HasPrefix(result.Images[0], "data:image/svg+xml;base64,") {
		t.Fatalf("expected inline chart, got %q", result.Images[0])
	}
}

func TestAnalyzeSMABearish(t *testing.T) {
	prices := make([]float64, 60)
	for i := range prices {
		prices[i] = 200 - float64(i)
	}
	data := testMatrix(map[string][]float64{"MSFT": prices})

	result := analyzeSMA(data, testRenderer())
	if !strings.Contains(result.Summary, "MSFT: bearish crossover") {
		t.Fatalf("expected bearish summary, got %q", result.Summary)
	}
}

func TestAnalyzeSMAEmptyMatrix(t *testing.T) {
	result := analyzeSMA(PriceMatrix{Series: map[string][]float64{}}, testRenderer())
	if result.Summary != "No price data provided for moving averages." {
		t.Fatalf("unexpected summary: %q", result.Summary)
	}
	if len(result.Images) != 0 {
		t.Fatalf("expected no images, got %d", len(result.Images))
	}
}

func TestAnalyzeSMAMultipleSymbols(t *testing.T) {
	up := make([]float64, 30)
	down := make([]float64, 30)
	for i := range up {
		up[i] = 100 + float64(i)
		down[i] = 100 - float64(i)
	}
	data := testMatrix(map[string][]float64{"UP": up, "DOWN": down})

	result := analyzeSMA(data, testRenderer())
	if len(result.Images) != 2 {
		t.Fatalf("expected two charts, got %d", len(result.Images))
	}
	// Tickers iterate sorted, so DOWN reports before UP.
	if !strings.Contains(result.Summary, "DOWN: bearish") || !strings.Contains(result.Summary, "UP: bullish") {
		t.Fatalf("unexpected summary: %q", result.Summary)
	}
	if strings.Index(result.Summary, "DOWN") > strings.Index(result.Summary, "UP:") {
		t.Fatalf("expected sorted symbol order, got %q", result.Summary)
	}
}
