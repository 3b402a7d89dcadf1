package quantquery

import (
	"math"
	"strings"
	"testing"
)

func TestMeanAndPstdev(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	if got := mean(values); got != 5 {
		t.Fatalf("mean = %v, want 5", got)
	}
	if got := pstdev(values); math.Abs(got-2) > 1e-9 {
		t.Fatalf("pstdev = %v, want 2", got)
	}
	if got := pstdev([]float64{3, 3, 3}); got != 0 {
		t.Fatalf("pstdev of constant series = %v, want 0", got)
	}
}

func TestAnalyzeZScoreRequiresTwoTickers(t *testing.T) {
	data := testMatrix(map[string][]float64{"AAPL": {100, 101, 102}})
	result := analyzeZScore(data, testRenderer())

	if result.Summary != "Z-score analysis requires at least two tickers." {
		t.Fatalf("unexpected summary: %q", result.Summary)
	}
	if result.Images == nil || len(result.Images) != 0 {
		t.Fatalf("expected empty non-nil images, got %v", result.Images)
	}
}

func TestAnalyzeZScoreDivergingPair(t *testing.T) {
	rising := make([]float64, 20)
	falling := make([]float64, 20)
	for i := range rising {
		rising[i] = 100 + float64(i)
		falling[i] = 100 - float64(i)
	}
	data := testMatrix(map[string][]float64{"AAA": rising, "BBB": falling})

	result := analyzeZScore(data, testRenderer())
	if !strings.Contains(result.Summary, "Largest divergence observed for AAA vs BBB") {
		t.Fatalf("unexpected summary: %q", result.Summary)
	}
	if len(result.Images) != 2 {
		t.Fatalf("expected heatmap and line chart, got %d images", len(result.Images))
	}

	// Spread grows linearly, so the final z-score is the maximum.
	if !strings.Contains(result.Summary, "z-score") {
		t.Fatalf("expected z-score value in summary: %q", result.Summary)
	}
}

func TestAnalyzeZScoreSkipsZeroVariancePairs(t *testing.T) {
	flatA := []float64{100, 100, 100}
	flatB := []float64{90, 90, 90}
	data := testMatrix(map[string][]float64{"AAA": flatA, "BBB": flatB})

	result := analyzeZScore(data, testRenderer())
	if result.Summary != "Unable to compute z-scores for the provided data." {
		t.Fatalf("unexpected summary: %q", result.Summary)
	}
	if len(result.Images) != 0 {
		t.Fatalf("expected no images, got %d", len(result.Images))
	}
}

func TestAnalyzeZScoreMixedVariance(t *testing.T) {
	// AAA-BBB spread is constant (skipped); pairs against CCC remain.
	aaa := []float64{100, 101, 102, 103}
	bbb := []float64{90, 91, 92, 93}
	ccc := []float64{50, 60, 40, 80}
	data := testMatrix(map[string][]float64{"AAA": aaa, "BBB": bbb, "CCC": ccc})

	result := analyzeZScore(data, testRenderer())
	if !strings.Contains(result.Summary, "Largest divergence observed for") {
		t.Fatalf("unexpected summary: %q", result.Summary)
	}
	if !strings.Contains(result.Summary, "CCC") {
		t.Fatalf("expected surviving pair to involve CCC: %q", result.Summary)
	}
}

func TestZScoreAntisymmetry(t *testing.T) {
	left := []float64{1, 2, 4, 8}
	right := []float64{8, 4, 2, 1}
	spread := make([]float64, len(left))
	for i := range spread {
		spread[i] = left[i] - right[i]
	}
	m := mean(spread)
	sd := pstdev(spread)
	z := (spread[len(spread)-1] - m) / sd

	reverse := make([]float64, len(left))
	for i := range reverse {
		reverse[i] = right[i] - left[i]
	}
	mRev := mean(reverse)
	sdRev := pstdev(reverse)
	zRev := (reverse[len(reverse)-1] - mRev) / sdRev

	if math.Abs(z+zRev) > 1e-9 {
		t.Fatalf("expected antisymmetric z-scores, got %v and %v", z, zRev)
	}
}
