package quantquery

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	chartWidth        = 820
	chartHeight       = 360
	chartMarginLeft   = 70
	chartMarginRight  = 30
	chartMarginTop    = 60
	chartMarginBottom = 60
	heatmapCellSize   = 60
)

var chartPalette = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd", "#8c564b",
}

// chartSeries is one named line on a chart. Slices keep legend order stable.
type chartSeries struct {
	Label  string
	Values []float64
}

// refLine is a dashed horizontal marker (RSI thresholds, z-score bands).
type refLine struct {
	Value float64
	Color string
}

// ChartRenderer persists rendered SVG charts and hands back URL references.
// With no directory configured it falls back to inline data URLs, which keeps
// the analytics tools usable without any filesystem setup.
type ChartRenderer struct {
	dir     string
	baseURL string
	logger  *slog.Logger
}

// NewChartRenderer creates a renderer writing into dir. baseURL, when not
// empty, prefixes returned chart URLs.
func NewChartRenderer(dir, baseURL string, logger *slog.Logger) *ChartRenderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChartRenderer{dir: dir, baseURL: strings.TrimRight(baseURL, "/"), logger: logger}
}

// save stores one SVG document and returns its reference.
func (r *ChartRenderer) save(svg string) string {
	if r == nil || r.dir == "" {
		return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(svg))
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		r.logger.Warn("chart dir unavailable, falling back to inline payload", "dir", r.dir, "err", err)
		return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(svg))
	}
	name := uuid.NewString() + ".svg"
	path := filepath.Join(r.dir, name)
	if err := os.WriteFile(path, []byte(svg), 0o644); err != nil {
		r.logger.Warn("chart write failed, falling back to inline payload", "path", path, "err", err)
		return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(svg))
	}
	return r.baseURL + "/static/visuals/" + name
}

// LineChart renders and stores a multi-series line chart.
func (r *ChartRenderer) LineChart(dates []string, series []chartSeries, title, yLabel string, refs []refLine) string {
	return r.save(buildLineChartSVG(dates, series, title, yLabel, refs))
}

// Heatmap renders and stores a labeled matrix heatmap.
func (r *ChartRenderer) Heatmap(matrix [][]float64, labels []string, title string) string {
	return r.save(buildHeatmapSVG(matrix, labels, title))
}

func buildLineChartSVG(dates []string, series []chartSeries, title, yLabel string, refs []refLine) string {
	if len(dates) == 0 {
		return "<svg xmlns='http://www.w3.org/2000/svg'></svg>"
	}

	plotWidth := float64(chartWidth - chartMarginLeft - chartMarginRight)
	plotHeight := float64(chartHeight - chartMarginTop - chartMarginBottom)

	yMin := math.Inf(1)
	yMax := math.Inf(-1)
	for _, s := range series {
		for _, v := range s.Values {
			yMin = math.Min(yMin, v)
			yMax = math.Max(yMax, v)
		}
	}
	if yMin == yMax {
		yMin--
		yMax++
	}

	toX := func(idx int) float64 {
		if len(dates) == 1 {
			return chartMarginLeft + plotWidth/2
		}
		return chartMarginLeft + plotWidth*float64(idx)/float64(len(dates)-1)
	}
	toY := func(value float64) float64 {
		return chartMarginTop + plotHeight - (value-yMin)/(yMax-yMin)*plotHeight
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<svg xmlns='http://www.w3.org/2000/svg' width='%d' height='%d' font-family='Arial'>", chartWidth, chartHeight)
	fmt.Fprintf(&b, "<text x='%d' y='30' text-anchor='middle' font-size='20'>%s</text>", chartWidth/2, title)
	fmt.Fprintf(&b, "<line x1='%d' y1='%d' x2='%d' y2='%d' stroke='#333'/>", chartMarginLeft, chartMarginTop, chartMarginLeft, chartHeight-chartMarginBottom)
	fmt.Fprintf(&b, "<line x1='%d' y1='%d' x2='%d' y2='%d' stroke='#333'/>", chartMarginLeft, chartHeight-chartMarginBottom, chartWidth-chartMarginRight, chartHeight-chartMarginBottom)
	fmt.Fprintf(&b, "<text x='%d' y='%.1f' transform='rotate(-90 %d,%.1f)' text-anchor='middle' font-size='14'>%s</text>",
		chartMarginLeft-40, chartMarginTop+plotHeight/2, chartMarginLeft-40, chartMarginTop+plotHeight/2, yLabel)

	for i := 0; i < 5; i++ {
		yValue := yMin + (yMax-yMin)*float64(i)/4
		yPos := toY(yValue)
		fmt.Fprintf(&b, "<line x1='%d' y1='%.1f' x2='%d' y2='%.1f' stroke='#e0e0e0' stroke-dasharray='4 4'/>",
			chartMarginLeft, yPos, chartWidth-chartMarginRight, yPos)
		fmt.Fprintf(&b, "<text x='%d' y='%.1f' text-anchor='end' font-size='12'>%.2f</text>", chartMarginLeft-10, yPos+4, yValue)
	}

	for _, ref := range refs {
		yPos := toY(ref.Value)
		fmt.Fprintf(&b, "<line x1='%d' y1='%.1f' x2='%d' y2='%.1f' stroke='%s' stroke-dasharray='6 3' stroke-width='1.5'/>",
			chartMarginLeft, yPos, chartWidth-chartMarginRight, yPos, ref.Color)
	}

	for idx, s := range series {
		color := chartPalette[idx%len(chartPalette)]
		var points strings.Builder
		for i, v := range s.Values {
			if i > 0 {
				points.WriteByte(' ')
			}
			fmt.Fprintf(&points, "%.1f,%.1f", toX(i), toY(v))
		}
		fmt.Fprintf(&b, "<polyline points='%s' fill='none' stroke='%s' stroke-width='2'/>", points.String(), color)
		if n := len(s.Values); n > 0 {
			fmt.Fprintf(&b, "<circle cx='%.1f' cy='%.1f' r='3' fill='%s'/>", toX(n-1), toY(s.Values[n-1]), color)
		}
		fmt.Fprintf(&b, "<text x='%d' y='%d' text-anchor='end' font-size='13' fill='%s'>%s</text>",
			chartWidth-chartMarginRight-10, chartMarginTop+20+idx*18, color, s.Label)
	}

	for _, idx := range selectAxisIndices(len(dates)) {
		fmt.Fprintf(&b, "<text x='%.1f' y='%d' text-anchor='middle' font-size='12'>%s</text>",
			toX(idx), chartHeight-chartMarginBottom+20, dates[idx])
	}

	b.WriteString("</svg>")
	return b.String()
}

// selectAxisIndices picks a sparse set of x-axis label positions.
func selectAxisIndices(n int) []int {
	if n == 0 {
		return nil
	}
	if n <= 4 {
		indices := make([]int, n)
		for i := range indices {
			indices[i] = i
		}
		return indices
	}
	indices := []int{0, n / 2, n - 1}
	seen := make(map[int]bool)
	var out []int
	for _, idx := range indices {
		if !seen[idx] {
			seen[idx] = true
			out = append(out, idx)
		}
	}
	return out
}

func buildHeatmapSVG(matrix [][]float64, labels []string, title string) string {
	if len(matrix) == 0 || len(labels) == 0 {
		return "<svg xmlns='http://www.w3.org/2000/svg'></svg>"
	}

	width := heatmapCellSize*len(labels) + 140
	height := heatmapCellSize*len(labels) + 140

	maxAbs := 0.0
	for _, row := range matrix {
		for _, v := range row {
			maxAbs = math.Max(maxAbs, math.Abs(v))
		}
	}
	if maxAbs == 0 {
		maxAbs = 1
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<svg xmlns='http://www.w3.org/2000/svg' width='%d' height='%d' font-family='Arial'>", width, height)
	fmt.Fprintf(&b, "<text x='%d' y='40' text-anchor='middle' font-size='20'>%s</text>", width/2, title)

	cold := [3]int{31, 119, 180}
	hot := [3]int{214, 39, 40}

	for i, row := range matrix {
		for j, v := range row {
			ratio := (v + maxAbs) / (2 * maxAbs)
			var rgb [3]int
			for c := 0; c < 3; c++ {
				rgb[c] = cold[c] + int(float64(hot[c]-cold[c])*ratio)
			}
			x := 80 + j*heatmapCellSize
			y := 80 + i*heatmapCellSize
			fmt.Fprintf(&b, "<rect x='%d' y='%d' width='%d' height='%d' fill='#%02x%02x%02x' stroke='#ffffff' stroke-width='1'/>",
				x, y, heatmapCellSize, heatmapCellSize, rgb[0], rgb[1], rgb[2])
			fmt.Fprintf(&b, "<text x='%d' y='%d' text-anchor='middle' font-size='14' fill='#ffffff'>%.2f</text>",
				x+heatmapCellSize/2, y+heatmapCellSize/2+5, v)
		}
	}

	for idx, label := range labels {
		x := 80 + idx*heatmapCellSize + heatmapCellSize/2
		fmt.Fprintf(&b, "<text x='%d' y='%d' text-anchor='middle' font-size='14'>%s</text>", x, height-40, label)
		y := 80 + idx*heatmapCellSize + heatmapCellSize/2
		fmt.Fprintf(&b, "<text x='40' y='%d' text-anchor='end' font-size='14'>%s</text>", y+5, label)
	}

	b.WriteString("</svg>")
	return b.String()
}
