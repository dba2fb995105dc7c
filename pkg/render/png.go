// Package render draws computed drift figures as static PNG plots
// (gonum/plot) and as an interactive HTML page (go-echarts).
package render

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"time"

	errorsmod "cosmossdk.io/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/oxygene76/drift-comparator/pkg/drift"
)

// ErrNoData is returned when a figure has no finite point to draw.
var ErrNoData = errorsmod.Register("render", 2, "no finite data to plot")

// Options controls figure rendering.
type Options struct {
	ShowTrend bool
	Width     vg.Length
	Height    vg.Length
}

// DefaultOptions draws the trend line on a 10x5 inch canvas.
func DefaultOptions() Options {
	return Options{ShowTrend: true, Width: 10 * vg.Inch, Height: 5 * vg.Inch}
}

func (o Options) size() (vg.Length, vg.Length) {
	w, h := o.Width, o.Height
	if w <= 0 {
		w = 10 * vg.Inch
	}
	if h <= 0 {
		h = 5 * vg.Inch
	}
	return w, h
}

var (
	darkBackground = color.RGBA{R: 0x0f, G: 0x11, B: 0x16, A: 0xff}
	darkGrid       = color.RGBA{R: 0x22, G: 0x22, B: 0x33, A: 0xff}
	foreground     = color.RGBA{R: 0xdd, G: 0xdd, B: 0xdd, A: 0xff}

	baselineColor  = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
	correctedColor = color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff}
	radialColor    = color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff}
	residualColor  = color.RGBA{R: 0x4f, G: 0xc3, B: 0xf7, A: 0xff}
	trendColor     = color.RGBA{R: 0xff, G: 0x52, B: 0x52, A: 0xff}
)

// points converts a series to plot coordinates (x in Unix seconds),
// dropping non-finite values.
func points(s drift.Series) plotter.XYs {
	pts := make(plotter.XYs, 0, len(s.Points))
	for _, p := range s.Points {
		if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
			continue
		}
		pts = append(pts, plotter.XY{X: unix(p.Time), Y: p.Value})
	}
	return pts
}

func unix(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func newTimePlot(title, ylabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Date (UTC)"
	p.Y.Label.Text = ylabel
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p
}

func styleDark(p *plot.Plot) {
	p.BackgroundColor = darkBackground
	p.Title.TextStyle.Color = foreground
	p.Legend.TextStyle.Color = foreground
	for _, ax := range []*plot.Axis{&p.X, &p.Y} {
		ax.Color = foreground
		ax.Label.TextStyle.Color = foreground
		ax.Tick.Color = foreground
		ax.Tick.Label.Color = foreground
	}

	grid := plotter.NewGrid()
	grid.Vertical.Color = darkGrid
	grid.Vertical.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	grid.Horizontal.Color = darkGrid
	grid.Horizontal.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	p.Add(grid)
}

func addLine(p *plot.Plot, s drift.Series, c color.Color) (int, error) {
	pts := points(s)
	if len(pts) == 0 {
		return 0, nil
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s line: %w", s.Name, err)
	}
	line.Color = c
	line.Width = vg.Points(1.5)
	p.Add(line)
	p.Legend.Add(s.Name, line)
	return len(pts), nil
}

// DriftPlot draws baseline and corrected drift over time.
func DriftPlot(f drift.Figures) (*plot.Plot, error) {
	p := newTimePlot("Drift Comparison: GR vs MQUDE", "Drift (km)")
	p.Add(plotter.NewGrid())

	nb, err := addLine(p, f.Baseline, baselineColor)
	if err != nil {
		return nil, err
	}
	nc, err := addLine(p, f.Corrected, correctedColor)
	if err != nil {
		return nil, err
	}
	if nb+nc == 0 {
		return nil, errorsmod.Wrap(ErrNoData, "drift figure")
	}
	return p, nil
}

// RadialPlot draws the radial distance over time.
func RadialPlot(f drift.Figures) (*plot.Plot, error) {
	p := newTimePlot("Radial Distance from Origin", "R (km)")
	p.Add(plotter.NewGrid())

	n, err := addLine(p, f.Radial, radialColor)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, errorsmod.Wrap(ErrNoData, "radial figure")
	}
	return p, nil
}

// ResidualPlot draws the dark-mode divergence figure: residual samples in
// metres, the dashed trend line and the projected residual at the target.
func ResidualPlot(f drift.Figures, o Options) (*plot.Plot, error) {
	p := newTimePlot(fmt.Sprintf("Phase II Divergence: MQUDE − GR (α = %g)", f.Params.Alpha), "Residual (m)")
	styleDark(p)

	pts := points(f.Residual)
	if len(pts) == 0 {
		return nil, errorsmod.Wrap(ErrNoData, "residual figure")
	}

	line, scatter, err := plotter.NewLinePoints(pts)
	if err != nil {
		return nil, fmt.Errorf("failed to create residual series: %w", err)
	}
	line.Color = residualColor
	line.Width = vg.Points(1)
	scatter.Color = residualColor
	scatter.Shape = draw.CircleGlyph{}
	scatter.Radius = vg.Points(2.5)
	p.Add(line, scatter)
	p.Legend.Add("Residual", line, scatter)

	if !o.ShowTrend {
		return p, nil
	}

	trendPts := points(f.TrendLine)
	proj := f.Projection
	if !math.IsNaN(proj.ResidualM) && !math.IsInf(proj.ResidualM, 0) && !proj.Target.IsZero() {
		trendPts = append(trendPts, plotter.XY{X: unix(proj.Target), Y: proj.ResidualM})
	}
	if len(trendPts) == 0 {
		return p, nil
	}

	trend, err := plotter.NewLine(trendPts)
	if err != nil {
		return nil, fmt.Errorf("failed to create trend line: %w", err)
	}
	trend.Color = trendColor
	trend.Width = vg.Points(1.5)
	trend.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}
	p.Add(trend)
	p.Legend.Add(TrendLabel(f.Trend), trend)

	if len(trendPts) > len(points(f.TrendLine)) {
		last := trendPts[len(trendPts)-1]
		labels, err := plotter.NewLabels(plotter.XYLabels{
			XYs:    plotter.XYs{last},
			Labels: []string{ProjectionLabel(proj)},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create projection label: %w", err)
		}
		for i := range labels.TextStyle {
			labels.TextStyle[i].Color = foreground
			labels.TextStyle[i].XAlign = text.XRight
		}
		p.Add(labels)
	}
	return p, nil
}

// TrendLabel formats the legend entry of the trend line.
func TrendLabel(t drift.Trend) string {
	return fmt.Sprintf("Trend ≈ %.2f m/day", t.Slope)
}

// ProjectionLabel formats the projected residual annotation.
func ProjectionLabel(p drift.Projection) string {
	return fmt.Sprintf("Projected residual by %s ≈ %.3f km", p.Target.Format("2006-01-02"), p.ResidualKm)
}

// SavePNG writes p to path using o's canvas size, creating the directory.
func SavePNG(p *plot.Plot, path string, o Options) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	w, h := o.size()
	if err := p.Save(w, h, path); err != nil {
		return fmt.Errorf("failed to save plot %s: %w", path, err)
	}
	return nil
}

// WriteResidualPNG renders and saves the divergence figure.
func WriteResidualPNG(path string, f drift.Figures, o Options) error {
	p, err := ResidualPlot(f, o)
	if err != nil {
		return err
	}
	return SavePNG(p, path, o)
}

// WriteDriftPNG renders and saves the drift comparison figure.
func WriteDriftPNG(path string, f drift.Figures, o Options) error {
	p, err := DriftPlot(f)
	if err != nil {
		return err
	}
	return SavePNG(p, path, o)
}

// WriteRadialPNG renders and saves the radial distance figure.
func WriteRadialPNG(path string, f drift.Figures, o Options) error {
	p, err := RadialPlot(f)
	if err != nil {
		return err
	}
	return SavePNG(p, path, o)
}
