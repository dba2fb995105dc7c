package render

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	errorsmod "cosmossdk.io/errors"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/oxygene76/drift-comparator/pkg/drift"
)

const dateLayout = "2006-01-02 15:04"

// lineData maps series values to chart data. Non-finite values become "-",
// which echarts draws as a gap.
func lineData(s drift.Series) []opts.LineData {
	data := make([]opts.LineData, len(s.Points))
	for i, p := range s.Points {
		if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
			data[i] = opts.LineData{Value: "-"}
			continue
		}
		data[i] = opts.LineData{Value: p.Value}
	}
	return data
}

func axisLabels(s drift.Series) []string {
	x := make([]string, len(s.Points))
	for i, p := range s.Points {
		x[i] = p.Time.UTC().Format(dateLayout)
	}
	return x
}

func newLineChart(title, subtitle, yname string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Drift Comparator", Theme: "dark", Width: "1100px", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10%"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Date (UTC)", NameLocation: "middle", NameGap: 30}),
		charts.WithYAxisOpts(opts.YAxis{Name: yname, NameLocation: "middle", NameGap: 70}),
	)
	return line
}

// Charts builds the interactive drift, radial and residual charts.
func Charts(f drift.Figures, o Options) ([]*charts.Line, error) {
	if len(f.Residual.Points) == 0 {
		return nil, errorsmod.Wrap(ErrNoData, "html figures")
	}
	subtitle := fmt.Sprintf("α = %g, λ = %g km", f.Params.Alpha, f.Params.LambdaKm)

	driftChart := newLineChart("Drift Comparison: GR vs MQUDE", subtitle, "Drift (km)")
	driftChart.SetXAxis(axisLabels(f.Baseline)).
		AddSeries(f.Baseline.Name, lineData(f.Baseline), charts.WithItemStyleOpts(opts.ItemStyle{Color: "#1f77b4"})).
		AddSeries(f.Corrected.Name, lineData(f.Corrected), charts.WithItemStyleOpts(opts.ItemStyle{Color: "#ff7f0e"}))

	radialChart := newLineChart("Radial Distance from Origin", subtitle, "R (km)")
	radialChart.SetXAxis(axisLabels(f.Radial)).
		AddSeries(f.Radial.Name, lineData(f.Radial), charts.WithItemStyleOpts(opts.ItemStyle{Color: "#2ca02c"}))

	residualSubtitle := subtitle
	if o.ShowTrend {
		residualSubtitle = fmt.Sprintf("%s | %s | %s", subtitle, TrendLabel(f.Trend), ProjectionLabel(f.Projection))
	}
	residualChart := newLineChart("Phase II Divergence: MQUDE − GR", residualSubtitle, "Residual (m)")
	residualChart.SetXAxis(axisLabels(f.Residual)).
		AddSeries(f.Residual.Name, lineData(f.Residual), charts.WithItemStyleOpts(opts.ItemStyle{Color: "#4fc3f7"}))
	if o.ShowTrend {
		residualChart.AddSeries(TrendLabel(f.Trend), lineData(f.TrendLine),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: "#ff5252"}),
			charts.WithLineStyleOpts(opts.LineStyle{Color: "#ff5252", Type: "dashed"}),
		)
	}

	return []*charts.Line{driftChart, radialChart, residualChart}, nil
}

// WriteHTML renders all charts onto a single page.
func WriteHTML(w io.Writer, f drift.Figures, o Options) error {
	lines, err := Charts(f, o)
	if err != nil {
		return err
	}

	page := components.NewPage()
	page.PageTitle = "Drift Comparator"
	for _, l := range lines {
		page.AddCharts(l)
	}

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return fmt.Errorf("failed to render charts: %w", err)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write charts: %w", err)
	}
	return nil
}

// WriteHTMLFile writes the chart page to path, creating the directory.
// Nothing is created when there is no residual to chart.
func WriteHTMLFile(path string, f drift.Figures, o Options) error {
	if len(f.Residual.Points) == 0 {
		return errorsmod.Wrap(ErrNoData, "html page")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()
	return WriteHTML(file, f, o)
}
