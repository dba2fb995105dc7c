package analysis

import (
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/oxygene76/drift-comparator/internal/monitoring"
	"github.com/oxygene76/drift-comparator/internal/types"
	"github.com/oxygene76/drift-comparator/pkg/drift"
	"github.com/oxygene76/drift-comparator/pkg/render"
	"github.com/oxygene76/drift-comparator/pkg/utils"
)

// Version is recorded in every run report.
const Version = "1.0.0"

// Manager runs comparator pipelines with a fixed configuration
type Manager struct {
	config *utils.Config
	now    func() time.Time
}

// NewManager creates a new analysis manager. A nil config uses the defaults.
func NewManager(config *utils.Config) *Manager {
	if config == nil {
		config = utils.DefaultConfig()
	}
	return &Manager{config: config, now: time.Now}
}

// Analysis is a computed table with everything derived from it
type Analysis struct {
	Result  *drift.Result
	Figures drift.Figures
	Summary drift.Summary
	Report  *types.RunReport
}

// Analyze reads inputFile, checks it against the configured schema profile
// and computes the drift series.
func (m *Manager) Analyze(inputFile string) (*Analysis, error) {
	monitoring.Infof("Starting drift comparison on file: %s", inputFile)

	table, err := drift.ReadCSVFile(inputFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load input: %w", err)
	}
	monitoring.Infof("Loaded %d rows with %d columns", table.Len(), len(table.Header))

	return m.AnalyzeTable(table, inputFile)
}

// AnalyzeTable is Analyze for a table already in memory. source is recorded
// in the report.
func (m *Manager) AnalyzeTable(table *drift.Table, source string) (*Analysis, error) {
	start := m.now()
	report := m.newReport(types.RunCompute, source)

	if _, err := drift.Validate(table, m.config.Profile().Columns()); err != nil {
		return nil, err
	}

	result, err := drift.Compute(table, m.config.Params())
	if err != nil {
		return nil, err
	}

	target, err := m.config.ProjectionDate()
	if err != nil {
		return nil, err
	}

	a := &Analysis{
		Result:  result,
		Figures: result.Figures(target),
		Summary: result.Summarize(),
		Report:  report,
	}
	fillReport(report, a.Summary, a.Figures.Trend, a.Figures.Projection)
	warnDegenerate(a.Figures.Trend, a.Summary.NonFiniteRows)

	for _, row := range result.Rows {
		monitoring.Debugf("row %d %s R=%g km residual=%g m", row.Row, row.Time.Format(time.RFC3339), row.RadialKm, row.ResidualM)
	}

	report.Duration = m.now().Sub(start)
	monitoring.Infof("Computed %d rows, trend %.4f m/day, projected %.6f km by %s",
		result.Len(), a.Figures.Trend.Slope, a.Figures.Projection.ResidualKm, target.Format("2006-01-02"))
	return a, nil
}

// Export writes the enriched CSV and the JSON run report to the output
// directory and returns the CSV path.
func (m *Manager) Export(a *Analysis) (string, error) {
	dir := m.config.Output.Dir
	path := filepath.Join(dir, drift.ExportFileName(a.Report.Timestamp))

	if err := drift.WriteCSVFile(path, a.Result); err != nil {
		err = fmt.Errorf("failed to export: %w", err)
		a.Report.Fail(err)
		return "", err
	}
	a.Report.AddOutput(path)
	monitoring.Infof("Exported %d rows to %s", a.Result.Len(), path)

	if _, err := m.WriteReport(a); err != nil {
		return "", err
	}
	return path, nil
}

// WriteReport writes a's run report as JSON next to the export and returns
// its path. A failed run is written with status failed and its error.
func (m *Manager) WriteReport(a *Analysis) (string, error) {
	name := strings.TrimSuffix(drift.ExportFileName(a.Report.Timestamp), ".csv") + "_report.json"
	path := filepath.Join(m.config.Output.Dir, name)
	a.Report.AddOutput(path)
	if err := a.Report.WriteJSON(path); err != nil {
		return "", err
	}
	monitoring.Infof("Wrote run report %s", path)
	return path, nil
}

// Render writes the configured figures (PNG and/or HTML) to the output
// directory and returns the paths written. A figure with nothing finite to
// draw, such as one from an empty table, is skipped with a warning. Any
// other failure marks the report failed.
func (m *Manager) Render(a *Analysis) ([]string, error) {
	a.Report.Type = types.RunPlot
	opt := render.DefaultOptions()
	opt.ShowTrend = m.config.Output.ShowTrend

	base := strings.TrimSuffix(drift.ExportFileName(a.Report.Timestamp), "_export.csv")
	dir := m.config.Output.Dir

	var written []string
	if m.config.Output.PNG {
		pngs := []struct {
			suffix string
			write  func(string, drift.Figures, render.Options) error
		}{
			{"_drift.png", render.WriteDriftPNG},
			{"_radial.png", render.WriteRadialPNG},
			{"_residual.png", render.WriteResidualPNG},
		}
		for _, p := range pngs {
			if len(a.Figures.Baseline.Points) == 0 && p.suffix != "_residual.png" {
				continue
			}
			path := filepath.Join(dir, base+p.suffix)
			if err := p.write(path, a.Figures, opt); err != nil {
				if errors.Is(err, render.ErrNoData) {
					monitoring.Warnf("skipping %s: %v", path, err)
					continue
				}
				return written, m.renderFailed(a, written, path, err)
			}
			written = append(written, path)
		}
	}

	if m.config.Output.HTML {
		path := filepath.Join(dir, base+"_charts.html")
		if err := render.WriteHTMLFile(path, a.Figures, opt); err != nil {
			if !errors.Is(err, render.ErrNoData) {
				return written, m.renderFailed(a, written, path, err)
			}
			monitoring.Warnf("skipping %s: %v", path, err)
		} else {
			written = append(written, path)
		}
	}

	recordFigures(a, written)
	return written, nil
}

func (m *Manager) renderFailed(a *Analysis, written []string, path string, err error) error {
	recordFigures(a, written)
	err = fmt.Errorf("failed to render %s: %w", path, err)
	a.Report.Fail(err)
	return err
}

func recordFigures(a *Analysis, written []string) {
	for _, p := range written {
		a.Report.AddOutput(p)
		monitoring.Infof("Wrote figure %s", p)
	}
}

// TrendFromExport fits and projects the residual trend of a previously
// exported CSV without recomputing the model. The returned Analysis has no
// Result; its Figures carry only the residual and trend series.
func (m *Manager) TrendFromExport(inputFile string) (*Analysis, error) {
	start := m.now()
	monitoring.Infof("Reading residuals from export: %s", inputFile)

	table, err := drift.ReadCSVFile(inputFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load export: %w", err)
	}

	times, residualM, err := drift.ResidualsFromExport(table)
	if err != nil {
		return nil, err
	}

	params, ok, err := drift.ParamsFromExport(table)
	if err != nil {
		return nil, err
	}
	if !ok {
		params = m.config.Params()
	}

	target, err := m.config.ProjectionDate()
	if err != nil {
		return nil, err
	}

	f := residualFigures(times, residualM, params, target)
	report := m.newReport(types.RunTrend, inputFile)
	report.Metadata.FromExport = true
	report.Metadata.Parameters = types.ModelParameters{Alpha: params.Alpha, LambdaKm: params.LambdaKm}

	summary := drift.Summary{Rows: len(times)}
	if len(times) > 0 {
		summary.First, summary.Last = times[0], times[len(times)-1]
		abs := make([]float64, len(residualM))
		for i, v := range residualM {
			abs[i] = math.Abs(v)
		}
		summary.MaxAbsResidualM = floats.Max(abs)
	}
	fillReport(report, summary, f.Trend, f.Projection)
	// Radial distance is not part of an export's drift columns.
	report.Summary.MinRadialKm = nil
	report.Summary.MaxRadialKm = nil
	warnDegenerate(f.Trend, 0)

	report.Duration = m.now().Sub(start)
	return &Analysis{Figures: f, Summary: summary, Report: report}, nil
}

func residualFigures(times []time.Time, residualM []float64, p drift.Params, target time.Time) drift.Figures {
	trend := drift.FitTrend(times, residualM)
	f := drift.Figures{
		Residual:  drift.Series{Name: "Residual (MQUDE − GR)", Unit: "m", Points: make([]drift.Point, len(times))},
		TrendLine: drift.Series{Name: "Trend", Unit: "m", Points: make([]drift.Point, len(times))},
		Trend:     trend,
		Params:    p,
	}
	for i, ts := range times {
		f.Residual.Points[i] = drift.Point{Time: ts, Value: residualM[i]}
		f.TrendLine.Points[i] = drift.Point{Time: ts, Value: trend.At(ts)}
	}
	f.Projection = trend.Project(target)
	return f
}

// WritePreview prints the first n enriched rows as an aligned table.
func WritePreview(w io.Writer, a *Analysis, n int) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "row\tdatetime\tR_km\tGR_drift_km\tMQUDE_drift_km\tResidual_m")
	if a.Result != nil {
		for i, row := range a.Result.Rows {
			if i >= n {
				break
			}
			fmt.Fprintf(tw, "%d\t%s\t%.6g\t%.6g\t%.6g\t%.6g\n",
				row.Row, row.Time.Format("2006-01-02 15:04:05"), row.RadialKm, row.BaselineKm, row.CorrectedKm, row.ResidualM)
		}
	}
	return tw.Flush()
}

// WriteSummary prints a short human readable description of a.
func WriteSummary(w io.Writer, a *Analysis) error {
	s := a.Summary
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "rows\t%d\n", s.Rows)
	if s.Rows > 0 {
		fmt.Fprintf(tw, "span\t%s .. %s\n", s.First.Format(time.RFC3339), s.Last.Format(time.RFC3339))
	}
	if a.Result != nil && s.Rows > 0 {
		fmt.Fprintf(tw, "radial distance\t%.6g .. %.6g km\n", s.MinRadialKm, s.MaxRadialKm)
		fmt.Fprintf(tw, "max |residual|\t%.6g m\n", s.MaxAbsResidualM)
		if s.AmplificationDefined {
			fmt.Fprintf(tw, "amplification\t%.12g\n", s.Amplification)
		} else {
			fmt.Fprintln(tw, "amplification\tundefined")
		}
		if s.NonFiniteRows > 0 {
			fmt.Fprintf(tw, "non-finite rows\t%d\n", s.NonFiniteRows)
		}
		if s.VelocityRows > 0 {
			fmt.Fprintf(tw, "mean speed\t%.6g km/s (%d rows)\n", s.MeanSpeedKms, s.VelocityRows)
		}
	}
	f := a.Figures
	fmt.Fprintf(tw, "parameters\tα = %g, λ = %g km\n", f.Params.Alpha, f.Params.LambdaKm)
	fmt.Fprintf(tw, "trend\t%s\n", render.TrendLabel(f.Trend))
	if f.Trend.Degenerate {
		fmt.Fprintln(tw, "\t(degenerate fit)")
	}
	fmt.Fprintf(tw, "projection\t%s\n", render.ProjectionLabel(f.Projection))
	return tw.Flush()
}

func (m *Manager) newReport(runType, source string) *types.RunReport {
	r := types.NewRunReport(runType, source)
	r.Timestamp = m.now().UTC()
	r.Metadata.Version = Version
	r.Metadata.Profile = string(m.config.Profile())
	p := m.config.Params()
	r.Metadata.Parameters = types.ModelParameters{Alpha: p.Alpha, LambdaKm: p.LambdaKm}
	return r
}

// fillReport copies the derived values into r.
func fillReport(r *types.RunReport, s drift.Summary, t drift.Trend, p drift.Projection) {
	r.Summary = &types.SummaryReport{
		Rows:            s.Rows,
		First:           s.First,
		Last:            s.Last,
		MinRadialKm:     types.Finite(s.MinRadialKm),
		MaxRadialKm:     types.Finite(s.MaxRadialKm),
		MaxAbsResidualM: types.Finite(s.MaxAbsResidualM),
		NonFiniteRows:   s.NonFiniteRows,
		VelocityRows:    s.VelocityRows,
	}
	if s.VelocityRows > 0 {
		r.Summary.MeanSpeedKms = types.Finite(s.MeanSpeedKms)
	}
	if s.AmplificationDefined {
		r.Summary.Amplification = types.Finite(s.Amplification)
	}
	r.Trend = &types.TrendReport{
		SlopeMPerDay: t.Slope,
		InterceptM:   types.Finite(t.Intercept),
		T0:           t.T0,
		Samples:      t.Samples,
		Degenerate:   t.Degenerate,
	}
	r.Projection = &types.ProjectionData{
		Target:     p.Target,
		ResidualM:  types.Finite(p.ResidualM),
		ResidualKm: types.Finite(p.ResidualKm),
	}
}

func warnDegenerate(t drift.Trend, nonFinite int) {
	if nonFinite > 0 {
		monitoring.Warnf("%d rows have non-finite positions", nonFinite)
	}
	if t.Degenerate && t.Samples > 1 {
		monitoring.Warnf("residual trend is degenerate (non-finite residuals); using a flat line")
	}
}
