package analysis

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxygene76/drift-comparator/internal/monitoring"
	"github.com/oxygene76/drift-comparator/internal/types"
	"github.com/oxygene76/drift-comparator/pkg/drift"
	"github.com/oxygene76/drift-comparator/pkg/utils"
)

const atlasCSV = `datetime_iso,X_km,Y_km,Z_km,VX_kms,VY_kms,VZ_kms
2025-10-04T00:00:00,-5081661.3522,13074361.3016,-245749113.0194,-32.8040,45.2158,39.1585
2025-10-01T00:00:00,3421139.8668,1354419.9695,-255898992.3378,-32.8040,45.2158,39.1585
`

var fixedNow = time.Date(2025, 11, 3, 11, 5, 0, 0, time.UTC)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	os.Exit(m.Run())
}

func newTestManager(t *testing.T, mutate func(*utils.Config)) (*Manager, string) {
	t.Helper()
	cfg := utils.DefaultConfig()
	cfg.Output.Dir = filepath.Join(t.TempDir(), "output")
	if mutate != nil {
		mutate(cfg)
	}
	m := NewManager(cfg)
	m.now = func() time.Time { return fixedNow }
	return m, cfg.Output.Dir
}

func writeInput(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.csv")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestAnalyze(t *testing.T) {
	m, _ := newTestManager(t, nil)

	a, err := m.Analyze(writeInput(t, atlasCSV))
	require.NoError(t, err)
	require.Equal(t, 2, a.Result.Len())

	assert.Zero(t, a.Result.Rows[0].BaselineKm)
	assert.True(t, a.Result.Rows[0].Time.Before(a.Result.Rows[1].Time))
	assert.Equal(t, types.StatusCompleted, a.Report.Status)
	assert.Equal(t, Version, a.Report.Metadata.Version)
	assert.Equal(t, "strict", a.Report.Metadata.Profile)
	require.NotNil(t, a.Report.Summary)
	assert.Equal(t, 2, a.Report.Summary.Rows)
	require.NotNil(t, a.Report.Projection)
	assert.Equal(t, "2026-03-01", a.Report.Projection.Target.Format("2006-01-02"))
	assert.True(t, a.Summary.AmplificationDefined)
}

func TestAnalyze_StrictProfileRejectsPositionsOnly(t *testing.T) {
	input := writeInput(t, "datetime_iso,X_km,Y_km,Z_km\n2025-10-01,1,2,3\n")

	strict, _ := newTestManager(t, nil)
	_, err := strict.Analyze(input)
	var se *drift.SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, []string{drift.ColVX, drift.ColVY, drift.ColVZ}, se.Missing)

	minimal, _ := newTestManager(t, func(c *utils.Config) { c.Schema.Profile = "minimal" })
	a, err := minimal.Analyze(input)
	require.NoError(t, err)
	assert.Equal(t, 1, a.Result.Len())
}

func TestAnalyze_MissingFile(t *testing.T) {
	m, _ := newTestManager(t, nil)
	_, err := m.Analyze(filepath.Join(t.TempDir(), "nope.csv"))
	assert.ErrorIs(t, err, drift.ErrInput)
}

func TestExportAndTrendFromExport(t *testing.T) {
	m, dir := newTestManager(t, func(c *utils.Config) {
		c.Schema.Profile = "minimal"
		c.Model.Alpha = 0.5
	})

	var b strings.Builder
	b.WriteString("datetime_iso,X_km,Y_km,Z_km\n")
	for i := 0; i < 6; i++ {
		fmt.Fprintf(&b, "2025-10-%02d,%d,0,0\n", 1+i, 1000000+i*500000)
	}

	a, err := m.AnalyzeTable(mustRead(t, b.String()), "inline")
	require.NoError(t, err)

	path, err := m.Export(a)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "2025-11-03T11-05_export.csv"), path)

	reportPath := filepath.Join(dir, "2025-11-03T11-05_export_report.json")
	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	report, err := types.ReportFromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, a.Report.ID, report.ID)
	assert.Equal(t, []string{path, reportPath}, report.Metadata.OutputFiles)

	// Projecting from the export reproduces the in-memory trend.
	other, _ := newTestManager(t, nil)
	fromExport, err := other.TrendFromExport(path)
	require.NoError(t, err)
	assert.Nil(t, fromExport.Result)
	assert.True(t, fromExport.Report.Metadata.FromExport)
	assert.Equal(t, 0.5, fromExport.Figures.Params.Alpha)
	assert.InEpsilon(t, a.Figures.Trend.Slope, fromExport.Figures.Trend.Slope, 1e-9)
	assert.InEpsilon(t, a.Figures.Projection.ResidualM, fromExport.Figures.Projection.ResidualM, 1e-9)
	require.NotNil(t, fromExport.Report.Summary)
	assert.Equal(t, 6, fromExport.Report.Summary.Rows)
	assert.Equal(t, "2025-10-01T00:00:00Z", fromExport.Report.Summary.First.Format(time.RFC3339))
	assert.Nil(t, fromExport.Report.Summary.MinRadialKm)
	assert.Nil(t, fromExport.Report.Summary.MaxRadialKm)
	require.NotNil(t, fromExport.Report.Summary.MaxAbsResidualM)
	assert.InEpsilon(t, *a.Report.Summary.MaxAbsResidualM, *fromExport.Report.Summary.MaxAbsResidualM, 1e-9)
}

func TestTrendFromExport_FallsBackToConfiguredParams(t *testing.T) {
	m, _ := newTestManager(t, nil)
	input := writeInput(t, "datetime_iso,GR_drift,MQUDE_drift\n2025-10-01,0,0\n2025-10-02,1,1.001\n")

	a, err := m.TrendFromExport(input)
	require.NoError(t, err)
	assert.Equal(t, drift.DefaultParams(), a.Figures.Params)
	assert.InDelta(t, 1.0, a.Figures.Trend.Slope, 1e-6)
	assert.Equal(t, 2, a.Summary.Rows)
}

func TestRender(t *testing.T) {
	m, dir := newTestManager(t, nil)
	a, err := m.Analyze(writeInput(t, atlasCSV))
	require.NoError(t, err)

	written, err := m.Render(a)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "2025-11-03T11-05_drift.png"),
		filepath.Join(dir, "2025-11-03T11-05_radial.png"),
		filepath.Join(dir, "2025-11-03T11-05_residual.png"),
		filepath.Join(dir, "2025-11-03T11-05_charts.html"),
	}, written)
	for _, p := range written {
		_, err := os.Stat(p)
		assert.NoError(t, err, p)
	}
	assert.Equal(t, types.RunPlot, a.Report.Type)
}

func TestRender_FromExportOnlyResidual(t *testing.T) {
	m, dir := newTestManager(t, func(c *utils.Config) { c.Output.HTML = false })
	a, err := m.TrendFromExport(writeInput(t, "datetime_iso,GR_drift_km,MQUDE_drift_km\n2025-10-01,0,0\n2025-10-02,1,1.5\n"))
	require.NoError(t, err)

	written, err := m.Render(a)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "2025-11-03T11-05_residual.png")}, written)
}

func TestRender_EmptyTableSkipsFigures(t *testing.T) {
	m, dir := newTestManager(t, func(c *utils.Config) { c.Schema.Profile = "minimal" })
	a, err := m.AnalyzeTable(mustRead(t, "datetime_iso,X_km,Y_km,Z_km\n"), "inline")
	require.NoError(t, err)
	require.Zero(t, a.Result.Len())

	written, err := m.Render(a)
	require.NoError(t, err)
	assert.Empty(t, written)
	assert.Equal(t, types.StatusCompleted, a.Report.Status)

	entries, err := os.ReadDir(dir)
	if err == nil {
		assert.Empty(t, entries)
	}
}

func TestRender_FailureMarksReport(t *testing.T) {
	parent := t.TempDir()
	blocker := filepath.Join(parent, "output")
	require.NoError(t, os.WriteFile(blocker, []byte("not a directory"), 0644))
	m, _ := newTestManager(t, func(c *utils.Config) { c.Output.Dir = blocker })

	a, err := m.Analyze(writeInput(t, atlasCSV))
	require.NoError(t, err)

	_, err = m.Render(a)
	require.Error(t, err)
	assert.Equal(t, types.StatusFailed, a.Report.Status)
	assert.Contains(t, a.Report.Error, "failed to render")

	_, err = m.Export(a)
	require.Error(t, err)
	assert.Contains(t, a.Report.Error, "failed to export")
}

func TestWriteReport_RecordsFailure(t *testing.T) {
	m, dir := newTestManager(t, nil)
	a, err := m.Analyze(writeInput(t, atlasCSV))
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "2025-11-03T11-05_residual.png"), 0755))

	_, err = m.Render(a)
	require.Error(t, err)

	path, err := m.WriteReport(a)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	report, err := types.ReportFromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, types.StatusFailed, report.Status)
	assert.Equal(t, types.RunPlot, report.Type)
	assert.Contains(t, report.Metadata.OutputFiles, filepath.Join(dir, "2025-11-03T11-05_drift.png"))
}

func TestWritePreviewAndSummary(t *testing.T) {
	m, _ := newTestManager(t, nil)
	a, err := m.Analyze(writeInput(t, atlasCSV))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WritePreview(&buf, a, 1))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Residual_m")
	assert.Contains(t, lines[1], "2025-10-01 00:00:00")

	buf.Reset()
	require.NoError(t, WriteSummary(&buf, a))
	out := buf.String()
	assert.Contains(t, out, "rows")
	assert.Contains(t, out, "amplification")
	assert.Contains(t, out, "Trend ≈")
	assert.Contains(t, out, "Projected residual by 2026-03-01")
	assert.Contains(t, out, "mean speed")
	require.NotNil(t, a.Report.Summary.MeanSpeedKms)
	assert.Equal(t, 2, a.Report.Summary.VelocityRows)
}

func TestWriteSummary_SingleRowAmplificationUndefined(t *testing.T) {
	m, _ := newTestManager(t, func(c *utils.Config) { c.Schema.Profile = "minimal" })
	a, err := m.AnalyzeTable(mustRead(t, "datetime_iso,X_km,Y_km,Z_km\n2025-10-01,1,2,3\n"), "inline")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, a))
	assert.Contains(t, buf.String(), "undefined")
	assert.Contains(t, buf.String(), "degenerate")
}

func mustRead(t *testing.T, csv string) *drift.Table {
	t.Helper()
	tbl, err := drift.ReadCSV(strings.NewReader(csv))
	require.NoError(t, err)
	return tbl
}
