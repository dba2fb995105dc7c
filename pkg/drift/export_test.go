package drift

import (
	"bytes"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertClose(t *testing.T, want, got float64, msgAndArgs ...interface{}) {
	t.Helper()
	tol := 1e-9 * math.Max(1, math.Abs(want))
	assert.InDelta(t, want, got, tol, msgAndArgs...)
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	t.Parallel()

	p := Params{Alpha: 0.25, LambdaKm: 3e6}
	res, err := Compute(alongX(t, 1.5e6, 7.3e5, 8), p)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, res))

	back, err := ReadCSV(&buf)
	require.NoError(t, err)
	require.Equal(t, res.Len(), back.Len())

	wantHeader := append([]string{ColTime, ColX, ColY, ColZ}, DerivedColumns...)
	if diff := cmp.Diff(wantHeader, back.Header); diff != "" {
		t.Fatalf("export header mismatch (-want +got):\n%s", diff)
	}

	for i, row := range res.Rows {
		rec := back.Rows[i]
		get := func(col string) float64 {
			v, err := strconv.ParseFloat(rec[back.Index(col)], 64)
			require.NoError(t, err)
			return v
		}
		assertClose(t, row.RadialKm, get(ColRadial), "row %d R_km", i)
		assertClose(t, row.BaselineKm, get(ColBaseline), "row %d GR_drift_km", i)
		assertClose(t, row.CorrectedKm, get(ColCorrected), "row %d MQUDE_drift_km", i)
		assertClose(t, row.ResidualKm, get(ColResidualKm), "row %d Residual_km", i)
		assert.Equal(t, 0.25, get(ColAlpha))
		assert.Equal(t, 3e6, get(ColLambda))
	}

	// Re-reading the export as input and recomputing with the same
	// parameters gives the same derived values.
	again, err := Compute(back, p)
	require.NoError(t, err)
	for i := range res.Rows {
		assertClose(t, res.Rows[i].CorrectedKm, again.Rows[i].CorrectedKm)
	}
}

func TestWriteCSV_CarriesExtraColumnsAndDropsStaleDerived(t *testing.T) {
	t.Parallel()
	tbl := mustTable(t, `target,datetime_iso,X_km,Y_km,Z_km,VX_kms,VY_kms,VZ_kms,GR_drift,R_km
3I,2025-10-02,6,8,0,1,2,3,99,99
3I,2025-10-01,3,4,0,1,2,3,99,99
`)
	res, err := Compute(tbl, DefaultParams())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, res))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t,
		"target,datetime_iso,X_km,Y_km,Z_km,VX_kms,VY_kms,VZ_kms,R_km,GR_drift_km,MQUDE_drift_km,Residual_km,Residual_m,alpha,lambda_km",
		lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "3I,2025-10-01,3,4,0,1,2,3,5,0,0,0,0,2e-09,1e+06"), lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "3I,2025-10-02,6,8,0,1,2,3,10,5,"), lines[2])
}

func TestWriteCSVFile(t *testing.T) {
	res, err := Compute(mustTable(t, atlasCSV), DefaultParams())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "nested", "out.csv")
	require.NoError(t, WriteCSVFile(path, res))

	back, err := ReadCSVFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, back.Len())
}

func TestExportFileName(t *testing.T) {
	now := time.Date(2025, 11, 3, 11, 5, 42, 0, time.UTC)
	assert.Equal(t, "2025-11-03T11-05_export.csv", ExportFileName(now))
}

func TestResidualsFromExport(t *testing.T) {
	t.Parallel()

	t.Run("canonical names", func(t *testing.T) {
		t.Parallel()
		res, err := Compute(alongX(t, 1e6, 1e6, 4), Params{Alpha: 0.5, LambdaKm: 1e6})
		require.NoError(t, err)
		var buf bytes.Buffer
		require.NoError(t, WriteCSV(&buf, res))

		times, resid, err := ResidualsFromExport(mustTable(t, buf.String()))
		require.NoError(t, err)
		require.Len(t, times, 4)
		for i := range resid {
			assertClose(t, res.Rows[i].ResidualM, resid[i])
			assert.True(t, res.Rows[i].Time.Equal(times[i]))
		}
	})

	t.Run("legacy unsuffixed names, unsorted", func(t *testing.T) {
		t.Parallel()
		tbl := mustTable(t, `datetime_iso,GR_drift,MQUDE_drift
2025-10-03,2,2.004
2025-10-01,0,0
2025-10-02,1,1.001
`)
		times, resid, err := ResidualsFromExport(tbl)
		require.NoError(t, err)
		assert.True(t, times[0].Equal(t0))
		assert.InDelta(t, 0, resid[0], 1e-9)
		assert.InDelta(t, 1, resid[1], 1e-6)
		assert.InDelta(t, 4, resid[2], 1e-6)

		tr := FitTrend(times, resid)
		assert.InDelta(t, 2.0, tr.Slope, 1e-6)
	})

	t.Run("missing drift columns", func(t *testing.T) {
		t.Parallel()
		_, _, err := ResidualsFromExport(mustTable(t, "datetime_iso,X_km\n2025-10-01,1\n"))
		var se *SchemaError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, []string{ColBaseline, ColCorrected}, se.Missing)
	})

	t.Run("bad cell", func(t *testing.T) {
		t.Parallel()
		_, _, err := ResidualsFromExport(mustTable(t, "datetime_iso,GR_drift_km,MQUDE_drift_km\n2025-10-01,x,1\n"))
		var ce *ComputeError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, 1, ce.Row)
		assert.Equal(t, ColBaseline, ce.Column)
	})
}

func TestParamsFromExport(t *testing.T) {
	p, ok, err := ParamsFromExport(mustTable(t, "alpha,lambda_km\n2.1e-09,5e+05\n"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, Params{Alpha: 2.1e-9, LambdaKm: 5e5}, p)

	_, ok, err = ParamsFromExport(mustTable(t, "datetime_iso\n2025-10-01\n"))
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = ParamsFromExport(mustTable(t, "alpha,lambda_km\nx,1\n"))
	assert.ErrorIs(t, err, ErrInput)
}

func TestWriteTemplate(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTemplate(&buf, ProfileMinimal, false))
	assert.Equal(t, "datetime_iso,X_km,Y_km,Z_km\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteTemplate(&buf, ProfileStrict, true))
	tbl := mustTable(t, buf.String())
	_, err := Validate(tbl, ProfileStrict.Columns())
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())

	_, err = Compute(tbl, DefaultParams())
	assert.NoError(t, err)
}
