package drift

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	errorsmod "cosmossdk.io/errors"
)

// WriteCSV writes r as a comma-separated table: the original columns in
// their original order, then DerivedColumns. Derived columns left over from
// an earlier export of the same data are dropped from the original set so
// they are not duplicated. Floats use the shortest exact representation.
func WriteCSV(w io.Writer, r *Result) error {
	keep := sourceColumns(r.Header)

	header := make([]string, 0, len(keep)+len(DerivedColumns))
	for _, i := range keep {
		header = append(header, r.Header[i])
	}
	header = append(header, DerivedColumns...)

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	alpha := formatFloat(r.Params.Alpha)
	lambda := formatFloat(r.Params.LambdaKm)
	record := make([]string, len(header))
	for _, row := range r.Rows {
		record = record[:0]
		for _, i := range keep {
			record = append(record, cell(row.Record, i))
		}
		record = append(record,
			formatFloat(row.RadialKm),
			formatFloat(row.BaselineKm),
			formatFloat(row.CorrectedKm),
			formatFloat(row.ResidualKm),
			formatFloat(row.ResidualM),
			alpha,
			lambda,
		)
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", row.Row, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes r to path, creating parent directories as needed.
func WriteCSVFile(path string, r *Result) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	if err := WriteCSV(file, r); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// ExportFileName returns the default export name for a run, in the
// "<date>T<hh-mm>_export.csv" form, in UTC.
func ExportFileName(now time.Time) string {
	return now.UTC().Format("2006-01-02T15-04") + "_export.csv"
}

// ResidualsFromExport rebuilds the sorted timestamp and residual (m) series
// from a previously exported table, without recomputing the model. Both the
// canonical *_km drift columns and the older unsuffixed names are accepted.
func ResidualsFromExport(t *Table) ([]time.Time, []float64, error) {
	baseName := firstPresent(t, ColBaseline, legacyBaseline)
	corrName := firstPresent(t, ColCorrected, legacyCorrected)

	var missing []string
	if !t.Has(ColTime) {
		missing = append(missing, ColTime)
	}
	if baseName == "" {
		missing = append(missing, ColBaseline)
	}
	if corrName == "" {
		missing = append(missing, ColCorrected)
	}
	if len(missing) > 0 {
		return nil, nil, &SchemaError{Missing: missing}
	}

	timeCol, baseCol, corrCol := t.Index(ColTime), t.Index(baseName), t.Index(corrName)

	type point struct {
		t time.Time
		m float64
	}
	points := make([]point, 0, t.Len())
	for i, record := range t.Rows {
		ts, err := ParseTime(cell(record, timeCol))
		if err != nil {
			return nil, nil, &ComputeError{Row: i + 1, Column: ColTime, Err: err}
		}
		base, err := strconv.ParseFloat(cell(record, baseCol), 64)
		if err != nil {
			return nil, nil, &ComputeError{Row: i + 1, Column: baseName, Err: numError(err)}
		}
		corr, err := strconv.ParseFloat(cell(record, corrCol), 64)
		if err != nil {
			return nil, nil, &ComputeError{Row: i + 1, Column: corrName, Err: numError(err)}
		}
		points = append(points, point{t: ts, m: (corr - base) * 1000.0})
	}

	sort.SliceStable(points, func(a, b int) bool { return points[a].t.Before(points[b].t) })

	times := make([]time.Time, len(points))
	residual := make([]float64, len(points))
	for i, p := range points {
		times[i] = p.t
		residual[i] = p.m
	}
	return times, residual, nil
}

// ParamsFromExport reads the alpha and lambda_km columns of an export, which
// are constant on every row. ok is false when the columns are absent or the
// table is empty.
func ParamsFromExport(t *Table) (p Params, ok bool, err error) {
	if t.Len() == 0 || !t.Has(ColAlpha) || !t.Has(ColLambda) {
		return Params{}, false, nil
	}
	first := t.Rows[0]
	if p.Alpha, err = strconv.ParseFloat(cell(first, t.Index(ColAlpha)), 64); err != nil {
		return Params{}, false, errorsmod.Wrapf(ErrInput, "column %s: %v", ColAlpha, numError(err))
	}
	if p.LambdaKm, err = strconv.ParseFloat(cell(first, t.Index(ColLambda)), 64); err != nil {
		return Params{}, false, errorsmod.Wrapf(ErrInput, "column %s: %v", ColLambda, numError(err))
	}
	return p, true, nil
}

func sourceColumns(header []string) []int {
	derived := make(map[string]bool, len(DerivedColumns)+2)
	for _, c := range DerivedColumns {
		derived[c] = true
	}
	derived[legacyBaseline] = true
	derived[legacyCorrected] = true

	keep := make([]int, 0, len(header))
	for i, h := range header {
		if !derived[h] {
			keep = append(keep, i)
		}
	}
	return keep
}

func firstPresent(t *Table, names ...string) string {
	for _, n := range names {
		if t.Has(n) {
			return n
		}
	}
	return ""
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
