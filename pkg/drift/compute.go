package drift

import (
	"errors"
	"math"
	"sort"
	"strconv"
	"time"

	astromath "github.com/oxygene76/drift-comparator/pkg/astronomy/math"
)

// Default model parameters.
const (
	DefaultAlpha    = 2e-9
	DefaultLambdaKm = 1e6
)

// Params holds the two free scalars of the corrected model.
type Params struct {
	Alpha    float64 // coupling strength, dimensionless, >= 0
	LambdaKm float64 // coherence length in km, > 0
}

// DefaultParams returns alpha = 2e-9 and lambda = 1e6 km.
func DefaultParams() Params {
	return Params{Alpha: DefaultAlpha, LambdaKm: DefaultLambdaKm}
}

// Validate checks the parameter preconditions.
func (p Params) Validate() error {
	if math.IsNaN(p.LambdaKm) || math.IsInf(p.LambdaKm, 0) || p.LambdaKm <= 0 {
		return &ComputeError{Param: ColLambda, Err: errors.New("coherence length must be a finite value > 0")}
	}
	if math.IsNaN(p.Alpha) || math.IsInf(p.Alpha, 0) || p.Alpha < 0 {
		return &ComputeError{Param: ColAlpha, Err: errors.New("coupling strength must be a finite value >= 0")}
	}
	return nil
}

// CorrectionFactor returns 1 + alpha*exp(-r/lambda). It is exactly 1 when
// alpha is zero and decays toward 1 as r grows.
func (p Params) CorrectionFactor(radialKm float64) float64 {
	return 1 + p.Alpha*math.Exp(-radialKm/p.LambdaKm)
}

// Sample is one parsed input row.
type Sample struct {
	Row         int // 1-based data row in input order
	Time        time.Time
	Position    astromath.Vector3 // km
	Velocity    astromath.Vector3 // km/s, zero when HasVelocity is false
	HasVelocity bool
	Record      []string // original cells, in the source header's order
}

// Row is a sample plus its derived quantities.
type Row struct {
	Sample
	RadialKm    float64
	BaselineKm  float64
	Factor      float64
	CorrectedKm float64
	ResidualKm  float64
	ResidualM   float64
}

// Result is the enriched time series produced by Compute. Rows are sorted
// ascending by time.
type Result struct {
	Header []string
	Rows   []Row
	Params Params
}

// Compute parses t, sorts it by timestamp and derives radial distance,
// baseline drift, corrected drift and residual for every row. The input
// table is not modified. Any parse failure or parameter violation aborts
// with a *ComputeError before a derived value is produced.
func Compute(t *Table, p Params) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if _, err := Validate(t, ProfileMinimal.Columns()); err != nil {
		return nil, err
	}

	samples, err := parseSamples(t)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].Time.Before(samples[j].Time)
	})

	rows := make([]Row, len(samples))
	for i, s := range samples {
		rows[i] = Row{Sample: s, RadialKm: s.Position.Magnitude()}
	}

	if len(rows) > 0 {
		r0 := rows[0].RadialKm
		for i := range rows {
			row := &rows[i]
			row.BaselineKm = row.RadialKm - r0
			row.Factor = p.CorrectionFactor(row.RadialKm)
			row.CorrectedKm = row.BaselineKm * row.Factor
			row.ResidualKm = row.CorrectedKm - row.BaselineKm
			row.ResidualM = row.ResidualKm * 1000.0
		}
		// The reference row is zero by definition, even when R0 is not finite.
		rows[0].BaselineKm = 0
		rows[0].CorrectedKm = 0
		rows[0].ResidualKm = 0
		rows[0].ResidualM = 0
	}

	return &Result{
		Header: append([]string(nil), t.Header...),
		Rows:   rows,
		Params: p,
	}, nil
}

func parseSamples(t *Table) ([]Sample, error) {
	timeCol := t.Index(ColTime)
	posCols := [3]int{t.Index(ColX), t.Index(ColY), t.Index(ColZ)}
	velCols := [3]int{t.Index(ColVX), t.Index(ColVY), t.Index(ColVZ)}
	posNames := [3]string{ColX, ColY, ColZ}

	samples := make([]Sample, 0, len(t.Rows))
	for i, record := range t.Rows {
		rowNum := i + 1

		ts, err := ParseTime(cell(record, timeCol))
		if err != nil {
			return nil, &ComputeError{Row: rowNum, Column: ColTime, Err: err}
		}

		var pos [3]float64
		for k, col := range posCols {
			v, err := strconv.ParseFloat(cell(record, col), 64)
			if err != nil {
				return nil, &ComputeError{Row: rowNum, Column: posNames[k], Err: numError(err)}
			}
			pos[k] = v
		}

		s := Sample{
			Row:      rowNum,
			Time:     ts,
			Position: astromath.Vector3{X: pos[0], Y: pos[1], Z: pos[2]},
			Record:   append([]string(nil), record...),
		}
		s.Velocity, s.HasVelocity = parseVelocity(record, velCols)
		samples = append(samples, s)
	}
	return samples, nil
}

// parseVelocity reads the velocity components when all three are present and
// numeric. Velocity is carried for export only, so a missing or unparseable
// component leaves HasVelocity false instead of failing the row.
func parseVelocity(record []string, cols [3]int) (astromath.Vector3, bool) {
	var vel [3]float64
	for k, col := range cols {
		if col < 0 {
			return astromath.Vector3{}, false
		}
		v, err := strconv.ParseFloat(cell(record, col), 64)
		if err != nil {
			return astromath.Vector3{}, false
		}
		vel[k] = v
	}
	return astromath.Vector3{X: vel[0], Y: vel[1], Z: vel[2]}, true
}

func numError(err error) error {
	var ne *strconv.NumError
	if errors.As(err, &ne) {
		if ne.Num == "" {
			return errors.New("empty value, expected a number")
		}
		return errors.New("not a number: " + strconv.Quote(ne.Num))
	}
	return err
}

// Len returns the number of rows.
func (r *Result) Len() int { return len(r.Rows) }

// Epoch returns the timestamp of the first sorted row, or the zero time.
func (r *Result) Epoch() time.Time {
	if len(r.Rows) == 0 {
		return time.Time{}
	}
	return r.Rows[0].Time
}

// Times returns the sorted timestamps.
func (r *Result) Times() []time.Time {
	out := make([]time.Time, len(r.Rows))
	for i, row := range r.Rows {
		out[i] = row.Time
	}
	return out
}

// ResidualsM returns the residual series in metres.
func (r *Result) ResidualsM() []float64 {
	out := make([]float64, len(r.Rows))
	for i, row := range r.Rows {
		out[i] = row.ResidualM
	}
	return out
}

// RadialKm returns the radial distance series.
func (r *Result) RadialKm() []float64 {
	out := make([]float64, len(r.Rows))
	for i, row := range r.Rows {
		out[i] = row.RadialKm
	}
	return out
}

// Trend fits the residual series.
func (r *Result) Trend() Trend {
	return FitTrend(r.Times(), r.ResidualsM())
}
