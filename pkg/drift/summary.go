package drift

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary is the at-a-glance description of a computed result.
type Summary struct {
	Rows            int
	First, Last     time.Time
	MinRadialKm     float64
	MaxRadialKm     float64
	MaxAbsResidualM float64
	// NonFiniteRows counts samples with a NaN or infinite position component.
	NonFiniteRows int
	// VelocityRows counts samples with a parsed velocity; MeanSpeedKms is
	// the mean velocity magnitude over those rows.
	VelocityRows int
	MeanSpeedKms float64
	// Amplification is corrected/baseline drift on the last row. It is
	// undefined (AmplificationDefined false) when the last baseline drift
	// is zero, as for a single-row table.
	Amplification        float64
	AmplificationDefined bool
}

// Summarize computes a Summary. An empty result yields a zero Summary.
func (r *Result) Summarize() Summary {
	s := Summary{Rows: len(r.Rows)}
	if s.Rows == 0 {
		return s
	}

	s.First = r.Rows[0].Time
	s.Last = r.Rows[s.Rows-1].Time

	radial := r.RadialKm()
	s.MinRadialKm = floats.Min(radial)
	s.MaxRadialKm = floats.Max(radial)

	abs := r.ResidualsM()
	for i, v := range abs {
		abs[i] = math.Abs(v)
	}
	s.MaxAbsResidualM = floats.Max(abs)

	var speeds []float64
	for _, row := range r.Rows {
		if !row.Position.IsFinite() {
			s.NonFiniteRows++
		}
		if row.HasVelocity {
			speeds = append(speeds, row.Velocity.Magnitude())
		}
	}
	s.VelocityRows = len(speeds)
	if len(speeds) > 0 {
		s.MeanSpeedKms = stat.Mean(speeds, nil)
	}

	last := r.Rows[s.Rows-1]
	if last.BaselineKm != 0 {
		s.Amplification = last.CorrectedKm / last.BaselineKm
		s.AmplificationDefined = !math.IsNaN(s.Amplification) && !math.IsInf(s.Amplification, 0)
	}
	return s
}
