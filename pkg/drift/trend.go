package drift

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const secondsPerDay = 86400.0

// Trend is a first-degree fit of residual (m) against elapsed days since T0.
type Trend struct {
	Slope     float64 // m/day
	Intercept float64 // m
	T0        time.Time
	Samples   int
	// Degenerate is set when the series was too short or contained a
	// non-finite value and the flat-line fallback was used.
	Degenerate bool
}

// Projection is the trend evaluated at a target date.
type Projection struct {
	Target     time.Time
	ResidualM  float64
	ResidualKm float64
}

// ElapsedDays returns (t - t0) in days, negative when t precedes t0.
func ElapsedDays(t0, t time.Time) float64 {
	return t.Sub(t0).Seconds() / secondsPerDay
}

// FitTrend fits an ordinary least-squares line through
// (elapsed days since times[0], residualM) pairs.
//
// With fewer than two samples, or any non-finite residual, it returns the
// flat line slope = 0, intercept = residualM[0] (0 for an empty series).
// When every timestamp coincides the minimum-norm least-squares solution is
// used: slope 0 through the mean residual.
func FitTrend(times []time.Time, residualM []float64) Trend {
	n := len(residualM)
	if len(times) < n {
		n = len(times)
	}

	tr := Trend{Samples: n}
	if len(times) > 0 {
		tr.T0 = times[0]
	}

	if n < 2 || !allFinite(residualM[:n]) {
		tr.Degenerate = true
		if len(residualM) > 0 {
			tr.Intercept = residualM[0]
		}
		return tr
	}

	x := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = ElapsedDays(tr.T0, times[i])
	}
	y := residualM[:n]

	if floats.Min(x) == floats.Max(x) {
		tr.Intercept = stat.Mean(y, nil)
		return tr
	}

	intercept, slope := stat.LinearRegression(x, y, nil, false)
	tr.Slope = slope
	tr.Intercept = intercept
	return tr
}

// Project evaluates slope*days + intercept, with days measured from t0 to
// target. Targets outside the fitted range extrapolate.
func Project(slope, intercept float64, t0, target time.Time) float64 {
	return slope*ElapsedDays(t0, target) + intercept
}

// At evaluates the trend at target, in metres.
func (t Trend) At(target time.Time) float64 {
	return Project(t.Slope, t.Intercept, t.T0, target)
}

// Project evaluates the trend at target in both metres and kilometres.
func (t Trend) Project(target time.Time) Projection {
	m := t.At(target)
	return Projection{Target: target, ResidualM: m, ResidualKm: m / 1000.0}
}

func allFinite(xs []float64) bool {
	for _, v := range xs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
