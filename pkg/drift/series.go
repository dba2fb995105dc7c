package drift

import "time"

// Point is one (timestamp, value) pair of a rendered series.
type Point struct {
	Time  time.Time
	Value float64
}

// Series is a named time series ready for plotting.
type Series struct {
	Name   string
	Unit   string
	Points []Point
}

// Figures carries everything the renderers draw: three time series, the
// residual with its fitted trend line, and the projection at a target date.
type Figures struct {
	Baseline   Series
	Corrected  Series
	Radial     Series
	Residual   Series
	TrendLine  Series
	Trend      Trend
	Projection Projection
	Params     Params
}

// Figures derives the rendering series from r and projects the residual
// trend to target.
func (r *Result) Figures(target time.Time) Figures {
	n := len(r.Rows)
	f := Figures{
		Baseline:  Series{Name: "GR Drift", Unit: "km", Points: make([]Point, n)},
		Corrected: Series{Name: "MQUDE Drift", Unit: "km", Points: make([]Point, n)},
		Radial:    Series{Name: "Radial Distance", Unit: "km", Points: make([]Point, n)},
		Residual:  Series{Name: "Residual (MQUDE − GR)", Unit: "m", Points: make([]Point, n)},
		TrendLine: Series{Name: "Trend", Unit: "m", Points: make([]Point, n)},
		Params:    r.Params,
	}

	f.Trend = r.Trend()
	for i, row := range r.Rows {
		f.Baseline.Points[i] = Point{Time: row.Time, Value: row.BaselineKm}
		f.Corrected.Points[i] = Point{Time: row.Time, Value: row.CorrectedKm}
		f.Radial.Points[i] = Point{Time: row.Time, Value: row.RadialKm}
		f.Residual.Points[i] = Point{Time: row.Time, Value: row.ResidualM}
		f.TrendLine.Points[i] = Point{Time: row.Time, Value: f.Trend.At(row.Time)}
	}
	f.Projection = f.Trend.Project(target)
	return f
}
