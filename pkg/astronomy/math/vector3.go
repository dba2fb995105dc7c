package math

import "math"

// Vector3 is a Cartesian state component (position in km or velocity in km/s)
// in an origin-centred frame.
type Vector3 struct {
	X, Y, Z float64
}

// Magnitude returns the Euclidean norm sqrt(X² + Y² + Z²).
// For a heliocentric position this is the radial distance from the origin.
func (v Vector3) Magnitude() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// IsFinite reports whether every component is neither NaN nor infinite.
func (v Vector3) IsFinite() bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
