package strategy

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

const (
	deg2rad = math.Pi / 180
	// MetersPerSecondToKph converts m/s to km/h.
	MetersPerSecondToKph = 3.6
)

// WhFromJoules converts Joules to Watt-hours.
func WhFromJoules(j float64) float64 {
	return j / 3600
}

// WhSliceFromJoules returns a copy of js in Watt-hours.
func WhSliceFromJoules(js []float64) []float64 {
	wh := make([]float64, len(js))
	floats.ScaleTo(wh, 1.0/3600, js)
	return wh
}

// Linspace returns n evenly spaced values from l to u inclusive.
func Linspace(l, u float64, n int) []float64 {
	if n <= 0 {
		return []float64{}
	}
	if n == 1 {
		return []float64{l}
	}
	return floats.Span(make([]float64, n), l, u)
}

// Constant returns n copies of v.
func Constant(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
