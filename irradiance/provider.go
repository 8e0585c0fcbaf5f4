// Package irradiance supplies global horizontal irradiance (GHI) sequences for a route.
//
// The optimizer only needs one GHI value per timestep. Where it comes from is decided
// by the caller through the Provider it builds: a synthetic ramp, a clear-sky model or
// the Solcast forecast API.
package irradiance

import (
	"context"
	"time"

	"gonum.org/v1/gonum/floats"
)

// Location is a position in degrees.
type Location struct {
	Lat, Lon float64
}

// Request asks for one GHI value per point. Point i is reached at Start + i*Step.
type Request struct {
	Start  time.Time
	Step   time.Duration
	Points []Location
}

// At returns the time at which point i is reached.
func (r Request) At(i int) time.Time {
	return r.Start.Add(time.Duration(i) * r.Step)
}

// End returns the time of the last point.
func (r Request) End() time.Time {
	if len(r.Points) == 0 {
		return r.Start
	}
	return r.At(len(r.Points) - 1)
}

// Provider returns GHI in W/m^2 for every point of the request.
type Provider interface {
	GHI(ctx context.Context, req Request) ([]float64, error)
}

// Linear is a synthetic provider ramping evenly from From to To over the request.
type Linear struct {
	From, To float64
}

// DefaultMock is the ramp used when no live source is configured.
var DefaultMock = Linear{From: 700, To: 900}

// GHI implements Provider.
func (l Linear) GHI(_ context.Context, req Request) ([]float64, error) {
	switch n := len(req.Points); n {
	case 0:
		return []float64{}, nil
	case 1:
		return []float64{l.From}, nil
	default:
		return floats.Span(make([]float64, n), l.From, l.To), nil
	}
}

// Fixed returns the same values whatever the request, as long as the lengths agree.
type Fixed []float64

// GHI implements Provider.
func (f Fixed) GHI(_ context.Context, req Request) ([]float64, error) {
	if len(f) != len(req.Points) {
		return nil, &LengthError{Got: len(f), Expected: len(req.Points)}
	}
	return append([]float64(nil), f...), nil
}
