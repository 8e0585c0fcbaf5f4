package irradiance

import (
	"context"
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/sidereal"
	"github.com/soniakeys/meeus/v3/solar"
)

const deg2rad = math.Pi / 180

// CosZenith returns the cosine of the solar zenith angle at t seen from lat, lon
// (degrees, east positive).
func CosZenith(t time.Time, lat, lon float64) float64 {
	jd := julian.TimeToJD(t.UTC())
	// UT stands in for TT, the minute of difference is far below the model error.
	α, δ := solar.ApparentEquatorial(jd)
	// Local hour angle from Greenwich apparent sidereal time.
	h := sidereal.Apparent(jd).Rad() + lon*deg2rad - α.Rad()
	φ := lat * deg2rad
	return math.Sin(φ)*math.Sin(δ.Rad()) + math.Cos(φ)*math.Cos(δ.Rad())*math.Cos(h)
}

// Haurwitz returns the clear-sky GHI in W/m^2 for a solar zenith cosine.
func Haurwitz(cosZ float64) float64 {
	if cosZ <= 0 {
		return 0
	}
	return 1098 * cosZ * math.Exp(-0.057/cosZ)
}

// ClearSky models cloudless irradiance along the route with the Haurwitz model.
// Scale derates it for haze or expected cloud; zero means 1.
type ClearSky struct {
	Scale float64
}

// GHI implements Provider.
func (c ClearSky) GHI(ctx context.Context, req Request) ([]float64, error) {
	scale := c.Scale
	if scale == 0 {
		scale = 1
	}
	out := make([]float64, len(req.Points))
	for i, p := range req.Points {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = scale * Haurwitz(CosZenith(req.At(i), p.Lat, p.Lon))
	}
	return out, nil
}
