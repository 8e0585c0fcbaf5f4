package strategy

import "math"

// The power terms below are element-wise over the timestep sequence.
// Each writes into dst when it is non-nil and has the right length, and
// allocates otherwise, following the gonum floats convention.

func ensure(dst []float64, n int) []float64 {
	if len(dst) != n {
		return make([]float64, n)
	}
	return dst
}

// RollingPower returns m*g*Crr*v in W.
func RollingPower(dst, v []float64, p VehicleParams) []float64 {
	dst = ensure(dst, len(v))
	k := p.Mass * p.Gravity * p.CRR
	for i, vi := range v {
		dst[i] = k * vi
	}
	return dst
}

// DragPower returns 0.5*rho*Cd*A*v^3 in W.
func DragPower(dst, v []float64, p VehicleParams) []float64 {
	dst = ensure(dst, len(v))
	k := 0.5 * p.AirDensity * p.DragCoeff * p.FrontArea
	for i, vi := range v {
		dst[i] = k * vi * vi * vi
	}
	return dst
}

// GradePower returns m*g*sin(theta)*v in W, theta in radians.
// It is positive uphill and negative downhill.
func GradePower(dst, v, thetaRad []float64, p VehicleParams) []float64 {
	dst = ensure(dst, len(v))
	k := p.Mass * p.Gravity
	for i, vi := range v {
		dst[i] = k * math.Sin(thetaRad[i]) * vi
	}
	return dst
}

// SolarPower returns the array output A*eta*G in W for irradiance G in W/m^2.
func SolarPower(dst, ghi []float64, p VehicleParams) []float64 {
	dst = ensure(dst, len(ghi))
	k := p.SolarArea * p.PanelEff
	for i, g := range ghi {
		dst[i] = k * g
	}
	return dst
}
