package strategy

import (
	"fmt"
	"math"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/floats"
)

// Trace names of a SimResult. These are stable and used as CSV headers and telemetry fields.
const (
	TraceDistance = "distance_m"
	TraceBattery  = "Ebat_J"
	TracePRR      = "P_rr_W"
	TracePDrag    = "P_drag_W"
	TracePGrade   = "P_grade_W"
	TracePSolar   = "P_solar_W"
	TracePNet     = "P_net_W"
	TraceERR      = "E_rr_J"
	TraceEDrag    = "E_drag_J"
	TraceEGrade   = "E_grade_J"
	TraceESolar   = "E_solar_J"
	TraceENet     = "E_net_J"
	TraceGrade    = "theta_deg"
	TraceGHI      = "ghi"
	TraceVelocity = "v"
)

// TraceNames returns all trace names in export order.
func TraceNames() []string {
	return []string{
		TraceDistance, TraceBattery,
		TracePRR, TracePDrag, TracePGrade, TracePSolar, TracePNet,
		TraceERR, TraceEDrag, TraceEGrade, TraceESolar, TraceENet,
		TraceGrade, TraceGHI, TraceVelocity,
	}
}

// Traces are the per-timestep outputs of a simulation, keyed by trace name.
type Traces map[string][]float64

// Len returns the number of timesteps.
func (t Traces) Len() int {
	return len(t[TraceVelocity])
}

// SimResult is the outcome of one forward pass.
type SimResult struct {
	FinalDistance float64 // m
	FinalSOC      float64 // J
	Traces        Traces
}

// Stranded returns whether the battery ended the run empty.
func (r SimResult) Stranded() bool {
	return r.FinalSOC <= 0
}

func (r SimResult) String() string {
	return fmt.Sprintf("d=%.3f km SOC=%.2f Wh (%d steps)", r.FinalDistance/1e3, WhFromJoules(r.FinalSOC), r.Traces.Len())
}

// checkProfile validates the lengths and timestep shared by the simulator and the optimizer.
func checkProfile(n int, dt float64, gradeDeg, ghi []float64) error {
	if n == 0 {
		return ErrEmptyProfile
	}
	if len(gradeDeg) != n {
		return &ShapeError{Name: TraceGrade, Got: len(gradeDeg), Expected: n}
	}
	if len(ghi) != n {
		return &ShapeError{Name: TraceGHI, Got: len(ghi), Expected: n}
	}
	if !(dt > 0) || math.IsInf(dt, 1) {
		return fmt.Errorf("timestep must be positive and finite, got %g", dt)
	}
	return nil
}

// DistanceTrajectory integrates v with forward Euler: d[0] = d0 and
// d[i] = d0 + sum(v[k]*dt, k < i).
func DistanceTrajectory(dst, v []float64, dt, d0 float64) []float64 {
	dst = ensure(dst, len(v))
	if len(v) == 0 {
		return dst
	}
	dst[0] = d0
	acc := 0.0
	for i := 1; i < len(v); i++ {
		acc += v[i-1] * dt
		dst[i] = d0 + acc
	}
	return dst
}

// BatteryTrajectory returns Ebat[0] = capacity and
// Ebat[i] = clip(capacity - sum(eNet[k], k < i), 0, capacity).
// Surplus above capacity is discarded at each step rather than banked.
func BatteryTrajectory(dst, eNet []float64, capacity float64) []float64 {
	dst = ensure(dst, len(eNet))
	if len(eNet) == 0 {
		return dst
	}
	dst[0] = capacity
	drawn := 0.0
	for i := 1; i < len(eNet); i++ {
		drawn += eNet[i-1]
		dst[i] = lo.Clamp(capacity-drawn, 0, capacity)
	}
	return dst
}

// emptyIndex returns the first index where the battery is at or below zero, and 0 if it never is.
func emptyIndex(ebat []float64) int {
	for i, e := range ebat {
		if e <= 0 {
			return i
		}
	}
	return 0
}

// Simulate runs the car over len(v) timesteps of dt seconds starting at distance d0.
// gradeDeg and ghi must have the same length as v. When stopOnEmpty is set and the
// battery ends the run empty, the distance trace is held at its value from the
// first empty sample onwards. The inputs are never modified.
func Simulate(v []float64, dt, d0 float64, gradeDeg, ghi []float64, p VehicleParams, stopOnEmpty bool) (SimResult, error) {
	n := len(v)
	if err := checkProfile(n, dt, gradeDeg, ghi); err != nil {
		return SimResult{}, err
	}

	vel := append([]float64(nil), v...)
	grade := append([]float64(nil), gradeDeg...)
	irr := append([]float64(nil), ghi...)

	dist := DistanceTrajectory(nil, vel, dt, d0)

	theta := make([]float64, n)
	floats.ScaleTo(theta, deg2rad, grade)

	pRR := RollingPower(nil, vel, p)
	pDrag := DragPower(nil, vel, p)
	pGrade := GradePower(nil, vel, theta, p)
	pSolar := SolarPower(nil, irr, p)

	// Drivetrain losses inflate the traction side only. Descending grade power is
	// dropped rather than regenerated.
	eff := math.Max(p.DriveEff, minDriveEff)
	pNet := make([]float64, n)
	for i := range pNet {
		pNet[i] = pRR[i]/eff + pDrag[i]/eff + math.Max(pGrade[i], 0)/eff - pSolar[i]
	}

	energy := func(pw []float64) []float64 {
		e := make([]float64, n)
		floats.ScaleTo(e, dt, pw)
		return e
	}
	eRR, eDrag, eGrade, eSolar, eNet := energy(pRR), energy(pDrag), energy(pGrade), energy(pSolar), energy(pNet)

	ebat := BatteryTrajectory(nil, eNet, p.BatteryCapacity)

	if stopOnEmpty {
		if idx := emptyIndex(ebat); ebat[n-1] <= 0 && idx > 0 {
			for i := idx + 1; i < n; i++ {
				dist[i] = dist[idx]
			}
		}
	}

	return SimResult{
		FinalDistance: dist[n-1],
		FinalSOC:      ebat[n-1],
		Traces: Traces{
			TraceDistance: dist,
			TraceBattery:  ebat,
			TracePRR:      pRR,
			TracePDrag:    pDrag,
			TracePGrade:   pGrade,
			TracePSolar:   pSolar,
			TracePNet:     pNet,
			TraceERR:      eRR,
			TraceEDrag:    eDrag,
			TraceEGrade:   eGrade,
			TraceESolar:   eSolar,
			TraceENet:     eNet,
			TraceGrade:    grade,
			TraceGHI:      irr,
			TraceVelocity: vel,
		},
	}, nil
}
