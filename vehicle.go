package strategy

import (
	"fmt"
	"math"
)

// DefaultBatteryCapacity is the pack energy in J, i.e. 40*3.63*36 Wh.
const DefaultBatteryCapacity = 40 * 3.63 * 36 * 3600

// minDriveEff bounds the drivetrain efficiency away from zero before it is used as a divisor.
const minDriveEff = 1e-9

// VehicleParams holds the physical constants of the car. It is read-only once built.
type VehicleParams struct {
	Mass            float64 // kg
	DragCoeff       float64
	FrontArea       float64 // m^2
	CRR             float64 // rolling resistance coefficient
	SolarArea       float64 // m^2
	PanelEff        float64 // fraction in [0, 1]
	BatteryCapacity float64 // J
	AirDensity      float64 // kg/m^3
	Gravity         float64 // m/s^2
	DriveEff        float64 // fraction in (0, 1]
}

// DefaultVehicleParams returns the parameters of the current car.
func DefaultVehicleParams() VehicleParams {
	return VehicleParams{
		Mass:            450,
		DragCoeff:       0.18,
		FrontArea:       1.357,
		CRR:             0.004,
		SolarArea:       4.0,
		PanelEff:        0.243,
		BatteryCapacity: DefaultBatteryCapacity,
		AirDensity:      1.293,
		Gravity:         9.81,
		DriveEff:        0.94,
	}
}

// Validate returns a *ParamError for the first physically meaningless field.
func (p VehicleParams) Validate() error {
	checks := []struct {
		name string
		val  float64
		ok   bool
		want string
	}{
		{"mass", p.Mass, p.Mass > 0, "> 0"},
		{"drag_coeff", p.DragCoeff, p.DragCoeff >= 0, ">= 0"},
		{"front_area", p.FrontArea, p.FrontArea >= 0, ">= 0"},
		{"c_rr", p.CRR, p.CRR >= 0, ">= 0"},
		{"solar_area", p.SolarArea, p.SolarArea >= 0, ">= 0"},
		{"panel_eff", p.PanelEff, p.PanelEff >= 0 && p.PanelEff <= 1, "in [0, 1]"},
		{"bat_max_energy", p.BatteryCapacity, p.BatteryCapacity > 0, "> 0"},
		{"air_density", p.AirDensity, p.AirDensity >= 0, ">= 0"},
		{"gravity", p.Gravity, p.Gravity >= 0, ">= 0"},
		{"drive_eff", p.DriveEff, p.DriveEff > 0 && p.DriveEff <= 1, "in (0, 1]"},
	}
	for _, c := range checks {
		if math.IsNaN(c.val) || math.IsInf(c.val, 0) || !c.ok {
			return &ParamError{Name: c.name, Value: fmt.Sprintf("%g", c.val), Reason: "must be " + c.want}
		}
	}
	return nil
}

func (p VehicleParams) String() string {
	return fmt.Sprintf("m=%.1f kg Cd=%.3f A=%.3f m^2 Crr=%.4f solar=%.2f m^2 @ %.1f%% bat=%.0f Wh drive=%.1f%%",
		p.Mass, p.DragCoeff, p.FrontArea, p.CRR, p.SolarArea, p.PanelEff*100, WhFromJoules(p.BatteryCapacity), p.DriveEff*100)
}
