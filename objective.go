package strategy

const (
	// EmptyPenalty is added to the score of any profile that ends with a flat battery.
	EmptyPenalty = 1e8
	// ReserveFraction is the share of capacity the car should still hold at the end of the horizon.
	ReserveFraction = 0.1
	// ReserveMultiplier scales each Joule of shortfall below the reserve.
	ReserveMultiplier = 100.0
)

// Score maps a simulation to the value minimized by the optimizer: the negated final
// distance, plus EmptyPenalty when the battery is flat, plus ReserveMultiplier per Joule
// below the reserve. energyWeight adds a cost per Joule drawn from the pack and is
// normally zero.
func Score(res SimResult, p VehicleParams, energyWeight float64) float64 {
	score := -res.FinalDistance
	if res.FinalSOC <= 0 {
		score += EmptyPenalty
	}
	if reserve := ReserveFraction * p.BatteryCapacity; res.FinalSOC < reserve {
		score += (reserve - res.FinalSOC) * ReserveMultiplier
	}
	if energyWeight != 0 {
		score += energyWeight * (p.BatteryCapacity - res.FinalSOC)
	}
	return score
}

// Objective simulates v with the freeze policy on and returns its Score. Lower is better.
func Objective(v []float64, dt, d0 float64, gradeDeg, ghi []float64, p VehicleParams) (float64, error) {
	res, err := Simulate(v, dt, d0, gradeDeg, ghi, p, true)
	if err != nil {
		return 0, err
	}
	return Score(res, p, 0), nil
}
