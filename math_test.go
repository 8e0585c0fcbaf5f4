package strategy

import (
	"testing"

	"gonum.org/v1/gonum/floats"
)

func TestLinspace(t *testing.T) {
	if !floats.Equal(Linspace(700, 900, 5), []float64{700, 750, 800, 850, 900}) {
		t.Fatalf("linspace %v", Linspace(700, 900, 5))
	}
	if !floats.Equal(Linspace(3, 9, 1), []float64{3}) || len(Linspace(0, 1, 0)) != 0 {
		t.Fatal("degenerate linspace")
	}
}

func TestWhFromJoules(t *testing.T) {
	if WhFromJoules(7200) != 2 {
		t.Fatal("incorrect Wh")
	}
	if !floats.EqualApprox(WhSliceFromJoules([]float64{3600, 0}), []float64{1, 0}, 1e-12) {
		t.Fatal("incorrect Wh slice")
	}
	if !floats.EqualApprox([]float64{WhFromJoules(DefaultBatteryCapacity)}, []float64{5227.2}, 1e-9) {
		t.Fatalf("pack energy %f Wh", WhFromJoules(DefaultBatteryCapacity))
	}
}

func TestConstant(t *testing.T) {
	if !floats.Equal(Constant(12, 3), []float64{12, 12, 12}) {
		t.Fatal("incorrect constant profile")
	}
}
