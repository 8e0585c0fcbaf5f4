package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/floats"

	strategy "github.com/uw-midsun/fwxvi-strategy"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func report(t *testing.T, name string, v []float64) strategy.Report {
	t.Helper()
	cfg := strategy.DefaultSimConfig()
	n := len(v)
	sc := strategy.Scenario{Name: name, GradeDeg: make([]float64, n), GHI: strategy.Constant(800, n), Dt: 60, Config: cfg}
	sim, err := strategy.Simulate(v, sc.Dt, 0, sc.GradeDeg, sc.GHI, cfg.Vehicle, true)
	if err != nil {
		t.Fatal(err)
	}
	best := strategy.OptimizationResult{
		Velocity:  v,
		Score:     strategy.Score(sim, cfg.Vehicle, 0),
		Method:    strategy.Powell,
		Status:    "FunctionConvergence",
		Converged: true,
	}
	return strategy.Report{Scenario: sc, Best: best, Sim: sim}
}

func TestSaveAndGet(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	rep := report(t, "leg-1", []float64{10, 12, 14})
	saved, err := s.Save(ctx, rep)
	if err != nil {
		t.Fatal(err)
	}
	if saved.ID == 0 {
		t.Fatal("no ID assigned")
	}

	got, err := s.Get(ctx, saved.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "leg-1" || got.Method != "Powell" || !got.Converged || got.Steps != 3 {
		t.Fatalf("unexpected run %+v", got)
	}
	if got.FinalDistance != rep.Sim.FinalDistance || got.FinalSOC != rep.Sim.FinalSOC {
		t.Fatalf("final state %f m %f J, expected %f m %f J", got.FinalDistance, got.FinalSOC, rep.Sim.FinalDistance, rep.Sim.FinalSOC)
	}

	v, err := got.Velocities()
	if err != nil {
		t.Fatal(err)
	}
	if !floats.Equal(v, []float64{10, 12, 14}) {
		t.Fatalf("velocity %v", v)
	}

	traces, err := got.TraceSet()
	if err != nil {
		t.Fatal(err)
	}
	if len(traces) != len(strategy.TraceNames()) {
		t.Fatalf("expected %d traces, got %d", len(strategy.TraceNames()), len(traces))
	}
	if !floats.Equal(traces[strategy.TraceDistance], rep.Sim.Traces[strategy.TraceDistance]) {
		t.Fatalf("distance trace %v", traces[strategy.TraceDistance])
	}
}

func TestGetMissing(t *testing.T) {
	s := setupStore(t)
	if _, err := s.Get(context.Background(), 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Best(context.Background(), "nothing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListAndBest(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	for _, v := range [][]float64{{10, 10, 10}, {15, 15, 15}, {12, 12, 12}} {
		if _, err := s.Save(ctx, report(t, "leg-2", v)); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.Save(ctx, report(t, "other", []float64{20, 20, 20})); err != nil {
		t.Fatal(err)
	}

	runs, err := s.List(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].Name != "other" {
		t.Fatalf("newest run is %q", runs[0].Name)
	}
	if len(runs[0].Traces) != 0 {
		t.Fatal("list should not load traces")
	}

	all, err := s.List(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 runs, got %d", len(all))
	}

	best, err := s.Best(ctx, "leg-2")
	if err != nil {
		t.Fatal(err)
	}
	v, err := best.Velocities()
	if err != nil {
		t.Fatal(err)
	}
	if !floats.Equal(v, []float64{15, 15, 15}) {
		t.Fatalf("best profile %v", v)
	}
}
