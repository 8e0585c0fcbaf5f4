package strategy

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"

	"github.com/uw-midsun/fwxvi-strategy/irradiance"
	"github.com/uw-midsun/fwxvi-strategy/route"
)

func quickConfig() SimConfig {
	cfg := DefaultSimConfig()
	cfg.MaxIter = 3
	return cfg
}

func TestRunTestScenario(t *testing.T) {
	prof, err := LoadMockProfile("testdata/mock_profile.yaml")
	if err != nil {
		t.Fatal(err)
	}
	cfg := quickConfig()
	cfg.Dt = 60 // the profile's own timestep wins
	sc := TestScenario("", prof, cfg)
	if sc.Name != "rolling-hills" || sc.Dt != 1800 || sc.Steps() != 8 {
		t.Fatalf("unexpected scenario %+v", sc)
	}
	var logs bytes.Buffer
	rep, err := Run(sc, NewLogger(&logs, false))
	if err != nil {
		t.Fatal(err)
	}
	if len(rep.Best.Velocity) != 8 || rep.Sim.Traces.Len() != 8 {
		t.Fatalf("unexpected report %+v", rep.Best)
	}
	if got := Score(rep.Sim, cfg.Vehicle, cfg.EnergyPenalty); !scalar.EqualWithinAbs(got, rep.Best.Score, 1e-9) {
		t.Fatalf("report simulation scores %f, optimizer %f", got, rep.Best.Score)
	}
	for _, v := range rep.Best.Velocity {
		if v < cfg.VMin || v > cfg.VMax {
			t.Fatalf("velocity %f outside bounds", v)
		}
	}
	if !strings.Contains(logs.String(), "scenario=rolling-hills") || !strings.Contains(logs.String(), "subsys=scenario") {
		t.Fatalf("missing scenario logs:\n%s", logs.String())
	}

	var out bytes.Buffer
	if _, err := rep.WriteTo(&out); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Final distance:", "Final SOC:", "Initial battery:       5227.20 Wh", "Energy consumed:", "Number of steps:       8"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("report is missing %q:\n%s", want, out.String())
		}
	}
}

func TestRunRejectsBadConfig(t *testing.T) {
	cfg := quickConfig()
	cfg.VMin = 30
	sc := Scenario{Name: "bad", GradeDeg: []float64{0}, GHI: []float64{0}, Dt: 60, Config: cfg}
	if _, err := Run(sc, nil); err == nil {
		t.Fatal("vmin > vmax accepted")
	}
}

func testRoute(n int) []route.Point {
	pts := make([]route.Point, n)
	for i := range pts {
		pts[i] = route.Point{Lat: 36.16 + 0.001*float64(i), Lon: -86.78, Ele: 150 + float64(i%3)}
	}
	return pts
}

type failingProvider struct{}

func (failingProvider) GHI(context.Context, irradiance.Request) ([]float64, error) {
	return nil, errors.New("offline")
}

func TestRaceDayScenario(t *testing.T) {
	cfg := quickConfig()
	pts := testRoute(5)
	start := time.Date(2024, 7, 1, 14, 0, 0, 0, time.UTC)
	sc, err := RaceDayScenario(context.Background(), "leg", pts, start, irradiance.DefaultMock, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if sc.Steps() != 5 || len(sc.GHI) != 5 || sc.Dt != cfg.Dt || sc.D0 != 0 {
		t.Fatalf("unexpected scenario %+v", sc)
	}
	if !floats.Equal(sc.GHI, []float64{700, 750, 800, 850, 900}) {
		t.Fatalf("ghi %v", sc.GHI)
	}
	if sc.GradeDeg[4] != 0 || sc.GradeDeg[0] <= 0 {
		t.Fatalf("grade %v", sc.GradeDeg)
	}
	if opt := sc.OptimizeConfig(); opt.Horizon != 5*cfg.Dt {
		t.Fatalf("horizon %f", opt.Horizon)
	}

	if _, err := RaceDayScenario(context.Background(), "leg", pts, start, failingProvider{}, cfg); err == nil {
		t.Fatal("provider error swallowed")
	}
	var se *ShapeError
	if _, err := RaceDayScenario(context.Background(), "leg", pts, start, irradiance.Fixed{1, 2, 3, 4, 5}, cfg); err != nil {
		t.Fatal(err)
	}
	short := shortProvider{}
	if _, err := RaceDayScenario(context.Background(), "leg", pts, start, short, cfg); !errors.As(err, &se) {
		t.Fatalf("expected ShapeError, got %v", err)
	}
	if _, err := RaceDayScenario(context.Background(), "leg", nil, start, irradiance.DefaultMock, cfg); !errors.Is(err, route.ErrNoPoints) {
		t.Fatalf("expected ErrNoPoints, got %v", err)
	}
}

type shortProvider struct{}

func (shortProvider) GHI(_ context.Context, req irradiance.Request) ([]float64, error) {
	return make([]float64, len(req.Points)-1), nil
}

func TestIrradianceProvider(t *testing.T) {
	cfg := DefaultSimConfig()
	if _, ok := IrradianceProvider(cfg).(irradiance.Linear); !ok {
		t.Fatal("mock expected by default")
	}
	cfg.UseSolcast = true
	if _, ok := IrradianceProvider(cfg).(irradiance.Linear); !ok {
		t.Fatal("mock expected without an API key")
	}
	cfg.SolcastAPIKey = "key"
	if _, ok := IrradianceProvider(cfg).(*irradiance.Solcast); !ok {
		t.Fatal("solcast expected")
	}
}

func TestRunBatchIsolatesFailures(t *testing.T) {
	cfg := quickConfig()
	good := Scenario{Name: "good", GradeDeg: []float64{0, 0, 0}, GHI: []float64{800, 800, 800}, Dt: 60, Config: cfg}
	bad := Scenario{Name: "bad", GradeDeg: []float64{0, 0}, GHI: []float64{800}, Dt: 60, Config: cfg}
	outs := RunBatch(context.Background(), []Scenario{bad, good, bad}, 2, nil)
	if len(outs) != 3 {
		t.Fatalf("got %d outcomes", len(outs))
	}
	if outs[0].Err == nil || outs[2].Err == nil {
		t.Fatal("bad scenarios reported success")
	}
	if outs[1].Err != nil || outs[1].Name != "good" || len(outs[1].Report.Best.Velocity) != 3 {
		t.Fatalf("good scenario failed: %+v", outs[1])
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, o := range RunBatch(ctx, []Scenario{good, good}, 1, nil) {
		if !errors.Is(o.Err, context.Canceled) {
			t.Fatalf("expected cancellation, got %v", o.Err)
		}
	}
}
