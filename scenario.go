package strategy

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/uw-midsun/fwxvi-strategy/irradiance"
	"github.com/uw-midsun/fwxvi-strategy/route"
)

// MaxRoutePoints caps the number of GPX points, and so of decision variables, of a race day run.
const MaxRoutePoints = 1000

// Scenario is one optimization problem: aligned grade and irradiance sequences,
// the timestep and start distance, and the configuration to solve it with.
type Scenario struct {
	Name     string
	GradeDeg []float64
	GHI      []float64
	Dt       float64
	D0       float64
	Start    time.Time     // wall clock of step 0, zero when synthetic
	Route    []route.Point // one point per step when the scenario follows a GPX route
	Config   SimConfig
}

// Steps returns the number of timesteps.
func (s Scenario) Steps() int {
	return len(s.GradeDeg)
}

// OptimizeConfig returns the optimizer settings of the scenario.
func (s Scenario) OptimizeConfig() OptimizeConfig {
	return s.Config.OptimizeConfig(s.Steps(), s.Dt, s.D0)
}

// TestScenario builds a scenario from a mock profile. The profile's timestep wins over cfg.Dt.
func TestScenario(name string, prof MockProfile, cfg SimConfig) Scenario {
	dt := prof.Dt
	if !(dt > 0) {
		dt = cfg.Dt
	}
	if name == "" {
		name = prof.Name
	}
	return Scenario{
		Name:     name,
		GradeDeg: append([]float64(nil), prof.GradeDeg...),
		GHI:      append([]float64(nil), prof.GHI...),
		Dt:       dt,
		D0:       prof.D0,
		Config:   cfg,
	}
}

// IrradianceProvider returns the live Solcast source when it is enabled and has a key,
// and the synthetic ramp otherwise.
func IrradianceProvider(cfg SimConfig) irradiance.Provider {
	if cfg.UseSolcast && cfg.SolcastAPIKey != "" {
		return irradiance.NewSolcast(cfg.SolcastAPIKey)
	}
	return irradiance.DefaultMock
}

// RaceDayScenario builds a scenario that takes one cfg.Dt step per route point, starting at
// distance 0 at time start. Irradiance comes from provider.
func RaceDayScenario(ctx context.Context, name string, pts []route.Point, start time.Time, provider irradiance.Provider, cfg SimConfig) (Scenario, error) {
	if len(pts) == 0 {
		return Scenario{}, fmt.Errorf("race day %s: %w", name, route.ErrNoPoints)
	}
	req := irradiance.Request{
		Start:  start,
		Step:   time.Duration(cfg.Dt * float64(time.Second)),
		Points: make([]irradiance.Location, len(pts)),
	}
	for i, p := range pts {
		req.Points[i] = irradiance.Location{Lat: p.Lat, Lon: p.Lon}
	}
	ghi, err := provider.GHI(ctx, req)
	if err != nil {
		return Scenario{}, fmt.Errorf("race day %s: irradiance: %w", name, err)
	}
	if len(ghi) != len(pts) {
		return Scenario{}, &ShapeError{Name: TraceGHI, Got: len(ghi), Expected: len(pts)}
	}
	return Scenario{
		Name:     name,
		GradeDeg: route.PerPointGrade(pts),
		GHI:      ghi,
		Dt:       cfg.Dt,
		Start:    start,
		Route:    pts,
		Config:   cfg,
	}, nil
}

// RaceDayFromGPX loads cfg.GPXFile from dataDir, downsamples it to MaxRoutePoints and
// builds the race day scenario over its first track.
func RaceDayFromGPX(ctx context.Context, dataDir string, start time.Time, provider irradiance.Provider, cfg SimConfig) (Scenario, error) {
	path := filepath.Join(dataDir, cfg.GPXFile)
	pts, err := route.Load(path, route.NashvilleToPaducah)
	if err != nil {
		return Scenario{}, err
	}
	pts = route.Downsample(pts, MaxRoutePoints)
	return RaceDayScenario(ctx, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)), pts, start, provider, cfg)
}

// Report is the outcome of a scenario: the optimizer's answer and the simulation of it.
type Report struct {
	Scenario Scenario
	Best     OptimizationResult
	Sim      SimResult
}

// Run optimizes the scenario and simulates the best profile once more with the freeze policy on.
func Run(sc Scenario, logger log.Logger) (Report, error) {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	logger = log.With(logger, "scenario", sc.Name)
	if err := sc.Config.Validate(); err != nil {
		return Report{}, fmt.Errorf("scenario %s: %w", sc.Name, err)
	}

	opt := sc.OptimizeConfig()
	opt.Logger = logger
	level.Info(logger).Log("subsys", "scenario", "status", "optimizing", "steps", sc.Steps(), "dt", sc.Dt, "method", opt.Method)
	best, err := OptimizeVelocity(opt, sc.GradeDeg, sc.GHI, sc.Config.Vehicle)
	if err != nil {
		return Report{}, fmt.Errorf("scenario %s: %w", sc.Name, err)
	}
	res, err := Simulate(best.Velocity, sc.Dt, sc.D0, sc.GradeDeg, sc.GHI, sc.Config.Vehicle, true)
	if err != nil {
		return Report{}, fmt.Errorf("scenario %s: %w", sc.Name, err)
	}
	level.Info(logger).Log("subsys", "scenario", "status", "finished", "distance(km)", res.FinalDistance/1e3, "soc(Wh)", WhFromJoules(res.FinalSOC))
	return Report{Scenario: sc, Best: best, Sim: res}, nil
}

// Consumed returns the energy drawn from the pack over the run, in J.
func (r Report) Consumed() float64 {
	return r.Scenario.Config.Vehicle.BatteryCapacity - r.Sim.FinalSOC
}

// WriteTo prints the results summary.
func (r Report) WriteTo(w io.Writer) (int64, error) {
	v := r.Best.Velocity
	avg := stat.Mean(v, nil)
	rule := strings.Repeat("-", 50)
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\nSimulation Results: %s\n%s\n", rule, r.Scenario.Name, rule)
	fmt.Fprintf(&b, "Final distance:        %.2f km\n", r.Sim.FinalDistance/1000)
	fmt.Fprintf(&b, "Final SOC:             %.2f Wh\n", WhFromJoules(r.Sim.FinalSOC))
	fmt.Fprintf(&b, "Initial battery:       %.2f Wh\n", WhFromJoules(r.Scenario.Config.Vehicle.BatteryCapacity))
	fmt.Fprintf(&b, "Energy consumed:       %.2f Wh\n", WhFromJoules(r.Consumed()))
	fmt.Fprintf(&b, "Average speed:         %.2f m/s (%.2f km/h)\n", avg, avg*MetersPerSecondToKph)
	fmt.Fprintf(&b, "Min speed:             %.2f m/s\n", floats.Min(v))
	fmt.Fprintf(&b, "Max speed:             %.2f m/s\n", floats.Max(v))
	fmt.Fprintf(&b, "Number of steps:       %d\n", len(v))
	fmt.Fprintf(&b, "Optimizer:             %s\n", r.Best)
	fmt.Fprintf(&b, "%s\n", rule)
	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

// Outcome is the result of one scenario of a batch.
type Outcome struct {
	Name   string
	Report Report
	Err    error
}

// RunBatch runs the scenarios with at most limit in flight. A failing scenario only fails
// its own Outcome. Scenarios not yet started when ctx is done are skipped with ctx's error.
func RunBatch(ctx context.Context, scenarios []Scenario, limit int, logger log.Logger) []Outcome {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	outs := make([]Outcome, len(scenarios))
	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, sc := range scenarios {
		i, sc := i, sc
		g.Go(func() error {
			outs[i].Name = sc.Name
			defer func() {
				if r := recover(); r != nil {
					outs[i].Err = fmt.Errorf("scenario %s panicked: %v", sc.Name, r)
				}
				if outs[i].Err != nil {
					level.Error(logger).Log("subsys", "batch", "scenario", sc.Name, "err", outs[i].Err)
				}
			}()
			if err := ctx.Err(); err != nil {
				outs[i].Err = err
				return nil
			}
			outs[i].Report, outs[i].Err = Run(sc, logger)
			return nil
		})
	}
	g.Wait()
	return outs
}
