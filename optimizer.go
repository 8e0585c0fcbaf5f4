package strategy

import (
	"fmt"
	"math"
	"runtime"
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/optimize"
)

// Method identifies a search strategy.
type Method string

// Supported search strategies.
const (
	NelderMead Method = "Nelder-Mead"
	Powell     Method = "Powell"
	CMAES      Method = "CMA-ES"
	LBFGS      Method = "L-BFGS"
)

// Methods lists the supported strategies.
func Methods() []Method {
	return []Method{NelderMead, Powell, CMAES, LBFGS}
}

// ParseMethod matches s against the supported strategies, ignoring case.
func ParseMethod(s string) (Method, error) {
	for _, m := range Methods() {
		if strings.EqualFold(string(m), strings.TrimSpace(s)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMethod, s)
}

// Bounded returns whether the strategy enforces [vmin, vmax] on every element.
// The others only see the bounds through the initial guess and the penalties.
func (m Method) Bounded() bool {
	return m == Powell
}

// OptimizeConfig configures a single velocity optimization.
type OptimizeConfig struct {
	Dt            float64 // s
	Horizon       float64 // s, must be a whole number of Dt
	D0            float64 // m
	VMin, VMax    float64 // m/s
	Method        Method
	MaxIter       int
	EnergyPenalty float64 // score per Joule drawn
	Seed          uint64  // CMA-ES sampling seed
	Concurrency   int     // CMA-ES parallel evaluations, 0 for GOMAXPROCS
	Logger        log.Logger
}

// DefaultOptimizeConfig returns a ten minute horizon at ten second steps.
func DefaultOptimizeConfig() OptimizeConfig {
	return OptimizeConfig{
		Dt:      10,
		Horizon: 600,
		VMin:    10,
		VMax:    20,
		Method:  NelderMead,
		MaxIter: 2000,
		Seed:    1,
	}
}

// Steps returns the number of decision variables, Horizon/Dt.
func (c OptimizeConfig) Steps() (int, error) {
	if !(c.Dt > 0) {
		return 0, fmt.Errorf("timestep must be positive, got %g", c.Dt)
	}
	ratio := c.Horizon / c.Dt
	n := math.Round(ratio)
	if n < 1 || math.Abs(ratio-n) > 1e-9*math.Max(1, n) {
		return 0, fmt.Errorf("horizon %g s is not a positive whole number of %g s steps", c.Horizon, c.Dt)
	}
	return int(n), nil
}

func (c OptimizeConfig) logger() log.Logger {
	if c.Logger == nil {
		return log.NewNopLogger()
	}
	return c.Logger
}

// OptimizationResult is the best profile found by one search.
type OptimizationResult struct {
	Velocity    []float64
	Score       float64
	Method      Method
	Status      string
	Converged   bool
	Iterations  int
	Evaluations int
	Runtime     time.Duration
}

func (r OptimizationResult) String() string {
	return fmt.Sprintf("%s %s after %d iterations (%d evaluations, %s): score=%.3f",
		r.Method, r.Status, r.Iterations, r.Evaluations, r.Runtime.Round(time.Millisecond), r.Score)
}

// OptimizeVelocity searches for the per-timestep velocity profile that minimizes the score
// over cfg.Horizon. The initial guess is the midpoint of [VMin, VMax] everywhere. Running out
// of iterations is not an error: the best point is returned with Converged unset.
func OptimizeVelocity(cfg OptimizeConfig, gradeDeg, ghi []float64, p VehicleParams) (OptimizationResult, error) {
	n, err := cfg.Steps()
	if err != nil {
		return OptimizationResult{}, err
	}
	if err = checkProfile(n, cfg.Dt, gradeDeg, ghi); err != nil {
		return OptimizationResult{}, err
	}
	if cfg.VMin < 0 || cfg.VMin > cfg.VMax {
		return OptimizationResult{}, fmt.Errorf("invalid velocity bounds [%g, %g]", cfg.VMin, cfg.VMax)
	}
	if cfg.MaxIter < 1 {
		return OptimizationResult{}, fmt.Errorf("iteration cap must be positive, got %d", cfg.MaxIter)
	}
	if _, err = ParseMethod(string(cfg.Method)); err != nil {
		return OptimizationResult{}, err
	}
	if err = p.Validate(); err != nil {
		return OptimizationResult{}, err
	}

	grade := append([]float64(nil), gradeDeg...)
	irr := append([]float64(nil), ghi...)
	objective := func(x []float64) float64 {
		res, err := Simulate(x, cfg.Dt, cfg.D0, grade, irr, p, true)
		if err != nil {
			return math.Inf(1)
		}
		return Score(res, p, cfg.EnergyPenalty)
	}

	x0 := make([]float64, n)
	for i := range x0 {
		x0[i] = (cfg.VMin + cfg.VMax) / 2
	}

	logger := log.With(cfg.logger(), "subsys", "optim", "method", cfg.Method)
	level.Debug(logger).Log("steps", n, "vmin", cfg.VMin, "vmax", cfg.VMax, "max_iter", cfg.MaxIter)

	start := time.Now()
	var out OptimizationResult
	if cfg.Method == Powell {
		out = minimizeBounded(objective, x0, cfg.VMin, cfg.VMax, cfg.MaxIter)
	} else {
		out, err = minimizeGonum(cfg, objective, x0)
		if err != nil {
			return OptimizationResult{}, err
		}
	}
	out.Method = cfg.Method
	out.Runtime = time.Since(start)

	if !out.Converged {
		level.Warn(logger).Log("status", out.Status, "iterations", out.Iterations, "score", out.Score,
			"message", "did not converge, returning best profile found")
	} else {
		level.Info(logger).Log("status", out.Status, "iterations", out.Iterations, "evaluations", out.Evaluations,
			"score", out.Score, "runtime", out.Runtime)
	}
	return out, nil
}

func minimizeGonum(cfg OptimizeConfig, objective func([]float64) float64, x0 []float64) (OptimizationResult, error) {
	problem := optimize.Problem{Func: objective}
	settings := &optimize.Settings{MajorIterations: cfg.MaxIter}

	var method optimize.Method
	switch cfg.Method {
	case NelderMead:
		method = &optimize.NelderMead{}
	case CMAES:
		method = &optimize.CmaEsChol{
			InitStepSize: (cfg.VMax - cfg.VMin) / 4,
			Src:          rand.NewSource(cfg.Seed),
		}
		settings.Concurrent = cfg.Concurrency
		if settings.Concurrent <= 0 {
			settings.Concurrent = runtime.GOMAXPROCS(0)
		}
	case LBFGS:
		problem.Grad = func(grad, x []float64) {
			fd.Gradient(grad, objective, x, &fd.Settings{Formula: fd.Central})
		}
		method = &optimize.LBFGS{}
	default:
		return OptimizationResult{}, fmt.Errorf("%w: %q", ErrUnknownMethod, cfg.Method)
	}

	result, err := optimize.Minimize(problem, x0, settings, method)
	if result == nil {
		return OptimizationResult{}, fmt.Errorf("%s: %w", cfg.Method, err)
	}
	if math.IsNaN(result.F) || math.IsInf(result.F, 0) {
		return OptimizationResult{}, fmt.Errorf("%s: no finite objective value found (status %s)", cfg.Method, result.Status)
	}
	return OptimizationResult{
		Velocity:    append([]float64(nil), result.X...),
		Score:       result.F,
		Status:      result.Status.String(),
		Converged:   err == nil && !result.Status.Early(),
		Iterations:  result.Stats.MajorIterations,
		Evaluations: result.Stats.FuncEvaluations,
	}, nil
}
