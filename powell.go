package strategy

import (
	"math"

	"github.com/samber/lo"
)

const (
	powellFTol    = 1e-8 // relative score change that ends a sweep
	powellLineTol = 1e-5 // line search bracket, as a fraction of the feasible segment
	goldenRatio   = 0.3819660112501051
)

// boxSearch is Powell's conjugate direction method restricted to the box [lo, hi]^n.
// Each line search only explores the part of the direction that stays in the box,
// so every iterate is feasible.
type boxSearch struct {
	f      func([]float64) float64
	lo, hi float64
	evals  int
	trial  []float64
}

func (s *boxSearch) eval(x []float64) float64 {
	s.evals++
	return s.f(x)
}

// step writes clip(x + t*d) into dst.
func (s *boxSearch) step(dst, x, d []float64, t float64) {
	for i := range x {
		dst[i] = lo.Clamp(x[i]+t*d[i], s.lo, s.hi)
	}
}

// span returns the range of t for which x + t*d stays in the box.
func (s *boxSearch) span(x, d []float64) (tlo, thi float64, ok bool) {
	tlo, thi = math.Inf(-1), math.Inf(1)
	moving := false
	for i, di := range d {
		switch {
		case di > 0:
			tlo = math.Max(tlo, (s.lo-x[i])/di)
			thi = math.Min(thi, (s.hi-x[i])/di)
		case di < 0:
			tlo = math.Max(tlo, (s.hi-x[i])/di)
			thi = math.Min(thi, (s.lo-x[i])/di)
		default:
			continue
		}
		moving = true
	}
	return tlo, thi, moving && thi > tlo
}

// line minimizes along d from x by golden-section search over the feasible segment,
// keeping the best of the endpoints, the interior probes and the start point. x is
// moved to the best point and its score returned.
func (s *boxSearch) line(x, d []float64, fx float64) float64 {
	tlo, thi, ok := s.span(x, d)
	if !ok {
		return fx
	}
	bestT, bestF := 0.0, fx
	phi := func(t float64) float64 {
		s.step(s.trial, x, d, t)
		f := s.eval(s.trial)
		if f < bestF {
			bestT, bestF = t, f
		}
		return f
	}
	phi(tlo)
	phi(thi)

	a, b := tlo, thi
	c := a + goldenRatio*(b-a)
	e := b - goldenRatio*(b-a)
	fc, fe := phi(c), phi(e)
	tol := powellLineTol * (thi - tlo)
	for i := 0; i < 200 && b-a > tol; i++ {
		if fc < fe {
			b, e, fe = e, c, fc
			c = a + goldenRatio*(b-a)
			fc = phi(c)
		} else {
			a, c, fc = c, e, fe
			e = b - goldenRatio*(b-a)
			fe = phi(e)
		}
	}
	if bestT != 0 {
		s.step(s.trial, x, d, bestT)
		copy(x, s.trial)
	}
	return bestF
}

// minimizeBounded runs at most maxIter sweeps of Powell's method from x0 inside [lo, hi].
func minimizeBounded(f func([]float64) float64, x0 []float64, lower, upper float64, maxIter int) OptimizationResult {
	n := len(x0)
	s := &boxSearch{f: f, lo: lower, hi: upper, trial: make([]float64, n)}
	x := make([]float64, n)
	for i, v := range x0 {
		x[i] = lo.Clamp(v, lower, upper)
	}
	fx := s.eval(x)

	dirs := make([][]float64, n)
	for i := range dirs {
		dirs[i] = make([]float64, n)
		dirs[i][i] = 1
	}

	xStart := make([]float64, n)
	ext := make([]float64, n)
	out := OptimizationResult{Status: "IterationLimit"}
	for out.Iterations < maxIter {
		out.Iterations++
		copy(xStart, x)
		fStart := fx
		bigIdx, bigDrop := 0, 0.0
		for i, d := range dirs {
			prev := fx
			fx = s.line(x, d, fx)
			if drop := prev - fx; drop > bigDrop {
				bigIdx, bigDrop = i, drop
			}
		}
		if 2*(fStart-fx) <= powellFTol*(math.Abs(fStart)+math.Abs(fx))+1e-20 {
			out.Status = "FunctionConvergence"
			out.Converged = true
			break
		}

		// Replace the direction of largest decrease with the net displacement of
		// this sweep when the extrapolation test says it is worth it.
		moved := make([]float64, n)
		for i := range moved {
			moved[i] = x[i] - xStart[i]
			ext[i] = lo.Clamp(2*x[i]-xStart[i], lower, upper)
		}
		fExt := s.eval(ext)
		if fExt < fStart {
			t := 2*(fStart-2*fx+fExt)*sq(fStart-fx-bigDrop) - bigDrop*sq(fStart-fExt)
			if t < 0 {
				fx = s.line(x, moved, fx)
				dirs[bigIdx] = dirs[n-1]
				dirs[n-1] = moved
			}
		}
	}
	out.Velocity = x
	out.Score = fx
	out.Evaluations = s.evals
	return out
}

func sq(x float64) float64 {
	return x * x
}
