package opal

import (
	"math"
	"strings"
	"time"
)

// IntegratorType defines the closed set of supported integrators.
type IntegratorType uint8

const (
	// RungeKuttaFehlberg78 is the adaptive step embedded Fehlberg pair: the
	// 8th order solution is advanced, the 7th order companion estimates the
	// local truncation error.
	RungeKuttaFehlberg78 IntegratorType = iota + 1
	// RungeKutta4 is the classic fixed step integrator, driven through the
	// ode package.
	RungeKutta4
)

func (t IntegratorType) String() string {
	switch t {
	case RungeKuttaFehlberg78:
		return "RungeKuttaFehlberg78"
	case RungeKutta4:
		return "RungeKutta4"
	}
	panic("cannot stringify unknown integrator type")
}

// IntegratorTypeFromString returns the integrator type from its scenario name.
func IntegratorTypeFromString(name string) (IntegratorType, error) {
	switch strings.ToLower(name) {
	case "rungekuttafehlberg78", "rkf78":
		return RungeKuttaFehlberg78, nil
	case "rungekutta4", "rk4":
		return RungeKutta4, nil
	default:
		return IntegratorType(0), NewConfigError("integrator.type", "undefined integrator '%s'", name)
	}
}

// IntegratorConfig defines the step size and accuracy control of a propagation.
// All step sizes are in seconds and strictly positive; the propagation
// direction is carried by the session, not by the configuration.
type IntegratorConfig struct {
	Type                     IntegratorType
	InitialStep              float64
	MinStep, MaxStep         float64
	Tolerance                float64 // scaled RSS error bound per step
	MaxStepAttempts          uint
	StopIfAccuracyIsViolated bool
}

// DefaultIntegratorConfig returns the integrator settings used when a scenario
// leaves them out.
func DefaultIntegratorConfig() IntegratorConfig {
	return IntegratorConfig{
		Type:                     RungeKuttaFehlberg78,
		InitialStep:              60,
		MinStep:                  1e-3,
		MaxStep:                  2700,
		Tolerance:                1e-11,
		MaxStepAttempts:          50,
		StopIfAccuracyIsViolated: true,
	}
}

// Validate checks the configuration before any step executes.
func (c IntegratorConfig) Validate() error {
	if c.Type != RungeKuttaFehlberg78 && c.Type != RungeKutta4 {
		return NewConfigError("integrator.type", "unknown integrator type %d", c.Type)
	}
	if c.MinStep <= 0 || c.MaxStep <= 0 || c.InitialStep <= 0 {
		return NewConfigError("integrator", "step sizes must be strictly positive")
	}
	if c.MinStep > c.MaxStep {
		return NewConfigError("integrator", "min step %g exceeds max step %g", c.MinStep, c.MaxStep)
	}
	if c.InitialStep < c.MinStep || c.InitialStep > c.MaxStep {
		return NewConfigError("integrator", "initial step %g outside [%g, %g]", c.InitialStep, c.MinStep, c.MaxStep)
	}
	if c.Type == RungeKuttaFehlberg78 {
		if c.Tolerance <= 0 {
			return NewConfigError("integrator.tolerance", "tolerance must be strictly positive")
		}
		if c.MaxStepAttempts == 0 {
			return NewConfigError("integrator.maxattempts", "at least one step attempt is needed")
		}
	}
	return nil
}

/* Fehlberg 7(8) coefficients, NASA TR R-287. The 8th order solution is the
one advanced; the difference with the embedded 7th order solution reduces to
(41/840)(k1 + k11 - k12 - k13)h. */

var rkf78C = [13]float64{0, 2 / 27., 1 / 9., 1 / 6., 5 / 12., 1 / 2., 5 / 6., 1 / 6., 2 / 3., 1 / 3., 1, 0, 1}

var rkf78A = [13][12]float64{
	{},
	{2 / 27.},
	{1 / 36., 1 / 12.},
	{1 / 24., 0, 1 / 8.},
	{5 / 12., 0, -25 / 16., 25 / 16.},
	{1 / 20., 0, 0, 1 / 4., 1 / 5.},
	{-25 / 108., 0, 0, 125 / 108., -65 / 27., 125 / 54.},
	{31 / 300., 0, 0, 0, 61 / 225., -2 / 9., 13 / 900.},
	{2, 0, 0, -53 / 6., 704 / 45., -107 / 9., 67 / 90., 3},
	{-91 / 108., 0, 0, 23 / 108., -976 / 135., 311 / 54., -19 / 60., 17 / 6., -1 / 12.},
	{2383 / 4100., 0, 0, -341 / 164., 4496 / 1025., -301 / 82., 2133 / 4100., 45 / 82., 45 / 164., 18 / 41.},
	{3 / 205., 0, 0, 0, 0, -6 / 41., -3 / 205., -3 / 41., 3 / 41., 6 / 41., 0},
	{-1777 / 4100., 0, 0, -341 / 164., 4496 / 1025., -289 / 82., 2193 / 4100., 51 / 82., 33 / 164., 12 / 41., 0, 1},
}

var rkf78B = [13]float64{0, 0, 0, 0, 0, 34 / 105., 9 / 35., 9 / 35., 9 / 280., 9 / 280., 0, 41 / 840., 41 / 840.}

const (
	rkf78Stages   = 13
	rkf78ErrCoeff = 41 / 840.
	rkf78Exponent = 1 / 8. // order based exponent of the step controller
	rkf78Safety   = 0.9
	stepGrowCap   = 4.0
	stepShrinkCap = 0.1
)

// RKF78 advances a state through time with the embedded Fehlberg 7(8) pair
// and adaptive step size control. It is deterministic: identical inputs yield
// a bit identical step sequence.
type RKF78 struct {
	cfg IntegratorConfig
	f   func(t float64, y []float64) []float64
	k   [rkf78Stages][]float64 // stage buffers, reused across steps
	tmp []float64
}

// NewRKF78 returns a stepper for the given derivative function. The
// configuration must have been validated beforehand.
func NewRKF78(cfg IntegratorConfig, f func(t float64, y []float64) []float64) *RKF78 {
	return &RKF78{cfg: cfg, f: f}
}

// Step advances (t, y) by a step of magnitude |h| and the sign of h. It
// retries internally with smaller steps until the scaled RSS error estimate
// meets the tolerance, up to MaxStepAttempts. On success it returns the new
// state, the epoch and step actually taken, the error estimate of that step
// and a proposal for the next step size (positive, clamped to
// [MinStep, MaxStep]). Exhausting the attempts either fails with StepFailure
// or, with StopIfAccuracyIsViolated unset, accepts the last attempt anyway.
// Falling below MinStep while still failing accuracy is always a StepFailure.
func (rk *RKF78) Step(t float64, y []float64, h float64) (yNew []float64, tNew, errEst, hNext float64, err error) {
	dir := sign(h)
	hMag := math.Abs(h)
	if hMag > rk.cfg.MaxStep {
		hMag = rk.cfg.MaxStep
	}
	var attempts uint
	for {
		attempts++
		yNew = rk.trial(t, y, dir*hMag)
		errEst = rk.errorNorm(y, hMag)
		if errEst <= rk.cfg.Tolerance {
			// Accepted: grow the next step from the error margin.
			hNext = rk.controller(hMag, errEst)
			return yNew, t + dir*hMag, errEst, hNext, nil
		}
		if attempts >= rk.cfg.MaxStepAttempts {
			if rk.cfg.StopIfAccuracyIsViolated {
				return nil, t, errEst, 0, StepFailure{StepSize: dir * hMag, Attempts: attempts,
					Reason: "accuracy not met within MaxStepAttempts"}
			}
			// Accept the violating step; keep the step size pinned down.
			return yNew, t + dir*hMag, errEst, rk.cfg.MinStep, nil
		}
		shrunk := rk.controller(hMag, errEst)
		if shrunk >= hMag {
			// The controller is clamped from below, so refusal to shrink
			// means we are already at MinStep.
			return nil, t, errEst, 0, StepFailure{StepSize: dir * hMag, Attempts: attempts,
				Reason: "accuracy not met at MinStep"}
		}
		hMag = shrunk
	}
}

// trial computes the 8th order solution of one step of size h (signed).
func (rk *RKF78) trial(t float64, y []float64, h float64) []float64 {
	n := len(y)
	if rk.tmp == nil || len(rk.tmp) != n {
		rk.tmp = make([]float64, n)
		for s := range rk.k {
			rk.k[s] = make([]float64, n)
		}
	}
	for s := 0; s < rkf78Stages; s++ {
		for i := 0; i < n; i++ {
			acc := y[i]
			for j := 0; j < s; j++ {
				if rkf78A[s][j] != 0 {
					acc += h * rkf78A[s][j] * rk.k[j][i]
				}
			}
			rk.tmp[i] = acc
		}
		copy(rk.k[s], rk.f(t+rkf78C[s]*h, rk.tmp))
	}
	yNew := make([]float64, n)
	for i := 0; i < n; i++ {
		acc := y[i]
		for s := 0; s < rkf78Stages; s++ {
			if rkf78B[s] != 0 {
				acc += h * rkf78B[s] * rk.k[s][i]
			}
		}
		yNew[i] = acc
	}
	return yNew
}

// errorNorm returns the scaled RSS of the per component local truncation
// error of the last trial, each component scaled by max(1, |y_i|).
func (rk *RKF78) errorNorm(y []float64, hMag float64) float64 {
	var rss float64
	for i := range y {
		e := rkf78ErrCoeff * hMag * (rk.k[0][i] + rk.k[10][i] - rk.k[11][i] - rk.k[12][i])
		scale := math.Abs(y[i])
		if scale < 1 {
			scale = 1
		}
		e /= scale
		rss += e * e
	}
	return math.Sqrt(rss)
}

// controller returns the next step magnitude from the last error estimate,
// with the safety factor and the order based exponent, clamped to
// [MinStep, MaxStep] and to sane growth/shrink rates.
func (rk *RKF78) controller(hMag, errEst float64) float64 {
	var factor float64
	if errEst == 0 {
		factor = stepGrowCap
	} else {
		factor = rkf78Safety * math.Pow(rk.cfg.Tolerance/errEst, rkf78Exponent)
		if factor > stepGrowCap {
			factor = stepGrowCap
		} else if factor < stepShrinkCap {
			factor = stepShrinkCap
		}
	}
	h := hMag * factor
	if h > rk.cfg.MaxStep {
		h = rk.cfg.MaxStep
	}
	if h < rk.cfg.MinStep {
		h = rk.cfg.MinStep
	}
	return h
}

// epochAt maps integration time in seconds since the start epoch to a time.
func epochAt(start time.Time, t float64) time.Time {
	return start.Add(time.Duration(t * float64(time.Second)))
}
