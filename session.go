package opal

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ChristopherRabotin/ode"
)

// timeε is the epoch matching tolerance of the stop condition, in seconds.
const timeε = 1e-6

/* Handles the propagation runs. */

// SessionStatus is the state of a propagation session. A session moves from
// Idle to Running exactly once, and ends in Completed or Failed; there is no
// way back to Running but to construct a new session.
type SessionStatus uint8

const (
	// Idle means Run has not been called yet.
	Idle SessionStatus = iota
	// Running means the integration loop is executing.
	Running
	// Completed means the stop condition was reached (or the run was
	// cancelled between accepted steps; the Reason tells them apart).
	Completed
	// Failed means the integrator gave up with a StepFailure.
	Failed
)

func (s SessionStatus) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Running:
		return "Running"
	case Completed:
		return "Completed"
	case Failed:
		return "Failed"
	}
	panic("cannot stringify unknown session status")
}

// Sample is one propagated state: an epoch and the Cartesian position and
// velocity about the central body.
type Sample struct {
	DT time.Time
	R  []float64 // km
	V  []float64 // km/s
}

// PropagationResult is the ordered, append only sequence of samples produced
// by one run. It always distinguishes a run which reached its stop condition
// from one which terminated early, and in the latter case why.
type PropagationResult struct {
	Status  SessionStatus
	Reason  string // empty on a clean completion
	Samples []Sample
}

// Final returns the last sample.
func (r *PropagationResult) Final() Sample {
	return r.Samples[len(r.Samples)-1]
}

// PropagationSession orchestrates one propagation run: it repeatedly asks the
// integrator to advance the state through the force model until the stop
// condition is reached, and hands every accepted sample to its subscribers.
type PropagationSession struct {
	Vehicle                    *Spacecraft
	Orbit                      *Orbit
	Forces                     ForceModel
	Integ                      IntegratorConfig
	StartDT, StopDT, CurrentDT time.Time
	// Predicate, when set, ends the run after the first accepted step for
	// which it returns true. It originates from mission sequence commands.
	Predicate func(dt time.Time, o Orbit) bool

	status    SessionStatus
	result    *PropagationResult
	stopChan  chan bool
	histChan  chan Sample
	wg        sync.WaitGroup
	cancelled bool
}

// NewSession validates the whole configuration and returns a session ready to
// run. Any invalid input surfaces as a ConfigError here, before any step.
func NewSession(sc *Spacecraft, o *Orbit, start, stop time.Time, forces ForceModel, integ IntegratorConfig, conf ExportConfig) (*PropagationSession, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	if err := integ.Validate(); err != nil {
		return nil, err
	}
	if err := forces.Validate(); err != nil {
		return nil, err
	}
	if !forces.Central.Equals(o.Origin) {
		return nil, NewConfigError("forces.centralbody", "force model is about %s but the orbit is about %s", forces.Central.Name, o.Origin.Name)
	}
	// Must switch to UTC as all ephemeris data is in UTC.
	start = start.UTC()
	stop = stop.UTC()
	if stop.Before(start) && integ.Type == RungeKutta4 {
		return nil, NewConfigError("integrator.type", "backward propagation needs the adaptive integrator")
	}
	s := &PropagationSession{
		Vehicle: sc, Orbit: o, Forces: forces, Integ: integ,
		StartDT: start, StopDT: stop, CurrentDT: start,
		status:   Idle,
		result:   &PropagationResult{Status: Idle},
		stopChan: make(chan bool, 1),
	}
	if !conf.IsUseless() {
		s.histChan = make(chan Sample, 1000) // a 1k entry buffer
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			StreamSamples(conf, s.histChan)
		}()
	}
	return s, nil
}

// Status returns the session status.
func (s *PropagationSession) Status() SessionStatus {
	return s.status
}

// StopPropagation cancels the run before its stop condition, between two
// accepted steps. Samples already collected remain valid and are returned.
func (s *PropagationSession) StopPropagation() {
	s.stopChan <- true
}

// Run executes the propagation until the stop epoch, the predicate, a
// cancellation, or a StepFailure, whichever comes first. It returns the
// result in every case; the error is non nil only on a StepFailure, whose
// samples up to the failure are preserved in the result. A session cannot be
// run twice.
func (s *PropagationSession) Run() (*PropagationResult, error) {
	if s.status != Idle {
		return s.result, fmt.Errorf("session already ran (status %s)", s.status)
	}
	s.status = Running
	s.result.Status = Running
	s.logStatus()

	// The first sample is the initial state.
	s.emit()

	if s.StopDT.Equal(s.StartDT) {
		// Zero length propagation: a single sample, by design.
		s.finish(Completed, "")
		return s.result, nil
	}

	var err error
	if s.Integ.Type == RungeKutta4 {
		err = s.runFixed()
	} else {
		err = s.runAdaptive()
	}
	if err != nil {
		s.finish(Failed, err.Error())
		return s.result, err
	}
	if s.cancelled {
		s.finish(Completed, "cancelled")
	} else {
		s.finish(Completed, s.result.Reason)
	}
	return s.result, nil
}

// runAdaptive is the RKF78 integration loop.
func (s *PropagationSession) runAdaptive() error {
	total := s.StopDT.Sub(s.StartDT).Seconds()
	dir := sign(total)
	rk := NewRKF78(s.Integ, s.deriv)
	R, V := s.Orbit.RV()
	y := make([]float64, 6)
	copy(y[:3], R)
	copy(y[3:], V)
	t := 0.0
	h := dir * s.Integ.InitialStep
	for {
		select {
		case <-s.stopChan:
			s.cancelled = true
			return nil
		default:
		}
		remaining := total - t
		if math.Abs(remaining) <= timeε {
			return nil
		}
		if math.Abs(h) > math.Abs(remaining) {
			// Final partial step to land exactly on the stop epoch.
			h = remaining
		}
		yNew, tNew, _, hNext, err := rk.Step(t, y, h)
		if err != nil {
			if sf, ok := err.(StepFailure); ok {
				sf.DT = s.CurrentDT
				err = sf
			}
			return err
		}
		y, t = yNew, tNew
		s.setState(t, y)
		if s.Predicate != nil && s.Predicate(s.CurrentDT, *s.Orbit) {
			s.result.Reason = "predicate"
			return nil
		}
		h = dir * hNext
	}
}

// runFixed is the fixed step RungeKutta4 loop, driven through the ode package
// with a final partial step to land exactly on the stop epoch.
func (s *PropagationSession) runFixed() error {
	total := s.StopDT.Sub(s.StartDT)
	step := time.Duration(s.Integ.InitialStep * float64(time.Second))
	nFull := uint64(total / step)
	rem := total - step*time.Duration(nFull)

	R, V := s.Orbit.RV()
	y := make([]float64, 6)
	copy(y[:3], R)
	copy(y[3:], V)
	run := &rk4Run{s: s, step: step, iters: nFull, y: y}
	if nFull > 0 {
		ode.NewRK4(0, step.Seconds(), run).Solve() // Blocking.
	}
	if s.cancelled || run.hit {
		if run.hit {
			s.result.Reason = "predicate"
		}
		return nil
	}
	if rem > time.Duration(timeε*float64(time.Second)) {
		run.step = rem
		run.iters = 1
		elapsed := step.Seconds() * float64(nFull)
		ode.NewRK4(elapsed, rem.Seconds(), run).Solve()
		if run.hit {
			s.result.Reason = "predicate"
		}
	}
	return nil
}

// rk4Run makes a session integrable by the ode package.
type rk4Run struct {
	s     *PropagationSession
	step  time.Duration
	iters uint64
	y     []float64
	hit   bool
}

// GetState implements the ode.Integrable interface.
func (r *rk4Run) GetState() []float64 {
	out := make([]float64, len(r.y))
	copy(out, r.y)
	return out
}

// SetState implements the ode.Integrable interface.
func (r *rk4Run) SetState(t float64, y []float64) {
	copy(r.y, y)
	r.s.setState(t, y)
	if r.s.Predicate != nil && r.s.Predicate(r.s.CurrentDT, *r.s.Orbit) {
		r.hit = true
	}
}

// Stop implements the ode.Integrable interface. To stop the propagation, call
// StopPropagation().
func (r *rk4Run) Stop(t float64) bool {
	if r.hit {
		return true
	}
	select {
	case <-r.s.stopChan:
		r.s.cancelled = true
		return true
	default:
	}
	if r.iters == 0 {
		return true
	}
	r.iters--
	r.s.CurrentDT = r.s.CurrentDT.Add(r.step)
	return false
}

// Func implements the ode.Integrable interface: the equations of motion in
// Cartesian form.
func (r *rk4Run) Func(t float64, y []float64) []float64 {
	return r.s.derivAt(r.s.CurrentDT, y)
}

// deriv is the derivative function of the adaptive integrator, with t in
// seconds since the start epoch.
func (s *PropagationSession) deriv(t float64, y []float64) []float64 {
	return s.derivAt(epochAt(s.StartDT, t), y)
}

func (s *PropagationSession) derivAt(dt time.Time, y []float64) []float64 {
	R := y[0:3]
	V := y[3:6]
	acc := s.Forces.Acceleration(dt, R, V, s.Vehicle)
	fDot := make([]float64, 6)
	// d\vec{R}/dt
	fDot[0] = y[3]
	fDot[1] = y[4]
	fDot[2] = y[5]
	// d\vec{V}/dt
	fDot[3] = acc[0]
	fDot[4] = acc[1]
	fDot[5] = acc[2]
	for i := 0; i < 6; i++ {
		if math.IsNaN(fDot[i]) {
			panic(fmt.Errorf("fDot[%d]=NaN @ dt=%s\ncur:%s\nR=%+v\tV=%+v", i, dt, s.Orbit, R, V))
		}
	}
	return fDot
}

// setState stores the state accepted by the integrator at t seconds since the
// start epoch (adaptive) or at the already advanced CurrentDT (fixed step),
// appends the sample and streams it.
func (s *PropagationSession) setState(t float64, y []float64) {
	if s.Integ.Type != RungeKutta4 {
		s.CurrentDT = epochAt(s.StartDT, t)
	}
	R := []float64{y[0], y[1], y[2]}
	V := []float64{y[3], y[4], y[5]}
	*s.Orbit = *NewOrbitFromRV(R, V, s.Orbit.Origin) // Deref is important.
	if s.Orbit.RNorm() < s.Orbit.Origin.Radius {
		s.Vehicle.logger.Log("level", "critical", "subsys", "session", "collided", s.Orbit.Origin.Name, "dt", s.CurrentDT, "r", s.Orbit.RNorm(), "radius", s.Orbit.Origin.Radius)
	}
	s.emit()
}

// emit appends the current state to the result and streams it.
func (s *PropagationSession) emit() {
	R, V := s.Orbit.RV()
	sample := Sample{DT: s.CurrentDT, R: []float64{R[0], R[1], R[2]}, V: []float64{V[0], V[1], V[2]}}
	s.result.Samples = append(s.result.Samples, sample)
	if s.histChan != nil {
		s.histChan <- sample
	}
}

// finish seals the session and waits for the subscribers to drain.
func (s *PropagationSession) finish(status SessionStatus, reason string) {
	s.status = status
	s.result.Status = status
	s.result.Reason = reason
	if s.histChan != nil {
		close(s.histChan)
		s.histChan = nil
	}
	s.wg.Wait() // Don't return until we're done writing all the files.
	duration := s.CurrentDT.Sub(s.StartDT)
	durStr := duration.String()
	if duration.Hours() > 24 {
		durStr += fmt.Sprintf(" (~%.3fd)", duration.Hours()/24)
	}
	s.Vehicle.logger.Log("level", "notice", "subsys", "session", "status", status, "reason", reason, "duration", durStr, "samples", len(s.result.Samples))
}

func (s *PropagationSession) logStatus() {
	s.Vehicle.logger.Log("level", "info", "subsys", "session", "date", s.CurrentDT, "orbit", s.Orbit, "integrator", s.Integ.Type)
}
