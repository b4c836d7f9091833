package flow

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/qflow/internal/category"
	"github.com/san-kum/qflow/internal/defect"
	"github.com/san-kum/qflow/internal/rg"
)

// ErrConvergenceFailure indicates a flow that hit its step limit without
// the trajectory settling inside the tolerance window. Not fatal: the
// partial trajectory is kept and the driver can be resumed with a larger
// budget.
var ErrConvergenceFailure = errors.New("flow: convergence failure")

// StepError wraps a failure inside one flow step with its position.
type StepError struct {
	Step  int
	Scale float64
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("flow: step %d at scale %.4g: %v", e.Step, e.Scale, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// State is the driver lifecycle.
type State int

const (
	Init State = iota
	Stepping
	Converged
	Diverged        // operator or geometry failure; never restartable
	MaxScaleReached // scale horizon or step budget exhausted; restartable
	Cancelled
)

func (s State) String() string {
	switch s {
	case Init:
		return "init"
	case Stepping:
		return "stepping"
	case Converged:
		return "converged"
	case Diverged:
		return "diverged"
	case MaxScaleReached:
		return "max-scale"
	case Cancelled:
		return "cancelled"
	}
	return "unknown"
}

// Terminal reports whether the driver will take no more steps.
func (s State) Terminal() bool {
	return s == Converged || s == Diverged || s == MaxScaleReached || s == Cancelled
}

// Config controls one flow run.
type Config struct {
	ScaleStep float64 // RG increment per step
	MaxScale  float64 // stop once accumulated scale reaches this
	Tolerance float64 // object distance below which steps count as settled
	MaxSteps  int     // hard cap; exceeding it without settling is failure
	Window    int     // consecutive settled steps required for convergence

	// TrackNaturality records the defect naturality deviation on every
	// snapshot. Costs one extra operator step per flow step.
	TrackNaturality bool
}

func DefaultConfig() Config {
	return Config{
		ScaleStep: 0.02,
		MaxScale:  1.0,
		Tolerance: 1e-4,
		MaxSteps:  200,
		Window:    3,
	}
}

func (c Config) validate() error {
	if c.ScaleStep <= 0 {
		return fmt.Errorf("flow: scale step must be positive, got %g", c.ScaleStep)
	}
	if c.MaxScale <= 0 {
		return fmt.Errorf("flow: max scale must be positive, got %g", c.MaxScale)
	}
	if c.Tolerance <= 0 {
		return fmt.Errorf("flow: tolerance must be positive, got %g", c.Tolerance)
	}
	if c.MaxSteps < 1 {
		return fmt.Errorf("flow: need at least one step, got %d", c.MaxSteps)
	}
	if c.Window < 1 {
		return fmt.Errorf("flow: window must be at least 1, got %d", c.Window)
	}
	return nil
}

// Snapshot is one trajectory sample.
type Snapshot struct {
	Step       int
	Scale      float64
	Object     *category.Object
	Delta      float64 // distance to the previous object
	DefectMax  float64 // peak defect strength
	MeanNorm   float64
	TraceQ2    float64
	Naturality float64 // defect naturality deviation, if tracked
}

// Observer receives every snapshot as it is produced. Observers run on the
// driver goroutine; slow observers slow the flow.
type Observer func(Snapshot)

// Driver advances an object through repeated RG steps until convergence,
// divergence, or the scale horizon. Not safe for concurrent use.
type Driver struct {
	cfg       Config
	op        *rg.Operator
	state     State
	current   *category.Object
	steps     int
	settled   int
	traj      []Snapshot
	observers []Observer
}

func NewDriver(op *rg.Operator, start *category.Object, cfg Config) (*Driver, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if op == nil || start == nil || start.Tensor == nil {
		return nil, errors.New("flow: driver needs an operator and a tensor-field object")
	}
	d := &Driver{cfg: cfg, op: op, state: Init, current: start}
	d.record(start, 0)
	return d, nil
}

func (d *Driver) State() State              { return d.state }
func (d *Driver) Current() *category.Object { return d.current }
func (d *Driver) Steps() int                { return d.steps }
func (d *Driver) Trajectory() []Snapshot    { return append([]Snapshot(nil), d.traj...) }
func (d *Driver) Observe(obs Observer)      { d.observers = append(d.observers, obs) }

func (d *Driver) record(obj *category.Object, delta float64) {
	snap := Snapshot{
		Step:     d.steps,
		Scale:    obj.Scale,
		Object:   obj,
		Delta:    delta,
		MeanNorm: obj.Tensor.MeanNorm(),
		TraceQ2:  obj.Tensor.TraceQ2(),
	}
	if mag, err := defect.Magnitude(obj.Tensor, obj.Geo); err == nil {
		_, snap.DefectMax = defect.Peak(mag)
	}
	if d.cfg.TrackNaturality {
		if dev, err := defect.NaturalityDeviation(d.op, obj, d.cfg.ScaleStep); err == nil {
			snap.Naturality = dev
		}
	}
	d.traj = append(d.traj, snap)
	for _, obs := range d.observers {
		obs(snap)
	}
}

// Advance takes exactly one RG step. It returns the new state; failures
// inside the operator mark the driver Diverged and surface as a StepError.
func (d *Driver) Advance() (State, error) {
	if d.state.Terminal() {
		return d.state, nil
	}
	d.state = Stepping

	next, err := d.op.Step(d.current, d.cfg.ScaleStep)
	if err != nil {
		d.state = Diverged
		return d.state, &StepError{Step: d.steps, Scale: d.current.Scale, Err: err}
	}
	delta := next.Distance(d.current)
	if math.IsNaN(delta) || math.IsInf(delta, 0) {
		d.state = Diverged
		return d.state, &StepError{
			Step: d.steps, Scale: d.current.Scale,
			Err: errors.New("non-finite trajectory distance"),
		}
	}

	d.steps++
	d.current = next
	d.record(next, delta)

	// Scale advances by ScaleStep each step, so subtract it back out when
	// testing settlement against the field alone.
	if delta-d.cfg.ScaleStep < d.cfg.Tolerance {
		d.settled++
	} else {
		d.settled = 0
	}

	switch {
	case d.settled >= d.cfg.Window:
		d.state = Converged
	case next.Scale >= d.cfg.MaxScale:
		d.state = MaxScaleReached
	case d.steps >= d.cfg.MaxSteps:
		// Budget exhaustion is not divergence: the trajectory is intact
		// and a resumed driver can keep stepping from here.
		d.state = MaxScaleReached
		return d.state, fmt.Errorf("%w: %d steps without settling", ErrConvergenceFailure, d.steps)
	}
	return d.state, nil
}

// Run drives the flow to a terminal state. Cancellation is checked between
// steps only; an in-flight step always completes.
func (d *Driver) Run(ctx context.Context) (State, error) {
	for !d.state.Terminal() {
		select {
		case <-ctx.Done():
			d.state = Cancelled
			return d.state, ctx.Err()
		default:
		}
		if _, err := d.Advance(); err != nil {
			return d.state, err
		}
	}
	return d.state, nil
}

// Resume restarts a terminal driver with a fresh config, keeping the
// trajectory so far. Diverged drivers stay diverged.
func (d *Driver) Resume(cfg Config) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	if d.state == Diverged {
		return errors.New("flow: cannot resume a diverged flow")
	}
	d.cfg = cfg
	d.settled = 0
	d.state = Init
	return nil
}

// CheckFunctorLaws runs the smoothing endofunctor's identity and
// composition laws at the driver's current object. tol absorbs the
// discretization error of the kernel and the metric stepper.
func (d *Driver) CheckFunctorLaws(t, tol float64) error {
	fu := d.op.Functor(t)
	if err := fu.CheckIdentityLaw(d.current, tol); err != nil {
		return err
	}
	f, err := d.op.Morphism(d.current, t)
	if err != nil {
		return err
	}
	g, err := d.op.Morphism(f.Codomain, t)
	if err != nil {
		return err
	}
	return fu.CheckCompositionLaw(g, f, tol)
}
