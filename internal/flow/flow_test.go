package flow

import (
	"context"
	"errors"
	"testing"

	"github.com/san-kum/qflow/internal/category"
	"github.com/san-kum/qflow/internal/geometry"
	"github.com/san-kum/qflow/internal/rg"
	"github.com/san-kum/qflow/internal/scenario"
)

func newDriver(t *testing.T, scen string, cfg Config) *Driver {
	t.Helper()
	geo := geometry.NewDisk(10)
	f, err := scenario.NewRegistry().Build(scen, geo, scenario.Params{"s0": 0.6})
	if err != nil {
		t.Fatalf("scenario failed: %v", err)
	}
	obj, err := category.NewObject(geo, f, 0)
	if err != nil {
		t.Fatalf("object failed: %v", err)
	}
	d, err := NewDriver(rg.NewOperator(), obj, cfg)
	if err != nil {
		t.Fatalf("driver failed: %v", err)
	}
	return d
}

func TestConfigValidation(t *testing.T) {
	geo := geometry.NewDisk(6)
	f, err := scenario.Uniform(geo, scenario.Params{"s0": 0.6})
	if err != nil {
		t.Fatalf("scenario failed: %v", err)
	}
	obj, err := category.NewObject(geo, f, 0)
	if err != nil {
		t.Fatalf("object failed: %v", err)
	}

	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero step", Config{ScaleStep: 0, MaxScale: 1, Tolerance: 1e-4, MaxSteps: 10, Window: 1}},
		{"negative max scale", Config{ScaleStep: 0.1, MaxScale: -1, Tolerance: 1e-4, MaxSteps: 10, Window: 1}},
		{"zero tolerance", Config{ScaleStep: 0.1, MaxScale: 1, Tolerance: 0, MaxSteps: 10, Window: 1}},
		{"no steps", Config{ScaleStep: 0.1, MaxScale: 1, Tolerance: 1e-4, MaxSteps: 0, Window: 1}},
		{"zero window", Config{ScaleStep: 0.1, MaxScale: 1, Tolerance: 1e-4, MaxSteps: 10, Window: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewDriver(rg.NewOperator(), obj, tt.cfg); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestUniformFieldConverges(t *testing.T) {
	cfg := DefaultConfig()
	d := newDriver(t, "uniform", cfg)

	state, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if state != Converged {
		t.Errorf("expected converged, got %s", state)
	}
	// The constant field settles immediately, one window of steps.
	if d.Steps() != cfg.Window {
		t.Errorf("expected %d steps, got %d", cfg.Window, d.Steps())
	}
}

func TestMaxScaleReached(t *testing.T) {
	cfg := Config{ScaleStep: 0.02, MaxScale: 0.06, Tolerance: 1e-12, MaxSteps: 100, Window: 3}
	d := newDriver(t, "single-defect", cfg)

	state, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if state != MaxScaleReached {
		t.Errorf("expected max-scale, got %s", state)
	}
	if got := d.Current().Scale; got < 0.06-1e-12 {
		t.Errorf("scale %g short of horizon", got)
	}
}

func TestConvergenceFailure(t *testing.T) {
	cfg := Config{ScaleStep: 0.02, MaxScale: 100, Tolerance: 1e-15, MaxSteps: 3, Window: 3}
	d := newDriver(t, "single-defect", cfg)

	state, err := d.Run(context.Background())
	if !errors.Is(err, ErrConvergenceFailure) {
		t.Errorf("expected ErrConvergenceFailure, got %v", err)
	}
	if state != MaxScaleReached {
		t.Errorf("expected max-scale, got %s", state)
	}

	// The partial trajectory survives budget exhaustion and the flow can
	// be restarted with a larger budget.
	stepsBefore := d.Steps()
	cfg.MaxSteps = 6
	if err := d.Resume(cfg); err != nil {
		t.Fatalf("resume after budget exhaustion failed: %v", err)
	}
	state, err = d.Run(context.Background())
	if !errors.Is(err, ErrConvergenceFailure) {
		t.Errorf("expected ErrConvergenceFailure after resume, got %v", err)
	}
	if state != MaxScaleReached {
		t.Errorf("expected max-scale after resume, got %s", state)
	}
	if d.Steps() <= stepsBefore {
		t.Errorf("resume should keep stepping: %d -> %d", stepsBefore, d.Steps())
	}
}

func TestOperatorFailureDiverges(t *testing.T) {
	d := newDriver(t, "uniform", DefaultConfig())
	d.Current().Tensor.T[0].Set(0, 1, d.Current().Tensor.T[0].At(0, 1)+1) // break symmetry

	state, err := d.Run(context.Background())
	if state != Diverged {
		t.Fatalf("expected diverged, got %s", state)
	}
	var se *StepError
	if !errors.As(err, &se) {
		t.Fatalf("expected StepError, got %v", err)
	}
	if err := d.Resume(DefaultConfig()); err == nil {
		t.Error("a diverged flow should refuse to resume")
	}
}

func TestCancellation(t *testing.T) {
	d := newDriver(t, "single-defect", Config{ScaleStep: 0.02, MaxScale: 100, Tolerance: 1e-15, MaxSteps: 10000, Window: 3})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	state, err := d.Run(ctx)
	if state != Cancelled {
		t.Errorf("expected cancelled, got %s", state)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestResume(t *testing.T) {
	cfg := Config{ScaleStep: 0.02, MaxScale: 0.04, Tolerance: 1e-12, MaxSteps: 100, Window: 3}
	d := newDriver(t, "single-defect", cfg)

	state, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if state != MaxScaleReached {
		t.Fatalf("expected max-scale, got %s", state)
	}
	stepsBefore := d.Steps()

	cfg.MaxScale = 0.1
	if err := d.Resume(cfg); err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	state, err = d.Run(context.Background())
	if err != nil {
		t.Fatalf("resumed run failed: %v", err)
	}
	if state != MaxScaleReached {
		t.Errorf("expected max-scale after resume, got %s", state)
	}
	if d.Steps() <= stepsBefore {
		t.Error("resume should continue the trajectory")
	}
}

func TestObserverSeesEverySnapshot(t *testing.T) {
	cfg := Config{ScaleStep: 0.02, MaxScale: 0.06, Tolerance: 1e-12, MaxSteps: 100, Window: 3}
	d := newDriver(t, "uniform", cfg)

	var seen []int
	d.Observe(func(s Snapshot) { seen = append(seen, s.Step) })

	if _, err := d.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(seen) != d.Steps() {
		t.Errorf("observer saw %d snapshots for %d steps", len(seen), d.Steps())
	}
	for i, step := range seen {
		if step != i+1 {
			t.Fatalf("snapshot %d out of order: step %d", i, step)
		}
	}
}

func TestTrackNaturality(t *testing.T) {
	cfg := Config{ScaleStep: 0.02, MaxScale: 0.04, Tolerance: 1e-12, MaxSteps: 100, Window: 3, TrackNaturality: true}
	d := newDriver(t, "single-defect", cfg)

	if _, err := d.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	for _, snap := range d.Trajectory() {
		if snap.Naturality < 0 {
			t.Fatalf("negative naturality deviation %g at step %d", snap.Naturality, snap.Step)
		}
	}

	// Untracked flows leave the field zero.
	cfg.TrackNaturality = false
	d = newDriver(t, "single-defect", cfg)
	if _, err := d.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	for _, snap := range d.Trajectory() {
		if snap.Naturality != 0 {
			t.Fatalf("untracked flow recorded naturality %g", snap.Naturality)
		}
	}
}

func TestCheckFunctorLaws(t *testing.T) {
	d := newDriver(t, "single-defect", DefaultConfig())
	if err := d.CheckFunctorLaws(0.05, 0.1); err != nil {
		t.Errorf("functor laws failed: %v", err)
	}
}

func TestAnalyzeFixedPoint(t *testing.T) {
	cfg := DefaultConfig()
	d := newDriver(t, "uniform", cfg)
	if _, err := d.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	fp, err := AnalyzeFixedPoint(d.Trajectory(), cfg.ScaleStep)
	if err != nil {
		t.Fatalf("analysis failed: %v", err)
	}
	if !fp.Found {
		t.Error("a settled constant field should register as a fixed point")
	}

	if _, err := AnalyzeFixedPoint(d.Trajectory()[:2], cfg.ScaleStep); err == nil {
		t.Error("expected error for short trajectory")
	}
}
