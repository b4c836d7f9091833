package geometry

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/qflow/internal/tensor"
)

func TestIndexRoundTrip(t *testing.T) {
	g := NewBox(5)
	for idx := 0; idx < g.NumPoints(); idx++ {
		u, v, w := g.Coords(idx)
		if got := g.Index(u, v, w); got != idx {
			t.Fatalf("index round trip: %d -> (%d,%d,%d) -> %d", idx, u, v, w, got)
		}
	}
}

func TestTorusNeighborWrap(t *testing.T) {
	g := NewTorus(8, 2.0, 0.6)

	idx := g.Index(0, 3, 0)
	left, ok := g.neighbor(idx, 0, -1)
	if !ok {
		t.Fatal("periodic axis should always have a neighbor")
	}
	u, _, _ := g.Coords(left)
	if u != 7 {
		t.Errorf("expected wrap to u=7, got %d", u)
	}
}

func TestDiskBoundaryNeighbor(t *testing.T) {
	g := NewDisk(8)
	idx := g.Index(0, 3, 0)
	if _, ok := g.neighbor(idx, 0, -1); ok {
		t.Error("open axis should have no neighbor past the boundary")
	}
}

func TestFlatChristoffelVanishes(t *testing.T) {
	g := NewDisk(8)
	chris, err := g.ChristoffelAt(g.Index(4, 4, 0))
	if err != nil {
		t.Fatalf("christoffel failed: %v", err)
	}
	for k := 0; k < g.Dim; k++ {
		if n := chris[k].Norm(); n > 1e-12 {
			t.Errorf("flat metric Gamma^%d norm %g, want 0", k, n)
		}
	}
}

func TestSphereRicciFlowShrinksMetric(t *testing.T) {
	g := NewSphere(16, 1.0)
	center := g.Index(8, 8, 0)

	next, err := g.StepRicciFlow(0.01, 0.5)
	if err != nil {
		t.Fatalf("ricci step failed: %v", err)
	}

	before := g.Metric[center].Trace()
	after := next.Metric[center].Trace()
	if after >= before {
		t.Errorf("positively curved metric should shrink: trace %g -> %g", before, after)
	}

	for i := range next.Metric {
		if !next.Metric[i].IsSPD(1e-12) {
			t.Fatalf("metric at point %d left the SPD cone", i)
		}
	}
}

func TestRicciFlowZeroStep(t *testing.T) {
	g := NewSphere(10, 1.0)
	next, err := g.StepRicciFlow(0, 0.5)
	if err != nil {
		t.Fatalf("zero step failed: %v", err)
	}
	if next != g {
		t.Error("zero step should return the geometry unchanged")
	}
}

func TestRicciFlowInstability(t *testing.T) {
	g := NewSphere(10, 1.0)
	_, err := g.StepRicciFlow(1000, 0.5)
	if err == nil {
		t.Fatal("expected instability error for huge dt")
	}
	if !errors.Is(err, ErrNumericalInstability) {
		t.Errorf("expected ErrNumericalInstability, got %v", err)
	}
	var ie *InstabilityError
	if !errors.As(err, &ie) {
		t.Fatalf("expected InstabilityError, got %T", err)
	}
	if ie.Dt != 1000 {
		t.Errorf("expected dt 1000 in error, got %g", ie.Dt)
	}
}

func TestFlatRicciFlowIsIdentity(t *testing.T) {
	g := NewDisk(8)
	next, err := g.StepRicciFlow(0.1, 0.5)
	if err != nil {
		t.Fatalf("ricci step failed: %v", err)
	}
	for i := range next.Metric {
		if d := next.Metric[i].Dist(g.Metric[i]); d > 1e-10 {
			t.Fatalf("flat metric moved by %g at point %d", d, i)
		}
	}
}

func TestLaplaceBeltramiConstant(t *testing.T) {
	g := NewTorus(12, 2.0, 0.6)
	f := make([]float64, g.NumPoints())
	for i := range f {
		f[i] = 3.5
	}
	lap, err := g.LaplaceBeltrami(f)
	if err != nil {
		t.Fatalf("laplacian failed: %v", err)
	}
	for i, v := range lap {
		if math.Abs(v) > 1e-9 {
			t.Fatalf("laplacian of constant is %g at point %d, want 0", v, i)
		}
	}
}

func TestRicciAt(t *testing.T) {
	flat := NewDisk(8)
	ric, err := flat.RicciAt(flat.Index(4, 4, 0))
	if err != nil {
		t.Fatalf("ricci failed: %v", err)
	}
	if n := ric.Norm(); n > 1e-10 {
		t.Errorf("flat metric has Ricci norm %g, want 0", n)
	}

	sphere := NewSphere(16, 1.0)
	ric, err = sphere.RicciAt(sphere.Index(8, 8, 0))
	if err != nil {
		t.Fatalf("ricci failed: %v", err)
	}
	if ric.Trace() <= 0 {
		t.Errorf("positively curved metric should have positive Ricci trace, got %g", ric.Trace())
	}
}

func TestLaplaceBeltramiTensorConstant(t *testing.T) {
	g := NewTorus(12, 2.0, 0.6)
	f := make([]tensor.Mat, g.NumPoints())
	for i := range f {
		m := tensor.New(2)
		m.Set(0, 0, 0.3)
		m.Set(1, 1, -0.3)
		f[i] = m
	}
	lap, err := g.LaplaceBeltramiTensor(f)
	if err != nil {
		t.Fatalf("tensor laplacian failed: %v", err)
	}
	for i, m := range lap {
		if n := m.Norm(); n > 1e-9 {
			t.Fatalf("laplacian of constant tensor is %g at point %d, want 0", n, i)
		}
	}
}

func TestSphereDistance(t *testing.T) {
	g := NewSphere(16, 2.0)
	i := g.Index(8, 0, 0)
	// Same point: zero.
	if d := g.Distance(i, i); d != 0 {
		t.Errorf("self distance %g", d)
	}
	// Distance never exceeds half the great circle.
	for j := 0; j < g.NumPoints(); j += 7 {
		if d := g.Distance(i, j); d > math.Pi*2.0+1e-9 {
			t.Errorf("distance %g exceeds pi*r", d)
		}
	}
}

func TestNewCustomRejectsBadMetric(t *testing.T) {
	pts := []Point{{}, {}, {}, {}}
	bad := make([]tensor.Mat, 4)
	for i := range bad {
		bad[i] = tensor.Identity(2).Scale(-1)
	}
	if _, err := NewCustom(pts, bad, 2, 2, 2, 1, 0.1, 0.1, 1, false, false); err == nil {
		t.Error("expected error for non-SPD metric")
	}
}
