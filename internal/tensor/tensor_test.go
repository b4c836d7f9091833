package tensor

import (
	"math"
	"testing"
)

func TestSymDeviatoric(t *testing.T) {
	m := New(2)
	m.Set(0, 0, 1)
	m.Set(0, 1, 2)
	m.Set(1, 0, 4)
	m.Set(1, 1, 3)

	q := m.Sym().Deviatoric()

	if !q.IsSymmetric(1e-12) {
		t.Error("expected symmetric result")
	}
	if !q.IsTraceless(1e-12) {
		t.Errorf("expected traceless result, trace=%g", q.Trace())
	}
	if got := q.At(0, 1); math.Abs(got-3) > 1e-12 {
		t.Errorf("expected off-diagonal 3, got %g", got)
	}

	// Sym and Antisym split the matrix exactly.
	if d := m.Sym().Add(m.Antisym()).Dist(m); d > 1e-12 {
		t.Errorf("sym + antisym deviates from m by %g", d)
	}
}

func TestMulTrace(t *testing.T) {
	a := Identity(3).Scale(2)
	b := Identity(3).Scale(3)
	if got := a.Mul(b).Trace(); math.Abs(got-18) > 1e-12 {
		t.Errorf("expected trace 18, got %g", got)
	}
}

func TestInverse(t *testing.T) {
	tests := []struct {
		name string
		dim  int
		set  func(*Mat)
	}{
		{"diag 2x2", 2, func(m *Mat) {
			m.Set(0, 0, 2)
			m.Set(1, 1, 4)
		}},
		{"full 3x3", 3, func(m *Mat) {
			m.Set(0, 0, 2)
			m.Set(0, 1, 1)
			m.Set(1, 0, 1)
			m.Set(1, 1, 3)
			m.Set(2, 2, 5)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(tt.dim)
			tt.set(&m)
			inv, err := m.Inverse()
			if err != nil {
				t.Fatalf("inverse failed: %v", err)
			}
			if d := m.Mul(inv).Dist(Identity(tt.dim)); d > 1e-12 {
				t.Errorf("m * m^-1 deviates from identity by %g", d)
			}
		})
	}
}

func TestInverseSingular(t *testing.T) {
	m := New(2)
	if _, err := m.Inverse(); err == nil {
		t.Error("expected error for singular matrix")
	}
}

func TestIsSPD(t *testing.T) {
	good := Identity(2)
	if !good.IsSPD(1e-12) {
		t.Error("identity should be SPD")
	}

	bad := Identity(2).Scale(-1)
	if bad.IsSPD(1e-12) {
		t.Error("negative definite should not be SPD")
	}

	asym := New(2)
	asym.Set(0, 0, 1)
	asym.Set(1, 1, 1)
	asym.Set(0, 1, 0.5)
	if asym.IsSPD(1e-12) {
		t.Error("asymmetric matrix should not be SPD")
	}
}

func TestSpectralNormSquared(t *testing.T) {
	// D with dual vector (1, 2, 3): lambda^2 = 1 + 4 + 9.
	d := New(3)
	d.Set(2, 1, 1)
	d.Set(1, 2, -1)
	d.Set(0, 2, 2)
	d.Set(2, 0, -2)
	d.Set(1, 0, 3)
	d.Set(0, 1, -3)

	if got := SpectralNormSquared(d); math.Abs(got-14) > 1e-12 {
		t.Errorf("expected 14, got %g", got)
	}
}

func TestEigenstructure(t *testing.T) {
	d := New(3)
	d.Set(2, 1, 1)
	d.Set(1, 2, -1)
	d.Set(0, 2, 2)
	d.Set(2, 0, -2)
	d.Set(1, 0, 3)
	d.Set(0, 1, -3)

	e, err := Eigenstructure(d, 1e-12)
	if err != nil {
		t.Fatalf("eigenstructure failed: %v", err)
	}
	if math.Abs(e.Lambda-math.Sqrt(14)) > 1e-12 {
		t.Errorf("expected lambda sqrt(14), got %g", e.Lambda)
	}

	// axis is unit length and spans the kernel: D * axis == 0
	n := e.Axis[0]*e.Axis[0] + e.Axis[1]*e.Axis[1] + e.Axis[2]*e.Axis[2]
	if math.Abs(n-1) > 1e-12 {
		t.Errorf("axis not unit length: %g", n)
	}
	for i := 0; i < 3; i++ {
		s := 0.0
		for j := 0; j < 3; j++ {
			s += d.At(i, j) * e.Axis[j]
		}
		if math.Abs(s) > 1e-12 {
			t.Errorf("D * axis component %d = %g, want 0", i, s)
		}
	}
}

func TestEigenstructureRejectsSymmetric(t *testing.T) {
	if _, err := Eigenstructure(Identity(3), 1e-12); err == nil {
		t.Error("expected error for non-antisymmetric input")
	}
}
