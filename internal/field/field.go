package field

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/qflow/internal/geometry"
	"github.com/san-kum/qflow/internal/tensor"
)

// ErrInvalidField indicates a tensor field that violates the symmetric
// traceless invariant or contains non-finite entries. Caller error; the
// field is rejected, not repaired.
var ErrInvalidField = errors.New("field: invalid Q-tensor field")

// DefaultTol is the invariant tolerance applied after projection.
const DefaultTol = 1e-9

// Field is a Q-tensor field: one symmetric traceless d x d tensor per
// geometry sample point, in the geometry's point order.
type Field struct {
	Dim int
	T   []tensor.Mat
}

// Project enforces the Q-tensor invariant on a raw tensor field:
// symmetrize, remove the trace, and validate. Non-finite input is rejected
// with ErrInvalidField.
func Project(raw []tensor.Mat, dim int) (*Field, error) {
	if dim != 2 && dim != 3 {
		return nil, fmt.Errorf("%w: unsupported dimension %d", ErrInvalidField, dim)
	}
	out := make([]tensor.Mat, len(raw))
	for i, m := range raw {
		if m.Dim != dim {
			return nil, fmt.Errorf("%w: tensor at point %d has dimension %d, want %d",
				ErrInvalidField, i, m.Dim, dim)
		}
		if !m.IsValid() {
			return nil, fmt.Errorf("%w: non-finite tensor at point %d", ErrInvalidField, i)
		}
		out[i] = m.Sym().Deviatoric()
	}
	f := &Field{Dim: dim, T: out}
	if err := f.Validate(DefaultTol); err != nil {
		return nil, err
	}
	return f, nil
}

// Validate checks the symmetric traceless invariant within tol.
func (f *Field) Validate(tol float64) error {
	for i, m := range f.T {
		if !m.IsValid() {
			return fmt.Errorf("%w: non-finite tensor at point %d", ErrInvalidField, i)
		}
		scale := math.Max(1, m.Norm())
		if !m.IsSymmetric(tol * scale) {
			return fmt.Errorf("%w: asymmetric tensor at point %d", ErrInvalidField, i)
		}
		if !m.IsTraceless(tol * scale) {
			return fmt.Errorf("%w: trace %g at point %d", ErrInvalidField, m.Trace(), i)
		}
	}
	return nil
}

func (f *Field) Clone() *Field {
	return &Field{Dim: f.Dim, T: append([]tensor.Mat(nil), f.T...)}
}

// MeanNorm is the mean Frobenius norm, the scalar diagnostic used by the
// semigroup comparisons.
func (f *Field) MeanNorm() float64 {
	if len(f.T) == 0 {
		return 0
	}
	s := 0.0
	for _, m := range f.T {
		s += m.Norm()
	}
	return s / float64(len(f.T))
}

// TraceQ2 is the mean of tr(Q^2) over the field.
func (f *Field) TraceQ2() float64 {
	if len(f.T) == 0 {
		return 0
	}
	s := 0.0
	for _, m := range f.T {
		s += m.Mul(m).Trace()
	}
	return s / float64(len(f.T))
}

// TraceQ3 is the mean of tr(Q^3) over the field.
func (f *Field) TraceQ3() float64 {
	if len(f.T) == 0 {
		return 0
	}
	s := 0.0
	for _, m := range f.T {
		s += m.Mul(m).Mul(m).Trace()
	}
	return s / float64(len(f.T))
}

// Distance is the mean Frobenius distance to another field.
func (f *Field) Distance(other *Field) float64 {
	if other == nil || len(f.T) != len(other.T) {
		return math.Inf(1)
	}
	s := 0.0
	for i := range f.T {
		s += f.T[i].Dist(other.T[i])
	}
	return s / float64(len(f.T))
}

// PointTensor is one entry of the flat export sequence.
type PointTensor struct {
	Point geometry.Point
	T     tensor.Mat
}

// Pairs exposes the field as an order-stable sequence of (point, tensor)
// pairs for the consuming layer's serialization.
func (f *Field) Pairs(geo *geometry.Geometry) []PointTensor {
	out := make([]PointTensor, len(f.T))
	for i := range f.T {
		out[i] = PointTensor{Point: geo.Points[i], T: f.T[i]}
	}
	return out
}
