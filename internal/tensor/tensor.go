package tensor

import (
	"fmt"
	"math"
)

// Mat is a dense d x d matrix with d in {2, 3}. The backing array is always
// 3x3; entries beyond Dim are zero and must stay zero.
type Mat struct {
	Dim int
	A   [3][3]float64
}

func New(dim int) Mat {
	return Mat{Dim: dim}
}

func Identity(dim int) Mat {
	m := Mat{Dim: dim}
	for i := 0; i < dim; i++ {
		m.A[i][i] = 1
	}
	return m
}

func (m Mat) At(i, j int) float64 { return m.A[i][j] }

func (m *Mat) Set(i, j int, v float64) { m.A[i][j] = v }

func (m Mat) Add(other Mat) Mat {
	r := Mat{Dim: m.Dim}
	for i := 0; i < m.Dim; i++ {
		for j := 0; j < m.Dim; j++ {
			r.A[i][j] = m.A[i][j] + other.A[i][j]
		}
	}
	return r
}

func (m Mat) Sub(other Mat) Mat {
	r := Mat{Dim: m.Dim}
	for i := 0; i < m.Dim; i++ {
		for j := 0; j < m.Dim; j++ {
			r.A[i][j] = m.A[i][j] - other.A[i][j]
		}
	}
	return r
}

func (m Mat) Scale(f float64) Mat {
	r := Mat{Dim: m.Dim}
	for i := 0; i < m.Dim; i++ {
		for j := 0; j < m.Dim; j++ {
			r.A[i][j] = m.A[i][j] * f
		}
	}
	return r
}

func (m Mat) Mul(other Mat) Mat {
	r := Mat{Dim: m.Dim}
	for i := 0; i < m.Dim; i++ {
		for j := 0; j < m.Dim; j++ {
			s := 0.0
			for k := 0; k < m.Dim; k++ {
				s += m.A[i][k] * other.A[k][j]
			}
			r.A[i][j] = s
		}
	}
	return r
}

func (m Mat) Transpose() Mat {
	r := Mat{Dim: m.Dim}
	for i := 0; i < m.Dim; i++ {
		for j := 0; j < m.Dim; j++ {
			r.A[i][j] = m.A[j][i]
		}
	}
	return r
}

func (m Mat) Trace() float64 {
	s := 0.0
	for i := 0; i < m.Dim; i++ {
		s += m.A[i][i]
	}
	return s
}

// Norm is the Frobenius norm.
func (m Mat) Norm() float64 {
	s := 0.0
	for i := 0; i < m.Dim; i++ {
		for j := 0; j < m.Dim; j++ {
			s += m.A[i][j] * m.A[i][j]
		}
	}
	return math.Sqrt(s)
}

func (m Mat) Dist(other Mat) float64 {
	return m.Sub(other).Norm()
}

// Sym returns the symmetric part (m + m^T)/2.
func (m Mat) Sym() Mat {
	return m.Add(m.Transpose()).Scale(0.5)
}

// Antisym returns the antisymmetric part (m - m^T)/2.
func (m Mat) Antisym() Mat {
	return m.Sub(m.Transpose()).Scale(0.5)
}

// Deviatoric removes the trace: m - tr(m)/d * I.
func (m Mat) Deviatoric() Mat {
	return m.Sub(Identity(m.Dim).Scale(m.Trace() / float64(m.Dim)))
}

func (m Mat) IsValid() bool {
	for i := 0; i < m.Dim; i++ {
		for j := 0; j < m.Dim; j++ {
			if math.IsNaN(m.A[i][j]) || math.IsInf(m.A[i][j], 0) {
				return false
			}
		}
	}
	return true
}

func (m Mat) IsSymmetric(tol float64) bool {
	for i := 0; i < m.Dim; i++ {
		for j := i + 1; j < m.Dim; j++ {
			if math.Abs(m.A[i][j]-m.A[j][i]) > tol {
				return false
			}
		}
	}
	return true
}

func (m Mat) IsAntisymmetric(tol float64) bool {
	for i := 0; i < m.Dim; i++ {
		for j := i; j < m.Dim; j++ {
			if math.Abs(m.A[i][j]+m.A[j][i]) > tol {
				return false
			}
		}
	}
	return true
}

func (m Mat) IsTraceless(tol float64) bool {
	return math.Abs(m.Trace()) <= tol
}

func (m Mat) Det() float64 {
	a := m.A
	switch m.Dim {
	case 2:
		return a[0][0]*a[1][1] - a[0][1]*a[1][0]
	case 3:
		return a[0][0]*(a[1][1]*a[2][2]-a[1][2]*a[2][1]) -
			a[0][1]*(a[1][0]*a[2][2]-a[1][2]*a[2][0]) +
			a[0][2]*(a[1][0]*a[2][1]-a[1][1]*a[2][0])
	default:
		return 0
	}
}

func (m Mat) Inverse() (Mat, error) {
	det := m.Det()
	if math.Abs(det) < 1e-14 {
		return Mat{}, fmt.Errorf("tensor: singular matrix (det=%g)", det)
	}
	a := m.A
	r := Mat{Dim: m.Dim}
	switch m.Dim {
	case 2:
		r.A[0][0] = a[1][1] / det
		r.A[0][1] = -a[0][1] / det
		r.A[1][0] = -a[1][0] / det
		r.A[1][1] = a[0][0] / det
	case 3:
		r.A[0][0] = (a[1][1]*a[2][2] - a[1][2]*a[2][1]) / det
		r.A[0][1] = (a[0][2]*a[2][1] - a[0][1]*a[2][2]) / det
		r.A[0][2] = (a[0][1]*a[1][2] - a[0][2]*a[1][1]) / det
		r.A[1][0] = (a[1][2]*a[2][0] - a[1][0]*a[2][2]) / det
		r.A[1][1] = (a[0][0]*a[2][2] - a[0][2]*a[2][0]) / det
		r.A[1][2] = (a[0][2]*a[1][0] - a[0][0]*a[1][2]) / det
		r.A[2][0] = (a[1][0]*a[2][1] - a[1][1]*a[2][0]) / det
		r.A[2][1] = (a[0][1]*a[2][0] - a[0][0]*a[2][1]) / det
		r.A[2][2] = (a[0][0]*a[1][1] - a[0][1]*a[1][0]) / det
	default:
		return Mat{}, fmt.Errorf("tensor: unsupported dimension %d", m.Dim)
	}
	return r, nil
}

// IsSPD reports whether the matrix is symmetric positive-definite within tol,
// using leading principal minors.
func (m Mat) IsSPD(tol float64) bool {
	if !m.IsSymmetric(tol) {
		return false
	}
	if m.A[0][0] <= tol {
		return false
	}
	m2 := m.A[0][0]*m.A[1][1] - m.A[0][1]*m.A[1][0]
	if m2 <= tol {
		return false
	}
	if m.Dim == 3 && m.Det() <= tol {
		return false
	}
	return true
}
