package tensor

import (
	"fmt"
	"math"
)

// AntisymEigen holds the closed-form eigenstructure of an antisymmetric
// matrix: one zero eigenvalue along the rotation axis (3x3 only) and a
// purely imaginary pair +/- i*Lambda.
type AntisymEigen struct {
	Lambda float64
	Axis   [3]float64
}

// SpectralNormSquared returns lambda^2 = -1/2 tr(D^2) for antisymmetric D.
func SpectralNormSquared(d Mat) float64 {
	return -0.5 * d.Mul(d).Trace()
}

// Eigenstructure computes the closed-form spectrum of an antisymmetric
// matrix. For 3x3 input the axis is the dual vector (D_21, D_02, D_10),
// normalized; for 2x2 the axis is zero.
func Eigenstructure(d Mat, tol float64) (AntisymEigen, error) {
	if !d.IsAntisymmetric(tol) {
		return AntisymEigen{}, fmt.Errorf("tensor: matrix is not antisymmetric within %g", tol)
	}
	lam2 := SpectralNormSquared(d)
	if lam2 < 0 {
		lam2 = 0
	}
	e := AntisymEigen{Lambda: math.Sqrt(lam2)}
	if d.Dim == 3 {
		axis := [3]float64{d.A[2][1], d.A[0][2], d.A[1][0]}
		n := math.Sqrt(axis[0]*axis[0] + axis[1]*axis[1] + axis[2]*axis[2])
		if n > 0 {
			for i := range axis {
				axis[i] /= n
			}
		}
		e.Axis = axis
	}
	return e, nil
}
