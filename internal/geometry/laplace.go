package geometry

import (
	"math"

	"github.com/san-kum/qflow/internal/tensor"
)

// LaplaceBeltrami applies the scalar Laplace-Beltrami operator
// (1/sqrt|g|) d_i (sqrt|g| g^ij d_j f) via a two-pass flux stencil.
func (g *Geometry) LaplaceBeltrami(f []float64) ([]float64, error) {
	n := g.NumPoints()

	sqrtDet := make([]float64, n)
	for i := 0; i < n; i++ {
		det := g.Metric[i].Det()
		if det <= 0 {
			det = 0
		}
		sqrtDet[i] = math.Sqrt(det)
	}

	// flux[a][i] = sqrt|g| g^ab d_b f
	var flux [3][]float64
	for a := 0; a < g.Dim; a++ {
		flux[a] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		ginv, err := g.Metric[i].Inverse()
		if err != nil {
			return nil, err
		}
		var grad [3]float64
		for b := 0; b < g.Dim; b++ {
			grad[b] = g.partialScalar(f, i, b)
		}
		for a := 0; a < g.Dim; a++ {
			s := 0.0
			for b := 0; b < g.Dim; b++ {
				s += ginv.At(a, b) * grad[b]
			}
			flux[a][i] = sqrtDet[i] * s
		}
	}

	out := make([]float64, n)
	for i := 0; i < n; i++ {
		if sqrtDet[i] == 0 {
			continue
		}
		div := 0.0
		for a := 0; a < g.Dim; a++ {
			div += g.partialScalar(flux[a], i, a)
		}
		out[i] = div / sqrtDet[i]
	}
	return out, nil
}

// LaplaceBeltramiTensor applies the scalar operator componentwise; the
// smoothing path of the engine goes through the heat kernel, so the tensor
// Laplacian is a diagnostic, not a Bochner Laplacian.
func (g *Geometry) LaplaceBeltramiTensor(field []tensor.Mat) ([]tensor.Mat, error) {
	n := g.NumPoints()
	dim := g.Dim
	out := make([]tensor.Mat, n)
	for i := range out {
		out[i] = tensor.New(dim)
	}

	comp := make([]float64, n)
	for a := 0; a < dim; a++ {
		for b := 0; b < dim; b++ {
			for i := 0; i < n; i++ {
				comp[i] = field[i].At(a, b)
			}
			lap, err := g.LaplaceBeltrami(comp)
			if err != nil {
				return nil, err
			}
			for i := 0; i < n; i++ {
				out[i].Set(a, b, lap[i])
			}
		}
	}
	return out, nil
}
