package geometry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/san-kum/qflow/internal/parallel"
	"github.com/san-kum/qflow/internal/tensor"
)

// ErrNumericalInstability indicates a curvature-flow step that exceeded the
// stability bound or left the symmetric positive-definite cone. Fatal for
// the step; never retried.
var ErrNumericalInstability = errors.New("geometry: curvature flow unstable")

// InstabilityError wraps ErrNumericalInstability with step context.
type InstabilityError struct {
	Dt           float64
	MaxCurvature float64
	Point        int
	Reason       string
}

func (e *InstabilityError) Error() string {
	return fmt.Sprintf("geometry: unstable ricci step (dt=%.4g, max|Ric|=%.4g, point %d): %s",
		e.Dt, e.MaxCurvature, e.Point, e.Reason)
}

func (e *InstabilityError) Unwrap() error { return ErrNumericalInstability }

// metricPartial is the lattice derivative of the metric along axis at idx.
func (g *Geometry) metricPartial(idx, axis int) tensor.Mat {
	return g.PartialTensor(g.Metric, idx, axis)
}

// ChristoffelAt computes the Christoffel symbols of the second kind at a
// point from central differences of the metric. chris[k] is the matrix
// (Gamma^k)_ij over the lower index pair.
func (g *Geometry) ChristoffelAt(idx int) ([3]tensor.Mat, error) {
	var chris [3]tensor.Mat
	ginv, err := g.Metric[idx].Inverse()
	if err != nil {
		return chris, fmt.Errorf("geometry: degenerate metric at point %d: %w", idx, err)
	}

	var dg [3]tensor.Mat
	for a := 0; a < g.Dim; a++ {
		dg[a] = g.metricPartial(idx, a)
	}

	for k := 0; k < g.Dim; k++ {
		m := tensor.New(g.Dim)
		for i := 0; i < g.Dim; i++ {
			for j := 0; j < g.Dim; j++ {
				s := 0.0
				for l := 0; l < g.Dim; l++ {
					s += ginv.At(k, l) * (dg[i].At(j, l) + dg[j].At(i, l) - dg[l].At(i, j))
				}
				m.Set(i, j, 0.5*s)
			}
		}
		chris[k] = m
	}
	return chris, nil
}

// christoffelField evaluates ChristoffelAt everywhere; used by the Ricci
// finite differences so neighbor symbols are computed once.
func (g *Geometry) christoffelField() ([][3]tensor.Mat, error) {
	out := make([][3]tensor.Mat, g.NumPoints())
	var mu sync.Mutex
	var firstErr error
	parallel.For(g.NumPoints(), 64, func(start, end int) {
		for i := start; i < end; i++ {
			c, err := g.ChristoffelAt(i)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
			out[i] = c
		}
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// chrisPartial differentiates one Christoffel component field along axis.
func (g *Geometry) chrisPartial(chris [][3]tensor.Mat, idx, axis, upper int) tensor.Mat {
	h := g.spacing(axis)
	plus, okP := g.neighbor(idx, axis, +1)
	minus, okM := g.neighbor(idx, axis, -1)
	switch {
	case okP && okM:
		return chris[plus][upper].Sub(chris[minus][upper]).Scale(1 / (2 * h))
	case okP:
		return chris[plus][upper].Sub(chris[idx][upper]).Scale(1 / h)
	case okM:
		return chris[idx][upper].Sub(chris[minus][upper]).Scale(1 / h)
	default:
		return tensor.New(g.Dim)
	}
}

// RicciField computes the Ricci tensor at every sample point:
// R_ij = d_k Gamma^k_ij - d_i Gamma^k_kj + Gamma^k_km Gamma^m_ij
//   - Gamma^k_im Gamma^m_kj, symmetrized to damp lattice noise.
func (g *Geometry) RicciField() ([]tensor.Mat, error) {
	chris, err := g.christoffelField()
	if err != nil {
		return nil, err
	}

	out := make([]tensor.Mat, g.NumPoints())
	parallel.For(g.NumPoints(), 32, func(start, end int) {
		for idx := start; idx < end; idx++ {
			var dChris [3][3]tensor.Mat
			for a := 0; a < g.Dim; a++ {
				for k := 0; k < g.Dim; k++ {
					dChris[a][k] = g.chrisPartial(chris, idx, a, k)
				}
			}

			ric := tensor.New(g.Dim)
			for i := 0; i < g.Dim; i++ {
				for j := 0; j < g.Dim; j++ {
					s := 0.0
					for k := 0; k < g.Dim; k++ {
						s += dChris[k][k].At(i, j) - dChris[i][k].At(k, j)
						for m := 0; m < g.Dim; m++ {
							s += chris[idx][k].At(k, m)*chris[idx][m].At(i, j) -
								chris[idx][k].At(i, m)*chris[idx][m].At(k, j)
						}
					}
					ric.Set(i, j, s)
				}
			}
			out[idx] = ric.Sym()
		}
	})
	return out, nil
}

// RicciAt computes the Ricci tensor at a single point.
func (g *Geometry) RicciAt(idx int) (tensor.Mat, error) {
	field, err := g.RicciField()
	if err != nil {
		return tensor.Mat{}, err
	}
	return field[idx], nil
}

// StepRicciFlow advances the metric one explicit Euler step of
// dg/dt = -2 Ric(g). The step is rejected with ErrNumericalInstability when
// max|Ric| * dt exceeds bound or when any output metric leaves the
// symmetric positive-definite cone.
func (g *Geometry) StepRicciFlow(dt, bound float64) (*Geometry, error) {
	if dt < 0 {
		return nil, fmt.Errorf("geometry: negative flow step %g", dt)
	}
	if dt == 0 {
		return g, nil
	}

	ric, err := g.RicciField()
	if err != nil {
		return nil, err
	}

	maxNorm := 0.0
	maxAt := 0
	for i, r := range ric {
		if n := r.Norm(); n > maxNorm {
			maxNorm = n
			maxAt = i
		}
	}
	if maxNorm*dt > bound {
		return nil, &InstabilityError{
			Dt: dt, MaxCurvature: maxNorm, Point: maxAt,
			Reason: fmt.Sprintf("curvature*dt %.4g exceeds bound %.4g", maxNorm*dt, bound),
		}
	}

	next := g.Clone()
	for i := range next.Metric {
		m := g.Metric[i].Sub(ric[i].Scale(2 * dt)).Sym()
		if !m.IsSPD(1e-12) {
			return nil, &InstabilityError{
				Dt: dt, MaxCurvature: maxNorm, Point: i,
				Reason: "output metric not positive-definite",
			}
		}
		next.Metric[i] = m
	}
	return next, nil
}
