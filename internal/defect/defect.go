package defect

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/qflow/internal/category"
	"github.com/san-kum/qflow/internal/field"
	"github.com/san-kum/qflow/internal/geometry"
	"github.com/san-kum/qflow/internal/parallel"
	"github.com/san-kum/qflow/internal/rg"
	"github.com/san-kum/qflow/internal/tensor"
)

// ErrNotAntisymmetric indicates a defect tensor whose construction broke
// the antisymmetry it is supposed to guarantee.
var ErrNotAntisymmetric = errors.New("defect: tensor is not antisymmetric")

// antisymTol bounds the acceptable asymmetry of the defect tensor relative
// to its norm; violations mean the gradient stencil produced garbage.
const antisymTol = 1e-8

// Tensor computes the antisymmetric defect tensor at every sample point:
//
//	D_ij = tr(DiQ DiQ DjQ Q) - tr(DjQ DjQ DiQ Q)
//
// where DiQ is the covariant derivative of Q along chart axis i. The
// squared-gradient weighting matters: contractions linear in each gradient
// are reversal-invariant for symmetric matrices, so their antisymmetric
// part cancels identically. This one is odd under chart reflection, which
// makes it vanish on smooth textures and concentrate where the director
// winds faster than the stencil resolves. The result is verified
// antisymmetric within tolerance.
func Tensor(f *field.Field, geo *geometry.Geometry) ([]tensor.Mat, error) {
	if f == nil || geo == nil {
		return nil, errors.New("defect: nil field or geometry")
	}
	if len(f.T) != geo.NumPoints() {
		return nil, fmt.Errorf("defect: field has %d tensors for %d points",
			len(f.T), geo.NumPoints())
	}
	dim := f.Dim
	n := geo.NumPoints()

	out := make([]tensor.Mat, n)
	parallel.For(n, 16, func(start, end int) {
		for idx := start; idx < end; idx++ {
			chris, err := geo.ChristoffelAt(idx)
			if err != nil {
				// degenerate metric, no defect signal here
				out[idx] = tensor.New(dim)
				continue
			}

			// Covariant derivative along each chart axis:
			// DkQ_ab = dkQ_ab - Gamma^c_ka Q_cb - Gamma^c_kb Q_ac.
			q := f.T[idx]
			var grad [3]tensor.Mat
			for k := 0; k < dim; k++ {
				dq := geo.PartialTensor(f.T, idx, k)
				for a := 0; a < dim; a++ {
					for b := 0; b < dim; b++ {
						s := dq.At(a, b)
						for c := 0; c < dim; c++ {
							s -= chris[c].At(k, a)*q.At(c, b) + chris[c].At(k, b)*q.At(a, c)
						}
						dq.Set(a, b, s)
					}
				}
				grad[k] = dq
			}

			d := tensor.New(dim)
			for i := 0; i < dim; i++ {
				for j := i + 1; j < dim; j++ {
					v := grad[i].Mul(grad[i]).Mul(grad[j]).Mul(q).Trace() -
						grad[j].Mul(grad[j]).Mul(grad[i]).Mul(q).Trace()
					d.Set(i, j, v)
					d.Set(j, i, -v)
				}
			}
			out[idx] = d
		}
	})

	for idx, d := range out {
		scale := math.Max(1, d.Norm())
		if !d.IsAntisymmetric(antisymTol * scale) {
			return nil, fmt.Errorf("%w: point %d", ErrNotAntisymmetric, idx)
		}
	}
	return out, nil
}

// Magnitude is the pointwise spectral strength lambda^2 = -1/2 tr(D^2).
func Magnitude(f *field.Field, geo *geometry.Geometry) ([]float64, error) {
	ds, err := Tensor(f, geo)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(ds))
	for i, d := range ds {
		v := tensor.SpectralNormSquared(d)
		if v < 0 {
			v = 0
		}
		out[i] = v
	}
	return out, nil
}

// Eigenstructure exposes the spectral data of the defect tensor at one
// point: the strength lambda and, in three dimensions, the defect axis.
func Eigenstructure(f *field.Field, geo *geometry.Geometry, idx int) (tensor.AntisymEigen, error) {
	ds, err := Tensor(f, geo)
	if err != nil {
		return tensor.AntisymEigen{}, err
	}
	if idx < 0 || idx >= len(ds) {
		return tensor.AntisymEigen{}, fmt.Errorf("defect: point %d out of range", idx)
	}
	return tensor.Eigenstructure(ds[idx], antisymTol)
}

// Peak locates the sample point of maximum defect strength.
func Peak(mag []float64) (idx int, val float64) {
	for i, v := range mag {
		if v > val {
			idx, val = i, v
		}
	}
	return
}

// Functor is the observable functor from field states to scalar defect
// maps: objects map through Magnitude, morphisms re-extract on the image.
func Functor() *category.Functor {
	return &category.Functor{
		Name: "defect",
		MapObject: func(o *category.Object) (*category.Object, error) {
			if o.Tensor == nil {
				return nil, errors.New("defect: functor needs a tensor-field object")
			}
			mag, err := Magnitude(o.Tensor, o.Geo)
			if err != nil {
				return nil, err
			}
			return category.NewScalarObject(o.Geo, mag, o.Scale)
		},
		MapMorphism: func(m *category.Morphism) (*category.Morphism, error) {
			return nil, errors.New("defect: observable functor maps objects only")
		},
	}
}

// NaturalityDeviation measures how far defect extraction is from commuting
// with coarse-graining: the RMS gap between extract-then-smooth and
// smooth-then-extract at increment t. Diagnostic only; defects are not
// exactly natural under discrete smoothing.
func NaturalityDeviation(op *rg.Operator, obj *category.Object, t float64) (float64, error) {
	if obj == nil || obj.Tensor == nil {
		return 0, errors.New("defect: naturality needs a tensor-field object")
	}
	magBefore, err := Magnitude(obj.Tensor, obj.Geo)
	if err != nil {
		return 0, err
	}
	smoothedMag, err := op.SmoothScalar(obj.Geo, magBefore, t)
	if err != nil {
		return 0, err
	}

	stepped, err := op.Step(obj, t)
	if err != nil {
		return 0, err
	}
	magAfter, err := Magnitude(stepped.Tensor, stepped.Geo)
	if err != nil {
		return 0, err
	}

	s := 0.0
	for i := range magAfter {
		d := magAfter[i] - smoothedMag[i]
		s += d * d
	}
	return math.Sqrt(s / float64(len(magAfter))), nil
}
