package category

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/qflow/internal/field"
	"github.com/san-kum/qflow/internal/geometry"
)

// ErrComposition indicates morphisms whose codomain and domain do not
// match within tolerance.
var ErrComposition = errors.New("category: morphisms do not compose")

// Provenance tags recorded on morphisms so a trajectory can be audited.
const (
	TagIdentity  = "identity"
	TagRGStep    = "rg-step"
	TagComposite = "composite"
	TagImage     = "functor-image"
)

// Object is a state of the RG category: a geometry at a scale, carrying
// either a tensor field or a scalar observable (exactly one is non-nil).
type Object struct {
	Geo    *geometry.Geometry
	Scale  float64
	Tensor *field.Field
	Scalar []float64
}

// NewObject validates and wraps a tensor-field state.
func NewObject(geo *geometry.Geometry, f *field.Field, scale float64) (*Object, error) {
	if geo == nil || f == nil {
		return nil, errors.New("category: object needs a geometry and a field")
	}
	if len(f.T) != geo.NumPoints() {
		return nil, fmt.Errorf("category: field has %d tensors for %d points",
			len(f.T), geo.NumPoints())
	}
	if f.Dim != geo.Dim {
		return nil, fmt.Errorf("category: field dimension %d does not match geometry dimension %d",
			f.Dim, geo.Dim)
	}
	if scale < 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return nil, fmt.Errorf("category: invalid scale %g", scale)
	}
	if err := f.Validate(1e-6); err != nil {
		return nil, err
	}
	return &Object{Geo: geo, Scale: scale, Tensor: f}, nil
}

// NewScalarObject wraps a scalar observable state, the codomain side of
// observable functors.
func NewScalarObject(geo *geometry.Geometry, vals []float64, scale float64) (*Object, error) {
	if geo == nil {
		return nil, errors.New("category: object needs a geometry")
	}
	if len(vals) != geo.NumPoints() {
		return nil, fmt.Errorf("category: scalar field has %d values for %d points",
			len(vals), geo.NumPoints())
	}
	for i, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("category: non-finite scalar at point %d", i)
		}
	}
	return &Object{Geo: geo, Scale: scale, Scalar: append([]float64(nil), vals...)}, nil
}

// Distance is the extensional distance between two objects: scale gap plus
// mean pointwise payload distance. Objects over different lattices are
// infinitely far apart.
func (o *Object) Distance(other *Object) float64 {
	if other == nil || o.Geo.NumPoints() != other.Geo.NumPoints() {
		return math.Inf(1)
	}
	d := math.Abs(o.Scale - other.Scale)
	switch {
	case o.Tensor != nil && other.Tensor != nil:
		d += o.Tensor.Distance(other.Tensor)
	case o.Scalar != nil && other.Scalar != nil:
		s := 0.0
		for i := range o.Scalar {
			s += math.Abs(o.Scalar[i] - other.Scalar[i])
		}
		d += s / float64(len(o.Scalar))
	default:
		return math.Inf(1)
	}
	return d
}

// Morphism is a state transformation with provenance. Apply must not
// mutate its argument.
type Morphism struct {
	Name     string
	Tag      string
	Domain   *Object
	Codomain *Object
	Apply    func(*Object) (*Object, error)
}

// Identity is the do-nothing morphism on an object.
func Identity(o *Object) *Morphism {
	return &Morphism{
		Name: "id", Tag: TagIdentity,
		Domain: o, Codomain: o,
		Apply: func(x *Object) (*Object, error) { return x, nil },
	}
}

// Compose builds g after f. The endpoint mismatch check is extensional:
// f's codomain must be within tol of g's domain.
func Compose(g, f *Morphism, tol float64) (*Morphism, error) {
	if f == nil || g == nil {
		return nil, errors.New("category: nil morphism")
	}
	if d := f.Codomain.Distance(g.Domain); d > tol {
		return nil, fmt.Errorf("%w: endpoint gap %g exceeds %g (%s ; %s)",
			ErrComposition, d, tol, f.Name, g.Name)
	}
	return &Morphism{
		Name:     fmt.Sprintf("%s . %s", g.Name, f.Name),
		Tag:      TagComposite,
		Domain:   f.Domain,
		Codomain: g.Codomain,
		Apply: func(x *Object) (*Object, error) {
			mid, err := f.Apply(x)
			if err != nil {
				return nil, fmt.Errorf("category: first leg %s: %w", f.Name, err)
			}
			return g.Apply(mid)
		},
	}, nil
}

// CheckIdentity verifies id . f == f == f . id on f's domain, within tol.
func CheckIdentity(f *Morphism, tol float64) error {
	base, err := f.Apply(f.Domain)
	if err != nil {
		return err
	}
	left, err := Compose(Identity(f.Codomain), f, tol)
	if err != nil {
		return err
	}
	right, err := Compose(f, Identity(f.Domain), tol)
	if err != nil {
		return err
	}
	for _, m := range []*Morphism{left, right} {
		got, err := m.Apply(f.Domain)
		if err != nil {
			return err
		}
		if d := got.Distance(base); d > tol {
			return fmt.Errorf("category: identity law broken by %s: deviation %g", m.Name, d)
		}
	}
	return nil
}

// CheckAssociativity verifies (h.g).f == h.(g.f) on f's domain, within tol.
func CheckAssociativity(h, g, f *Morphism, tol float64) error {
	gf, err := Compose(g, f, tol)
	if err != nil {
		return err
	}
	hg, err := Compose(h, g, tol)
	if err != nil {
		return err
	}
	left, err := Compose(h, gf, tol)
	if err != nil {
		return err
	}
	right, err := Compose(hg, f, tol)
	if err != nil {
		return err
	}
	a, err := left.Apply(f.Domain)
	if err != nil {
		return err
	}
	b, err := right.Apply(f.Domain)
	if err != nil {
		return err
	}
	if d := a.Distance(b); d > tol {
		return fmt.Errorf("category: associativity broken: deviation %g", d)
	}
	return nil
}
