package category

import "fmt"

// Functor maps objects and morphisms between views of the flow, e.g. the
// smoothing endofunctor or the defect observable functor. Implementations
// must preserve identities and composition up to numerical tolerance.
type Functor struct {
	Name        string
	MapObject   func(*Object) (*Object, error)
	MapMorphism func(*Morphism) (*Morphism, error)
}

// CheckIdentityLaw verifies F(id_A) == id_{F(A)} extensionally within tol.
func (fu *Functor) CheckIdentityLaw(a *Object, tol float64) error {
	fa, err := fu.MapObject(a)
	if err != nil {
		return err
	}
	fid, err := fu.MapMorphism(Identity(a))
	if err != nil {
		return err
	}
	got, err := fid.Apply(fa)
	if err != nil {
		return err
	}
	if d := got.Distance(fa); d > tol {
		return fmt.Errorf("category: functor %s breaks identity law: deviation %g", fu.Name, d)
	}
	return nil
}

// CheckCompositionLaw verifies F(g.f) == F(g).F(f) on f's mapped domain,
// within tol.
func (fu *Functor) CheckCompositionLaw(g, f *Morphism, tol float64) error {
	gf, err := Compose(g, f, tol)
	if err != nil {
		return err
	}
	fgf, err := fu.MapMorphism(gf)
	if err != nil {
		return err
	}
	ff, err := fu.MapMorphism(f)
	if err != nil {
		return err
	}
	fg, err := fu.MapMorphism(g)
	if err != nil {
		return err
	}
	comp, err := Compose(fg, ff, tol)
	if err != nil {
		return err
	}

	dom, err := fu.MapObject(f.Domain)
	if err != nil {
		return err
	}
	a, err := fgf.Apply(dom)
	if err != nil {
		return err
	}
	b, err := comp.Apply(dom)
	if err != nil {
		return err
	}
	if d := a.Distance(b); d > tol {
		return fmt.Errorf("category: functor %s breaks composition law: deviation %g", fu.Name, d)
	}
	return nil
}
