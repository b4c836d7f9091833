package scenario

import (
	"fmt"
	"sort"

	"github.com/san-kum/qflow/internal/field"
	"github.com/san-kum/qflow/internal/geometry"
)

// Builder constructs an initial field on a geometry.
type Builder func(*geometry.Geometry, Params) (*field.Field, error)

type Registry struct {
	builders map[string]Builder
}

func NewRegistry() *Registry {
	r := &Registry{builders: make(map[string]Builder)}

	r.builders["uniform"] = Uniform
	r.builders["single-defect"] = SingleDefect
	r.builders["defect-pair"] = DefectPair
	r.builders["anchoring"] = Anchoring
	r.builders["twisted"] = Twisted

	return r
}

func (r *Registry) Get(name string) (Builder, error) {
	b, ok := r.builders[name]
	if !ok {
		return nil, fmt.Errorf("unknown scenario: %s", name)
	}
	return b, nil
}

func (r *Registry) Build(name string, geo *geometry.Geometry, p Params) (*field.Field, error) {
	b, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return b(geo, p)
}

func (r *Registry) List() []string {
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
