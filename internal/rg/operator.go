package rg

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/san-kum/qflow/internal/category"
	"github.com/san-kum/qflow/internal/field"
	"github.com/san-kum/qflow/internal/geometry"
	"github.com/san-kum/qflow/internal/parallel"
	"github.com/san-kum/qflow/internal/tensor"
)

// ErrScale indicates a negative or non-finite flow increment.
var ErrScale = errors.New("rg: invalid scale increment")

const (
	// kernelEps truncates the heat kernel support: neighbors whose weight
	// would fall below this fraction of the peak are dropped.
	kernelEps = 1e-12

	// scaleBucket quantizes cache keys so repeated steps at the same
	// nominal t share one weight table despite float noise.
	scaleBucket = 1e-9

	// DefaultRicciBound caps max|Ric|*dt per geometry step.
	DefaultRicciBound = 0.5
)

type weight struct {
	j int
	w float64
}

// Operator is the coarse-graining step: heat-kernel smoothing of the field
// coupled to one Ricci-flow step of the metric. Kernel weight tables are
// cached per scale bucket for the current geometry only: a step onto a
// geometry with a different lattice or metric drops the stale tables, while
// a metrically unchanged geometry (flat charts under Ricci flow) keeps
// reusing its rows. Safe for concurrent Step calls.
type Operator struct {
	RicciBound float64

	mu    sync.Mutex
	geo   *geometry.Geometry
	cache map[int64][][]weight
}

func NewOperator() *Operator {
	return &Operator{
		RicciBound: DefaultRicciBound,
		cache:      make(map[int64][][]weight),
	}
}

// kernelCompatible reports whether kernel rows built for a are valid for b:
// same lattice points and the same metric at every point.
func kernelCompatible(a, b *geometry.Geometry) bool {
	if a.Dim != b.Dim || a.NumPoints() != b.NumPoints() {
		return false
	}
	for i := range a.Points {
		if a.Points[i] != b.Points[i] {
			return false
		}
	}
	for i := range a.Metric {
		if a.Metric[i] != b.Metric[i] {
			return false
		}
	}
	return true
}

// weights returns the row-normalized kernel table for (geo, t), building
// and caching it on first use. Tables for a superseded geometry are
// evicted, so the cache holds at most one geometry's tables at a time.
func (op *Operator) weights(geo *geometry.Geometry, t float64) [][]weight {
	bucket := int64(math.Round(t / scaleBucket))

	op.mu.Lock()
	if op.cache == nil {
		op.cache = make(map[int64][][]weight)
	}
	if op.geo != geo {
		if op.geo == nil || !kernelCompatible(op.geo, geo) {
			op.cache = make(map[int64][][]weight)
		}
		op.geo = geo
	}
	if tbl, ok := op.cache[bucket]; ok {
		op.mu.Unlock()
		return tbl
	}
	op.mu.Unlock()

	n := geo.NumPoints()
	// Support radius where exp(-d^2/4t) hits kernelEps.
	rmax2 := 4 * t * math.Log(1/kernelEps)

	tbl := make([][]weight, n)
	parallel.For(n, 16, func(start, end int) {
		for i := start; i < end; i++ {
			var row []weight
			sum := 0.0
			for j := 0; j < n; j++ {
				d := geo.Distance(i, j)
				if d*d > rmax2 {
					continue
				}
				w := math.Exp(-d*d/(4*t)) * geo.VolumeElement(j)
				if w <= 0 {
					continue
				}
				row = append(row, weight{j: j, w: w})
				sum += w
			}
			if sum > 0 {
				for k := range row {
					row[k].w /= sum
				}
			}
			tbl[i] = row
		}
	})

	op.mu.Lock()
	if op.geo == geo {
		op.cache[bucket] = tbl
	}
	op.mu.Unlock()
	return tbl
}

// Step applies one RG increment t to an object: smooth the tensor field
// with the heat kernel of the current metric, flow the metric by Ricci
// flow over dt = t, and re-project the field. t == 0 returns the object
// unchanged. Step never mutates its input.
func (op *Operator) Step(obj *category.Object, t float64) (*category.Object, error) {
	if t < 0 || math.IsNaN(t) || math.IsInf(t, 0) {
		return nil, fmt.Errorf("%w: %g", ErrScale, t)
	}
	if obj == nil || obj.Tensor == nil {
		return nil, errors.New("rg: step needs a tensor-field object")
	}
	if t == 0 {
		return obj, nil
	}
	if err := obj.Tensor.Validate(1e-6); err != nil {
		return nil, err
	}

	geo := obj.Geo
	tbl := op.weights(geo, t)

	src := obj.Tensor.T
	smoothed := make([]tensor.Mat, len(src))
	parallel.For(len(src), 32, func(start, end int) {
		for i := start; i < end; i++ {
			acc := tensor.New(obj.Tensor.Dim)
			for _, e := range tbl[i] {
				acc = acc.Add(src[e.j].Scale(e.w))
			}
			smoothed[i] = acc
		}
	})

	bound := op.RicciBound
	if bound <= 0 {
		bound = DefaultRicciBound
	}
	nextGeo, err := geo.StepRicciFlow(t, bound)
	if err != nil {
		return nil, err
	}

	nextField, err := field.Project(smoothed, obj.Tensor.Dim)
	if err != nil {
		return nil, err
	}
	return category.NewObject(nextGeo, nextField, obj.Scale+t)
}

// SmoothScalar pushes a scalar observable through the same kernel; used
// for naturality comparisons against the tensor path.
func (op *Operator) SmoothScalar(geo *geometry.Geometry, vals []float64, t float64) ([]float64, error) {
	if t < 0 || math.IsNaN(t) || math.IsInf(t, 0) {
		return nil, fmt.Errorf("%w: %g", ErrScale, t)
	}
	if len(vals) != geo.NumPoints() {
		return nil, fmt.Errorf("rg: %d values for %d points", len(vals), geo.NumPoints())
	}
	if t == 0 {
		return append([]float64(nil), vals...), nil
	}
	tbl := op.weights(geo, t)
	out := make([]float64, len(vals))
	parallel.For(len(vals), 64, func(start, end int) {
		for i := start; i < end; i++ {
			s := 0.0
			for _, e := range tbl[i] {
				s += vals[e.j] * e.w
			}
			out[i] = s
		}
	})
	return out, nil
}

// Morphism packages one RG increment as a category morphism from obj.
func (op *Operator) Morphism(obj *category.Object, t float64) (*category.Morphism, error) {
	cod, err := op.Step(obj, t)
	if err != nil {
		return nil, err
	}
	return &category.Morphism{
		Name:     fmt.Sprintf("rg(%.4g)", t),
		Tag:      category.TagRGStep,
		Domain:   obj,
		Codomain: cod,
		Apply: func(x *category.Object) (*category.Object, error) {
			return op.Step(x, t)
		},
	}, nil
}

// Functor is the smoothing endofunctor at increment t: objects map through
// Step, and morphisms keep their transformation, re-anchored at the
// smoothed endpoints. RG increments commute up to discretization error, so
// the functor laws hold extensionally.
func (op *Operator) Functor(t float64) *category.Functor {
	return &category.Functor{
		Name: fmt.Sprintf("smooth(%.4g)", t),
		MapObject: func(o *category.Object) (*category.Object, error) {
			return op.Step(o, t)
		},
		MapMorphism: func(m *category.Morphism) (*category.Morphism, error) {
			dom, err := op.Step(m.Domain, t)
			if err != nil {
				return nil, err
			}
			cod, err := op.Step(m.Codomain, t)
			if err != nil {
				return nil, err
			}
			return &category.Morphism{
				Name:     fmt.Sprintf("smooth(%.4g)[%s]", t, m.Name),
				Tag:      category.TagImage,
				Domain:   dom,
				Codomain: cod,
				Apply:    m.Apply,
			}, nil
		},
	}
}
