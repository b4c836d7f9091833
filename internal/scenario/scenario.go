package scenario

import (
	"math"

	"github.com/san-kum/qflow/internal/field"
	"github.com/san-kum/qflow/internal/geometry"
	"github.com/san-kum/qflow/internal/tensor"
)

// Params tune a scenario builder; unknown keys are ignored. Common keys:
// "s0" (uniaxial order, default 0.6), "charge" (defect winding, default 1),
// "tilt" (anchoring angle in radians), "pitch" (twist wavenumber).
type Params map[string]float64

func (p Params) get(key string, def float64) float64 {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

// director2 builds the planar uniaxial Q-tensor S (n n^T - I/2) for
// director angle psi, i.e. (S/2) [[cos 2psi, sin 2psi], [sin 2psi, -cos 2psi]].
func director2(psi, s float64) tensor.Mat {
	m := tensor.New(2)
	m.Set(0, 0, s*math.Cos(2*psi)/2)
	m.Set(1, 1, -s*math.Cos(2*psi)/2)
	m.Set(0, 1, s*math.Sin(2*psi)/2)
	m.Set(1, 0, s*math.Sin(2*psi)/2)
	return m
}

// director3 builds the uniaxial 3D Q-tensor S (n n^T - I/3) for unit n.
func director3(n [3]float64, s float64) tensor.Mat {
	m := tensor.New(3)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			v := s * n[i] * n[j]
			if i == j {
				v -= s / 3
			}
			m.Set(i, j, v)
		}
	}
	return m
}

// Uniform fills the geometry with one constant director, the trivial
// fixed-point candidate.
func Uniform(geo *geometry.Geometry, p Params) (*field.Field, error) {
	s0 := p.get("s0", 0.6)
	raw := make([]tensor.Mat, geo.NumPoints())
	for i := range raw {
		if geo.Dim == 2 {
			raw[i] = director2(0, s0)
		} else {
			raw[i] = director3([3]float64{1, 0, 0}, s0)
		}
	}
	return field.Project(raw, geo.Dim)
}

// SingleDefect plants one topological defect of the given winding at the
// chart center: director angle psi = charge * atan2(v, u).
func SingleDefect(geo *geometry.Geometry, p Params) (*field.Field, error) {
	s0 := p.get("s0", 0.6)
	charge := p.get("charge", 1)
	cu, cv := chartCenter(geo)

	raw := make([]tensor.Mat, geo.NumPoints())
	for i, pt := range geo.Points {
		psi := charge * math.Atan2(pt.V-cv, pt.U-cu)
		if geo.Dim == 2 {
			raw[i] = director2(psi, s0)
		} else {
			raw[i] = director3([3]float64{math.Cos(psi), math.Sin(psi), 0}, s0)
		}
	}
	return field.Project(raw, geo.Dim)
}

// DefectPair plants a +charge/-charge pair separated along the u axis; the
// total winding is zero so smoothing can annihilate them.
func DefectPair(geo *geometry.Geometry, p Params) (*field.Field, error) {
	s0 := p.get("s0", 0.6)
	charge := p.get("charge", 1)
	sep := p.get("separation", 0.5)
	cu, cv := chartCenter(geo)

	raw := make([]tensor.Mat, geo.NumPoints())
	for i, pt := range geo.Points {
		psi := charge*math.Atan2(pt.V-cv, pt.U-cu-sep/2) -
			charge*math.Atan2(pt.V-cv, pt.U-cu+sep/2)
		if geo.Dim == 2 {
			raw[i] = director2(psi, s0)
		} else {
			raw[i] = director3([3]float64{math.Cos(psi), math.Sin(psi), 0}, s0)
		}
	}
	return field.Project(raw, geo.Dim)
}

// Anchoring interpolates the director from the boundary orientation to a
// tilted interior, a frustration that seeds defect strength proportional
// to the tilt.
func Anchoring(geo *geometry.Geometry, p Params) (*field.Field, error) {
	s0 := p.get("s0", 0.6)
	tilt := p.get("tilt", math.Pi/4)
	cu, cv := chartCenter(geo)

	rmax := 0.0
	for _, pt := range geo.Points {
		r := math.Hypot(pt.U-cu, pt.V-cv)
		if r > rmax {
			rmax = r
		}
	}
	if rmax == 0 {
		rmax = 1
	}

	raw := make([]tensor.Mat, geo.NumPoints())
	for i, pt := range geo.Points {
		r := math.Hypot(pt.U-cu, pt.V-cv) / rmax
		psi := tilt * (1 - r) // boundary at 0, center tilted
		if geo.Dim == 2 {
			raw[i] = director2(psi, s0)
		} else {
			raw[i] = director3([3]float64{math.Cos(psi), math.Sin(psi), 0}, s0)
		}
	}
	return field.Project(raw, geo.Dim)
}

// Twisted winds the director along the w axis (u axis for surfaces) with
// the given pitch, a cholesteric-like texture.
func Twisted(geo *geometry.Geometry, p Params) (*field.Field, error) {
	s0 := p.get("s0", 0.6)
	pitch := p.get("pitch", 2*math.Pi)

	raw := make([]tensor.Mat, geo.NumPoints())
	for i, pt := range geo.Points {
		axis := pt.W
		if geo.Dim == 2 {
			axis = pt.U
		}
		psi := pitch * axis
		if geo.Dim == 2 {
			raw[i] = director2(psi, s0)
		} else {
			raw[i] = director3([3]float64{math.Cos(psi), math.Sin(psi), 0}, s0)
		}
	}
	return field.Project(raw, geo.Dim)
}

func chartCenter(geo *geometry.Geometry) (cu, cv float64) {
	for _, pt := range geo.Points {
		cu += pt.U
		cv += pt.V
	}
	n := float64(geo.NumPoints())
	return cu / n, cv / n
}
