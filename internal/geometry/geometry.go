package geometry

import (
	"fmt"
	"math"

	"github.com/san-kum/qflow/internal/tensor"
)

type Kind int

const (
	Disk Kind = iota
	Torus
	Sphere
	Box
)

func (k Kind) String() string {
	switch k {
	case Disk:
		return "disk"
	case Torus:
		return "torus"
	case Sphere:
		return "sphere"
	case Box:
		return "box"
	}
	return "unknown"
}

// Point carries intrinsic chart coordinates (U, V, W) and the embedding
// position used for geodesic distance approximations.
type Point struct {
	U, V, W float64
	X, Y, Z float64
}

// Geometry is a lattice-discretized Riemannian manifold: an order-stable
// slice of sample points with a metric tensor per point. Surfaces use a
// Nu x Nv chart (Nw == 1); the flat box uses all three axes.
type Geometry struct {
	Kind       Kind
	Dim        int
	Nu, Nv, Nw int
	Du, Dv, Dw float64
	PeriodicU  bool
	PeriodicV  bool

	Radius float64
	Major  float64
	Minor  float64

	Points []Point
	Metric []tensor.Mat
}

func (g *Geometry) NumPoints() int { return len(g.Points) }

func (g *Geometry) Index(u, v, w int) int { return (w*g.Nv+v)*g.Nu + u }

func (g *Geometry) Coords(idx int) (u, v, w int) {
	u = idx % g.Nu
	v = (idx / g.Nu) % g.Nv
	w = idx / (g.Nu * g.Nv)
	return
}

// NewDisk builds a flat n x n chart on [-1,1]^2; the unit disk is the
// inscribed region r <= 1.
func NewDisk(n int) *Geometry {
	if n < 3 {
		n = 3
	}
	g := &Geometry{
		Kind: Disk, Dim: 2,
		Nu: n, Nv: n, Nw: 1,
		Du: 2.0 / float64(n-1), Dv: 2.0 / float64(n-1), Dw: 1,
		Radius: 1.0,
	}
	g.Points = make([]Point, n*n)
	g.Metric = make([]tensor.Mat, n*n)
	for v := 0; v < n; v++ {
		for u := 0; u < n; u++ {
			x := -1.0 + float64(u)*g.Du
			y := -1.0 + float64(v)*g.Dv
			i := g.Index(u, v, 0)
			g.Points[i] = Point{U: x, V: y, X: x, Y: y}
			g.Metric[i] = tensor.Identity(2)
		}
	}
	return g
}

// NewTorus builds an n x n periodic chart in (theta, phi) on a torus with
// major radius R and minor radius r, metric diag((R + r cos phi)^2, r^2).
func NewTorus(n int, major, minor float64) *Geometry {
	if n < 3 {
		n = 3
	}
	g := &Geometry{
		Kind: Torus, Dim: 2,
		Nu: n, Nv: n, Nw: 1,
		Du: 2 * math.Pi / float64(n), Dv: 2 * math.Pi / float64(n), Dw: 1,
		PeriodicU: true, PeriodicV: true,
		Major: major, Minor: minor,
	}
	g.Points = make([]Point, n*n)
	g.Metric = make([]tensor.Mat, n*n)
	for v := 0; v < n; v++ {
		for u := 0; u < n; u++ {
			theta := float64(u) * g.Du
			phi := float64(v) * g.Dv
			i := g.Index(u, v, 0)
			ring := major + minor*math.Cos(phi)
			g.Points[i] = Point{
				U: theta, V: phi,
				X: ring * math.Cos(theta),
				Y: ring * math.Sin(theta),
				Z: minor * math.Sin(phi),
			}
			m := tensor.New(2)
			m.Set(0, 0, ring*ring)
			m.Set(1, 1, minor*minor)
			g.Metric[i] = m
		}
	}
	return g
}

// NewSphere builds an n x n polar chart on a sphere of radius R, clipped
// away from the poles where the chart metric degenerates.
func NewSphere(n int, radius float64) *Geometry {
	if n < 3 {
		n = 3
	}
	pad := math.Pi / 6
	g := &Geometry{
		Kind: Sphere, Dim: 2,
		Nu: n, Nv: n, Nw: 1,
		Du: (math.Pi - 2*pad) / float64(n-1), Dv: 2 * math.Pi / float64(n), Dw: 1,
		PeriodicV: true,
		Radius:    radius,
	}
	g.Points = make([]Point, n*n)
	g.Metric = make([]tensor.Mat, n*n)
	for v := 0; v < n; v++ {
		for u := 0; u < n; u++ {
			theta := pad + float64(u)*g.Du
			phi := float64(v) * g.Dv
			i := g.Index(u, v, 0)
			g.Points[i] = Point{
				U: theta, V: phi,
				X: radius * math.Sin(theta) * math.Cos(phi),
				Y: radius * math.Sin(theta) * math.Sin(phi),
				Z: radius * math.Cos(theta),
			}
			m := tensor.New(2)
			m.Set(0, 0, radius*radius)
			m.Set(1, 1, radius*radius*math.Sin(theta)*math.Sin(theta))
			g.Metric[i] = m
		}
	}
	return g
}

// NewBox builds a flat n x n x n lattice on [-1,1]^3 for d=3 fields.
func NewBox(n int) *Geometry {
	if n < 3 {
		n = 3
	}
	h := 2.0 / float64(n-1)
	g := &Geometry{
		Kind: Box, Dim: 3,
		Nu: n, Nv: n, Nw: n,
		Du: h, Dv: h, Dw: h,
	}
	g.Points = make([]Point, n*n*n)
	g.Metric = make([]tensor.Mat, n*n*n)
	for w := 0; w < n; w++ {
		for v := 0; v < n; v++ {
			for u := 0; u < n; u++ {
				x := -1.0 + float64(u)*h
				y := -1.0 + float64(v)*h
				z := -1.0 + float64(w)*h
				i := g.Index(u, v, w)
				g.Points[i] = Point{U: x, V: y, W: z, X: x, Y: y, Z: z}
				g.Metric[i] = tensor.Identity(3)
			}
		}
	}
	return g
}

// NewCustom wraps caller-supplied points and metrics as a lattice geometry.
// Every metric must be symmetric positive-definite.
func NewCustom(points []Point, metric []tensor.Mat, dim, nu, nv, nw int, du, dv, dw float64, periodicU, periodicV bool) (*Geometry, error) {
	if len(points) != nu*nv*nw || len(metric) != len(points) {
		return nil, fmt.Errorf("geometry: lattice %dx%dx%d does not match %d points, %d metrics",
			nu, nv, nw, len(points), len(metric))
	}
	for i, m := range metric {
		if m.Dim != dim || !m.IsSPD(1e-12) {
			return nil, fmt.Errorf("geometry: metric at point %d is not symmetric positive-definite", i)
		}
	}
	g := &Geometry{
		Kind: Disk, Dim: dim,
		Nu: nu, Nv: nv, Nw: nw,
		Du: du, Dv: dv, Dw: dw,
		PeriodicU: periodicU, PeriodicV: periodicV,
		Points: append([]Point(nil), points...),
		Metric: append([]tensor.Mat(nil), metric...),
	}
	return g, nil
}

func (g *Geometry) Clone() *Geometry {
	c := *g
	c.Points = append([]Point(nil), g.Points...)
	c.Metric = append([]tensor.Mat(nil), g.Metric...)
	return &c
}

// neighbor returns the lattice index one step along axis (0=u, 1=v, 2=w) in
// direction dir (+1/-1), honoring periodic wrap. ok is false past a
// non-periodic boundary.
func (g *Geometry) neighbor(idx, axis, dir int) (int, bool) {
	u, v, w := g.Coords(idx)
	switch axis {
	case 0:
		u += dir
		if g.PeriodicU {
			u = (u + g.Nu) % g.Nu
		} else if u < 0 || u >= g.Nu {
			return 0, false
		}
	case 1:
		v += dir
		if g.PeriodicV {
			v = (v + g.Nv) % g.Nv
		} else if v < 0 || v >= g.Nv {
			return 0, false
		}
	case 2:
		w += dir
		if w < 0 || w >= g.Nw {
			return 0, false
		}
	}
	return g.Index(u, v, w), true
}

func (g *Geometry) spacing(axis int) float64 {
	switch axis {
	case 0:
		return g.Du
	case 1:
		return g.Dv
	default:
		return g.Dw
	}
}

// partialScalar is the lattice derivative of vals along axis at idx:
// central difference in the interior, one-sided at boundaries.
func (g *Geometry) partialScalar(vals []float64, idx, axis int) float64 {
	h := g.spacing(axis)
	plus, okP := g.neighbor(idx, axis, +1)
	minus, okM := g.neighbor(idx, axis, -1)
	switch {
	case okP && okM:
		return (vals[plus] - vals[minus]) / (2 * h)
	case okP:
		return (vals[plus] - vals[idx]) / h
	case okM:
		return (vals[idx] - vals[minus]) / h
	default:
		return 0
	}
}

// PartialTensor differentiates a tensor field componentwise along axis.
func (g *Geometry) PartialTensor(field []tensor.Mat, idx, axis int) tensor.Mat {
	h := g.spacing(axis)
	plus, okP := g.neighbor(idx, axis, +1)
	minus, okM := g.neighbor(idx, axis, -1)
	switch {
	case okP && okM:
		return field[plus].Sub(field[minus]).Scale(1 / (2 * h))
	case okP:
		return field[plus].Sub(field[idx]).Scale(1 / h)
	case okM:
		return field[idx].Sub(field[minus]).Scale(1 / h)
	default:
		return tensor.New(g.Dim)
	}
}

// VolumeElement is sqrt(det g) times the chart cell volume at a point.
func (g *Geometry) VolumeElement(idx int) float64 {
	cell := g.Du * g.Dv
	if g.Dim == 3 {
		cell *= g.Dw
	}
	det := g.Metric[idx].Det()
	if det <= 0 {
		return 0
	}
	return math.Sqrt(det) * cell
}

// Distance approximates the geodesic distance between two sample points:
// arc length on the sphere, embedding distance elsewhere.
func (g *Geometry) Distance(i, j int) float64 {
	pi, pj := g.Points[i], g.Points[j]
	switch g.Kind {
	case Sphere:
		r := g.Radius
		dot := (pi.X*pj.X + pi.Y*pj.Y + pi.Z*pj.Z) / (r * r)
		dot = math.Max(-1, math.Min(1, dot))
		return r * math.Acos(dot)
	default:
		dx := pi.X - pj.X
		dy := pi.Y - pj.Y
		dz := pi.Z - pj.Z
		return math.Sqrt(dx*dx + dy*dy + dz*dz)
	}
}
