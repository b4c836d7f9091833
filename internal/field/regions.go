package field

import (
	"fmt"
	"math"

	"github.com/san-kum/qflow/internal/geometry"
	"github.com/san-kum/qflow/internal/parallel"
	"github.com/san-kum/qflow/internal/tensor"
)

// Region is a subset of sample points treated as one coarse cell.
type Region struct {
	Label  string
	Points []int
}

// GridRegions partitions the geometry's lattice into coarse blocks of
// factor x factor (x factor) fine cells. Trailing blocks absorb the
// remainder so every point lands in exactly one region.
func GridRegions(geo *geometry.Geometry, factor int) []Region {
	if factor < 1 {
		factor = 1
	}
	blocks := func(n int) int {
		b := n / factor
		if b < 1 {
			b = 1
		}
		return b
	}
	bu, bv, bw := blocks(geo.Nu), blocks(geo.Nv), blocks(geo.Nw)

	regions := make([]Region, 0, bu*bv*bw)
	for cw := 0; cw < bw; cw++ {
		for cv := 0; cv < bv; cv++ {
			for cu := 0; cu < bu; cu++ {
				r := Region{Label: fmt.Sprintf("block-%d-%d-%d", cu, cv, cw)}
				regions = append(regions, r)
			}
		}
	}
	for idx := range geo.Points {
		u, v, w := geo.Coords(idx)
		cu := min(u/factor, bu-1)
		cv := min(v/factor, bv-1)
		cw := min(w/factor, bw-1)
		ri := (cw*bv+cv)*bu + cu
		regions[ri].Points = append(regions[ri].Points, idx)
	}
	return regions
}

// Sample is the volume-weighted mean tensor over a region, projected back
// onto the symmetric traceless cone.
func (f *Field) Sample(geo *geometry.Geometry, r Region) tensor.Mat {
	acc := tensor.New(f.Dim)
	total := 0.0
	for _, idx := range r.Points {
		w := geo.VolumeElement(idx)
		acc = acc.Add(f.T[idx].Scale(w))
		total += w
	}
	if total == 0 {
		return acc
	}
	return acc.Scale(1 / total).Sym().Deviatoric()
}

// RegionStat is one aggregated observation of a region.
type RegionStat struct {
	Label    string
	Mean     tensor.Mat
	MeanNorm float64
	MaxNorm  float64
	Order    float64
}

// Aggregate computes per-region statistics in parallel. Output order
// matches the input region order regardless of scheduling.
func (f *Field) Aggregate(geo *geometry.Geometry, regions []Region) []RegionStat {
	out := make([]RegionStat, len(regions))
	parallel.For(len(regions), 4, func(start, end int) {
		for i := start; i < end; i++ {
			out[i] = f.regionStat(geo, regions[i])
		}
	})
	return out
}

// AggregateSeq is the sequential reference used by determinism checks.
func (f *Field) AggregateSeq(geo *geometry.Geometry, regions []Region) []RegionStat {
	out := make([]RegionStat, len(regions))
	for i, r := range regions {
		out[i] = f.regionStat(geo, r)
	}
	return out
}

func (f *Field) regionStat(geo *geometry.Geometry, r Region) RegionStat {
	st := RegionStat{Label: r.Label, Mean: f.Sample(geo, r)}
	for _, idx := range r.Points {
		n := f.T[idx].Norm()
		st.MeanNorm += n
		if n > st.MaxNorm {
			st.MaxNorm = n
		}
	}
	if len(r.Points) > 0 {
		st.MeanNorm /= float64(len(r.Points))
	}
	st.Order = OrderParameter(st.Mean)
	return st
}

// OrderParameter recovers the scalar order S from a Q-tensor: the largest
// eigenvalue scaled by the dimension convention, S = lambda_max * d/(d-1).
func OrderParameter(q tensor.Mat) float64 {
	lam := largestEigen(q)
	return lam * float64(q.Dim) / float64(q.Dim-1)
}

// largestEigen finds the largest eigenvalue of a small symmetric matrix by
// power iteration with a trace shift to keep the dominant mode positive.
func largestEigen(q tensor.Mat) float64 {
	d := q.Dim
	shift := q.Norm() + 1
	m := q.Add(tensor.Identity(d).Scale(shift))

	var v [3]float64
	for i := 0; i < d; i++ {
		v[i] = 1 / math.Sqrt(float64(d))
	}
	for iter := 0; iter < 64; iter++ {
		var nv [3]float64
		for i := 0; i < d; i++ {
			for j := 0; j < d; j++ {
				nv[i] += m.At(i, j) * v[j]
			}
		}
		norm := math.Sqrt(nv[0]*nv[0] + nv[1]*nv[1] + nv[2]*nv[2])
		if norm == 0 {
			return 0
		}
		for i := 0; i < d; i++ {
			v[i] = nv[i] / norm
		}
	}
	lam := 0.0
	for i := 0; i < d; i++ {
		for j := 0; j < d; j++ {
			lam += v[i] * m.At(i, j) * v[j]
		}
	}
	return lam - shift
}
