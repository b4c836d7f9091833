package field

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/qflow/internal/geometry"
	"github.com/san-kum/qflow/internal/tensor"
)

func rawField(geo *geometry.Geometry, fill func(int) tensor.Mat) []tensor.Mat {
	raw := make([]tensor.Mat, geo.NumPoints())
	for i := range raw {
		raw[i] = fill(i)
	}
	return raw
}

func TestProjectEnforcesInvariant(t *testing.T) {
	geo := geometry.NewDisk(6)
	raw := rawField(geo, func(i int) tensor.Mat {
		m := tensor.New(2)
		m.Set(0, 0, 1)
		m.Set(0, 1, 2)
		m.Set(1, 0, 4)
		m.Set(1, 1, 3)
		return m
	})

	f, err := Project(raw, 2)
	if err != nil {
		t.Fatalf("project failed: %v", err)
	}
	if err := f.Validate(1e-12); err != nil {
		t.Errorf("projected field should validate: %v", err)
	}
}

func TestProjectRejectsNaN(t *testing.T) {
	geo := geometry.NewDisk(6)
	raw := rawField(geo, func(i int) tensor.Mat { return tensor.New(2) })
	raw[3].Set(0, 1, math.NaN())

	_, err := Project(raw, 2)
	if !errors.Is(err, ErrInvalidField) {
		t.Errorf("expected ErrInvalidField, got %v", err)
	}
}

func TestProjectRejectsWrongDim(t *testing.T) {
	geo := geometry.NewDisk(6)
	raw := rawField(geo, func(i int) tensor.Mat { return tensor.New(3) })

	_, err := Project(raw, 2)
	if !errors.Is(err, ErrInvalidField) {
		t.Errorf("expected ErrInvalidField, got %v", err)
	}

	if _, err := Project(raw, 5); !errors.Is(err, ErrInvalidField) {
		t.Errorf("expected ErrInvalidField for dim 5, got %v", err)
	}
}

func TestValidateCatchesAsymmetry(t *testing.T) {
	f := &Field{Dim: 2, T: []tensor.Mat{tensor.New(2)}}
	f.T[0].Set(0, 1, 1)

	if err := f.Validate(1e-9); !errors.Is(err, ErrInvalidField) {
		t.Errorf("expected ErrInvalidField, got %v", err)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	geo := geometry.NewDisk(5)
	raw := rawField(geo, func(i int) tensor.Mat {
		m := tensor.New(2)
		m.Set(0, 0, 0.2)
		m.Set(1, 1, -0.2)
		return m
	})
	f, err := Project(raw, 2)
	if err != nil {
		t.Fatalf("project failed: %v", err)
	}

	c := f.Clone()
	c.T[0].Set(0, 0, 99)
	if f.T[0].At(0, 0) == 99 {
		t.Error("mutating the clone changed the original")
	}
}

func TestGridRegionsPartition(t *testing.T) {
	geo := geometry.NewDisk(10)
	regions := GridRegions(geo, 3)

	seen := make(map[int]int)
	for _, r := range regions {
		for _, idx := range r.Points {
			seen[idx]++
		}
	}
	if len(seen) != geo.NumPoints() {
		t.Fatalf("partition covers %d of %d points", len(seen), geo.NumPoints())
	}
	for idx, n := range seen {
		if n != 1 {
			t.Fatalf("point %d appears in %d regions", idx, n)
		}
	}
}

func TestAggregateMatchesSequential(t *testing.T) {
	geo := geometry.NewDisk(12)
	raw := rawField(geo, func(i int) tensor.Mat {
		m := tensor.New(2)
		v := math.Sin(float64(i))
		m.Set(0, 0, v)
		m.Set(1, 1, -v)
		m.Set(0, 1, 0.3*v)
		m.Set(1, 0, 0.3*v)
		return m
	})
	f, err := Project(raw, 2)
	if err != nil {
		t.Fatalf("project failed: %v", err)
	}

	regions := GridRegions(geo, 4)
	par := f.Aggregate(geo, regions)
	seq := f.AggregateSeq(geo, regions)

	if len(par) != len(seq) {
		t.Fatalf("length mismatch %d vs %d", len(par), len(seq))
	}
	for i := range par {
		if par[i].Label != seq[i].Label {
			t.Fatalf("region %d label mismatch", i)
		}
		if par[i].MeanNorm != seq[i].MeanNorm || par[i].MaxNorm != seq[i].MaxNorm {
			t.Fatalf("region %d stats differ between parallel and sequential", i)
		}
		if d := par[i].Mean.Dist(seq[i].Mean); d != 0 {
			t.Fatalf("region %d mean differs by %g", i, d)
		}
	}
}

func TestOrderParameterRecoversS(t *testing.T) {
	s0 := 0.6

	// 3D uniaxial: Q = S(nn^T - I/3), largest eigenvalue 2S/3.
	q3 := tensor.New(3)
	n := [3]float64{1, 0, 0}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			v := s0 * n[i] * n[j]
			if i == j {
				v -= s0 / 3
			}
			q3.Set(i, j, v)
		}
	}
	if got := OrderParameter(q3); math.Abs(got-s0) > 1e-9 {
		t.Errorf("3D order parameter %g, want %g", got, s0)
	}

	// 2D uniaxial: largest eigenvalue S/2.
	q2 := tensor.New(2)
	q2.Set(0, 0, s0/2)
	q2.Set(1, 1, -s0/2)
	if got := OrderParameter(q2); math.Abs(got-s0) > 1e-9 {
		t.Errorf("2D order parameter %g, want %g", got, s0)
	}
}

func TestPairsOrderStable(t *testing.T) {
	geo := geometry.NewDisk(5)
	raw := rawField(geo, func(i int) tensor.Mat {
		m := tensor.New(2)
		m.Set(0, 1, float64(i))
		m.Set(1, 0, float64(i))
		return m
	})
	f, err := Project(raw, 2)
	if err != nil {
		t.Fatalf("project failed: %v", err)
	}

	pairs := f.Pairs(geo)
	if len(pairs) != geo.NumPoints() {
		t.Fatalf("expected %d pairs, got %d", geo.NumPoints(), len(pairs))
	}
	for i, p := range pairs {
		if p.T.At(0, 1) != float64(i) {
			t.Fatalf("pair %d out of order", i)
		}
	}
}
