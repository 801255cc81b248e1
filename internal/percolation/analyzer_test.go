package percolation

import (
	"slices"
	"testing"

	"cemhyd/internal/core"
	"cemhyd/internal/microstructure"
	"cemhyd/internal/phase"
	prng "cemhyd/pkg/core"
)

func isPore(p phase.Phase) bool { return p == phase.Porosity }

func filled(n int, p phase.Phase) *microstructure.Store {
	s := microstructure.New(n)
	for i := 0; i < s.Volume(); i++ {
		s.Set(i, p)
	}
	return s
}

func TestBurnIsPure(t *testing.T) {
	rng := prng.NewRNG(4)
	s := microstructure.New(8)
	for i := 0; i < s.Volume(); i++ {
		if rng.Chance(0.45) {
			s.Set(i, phase.C3S)
		}
	}
	before := slices.Clone(s.Phases())
	var an Analyzer
	for _, axis := range core.Axes {
		a := an.Burn(s, isPore, axis)
		b := an.Burn(s, isPore, axis)
		if a != b {
			t.Fatalf("axis %s: repeated burns differ: %+v vs %+v", axis, a, b)
		}
		if !slices.Equal(before, s.Phases()) {
			t.Fatalf("axis %s: grid changed by burn", axis)
		}
	}
}

func TestBurnAllPoreForSolidTarget(t *testing.T) {
	s := microstructure.New(5)
	var an Analyzer
	for _, axis := range core.Axes {
		r := an.Burn(s, func(p phase.Phase) bool { return p == phase.CH }, axis)
		if r.Connected != 0 || r.Through != 0 || r.ThroughColumns != 0 || r.Percolates {
			t.Fatalf("axis %s: %+v", axis, r)
		}
	}
}

func TestBurnAllTarget(t *testing.T) {
	const n = 6
	s := filled(n, phase.CH)
	var an Analyzer
	for _, axis := range core.Axes {
		r := an.Burn(s, func(p phase.Phase) bool { return p == phase.CH }, axis)
		if r.ConnectedColumns != n*n || r.ThroughColumns != n*n {
			t.Fatalf("axis %s: columns %d/%d, want %d", axis, r.ConnectedColumns, r.ThroughColumns, n*n)
		}
		if r.Connected != n*n*n || r.Through != n*n*n || !r.Percolates {
			t.Fatalf("axis %s: %+v", axis, r)
		}
		if r.ConnectedFraction() != 1 {
			t.Fatalf("axis %s: fraction %v", axis, r.ConnectedFraction())
		}
	}
}

func TestBurnBoundedAlongAxis(t *testing.T) {
	const n = 4
	s := filled(n, phase.C3S)
	lat := s.Lattice()
	// a straight pore channel along x at y=z=0
	for x := 0; x < n; x++ {
		s.Set(lat.Index(x, 0, 0), phase.Porosity)
	}
	var an Analyzer
	rx := an.Burn(s, isPore, core.AxisX)
	if rx.Through != n || rx.ThroughColumns != 1 {
		t.Fatalf("x burn: %+v", rx)
	}
	ry := an.Burn(s, isPore, core.AxisY)
	if ry.Percolates || ry.Connected != n || ry.ConnectedColumns != n {
		t.Fatalf("y burn: %+v", ry)
	}

	// only the two end faces: joined by periodic wrap, which the axis forbids
	for x := 1; x < n-1; x++ {
		s.Set(lat.Index(x, 0, 0), phase.C3S)
	}
	if r := an.Burn(s, isPore, core.AxisX); r.Percolates || r.Connected != 1 {
		t.Fatalf("wrapped ends should not percolate: %+v", r)
	}
}

func TestBurnTransverseWrap(t *testing.T) {
	const n = 4
	s := filled(n, phase.C3S)
	lat := s.Lattice()
	// path from x=0 to x=n-1 that crosses the y boundary
	s.Set(lat.Index(0, 0, 0), phase.Porosity)
	s.Set(lat.Index(0, n-1, 0), phase.Porosity)
	s.Set(lat.Index(1, n-1, 0), phase.Porosity)
	s.Set(lat.Index(2, n-1, 0), phase.Porosity)
	s.Set(lat.Index(3, n-1, 0), phase.Porosity)
	var an Analyzer
	r := an.Burn(s, isPore, core.AxisX)
	if !r.Percolates || r.Through != 5 || r.ThroughColumns != 1 || r.ConnectedColumns != 2 {
		t.Fatalf("%+v", r)
	}
}

func TestBurnSetParticleRule(t *testing.T) {
	const n = 4
	s := filled(n, phase.C3S)
	for i := 0; i < s.Volume(); i++ {
		s.SetParticle(i, int32(i+1))
	}
	var an Analyzer
	rules := DefaultSetRules()
	r := an.BurnSet(s, nil, core.AxisZ, rules)
	if r.Set || r.Percolates {
		t.Fatalf("single-voxel particles must not connect: %+v", r)
	}

	for i := 0; i < s.Volume(); i++ {
		s.SetParticle(i, 7)
	}
	r = an.BurnSet(s, nil, core.AxisZ, rules)
	if !r.Set || r.ConnectedFraction() != 1 {
		t.Fatalf("one grain should be set: %+v", r)
	}

	rules.MinParticleVoxels = s.Volume() + 1
	if r := an.BurnSet(s, nil, core.AxisZ, rules); r.Set {
		t.Fatalf("particle below minimum size connected: %+v", r)
	}
}

func TestBurnSetBridges(t *testing.T) {
	const n = 4
	s := filled(n, phase.C3S)
	lat := s.Lattice()
	for i := 0; i < s.Volume(); i++ {
		s.SetParticle(i, int32(i+1))
	}
	var an Analyzer
	snap := filled(n, phase.CSH)
	r := an.BurnSet(s, snap, core.AxisX, DefaultSetRules())
	if !r.Set {
		t.Fatalf("snapshot bridges should set the paste: %+v", r)
	}

	// a current CSH layer at x=1 joins faces only through clinker on
	// either side
	for y := 0; y < n; y++ {
		for z := 0; z < n; z++ {
			s.Set(lat.Index(1, y, z), phase.CSH)
			s.Set(lat.Index(2, y, z), phase.CSH)
		}
	}
	r = an.BurnSet(s, nil, core.AxisX, DefaultSetRules())
	if !r.Percolates || r.ThroughColumns != n*n {
		t.Fatalf("bridge layer: %+v", r)
	}

	s.Set(lat.Index(3, 0, 0), phase.Porosity)
	r = an.BurnSet(s, nil, core.AxisX, DefaultSetRules())
	if r.Total != n*n*n-1 {
		t.Fatalf("total %d", r.Total)
	}
	if !r.Set {
		t.Fatalf("fraction %v should stay above threshold", r.ConnectedFraction())
	}
}
