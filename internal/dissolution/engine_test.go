package dissolution

import (
	"errors"
	"slices"
	"testing"

	"cemhyd/internal/growth"
	"cemhyd/internal/microstructure"
	"cemhyd/internal/phase"
	"cemhyd/internal/species"
	prng "cemhyd/pkg/core"
)

// sparse returns a 9^3 pore grid with p at every voxel whose coordinates
// are all multiples of three, so no two such voxels share a face neighbor.
func sparse(p phase.Phase) *microstructure.Store {
	s := microstructure.New(9)
	lat := s.Lattice()
	for x := 0; x < 9; x += 3 {
		for y := 0; y < 9; y += 3 {
			for z := 0; z < 9; z += 3 {
				s.Set(lat.Index(x, y, z), p)
			}
		}
	}
	return s
}

func newEngine(s *microstructure.Store, reg *phase.Registry, seed int64) (*Engine, *species.List) {
	list := species.New()
	place := growth.New(s, prng.NewRNG(seed), nil)
	return New(s, reg, list, place, DefaultOptions(), nil), list
}

func env(cycle int) Env {
	return Env{Cycle: cycle, Temperature: 25, KRate: 1, KPozz: 1, KSlag: 1, PH: 13.5}
}

func TestPinnedCHDissolvesIntoSpecies(t *testing.T) {
	s := sparse(phase.CH)
	reg := phase.NewRegistry()
	reg.Pin(phase.CH, 1)
	e, list := newEngine(s, reg, 3)

	st, err := e.Dissolve(env(1))
	if err != nil {
		t.Fatal(err)
	}
	if st.Dissolved[phase.CH] != 27 {
		t.Fatalf("dissolved %d CH, want 27", st.Dissolved[phase.CH])
	}
	if s.Count(phase.CH) != 0 || s.Count(phase.DiffCH) != 27 {
		t.Fatalf("CH=%d DIFFCH=%d", s.Count(phase.CH), s.Count(phase.DiffCH))
	}
	if list.Len() != 27 || list.Count(phase.DiffCH) != 27 {
		t.Fatalf("species list holds %d entries", list.Len())
	}
	if err := list.Verify(s); err != nil {
		t.Fatal(err)
	}
	if err := s.CheckConservation(); err != nil {
		t.Fatal(err)
	}
}

func TestSilicateDissolutionAddsCSHAndCH(t *testing.T) {
	s := sparse(phase.C3S)
	reg := phase.NewRegistry()
	reg.Pin(phase.C3S, 1)
	e, list := newEngine(s, reg, 11)

	st, err := e.Dissolve(env(2))
	if err != nil {
		t.Fatal(err)
	}
	d := st.Dissolved[phase.C3S]
	if d == 0 || s.Count(phase.C3S)+d != 27 {
		t.Fatalf("dissolved %d of 27 C3S, %d left", d, s.Count(phase.C3S))
	}
	lo := int(0.61 * float64(d))
	if ch := s.Count(phase.DiffCH); ch < lo || ch > lo+1 {
		t.Fatalf("DIFFCH = %d, want %d or %d", ch, lo, lo+1)
	}
	if csh := s.Count(phase.DiffCSH); csh < d || csh > 2*d {
		t.Fatalf("DIFFCSH = %d for %d dissolved C3S", csh, d)
	}
	if err := list.Verify(s); err != nil {
		t.Fatal(err)
	}
	if err := s.CheckConservation(); err != nil {
		t.Fatal(err)
	}
}

func TestDissolveIsReproducible(t *testing.T) {
	run := func() []phase.Phase {
		s := sparse(phase.C3S)
		reg := phase.NewRegistry()
		reg.Pin(phase.C3S, 0.5)
		e, _ := newEngine(s, reg, 42)
		if _, err := e.Dissolve(env(2)); err != nil {
			t.Fatal(err)
		}
		return slices.Clone(s.Phases())
	}
	if !slices.Equal(run(), run()) {
		t.Fatal("same seed produced different grids")
	}
}

func TestMakeInertPicksMostOpenPores(t *testing.T) {
	s := microstructure.New(9)
	lat := s.Lattice()
	for x := 0; x < 4; x++ {
		for y := 0; y < 9; y++ {
			for z := 0; z < 9; z++ {
				s.Set(lat.Index(x, y, z), phase.Inert)
			}
		}
	}
	e, _ := newEngine(s, phase.NewRegistry(), 1)
	size := e.cubeSize
	if got := e.makeInert(10); got != 10 {
		t.Fatalf("emptied %d voxels, want 10", got)
	}
	if s.Count(phase.EmptyPore) != 10 {
		t.Fatalf("EMPTYP = %d", s.Count(phase.EmptyPore))
	}
	worst, best := 1<<30, 0
	for i := 0; i < s.Volume(); i++ {
		open := s.CountBox(i, size, phase.Phase.IsPoreLike)
		switch s.Phase(i) {
		case phase.EmptyPore:
			worst = min(worst, open)
		case phase.Porosity:
			best = max(best, open)
		}
	}
	if worst < best {
		t.Fatalf("emptied a voxel with %d open neighbors while one with %d stayed", worst, best)
	}
}

func TestMakeInertCapsAtPoreCount(t *testing.T) {
	s := sparse(phase.Inert)
	e, _ := newEngine(s, phase.NewRegistry(), 1)
	if got := e.makeInert(5000); got != s.Volume()-27 {
		t.Fatalf("emptied %d voxels", got)
	}
	if s.Count(phase.Porosity) != 0 {
		t.Fatal("pore voxels left")
	}
}

func TestSurfaceMarksOutlastDesiccation(t *testing.T) {
	s := sparse(phase.CH)
	reg := phase.NewRegistry()
	reg.Pin(phase.CH, 1)
	e, _ := newEngine(s, reg, 1)

	e.survey(nil)
	e.makeInert(s.Volume())
	if s.Count(phase.Porosity) != 0 {
		t.Fatal("pore voxels left")
	}
	marked := func() int {
		n := 0
		for _, m := range e.eligible {
			if m {
				n++
			}
		}
		return n
	}
	if got := marked(); got != 27 {
		t.Fatalf("%d CH voxels marked after desiccation, want 27", got)
	}
	// A filtered survey leaves the marks of other phases alone.
	e.survey(func(p phase.Phase) bool { return p == phase.C3S })
	if got := marked(); got != 27 {
		t.Fatalf("%d marks after a C3S survey, want 27", got)
	}
	e.survey(nil)
	if got := marked(); got != 0 {
		t.Fatalf("%d marks on a grid without saturated pores", got)
	}
}

func TestSealedWaterExhaustion(t *testing.T) {
	s := sparse(phase.C3S)
	e, _ := newEngine(s, phase.NewRegistry(), 1)
	ev := env(3)
	ev.Sealed = true
	ev.WaterOff = -2 * s.Volume()
	if _, err := e.Dissolve(ev); !errors.Is(err, ErrWaterExhausted) {
		t.Fatalf("got %v, want ErrWaterExhausted", err)
	}
	if s.Count(phase.C3S) != 27 {
		t.Fatal("grid changed after exhaustion")
	}
}

func TestPHFactorSteps(t *testing.T) {
	cases := []struct {
		ph   float64
		want float64
	}{
		{12.0, 1.5},
		{12.6, 1.0},
		{12.9, 0.667},
		{13.1, 0.333},
		{13.5, 0},
		{14.0, -0.25},
	}
	for _, tc := range cases {
		if got := phFactor(tc.ph); got != tc.want {
			t.Fatalf("phFactor(%v) = %v, want %v", tc.ph, got, tc.want)
		}
	}
}

func TestAlphaTracksReactedClinker(t *testing.T) {
	s := sparse(phase.C3S)
	e, _ := newEngine(s, phase.NewRegistry(), 1)
	for i := 0; i < 3; i++ {
		s.Set(s.Lattice().Index(3*i, 0, 0), phase.Porosity)
	}
	st, err := e.Measure(env(1))
	if err != nil {
		t.Fatal(err)
	}
	if want := 3.0 / 27; st.Alpha < want-1e-12 || st.Alpha > want+1e-12 {
		t.Fatalf("alpha = %v, want %v", st.Alpha, want)
	}
	if st.Heat <= 0 {
		t.Fatalf("heat = %v", st.Heat)
	}
}

func TestRandomCHGridConservesVolume(t *testing.T) {
	rng := prng.NewRNG(5)
	s := microstructure.New(10)
	for placed := 0; placed < 100; {
		if i := rng.IntN(s.Volume()); s.Phase(i) == phase.Porosity {
			s.Set(i, phase.CH)
			placed++
		}
	}
	reg := phase.NewRegistry()
	reg.Pin(phase.CH, 1)
	e, list := newEngine(s, reg, 6)
	before := slices.Clone(s.Phases())
	st, err := e.Dissolve(env(1))
	if err != nil {
		t.Fatal(err)
	}
	if st.Dissolved[phase.CH] == 0 {
		t.Fatal("no CH dissolved")
	}
	gone, spawned := 0, 0
	for i, was := range before {
		now := s.Phase(i)
		switch {
		case was == phase.CH && now != phase.CH:
			if now != phase.Porosity && now != phase.DiffCH {
				t.Fatalf("CH voxel %d became %s", i, now)
			}
			gone++
		case was == phase.Porosity && now != phase.Porosity:
			if now != phase.DiffCH {
				t.Fatalf("pore voxel %d became %s", i, now)
			}
		}
		if now == phase.DiffCH {
			spawned++
		}
	}
	if gone != st.Dissolved[phase.CH] || spawned != st.Dissolved[phase.CH] {
		t.Fatalf("%d CH voxels gone, %d DIFFCH placed, %d dissolved", gone, spawned, st.Dissolved[phase.CH])
	}
	if got := s.Count(phase.CH) + s.Count(phase.Porosity) + s.Count(phase.DiffCH); got != 1000 {
		t.Fatalf("CH + pore + DIFFCH = %d, want 1000", got)
	}
	if s.Count(phase.DiffCH) != st.Dissolved[phase.CH] || list.Len() != st.Dissolved[phase.CH] {
		t.Fatalf("DIFFCH=%d list=%d dissolved=%d", s.Count(phase.DiffCH), list.Len(), st.Dissolved[phase.CH])
	}
}
