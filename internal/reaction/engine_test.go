package reaction

import (
	"errors"
	"math"
	"slices"
	"testing"

	"cemhyd/internal/core"
	"cemhyd/internal/growth"
	"cemhyd/internal/microstructure"
	"cemhyd/internal/phase"
	"cemhyd/internal/species"
	prng "cemhyd/pkg/core"
)

func filled(n int, p phase.Phase) *microstructure.Store {
	s := microstructure.New(n)
	if p != phase.Porosity {
		for i := 0; i < s.Volume(); i++ {
			s.Set(i, p)
		}
	}
	return s
}

func newEngine(s *microstructure.Store, opts Options, seed int64) (*Engine, *species.List) {
	list := species.New()
	place := growth.New(s, prng.NewRNG(seed), nil)
	return New(s, phase.NewRegistry(), list, place, opts, nil), list
}

func quiet() Options {
	opts := DefaultOptions()
	opts.Nucleation = NucleationParams{}
	return opts
}

func release(s *microstructure.Store, list *species.List, i int, kind phase.Phase) {
	s.Place(i, kind)
	list.Add(i, kind, 1)
}

func mobileLeft(s *microstructure.Store) int {
	n := 0
	for _, p := range phase.All {
		if p.IsMobile() {
			n += s.Count(p)
		}
	}
	return n
}

func checkGrid(t *testing.T, s *microstructure.Store, list *species.List) {
	t.Helper()
	if err := list.Verify(s); err != nil {
		t.Fatal(err)
	}
	if err := s.CheckConservation(); err != nil {
		t.Fatal(err)
	}
	mirrored := s.Counts()
	s.Recount()
	if s.Counts() != mirrored {
		t.Fatal("phase counts drifted from the grid")
	}
}

func TestForcedPrecipitation(t *testing.T) {
	for _, kind := range phase.All {
		if !kind.IsMobile() {
			continue
		}
		s := filled(7, phase.Porosity)
		center := s.Lattice().Index(3, 3, 3)
		e, list := newEngine(s, quiet(), 4)
		release(s, list, center, kind)

		st, err := e.Advance(Env{Cycle: 1}, true, 1)
		if err != nil {
			t.Fatal(err)
		}
		if got := s.Phase(center); got != kind.Canonical() {
			t.Fatalf("%s precipitated as %s, want %s", kind, got, kind.Canonical())
		}
		if list.Len() != 0 || st.Left != 0 || mobileLeft(s) != 0 {
			t.Fatalf("%s still in solution", kind)
		}
		checkGrid(t, s, list)
	}
}

// C-S-H formed at a higher temperature is denser, so the molar volume ratio
// between birth and now drops below one. The final substep must still leave
// C-S-H behind.
func TestForcedCSHAfterTemperatureRise(t *testing.T) {
	for seed := int64(1); seed <= 300; seed++ {
		s := filled(7, phase.Porosity)
		center := s.Lattice().Index(3, 3, 3)
		e, list := newEngine(s, quiet(), seed)
		e.reg.SetCSHCycle(1, 20)
		e.reg.SetCSHCycle(2, 80)
		release(s, list, center, phase.DiffCSH)

		st, err := e.Advance(Env{Cycle: 2}, true, 1)
		if err != nil {
			t.Fatal(err)
		}
		if got := s.Phase(center); got != phase.CSH {
			t.Fatalf("seed %d: DIFFCSH precipitated as %s", seed, got)
		}
		if st.Forced != 1 || st.Reacted[phase.DiffCSH] != 0 {
			t.Fatalf("seed %d: forced=%d reacted=%d", seed, st.Forced, st.Reacted[phase.DiffCSH])
		}
		if s.Age(center) != 2 {
			t.Fatalf("seed %d: age %d, want 2", seed, s.Age(center))
		}
		checkGrid(t, s, list)
	}
}

func TestZeroSubstepsLeavesSpecies(t *testing.T) {
	s := filled(5, phase.Porosity)
	e, list := newEngine(s, quiet(), 1)
	release(s, list, 0, phase.DiffCH)
	st, err := e.Advance(Env{Cycle: 1}, true, 0)
	if err != nil {
		t.Fatal(err)
	}
	if st.Substeps != 0 || st.Left != 1 || s.Phase(0) != phase.DiffCH {
		t.Fatalf("substeps=%d left=%d phase=%s", st.Substeps, st.Left, s.Phase(0))
	}
}

func TestFreeSpeciesHopsThroughPore(t *testing.T) {
	s := filled(6, phase.Porosity)
	e, list := newEngine(s, quiet(), 8)
	release(s, list, 0, phase.DiffCaCl2)

	st, err := e.Advance(Env{Cycle: 1}, false, 20)
	if err != nil {
		t.Fatal(err)
	}
	if st.Hops != 20 || st.Blocked != 0 {
		t.Fatalf("hops=%d blocked=%d", st.Hops, st.Blocked)
	}
	if list.Len() != 1 || s.Count(phase.DiffCaCl2) != 1 || s.Count(phase.Porosity) != s.Volume()-1 {
		t.Fatalf("list=%d species=%d pore=%d", list.Len(), s.Count(phase.DiffCaCl2), s.Count(phase.Porosity))
	}
	checkGrid(t, s, list)
}

func TestBlockedSpeciesStays(t *testing.T) {
	s := filled(5, phase.Inert)
	center := s.Lattice().Index(2, 2, 2)
	s.Set(center, phase.Porosity)
	e, list := newEngine(s, quiet(), 2)
	release(s, list, center, phase.DiffCaCl2)

	st, err := e.Advance(Env{Cycle: 1}, false, 5)
	if err != nil {
		t.Fatal(err)
	}
	if st.Blocked != 5 || s.Phase(center) != phase.DiffCaCl2 {
		t.Fatalf("blocked=%d phase=%s", st.Blocked, s.Phase(center))
	}
}

func TestCHGrowsOnCH(t *testing.T) {
	s := filled(5, phase.Porosity)
	center := s.Lattice().Index(2, 2, 2)
	for _, d := range core.Directions {
		s.Set(s.Step(center, d), phase.CH)
	}
	e, list := newEngine(s, quiet(), 3)
	release(s, list, center, phase.DiffCH)

	st, err := e.Advance(Env{Cycle: 1}, false, 1)
	if err != nil {
		t.Fatal(err)
	}
	if s.Phase(center) != phase.CH || st.Reacted[phase.DiffCH] != 1 || list.Len() != 0 {
		t.Fatalf("phase=%s reacted=%d", s.Phase(center), st.Reacted[phase.DiffCH])
	}
	checkGrid(t, s, list)
}

func TestGypsumOnC3AFormsEttringite(t *testing.T) {
	s := filled(9, phase.Porosity)
	center := s.Lattice().Index(4, 4, 4)
	for _, d := range core.Directions {
		s.Set(s.Step(center, d), phase.C3A)
	}
	e, list := newEngine(s, quiet(), 17)
	release(s, list, center, phase.DiffGypsum)

	if _, err := e.Advance(Env{Cycle: 1}, false, 60); err != nil {
		t.Fatal(err)
	}
	if s.Phase(center) != phase.Ettringite {
		t.Fatalf("gypsum became %s", s.Phase(center))
	}
	// one voxel of gypsum yields three or four of ettringite
	ettr, c3a := s.Count(phase.Ettringite), s.Count(phase.C3A)
	if ettr < 3 || ettr > 4 || c3a < 5 {
		t.Fatalf("ETTR=%d C3A=%d", ettr, c3a)
	}
	checkGrid(t, s, list)
}

func TestSpeciesConsumedByReactionLeaveList(t *testing.T) {
	s := filled(7, phase.Porosity)
	center := s.Lattice().Index(3, 3, 3)
	e, list := newEngine(s, quiet(), 5)
	release(s, list, center, phase.DiffCH)
	for _, d := range core.Directions {
		release(s, list, s.Step(center, d), phase.DiffAS)
	}

	if _, err := e.Advance(Env{Cycle: 1}, false, 1); err != nil {
		t.Fatal(err)
	}
	if s.Phase(center) != phase.Stratlingite || e.ASReacted() != 1 {
		t.Fatalf("phase=%s as=%d", s.Phase(center), e.ASReacted())
	}
	if s.Count(phase.Stratlingite) < 2 {
		t.Fatalf("STRAT=%d", s.Count(phase.Stratlingite))
	}
	checkGrid(t, s, list)
}

func randomPaste(seed int64) (*Engine, *microstructure.Store, *species.List) {
	rng := prng.NewRNG(seed)
	s := microstructure.New(12)
	solids := []phase.Phase{
		phase.C3A, phase.C4AF, phase.CH, phase.CSH, phase.Gypsum,
		phase.Pozzolan, phase.AFm, phase.Ettringite, phase.C3AH6, phase.FH3,
	}
	for i := 0; i < s.Volume(); i++ {
		if rng.Float64() < 0.3 {
			s.Set(i, solids[rng.IntN(len(solids))])
		}
	}
	opts := DefaultOptions()
	opts.PlateCSH = true
	opts.CHOnAggregate = true
	e, list := newEngine(s, opts, seed)
	var mobile []phase.Phase
	for _, p := range phase.All {
		if p.IsMobile() {
			mobile = append(mobile, p)
		}
	}
	for i := 0; i < s.Volume(); i++ {
		if s.Phase(i) == phase.Porosity && rng.Float64() < 0.08 {
			release(s, list, i, mobile[rng.IntN(len(mobile))])
		}
	}
	return e, s, list
}

func TestReactionKeepsGridConsistent(t *testing.T) {
	e, s, list := randomPaste(21)
	env := Env{Cycle: 1, PPozz: 0.05}
	if _, err := e.Advance(env, false, 30); err != nil {
		t.Fatal(err)
	}
	checkGrid(t, s, list)
	st, err := e.Advance(env, true, 5)
	if err != nil {
		t.Fatal(err)
	}
	if st.Left != 0 || mobileLeft(s) != 0 {
		t.Fatalf("%d species left after the final cycle", st.Left)
	}
	checkGrid(t, s, list)
}

func TestAdvanceIsReproducible(t *testing.T) {
	run := func() []phase.Phase {
		e, s, _ := randomPaste(33)
		if _, err := e.Advance(Env{Cycle: 1, PPozz: 0.05}, false, 10); err != nil && !errors.Is(err, ErrPlacementExhausted) {
			t.Fatal(err)
		}
		return slices.Clone(s.Phases())
	}
	if !slices.Equal(run(), run()) {
		t.Fatal("same seed produced different grids")
	}
}

func TestPlacementExhaustionIsReported(t *testing.T) {
	s := filled(4, phase.Inert)
	e, list := newEngine(s, quiet(), 1)
	s.Set(0, phase.Porosity)
	release(s, list, 0, phase.DiffCSH)
	e.reg.SetCSHCycle(1, 20)
	e.reg.SetCSHCycle(2, -1000)

	st, err := e.Advance(Env{Cycle: 2}, true, 1)
	if s.Phase(0) != phase.CSH {
		t.Fatalf("species became %s", s.Phase(0))
	}
	if !errors.Is(err, ErrPlacementExhausted) {
		t.Fatalf("got %v, want ErrPlacementExhausted", err)
	}
	if st.Skipped != 1 || st.Scans != 1 {
		t.Fatalf("skipped=%d scans=%d", st.Skipped, st.Scans)
	}
}

func TestDenserCSHPlacesExtraVoxel(t *testing.T) {
	s := filled(7, phase.Porosity)
	center := s.Lattice().Index(3, 3, 3)
	e, list := newEngine(s, quiet(), 5)
	release(s, list, center, phase.DiffCSH)
	e.reg.SetCSHCycle(1, 20)
	e.reg.SetCSHCycle(2, -1000)

	st, err := e.Advance(Env{Cycle: 2}, true, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Count(phase.CSH); got != 2 {
		t.Fatalf("%d C-S-H voxels, want 2", got)
	}
	if st.Placed != 1 || st.Fallbacks != 1 || st.Scans != 0 {
		t.Fatalf("placed=%d fallbacks=%d scans=%d", st.Placed, st.Fallbacks, st.Scans)
	}
	checkGrid(t, s, list)
}

func TestNucleationCurve(t *testing.T) {
	n := Nucleation{P0: 0.5, Scale: 100}
	if n.Prob(0) != 0 {
		t.Fatalf("Prob(0) = %v", n.Prob(0))
	}
	if got := n.Prob(100); math.Abs(got-0.5*(1-math.Exp(-1))) > 1e-12 {
		t.Fatalf("Prob(100) = %v", got)
	}
	if got := (Nucleation{P0: 1}).Prob(1000); got != 0 {
		t.Fatalf("zero scale gave %v", got)
	}
}
