package reaction

import (
	"context"
	"errors"

	"cemhyd/internal/core"
	"cemhyd/internal/growth"
	"cemhyd/internal/logging"
	"cemhyd/internal/phase"
)

const (
	// shortTries and longTries bound the neighbor search of an expansion
	// voxel; ettringite needles search longer and never stop early.
	shortTries  = 100
	longTries   = 500
	needleTries = 1000
)

// placed records one expansion voxel.
func (e *Engine) placed(i int, p phase.Phase) {
	e.store.Place(i, p)
	e.st.Placed++
}

// skip records an expansion voxel dropped for want of pore space.
func (e *Engine) skip(p phase.Phase, err error) {
	if !errors.Is(err, growth.ErrPlacementExhausted) {
		panic(err)
	}
	e.st.Skipped++
	e.log.Log(context.Background(), logging.LevelTrace, "expansion skipped", "phase", p)
}

// grow places solid at a pore neighbor of origin, trying at most tries
// directions and stopping once all six were tried. Failing that it places
// solid at a random pore touching a, b or c. It returns the voxel used and
// whether it was a neighbor of origin.
func (e *Engine) grow(origin, tries int, solid, a, b, c phase.Phase) (int, bool) {
	if j, _, ok := e.place.LocalPore(origin, tries, true); ok {
		e.placed(j, solid)
		return j, true
	}
	i, _ := e.random(solid, a, b, c)
	return i, false
}

// random places solid at a random pore touching a, b or c.
func (e *Engine) random(solid, a, b, c phase.Phase) (int, bool) {
	i, err := e.place.RandomPore(e.place.Touching(a, b, c))
	if err != nil {
		e.skip(solid, err)
		return 0, false
	}
	e.placed(i, solid)
	return i, true
}

// chain grows n voxels with ext, each anchored at the voxel the previous
// one landed next to, then one more with probability last.
func (e *Engine) chain(anchor, n int, last float64, ext func(int) int) {
	for k := 0; k < n; k++ {
		anchor = ext(anchor)
	}
	if e.chance(last) {
		ext(anchor)
	}
}

// needle returns the chain step growing from anchor with ext: a neighbor
// placement moves the anchor, a random placement keeps it.
func needle(ext func(int) (int, bool)) func(int) int {
	return func(anchor int) int {
		if j, local := ext(anchor); local {
			return j
		}
		return anchor
	}
}

func (e *Engine) extFriedel(origin int) (int, bool) {
	return e.grow(origin, longTries, phase.Friedel, phase.Friedel, phase.Friedel, phase.DiffCaCl2)
}

func (e *Engine) extStrat(origin int) (int, bool) {
	return e.grow(origin, longTries, phase.Stratlingite, phase.Stratlingite, phase.DiffCAS2, phase.DiffAS)
}

func (e *Engine) extGypsum(origin int) {
	e.grow(origin, longTries, phase.GypsumS, phase.Hemihydrate, phase.GypsumS, phase.Anhydrite)
}

func (e *Engine) extAFm(origin int) {
	e.grow(origin, shortTries, phase.AFm, phase.AFm, phase.C3A, phase.C4AF)
}

func (e *Engine) extC3AH6(origin int) {
	e.grow(origin, shortTries, phase.C3AH6, phase.C3AH6, phase.C3A, phase.C3AH6)
}

// ettringite returns the product and growth substrate of an ettringite
// needle; iron selects the C4AF-derived variant.
func ettringite(iron bool) (product, substrate phase.Phase) {
	if iron {
		return phase.EttringiteC4AF, phase.C4AF
	}
	return phase.Ettringite, phase.C3A
}

// extEttr grows one ettringite voxel at a neighbor of origin. Neighbors
// touching silicates are refused; others are accepted with a probability
// rising with nearby ettringite and aluminate. Failing that the voxel goes
// to a random pore touching ettringite or aluminate but no silicate.
func (e *Engine) extEttr(origin int, iron bool) (int, bool) {
	s := e.store
	product, substrate := ettringite(iron)
	silicates := func(i int) int { return 26 - s.EdgeCount(i, phase.C3S, phase.C2S, phase.C3S) }

	j, _, ok := e.place.Local(origin, needleTries, false, func(_ core.Direction, j int) bool {
		if s.Phase(j) != phase.Porosity {
			return false
		}
		near := 26 - s.EdgeCount(j, product, product, product)
		alum := 26 - s.EdgeCount(j, substrate, substrate, substrate)
		pneigh := float64(near+1) / 26
		pneigh *= pneigh
		switch {
		case alum <= 1:
			pneigh = 0
		case alum >= 5:
			pneigh += 1
		case alum >= 3:
			pneigh += 0.75
		default:
			pneigh += 0.5
		}
		u := e.rng.Float64()
		return silicates(j) < 1 && pneigh >= u
	})
	if ok {
		e.placed(j, product)
		return j, true
	}
	i, err := e.place.RandomPore(func(i, _ int) bool {
		return s.EdgeCount(i, product, phase.C3A, phase.C4AF) < 26 && silicates(i) < 1
	})
	if err != nil {
		e.skip(product, err)
		return origin, false
	}
	e.placed(i, product)
	return i, false
}

// ettrChain grows n ettringite voxels from anchor as a needle, plus one more
// with probability last.
func (e *Engine) ettrChain(anchor int, iron bool, n int, last float64) {
	e.chain(anchor, n, last, needle(func(i int) (int, bool) { return e.extEttr(i, iron) }))
}
