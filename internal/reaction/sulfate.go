package reaction

import "cemhyd/internal/phase"

const (
	// absorbRate is the chance diffusing gypsum is absorbed by C-S-H.
	absorbRate = 0.25
	// Sulfate attack gates on the aluminate the species meets.
	sulfateOnC3A     = 0.5
	sulfateOnC4AF    = 0.1
	sulfateOnSpecies = 0.001
	// ettrGrow is the chance diffusing ettringite grows on ettringite.
	ettrGrow = 0.002
	// ironCH and ironFH3 are the CH and FH3 released per C4AF converted by
	// a calcium sulfate.
	ironCH  = 0.2584
	ironFH3 = 0.5453
)

// sulfate holds the stoichiometry of one calcium sulfate forming ettringite.
// frac is the aluminate consumed per sulfate, expand and last give the
// needle length, fracIron the C4AF consumed.
type sulfate struct {
	frac     float64
	expand   int
	last     float64
	fracIron float64
}

var (
	gypsum      = sulfate{frac: 0.40, expand: 2, last: 0.30, fracIron: 0.575}
	hemihydrate = sulfate{frac: 0.5583, expand: 3, last: 0.6053, fracIron: 0.802}
	anhydrite   = sulfate{frac: 0.569, expand: 3, last: 0.6935, fracIron: 0.8174}
)

// moveGypsum absorbs gypsum into C-S-H or forms ettringite with aluminates.
func (e *Engine) moveGypsum(m *move) outcome {
	e.draw(m)
	u := e.rng.Float64()
	s := e.store
	if m.check == phase.CSH && float64(s.Count(phase.AbsGypsum)) < e.opts.GypsumAbsorption*float64(s.Count(phase.CSH)) {
		if e.below(absorbRate) {
			e.solidify(m, phase.AbsGypsum)
			return consumed
		}
		return unreacted
	}
	return e.formEttringite(m, u, gypsum)
}

// moveSulfate nucleates secondary gypsum from anhydrite or hemihydrate,
// grows it on gypsum, or forms ettringite with aluminates.
func (e *Engine) moveSulfate(m *move, sf sulfate) outcome {
	pgen := e.rng.Float64()
	u := e.rng.Float64()
	if e.nuc.gyp >= pgen || e.final {
		pos := m.pos
		e.solidify(m, phase.GypsumS)
		if e.below(0.4) {
			e.extGypsum(pos)
		}
		return consumed
	}
	e.draw(m)
	switch m.check {
	case phase.Gypsum, phase.GypsumS, phase.DiffGypsum:
		e.solidify(m, phase.GypsumS)
		if e.below(0.4) {
			e.extGypsum(m.target)
		}
		return consumed
	}
	return e.formEttringite(m, u, sf)
}

// formEttringite converts a calcium sulfate meeting C3A, C4AF or a
// diffusing aluminate into an ettringite needle anchored at the sulfate.
func (e *Engine) formEttringite(m *move, u float64, sf sulfate) outcome {
	switch {
	case (m.check == phase.C3A && u < sulfateOnC3A) ||
		((m.check == phase.DiffC3A || m.check == phase.DiffC4A) && u < sulfateOnSpecies):
		iron := m.check == phase.DiffC4A
		product, _ := ettringite(iron)
		pos := m.pos
		e.solidify(m, product)
		n := sf.expand
		if e.chance(sf.frac) {
			e.convert(m.target, product)
			n--
		}
		e.ettrChain(pos, iron, n, sf.last)
	case m.check == phase.C4AF && u < sulfateOnC4AF:
		pos := m.pos
		e.solidify(m, phase.EttringiteC4AF)
		n := sf.expand
		if e.chance(sf.fracIron) {
			e.convert(m.target, phase.EttringiteC4AF)
			n--
			if e.below(ironCH) {
				e.extCH()
			}
			if e.below(ironFH3) {
				e.extFH3(m.target)
			}
		}
		e.ettrChain(pos, true, n, sf.last)
	default:
		return unreacted
	}
	return consumed
}

// moveEttringite turns diffusing ettringite into AFm on aluminates, or grows
// ettringite on ettringite.
func (e *Engine) moveEttringite(m *move) outcome {
	e.draw(m)
	switch m.check {
	case phase.C4AF:
		e.solidify(m, phase.AFm)
		switch u := e.rng.Float64(); {
		case u <= 0.278:
			e.convert(m.target, phase.AFm)
			if e.chance(0.3241) {
				e.extCH()
			}
			if e.chance(0.4313) {
				e.extFH3(m.target)
			}
		case u <= 0.348:
			e.convert(m.target, phase.FH3)
		}
	case phase.C3A, phase.DiffC3A:
		pos := m.pos
		e.solidify(m, phase.AFm)
		pafm := 0.04699
		if e.chance(0.2424) {
			e.convert(m.target, phase.AFm)
			pafm = -0.1
		}
		if e.chance(pafm) {
			e.extAFm(pos)
		}
	case phase.Ettringite:
		if !e.chance(ettrGrow) {
			return unreacted
		}
		e.solidify(m, phase.Ettringite)
	default:
		return unreacted
	}
	return consumed
}
