package reaction

import "cemhyd/internal/phase"

const (
	// c3ah6Grow gates growth of diffusing aluminate on hydrogarnet.
	c3ah6Grow = 0.01
	// c3ah6Expand is the extra hydrogarnet formed per aluminate species.
	c3ah6Expand = 0.69
	// c3aEttr gates AFm formation on soluble ettringite.
	c3aEttr = 0.001
)

// sulfateOf returns the stoichiometry of a diffusing calcium sulfate.
func sulfateOf(p phase.Phase) (sulfate, bool) {
	switch p {
	case phase.DiffGypsum:
		return gypsum, true
	case phase.DiffHemihydrate:
		return hemihydrate, true
	case phase.DiffAnhydrite:
		return anhydrite, true
	}
	return sulfate{}, false
}

// moveAluminate handles diffusing C3A and C4A: hydrogarnet nucleation and
// growth, ettringite with diffusing sulfates, Friedel's salt, stratlingite
// and AFm with ettringite. C4A yields the iron-rich ettringite.
func (e *Engine) moveAluminate(m *move) outcome {
	iron := m.kind == phase.DiffC4A
	product, _ := ettringite(iron)
	pgen := e.rng.Float64()
	u := e.rng.Float64()
	if e.nuc.c3ah6 >= pgen || e.final {
		e.hydrogarnet(m)
		return consumed
	}
	e.draw(m)
	sf, isSulfate := sulfateOf(m.check)

	switch {
	case m.check == phase.C3AH6:
		if !e.chance(c3ah6Grow) {
			return unreacted
		}
		e.hydrogarnet(m)
		return consumed
	case isSulfate && u < sulfateOnSpecies:
		e.convert(m.target, product)
		n, out := sf.expand, kept
		if e.chance(sf.frac) {
			e.solidify(m, product)
			n, out = n-1, consumed
		}
		e.ettrChain(m.target, iron, n, sf.last)
		return out
	case m.check == phase.DiffCaCl2:
		e.solidify(m, phase.Friedel)
		n := 2
		if e.chance(0.5793) {
			e.convert(m.target, phase.Friedel)
			n = 1
		}
		e.chain(m.target, n, 0.3295, needle(e.extFriedel))
		return consumed
	case m.check == phase.DiffCAS2:
		e.convert(m.target, phase.Stratlingite)
		n, out := 3, kept
		if e.chance(0.886) {
			e.solidify(m, phase.Stratlingite)
			n, out = 2, consumed
		}
		e.chain(m.target, n, 0.286, needle(e.extStrat))
		return out
	case m.check == phase.DiffEttringite ||
		(m.check == phase.Ettringite && e.reg.Soluble(phase.Ettringite) && e.chance(c3aEttr)):
		e.convert(m.target, phase.AFm)
		pafm, out := 0.04699, kept
		if e.chance(0.2424) {
			e.solidify(m, phase.AFm)
			pafm, out = -0.1, consumed
		}
		if e.chance(pafm) {
			e.extAFm(m.target)
		}
		return out
	}
	return unreacted
}

func (e *Engine) hydrogarnet(m *move) {
	pos := m.pos
	e.solidify(m, phase.C3AH6)
	if e.chance(c3ah6Expand) {
		e.extC3AH6(pos)
	}
}

// moveCaCl2 forms Friedel's salt with C3A, C4AF or diffusing aluminates.
func (e *Engine) moveCaCl2(m *move) outcome {
	e.draw(m)
	pos := m.pos
	switch m.check {
	case phase.C3A, phase.DiffC3A, phase.DiffC4A:
		e.convert(m.target, phase.Friedel)
		n, out := 2, kept
		if e.chance(0.5793) {
			e.solidify(m, phase.Friedel)
			n, out = 1, consumed
		}
		e.chain(pos, n, 0.3295, needle(e.extFriedel))
		return out
	case phase.C4AF:
		e.convert(m.target, phase.Friedel)
		n, out := 1, kept
		if e.chance(0.4033) {
			e.solidify(m, phase.Friedel)
			n, out = 0, consumed
			if e.below(0.6412) {
				e.extCH()
			}
			if e.below(0.3522) {
				e.extFH3(m.target)
			}
			e.extFH3(m.target)
		}
		e.chain(pos, n, 0.3176, needle(e.extFriedel))
		return out
	}
	return unreacted
}

// moveCAS2 forms stratlingite with C3A, C4AF or diffusing aluminates.
func (e *Engine) moveCAS2(m *move) outcome {
	e.draw(m)
	pos := m.pos
	switch m.check {
	case phase.C3A, phase.DiffC3A, phase.DiffC4A:
		e.solidify(m, phase.Stratlingite)
		n := 3
		if e.chance(0.886) {
			e.convert(m.target, phase.Stratlingite)
			n = 2
		}
		e.chain(pos, n, 0.286, needle(e.extStrat))
		return consumed
	case phase.C4AF:
		e.convert(m.target, phase.Stratlingite)
		n, out := 2, kept
		if e.chance(0.786) {
			e.solidify(m, phase.Stratlingite)
			n, out = 1, consumed
			if e.below(0.329) {
				e.extCH()
			}
			if e.below(0.6938) {
				e.extFH3(m.target)
			}
		}
		e.chain(pos, n, 0.37, needle(e.extStrat))
		return out
	}
	return unreacted
}

// moveAS forms stratlingite with CH.
func (e *Engine) moveAS(m *move) outcome {
	e.draw(m)
	if m.check != phase.CH && m.check != phase.DiffCH {
		return unreacted
	}
	pos := m.pos
	e.convert(m.target, phase.Stratlingite)
	n, out := 2, kept
	if e.chance(0.7538) {
		e.solidify(m, phase.Stratlingite)
		n, out = 1, consumed
	}
	e.chain(pos, n, 0.326, needle(e.extStrat))
	return out
}

// moveCaCO3 turns AFm into carboaluminate, releasing ettringite.
func (e *Engine) moveCaCO3(m *move) outcome {
	e.draw(m)
	if m.check != phase.AFm {
		return unreacted
	}
	if e.chance(0.479192) {
		e.convert(m.target, phase.AFmC)
	} else {
		e.convert(m.target, phase.Ettringite)
	}
	out := kept
	if e.chance(0.078658) {
		e.solidify(m, phase.AFmC)
		out = consumed
	}
	if e.chance(0.26194) {
		e.extEttr(m.target, false)
	}
	return out
}
