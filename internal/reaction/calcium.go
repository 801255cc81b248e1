package reaction

import "cemhyd/internal/phase"

const (
	// chGrow and chGrowAggregate gate CH growth on CH and on aggregate.
	chGrow          = 1.0
	chGrowAggregate = 1.0
	// pozzCSHPerCH is the pozzolanic C-S-H formed per CH reacted, beyond the
	// first voxel.
	pozzCSHPerCH = 0.05466
	// stratPerAS is the extra stratlingite formed per CH reacted with AS.
	stratPerAS = 0.5035
)

// moveCSH precipitates C-S-H on existing C-S-H, on other hydration products
// and, rarely, on clinker. The voxel kept as C-S-H depends on how the molar
// volume changed between the birth cycle and now, except on the final forced
// substep where the species always becomes C-S-H.
func (e *Engine) moveCSH(m *move) outcome {
	e.draw(m)
	s := e.store
	a, b := m.dir.PlateFaces()
	u := e.rng.Float64()

	onCSH := m.check == phase.CSH
	if onCSH && e.opts.PlateCSH {
		f := s.Face(m.target)
		onCSH = f == 0 || f == a || f == b
	}
	var elsewhere bool
	switch m.check {
	case phase.SlagCSH, phase.PozzCSH, phase.CaCO3, phase.Inert:
		elsewhere = true
	case phase.C3S, phase.C2S:
		elsewhere = u < 0.001
	case phase.C3A, phase.C4AF:
		elsewhere = u < 0.2
	case phase.CH:
		elsewhere = u < 0.01
	}
	reacts := onCSH || elsewhere
	if !reacts && !e.final {
		return unreacted
	}

	ratio := e.reg.CSHMolarVolume(e.env.Cycle) / e.reg.CSHMolarVolume(m.birth)
	if e.final || e.chance(ratio) {
		pos := m.pos
		e.solidify(m, phase.CSH)
		s.SetAge(pos, e.env.Cycle)
		if e.opts.PlateCSH {
			switch {
			case onCSH:
				s.SetFace(pos, s.Face(m.target))
			case e.rng.Bool():
				s.SetFace(pos, a)
			default:
				s.SetFace(pos, b)
			}
		}
	} else {
		e.dissolveInto(m)
	}
	if ratio > 1 && e.below(ratio-1) {
		e.extCSH()
	}
	if !reacts {
		return precipitated
	}
	return consumed
}

// extCSH adds a C-S-H voxel at a random pore touching C-S-H or silicates,
// needed when C-S-H formed at a higher temperature is denser than now.
func (e *Engine) extCSH() {
	i, ok := e.random(phase.CSH, phase.CSH, phase.C3S, phase.C2S)
	if !ok {
		return
	}
	e.store.SetAge(i, e.env.Cycle)
	if e.opts.PlateCSH {
		e.store.SetFace(i, uint8(e.rng.IntN(3)+1))
	}
}

// moveCH nucleates CH, grows it on CH or aggregate, reacts with pozzolan to
// pozzolanic C-S-H or with diffusing AS to stratlingite.
func (e *Engine) moveCH(m *move) outcome {
	pgen := e.rng.Float64()
	if e.nuc.ch >= pgen || e.final {
		e.solidify(m, phase.CH)
		return consumed
	}
	e.draw(m)
	switch {
	case m.check == phase.CH && pgen <= chGrow:
		e.solidify(m, phase.CH)
	case (m.check == phase.InertAgg || m.check == phase.CaCO3 || m.check == phase.Inert) &&
		pgen <= chGrowAggregate && e.opts.CHOnAggregate:
		e.solidify(m, phase.CH)
	case pgen <= e.env.PPozz && m.check == phase.Pozzolan && e.pozzReacted <= e.pozzLimit:
		e.solidify(m, phase.PozzCSH)
		e.pozzReacted++
		if e.chance(1 / 1.35) {
			e.convert(m.target, phase.PozzCSH)
		}
		extra := e.chance(pozzCSHPerCH)
		e.extPozz(m.pos)
		if extra {
			e.extPozz(m.pos)
		}
	case m.check == phase.DiffAS:
		e.solidify(m, phase.Stratlingite)
		e.asReacted++
		if e.chance(0.7538) {
			e.convert(m.target, phase.Stratlingite)
		}
		e.extStrat(m.pos)
		if e.chance(stratPerAS) {
			e.extStrat(m.pos)
		}
	default:
		return unreacted
	}
	return consumed
}

// extCH adds CH at a random pore touching CH or diffusing CH.
func (e *Engine) extCH() {
	e.random(phase.CH, phase.CH, phase.DiffCH, phase.CH)
}

// extPozz adds pozzolanic C-S-H next to origin, or near pozzolan and C-S-H.
func (e *Engine) extPozz(origin int) {
	e.grow(origin, shortTries, phase.PozzCSH, phase.Pozzolan, phase.CSH, phase.PozzCSH)
}

// moveFH3 nucleates FH3 or grows it on existing FH3.
func (e *Engine) moveFH3(m *move) outcome {
	pgen := e.rng.Float64()
	if e.nuc.fh3 >= pgen || e.final {
		e.solidify(m, phase.FH3)
		return consumed
	}
	e.draw(m)
	if m.check == phase.FH3 {
		e.solidify(m, phase.FH3)
		return consumed
	}
	return unreacted
}

// extFH3 adds FH3 next to origin, or near FH3 when the neighborhood is full.
func (e *Engine) extFH3(origin int) {
	e.grow(origin, longTries, phase.FH3, phase.FH3, phase.DiffFH3, phase.FH3)
}
