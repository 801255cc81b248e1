// Package reaction advances the diffusing species through pore space. Each
// substep every species draws a random face neighbor and either reacts with
// what it finds there, nucleates in place, hops into pore space or stays.
package reaction

import (
	"fmt"
	"log/slog"
	"math"

	"cemhyd/internal/core"
	"cemhyd/internal/growth"
	"cemhyd/internal/logging"
	"cemhyd/internal/microstructure"
	"cemhyd/internal/phase"
	"cemhyd/internal/species"
	prng "cemhyd/pkg/core"
)

// ErrPlacementExhausted reports a product voxel that found no pore space.
// The product is skipped; the rest of the round completes.
var ErrPlacementExhausted = growth.ErrPlacementExhausted

// Nucleation is the saturating nucleation curve p0*(1-exp(-count/scale)).
type Nucleation struct {
	P0    float64 `yaml:"p0"`
	Scale float64 `yaml:"scale"`
}

// Prob returns the nucleation probability at the given population.
func (n Nucleation) Prob(count int) float64 {
	if n.Scale <= 0 {
		return 0
	}
	return n.P0 * (1 - math.Exp(-float64(count)/n.Scale))
}

// NucleationParams holds the curves of the density-dependent reactions.
type NucleationParams struct {
	CH     Nucleation `yaml:"ch"`
	C3AH6  Nucleation `yaml:"c3ah6"`
	FH3    Nucleation `yaml:"fh3"`
	Gypsum Nucleation `yaml:"gypsum"`
}

// DefaultNucleation returns the curves used for a 100^3 paste.
func DefaultNucleation() NucleationParams {
	return NucleationParams{
		CH:     Nucleation{P0: 0.001, Scale: 10000},
		C3AH6:  Nucleation{P0: 0.00002, Scale: 10000},
		FH3:    Nucleation{P0: 0.002, Scale: 2500},
		Gypsum: Nucleation{P0: 0.05, Scale: 9000},
	}
}

// Options are the reaction switches fixed for a run.
type Options struct {
	// PlateCSH restricts C-S-H growth to plates using the orientation tags.
	PlateCSH bool
	// CHOnAggregate lets CH grow on aggregate, inert filler and CaCO3.
	CHOnAggregate bool
	// GypsumAbsorption is the ceiling of absorbed gypsum per C-S-H voxel.
	GypsumAbsorption float64
	Nucleation       NucleationParams
}

// DefaultOptions returns the options of a plain paste.
func DefaultOptions() Options {
	return Options{
		GypsumAbsorption: phase.GypsumAbsorption,
		Nucleation:       DefaultNucleation(),
	}
}

// Env carries the cycle-level scalars the orchestrator owns.
type Env struct {
	Cycle int
	// PPozz is the pozzolanic reaction probability of the current cycle.
	PPozz float64
}

// Stats reports one call to Advance.
type Stats struct {
	Cycle    int
	Substeps int
	// Reacted counts species that reacted, per kind. Forced counts those
	// precipitated at the end of the final cycle.
	Reacted [phase.Count]int
	Forced  int
	Hops    int
	Blocked int
	// Placed counts expansion voxels, Skipped those that found no pore.
	Placed  int
	Skipped int
	// Fallbacks counts expansion voxels placed at random pores away from
	// their reaction site, Scans those that needed a linear pore scan.
	Fallbacks int
	Scans     int
	Left      int
}

// TotalReacted returns the number of species that reacted.
func (s Stats) TotalReacted() int {
	n := 0
	for _, v := range s.Reacted {
		n += v
	}
	return n
}

// Engine owns the reaction state that persists between cycles.
type Engine struct {
	store *microstructure.Store
	reg   *phase.Registry
	list  *species.List
	place *growth.Placer
	rng   *prng.RNG
	log   *slog.Logger
	opts  Options

	// pozzLimit caps the CH that may react pozzolanically.
	pozzLimit   int
	pozzReacted int
	asReacted   int

	env   Env
	final bool
	nuc   probs
	st    *Stats
}

type probs struct {
	ch, c3ah6, fh3, gyp float64
}

// New prepares an engine over store. The pozzolan present now bounds the
// pozzolanic reaction for the whole run.
func New(store *microstructure.Store, reg *phase.Registry, list *species.List, place *growth.Placer, opts Options, log *slog.Logger) *Engine {
	return &Engine{
		store:     store,
		reg:       reg,
		list:      list,
		place:     place,
		rng:       place.RNG(),
		log:       logging.OrDiscard(log),
		opts:      opts,
		pozzLimit: int(float64(store.Count(phase.Pozzolan)) * 1.35),
	}
}

// PozzReacted returns the cumulative number of CH species consumed by the
// pozzolanic reaction.
func (e *Engine) PozzReacted() int { return e.pozzReacted }

// ASReacted returns the cumulative number of CH species consumed by
// stratlingite formation.
func (e *Engine) ASReacted() int { return e.asReacted }

// Advance runs up to maxSubsteps rounds over the live species. With final
// set, species that are still in solution after the last round precipitate
// as their canonical solid. Placements that found no pore are skipped and
// reported as a wrapped ErrPlacementExhausted once the rounds are done.
func (e *Engine) Advance(env Env, final bool, maxSubsteps int) (Stats, error) {
	st := Stats{Cycle: env.Cycle}
	e.env = env
	e.st = &st
	defer func() { e.st = nil }()
	fallbacks, scans := e.place.Fallbacks, e.place.Scans

	for step := 1; step <= maxSubsteps && e.list.Len() > 0; step++ {
		e.final = final && step == maxSubsteps
		st.Substeps = step
		n := e.opts.Nucleation
		e.nuc = probs{
			ch:    n.CH.Prob(e.store.Count(phase.DiffCH)),
			c3ah6: n.C3AH6.Prob(e.store.Count(phase.DiffC3A)),
			fh3:   n.FH3.Prob(e.store.Count(phase.DiffFH3)),
			gyp:   n.Gypsum.Prob(e.store.Count(phase.DiffAnhydrite) + e.store.Count(phase.DiffHemihydrate)),
		}
		cur := e.list.Cursor()
		for h, ok := cur.Next(); ok; h, ok = cur.Next() {
			e.advance(h)
		}
	}
	e.final = false
	st.Left = e.list.Len()
	st.Fallbacks = e.place.Fallbacks - fallbacks
	st.Scans = e.place.Scans - scans
	e.log.Debug("diffusion pass",
		"cycle", env.Cycle,
		"substeps", st.Substeps,
		"reacted", st.TotalReacted(),
		"forced", st.Forced,
		"hops", st.Hops,
		"fallbacks", st.Fallbacks,
		"left", st.Left)
	if st.Skipped > 0 {
		return st, fmt.Errorf("cycle %d: %d product voxels skipped: %w", env.Cycle, st.Skipped, ErrPlacementExhausted)
	}
	return st, nil
}

// outcome is what a rule did with the species it moved.
type outcome uint8

const (
	// unreacted species hop into pore space or stay.
	unreacted outcome = iota
	// consumed species left solution.
	consumed
	// kept species reacted but stay in solution at their voxel.
	kept
	// precipitated species were forced out of solution by the rule itself
	// on the final substep.
	precipitated
)

// move is one species drawing its hop target.
type move struct {
	h      species.Handle
	pos    int
	kind   phase.Phase
	birth  int
	dir    core.Direction
	target int
	check  phase.Phase
}

func (e *Engine) draw(m *move) {
	m.dir = e.place.Direction()
	m.target = e.store.Step(m.pos, m.dir)
	m.check = e.store.Phase(m.target)
}

func (e *Engine) advance(h species.Handle) {
	r := e.list.Get(h)
	m := &move{h: h, pos: r.Pos, kind: r.Kind, birth: r.Birth, target: -1}
	var out outcome
	switch r.Kind {
	case phase.DiffCSH:
		out = e.moveCSH(m)
	case phase.DiffCH:
		out = e.moveCH(m)
	case phase.DiffFH3:
		out = e.moveFH3(m)
	case phase.DiffGypsum:
		out = e.moveGypsum(m)
	case phase.DiffAnhydrite:
		out = e.moveSulfate(m, anhydrite)
	case phase.DiffHemihydrate:
		out = e.moveSulfate(m, hemihydrate)
	case phase.DiffC3A, phase.DiffC4A:
		out = e.moveAluminate(m)
	case phase.DiffEttringite:
		out = e.moveEttringite(m)
	case phase.DiffCaCl2:
		out = e.moveCaCl2(m)
	case phase.DiffCAS2:
		out = e.moveCAS2(m)
	case phase.DiffAS:
		out = e.moveAS(m)
	case phase.DiffCaCO3:
		out = e.moveCaCO3(m)
	default:
		panic(microstructure.InvariantError{Msg: fmt.Sprintf("species list holds non-mobile %s at voxel %d", r.Kind, r.Pos)})
	}

	if out == precipitated {
		e.st.Forced++
		return
	}
	if out != unreacted {
		e.st.Reacted[m.kind]++
	}
	if out == consumed {
		return
	}
	if e.final {
		e.solidify(m, m.kind.Canonical())
		e.st.Forced++
		return
	}
	if out == unreacted {
		e.hop(m)
	}
}

// solidify turns the species voxel into p and drops its record.
func (e *Engine) solidify(m *move, p phase.Phase) {
	e.list.Remove(m.h)
	e.store.Set(m.pos, p)
}

// dissolveInto removes the species from solution leaving pore space.
func (e *Engine) dissolveInto(m *move) {
	e.solidify(m, phase.Porosity)
}

// convert turns the voxel j into p. A species at j is consumed with it.
func (e *Engine) convert(j int, p phase.Phase) {
	if e.store.Phase(j).IsMobile() {
		e.list.RemoveAt(j)
	}
	e.store.Set(j, p)
}

// hop moves the species into its target if that is pore space.
func (e *Engine) hop(m *move) {
	if m.target < 0 || m.check != phase.Porosity {
		e.st.Blocked++
		return
	}
	e.store.Move(m.pos, m.target)
	e.list.Move(m.h, m.target)
	e.st.Hops++
}

// chance draws one uniform and reports whether it is at most p.
func (e *Engine) chance(p float64) bool { return e.rng.Float64() <= p }

// below draws one uniform and reports whether it is strictly below p.
func (e *Engine) below(p float64) bool { return e.rng.Float64() < p }
