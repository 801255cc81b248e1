// Package dissolution runs the per-cycle dissolution pass: soluble solids in
// contact with pore space turn into pore and release diffusing species, with
// extra species added to keep the molar volume balance of the reactions.
package dissolution

import (
	"errors"
	"fmt"
	"log/slog"

	"cemhyd/internal/growth"
	"cemhyd/internal/logging"
	"cemhyd/internal/microstructure"
	"cemhyd/internal/phase"
	"cemhyd/internal/species"
	prng "cemhyd/pkg/core"
)

// ErrWaterExhausted is returned when a sealed system has consumed more water
// than it holds.
var ErrWaterExhausted = errors.New("free water exhausted under sealed curing")

// Options are the chemistry switches fixed for a run.
type Options struct {
	// CSHToPozzCSH allows conventional C-S-H to convert to pozzolanic C-S-H
	// when enough pozzolan is present.
	CSHToPozzCSH bool
	// PHActive lets the pore solution pH suppress dissolution.
	PHActive bool
	// OnePixelBias multiplies the dissolution probability of voxels that do
	// not belong to a multi-voxel particle (particle id 0).
	OnePixelBias float64
	// MassAggregate is the mass fraction of aggregate in the concrete.
	MassAggregate float64
}

// DefaultOptions returns the options of a plain paste.
func DefaultOptions() Options {
	return Options{OnePixelBias: 1}
}

// Env carries the cycle-level scalars the orchestrator owns.
type Env struct {
	Cycle       int
	Temperature float64
	// KRate, KPozz and KSlag are the Arrhenius rate factors relative to 25 C.
	KRate, KPozz, KSlag float64
	Sealed              bool
	// PH and SulfateFeedback come from the pore solution estimator.
	PH              float64
	SulfateFeedback float64
	// WaterOff and PoreOff are the water budget and pore count recorded when
	// curing switched to self-desiccating.
	WaterOff, PoreOff int
	// PozzReacted and ASReacted are cumulative reaction tallies of the
	// diffusion engine.
	PozzReacted, ASReacted int
	// PPozz is the pozzolanic reaction probability before saturation
	// suppression.
	PPozz float64
}

// Stats reports one dissolution pass.
type Stats struct {
	Cycle     int
	Dissolved [phase.Count]int
	// Spawned counts species placed next to a dissolving voxel or in the
	// local C-S-H box.
	Spawned int
	// Extra counts species placed at random pore voxels, per kind.
	Extra [phase.Count]int
	// RandomCSH counts C-S-H species that found no room in the local box.
	RandomCSH   int
	Emptied     int
	SlagEmptied int

	// Alpha is the degree of hydration of the four clinker minerals by
	// volume, AlphaMass by mass.
	Alpha, AlphaMass, AlphaFlyAsh float64
	// Heat is the cumulative heat released in kJ per kg of solid before
	// conversion; PrevHeat the value of the previous pass.
	Heat, PrevHeat float64
	// Shrinkage is the chemical shrinkage in mL per g of cement.
	Shrinkage float64
	WaterLeft int
	// PoreCount is the saturated pore count when the budget was measured.
	PoreCount int

	Saturation  float64
	PHFactor    float64
	PPozz       float64
	SulfateConc float64
}

// Total returns the number of dissolved voxels.
func (s Stats) Total() int {
	n := 0
	for _, v := range s.Dissolved {
		n += v
	}
	return n
}

// Engine owns the dissolution state that persists between cycles.
type Engine struct {
	store *microstructure.Store
	reg   *phase.Registry
	list  *species.List
	place *growth.Placer
	rng   *prng.RNG
	log   *slog.Logger
	opts  Options

	init     microstructure.Counts
	mix      Mix
	eligible []bool

	cubeSize    int
	countPore   int
	slagEmptied int
	slagCum     int
	chDeficit   int
	slagReacted int
	sulfate     int
	chNew       int
	heat        float64
	dismin      [2]float64
	saturation  float64
}

// New prepares an engine over the initial microstructure. The current phase
// counts become the reference for degree of hydration and water budget.
func New(store *microstructure.Store, reg *phase.Registry, list *species.List, place *growth.Placer, opts Options, log *slog.Logger) *Engine {
	if opts.OnePixelBias <= 0 {
		opts.OnePixelBias = 1
	}
	e := &Engine{
		store:      store,
		reg:        reg,
		list:       list,
		place:      place,
		rng:        place.RNG(),
		log:        logging.OrDiscard(log),
		opts:       opts,
		eligible:   make([]bool, store.Volume()),
		cubeSize:   cubeMax,
		dismin:     [2]float64{disminC3A, disminC4AF},
		saturation: 1,
	}
	store.Recount()
	e.init = store.Counts()
	e.mix = measureMix(store, reg, opts.MassAggregate)
	return e
}

// Mix returns the mixture proportions measured at construction.
func (e *Engine) Mix() Mix { return e.mix }

// Initial returns the phase counts at construction.
func (e *Engine) Initial() microstructure.Counts { return e.init }

// SlagReacted returns the cumulative number of reacted slag voxels.
func (e *Engine) SlagReacted() int { return e.slagReacted }

// Dissolve runs one dissolution cycle. Under sealed curing a negative water
// budget returns ErrWaterExhausted before any voxel changes.
//
// Surface voxels are marked before self-desiccation empties any pore, using
// the solubility of the previous cycle with C3AH6 held insoluble. Phases
// that turn soluble in this cycle's probability update are marked after it.
func (e *Engine) Dissolve(env Env) (Stats, error) {
	st, err := e.Measure(env)
	if err != nil {
		return st, err
	}
	reg := e.reg
	reg.SetSoluble(phase.C3AH6, false)
	var was [phase.Count]bool
	for _, p := range phase.All {
		was[p] = reg.Soluble(p)
	}
	e.survey(nil)

	c := e.store.Counts()
	if env.Sealed && c[phase.Porosity]-st.WaterLeft > 0 {
		todo := (c[phase.Porosity] - env.PoreOff) - (st.WaterLeft - env.WaterOff) - e.slagEmptied
		if todo > 0 {
			st.Emptied = e.makeInert(todo)
		}
	}
	e.chNew = e.store.Count(phase.CH)

	pHFactor := e.updateProbabilities(env, &st)
	e.survey(func(p phase.Phase) bool { return !was[p] && reg.Soluble(p) })
	if err := e.react(env, pHFactor, &st); err != nil {
		return st, err
	}
	if err := e.addExtras(env, &st); err != nil {
		return st, err
	}
	e.afterPass()
	st.SulfateConc = e.sulfateConc()
	e.log.Debug("dissolution pass",
		"cycle", env.Cycle,
		"dissolved", st.Total(),
		"spawned", st.Spawned,
		"random_csh", st.RandomCSH,
		"emptied", st.Emptied,
		"diffusing", e.list.Len())
	return st, nil
}

// Measure recomputes counts and reports degree of hydration, heat, chemical
// shrinkage and the water budget without dissolving anything.
func (e *Engine) Measure(env Env) (Stats, error) {
	e.store.Recount()
	st := Stats{Cycle: env.Cycle, Saturation: e.saturation}
	e.bookkeep(env, &st)
	if env.Sealed && st.WaterLeft+env.WaterOff < 0 {
		return st, fmt.Errorf("cycle %d: water left %d: %w", env.Cycle, st.WaterLeft+env.WaterOff, ErrWaterExhausted)
	}
	return st, nil
}
