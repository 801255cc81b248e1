// Package hydration sequences the dissolution and reaction engines cycle by
// cycle, tracks temperature, maturity time and the curing regime, and runs
// the periodic connectivity and particle analyses.
package hydration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cemhyd/internal/dissolution"
	"cemhyd/internal/growth"
	"cemhyd/internal/logging"
	"cemhyd/internal/microstructure"
	"cemhyd/internal/percolation"
	"cemhyd/internal/ph"
	"cemhyd/internal/phase"
	"cemhyd/internal/reaction"
	"cemhyd/internal/species"
	prng "cemhyd/pkg/core"
)

// ErrWaterExhausted aborts a run whose sealed paste consumed more water than
// it holds.
var ErrWaterExhausted = dissolution.ErrWaterExhausted

// Curing is the water regime of the paste.
type Curing uint8

const (
	Saturated Curing = iota
	SelfDesiccating
)

func (c Curing) String() string {
	if c == SelfDesiccating {
		return "self-desiccating"
	}
	return "saturated"
}

// CycleState is the run state threaded through the engines. It changes once
// per cycle.
type CycleState struct {
	Cycle int
	// Time is the elapsed maturity time in hours; TimeStep the last
	// increment.
	Time, TimeStep float64
	Temperature    float64
	Curing         Curing
	// WaterOff and PoreOff are the water budget and pore count at the switch
	// to self-desiccation.
	WaterOff, PoreOff int

	KRate, KPozz, KSlag float64
	HeatCapacity        float64

	Alpha, AlphaMass float64
	// Heat is the cumulative heat released in kJ per kg of cement.
	Heat float64
	// PH and Sulfate are the pore solution estimate fed to dissolution.
	PH, Sulfate float64

	// PoreConnected records which axes the capillary porosity still spans.
	PoreConnected [3]bool
	Set           bool
	SetCycle      int
}

// Model owns the microstructure and every engine acting on it.
type Model struct {
	cfg   Config
	store *microstructure.Store
	reg   *phase.Registry
	list  *species.List
	rng   *prng.RNG
	diss  *dissolution.Engine
	react *reaction.Engine
	est   ph.Estimator
	an    percolation.Analyzer
	rules percolation.SetRules
	log   *slog.Logger

	// original holds the phases at construction for particle hydration.
	original  []phase.Phase
	observers []Observer
	state     CycleState
	segment   int
	finished  bool
}

// New prepares a run over store. A nil registry uses the default phase table.
func New(store *microstructure.Store, reg *phase.Registry, cfg Config, log *slog.Logger) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if reg == nil {
		reg = phase.NewRegistry()
	}
	log = logging.OrDiscard(log)
	rng := prng.NewRNG(cfg.Seed)
	list := species.New()
	place := growth.New(store, rng, log)

	m := &Model{
		cfg:      cfg,
		store:    store,
		reg:      reg,
		list:     list,
		rng:      rng,
		rules:    percolation.DefaultSetRules(),
		log:      log,
		original: append([]phase.Phase(nil), store.Phases()...),
	}
	m.diss = dissolution.New(store, reg, list, place, dissolution.Options{
		CSHToPozzCSH:  cfg.Chemistry.CSHToPozzCSH,
		PHActive:      cfg.Chemistry.PHActive,
		OnePixelBias:  cfg.Chemistry.OnePixelBias,
		MassAggregate: cfg.Chemistry.MassAggregate,
	}, log)
	m.react = reaction.New(store, reg, list, place, reaction.Options{
		PlateCSH:         cfg.Chemistry.PlateCSH,
		CHOnAggregate:    cfg.Chemistry.CHOnAggregate,
		GypsumAbsorption: phase.GypsumAbsorption,
		Nucleation:       cfg.Nucleation,
	}, log)
	if cfg.PoreSolution.Mode == "fixed" {
		m.est = ph.Fixed{PH: cfg.PoreSolution.PH, Sulfate: cfg.PoreSolution.Sulfate}
	} else {
		m.est = ph.NewAlkali(reg.Alkali())
	}

	st := &m.state
	st.Temperature = cfg.Thermal.Initial
	st.Time = cfg.Thermal.InductionTime
	st.PoreConnected = [3]bool{true, true, true}
	if cfg.Curing == CuringSealed {
		st.Curing = SelfDesiccating
	}
	if cfg.Thermal.Mode == Programmed {
		if t, ok := scheduled(cfg.Thermal.Schedule, &m.segment, st.Time); ok {
			st.Temperature = t
		}
	}
	m.rates()
	reg.SetCSHCycle(0, 20)
	m.estimate(0)
	return m, nil
}

// Validate reports settings no run can honour.
func (c Config) Validate() error {
	switch {
	case c.Cycles < 0:
		return fmt.Errorf("cycles %d must not be negative", c.Cycles)
	case c.MaxSubsteps < 0:
		return fmt.Errorf("max substeps %d must not be negative", c.MaxSubsteps)
	case c.ResaturateCycle < 0:
		return fmt.Errorf("resaturate cycle %d must not be negative", c.ResaturateCycle)
	case c.Thermal.Beta <= 0:
		return fmt.Errorf("beta %v must be positive", c.Thermal.Beta)
	case c.Thermal.Mode == Programmed && len(c.Thermal.Schedule) == 0:
		return errors.New("programmed temperature needs a schedule")
	}
	switch c.Curing {
	case CuringSaturated, CuringSealed, CuringImmersed:
	default:
		return fmt.Errorf("unknown curing mode %q", c.Curing)
	}
	switch c.Thermal.Mode {
	case Isothermal, Adiabatic, Programmed:
	default:
		return fmt.Errorf("unknown temperature mode %q", c.Thermal.Mode)
	}
	switch c.PoreSolution.Mode {
	case "alkali", "fixed":
	default:
		return fmt.Errorf("unknown pH mode %q", c.PoreSolution.Mode)
	}
	return nil
}

// Observe registers o to receive every cycle report.
func (m *Model) Observe(o Observer) { m.observers = append(m.observers, o) }

// State returns the current cycle state.
func (m *Model) State() CycleState { return m.state }

// Store exposes the microstructure. Callers must not mutate it.
func (m *Model) Store() *microstructure.Store { return m.store }

// Registry exposes the phase table in use.
func (m *Model) Registry() *phase.Registry { return m.reg }

// Config returns the run configuration.
func (m *Model) Config() Config { return m.cfg }

// Done reports whether the run has finished its final measurement.
func (m *Model) Done() bool { return m.finished }

// Run executes the remaining cycles and the final measurement. The context
// is checked between cycles.
func (m *Model) Run(ctx context.Context) error {
	for m.state.Cycle < m.cfg.Cycles {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := m.Step(ctx); err != nil {
			return err
		}
	}
	if m.finished {
		return nil
	}
	_, err := m.Finish(ctx)
	return err
}

func (m *Model) dissolutionEnv(cycle int) dissolution.Env {
	st := &m.state
	return dissolution.Env{
		Cycle:           cycle,
		Temperature:     st.Temperature,
		KRate:           st.KRate,
		KPozz:           st.KPozz,
		KSlag:           st.KSlag,
		Sealed:          st.Curing == SelfDesiccating,
		PH:              st.PH,
		SulfateFeedback: st.Sulfate,
		WaterOff:        st.WaterOff,
		PoreOff:         st.PoreOff,
		PozzReacted:     m.react.PozzReacted(),
		ASReacted:       m.react.ASReacted(),
		PPozz:           phase.PozzolanicBase * st.KPozz / st.KRate,
	}
}

// Step runs one hydration cycle and reports it to the observers.
func (m *Model) Step(ctx context.Context) (CycleReport, error) {
	st := &m.state
	c := st.Cycle + 1
	if st.Curing == SelfDesiccating && m.cfg.ResaturateCycle != 0 && c == m.cfg.ResaturateCycle+1 {
		m.resaturate()
	}
	m.reg.SetCSHCycle(c, st.Temperature)

	var snapshot *microstructure.Store
	if due(m.cfg.Cadence.Set, c) && !st.Set {
		snapshot = m.store.Clone()
	}
	ds, err := m.diss.Dissolve(m.dissolutionEnv(c))
	if err != nil {
		return CycleReport{}, err
	}
	st.Cycle = c

	final := c == m.cfg.Cycles
	rs, err := m.react.Advance(reaction.Env{Cycle: c, PPozz: ds.PPozz}, final, m.cfg.MaxSubsteps)
	if err != nil {
		if !errors.Is(err, reaction.ErrPlacementExhausted) {
			return CycleReport{}, err
		}
		m.log.Warn("expansion placements skipped", "cycle", c, "skipped", rs.Skipped)
	}

	m.absorb(ds)
	m.updateTemperature(ds.Heat, ds.PrevHeat, ds.AlphaMass)
	m.advanceClock(c)
	solution := m.estimate(ds.AlphaMass)

	rep := CycleReport{Dissolution: ds, Reaction: rs, Solution: solution}
	if due(m.cfg.Cadence.Burn, c) && m.porePercolates() {
		rep.Pores = m.burnPores()
		if !m.porePercolates() && st.Curing == Saturated && m.cfg.Curing == CuringSaturated {
			st.WaterOff = ds.WaterLeft
			st.PoreOff = ds.PoreCount
			st.Curing = SelfDesiccating
			m.log.Info("capillary porosity depercolated, switching to self-desiccation", "cycle", c)
		}
	}
	if snapshot != nil {
		rep.Set = m.burnSet(snapshot)
	}
	if due(m.cfg.Cadence.Particle, c) {
		rep.Particles = m.ParticleHydration()
	}

	m.log.Info("cycle",
		"cycle", c,
		"time_h", st.Time,
		"temp_c", st.Temperature,
		"alpha", st.AlphaMass,
		"dissolved", ds.Total(),
		"diffusing", rs.Left,
		"ph", st.PH)
	return rep, m.report(ctx, rep)
}

// Finish takes the final measurement after the last cycle: the closing
// connectivity checks, the last clock increment and pore solution estimate.
func (m *Model) Finish(ctx context.Context) (CycleReport, error) {
	st := &m.state
	env := m.dissolutionEnv(st.Cycle)
	ds, err := m.diss.Measure(env)
	if err != nil {
		return CycleReport{}, err
	}
	m.absorb(ds)
	if st.Cycle > 1 {
		st.TimeStep = (2*float64(st.Cycle) - 1) * m.cfg.Thermal.Beta / st.KRate
		st.Time += st.TimeStep
	}
	rep := CycleReport{Dissolution: ds, Final: true}
	if m.cfg.Cadence.Burn != 0 && m.cfg.Cadence.Burn <= m.cfg.Cycles && m.porePercolates() {
		rep.Pores = m.burnPores()
	}
	if m.cfg.Cadence.Set != 0 && m.cfg.Cadence.Set <= m.cfg.Cycles {
		rep.Set = m.burnSet(nil)
	}
	rep.Solution = m.estimate(ds.AlphaMass)
	m.finished = true
	m.log.Info("run finished",
		"cycles", st.Cycle,
		"time_h", st.Time,
		"alpha", st.AlphaMass,
		"set", st.Set,
		"set_cycle", st.SetCycle)
	return rep, m.report(ctx, rep)
}

func (m *Model) absorb(ds dissolution.Stats) {
	st := &m.state
	st.Alpha, st.AlphaMass = ds.Alpha, ds.AlphaMass
	st.Heat = ds.Heat * m.diss.Mix().HeatConversion
}

// estimate consults the pore solution estimator and records its feedback.
func (m *Model) estimate(alphaMass float64) ph.Result {
	st := &m.state
	c := m.store.Counts()
	r := m.est.Estimate(ph.Inputs{
		Temperature:         st.Temperature,
		Time:                st.Time,
		AlphaMass:           alphaMass,
		Pore:                c[phase.Porosity],
		CSH:                 c[phase.CSH],
		PozzCSH:             c[phase.PozzCSH],
		SlagCSH:             c[phase.SlagCSH],
		CementMass:          m.diss.Mix().CementMassWithGypsum,
		PozzReacted:         m.react.PozzReacted(),
		PozzSpecificGravity: m.reg.SpecificGravity(phase.Pozzolan),
		EttringiteSoluble:   m.reg.Soluble(phase.Ettringite),
	})
	st.PH, st.Sulfate = r.PH, r.Sulfate
	return r
}

// resaturate refills every depleted pore and lets the pore burn run again.
func (m *Model) resaturate() {
	n := 0
	for i := 0; i < m.store.Volume(); i++ {
		if m.store.Phase(i) == phase.EmptyPore {
			m.store.Set(i, phase.Porosity)
			n++
		}
	}
	st := &m.state
	if n > 0 {
		st.PoreConnected = [3]bool{true, true, true}
	}
	st.Curing = Saturated
	m.log.Info("resaturated", "cycle", st.Cycle+1, "voxels", n)
}

func (m *Model) report(ctx context.Context, rep CycleReport) error {
	rep.State = m.state
	rep.Counts = m.store.Counts()
	for _, o := range m.observers {
		if err := o.ObserveCycle(ctx, rep); err != nil {
			return fmt.Errorf("cycle %d: observer: %w", rep.State.Cycle, err)
		}
	}
	return nil
}

// due reports whether an analysis with cadence every runs at cycle.
func due(every, cycle int) bool { return every > 0 && cycle%every == 0 }
