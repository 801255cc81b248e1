package hydration

import (
	"context"
	"image/color"
	"log/slog"
	"math"
	"strconv"

	"cemhyd/internal/core"
	"cemhyd/internal/logging"
	"cemhyd/internal/microstructure"
	"cemhyd/internal/phase"
	prng "cemhyd/pkg/core"
)

// Sim drives a model over a generated microstructure for the viewer and the
// sweep tool. Each Step runs one hydration cycle; Cells shows one z-slice.
type Sim struct {
	cfg   Config
	gen   microstructure.GenerateOptions
	log   *slog.Logger
	model *Model
	err   error
	slice int
	cells []uint8
}

// NewSim returns a sim that packs a fresh microstructure on every Reset.
func NewSim(cfg Config, gen microstructure.GenerateOptions, log *slog.Logger) *Sim {
	s := &Sim{cfg: cfg, gen: gen, log: logging.OrDiscard(log), slice: gen.N / 2}
	s.cells = make([]uint8, gen.N*gen.N)
	s.Reset(cfg.Seed)
	return s
}

// Name returns the simulation identifier.
func (s *Sim) Name() string { return "cemhyd" }

// Size reports the slice dimensions.
func (s *Sim) Size() core.Size { return core.Size{W: s.gen.N, H: s.gen.N} }

// Model exposes the running model; nil when Reset failed.
func (s *Sim) Model() *Model { return s.model }

// Err returns the error that stopped the run, if any.
func (s *Sim) Err() error { return s.err }

// Reset packs a new microstructure with seed and restarts the run.
func (s *Sim) Reset(seed int64) {
	s.err = nil
	cfg := s.cfg
	cfg.Seed = seed
	store, err := microstructure.Generate(s.gen, prng.NewRNG(seed))
	if err == nil {
		s.model, err = New(store, nil, cfg, s.log)
	}
	if err != nil {
		s.model, s.err = nil, err
		s.log.Error("reset failed", "err", err)
	}
}

// Step runs one cycle, or the final measurement after the last one. A run
// stopped by an error stays stopped until Reset.
func (s *Sim) Step() {
	m := s.model
	if m == nil || s.err != nil || m.Done() {
		return
	}
	ctx := context.Background()
	if m.State().Cycle < m.Config().Cycles {
		_, s.err = m.Step(ctx)
	} else {
		_, s.err = m.Finish(ctx)
	}
	if s.err != nil {
		s.log.Error("run stopped", "cycle", m.State().Cycle, "err", s.err)
	}
}

// Cells returns the display ids of the current z-slice.
func (s *Sim) Cells() []uint8 {
	if s.model != nil {
		s.model.Store().Slice(s.slice, s.cells)
	}
	return s.cells
}

// Slice returns the z depth shown by Cells.
func (s *Sim) Slice() int { return s.slice }

// SetIntParameter moves the displayed slice.
func (s *Sim) SetIntParameter(key string, value int) bool {
	if key != "slice" || value < 0 || value >= s.gen.N {
		return false
	}
	s.slice = value
	return true
}

// ParameterControls exposes the slice selector to the HUD.
func (s *Sim) ParameterControls() []core.ParameterControl {
	return []core.ParameterControl{{
		Key: "slice", Label: "Slice", Type: core.ParamTypeInt,
		Step: 1, Min: 0, Max: float64(s.gen.N - 1), HasMin: true, HasMax: true,
	}}
}

// Parameters reports the configuration and the live cycle state.
func (s *Sim) Parameters() core.ParameterSnapshot {
	cfg := s.cfg
	groups := []core.ParameterGroup{
		{
			Name: "Run",
			Params: []core.Parameter{
				core.IntParam("size", "Size", s.gen.N),
				core.Int64Param("seed", "Seed", cfg.Seed),
				core.IntParam("cycles", "Cycles", cfg.Cycles),
				core.IntParam("max_substeps", "Max substeps", cfg.MaxSubsteps),
				{Key: "curing", Label: "Curing", Type: "string", Value: string(cfg.Curing)},
			},
		},
		{
			Name: "Temperature",
			Params: []core.Parameter{
				{Key: "temp_mode", Label: "Mode", Type: "string", Value: string(cfg.Thermal.Mode)},
				core.FloatParam("temp", "Initial (C)", cfg.Thermal.Initial),
				core.FloatParam("e_act", "Activation (kJ/mol)", cfg.Thermal.Activation),
				core.FloatParam("beta", "Beta (h/cycle)", cfg.Thermal.Beta),
			},
		},
		{
			Name: "Chemistry",
			Params: []core.Parameter{
				core.BoolParam("csh2pozz", "C-S-H to pozzolanic C-S-H", cfg.Chemistry.CSHToPozzCSH),
				core.BoolParam("ch_on_aggregate", "CH on aggregate", cfg.Chemistry.CHOnAggregate),
				core.BoolParam("plate_csh", "Plate C-S-H", cfg.Chemistry.PlateCSH),
				core.BoolParam("ph_active", "pH active", cfg.Chemistry.PHActive),
			},
		},
	}
	if m := s.model; m != nil {
		st := m.State()
		groups = append(groups, core.ParameterGroup{
			Name: "State",
			Params: []core.Parameter{
				core.IntParam("cycle", "Cycle", st.Cycle),
				core.FloatParam("time_h", "Time (h)", round(st.Time)),
				core.FloatParam("temp_c", "Temperature (C)", round(st.Temperature)),
				core.FloatParam("alpha", "Alpha", round(st.AlphaMass)),
				core.FloatParam("ph", "pH", round(st.PH)),
				core.BoolParam("set", "Set", st.Set),
				{Key: "regime", Label: "Regime", Type: "string", Value: st.Curing.String()},
			},
		})
	}
	return core.ParameterSnapshot{Groups: groups}
}

func round(v float64) float64 { return math.Round(v*1000) / 1000 }

// Palette maps display ids to colors.
func (s *Sim) Palette() []color.RGBA { return palette }

var palette = buildPalette()

func buildPalette() []color.RGBA {
	p := make([]color.RGBA, phase.Count)
	for i := range p {
		p[i] = color.RGBA{R: 255, G: 0, B: 255, A: 255}
	}
	set := func(ph phase.Phase, r, g, b uint8) { p[ph] = color.RGBA{R: r, G: g, B: b, A: 255} }
	set(phase.Porosity, 0, 0, 0)
	set(phase.EmptyPore, 40, 40, 60)
	set(phase.C3S, 165, 42, 42)
	set(phase.C2S, 0, 170, 170)
	set(phase.C3A, 190, 190, 190)
	set(phase.C4AF, 255, 255, 255)
	set(phase.Gypsum, 255, 255, 0)
	set(phase.Hemihydrate, 240, 240, 120)
	set(phase.Anhydrite, 220, 220, 60)
	set(phase.Pozzolan, 0, 200, 0)
	set(phase.Inert, 80, 80, 80)
	set(phase.InertAgg, 110, 110, 110)
	set(phase.Slag, 0, 100, 0)
	set(phase.ASG, 120, 200, 120)
	set(phase.CAS2, 60, 160, 60)
	set(phase.CaCl2, 160, 160, 255)
	set(phase.CaCO3, 230, 230, 210)
	set(phase.CH, 0, 0, 200)
	set(phase.CSH, 210, 180, 140)
	set(phase.PozzCSH, 200, 160, 110)
	set(phase.SlagCSH, 180, 140, 90)
	set(phase.C3AH6, 255, 160, 0)
	set(phase.Ettringite, 200, 120, 255)
	set(phase.AFm, 255, 80, 80)
	set(phase.AFmC, 255, 120, 140)
	set(phase.FH3, 128, 0, 0)
	set(phase.Friedel, 120, 120, 255)
	set(phase.Stratlingite, 90, 200, 200)
	for _, m := range phase.All {
		if m.IsMobile() {
			set(m, 255, 140, 200)
		}
	}
	return p
}

func init() {
	core.Register("cemhyd", func(cfg map[string]string) core.Sim {
		gen := microstructure.DefaultGenerateOptions(50)
		if v, ok := cfg["size"]; ok {
			if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
				gen.N = parsed
			}
		}
		if v, ok := cfg["solid_fraction"]; ok {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed > 0 && parsed < 1 {
				gen.SolidFraction = parsed
			}
		}
		return NewSim(FromMap(cfg), gen, nil)
	})
}
