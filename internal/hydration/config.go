package hydration

import (
	"strconv"

	"cemhyd/internal/reaction"
)

// CuringMode selects how water is supplied to the paste.
type CuringMode string

const (
	// CuringSaturated keeps the pore space saturated until capillary
	// porosity depercolates, then switches to self-desiccation.
	CuringSaturated CuringMode = "saturated"
	// CuringSealed self-desiccates from the first cycle.
	CuringSealed CuringMode = "sealed"
	// CuringImmersed never self-desiccates.
	CuringImmersed CuringMode = "immersed"
)

// TemperatureMode selects how the paste temperature evolves.
type TemperatureMode string

const (
	Isothermal TemperatureMode = "isothermal"
	Adiabatic  TemperatureMode = "adiabatic"
	Programmed TemperatureMode = "programmed"
)

// Thermal holds the temperature history and kinetic constants.
type Thermal struct {
	Mode    TemperatureMode `yaml:"mode"`
	Initial float64         `yaml:"initial"`
	Ambient float64         `yaml:"ambient"`
	// HeatTransfer is the overall heat transfer coefficient to ambient in
	// J/g/C/s; zero is fully adiabatic.
	HeatTransfer float64 `yaml:"heat_transfer"`
	// Activation energies in kJ/mol.
	Activation     float64 `yaml:"activation"`
	ActivationPozz float64 `yaml:"activation_pozz"`
	ActivationSlag float64 `yaml:"activation_slag"`
	// Beta converts cycles to hours at 25 C.
	Beta float64 `yaml:"beta"`
	// InductionTime in hours is added to the clock before the first cycle.
	InductionTime float64   `yaml:"induction_time"`
	Schedule      []Segment `yaml:"schedule"`
}

// Chemistry are the reaction switches fixed for a run.
type Chemistry struct {
	CSHToPozzCSH  bool    `yaml:"csh_to_pozz_csh"`
	CHOnAggregate bool    `yaml:"ch_on_aggregate"`
	PlateCSH      bool    `yaml:"plate_csh"`
	PHActive      bool    `yaml:"ph_active"`
	OnePixelBias  float64 `yaml:"one_pixel_bias"`
	MassAggregate float64 `yaml:"mass_aggregate"`
}

// PoreSolution selects the pH estimator.
type PoreSolution struct {
	// Mode is "alkali" or "fixed".
	Mode    string  `yaml:"mode"`
	PH      float64 `yaml:"ph"`
	Sulfate float64 `yaml:"sulfate"`
}

// Cadence sets how often the analyses run, in cycles. Zero disables one.
type Cadence struct {
	Burn     int `yaml:"burn"`
	Set      int `yaml:"set"`
	Particle int `yaml:"particle"`
}

// Config controls a hydration run.
type Config struct {
	Seed            int64      `yaml:"seed"`
	Cycles          int        `yaml:"cycles"`
	MaxSubsteps     int        `yaml:"max_substeps"`
	Curing          CuringMode `yaml:"curing"`
	ResaturateCycle int        `yaml:"resaturate_cycle"`

	Cadence      Cadence                   `yaml:"cadence"`
	Thermal      Thermal                   `yaml:"temperature"`
	Chemistry    Chemistry                 `yaml:"chemistry"`
	PoreSolution PoreSolution              `yaml:"ph"`
	Nucleation   reaction.NucleationParams `yaml:"nucleation"`
}

// DefaultConfig returns an isothermal saturated run at 25 C.
func DefaultConfig() Config {
	return Config{
		Seed:        -2794,
		Cycles:      1000,
		MaxSubsteps: 500,
		Curing:      CuringSaturated,
		Cadence:     Cadence{Burn: 100, Set: 100, Particle: 2000},
		Thermal: Thermal{
			Mode:           Isothermal,
			Initial:        25,
			Ambient:        25,
			Activation:     40,
			ActivationPozz: 83.14,
			ActivationSlag: 50,
			Beta:           0.00035,
		},
		Chemistry:    Chemistry{CSHToPozzCSH: true, OnePixelBias: 1},
		PoreSolution: PoreSolution{Mode: "alkali"},
		Nucleation:   reaction.DefaultNucleation(),
	}
}

// FromMap populates the config from a string map (flag-style key/value pairs).
func FromMap(cfg map[string]string) Config {
	c := DefaultConfig()
	if cfg == nil {
		return c
	}
	c.Apply(cfg)
	return c
}

// Apply overrides fields named in cfg. Unknown keys and unparsable values are
// ignored.
func (c *Config) Apply(cfg map[string]string) {
	ints := map[string]*int{
		"cycles":           &c.Cycles,
		"max_substeps":     &c.MaxSubsteps,
		"resaturate_cycle": &c.ResaturateCycle,
		"burn_freq":        &c.Cadence.Burn,
		"set_freq":         &c.Cadence.Set,
		"particle_freq":    &c.Cadence.Particle,
	}
	floats := map[string]*float64{
		"temp":            &c.Thermal.Initial,
		"ambient":         &c.Thermal.Ambient,
		"heat_transfer":   &c.Thermal.HeatTransfer,
		"e_act":           &c.Thermal.Activation,
		"e_act_pozz":      &c.Thermal.ActivationPozz,
		"e_act_slag":      &c.Thermal.ActivationSlag,
		"beta":            &c.Thermal.Beta,
		"induction_time":  &c.Thermal.InductionTime,
		"one_pixel_bias":  &c.Chemistry.OnePixelBias,
		"mass_aggregate":  &c.Chemistry.MassAggregate,
		"ph":              &c.PoreSolution.PH,
		"sulfate":         &c.PoreSolution.Sulfate,
		"ch_nuc_p0":       &c.Nucleation.CH.P0,
		"ch_nuc_scale":    &c.Nucleation.CH.Scale,
		"c3ah6_nuc_p0":    &c.Nucleation.C3AH6.P0,
		"c3ah6_nuc_scale": &c.Nucleation.C3AH6.Scale,
		"fh3_nuc_p0":      &c.Nucleation.FH3.P0,
		"fh3_nuc_scale":   &c.Nucleation.FH3.Scale,
		"gyp_nuc_p0":      &c.Nucleation.Gypsum.P0,
		"gyp_nuc_scale":   &c.Nucleation.Gypsum.Scale,
	}
	bools := map[string]*bool{
		"csh2pozz":        &c.Chemistry.CSHToPozzCSH,
		"ch_on_aggregate": &c.Chemistry.CHOnAggregate,
		"plate_csh":       &c.Chemistry.PlateCSH,
		"ph_active":       &c.Chemistry.PHActive,
	}
	for k, v := range cfg {
		if p, ok := ints[k]; ok {
			if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
				*p = parsed
			}
			continue
		}
		if p, ok := floats[k]; ok {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				*p = parsed
			}
			continue
		}
		if p, ok := bools[k]; ok {
			if parsed, err := strconv.ParseBool(v); err == nil {
				*p = parsed
			}
			continue
		}
		switch k {
		case "seed":
			if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
				c.Seed = parsed
			}
		case "curing":
			switch mode := CuringMode(v); mode {
			case CuringSaturated, CuringSealed, CuringImmersed:
				c.Curing = mode
			}
		case "temp_mode":
			switch mode := TemperatureMode(v); mode {
			case Isothermal, Adiabatic, Programmed:
				c.Thermal.Mode = mode
			}
		case "ph_mode":
			if v == "alkali" || v == "fixed" {
				c.PoreSolution.Mode = v
			}
		}
	}
}
