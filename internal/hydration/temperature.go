package hydration

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"cemhyd/internal/dissolution"
)

// Segment is one leg of a programmed temperature history: the temperature
// moves linearly from From to To while the clock runs from Start to End
// hours.
type Segment struct {
	Start float64 `yaml:"start"`
	End   float64 `yaml:"end"`
	From  float64 `yaml:"from"`
	To    float64 `yaml:"to"`
}

// ReadSchedule parses a temperature history with one "start end from to"
// segment per line. Blank lines and lines starting with # are skipped.
func ReadSchedule(r io.Reader) ([]Segment, error) {
	var out []Segment
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 4 {
			return nil, fmt.Errorf("temperature history line %d: want 4 numbers, got %d", line, len(fields))
		}
		var v [4]float64
		for k, f := range fields {
			x, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("temperature history line %d: %w", line, err)
			}
			v[k] = x
		}
		out = append(out, Segment{Start: v[0], End: v[1], From: v[2], To: v[3]})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// scheduled returns the programmed temperature at time t, advancing *cur
// past segments that end before t. The last segment holds once the clock
// passes its end.
func scheduled(segs []Segment, cur *int, t float64) (float64, bool) {
	if len(segs) == 0 {
		return 0, false
	}
	for *cur < len(segs)-1 && t > segs[*cur].End {
		*cur++
	}
	s := segs[*cur]
	if t >= s.End {
		return s.To, true
	}
	if s.End-s.Start > 0 {
		return s.From + (s.To-s.From)*(t-s.Start)/(s.End-s.Start), true
	}
	return s.From, true
}

// arrhenius returns the rate at tempC relative to 25 C for an activation
// energy in kJ/mol.
func arrhenius(activation, tempC float64) float64 {
	return math.Exp(-(1000 * activation / 8.314) * (1/(tempC+273.15) - 1/298.15))
}

const (
	// specific heats in J/g/C
	cpCement    = 0.75
	cpPozz      = 0.75
	cpAggregate = 0.84
	cpCH        = 0.75
	cpWater     = 4.18
	cpBound     = 2.2

	// boundWater is the water bound per gram of cement at full hydration;
	// imbibedWater the water drawn in per gram by chemical shrinkage.
	boundWater   = 0.23
	imbibedWater = 0.06
)

// heatCapacity returns the mixture heat capacity and the effective cement
// mass fraction, accounting for water imbibed under saturated curing.
func heatCapacity(mix dissolution.Mix, alpha float64, sealed bool) (cp, cement float64) {
	cement = 1 - mix.MassAggregate - mix.MassFill - mix.MassWater - mix.MassCH
	mass := 1.0
	if !sealed {
		mass = 1 + imbibedWater*cement*alpha
	}
	cp = mix.MassAggregate*cpAggregate + cpPozz*mix.MassFill + cpCement*cement + cpCH*mix.MassCH
	cp /= mass
	cp += cpWater*mix.MassWater - alpha*boundWater*cement*(cpWater-cpBound)
	if !sealed {
		cp += imbibedWater * cpWater * alpha * cement
	}
	return cp, cement / mass
}

// updateTemperature advances the temperature after a cycle released heat
// (in solid-mass units) and refreshes the rate constants.
func (m *Model) updateTemperature(heat, prevHeat, alphaMass float64) {
	st := &m.state
	th := m.cfg.Thermal
	switch th.Mode {
	case Adiabatic:
		mix := m.diss.Mix()
		cp, cement := heatCapacity(mix, alphaMass, st.Curing == SelfDesiccating)
		st.HeatCapacity = cp
		if cp > 0 {
			mass := cement
			if cement <= 0.01 {
				mass = mix.MassFillPozz
			}
			st.Temperature += mass * mix.HeatConversion * (heat - prevHeat) / cp
			st.Temperature -= (st.Temperature - th.Ambient) * st.TimeStep * th.HeatTransfer / cp
		}
	case Programmed:
		if t, ok := scheduled(th.Schedule, &m.segment, st.Time); ok {
			st.Temperature = t
		}
	}
	m.rates()
}

func (m *Model) rates() {
	st := &m.state
	th := m.cfg.Thermal
	st.KRate = arrhenius(th.Activation, st.Temperature)
	st.KPozz = arrhenius(th.ActivationPozz, st.Temperature)
	st.KSlag = arrhenius(th.ActivationSlag, st.Temperature)
}

// advanceClock integrates maturity time for parabolic kinetics.
func (m *Model) advanceClock(cycle int) {
	st := &m.state
	if cycle > 1 {
		st.TimeStep = (2*float64(cycle-1) - 1) * m.cfg.Thermal.Beta / st.KRate
		st.Time += st.TimeStep
	}
}
