package phase

import "math"

// Registry owns the phase parameter table together with the per-cycle
// derived state: current dissolution probabilities, solubility flags and the
// temperature-dependent C-S-H molar volume history.
type Registry struct {
	props   [Count]Properties
	current [Count]float64
	soluble [Count]bool
	pinned  [Count]bool

	cshVolume []float64
	cshWater  []float64

	slag   SlagProperties
	derive SlagReaction
	alkali AlkaliProperties
}

// NewRegistry builds a registry from the default table, the default slag
// characteristics and the default alkali content.
func NewRegistry() *Registry {
	r := &Registry{props: DefaultProperties()}
	for _, p := range All {
		r.current[p] = r.props[p].BaseDissolution
		r.soluble[p] = r.props[p].Soluble
	}
	r.cshVolume = []float64{r.props[CSH].MolarVolume}
	r.cshWater = []float64{r.props[CSH].Water}
	r.SetSlag(DefaultSlag())
	r.alkali = DefaultAlkali()
	return r
}

// Props returns the static parameters of p.
func (r *Registry) Props(p Phase) Properties { return r.props[p] }

// MolarVolume is a shorthand for Props(p).MolarVolume.
func (r *Registry) MolarVolume(p Phase) float64 { return r.props[p].MolarVolume }

// SpecificGravity is a shorthand for Props(p).SpecificGravity.
func (r *Registry) SpecificGravity(p Phase) float64 { return r.props[p].SpecificGravity }

// Base returns the base dissolution probability of p.
func (r *Registry) Base(p Phase) float64 { return r.props[p].BaseDissolution }

// Current returns the dissolution probability in effect for this cycle.
func (r *Registry) Current(p Phase) float64 { return r.current[p] }

// SetCurrent updates the current dissolution probability. Pinned phases keep
// their pinned value.
func (r *Registry) SetCurrent(p Phase, v float64) {
	if r.pinned[p] {
		return
	}
	r.current[p] = v
}

// Scale multiplies the current probability of p by f.
func (r *Registry) Scale(p Phase, f float64) { r.SetCurrent(p, r.current[p]*f) }

// Pin fixes the current dissolution probability of p regardless of the
// kinetic model, and marks it soluble.
func (r *Registry) Pin(p Phase, v float64) {
	r.current[p] = v
	r.pinned[p] = true
	r.soluble[p] = true
}

// Pinned reports whether p has a fixed probability.
func (r *Registry) Pinned(p Phase) bool { return r.pinned[p] }

// Soluble reports whether p may dissolve this cycle.
func (r *Registry) Soluble(p Phase) bool { return r.soluble[p] }

// SetSoluble toggles solubility. Pinned phases stay soluble.
func (r *Registry) SetSoluble(p Phase, v bool) {
	if r.pinned[p] {
		return
	}
	r.soluble[p] = v
}

// SetCSHCycle records the C-S-H molar volume and bound water for products
// formed during cycle at temperature tempC. Above 80 C the values are held at
// their 80 C limits.
func (r *Registry) SetCSHCycle(cycle int, tempC float64) {
	t := math.Min(tempC, 80)
	mv := 108 - 8*(t-20)/60
	w := 4.0 - 1.3*(t-20)/60
	for len(r.cshVolume) <= cycle {
		r.cshVolume = append(r.cshVolume, mv)
		r.cshWater = append(r.cshWater, w)
	}
	r.cshVolume[cycle] = mv
	r.cshWater[cycle] = w
}

// CSHMolarVolume returns the molar volume of C-S-H formed during cycle.
func (r *Registry) CSHMolarVolume(cycle int) float64 {
	if cycle < 0 || cycle >= len(r.cshVolume) {
		return r.cshVolume[len(r.cshVolume)-1]
	}
	return r.cshVolume[cycle]
}

// CSHWater returns the bound water per mole of C-S-H formed during cycle.
func (r *Registry) CSHWater(cycle int) float64 {
	if cycle < 0 || cycle >= len(r.cshWater) {
		return r.cshWater[len(r.cshWater)-1]
	}
	return r.cshWater[cycle]
}

// Slag returns the slag characteristics in effect.
func (r *Registry) Slag() SlagProperties { return r.slag }

// SlagReaction returns the probabilities derived from the slag properties.
func (r *Registry) SlagReaction() SlagReaction { return r.derive }

// SetSlag installs slag characteristics and re-derives the slag reaction
// probabilities.
func (r *Registry) SetSlag(s SlagProperties) {
	r.slag = s
	r.props[Slag].SpecificGravity = s.SpecificGravity
	r.props[SlagCSH].SpecificGravity = s.CSHSpecificGravity
	r.props[Slag].MolarVolume = s.MolarVolume
	r.props[SlagCSH].MolarVolume = s.CSHMolarVolume
	r.props[SlagCSH].Water = s.HydrateHS * s.SiPerSlag
	r.derive = s.derive(r)
}

// Alkali returns the alkali characteristics in effect.
func (r *Registry) Alkali() AlkaliProperties { return r.alkali }

// SetAlkali installs alkali characteristics.
func (r *Registry) SetAlkali(a AlkaliProperties) { r.alkali = a }
