package phase

// Bias scales every clinker base dissolution probability.
const Bias = 30.0

// PozzolanicBase is the probability of the pozzolanic reaction between
// diffusing CH and pozzolan at the reference temperature.
const PozzolanicBase = 0.05

// GypsumAbsorption is the ratio of absorbed gypsum to C-S-H voxels above
// which C-S-H no longer takes up sulfate.
const GypsumAbsorption = 0.01

// Properties holds the static parameters of one phase.
type Properties struct {
	// MolarVolume in cm^3/mol.
	MolarVolume float64
	// SpecificGravity in g/cm^3.
	SpecificGravity float64
	// HeatOfFormation in kJ/mol.
	HeatOfFormation float64
	// Water is the moles of water bound per mole of phase.
	Water float64
	// BaseDissolution is the per-cycle dissolution probability before any
	// kinetic adjustment.
	BaseDissolution float64
	// Soluble is the initial solubility flag.
	Soluble bool
	// Product is the species a dissolution event places at the pore
	// neighbor; Porosity means the event frees the voxel only.
	Product Phase
	// PHWeight scales the pH suppression of the dissolution probability.
	PHWeight float64
}

// HasProduct reports whether dissolving the phase spawns a species.
func (p Properties) HasProduct() bool { return p.Product != Porosity }

// DefaultProperties returns the parameter table for ordinary portland cement
// systems at 25 C.
func DefaultProperties() [Count]Properties {
	var t [Count]Properties
	set := func(p Phase, mv, sg, heat, water float64) {
		t[p].MolarVolume = mv
		t[p].SpecificGravity = sg
		t[p].HeatOfFormation = heat
		t[p].Water = water
	}
	set(Porosity, 18.068, 0.99707, -285.83, 1)
	set(EmptyPore, 18.068, 0.99707, -285.83, 0)
	set(C3S, 71.129, 3.21, -2927.82, 0)
	set(C2S, 52.513, 3.28, -2311.6, 0)
	set(C3A, 88.94, 3.038, -3587.8, 0)
	set(C4AF, 130.29, 3.73, -5090.3, 0)
	for _, g := range []Phase{Gypsum, GypsumS, AbsGypsum} {
		set(g, 74.21, 2.32, -2022.6, 0)
	}
	set(Anhydrite, 52.16, 2.61, -1424.6, 0)
	set(Hemihydrate, 52.973, 2.74, -1574.65, 0)
	set(CSH, 108, 2.11, -3283, 4)
	set(CH, 33.1, 2.24, -986.1, 1)
	set(CaCO3, 36.93, 2.71, -1206.92, 0)
	set(AFmC, 261.91, 2.17, 0, 11)
	set(C3AH6, 150.12, 2.52, -5548, 6)
	set(FH3, 69.803, 3.062, -823.9, 3)
	set(Ettringite, 735.01, 1.7076, -17539, 26)
	set(EttringiteC4AF, 735.01, 1.7076, -17539, 26)
	set(AFm, 312.82, 1.99, -8778, 10)
	set(CaCl2, 51.62, 2.15, -795.8, 0)
	set(Friedel, 296.662, 1.892, 0, 10)
	set(ASG, 49.9, 3.247, 0, 0)
	set(CAS2, 100.62, 2.77, 0, 0)
	set(Stratlingite, 215.63, 1.94, 0, 8)
	set(Pozzolan, 27, 2.22, -907.5, 0)
	set(PozzCSH, 101.81, 1.884, -2299.1, 3.9)
	set(Inert, 27, 2.2, 0, 0)
	set(InertAgg, 27, 2.2, 0, 0)

	kin := func(p Phase, base float64, soluble bool, product Phase, ph float64) {
		t[p].BaseDissolution = base
		t[p].Soluble = soluble
		t[p].Product = product
		t[p].PHWeight = ph
	}
	const gyp = 0.025
	kin(C4AF, 0.067/Bias, true, Porosity, 1)
	kin(C3S, 0.7/Bias, false, DiffCSH, 1)
	kin(C2S, 0.1/Bias, false, DiffCSH, 1)
	kin(C3A, 0.4/Bias, true, Porosity, 1)
	kin(Gypsum, gyp, true, Porosity, 0)
	kin(GypsumS, gyp, true, Porosity, 0)
	kin(Anhydrite, 0.8*gyp, true, Porosity, 0)
	kin(Hemihydrate, 1.5*gyp, true, Porosity, 0)
	kin(CH, 0.5/Bias, true, DiffCH, 0)
	kin(CaCO3, 0.1/Bias, true, DiffCaCO3, 0)
	kin(Slag, 0.005/Bias, false, Porosity, 1)
	kin(C3AH6, 0.01/Bias, true, Porosity, 0)
	kin(Ettringite, 0.008/Bias, false, DiffEttringite, 0)
	kin(EttringiteC4AF, 0, false, Porosity, 0)
	kin(CaCl2, 0.1/Bias, true, DiffCaCl2, 0)
	kin(ASG, 0.2/Bias, true, DiffAS, 1)
	kin(CAS2, 0.2/Bias, true, DiffCAS2, 1)
	return t
}
