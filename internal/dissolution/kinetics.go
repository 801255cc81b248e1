package dissolution

import (
	"math"

	"cemhyd/internal/phase"
)

// Calibration constants. Count thresholds are given for a 100^3 system and
// scaled to the actual volume.
const (
	referenceVolume = 1e6

	disminC3S  = 0.001
	disminC2S  = 0.00025
	disminSlag = 0.0001
	disminASG  = 0.0005
	disminCAS2 = 0.0005
	disminC3A  = 0.002
	disminC4AF = 0.0005

	maxDiffEttr  = 1200
	maxDiffGyp   = 2000
	maxDiffCaCO3 = 1000
	maxDiffCaCl2 = 2000
	maxDiffCAS2  = 2000

	chCrit    = 50.0
	c3ah6Crit = 10.0

	// CH solubility versus temperature, linear fit referenced to 25 C.
	chSolA0 = 1.325
	chSolA1 = 0.008162

	cshScale = 70000.0

	// volume fractions of cement at w/c 0.4 and 0.5
	cementFracW04 = 0.438596
	cementFracW05 = 0.384615
	poreFracW05   = 0.615385
)

func (e *Engine) scaled(v float64) float64 {
	return v * float64(e.store.Volume()) / referenceVolume
}

func (e *Engine) over(p phase.Phase, limit float64) bool {
	return float64(e.store.Count(p)) > e.scaled(limit)
}

// sulfateConc is the diffusing sulfate count per unit cement and porosity,
// expressed for the reference volume.
func (e *Engine) sulfateConc() float64 {
	vol := float64(e.store.Volume())
	pfract := float64(e.store.Count(phase.Porosity)) / vol
	if e.mix.CementFraction <= 0 || pfract <= 0 {
		return 0
	}
	s := float64(e.sulfate) * referenceVolume / vol
	return s * cementFracW05 * poreFracW05 / e.mix.CementFraction / pfract
}

func (e *Engine) initialSulfate() float64 {
	i := &e.init
	return float64(i[phase.Gypsum]+i[phase.GypsumS]) + 1.42*float64(i[phase.Anhydrite]) + 1.4*float64(i[phase.Hemihydrate])
}

func (e *Engine) sulfateSources() int {
	i := &e.init
	return i[phase.Gypsum] + i[phase.GypsumS] + i[phase.Anhydrite] + i[phase.Hemihydrate]
}

// updateProbabilities sets solubility flags and the current dissolution
// probability of every phase for this cycle and returns the pH factor.
func (e *Engine) updateProbabilities(env Env, st *Stats) float64 {
	reg := e.reg
	c := e.store.Counts()
	base := reg.Base
	t := env.Temperature
	krate := env.KRate
	if krate <= 0 {
		krate = 1
	}
	pozzRatio := env.KPozz / krate
	slagRatio := env.KSlag / krate

	e.updateEttringite(t)

	for _, cp := range []struct {
		p     phase.Phase
		diff  phase.Phase
		limit float64
	}{
		{phase.Ettringite, phase.DiffEttringite, maxDiffEttr},
		{phase.CaCl2, phase.DiffCaCl2, maxDiffCaCl2},
	} {
		if e.over(cp.diff, cp.limit) {
			reg.SetCurrent(cp.p, 0)
		} else {
			reg.SetCurrent(cp.p, base(cp.p))
		}
	}
	switch {
	case e.over(phase.DiffCaCO3, maxDiffCaCO3) && !reg.Soluble(phase.Ettringite):
		reg.SetCurrent(phase.CaCO3, 0)
	case e.over(phase.DiffCaCO3, 4*maxDiffCaCO3):
		reg.SetCurrent(phase.CaCO3, 0)
	default:
		reg.SetCurrent(phase.CaCO3, base(phase.CaCO3))
	}

	// CH stays soluble for Ostwald ripening, slowed by diffusing CH
	ch := base(phase.CH)
	if crit := e.scaled(chCrit); float64(c[phase.DiffCH]) >= crit {
		ch = base(phase.CH) * crit / float64(c[phase.DiffCH])
	}
	ch *= (chSolA0 - chSolA1*t) / (chSolA0 - chSolA1*25)
	if env.PPozz > 0 && e.init[phase.Pozzolan] > 0 {
		ch *= env.PPozz / phase.PozzolanicBase
	}
	reg.SetCurrent(phase.CH, ch)

	e.updateHydrogarnet()

	if !reg.Soluble(phase.C3S) && (env.Cycle > 1 || c[phase.Ettringite] > 0 || c[phase.AFm] > 0 || c[phase.EttringiteC4AF] > 0) {
		reg.SetSoluble(phase.C3S, true)
		reg.SetSoluble(phase.C2S, true)
		e.log.Info("silicates soluble", "cycle", env.Cycle)
	}

	tdis := chSolA0 - t*chSolA1
	csAcc, caAcc := 1.0, 1.0
	if e.sulfateSources() == 0 {
		e.dismin = [2]float64{5 * disminC3A, 5 * disminC4AF}
	} else {
		sc := e.sulfateConc()
		e.dismin = [2]float64{disminC3A, disminC4AF}
		switch {
		case sc < 10:
		case sc < 20:
			csAcc = 1 + (sc-10)/10
		default:
			csAcc = 1 + math.Log10(sc-10)
			f := 6 - math.Log10(sc)
			e.dismin = [2]float64{math.Max(f*disminC3A, disminC3A), math.Max(f*disminC4AF, disminC4AF)}
		}
	}

	// induction: an impermeable C-S-H layer limits dissolution until
	// enough C-S-H has formed per unit cement surface
	layer := 0.0
	if denom := e.scaled(cshScale) * e.mix.SurfaceFraction * e.mix.CementFraction / cementFracW04; denom > 0 {
		r := float64(c[phase.CSH]) / denom
		layer = tdis * r * r
	}
	dfact := layer * csAcc

	capped := func(v, limit float64) float64 { return math.Min(v, limit) }
	c3s := capped(disminC3S+dfact*base(phase.C3S), base(phase.C3S))
	reg.SetCurrent(phase.C3S, c3s)
	reg.SetCurrent(phase.C2S, capped(disminC2S+dfact*base(phase.C2S), base(phase.C2S)))
	induced := c3s == base(phase.C3S)

	slagCap := reg.Slag().Reactivity * base(phase.Slag) * slagRatio
	slag := reg.Slag().Reactivity * slagRatio * (disminSlag + dfact*base(phase.Slag)) / 10
	if slag > slagCap || induced {
		slag = slagCap
	}
	reg.SetCurrent(phase.Slag, slag)

	for _, fa := range []struct {
		p   phase.Phase
		min float64
	}{{phase.ASG, disminASG}, {phase.CAS2, disminCAS2}} {
		v := (fa.min + dfact*base(fa.p)/5) * pozzRatio
		if v > base(fa.p) || induced {
			v = base(fa.p) * pozzRatio
		}
		reg.SetCurrent(fa.p, v)
	}
	if e.over(phase.DiffCAS2, maxDiffCAS2) {
		reg.SetCurrent(phase.CAS2, 0)
	}

	if float64(e.sulfateSources()) > e.scaled(1000) {
		dfact1 := layer * caAcc
		reg.SetCurrent(phase.C3A, capped(e.dismin[0]+dfact1*base(phase.C3A), base(phase.C3A)))
		reg.SetCurrent(phase.C4AF, capped(e.dismin[1]+dfact1*base(phase.C4AF), base(phase.C4AF)))
		for _, p := range []phase.Phase{phase.Gypsum, phase.GypsumS, phase.Hemihydrate, phase.Anhydrite} {
			reg.SetCurrent(p, capped(base(p)/15+dfact1*base(p), base(p)))
		}
		if e.over(phase.DiffGypsum, maxDiffGyp) {
			reg.SetCurrent(phase.Gypsum, 0)
			reg.SetCurrent(phase.GypsumS, 0)
		}
	} else {
		// flash set without enough sulfate
		reg.SetCurrent(phase.C3A, 4*base(phase.C3A))
		reg.SetCurrent(phase.C4AF, 4*base(phase.C4AF))
		for _, p := range []phase.Phase{phase.Gypsum, phase.Hemihydrate, phase.Anhydrite} {
			reg.SetCurrent(p, base(p))
		}
	}

	ppozz := env.PPozz
	if c[phase.EmptyPore] > 0 && float64(c[phase.Porosity]+c[phase.EmptyPore]) < e.scaled(220000) {
		if e.countPore == 0 {
			e.countPore = c[phase.EmptyPore]
		}
		denom := float64(c[phase.Porosity] + c[phase.EmptyPore] - e.countPore)
		if denom > 0 {
			e.saturation = float64(c[phase.Porosity]) / denom
		}
		sat := e.saturation
		// relative humidity sensitivity exponents
		for _, p := range []phase.Phase{phase.C3S, phase.Slag, phase.CH, phase.ASG, phase.CAS2} {
			reg.Scale(p, math.Pow(sat, 19))
		}
		ppozz *= math.Pow(sat, 19)
		reg.Scale(phase.C2S, math.Pow(sat, 29))
		reg.Scale(phase.C3A, math.Pow(sat, 6))
		reg.Scale(phase.C4AF, math.Pow(sat, 6))
	}
	st.Saturation = e.saturation
	st.PPozz = ppozz

	pHFactor := 0.0
	if e.opts.PHActive {
		sf, cf := e.mix.SurfaceFraction, e.mix.CementFraction/cementFracW04
		if float64(c[phase.CSH]) > e.scaled(cshScale)*sf*sf*cf*cf/8 {
			pHFactor = phFactor(env.PH) + env.SulfateFeedback
		}
	}
	st.PHFactor = pHFactor
	return pHFactor
}

// phFactor returns the suppression exponent for a pore solution pH.
func phFactor(ph float64) float64 {
	switch {
	case ph > 13.75:
		return -0.25
	case ph > 13.25:
		return 0
	case ph > 13.00:
		return 0.333
	case ph > 12.75:
		return 0.667
	case ph > 12.5:
		return 1.0
	default:
		return 1.5
	}
}

// updateEttringite makes ettringite soluble once most sulfate is consumed,
// AFm has formed, or the temperature reaches 70 C.
func (e *Engine) updateEttringite(t float64) {
	reg := e.reg
	if reg.Soluble(phase.Ettringite) {
		return
	}
	sources := e.sulfateSources()
	if sources == 0 && t < 70 {
		return
	}
	c := e.store.Counts()
	ready := t >= 70 || c[phase.AFm] != 0
	if !ready {
		left := float64(c[phase.Gypsum]) + 1.42*float64(c[phase.Anhydrite]) + 1.4*float64(c[phase.Hemihydrate]) + float64(c[phase.GypsumS])
		init := e.initialSulfate() + float64(e.init[phase.Ettringite]+e.init[phase.EttringiteC4AF])/3.30
		ready = init > 0 && left/init < 0.25
	}
	if ready {
		reg.SetSoluble(phase.Ettringite, true)
		e.log.Info("ettringite soluble", "temperature", t)
	}
}

// updateHydrogarnet lets C3AH6 dissolve when plenty of sulfate is available,
// at a rate proportional to the sulfate that could take up its aluminate.
func (e *Engine) updateHydrogarnet() {
	reg := e.reg
	c := e.store.Counts()
	gyp := c[phase.Gypsum] + c[phase.GypsumS]
	if gyp <= int(e.initialSulfate()*0.05) && !e.over(phase.Ettringite, 500) {
		reg.SetSoluble(phase.C3AH6, false)
		return
	}
	reg.SetSoluble(phase.C3AH6, true)
	maxSulfate := c[phase.DiffGypsum]
	if maxSulfate < c[phase.DiffEttringite] && reg.Soluble(phase.Ettringite) {
		maxSulfate = c[phase.DiffEttringite]
	}
	vol := float64(e.store.Volume())
	if ready := int(float64(gyp) * reg.Current(phase.Gypsum) * float64(c[phase.Porosity]) / vol); maxSulfate < ready {
		maxSulfate = ready
	}
	base := reg.Base(phase.C3AH6)
	if maxSulfate > 0 {
		reg.SetCurrent(phase.C3AH6, math.Min(base*float64(maxSulfate)/e.scaled(c3ah6Crit), 0.5))
	} else {
		reg.SetCurrent(phase.C3AH6, base)
	}
}

// afterPass resets the calcium sulfate probabilities from the diffusing
// sulfate level left by this pass.
func (e *Engine) afterPass() {
	c := e.store.Counts()
	e.sulfate = c[phase.DiffGypsum] + c[phase.DiffAnhydrite] + c[phase.DiffHemihydrate]
	reg := e.reg
	if float64(e.sulfate) > e.scaled(maxDiffGyp) {
		reg.SetCurrent(phase.Gypsum, 0)
		reg.SetCurrent(phase.GypsumS, 0)
		return
	}
	for _, p := range []phase.Phase{phase.Gypsum, phase.Anhydrite, phase.Hemihydrate, phase.GypsumS} {
		reg.SetCurrent(p, reg.Base(p))
	}
}
