package dissolution

import (
	"cemhyd/internal/core"
	"cemhyd/internal/microstructure"
	"cemhyd/internal/phase"
)

// Mix holds the mixture proportions of the starting microstructure.
type Mix struct {
	CementMass           float64
	CementMassWithGypsum float64
	FlyAshMass           float64
	WaterCement          float64
	SolidCement          float64
	// CementFraction is the volume fraction of cement including calcium
	// sulfates; FilledFraction adds fillers and mineral admixtures.
	CementFraction float64
	FilledFraction float64
	// HeatConversion converts heat per unit solid mass to kJ per kg.
	HeatConversion float64
	// Mass fractions of the concrete components.
	MassWater, MassCH, MassFill, MassFillPozz, MassAggregate float64
	// SurfaceFraction is the share of solid surface in contact with pore
	// that belongs to cement.
	SurfaceFraction float64
}

var fillers = []phase.Phase{
	phase.Inert, phase.CaCl2, phase.ASG, phase.CAS2, phase.CaCO3, phase.Slag, phase.Pozzolan,
}

func measureMix(s *microstructure.Store, reg *phase.Registry, massAgg float64) Mix {
	c := s.Counts()
	sg := reg.SpecificGravity
	mass := func(ps ...phase.Phase) float64 {
		m := 0.0
		for _, p := range ps {
			m += sg(p) * float64(c[p])
		}
		return m
	}
	m := Mix{MassAggregate: massAgg}
	m.CementMass = mass(phase.C3S, phase.C2S, phase.C3A, phase.C4AF)
	sulfates := mass(phase.Gypsum, phase.Anhydrite, phase.Hemihydrate)
	m.CementMassWithGypsum = m.CementMass + sulfates
	m.FlyAshMass = mass(phase.ASG, phase.CAS2, phase.Pozzolan)
	chMass := mass(phase.CH)
	total := m.CementMass + float64(c[phase.Porosity]) +
		mass(phase.Inert, phase.CaCl2, phase.ASG, phase.Slag, phase.Hemihydrate,
			phase.Anhydrite, phase.CAS2, phase.CaCO3, phase.CSH, phase.Gypsum,
			phase.GypsumS, phase.Pozzolan) + chMass

	if m.CementMass != 0 {
		m.WaterCement = float64(c[phase.Porosity]) / (m.CementMass + sulfates)
		m.SolidCement = mass(fillers...) / m.CementMass
	}
	vol := float64(s.Volume())
	cement := c.Sum(phase.C3S, phase.C2S, phase.C3A, phase.C4AF, phase.Gypsum, phase.Anhydrite, phase.Hemihydrate)
	m.CementFraction = float64(cement) / vol
	m.FilledFraction = float64(cement+c.Sum(fillers...)) / vol

	if total > 0 {
		m.MassWater = (1 - massAgg) * float64(c[phase.Porosity]) / total
		m.MassCH = (1 - massAgg) * chMass / total
		m.MassFillPozz = (1 - massAgg) * mass(phase.Pozzolan) / total
		m.MassFill = (1 - massAgg) * mass(fillers...) / total
	}

	heatFill := 0.0
	if m.CementMass != 0 && m.CementMassWithGypsum != 0 {
		heatFill = float64(c.Sum(phase.Inert, phase.Slag, phase.Pozzolan, phase.CaCl2, phase.ASG, phase.CAS2, phase.CaCO3)) / m.CementMassWithGypsum
	}
	switch {
	case m.WaterCement > 0.01:
		m.HeatConversion = 0.001 * (0.3125 + m.WaterCement + heatFill)
	case c[phase.Pozzolan] > 0:
		// volume per gram of silica fume
		pz := sg(phase.Pozzolan)
		m.HeatConversion = 0.001 * (1/pz + float64(c.Sum(phase.Porosity, phase.CH, phase.Inert))/(pz*float64(c[phase.Pozzolan])))
	default:
		m.HeatConversion = 0.001 * 0.3125
	}
	m.SurfaceFraction = measureSurface(s)
	return m
}

// measureSurface returns the fraction of pore/solid faces whose solid side
// is one of the four clinker minerals, among faces touching clinker, inert
// filler or calcium carbonate. A paste without such faces reports 1.
func measureSurface(s *microstructure.Store) float64 {
	var cement, total int
	for i := 0; i < s.Volume(); i++ {
		if s.Phase(i) != phase.Porosity {
			continue
		}
		for _, d := range core.Directions {
			p := s.Phase(s.Step(i, d))
			if p.IsCement() {
				cement++
				total++
			} else if p == phase.Inert || p == phase.CaCO3 {
				total++
			}
		}
	}
	if total == 0 {
		return 1
	}
	return float64(cement) / float64(total)
}

// bookkeep fills the hydration scalars of st from the current counts.
func (e *Engine) bookkeep(env Env, st *Stats) {
	c := e.store.Counts()
	init := &e.init
	reg := e.reg
	mv := reg.MolarVolume
	sg := reg.SpecificGravity

	water := 0.0
	for _, p := range phase.All {
		if p == phase.Porosity || !p.IsSolid() || p == phase.InertAgg || p == phase.CSH {
			continue
		}
		water += float64(c[p]-init[p]) * reg.Props(p).Water / mv(p)
	}
	for i := 0; i < e.store.Volume(); i++ {
		if e.store.Phase(i) != phase.CSH {
			continue
		}
		if age := e.store.Age(i); age > 0 {
			water += reg.CSHWater(age) / reg.CSHMolarVolume(age)
		}
	}
	water += float64(init[phase.Anhydrite]-c[phase.Anhydrite]) * 2.0 / mv(phase.Anhydrite)
	water += float64(init[phase.Hemihydrate]-c[phase.Hemihydrate]) * 1.5 / mv(phase.Hemihydrate)

	reacted := func(p phase.Phase) float64 { return float64(init[p] - c[p]) }
	heat := 0.517*reacted(phase.C3S)*sg(phase.C3S) + 0.262*reacted(phase.C2S)*sg(phase.C2S)

	mc3a := reacted(phase.C3A) / mv(phase.C3A)
	mc4a := reacted(phase.C4AF) / mv(phase.C4AF)
	hydrogarnet := float64(c[phase.C3AH6]) / mv(phase.C3AH6)
	if f := aluminateShares(mc3a, mc4a, hydrogarnet,
		float64(c[phase.Ettringite])/mv(phase.Ettringite),
		float64(c[phase.AFm])/mv(phase.AFm)); f != nil {
		heat += (f[0]*1.672 + f[1]*1.144 + f[2]*0.908) * reacted(phase.C3A) * sg(phase.C3A)
	}
	if f := ferriteShares(mc3a, mc4a, hydrogarnet,
		float64(c[phase.EttringiteC4AF])/mv(phase.EttringiteC4AF)); f != nil {
		heat += (f[0]*0.725 + f[1]*0.418) * reacted(phase.C4AF) * sg(phase.C4AF)
	}
	heat += 0.187 * reacted(phase.Anhydrite) * sg(phase.Anhydrite)
	heat += 0.132 * reacted(phase.Hemihydrate) * sg(phase.Hemihydrate)
	heat += 0.78 * (float64(env.PozzReacted) / 1.35) * sg(phase.Pozzolan)
	heat += 0.8 * float64(e.slagReacted) * sg(phase.Slag)
	heat += 0.80 * (float64(env.ASReacted) / 1.3267) * sg(phase.ASG)

	if sum := init.Sum(phase.C3S, phase.C2S, phase.C3A, phase.C4AF); sum != 0 {
		st.Alpha = (reacted(phase.C3S) + reacted(phase.C2S) + reacted(phase.C3A) + reacted(phase.C4AF)) / float64(sum)
	}
	massNow := sg(phase.C3S)*float64(c[phase.C3S]) + sg(phase.C2S)*float64(c[phase.C2S]) +
		sg(phase.C3A)*float64(c[phase.C3A]) + sg(phase.C4AF)*float64(c[phase.C4AF])
	if e.mix.CementMass != 0 {
		st.AlphaMass = 1 - massNow/e.mix.CementMass
	}
	if e.mix.FlyAshMass != 0 {
		fa := sg(phase.ASG)*float64(c[phase.ASG]) + sg(phase.CAS2)*float64(c[phase.CAS2]) + sg(phase.Pozzolan)*float64(c[phase.Pozzolan])
		st.AlphaFlyAsh = 1 - fa/e.mix.FlyAshMass
	}

	h2oInit := float64(init[phase.Porosity]) / mv(phase.Porosity)
	st.WaterLeft = int((h2oInit-water)*mv(phase.Porosity) + 0.5)
	st.PoreCount = c[phase.Porosity]
	st.PrevHeat = e.heat
	st.Heat = heat
	e.heat = heat
	st.Shrinkage = float64(c[phase.EmptyPore]+c[phase.Porosity]-st.WaterLeft) * e.mix.HeatConversion / 1000
}

// aluminateShares splits reacted C3A between ettringite, AFm and
// hydrogarnet by molar amount. It returns nil when none formed.
func aluminateShares(mc3a, mc4a, hydrogarnet, ettr, afm float64) []float64 {
	hg := 0.0
	if mc3a+mc4a > 0 {
		hg = mc3a / (mc3a + mc4a) * hydrogarnet
	}
	tot := ettr + afm + hg
	if tot <= 0 {
		return nil
	}
	return []float64{ettr / tot, afm / tot, hg / tot}
}

// ferriteShares splits reacted C4AF between iron-rich ettringite and
// hydrogarnet.
func ferriteShares(mc3a, mc4a, hydrogarnet, ettr float64) []float64 {
	hg := 0.0
	if mc3a+mc4a > 0 {
		hg = mc4a / (mc3a + mc4a) * hydrogarnet
	}
	tot := ettr + hg
	if tot <= 0 {
		return nil
	}
	return []float64{ettr / tot, hg / tot}
}
