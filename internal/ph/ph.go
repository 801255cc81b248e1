// Package ph estimates the pore solution pH and sulfate concentration fed
// back into the dissolution probabilities.
package ph

import (
	"math"

	"cemhyd/internal/phase"
)

// Inputs are the paste quantities an estimate depends on.
type Inputs struct {
	Temperature float64
	// Time is the elapsed maturity time in hours.
	Time      float64
	AlphaMass float64
	// Voxel counts of the phases holding pore solution.
	Pore, CSH, PozzCSH, SlagCSH int
	// CementMass is the cement including calcium sulfates in voxel units
	// (specific gravity times count).
	CementMass float64
	// PozzReacted is the CH consumed by the pozzolanic reaction so far.
	PozzReacted         int
	PozzSpecificGravity float64
	// EttringiteSoluble disables the gypsum equilibrium once sulfate is
	// bound in ettringite.
	EttringiteSoluble bool
}

// Result is one estimate. Concentrations are in mol/L.
type Result struct {
	PH           float64
	Conductivity float64 // S/m
	Na, K, Ca    float64
	OH, Sulfate  float64

	ActivityCa, ActivityOH, ActivitySO4, ActivityK float64
	// Syngenite is the precipitated syngenite in moles per gram of cement.
	Syngenite float64
}

// Estimator produces the pore solution state for a cycle.
type Estimator interface {
	Estimate(Inputs) Result
}

// Fixed reports a constant pH and sulfate concentration.
type Fixed struct {
	PH      float64
	Sulfate float64
}

// Estimate implements Estimator.
func (f Fixed) Estimate(Inputs) Result { return Result{PH: f.PH, Sulfate: f.Sulfate, OH: math.Pow(10, f.PH-14)} }

const (
	// voxel edge in dm and in cm
	volFactor  = 1e-5
	massFactor = 1e-4

	molarNa2O = 61.979
	molarK2O  = 94.203

	// alkali binding by C-S-H and by reacted pozzolan, L per g
	bindNa      = 0.00031
	bindK       = 0.00020
	bindPozzNa  = 0.0030
	bindPozzK   = 0.0033
	kspCH25     = 0.00000646
	kspGypsum   = 0.0000263
	kspSyngen   = 0.00000010
	kPerSyngen  = 2.0
	activeA0    = 0.0366
	activeB0    = 0.01035
	minHydroxyl = 1e-7
	maxIonIter  = 100
)

// ion is the charge and effective radius of a pore solution ion, with its
// limiting conductivity and conductivity decay.
type ion struct {
	z, a      float64
	lambda, g float64
}

var (
	ionCa  = ion{z: 2, a: 1, lambda: 29.5, g: 0.771}
	ionSO4 = ion{z: 2, a: 4.5, lambda: 39.5, g: 0.877}
	ionOH  = ion{z: 1, a: 3, lambda: 198.0, g: 0.353}
	ionNa  = ion{z: 1, a: 3, lambda: 50.1, g: 0.733}
	ionK   = ion{z: 1, a: 1.33, lambda: 73.5, g: 0.548}
)

// activity is the extended Debye-Hückel coefficient at ionic strength i in
// mmol/L.
func (n ion) activity(i, a, b float64) float64 {
	s := math.Sqrt(i)
	v := -a * n.z * n.z * s / (1 + n.a*b*s)
	v += (0.2 - 0.0000417*i) * a * n.z * n.z * i / math.Sqrt(1000)
	return math.Exp(v)
}

func (n ion) conductivity(conc, strength float64) float64 {
	return n.z * conc * n.lambda / (1 + n.g*math.Sqrt(strength))
}

// Alkali estimates the pore solution from the alkali released by the cement,
// balancing hydroxyl against sodium and potassium with CH and gypsum
// solubility limits and syngenite precipitation. It keeps the calcium
// concentration and precipitated syngenite between cycles.
type Alkali struct {
	props     phase.AlkaliProperties
	ca        float64
	syngenite float64
}

// NewAlkali returns an estimator for a cement with the given alkali content.
func NewAlkali(props phase.AlkaliProperties) *Alkali {
	return &Alkali{props: props}
}

// Estimate implements Estimator.
func (e *Alkali) Estimate(in Inputs) Result {
	tk := in.Temperature + 273.15
	ksp := kspCH25 * (1.534385 - 0.02057*in.Temperature)
	if e.ca > 1 {
		e.ca = 0
	}

	volpore := (float64(in.Pore) + 0.38*float64(in.CSH) + 0.20*float64(in.PozzCSH) + 0.20*float64(in.SlagCSH)) *
		volFactor * volFactor * volFactor
	if grams := in.CementMass * massFactor * massFactor * massFactor; grams > 0 {
		volpore /= grams
	}
	pozz := float64(in.PozzReacted) / 1.35 * massFactor * massFactor * massFactor * in.PozzSpecificGravity

	rsK, rsNa := e.props.ReadilySolubleK2O, e.props.ReadilySolubleNa2O
	early := 1.0
	if in.Time <= 1 {
		// most readily soluble alkali goes into solution at once, the rest
		// over the first hour
		early = 0.9 + 0.1*in.Time
	}
	relK := 2 * (early*rsK + (e.props.TotalK2O-rsK)*in.AlphaMass) / molarK2O
	relNa := 2 * (early*rsNa + (e.props.TotalNa2O-rsNa)*in.AlphaMass) / molarNa2O

	k := ratio(relK-e.syngenite*kPerSyngen, volpore+bindK*in.AlphaMass+bindPozzK*pozz)
	na := ratio(relNa, volpore+bindNa*in.AlphaMass+bindPozzNa*pozz)

	var r Result
	an := activeA0 * 295 * math.Sqrt(295) / (tk * math.Sqrt(tk))
	bn := activeB0 * math.Sqrt(295) / math.Sqrt(tk)
	strength := 1.0
	dissolved := false
	for {
		strength, r = e.equilibrate(na, k, ksp, an, bn, !in.EttringiteSoluble)
		if dissolved {
			break
		}
		q := k * k * r.ActivityK * r.ActivityK * e.ca * r.ActivityCa * r.Sulfate * r.Sulfate * r.ActivitySO4 * r.ActivitySO4
		switch {
		case q > kspSyngen && k > 0:
			var dk float64
			switch {
			case k > 0.002:
				dk = 0.001
			case k > 0.0002:
				dk = 0.0001
			default:
				dk = k
			}
			k -= dk
			e.syngenite += dk * volpore / kPerSyngen
			continue
		case e.syngenite > 0 && q <= kspSyngen:
			if ratio(e.syngenite, volpore) > 0.001 {
				k += 0.001 * kPerSyngen
				e.syngenite -= 0.001 * volpore
			} else {
				k += ratio(e.syngenite*kPerSyngen, volpore)
				e.syngenite = 0
			}
			dissolved = true
			continue
		}
		break
	}

	if r.OH < minHydroxyl {
		r.OH = minHydroxyl
		e.ca = ksp / (r.ActivityCa * r.ActivityOH * r.ActivityOH * r.OH * r.OH)
	}
	r.PH = 14 + math.Log10(r.OH*r.ActivityOH)
	r.Na, r.K, r.Ca = na, k, e.ca
	r.Syngenite = e.syngenite

	s := strength / 1000
	r.Conductivity = 0.1 * (ionCa.conductivity(r.Ca, s) + ionOH.conductivity(r.OH, s) +
		ionNa.conductivity(na, s) + ionK.conductivity(k, s) + ionSO4.conductivity(r.Sulfate, s))
	return r
}

// ratio is a/b, or zero for a paste with no solution volume.
func ratio(a, b float64) float64 {
	if b <= 0 {
		return 0
	}
	return a / b
}

// equilibrate iterates activities and concentrations until the ionic
// strength settles. With gypsum set the solution is held at both CH and
// gypsum saturation; otherwise hydroxyl balances the alkalis and calcium
// follows CH solubility.
func (e *Alkali) equilibrate(na, k, ksp, an, bn float64, gypsum bool) (float64, Result) {
	var r Result
	strength := func() float64 {
		return math.Max(1000*(ionK.z*ionK.z*k+ionNa.z*ionNa.z*na+ionCa.z*ionCa.z*e.ca), 1)
	}
	is := strength()
	for iter := 0; iter < maxIonIter; iter++ {
		is = strength()
		r.ActivityCa = ionCa.activity(is, an, bn)
		r.ActivityOH = ionOH.activity(is, an, bn)
		r.ActivityK = ionK.activity(is, an, bn)
		r.ActivitySO4 = ionSO4.activity(is, an, bn)
		gOH2 := r.ActivityOH * r.ActivityOH
		if gypsum && na+k > 0 {
			ca := neutralCalcium(na+k, ksp/(r.ActivityCa*gOH2), kspGypsum/(r.ActivityCa*r.ActivitySO4))
			e.ca = ca
			r.OH = math.Sqrt(ksp / (ca * r.ActivityCa * gOH2))
			r.Sulfate = kspGypsum / (ca * r.ActivityCa * r.ActivitySO4)
		} else {
			kch := ksp / (r.ActivityCa * gOH2)
			r.OH = neutralHydroxyl(na+k, kch)
			e.ca = kch / (r.OH * r.OH)
			r.Sulfate = 0
		}
		if math.Abs(is-strength())/is <= 0.10 {
			break
		}
	}
	return is, r
}

// neutralHydroxyl solves [OH] = alk + 2[Ca] with [Ca] = kch/[OH]^2.
func neutralHydroxyl(alk, kch float64) float64 {
	residual := func(oh float64) float64 {
		return oh - alk - 2*kch/(oh*oh)
	}
	return bisectLog(residual, 1e-15, 10)
}

// neutralCalcium solves electroneutrality alk + 2[Ca] = [OH] + 2[SO4] for
// the calcium concentration, with [OH] = sqrt(kch/[Ca]) and
// [SO4] = kgyp/[Ca]. The residual rises monotonically in [Ca].
func neutralCalcium(alk, kch, kgyp float64) float64 {
	residual := func(ca float64) float64 {
		return alk + 2*ca - math.Sqrt(kch/ca) - 2*kgyp/ca
	}
	return bisectLog(residual, 1e-15, 10)
}

// bisectLog finds the root of an increasing f in [lo, hi], halving the
// interval on a log scale.
func bisectLog(f func(float64) float64, lo, hi float64) float64 {
	a, b := math.Log(lo), math.Log(hi)
	for iter := 0; iter < 200; iter++ {
		mid := (a + b) / 2
		if f(math.Exp(mid)) > 0 {
			b = mid
		} else {
			a = mid
		}
	}
	return math.Exp((a + b) / 2)
}
