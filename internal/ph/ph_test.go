package ph

import (
	"math"
	"testing"

	"cemhyd/internal/phase"
)

func paste() Inputs {
	return Inputs{
		Temperature:         25,
		Time:                10,
		AlphaMass:           0.5,
		Pore:                400000,
		CSH:                 100000,
		CementMass:          3.15 * 300000,
		PozzSpecificGravity: 2.2,
	}
}

func TestFixedPassesThrough(t *testing.T) {
	r := Fixed{PH: 12.5, Sulfate: 0.02}.Estimate(paste())
	if r.PH != 12.5 || r.Sulfate != 0.02 {
		t.Fatalf("got pH %v sulfate %v", r.PH, r.Sulfate)
	}
}

func TestCHSaturatedWithoutAlkali(t *testing.T) {
	r := NewAlkali(phase.AlkaliProperties{}).Estimate(paste())
	if r.PH < 12 || r.PH > 12.6 {
		t.Fatalf("pH = %v, want CH saturation", r.PH)
	}
	if r.Na != 0 || r.K != 0 || r.Sulfate != 0 {
		t.Fatalf("Na=%v K=%v SO4=%v", r.Na, r.K, r.Sulfate)
	}
	if math.Abs(r.OH-2*r.Ca)/r.OH > 0.2 {
		t.Fatalf("OH=%v Ca=%v not balanced", r.OH, r.Ca)
	}
}

func TestAlkaliRaisesPH(t *testing.T) {
	pure := NewAlkali(phase.AlkaliProperties{}).Estimate(paste())
	props := phase.AlkaliProperties{
		TotalNa2O:          0.002,
		TotalK2O:           0.005,
		ReadilySolubleNa2O: 0.001,
		ReadilySolubleK2O:  0.004,
	}
	r := NewAlkali(props).Estimate(paste())
	if r.PH <= pure.PH || r.PH < 12.8 || r.PH > 14.5 {
		t.Fatalf("alkali pH %v, pure pH %v", r.PH, pure.PH)
	}
	if r.K <= 0 || r.Na <= 0 || r.Sulfate < 0 {
		t.Fatalf("Na=%v K=%v SO4=%v", r.Na, r.K, r.Sulfate)
	}
	if r.Conductivity <= pure.Conductivity {
		t.Fatalf("conductivity %v not above %v", r.Conductivity, pure.Conductivity)
	}
}

func TestEttringiteDropsSulfate(t *testing.T) {
	props := phase.AlkaliProperties{TotalNa2O: 0.002, TotalK2O: 0.005, ReadilySolubleK2O: 0.004}
	in := paste()
	in.EttringiteSoluble = true
	if r := NewAlkali(props).Estimate(in); r.Sulfate != 0 {
		t.Fatalf("sulfate %v with soluble ettringite", r.Sulfate)
	}
}

func TestHeatLowersCHSolubility(t *testing.T) {
	cold, hot := paste(), paste()
	hot.Temperature = 60
	a := NewAlkali(phase.AlkaliProperties{}).Estimate(cold)
	b := NewAlkali(phase.AlkaliProperties{}).Estimate(hot)
	if b.Ca >= a.Ca {
		t.Fatalf("Ca at 60C %v not below 25C %v", b.Ca, a.Ca)
	}
}

func TestNeutralCalciumBalancesCharge(t *testing.T) {
	alk, kch, kgyp := 0.3, 1e-5, 3e-5
	ca := neutralCalcium(alk, kch, kgyp)
	oh := math.Sqrt(kch / ca)
	so4 := kgyp / ca
	if d := alk + 2*ca - oh - 2*so4; math.Abs(d) > 1e-9 {
		t.Fatalf("charge imbalance %v at Ca=%v", d, ca)
	}
}
