package phase

import (
	"math"
	"strings"
	"testing"
)

func TestClassificationPartitionsPhases(t *testing.T) {
	for _, p := range All {
		kinds := 0
		if p.IsSolid() {
			kinds++
		}
		if p.IsMobile() {
			kinds++
		}
		if p == Porosity || p == EmptyPore {
			kinds++
		}
		if kinds != 1 {
			t.Fatalf("%s belongs to %d classes", p, kinds)
		}
		if p.IsPoreLike() == p.IsSolid() {
			t.Fatalf("%s: pore-like and solid must be complementary", p)
		}
	}
	if len(All) != 44 {
		t.Fatalf("expected 44 phases, got %d", len(All))
	}
}

func TestCanonicalIsSolid(t *testing.T) {
	for _, p := range All {
		if !p.IsMobile() {
			if p.Canonical() != p {
				t.Fatalf("%s should map to itself", p)
			}
			continue
		}
		if c := p.Canonical(); !c.IsSolid() {
			t.Fatalf("%s precipitates as non-solid %s", p, c)
		}
		if d := p.Display(); !d.IsSolid() {
			t.Fatalf("%s displays as non-solid %s", p, d)
		}
	}
}

func TestParse(t *testing.T) {
	cases := map[string]Phase{"c3s": C3S, "DIFFCSH": DiffCSH, "45": EmptyPore, " etTR ": Ettringite}
	for in, want := range cases {
		got, err := Parse(in)
		if err != nil || got != want {
			t.Fatalf("Parse(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	for _, bad := range []string{"", "QUARTZ", "44", "-1"} {
		if _, err := Parse(bad); err == nil {
			t.Fatalf("Parse(%q) should fail", bad)
		}
	}
}

func TestProductsAreMobile(t *testing.T) {
	props := DefaultProperties()
	for _, p := range All {
		if props[p].HasProduct() && !props[p].Product.IsMobile() {
			t.Fatalf("%s dissolves into non-mobile %s", p, props[p].Product)
		}
	}
}

func TestRegistryPin(t *testing.T) {
	r := NewRegistry()
	if r.Soluble(C3S) {
		t.Fatal("C3S must start insoluble")
	}
	r.Pin(C3S, 1)
	r.SetCurrent(C3S, 0.01)
	r.SetSoluble(C3S, false)
	if r.Current(C3S) != 1 || !r.Soluble(C3S) {
		t.Fatalf("pinned C3S changed: p=%v soluble=%v", r.Current(C3S), r.Soluble(C3S))
	}
	r.SetCurrent(C3A, 0.5)
	r.Scale(C3A, 0.5)
	if r.Current(C3A) != 0.25 {
		t.Fatalf("Scale: got %v", r.Current(C3A))
	}
}

func TestCSHCycleTable(t *testing.T) {
	r := NewRegistry()
	r.SetCSHCycle(3, 20)
	if r.CSHMolarVolume(3) != 108 || r.CSHWater(3) != 4 {
		t.Fatalf("20 C values wrong: %v %v", r.CSHMolarVolume(3), r.CSHWater(3))
	}
	r.SetCSHCycle(4, 120)
	want := 108 - 8.0
	if math.Abs(r.CSHMolarVolume(4)-want) > 1e-12 {
		t.Fatalf("clamped molar volume = %v, want %v", r.CSHMolarVolume(4), want)
	}
	if r.CSHMolarVolume(99) != r.CSHMolarVolume(4) {
		t.Fatal("out of range cycles should return the latest value")
	}
}

func TestSlagDerivation(t *testing.T) {
	r := NewRegistry()
	d := r.SlagReaction()
	if math.Abs(d.P1+d.P2-1) > 1e-12 {
		t.Fatalf("P1+P2 = %v", d.P1+d.P2)
	}
	if d.P1 <= 0 || d.P1 >= 1 || d.P3 <= 0 {
		t.Fatalf("implausible default slag probabilities %+v", d)
	}
	if r.Props(SlagCSH).Water != DefaultSlag().HydrateHS*DefaultSlag().SiPerSlag {
		t.Fatal("slag C-S-H water not derived from H/S ratio")
	}
}

func TestReadTables(t *testing.T) {
	slag, err := ReadSlag(strings.NewReader("1 2 3 2.9 2.4 900 1700 1.4 1.3 15 3.5 0.1 0.8"))
	if err != nil {
		t.Fatal(err)
	}
	if slag.SpecificGravity != 2.9 || slag.Reactivity != 0.8 || slag.C3A != 0.1 {
		t.Fatalf("unexpected slag table %+v", slag)
	}
	if _, err := ReadSlag(strings.NewReader("1 2 3")); err == nil {
		t.Fatal("short slag table should fail")
	}
	alk, err := ReadAlkali(strings.NewReader("0.2 0.5\n0.1 0.4\n"))
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(alk.TotalK2O-0.005) > 1e-12 || math.Abs(alk.ReadilySolubleNa2O-0.001) > 1e-12 {
		t.Fatalf("unexpected alkali table %+v", alk)
	}
	if _, err := ReadAlkali(strings.NewReader("0.2 x 0.1 0.4")); err == nil {
		t.Fatal("non-numeric alkali table should fail")
	}
}
