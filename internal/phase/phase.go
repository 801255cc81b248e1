// Package phase defines the closed set of voxel phases and their physical
// and kinetic parameters.
package phase

import (
	"fmt"
	"strings"
)

// Phase tags the material identity of a voxel. The numeric values match the
// integer ids used in microstructure raster files.
type Phase uint8

// Solid and pore phases.
const (
	Porosity Phase = iota
	C3S
	C2S
	C3A
	C4AF
	Gypsum
	Hemihydrate
	Anhydrite
	Pozzolan
	Inert
	Slag
	ASG
	CAS2
	CH
	CSH
	C3AH6
	Ettringite
	EttringiteC4AF
	AFm
	FH3
	PozzCSH
	SlagCSH
	CaCl2
	Friedel
	Stratlingite
	GypsumS
	CaCO3
	AFmC
	InertAgg
	AbsGypsum
)

// Mobile species.
const (
	DiffCSH Phase = iota + 30
	DiffCH
	DiffGypsum
	DiffC3A
	DiffC4A
	DiffFH3
	DiffEttringite
	DiffCaCO3
	DiffAS
	DiffAnhydrite
	DiffHemihydrate
	DiffCAS2
	DiffCaCl2
)

// EmptyPore marks pore space emptied by self-desiccation.
const EmptyPore Phase = 45

// Count is the size of per-phase tables.
const Count = int(EmptyPore) + 1

var names = [Count]string{
	Porosity: "POROSITY", C3S: "C3S", C2S: "C2S", C3A: "C3A", C4AF: "C4AF",
	Gypsum: "GYPSUM", Hemihydrate: "HEMIHYD", Anhydrite: "ANHYDRITE",
	Pozzolan: "POZZ", Inert: "INERT", Slag: "SLAG", ASG: "ASG", CAS2: "CAS2",
	CH: "CH", CSH: "CSH", C3AH6: "C3AH6", Ettringite: "ETTR",
	EttringiteC4AF: "ETTRC4AF", AFm: "AFM", FH3: "FH3", PozzCSH: "POZZCSH",
	SlagCSH: "SLAGCSH", CaCl2: "CACL2", Friedel: "FREIDEL",
	Stratlingite: "STRAT", GypsumS: "GYPSUMS", CaCO3: "CACO3", AFmC: "AFMC",
	InertAgg: "INERTAGG", AbsGypsum: "ABSGYP",
	DiffCSH: "DIFFCSH", DiffCH: "DIFFCH", DiffGypsum: "DIFFGYP",
	DiffC3A: "DIFFC3A", DiffC4A: "DIFFC4A", DiffFH3: "DIFFFH3",
	DiffEttringite: "DIFFETTR", DiffCaCO3: "DIFFCACO3", DiffAS: "DIFFAS",
	DiffAnhydrite: "DIFFANH", DiffHemihydrate: "DIFFHEM", DiffCAS2: "DIFFCAS2",
	DiffCaCl2: "DIFFCACL2", EmptyPore: "EMPTYP",
}

// All lists every defined phase in id order.
var All = buildAll()

func buildAll() []Phase {
	var out []Phase
	for i, n := range names {
		if n != "" {
			out = append(out, Phase(i))
		}
	}
	return out
}

func (p Phase) String() string {
	if int(p) < Count && names[p] != "" {
		return names[p]
	}
	return fmt.Sprintf("PHASE(%d)", uint8(p))
}

// Valid reports whether p is a defined phase.
func (p Phase) Valid() bool { return int(p) < Count && names[p] != "" }

// Parse resolves a phase by name (case-insensitive) or numeric id.
func Parse(s string) (Phase, error) {
	s = strings.TrimSpace(s)
	for _, p := range All {
		if strings.EqualFold(names[p], s) {
			return p, nil
		}
	}
	var id int
	if _, err := fmt.Sscanf(s, "%d", &id); err == nil && id >= 0 && id < Count && names[id] != "" {
		return Phase(id), nil
	}
	return 0, fmt.Errorf("unknown phase %q", s)
}

// IsMobile reports whether p is a diffusing species.
func (p Phase) IsMobile() bool { return p >= DiffCSH && p <= DiffCaCl2 }

// IsSolid reports whether p is a solid phase.
func (p Phase) IsSolid() bool { return p >= C3S && p <= AbsGypsum }

// IsPoreLike reports whether p is pore space in the broad sense: saturated
// pore, depleted pore or a species in transit.
func (p Phase) IsPoreLike() bool { return !p.IsSolid() }

// IsClinker reports whether p is an unhydrated reactive grain phase that takes
// part in solid-set percolation.
func (p Phase) IsClinker() bool {
	switch p {
	case C3S, C2S, C3A, C4AF, Slag, ASG, CAS2, Pozzolan:
		return true
	}
	return false
}

// IsCement reports whether p is one of the four major clinker minerals.
func (p Phase) IsCement() bool {
	switch p {
	case C3S, C2S, C3A, C4AF:
		return true
	}
	return false
}

// IsBridge reports whether p is a hydration product that links clinker
// grains in the solid-set burn.
func (p Phase) IsBridge() bool {
	switch p {
	case CSH, SlagCSH, PozzCSH, Ettringite, EttringiteC4AF, C3AH6:
		return true
	}
	return false
}

// Canonical returns the solid a mobile species precipitates as when it is
// forced out of solution. Non-mobile phases map to themselves.
func (p Phase) Canonical() Phase {
	switch p {
	case DiffCSH:
		return CSH
	case DiffCH:
		return CH
	case DiffGypsum:
		return Gypsum
	case DiffC3A, DiffC4A:
		return C3AH6
	case DiffFH3:
		return FH3
	case DiffEttringite:
		return Ettringite
	case DiffCaCO3:
		return CaCO3
	case DiffAS:
		return ASG
	case DiffAnhydrite, DiffHemihydrate:
		return GypsumS
	case DiffCAS2:
		return CAS2
	case DiffCaCl2:
		return CaCl2
	}
	return p
}

// Display maps a phase onto the id written to output images: species and the
// internal solid variants collapse onto the solid a reader would expect.
func (p Phase) Display() Phase {
	switch p {
	case DiffC3A:
		return C3A
	case DiffC4A:
		return C4AF
	case DiffAnhydrite:
		return Anhydrite
	case DiffHemihydrate:
		return Hemihydrate
	case GypsumS, AbsGypsum:
		return Gypsum
	case EttringiteC4AF:
		return Ettringite
	}
	return p.Canonical()
}
