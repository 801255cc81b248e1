package phase

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
)

// SlagProperties describes a blast-furnace slag and its hydration product.
type SlagProperties struct {
	SpecificGravity    float64 `yaml:"specific_gravity"`
	CSHSpecificGravity float64 `yaml:"csh_specific_gravity"`
	MolarVolume        float64 `yaml:"molar_volume"`
	CSHMolarVolume     float64 `yaml:"csh_molar_volume"`
	// CaSi is the Ca/Si molar ratio of the slag.
	CaSi float64 `yaml:"ca_si"`
	// HydrateCaSi is the Ca/Si molar ratio of slag C-S-H.
	HydrateCaSi float64 `yaml:"hydrate_ca_si"`
	// SiPerSlag is the moles of silicon per mole of slag.
	SiPerSlag float64 `yaml:"si_per_slag"`
	// HydrateHS is the H/S molar ratio of slag C-S-H.
	HydrateHS float64 `yaml:"hydrate_h_s"`
	// C3A is the moles of aluminate released per mole of slag.
	C3A float64 `yaml:"c3a"`
	// Reactivity scales the slag dissolution probability.
	Reactivity float64 `yaml:"reactivity"`
}

// SlagReaction holds the per-event probabilities derived from SlagProperties.
type SlagReaction struct {
	CHPerSlag float64
	// P1 is the chance a reacting slag voxel becomes slag C-S-H in place.
	P1 float64
	// P2 is the complementary chance it leaves pore space.
	P2 float64
	// P3 is the expected number of extra slag C-S-H voxels per event.
	P3 float64
	// P4 is the number of CH voxels consumed per slag voxel.
	P4 float64
	// P5 is the chance an event releases a diffusing aluminate.
	P5 float64
}

// DefaultSlag returns characteristics of a typical ground granulated slag.
func DefaultSlag() SlagProperties {
	return SlagProperties{
		SpecificGravity:    2.87,
		CSHSpecificGravity: 2.35,
		MolarVolume:        945.72,
		CSHMolarVolume:     1717.53,
		CaSi:               1.3993,
		HydrateCaSi:        1.35,
		SiPerSlag:          15.3,
		HydrateHS:          3.9,
		C3A:                0,
		Reactivity:         1,
	}
}

func (s SlagProperties) derive(r *Registry) SlagReaction {
	var d SlagReaction
	if s.MolarVolume <= 0 {
		return d
	}
	d.CHPerSlag = s.SiPerSlag*(s.HydrateCaSi-s.CaSi) + 3*s.C3A
	if d.CHPerSlag < 0 {
		d.CHPerSlag = 0
	}
	mv := func(p Phase) float64 { return r.props[p].MolarVolume }
	water := s.HydrateHS * s.SiPerSlag
	d.P2 = (s.MolarVolume + mv(CH)*d.CHPerSlag +
		mv(Porosity)*(water-d.CHPerSlag+r.props[C3AH6].Water*s.C3A) -
		s.CSHMolarVolume - mv(C3AH6)*s.C3A) / s.MolarVolume
	d.P1 = 1 - d.P2
	d.P3 = s.CSHMolarVolume/s.MolarVolume - d.P1
	d.P4 = d.CHPerSlag * mv(CH) / s.MolarVolume
	d.P5 = s.C3A * mv(C3A) / s.MolarVolume
	if d.P5 > 1 {
		d.P5 = 1
	}
	return d
}

// AlkaliProperties gives the alkali content of the cement as mass fractions
// of the oxides.
type AlkaliProperties struct {
	TotalNa2O          float64 `yaml:"total_na2o"`
	TotalK2O           float64 `yaml:"total_k2o"`
	ReadilySolubleNa2O float64 `yaml:"readily_soluble_na2o"`
	ReadilySolubleK2O  float64 `yaml:"readily_soluble_k2o"`
}

// DefaultAlkali returns a moderate-alkali cement.
func DefaultAlkali() AlkaliProperties {
	return AlkaliProperties{
		TotalNa2O:          0.0020,
		TotalK2O:           0.0050,
		ReadilySolubleNa2O: 0.0010,
		ReadilySolubleK2O:  0.0040,
	}
}

// ReadSlag parses a slag characteristics table: whitespace separated numbers
// whose first three entries are ignored, followed by specific gravities,
// molar volumes, Ca/Si ratios, Si per slag, H/S, C3A per slag and reactivity.
func ReadSlag(r io.Reader) (SlagProperties, error) {
	vals, err := readNumbers(r, 13)
	if err != nil {
		return SlagProperties{}, fmt.Errorf("reading slag table: %w", err)
	}
	return SlagProperties{
		SpecificGravity:    vals[3],
		CSHSpecificGravity: vals[4],
		MolarVolume:        vals[5],
		CSHMolarVolume:     vals[6],
		CaSi:               vals[7],
		HydrateCaSi:        vals[8],
		SiPerSlag:          vals[9],
		HydrateHS:          vals[10],
		C3A:                vals[11],
		Reactivity:         vals[12],
	}, nil
}

// ReadAlkali parses an alkali table: total Na2O, total K2O, readily soluble
// Na2O and readily soluble K2O, each in mass percent.
func ReadAlkali(r io.Reader) (AlkaliProperties, error) {
	vals, err := readNumbers(r, 4)
	if err != nil {
		return AlkaliProperties{}, fmt.Errorf("reading alkali table: %w", err)
	}
	return AlkaliProperties{
		TotalNa2O:          vals[0] / 100,
		TotalK2O:           vals[1] / 100,
		ReadilySolubleNa2O: vals[2] / 100,
		ReadilySolubleK2O:  vals[3] / 100,
	}, nil
}

func readNumbers(r io.Reader, n int) ([]float64, error) {
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)
	out := make([]float64, 0, n)
	for len(out) < n && sc.Scan() {
		v, err := strconv.ParseFloat(sc.Text(), 64)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", len(out)+1, err)
		}
		out = append(out, v)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(out) < n {
		return nil, fmt.Errorf("expected %d values, found %d", n, len(out))
	}
	return out, nil
}
