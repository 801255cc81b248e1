package dissolution

import (
	"fmt"

	"cemhyd/internal/core"
	"cemhyd/internal/phase"
)

const (
	// cshBoxTries bounds the local search for a C-S-H species site.
	cshBoxTries = 500
	// slagPlateTries bounds the neighbor search for extra slag C-S-H.
	slagPlateTries = 100
	// pCSHConvert is the per-cycle chance C-S-H converts to pozzolanic C-S-H.
	pCSHConvert = 0.002
	// ferriteIron is the FH3 species released per dissolved C4AF voxel.
	ferriteIron = 0.5453
)

// survey marks the soluble solids touching saturated pore space. With only
// set, voxels of other phases keep their marks and only matching phases are
// added.
func (e *Engine) survey(only func(phase.Phase) bool) {
	s := e.store
	for i := range e.eligible {
		p := s.Phase(i)
		if only != nil && !only(p) {
			continue
		}
		e.eligible[i] = p.IsSolid() && e.reg.Soluble(p) && s.Touches(i, phase.Porosity)
	}
}

// react scans the grid once in raster order. Eligible voxels try to
// dissolve into a random face neighbor; afterwards each voxel gets its
// chance at C-S-H conversion and slag reaction.
func (e *Engine) react(env Env, pHFactor float64, st *Stats) error {
	s := e.store
	reg := e.reg
	mv := reg.MolarVolume
	cshMV := reg.CSHMolarVolume(env.Cycle)
	pc3s := cshMV/mv(phase.C3S) - 1
	pc2s := cshMV/mv(phase.C2S) - 1
	box := int(3 + 5*(40-env.Temperature)/20)
	if box < 1 {
		box = 1
	}
	vol := s.Volume()
	convert := e.opts.CSHToPozzCSH &&
		float64(s.Count(phase.Pozzolan)) >= e.scaled(13000) &&
		float64(e.chNew) < 0.15*float64(vol)
	slag := reg.SlagReaction()

	var chExtra, slagC3A int
	for i := 0; i < vol; i++ {
		if e.eligible[i] {
			e.eligible[i] = false
			p := s.Phase(i)
			d := e.place.Direction()
			j := s.Step(i, d)
			props := reg.Props(p)
			prob := reg.Current(p) / (1 + pHFactor*props.PHWeight)
			u := e.rng.Float64()
			hit := u <= prob || (s.Particle(i) == 0 && u <= e.opts.OnePixelBias*prob)
			if hit && s.Phase(j) == phase.Porosity {
				st.Dissolved[p]++
				s.Set(i, phase.Porosity)
				product := props.Product
				if p == phase.C4AF && e.rng.Float64() <= ferriteIron {
					product = phase.DiffFH3
				}
				if product != phase.Porosity {
					e.spawn(j, product, env.Cycle)
					st.Spawned++
				}
				if p == phase.C3S || p == phase.C2S {
					if u := e.rng.Float64(); (p == phase.C2S && u <= pc2s) || u <= pc3s {
						e.localCSH(j, box, env.Cycle, st)
					}
					if p == phase.C2S && pc2s > 1 {
						if e.rng.Float64() <= pc2s-1 {
							e.localCSH(j, box, env.Cycle, st)
						}
					}
				}
			}
		}

		if convert && s.Phase(i) == phase.CSH && s.CountBox(i, 3, phase.Phase.IsPoreLike) >= 1 {
			if e.rng.Float64() < pCSHConvert {
				age := s.Age(i)
				u := e.rng.Float64()
				calcy := min(mv(phase.PozzCSH)/reg.CSHMolarVolume(age), 1)
				if u <= calcy {
					s.Set(i, phase.PozzCSH)
				} else {
					s.Set(i, phase.Porosity)
					e.spawn(i, phase.DiffCH, env.Cycle)
				}
				if e.rng.Float64() < 19.86/reg.CSHMolarVolume(age)-(1-calcy) {
					chExtra++
				}
			}
		}

		if s.Phase(i) == phase.Slag && s.CountBox(i, 3, phase.Phase.IsPoreLike) >= 1 {
			if e.rng.Float64() < reg.Current(phase.Slag)/(1+pHFactor*reg.Props(phase.Slag).PHWeight) {
				e.slagReacted++
				st.Dissolved[phase.Slag]++
				if e.rng.Float64() < slag.P5 {
					slagC3A++
				}
				if e.rng.Float64() < slag.P1 {
					s.Set(i, phase.SlagCSH)
					s.SetFace(i, uint8(e.rng.IntN(3)+1))
				} else if env.Sealed {
					s.Set(i, phase.EmptyPore)
					st.SlagEmptied++
				} else {
					s.Set(i, phase.Porosity)
				}
				p3 := slag.P3
				for ; p3 > 1; p3-- {
					if err := e.extraSlagCSH(i); err != nil {
						return err
					}
				}
				if e.rng.Float64() < p3 {
					if err := e.extraSlagCSH(i); err != nil {
						return err
					}
				}
			}
		}
	}
	e.slagEmptied = st.SlagEmptied
	st.Extra[phase.DiffCH] = chExtra
	st.Extra[phase.DiffC3A] = slagC3A
	return nil
}

func (e *Engine) spawn(i int, kind phase.Phase, cycle int) {
	e.store.Place(i, kind)
	e.list.Add(i, kind, cycle)
}

// localCSH places a C-S-H species in the cube of half-width extent around
// center. A failed search leaves the species for random placement.
func (e *Engine) localCSH(center, extent, cycle int, st *Stats) {
	s := e.store
	lat := s.Lattice()
	x, y, z := lat.Coords(center)
	span := 2*extent + 1
	offset := func() int { return min(-extent+int(float64(span)*e.rng.Float64()), extent) }
	for try := 0; try < cshBoxTries; try++ {
		dx, dy, dz := offset(), offset(), offset()
		j := lat.At(x+dx, y+dy, z+dz)
		if s.Phase(j) == phase.Porosity {
			e.spawn(j, phase.DiffCSH, cycle)
			st.Spawned++
			return
		}
	}
	st.RandomCSH++
}

// extraSlagCSH grows one slag C-S-H voxel next to origin, respecting the
// plate orientation of origin, or at a random pore near slag or C-S-H.
func (e *Engine) extraSlagCSH(origin int) error {
	s := e.store
	face := s.Face(origin)
	j, _, ok := e.place.Local(origin, slagPlateTries, true, func(d core.Direction, j int) bool {
		if s.Phase(j) != phase.Porosity {
			return false
		}
		a, b := d.PlateFaces()
		return face == 0 || face == a || face == b
	})
	if ok {
		s.Place(j, phase.SlagCSH)
		s.SetFace(j, face)
		return nil
	}
	if _, err := e.place.PlaceRandom(phase.SlagCSH, phase.Slag, phase.CSH, phase.SlagCSH); err != nil {
		return fmt.Errorf("extra slag C-S-H: %w", err)
	}
	return nil
}

// addExtras converts the dissolved volumes into the extra species the
// reaction stoichiometry requires and places them at random pore voxels.
// st.Extra enters holding the CH and aluminate gained during the pass.
func (e *Engine) addExtras(env Env, st *Stats) error {
	d := &st.Dissolved
	rng := e.rng
	f := func(p phase.Phase) float64 { return float64(d[p]) }

	ch := rng.Bernoulli(0.61*f(phase.C3S)+0.191*f(phase.C2S)+0.2584*f(phase.C4AF)) + st.Extra[phase.DiffCH]
	// slag consumes CH; fractional consumption carries over between cycles
	if p4 := e.reg.SlagReaction().P4; p4 > 0 {
		e.slagCum += d[phase.Slag]
		gone := int(p4 * float64(e.slagCum))
		ch -= gone
		e.slagCum -= int(float64(gone) / p4)
	}
	ch -= e.chDeficit
	e.chDeficit = 0
	if ch < 0 {
		e.chDeficit = -ch
		ch = 0
	}
	c3a := rng.Bernoulli(f(phase.C3A)+0.5917*f(phase.C3AH6)) + st.Extra[phase.DiffC3A]
	c4a := rng.Bernoulli(0.696 * f(phase.C4AF))

	plan := []struct {
		kind phase.Phase
		n    int
	}{
		{phase.DiffCH, ch},
		{phase.DiffCSH, st.RandomCSH},
		{phase.DiffC3A, c3a},
		{phase.DiffC4A, c4a},
		{phase.DiffGypsum, d[phase.Gypsum] + d[phase.GypsumS]},
		{phase.DiffHemihydrate, d[phase.Hemihydrate]},
		{phase.DiffAnhydrite, d[phase.Anhydrite]},
	}
	for _, step := range plan {
		st.Extra[step.kind] = step.n
		for k := 0; k < step.n; k++ {
			i, err := e.place.RandomPore(nil)
			if err != nil {
				return fmt.Errorf("cycle %d: placing %s: %w", env.Cycle, step.kind, err)
			}
			e.spawn(i, step.kind, env.Cycle)
		}
	}
	return nil
}
