package hydration

import (
	"slices"

	"cemhyd/internal/core"
	"cemhyd/internal/percolation"
	"cemhyd/internal/phase"
)

// ParticleRecord is the hydration degree of one original grain.
type ParticleRecord struct {
	ID int32
	// Original and Left count the grain's clinker voxels at the start of the
	// run and now.
	Original, Left int
	Fraction       float64
}

func (m *Model) porePercolates() bool {
	pc := m.state.PoreConnected
	return pc[0] || pc[1] || pc[2]
}

func isPore(p phase.Phase) bool { return p == phase.Porosity }

// burnPores checks capillary pore percolation along every axis.
func (m *Model) burnPores() []percolation.Result {
	out := make([]percolation.Result, 0, len(core.Axes))
	for k, axis := range core.Axes {
		r := m.an.Burn(m.store, isPore, axis)
		m.state.PoreConnected[k] = r.Percolates
		out = append(out, r)
		m.log.Debug("pore burn", "axis", axis, "through", r.Through, "total", r.Total, "percolates", r.Percolates)
	}
	return out
}

// burnSet checks the solid skeleton along every axis. The paste is set once
// all three percolate above the set threshold.
func (m *Model) burnSet(snapshot percolation.Phases) []percolation.SetResult {
	out := make([]percolation.SetResult, 0, len(core.Axes))
	set := true
	for _, axis := range core.Axes {
		r := m.an.BurnSet(m.store, snapshot, axis, m.rules)
		set = set && r.Set
		out = append(out, r)
		m.log.Debug("set burn", "axis", axis, "fraction", r.ConnectedFraction(), "set", r.Set)
	}
	st := &m.state
	if set && !st.Set {
		st.Set = true
		st.SetCycle = st.Cycle
		m.log.Info("paste set", "cycle", st.Cycle, "time_h", st.Time)
	}
	return out
}

// clinker reports the four cement minerals particle hydration tracks.
func clinker(p phase.Phase) bool {
	switch p {
	case phase.C3S, phase.C2S, phase.C3A, phase.C4AF:
		return true
	}
	return false
}

// ParticleHydration returns the fraction of clinker consumed per particle,
// in id order, for every particle id present at the start of the run.
func (m *Model) ParticleHydration() []ParticleRecord {
	byID := map[int32]*ParticleRecord{}
	for i, orig := range m.original {
		id := m.store.Particle(i)
		if id == 0 {
			continue
		}
		rec, ok := byID[id]
		if !ok {
			rec = &ParticleRecord{ID: id}
			byID[id] = rec
		}
		if clinker(orig) {
			rec.Original++
		}
		if clinker(m.store.Phase(i)) {
			rec.Left++
		}
	}
	out := make([]ParticleRecord, 0, len(byID))
	for _, rec := range byID {
		if rec.Original > 0 {
			rec.Fraction = 1 - float64(rec.Left)/float64(rec.Original)
		}
		out = append(out, *rec)
	}
	slices.SortFunc(out, func(a, b ParticleRecord) int { return int(a.ID - b.ID) })
	return out
}
