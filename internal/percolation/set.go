package percolation

import (
	"cemhyd/internal/core"
	"cemhyd/internal/phase"
)

// SetRules configures the solid-set burn.
type SetRules struct {
	// Clinker reports unhydrated grain phases.
	Clinker func(phase.Phase) bool
	// Bridge reports hydration products that join different grains.
	Bridge func(phase.Phase) bool
	// MinParticleVoxels is the smallest particle whose voxels count as
	// touching each other without a bridge.
	MinParticleVoxels int
	// Threshold is the connected fraction at which the paste is set.
	Threshold float64
}

// DefaultSetRules returns the clinker and bridge sets used for set-point
// detection.
func DefaultSetRules() SetRules {
	return SetRules{
		Clinker:           phase.Phase.IsClinker,
		Bridge:            phase.Phase.IsBridge,
		MinParticleVoxels: 2,
		Threshold:         SetThreshold,
	}
}

// SetResult is a solid-set burn result plus the set decision.
type SetResult struct {
	Result
	Set bool
}

// BurnSet burns the solid skeleton along axis. Clinker and bridge voxels
// match. A bridge voxel connects to any matching neighbor; two clinker
// voxels connect only when they belong to the same particle of at least
// MinParticleVoxels voxels. A voxel counts as a bridge when either the
// current grid or snapshot holds a bridge phase there; snapshot may be nil.
func (an *Analyzer) BurnSet(g Grid, snapshot Phases, axis core.Axis, rules SetRules) SetResult {
	if rules.Clinker == nil || rules.Bridge == nil {
		d := DefaultSetRules()
		rules.Clinker, rules.Bridge = d.Clinker, d.Bridge
	}
	lat := g.Lattice()
	vol := lat.Volume()

	if an.sizes == nil {
		an.sizes = map[int32]int{}
	}
	clear(an.sizes)
	for i := 0; i < vol; i++ {
		if id := g.Particle(i); id != 0 && rules.Clinker(g.Phase(i)) {
			an.sizes[id]++
		}
	}

	bridge := func(i int) bool {
		if rules.Bridge(g.Phase(i)) {
			return true
		}
		return snapshot != nil && rules.Bridge(snapshot.Phase(i))
	}
	match := func(i int) bool {
		p := g.Phase(i)
		return rules.Clinker(p) || rules.Bridge(p)
	}
	cross := func(a, b int) bool {
		if bridge(a) || bridge(b) {
			return true
		}
		id := g.Particle(a)
		return id != 0 && id == g.Particle(b) && an.sizes[id] >= rules.MinParticleVoxels
	}

	res := an.burn(lat, match, cross, axis)
	threshold := rules.Threshold
	if threshold <= 0 {
		threshold = SetThreshold
	}
	return SetResult{Result: res, Set: res.ConnectedFraction() > threshold}
}
