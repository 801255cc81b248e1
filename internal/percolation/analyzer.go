// Package percolation measures connectivity of phase predicates across the
// lattice along one axis: pore percolation and the solid set point.
package percolation

import (
	"cemhyd/internal/core"
	"cemhyd/internal/phase"
)

// SetThreshold is the connected fraction above which the solid skeleton is
// considered set.
const SetThreshold = 0.975

// Grid is the read-only view the analyzer burns through.
type Grid interface {
	Lattice() core.Lattice
	Phase(i int) phase.Phase
	Particle(i int) int32
}

// Phases is a bare phase lookup, satisfied by a snapshot store.
type Phases interface {
	Phase(i int) phase.Phase
}

// Result summarizes one burn along one axis.
type Result struct {
	Axis core.Axis
	// Connected counts voxels reached from face 0.
	Connected int
	// Through counts voxels in clusters that also reach face N-1.
	Through int
	// ConnectedColumns counts face-0 sites that match the predicate.
	ConnectedColumns int
	// ThroughColumns counts (b, c) columns whose face-0 and face-(N-1)
	// voxels belong to the same cluster.
	ThroughColumns int
	// Total counts voxels that match the predicate anywhere.
	Total      int
	Percolates bool
}

// ConnectedFraction returns Through/Total, or 0 for an empty predicate.
func (r Result) ConnectedFraction() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Through) / float64(r.Total)
}

// Analyzer keeps the label and queue buffers between burns. It never writes
// to the grid it inspects. The zero value is ready to use.
type Analyzer struct {
	labels []int32
	queue  []int
	sizes  map[int32]int
}

// edge decides whether the burn may cross from voxel a to neighbor b.
type edge func(a, b int) bool

// Burn runs a single-predicate burn: every 6-connected move between matching
// voxels is allowed.
func (an *Analyzer) Burn(g Grid, pred func(phase.Phase) bool, axis core.Axis) Result {
	match := func(i int) bool { return pred(g.Phase(i)) }
	return an.burn(g.Lattice(), match, func(int, int) bool { return true }, axis)
}

func (an *Analyzer) reset(vol int) {
	if cap(an.labels) < vol {
		an.labels = make([]int32, vol)
	}
	an.labels = an.labels[:vol]
	clear(an.labels)
	an.queue = an.queue[:0]
}

func (an *Analyzer) burn(lat core.Lattice, match func(int) bool, cross edge, axis core.Axis) Result {
	vol := lat.Volume()
	n := lat.N
	an.reset(vol)
	defer clear(an.labels)

	res := Result{Axis: axis}
	for i := 0; i < vol; i++ {
		if match(i) {
			res.Total++
		}
	}

	var label int32
	var nb [6]int
	for b := 0; b < n; b++ {
		for c := 0; c < n; c++ {
			seed := lat.Permute(axis, 0, b, c)
			if !match(seed) {
				continue
			}
			res.ConnectedColumns++
			if an.labels[seed] != 0 {
				continue
			}
			label++
			an.labels[seed] = label
			an.queue = append(an.queue[:0], seed)
			for head := 0; head < len(an.queue); head++ {
				cur := an.queue[head]
				lat.Neighbors6(cur, &nb)
				along := axisCoord(lat, cur, axis)
				for k, d := range core.Directions {
					if d.Axis() == axis {
						// bounded along the percolation axis
						if d%2 == 0 && along == 0 || d%2 == 1 && along == n-1 {
							continue
						}
					}
					next := nb[k]
					if an.labels[next] != 0 || !match(next) || !cross(cur, next) {
						continue
					}
					an.labels[next] = label
					an.queue = append(an.queue, next)
				}
			}
			size := len(an.queue)
			res.Connected += size

			through := 0
			for _, v := range an.queue {
				if axisCoord(lat, v, axis) != 0 {
					continue
				}
				_, vb, vc := transverse(lat, v, axis)
				if an.labels[lat.Permute(axis, n-1, vb, vc)] == label {
					through++
				}
			}
			if through > 0 {
				res.Through += size
				res.ThroughColumns += through
			}
		}
	}
	res.Percolates = res.Through > 0
	return res
}

func axisCoord(lat core.Lattice, i int, axis core.Axis) int {
	a, _, _ := transverse(lat, i, axis)
	return a
}

// transverse is the inverse of Lattice.Permute.
func transverse(lat core.Lattice, i int, axis core.Axis) (a, b, c int) {
	x, y, z := lat.Coords(i)
	switch axis {
	case core.AxisY:
		return y, z, x
	case core.AxisZ:
		return z, x, y
	default:
		return x, y, z
	}
}
