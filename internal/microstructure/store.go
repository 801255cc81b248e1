// Package microstructure holds the voxel grid of a hydrating paste and the
// per-voxel metadata every engine reads and writes.
package microstructure

import (
	"fmt"

	"cemhyd/internal/core"
	"cemhyd/internal/phase"
)

// InvariantError is the panic value raised when a mutation would corrupt
// the grid: a count going negative, or a placement onto an occupied voxel.
type InvariantError struct {
	Msg string
}

func (e InvariantError) Error() string { return "invariant violation: " + e.Msg }

func violate(format string, args ...any) {
	panic(InvariantError{Msg: fmt.Sprintf(format, args...)})
}

// Counts tallies voxels per phase.
type Counts [phase.Count]int

// Total returns the sum over all phases.
func (c *Counts) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

// Sum returns the combined count of the given phases.
func (c *Counts) Sum(ps ...phase.Phase) int {
	n := 0
	for _, p := range ps {
		n += c[p]
	}
	return n
}

// Store is the periodic phase grid plus particle ids, precipitation ages and
// growth-orientation tags. Set is the only way to change a phase; counts are
// kept in step with every change.
type Store struct {
	lat core.Lattice

	phases    []phase.Phase
	particles []int32
	ages      []int32
	faces     []uint8

	counts Counts
}

// New allocates an all-pore store of side n.
func New(n int) *Store {
	lat := core.NewLattice(n)
	v := lat.Volume()
	s := &Store{
		lat:       lat,
		phases:    make([]phase.Phase, v),
		particles: make([]int32, v),
		ages:      make([]int32, v),
		faces:     make([]uint8, v),
	}
	s.counts[phase.Porosity] = v
	return s
}

// FromGrid builds a store from phase and particle grids in linear index
// order. particles may be nil.
func FromGrid(n int, phases []phase.Phase, particles []int32) (*Store, error) {
	s := New(n)
	if len(phases) != len(s.phases) {
		return nil, fmt.Errorf("phase grid has %d voxels, want %d", len(phases), len(s.phases))
	}
	if particles != nil && len(particles) != len(s.particles) {
		return nil, fmt.Errorf("particle grid has %d voxels, want %d", len(particles), len(s.particles))
	}
	for i, p := range phases {
		if !p.Valid() {
			return nil, fmt.Errorf("voxel %d: invalid phase id %d", i, uint8(p))
		}
	}
	copy(s.phases, phases)
	if particles != nil {
		copy(s.particles, particles)
	}
	s.Recount()
	return s, nil
}

// Lattice returns the grid geometry.
func (s *Store) Lattice() core.Lattice { return s.lat }

// N returns the side length.
func (s *Store) N() int { return s.lat.N }

// Volume returns the number of voxels.
func (s *Store) Volume() int { return len(s.phases) }

// Phase returns the phase at linear index i.
func (s *Store) Phase(i int) phase.Phase { return s.phases[i] }

// At returns the phase at (x, y, z) with periodic wrapping.
func (s *Store) At(x, y, z int) phase.Phase { return s.phases[s.lat.At(x, y, z)] }

// Set changes the phase at i and mirrors the change into the counts.
func (s *Store) Set(i int, p phase.Phase) {
	old := s.phases[i]
	if old == p {
		return
	}
	if s.counts[old] <= 0 {
		violate("count of %s would go negative at voxel %d", old, i)
	}
	s.counts[old]--
	s.counts[p]++
	s.phases[i] = p
}

// Place puts p onto a pore voxel. Placing onto anything but pore space is a
// programming error.
func (s *Store) Place(i int, p phase.Phase) {
	if s.phases[i] != phase.Porosity {
		violate("placing %s onto %s at voxel %d", p, s.phases[i], i)
	}
	s.Set(i, p)
}

// Move relocates the phase at from onto the pore voxel to, leaving pore
// space behind.
func (s *Store) Move(from, to int) {
	if s.phases[to] != phase.Porosity {
		violate("moving %s onto %s at voxel %d", s.phases[from], s.phases[to], to)
	}
	s.phases[to] = s.phases[from]
	s.phases[from] = phase.Porosity
}

// Particle returns the particle id at i (0 for none).
func (s *Store) Particle(i int) int32 { return s.particles[i] }

// SetParticle assigns a particle id.
func (s *Store) SetParticle(i int, id int32) { s.particles[i] = id }

// Age returns the cycle in which the voxel's current product formed.
func (s *Store) Age(i int) int { return int(s.ages[i]) }

// SetAge records the precipitation cycle of a product voxel.
func (s *Store) SetAge(i, cycle int) { s.ages[i] = int32(cycle) }

// Face returns the growth-orientation tag (0 for unconstrained).
func (s *Store) Face(i int) uint8 { return s.faces[i] }

// SetFace assigns a growth-orientation tag.
func (s *Store) SetFace(i int, f uint8) { s.faces[i] = f }

// Count returns the current number of voxels of p.
func (s *Store) Count(p phase.Phase) int { return s.counts[p] }

// Counts returns a copy of all phase counts.
func (s *Store) Counts() Counts { return s.counts }

// Recount recomputes the counts from the grid.
func (s *Store) Recount() {
	s.counts = Counts{}
	for _, p := range s.phases {
		s.counts[p]++
	}
}

// CheckConservation verifies that the counts match the grid and sum to the
// lattice volume.
func (s *Store) CheckConservation() error {
	if total := s.counts.Total(); total != len(s.phases) {
		return fmt.Errorf("phase counts sum to %d, want %d", total, len(s.phases))
	}
	var fresh Counts
	for _, p := range s.phases {
		fresh[p]++
	}
	for _, p := range phase.All {
		if fresh[p] != s.counts[p] {
			return fmt.Errorf("count of %s is %d, grid holds %d", p, s.counts[p], fresh[p])
		}
	}
	return nil
}

// Phases returns the backing phase slice. Callers must not modify it.
func (s *Store) Phases() []phase.Phase { return s.phases }

// Clone returns a deep copy of the store.
func (s *Store) Clone() *Store {
	c := &Store{
		lat:       s.lat,
		phases:    append([]phase.Phase(nil), s.phases...),
		particles: append([]int32(nil), s.particles...),
		ages:      append([]int32(nil), s.ages...),
		faces:     append([]uint8(nil), s.faces...),
		counts:    s.counts,
	}
	return c
}
