package microstructure

import (
	"cemhyd/internal/core"
	"cemhyd/internal/phase"
)

// Step returns the face neighbor of i in direction d.
func (s *Store) Step(i int, d core.Direction) int { return s.lat.Step(i, d) }

// Neighbors26 returns the 26 cube neighbors of i.
func (s *Store) Neighbors26(i int) [26]int {
	var nb [26]int
	s.lat.Neighbors26(i, &nb)
	return nb
}

// EdgeCount returns how many of the 26 neighbors of i are none of a, b, c.
// A result below 26 means i touches at least one of them.
func (s *Store) EdgeCount(i int, a, b, c phase.Phase) int {
	n := 0
	for _, j := range s.Neighbors26(i) {
		p := s.phases[j]
		if p != a && p != b && p != c {
			n++
		}
	}
	return n
}

// Touches reports whether any of the 26 neighbors of i is p.
func (s *Store) Touches(i int, p phase.Phase) bool {
	return s.EdgeCount(i, p, p, p) < 26
}

// CountBox counts voxels matching pred in the periodic cube of the given
// size centered on i. Even sizes behave like the next odd size down plus
// one, as the half-width is size/2.
func (s *Store) CountBox(i, size int, pred func(phase.Phase) bool) int {
	half := size / 2
	x, y, z := s.lat.Coords(i)
	n := 0
	for dx := -half; dx <= half; dx++ {
		for dy := -half; dy <= half; dy++ {
			for dz := -half; dz <= half; dz++ {
				if pred(s.phases[s.lat.At(x+dx, y+dy, z+dz)]) {
					n++
				}
			}
		}
	}
	return n
}

// RandomIndex returns a uniformly drawn voxel index.
func (s *Store) RandomIndex(rng interface{ IntN(int) int }) int {
	return rng.IntN(len(s.phases))
}

// Slice fills dst with the display ids of the z-plane at depth z, row-major
// over (x, y) with x varying fastest.
func (s *Store) Slice(z int, dst []uint8) {
	n := s.lat.N
	z = s.lat.Wrap(z)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			dst[y*n+x] = uint8(s.phases[s.lat.Index(x, y, z)].Display())
		}
	}
}
