package core

// Lattice describes a periodic cube of N*N*N voxels stored x-major: the
// linear index of (x, y, z) is x*N*N + y*N + z.
type Lattice struct {
	N int
}

// NewLattice returns a lattice of side n; non-positive sizes fall back to 1.
func NewLattice(n int) Lattice {
	if n <= 0 {
		n = 1
	}
	return Lattice{N: n}
}

// Volume returns the number of voxels.
func (l Lattice) Volume() int { return l.N * l.N * l.N }

// Face returns the number of voxels on one face.
func (l Lattice) Face() int { return l.N * l.N }

// Index returns the linear index for in-range coordinates.
func (l Lattice) Index(x, y, z int) int { return (x*l.N+y)*l.N + z }

// Coords splits a linear index back into coordinates.
func (l Lattice) Coords(i int) (x, y, z int) {
	z = i % l.N
	i /= l.N
	y = i % l.N
	x = i / l.N
	return x, y, z
}

// Wrap applies periodic wrapping to a single coordinate.
func (l Lattice) Wrap(v int) int {
	v %= l.N
	if v < 0 {
		v += l.N
	}
	return v
}

// At returns the linear index of (x, y, z) after periodic wrapping.
func (l Lattice) At(x, y, z int) int {
	return l.Index(l.Wrap(x), l.Wrap(y), l.Wrap(z))
}

// Step returns the face neighbor of i in direction d (periodic).
func (l Lattice) Step(i int, d Direction) int {
	x, y, z := l.Coords(i)
	dx, dy, dz := d.Offset()
	return l.At(x+dx, y+dy, z+dz)
}

// Neighbors6 fills dst with the six face neighbors of i in Directions order.
func (l Lattice) Neighbors6(i int, dst *[6]int) {
	x, y, z := l.Coords(i)
	for k, d := range Directions {
		dx, dy, dz := d.Offset()
		dst[k] = l.At(x+dx, y+dy, z+dz)
	}
}

// Neighbors26 fills dst with the 26 cube neighbors of i.
func (l Lattice) Neighbors26(i int, dst *[26]int) {
	x, y, z := l.Coords(i)
	k := 0
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for dz := -1; dz <= 1; dz++ {
				if dx == 0 && dy == 0 && dz == 0 {
					continue
				}
				dst[k] = l.At(x+dx, y+dy, z+dz)
				k++
			}
		}
	}
}

// Permute maps coordinates expressed relative to a percolation axis (a is the
// axis coordinate, b and c the two transverse ones) onto lattice coordinates.
func (l Lattice) Permute(axis Axis, a, b, c int) int {
	switch axis {
	case AxisY:
		return l.Index(c, a, b)
	case AxisZ:
		return l.Index(b, c, a)
	default:
		return l.Index(a, b, c)
	}
}
