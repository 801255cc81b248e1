package core

import (
	"slices"
	"testing"
)

func TestLatticeIndexRoundTrip(t *testing.T) {
	l := NewLattice(5)
	for i := 0; i < l.Volume(); i++ {
		x, y, z := l.Coords(i)
		if got := l.Index(x, y, z); got != i {
			t.Fatalf("Index(Coords(%d)) = %d", i, got)
		}
	}
}

func TestLatticeWrap(t *testing.T) {
	l := NewLattice(4)
	if got := l.At(-1, 4, 9); got != l.Index(3, 0, 1) {
		t.Fatalf("At(-1,4,9) = %d, want %d", got, l.Index(3, 0, 1))
	}
}

func TestNeighbors6Periodic(t *testing.T) {
	l := NewLattice(3)
	var nb [6]int
	l.Neighbors6(l.Index(0, 0, 0), &nb)
	want := []int{
		l.Index(2, 0, 0), l.Index(1, 0, 0),
		l.Index(0, 2, 0), l.Index(0, 1, 0),
		l.Index(0, 0, 2), l.Index(0, 0, 1),
	}
	if !slices.Equal(nb[:], want) {
		t.Fatalf("Neighbors6 = %v, want %v", nb, want)
	}
	for k, d := range Directions {
		if l.Step(l.Index(0, 0, 0), d) != nb[k] {
			t.Fatalf("Step(%s) disagrees with Neighbors6", d)
		}
	}
}

func TestNeighbors26Distinct(t *testing.T) {
	l := NewLattice(5)
	var nb [26]int
	center := l.Index(2, 2, 2)
	l.Neighbors26(center, &nb)
	seen := map[int]bool{}
	for _, n := range nb {
		if n == center || seen[n] {
			t.Fatalf("Neighbors26 returned duplicate or center %d", n)
		}
		seen[n] = true
	}
}

func TestDirectionSetFull(t *testing.T) {
	var s DirectionSet
	for i, d := range Directions {
		if s.Full() {
			t.Fatalf("set full after %d adds", i)
		}
		s.Add(d)
		s.Add(d)
		if !s.Has(d) {
			t.Fatalf("missing %s after add", d)
		}
	}
	if !s.Full() {
		t.Fatal("set should be full after all six directions")
	}
}

func TestPermuteCoversFaces(t *testing.T) {
	l := NewLattice(3)
	for _, axis := range Axes {
		seen := map[int]bool{}
		for b := 0; b < 3; b++ {
			for c := 0; c < 3; c++ {
				i := l.Permute(axis, 0, b, c)
				x, y, z := l.Coords(i)
				coord := [3]int{x, y, z}[axis]
				if coord != 0 {
					t.Fatalf("axis %s: face voxel has axis coordinate %d", axis, coord)
				}
				seen[i] = true
			}
		}
		if len(seen) != 9 {
			t.Fatalf("axis %s: face has %d distinct voxels", axis, len(seen))
		}
	}
}
