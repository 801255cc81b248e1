package species

import (
	"slices"
	"testing"

	"cemhyd/internal/phase"
)

func positions(l *List) []int {
	var out []int
	c := l.Cursor()
	for h, ok := c.Next(); ok; h, ok = c.Next() {
		out = append(out, l.Get(h).Pos)
	}
	return out
}

func TestInsertionOrder(t *testing.T) {
	l := New()
	for i := 0; i < 5; i++ {
		l.Add(i*10, phase.DiffCH, 1)
	}
	if got := positions(l); !slices.Equal(got, []int{0, 10, 20, 30, 40}) {
		t.Fatalf("order = %v", got)
	}
	if l.Len() != 5 || l.Count(phase.DiffCH) != 5 {
		t.Fatalf("len=%d count=%d", l.Len(), l.Count(phase.DiffCH))
	}
}

func TestRemoveDuringTraversal(t *testing.T) {
	l := New()
	hs := make([]Handle, 6)
	for i := range hs {
		hs[i] = l.Add(i, phase.DiffGypsum, 0)
	}
	var visited []int
	c := l.Cursor()
	for h, ok := c.Next(); ok; h, ok = c.Next() {
		pos := l.Get(h).Pos
		visited = append(visited, pos)
		switch pos {
		case 1:
			l.Remove(h)
			l.Remove(hs[2])
		case 3:
			l.Remove(hs[5])
			l.Remove(h)
		}
	}
	if !slices.Equal(visited, []int{0, 1, 3, 4}) {
		t.Fatalf("visited %v", visited)
	}
	if got := positions(l); !slices.Equal(got, []int{0, 4}) {
		t.Fatalf("remaining %v", got)
	}
}

func TestHandleReuseAndLookup(t *testing.T) {
	l := New()
	a := l.Add(7, phase.DiffC3A, 2)
	l.Add(8, phase.DiffC3A, 2)
	l.Remove(a)
	if l.Live(a) {
		t.Fatal("removed handle still live")
	}
	b := l.Add(9, phase.DiffFH3, 3)
	if b != a {
		t.Fatalf("expected handle reuse, got %d want %d", b, a)
	}
	if _, ok := l.At(7); ok {
		t.Fatal("stale voxel mapping")
	}
	l.Move(b, 11)
	if h, ok := l.At(11); !ok || h != b {
		t.Fatal("Move did not update voxel index")
	}
	if !l.RemoveAt(11) || l.RemoveAt(11) {
		t.Fatal("RemoveAt should succeed exactly once")
	}
	if got := positions(l); !slices.Equal(got, []int{8}) {
		t.Fatalf("remaining %v", got)
	}
}

type fakeGrid []phase.Phase

func (g fakeGrid) Volume() int { return len(g) }
func (g fakeGrid) Phase(i int) phase.Phase { return g[i] }

func TestVerify(t *testing.T) {
	g := fakeGrid{phase.Porosity, phase.DiffCH, phase.CSH, phase.DiffCSH}
	l := New()
	l.Add(1, phase.DiffCH, 0)
	if err := l.Verify(g); err == nil {
		t.Fatal("missing record for voxel 3 should be reported")
	}
	l.Add(3, phase.DiffCSH, 0)
	if err := l.Verify(g); err != nil {
		t.Fatal(err)
	}
	g[1] = phase.CH
	if err := l.Verify(g); err == nil {
		t.Fatal("record on a solid voxel should be reported")
	}
}

func TestAddOccupiedVoxelPanics(t *testing.T) {
	l := New()
	l.Add(4, phase.DiffCH, 0)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for duplicate voxel")
		}
	}()
	l.Add(4, phase.DiffCSH, 0)
}
