// Package species tracks the mobile species currently in transit through
// pore space.
package species

import (
	"fmt"

	"cemhyd/internal/phase"
)

// Handle identifies a record in a List. Handles of removed records may be
// reused by later additions.
type Handle int32

// Nil is the handle of no record.
const Nil Handle = -1

// Record is one species in transit.
type Record struct {
	Pos   int
	Kind  phase.Phase
	Birth int
}

type node struct {
	Record
	prev, next Handle
	live       bool
}

// List is an insertion-ordered collection of species backed by an arena with
// a free list. Insert and remove are O(1); so is lookup by voxel.
type List struct {
	nodes  []node
	free   []Handle
	head   Handle
	tail   Handle
	size   int
	counts [phase.Count]int

	byVoxel map[int]Handle
	cursor  *Cursor
}

// New returns an empty list.
func New() *List {
	return &List{head: Nil, tail: Nil, byVoxel: map[int]Handle{}}
}

// Len returns the number of live records.
func (l *List) Len() int { return l.size }

// Count returns the number of live records of kind k.
func (l *List) Count(k phase.Phase) int { return l.counts[k] }

// Add appends a record at the tail.
func (l *List) Add(pos int, kind phase.Phase, birth int) Handle {
	if _, taken := l.byVoxel[pos]; taken {
		panic(fmt.Sprintf("species: voxel %d already holds a species", pos))
	}
	var h Handle
	if n := len(l.free); n > 0 {
		h = l.free[n-1]
		l.free = l.free[:n-1]
	} else {
		h = Handle(len(l.nodes))
		l.nodes = append(l.nodes, node{})
	}
	l.nodes[h] = node{Record: Record{Pos: pos, Kind: kind, Birth: birth}, prev: l.tail, next: Nil, live: true}
	if l.tail != Nil {
		l.nodes[l.tail].next = h
	} else {
		l.head = h
	}
	l.tail = h
	l.size++
	l.counts[kind]++
	l.byVoxel[pos] = h
	return h
}

// Get returns the record behind h.
func (l *List) Get(h Handle) Record { return l.nodes[h].Record }

// Live reports whether h refers to a live record.
func (l *List) Live(h Handle) bool {
	return h >= 0 && int(h) < len(l.nodes) && l.nodes[h].live
}

// At returns the handle of the species at voxel pos.
func (l *List) At(pos int) (Handle, bool) {
	h, ok := l.byVoxel[pos]
	return h, ok
}

// Move updates the position of h.
func (l *List) Move(h Handle, pos int) {
	n := &l.nodes[h]
	delete(l.byVoxel, n.Pos)
	n.Pos = pos
	l.byVoxel[pos] = h
}

// Remove unlinks h. Removing the record a cursor would visit next advances
// that cursor.
func (l *List) Remove(h Handle) {
	n := &l.nodes[h]
	if !n.live {
		return
	}
	if c := l.cursor; c != nil && c.next == h {
		c.next = n.next
	}
	if n.prev != Nil {
		l.nodes[n.prev].next = n.next
	} else {
		l.head = n.next
	}
	if n.next != Nil {
		l.nodes[n.next].prev = n.prev
	} else {
		l.tail = n.prev
	}
	delete(l.byVoxel, n.Pos)
	l.counts[n.Kind]--
	l.size--
	n.live = false
	n.prev, n.next = Nil, Nil
	l.free = append(l.free, h)
}

// RemoveAt removes the species at pos, if any.
func (l *List) RemoveAt(pos int) bool {
	h, ok := l.byVoxel[pos]
	if ok {
		l.Remove(h)
	}
	return ok
}

// Clear drops every record.
func (l *List) Clear() {
	l.nodes = l.nodes[:0]
	l.free = l.free[:0]
	l.head, l.tail = Nil, Nil
	l.size = 0
	l.counts = [phase.Count]int{}
	clear(l.byVoxel)
	l.cursor = nil
}

// Cursor walks the list in insertion order. Records may be removed while a
// cursor is active, including the current one and any not yet visited.
// Records added during the walk are visited if they land after the cursor.
type Cursor struct {
	l    *List
	next Handle
}

// Cursor starts a walk from the head. Only one cursor is tracked at a time;
// starting a new one detaches the previous.
func (l *List) Cursor() *Cursor {
	c := &Cursor{l: l, next: l.head}
	l.cursor = c
	return c
}

// Next returns the next live handle.
func (c *Cursor) Next() (Handle, bool) {
	h := c.next
	if h == Nil {
		if c.l.cursor == c {
			c.l.cursor = nil
		}
		return Nil, false
	}
	c.next = c.l.nodes[h].next
	return h, true
}

// Grid is the read access Verify needs.
type Grid interface {
	Volume() int
	Phase(i int) phase.Phase
}

// Verify checks that every live record sits on a voxel of its own kind and
// that every mobile voxel of g has a record.
func (l *List) Verify(g Grid) error {
	seen := 0
	for h := l.head; h != Nil; h = l.nodes[h].next {
		n := l.nodes[h]
		if got := g.Phase(n.Pos); got != n.Kind {
			return fmt.Errorf("species %s at voxel %d sits on %s", n.Kind, n.Pos, got)
		}
		seen++
	}
	if seen != l.size {
		return fmt.Errorf("list links %d records, size says %d", seen, l.size)
	}
	mobile := 0
	for i := 0; i < g.Volume(); i++ {
		if g.Phase(i).IsMobile() {
			mobile++
			if _, ok := l.byVoxel[i]; !ok {
				return fmt.Errorf("mobile voxel %d (%s) has no record", i, g.Phase(i))
			}
		}
	}
	if mobile != l.size {
		return fmt.Errorf("%d mobile voxels but %d records", mobile, l.size)
	}
	return nil
}
