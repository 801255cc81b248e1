package core

// Axis names one of the three lattice axes.
type Axis uint8

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// Axes lists every axis in order.
var Axes = [3]Axis{AxisX, AxisY, AxisZ}

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return "?"
	}
}

// Direction is one of the six face-adjacent moves.
type Direction uint8

const (
	XMinus Direction = iota
	XPlus
	YMinus
	YPlus
	ZMinus
	ZPlus
)

// Directions lists the six moves in draw order.
var Directions = [6]Direction{XMinus, XPlus, YMinus, YPlus, ZMinus, ZPlus}

// Offset returns the coordinate delta for the direction.
func (d Direction) Offset() (dx, dy, dz int) {
	switch d {
	case XMinus:
		return -1, 0, 0
	case XPlus:
		return 1, 0, 0
	case YMinus:
		return 0, -1, 0
	case YPlus:
		return 0, 1, 0
	case ZMinus:
		return 0, 0, -1
	default:
		return 0, 0, 1
	}
}

// Axis returns the axis the direction moves along.
func (d Direction) Axis() Axis { return Axis(d / 2) }

// PlateFaces returns the two growth-orientation tags compatible with a move
// along the direction's axis: x allows 1 and 2, y allows 2 and 3, z allows 3
// and 1.
func (d Direction) PlateFaces() (uint8, uint8) {
	switch d.Axis() {
	case AxisX:
		return 1, 2
	case AxisY:
		return 2, 3
	default:
		return 3, 1
	}
}

func (d Direction) String() string {
	return [...]string{"-x", "+x", "-y", "+y", "-z", "+z"}[d%6]
}

// DirectionSet records which directions were already tried during a bounded
// local search.
type DirectionSet uint8

// Add marks d as tried.
func (s *DirectionSet) Add(d Direction) { *s |= 1 << d }

// Has reports whether d was tried.
func (s DirectionSet) Has(d Direction) bool { return s&(1<<d) != 0 }

// Full reports whether all six directions were tried.
func (s DirectionSet) Full() bool { return s == 0x3f }
