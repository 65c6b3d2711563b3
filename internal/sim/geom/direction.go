package geom

import "strings"

type Direction uint8

const (
	None Direction = iota
	Up
	Down
	Left
	Right
)

// Cardinals is the neighbor broadcast order.
var Cardinals = [4]Direction{Up, Right, Down, Left}

func (d Direction) Vec() Vec2i {
	switch d {
	case Up:
		return Vec2i{X: 0, Y: 1}
	case Down:
		return Vec2i{X: 0, Y: -1}
	case Left:
		return Vec2i{X: -1, Y: 0}
	case Right:
		return Vec2i{X: 1, Y: 0}
	default:
		return Vec2i{}
	}
}

// FromVec maps a unit cardinal vector to its direction; anything else is None.
func FromVec(v Vec2i) Direction {
	switch v {
	case Vec2i{X: 0, Y: 1}:
		return Up
	case Vec2i{X: 0, Y: -1}:
		return Down
	case Vec2i{X: -1, Y: 0}:
		return Left
	case Vec2i{X: 1, Y: 0}:
		return Right
	default:
		return None
	}
}

func (d Direction) Negate() Direction {
	switch d {
	case Up:
		return Down
	case Down:
		return Up
	case Left:
		return Right
	case Right:
		return Left
	default:
		return None
	}
}

func (d Direction) Offset() Offset {
	v := d.Vec()
	return Offset{X: float64(v.X), Y: float64(v.Y)}
}

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "none"
	}
}

func ParseDirection(s string) (Direction, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", "u", "+y":
		return Up, true
	case "down", "d", "-y":
		return Down, true
	case "left", "l", "-x":
		return Left, true
	case "right", "r", "+x":
		return Right, true
	case "none", "":
		return None, true
	default:
		return None, false
	}
}

func (d Direction) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Direction) UnmarshalText(b []byte) error {
	v, ok := ParseDirection(string(b))
	if !ok {
		return &ParseError{Value: string(b)}
	}
	*d = v
	return nil
}

type ParseError struct{ Value string }

func (e *ParseError) Error() string { return "geom: unknown direction " + `"` + e.Value + `"` }
