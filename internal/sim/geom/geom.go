package geom

import "fmt"

// Vec2i is a grid position. It doubles as the addressing key of a cell.
type Vec2i struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

func V(x, y int) Vec2i { return Vec2i{X: x, Y: y} }

func (v Vec2i) Add(o Vec2i) Vec2i { return Vec2i{X: v.X + o.X, Y: v.Y + o.Y} }
func (v Vec2i) Sub(o Vec2i) Vec2i { return Vec2i{X: v.X - o.X, Y: v.Y - o.Y} }

func (v Vec2i) ToArray() [2]int { return [2]int{v.X, v.Y} }

func (v Vec2i) String() string { return fmt.Sprintf("(%d,%d)", v.X, v.Y) }

// Less orders positions x-major, then y. It is the grid iteration order.
func (v Vec2i) Less(o Vec2i) bool {
	if v.X != o.X {
		return v.X < o.X
	}
	return v.Y < o.Y
}

// Bounds is an inclusive box of grid coordinates.
type Bounds struct {
	Min Vec2i
	Max Vec2i
}

func (b Bounds) Contains(p Vec2i) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X && p.Y >= b.Min.Y && p.Y <= b.Max.Y
}

func (b Bounds) Width() int {
	if b.Max.X < b.Min.X {
		return 0
	}
	return b.Max.X - b.Min.X + 1
}

func (b Bounds) Height() int {
	if b.Max.Y < b.Min.Y {
		return 0
	}
	return b.Max.Y - b.Min.Y + 1
}

// Index returns the row-major slot of p inside b, x-major to match Less.
// p must be inside b.
func (b Bounds) Index(p Vec2i) int {
	return (p.X-b.Min.X)*b.Height() + (p.Y - b.Min.Y)
}

// At is the inverse of Index.
func (b Bounds) At(i int) Vec2i {
	h := b.Height()
	return Vec2i{X: b.Min.X + i/h, Y: b.Min.Y + i%h}
}

func (b Bounds) Area() int { return b.Width() * b.Height() }

// Offset is a sub-cell position relative to the cell center, in cell units.
type Offset struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (o Offset) Scale(k float64) Offset { return Offset{X: o.X * k, Y: o.Y * k} }
