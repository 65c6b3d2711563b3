// Package physics keeps the static collision bodies of built cells. Bodies are
// addressed by generation-checked handles so a stale handle never reaches a
// slot that has been reused.
package physics

import (
	"errors"
	"fmt"

	"beltworks.dev/internal/sim/geom"
)

var ErrStaleBody = errors.New("physics: stale body id")

type BodyID struct {
	Index      uint32
	Generation uint32
}

func (id BodyID) String() string { return fmt.Sprintf("body#%d.%d", id.Index, id.Generation) }

// Valid reports whether id was ever issued. The zero BodyID never is.
func (id BodyID) Valid() bool { return id.Generation != 0 }

// Box is an axis-aligned static body covering one grid cell.
type Box struct {
	Center geom.Vec2i
	Half   geom.Offset
}

type slot struct {
	gen  uint32
	live bool
	box  Box
}

type Arena struct {
	slots []slot
	free  []uint32
}

func NewArena() *Arena { return &Arena{} }

func (a *Arena) Register(b Box) BodyID {
	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		idx = uint32(len(a.slots))
		a.slots = append(a.slots, slot{})
	}
	s := &a.slots[idx]
	s.gen++
	s.live = true
	s.box = b
	return BodyID{Index: idx, Generation: s.gen}
}

// CellBox is the body of a building occupying the cell at pos.
func CellBox(pos geom.Vec2i) Box {
	return Box{Center: pos, Half: geom.Offset{X: 0.5, Y: 0.5}}
}

func (a *Arena) Get(id BodyID) (Box, bool) {
	if int(id.Index) >= len(a.slots) {
		return Box{}, false
	}
	s := a.slots[id.Index]
	if !s.live || s.gen != id.Generation {
		return Box{}, false
	}
	return s.box, true
}

func (a *Arena) Remove(id BodyID) error {
	if _, ok := a.Get(id); !ok {
		return fmt.Errorf("%w: %s", ErrStaleBody, id)
	}
	a.slots[id.Index].live = false
	a.slots[id.Index].box = Box{}
	a.free = append(a.free, id.Index)
	return nil
}

func (a *Arena) Len() int {
	n := 0
	for _, s := range a.slots {
		if s.live {
			n++
		}
	}
	return n
}

// Bodies lists live body ids in index order.
func (a *Arena) Bodies() []BodyID {
	out := make([]BodyID, 0, len(a.slots)-len(a.free))
	for i, s := range a.slots {
		if s.live {
			out = append(out, BodyID{Index: uint32(i), Generation: s.gen})
		}
	}
	return out
}
