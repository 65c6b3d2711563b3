package item

import (
	"math"
	"sort"

	"beltworks.dev/internal/sim/geom"
)

// ID identifies an item type. Zero is reserved for unknown items.
type ID uint32

const Unknown ID = 0

// Unstamped is the move stamp of an item that has never moved.
const Unstamped uint64 = math.MaxUint64

// Registry maps item names to dense ids in sorted-name order, so ids are stable
// for a given catalog regardless of file order.
type Registry struct {
	names []string
	index map[string]ID
}

func NewRegistry(names []string) *Registry {
	uniq := make(map[string]bool, len(names))
	sorted := make([]string, 0, len(names))
	for _, n := range names {
		if n == "" || uniq[n] {
			continue
		}
		uniq[n] = true
		sorted = append(sorted, n)
	}
	sort.Strings(sorted)

	r := &Registry{
		names: append([]string{""}, sorted...),
		index: make(map[string]ID, len(sorted)),
	}
	for i, n := range sorted {
		r.index[n] = ID(i + 1)
	}
	return r
}

func (r *Registry) Lookup(name string) (ID, bool) {
	if r == nil {
		return Unknown, false
	}
	id, ok := r.index[name]
	return id, ok
}

func (r *Registry) Name(id ID) string {
	if r == nil || int(id) >= len(r.names) {
		return ""
	}
	return r.names[id]
}

// Palette lists item names by id, index 0 being the unknown item.
func (r *Registry) Palette() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.names...)
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.names) - 1
}

// Movement records one hop of an item inside a cell so a presentation layer
// can interpolate between From and To over the tick that follows Tick.
type Movement struct {
	From geom.Offset `json:"from"`
	To   geom.Offset `json:"to"`
	Tick uint64      `json:"tick"`
}

// Transported is a single item instance travelling through buildings.
// Identity is the pointer: it survives hops and refunds unchanged.
type Transported struct {
	id        ID
	lastMoved uint64
	movement  *Movement
}

func NewTransported(id ID) *Transported {
	return &Transported{id: id, lastMoved: Unstamped}
}

func (t *Transported) ID() ID { return t.id }

// MovedAt reports whether the item already moved during tick.
func (t *Transported) MovedAt(tick uint64) bool { return t.lastMoved == tick }

func (t *Transported) LastMoved() uint64 { return t.lastMoved }

// Stamp marks the item as moved in tick. It refuses a second stamp for the
// same tick and leaves the item untouched in that case.
func (t *Transported) Stamp(tick uint64) bool {
	if t.lastMoved == tick {
		return false
	}
	t.lastMoved = tick
	return true
}

func (t *Transported) SetMovement(from, to geom.Offset, tick uint64) {
	t.movement = &Movement{From: from, To: to, Tick: tick}
}

func (t *Transported) Movement() (Movement, bool) {
	if t.movement == nil {
		return Movement{}, false
	}
	return *t.movement, true
}
