// Package field owns the grid of cells and routes messages between the
// buildings on it. One Step runs four phases to completion in order:
// advance, collect, route and settle.
package field

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"beltworks.dev/internal/sim/building"
	"beltworks.dev/internal/sim/geom"
	"beltworks.dev/internal/sim/message"
	"beltworks.dev/internal/sim/physics"
)

var (
	ErrOutOfBounds = errors.New("field: position out of bounds")
	ErrOccupied    = errors.New("field: cell already built")
)

type Cell struct {
	pos      geom.Vec2i
	surface  string
	building building.Building
	body     physics.BodyID
}

func (c *Cell) Pos() geom.Vec2i             { return c.pos }
func (c *Cell) Surface() string             { return c.surface }
func (c *Cell) Empty() bool                 { return c.building == nil }
func (c *Cell) Building() building.Building { return c.building }

// Body is the static physics body of the building, once built.
func (c *Cell) Body() (physics.BodyID, bool) { return c.body, c.body.Valid() }

type Field struct {
	bounds geom.Bounds
	cells  []Cell
	arena  *physics.Arena
	log    *zap.Logger

	network *BeltNetwork
}

// New creates empty cells over bounds. surfaces is indexed by bounds.Index;
// a short or nil slice leaves the remaining cells without surface.
func New(bounds geom.Bounds, surfaces []string, arena *physics.Arena, logger *zap.Logger) *Field {
	if arena == nil {
		arena = physics.NewArena()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &Field{
		bounds: bounds,
		cells:  make([]Cell, bounds.Area()),
		arena:  arena,
		log:    logger,
	}
	for i := range f.cells {
		f.cells[i].pos = bounds.At(i)
		if i < len(surfaces) {
			f.cells[i].surface = surfaces[i]
		}
	}
	return f
}

func (f *Field) Bounds() geom.Bounds   { return f.bounds }
func (f *Field) Arena() *physics.Arena { return f.arena }

func (f *Field) Cell(pos geom.Vec2i) (*Cell, bool) {
	if !f.bounds.Contains(pos) {
		return nil, false
	}
	return &f.cells[f.bounds.Index(pos)], true
}

// Each visits cells in x-major, then y ascending order.
func (f *Field) Each(fn func(c *Cell)) {
	for i := range f.cells {
		fn(&f.cells[i])
	}
}

// SetSurface replaces the surface of an unbuilt cell.
func (f *Field) SetSurface(pos geom.Vec2i, surface string) error {
	c, ok := f.Cell(pos)
	if !ok {
		return fmt.Errorf("%w: %s", ErrOutOfBounds, pos)
	}
	if !c.Empty() {
		return fmt.Errorf("%w: %s", ErrOccupied, pos)
	}
	c.surface = surface
	return nil
}

// Build installs b at pos and registers its static body. A miner is bound to
// the surface under it.
func (f *Field) Build(pos geom.Vec2i, b building.Building) error {
	c, ok := f.Cell(pos)
	if !ok {
		return fmt.Errorf("%w: %s", ErrOutOfBounds, pos)
	}
	if !c.Empty() {
		return fmt.Errorf("%w: %s", ErrOccupied, pos)
	}
	if m, ok := b.(*building.Miner); ok {
		m.Init(c.surface)
	}
	c.building = b
	c.body = f.arena.Register(physics.CellBox(pos))
	f.network = nil
	return nil
}

// Network returns the conveyor graph, rebuilt after any Build.
func (f *Field) Network() *BeltNetwork {
	if f.network == nil {
		f.network = buildNetwork(f)
	}
	return f.network
}

// Buildings counts built cells.
func (f *Field) Buildings() int {
	n := 0
	for i := range f.cells {
		if !f.cells[i].Empty() {
			n++
		}
	}
	return n
}

// Report summarizes the message traffic of one Step.
type Report struct {
	Tick            uint64 `json:"tick"`
	Messages        int    `json:"messages"`
	Accepted        int    `json:"accepted"`
	Partial         int    `json:"partial"`
	Refunded        int    `json:"refunded"`
	OutOfBounds     int    `json:"out_of_bounds"`
	ItemsDelivered  int    `json:"items_delivered"`
	EnergyOffered   uint64 `json:"energy_offered"`
	EnergyDelivered uint64 `json:"energy_delivered"`
}

type outgoing struct {
	cell int
	msg  *message.Message
}

type settlement struct {
	cell int
	res  message.SendResult
}

func (f *Field) Step(tick uint64) Report {
	rep := Report{Tick: tick}

	for i := range f.cells {
		if b := f.cells[i].building; b != nil {
			b.Tick(tick)
		}
	}

	var out []outgoing
	for i := range f.cells {
		c := &f.cells[i]
		if c.building == nil {
			continue
		}
		for n, m := range c.building.PullMessages(tick) {
			if m == nil {
				continue
			}
			m.Sender = m.Sender.WithPosition(c.pos)
			m.ID = uint32(n)
			m.Tick = tick
			out = append(out, outgoing{cell: i, msg: m})
		}
	}
	rep.Messages = len(out)

	settle := make([]settlement, 0, len(out))
	for _, o := range out {
		settle = append(settle, settlement{cell: o.cell, res: f.route(o.msg, &rep)})
	}

	for _, s := range settle {
		f.cells[s.cell].building.MessageSendResult(s.res)
	}
	return rep
}

// route offers msg to each candidate receiver in order until one absorbs it.
func (f *Field) route(msg *message.Message, rep *Report) message.SendResult {
	from, _ := msg.Sender.Position()
	offered, isEnergy := energyOf(msg)
	rep.EnergyOffered += offered
	_, isItem := msg.Body.(*message.PushItem)

	mutated := false
	cur := msg
	for _, to := range f.candidates(from, msg.Target) {
		pos, _ := to.Position()
		if !f.bounds.Contains(pos) {
			rep.OutOfBounds++
			continue
		}
		if pos == from && msg.Target.Kind != message.ToConnectedInputs {
			continue
		}
		b := f.cells[f.bounds.Index(pos)].building
		if b == nil {
			continue
		}
		cur.Receiver = to
		before, _ := energyOf(cur)
		back := b.TryPushMessage(cur)
		if back == nil {
			rep.Accepted++
			if mutated {
				rep.Partial++
			}
			if isItem {
				rep.ItemsDelivered++
			}
			rep.EnergyDelivered += offered
			return message.SendResult{MessageID: msg.ID, Tick: msg.Tick}
		}
		if after, _ := energyOf(back); isEnergy && after < before {
			mutated = true
		}
		cur = back
	}

	rep.Refunded++
	if mutated {
		rep.Partial++
	}
	left, _ := energyOf(cur)
	rep.EnergyDelivered += offered - left
	return message.SendResult{MessageID: msg.ID, Tick: msg.Tick, Message: cur}
}

func (f *Field) candidates(from geom.Vec2i, t message.Target) []message.Actor {
	switch t.Kind {
	case message.ToDirection:
		return []message.Actor{message.At(from.Add(t.Dir.Vec()))}
	case message.ToNeighbors:
		out := make([]message.Actor, 0, len(geom.Cardinals))
		for _, d := range geom.Cardinals {
			out = append(out, message.At(from.Add(d.Vec())))
		}
		return out
	case message.ToConnectedInputs:
		out := make([]message.Actor, 0, len(t.Ports))
		for _, p := range t.Ports {
			out = append(out, message.At(p.Pos).WithPort(p.Port))
		}
		return out
	default:
		return nil
	}
}

func energyOf(m *message.Message) (uint64, bool) {
	if m == nil {
		return 0, false
	}
	if b, ok := m.Body.(*message.SendElectricity); ok {
		return uint64(b.Amount), true
	}
	return 0, false
}
