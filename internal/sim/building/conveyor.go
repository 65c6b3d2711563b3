package building

import (
	"fmt"

	"go.uber.org/zap"

	"beltworks.dev/internal/sim/geom"
	"beltworks.dev/internal/sim/item"
	"beltworks.dev/internal/sim/message"
)

// Conveyor moves items through slot buffers toward its output side.
//
// Output slots run from index 0 at the center to N-1 at the edge. Input slots
// run from 0 at the edge to N-1 next to the center.
type Conveyor struct {
	name      string
	itemCount int

	inputs []geom.Direction
	output geom.Direction

	outBuf []*item.Transported
	inBufs [][]*item.Transported

	log *zap.Logger
}

func NewConveyor(name string, itemCount int, logger *zap.Logger) *Conveyor {
	if itemCount < 0 {
		itemCount = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Conveyor{name: name, itemCount: itemCount, log: logger}
}

// Configure sets the input sides and the output side and clears all slots.
func (c *Conveyor) Configure(inputs []geom.Direction, output geom.Direction) error {
	if output == geom.None {
		return fmt.Errorf("%w: conveyor %s has no output", ErrBadConfig, c.name)
	}
	seen := map[geom.Direction]bool{}
	for _, d := range inputs {
		switch {
		case d == geom.None:
			return fmt.Errorf("%w: conveyor %s has an input without side", ErrBadConfig, c.name)
		case d == output:
			return fmt.Errorf("%w: conveyor %s input %s equals output", ErrBadConfig, c.name, d)
		case seen[d]:
			return fmt.Errorf("%w: conveyor %s input %s repeated", ErrBadConfig, c.name, d)
		}
		seen[d] = true
	}

	c.inputs = append([]geom.Direction(nil), inputs...)
	c.output = output
	c.outBuf = make([]*item.Transported, c.itemCount)
	c.inBufs = make([][]*item.Transported, len(inputs))
	for i := range c.inBufs {
		c.inBufs[i] = make([]*item.Transported, c.itemCount)
	}
	return nil
}

func (c *Conveyor) Name() string { return c.name }
func (c *Conveyor) Kind() Kind   { return KindConveyor }

func (c *Conveyor) ItemCount() int           { return c.itemCount }
func (c *Conveyor) Output() geom.Direction   { return c.output }
func (c *Conveyor) Inputs() []geom.Direction { return append([]geom.Direction(nil), c.inputs...) }

func (c *Conveyor) inert() bool { return c.itemCount == 0 || c.output == geom.None }

// SlotOffset is the position of a slot relative to the cell center, in cell
// units. Index -1 on an input is the neighbor's side of the edge.
func SlotOffset(d geom.Direction, index, itemCount int, output bool) geom.Offset {
	if itemCount <= 0 {
		return geom.Offset{}
	}
	steps := itemCount - index
	if output {
		steps = index
	}
	return d.Offset().Scale(float64(steps) / float64(2*itemCount))
}

func (c *Conveyor) Tick(tick uint64) {
	if c.inert() {
		return
	}
	c.advance(c.outBuf, c.output, true, tick)
	for i, d := range c.inputs {
		c.advance(c.inBufs[i], d, false, tick)
	}

	if c.outBuf[0] != nil {
		return
	}
	last := c.itemCount - 1
	for i, buf := range c.inBufs {
		it := buf[last]
		if it == nil || !it.Stamp(tick) {
			continue
		}
		buf[last] = nil
		c.outBuf[0] = it
		it.SetMovement(SlotOffset(c.inputs[i], last, c.itemCount, false), SlotOffset(c.output, 0, c.itemCount, true), tick)
		return
	}
}

func (c *Conveyor) advance(buf []*item.Transported, side geom.Direction, output bool, tick uint64) {
	for i := len(buf) - 2; i >= 0; i-- {
		it := buf[i]
		if it == nil || buf[i+1] != nil || !it.Stamp(tick) {
			continue
		}
		buf[i+1] = it
		buf[i] = nil
		it.SetMovement(SlotOffset(side, i, c.itemCount, output), SlotOffset(side, i+1, c.itemCount, output), tick)
	}
}

func (c *Conveyor) PullMessages(tick uint64) []*message.Message {
	if c.inert() {
		return nil
	}
	edge := c.itemCount - 1
	it := c.outBuf[edge]
	if it == nil || it.MovedAt(tick) {
		return nil
	}
	c.outBuf[edge] = nil
	return []*message.Message{{
		Target: message.Direction(c.output),
		Tick:   tick,
		Body:   &message.PushItem{Item: it},
	}}
}

// MessageSendResult puts a refused item back on the output edge. The stamp is
// left as it was so the item can leave on the next tick.
func (c *Conveyor) MessageSendResult(res message.SendResult) {
	if res.Message == nil || c.inert() {
		return
	}
	body, ok := res.Message.Body.(*message.PushItem)
	if !ok || body.Item == nil {
		return
	}
	edge := c.itemCount - 1
	if c.outBuf[edge] != nil {
		c.log.Error("conveyor refund into occupied slot, item dropped",
			zap.String("conveyor", c.name),
			zap.Uint32("item", uint32(body.Item.ID())),
			zap.Uint64("tick", res.Tick),
		)
		return
	}
	c.outBuf[edge] = body.Item
	off := SlotOffset(c.output, edge, c.itemCount, true)
	body.Item.SetMovement(off, off, res.Tick)
}

func (c *Conveyor) TryPushMessage(msg *message.Message) *message.Message {
	body, ok := msg.Body.(*message.PushItem)
	if !ok || body.Item == nil || c.inert() {
		return msg
	}
	side := msg.IncomingSide()
	idx := -1
	for i, d := range c.inputs {
		if d == side {
			idx = i
			break
		}
	}
	if idx < 0 || c.inBufs[idx][0] != nil {
		return msg
	}
	if !body.Item.Stamp(msg.Tick) {
		return msg
	}
	c.inBufs[idx][0] = body.Item
	body.Item.SetMovement(SlotOffset(side, -1, c.itemCount, false), SlotOffset(side, 0, c.itemCount, false), msg.Tick)
	return nil
}

// Slot returns the item in a slot. side must be the output or a configured
// input; anything else reads as empty.
func (c *Conveyor) Slot(side geom.Direction, index int) *item.Transported {
	if index < 0 || index >= c.itemCount {
		return nil
	}
	if side == c.output && c.outBuf != nil {
		return c.outBuf[index]
	}
	for i, d := range c.inputs {
		if d == side {
			return c.inBufs[i][index]
		}
	}
	return nil
}

// Occupied counts items held in all buffers.
func (c *Conveyor) Occupied() int {
	n := 0
	for _, it := range c.outBuf {
		if it != nil {
			n++
		}
	}
	for _, buf := range c.inBufs {
		for _, it := range buf {
			if it != nil {
				n++
			}
		}
	}
	return n
}

func (c *Conveyor) View() View {
	v := View{Name: c.name, Kind: KindConveyor}
	add := func(buf []*item.Transported, side geom.Direction, output bool) {
		for i, it := range buf {
			if it == nil {
				continue
			}
			sv := SlotView{Side: side, Output: output, Index: i, Item: it.ID(), Offset: SlotOffset(side, i, c.itemCount, output), Stamp: it.LastMoved()}
			if mv, ok := it.Movement(); ok {
				sv.Movement = &mv
			}
			v.Slots = append(v.Slots, sv)
		}
	}
	add(c.outBuf, c.output, true)
	for i, d := range c.inputs {
		add(c.inBufs[i], d, false)
	}
	return v
}
