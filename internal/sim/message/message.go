// Package message is the vocabulary buildings use to exchange items and energy
// across cell boundaries.
//
// A sender hands out messages during the collect phase. The field resolves each
// message's Target into candidate receivers and offers it to them in order. A
// receiver either absorbs the message (returns nil) or hands it back, possibly
// with a reduced payload. Whatever is left after the last candidate is returned
// to the sender through MessageSendResult so it can be refunded.
package message

import (
	"beltworks.dev/internal/sim/geom"
	"beltworks.dev/internal/sim/item"
	"beltworks.dev/internal/sim/power"
)

// Actor is one end of a message. Position is filled in by the field; the port
// is only meaningful for energy messages.
type Actor struct {
	pos     geom.Vec2i
	hasPos  bool
	port    power.PortID
	hasPort bool
}

func At(pos geom.Vec2i) Actor { return Actor{pos: pos, hasPos: true} }

func FromPort(id power.PortID) Actor { return Actor{port: id, hasPort: true} }

func (a Actor) WithPosition(pos geom.Vec2i) Actor {
	a.pos = pos
	a.hasPos = true
	return a
}

func (a Actor) WithPort(id power.PortID) Actor {
	a.port = id
	a.hasPort = true
	return a
}

// Position reports false while the actor has not been resolved yet.
func (a Actor) Position() (geom.Vec2i, bool) { return a.pos, a.hasPos }

func (a Actor) Port() (power.PortID, bool) { return a.port, a.hasPort }

type TargetKind uint8

const (
	// ToDirection addresses the single neighbor in Dir.
	ToDirection TargetKind = iota + 1
	// ToNeighbors tries the four neighbors in geom.Cardinals order.
	ToNeighbors
	// ToConnectedInputs tries the listed electric inputs in order.
	ToConnectedInputs
)

func (k TargetKind) String() string {
	switch k {
	case ToDirection:
		return "direction"
	case ToNeighbors:
		return "neighbors"
	case ToConnectedInputs:
		return "connected_inputs"
	default:
		return "none"
	}
}

type Target struct {
	Kind  TargetKind
	Dir   geom.Direction
	Ports []power.Connection
}

func Direction(d geom.Direction) Target { return Target{Kind: ToDirection, Dir: d} }

func Neighbors() Target { return Target{Kind: ToNeighbors} }

func ConnectedInputs(conns []power.Connection) Target {
	return Target{Kind: ToConnectedInputs, Ports: append([]power.Connection(nil), conns...)}
}

// Body is the payload of a message: *PushItem or *SendElectricity.
type Body interface {
	kind() string
}

type PushItem struct {
	Item *item.Transported
}

type SendElectricity struct {
	Amount power.WattTick
}

func (*PushItem) kind() string        { return "push_item" }
func (*SendElectricity) kind() string { return "send_electricity" }

// Kind names the body type for logs and stats.
func Kind(b Body) string {
	if b == nil {
		return "empty"
	}
	return b.kind()
}

type Message struct {
	// ID is local to the sender within one tick.
	ID       uint32
	Sender   Actor
	Receiver Actor
	Target   Target
	Tick     uint64
	Body     Body
}

// SendResult tells a sender how its message ended up. Message is nil when the
// message was fully absorbed; otherwise it carries what is left.
type SendResult struct {
	MessageID uint32
	Tick      uint64
	Message   *Message
}

func (r SendResult) Delivered() bool { return r.Message == nil }

type Sender interface {
	PullMessages(tick uint64) []*Message
	MessageSendResult(res SendResult)
}

type Receiver interface {
	// TryPushMessage returns nil if the message was absorbed, otherwise the
	// message to pass on (its payload may have shrunk).
	TryPushMessage(msg *Message) *Message
}

// Direction of the sender as seen from the receiver, None if either end is
// unresolved or the two are not adjacent.
func (m *Message) IncomingSide() geom.Direction {
	from, ok := m.Sender.Position()
	if !ok {
		return geom.None
	}
	to, ok := m.Receiver.Position()
	if !ok {
		return geom.None
	}
	return geom.FromVec(from.Sub(to))
}
