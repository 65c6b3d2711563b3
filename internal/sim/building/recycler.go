package building

import (
	"go.uber.org/zap"

	"beltworks.dev/internal/sim/electric"
	"beltworks.dev/internal/sim/item"
	"beltworks.dev/internal/sim/message"
	"beltworks.dev/internal/sim/power"
)

type State uint8

const (
	Idle State = iota
	Producing
)

func (s State) String() string {
	if s == Producing {
		return "producing"
	}
	return "idle"
}

// Stack is an amount of one item type.
type Stack struct {
	Item  item.ID
	Count int
}

type stock struct {
	item   item.ID
	count  int
	buffer int
}

type sentKind uint8

const (
	sentItem sentKind = iota
	sentEnergy
)

type sent struct {
	kind sentKind
	port power.PortID
	item item.ID
}

// Recycler turns buffered input items (and optionally energy) into output
// items once every period ticks. Electric outputs are charged for period
// ticks starting with each production cycle.
type Recycler struct {
	name   string
	period uint64

	inputs  []stock
	outputs []stock

	electricIn  []*electric.Input
	electricOut []*electric.Output

	state    State
	timer    uint64
	charging uint64

	// outgoing messages of the current tick, indexed by message id
	pending []sent

	log *zap.Logger
}

type RecyclerConfig struct {
	Name            string
	Period          uint64
	Inputs          []Stack
	Outputs         []Stack
	ElectricInputs  []*electric.Input
	ElectricOutputs []*electric.Output
}

func NewRecycler(cfg RecyclerConfig, logger *zap.Logger) *Recycler {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Recycler{
		name:        cfg.Name,
		period:      cfg.Period,
		electricIn:  append([]*electric.Input(nil), cfg.ElectricInputs...),
		electricOut: append([]*electric.Output(nil), cfg.ElectricOutputs...),
		log:         logger,
	}
	for _, s := range cfg.Inputs {
		r.inputs = append(r.inputs, stock{item: s.Item, count: s.Count})
	}
	for _, s := range cfg.Outputs {
		r.outputs = append(r.outputs, stock{item: s.Item, count: s.Count})
	}
	return r
}

// Clone returns an idle copy with empty buffers.
func (r *Recycler) Clone() *Recycler {
	c := &Recycler{name: r.name, period: r.period, log: r.log}
	for _, s := range r.inputs {
		c.inputs = append(c.inputs, stock{item: s.item, count: s.count})
	}
	for _, s := range r.outputs {
		c.outputs = append(c.outputs, stock{item: s.item, count: s.count})
	}
	for _, in := range r.electricIn {
		c.electricIn = append(c.electricIn, in.Clone())
	}
	for _, out := range r.electricOut {
		c.electricOut = append(c.electricOut, out.Clone())
	}
	return c
}

func (r *Recycler) Name() string { return r.name }
func (r *Recycler) Kind() Kind   { return KindRecycler }
func (r *Recycler) State() State { return r.state }

func (r *Recycler) ElectricPorts() []electric.Port {
	ports := make([]electric.Port, 0, len(r.electricIn)+len(r.electricOut))
	for _, in := range r.electricIn {
		ports = append(ports, in)
	}
	for _, out := range r.electricOut {
		ports = append(ports, out)
	}
	return ports
}

func (r *Recycler) Tick(tick uint64) {
	if r.charging > 0 {
		if r.charging < r.period {
			for _, out := range r.electricOut {
				out.Tick()
			}
			r.charging++
		} else {
			for _, out := range r.electricOut {
				out.SetProducing(false)
			}
			r.charging = 0
		}
	}

	switch r.state {
	case Producing:
		r.timer++
		if r.timer < r.period {
			return
		}
		for i := range r.outputs {
			r.outputs[i].buffer += r.outputs[i].count
		}
		r.state = Idle
		r.log.Debug("recycler produced", zap.String("building", r.name), zap.Uint64("tick", tick))
	default:
		if !r.ready() {
			return
		}
		for i := range r.inputs {
			r.inputs[i].buffer = 0
		}
		for _, in := range r.electricIn {
			in.Drain()
		}
		r.state = Producing
		r.timer = 0
		if len(r.electricOut) > 0 {
			for _, out := range r.electricOut {
				out.SetProducing(true)
				out.Fill()
			}
			r.charging = 1
		}
	}
}

// ready holds back a new cycle while refused output is still buffered.
func (r *Recycler) ready() bool {
	for _, s := range r.outputs {
		if s.buffer > 0 {
			return false
		}
	}
	for _, s := range r.inputs {
		if s.buffer < s.count {
			return false
		}
	}
	for _, in := range r.electricIn {
		if !in.IsFull() {
			return false
		}
	}
	return true
}

func (r *Recycler) TryPushMessage(msg *message.Message) *message.Message {
	switch body := msg.Body.(type) {
	case *message.PushItem:
		if body.Item == nil || body.Item.MovedAt(msg.Tick) {
			return msg
		}
		for i := range r.inputs {
			s := &r.inputs[i]
			if s.item == body.Item.ID() && s.buffer < s.count {
				s.buffer++
				return nil
			}
		}
		return msg
	case *message.SendElectricity:
		port, ok := msg.Receiver.Port()
		if !ok {
			return msg
		}
		for _, in := range r.electricIn {
			if in.ID() == port {
				return in.TryPushMessage(msg)
			}
		}
		return msg
	default:
		return msg
	}
}

// PullMessages emits one item message per buffered output unit, then the
// energy of every electric output. Message ids follow the returned order.
func (r *Recycler) PullMessages(tick uint64) []*message.Message {
	r.pending = r.pending[:0]
	var msgs []*message.Message
	for i := range r.outputs {
		s := &r.outputs[i]
		for k := 0; k < s.buffer; k++ {
			msgs = append(msgs, &message.Message{
				Target: message.Neighbors(),
				Tick:   tick,
				Body:   &message.PushItem{Item: item.NewTransported(s.item)},
			})
			r.pending = append(r.pending, sent{kind: sentItem, item: s.item})
		}
		s.buffer = 0
	}
	for _, out := range r.electricOut {
		for _, m := range out.PullMessages(tick) {
			msgs = append(msgs, m)
			r.pending = append(r.pending, sent{kind: sentEnergy, port: out.ID()})
		}
	}
	return msgs
}

func (r *Recycler) MessageSendResult(res message.SendResult) {
	if int(res.MessageID) >= len(r.pending) {
		r.log.Warn("recycler result for unknown message",
			zap.String("building", r.name),
			zap.Uint32("message", res.MessageID),
		)
		return
	}
	s := r.pending[res.MessageID]
	switch s.kind {
	case sentItem:
		if res.Message == nil {
			return
		}
		for i := range r.outputs {
			if r.outputs[i].item == s.item {
				r.outputs[i].buffer++
				return
			}
		}
	case sentEnergy:
		for _, out := range r.electricOut {
			if out.ID() == s.port {
				out.MessageSendResult(res)
				return
			}
		}
	}
}

// Inputs reports buffered input amounts against their requirements.
func (r *Recycler) Inputs() []StockView { return stockViews(r.inputs) }

func (r *Recycler) Outputs() []StockView { return stockViews(r.outputs) }

func (r *Recycler) View() View {
	return View{
		Name:     r.name,
		Kind:     KindRecycler,
		State:    r.state.String(),
		Timer:    r.timer,
		Charging: r.charging,
		Inputs:   stockViews(r.inputs),
		Outputs:  stockViews(r.outputs),
		Ports:    portViews(r.electricIn, r.electricOut),
	}
}

func stockViews(ss []stock) []StockView {
	if len(ss) == 0 {
		return nil
	}
	out := make([]StockView, len(ss))
	for i, s := range ss {
		out[i] = StockView{Item: s.item, Count: s.count, Buffer: s.buffer}
	}
	return out
}
