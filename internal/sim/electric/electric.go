package electric

import (
	"beltworks.dev/internal/sim/message"
	"beltworks.dev/internal/sim/power"
)

// Port is either an *Input or an *Output.
type Port interface {
	ID() power.PortID
	Mode() power.PortMode
	Voltage() power.Voltage
	Buffer() power.WattTick
}

type Input struct {
	id      power.PortID
	voltage power.Voltage
	request power.WattTick
	buffer  power.WattTick
}

func NewInput(id power.PortID, voltage power.Voltage, request power.WattTick) *Input {
	return &Input{id: id, voltage: voltage, request: request}
}

func (in *Input) ID() power.PortID       { return in.id }
func (in *Input) Mode() power.PortMode   { return power.ModeIn }
func (in *Input) Voltage() power.Voltage { return in.voltage }
func (in *Input) Buffer() power.WattTick { return in.buffer }
func (in *Input) Request() power.WattTick {
	return in.request
}

func (in *Input) IsFull() bool { return in.buffer >= in.request }

// Drain empties the buffer and returns what was stored.
func (in *Input) Drain() power.WattTick {
	stored := in.buffer
	in.buffer = 0
	return stored
}

// TryPushMessage absorbs as much of a SendElectricity message as fits. A
// partially absorbed message comes back with the remainder as its amount.
func (in *Input) TryPushMessage(msg *message.Message) *message.Message {
	body, ok := msg.Body.(*message.SendElectricity)
	if !ok {
		return msg
	}
	if in.buffer >= in.request {
		return msg
	}
	free := in.request - in.buffer
	if body.Amount <= free {
		in.buffer += body.Amount
		return nil
	}
	body.Amount -= free
	in.buffer = in.request
	return msg
}

func (in *Input) Clone() *Input {
	return &Input{id: in.id, voltage: in.voltage, request: in.request}
}

type Output struct {
	id         power.PortID
	voltage    power.Voltage
	throughput power.WattTick
	buffer     power.WattTick
	producing  bool

	connections []power.Connection
}

func NewOutput(id power.PortID, voltage power.Voltage, throughput power.WattTick) *Output {
	return &Output{id: id, voltage: voltage, throughput: throughput}
}

func (out *Output) ID() power.PortID           { return out.id }
func (out *Output) Mode() power.PortMode       { return power.ModeOut }
func (out *Output) Voltage() power.Voltage     { return out.voltage }
func (out *Output) Buffer() power.WattTick     { return out.buffer }
func (out *Output) Throughput() power.WattTick { return out.throughput }
func (out *Output) Producing() bool            { return out.producing }

func (out *Output) SetProducing(on bool) { out.producing = on }

// Tick refills the buffer while the output is producing.
func (out *Output) Tick() {
	if out.producing {
		out.Fill()
	}
}

func (out *Output) Fill() { out.buffer = out.throughput }

func (out *Output) Connect(c power.Connection) {
	for _, have := range out.connections {
		if have == c {
			return
		}
	}
	out.connections = append(out.connections, c)
}

func (out *Output) Connections() []power.Connection {
	return append([]power.Connection(nil), out.connections...)
}

func (out *Output) PullMessages(tick uint64) []*message.Message {
	if out.buffer == 0 {
		return nil
	}
	return []*message.Message{{
		Sender: message.FromPort(out.id),
		Target: message.ConnectedInputs(out.connections),
		Tick:   tick,
		Body:   &message.SendElectricity{Amount: out.buffer},
	}}
}

// MessageSendResult keeps whatever energy was not taken, zero otherwise.
func (out *Output) MessageSendResult(res message.SendResult) {
	if res.Message == nil {
		out.buffer = 0
		return
	}
	if body, ok := res.Message.Body.(*message.SendElectricity); ok {
		out.buffer = body.Amount
	}
}

func (out *Output) Clone() *Output {
	return &Output{
		id:          out.id,
		voltage:     out.voltage,
		throughput:  out.throughput,
		connections: append([]power.Connection(nil), out.connections...),
	}
}

// Clone copies a port's configuration with empty buffers.
func Clone(p Port) Port {
	switch v := p.(type) {
	case *Input:
		return v.Clone()
	case *Output:
		return v.Clone()
	default:
		return p
	}
}
