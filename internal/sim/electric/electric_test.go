package electric

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beltworks.dev/internal/sim/geom"
	"beltworks.dev/internal/sim/message"
	"beltworks.dev/internal/sim/power"
)

func energyMsg(amount power.WattTick) *message.Message {
	return &message.Message{Tick: 1, Body: &message.SendElectricity{Amount: amount}}
}

func amountOf(t *testing.T, m *message.Message) power.WattTick {
	t.Helper()
	b, ok := m.Body.(*message.SendElectricity)
	require.True(t, ok)
	return b.Amount
}

func TestInputAcceptsWithinRequest(t *testing.T) {
	in := NewInput(0, 220, 6)
	assert.Nil(t, in.TryPushMessage(energyMsg(4)))
	assert.Equal(t, power.WattTick(4), in.Buffer())
	assert.False(t, in.IsFull())
}

func TestInputPartialReturnsRemainder(t *testing.T) {
	in := NewInput(0, 220, 6)
	back := in.TryPushMessage(energyMsg(10))
	require.NotNil(t, back)
	assert.Equal(t, power.WattTick(4), amountOf(t, back))
	assert.True(t, in.IsFull())
	assert.Equal(t, power.WattTick(6), in.Buffer())
}

func TestInputRejectsWhenFull(t *testing.T) {
	in := NewInput(0, 220, 3)
	require.Nil(t, in.TryPushMessage(energyMsg(3)))
	msg := energyMsg(5)
	back := in.TryPushMessage(msg)
	assert.Same(t, msg, back)
	assert.Equal(t, power.WattTick(5), amountOf(t, back))
	assert.Equal(t, power.WattTick(3), in.Drain())
	assert.Equal(t, power.WattTick(0), in.Buffer())
}

func TestInputIgnoresItems(t *testing.T) {
	in := NewInput(0, 220, 3)
	msg := &message.Message{Body: &message.PushItem{}}
	assert.Same(t, msg, in.TryPushMessage(msg))
}

func TestZeroRequestInputIsAlwaysFull(t *testing.T) {
	in := NewInput(0, 0, 0)
	assert.True(t, in.IsFull())
	assert.NotNil(t, in.TryPushMessage(energyMsg(1)))
}

func TestOutputPullAndRefund(t *testing.T) {
	out := NewOutput(1, 220, 10)
	out.Connect(power.Connection{Pos: geom.V(1, 1), Port: 0})
	out.Connect(power.Connection{Pos: geom.V(1, 1), Port: 0})
	out.Connect(power.Connection{Pos: geom.V(2, 1), Port: 0})
	assert.Len(t, out.Connections(), 2)

	assert.Empty(t, out.PullMessages(1))

	out.Fill()
	msgs := out.PullMessages(1)
	require.Len(t, msgs, 1)
	m := msgs[0]
	assert.Equal(t, message.ToConnectedInputs, m.Target.Kind)
	assert.Len(t, m.Target.Ports, 2)
	port, ok := m.Sender.Port()
	require.True(t, ok)
	assert.Equal(t, power.PortID(1), port)

	// Full rejection refunds the whole amount.
	out.MessageSendResult(message.SendResult{Message: m})
	assert.Equal(t, power.WattTick(10), out.Buffer())

	// Partial delivery keeps the remainder.
	m.Body.(*message.SendElectricity).Amount = 3
	out.MessageSendResult(message.SendResult{Message: m})
	assert.Equal(t, power.WattTick(3), out.Buffer())

	out.MessageSendResult(message.SendResult{})
	assert.Equal(t, power.WattTick(0), out.Buffer())
}

func TestOutputTickOnlyWhileProducing(t *testing.T) {
	out := NewOutput(0, 220, 5)
	out.Tick()
	assert.Equal(t, power.WattTick(0), out.Buffer())
	out.SetProducing(true)
	out.Tick()
	assert.Equal(t, power.WattTick(5), out.Buffer())
}

// Output with throughput 10 feeding two inputs requesting 6 each: the first
// connection is served first and nothing is lost.
func TestOutputSplitsAcrossInputsInOrder(t *testing.T) {
	out := NewOutput(0, 220, 10)
	a := NewInput(0, 220, 6)
	b := NewInput(0, 220, 6)
	out.Fill()

	msg := out.PullMessages(1)[0]
	offered := amountOf(t, msg)
	for _, in := range []*Input{a, b} {
		if msg = in.TryPushMessage(msg); msg == nil {
			break
		}
	}
	out.MessageSendResult(message.SendResult{Message: msg})

	assert.Equal(t, power.WattTick(6), a.Buffer())
	assert.Equal(t, power.WattTick(4), b.Buffer())
	assert.Equal(t, offered, out.Buffer()+a.Buffer()+b.Buffer())
}

func TestClone(t *testing.T) {
	out := NewOutput(2, 110, 7)
	out.Connect(power.Connection{Pos: geom.V(0, 0)})
	out.Fill()
	c := Clone(out).(*Output)
	assert.Equal(t, power.WattTick(0), c.Buffer())
	assert.Equal(t, out.Connections(), c.Connections())

	in := NewInput(1, 110, 4)
	require.Nil(t, in.TryPushMessage(energyMsg(2)))
	ci := Clone(in).(*Input)
	assert.Equal(t, power.WattTick(0), ci.Buffer())
	assert.Equal(t, power.WattTick(4), ci.Request())
}
