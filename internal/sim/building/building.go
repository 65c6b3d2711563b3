// Package building holds the cell occupants of the production grid. Every
// variant is driven by the field through the same capability set: it advances
// once per tick, offers outgoing messages, absorbs incoming ones and learns the
// outcome of what it sent.
package building

import (
	"errors"

	"beltworks.dev/internal/sim/electric"
	"beltworks.dev/internal/sim/geom"
	"beltworks.dev/internal/sim/item"
	"beltworks.dev/internal/sim/message"
	"beltworks.dev/internal/sim/power"
)

var ErrBadConfig = errors.New("building: bad config")

type Kind string

const (
	KindConveyor Kind = "transport_belt"
	KindRecycler Kind = "recycler"
	KindMiner    Kind = "miner"
	KindError    Kind = "error"
)

type Building interface {
	message.Sender
	message.Receiver

	Name() string
	Kind() Kind
	Tick(tick uint64)
	View() View
}

// PortHolder is implemented by buildings that carry electric ports.
type PortHolder interface {
	ElectricPorts() []electric.Port
}

// Port returns the port with the given id on b, if b has one.
func Port(b Building, id power.PortID) (electric.Port, bool) {
	ph, ok := b.(PortHolder)
	if !ok {
		return nil, false
	}
	for _, p := range ph.ElectricPorts() {
		if p.ID() == id {
			return p, true
		}
	}
	return nil, false
}

type SlotView struct {
	Side     geom.Direction `json:"side"`
	Output   bool           `json:"output,omitempty"`
	Index    int            `json:"index"`
	Item     item.ID        `json:"item"`
	Offset   geom.Offset    `json:"offset"`
	Movement *item.Movement `json:"movement,omitempty"`
	// Stamp is the tick the item last moved, item.Unstamped if never.
	Stamp    uint64         `json:"stamp"`
}

type StockView struct {
	Item   item.ID `json:"item"`
	Count  int     `json:"count"`
	Buffer int     `json:"buffer"`
}

type PortView struct {
	ID       power.PortID   `json:"id"`
	Mode     power.PortMode `json:"mode"`
	Voltage  power.Voltage  `json:"voltage"`
	Buffer   power.WattTick `json:"buffer"`
	Capacity power.WattTick `json:"capacity"`
}

// View is a read-only copy of a building's state for renderers, observers
// and digests. It never aliases live buffers.
type View struct {
	Name     string      `json:"name"`
	Kind     Kind        `json:"kind"`
	State    string      `json:"state,omitempty"`
	// Timer and Charging are recycler progress counters.
	Timer    uint64      `json:"timer,omitempty"`
	Charging uint64      `json:"charging,omitempty"`
	Slots    []SlotView  `json:"slots,omitempty"`
	Inputs   []StockView `json:"inputs,omitempty"`
	Outputs  []StockView `json:"outputs,omitempty"`
	Ports    []PortView  `json:"ports,omitempty"`
}

func portViews(ins []*electric.Input, outs []*electric.Output) []PortView {
	if len(ins)+len(outs) == 0 {
		return nil
	}
	views := make([]PortView, 0, len(ins)+len(outs))
	for _, in := range ins {
		views = append(views, PortView{ID: in.ID(), Mode: in.Mode(), Voltage: in.Voltage(), Buffer: in.Buffer(), Capacity: in.Request()})
	}
	for _, out := range outs {
		views = append(views, PortView{ID: out.ID(), Mode: out.Mode(), Voltage: out.Voltage(), Buffer: out.Buffer(), Capacity: out.Throughput()})
	}
	return views
}
