package building

import (
	"go.uber.org/zap"

	"beltworks.dev/internal/sim/electric"
	"beltworks.dev/internal/sim/message"
)

// Miner extracts from the surface under it. The surface picks one recycler
// prototype; a miner on a surface without a prototype does nothing.
type Miner struct {
	name       string
	prototypes map[string]*Recycler
	surface    string
	active     *Recycler
	log        *zap.Logger
}

func NewMiner(name string, prototypes map[string]*Recycler, logger *zap.Logger) *Miner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Miner{name: name, prototypes: prototypes, log: logger}
}

// Init selects the recycler for surface and reports whether one matched.
func (m *Miner) Init(surface string) bool {
	m.surface = surface
	proto, ok := m.prototypes[surface]
	if !ok {
		m.active = nil
		m.log.Warn("miner has no recycler for surface", zap.String("building", m.name), zap.String("surface", surface))
		return false
	}
	m.active = proto.Clone()
	return true
}

func (m *Miner) Name() string    { return m.name }
func (m *Miner) Kind() Kind      { return KindMiner }
func (m *Miner) Surface() string { return m.surface }
func (m *Miner) Active() bool    { return m.active != nil }

func (m *Miner) Tick(tick uint64) {
	if m.active != nil {
		m.active.Tick(tick)
	}
}

func (m *Miner) PullMessages(tick uint64) []*message.Message {
	if m.active == nil {
		return nil
	}
	return m.active.PullMessages(tick)
}

func (m *Miner) MessageSendResult(res message.SendResult) {
	if m.active != nil {
		m.active.MessageSendResult(res)
	}
}

func (m *Miner) TryPushMessage(msg *message.Message) *message.Message {
	if m.active == nil {
		return msg
	}
	return m.active.TryPushMessage(msg)
}

func (m *Miner) ElectricPorts() []electric.Port {
	if m.active == nil {
		return nil
	}
	return m.active.ElectricPorts()
}

func (m *Miner) View() View {
	if m.active == nil {
		return View{Name: m.name, Kind: KindMiner, State: "inert"}
	}
	v := m.active.View()
	v.Name = m.name
	v.Kind = KindMiner
	return v
}
