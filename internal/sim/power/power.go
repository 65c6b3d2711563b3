package power

import (
	"fmt"
	"strings"

	"beltworks.dev/internal/sim/geom"
)

// Voltage is nominal: it only decides whether two ports may be connected.
type Voltage uint32

// WattTick is an amount of energy moved during one tick.
type WattTick uint32

// PortID is local to the building that owns the port.
type PortID uint32

type PortMode uint8

const (
	ModeIn PortMode = iota + 1
	ModeOut
)

func ParseMode(s string) (PortMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "in":
		return ModeIn, nil
	case "out":
		return ModeOut, nil
	default:
		return 0, fmt.Errorf("power: unknown port mode %q", s)
	}
}

func (m PortMode) String() string {
	switch m {
	case ModeIn:
		return "in"
	case ModeOut:
		return "out"
	default:
		return "?"
	}
}

// Connection addresses an electric input port somewhere on the grid.
type Connection struct {
	Pos  geom.Vec2i `json:"pos"`
	Port PortID     `json:"port"`
}

func (c Connection) String() string { return fmt.Sprintf("%s#%d", c.Pos, c.Port) }
