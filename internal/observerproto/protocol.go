package observerproto

import "beltworks.dev/internal/sim/field"

// Version is the observer protocol version.
const Version = "0.1"

// Client -> Server. First message on the observer WS connection, and can be
// re-sent to change the frame rate.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	// EveryTicks sends one TICK frame per this many ticks.
	EveryTicks int `json:"every_ticks,omitempty"`
}

// HTTP response for GET /observer/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string      `json:"protocol_version"`
	WorldID         string      `json:"world_id"`
	RunID           string      `json:"run_id"`
	Tick            uint64      `json:"tick"`
	WorldParams     WorldParams `json:"world_params"`
	ItemPalette     []string    `json:"item_palette"`
	CatalogsDigest  string      `json:"catalogs_digest"`
	// SurfacesRLE holds base64 (palette index, run) uvarint pairs covering
	// every cell, x-major then y.
	SurfacePalette []string     `json:"surface_palette"`
	SurfacesRLE    string       `json:"surfaces_rle"`
	BeltSystems    []BeltSystem `json:"belt_systems"`
}

// BeltSystem is one connected group of conveyors. Cells are listed head first
// along the direction of travel.
type BeltSystem struct {
	Cells  [][2]int `json:"cells"`
	Heads  [][2]int `json:"heads"`
	Cyclic bool     `json:"cyclic"`
}

type WorldParams struct {
	TickRateHz int    `json:"tick_rate_hz"`
	Min        [2]int `json:"min"`
	Max        [2]int `json:"max"`
	Seed       int64  `json:"seed"`
}

// Server -> Client.
type TickMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	Tick            uint64       `json:"tick"`
	Digest          string       `json:"digest,omitempty"`
	Report          field.Report `json:"report"`
	Cells           []CellState  `json:"cells"`
}

type CellState struct {
	Pos   [2]int `json:"pos"`
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	State string `json:"state,omitempty"`
	Slots []Slot `json:"slots,omitempty"`
}

// Slot is an occupied conveyor slot. From and To are offsets from the cell
// center in cell units; a renderer may interpolate between them.
type Slot struct {
	Item  uint32     `json:"item"`
	From  [2]float64 `json:"from"`
	To    [2]float64 `json:"to"`
	Moved uint64     `json:"moved"`
}
