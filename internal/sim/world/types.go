package world

import (
	"time"

	"beltworks.dev/internal/sim/field"
)

// TickLogEntry is written once per tick to every TickSink.
type TickLogEntry struct {
	RunID   string       `json:"run_id"`
	WorldID string       `json:"world_id"`
	Tick    uint64       `json:"tick"`
	Digest  string       `json:"digest,omitempty"`
	Report  field.Report `json:"report"`
}

type TickSink interface {
	WriteTick(e TickLogEntry) error
}

// StepObserver is told about every completed step, on the world goroutine.
type StepObserver interface {
	ObserveStep(rep field.Report, d time.Duration)
}

type ObserverJoinRequest struct {
	SessionID  string
	TickOut    chan []byte
	EveryTicks int
}

type ObserverSubscribeRequest struct {
	SessionID  string
	EveryTicks int
}
