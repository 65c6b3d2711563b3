package world

import (
	"time"

	"beltworks.dev/internal/sim/field"
)

// WorldMetrics is a thread-safe read-only view of key world runtime signals.
// It is updated from the world loop goroutine and read from HTTP handlers/tests.
type WorldMetrics struct {
	Tick       uint64       `json:"tick"`
	Buildings  int          `json:"buildings"`
	Observers  int          `json:"observers"`
	StepMS     float64      `json:"step_ms"`
	LastReport field.Report `json:"last_report"`
}

func (w *World) Metrics() WorldMetrics {
	if w == nil {
		return WorldMetrics{}
	}
	m, _ := w.metrics.Load().(WorldMetrics)
	return m
}

func (w *World) storeMetrics(rep field.Report, took time.Duration) {
	w.metrics.Store(WorldMetrics{
		Tick:       rep.Tick,
		Buildings:  w.field.Buildings(),
		Observers:  len(w.observers),
		StepMS:     float64(took.Microseconds()) / 1000,
		LastReport: rep,
	})
}
