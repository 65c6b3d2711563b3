package world

import (
	"context"
	"time"

	"go.uber.org/zap"
)

func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer w.closeObservers()

	w.log.Info("world loop started", zap.Int("tick_rate_hz", w.cfg.TickRateHz))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.observerJoin:
			w.handleObserverJoin(req)
		case req := <-w.observerSub:
			w.handleObserverSubscribe(req)
		case id := <-w.observerLeave:
			w.handleObserverLeave(id)
		case <-ticker.C:
			w.step()
		}
	}
}

func (w *World) Stop() { close(w.stop) }

// StepOnce advances the world by a single tick using the same ordering
// semantics as Run. It is meant for replays and tests.
func (w *World) StepOnce() TickLogEntry { return w.step() }

func (w *World) step() TickLogEntry {
	tick := w.tick.Load()
	start := time.Now()
	rep := w.field.Step(tick)
	took := time.Since(start)

	entry := TickLogEntry{RunID: w.runID, WorldID: w.cfg.ID, Tick: tick, Report: rep}
	if tick%uint64(w.cfg.DigestEveryTicks) == 0 {
		entry.Digest = w.stateDigest(tick)
	}

	for _, s := range w.sinks {
		if err := s.WriteTick(entry); err != nil {
			w.log.Warn("tick sink failed", zap.Uint64("tick", tick), zap.Error(err))
		}
	}
	for _, o := range w.stepObs {
		o.ObserveStep(rep, took)
	}
	w.stepObservers(tick, entry)
	w.storeMetrics(rep, took)

	w.tick.Add(1)
	return entry
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
