package world

import (
	"encoding/json"

	"go.uber.org/zap"

	"beltworks.dev/internal/observerproto"
	"beltworks.dev/internal/sim/encoding"
	"beltworks.dev/internal/sim/field"
)

type observerClient struct {
	id         string
	tickOut    chan []byte
	everyTicks int
}

func clampEvery(v, def int) int {
	if v <= 0 {
		return def
	}
	if v > 1000 {
		return 1000
	}
	return v
}

func (w *World) handleObserverJoin(req ObserverJoinRequest) {
	if req.SessionID == "" || req.TickOut == nil {
		return
	}
	// Replace existing session id if any.
	if old := w.observers[req.SessionID]; old != nil {
		close(old.tickOut)
	}
	w.observers[req.SessionID] = &observerClient{
		id:         req.SessionID,
		tickOut:    req.TickOut,
		everyTicks: clampEvery(req.EveryTicks, w.cfg.ObserverEveryTicks),
	}
	w.log.Debug("observer joined", zap.String("session", req.SessionID))
}

func (w *World) handleObserverSubscribe(req ObserverSubscribeRequest) {
	c := w.observers[req.SessionID]
	if c == nil {
		return
	}
	c.everyTicks = clampEvery(req.EveryTicks, c.everyTicks)
}

func (w *World) handleObserverLeave(sessionID string) {
	c := w.observers[sessionID]
	if c == nil {
		return
	}
	delete(w.observers, sessionID)
	close(c.tickOut)
	w.log.Debug("observer left", zap.String("session", sessionID))
}

func (w *World) closeObservers() {
	for id, c := range w.observers {
		delete(w.observers, id)
		close(c.tickOut)
	}
}

// stepObservers encodes the frame at most once per tick and only if some
// observer is due.
func (w *World) stepObservers(nowTick uint64, entry TickLogEntry) {
	if len(w.observers) == 0 {
		return
	}
	var frame []byte
	for _, c := range w.observers {
		if nowTick%uint64(c.everyTicks) != 0 {
			continue
		}
		if frame == nil {
			b, err := json.Marshal(w.tickMsg(entry))
			if err != nil {
				w.log.Error("encode tick frame", zap.Uint64("tick", nowTick), zap.Error(err))
				return
			}
			frame = b
		}
		sendLatest(c.tickOut, frame)
	}
}

func (w *World) tickMsg(entry TickLogEntry) observerproto.TickMsg {
	msg := observerproto.TickMsg{
		Type:            "TICK",
		ProtocolVersion: observerproto.Version,
		Tick:            entry.Tick,
		Digest:          entry.Digest,
		Report:          entry.Report,
	}
	w.field.Each(func(c *field.Cell) {
		if c.Empty() {
			return
		}
		v := c.Building().View()
		st := observerproto.CellState{
			Pos:   c.Pos().ToArray(),
			Name:  v.Name,
			Kind:  string(v.Kind),
			State: v.State,
		}
		for _, s := range v.Slots {
			slot := observerproto.Slot{
				Item: uint32(s.Item),
				From: [2]float64{s.Offset.X, s.Offset.Y},
				To:   [2]float64{s.Offset.X, s.Offset.Y},
			}
			if mv := s.Movement; mv != nil {
				slot.From = [2]float64{mv.From.X, mv.From.Y}
				slot.To = [2]float64{mv.To.X, mv.To.Y}
				slot.Moved = mv.Tick
			}
			st.Slots = append(st.Slots, slot)
		}
		msg.Cells = append(msg.Cells, st)
	})
	return msg
}

// Bootstrap only reads data that is immutable after New, plus the atomic
// tick, so it is safe to call from HTTP handlers while Run is active.
func (w *World) Bootstrap() observerproto.BootstrapResponse {
	b := w.field.Bounds()
	resp := observerproto.BootstrapResponse{
		ProtocolVersion: observerproto.Version,
		WorldID:         w.cfg.ID,
		RunID:           w.runID,
		Tick:            w.CurrentTick(),
		WorldParams: observerproto.WorldParams{
			TickRateHz: w.cfg.TickRateHz,
			Min:        b.Min.ToArray(),
			Max:        b.Max.ToArray(),
			Seed:       w.cfg.Seed,
		},
		ItemPalette: w.ItemPalette(),
		BeltSystems: w.belts,
	}
	resp.SurfacePalette, resp.SurfacesRLE = encoding.EncodeSurfaces(w.surfaces)
	if w.cat != nil {
		resp.CatalogsDigest = w.cat.Digest()
	}
	return resp
}
