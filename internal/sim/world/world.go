package world

import (
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"beltworks.dev/internal/observerproto"
	"beltworks.dev/internal/sim/catalogs"
	"beltworks.dev/internal/sim/field"
	"beltworks.dev/internal/sim/geom"
)

type Config struct {
	ID         string
	TickRateHz int
	Seed       int64

	ObserverEveryTicks int
	DigestEveryTicks   int
}

// World hosts one field and drives it from a single goroutine. Everything
// else talks to it through channels.
type World struct {
	cfg   Config
	runID string
	log   *zap.Logger

	field    *field.Field
	cat      *catalogs.Catalogs
	surfaces []string
	belts    []observerproto.BeltSystem

	tick atomic.Uint64

	sinks     []TickSink
	stepObs   []StepObserver
	observers map[string]*observerClient

	observerJoin  chan ObserverJoinRequest
	observerSub   chan ObserverSubscribeRequest
	observerLeave chan string
	stop          chan struct{}

	metrics atomic.Value
}

func New(cfg Config, f *field.Field, cat *catalogs.Catalogs, logger *zap.Logger) *World {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TickRateHz <= 0 {
		cfg.TickRateHz = 20
	}
	if cfg.DigestEveryTicks <= 0 {
		cfg.DigestEveryTicks = 1
	}
	if cfg.ObserverEveryTicks <= 0 {
		cfg.ObserverEveryTicks = 1
	}
	w := &World{
		cfg:           cfg,
		runID:         uuid.NewString(),
		field:         f,
		cat:           cat,
		observers:     map[string]*observerClient{},
		observerJoin:  make(chan ObserverJoinRequest, 16),
		observerSub:   make(chan ObserverSubscribeRequest, 64),
		observerLeave: make(chan string, 16),
		stop:          make(chan struct{}),
	}
	w.log = logger.With(zap.String("world", cfg.ID), zap.String("run", w.runID))
	f.Each(func(c *field.Cell) { w.surfaces = append(w.surfaces, c.Surface()) })
	w.belts = beltSystems(f.Network(), w.log)
	w.metrics.Store(WorldMetrics{Buildings: f.Buildings()})
	return w
}

// beltSystems snapshots the conveyor graph for observers. Layouts are fixed
// once the world exists, so this is computed once.
func beltSystems(n *field.BeltNetwork, logger *zap.Logger) []observerproto.BeltSystem {
	vecs := func(in []geom.Vec2i) [][2]int {
		out := make([][2]int, len(in))
		for i, p := range in {
			out[i] = p.ToArray()
		}
		return out
	}
	out := make([]observerproto.BeltSystem, 0, len(n.Systems))
	cyclic := 0
	for i, s := range n.Systems {
		out = append(out, observerproto.BeltSystem{Cells: vecs(s.Cells), Heads: vecs(s.Heads), Cyclic: s.Cyclic})
		if s.Cyclic {
			cyclic++
			logger.Warn("cyclic belt system", zap.Int("system", i), zap.Int("cells", len(s.Cells)), zap.Int("heads", len(s.Heads)))
		}
	}
	logger.Info("belt systems", zap.Int("systems", len(out)), zap.Int("cyclic", cyclic))
	return out
}

// AddSink and AddStepObserver must be called before Run.
func (w *World) AddSink(s TickSink)             { w.sinks = append(w.sinks, s) }
func (w *World) AddStepObserver(o StepObserver) { w.stepObs = append(w.stepObs, o) }

func (w *World) Config() Config               { return w.cfg }
func (w *World) RunID() string                { return w.runID }
func (w *World) CurrentTick() uint64          { return w.tick.Load() }
func (w *World) Catalogs() *catalogs.Catalogs { return w.cat }

func (w *World) ObserverJoin() chan<- ObserverJoinRequest           { return w.observerJoin }
func (w *World) ObserverSubscribe() chan<- ObserverSubscribeRequest { return w.observerSub }
func (w *World) ObserverLeave() chan<- string                       { return w.observerLeave }

// Field exposes the grid for setup and tests. It must not be touched while
// Run is active.
func (w *World) Field() *field.Field { return w.field }

// Surfaces is the surface of every cell at construction, x-major then y.
func (w *World) Surfaces() []string { return append([]string(nil), w.surfaces...) }

func (w *World) ItemPalette() []string {
	if w.cat == nil {
		return nil
	}
	return w.cat.Items.Registry.Palette()
}
