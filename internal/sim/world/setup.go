package world

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"go.uber.org/zap"

	"beltworks.dev/internal/sim/building"
	"beltworks.dev/internal/sim/catalogs"
	"beltworks.dev/internal/sim/field"
	"beltworks.dev/internal/sim/layout"
	"beltworks.dev/internal/sim/physics"
	"beltworks.dev/internal/sim/terrain"
	"beltworks.dev/internal/sim/tuning"
)

// Load assembles a world from configDir: catalogs, tuning.yaml, generated
// terrain and layout.yaml. Entries that could not be honoured come back as
// problems; only unreadable files are errors. A missing layout.yaml yields
// an empty field.
func Load(configDir, id string, logger *zap.Logger) (*World, tuning.Tuning, []catalogs.Problem, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cat, err := catalogs.Load(configDir)
	if err != nil {
		return nil, tuning.Tuning{}, nil, err
	}
	tun, err := tuning.Load(filepath.Join(configDir, "tuning.yaml"))
	if err != nil {
		return nil, tun, nil, err
	}
	problems := append([]catalogs.Problem(nil), cat.Problems...)
	logger.Info("catalogs loaded",
		zap.Strings("buildings", cat.Buildings.Names()),
		zap.Int("items", cat.Items.Registry.Len()),
		zap.Int("problems", len(cat.Problems)))

	bounds := tun.Bounds.Geom()
	surfaces := terrain.NewGenerator(tun.Terrain).Generate(bounds)
	f := field.New(bounds, surfaces, physics.NewArena(), logger)

	l, err := layout.Load(filepath.Join(configDir, "layout.yaml"))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logger.Info("no layout.yaml, starting with an empty field")
	case err != nil:
		return nil, tun, problems, fmt.Errorf("load layout: %w", err)
	default:
		problems = append(problems, layout.Apply(f, building.NewFactory(cat, logger), l, logger)...)
	}

	w := New(Config{
		ID:                 id,
		TickRateHz:         tun.TickRateHz,
		Seed:               tun.Terrain.Seed,
		ObserverEveryTicks: tun.ObserverEveryTicks,
		DigestEveryTicks:   tun.DigestEveryTicks,
	}, f, cat, logger)
	return w, tun, problems, nil
}
