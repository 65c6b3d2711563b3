package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"beltworks.dev/internal/sim/geom"
	"beltworks.dev/internal/sim/terrain"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickRateHz int    `yaml:"tick_rate_hz"`
	Bounds     Bounds `yaml:"bounds"`

	Terrain terrain.Params `yaml:"terrain"`

	// ObserverEveryTicks throttles tick frames sent to observers.
	ObserverEveryTicks int `yaml:"observer_every_ticks"`
	// DigestEveryTicks controls how often the full state digest is computed
	// for the tick log. 1 digests every tick.
	DigestEveryTicks int `yaml:"digest_every_ticks"`
}

type Bounds struct {
	Min [2]int `yaml:"min"`
	Max [2]int `yaml:"max"`
}

func (b Bounds) Geom() geom.Bounds {
	return geom.Bounds{Min: geom.V(b.Min[0], b.Min[1]), Max: geom.V(b.Max[0], b.Max[1])}
}

func Default() Tuning {
	return Tuning{
		ProtocolVersion:    "1.0",
		TickRateHz:         20,
		Bounds:             Bounds{Min: [2]int{-16, -16}, Max: [2]int{15, 15}},
		Terrain:            terrain.DefaultParams(),
		ObserverEveryTicks: 1,
		DigestEveryTicks:   1,
	}
}

// Load reads path over the defaults; missing keys keep their default value.
func Load(path string) (Tuning, error) {
	t := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if t.TickRateHz <= 0 {
		return t, fmt.Errorf("tuning.yaml: tick_rate_hz must be positive, got %d", t.TickRateHz)
	}
	if t.Bounds.Geom().Area() == 0 {
		return t, fmt.Errorf("tuning.yaml: empty bounds %v..%v", t.Bounds.Min, t.Bounds.Max)
	}
	if t.ObserverEveryTicks <= 0 {
		t.ObserverEveryTicks = 1
	}
	if t.DigestEveryTicks <= 0 {
		t.DigestEveryTicks = 1
	}
	return t, nil
}
