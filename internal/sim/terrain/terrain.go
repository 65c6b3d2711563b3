// Package terrain assigns a surface to every grid cell from 2-D perlin noise.
package terrain

import (
	"sort"

	"github.com/aquilax/go-perlin"

	"beltworks.dev/internal/sim/geom"
)

// Band maps noise values up to and including Max onto a surface.
type Band struct {
	Max     float64 `yaml:"max"`
	Surface string  `yaml:"surface"`
}

type Params struct {
	Seed    int64   `yaml:"seed"`
	Scale   float64 `yaml:"scale"`
	Alpha   float64 `yaml:"alpha"`
	Beta    float64 `yaml:"beta"`
	Octaves int32   `yaml:"octaves"`
	Bands   []Band  `yaml:"bands"`
	Default string  `yaml:"default"`
}

func DefaultParams() Params {
	return Params{
		Seed:    1337,
		Scale:   9.7,
		Alpha:   2,
		Beta:    2,
		Octaves: 3,
		Bands: []Band{
			{Max: 0.30, Surface: "sand"},
			{Max: 0.62, Surface: "grass"},
			{Max: 0.72, Surface: "iron_deposit"},
			{Max: 0.80, Surface: "grass"},
			{Max: 1.00, Surface: "coal_deposit"},
		},
		Default: "grass",
	}
}

type Generator struct {
	p     Params
	noise *perlin.Perlin
}

func NewGenerator(p Params) *Generator {
	d := DefaultParams()
	if p.Scale <= 0 {
		p.Scale = d.Scale
	}
	if p.Alpha == 0 {
		p.Alpha = d.Alpha
	}
	if p.Beta == 0 {
		p.Beta = d.Beta
	}
	if p.Octaves <= 0 {
		p.Octaves = d.Octaves
	}
	bands := append([]Band(nil), p.Bands...)
	sort.SliceStable(bands, func(i, j int) bool { return bands[i].Max < bands[j].Max })
	p.Bands = bands
	return &Generator{p: p, noise: perlin.NewPerlin(p.Alpha, p.Beta, p.Octaves, p.Seed)}
}

// Value is the noise at pos scaled into [0, 1].
func (g *Generator) Value(pos geom.Vec2i) float64 {
	n := g.noise.Noise2D(float64(pos.X)/g.p.Scale, float64(pos.Y)/g.p.Scale)
	v := (n + 1) / 2
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func (g *Generator) SurfaceAt(pos geom.Vec2i) string {
	v := g.Value(pos)
	for _, b := range g.p.Bands {
		if v <= b.Max {
			return b.Surface
		}
	}
	return g.p.Default
}

// Generate returns the surface of every cell in b, indexed by b.Index.
func (g *Generator) Generate(b geom.Bounds) []string {
	out := make([]string, b.Area())
	for i := range out {
		out[i] = g.SurfaceAt(b.At(i))
	}
	return out
}
