// Package layout places the initial buildings of a world and wires their
// power links. Every placement that cannot be honoured is reported as a
// problem; a building that fails to configure is replaced by an error
// building so its cell still blocks.
package layout

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"beltworks.dev/internal/sim/building"
	"beltworks.dev/internal/sim/catalogs"
	"beltworks.dev/internal/sim/electric"
	"beltworks.dev/internal/sim/field"
	"beltworks.dev/internal/sim/geom"
	"beltworks.dev/internal/sim/power"
)

const fileName = "layout.yaml"

var ErrVoltageMismatch = errors.New("layout: voltage mismatch")

type Layout struct {
	Surfaces   []SurfaceOverride `yaml:"surfaces"`
	Buildings  []Placement       `yaml:"buildings"`
	PowerLinks []PowerLink       `yaml:"power_links"`
}

type SurfaceOverride struct {
	Pos     [2]int `yaml:"pos"`
	Surface string `yaml:"surface"`
}

type Placement struct {
	Pos    [2]int           `yaml:"pos"`
	Name   string           `yaml:"name"`
	Inputs []geom.Direction `yaml:"inputs,omitempty"`
	Output geom.Direction   `yaml:"output,omitempty"`
}

type PortRef struct {
	Pos  [2]int `yaml:"pos"`
	Port uint32 `yaml:"port"`
}

type PowerLink struct {
	From PortRef `yaml:"from"`
	To   PortRef `yaml:"to"`
}

func vec(p [2]int) geom.Vec2i { return geom.V(p[0], p[1]) }

func Load(path string) (Layout, error) {
	var l Layout
	raw, err := os.ReadFile(path)
	if err != nil {
		return l, err
	}
	if err := yaml.Unmarshal(raw, &l); err != nil {
		return l, fmt.Errorf("%s: %w", fileName, err)
	}
	return l, nil
}

// Apply builds l onto f in order: surfaces, buildings, then power links.
func Apply(f *field.Field, factory *building.Factory, l Layout, logger *zap.Logger) []catalogs.Problem {
	if logger == nil {
		logger = zap.NewNop()
	}
	var problems []catalogs.Problem
	report := func(where string, err error) {
		problems = append(problems, catalogs.Problem{File: fileName, Entry: where, Msg: err.Error()})
		logger.Warn("layout problem", zap.String("where", where), zap.Error(err))
	}

	for i, s := range l.Surfaces {
		if err := f.SetSurface(vec(s.Pos), s.Surface); err != nil {
			report(fmt.Sprintf("surfaces[%d]", i), err)
		}
	}

	for i, p := range l.Buildings {
		where := fmt.Sprintf("buildings[%d] %s", i, p.Name)
		b := factory.Build(p.Name)
		if eb, ok := b.(*building.ErrorBuilding); ok {
			report(where, errors.New(eb.Reason()))
		}
		if c, ok := b.(*building.Conveyor); ok {
			if err := c.Configure(p.Inputs, p.Output); err != nil {
				report(where, err)
				b = building.NewErrorBuilding(p.Name, err.Error())
			}
		}
		if err := f.Build(vec(p.Pos), b); err != nil {
			report(where, err)
		}
	}

	for i, link := range l.PowerLinks {
		if err := connect(f, link); err != nil {
			report(fmt.Sprintf("power_links[%d]", i), err)
		}
	}
	return problems
}

func connect(f *field.Field, link PowerLink) error {
	from, to := vec(link.From.Pos), vec(link.To.Pos)
	src, err := portAt(f, from, power.PortID(link.From.Port))
	if err != nil {
		return err
	}
	dst, err := portAt(f, to, power.PortID(link.To.Port))
	if err != nil {
		return err
	}
	out, ok := src.(*electric.Output)
	if !ok {
		return fmt.Errorf("%w: port %d at %s is not an output", building.ErrBadConfig, src.ID(), from)
	}
	if _, ok := dst.(*electric.Input); !ok {
		return fmt.Errorf("%w: port %d at %s is not an input", building.ErrBadConfig, dst.ID(), to)
	}
	if src.Voltage() != dst.Voltage() {
		return fmt.Errorf("%w: %dV at %s to %dV at %s", ErrVoltageMismatch, src.Voltage(), from, dst.Voltage(), to)
	}
	out.Connect(power.Connection{Pos: to, Port: dst.ID()})
	return nil
}

func portAt(f *field.Field, pos geom.Vec2i, id power.PortID) (electric.Port, error) {
	c, ok := f.Cell(pos)
	if !ok {
		return nil, fmt.Errorf("%w: %s", field.ErrOutOfBounds, pos)
	}
	if c.Empty() {
		return nil, fmt.Errorf("%w: no building at %s", building.ErrBadConfig, pos)
	}
	p, ok := building.Port(c.Building(), id)
	if !ok {
		return nil, fmt.Errorf("%w: no port %d at %s", building.ErrBadConfig, id, pos)
	}
	return p, nil
}
