package building

import (
	"fmt"

	"go.uber.org/zap"

	"beltworks.dev/internal/sim/catalogs"
	"beltworks.dev/internal/sim/electric"
	"beltworks.dev/internal/sim/power"
)

// Factory constructs buildings by catalog name. Anything it cannot build comes
// back as an *ErrorBuilding.
type Factory struct {
	cat *catalogs.Catalogs
	log *zap.Logger
}

func NewFactory(cat *catalogs.Catalogs, logger *zap.Logger) *Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Factory{cat: cat, log: logger}
}

func (f *Factory) Build(name string) Building {
	b, err := f.build(name)
	if err != nil {
		f.log.Warn("building replaced by error building", zap.String("building", name), zap.Error(err))
		return NewErrorBuilding(name, err.Error())
	}
	return b
}

func (f *Factory) build(name string) (Building, error) {
	if f.cat == nil {
		return nil, fmt.Errorf("%w: no catalogs", ErrBadConfig)
	}
	bc := f.cat.Buildings
	if def, ok := bc.Belts[name]; ok {
		return NewConveyor(name, def.ItemCount, f.log), nil
	}
	if def, ok := bc.Recyclers[name]; ok {
		r, err := f.Recycler(name, def)
		if err != nil {
			return nil, err
		}
		return r, nil
	}
	if def, ok := bc.Miners[name]; ok {
		protos := make(map[string]*Recycler, len(def.Surfaces))
		for surface, rd := range def.Surfaces {
			r, err := f.Recycler(name, rd)
			if err != nil {
				return nil, fmt.Errorf("surface %s: %w", surface, err)
			}
			protos[surface] = r
		}
		return NewMiner(name, protos, f.log), nil
	}
	return nil, fmt.Errorf("%w: unknown building %q", ErrBadConfig, name)
}

// Recycler resolves item names of def against the item registry.
func (f *Factory) Recycler(name string, def catalogs.RecyclerDef) (*Recycler, error) {
	reg := f.cat.Items.Registry
	stacks := func(list []catalogs.ItemCount) ([]Stack, error) {
		out := make([]Stack, 0, len(list))
		for _, ic := range list {
			id, ok := reg.Lookup(ic.Item)
			if !ok {
				return nil, fmt.Errorf("%w: unknown item %q", ErrBadConfig, ic.Item)
			}
			count := ic.Count
			if count < 0 {
				count = 0
			}
			out = append(out, Stack{Item: id, Count: count})
		}
		return out, nil
	}
	ins, err := stacks(def.Inputs)
	if err != nil {
		return nil, err
	}
	outs, err := stacks(def.Outputs)
	if err != nil {
		return nil, err
	}
	period := def.Period
	if period < 0 {
		period = 0
	}

	cfg := RecyclerConfig{Name: name, Period: uint64(period), Inputs: ins, Outputs: outs}
	for _, p := range def.ElectricInputs {
		cfg.ElectricInputs = append(cfg.ElectricInputs,
			electric.NewInput(power.PortID(p.ID), power.Voltage(p.Voltage), power.WattTick(p.Request)))
	}
	for _, p := range def.ElectricOutputs {
		cfg.ElectricOutputs = append(cfg.ElectricOutputs,
			electric.NewOutput(power.PortID(p.ID), power.Voltage(p.Voltage), power.WattTick(p.Throughput)))
	}
	return NewRecycler(cfg, f.log), nil
}
