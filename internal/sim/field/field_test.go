package field

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beltworks.dev/internal/sim/building"
	"beltworks.dev/internal/sim/electric"
	"beltworks.dev/internal/sim/geom"
	"beltworks.dev/internal/sim/item"
	"beltworks.dev/internal/sim/power"
)

const ore item.ID = 1

func belt(t *testing.T, n int, inputs []geom.Direction, output geom.Direction) *building.Conveyor {
	t.Helper()
	c := building.NewConveyor("belt", n, nil)
	require.NoError(t, c.Configure(inputs, output))
	return c
}

func source(period uint64) *building.Recycler {
	return building.NewRecycler(building.RecyclerConfig{
		Name:    "source",
		Period:  period,
		Outputs: []building.Stack{{Item: ore, Count: 1}},
	}, nil)
}

func TestBuildChecks(t *testing.T) {
	f := New(geom.Bounds{Min: geom.V(0, 0), Max: geom.V(2, 2)}, nil, nil, nil)

	require.NoError(t, f.Build(geom.V(1, 1), building.NewErrorBuilding("x", "test")))
	assert.ErrorIs(t, f.Build(geom.V(1, 1), source(1)), ErrOccupied)
	assert.ErrorIs(t, f.Build(geom.V(3, 0), source(1)), ErrOutOfBounds)
	assert.ErrorIs(t, f.SetSurface(geom.V(1, 1), "sand"), ErrOccupied)

	c, ok := f.Cell(geom.V(1, 1))
	require.True(t, ok)
	body, ok := c.Body()
	require.True(t, ok)
	box, ok := f.Arena().Get(body)
	require.True(t, ok)
	assert.Equal(t, geom.V(1, 1), box.Center)

	_, ok = f.Cell(geom.V(-1, 0))
	assert.False(t, ok)
	empty, ok := f.Cell(geom.V(0, 0))
	require.True(t, ok)
	_, ok = empty.Body()
	assert.False(t, ok)
	assert.Equal(t, 1, f.Buildings())
}

func TestMinerBindsToSurface(t *testing.T) {
	b := geom.Bounds{Min: geom.V(0, 0), Max: geom.V(1, 0)}
	f := New(b, []string{"iron_deposit", "grass"}, nil, nil)
	protos := map[string]*building.Recycler{"iron_deposit": source(1)}

	m1 := building.NewMiner("drill", protos, nil)
	m2 := building.NewMiner("drill", protos, nil)
	require.NoError(t, f.Build(geom.V(0, 0), m1))
	require.NoError(t, f.Build(geom.V(1, 0), m2))
	assert.True(t, m1.Active())
	assert.False(t, m2.Active())
	assert.Equal(t, "grass", m2.Surface())
}

// A source feeds a two belt line that ends at the grid edge. Once the line
// has backed up every sender gets its payload back each tick.
func TestBeltLineBacksUpWithoutLoss(t *testing.T) {
	f := New(geom.Bounds{Min: geom.V(-1, 0), Max: geom.V(1, 0)}, nil, nil, nil)
	src := source(1)
	a := belt(t, 2, []geom.Direction{geom.Left}, geom.Right)
	b := belt(t, 2, []geom.Direction{geom.Left}, geom.Right)
	require.NoError(t, f.Build(geom.V(-1, 0), src))
	require.NoError(t, f.Build(geom.V(0, 0), a))
	require.NoError(t, f.Build(geom.V(1, 0), b))

	handed := 0
	var last Report
	for tick := uint64(1); tick <= 60; tick++ {
		held := a.Occupied() + b.Occupied()
		rep := f.Step(tick)
		assert.Equal(t, rep.Messages, rep.Accepted+rep.Refunded, "tick %d", tick)
		// Belt to belt handoffs keep the count; only the source adds.
		if a.Occupied()+b.Occupied() > held {
			handed += a.Occupied() + b.Occupied() - held
		}
		last = rep
	}

	assert.Equal(t, 8, a.Occupied()+b.Occupied())
	assert.Equal(t, 8, handed)
	assert.Equal(t, 1, src.Outputs()[0].Buffer)
	assert.Equal(t, Report{Tick: 60, Messages: 3, Refunded: 3, OutOfBounds: 4}, last)
}

func TestEnergySplitAndRefund(t *testing.T) {
	f := New(geom.Bounds{Min: geom.V(0, 0), Max: geom.V(2, 0)}, nil, nil, nil)

	out := electric.NewOutput(0, 220, 10)
	out.Connect(power.Connection{Pos: geom.V(1, 0), Port: 0})
	out.Connect(power.Connection{Pos: geom.V(2, 0), Port: 0})
	gen := building.NewRecycler(building.RecyclerConfig{Name: "gen", Period: 5, ElectricOutputs: []*electric.Output{out}}, nil)

	consumer := func() (*building.Recycler, *electric.Input) {
		in := electric.NewInput(0, 220, 6)
		return building.NewRecycler(building.RecyclerConfig{
			Name:           "load",
			Period:         1,
			Inputs:         []building.Stack{{Item: ore, Count: 1}},
			ElectricInputs: []*electric.Input{in},
		}, nil), in
	}
	c1, in1 := consumer()
	c2, in2 := consumer()
	require.NoError(t, f.Build(geom.V(0, 0), gen))
	require.NoError(t, f.Build(geom.V(1, 0), c1))
	require.NoError(t, f.Build(geom.V(2, 0), c2))

	rep := f.Step(1)
	assert.Equal(t, power.WattTick(6), in1.Buffer())
	assert.Equal(t, power.WattTick(4), in2.Buffer())
	assert.Equal(t, power.WattTick(0), out.Buffer())
	assert.Equal(t, Report{Tick: 1, Messages: 1, Accepted: 1, Partial: 1, EnergyOffered: 10, EnergyDelivered: 10}, rep)

	rep = f.Step(2)
	assert.Equal(t, power.WattTick(6), in1.Buffer())
	assert.Equal(t, power.WattTick(6), in2.Buffer())
	assert.Equal(t, power.WattTick(8), out.Buffer())
	assert.Equal(t, Report{Tick: 2, Messages: 1, Refunded: 1, Partial: 1, EnergyOffered: 10, EnergyDelivered: 2}, rep)

	// Both inputs full: the whole amount comes back.
	rep = f.Step(3)
	assert.Equal(t, power.WattTick(10), out.Buffer())
	assert.Equal(t, 1, rep.Refunded)
	assert.Equal(t, 0, rep.Partial)
	assert.Equal(t, uint64(0), rep.EnergyDelivered)
}

func TestNeighborBroadcastFirstAcceptorWins(t *testing.T) {
	f := New(geom.Bounds{Min: geom.V(-1, -1), Max: geom.V(1, 1)}, nil, nil, nil)
	src := source(1)
	// The upper belt does not take input from below.
	up := belt(t, 1, []geom.Direction{geom.Left}, geom.Up)
	right := belt(t, 1, []geom.Direction{geom.Left}, geom.Right)
	down := belt(t, 1, []geom.Direction{geom.Up}, geom.Down)
	require.NoError(t, f.Build(geom.V(0, 0), src))
	require.NoError(t, f.Build(geom.V(0, 1), up))
	require.NoError(t, f.Build(geom.V(1, 0), right))
	require.NoError(t, f.Build(geom.V(0, -1), down))
	require.NoError(t, f.Build(geom.V(-1, 0), building.NewErrorBuilding("broken", "test")))

	f.Step(1)
	rep := f.Step(2)
	assert.Equal(t, Report{Tick: 2, Messages: 1, Accepted: 1, ItemsDelivered: 1}, rep)
	assert.Equal(t, 0, up.Occupied())
	assert.Equal(t, 1, right.Occupied())
	assert.Equal(t, 0, down.Occupied())

	for tick := uint64(3); tick <= 5; tick++ {
		f.Step(tick)
	}
	// The right belt is now jammed against the grid edge, so the next unit
	// falls through to the belt below.
	rep = f.Step(6)
	assert.Equal(t, Report{Tick: 6, Messages: 2, Accepted: 1, Refunded: 1, OutOfBounds: 1, ItemsDelivered: 1}, rep)
	assert.Equal(t, 2, right.Occupied())
	assert.Equal(t, 1, down.Occupied())
}

func TestRejectedEverywhereIsRefunded(t *testing.T) {
	f := New(geom.Bounds{Min: geom.V(0, 0), Max: geom.V(1, 0)}, nil, nil, nil)
	src := source(1)
	require.NoError(t, f.Build(geom.V(0, 0), src))
	require.NoError(t, f.Build(geom.V(1, 0), building.NewErrorBuilding("broken", "test")))

	f.Step(1)
	rep := f.Step(2)
	assert.Equal(t, Report{Tick: 2, Messages: 1, Refunded: 1, OutOfBounds: 3}, rep)
	assert.Equal(t, 1, src.Outputs()[0].Buffer)
}
