package field

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beltworks.dev/internal/sim/geom"
)

func TestNetworkMergeOrder(t *testing.T) {
	f := New(geom.Bounds{Min: geom.V(0, 0), Max: geom.V(3, 2)}, nil, nil, nil)
	require.NoError(t, f.Build(geom.V(0, 0), belt(t, 2, []geom.Direction{geom.Left}, geom.Right)))
	require.NoError(t, f.Build(geom.V(1, 0), belt(t, 2, []geom.Direction{geom.Left, geom.Up}, geom.Right)))
	require.NoError(t, f.Build(geom.V(2, 0), belt(t, 2, []geom.Direction{geom.Left}, geom.Right)))
	require.NoError(t, f.Build(geom.V(1, 1), belt(t, 2, []geom.Direction{geom.Up}, geom.Down)))
	// Faces the line but the line does not accept from that side.
	require.NoError(t, f.Build(geom.V(2, 1), belt(t, 2, []geom.Direction{geom.Up}, geom.Down)))

	n := f.Network()
	require.Len(t, n.Systems, 2)
	main := n.Systems[0]
	assert.Equal(t, []geom.Vec2i{geom.V(0, 0), geom.V(1, 1)}, main.Heads)
	assert.Equal(t, []geom.Vec2i{geom.V(0, 0), geom.V(1, 0), geom.V(2, 0), geom.V(1, 1)}, main.Cells)
	assert.False(t, main.Cyclic)

	assert.Equal(t, []geom.Vec2i{geom.V(2, 1)}, n.Systems[1].Cells)
}

func TestNetworkLoop(t *testing.T) {
	f := New(geom.Bounds{Min: geom.V(0, 0), Max: geom.V(1, 1)}, nil, nil, nil)
	require.NoError(t, f.Build(geom.V(0, 0), belt(t, 1, []geom.Direction{geom.Up}, geom.Right)))
	require.NoError(t, f.Build(geom.V(1, 0), belt(t, 1, []geom.Direction{geom.Left}, geom.Up)))
	require.NoError(t, f.Build(geom.V(1, 1), belt(t, 1, []geom.Direction{geom.Down}, geom.Left)))
	require.NoError(t, f.Build(geom.V(0, 1), belt(t, 1, []geom.Direction{geom.Right}, geom.Down)))

	n := f.Network()
	require.Len(t, n.Systems, 1)
	sys := n.Systems[0]
	assert.True(t, sys.Cyclic)
	assert.Empty(t, sys.Heads)
	assert.Equal(t, []geom.Vec2i{geom.V(0, 0), geom.V(1, 0), geom.V(1, 1), geom.V(0, 1)}, sys.Cells)
}

func TestNetworkRebuildsAfterBuild(t *testing.T) {
	f := New(geom.Bounds{Min: geom.V(0, 0), Max: geom.V(1, 0)}, nil, nil, nil)
	require.NoError(t, f.Build(geom.V(0, 0), belt(t, 1, []geom.Direction{geom.Left}, geom.Right)))
	require.Len(t, f.Network().Systems, 1)
	require.NoError(t, f.Build(geom.V(1, 0), belt(t, 1, []geom.Direction{geom.Left}, geom.Right)))
	n := f.Network()
	require.Len(t, n.Systems, 1)
	assert.Len(t, n.Systems[0].Cells, 2)
}
