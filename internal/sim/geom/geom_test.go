package geom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectionVecRoundTrip(t *testing.T) {
	for _, d := range Cardinals {
		assert.Equal(t, d, FromVec(d.Vec()), "dir %s", d)
		assert.Equal(t, d, d.Negate().Negate())
		assert.Equal(t, Vec2i{}, d.Vec().Add(d.Negate().Vec()))
	}
	assert.Equal(t, None, None.Negate())
	assert.Equal(t, None, FromVec(Vec2i{}))
	assert.Equal(t, None, FromVec(V(1, 1)))
	assert.Equal(t, None, FromVec(V(2, 0)))
}

func TestParseDirection(t *testing.T) {
	cases := map[string]Direction{"Up": Up, "down": Down, " left ": Left, "+x": Right, "": None}
	for in, want := range cases {
		got, ok := ParseDirection(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseDirection("sideways")
	assert.False(t, ok)

	var d Direction
	require.NoError(t, d.UnmarshalText([]byte("right")))
	assert.Equal(t, Right, d)
	assert.Error(t, d.UnmarshalText([]byte("diag")))
}

func TestBoundsInclusive(t *testing.T) {
	b := Bounds{Min: V(-2, -1), Max: V(2, 1)}
	assert.Equal(t, 5, b.Width())
	assert.Equal(t, 3, b.Height())
	assert.True(t, b.Contains(V(2, 1)))
	assert.True(t, b.Contains(V(-2, -1)))
	assert.False(t, b.Contains(V(3, 0)))
	assert.False(t, b.Contains(V(0, -2)))

	for i := 0; i < b.Area(); i++ {
		p := b.At(i)
		require.True(t, b.Contains(p))
		assert.Equal(t, i, b.Index(p))
	}
	assert.True(t, b.At(0).Less(b.At(1)))
}

func TestEmptyBounds(t *testing.T) {
	b := Bounds{Min: V(1, 1), Max: V(0, 0)}
	assert.Equal(t, 0, b.Area())
	assert.False(t, b.Contains(V(0, 0)))
}
